package dto

import (
	"fmt"
	"strings"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/types"
	"stockledger/internal/domain"
	"stockledger/internal/domain/ledger"
)

// TransactionItemRequest is one line of a create request. Which price field
// is required depends on the transaction type.
type TransactionItemRequest struct {
	ProductID string       `json:"productId"`
	Quantity  int64        `json:"quantity"`
	UnitCost  *types.Money `json:"unitCost"`
	UnitPrice *types.Money `json:"unitPrice"`
}

// CreateTransactionRequest is the body of POST /transactions.
type CreateTransactionRequest struct {
	Type            string                   `json:"type"`
	TransactionDate *time.Time               `json:"transactionDate"`
	SupplierID      *string                  `json:"supplierId"`
	Notes           string                   `json:"notes"`
	Items           []TransactionItemRequest `json:"items"`
}

// ToRequest converts the body into a ledger request.
func (r CreateTransactionRequest) ToRequest() (ledger.Request, error) {
	t := entity.TransactionType(strings.ToUpper(strings.TrimSpace(r.Type)))

	items := make([]ledger.ItemInput, len(r.Items))
	for i, item := range r.Items {
		in := ledger.ItemInput{
			Quantity:  item.Quantity,
			UnitCost:  item.UnitCost,
			UnitPrice: item.UnitPrice,
		}
		if item.ProductID != "" {
			pid, err := ParseID(fmt.Sprintf("items[%d].productId", i), item.ProductID)
			if err != nil {
				return ledger.Request{}, err
			}
			in.ProductID = pid
		}
		items[i] = in
	}

	req, err := ledger.NewRequest(t, items)
	if err != nil {
		return ledger.Request{}, err
	}

	supplierID, err := ParseOptionalID("supplierId", r.SupplierID)
	if err != nil {
		return ledger.Request{}, err
	}
	req.SupplierID = supplierID
	req.Notes = r.Notes
	if r.TransactionDate != nil {
		req.TransactionDate = *r.TransactionDate
	}
	return req, nil
}

// TransactionListQuery holds the query parameters of GET /transactions.
type TransactionListQuery struct {
	PaginationRequest
	Type       string `form:"type"`
	SupplierID string `form:"supplierId"`
	ProductID  string `form:"productId"`
	From       string `form:"from"`
	To         string `form:"to"`
}

// ToFilter converts the query into a ledger list filter.
func (q TransactionListQuery) ToFilter() (ledger.ListFilter, error) {
	var filter ledger.ListFilter

	if q.Type != "" {
		t := entity.TransactionType(strings.ToUpper(q.Type))
		filter.Type = &t
	}

	var err error
	if q.SupplierID != "" {
		if filter.SupplierID, err = ParseOptionalID("supplierId", &q.SupplierID); err != nil {
			return filter, err
		}
	}
	if q.ProductID != "" {
		if filter.ProductID, err = ParseOptionalID("productId", &q.ProductID); err != nil {
			return filter, err
		}
	}
	if filter.FromDate, err = ParseDate("from", q.From, false); err != nil {
		return filter, err
	}
	if filter.ToDate, err = ParseDate("to", q.To, true); err != nil {
		return filter, err
	}

	filter.Limit = q.Limit
	filter.Offset = q.Offset()
	return filter, nil
}

// NewTransactionListResponse renders a list result as a page.
func NewTransactionListResponse(result domain.ListResult[entity.StockTransaction]) GenericListResponse[entity.StockTransaction] {
	page := 1
	if result.Limit > 0 {
		page = result.Offset/result.Limit + 1
	}
	return GenericListResponse[entity.StockTransaction]{
		Data:       result.Items,
		Pagination: NewPaginationResponse(page, result.Limit, result.TotalCount),
	}
}
