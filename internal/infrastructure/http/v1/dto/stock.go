package dto

import (
	"fmt"
	"strings"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/registers/stock"
)

// CurrentStockResponse is the body of GET /stock/products/:productId/current.
type CurrentStockResponse struct {
	ProductID    id.ID `json:"productId"`
	CurrentStock int64 `json:"currentStock"`
}

// StockCardQuery holds the query parameters of the stock card endpoint.
type StockCardQuery struct {
	PaginationRequest
	StartDate       string `form:"startDate"`
	EndDate         string `form:"endDate"`
	TransactionType string `form:"transactionType"`
	Order           string `form:"order"`
}

// ToFilter converts the query into an engine filter. Order defaults to newest first.
func (q StockCardQuery) ToFilter() (stock.StockCardFilter, error) {
	filter := stock.StockCardFilter{Page: q.Page, Limit: q.Limit, Descending: true}

	var err error
	if filter.StartDate, err = ParseDate("startDate", q.StartDate, false); err != nil {
		return filter, err
	}
	if filter.EndDate, err = ParseDate("endDate", q.EndDate, true); err != nil {
		return filter, err
	}
	if q.TransactionType != "" {
		t := entity.TransactionType(strings.ToUpper(q.TransactionType))
		filter.TransactionType = &t
	}

	switch strings.ToLower(q.Order) {
	case "", "desc":
	case "asc":
		filter.Descending = false
	default:
		return filter, apperror.NewFieldValidation("order", "must be asc or desc")
	}
	return filter, nil
}

// AdjustmentRequest is the body of POST /stock/products/:productId/adjustment.
type AdjustmentRequest struct {
	ActualStock *int64 `json:"actualStock"`
}

// AdjustmentItem is one counted product.
type AdjustmentItem struct {
	ProductID   string `json:"productId"`
	ActualStock *int64 `json:"actualStock"`
}

// BatchAdjustmentRequest is the body of POST /stock/adjustments/batch.
type BatchAdjustmentRequest struct {
	Adjustments []AdjustmentItem `json:"adjustments"`
}

// ToInputs parses the counted products.
func (r BatchAdjustmentRequest) ToInputs() ([]stock.AdjustmentInput, error) {
	inputs := make([]stock.AdjustmentInput, len(r.Adjustments))
	for i, a := range r.Adjustments {
		field := fmt.Sprintf("adjustments[%d]", i)
		pid, err := ParseID(field+".productId", a.ProductID)
		if err != nil {
			return nil, err
		}
		if a.ActualStock == nil {
			return nil, apperror.NewFieldValidation(field+".actualStock", "is required")
		}
		inputs[i] = stock.AdjustmentInput{ProductID: pid, ActualStock: *a.ActualStock}
	}
	return inputs, nil
}

// CommitAdjustmentsRequest is the body of POST /stock/adjustments/commit.
type CommitAdjustmentsRequest struct {
	BatchAdjustmentRequest
	TransactionDate *time.Time `json:"transactionDate"`
	Notes           string     `json:"notes"`
}

// ToReconcile converts the body into a reconcile request.
func (r CommitAdjustmentsRequest) ToReconcile() (ledger.ReconcileRequest, error) {
	counts, err := r.ToInputs()
	if err != nil {
		return ledger.ReconcileRequest{}, err
	}
	req := ledger.ReconcileRequest{Counts: counts, Notes: r.Notes}
	if r.TransactionDate != nil {
		req.TransactionDate = *r.TransactionDate
	}
	return req, nil
}

// CommitAdjustmentsResponse reports the committed ADJUST transaction and the
// plans it was built from.
type CommitAdjustmentsResponse struct {
	Transaction *entity.StockTransaction `json:"transaction"`
	Adjustments []stock.AdjustmentPlan   `json:"adjustments"`
	Summary     stock.AdjustmentSummary  `json:"summary"`
}
