// Package ledger is the transaction orchestrator: it validates stock
// transactions and commits their movements as one write unit.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Line is one item of a transaction request. Each transaction type has its own
// line shape carrying only the fields that are meaningful for it.
type Line interface {
	// Kind is the transaction type the line belongs to.
	Kind() entity.TransactionType
	// Product is the product the line moves.
	Product() id.ID
	// Change is the signed effect on the product's balance.
	Change() int64
	// Requested is the quantity as stated by the caller.
	Requested() int64

	item() entity.TransactionItem
	validate(field string) error
}

// ReceiptLine is an IN line: goods received from a supplier.
type ReceiptLine struct {
	ProductID id.ID
	Quantity  int64
	UnitCost  types.Money
}

// IssueLine is an OUT line: goods sold or issued.
type IssueLine struct {
	ProductID id.ID
	Quantity  int64
	UnitPrice types.Money
}

// AdjustmentLine is an ADJUST line. Delta is applied as is and may be negative.
type AdjustmentLine struct {
	ProductID id.ID
	Delta     int64
}

// CustomerReturnLine is a RETURN_IN line: goods coming back from a customer.
type CustomerReturnLine struct {
	ProductID id.ID
	Quantity  int64
	UnitCost  *types.Money
	UnitPrice *types.Money
}

// SupplierReturnLine is a RETURN_OUT line: goods sent back to a supplier.
type SupplierReturnLine struct {
	ProductID id.ID
	Quantity  int64
	UnitPrice types.Money
	UnitCost  *types.Money
}

func (l ReceiptLine) Kind() entity.TransactionType        { return entity.TransactionTypeIn }
func (l IssueLine) Kind() entity.TransactionType          { return entity.TransactionTypeOut }
func (l AdjustmentLine) Kind() entity.TransactionType     { return entity.TransactionTypeAdjust }
func (l CustomerReturnLine) Kind() entity.TransactionType { return entity.TransactionTypeReturnIn }
func (l SupplierReturnLine) Kind() entity.TransactionType { return entity.TransactionTypeReturnOut }

func (l ReceiptLine) Product() id.ID        { return l.ProductID }
func (l IssueLine) Product() id.ID          { return l.ProductID }
func (l AdjustmentLine) Product() id.ID     { return l.ProductID }
func (l CustomerReturnLine) Product() id.ID { return l.ProductID }
func (l SupplierReturnLine) Product() id.ID { return l.ProductID }

func (l ReceiptLine) Change() int64        { return l.Quantity }
func (l IssueLine) Change() int64          { return -l.Quantity }
func (l AdjustmentLine) Change() int64     { return l.Delta }
func (l CustomerReturnLine) Change() int64 { return l.Quantity }
func (l SupplierReturnLine) Change() int64 { return -l.Quantity }

func (l ReceiptLine) Requested() int64        { return l.Quantity }
func (l IssueLine) Requested() int64          { return l.Quantity }
func (l AdjustmentLine) Requested() int64     { return l.Delta }
func (l CustomerReturnLine) Requested() int64 { return l.Quantity }
func (l SupplierReturnLine) Requested() int64 { return l.Quantity }

func (l ReceiptLine) item() entity.TransactionItem {
	return entity.TransactionItem{ProductID: l.ProductID, Quantity: l.Quantity, UnitCost: types.MoneyPtr(l.UnitCost)}
}

func (l IssueLine) item() entity.TransactionItem {
	return entity.TransactionItem{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: types.MoneyPtr(l.UnitPrice)}
}

func (l AdjustmentLine) item() entity.TransactionItem {
	return entity.TransactionItem{ProductID: l.ProductID, Quantity: l.Delta}
}

func (l CustomerReturnLine) item() entity.TransactionItem {
	return entity.TransactionItem{ProductID: l.ProductID, Quantity: l.Quantity, UnitCost: l.UnitCost, UnitPrice: l.UnitPrice}
}

func (l SupplierReturnLine) item() entity.TransactionItem {
	return entity.TransactionItem{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: types.MoneyPtr(l.UnitPrice), UnitCost: l.UnitCost}
}

func (l ReceiptLine) validate(field string) error {
	if err := validateProduct(field, l.ProductID); err != nil {
		return err
	}
	if err := validateQuantity(field, l.Quantity); err != nil {
		return err
	}
	return validatePrice(field+".unitCost", &l.UnitCost)
}

func (l IssueLine) validate(field string) error {
	if err := validateProduct(field, l.ProductID); err != nil {
		return err
	}
	if err := validateQuantity(field, l.Quantity); err != nil {
		return err
	}
	return validatePrice(field+".unitPrice", &l.UnitPrice)
}

func (l AdjustmentLine) validate(field string) error {
	if err := validateProduct(field, l.ProductID); err != nil {
		return err
	}
	if l.Delta == 0 {
		return apperror.NewFieldValidation(field+".quantity", "adjustment must not be zero")
	}
	return nil
}

func (l CustomerReturnLine) validate(field string) error {
	if err := validateProduct(field, l.ProductID); err != nil {
		return err
	}
	if err := validateQuantity(field, l.Quantity); err != nil {
		return err
	}
	if err := validatePrice(field+".unitCost", l.UnitCost); err != nil {
		return err
	}
	return validatePrice(field+".unitPrice", l.UnitPrice)
}

func (l SupplierReturnLine) validate(field string) error {
	if err := validateProduct(field, l.ProductID); err != nil {
		return err
	}
	if err := validateQuantity(field, l.Quantity); err != nil {
		return err
	}
	if err := validatePrice(field+".unitPrice", &l.UnitPrice); err != nil {
		return err
	}
	return validatePrice(field+".unitCost", l.UnitCost)
}

func validateProduct(field string, productID id.ID) error {
	if id.IsNil(productID) {
		return apperror.NewFieldValidation(field+".productId", "is required")
	}
	return nil
}

func validateQuantity(field string, quantity int64) error {
	if quantity <= 0 {
		return apperror.NewFieldValidation(field+".quantity", "must be a positive integer")
	}
	return nil
}

func validatePrice(field string, price *types.Money) error {
	if price != nil && price.IsNegative() {
		return apperror.NewFieldValidation(field, "must not be negative")
	}
	return nil
}

// ItemInput is the untyped line shape transports decode into.
type ItemInput struct {
	ProductID id.ID
	Quantity  int64
	UnitCost  *types.Money
	UnitPrice *types.Money
}

// NewLine converts an untyped item into the line shape of transaction type t.
// index is the item's position, used to name the offending field. Price fields
// that the type does not carry are ignored.
func NewLine(t entity.TransactionType, index int, in ItemInput) (Line, error) {
	field := fmt.Sprintf("items[%d]", index)

	switch t {
	case entity.TransactionTypeIn:
		if in.UnitCost == nil {
			return nil, apperror.NewFieldValidation(field+".unitCost", "is required for IN transactions")
		}
		return ReceiptLine{ProductID: in.ProductID, Quantity: in.Quantity, UnitCost: *in.UnitCost}, nil
	case entity.TransactionTypeOut:
		if in.UnitPrice == nil {
			return nil, apperror.NewFieldValidation(field+".unitPrice", "is required for OUT transactions")
		}
		return IssueLine{ProductID: in.ProductID, Quantity: in.Quantity, UnitPrice: *in.UnitPrice}, nil
	case entity.TransactionTypeAdjust:
		return AdjustmentLine{ProductID: in.ProductID, Delta: in.Quantity}, nil
	case entity.TransactionTypeReturnIn:
		return CustomerReturnLine{ProductID: in.ProductID, Quantity: in.Quantity, UnitCost: in.UnitCost, UnitPrice: in.UnitPrice}, nil
	case entity.TransactionTypeReturnOut:
		if in.UnitPrice == nil {
			return nil, apperror.NewFieldValidation(field+".unitPrice", "is required for RETURN_OUT transactions")
		}
		return SupplierReturnLine{ProductID: in.ProductID, Quantity: in.Quantity, UnitPrice: *in.UnitPrice, UnitCost: in.UnitCost}, nil
	default:
		return nil, invalidType()
	}
}

// Request is a transaction to be committed.
type Request struct {
	Type            entity.TransactionType
	TransactionDate time.Time
	SupplierID      *id.ID
	Notes           string
	CreatedBy       string
	Lines           []Line
}

// NewRequest builds a request from untyped items.
func NewRequest(t entity.TransactionType, items []ItemInput) (Request, error) {
	if !t.IsValid() {
		return Request{}, invalidType()
	}
	req := Request{Type: t, Lines: make([]Line, 0, len(items))}
	for i, in := range items {
		line, err := NewLine(t, i, in)
		if err != nil {
			return Request{}, err
		}
		req.Lines = append(req.Lines, line)
	}
	return req, nil
}

// maxNotesLength bounds the free-text notes column.
const maxNotesLength = 2000

// Validate checks the request shape. It runs before any read.
func (r *Request) Validate() error {
	if !r.Type.IsValid() {
		return invalidType()
	}
	if len(r.Lines) == 0 {
		return apperror.NewFieldValidation("items", "at least one item is required")
	}
	if r.Type == entity.TransactionTypeIn && (r.SupplierID == nil || id.IsNil(*r.SupplierID)) {
		return apperror.NewFieldValidation("supplierId", "is required for IN transactions")
	}
	if len(r.Notes) > maxNotesLength {
		return apperror.NewFieldValidation("notes", fmt.Sprintf("must be at most %d characters", maxNotesLength))
	}

	for i, line := range r.Lines {
		field := fmt.Sprintf("items[%d]", i)
		if line == nil {
			return apperror.NewFieldValidation(field, "is required")
		}
		if line.Kind() != r.Type {
			return apperror.NewFieldValidation(field, fmt.Sprintf("%s item in a %s transaction", line.Kind(), r.Type))
		}
		if err := line.validate(field); err != nil {
			return err
		}
	}
	return nil
}

// ProductIDs returns the product of every line in line order.
func (r *Request) ProductIDs() []id.ID {
	ids := make([]id.ID, len(r.Lines))
	for i, line := range r.Lines {
		ids[i] = line.Product()
	}
	return ids
}

func invalidType() error {
	names := make([]string, len(entity.TransactionTypes))
	for i, t := range entity.TransactionTypes {
		names[i] = string(t)
	}
	return apperror.NewFieldValidation("type", "must be one of "+strings.Join(names, ", "))
}
