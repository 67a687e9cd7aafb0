package stock

import (
	"math"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

// LevelScope selects which products a stock level listing covers.
type LevelScope string

const (
	// ScopeMoved lists products with at least one movement.
	ScopeMoved LevelScope = "moved"
	// ScopeAll lists every product known to the registry.
	ScopeAll LevelScope = "all"
)

// StockLevel is the current stock of one product.
type StockLevel struct {
	ProductID    id.ID  `json:"productId"`
	SKU          string `json:"sku,omitempty"`
	Name         string `json:"name,omitempty"`
	Unit         string `json:"unit,omitempty"`
	MinimumStock *int64 `json:"minimumStock,omitempty"`
	CurrentStock int64  `json:"currentStock"`
	IsLowStock   bool   `json:"isLowStock"`
}

// SummaryOptions filters GetStockSummary.
type SummaryOptions struct {
	OnlyLowStock     bool
	IncludeZeroStock bool
}

// AdjustmentType is the direction of a counted-versus-recorded difference.
type AdjustmentType string

const (
	AdjustmentIncrease AdjustmentType = "INCREASE"
	AdjustmentDecrease AdjustmentType = "DECREASE"
	AdjustmentNoChange AdjustmentType = "NO_CHANGE"
)

// AdjustmentPlan reconciles a recorded balance with a physical count.
type AdjustmentPlan struct {
	ProductID          id.ID          `json:"productId"`
	CurrentStock       int64          `json:"currentStock"`
	ActualStock        int64          `json:"actualStock"`
	Difference         int64          `json:"difference"`
	AdjustmentType     AdjustmentType `json:"adjustmentType"`
	AdjustmentQuantity int64          `json:"adjustmentQuantity"`
}

// PlanAdjustment computes the plan for one product from its current balance.
// It reports false when the difference or its magnitude does not fit in int64.
func PlanAdjustment(productID id.ID, current, actual int64) (AdjustmentPlan, bool) {
	diff, ok := entity.SubQuantity(actual, current)
	if !ok || diff == math.MinInt64 {
		return AdjustmentPlan{}, false
	}
	plan := AdjustmentPlan{
		ProductID:          productID,
		CurrentStock:       current,
		ActualStock:        actual,
		Difference:         diff,
		AdjustmentType:     AdjustmentNoChange,
		AdjustmentQuantity: diff,
	}
	switch {
	case diff > 0:
		plan.AdjustmentType = AdjustmentIncrease
	case diff < 0:
		plan.AdjustmentType = AdjustmentDecrease
		plan.AdjustmentQuantity = -diff
	}
	return plan, true
}

// AdjustmentOutOfRange is the error for a count too far from the recorded stock.
func AdjustmentOutOfRange(field string) *apperror.AppError {
	return apperror.NewFieldValidation(field, "differs from the recorded stock by more than a quantity can hold")
}

// AdjustmentInput is one counted product of a batch.
type AdjustmentInput struct {
	ProductID   id.ID `json:"productId"`
	ActualStock int64 `json:"actualStock"`
}

// AdjustmentSummary aggregates a batch of plans.
type AdjustmentSummary struct {
	TotalAdjustments      int   `json:"totalAdjustments"`
	Increases             int   `json:"increases"`
	Decreases             int   `json:"decreases"`
	TotalIncreaseQuantity int64 `json:"totalIncreaseQuantity"`
	TotalDecreaseQuantity int64 `json:"totalDecreaseQuantity"`
}

// BatchAdjustmentResult is the read-only outcome of a batch calculation.
type BatchAdjustmentResult struct {
	Adjustments []AdjustmentPlan  `json:"adjustments"`
	Summary     AdjustmentSummary `json:"summary"`
}

// Summarize aggregates plans. TotalAdjustments counts every plan, NO_CHANGE included.
func Summarize(plans []AdjustmentPlan) AdjustmentSummary {
	s := AdjustmentSummary{TotalAdjustments: len(plans)}
	for _, p := range plans {
		switch p.AdjustmentType {
		case AdjustmentIncrease:
			s.Increases++
			s.TotalIncreaseQuantity += p.AdjustmentQuantity
		case AdjustmentDecrease:
			s.Decreases++
			s.TotalDecreaseQuantity += p.AdjustmentQuantity
		}
	}
	return s
}

// IssueKind classifies a broken link in a movement chain.
type IssueKind string

const (
	IssueOpeningBalance IssueKind = "OPENING_BALANCE"
	IssueUnbalanced     IssueKind = "UNBALANCED_ENTRY"
	IssueBrokenChain    IssueKind = "BROKEN_CHAIN"
)

// IntegrityIssue describes one inconsistency found while replaying movements.
type IntegrityIssue struct {
	Kind       IssueKind `json:"kind"`
	MovementID id.ID     `json:"movementId"`
	Sequence   int64     `json:"sequence"`
	Expected   int64     `json:"expected"`
	Actual     int64     `json:"actual"`
	Message    string    `json:"message"`
}

// IntegrityReport is the verifier's result for one product.
type IntegrityReport struct {
	Valid          bool             `json:"valid"`
	ProductID      id.ID            `json:"productId"`
	TotalMovements int              `json:"totalMovements"`
	FinalBalance   int64            `json:"finalBalance"`
	Errors         []IntegrityIssue `json:"errors"`
}

// Err returns an INTEGRITY_VIOLATION error when the report is not valid.
func (r IntegrityReport) Err() error {
	if r.Valid {
		return nil
	}
	return apperror.NewIntegrityViolation(r.ProductID.String(), len(r.Errors))
}

// StockCardFilter is the caller-facing stock card query.
type StockCardFilter struct {
	StartDate       *time.Time
	EndDate         *time.Time
	TransactionType *entity.TransactionType
	Descending      bool
	Page            int
	Limit           int
}

// Stock card paging limits.
const (
	DefaultCardLimit = 20
	MaxCardLimit     = 100
)

// Pagination describes the page a stock card holds.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination computes page metadata.
func NewPagination(page, limit int, total int64) Pagination {
	pages := int(total / int64(limit))
	if total%int64(limit) > 0 {
		pages++
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// StockCard is one page of a product's movement history.
type StockCard struct {
	ProductID    id.ID       `json:"productId"`
	CurrentStock int64       `json:"currentStock"`
	Movements    []CardEntry `json:"movements"`
	Pagination   Pagination  `json:"pagination"`
}
