package ledger

import (
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/domain/registers/stock"
)

// AdjustmentRequest builds the ADJUST transaction that applies plans.
// Plans without a difference are skipped; if none is left the result is a
// validation error.
func AdjustmentRequest(plans []stock.AdjustmentPlan, date time.Time, notes, createdBy string) (Request, error) {
	req := Request{
		Type:            entity.TransactionTypeAdjust,
		TransactionDate: date,
		Notes:           notes,
		CreatedBy:       createdBy,
	}
	for _, p := range plans {
		if p.Difference == 0 {
			continue
		}
		req.Lines = append(req.Lines, AdjustmentLine{ProductID: p.ProductID, Delta: p.Difference})
	}
	if len(req.Lines) == 0 {
		return Request{}, apperror.NewFieldValidation("adjustments", "no difference to apply")
	}
	return req, nil
}
