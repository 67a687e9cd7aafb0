package stock

import (
	"context"
	"fmt"
	"sort"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalogs/product"
	"stockledger/pkg/logger"
)

// Service is the stock calculation engine: the read and derive operations over
// the movement log. It never writes.
type Service struct {
	repo     Repository
	products product.Registry
}

// NewService creates a new stock calculation engine.
func NewService(repo Repository, products product.Registry) *Service {
	return &Service{
		repo:     repo,
		products: products,
	}
}

// GetCurrentStock returns the quantityAfter of the product's latest movement,
// or 0 when it has none.
func (s *Service) GetCurrentStock(ctx context.Context, productID id.ID) (int64, error) {
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return 0, s.fail(ctx, "get product", err)
	}
	return s.currentStock(ctx, productID)
}

func (s *Service) currentStock(ctx context.Context, productID id.ID) (int64, error) {
	balances, err := s.repo.GetBalances(ctx, []id.ID{productID})
	if err != nil {
		return 0, s.fail(ctx, "get balance", err)
	}
	return balances[productID].Quantity, nil
}

// GetRealTimeStockLevels lists current stock per product.
func (s *Service) GetRealTimeStockLevels(ctx context.Context, scope LevelScope) ([]StockLevel, error) {
	balances, err := s.repo.ListBalances(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list balances", err)
	}

	if scope == ScopeAll {
		return s.levelsForAllProducts(ctx, balances)
	}

	ids := make([]id.ID, len(balances))
	for i, b := range balances {
		ids[i] = b.ProductID
	}
	known, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, s.fail(ctx, "get products", err)
	}

	levels := make([]StockLevel, 0, len(balances))
	for _, b := range balances {
		p, ok := known[b.ProductID]
		if !ok {
			p = product.Product{ID: b.ProductID}
		}
		levels = append(levels, newLevel(p, b.Quantity))
	}
	sortLevels(levels)
	return levels, nil
}

func (s *Service) levelsForAllProducts(ctx context.Context, balances []entity.StockBalance) ([]StockLevel, error) {
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list products", err)
	}

	current := make(map[id.ID]int64, len(balances))
	for _, b := range balances {
		current[b.ProductID] = b.Quantity
	}

	levels := make([]StockLevel, 0, len(products))
	for _, p := range products {
		levels = append(levels, newLevel(p, current[p.ID]))
	}
	sortLevels(levels)
	return levels, nil
}

// GetStockSummary is a filtered view of the stock levels of all known products.
func (s *Service) GetStockSummary(ctx context.Context, opts SummaryOptions) ([]StockLevel, error) {
	levels, err := s.GetRealTimeStockLevels(ctx, ScopeAll)
	if err != nil {
		return nil, err
	}

	out := levels[:0]
	for _, l := range levels {
		if opts.OnlyLowStock && !l.IsLowStock {
			continue
		}
		if !opts.IncludeZeroStock && l.CurrentStock == 0 {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// CalculateStockAdjustment compares a counted quantity with the recorded balance.
// Nothing is written; submit the difference as an ADJUST transaction to apply it.
func (s *Service) CalculateStockAdjustment(ctx context.Context, productID id.ID, actualStock int64) (AdjustmentPlan, error) {
	current, err := s.GetCurrentStock(ctx, productID)
	if err != nil {
		return AdjustmentPlan{}, err
	}
	plan, ok := PlanAdjustment(productID, current, actualStock)
	if !ok {
		return AdjustmentPlan{}, AdjustmentOutOfRange("actualStock")
	}
	return plan, nil
}

// CalculateBatchStockAdjustments plans every entry and aggregates the result.
// An unknown product fails the whole batch.
func (s *Service) CalculateBatchStockAdjustments(ctx context.Context, inputs []AdjustmentInput) (BatchAdjustmentResult, error) {
	if len(inputs) == 0 {
		return BatchAdjustmentResult{}, apperror.NewFieldValidation("adjustments", "at least one entry is required")
	}

	ids := make([]id.ID, len(inputs))
	for i, in := range inputs {
		if id.IsNil(in.ProductID) {
			return BatchAdjustmentResult{}, apperror.NewFieldValidation(fmt.Sprintf("adjustments[%d].productId", i), "is required")
		}
		ids[i] = in.ProductID
	}

	known, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return BatchAdjustmentResult{}, s.fail(ctx, "get products", err)
	}
	for _, pid := range ids {
		if _, ok := known[pid]; !ok {
			return BatchAdjustmentResult{}, apperror.NewProductNotFound(pid.String())
		}
	}

	balances, err := s.repo.GetBalances(ctx, id.SortedUnique(ids))
	if err != nil {
		return BatchAdjustmentResult{}, s.fail(ctx, "get balances", err)
	}

	plans := make([]AdjustmentPlan, len(inputs))
	for i, in := range inputs {
		plan, ok := PlanAdjustment(in.ProductID, balances[in.ProductID].Quantity, in.ActualStock)
		if !ok {
			return BatchAdjustmentResult{}, AdjustmentOutOfRange(fmt.Sprintf("adjustments[%d].actualStock", i))
		}
		plans[i] = plan
	}

	return BatchAdjustmentResult{
		Adjustments: plans,
		Summary:     Summarize(plans),
	}, nil
}

// VerifyStockMovementIntegrity replays the product's history oldest first and
// reports every entry that does not continue the chain.
func (s *Service) VerifyStockMovementIntegrity(ctx context.Context, productID id.ID) (IntegrityReport, error) {
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return IntegrityReport{}, s.fail(ctx, "get product", err)
	}

	movements, err := s.repo.ProductMovements(ctx, productID)
	if err != nil {
		return IntegrityReport{}, s.fail(ctx, "load movements", err)
	}

	report := Verify(productID, movements)
	if !report.Valid {
		logger.Warn(ctx, "stock movement chain is inconsistent",
			"product_id", productID,
			"issues", len(report.Errors),
		)
	}
	return report, nil
}

// Verify checks a product's history, oldest first.
func Verify(productID id.ID, movements []entity.StockMovement) IntegrityReport {
	report := IntegrityReport{
		ProductID:      productID,
		TotalMovements: len(movements),
		Errors:         []IntegrityIssue{},
	}

	var prevAfter int64
	for i, m := range movements {
		if i == 0 && m.QuantityBefore != 0 {
			report.Errors = append(report.Errors, IntegrityIssue{
				Kind:       IssueOpeningBalance,
				MovementID: m.ID,
				Sequence:   m.Sequence,
				Expected:   0,
				Actual:     m.QuantityBefore,
				Message:    fmt.Sprintf("first movement starts at %d instead of 0", m.QuantityBefore),
			})
		}
		if i > 0 && m.QuantityBefore != prevAfter {
			report.Errors = append(report.Errors, IntegrityIssue{
				Kind:       IssueBrokenChain,
				MovementID: m.ID,
				Sequence:   m.Sequence,
				Expected:   prevAfter,
				Actual:     m.QuantityBefore,
				Message: fmt.Sprintf("movement %d starts at %d but the previous movement ended at %d",
					m.Sequence, m.QuantityBefore, prevAfter),
			})
		}
		if !m.IsBalanced() {
			issue := IntegrityIssue{
				Kind:       IssueUnbalanced,
				MovementID: m.ID,
				Sequence:   m.Sequence,
				Actual:     m.QuantityAfter,
			}
			if expected, ok := entity.AddQuantity(m.QuantityBefore, m.QuantityChange); ok {
				issue.Expected = expected
				issue.Message = fmt.Sprintf("movement %d: %d %+d should give %d, recorded %d",
					m.Sequence, m.QuantityBefore, m.QuantityChange, expected, m.QuantityAfter)
			} else {
				issue.Message = fmt.Sprintf("movement %d: %d %+d overflows the quantity range",
					m.Sequence, m.QuantityBefore, m.QuantityChange)
			}
			report.Errors = append(report.Errors, issue)
		}
		prevAfter = m.QuantityAfter
	}

	report.FinalBalance = prevAfter
	report.Valid = len(report.Errors) == 0
	return report
}

// GetProductStockCard returns one page of the product's movements.
func (s *Service) GetProductStockCard(ctx context.Context, productID id.ID, filter StockCardFilter) (StockCard, error) {
	if err := normalizeCardFilter(&filter); err != nil {
		return StockCard{}, err
	}

	current, err := s.GetCurrentStock(ctx, productID)
	if err != nil {
		return StockCard{}, err
	}

	entries, total, err := s.repo.ListMovements(ctx, productID, MovementFilter{
		FromDate:     filter.StartDate,
		ToDate:       filter.EndDate,
		MovementType: filter.TransactionType,
		Descending:   filter.Descending,
		Limit:        filter.Limit,
		Offset:       (filter.Page - 1) * filter.Limit,
	})
	if err != nil {
		return StockCard{}, s.fail(ctx, "list movements", err)
	}
	if entries == nil {
		entries = []CardEntry{}
	}

	return StockCard{
		ProductID:    productID,
		CurrentStock: current,
		Movements:    entries,
		Pagination:   NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

func normalizeCardFilter(f *StockCardFilter) error {
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = DefaultCardLimit
	}
	if f.Page < 1 {
		return apperror.NewFieldValidation("page", "must be at least 1")
	}
	if f.Limit < 1 || f.Limit > MaxCardLimit {
		return apperror.NewFieldValidation("limit", fmt.Sprintf("must be between 1 and %d", MaxCardLimit))
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return apperror.NewFieldValidation("endDate", "must not be before startDate")
	}
	if f.TransactionType != nil && !f.TransactionType.IsValid() {
		return apperror.NewFieldValidation("transactionType", "unknown transaction type")
	}
	return nil
}

// fail passes AppErrors through and hides anything else behind a generic error.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	if apperror.IsAppError(err) {
		return err
	}
	logger.Error(ctx, "stock engine storage failure", "op", op, "error", err)
	return apperror.NewInternal(fmt.Errorf("%s: %w", op, err))
}

func newLevel(p product.Product, current int64) StockLevel {
	return StockLevel{
		ProductID:    p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		Unit:         p.Unit,
		MinimumStock: p.MinimumStock,
		CurrentStock: current,
		IsLowStock:   p.IsLowStock(current),
	}
}

func sortLevels(levels []StockLevel) {
	sort.Slice(levels, func(i, j int) bool {
		if levels[i].SKU != levels[j].SKU {
			return levels[i].SKU < levels[j].SKU
		}
		return id.Compare(levels[i].ProductID, levels[j].ProductID) < 0
	})
}
