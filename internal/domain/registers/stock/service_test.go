package stock_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalogs/product"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/storage/memory"
)

type engineFixture struct {
	store    *memory.Store
	engine   *stock.Service
	widget   id.ID
	gadget   id.ID
	sprocket id.ID
	posted   int
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	store := memory.New()
	f := &engineFixture{store: store, widget: id.New(), gadget: id.New(), sprocket: id.New()}

	five := int64(5)
	store.AddProduct(product.Product{ID: f.widget, SKU: "A-100", Name: "Widget", Unit: "pcs", MinimumStock: &five})
	store.AddProduct(product.Product{ID: f.gadget, SKU: "B-200", Name: "Gadget", Unit: "pcs"})
	store.AddProduct(product.Product{ID: f.sprocket, SKU: "C-300", Name: "Sprocket", Unit: "pcs", MinimumStock: &five})

	f.engine = stock.NewService(store, store)
	return f
}

// post commits one single-line transaction straight through the store.
func (f *engineFixture) post(t *testing.T, typ entity.TransactionType, productID id.ID, change int64, at time.Time) {
	t.Helper()
	f.posted++
	ref := fmt.Sprintf("%s-20261019-%05d", typ.ReferencePrefix(), f.posted)

	err := f.store.RunInTransaction(context.Background(), func(ctx context.Context) error {
		balances, err := f.store.GetBalances(ctx, []id.ID{productID})
		if err != nil {
			return err
		}
		txn := &entity.StockTransaction{
			ID:              id.New(),
			ReferenceNumber: ref,
			Type:            typ,
			TransactionDate: at,
			CreatedBy:       "test",
			CreatedAt:       at,
		}
		item := entity.TransactionItem{ID: id.New(), TransactionID: txn.ID, LineNo: 1, ProductID: productID, Quantity: change}
		txn.Items = []entity.TransactionItem{item}

		mv, _ := balances[productID].Apply(change, at)
		mv.ProductID = productID
		mv.TransactionID = txn.ID
		mv.TransactionItemID = item.ID
		mv.MovementType = typ

		if err := f.store.Create(ctx, txn); err != nil {
			return err
		}
		return f.store.AppendMovements(ctx, []entity.StockMovement{mv})
	})
	require.NoError(t, err)
}

var day = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

// rewrittenHistory serves a product's history after passing it through rewrite,
// the way a corrupted table would.
type rewrittenHistory struct {
	stock.Repository
	rewrite func(ms []entity.StockMovement)
}

func (r rewrittenHistory) ProductMovements(ctx context.Context, productID id.ID) ([]entity.StockMovement, error) {
	ms, err := r.Repository.ProductMovements(ctx, productID)
	if err != nil {
		return nil, err
	}
	r.rewrite(ms)
	return ms, nil
}

func TestGetCurrentStock(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	qty, err := f.engine.GetCurrentStock(ctx, f.widget)
	require.NoError(t, err)
	assert.Equal(t, int64(0), qty)

	f.post(t, entity.TransactionTypeIn, f.widget, 20, day)
	f.post(t, entity.TransactionTypeOut, f.widget, -8, day.Add(time.Hour))

	qty, err = f.engine.GetCurrentStock(ctx, f.widget)
	require.NoError(t, err)
	assert.Equal(t, int64(12), qty)

	_, err = f.engine.GetCurrentStock(ctx, id.New())
	assert.True(t, apperror.HasCode(err, apperror.CodeProductNotFound))
}

func TestGetRealTimeStockLevels(t *testing.T) {
	f := newEngineFixture(t)
	f.post(t, entity.TransactionTypeIn, f.gadget, 7, day)
	f.post(t, entity.TransactionTypeIn, f.widget, 3, day)

	moved, err := f.engine.GetRealTimeStockLevels(context.Background(), stock.ScopeMoved)
	require.NoError(t, err)
	require.Len(t, moved, 2)
	assert.Equal(t, "A-100", moved[0].SKU)
	assert.Equal(t, int64(3), moved[0].CurrentStock)
	assert.True(t, moved[0].IsLowStock)
	assert.Equal(t, "B-200", moved[1].SKU)
	assert.False(t, moved[1].IsLowStock)

	all, err := f.engine.GetRealTimeStockLevels(context.Background(), stock.ScopeAll)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(0), all[2].CurrentStock)
}

func TestGetStockSummary(t *testing.T) {
	f := newEngineFixture(t)
	f.post(t, entity.TransactionTypeIn, f.widget, 3, day)
	f.post(t, entity.TransactionTypeIn, f.gadget, 40, day)

	tests := []struct {
		name string
		opts stock.SummaryOptions
		skus []string
	}{
		{"default hides zero stock", stock.SummaryOptions{}, []string{"A-100", "B-200"}},
		{"include zero stock", stock.SummaryOptions{IncludeZeroStock: true}, []string{"A-100", "B-200", "C-300"}},
		{"only low stock", stock.SummaryOptions{OnlyLowStock: true}, []string{"A-100"}},
		{"low stock including zero", stock.SummaryOptions{OnlyLowStock: true, IncludeZeroStock: true}, []string{"A-100", "C-300"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			levels, err := f.engine.GetStockSummary(context.Background(), tt.opts)
			require.NoError(t, err)

			skus := make([]string, len(levels))
			for i, l := range levels {
				skus[i] = l.SKU
			}
			assert.Equal(t, tt.skus, skus)
		})
	}
}

func TestCalculateStockAdjustment(t *testing.T) {
	f := newEngineFixture(t)
	f.post(t, entity.TransactionTypeIn, f.widget, 15, day)

	plan, err := f.engine.CalculateStockAdjustment(context.Background(), f.widget, 12)
	require.NoError(t, err)

	assert.Equal(t, int64(15), plan.CurrentStock)
	assert.Equal(t, int64(-3), plan.Difference)
	assert.Equal(t, stock.AdjustmentDecrease, plan.AdjustmentType)
	assert.Equal(t, int64(3), plan.AdjustmentQuantity)

	qty, err := f.engine.GetCurrentStock(context.Background(), f.widget)
	require.NoError(t, err)
	assert.Equal(t, int64(15), qty, "calculation must not write")
}

func TestCalculateBatchStockAdjustments(t *testing.T) {
	f := newEngineFixture(t)
	f.post(t, entity.TransactionTypeIn, f.widget, 15, day)
	f.post(t, entity.TransactionTypeIn, f.gadget, 10, day)

	result, err := f.engine.CalculateBatchStockAdjustments(context.Background(), []stock.AdjustmentInput{
		{ProductID: f.widget, ActualStock: 18},
		{ProductID: f.gadget, ActualStock: 7},
		{ProductID: f.sprocket, ActualStock: 0},
	})
	require.NoError(t, err)

	require.Len(t, result.Adjustments, 3)
	assert.Equal(t, stock.AdjustmentIncrease, result.Adjustments[0].AdjustmentType)
	assert.Equal(t, stock.AdjustmentDecrease, result.Adjustments[1].AdjustmentType)
	assert.Equal(t, stock.AdjustmentNoChange, result.Adjustments[2].AdjustmentType)
	assert.Equal(t, stock.AdjustmentSummary{
		TotalAdjustments:      3,
		Increases:             1,
		Decreases:             1,
		TotalIncreaseQuantity: 3,
		TotalDecreaseQuantity: 3,
	}, result.Summary)
}

func TestCalculateBatchStockAdjustments_Errors(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.CalculateBatchStockAdjustments(context.Background(), nil)
	assert.True(t, apperror.IsValidation(err))

	_, err = f.engine.CalculateBatchStockAdjustments(context.Background(), []stock.AdjustmentInput{
		{ProductID: f.widget, ActualStock: 1},
		{ProductID: id.New(), ActualStock: 1},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeProductNotFound))
}

func TestVerifyStockMovementIntegrity(t *testing.T) {
	f := newEngineFixture(t)
	f.post(t, entity.TransactionTypeIn, f.widget, 10, day)
	f.post(t, entity.TransactionTypeOut, f.widget, -3, day.Add(time.Minute))

	report, err := f.engine.VerifyStockMovementIntegrity(context.Background(), f.widget)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 2, report.TotalMovements)
	assert.Equal(t, int64(7), report.FinalBalance)
	assert.Empty(t, report.Errors)
	assert.NoError(t, report.Err())

	corrupted := stock.NewService(rewrittenHistory{
		Repository: f.store,
		rewrite:    func(ms []entity.StockMovement) { ms[1].QuantityBefore = 9 },
	}, f.store)

	report, err = corrupted.VerifyStockMovementIntegrity(context.Background(), f.widget)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, stock.IssueBrokenChain, report.Errors[0].Kind)
	assert.Equal(t, int64(10), report.Errors[0].Expected)
	assert.Equal(t, int64(9), report.Errors[0].Actual)
	assert.Equal(t, stock.IssueUnbalanced, report.Errors[1].Kind)
	assert.True(t, apperror.HasCode(report.Err(), apperror.CodeIntegrityViolation))
}

func TestVerify_OpeningBalance(t *testing.T) {
	pid := id.New()
	report := stock.Verify(pid, []entity.StockMovement{
		{ID: id.New(), ProductID: pid, Sequence: 1, QuantityBefore: 4, QuantityChange: 1, QuantityAfter: 5},
	})

	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, stock.IssueOpeningBalance, report.Errors[0].Kind)

	empty := stock.Verify(pid, nil)
	assert.True(t, empty.Valid)
	assert.Equal(t, int64(0), empty.FinalBalance)
}

func TestVerify_OverflowingEntryIsUnbalanced(t *testing.T) {
	pid := id.New()
	report := stock.Verify(pid, []entity.StockMovement{
		{ID: id.New(), ProductID: pid, Sequence: 1, QuantityBefore: 0, QuantityChange: math.MaxInt64, QuantityAfter: math.MaxInt64},
		{ID: id.New(), ProductID: pid, Sequence: 2, QuantityBefore: math.MaxInt64, QuantityChange: 1, QuantityAfter: math.MinInt64},
	})

	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, stock.IssueUnbalanced, report.Errors[0].Kind)
	assert.Equal(t, int64(2), report.Errors[0].Sequence)
	assert.Contains(t, report.Errors[0].Message, "overflows")
}

func TestCalculateStockAdjustment_OutOfRange(t *testing.T) {
	f := newEngineFixture(t)
	f.post(t, entity.TransactionTypeAdjust, f.widget, -10, day)

	_, err := f.engine.CalculateStockAdjustment(context.Background(), f.widget, math.MaxInt64)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	_, err = f.engine.CalculateBatchStockAdjustments(context.Background(), []stock.AdjustmentInput{
		{ProductID: f.gadget, ActualStock: 1},
		{ProductID: f.widget, ActualStock: math.MaxInt64},
	})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "adjustments[1].actualStock", appErr.Details["field"])
}

func TestPlanAdjustment_Bounds(t *testing.T) {
	pid := id.New()

	plan, ok := stock.PlanAdjustment(pid, math.MinInt64+1, 0)
	require.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64), plan.AdjustmentQuantity)
	assert.Equal(t, stock.AdjustmentIncrease, plan.AdjustmentType)

	_, ok = stock.PlanAdjustment(pid, 0, math.MinInt64)
	assert.False(t, ok, "magnitude of MinInt64 does not fit")

	_, ok = stock.PlanAdjustment(pid, -1, math.MaxInt64)
	assert.False(t, ok)
}

func TestGetProductStockCard(t *testing.T) {
	f := newEngineFixture(t)
	for i := 0; i < 5; i++ {
		f.post(t, entity.TransactionTypeIn, f.widget, 2, day.Add(time.Duration(i)*time.Hour))
	}
	f.post(t, entity.TransactionTypeOut, f.widget, -1, day.AddDate(0, 0, 1))

	card, err := f.engine.GetProductStockCard(context.Background(), f.widget, stock.StockCardFilter{Page: 2, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(9), card.CurrentStock)
	assert.Equal(t, stock.Pagination{Page: 2, Limit: 2, Total: 6, TotalPages: 3}, card.Pagination)
	require.Len(t, card.Movements, 2)
	assert.Equal(t, int64(3), card.Movements[0].Sequence)
	assert.Equal(t, "IN-20261019-00003", card.Movements[0].ReferenceNumber)

	outType := entity.TransactionTypeOut
	card, err = f.engine.GetProductStockCard(context.Background(), f.widget, stock.StockCardFilter{TransactionType: &outType})
	require.NoError(t, err)
	require.Len(t, card.Movements, 1)
	assert.Equal(t, int64(-1), card.Movements[0].QuantityChange)
	assert.Equal(t, stock.DefaultCardLimit, card.Pagination.Limit)

	from, to := day.Add(time.Hour), day.Add(3*time.Hour)
	card, err = f.engine.GetProductStockCard(context.Background(), f.widget, stock.StockCardFilter{StartDate: &from, EndDate: &to, Descending: true})
	require.NoError(t, err)
	require.Len(t, card.Movements, 3)
	assert.Equal(t, int64(4), card.Movements[0].Sequence)
	assert.Equal(t, int64(2), card.Movements[2].Sequence)
}

func TestGetProductStockCard_InvalidFilter(t *testing.T) {
	f := newEngineFixture(t)
	later := day.Add(time.Hour)
	bogus := entity.TransactionType("LOAN")

	tests := []struct {
		name   string
		filter stock.StockCardFilter
		field  string
	}{
		{"limit above max", stock.StockCardFilter{Limit: stock.MaxCardLimit + 1}, "limit"},
		{"negative page", stock.StockCardFilter{Page: -1}, "page"},
		{"reversed range", stock.StockCardFilter{StartDate: &later, EndDate: &day}, "endDate"},
		{"unknown type", stock.StockCardFilter{TransactionType: &bogus}, "transactionType"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.GetProductStockCard(context.Background(), f.widget, tt.filter)

			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}
