package app

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/product"
	"stockledger/internal/domain/catalogs/supplier"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/registers/stock"
)

// DemoActor is the creator recorded on seeded transactions.
const DemoActor = "seed"

// DemoResult lists what SeedDemo created.
type DemoResult struct {
	Products     []product.Product
	Suppliers    []supplier.Supplier
	Transactions []*entity.StockTransaction
}

func minStock(n int64) *int64 { return &n }

// SeedDemo saves a small catalog and posts a receipt, a sale, a customer
// return and a stock count through the orchestrator.
func SeedDemo(ctx context.Context, c *Container) (*DemoResult, error) {
	res := &DemoResult{
		Products: []product.Product{
			{ID: id.New(), SKU: "BOLT-M8", Name: "Hex bolt M8x40", Unit: "pcs", MinimumStock: minStock(200)},
			{ID: id.New(), SKU: "NUT-M8", Name: "Hex nut M8", Unit: "pcs", MinimumStock: minStock(200)},
			{ID: id.New(), SKU: "WASHER-M8", Name: "Flat washer M8", Unit: "pcs"},
			{ID: id.New(), SKU: "DRILL-6", Name: "Drill bit 6mm", Unit: "pcs", MinimumStock: minStock(10)},
		},
		Suppliers: []supplier.Supplier{
			{ID: id.New(), Name: "Northwind Fasteners"},
			{ID: id.New(), Name: "Acme Tools"},
		},
	}

	for _, p := range res.Products {
		if err := c.Catalog.SaveProduct(ctx, p); err != nil {
			return nil, fmt.Errorf("save product %s: %w", p.SKU, err)
		}
	}
	for _, s := range res.Suppliers {
		if err := c.Catalog.SaveSupplier(ctx, s); err != nil {
			return nil, fmt.Errorf("save supplier %s: %w", s.Name, err)
		}
	}

	bolt, nut, washer, drill := res.Products[0].ID, res.Products[1].ID, res.Products[2].ID, res.Products[3].ID
	now := time.Now().UTC()

	posts := []struct {
		txType   entity.TransactionType
		supplier *id.ID
		notes    string
		items    []ledger.ItemInput
	}{
		{
			txType:   entity.TransactionTypeIn,
			supplier: &res.Suppliers[0].ID,
			notes:    "Initial delivery",
			items: []ledger.ItemInput{
				{ProductID: bolt, Quantity: 1000, UnitCost: types.MoneyPtr(types.MustMoney("0.12"))},
				{ProductID: nut, Quantity: 1000, UnitCost: types.MoneyPtr(types.MustMoney("0.05"))},
				{ProductID: washer, Quantity: 500, UnitCost: types.MoneyPtr(types.MustMoney("0.02"))},
			},
		},
		{
			txType:   entity.TransactionTypeIn,
			supplier: &res.Suppliers[1].ID,
			notes:    "Tooling order",
			items: []ledger.ItemInput{
				{ProductID: drill, Quantity: 25, UnitCost: types.MoneyPtr(types.MustMoney("3.40"))},
			},
		},
		{
			txType: entity.TransactionTypeOut,
			notes:  "Workshop order",
			items: []ledger.ItemInput{
				{ProductID: bolt, Quantity: 850, UnitPrice: types.MoneyPtr(types.MustMoney("0.25"))},
				{ProductID: nut, Quantity: 850, UnitPrice: types.MoneyPtr(types.MustMoney("0.10"))},
				{ProductID: drill, Quantity: 18, UnitPrice: types.MoneyPtr(types.MustMoney("6.90"))},
			},
		},
		{
			txType: entity.TransactionTypeReturnIn,
			notes:  "Unused bolts returned",
			items: []ledger.ItemInput{
				{ProductID: bolt, Quantity: 20, UnitPrice: types.MoneyPtr(types.MustMoney("0.25"))},
			},
		},
	}

	for _, p := range posts {
		req, err := ledger.NewRequest(p.txType, p.items)
		if err != nil {
			return nil, fmt.Errorf("build %s request: %w", p.txType, err)
		}
		req.SupplierID = p.supplier
		req.Notes = p.notes
		req.TransactionDate = now
		req.CreatedBy = DemoActor

		txn, err := c.Ledger.CreateTransaction(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("post %s: %w", p.txType, err)
		}
		res.Transactions = append(res.Transactions, txn)
	}

	// the shelf count finds two washers missing
	txn, _, err := c.Ledger.Reconcile(ctx, ledger.ReconcileRequest{
		Counts:          []stock.AdjustmentInput{{ProductID: washer, ActualStock: 498}},
		TransactionDate: now,
		Notes:           "Cycle count",
		CreatedBy:       DemoActor,
	})
	if err != nil {
		return nil, fmt.Errorf("post stock count: %w", err)
	}
	if txn != nil {
		res.Transactions = append(res.Transactions, txn)
	}

	return res, nil
}
