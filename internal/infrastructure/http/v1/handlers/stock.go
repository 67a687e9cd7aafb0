package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// StockHandler handles HTTP requests for stock levels, cards and adjustments.
type StockHandler struct {
	*BaseHandler
	stock  *stock.Service
	ledger *ledger.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, stockService *stock.Service, ledgerService *ledger.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		stock:       stockService,
		ledger:      ledgerService,
	}
}

// Levels handles GET /stock/levels.
func (h *StockHandler) Levels(c *gin.Context) {
	scope := stock.LevelScope(c.DefaultQuery("scope", string(stock.ScopeMoved)))
	if scope != stock.ScopeMoved && scope != stock.ScopeAll {
		h.Error(c, apperror.NewFieldValidation("scope", "must be moved or all"))
		return
	}

	levels, err := h.stock.GetRealTimeStockLevels(c.Request.Context(), scope)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, levels)
}

// Summary handles GET /stock/summary.
func (h *StockHandler) Summary(c *gin.Context) {
	onlyLow, err := dto.ParseBool("onlyLowStock", c.Query("onlyLowStock"))
	if err != nil {
		h.Error(c, err)
		return
	}
	includeZero, err := dto.ParseBool("includeZeroStock", c.Query("includeZeroStock"))
	if err != nil {
		h.Error(c, err)
		return
	}

	levels, err := h.stock.GetStockSummary(c.Request.Context(), stock.SummaryOptions{
		OnlyLowStock:     onlyLow,
		IncludeZeroStock: includeZero,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, levels)
}

// Current handles GET /stock/products/:productId/current.
func (h *StockHandler) Current(c *gin.Context) {
	productID, ok := h.PathID(c, "productId")
	if !ok {
		return
	}

	current, err := h.stock.GetCurrentStock(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.CurrentStockResponse{ProductID: productID, CurrentStock: current})
}

// Card handles GET /stock/products/:productId/card.
func (h *StockHandler) Card(c *gin.Context) {
	productID, ok := h.PathID(c, "productId")
	if !ok {
		return
	}

	var query dto.StockCardQuery
	if !h.BindQuery(c, &query) {
		return
	}
	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	card, err := h.stock.GetProductStockCard(c.Request.Context(), productID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, card)
}

// Integrity handles GET /stock/products/:productId/integrity.
func (h *StockHandler) Integrity(c *gin.Context) {
	productID, ok := h.PathID(c, "productId")
	if !ok {
		return
	}

	report, err := h.stock.VerifyStockMovementIntegrity(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// Adjustment handles POST /stock/products/:productId/adjustment. It only
// calculates; nothing is written.
func (h *StockHandler) Adjustment(c *gin.Context) {
	productID, ok := h.PathID(c, "productId")
	if !ok {
		return
	}

	var body dto.AdjustmentRequest
	if !h.BindJSON(c, &body) {
		return
	}
	if body.ActualStock == nil {
		h.Error(c, apperror.NewFieldValidation("actualStock", "is required"))
		return
	}

	plan, err := h.stock.CalculateStockAdjustment(c.Request.Context(), productID, *body.ActualStock)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, plan)
}

// BatchAdjustments handles POST /stock/adjustments/batch. It only calculates.
func (h *StockHandler) BatchAdjustments(c *gin.Context) {
	var body dto.BatchAdjustmentRequest
	if !h.BindJSON(c, &body) {
		return
	}
	inputs, err := body.ToInputs()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.stock.CalculateBatchStockAdjustments(c.Request.Context(), inputs)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// CommitAdjustments handles POST /stock/adjustments/commit: the counted
// differences are written as one ADJUST transaction. When every count matches
// the recorded stock the response carries no transaction.
func (h *StockHandler) CommitAdjustments(c *gin.Context) {
	var body dto.CommitAdjustmentsRequest
	if !h.BindJSON(c, &body) {
		return
	}
	req, err := body.ToReconcile()
	if err != nil {
		h.Error(c, err)
		return
	}

	txn, plans, err := h.ledger.Reconcile(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.CommitAdjustmentsResponse{
		Transaction: txn,
		Adjustments: plans,
		Summary:     stock.Summarize(plans),
	}
	if txn == nil {
		h.OK(c, response)
		return
	}
	h.Created(c, response)
}
