package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// TransactionHandler handles HTTP requests for stock transactions.
type TransactionHandler struct {
	*BaseHandler
	ledger *ledger.Service
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(base *BaseHandler, service *ledger.Service) *TransactionHandler {
	return &TransactionHandler{BaseHandler: base, ledger: service}
}

// Create handles POST /transactions.
func (h *TransactionHandler) Create(c *gin.Context) {
	var body dto.CreateTransactionRequest
	if !h.BindJSON(c, &body) {
		return
	}

	req, err := body.ToRequest()
	if err != nil {
		h.Error(c, err)
		return
	}

	txn, err := h.ledger.CreateTransaction(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, txn)
}

// List handles GET /transactions.
func (h *TransactionHandler) List(c *gin.Context) {
	var query dto.TransactionListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.ledger.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.JSON(c, dto.NewTransactionListResponse(result))
}

// Get handles GET /transactions/:id.
func (h *TransactionHandler) Get(c *gin.Context) {
	transactionID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	txn, err := h.ledger.GetTransaction(c.Request.Context(), transactionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, txn)
}
