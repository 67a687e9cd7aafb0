// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/internal/infrastructure/http/v1/middleware"
	"stockledger/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation; nil disables authentication.
	JWTValidator middleware.JWTValidator

	// AuthRequired rejects requests without a valid token.
	AuthRequired bool

	// Idempotency enables X-Idempotency-Key replay when set.
	Idempotency middleware.IdempotencyStore

	Ledger *ledger.Service
	Stock  *stock.Service

	// DB is pinged by the readiness probe; nil for the memory driver.
	DB      handlers.Pinger
	Driver  string
	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	router := gin.New()

	// Trace and Logger wrap Recovery so a panic is still logged with its request id.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Driver, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	api := router.Group("/api/v1")
	switch {
	case cfg.JWTValidator != nil && cfg.AuthRequired:
		api.Use(middleware.Auth(cfg.JWTValidator))
	case cfg.JWTValidator != nil:
		api.Use(middleware.OptionalAuth(cfg.JWTValidator))
	}
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	registerTransactionRoutes(api, handlers.NewTransactionHandler(base, cfg.Ledger))
	registerStockRoutes(api, handlers.NewStockHandler(base, cfg.Stock, cfg.Ledger))

	return router
}

func registerTransactionRoutes(rg *gin.RouterGroup, h *handlers.TransactionHandler) {
	transactions := rg.Group("/transactions")
	transactions.POST("", h.Create)
	transactions.GET("", h.List)
	transactions.GET("/:id", h.Get)
}

func registerStockRoutes(rg *gin.RouterGroup, h *handlers.StockHandler) {
	stockGroup := rg.Group("/stock")
	stockGroup.GET("/levels", h.Levels)
	stockGroup.GET("/summary", h.Summary)

	products := stockGroup.Group("/products/:productId")
	products.GET("/current", h.Current)
	products.GET("/card", h.Card)
	products.GET("/integrity", h.Integrity)
	products.POST("/adjustment", h.Adjustment)

	adjustments := stockGroup.Group("/adjustments")
	adjustments.POST("/batch", h.BatchAdjustments)
	adjustments.POST("/commit", h.CommitAdjustments)
}
