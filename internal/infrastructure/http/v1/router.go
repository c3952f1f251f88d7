// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"backoffice/internal/core/idempotency"
	"backoffice/internal/domain/order"
	"backoffice/internal/domain/reports"
	"backoffice/internal/domain/stock"
	"backoffice/internal/infrastructure/http/v1/handlers"
	"backoffice/internal/infrastructure/http/v1/middleware"
	"backoffice/internal/infrastructure/storage/postgres"
	"backoffice/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Orders  *order.Service
	Stock   *stock.Service
	Reports *reports.Service

	// Health is pinged by the readiness probe.
	Health handlers.Pinger
	// Backend names the storage in health output.
	Backend string
	Version string
	// Pool adds connection stats to /health/info. Nil for the memory backend.
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator validates bearer tokens. Nil disables authentication and
	// every request acts as the system.
	JWTValidator middleware.JWTValidator

	// Idempotency enables X-Idempotency-Key replay when set.
	Idempotency idempotency.Store

	// Debug switches gin to debug mode.
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Health, cfg.Backend, cfg.Version, cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	if cfg.JWTValidator != nil {
		v1.Use(middleware.Auth(cfg.JWTValidator))
	} else {
		v1.Use(middleware.Anonymous())
	}
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	baseHandler := handlers.NewBaseHandler()

	retail := handlers.NewOrderHandler(baseHandler, cfg.Orders, order.KindRetail)
	RegisterOrderRoutes(v1.Group("/orders"), retail)
	v1.POST("/orders/totals", middleware.RequirePermission(PermOrderRead), retail.Totals)

	agent := handlers.NewOrderHandler(baseHandler, cfg.Orders, order.KindAgent)
	RegisterOrderRoutes(v1.Group("/agent-orders"), agent)

	registerStockRoutes(v1, handlers.NewStockHandler(baseHandler, cfg.Stock))
	registerReportRoutes(v1, handlers.NewReportsHandler(baseHandler, cfg.Reports))

	return router
}

func registerStockRoutes(rg *gin.RouterGroup, h *handlers.StockHandler) {
	group := rg.Group("/stock")
	group.GET("/levels", middleware.RequirePermission(PermStockRead), h.GetLevels)
	group.GET("/movements", middleware.RequirePermission(PermStockRead), h.GetMovements)
	group.POST("/adjustments", middleware.RequirePermission(PermStockAdjust), h.Adjust)
}

func registerReportRoutes(rg *gin.RouterGroup, h *handlers.ReportsHandler) {
	group := rg.Group("/reports")
	group.GET("/monthly-performance", middleware.RequirePermission(PermReportRead), h.GetMonthlyPerformance)
	group.GET("/stock-valuation", middleware.RequirePermission(PermReportRead), h.GetStockValuation)
}
