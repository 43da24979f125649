// Package v1 assembles the HTTP API.
package v1

import (
	"github.com/gin-gonic/gin"

	"ledgercore/internal/app"
	"ledgercore/internal/infrastructure/http/v1/handlers"
	"ledgercore/internal/infrastructure/http/v1/middleware"
	"ledgercore/pkg/logger"
)

// Version is reported by /health/info.
var Version = "dev"

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	App    *app.App
	Logger *logger.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if !cfg.App.Config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.Recovery(),
		middleware.Trace(),
		middleware.Actor(),
		middleware.Logger(cfg.Logger),
		middleware.Metrics(cfg.App.Metrics),
	)
	if cfg.App.Config.Idempotency.Enabled && cfg.App.Storage.Idempotency != nil {
		router.Use(middleware.Idempotency(cfg.App.Storage.Idempotency))
	}
	router.Use(middleware.ErrorHandler())

	router.GET("/metrics", gin.WrapH(cfg.App.Metrics.Handler()))

	health := handlers.NewHealthHandler(cfg.App.Storage, cfg.App.Storage.Backend, Version)
	hg := router.Group("/health")
	{
		hg.GET("/live", health.Live)
		hg.GET("/ready", health.Ready)
		hg.GET("/info", health.Info)
	}

	api := router.Group("/api/v1")
	registerCatalogRoutes(api, cfg.App)
	registerLedgerRoutes(api, cfg.App)
	registerSettlementRoutes(api, cfg.App)
	registerInventoryRoutes(api, cfg.App)
	registerProductionRoutes(api, cfg.App)

	m := handlers.NewMRPHandler(cfg.App.MRP)
	api.POST("/mrp/run", m.Run)

	return router
}

func registerCatalogRoutes(api *gin.RouterGroup, a *app.App) {
	items := handlers.NewItemHandler(a.Items)
	inv := handlers.NewInventoryHandler(a.Inventory, a.Stock)
	ig := api.Group("/items")
	{
		ig.POST("", items.Create)
		ig.GET("", items.List)
		ig.GET("/by-code/:code", items.GetByCode)
		ig.GET("/:id", items.Get)
		ig.PUT("/:id", items.Update)
		ig.GET("/:id/movements", inv.MovementHistory)
	}

	boms := handlers.NewBOMHandler(a.BOMs)
	bg := api.Group("/boms")
	{
		bg.POST("", boms.Create)
		bg.GET("", boms.List)
		bg.GET("/by-code/:code", boms.GetByCode)
		bg.GET("/:id", boms.Get)
	}

	accounts := handlers.NewAccountHandler(a.Accounts)
	ag := api.Group("/accounts")
	{
		ag.POST("", accounts.Create)
		ag.GET("", accounts.List)
		ag.GET("/by-code/:code", accounts.GetByCode)
		ag.GET("/:id", accounts.Get)
	}
}

func registerLedgerRoutes(api *gin.RouterGroup, a *app.App) {
	h := handlers.NewLedgerHandler(a.Journal)
	g := api.Group("/ledger/entries")
	{
		g.POST("", h.Append)
		g.GET("", h.List)
		g.GET("/:sequence", h.Get)
		g.POST("/:sequence/post", h.Post)
		g.POST("/:sequence/approve", h.Approve)
		g.POST("/:sequence/reverse", h.Reverse)
	}
}

func registerSettlementRoutes(api *gin.RouterGroup, a *app.App) {
	h := handlers.NewSettlementHandler(a.Settlement)
	inv := api.Group("/invoices")
	{
		inv.POST("", h.CreateInvoice)
		inv.GET("", h.ListInvoices)
		inv.GET("/:id", h.GetInvoice)
		inv.POST("/:id/issue", h.IssueInvoice)
	}
	pay := api.Group("/payments")
	{
		pay.POST("", h.ApplyPayment)
		pay.GET("", h.ListPayments)
		pay.GET("/:id", h.GetPayment)
		pay.DELETE("/:id", h.DeletePayment)
	}
}

func registerInventoryRoutes(api *gin.RouterGroup, a *app.App) {
	h := handlers.NewInventoryHandler(a.Inventory, a.Stock)
	gr := api.Group("/goods-receipts")
	{
		gr.POST("", h.Receive)
		gr.GET("/:id", h.GetReceipt)
	}
	gi := api.Group("/goods-issues")
	{
		gi.POST("", h.Ship)
		gi.GET("/:id", h.GetIssue)
	}
	sc := api.Group("/stock-counts")
	{
		sc.POST("", h.OpenStockCount)
		sc.GET("/:id", h.GetStockCount)
		sc.PUT("/:id/lines", h.SetCounted)
		sc.POST("/:id/post", h.PostStockCount)
	}
}

func registerProductionRoutes(api *gin.RouterGroup, a *app.App) {
	h := handlers.NewProductionHandler(a.Production)
	g := api.Group("/production-orders")
	{
		g.POST("", h.Create)
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.POST("/:id/release", h.Release)
		g.POST("/:id/materials", h.IssueMaterial)
		g.POST("/:id/confirm", h.Confirm)
	}
}
