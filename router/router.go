package router

import (
	"net/http"

	"pos/api"
	"pos/config"
	"pos/database"
	_ "pos/docs"
	"pos/middleware"
	"pos/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Deps services shared by the handlers. Stock is nil when no inventory
// database is configured.
type Deps struct {
	Log    *zap.Logger
	Stock  service.StockDecrementer
	Cache  service.DashboardCache
	Email  *service.EmailService
	Syncer *service.Syncer
}

func currentPinID() (uint, error) {
	pin, err := database.CurrentPin(database.DB)
	if err != nil {
		return 0, err
	}
	return pin.ID, nil
}

// SetupRouter sets up the routes
func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Cache == nil {
		deps.Cache = service.NoopCache{}
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(log), middleware.Recovery(log))
	r.Use(CORSMiddleware())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "API running and connected to the database")
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.Static("/uploads", cfg.Uploads.Dir)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiGroup := r.Group("/api")

	categoryHandler := api.NewCategoryHandler(deps.Cache)
	categories := apiGroup.Group("/categories")
	{
		categories.GET("", categoryHandler.List)
		categories.GET("/:id", categoryHandler.Get)
		categories.POST("", categoryHandler.Create)
		categories.PUT("/:id", categoryHandler.Update)
		categories.DELETE("/:id", categoryHandler.Delete)
	}

	itemHandler := api.NewItemHandler(cfg.Uploads.Dir)
	variantHandler := api.NewVariantHandler()
	items := apiGroup.Group("/items")
	{
		items.GET("", itemHandler.List)
		items.GET("/:id", itemHandler.Get)
		items.POST("", itemHandler.Create)
		items.PUT("/:id", itemHandler.Update)
		items.DELETE("/:id", itemHandler.Delete)

		items.GET("/:id/variants", variantHandler.List)
		items.POST("/:id/variants", variantHandler.Create)
		items.GET("/variants/:variantId", variantHandler.Get)
		items.PUT("/variants/:variantId", variantHandler.Update)
		items.DELETE("/variants/:variantId", variantHandler.Delete)
	}

	transactionHandler := api.NewTransactionHandler(cfg.Backoffice.PaymentMethods, deps.Stock, deps.Cache)
	transactions := apiGroup.Group("/transactions")
	{
		transactions.GET("", transactionHandler.List)
		transactions.GET("/:id", transactionHandler.Get)
		transactions.POST("", transactionHandler.Create)
	}

	backofficeHandler := api.NewBackofficeHandler(cfg, deps.Email, deps.Cache)
	dashboardHandler := api.NewDashboardHandler(deps.Cache)
	exportHandler := api.NewExportHandler()
	backoffice := apiGroup.Group("/backoffice")
	backoffice.Use(middleware.BackofficeAuth(cfg.Backoffice.RequireToken, currentPinID))
	{
		backoffice.POST("/verify-pin",
			middleware.PinRateLimit(cfg.Backoffice.PinAttempts, cfg.Backoffice.PinWindow),
			backofficeHandler.VerifyPin)
		backoffice.GET("/pin-info", backofficeHandler.PinInfo)
		backoffice.POST("/initialize-pin", backofficeHandler.InitializePin)
		backoffice.PUT("/pin", backofficeHandler.UpdatePin)
		backoffice.GET("/dashboard", dashboardHandler.Dashboard)
		backoffice.GET("/filters", dashboardHandler.Filters)
		backoffice.GET("/export", exportHandler.Export)
		backoffice.DELETE("/reset-all", backofficeHandler.ResetAll)
	}

	if deps.Syncer != nil {
		syncHandler := api.NewSyncHandler(deps.Syncer)
		syncGroup := apiGroup.Group("/sync")
		{
			syncGroup.POST("/products", syncHandler.Products)
			syncGroup.POST("/full", syncHandler.Full)
			syncGroup.GET("/status", syncHandler.Status)
		}
	}

	return r
}

// CORSMiddleware allows the register and backoffice SPA from any origin
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
