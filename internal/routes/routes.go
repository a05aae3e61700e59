package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"inventory-service/internal/auth"
	"inventory-service/internal/handlers"
	"inventory-service/internal/middleware"
)

// Handlers agrupa lo que SetupRoutes necesita montar
type Handlers struct {
	Items      *handlers.ItemHandler
	Carts      *handlers.CartHandler
	Sales      *handlers.SaleHandler
	Monitoring *handlers.MonitoringHandler
	Health     *middleware.HealthChecker
}

// CORSConfig sin orígenes explícitos se aceptan todos
func CORSConfig(allowedOrigins []string) cors.Config {
	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "X-Request-ID")
	corsConfig.AddExposeHeaders("X-Request-ID", "Content-Disposition")
	return corsConfig
}

// SetupRoutes configura todas las rutas de la aplicación
func SetupRoutes(router *gin.Engine, h Handlers, tokens middleware.TokenParser, recorder middleware.RequestRecorder) {
	writers := middleware.RequireRole(auth.RoleAdmin, auth.RoleStandard)
	admin := middleware.RequireRole(auth.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth(tokens))
	{
		api := v1.Group("")
		if recorder != nil {
			api.Use(middleware.MetricsMiddleware(recorder))
		}

		items := api.Group("/items")
		{
			items.GET("", h.Items.List)
			items.POST("", writers, h.Items.Create)
			items.GET("/categories", h.Items.Categories)
			items.GET("/part/:part", h.Items.GetByPartNumber)
			items.GET("/:id", h.Items.Get)
			items.PUT("/:id", admin, h.Items.Update)
			items.DELETE("/:id", admin, h.Items.Delete)
			items.PUT("/:id/stock", admin, h.Items.SetStock)
			items.POST("/:id/entry", writers, h.Items.AddStock)
		}

		cart := api.Group("/cart")
		{
			cart.POST("", h.Carts.New)
			cart.GET("/:cart", h.Carts.Get)
			cart.DELETE("/:cart", h.Carts.Clear)
			cart.POST("/:cart/items", h.Carts.AddItem)
			cart.DELETE("/:cart/items/:item", h.Carts.RemoveItem)
			cart.POST("/:cart/checkout", writers, h.Carts.Checkout)
		}

		sales := api.Group("/sales")
		{
			sales.GET("", h.Sales.ListSales)
			sales.GET("/:id", h.Sales.GetSale)
			sales.GET("/:id/document", h.Sales.Document)
		}

		api.GET("/movements", h.Sales.ListMovements)

		reports := api.Group("/reports")
		{
			reports.GET("/low-stock", h.Sales.LowStock)
			reports.GET("/top-selling", h.Sales.TopSelling)
		}

		// fuera de las métricas para no medirse a sí mismo
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/metrics", h.Monitoring.GetMetrics)
			monitoring.GET("/metrics/summary", h.Monitoring.GetMetricsSummary)
			monitoring.GET("/ws", h.Monitoring.WebSocketMetrics)
		}
	}

	router.GET("/health", h.Health.HealthCheck)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Inventory Service API",
			"version": "1.0.0",
			"status":  "running",
			"endpoints": gin.H{
				"health": "/health",
				"api":    "/api/v1",
				"items": gin.H{
					"list":    "GET /api/v1/items",
					"create":  "POST /api/v1/items",
					"by_part": "GET /api/v1/items/part/:part",
					"stock":   "PUT /api/v1/items/:id/stock",
					"entry":   "POST /api/v1/items/:id/entry",
				},
				"cart": gin.H{
					"new":      "POST /api/v1/cart",
					"add":      "POST /api/v1/cart/:cart/items",
					"checkout": "POST /api/v1/cart/:cart/checkout",
				},
				"sales": gin.H{
					"list":     "GET /api/v1/sales",
					"document": "GET /api/v1/sales/:id/document",
				},
				"reports": gin.H{
					"low_stock":   "GET /api/v1/reports/low-stock",
					"top_selling": "GET /api/v1/reports/top-selling",
				},
				"monitoring": gin.H{
					"metrics":   "GET /api/v1/monitoring/metrics",
					"websocket": "GET /api/v1/monitoring/ws",
				},
			},
		})
	})
}
