package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

const serviceName = "catalog-service"

// RouterOptions - настройки HTTP слоя из конфигурации
type RouterOptions struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	MaxUploadSize  int64
	// UploadDir и UploadURLPrefix заданы только для локального хранилища картинок:
	// тогда сервис сам раздает загруженные файлы
	UploadDir       string
	UploadURLPrefix string
}

// SetupRoutes настраивает все маршруты Catalog Service с использованием Gin
func SetupRoutes(catalogHandler *CatalogHandler, orderHandler *OrderHandler, opts RouterOptions) *gin.Engine {
	router := gin.New()

	// Recovery middleware для обработки panic
	router.Use(gin.Recovery())

	// JSON logging middleware для HTTP-запросов
	router.Use(logger.GinLoggerMiddleware())

	// Prometheus metrics middleware
	router.Use(metrics.GinPrometheusMiddleware(serviceName))

	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.New(corsConfig(opts.CORSOrigins)))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
		})
	})

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.UploadDir != "" && opts.UploadURLPrefix != "" {
		router.Static(opts.UploadURLPrefix, opts.UploadDir)
	}

	api := router.Group("")
	api.Use(RequestTimeout(opts.RequestTimeout), BodyLimit(opts.MaxUploadSize))

	products := api.Group("/products")
	{
		products.GET("", catalogHandler.ListProducts)
		products.GET("/:id", catalogHandler.GetProduct)
		products.POST("", catalogHandler.CreateProduct)
		products.PUT("", catalogHandler.UpdateProduct)
		products.DELETE("", catalogHandler.DeleteProduct)
	}

	categories := api.Group("/categories")
	{
		categories.GET("", catalogHandler.GetAllCategories) // кеш Redis
		categories.GET("/:id", catalogHandler.GetCategory)
		categories.POST("", catalogHandler.CreateCategory)
		categories.PUT("", catalogHandler.UpdateCategory)
		categories.DELETE("", catalogHandler.DeleteCategory) // 400, если есть товары
	}

	orders := api.Group("/orders")
	{
		orders.POST("", orderHandler.CreateOrder)
		orders.GET("/:id", orderHandler.GetOrder)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Total-Count", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300 * time.Second,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
