// Package app arma las dependencias del servicio a partir de la configuración.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"inventory-service/internal/auth"
	"inventory-service/internal/cache"
	"inventory-service/internal/config"
	"inventory-service/internal/database"
	"inventory-service/internal/document"
	"inventory-service/internal/handlers"
	"inventory-service/internal/middleware"
	"inventory-service/internal/models"
	"inventory-service/internal/repository"
	"inventory-service/internal/routes"
	"inventory-service/internal/services"
)

type App struct {
	Config *config.Config
	DB     *database.SQLDB
	// Redis nil cuando REDIS_URL está vacío
	Redis     *database.RedisDB
	ItemCache *cache.ItemCache
	Tokens    *auth.TokenManager

	Ledger     services.StockLedger
	Items      services.ItemService
	Carts      services.CartService
	Committer  services.SaleCommitter
	Reports    services.ReportService
	Monitoring services.MonitoringService

	Router *gin.Engine
	logger *zap.Logger
}

// NewLogger producción por defecto, desarrollo con GIN_MODE=debug
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Server.GinMode == gin.DebugMode {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// Open conecta base de datos y Redis, aplica migraciones y arma el servicio
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewSQLDB(
		cfg.Database.Driver,
		cfg.Database.URL,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
		logger,
	)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx, logger); err != nil {
		db.Close()
		return nil, err
	}

	var redisDB *database.RedisDB
	if cfg.Redis.URL != "" {
		redisDB, err = database.NewRedisDB(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
	} else {
		logger.Info("ℹ️ Redis deshabilitado, carrito y caché en memoria")
	}

	a, err := New(cfg, db, redisDB, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// New arma repositorios, servicios y router sobre conexiones ya abiertas; redisDB puede ser nil
func New(cfg *config.Config, db *database.SQLDB, redisDB *database.RedisDB, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, DB: db, Redis: redisDB, logger: logger}

	policy, ok := models.ParseLowStockPolicy(cfg.Reports.LowStockPolicy)
	if !ok {
		return a, fmt.Errorf("invalid LOW_STOCK_POLICY %q", cfg.Reports.LowStockPolicy)
	}

	items, err := repository.NewItemRepository(db.DB, db.Dialect)
	if err != nil {
		return a, err
	}
	sales, err := repository.NewSaleRepository(db.DB, db.Dialect)
	if err != nil {
		return a, err
	}
	movements, err := repository.NewMovementRepository(db.DB, db.Dialect)
	if err != nil {
		return a, err
	}
	tx := repository.NewTxRunner(db.DB)

	var redisClient *redis.Client
	var cartStore cache.CartStore = cache.NewMemoryCartStore()
	if redisDB != nil {
		redisClient = redisDB.Client
		cartStore = cache.NewRedisCartStore(redisClient, cfg.Cache.CartTTL)
	}

	a.ItemCache = cache.NewItemCache(redisClient, cfg.Cache.ItemL1Max, cfg.Cache.ItemTTL, logger)
	a.Tokens = auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	a.Monitoring = services.NewMonitoringService(logger, cfg, redisClient, db, a.ItemCache)

	renderer := document.NewRenderer(
		document.Options{Title: cfg.Documents.Title, Footer: cfg.Documents.Footer},
		document.NewDirFontResolver(cfg.Documents.FontDirs),
		document.BidiShaper{},
		logger,
	)

	a.Ledger = services.NewStockLedger(tx, items, movements, a.ItemCache, logger)
	a.Items = services.NewItemService(tx, items, movements, a.ItemCache, logger)
	a.Carts = services.NewCartService(cartStore, a.Ledger, logger)
	a.Committer = services.NewSaleCommitter(services.SaleCommitterDeps{
		Tx:        tx,
		Items:     items,
		Sales:     sales,
		Movements: movements,
		Ledger:    a.Ledger,
		Carts:     a.Carts,
		Renderer:  renderer,
		Documents: document.NewFileStore(cfg.Documents.Dir),
		Cache:     a.ItemCache,
		Recorder:  a.Monitoring,
	}, logger)
	a.Reports = services.NewReportService(items, sales, movements, policy, cfg.Reports.Limit, logger)

	a.Router = a.newRouter()
	return a, nil
}

func (a *App) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(cors.New(routes.CORSConfig(a.Config.Server.AllowedOrigins)))
	// el upgrade del websocket no admite un writer comprimido
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/monitoring/ws"})))

	routes.SetupRoutes(router, routes.Handlers{
		Items:      handlers.NewItemHandler(a.Items, a.Ledger, a.logger),
		Carts:      handlers.NewCartHandler(a.Carts, a.Committer, a.logger),
		Sales:      handlers.NewSaleHandler(a.Reports, a.Committer, a.logger),
		Monitoring: handlers.NewMonitoringHandler(a.Monitoring, a.logger),
		Health:     middleware.NewHealthChecker(a.DB, a.Redis, a.logger),
	}, a.Tokens, a.Monitoring)

	return router
}

// Close libera conexiones; seguro sobre un App parcial
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.logger.Error("❌ Error cerrando Redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.logger.Error("❌ Error cerrando base de datos", zap.Error(err))
		}
	}
}
