package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"inventory-service/internal/database"
)

type HealthChecker struct {
	sqlDB   *database.SQLDB
	redisDB *database.RedisDB
	logger  *zap.Logger
}

// NewHealthChecker redisDB puede ser nil cuando se trabaja solo en memoria
func NewHealthChecker(sqlDB *database.SQLDB, redisDB *database.RedisDB, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		sqlDB:   sqlDB,
		redisDB: redisDB,
		logger:  logger,
	}
}

func (h *HealthChecker) HealthCheck(c *gin.Context) {
	services := make(map[string]interface{})
	status := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"services":  services,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := h.sqlDB.DB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
		status["status"] = "unhealthy"
		h.logger.Error("Database health check failed", zap.Error(err))
	}

	dbStats := h.sqlDB.GetStats()
	services["database"] = gin.H{
		"status": dbStatus,
		"driver": string(h.sqlDB.Dialect),
		"stats": gin.H{
			"max_open_connections": dbStats.MaxOpenConnections,
			"open_connections":     dbStats.OpenConnections,
			"in_use":               dbStats.InUse,
			"idle":                 dbStats.Idle,
		},
	}

	if h.redisDB == nil {
		services["redis"] = gin.H{"status": "disabled"}
	} else {
		redisStatus := "healthy"
		if err := h.redisDB.Ping(ctx); err != nil {
			redisStatus = "unhealthy"
			status["status"] = "unhealthy"
			h.logger.Error("Redis health check failed", zap.Error(err))
		}

		redisStats, err := h.redisDB.GetStats(ctx)
		if err != nil {
			h.logger.Error("Failed to get Redis stats", zap.Error(err))
			redisStats = "unavailable"
		}

		services["redis"] = gin.H{
			"status": redisStatus,
			"stats":  redisStats,
		}
	}

	httpStatus := http.StatusOK
	if status["status"] == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, status)
}
