package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"inventory-service/internal/services"
)

type MonitoringHandler struct {
	monitoringService services.MonitoringService
	pushInterval      time.Duration
	logger            *zap.Logger
}

func NewMonitoringHandler(monitoringService services.MonitoringService, logger *zap.Logger) *MonitoringHandler {
	return &MonitoringHandler{
		monitoringService: monitoringService,
		pushInterval:      10 * time.Second,
		logger:            logger,
	}
}

// GetMetrics maneja la petición HTTP para obtener métricas
func (h *MonitoringHandler) GetMetrics(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_metrics"))

	metrics := h.monitoringService.GetMetrics(c.Request.Context())

	logger.Debug("Métricas obtenidas",
		zap.Int("total_requests", metrics.Requests.TotalRequests),
		zap.Int64("checkouts", metrics.Checkout.Committed),
		zap.String("avg_response_time", metrics.Performance.AvgResponseTimeMs))

	c.JSON(http.StatusOK, metrics)
}

// GetMetricsSummary versión resumida para paneles
func (h *MonitoringHandler) GetMetricsSummary(c *gin.Context) {
	metrics := h.monitoringService.GetMetrics(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"requests": gin.H{
			"total":         metrics.Requests.TotalRequests,
			"endpoints":     metrics.Requests.Total,
			"errors":        metrics.Requests.ErrorsCount,
			"slow_requests": metrics.Requests.SlowRequestsCount,
		},
		"performance": gin.H{
			"avg_response_time": metrics.Performance.AvgResponseTimeMs,
			"max_response_time": metrics.Performance.MaxResponseTimeMs,
		},
		"checkout": metrics.Checkout,
		"cache": gin.H{
			"hit_rate": metrics.Cache.HitRatePercentage,
			"status":   metrics.Cache.Status,
		},
		"database": gin.H{
			"driver": metrics.Database.Driver,
			"status": metrics.Database.Status,
		},
		"redis": gin.H{
			"connected": metrics.Redis.Connected,
			"status":    metrics.Redis.Status,
		},
		"timestamp": metrics.Timestamp,
	})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketMetrics envía las métricas periódicamente mientras la conexión siga abierta
func (h *MonitoringHandler) WebSocketMetrics(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "websocket_metrics"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("❌ Error actualizando a WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	logger.Info("ℹ️ Conexión WebSocket establecida")

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	// lector en segundo plano para detectar el cierre del cliente
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func() bool {
		metrics := h.monitoringService.GetMetrics(context.Background())
		if err := conn.WriteJSON(metrics); err != nil {
			logger.Error("❌ Error enviando métricas por WebSocket", zap.Error(err))
			return false
		}
		return true
	}

	if !send() {
		return
	}

	ticker := time.NewTicker(h.pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !send() {
				return
			}
		case <-closed:
			logger.Info("ℹ️ Cliente WebSocket desconectado")
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
