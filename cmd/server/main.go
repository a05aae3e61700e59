package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"inventory-service/internal/app"
	"inventory-service/internal/config"
	"inventory-service/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	gin.SetMode(cfg.Server.GinMode)

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("❌ Error inicializando el servicio", zap.Error(err))
	}
	defer a.Close()

	go a.ItemCache.Run(ctx, time.Minute)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		middleware.ServerInfo(cfg, logger)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("❌ Error en el servidor HTTP", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("ℹ️ Apagando servidor...")
	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ Error apagando servidor", zap.Error(err))
		return
	}

	logger.Info("✅ Servidor detenido")
}
