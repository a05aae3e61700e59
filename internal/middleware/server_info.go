package middleware

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"inventory-service/internal/config"
)

// ServerInfo muestra información del servidor al iniciar
func ServerInfo(cfg *config.Config, logger *zap.Logger) {
	hostname, _ := os.Hostname()
	goVersion := runtime.Version()
	numCPU := runtime.NumCPU()
	startTime := time.Now().Format("2006-01-02 15:04:05")
	port := cfg.Server.Port

	cacheMode := "memory"
	if cfg.Redis.URL != "" {
		cacheMode = "Redis"
	}

	fmt.Println("")
	fmt.Println("🚀 " + boldColor + "Inventory Service API" + resetColor)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("📅 Started at: " + startTime)
	fmt.Println("🌐 Server URL: " + cyanColor + "http://localhost:" + port + resetColor)
	fmt.Println("💻 Hostname: " + hostname)
	fmt.Println("🔧 Go Version: " + goVersion)
	fmt.Println("⚡ CPU Cores: " + fmt.Sprintf("%d", numCPU))
	fmt.Println("")
	fmt.Println("📊 " + boldColor + "Available Endpoints:" + resetColor)
	fmt.Println("   GET  " + greenColor + "/" + resetColor + "                          - API Information")
	fmt.Println("   GET  " + greenColor + "/health" + resetColor + "                    - Health Check")
	fmt.Println("   *    " + greenColor + "/api/v1/items" + resetColor + "              - Items & stock")
	fmt.Println("   *    " + greenColor + "/api/v1/cart/:cart" + resetColor + "         - Cart & checkout")
	fmt.Println("   GET  " + greenColor + "/api/v1/sales" + resetColor + "              - Sales history")
	fmt.Println("   GET  " + greenColor + "/api/v1/reports/low-stock" + resetColor + "  - Reports")
	fmt.Println("")
	fmt.Println("⚙️  " + boldColor + "Environment:" + resetColor)
	fmt.Println("   🗄️  Database: " + cfg.Database.Driver)
	fmt.Println("   🗃️  Cart & cache: " + cacheMode)
	fmt.Println("   📄 Documents: " + cfg.Documents.Dir)
	fmt.Println("   📉 Low stock policy: " + cfg.Reports.LowStockPolicy)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("✨ " + boldColor + "Server is ready to handle requests!" + resetColor)
	fmt.Println("")

	logger.Info("Server started successfully",
		zap.String("port", port),
		zap.String("hostname", hostname),
		zap.String("go_version", goVersion),
		zap.Int("cpu_cores", numCPU),
		zap.String("start_time", startTime),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("cache", cacheMode),
	)
}
