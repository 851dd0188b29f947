// cmd/print-agent/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"print-bridge/internal/agentserver"
	"print-bridge/internal/config"
	"print-bridge/internal/discovery"
	"print-bridge/internal/discovery/serial"
	"print-bridge/internal/discovery/tcp"
	"print-bridge/internal/discovery/usb"
	"print-bridge/internal/middleware"
	"print-bridge/internal/model"
	"print-bridge/internal/protocol"
	"print-bridge/internal/utils"
)

// print-agent is a development stand-in for the companion process that owns
// the printers. It speaks the agent websocket protocol on the root path.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	serviceLogger := utils.NewServiceLogger(logger, "print-agent")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg.AgentServer)

	agentCfg := cfg.AgentServer
	scanners := newScannerManager(agentCfg, logger)
	registry := agentserver.NewRegistry(protocol.WithDefaults(protocol.CreateProtocol, portDefaults(agentCfg.DefaultPort)), logger)
	server := agentserver.NewServer(registry, scanners, agentserver.Options{
		HealthCheckInterval: agentCfg.HealthCheckInterval,
		OperationTimeout:    agentCfg.OperationTimeout,
	}, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(logger))
	router.GET("/", server.HandleWebSocket)

	httpServer := &http.Server{
		Addr:    cfg.GetAgentServerAddr(),
		Handler: router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Run(ctx)

	go func() {
		logger.Info("Print agent listening",
			zap.String("address", httpServer.Addr),
			zap.Strings("scanners", scanners.GetAvailableScanners()),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start print agent", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	serviceLogger.LogServiceStop("shutdown signal received")

	cancel()
	server.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Print agent shutdown error", zap.Error(err))
	}

	_ = logger.Sync()
}

func newScannerManager(cfg config.AgentServerConfig, logger *zap.Logger) *discovery.ScannerManager {
	manager := discovery.NewScannerManager(logger)

	manager.RegisterScanner(serial.NewScanner(logger, &serial.Config{
		BaudRate: cfg.DefaultPort.Serial.BaudRate,
	}, nil))

	if len(cfg.TCPPrinters) > 0 {
		manager.RegisterScanner(tcp.NewScanner(logger, &tcp.Config{
			Printers:    cfg.TCPPrinters,
			DefaultPort: protocol.DefaultTCPPort,
			ConnTimeout: cfg.DefaultPort.TCP.ConnectTimeout,
		}))
	}

	if cfg.EnableUSB {
		manager.RegisterScanner(usb.NewScanner(logger, nil))
	}

	return manager
}

func portDefaults(ports config.DevicePortConfig) protocol.Defaults {
	serialDefaults := model.JSONObject{
		"baud_rate": ports.Serial.BaudRate,
		"data_bits": ports.Serial.DataBits,
		"stop_bits": ports.Serial.StopBits,
		"parity":    ports.Serial.Parity,
		"timeout":   ports.Serial.Timeout,
	}

	return protocol.Defaults{
		model.ConnectionTypeSerial:    serialDefaults,
		model.ConnectionTypeBluetooth: serialDefaults,
		model.ConnectionTypeTCP: {
			"keep_alive":    ports.TCP.KeepAlive,
			"timeout":       ports.TCP.ConnectTimeout,
			"write_timeout": ports.TCP.WriteTimeout,
		},
		model.ConnectionTypeUSB: {
			"timeout": ports.USB.Timeout,
		},
	}
}
