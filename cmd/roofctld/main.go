// roofctld drives an observatory roll-off roof through an I²C
// relay/digital-input expander board, exposing an HTTP command/query
// API and a push-based status feed.
//
// Usage:
//
//	export ROOFCTLD_USE_SIMULATOR=true   # no hardware attached
//	./roofctld
package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RoySalisbury/HVOv9-sub007/internal/api"
	"github.com/RoySalisbury/HVOv9-sub007/internal/board"
	"github.com/RoySalisbury/HVOv9-sub007/internal/config"
	"github.com/RoySalisbury/HVOv9-sub007/internal/roof"
)

func main() {
	cfg := config.Load()

	// Structured JSON logging by default — easy to parse with any log aggregator.
	logLevel := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("starting roofctld",
		"httpAddr", cfg.HTTPAddr,
		"useSimulator", cfg.UseSimulator,
	)

	// ─── Hardware ──────────────────────────────────────────────────────────
	var (
		bd         *board.Board
		closer     io.Closer
		isHardware bool
	)
	if cfg.UseSimulator {
		bd = board.New(board.NewSimBus())
	} else {
		bus, busCloser, err := board.OpenHardwareBus(cfg.I2CBusName, cfg.I2CAddress)
		if err != nil {
			logger.Error("failed to open I2C bus", "error", err)
			os.Exit(1)
		}
		bd = board.New(bus)
		closer = busCloser
		isHardware = true
	}

	// ─── Controller ────────────────────────────────────────────────────────
	ctrl, err := roof.NewController(bd, cfg.Roof, isHardware, logger)
	if err != nil {
		logger.Error("invalid roof configuration", "error", err)
		os.Exit(1)
	}
	if _, err := ctrl.Initialize(); err != nil {
		logger.Error("failed to initialize roof controller", "error", err)
		os.Exit(1)
	}

	// ─── Graceful shutdown ────────────────────────────────────────────────
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ─── HTTP server ───────────────────────────────────────────────────────
	svc := api.NewService(ctrl)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewRouter(svc, logger),
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	if err := ctrl.Dispose(); err != nil {
		logger.Error("roof controller dispose error", "error", err)
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			logger.Error("i2c bus close error", "error", err)
		}
	}

	logger.Info("roofctld stopped")
}
