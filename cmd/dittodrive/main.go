package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittodrive/internal/api"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/auth"
	"github.com/marmos91/dittodrive/pkg/config"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	logger.SetLevel(level)

	fmt.Println("DittoDrive - virtual drive over object storage")
	logger.Info("Log level set to: %s", level)

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics collection enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, shutdownStore, err := config.CreateStore(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	authCtx := auth.New(cfg.Auth.AllowedUIDs...)
	d := drive.New(authCtx, st, cfg.Upload.Concurrency, metrics.NewDriveMetrics())

	server := api.New(d, authCtx, cfg.Server.ListenAddress)

	go func() {
		if err := server.Run(); err != nil {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}

	d.Close()
	if err := shutdownStore(); err != nil {
		logger.Error("Store shutdown failed: %v", err)
	}

	logger.Info("Shutdown complete")
}
