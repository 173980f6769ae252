package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"option-guide/src/config"
	"option-guide/src/content"
	"option-guide/src/helpers"
	"option-guide/src/logger"
	"option-guide/src/metrics"
	"option-guide/src/pricing"
	"option-guide/src/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	dumpPath := flag.String("dump-config", "", "write the effective config to this path and exit")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *dumpPath != "" {
		if err := conf.Save(*dumpPath); err != nil {
			fmt.Printf("Error writing config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// 3. Setup Logger and runtime limits
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)
	helpers.ApplyMemoryLimit(appLogger)
	if err := setupTracing(conf.MConfig); err != nil {
		appLogger.Warning("Tracing disabled: %v", err)
	}

	// 4. Setup Components
	db, err := setupDatabase(conf.MConfig, appLogger)
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}

	ref := pricing.NewReferencePrice(conf.Stream.StartPrice)
	metrics.ReferencePrice.Set(ref.Value())

	networkManager := setupNetwork(conf.MConfig, appLogger)
	multiSource, err := setupDataSources(conf.MConfig, appLogger, networkManager, ref, db)
	if err != nil {
		appLogger.Critical("Failed to init data sources: %v", err)
	}

	// 5. Bootstrap: last journaled price and content
	if err := multiSource.Seed(); err != nil {
		appLogger.Warning("Could not seed reference price from journal: %v", err)
	}
	contentProvider := content.NewFileProvider(conf.ContentPath, appLogger.Named("Content"))
	if _, err := contentProvider.Load(); err != nil {
		appLogger.Warning("Content not available yet, serving empty state: %v", err)
	}

	srv := server.NewServer(conf.MConfig, contentProvider, ref, appLogger.Named("HTTP"))

	// Lifecycle Management
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Start upstream sources
	if conf.DataSource.Enabled {
		if err := multiSource.Start(ctx); err != nil {
			appLogger.Critical("Failed to start data sources: %v", err)
		}
	}

	// 7. Start Servers
	running := startServers(srv, multiSource, contentProvider, ref, conf, appLogger)

	select {
	case <-ctx.Done():
		appLogger.Info("Shutting down...")
	case err := <-running.errs:
		appLogger.Error("Server failed: %v", err)
	}

	// 8. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	running.stop(shutdownCtx, appLogger)

	if err := multiSource.Stop(); err != nil {
		appLogger.Error("Failed to stop data sources: %v", err)
	}
	if db != nil {
		if err := db.Close(); err != nil {
			appLogger.Error("Failed to close db: %v", err)
		}
	}
	shutdownTracing(shutdownCtx, appLogger)
	appLogger.Info("Shutdown complete.")
}
