package main

import (
	"context"
	"os"
	"time"

	datasource "option-guide/src/data_source"
	"option-guide/src/interfaces"
	"option-guide/src/logger"
	"option-guide/src/models"
	"option-guide/src/network"
	"option-guide/src/pricing"
	"option-guide/src/storage"
	"option-guide/src/trace"
)

// -----------------------------------------------------------------------------

// setupDatabase opens the quote journal; nil when storage is disabled.
func setupDatabase(config *models.MConfig, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	db, err := storage.NewDatabase(config, appLogger)
	if err != nil {
		return nil, err
	}
	if db == nil {
		appLogger.Info("Storage disabled; quotes will not be journaled")
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(config *models.MConfig, appLogger *logger.Logger) interfaces.INetworkManager {
	return network.NewAsyncNetworkManager(config, appLogger.Named("NetworkManager"))
}

// -----------------------------------------------------------------------------

// setupDataSources builds the upstream feed (when enabled) and wraps it in
// the manager that feeds the shared reference price.
func setupDataSources(
	config *models.MConfig,
	appLogger *logger.Logger,
	networkManager interfaces.INetworkManager,
	ref *pricing.ReferencePrice,
	db interfaces.IDatabase,
) (*datasource.MultiSourceManager, error) {
	var sources []interfaces.IQuoteSource
	if config.DataSource.Enabled {
		appLogger.Info("Initializing data source %s for %s...", config.DataSource.Provider, config.DataSource.Symbol)
		src, err := datasource.NewQuoteSource(config.DataSource, networkManager, appLogger.Named("DataSource"))
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	} else {
		appLogger.Info("Upstream data source disabled")
	}

	retention := time.Duration(config.Storage.RetentionDays) * 24 * time.Hour
	return datasource.NewMultiSourceManager(sources, ref, db, retention, appLogger.Named("MultiSourceManager")), nil
}

// -----------------------------------------------------------------------------

func setupTracing(config *models.MConfig) error {
	return trace.Init(config.TracingEnabled, os.Stderr)
}

func shutdownTracing(ctx context.Context, appLogger *logger.Logger) {
	if err := trace.Shutdown(ctx); err != nil {
		appLogger.Warning("Failed to flush traces: %v", err)
	}
}
