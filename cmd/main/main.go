package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"volley-observer/src/config"
	"volley-observer/src/helpers"
	"volley-observer/src/interfaces"
	"volley-observer/src/logger"
	"volley-observer/src/notifier"
	"volley-observer/src/objectstore"
	"volley-observer/src/server"
	"volley-observer/src/storage"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)

	// Cap the Go heap below physical memory so a metrics burst degrades to GC
	// pressure instead of an OOM kill
	memLimitMB := helpers.GetRecommendedMemoryLimit()
	debug.SetMemoryLimit(int64(memLimitMB) * 1024 * 1024)
	appLogger.Info("Memory limit set to: %d MB", memLimitMB)

	// Setup storage
	var db interfaces.IDatabase
	var sqliteDB *storage.SQLiteDB

	switch conf.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(conf.MConfig, logger.NewLogger(conf.MConfig, "PostgresDB"))
	default:
		sqliteDB, err = storage.NewSQLiteDB(conf.MConfig, logger.NewLogger(conf.MConfig, "SQLiteDB"))
		db = sqliteDB
	}
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}

	// The store may come up after us; retry the initial connection only.
	// Request-path store failures are surfaced to callers, never retried.
	if err := helpers.RetryWithBackoff("database initialization", 5, time.Second, db.Initialize); err != nil {
		appLogger.Critical("Failed to initialize db: %v", err)
	}
	defer db.Close()

	// Object store for video uploads
	videos, err := objectstore.NewLocalStore(conf.MConfig, logger.NewLogger(conf.MConfig, "ObjectStore"))
	if err != nil {
		appLogger.Critical("Failed to init object store: %v", err)
	}

	// API server owns the broadcast hub
	srv := server.NewAPIServer(conf.MConfig, db, videos, logger.NewLogger(conf.MConfig, "APIServer"))

	// Change notifier: the store's change feed drives the hub. Exactly one
	// subscription per process.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes interfaces.IChangeNotifier
	if sqliteDB != nil {
		local := notifier.NewLocalNotifier(srv, logger.NewLogger(conf.MConfig, "ChangeNotifier"))
		sqliteDB.SetChangeHook(local.Hook())
		changes = local
	} else {
		changes = notifier.NewPostgresNotifier(conf.MConfig, srv, logger.NewLogger(conf.MConfig, "ChangeNotifier"))
	}

	go func() {
		if err := changes.Start(ctx); err != nil {
			appLogger.Error("Change notifier failed: %v", err)
		}
	}()

	// Start server
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()
	changes.Stop()
	srv.Stop()
}
