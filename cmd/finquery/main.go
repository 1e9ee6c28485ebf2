package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finquery/internal/amqp"
	"finquery/internal/config"
	"finquery/internal/engine"
	apphttp "finquery/internal/http"
	applog "finquery/internal/log"
	"finquery/internal/store"
)

func main() {
	// Load .env file if present (ignore errors in production)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: "finquery"})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	var st store.Store
	switch cfg.DataBackend {
	case "sqlite":
		sqliteStore, err := store.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to open SQLite store", "error", err, "db_path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		st = sqliteStore
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	default:
		st = store.NewMemoryStore()
		logger.Info("Initialized memory backend")
	}
	defer st.Close()

	var events *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", "error", err)
			os.Exit(1)
		}
		events = client
		defer events.Close()
		logger.Info("Connected to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, dataset events will not be published")
	}

	eng := engine.New(st, engine.Options{
		MonthPolicy: engine.MonthPolicy(cfg.MonthPolicy),
		Logger:      logger.WithComponent("engine"),
	})

	srv := apphttp.NewServer(cfg, eng, st, events, logger.WithComponent("http"))

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting finquery server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"month_policy", cfg.MonthPolicy)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
