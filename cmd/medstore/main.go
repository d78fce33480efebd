package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"medstore/m/internal/api"
	"medstore/m/internal/catalog"
	"medstore/m/internal/config"
	"medstore/m/internal/customers"
	"medstore/m/internal/dashboard"
	"medstore/m/internal/database"
	"medstore/m/internal/idempotency"
	"medstore/m/internal/inventory"
	"medstore/m/internal/jobs"
	"medstore/m/internal/logger"
	"medstore/m/internal/migrations"
	"medstore/m/internal/observability"
	"medstore/m/internal/prescriptions"
	"medstore/m/internal/sales"
	"medstore/m/internal/seed"
	"medstore/m/internal/store/sqlstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(log)
	decimal.MarshalJSONWithoutQuotes = true

	loc, err := cfg.Location()
	if err != nil {
		log.Error("load timezone", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.Connect(cfg.DBDriver, cfg.DatabaseDSN, cfg.DBMaxOpenConns)
	if err != nil {
		log.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()
	if err := migrations.Run(db); err != nil {
		log.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	st := sqlstore.New(db)

	metrics := observability.NewMetrics()
	observers := inventory.Observers{metrics}

	var (
		cache *dashboard.Cache
		idem  *idempotency.Store
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Warn("redis close", slog.Any("error", err))
			}
		}()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis ping", slog.Any("error", err))
		}
		cache = dashboard.NewCache(redisClient, cfg.DashboardCacheTTL, log)
		idem = idempotency.New(redisClient, cfg.IdempotencyTTL)

		taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer taskClient.Close()
		observers = append(observers, cache, jobs.NewEnqueuer(taskClient, log))
	} else {
		log.Info("REDIS_ADDR not set; dashboard cache, idempotency keys and stock alerts disabled")
	}

	ledger := inventory.NewLedger(nil)
	catalogService := catalog.NewService(st, ledger, observers, catalog.ServiceConfig{})
	inventoryService := inventory.NewService(st, ledger, observers, inventory.ServiceConfig{RetryAttempts: cfg.SaleRetryAttempts})
	salesService := sales.NewService(st, ledger, observers, sales.ServiceConfig{
		Location:      loc,
		RetryAttempts: cfg.SaleRetryAttempts,
	})
	customerService := customers.NewService(st, nil)
	prescriptionService := prescriptions.NewService(st, nil, cfg.SaleRetryAttempts)
	dashboardService := dashboard.NewService(st, cache, loc, nil)

	if cfg.SeedCatalog != "" {
		if _, err := seed.LoadMedicinesFile(ctx, catalogService, cfg.SeedCatalog, log); err != nil {
			log.Warn("seed medicine catalog", slog.Any("error", err))
		}
	}

	handler := api.New(api.Deps{
		Catalog:       catalogService,
		Inventory:     inventoryService,
		Sales:         salesService,
		Customers:     customerService,
		Prescriptions: prescriptionService,
		Dashboard:     dashboardService,
		Idempotency:   idem,
		Metrics:       metrics,
		Logger:        log,
	}, api.Options{
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
		Production:         cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("medstore POS server starting", slog.String("addr", server.Addr), slog.String("db_driver", cfg.DBDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown", slog.Any("error", err))
	}
}
