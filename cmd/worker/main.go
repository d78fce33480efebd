package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"medstore/m/internal/config"
	"medstore/m/internal/database"
	"medstore/m/internal/jobs"
	"medstore/m/internal/logger"
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

	if cfg.RedisAddr == "" {
		log.Error("REDIS_ADDR is required for the worker")
		os.Exit(1)
	}
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

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client := asynq.NewClient(redisOpts)
	defer client.Close()

	handlers := jobs.NewHandlers(jobs.HandlersConfig{
		Reader:   sqlstore.New(db),
		Enqueuer: jobs.NewEnqueuer(client, log),
		Logger:   log,
		Location: loc,
	})
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    log,
		Handlers:  handlers,
		ScanCron:  cfg.StockAlertCron,
		Location:  loc,
	})
	if err != nil {
		log.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("stock worker starting", slog.String("scan_cron", cfg.StockAlertCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
