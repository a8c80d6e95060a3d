package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/amparo-app/amparo/internal/app"
	"github.com/amparo-app/amparo/internal/audit"
	"github.com/amparo-app/amparo/internal/auth"
	"github.com/amparo-app/amparo/internal/authz"
	"github.com/amparo-app/amparo/internal/platform/db"
	"github.com/amparo-app/amparo/internal/users"
	"github.com/amparo-app/amparo/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo)

	evaluator := authz.NewEvaluator(authz.DefaultPolicy())
	authzRepo := authz.NewRepository(pool)
	authzService := authz.NewService(authzRepo, redisClient, evaluator, auditService, cfg.SubjectCacheTTL, logger)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, auditService, authzService, nil, logger)

	sessionStore := auth.NewSessionStore(pool)

	pruneTask, err := jobs.NewAuditPruneTask(jobs.AuditPrunePayload{RetentionDays: cfg.AuditRetentionDays})
	if err != nil {
		logger.Error("build audit prune task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeAuditPrune, Handler: jobs.NewAuditPruneHandler(auditService, logger)},
			{Type: jobs.TaskTypePendingDigest, Handler: jobs.NewPendingDigestHandler(usersService, logger)},
			{Type: jobs.TaskTypeSessionPrune, Handler: jobs.NewSessionPruneHandler(sessionStore, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: pruneTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 3 * * *", Task: jobs.NewSessionPruneTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 8 * * *", Task: jobs.NewPendingDigestTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
