package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/amparo-app/amparo/internal/app"
	"github.com/amparo-app/amparo/internal/assistance"
	"github.com/amparo-app/amparo/internal/audit"
	"github.com/amparo-app/amparo/internal/auth"
	"github.com/amparo-app/amparo/internal/authz"
	"github.com/amparo-app/amparo/internal/events"
	"github.com/amparo-app/amparo/internal/finance"
	"github.com/amparo-app/amparo/internal/members"
	"github.com/amparo-app/amparo/internal/observability"
	"github.com/amparo-app/amparo/internal/platform/db"
	"github.com/amparo-app/amparo/internal/shared"
	"github.com/amparo-app/amparo/internal/users"
	"github.com/amparo-app/amparo/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "amparo_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo)

	evaluator := authz.NewEvaluator(authz.DefaultPolicy())
	authzRepo := authz.NewRepository(dbpool)
	authzService := authz.NewService(authzRepo, redisClient, evaluator, auditService, cfg.SubjectCacheTTL, logger)
	guard := authz.Guard{Service: authzService, Logger: logger, Denials: metrics}

	taskClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Warn("task client close", slog.Any("error", err))
		}
	}()

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, auditService, authzService, taskClient, logger)
	usersHandler := users.NewHandler(logger, usersService, guard)

	sessionStore := auth.NewSessionStore(dbpool)
	authService := auth.NewService(usersRepo, sessionStore)
	authHandler := auth.NewHandler(logger, authService, usersService, authzService, sessionManager, csrfManager)

	permissionsHandler := authz.NewHandler(logger, authzService, guard)

	membersRepo := members.NewRepository(dbpool)
	membersService := members.NewService(membersRepo)
	membersHandler := members.NewHandler(logger, membersService, guard)

	eventsRepo := events.NewRepository(dbpool)
	eventsService := events.NewService(eventsRepo)
	eventsHandler := events.NewHandler(logger, eventsService, guard)

	financeRepo := finance.NewRepository(dbpool)
	financeService := finance.NewService(financeRepo)
	financeHandler := finance.NewHandler(logger, financeService, guard)

	assistanceRepo := assistance.NewRepository(dbpool)
	assistanceService := assistance.NewService(assistanceRepo, auditService, logger)
	assistanceHandler := assistance.NewHandler(logger, assistanceService, guard)

	auditHandler := audit.NewHandler(logger, auditService, guard)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Guard:              guard,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		PermissionsHandler: permissionsHandler,
		MembersHandler:     membersHandler,
		EventsHandler:      eventsHandler,
		FinanceHandler:     financeHandler,
		AssistanceHandler:  assistanceHandler,
		AuditHandler:       auditHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
