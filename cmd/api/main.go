package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/civicpulse/issue-service/internal/api/dto"
	httptransport "github.com/civicpulse/issue-service/internal/api/http"
	"github.com/civicpulse/issue-service/internal/api/http/handlers"
	"github.com/civicpulse/issue-service/internal/auth"
	"github.com/civicpulse/issue-service/internal/config"
	"github.com/civicpulse/issue-service/internal/events"
	"github.com/civicpulse/issue-service/internal/notify"
	"github.com/civicpulse/issue-service/internal/observability"
	"github.com/civicpulse/issue-service/internal/persistence"
	"github.com/civicpulse/issue-service/internal/ratelimit"
	"github.com/civicpulse/issue-service/internal/repository"
	"github.com/civicpulse/issue-service/internal/service"
	"github.com/civicpulse/issue-service/internal/storage"
	"github.com/civicpulse/issue-service/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.App.Name, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var images storage.ImageStore
	if cfg.Storage.Enabled() {
		store, err := storage.NewMinIOStore(ctx, cfg.Storage, logger)
		if err != nil {
			logger.Fatal("failed to init image storage", zap.Error(err))
		}
		images = store
	} else {
		logger.Info("image storage not configured; uploads disabled")
	}

	var forwarder *events.AMQPForwarder
	if cfg.Notification.AMQPURL != "" {
		forwarder, err = events.NewAMQPForwarder(cfg.Notification.AMQPURL, cfg.Notification.AMQPQueue, logger)
		if err != nil {
			logger.Fatal("failed to connect rabbitmq", zap.Error(err))
		}
	}

	var mailer notify.Mailer = notify.NewLogMailer(logger)
	if smtpMailer := notify.NewSMTPMailer(cfg.Notification); smtpMailer.IsConfigured() {
		mailer = smtpMailer
	} else {
		logger.Warn("smtp not configured; notifications are logged only")
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewAsyncDispatcher(logger, cfg.Notification.QueueSize)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	issueRepo := repository.NewIssueRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	historyRepo := repository.NewIssueHistoryRepository(pool)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: userRepo,
		Logger:   logger,
	})
	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo:   issueRepo,
		CommentRepo: commentRepo,
		HistoryRepo: historyRepo,
		UserRepo:    userRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		IssueRepo:   issueRepo,
		CommentRepo: commentRepo,
	})
	userService := service.NewUserService(service.UserDependencies{UserRepo: userRepo})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		UserRepo:   userRepo,
		Mailer:     mailer,
		Metrics:    metrics,
		Logger:     logger,
		AppName:    cfg.App.Name,
	})

	if err := authService.EnsureAdmin(ctx, cfg.Auth.BootstrapAdmin); err != nil {
		logger.Fatal("failed to ensure bootstrap admin", zap.Error(err))
	}

	worker.StartNotificationWorker(worker.NotificationWorkerConfig{
		Dispatcher:    dispatcher,
		Notifications: notificationService,
		Forwarder:     forwarder,
		Workers:       cfg.Notification.Workers,
		Logger:        logger,
	})

	validator := dto.NewValidator()
	app := httptransport.NewApp(cfg.App, cfg.Storage.UploadMaxBytes, logger, metrics)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService, validator),
		Issues:         handlers.NewIssuesHandler(issueService, validator),
		Comments:       handlers.NewCommentsHandler(commentService, validator),
		Users:          handlers.NewUsersHandler(userService, issueService, validator),
		Uploads:        handlers.NewUploadsHandler(images, cfg.Storage.UploadMaxBytes),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo),
		IssueQuota:     ratelimit.New(redis.Client, "quota:issues", cfg.RateLimit.IssuesPerDay, 24*time.Hour),
		Metrics:        metrics,
		Logger:         logger,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	// Queued notifications are delivered before the pools close.
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("notification queue not drained", zap.Error(err))
	}
	if forwarder != nil {
		if err := forwarder.Close(); err != nil {
			logger.Warn("rabbitmq close", zap.Error(err))
		}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
