package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/lethalgem/accountability-app/internal/api/http"
	"github.com/lethalgem/accountability-app/internal/api/http/handlers"
	"github.com/lethalgem/accountability-app/internal/auth"
	"github.com/lethalgem/accountability-app/internal/config"
	"github.com/lethalgem/accountability-app/internal/events"
	"github.com/lethalgem/accountability-app/internal/notify"
	"github.com/lethalgem/accountability-app/internal/observability"
	"github.com/lethalgem/accountability-app/internal/persistence"
	"github.com/lethalgem/accountability-app/internal/repository"
	"github.com/lethalgem/accountability-app/internal/repository/memory"
	"github.com/lethalgem/accountability-app/internal/service"
	"github.com/lethalgem/accountability-app/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var store repository.Store
	if pg.Enabled() {
		store = repository.NewPostgresStore(pg.PoolHandle())
	} else {
		store = memory.NewStore(nil)
	}

	var redis *persistence.Redis
	if cfg.Notification.Queue == config.QueueRedis {
		redis = persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
	}

	queue, err := newQueue(ctx, cfg.Notification, redis)
	if err != nil {
		logger.Fatal("failed to init notification queue", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	service.NewNotificationService(dispatcher, store.Users(), queue, logger).RegisterHandlers()

	authService := service.NewAuthService(cfg.Auth, store)
	proposalService := service.NewProposalService(service.ProposalDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	ledgerService := service.NewLedgerService(store)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), store.Users())

	var workers sync.WaitGroup
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	notificationWorker := worker.NewNotificationWorker(queue, newSender(cfg.Notification, logger), logger, metrics)
	sweeper := worker.NewOverdueSweeper(proposalService, cfg.Sweep.Interval(), logger, metrics)
	for _, run := range []func(context.Context){notificationWorker.Run, sweeper.Run} {
		workers.Add(1)
		go func(run func(context.Context)) {
			defer workers.Done()
			run(workerCtx)
		}(run)
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Proposals:      handlers.NewProposalsHandler(proposalService),
		Ledger:         handlers.NewLedgerHandler(ledgerService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	// Let handlers of already committed transitions enqueue before the worker stops.
	dispatcher.Wait()
	stopWorkers()
	workers.Wait()
}

func newQueue(ctx context.Context, cfg config.NotificationConfig, redis *persistence.Redis) (notify.Queue, error) {
	switch cfg.Queue {
	case config.QueueRedis:
		return notify.NewRedisQueue(redis.Client, cfg.RedisKey), nil
	case config.QueueSQS:
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return notify.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL), nil
	default:
		return notify.NewChannelQueue(cfg.QueueBuffer), nil
	}
}

func newSender(cfg config.NotificationConfig, logger *zap.Logger) notify.Sender {
	resend := notify.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom, cfg.ResendURL, cfg.SendTimeout())
	if resend.Enabled() {
		return resend
	}
	logger.Info("RESEND_API_KEY not configured; notifications are logged instead of emailed")
	return notify.LogSender{Logger: logger}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
