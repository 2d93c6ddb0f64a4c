package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/notification-service/internal/api/http"
	"github.com/spec-kit/notification-service/internal/api/http/handlers"
	"github.com/spec-kit/notification-service/internal/auth"
	"github.com/spec-kit/notification-service/internal/config"
	"github.com/spec-kit/notification-service/internal/directory"
	"github.com/spec-kit/notification-service/internal/observability"
	"github.com/spec-kit/notification-service/internal/persistence"
	"github.com/spec-kit/notification-service/internal/push"
	"github.com/spec-kit/notification-service/internal/repository"
	"github.com/spec-kit/notification-service/internal/service"
	"github.com/spec-kit/notification-service/internal/stream"
)

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

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	notificationRepo := repository.NewNotificationRepository(pg.PoolHandle())
	directoryClient := directory.NewClient(cfg.Directory, logger)
	pusher := push.NewRedisPusher(redis.Client, cfg.Push.ChannelPrefix, logger)

	notificationService := service.NewNotificationService(notificationRepo, directoryClient, pusher, logger, metrics)
	producer := stream.NewProducer(redis.Client, logger)

	logConsumer := stream.NewConsumer(redis.Client, cfg.Stream,
		cfg.Stream.LogStream, cfg.Stream.LogGroup,
		notificationService.HandleLogEvent, logger, metrics)
	ticketConsumer := stream.NewConsumer(redis.Client, cfg.Stream,
		cfg.Stream.TicketStream, cfg.Stream.TicketGroup,
		notificationService.HandleTicketEvent, logger, metrics)

	for _, consumer := range []*stream.Consumer{logConsumer, ticketConsumer} {
		go func(c *stream.Consumer) {
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped", zap.Error(err))
			}
		}(consumer)
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Events:         handlers.NewEventsHandler(producer, cfg.Stream.LogStream, cfg.Stream.TicketStream),
		WS:             handlers.NewWSHandler(redis.Client, cfg.Push.ChannelPrefix, logger),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
