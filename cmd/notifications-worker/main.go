package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/estore-backend/internal/blacklist"
	"github.com/angelmondragon/estore-backend/internal/inventory"
	"github.com/angelmondragon/estore-backend/internal/notifications"
	"github.com/angelmondragon/estore-backend/internal/orders"
	"github.com/angelmondragon/estore-backend/internal/shipping"
	"github.com/angelmondragon/estore-backend/pkg/config"
	"github.com/angelmondragon/estore-backend/pkg/db"
	"github.com/angelmondragon/estore-backend/pkg/instance"
	"github.com/angelmondragon/estore-backend/pkg/logger"
	"github.com/angelmondragon/estore-backend/pkg/mail"
	"github.com/angelmondragon/estore-backend/pkg/metrics"
	"github.com/angelmondragon/estore-backend/pkg/migrate"
	"github.com/angelmondragon/estore-backend/pkg/outbox"
	"github.com/angelmondragon/estore-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/estore-backend/pkg/pubsub"
	"github.com/angelmondragon/estore-backend/pkg/redis"
)

func main() {
	bootLog := logger.New(logger.Options{ServiceName: "notifications-worker"})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "notifications-worker"

	logg := logger.New(logger.Options{
		ServiceName: cfg.Service.Kind,
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  cfg.Service.Kind,
		"instance":     instance.GetID(),
		"subscription": cfg.PubSub.NotificationSubscription,
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "notification worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "notification worker shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.SubscriberResources(cfg.PubSub), logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub client", err)
		}
	}()

	mailer, err := mail.New(cfg.Sendgrid, logg)
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}
	tracker, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("create idempotency manager: %w", err)
	}
	orderReader, err := buildOrderReader(dbClient, logg)
	if err != nil {
		return fmt.Errorf("create order service: %w", err)
	}

	subscription := pubsubClient.NotificationSubscription()
	if subscription == nil {
		return errors.New("notification subscription not configured")
	}
	consumer, err := notifications.NewConsumer(orderReader, mailer, subscription, tracker, logg)
	if err != nil {
		return fmt.Errorf("create notification consumer: %w", err)
	}

	service, err := NewService(ServiceParams{
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		PubSub:   pubsubClient,
		Consumer: consumer,
	})
	if err != nil {
		return fmt.Errorf("create notification worker: %w", err)
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Metrics.Addr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(ctx, "metrics listener failed", err)
		}
	}()

	logg.Info(ctx, "starting notification worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// buildOrderReader wires the order service the consumer reads orders from.
// The worker never mutates orders, but the service needs its full stack.
func buildOrderReader(dbClient *db.Client, logg *logger.Logger) (orders.Service, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	inv, err := inventory.NewService(dbClient, inventory.NewRepository(conn), inventory.NewReconciler(emitter, logg), logg)
	if err != nil {
		return nil, err
	}
	return orders.NewService(
		orders.NewRepository(conn),
		dbClient,
		inv,
		shipping.NewService(conn, logg),
		blacklist.NewService(conn),
		emitter,
		nil,
		logg,
	)
}
