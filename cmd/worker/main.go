package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/outdoorcamp/config"
	"github.com/Domenick1991/outdoorcamp/internal/cache"
	"github.com/Domenick1991/outdoorcamp/internal/email"
	"github.com/Domenick1991/outdoorcamp/internal/kafka"
	"github.com/Domenick1991/outdoorcamp/internal/logger"
	"github.com/Domenick1991/outdoorcamp/internal/repository"
	"github.com/Domenick1991/outdoorcamp/internal/service/notifications"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("load config")
	}
	if err := logger.Init(cfg.Log); err != nil {
		logger.Log.WithError(err).Fatal("init logger")
	}
	if cfg.Kafka.NotificationsTopic == "" {
		logger.Log.Fatal("kafka.notifications_topic is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Log.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Catalog.CacheTTL())
	defer redisCache.Close()

	sender := email.NewSender(cfg.SMTP)
	if !sender.Enabled() {
		logger.Log.Warn("smtp host not configured, notifications are logged only")
	}

	notifier := notifications.NewNotifier(
		redisCache,
		repository.NewUserRepository(pool),
		repository.NewBookingRepository(pool),
		sender,
		cfg.Worker.DedupTTL(),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	logger.Log.WithField("topic", cfg.Kafka.NotificationsTopic).Info("worker started")
	if err := consumer.Consume(ctx, notifier.HandleMessage); err != nil {
		logger.Log.WithError(err).Error("consumer stopped")
	}
	logger.Log.Info("worker stopped")
}
