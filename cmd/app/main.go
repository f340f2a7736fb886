package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/outdoorcamp/api"
	"github.com/Domenick1991/outdoorcamp/config"
	"github.com/Domenick1991/outdoorcamp/internal/auth"
	"github.com/Domenick1991/outdoorcamp/internal/bootstrap"
	"github.com/Domenick1991/outdoorcamp/internal/cache"
	"github.com/Domenick1991/outdoorcamp/internal/kafka"
	"github.com/Domenick1991/outdoorcamp/internal/logger"
	"github.com/Domenick1991/outdoorcamp/internal/repository"
	"github.com/Domenick1991/outdoorcamp/internal/service/booking"
	"github.com/Domenick1991/outdoorcamp/internal/service/catalog"
	"github.com/Domenick1991/outdoorcamp/internal/service/payment"
	"github.com/Domenick1991/outdoorcamp/internal/service/reports"
	"github.com/Domenick1991/outdoorcamp/internal/service/users"
	"github.com/Domenick1991/outdoorcamp/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ulule/limiter/v3"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
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
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logger.Log.WithError(err).Fatal("init telemetry")
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Log.WithError(err).Warn("shutdown telemetry")
		}
	}()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Log.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	if err := repository.EnsureSchema(ctx, pool); err != nil {
		logger.Log.WithError(err).Fatal("ensure schema")
	}

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Catalog.CacheTTL())
	defer redisCache.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	checkCtx, cancelCheck := context.WithTimeout(ctx, 5*time.Second)
	if err := producer.CheckConnection(checkCtx); err != nil {
		logger.Log.WithError(err).Warn("kafka unavailable, events will be dropped until it recovers")
	}
	cancelCheck()

	productRepo := repository.NewProductRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	reportRepo := repository.NewReportRepository(pool)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())

	catalogService := catalog.NewCatalogService(productRepo, redisCache)
	bookingService := booking.NewBookingService(
		bookingRepo,
		redisCache,
		producer,
		cfg.Kafka.BookingEventsTopic,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	paymentService := payment.NewPaymentService(
		paymentRepo,
		bookingRepo,
		producer,
		cfg.Kafka.BookingEventsTopic,
		payment.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	userService := users.NewUserService(userRepo, tokens)
	reportService := reports.NewReportService(reportRepo)

	if cfg.Auth.AdminPassword != "" {
		if err := userService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminName, cfg.Auth.AdminPassword); err != nil {
			logger.Log.WithError(err).Fatal("seed admin")
		}
	} else {
		logger.Log.Warn("auth.admin_password is empty, skipping admin seed")
	}

	store, err := redisstore.NewStoreWithOptions(redisCache.Client(), limiter.StoreOptions{
		Prefix:   "rate_limiter:auth",
		MaxRetry: 3,
	})
	if err != nil {
		logger.Log.WithError(err).Fatal("create rate limiter store")
	}
	authLimiter, err := api.NewRateLimiter(store, cfg.Auth.LoginRate)
	if err != nil {
		logger.Log.WithError(err).Fatal("create rate limiter")
	}

	router := api.NewRouter(api.RouterConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		SwaggerDir:  cfg.HTTP.SwaggerDir,
		Tokens:      tokens,
		AuthLimiter: authLimiter,
		DB:          pool,
	}, api.Handlers{
		Auth:     api.NewAuthHandler(userService),
		Products: api.NewProductHandler(catalogService),
		Bookings: api.NewBookingHandler(bookingService),
		Payments: api.NewPaymentHandler(paymentService),
		Users:    api.NewUserHandler(userService),
		Reports:  api.NewReportHandler(reportService),
	})

	if err := bootstrap.Run(ctx, cfg, router, pool); err != nil {
		logger.Log.WithError(err).Fatal("server error")
	}
}
