package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VCongNam/CinemaGo-sub001/internal/config"
	"github.com/VCongNam/CinemaGo-sub001/internal/events"
	"github.com/VCongNam/CinemaGo-sub001/internal/httpapi"
	"github.com/VCongNam/CinemaGo-sub001/internal/metrics"
	"github.com/VCongNam/CinemaGo-sub001/internal/oplog"
	"github.com/VCongNam/CinemaGo-sub001/internal/payos"
	"github.com/VCongNam/CinemaGo-sub001/internal/scheduler"
	"github.com/VCongNam/CinemaGo-sub001/internal/store/gormstore"
	"github.com/VCongNam/CinemaGo-sub001/pkg/booking"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func runServer(ctx context.Context, cfg config.Config) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	metrics.Register()

	gormDB, cleanup, driver, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()
	if driver == driverSQLite {
		if err := gormstore.Migrate(ctx, gormDB); err != nil {
			return err
		}
	}

	gateway, err := payos.New(payos.Config{
		ClientID:    cfg.PayOS.ClientID,
		APIKey:      cfg.PayOS.APIKey,
		ChecksumKey: cfg.PayOS.ChecksumKey,
		BaseURL:     cfg.PayOS.BaseURL,
		ReturnURL:   cfg.PayOS.ReturnURL,
		CancelURL:   cfg.PayOS.CancelURL,
		Timeout:     cfg.PayOS.Timeout,
	})
	if err != nil {
		return fmt.Errorf("payment gateway init: %w", err)
	}

	publisher, err := events.NewPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		return fmt.Errorf("event publisher init: %w", err)
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			logger.Warn("event publisher close", zap.Error(closeErr))
		}
	}()

	service, err := booking.NewService(
		gormstore.New(gormDB),
		func() time.Time { return time.Now().UTC() },
		booking.WithOperationLogger(oplog.New(logger)),
		booking.WithEventPublisher(publisher),
		booking.WithPaymentGateway(gateway),
		booking.WithHoldTTL(cfg.HoldTTL),
	)
	if err != nil {
		return fmt.Errorf("booking service init: %w", err)
	}

	jobs, err := scheduler.New(service, logger, scheduler.Options{
		SweepInterval: cfg.SweepInterval,
		CloseInterval: cfg.ShowtimeCloseInterval,
	})
	if err != nil {
		return err
	}
	jobs.Start()
	defer func() {
		if shutdownErr := jobs.Shutdown(); shutdownErr != nil {
			logger.Warn("scheduler shutdown", zap.Error(shutdownErr))
		}
	}()

	var limiter httpapi.Limiter
	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = redisClient.Close() }()
		if pingErr := redisClient.Ping(ctx).Err(); pingErr != nil {
			logger.Warn("redis unreachable, rate limiter will fail open", zap.Error(pingErr))
		}
		limiter = httpapi.NewRedisLimiter(redisClient, cfg.RateLimit.Capacity, cfg.RateLimit.RefillInterval)
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := httpapi.NewRouter(httpapi.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
		JWTIssuer:      cfg.JWTIssuer,
		RequestTimeout: cfg.RequestTimeout,
	}, httpapi.Dependencies{
		Service: service,
		Logger:  logger,
		Limiter: limiter,
	})
	if err != nil {
		return err
	}
	logger.Info("cinemad starting",
		zap.String("driver", driver),
		zap.Duration("hold_ttl", cfg.HoldTTL),
		zap.Bool("rate_limit", limiter != nil),
		zap.Bool("events", cfg.RabbitMQURL != ""),
	)
	return httpapi.Run(ctx, cfg.ListenAddr, router, logger)
}

func runMigrate(ctx context.Context, cfg config.Config) error {
	gormDB, cleanup, driver, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()
	if err := gormstore.Migrate(ctx, gormDB); err != nil {
		return err
	}
	fmt.Printf("schema migrated (%s)\n", driver)
	return nil
}

func runSweep(ctx context.Context, cfg config.Config) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, _, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()

	service, err := booking.NewService(
		gormstore.New(gormDB),
		func() time.Time { return time.Now().UTC() },
		booking.WithOperationLogger(oplog.New(logger)),
		booking.WithHoldTTL(cfg.HoldTTL),
	)
	if err != nil {
		return fmt.Errorf("booking service init: %w", err)
	}
	jobs, err := scheduler.New(service, logger, scheduler.Options{})
	if err != nil {
		return err
	}
	result, runErr := jobs.RunOnce(ctx)
	shutdownErr := jobs.Shutdown()
	logger.Info("sweep finished", zap.Int("expired", result.Expired), zap.Int("closed", result.Closed))
	return errors.Join(runErr, shutdownErr)
}
