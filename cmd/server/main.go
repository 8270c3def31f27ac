// Package main provides the API server entry point for the ID scanner service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/id-scanner/internal/api"
	"github.com/id-scanner/internal/circuitbreaker"
	"github.com/id-scanner/internal/config"
	"github.com/id-scanner/internal/logging"
	"github.com/id-scanner/internal/lookup"
	"github.com/id-scanner/internal/payment"
	"github.com/id-scanner/internal/retry"
	"github.com/id-scanner/internal/service"
	"github.com/id-scanner/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("ID scanner API server starting")

	ctx := context.Background()
	checks := make(map[string]api.HealthCheck)

	// Postgres holds records, payments and (by default) profiles
	postgres, err := retry.Connect(ctx, "postgres", func(ctx context.Context) (*storage.PostgresDB, error) {
		return storage.NewPostgresDB(ctx, &cfg.Database.Postgres)
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()
	checks["postgres"] = postgres.Ping

	redisCache, err := retry.Connect(ctx, "redis", func(ctx context.Context) (*storage.RedisCache, error) {
		return storage.NewRedisCache(ctx, &cfg.Database.Redis)
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisCache.Close()
	checks["redis"] = redisCache.Ping

	var (
		events    service.ScanEventRecorder
		analytics service.ScanAnalytics
	)
	if cfg.Database.ClickHouse.Host != "" {
		clickhouse, err := retry.Connect(ctx, "clickhouse", func(ctx context.Context) (*storage.ClickHouseDB, error) {
			return storage.NewClickHouseDB(ctx, &cfg.Database.ClickHouse)
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to ClickHouse")
		}
		defer clickhouse.Close()
		checks["clickhouse"] = clickhouse.Ping

		eventRepo := storage.NewScanEventRepository(clickhouse)
		events, analytics = eventRepo, eventRepo
	} else {
		logger.Warn("ClickHouse not configured, scan analytics disabled")
	}

	var photos service.PhotoURLSigner
	if cfg.Storage.Bucket != "" {
		photoStore, err := storage.NewPhotoStore(ctx, &cfg.Storage)
		if err != nil {
			logger.WithError(err).Fatal("Failed to configure photo storage")
		}
		photos = photoStore
	} else {
		logger.Warn("Photo bucket not configured, photo URLs disabled")
	}

	var profiles service.ProfileStore
	switch cfg.Entitlement.ProfileBackend {
	case "redis":
		profiles = storage.NewRedisProfileStore(redisCache)
	case "", "postgres":
		profiles = storage.NewProfileRepository(postgres)
	default:
		logger.WithField("backend", cfg.Entitlement.ProfileBackend).Fatal("Unknown profile backend")
	}

	var (
		gateway payment.Gateway
		breaker *circuitbreaker.CircuitBreaker
	)
	if cfg.Payment.PayMongoSecretKey != "" {
		client := payment.NewPayMongoClient(cfg.Payment.PayMongoBaseURL, cfg.Payment.PayMongoSecretKey, cfg.Payment.Timeout)
		gateway, breaker = client, client.Breaker()
	} else {
		logger.Warn("PayMongo secret key not configured, upgrades disabled")
	}

	records := storage.NewScanRecordRepository(postgres)
	payments := storage.NewPaymentRepository(postgres)
	cache := storage.NewCacheService(redisCache, cfg.Cache.StatisticsTTL)

	entitlements := service.NewEntitlementService(profiles, cfg.Entitlement.ExpiringSoonDays)
	orchestrator := lookup.NewOrchestrator(records, cfg.Lookup.Timeout)
	scans := service.NewScanService(entitlements, orchestrator, events, photos, service.NewLookupMonitor())
	subscriptions := service.NewSubscriptionService(entitlements, gateway, payments, cfg.Payment.ReturnURL)
	history := service.NewHistoryService(records, entitlements, photos, analytics, cache)

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		FreeRPS:         cfg.RateLimit.FreeRPS,
		ProRPS:          cfg.RateLimit.ProRPS,
	}

	server := api.NewServer(serverConfig, api.Services{
		Scans:          scans,
		Entitlements:   entitlements,
		Subscriptions:  subscriptions,
		History:        history,
		PaymentBreaker: breaker,
		Checks:         checks,
	})

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host":           cfg.Server.Host,
		"port":           cfg.Server.Port,
		"profileBackend": cfg.Entitlement.ProfileBackend,
	}).Info("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	logger.Info("Server exited")
}
