package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"

	"pulse-service/client"
	"pulse-service/config"
	"pulse-service/logger"
	"pulse-service/metrics"
	fiberprometheus "pulse-service/middlewares/prometheus"
	"pulse-service/pool"
	"pulse-service/ppg"
	"pulse-service/routes"
	"pulse-service/storage"

	"github.com/dgraph-io/ristretto/v2"
)

func main() {
	config, err := env.ParseAs[config.Config]()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logger.New(config.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	if config.Metrics == nil {
		metrics := true
		config.Metrics = &metrics
	}

	cacheConfig := &ristretto.Config[string, routes.CacheValue]{
		NumCounters: 1e7,     // number of keys to track frequency of (10M).
		MaxCost:     1 << 30, // maximum cost of cache (1GB).
		BufferItems: 64,      // number of keys per Get buffer.
	}

	if config.CacheBufferItems > 0 {
		cacheConfig.BufferItems = config.CacheBufferItems
	}

	if config.CacheMaxCost > 0 {
		cacheConfig.MaxCost = config.CacheMaxCost
	}

	if config.CacheNumCounters > 0 {
		cacheConfig.NumCounters = config.CacheNumCounters
	}

	if config.CacheTTL == 0 {
		config.CacheTTL = 1800 // 30 minutes
	}

	if config.HTTPCacheTTL == 0 {
		config.HTTPCacheTTL = config.CacheTTL
	}

	cache, err := ristretto.NewCache(cacheConfig)
	if err != nil {
		logger.Fatal("failed to create cache", zap.Error(err))
	}
	defer cache.Close()

	client.SetTimeout(time.Duration(config.FetchTimeout) * time.Second)

	// Raw frames arrive in the body; videos arrive as multipart uploads.
	bodyLimit := max(ppg.FrameLength(config.MaxFrameWidth, config.MaxFrameHeight), config.MaxVideoSize*1024*1024) + 1024*1024

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Prefork:               config.Prefork,
		BodyLimit:             bodyLimit,
	})

	prometheusModule := fiberprometheus.New("pulse-service")
	prometheusModule.RegisterAt(app, "/metrics")

	prometheusRegistry := prometheusModule.GetRegistry()
	counters := metrics.InitializeMetrics(prometheusRegistry, prometheusModule.GetConstLabels())
	perf := metrics.InitializePerformanceMetrics(prometheusRegistry, prometheusModule.GetConstLabels())

	if *config.Metrics {
		app.Use(prometheusModule.Middleware)
	}

	app.Use(healthcheck.New())
	app.Use(compress.New())

	if config.RateLimitMax > 0 {
		limiterCache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
			NumCounters: 1e5,
			MaxCost:     1 << 24,
			BufferItems: 64,
		})
		if err != nil {
			logger.Fatal("failed to create rate limiter cache", zap.Error(err))
		}

		app.Use(limiter.New(limiter.Config{
			Max:        config.RateLimitMax,
			Expiration: time.Duration(config.RateLimitWindow) * time.Second,
			Storage:    storage.NewRistrettoStorage(limiterCache),
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/metrics"
			},
		}))
	}

	var archive *storage.SignalArchive
	if config.S3Enabled {
		archive, err = storage.NewSignalArchive(storage.SignalArchiveConfig{
			Endpoint:  config.S3Endpoint,
			AccessKey: config.S3AccessKey,
			SecretKey: config.S3SecretKey,
			UseSSL:    config.S3UseSSL,
			Bucket:    config.S3Bucket,
			Prefix:    config.S3Prefix,
		})
		if err != nil {
			logger.Fatal("failed to create signal archive", zap.Error(err))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = archive.EnsureBucket(ctx)
		cancel()
		if err != nil {
			logger.Fatal("failed to prepare signal archive bucket", zap.Error(err), zap.String("bucket", config.S3Bucket))
		}

		logger.Info("signal archive enabled", zap.String("endpoint", config.S3Endpoint), zap.String("bucket", config.S3Bucket))
	}

	origins := pool.NewOriginValidator(config.AllowedOrigins)

	routes.RegisterFrameRoutes(logger, cache, &config, app, counters, perf, origins)
	routes.RegisterImageRoutes(logger, cache, &config, app, counters, perf)
	routes.RegisterVideoRoutes(logger, &config, app, counters, perf, origins, archive)

	logger.Info("server starting", zap.String("address", config.Address))

	if err := app.Listen(config.Address); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
