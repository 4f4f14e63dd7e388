package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/banking/compliance-engine/internal/config"
	"github.com/banking/compliance-engine/internal/decision"
	"github.com/banking/compliance-engine/internal/idempotency"
	"github.com/banking/compliance-engine/internal/matching"
	"github.com/banking/compliance-engine/internal/pipeline"
	"github.com/banking/compliance-engine/internal/pkg/logger"
	"github.com/banking/compliance-engine/internal/pkg/telemetry"
	"github.com/banking/compliance-engine/internal/repository"
	"github.com/banking/compliance-engine/internal/rules"
	"github.com/banking/compliance-engine/internal/screening"
	transporthttp "github.com/banking/compliance-engine/internal/transport/http"
	"github.com/banking/compliance-engine/internal/transport/kafka"
)

const (
	claimTTL       = 10 * time.Minute
	claimRetention = 7 * 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Telemetry.ServiceName, cfg.Telemetry.Environment, cfg.Telemetry.Environment != "production")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, &cfg.Telemetry)
	if err != nil {
		log.Fatal("failed to initialize tracing", logger.ErrorField(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Error("tracer shutdown failed", logger.ErrorField(err))
		}
	}()

	// Shared infrastructure.
	redisClient := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer redisClient.Close()

	pool, err := repository.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer pool.Close()

	// Screening stack.
	scorer := matching.NewScorer()
	snapshotCache := screening.NewRedisSnapshotCache(redisClient, cfg.Redis.SnapshotTTL)

	adapters := make([]*screening.Adapter, 0, len(cfg.Screening.Sources))
	for source, url := range cfg.Screening.Sources {
		fetcher := screening.NewHTTPFetcher(source, url, cfg.Screening.FetchTimeout)
		adapter := screening.NewAdapter(fetcher, scorer, cfg.Redis.SnapshotTTL,
			cfg.Screening.BreakerFailureThreshold, cfg.Screening.BreakerOpenTimeout,
			log, screening.WithSnapshotCache(snapshotCache))
		adapters = append(adapters, adapter)
	}

	var fallback *screening.Adapter
	if cfg.Screening.FallbackURL != "" {
		fetcher := screening.NewHTTPFetcher(screening.SourceConsolidated, cfg.Screening.FallbackURL, cfg.Screening.FetchTimeout)
		fallback = screening.NewAdapter(fetcher, scorer, cfg.Redis.SnapshotTTL,
			cfg.Screening.BreakerFailureThreshold, cfg.Screening.BreakerOpenTimeout,
			log, screening.WithSnapshotCache(snapshotCache))
	}

	warmStart(ctx, adapters, fallback, log)
	go refreshLoop(ctx, adapters, fallback, cfg.Screening.RefreshInterval, log)

	orchestrator := screening.NewOrchestrator(adapters, fallback,
		screening.NewClassifier(), &cfg.Screening, log)

	// Rule and decision stack.
	engine := rules.NewEngine(&cfg.Rules, log)
	aggregator := decision.NewAggregator(&cfg.Decision, log)
	guard := idempotency.NewGuard(idempotency.NewRedisStore(redisClient), claimTTL, claimRetention, log)
	history := repository.NewPostgresHistoryRepository(pool)

	verdicts, err := kafka.NewVerdictProducer(&cfg.Kafka)
	if err != nil {
		log.Fatal("failed to create verdict producer", logger.ErrorField(err))
	}
	defer verdicts.Close()

	dispatcher := pipeline.NewPublishingDispatcher(verdicts, log)
	pipe := pipeline.NewPipeline(orchestrator, engine, aggregator, guard, history, dispatcher, log)

	// Kafka intake.
	deadLetter := kafka.NewDeadLetterProducer(verdicts, &cfg.Kafka)
	consumer, err := kafka.NewConsumer(&cfg.Kafka, pipe, deadLetter, log)
	if err != nil {
		log.Fatal("failed to create kafka consumer", logger.ErrorField(err))
	}
	go func() {
		if err := consumer.Run(ctx); err != nil {
			log.Error("kafka consumer stopped", logger.ErrorField(err))
		}
	}()
	defer consumer.Close()

	// HTTP API.
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%d", cfg.Server.MaxRequestSize)))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Security.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/v1", transporthttp.JWTMiddleware(cfg.Security.JWTSecret))
	transporthttp.NewHandler(pipe, log).Register(api)

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		if err := e.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", logger.ErrorField(err))
		}
	}()
	log.Info("server started", logger.StringField("addr", serverAddr))

	<-ctx.Done()
	log.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.Error("server shutdown failed", logger.ErrorField(err))
	}
	log.Info("server exited")
}

// warmStart restores cached snapshots and then attempts one live refresh
// per source so screening can begin immediately.
func warmStart(ctx context.Context, adapters []*screening.Adapter, fallback *screening.Adapter, log *logger.Logger) {
	all := adapters
	if fallback != nil {
		all = append(append([]*screening.Adapter{}, adapters...), fallback)
	}
	for _, adapter := range all {
		if err := adapter.LoadCached(ctx); err != nil {
			log.Warn("snapshot cache load failed",
				logger.StringField("source", adapter.Source()),
				logger.ErrorField(err))
		}
		if adapter.Stale() {
			if err := adapter.Refresh(ctx); err != nil {
				log.Warn("initial refresh failed",
					logger.StringField("source", adapter.Source()),
					logger.ErrorField(err))
			}
		}
	}
}

// refreshLoop re-fetches every source on the configured interval. A failed
// refresh keeps the previous snapshot; screening serves stale data rather
// than none.
func refreshLoop(ctx context.Context, adapters []*screening.Adapter, fallback *screening.Adapter, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			all := adapters
			if fallback != nil {
				all = append(append([]*screening.Adapter{}, adapters...), fallback)
			}
			for _, adapter := range all {
				if err := adapter.Refresh(ctx); err != nil {
					log.Warn("scheduled refresh failed",
						logger.StringField("source", adapter.Source()),
						logger.ErrorField(err))
				}
			}
		}
	}
}
