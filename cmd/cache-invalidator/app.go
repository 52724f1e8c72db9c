package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"forumpipe/internal/cache"
	"forumpipe/internal/cdc"
	"forumpipe/internal/config"
	"forumpipe/internal/constants"
	"forumpipe/internal/logger"
	"forumpipe/pkg/bootstrap"
	"forumpipe/pkg/health"
	"forumpipe/pkg/metrics"
	"forumpipe/pkg/tracing"
)

const serviceName = "cache-invalidator"

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	redis          *redis.Client
	invalidator    *cdc.Invalidator
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base:        bootstrap.NewBase(cfg, log, serviceName),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	ctx = a.Context(ctx)

	tp, err := tracing.Init(a.Config.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.Register()

	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	a.redis = rdb

	var store cache.Store = cache.NewRedisStore(a.redis, "post")
	if a.Config.CircuitBreaker.Enabled {
		store = cache.NewCircuitBreakerStore(store, "post-cache-invalidation", a.Config.CircuitBreaker)
		a.Logger.InfowCtx(ctx, "Circuit breaker enabled for post cache")
	}
	a.invalidator = cdc.NewInvalidator(store, a.Logger)

	if err := a.InitConsumer(constants.GroupCacheInvalidation); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	a.initHTTPServer()
	return nil
}

// The invalidator has no API; it only exposes health and metrics.
func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewRedisChecker(a.redis))
	healthRegistry.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = bootstrap.NewHTTPServer(a.Config.Server, mux)
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.ServeHTTP(gCtx, a.server)
	})

	g.Go(func() error {
		<-gCtx.Done()
		return bootstrap.ShutdownHTTP(context.Background(), a.server)
	})

	g.Go(func() error {
		return a.Consumer.Consume(gCtx, []string{a.Config.Broker.Kafka.Topics.PostsCDC}, a.invalidator.Handler())
	})

	err := g.Wait()
	return errors.Join(err, a.Shutdown(context.Background()))
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Base.Shutdown(ctx, func(ctx context.Context) []error {
		var errs []error

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		return append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, nil, nil)...)
	})
}
