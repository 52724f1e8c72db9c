package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"forumpipe/internal/cache"
	"forumpipe/internal/config"
	"forumpipe/internal/events"
	"forumpipe/internal/logger"
	"forumpipe/internal/post"
	"forumpipe/pkg/bootstrap"
	"forumpipe/pkg/health"
	"forumpipe/pkg/metrics"
	"forumpipe/pkg/migrations"
	"forumpipe/pkg/tracing"
)

const serviceName = "post-service"

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redis          *redis.Client
	service        *post.Service
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

	db, err := a.dbConnector.InitPostgreSQL(ctx, migrations.SetPosts)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	a.db = db

	// The cache is optional: without Redis every read goes to PostgreSQL.
	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		a.Logger.WarnwCtx(ctx, "Redis unavailable, post cache disabled", "error", err)
	} else {
		a.redis = rdb
	}

	if err := a.InitProducer(); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	a.initService(ctx)
	a.initHTTPServer(ctx)

	return nil
}

func (a *App) initService(ctx context.Context) {
	opts := []post.ServiceOption{
		post.WithEmitter(events.NewEmitter(a.Producer, a.Config.Broker.Kafka.Topics, a.Logger)),
	}

	if a.redis != nil {
		var store cache.Store = cache.NewRedisStore(a.redis, "post")
		if a.Config.CircuitBreaker.Enabled {
			store = cache.NewCircuitBreakerStore(store, "post-cache", a.Config.CircuitBreaker)
			a.Logger.InfowCtx(ctx, "Circuit breaker enabled for post cache")
		}
		opts = append(opts, post.WithCache(store, a.Config.Cache.PostTTL))
	}

	a.service = post.NewService(post.NewRepository(a.db), a.Logger, opts...)
}

func (a *App) initHTTPServer(ctx context.Context) {
	registry := health.NewCheckerRegistry()
	registry.Register(health.NewPostgreSQLChecker(a.db))
	if a.redis != nil {
		registry.Register(health.NewRedisChecker(a.redis))
	}
	registry.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))

	router, api := a.NewRouter(ctx, registry)
	post.NewHandler(a.service, a.Logger).RegisterRoutes(api)

	a.server = bootstrap.NewHTTPServer(a.Config.Server, router)
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

	err := g.Wait()
	// The server is drained before the producer its handlers emit through is closed.
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

		return append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.db, nil)...)
	})
}
