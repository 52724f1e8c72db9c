package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"forumpipe/internal/comment"
	"forumpipe/internal/config"
	"forumpipe/internal/events"
	"forumpipe/internal/logger"
	"forumpipe/pkg/bootstrap"
	"forumpipe/pkg/health"
	"forumpipe/pkg/metrics"
	"forumpipe/pkg/migrations"
	"forumpipe/pkg/tracing"
)

const serviceName = "comment-service"

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	service        *comment.Service
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

	db, err := a.dbConnector.InitPostgreSQL(ctx, migrations.SetComments)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	a.db = db

	if err := a.InitProducer(); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	posts := comment.NewPostClient(a.Config.PostClient, a.Config.CircuitBreaker, a.Logger)
	emitter := events.NewEmitter(a.Producer, a.Config.Broker.Kafka.Topics, a.Logger)
	a.service = comment.NewService(comment.NewRepository(a.db), posts, emitter, a.Logger)

	registry := health.NewCheckerRegistry()
	registry.Register(health.NewPostgreSQLChecker(a.db))
	registry.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))

	router, api := a.NewRouter(ctx, registry)
	comment.NewHandler(a.service, a.Logger).RegisterRoutes(api)
	a.server = bootstrap.NewHTTPServer(a.Config.Server, router)

	a.Logger.InfowCtx(ctx, "Comment service initialized", "post_service", a.Config.PostClient.BaseURL)
	return nil
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

		return append(errs, a.dbConnector.ShutdownDatabases(ctx, nil, a.db, nil)...)
	})
}
