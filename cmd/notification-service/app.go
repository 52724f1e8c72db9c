package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"forumpipe/internal/config"
	"forumpipe/internal/constants"
	"forumpipe/internal/logger"
	"forumpipe/internal/notification"
	"forumpipe/pkg/bootstrap"
	"forumpipe/pkg/cel"
	"forumpipe/pkg/health"
	"forumpipe/pkg/metrics"
	"forumpipe/pkg/migrations"
	"forumpipe/pkg/tracing"
)

const serviceName = "notification-service"

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	mongo          *mongo.Client
	repo           notification.Repository
	hub            *notification.Hub
	router         *notification.Router
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base:        bootstrap.NewBase(cfg, log, serviceName),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
		hub:         notification.NewHub(),
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

	registry := health.NewCheckerRegistry()
	if err := a.initStore(ctx, registry); err != nil {
		return fmt.Errorf("failed to initialize notification store: %w", err)
	}

	if err := a.initRouter(ctx); err != nil {
		return fmt.Errorf("failed to initialize event router: %w", err)
	}

	if err := a.InitConsumer(constants.GroupNotification); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}
	registry.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))

	router, api := a.NewRouter(ctx, registry)
	service := notification.NewService(a.repo, a.Logger)
	notification.NewHandler(service, a.hub, a.Logger).RegisterRoutes(api)
	a.server = bootstrap.NewHTTPServer(a.Config.Server, router)

	return nil
}

func (a *App) initStore(ctx context.Context, registry *health.CheckerRegistry) error {
	store := strings.ToLower(a.Config.Notification.Store)

	switch store {
	case constants.NotificationStoreMongoDB:
		client, err := a.dbConnector.InitMongoDB(ctx)
		if err != nil {
			return err
		}
		a.mongo = client

		dbName := a.Config.Database.MongoDB.Database
		if dbName == "" {
			dbName = constants.DefaultMongoDBName
		}
		db := client.Database(dbName)
		if err := migrations.EnsureNotificationIndexes(ctx, db); err != nil {
			return err
		}
		a.repo = notification.NewMongoRepository(db)
		registry.Register(health.NewMongoDBChecker(client))

	default:
		db, err := a.dbConnector.InitPostgreSQL(ctx, migrations.SetNotifications)
		if err != nil {
			return err
		}
		a.db = db
		a.repo = notification.NewPostgresRepository(db)
		registry.Register(health.NewPostgreSQLChecker(db))
		store = constants.NotificationStorePostgres
	}

	a.Logger.InfowCtx(ctx, "Notification store ready", "store", store)
	return nil
}

func (a *App) initRouter(ctx context.Context) error {
	var rule *cel.Rule
	if expr := a.Config.Notification.Routing.PostCreatedEmail; expr != "" {
		evaluator, err := cel.NewEvaluator()
		if err != nil {
			return err
		}
		rule, err = evaluator.CompileFilter(expr)
		if err != nil {
			return fmt.Errorf("notification.routing.post_created_email: %w", err)
		}
		a.Logger.InfowCtx(ctx, "Post announcement filter enabled", "expression", rule.Expression())
	}

	mailer := notification.NewMailer(a.Config.Notification.Email, a.Logger)
	announcer := notification.NewPostAnnouncer(mailer, a.Config.Notification.Email, rule, a.Logger)
	materializer := notification.NewMaterializer(a.repo, a.hub, a.Logger)

	a.router = notification.NewRouter(materializer, announcer, a.Logger)
	return nil
}

func (a *App) topics() []string {
	t := a.Config.Broker.Kafka.Topics
	return []string{t.PostCreated, t.PostUpdated, t.PostDeleted, t.CommentCreated}
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
		return a.Consumer.Consume(gCtx, a.topics(), a.router.Handler())
	})

	err := g.Wait()
	// Consume returns once in-flight messages are committed; only then are the clients closed.
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

		return append(errs, a.dbConnector.ShutdownDatabases(ctx, nil, a.db, a.mongo)...)
	})
}
