package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"forumpipe/internal/broker"
	"forumpipe/internal/config"
	"forumpipe/internal/logger"
	"forumpipe/pkg/logging"
)

// Base carries what every binary shares: configuration, logger and the broker clients it opened.
type Base struct {
	Config      *config.Config
	Logger      logger.Logger
	ServiceName string
	Producer    broker.Producer
	Consumer    broker.Consumer
}

func NewBase(cfg *config.Config, log logger.Logger, serviceName string) *Base {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &Base{
		Config:      cfg,
		Logger:      log,
		ServiceName: serviceName,
	}
}

// Context tags ctx with the service name for logging.
func (b *Base) Context(ctx context.Context) context.Context {
	return logging.WithServiceName(ctx, b.ServiceName)
}

func (b *Base) InitProducer() error {
	producer, err := broker.NewProducer(b.Config.Broker, b.ServiceName, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}
	b.Producer = producer
	return nil
}

// InitConsumer creates the group consumer. defaultGroupID applies when the config names none.
func (b *Base) InitConsumer(defaultGroupID string) error {
	if b.Config.Broker.Kafka.Consumer.GroupID == "" {
		b.Config.Broker.Kafka.Consumer.GroupID = defaultGroupID
	}
	consumer, err := broker.NewConsumer(b.Config.Broker, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	consumer.SetServiceName(b.ServiceName)
	b.Consumer = consumer
	return nil
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.Consumer != nil {
		if err := b.Consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	ctx = b.Context(ctx)
	b.Logger.InfowCtx(ctx, "Shutting down application")

	var errs []error

	// Stop consuming and flush pending writes before the stores they depend on close.
	errs = append(errs, b.ShutdownBroker()...)

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	b.Logger.InfowCtx(ctx, "Application exited successfully")
	return nil
}
