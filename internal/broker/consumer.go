package broker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"forumpipe/internal/config"
	"forumpipe/internal/constants"
	"forumpipe/internal/logger"
	pkgerrors "forumpipe/pkg/errors"
	"forumpipe/pkg/logging"
	"forumpipe/pkg/metrics"
	"forumpipe/pkg/retry"
	"forumpipe/pkg/tracing"
)

// Terminal dispatch states. Both commit the offset.
const (
	StateAcked   = "ack"
	StateSkipped = "skipped"
)

// Skip reasons reported with StateSkipped.
const (
	ReasonDecode  = "decode"
	ReasonHandler = "handler"
	ReasonDLQ     = "dlq"
)

const (
	fetchErrorBackoff = time.Second

	headerDLQReason      = "x-dlq-reason"
	headerDLQSourceTopic = "x-dlq-source-topic"
	headerDLQPartition   = "x-dlq-partition"
	headerDLQOffset      = "x-dlq-offset"
	headerDLQTimestamp   = "x-dlq-timestamp"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer runs one or more group members over the same topics. Each member processes its
// partitions strictly in offset order: fetch, decode, handle, commit, then fetch the next one.
type KafkaConsumer struct {
	cfg         config.KafkaConfig
	logger      logger.Logger
	serviceName string
	dlqProducer Producer
	newReader   func(topics []string) messageReader

	mu        sync.Mutex
	readers   []messageReader
	closeOnce sync.Once
}

func NewKafkaConsumer(cfg config.KafkaConfig, log logger.Logger) *KafkaConsumer {
	c := &KafkaConsumer{
		cfg:         cfg,
		logger:      log,
		serviceName: "unknown",
	}
	c.newReader = c.kafkaReader

	if cfg.Consumer.DLQTopic != "" {
		c.dlqProducer = NewKafkaProducer(cfg, cfg.Consumer.GroupID, log, WithSynchronousWrites())
	}

	return c
}

func (c *KafkaConsumer) SetServiceName(name string) {
	c.serviceName = name
}

func (c *KafkaConsumer) kafkaReader(topics []string) messageReader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.cfg.Brokers,
		GroupID:     c.cfg.Consumer.GroupID,
		GroupTopics: topics,
		MinBytes:    constants.KafkaMinBytes,
		MaxBytes:    constants.KafkaMaxBytes,
		StartOffset: kafka.FirstOffset,
	})
}

// Consume blocks until ctx is cancelled or the consumer is closed. A message already fetched when
// ctx is cancelled is still handled and committed before Consume returns.
func (c *KafkaConsumer) Consume(ctx context.Context, topics []string, handler Handler) error {
	if len(topics) == 0 {
		return fmt.Errorf("no topics to consume")
	}

	workers := c.cfg.Consumer.Workers
	if workers <= 0 {
		workers = 1
	}

	consumeCtx := logging.WithServiceName(ctx, c.serviceName)
	c.logger.InfowCtx(consumeCtx, "Creating Kafka readers",
		"topics", topics,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.Consumer.GroupID,
		"workers", workers,
		"handler", handler.Name(),
	)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		r := c.newReader(topics)
		c.mu.Lock()
		c.readers = append(c.readers, r)
		c.mu.Unlock()

		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			c.run(consumeCtx, r, handler, worker)
		}(i)
	}

	wg.Wait()
	c.logger.InfowCtx(consumeCtx, "Stopped consuming", "topics", topics)
	return nil
}

func (c *KafkaConsumer) run(ctx context.Context, r messageReader, handler Handler, worker int) {
	c.logger.InfowCtx(ctx, "Started consuming", "worker", worker)

	// In-flight work outlives cancellation so a fetched message is never abandoned half way.
	drainCtx := context.WithoutCancel(ctx)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			c.logger.ErrorwCtx(ctx, "Error fetching kafka message",
				"error", err,
				"worker", worker,
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(fetchErrorBackoff):
			}
			continue
		}

		c.dispatch(drainCtx, r, handler, m)
	}
}

func (c *KafkaConsumer) dispatch(ctx context.Context, r messageReader, handler Handler, m kafka.Message) {
	start := time.Now()

	msgCtx, span := tracing.StartConsumerSpan(ctx, m, c.cfg.Consumer.GroupID)
	defer span.End()
	if traceID := tracing.TraceID(msgCtx); traceID != "" {
		msgCtx = logging.WithTraceID(msgCtx, traceID)
	}

	state, reason := c.process(msgCtx, handler, fromKafkaMessage(m))

	metrics.IncConsumerMessage(c.serviceName, m.Topic, state, reason)
	metrics.ObserveConsumerHandleDuration(c.serviceName, m.Topic, time.Since(start))

	if err := r.CommitMessages(msgCtx, m); err != nil {
		c.logger.ErrorwCtx(msgCtx, "Failed to commit message",
			"error", err,
			"topic", m.Topic,
			"partition", m.Partition,
			"offset", m.Offset,
		)
	}
}

func (c *KafkaConsumer) process(ctx context.Context, handler Handler, msg Message) (string, string) {
	value, err := decodeSafely(handler, msg)
	if err != nil {
		c.logger.WarnwCtx(ctx, "Skipping undecodable message",
			"error", err,
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		return StateSkipped, ReasonDecode
	}

	err = c.handleWithRetry(ctx, handler, value, msg.Topic)
	if err == nil {
		return StateAcked, ""
	}

	c.logger.ErrorwCtx(ctx, "Failed to handle message",
		"error", err,
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"handler", handler.Name(),
	)

	if c.dlqProducer == nil {
		return StateSkipped, ReasonHandler
	}
	if dlqErr := c.sendToDLQ(ctx, msg, err); dlqErr != nil {
		c.logger.ErrorwCtx(ctx, "Failed to send message to DLQ",
			"error", dlqErr,
			"topic", msg.Topic,
		)
		return StateSkipped, ReasonHandler
	}
	return StateSkipped, ReasonDLQ
}

func decodeSafely(handler Handler, msg Message) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.RecoverPanic(r)
		}
	}()
	return handler.decode(msg)
}

func (c *KafkaConsumer) handleOnce(ctx context.Context, handler Handler, value interface{}, topic string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.RecoverPanic(r)
			c.logger.ErrorwCtx(ctx, "Panic recovered during message processing",
				"error", err,
				"topic", topic,
			)
		}
	}()
	return handler.handle(ctx, value)
}

func (c *KafkaConsumer) handleWithRetry(ctx context.Context, handler Handler, value interface{}, topic string) error {
	policy := c.retryPolicy()
	if policy.MaxAttempts <= 1 {
		return c.handleOnce(ctx, handler, value, topic)
	}

	return retry.RetryWithCallback(ctx, policy, func() error {
		return c.handleOnce(ctx, handler, value, topic)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(c.serviceName, topic).Inc()
		c.logger.WarnwCtx(ctx, "Retrying message processing",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"topic", topic,
		)
	})
}

func (c *KafkaConsumer) retryPolicy() retry.Policy {
	rc := c.cfg.Consumer.Retry
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = rc.MaxAttempts
	policy.MaxElapsedTime = rc.MaxElapsedTime
	if rc.InitialInterval > 0 {
		policy.InitialInterval = rc.InitialInterval
	}
	if rc.MaxInterval > 0 {
		policy.MaxInterval = rc.MaxInterval
	}
	if rc.Multiplier > 0 {
		policy.Multiplier = rc.Multiplier
	}
	return policy
}

func (c *KafkaConsumer) sendToDLQ(ctx context.Context, msg Message, cause error) error {
	headers := make(map[string]string, len(msg.Headers)+5)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[headerDLQReason] = cause.Error()
	headers[headerDLQSourceTopic] = msg.Topic
	headers[headerDLQPartition] = strconv.Itoa(msg.Partition)
	headers[headerDLQOffset] = strconv.FormatInt(msg.Offset, 10)
	headers[headerDLQTimestamp] = time.Now().UTC().Format(time.RFC3339)

	err := c.dlqProducer.Publish(ctx, Message{
		Topic:   c.cfg.Consumer.DLQTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}

	metrics.DLQMessagesTotal.WithLabelValues(c.serviceName, msg.Topic, ReasonHandler).Inc()
	c.logger.InfowCtx(ctx, "Message sent to DLQ",
		"source_topic", msg.Topic,
		"dlq_topic", c.cfg.Consumer.DLQTopic,
		"reason", cause.Error(),
	)
	return nil
}

func (c *KafkaConsumer) Close() error {
	var errs []error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		readers := c.readers
		c.mu.Unlock()

		for _, r := range readers {
			if err := r.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if c.dlqProducer != nil {
			if err := c.dlqProducer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func fromKafkaMessage(m kafka.Message) Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		Topic:     m.Topic,
		Key:       m.Key,
		Value:     m.Value,
		Headers:   headers,
		Partition: m.Partition,
		Offset:    m.Offset,
		Time:      m.Time,
	}
}
