package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"forumpipe/internal/config"
	"forumpipe/internal/constants"
	"forumpipe/internal/logger"
	"forumpipe/pkg/metrics"
	"forumpipe/pkg/tracing"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ProducerOption func(*kafka.Writer)

// WithSynchronousWrites makes Publish wait for the broker acknowledgement and return its error.
func WithSynchronousWrites() ProducerOption {
	return func(w *kafka.Writer) {
		w.Async = false
		w.Completion = nil
	}
}

// KafkaProducer appends messages keyed by their entity id. The hash balancer maps one key to one
// partition, which is what gives per-entity ordering. By default writes are asynchronous: Publish
// returns once the message is queued and the outcome is only logged from the completion callback.
type KafkaProducer struct {
	writer      messageWriter
	logger      logger.Logger
	serviceName string
	async       bool
}

func NewKafkaProducer(cfg config.KafkaConfig, serviceName string, log logger.Logger, opts ...ProducerOption) *KafkaProducer {
	p := &KafkaProducer{
		logger:      log,
		serviceName: serviceName,
	}

	maxAttempts := cfg.Producer.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = constants.KafkaMaxAttempts
	}
	writeTimeout := cfg.Producer.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = constants.KafkaWriteTimeout
	}
	batchTimeout := cfg.Producer.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = constants.KafkaBatchTimeout
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            maxAttempts,
		BatchTimeout:           batchTimeout,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion:             p.onCompletion,
	}
	if cfg.ClientID != "" {
		w.Transport = &kafka.Transport{ClientID: cfg.ClientID}
	}

	for _, opt := range opts {
		opt(w)
	}

	p.writer = w
	p.async = w.Async
	return p
}

func (p *KafkaProducer) Publish(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	records := make([]kafka.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Topic == "" {
			return fmt.Errorf("message has no topic")
		}
		records = append(records, p.toKafkaMessage(ctx, msg))
	}

	err := p.writer.WriteMessages(ctx, records...)
	if err != nil {
		p.record(records, err)
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	if !p.async {
		p.record(records, nil)
	}
	return nil
}

func (p *KafkaProducer) toKafkaMessage(ctx context.Context, msg Message) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	headers = tracing.InjectTraceContext(ctx, headers)

	ts := msg.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return kafka.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    ts,
	}
}

// onCompletion runs on the writer's goroutine once a batch is acknowledged or has exhausted its
// transport retries. It must only log and count.
func (p *KafkaProducer) onCompletion(messages []kafka.Message, err error) {
	p.record(messages, err)
}

func (p *KafkaProducer) record(messages []kafka.Message, err error) {
	for _, m := range messages {
		if err != nil {
			metrics.IncEventPublished(p.serviceName, m.Topic, "failed")
			p.logger.Errorw("Failed to publish message",
				"topic", m.Topic,
				"key", string(m.Key),
				"error", err,
				"service_name", p.serviceName,
			)
			continue
		}
		metrics.IncEventPublished(p.serviceName, m.Topic, "success")
		p.logger.Debugw("Message published",
			"topic", m.Topic,
			"key", string(m.Key),
			"partition", m.Partition,
			"offset", m.Offset,
		)
	}
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
