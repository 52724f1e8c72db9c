package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forumpipe/internal/config"
	"forumpipe/internal/logger"
)

type fakeWriter struct {
	written []kafka.Message
	err     error
	closed  bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewKafkaProducer_WriterSettings(t *testing.T) {
	cfg := config.KafkaConfig{
		Brokers:  []string{"localhost:9092"},
		Producer: config.ProducerConfig{MaxAttempts: 5},
	}
	p := NewKafkaProducer(cfg, "post-service", logger.NopLogger())

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Equal(t, 5, w.MaxAttempts)
	assert.True(t, w.Async)
	assert.NotNil(t, w.Completion)
	assert.True(t, p.async)
}

func TestNewKafkaProducer_Synchronous(t *testing.T) {
	p := NewKafkaProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, "dlq", logger.NopLogger(), WithSynchronousWrites())

	w := p.writer.(*kafka.Writer)
	assert.False(t, w.Async)
	assert.Nil(t, w.Completion)
	assert.False(t, p.async)
	assert.Equal(t, 3, w.MaxAttempts)
}

func TestKafkaProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, logger: logger.NopLogger(), serviceName: "post-service"}

	err := p.Publish(context.Background(), Message{
		Topic:   "post-created",
		Key:     []byte("42"),
		Value:   []byte(`{}`),
		Headers: map[string]string{"event-type": "PostCreated"},
	})
	require.NoError(t, err)

	require.Len(t, w.written, 1)
	got := w.written[0]
	assert.Equal(t, "post-created", got.Topic)
	assert.Equal(t, []byte("42"), got.Key)
	assert.False(t, got.Time.IsZero())
	assert.Contains(t, got.Headers, kafka.Header{Key: "event-type", Value: []byte("PostCreated")})
}

func TestKafkaProducer_PublishRejectsMissingTopic(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, logger: logger.NopLogger()}

	err := p.Publish(context.Background(), Message{Key: []byte("1")})
	assert.Error(t, err)
	assert.Empty(t, w.written)
}

func TestKafkaProducer_PublishWrapsWriterError(t *testing.T) {
	cause := errors.New("queue full")
	p := &KafkaProducer{writer: &fakeWriter{err: cause}, logger: logger.NopLogger()}

	err := p.Publish(context.Background(), Message{Topic: "t"})
	assert.ErrorIs(t, err, cause)
}

func TestKafkaProducer_CompletionDoesNotPanicOnFailure(t *testing.T) {
	p := &KafkaProducer{writer: &fakeWriter{}, logger: logger.NopLogger(), serviceName: "s"}
	assert.NotPanics(t, func() {
		p.onCompletion([]kafka.Message{{Topic: "t", Key: []byte("1")}}, errors.New("broker unreachable"))
	})
}
