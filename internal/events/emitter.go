package events

import (
	"context"
	"encoding/json"
	"time"

	"forumpipe/internal/broker"
	"forumpipe/internal/config"
	"forumpipe/internal/logger"
	"forumpipe/pkg/logging"
)

const (
	HeaderEventType = "event-type"
	HeaderEventID   = "event-id"
)

// Emitter publishes domain events after a successful mutation. It never reports failure to the
// caller: a mutation that committed stays committed whatever the bus does.
type Emitter struct {
	producer broker.Producer
	topics   map[EventType]string
	logger   logger.Logger
}

func NewEmitter(producer broker.Producer, topics config.TopicsConfig, log logger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		topics: map[EventType]string{
			TypePostCreated:    topics.PostCreated,
			TypePostUpdated:    topics.PostUpdated,
			TypePostDeleted:    topics.PostDeleted,
			TypeCommentCreated: topics.CommentCreated,
		},
		logger: log,
	}
}

// Emit builds the envelope and hands it to the producer.
func (e *Emitter) Emit(ctx context.Context, payload Payload, occurredAt time.Time) {
	if e == nil || e.producer == nil {
		return
	}
	// The request may finish before the write does.
	ctx = context.WithoutCancel(ctx)

	env, err := NewEnvelopeBuilder(payload).WithOccurredAt(occurredAt).Build()
	if err != nil {
		e.logger.ErrorwCtx(ctx, "Failed to build event envelope",
			"event_type", payload.EventType(),
			"error", err,
		)
		return
	}
	ctx = logging.WithEventID(ctx, env.EventID)

	topic, ok := e.topics[env.EventType]
	if !ok || topic == "" {
		e.logger.ErrorwCtx(ctx, "No topic configured for event type", "event_type", env.EventType)
		return
	}

	body, err := json.Marshal(env)
	if err != nil {
		e.logger.ErrorwCtx(ctx, "Failed to marshal event envelope",
			"event_type", env.EventType,
			"error", err,
		)
		return
	}

	err = e.producer.Publish(ctx, broker.Message{
		Topic: topic,
		Key:   []byte(env.EntityID),
		Value: body,
		Headers: map[string]string{
			HeaderEventType: string(env.EventType),
			HeaderEventID:   env.EventID,
		},
		Time: env.EmittedAt.Time,
	})
	if err != nil {
		e.logger.ErrorwCtx(ctx, "Failed to publish event",
			"event_type", env.EventType,
			"entity_id", env.EntityID,
			"topic", topic,
			"error", err,
		)
		return
	}

	e.logger.DebugwCtx(ctx, "Event emitted",
		"event_type", env.EventType,
		"entity_id", env.EntityID,
		"topic", topic,
	)
}
