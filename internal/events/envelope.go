package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"forumpipe/internal/broker"
	pkgerrors "forumpipe/pkg/errors"
)

// Envelope is the wire form of one domain event. Payload stays raw so consumers ignore fields
// they do not know.
type Envelope struct {
	EventID    string          `json:"eventId,omitempty"`
	EventType  EventType       `json:"eventType"`
	EntityID   string          `json:"entityId"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt Timestamp       `json:"occurredAt"`
	EmittedAt  Timestamp       `json:"emittedAt"`
}

// Event is a decoded envelope with its typed payload.
type Event struct {
	Envelope Envelope
	Payload  Payload
}

type EnvelopeBuilder struct {
	payload    Payload
	eventID    string
	occurredAt time.Time
	emittedAt  time.Time
}

func NewEnvelopeBuilder(payload Payload) *EnvelopeBuilder {
	return &EnvelopeBuilder{payload: payload}
}

func (b *EnvelopeBuilder) WithEventID(id string) *EnvelopeBuilder {
	b.eventID = id
	return b
}

func (b *EnvelopeBuilder) WithOccurredAt(t time.Time) *EnvelopeBuilder {
	b.occurredAt = t
	return b
}

func (b *EnvelopeBuilder) WithEmittedAt(t time.Time) *EnvelopeBuilder {
	b.emittedAt = t
	return b
}

// Build validates the payload and freezes it into an envelope.
func (b *EnvelopeBuilder) Build() (Envelope, error) {
	if b.payload == nil {
		return Envelope{}, pkgerrors.ErrValidation.WithMessage("payload is required")
	}
	if err := b.payload.Validate(); err != nil {
		return Envelope{}, err
	}

	raw, err := json.Marshal(b.payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", b.payload.EventType(), err)
	}

	emittedAt := b.emittedAt
	if emittedAt.IsZero() {
		emittedAt = time.Now()
	}
	occurredAt := b.occurredAt
	if occurredAt.IsZero() {
		occurredAt = emittedAt
	}
	eventID := b.eventID
	if eventID == "" {
		eventID = uuid.New().String()
	}

	return Envelope{
		EventID:    eventID,
		EventType:  b.payload.EventType(),
		EntityID:   b.payload.PartitionKey(),
		Payload:    raw,
		OccurredAt: NewTimestamp(occurredAt),
		EmittedAt:  NewTimestamp(emittedAt),
	}, nil
}

// Decode parses an envelope and its payload. Anything it cannot fully trust is an error: unknown
// event type, missing payload, malformed fields or a payload missing its required ids.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("invalid envelope: %w", err)
	}
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return Event{}, pkgerrors.ErrValidation.WithMessage("envelope %s has no payload", env.EventType)
	}

	var payload Payload
	var err error
	switch env.EventType {
	case TypePostCreated:
		payload, err = unmarshalPayload[PostCreated](env.Payload)
	case TypePostUpdated:
		payload, err = unmarshalPayload[PostUpdated](env.Payload)
	case TypePostDeleted:
		payload, err = unmarshalPayload[PostDeleted](env.Payload)
	case TypeCommentCreated:
		payload, err = unmarshalPayload[CommentCreated](env.Payload)
	default:
		return Event{}, pkgerrors.ErrValidation.WithMessage("unknown event type %q", env.EventType)
	}
	if err != nil {
		return Event{}, fmt.Errorf("invalid %s payload: %w", env.EventType, err)
	}
	if err := payload.Validate(); err != nil {
		return Event{}, err
	}

	if env.EntityID == "" {
		env.EntityID = payload.PartitionKey()
	}

	return Event{Envelope: env, Payload: payload}, nil
}

func unmarshalPayload[T Payload](raw json.RawMessage) (Payload, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// DecodeMessage is the broker decode step for domain-event topics.
func DecodeMessage(m broker.Message) (Event, error) {
	return Decode(m.Value)
}
