package broker

import (
	"context"
	"time"
)

// Message is the transport-neutral view of one record on the bus.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Time      time.Time
}

type Producer interface {
	Publish(ctx context.Context, msgs ...Message) error
	Close() error
}

// Consumer reads topics under one consumer group and blocks until ctx is cancelled and in-flight
// messages are drained.
type Consumer interface {
	Consume(ctx context.Context, topics []string, handler Handler) error
	Close() error
	SetServiceName(name string)
}

// Handler is a decode step followed by a side-effect step. Keeping them apart lets the dispatcher
// tell an undecodable message (skip, never retried) from a failed side effect.
type Handler struct {
	name   string
	decode func(Message) (interface{}, error)
	handle func(context.Context, interface{}) error
}

// NewHandler binds a typed decoder to a typed side effect.
func NewHandler[T any](name string, decode func(Message) (T, error), handle func(context.Context, T) error) Handler {
	return Handler{
		name: name,
		decode: func(m Message) (interface{}, error) {
			return decode(m)
		},
		handle: func(ctx context.Context, v interface{}) error {
			return handle(ctx, v.(T))
		},
	}
}

func (h Handler) Name() string {
	return h.name
}
