package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetLogFields(ctx))

	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithEventID(ctx, "evt-1")
	ctx = WithServiceName(ctx, "notification-service")

	assert.Equal(t, []interface{}{
		"trace_id", "trace-1",
		"event_id", "evt-1",
		"service_name", "notification-service",
	}, GetLogFields(ctx))
	assert.Equal(t, "evt-1", GetEventID(ctx))
	assert.Empty(t, GetRequestID(ctx))
}
