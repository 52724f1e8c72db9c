package cel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forumpipe/internal/events"
)

func postCreatedEnvelope(t *testing.T, title, author string, postID int64) events.Envelope {
	t.Helper()
	env, err := events.NewEnvelopeBuilder(events.PostCreated{
		PostID:         events.ID(postID),
		Title:          title,
		Content:        "body",
		AuthorID:       "u1",
		AuthorUsername: author,
	}).WithOccurredAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)).Build()
	require.NoError(t, err)
	return env
}

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{"valid payload comparison", `payload.title == "x"`, false},
		{"valid envelope field", `eventType == "PostCreated"`, false},
		{"invalid syntax", `invalid syntax here!!!`, true},
		{"undefined variable", `undefinedVar == "test"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCompileFilter_RequiresBool(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	_, err = eval.CompileFilter(`eventType`)
	assert.Error(t, err)

	rule, err := eval.CompileFilter(`eventType == "PostCreated"`)
	require.NoError(t, err)
	assert.Equal(t, `eventType == "PostCreated"`, rule.Expression())
}

func TestRule_Match(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	env := postCreatedEnvelope(t, "Urgent: exam moved", "alice", 1500)

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"event type", `eventType == "PostCreated"`, true},
		{"entity id", `entityId == "1500"`, true},
		{"keyword", `payload.title.lowerAscii().contains("urgent")`, true},
		{"keyword absent", `payload.title.lowerAscii().contains("cancelled")`, false},
		{"int literal against json number", `payload.postId > 1000`, true},
		{"author excluded", `payload.authorUsername != "alice"`, false},
		{"has field", `has(payload.authorUsername)`, true},
		{"timestamp", `occurredAt > timestamp("2024-01-01T00:00:00Z")`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := eval.CompileFilter(tt.expr)
			require.NoError(t, err)

			got, err := rule.Match(context.Background(), env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRule_MatchMissingKeyIsError(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	rule, err := eval.CompileFilter(`payload.missing == "x"`)
	require.NoError(t, err)

	_, err = rule.Match(context.Background(), postCreatedEnvelope(t, "t", "a", 1))
	assert.Error(t, err)
}

func TestRoutingExpressionExamplesCompile(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	for name, expr := range RoutingExpressionExamples {
		t.Run(name, func(t *testing.T) {
			_, err := eval.CompileFilter(expr)
			assert.NoError(t, err)
		})
	}
}
