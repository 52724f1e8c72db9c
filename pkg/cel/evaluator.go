package cel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"

	"forumpipe/internal/events"
)

// Evaluator compiles boolean routing expressions over an event envelope. Expressions see
// eventId, eventType, entityId, occurredAt and the decoded payload map.
type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("eventId", cel.StringType),
		cel.Variable("eventType", cel.StringType),
		cel.Variable("entityId", cel.StringType),
		cel.Variable("occurredAt", cel.TimestampType),
		cel.Variable("payload", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
		ext.Strings(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateExpression(expression string) error {
	_, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	return nil
}

// Rule is a compiled filter, safe for concurrent use.
type Rule struct {
	expression string
	program    cel.Program
}

func (e *Evaluator) CompileFilter(expression string) (*Rule, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Rule{expression: expression, program: program}, nil
}

func (r *Rule) Expression() string {
	return r.expression
}

func (r *Rule) Match(ctx context.Context, env events.Envelope) (bool, error) {
	payload := map[string]interface{}{}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return false, fmt.Errorf("failed to decode payload for CEL: %w", err)
		}
	}

	vars := map[string]interface{}{
		"eventId":    env.EventID,
		"eventType":  string(env.EventType),
		"entityId":   env.EntityID,
		"occurredAt": env.OccurredAt.Time,
		"payload":    payload,
	}

	result, _, err := r.program.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	matched, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}
	return matched, nil
}
