package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	var retried []int

	err := RetryWithCallback(context.Background(), fastPolicy(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, func(attempt int, err error, _ time.Duration) {
		retried = append(retried, attempt)
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetry_StopsOnFatal(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(5), func() error {
		calls++
		return NewFatalError(errors.New("bad payload"))
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_SingleAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(1), func() error {
		calls++
		return errors.New("down")
	})

	assert.EqualError(t, err, "down")
	assert.Equal(t, 1, calls)
}

func TestCalculateBackoffDuration(t *testing.T) {
	assert.Equal(t, time.Second, CalculateBackoffDuration(0, time.Second, 2, time.Minute))
	assert.Equal(t, 4*time.Second, CalculateBackoffDuration(2, time.Second, 2, time.Minute))
	assert.Equal(t, 5*time.Second, CalculateBackoffDuration(10, time.Second, 2, 5*time.Second))
}
