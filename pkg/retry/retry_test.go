package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errTransient = errors.New("connection refused")

func fast() []Option {
	return []Option{WithInitialDelay(time.Millisecond), WithMaxDelay(2 * time.Millisecond), WithJitter(0)}
}

func TestDo_RetriesRetryableUntilSuccess(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return Retryable(errTransient)
		}
		return nil
	}, append(fast(), WithMaxAttempts(5))...)

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_StopsOnPlainError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return errTransient
	}, fast()...)

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, attempts)
}

func TestDo_PermanentUnwrapped(t *testing.T) {
	err := Do(context.Background(), func(context.Context) error {
		return Permanent(errTransient)
	}, append(fast(), WithRetryIf(func(error) bool { return true }))...)

	assert.Equal(t, errTransient, err)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	var retried []int
	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return Retryable(errTransient)
	}, append(fast(), WithMaxAttempts(3), WithOnRetry(func(a int, _ error, _ time.Duration) {
		retried = append(retried, a)
	}))...)

	assert.Equal(t, errTransient, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
