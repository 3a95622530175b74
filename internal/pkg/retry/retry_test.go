// internal/pkg/retry/retry_test.go
package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("deadlock"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableReturnsImmediately(t *testing.T) {
	sentinel := errors.New("insufficient stock")
	calls := 0
	err := Do(context.Background(), 3, func(ctx context.Context) error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustionWrapsSentinel(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, func(ctx context.Context) error {
		calls++
		return Transient(errors.New("still locked"))
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, 3, func(ctx context.Context) error {
		t.Fatal("fn must not run with a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}))
	assert.True(t, IsRetryable(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}))
	assert.False(t, IsRetryable(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.True(t, IsRetryable(Transient(errors.New("anything"))))
	assert.False(t, IsRetryable(errors.New("business error")))
}
