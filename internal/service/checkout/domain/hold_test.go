// internal/service/checkout/domain/hold_test.go
package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHold_Consume(t *testing.T) {
	hold := NewHold("tok-1")
	hold.Items[1] = 5

	t.Run("fully covered", func(t *testing.T) {
		assert.Equal(t, 0, hold.Consume(1, 3))
		assert.Equal(t, 2, hold.Held(1))
	})

	t.Run("shortfall drains the entry", func(t *testing.T) {
		assert.Equal(t, 1, hold.Consume(1, 3))
		assert.Equal(t, 0, hold.Held(1))
	})

	t.Run("unknown variant is all shortfall", func(t *testing.T) {
		assert.Equal(t, 4, hold.Consume(99, 4))
	})
}

func TestHold_IsEmpty(t *testing.T) {
	var nilHold *Hold
	assert.True(t, nilHold.IsEmpty())
	assert.True(t, NewHold("tok").IsEmpty())

	hold := NewHold("tok")
	hold.Items[1] = 1
	assert.False(t, hold.IsEmpty())
}

func TestOwnerKey(t *testing.T) {
	assert.Equal(t, "user:42", Owner{UserID: "42", SessionID: "s"}.Key())
	assert.Equal(t, "session:s", Owner{SessionID: "s"}.Key())
	assert.False(t, Owner{UserID: "42"}.IsAnonymous())
	assert.True(t, Owner{SessionID: "s"}.IsAnonymous())
}

func TestOrderStatusTransitions(t *testing.T) {
	order := &Order{Status: StatusPendingConfirmation}
	assert.NoError(t, order.MarkConfirmed())
	assert.Error(t, order.MarkCancelled(), "confirmed order cannot be cancelled")
	assert.NoError(t, order.MarkRefunded())
	assert.Error(t, order.MarkRefunded(), "refund is not repeatable")
}
