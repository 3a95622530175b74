// internal/service/checkout/infrastructure/adapter/promotion_cel_adapter_test.go
package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar/internal/service/checkout/domain"
)

type stubPromotionRepo struct {
	promos map[string]*domain.Promotion
}

func (r *stubPromotionRepo) FindByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	promo, ok := r.promos[code]
	if !ok {
		return nil, domain.ErrPromotionNotApplicable
	}
	return promo, nil
}

func activeWindow() (time.Time, time.Time) {
	return time.Now().Add(-time.Hour), time.Now().Add(time.Hour)
}

func newTestAdapter(t *testing.T, promos ...*domain.Promotion) *PromotionCELAdapter {
	t.Helper()
	repo := &stubPromotionRepo{promos: make(map[string]*domain.Promotion)}
	for _, p := range promos {
		repo.promos[p.Code] = p
	}
	adapter, err := NewPromotionCELAdapter(repo)
	require.NoError(t, err)
	return adapter
}

func TestEvaluate_PercentWithCap(t *testing.T) {
	starts, ends := activeWindow()
	adapter := newTestAdapter(t, &domain.Promotion{
		Code: "SAVE20", Kind: domain.PromotionPercent, Value: 20, Cap: 30,
		Active: true, StartsAt: starts, EndsAt: ends,
	})

	snapshot, err := adapter.Evaluate(context.Background(), "SAVE20", "user:u1", 200)
	require.NoError(t, err)
	assert.Equal(t, 30.0, snapshot.Discount, "20% of 200 is 40, capped at 30")

	snapshot, err = adapter.Evaluate(context.Background(), "SAVE20", "user:u1", 100)
	require.NoError(t, err)
	assert.Equal(t, 20.0, snapshot.Discount)
}

func TestEvaluate_FixedDiscountFloorsAtSubtotal(t *testing.T) {
	starts, ends := activeWindow()
	adapter := newTestAdapter(t, &domain.Promotion{
		Code: "MINUS50", Kind: domain.PromotionFixed, Value: 50,
		Active: true, StartsAt: starts, EndsAt: ends,
	})

	snapshot, err := adapter.Evaluate(context.Background(), "MINUS50", "user:u1", 30)
	require.NoError(t, err)
	assert.Equal(t, 30.0, snapshot.Discount, "discount never exceeds the subtotal")
}

func TestEvaluate_ConditionGatesEligibility(t *testing.T) {
	starts, ends := activeWindow()
	adapter := newTestAdapter(t, &domain.Promotion{
		Code: "BIGSPENDER", Kind: domain.PromotionFixed, Value: 10,
		Condition: "subtotal >= 100.0",
		Active:    true, StartsAt: starts, EndsAt: ends,
	})

	_, err := adapter.Evaluate(context.Background(), "BIGSPENDER", "user:u1", 99)
	assert.ErrorIs(t, err, domain.ErrPromotionNotApplicable)

	snapshot, err := adapter.Evaluate(context.Background(), "BIGSPENDER", "user:u1", 100)
	require.NoError(t, err)
	assert.Equal(t, 10.0, snapshot.Discount)
}

func TestEvaluate_InactiveOrExpired(t *testing.T) {
	starts, ends := activeWindow()
	adapter := newTestAdapter(t,
		&domain.Promotion{Code: "OFF", Kind: domain.PromotionFixed, Value: 10, Active: false, StartsAt: starts, EndsAt: ends},
		&domain.Promotion{Code: "EXPIRED", Kind: domain.PromotionFixed, Value: 10, Active: true,
			StartsAt: time.Now().Add(-48 * time.Hour), EndsAt: time.Now().Add(-24 * time.Hour)},
	)

	_, err := adapter.Evaluate(context.Background(), "OFF", "user:u1", 100)
	assert.ErrorIs(t, err, domain.ErrPromotionNotApplicable)

	_, err = adapter.Evaluate(context.Background(), "EXPIRED", "user:u1", 100)
	assert.ErrorIs(t, err, domain.ErrPromotionNotApplicable)

	_, err = adapter.Evaluate(context.Background(), "UNKNOWN", "user:u1", 100)
	assert.ErrorIs(t, err, domain.ErrPromotionNotApplicable)
}

func TestEvaluate_BadConditionSurfacesError(t *testing.T) {
	starts, ends := activeWindow()
	adapter := newTestAdapter(t, &domain.Promotion{
		Code: "BROKEN", Kind: domain.PromotionFixed, Value: 10,
		Condition: "subtotal >>> 1",
		Active:    true, StartsAt: starts, EndsAt: ends,
	})

	_, err := adapter.Evaluate(context.Background(), "BROKEN", "user:u1", 100)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrPromotionNotApplicable)
}
