// internal/service/checkout/application/checkout_service_test.go
package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar/internal/service/checkout/domain"
)

type checkoutFixture struct {
	store    *memStore
	holds    *memHoldStore
	carts    *memCart
	promos   *stubPromotions
	payments *stubPayments
	svc      *CheckoutService
}

func newCheckoutFixture(t *testing.T, variants ...*domain.Variant) *checkoutFixture {
	t.Helper()
	store := newMemStore(variants...)
	holds := newMemHoldStore()
	cache := &memCache{}
	carts := newMemCart()
	promos := &stubPromotions{}
	payments := &stubPayments{redirect: "https://pay.example/session/abc"}

	cartSvc := NewCartService(carts, carts, cache, testTracer())
	reservations := NewReservationService(store, holds, cache, testTracer())
	svc := NewCheckoutService(cartSvc, reservations, store, holds, promos, payments, testTracer())
	return &checkoutFixture{store: store, holds: holds, carts: carts, promos: promos, payments: payments, svc: svc}
}

func TestPrepareCheckout_SummarizesCart(t *testing.T) {
	f := newCheckoutFixture(t,
		&domain.Variant{ID: 1, SKU: "TEE-S", Name: "Tee S", Price: 25, StockQuantity: 10, TrackInventory: true},
		&domain.Variant{ID: 2, SKU: "TEE-M", Name: "Tee M", Price: 40, StockQuantity: 10, TrackInventory: true},
	)
	owner := buyer("u1")
	f.carts.seed(owner, domain.CartLine{VariantID: 1, Quantity: 2}, domain.CartLine{VariantID: 2, Quantity: 1})

	summary, err := f.svc.PrepareCheckout(context.Background(), owner, "")
	require.NoError(t, err)
	assert.Len(t, summary.Lines, 2)
	assert.Equal(t, 90.0, summary.Subtotal)
	assert.Equal(t, 90.0, summary.Total)
	assert.Equal(t, 0, f.store.variant(1).ReservedQuantity, "prepare must not reserve")
}

func TestPrepareCheckout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	_, err := f.svc.PrepareCheckout(context.Background(), buyer("u1"), "")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestPlaceOrder_CreatesPendingOrder(t *testing.T) {
	f := newCheckoutFixture(t,
		&domain.Variant{ID: 1, SKU: "TEE-S", Price: 25, StockQuantity: 10, TrackInventory: true},
	)
	owner := buyer("u1")
	f.carts.seed(owner, domain.CartLine{VariantID: 1, Quantity: 2})
	ctx := context.Background()

	result, err := f.svc.PlaceOrder(ctx, owner, "tok-1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.OrderNo)
	assert.Equal(t, domain.StatusPendingConfirmation, result.Status)
	assert.Equal(t, 50.0, result.Total)
	assert.Equal(t, "https://pay.example/session/abc", result.RedirectURL)

	order, err := f.store.GetOrder(ctx, result.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentUnpaid, order.PaymentStatus)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 25.0, order.Lines[0].UnitPrice, "order line keeps the price snapshot")

	// 下单成功：预占保留到支付结果，hold 记录被消费删除，购物车已清空
	assert.Equal(t, 2, f.store.variant(1).ReservedQuantity)
	assert.Equal(t, 10, f.store.variant(1).StockQuantity)
	assert.False(t, f.holds.has("tok-1"))
	lines, _ := f.carts.Get(ctx, owner)
	assert.Empty(t, lines)
}

func TestPlaceOrder_CompensatesWhenOrderCreationFails(t *testing.T) {
	f := newCheckoutFixture(t,
		&domain.Variant{ID: 1, Price: 25, StockQuantity: 10, TrackInventory: true},
		&domain.Variant{ID: 2, Price: 30, StockQuantity: 10, TrackInventory: true},
	)
	f.store.orderErr = errors.New("orders table unavailable")
	owner := buyer("u1")
	f.carts.seed(owner, domain.CartLine{VariantID: 1, Quantity: 3}, domain.CartLine{VariantID: 2, Quantity: 1})

	_, err := f.svc.PlaceOrder(context.Background(), owner, "tok-1", "")
	require.Error(t, err)
	assert.ErrorContains(t, err, "orders table unavailable", "original error must survive compensation")

	// 补偿必须把本次拿到的预占全部释放
	assert.Equal(t, 0, f.store.variant(1).ReservedQuantity)
	assert.Equal(t, 0, f.store.variant(2).ReservedQuantity)
	assert.False(t, f.holds.has("tok-1"))
}

func TestPlaceOrder_PromotionDiscountCapped(t *testing.T) {
	f := newCheckoutFixture(t,
		&domain.Variant{ID: 1, Price: 100, StockQuantity: 10, TrackInventory: true},
	)
	f.promos.snapshot = &domain.PromotionSnapshot{
		Code: "SAVE20", Kind: domain.PromotionPercent, Value: 20, Cap: 30, Discount: 30,
	}
	owner := buyer("u1")
	f.carts.seed(owner, domain.CartLine{VariantID: 1, Quantity: 2})
	ctx := context.Background()

	result, err := f.svc.PlaceOrder(ctx, owner, "tok-1", "SAVE20")
	require.NoError(t, err)
	assert.Equal(t, 170.0, result.Total)

	order, err := f.store.GetOrder(ctx, result.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, 200.0, order.Subtotal)
	assert.Equal(t, 30.0, order.Discount)
	assert.Equal(t, "SAVE20", order.PromoCode)

	require.Len(t, f.store.usages, 1)
	assert.Equal(t, "SAVE20", f.store.usages[0].PromoCode)
	assert.Equal(t, 30.0, f.store.usages[0].Discount)
}

func TestPlaceOrder_PromotionRejectedReleasesHold(t *testing.T) {
	f := newCheckoutFixture(t,
		&domain.Variant{ID: 1, Price: 100, StockQuantity: 10, TrackInventory: true},
	)
	f.promos.err = domain.ErrPromotionNotApplicable
	owner := buyer("u1")
	f.carts.seed(owner, domain.CartLine{VariantID: 1, Quantity: 1})

	_, err := f.svc.PlaceOrder(context.Background(), owner, "tok-1", "EXPIRED")
	assert.ErrorIs(t, err, domain.ErrPromotionNotApplicable)
	assert.Equal(t, 0, f.store.variant(1).ReservedQuantity)
}

func TestPlaceOrder_AnonymousReservesAtOrderCreation(t *testing.T) {
	f := newCheckoutFixture(t,
		&domain.Variant{ID: 1, Price: 10, StockQuantity: 5, TrackInventory: true},
	)
	anon := domain.Owner{SessionID: "sess-1"}
	f.carts.seed(anon, domain.CartLine{VariantID: 1, Quantity: 2})
	ctx := context.Background()

	result, err := f.svc.PlaceOrder(ctx, anon, "tok-1", "")
	require.NoError(t, err)

	// 匿名结算没有提前预占，缺口在订单创建事务里补齐
	assert.Equal(t, 2, f.store.variant(1).ReservedQuantity)
	assert.Equal(t, 5, f.store.variant(1).StockQuantity)

	order, err := f.store.GetOrder(ctx, result.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, "session:sess-1", order.OwnerKey)
}

func TestPlaceOrder_PaymentSessionFailureKeepsOrder(t *testing.T) {
	f := newCheckoutFixture(t,
		&domain.Variant{ID: 1, Price: 10, StockQuantity: 5, TrackInventory: true},
	)
	f.payments.err = errors.New("gateway timeout")
	owner := buyer("u1")
	f.carts.seed(owner, domain.CartLine{VariantID: 1, Quantity: 1})
	ctx := context.Background()

	result, err := f.svc.PlaceOrder(ctx, owner, "tok-1", "")
	require.NoError(t, err, "payment session failure must not fail the order")
	assert.Empty(t, result.RedirectURL)

	order, err := f.store.GetOrder(ctx, result.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingConfirmation, order.Status)
	assert.Equal(t, 1, f.store.variant(1).ReservedQuantity, "reservation stays until a payment result arrives")
}

func TestPlaceOrder_MissingVariantIsReconciliationError(t *testing.T) {
	f := newCheckoutFixture(t,
		&domain.Variant{ID: 1, Price: 10, StockQuantity: 5, TrackInventory: false},
	)
	owner := buyer("u1")
	// 购物车里挂着一个台账上已不存在的规格
	f.carts.seed(owner, domain.CartLine{VariantID: 1, Quantity: 1}, domain.CartLine{VariantID: 404, Quantity: 1})

	_, err := f.svc.PlaceOrder(context.Background(), owner, "tok-1", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrVariantNotFound)
}
