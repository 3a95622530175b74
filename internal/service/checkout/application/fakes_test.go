// internal/service/checkout/application/fakes_test.go
package application

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"bazaar/internal/service/checkout/domain"
)

func testTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("test")
}

// memStore 是 domain.Store 的内存实现，用每规格一把互斥锁模拟行锁：
// LockVariant 阻塞到拿到锁，锁随事务结束释放，并发测试因此有真实的竞争语义。
type memStore struct {
	mu         sync.Mutex
	variants   map[uint]*domain.Variant
	rowLocks   map[uint]*sync.Mutex
	orders     map[string]*domain.Order
	usages     []*domain.PromotionUsage
	nextID     uint
	txErr      func() error // 每次 InTx 前调用，非 nil 错误直接作为事务结果
	orderErr   error        // CreateOrder 注入错误
	lockErrFor map[uint]error
}

func newMemStore(variants ...*domain.Variant) *memStore {
	s := &memStore{
		variants:   make(map[uint]*domain.Variant),
		rowLocks:   make(map[uint]*sync.Mutex),
		orders:     make(map[string]*domain.Order),
		lockErrFor: make(map[uint]error),
		nextID:     1,
	}
	for _, v := range variants {
		copied := *v
		s.variants[v.ID] = &copied
		s.rowLocks[v.ID] = &sync.Mutex{}
	}
	return s
}

func (s *memStore) variant(id uint) domain.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.variants[id]
}

// memTx 持有事务内的锁和待写副本，成功时整体应用，失败时丢弃。
type memTx struct {
	store   *memStore
	locked  []uint
	pending map[uint]*domain.Variant
	actions []func()
}

func (s *memStore) InTx(ctx context.Context, fn func(tx domain.Store) error) error {
	if s.txErr != nil {
		if err := s.txErr(); err != nil {
			return err
		}
	}
	tx := &memTx{store: s, pending: make(map[uint]*domain.Variant)}
	err := fn(tx)
	if err == nil {
		s.mu.Lock()
		for id, v := range tx.pending {
			copied := *v
			s.variants[id] = &copied
		}
		for _, apply := range tx.actions {
			apply()
		}
		s.mu.Unlock()
	}
	for i := len(tx.locked) - 1; i >= 0; i-- {
		s.rowLocks[tx.locked[i]].Unlock()
	}
	return err
}

func (s *memStore) LockVariant(ctx context.Context, variantID uint) (*domain.Variant, error) {
	panic("LockVariant outside transaction")
}

func (s *memStore) GetVariant(ctx context.Context, variantID uint) (*domain.Variant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[variantID]
	if !ok {
		return nil, domain.ErrVariantNotFound
	}
	copied := *v
	return &copied, nil
}

func (s *memStore) SaveVariantQuantities(ctx context.Context, v *domain.Variant) error {
	panic("SaveVariantQuantities outside transaction")
}

func (s *memStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	panic("CreateOrder outside transaction")
}

func (s *memStore) GetOrder(ctx context.Context, orderNo string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderNo]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := *order
	copied.Lines = append([]domain.OrderLine(nil), order.Lines...)
	return &copied, nil
}

func (s *memStore) UpdateOrderStatus(ctx context.Context, orderNo string, status domain.Status, payment domain.PaymentStatus) error {
	panic("UpdateOrderStatus outside transaction")
}

func (s *memStore) RecordPromotionUsage(ctx context.Context, usage *domain.PromotionUsage) error {
	panic("RecordPromotionUsage outside transaction")
}

func (tx *memTx) InTx(ctx context.Context, fn func(inner domain.Store) error) error {
	return fn(tx)
}

func (tx *memTx) LockVariant(ctx context.Context, variantID uint) (*domain.Variant, error) {
	if err := tx.store.lockErrFor[variantID]; err != nil {
		return nil, err
	}
	if v, ok := tx.pending[variantID]; ok {
		copied := *v
		return &copied, nil
	}
	tx.store.mu.Lock()
	lock, ok := tx.store.rowLocks[variantID]
	tx.store.mu.Unlock()
	if !ok {
		return nil, domain.ErrVariantNotFound
	}
	lock.Lock()
	tx.locked = append(tx.locked, variantID)
	tx.store.mu.Lock()
	copied := *tx.store.variants[variantID]
	tx.store.mu.Unlock()
	return &copied, nil
}

func (tx *memTx) GetVariant(ctx context.Context, variantID uint) (*domain.Variant, error) {
	return tx.store.GetVariant(ctx, variantID)
}

func (tx *memTx) SaveVariantQuantities(ctx context.Context, v *domain.Variant) error {
	copied := *v
	tx.pending[v.ID] = &copied
	return nil
}

func (tx *memTx) CreateOrder(ctx context.Context, order *domain.Order) error {
	if tx.store.orderErr != nil {
		return tx.store.orderErr
	}
	order.ID = tx.store.nextID
	tx.store.nextID++
	copied := *order
	copied.Lines = append([]domain.OrderLine(nil), order.Lines...)
	tx.actions = append(tx.actions, func() {
		tx.store.orders[copied.OrderNo] = &copied
	})
	return nil
}

func (tx *memTx) GetOrder(ctx context.Context, orderNo string) (*domain.Order, error) {
	return tx.store.GetOrder(ctx, orderNo)
}

func (tx *memTx) UpdateOrderStatus(ctx context.Context, orderNo string, status domain.Status, payment domain.PaymentStatus) error {
	tx.actions = append(tx.actions, func() {
		if order, ok := tx.store.orders[orderNo]; ok {
			order.Status = status
			order.PaymentStatus = payment
		}
	})
	return nil
}

func (tx *memTx) RecordPromotionUsage(ctx context.Context, usage *domain.PromotionUsage) error {
	copied := *usage
	tx.actions = append(tx.actions, func() {
		tx.store.usages = append(tx.store.usages, &copied)
	})
	return nil
}

var (
	_ domain.Store = (*memStore)(nil)
	_ domain.Store = (*memTx)(nil)
)

// memHoldStore 是 domain.HoldStore 的内存实现。
type memHoldStore struct {
	mu     sync.Mutex
	holds  map[string]*domain.Hold
	putErr error
}

func newMemHoldStore() *memHoldStore {
	return &memHoldStore{holds: make(map[string]*domain.Hold)}
}

func (s *memHoldStore) Get(ctx context.Context, token string) (*domain.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hold, ok := s.holds[token]
	if !ok {
		return domain.NewHold(token), nil
	}
	copied := domain.NewHold(token)
	for id, qty := range hold.Items {
		copied.Items[id] = qty
	}
	return copied, nil
}

func (s *memHoldStore) Put(ctx context.Context, hold *domain.Hold) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := domain.NewHold(hold.Token)
	for id, qty := range hold.Items {
		copied.Items[id] = qty
	}
	s.holds[hold.Token] = copied
	return nil
}

func (s *memHoldStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.holds, token)
	return nil
}

func (s *memHoldStore) has(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	hold, ok := s.holds[token]
	return ok && !hold.IsEmpty()
}

// memCache 记录被失效的规格 ID。
type memCache struct {
	mu          sync.Mutex
	invalidated []uint
}

func (c *memCache) InvalidateVariants(ctx context.Context, variantIDs ...uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, variantIDs...)
	return nil
}

// memCart 是 domain.CartBackend 的最小内存实现，测试里直接播种行。
type memCart struct {
	mu    sync.Mutex
	lines map[string][]domain.CartLine
}

func newMemCart() *memCart {
	return &memCart{lines: make(map[string][]domain.CartLine)}
}

func (c *memCart) seed(owner domain.Owner, lines ...domain.CartLine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines[owner.Key()] = lines
}

func (c *memCart) Get(ctx context.Context, owner domain.Owner) ([]domain.CartLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.CartLine(nil), c.lines[owner.Key()]...), nil
}

func (c *memCart) Add(ctx context.Context, owner domain.Owner, variantID uint, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, line := range c.lines[owner.Key()] {
		if line.VariantID == variantID {
			c.lines[owner.Key()][i].Quantity += qty
			return nil
		}
	}
	c.lines[owner.Key()] = append(c.lines[owner.Key()], domain.CartLine{VariantID: variantID, Quantity: qty})
	return nil
}

func (c *memCart) Update(ctx context.Context, owner domain.Owner, variantID uint, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, line := range c.lines[owner.Key()] {
		if line.VariantID == variantID {
			c.lines[owner.Key()][i].Quantity = qty
			return nil
		}
	}
	return domain.ErrVariantNotFound
}

func (c *memCart) Remove(ctx context.Context, owner domain.Owner, variantID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.lines[owner.Key()][:0]
	for _, line := range c.lines[owner.Key()] {
		if line.VariantID != variantID {
			kept = append(kept, line)
		}
	}
	c.lines[owner.Key()] = kept
	return nil
}

func (c *memCart) Clear(ctx context.Context, owner domain.Owner) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lines, owner.Key())
	return nil
}

var _ domain.CartBackend = (*memCart)(nil)

// stubPromotions 按折扣金额直接返回快照。
type stubPromotions struct {
	snapshot *domain.PromotionSnapshot
	err      error
}

func (p *stubPromotions) Evaluate(ctx context.Context, promoCode, ownerKey string, subtotal float64) (*domain.PromotionSnapshot, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.snapshot, nil
}

// stubPayments 记录调用并返回固定跳转地址。
type stubPayments struct {
	mu       sync.Mutex
	calls    int
	redirect string
	err      error
}

func (p *stubPayments) CreateSession(ctx context.Context, order *domain.Order) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.redirect, nil
}

// stubNotifier 收集低库存事件。
type stubNotifier struct {
	mu     sync.Mutex
	events []*domain.LowStockEvent
}

func (n *stubNotifier) NotifyLowStock(ctx context.Context, event *domain.LowStockEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}
