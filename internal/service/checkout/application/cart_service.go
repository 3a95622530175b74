// internal/service/checkout/application/cart_service.go
package application

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/service/checkout/domain"
	"bazaar/internal/service/checkout/port"
)

// CartService 统一调度两种购物车后端：
// 已登录用户的持久化购物车和匿名会话的临时购物车。
// 合并与库存校验策略在后端实现里，这里只做分发和缓存失效。
type CartService struct {
	persisted domain.CartBackend
	ephemeral domain.CartBackend
	cache     port.CacheInvalidator
	tracer    trace.Tracer
}

func NewCartService(persisted, ephemeral domain.CartBackend, cache port.CacheInvalidator, tracer trace.Tracer) *CartService {
	return &CartService{
		persisted: persisted,
		ephemeral: ephemeral,
		cache:     cache,
		tracer:    tracer,
	}
}

func (s *CartService) backendFor(owner domain.Owner) domain.CartBackend {
	if owner.IsAnonymous() {
		return s.ephemeral
	}
	return s.persisted
}

// Get 返回购物车当前的全部行。
func (s *CartService) Get(ctx context.Context, owner domain.Owner) ([]domain.CartLine, error) {
	ctx, span := s.tracer.Start(ctx, "cart.Get")
	defer span.End()
	span.SetAttributes(attribute.String("cart.owner", owner.Key()))

	return s.backendFor(owner).Get(ctx, owner)
}

// Add 加购。同一规格重复加购合并数量；校验只看物理库存。
func (s *CartService) Add(ctx context.Context, owner domain.Owner, variantID uint, qty int) error {
	ctx, span := s.tracer.Start(ctx, "cart.Add")
	defer span.End()
	span.SetAttributes(
		attribute.String("cart.owner", owner.Key()),
		attribute.Int("variant.id", int(variantID)),
		attribute.Int("quantity", qty),
	)

	if err := s.backendFor(owner).Add(ctx, owner, variantID, qty); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cart add failed")
		return err
	}
	s.invalidate(ctx, variantID)
	return nil
}

// Update 改购。数量为 0 等价于移除。
func (s *CartService) Update(ctx context.Context, owner domain.Owner, variantID uint, qty int) error {
	ctx, span := s.tracer.Start(ctx, "cart.Update")
	defer span.End()
	span.SetAttributes(
		attribute.String("cart.owner", owner.Key()),
		attribute.Int("variant.id", int(variantID)),
		attribute.Int("quantity", qty),
	)

	backend := s.backendFor(owner)
	if qty == 0 {
		return backend.Remove(ctx, owner, variantID)
	}
	if err := backend.Update(ctx, owner, variantID, qty); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cart update failed")
		return err
	}
	s.invalidate(ctx, variantID)
	return nil
}

// Remove 移除一行。
func (s *CartService) Remove(ctx context.Context, owner domain.Owner, variantID uint) error {
	ctx, span := s.tracer.Start(ctx, "cart.Remove")
	defer span.End()

	return s.backendFor(owner).Remove(ctx, owner, variantID)
}

// Clear 清空购物车。
func (s *CartService) Clear(ctx context.Context, owner domain.Owner) error {
	ctx, span := s.tracer.Start(ctx, "cart.Clear")
	defer span.End()

	return s.backendFor(owner).Clear(ctx, owner)
}

// invalidate 通知读模型丢弃该规格的缓存视图。失败只记日志。
func (s *CartService) invalidate(ctx context.Context, variantIDs ...uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateVariants(ctx, variantIDs...); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("cache invalidation failed")
	}
}
