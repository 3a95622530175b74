// internal/service/checkout/application/reservation_service.go
package application

import (
	"context"
	"errors"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/metrics"
	"bazaar/internal/pkg/retry"
	"bazaar/internal/service/checkout/domain"
	"bazaar/internal/service/checkout/port"
)

// maxReserveAttempts 是预占/释放事务吸收锁竞争的重试预算。
const maxReserveAttempts = 3

// ReservationService 把一份购物车快照转换为对库存台账的预占（hold）。
//
// 这是并发正确性的核心：每个买家的校验-预占在一个事务里完成，
// 规格行按 ID 升序逐一加排他锁，保证两个买家抢同一批库存时
// 至多按可用量放行，且不会因为加锁顺序不同而互相死锁。
// 不用乐观方案——超卖不可接受，而这个竞争点的吞吐不是瓶颈。
type ReservationService struct {
	store  domain.Store
	holds  domain.HoldStore
	cache  port.CacheInvalidator
	tracer trace.Tracer
}

func NewReservationService(store domain.Store, holds domain.HoldStore, cache port.CacheInvalidator, tracer trace.Tracer) *ReservationService {
	return &ReservationService{store: store, holds: holds, cache: cache, tracer: tracer}
}

// VerifyAndReserve 校验购物车并为本次结算预占库存。
//
// 同一结算令牌重入时先整体释放旧 hold 再重新预占（last-writer-wins），
// 所以购物车改完数量重新进结算页不会重复计数。
// 事务内任一行库存不足则整体回滚，不留下部分预占。
//
// 匿名会话没有可以跨请求持有预占的持久身份，只按物理库存复验，不预占。
func (s *ReservationService) VerifyAndReserve(ctx context.Context, owner domain.Owner, token string, lines []domain.CartLine) (*domain.Hold, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.VerifyAndReserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("checkout.token", token),
		attribute.Int("cart.lines", len(lines)),
	)

	if owner.IsAnonymous() {
		if err := s.verifyOnly(ctx, lines); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "anonymous stock verification failed")
			return nil, err
		}
		return domain.NewHold(token), nil
	}

	// 1. 先释放同一结算上下文的旧 hold，使重入幂等而不是累加
	if err := s.Release(ctx, token); err != nil {
		span.RecordError(err)
		return nil, err
	}

	// 2. 按规格 ID 升序加锁，避免多个结算间的锁序死锁
	sorted := make([]domain.CartLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].VariantID < sorted[j].VariantID })

	hold := domain.NewHold(token)
	err := retry.Do(ctx, maxReserveAttempts, func(ctx context.Context) error {
		attempt := domain.NewHold(token)
		txErr := s.store.InTx(ctx, func(tx domain.Store) error {
			for _, line := range sorted {
				v, err := tx.LockVariant(ctx, line.VariantID)
				if err != nil {
					return err
				}
				if err := v.Reserve(line.Quantity); err != nil {
					return err
				}
				if err := tx.SaveVariantQuantities(ctx, v); err != nil {
					return err
				}
				attempt.Items[line.VariantID] += line.Quantity
			}
			return nil
		})
		if txErr != nil {
			return txErr
		}
		hold = attempt
		return nil
	})
	if err != nil {
		s.recordFailure(span, err)
		return nil, err
	}

	// 3. 事务提交后再持久化 hold，供订单创建消费或后续释放
	if err := s.holds.Put(ctx, hold); err != nil {
		// hold 记录丢了但台账上的预占还在：释放回去，不要留下孤儿预占
		logger.Ctx(ctx).Error().Err(err).Str("token", token).Msg("failed to persist hold, rolling reservation back")
		s.creditBack(ctx, hold)
		return nil, err
	}

	s.invalidate(ctx, hold)
	metrics.ReservationsTotal.WithLabelValues("ok").Inc()
	span.AddEvent("stock reserved")
	return hold, nil
}

// Release 释放令牌对应的 hold：逐规格把预占量加回去（下限为零），
// 然后删除 hold 记录。结算重入和订单失败补偿共用这条路径。
//
// 补偿语义：某个规格已经不存在时记 warn 并跳过，
// 绝不能让释放失败掩盖触发补偿的原始错误。
func (s *ReservationService) Release(ctx context.Context, token string) error {
	ctx, span := s.tracer.Start(ctx, "reservation.Release")
	defer span.End()
	span.SetAttributes(attribute.String("checkout.token", token))

	hold, err := s.holds.Get(ctx, token)
	if err != nil {
		return err
	}
	if hold.IsEmpty() {
		return nil
	}

	if err := retry.Do(ctx, maxReserveAttempts, func(ctx context.Context) error {
		return s.creditBack(ctx, hold)
	}); err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.holds.Delete(ctx, token); err != nil {
		return err
	}
	s.invalidate(ctx, hold)
	span.AddEvent("hold released")
	return nil
}

// creditBack 在一个事务里把 hold 的每一项归还到 reservedQuantity。
func (s *ReservationService) creditBack(ctx context.Context, hold *domain.Hold) error {
	ids := sortedVariantIDs(hold.Items)
	return s.store.InTx(ctx, func(tx domain.Store) error {
		for _, id := range ids {
			v, err := tx.LockVariant(ctx, id)
			if err != nil {
				if errors.Is(err, domain.ErrVariantNotFound) {
					logger.Ctx(ctx).Warn().Uint("variant_id", id).Msg("variant missing during hold release, skipping")
					continue
				}
				return err
			}
			v.ReleaseHold(hold.Items[id])
			if err := tx.SaveVariantQuantities(ctx, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// verifyOnly 只按物理库存复验，不触碰 reservedQuantity。
func (s *ReservationService) verifyOnly(ctx context.Context, lines []domain.CartLine) error {
	for _, line := range lines {
		v, err := s.store.GetVariant(ctx, line.VariantID)
		if err != nil {
			return err
		}
		if err := domain.ValidateCartQuantity(v, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *ReservationService) invalidate(ctx context.Context, hold *domain.Hold) {
	if s.cache == nil || hold.IsEmpty() {
		return
	}
	if err := s.cache.InvalidateVariants(ctx, sortedVariantIDs(hold.Items)...); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("cache invalidation failed")
	}
}

func (s *ReservationService) recordFailure(span trace.Span, err error) {
	span.RecordError(err)
	switch {
	case domain.IsInsufficientStock(err):
		span.SetStatus(codes.Error, "insufficient stock")
		metrics.ReservationsTotal.WithLabelValues("insufficient_stock").Inc()
	case errors.Is(err, retry.ErrExhausted):
		span.SetStatus(codes.Error, "retry budget exhausted")
		metrics.ReservationsTotal.WithLabelValues("retry_exhausted").Inc()
	default:
		span.SetStatus(codes.Error, "reservation failed")
		metrics.ReservationsTotal.WithLabelValues("error").Inc()
	}
}

func sortedVariantIDs(items map[uint]int) []uint {
	ids := make([]uint, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
