// internal/service/checkout/application/inventory_service.go
package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/metrics"
	"bazaar/internal/pkg/retry"
	"bazaar/internal/service/checkout/domain"
	"bazaar/internal/service/checkout/port"
)

// InventoryService 处理支付协作方回调后的库存终态流转：
// 支付成功把 hold 转为永久扣减（commit），
// 支付失败释放预占（release），
// 已确认订单冲正时归还库存（restore）。
// 编排器从不直接调用这里。
type InventoryService struct {
	store    domain.Store
	cache    port.CacheInvalidator
	notifier port.LowStockNotifier
	tracer   trace.Tracer
}

func NewInventoryService(store domain.Store, cache port.CacheInvalidator, notifier port.LowStockNotifier, tracer trace.Tracer) *InventoryService {
	return &InventoryService{store: store, cache: cache, notifier: notifier, tracer: tracer}
}

// HandlePaymentResult 是支付结果事件的统一入口。
func (s *InventoryService) HandlePaymentResult(ctx context.Context, event *domain.PaymentResultEvent) error {
	ctx, span := s.tracer.Start(ctx, "inventory.HandlePaymentResult", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("order.no", event.OrderNo),
		attribute.Bool("payment.success", event.Success),
	)

	if event.Success {
		return s.Commit(ctx, event.OrderNo)
	}
	logger.Ctx(ctx).Info().Str("order_no", event.OrderNo).Str("reason", event.Reason).Msg("payment failed, releasing hold")
	return s.Release(ctx, event.OrderNo)
}

// Commit 在支付成功后执行：逐行锁定规格，物理库存与预占量同步扣减。
// 下单和支付确认之间库存可能被改动过，不允许欠货的规格会再校验一次可用量；
// 校验失败是该订单的致命错误，向上抛出而不是静默忽略。
func (s *InventoryService) Commit(ctx context.Context, orderNo string) error {
	ctx, span := s.tracer.Start(ctx, "inventory.Commit")
	defer span.End()
	span.SetAttributes(attribute.String("order.no", orderNo))

	order, err := s.store.GetOrder(ctx, orderNo)
	if err != nil {
		return err
	}
	// 支付回调可能重复投递，已确认的订单直接返回成功
	if order.Status == domain.StatusConfirmed {
		span.AddEvent("order already committed, skipping")
		return nil
	}
	if order.Status != domain.StatusPendingConfirmation {
		return fmt.Errorf("cannot commit order %s in status %s", orderNo, order.Status)
	}

	var lowStock []*domain.LowStockEvent
	err = retry.Do(ctx, maxReserveAttempts, func(ctx context.Context) error {
		lowStock = lowStock[:0]
		return s.store.InTx(ctx, func(tx domain.Store) error {
			for _, line := range sortedOrderLines(order.Lines) {
				v, err := tx.LockVariant(ctx, line.VariantID)
				if err != nil {
					return err
				}
				if err := v.CommitSale(line.Quantity); err != nil {
					return err
				}
				if err := tx.SaveVariantQuantities(ctx, v); err != nil {
					return err
				}
				if v.IsLowStock() {
					lowStock = append(lowStock, &domain.LowStockEvent{
						VariantID: v.ID,
						SKU:       v.SKU,
						Available: v.Available(),
						Threshold: v.MinimumStockLevel,
						At:        time.Now(),
					})
				}
			}
			return tx.UpdateOrderStatus(ctx, orderNo, domain.StatusConfirmed, domain.PaymentPaid)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inventory commit failed")
		logger.Ctx(ctx).Error().Err(err).Str("order_no", orderNo).Msg("inventory commit failed")
		return err
	}

	metrics.StockCommitsTotal.WithLabelValues("commit").Inc()
	s.invalidate(ctx, order)
	s.notifyLowStock(ctx, lowStock)
	logger.Ctx(ctx).Info().Str("order_no", orderNo).Msg("inventory committed")
	return nil
}

// Release 在支付从未成功的失败/取消路径上执行：
// 只归还预占量（下限为零），物理库存不动——毕竟从没真正扣过。
func (s *InventoryService) Release(ctx context.Context, orderNo string) error {
	ctx, span := s.tracer.Start(ctx, "inventory.Release")
	defer span.End()
	span.SetAttributes(attribute.String("order.no", orderNo))

	order, err := s.store.GetOrder(ctx, orderNo)
	if err != nil {
		return err
	}
	if order.Status == domain.StatusCancelled {
		span.AddEvent("order already cancelled, skipping")
		return nil
	}
	if order.Status != domain.StatusPendingConfirmation {
		return fmt.Errorf("cannot release order %s in status %s", orderNo, order.Status)
	}

	err = retry.Do(ctx, maxReserveAttempts, func(ctx context.Context) error {
		return s.store.InTx(ctx, func(tx domain.Store) error {
			for _, line := range sortedOrderLines(order.Lines) {
				v, err := tx.LockVariant(ctx, line.VariantID)
				if err != nil {
					return err
				}
				v.ReleaseHold(line.Quantity)
				if err := tx.SaveVariantQuantities(ctx, v); err != nil {
					return err
				}
			}
			return tx.UpdateOrderStatus(ctx, orderNo, domain.StatusCancelled, domain.PaymentFailed)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "hold release failed")
		return err
	}

	metrics.StockCommitsTotal.WithLabelValues("release").Inc()
	s.invalidate(ctx, order)
	logger.Ctx(ctx).Info().Str("order_no", orderNo).Msg("hold released for failed payment")
	return nil
}

// Restore 冲正一个已确认的订单：归还物理库存，清掉可能残留的预占。
// 用于支付成功后的退款/退货逆向流程。
func (s *InventoryService) Restore(ctx context.Context, orderNo string) error {
	ctx, span := s.tracer.Start(ctx, "inventory.Restore")
	defer span.End()
	span.SetAttributes(attribute.String("order.no", orderNo))

	order, err := s.store.GetOrder(ctx, orderNo)
	if err != nil {
		return err
	}
	if order.Status == domain.StatusRefunded {
		span.AddEvent("order already restored, skipping")
		return nil
	}
	if order.Status != domain.StatusConfirmed {
		return fmt.Errorf("cannot restore order %s in status %s", orderNo, order.Status)
	}

	err = retry.Do(ctx, maxReserveAttempts, func(ctx context.Context) error {
		return s.store.InTx(ctx, func(tx domain.Store) error {
			for _, line := range sortedOrderLines(order.Lines) {
				v, err := tx.LockVariant(ctx, line.VariantID)
				if err != nil {
					return err
				}
				v.RestoreSale(line.Quantity)
				if err := tx.SaveVariantQuantities(ctx, v); err != nil {
					return err
				}
			}
			return tx.UpdateOrderStatus(ctx, orderNo, domain.StatusRefunded, domain.PaymentRefunded)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock restore failed")
		return err
	}

	metrics.StockCommitsTotal.WithLabelValues("restore").Inc()
	s.invalidate(ctx, order)
	logger.Ctx(ctx).Info().Str("order_no", orderNo).Msg("stock restored for reversed order")
	return nil
}

func (s *InventoryService) invalidate(ctx context.Context, order *domain.Order) {
	if s.cache == nil {
		return
	}
	ids := make([]uint, 0, len(order.Lines))
	for _, line := range order.Lines {
		ids = append(ids, line.VariantID)
	}
	if err := s.cache.InvalidateVariants(ctx, ids...); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("cache invalidation failed")
	}
}

func (s *InventoryService) notifyLowStock(ctx context.Context, events []*domain.LowStockEvent) {
	if s.notifier == nil {
		return
	}
	for _, event := range events {
		if err := s.notifier.NotifyLowStock(ctx, event); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Uint("variant_id", event.VariantID).Msg("low stock notification failed")
		}
	}
}

// sortedOrderLines 返回按规格 ID 升序的副本，保证跨结算的一致加锁顺序。
func sortedOrderLines(lines []domain.OrderLine) []domain.OrderLine {
	sorted := make([]domain.OrderLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].VariantID < sorted[j].VariantID })
	return sorted
}
