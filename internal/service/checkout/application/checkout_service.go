// internal/service/checkout/application/checkout_service.go
package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/metrics"
	"bazaar/internal/service/checkout/domain"
	"bazaar/internal/service/checkout/port"
)

// CheckoutService 是结账编排器：算价、驱动预占、创建订单，
// 失败时保证补偿释放已经拿到的 hold。
type CheckoutService struct {
	carts        *CartService
	reservations *ReservationService
	store        domain.Store
	holds        domain.HoldStore
	promotions   domain.PromotionEvaluator
	payments     port.PaymentGateway
	tracer       trace.Tracer
}

func NewCheckoutService(
	carts *CartService,
	reservations *ReservationService,
	store domain.Store,
	holds domain.HoldStore,
	promotions domain.PromotionEvaluator,
	payments port.PaymentGateway,
	tracer trace.Tracer,
) *CheckoutService {
	return &CheckoutService{
		carts:        carts,
		reservations: reservations,
		store:        store,
		holds:        holds,
		promotions:   promotions,
		payments:     payments,
		tracer:       tracer,
	}
}

// PrepareCheckout 生成结算视图：行、价格快照、促销折扣与应付总额。
func (s *CheckoutService) PrepareCheckout(ctx context.Context, owner domain.Owner, promoCode string) (*CheckoutSummary, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.PrepareCheckout")
	defer span.End()
	span.SetAttributes(attribute.String("cart.owner", owner.Key()))

	lines, err := s.carts.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	return s.summarize(ctx, owner, lines, promoCode)
}

// PlaceOrder 执行一次下单：重读购物车 → 预占 → 算价 → 单事务创建订单。
// 订单创建失败时补偿释放本次拿到的 hold，再把原始错误抛给调用方——
// 失败的下单不会留下归属于它的悬挂预占。
func (s *CheckoutService) PlaceOrder(ctx context.Context, owner domain.Owner, token, promoCode string) (*PlaceOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.PlaceOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("cart.owner", owner.Key()),
		attribute.String("checkout.token", token),
	)

	// 1. 重读购物车
	lines, err := s.carts.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	// 2. 获取/刷新 hold
	hold, err := s.reservations.VerifyAndReserve(ctx, owner, token, lines)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reservation failed")
		return nil, err
	}

	// 3. 价格与促销快照
	summary, err := s.summarize(ctx, owner, lines, promoCode)
	if err != nil {
		s.compensate(ctx, token, err)
		return nil, err
	}

	// 4. 单事务创建订单并与 hold 对账
	order := s.buildOrder(owner, summary)
	if err := s.createOrder(ctx, order, hold, summary); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order creation failed")
		s.compensate(ctx, token, err)
		return nil, err
	}
	span.AddEvent("order created")
	metrics.OrdersPlacedTotal.Inc()

	// 5. hold 已被订单的预占认领，删掉记录防止后续结算把它当旧 hold 释放
	if err := s.holds.Delete(ctx, token); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("token", token).Msg("failed to delete consumed hold record")
	}
	if err := s.carts.Clear(ctx, owner); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("owner", owner.Key()).Msg("failed to clear cart after order placement")
	}

	// 6. 换取支付会话。失败不回滚订单：订单保持待支付，可重新发起
	redirectURL := ""
	if s.payments != nil {
		redirectURL, err = s.payments.CreateSession(ctx, order)
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("order_no", order.OrderNo).Msg("failed to create payment session")
			redirectURL = ""
		}
	}

	return &PlaceOrderResult{
		OrderNo:     order.OrderNo,
		Status:      order.Status,
		Total:       order.Total,
		RedirectURL: redirectURL,
	}, nil
}

// summarize 读取价格快照并计算 小计/折扣/总额。
func (s *CheckoutService) summarize(ctx context.Context, owner domain.Owner, lines []domain.CartLine, promoCode string) (*CheckoutSummary, error) {
	priced := make([]PricedLine, 0, len(lines))
	subtotal := 0.0
	for _, line := range lines {
		v, err := s.store.GetVariant(ctx, line.VariantID)
		if err != nil {
			return nil, err
		}
		lineTotal := float64(line.Quantity) * v.Price
		priced = append(priced, PricedLine{
			VariantID: v.ID,
			SKU:       v.SKU,
			Name:      v.Name,
			Quantity:  line.Quantity,
			UnitPrice: v.Price,
			LineTotal: lineTotal,
		})
		subtotal += lineTotal
	}

	summary := &CheckoutSummary{Lines: priced, Subtotal: subtotal, Total: subtotal}
	if promoCode != "" && s.promotions != nil {
		snapshot, err := s.promotions.Evaluate(ctx, promoCode, owner.Key(), subtotal)
		if err != nil {
			// 促销被拒（未激活/过期/额度耗尽）作为结算失败向上抛
			return nil, err
		}
		summary.Promotion = snapshot
		summary.Discount = snapshot.Discount
		summary.Total = subtotal - snapshot.Discount
		if summary.Total < 0 {
			summary.Total = 0
		}
	}
	return summary, nil
}

func (s *CheckoutService) buildOrder(owner domain.Owner, summary *CheckoutSummary) *domain.Order {
	order := &domain.Order{
		OrderNo:       uuid.New().String(),
		OwnerKey:      owner.Key(),
		Status:        domain.StatusPendingConfirmation,
		PaymentStatus: domain.PaymentUnpaid,
		Subtotal:      summary.Subtotal,
		Discount:      summary.Discount,
		Total:         summary.Total,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if summary.Promotion != nil {
		order.PromoCode = summary.Promotion.Code
	}
	for _, line := range summary.Lines {
		order.Lines = append(order.Lines, domain.OrderLine{
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		})
	}
	return order
}

// createOrder 在一个事务里持久化订单并与 hold 对账。
// 每行重新锁定规格（防御性：hold 可能在拿到后被同令牌重入顶替过）：
// hold 覆盖到的部分直接消费，不再动台账；
// 覆盖不了的缺口追加预占，弥补 hold 计算与此刻之间的窗口。
// 事务内任何失败整体回滚，订单头和订单行要么全有要么全无。
func (s *CheckoutService) createOrder(ctx context.Context, order *domain.Order, hold *domain.Hold, summary *CheckoutSummary) error {
	ctx, span := s.tracer.Start(ctx, "checkout.CreateOrder")
	defer span.End()

	return s.store.InTx(ctx, func(tx domain.Store) error {
		for i := range order.Lines {
			line := &order.Lines[i]
			v, err := tx.LockVariant(ctx, line.VariantID)
			if err != nil {
				if errors.Is(err, domain.ErrVariantNotFound) {
					recErr := &domain.ReconciliationError{VariantID: line.VariantID}
					logger.Ctx(ctx).Error().Err(recErr).Str("order_no", order.OrderNo).Msg("order reconciliation failed")
					return recErr
				}
				return err
			}
			if shortfall := hold.Consume(line.VariantID, line.Quantity); shortfall > 0 {
				v.ExtendHold(shortfall)
				if err := tx.SaveVariantQuantities(ctx, v); err != nil {
					return err
				}
			}
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		if summary.Promotion != nil && summary.Promotion.Discount > 0 {
			usage := &domain.PromotionUsage{
				PromoCode: summary.Promotion.Code,
				OrderID:   order.ID,
				OwnerKey:  order.OwnerKey,
				Discount:  summary.Promotion.Discount,
				CreatedAt: time.Now(),
			}
			if err := tx.RecordPromotionUsage(ctx, usage); err != nil {
				return err
			}
		}
		return nil
	})
}

// compensate 释放本次结算拿到的 hold。释放失败只记 warn，
// 不允许它替换触发补偿的原始错误。
func (s *CheckoutService) compensate(ctx context.Context, token string, cause error) {
	metrics.CompensationsTotal.Inc()
	if err := s.reservations.Release(ctx, token); err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Str("token", token).
			AnErr("original_error", cause).
			Msg("compensating hold release failed")
	}
}
