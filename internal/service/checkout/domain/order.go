// internal/service/checkout/domain/order.go
package domain

import (
	"errors"
	"time"
)

// Status 定义了订单的生命周期状态
type Status string

const (
	StatusPendingConfirmation Status = "PENDING_CONFIRMATION" // 已创建，等待支付结果
	StatusConfirmed           Status = "CONFIRMED"            // 支付成功，库存已扣减
	StatusCancelled           Status = "CANCELLED"            // 支付失败或取消，预占已释放
	StatusRefunded            Status = "REFUNDED"             // 已确认订单被冲正，库存已归还
)

// PaymentStatus 定义了订单的支付状态
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Order 是一次成功结算产生的订单聚合根。
// 订单行是下单瞬间的价格/数量快照，创建后不可变；
// 之后的目录调价不影响已有订单。
type Order struct {
	ID            uint
	OrderNo       string
	OwnerKey      string
	Status        Status
	PaymentStatus PaymentStatus
	Subtotal      float64
	Discount      float64
	Total         float64
	PromoCode     string
	Lines         []OrderLine
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderLine 是订单中的一行，带创建时的单价与行小计快照。
type OrderLine struct {
	ID        uint
	OrderID   uint
	VariantID uint
	Quantity  int
	UnitPrice float64
	LineTotal float64
}

// MarkConfirmed 在支付成功、库存扣减完成后调用。
func (o *Order) MarkConfirmed() error {
	if o.Status != StatusPendingConfirmation {
		return errors.New("only pending orders can be confirmed")
	}
	o.Status = StatusConfirmed
	o.PaymentStatus = PaymentPaid
	o.UpdatedAt = time.Now()
	return nil
}

// MarkCancelled 在支付失败或超时取消、预占释放完成后调用。
func (o *Order) MarkCancelled() error {
	if o.Status != StatusPendingConfirmation {
		return errors.New("only pending orders can be cancelled")
	}
	o.Status = StatusCancelled
	o.PaymentStatus = PaymentFailed
	o.UpdatedAt = time.Now()
	return nil
}

// MarkRefunded 在已确认订单冲正、库存归还完成后调用。
func (o *Order) MarkRefunded() error {
	if o.Status != StatusConfirmed {
		return errors.New("only confirmed orders can be refunded")
	}
	o.Status = StatusRefunded
	o.PaymentStatus = PaymentRefunded
	o.UpdatedAt = time.Now()
	return nil
}

// PromotionUsage 记录一次促销在某订单上的使用，随订单创建在同一事务内落库。
type PromotionUsage struct {
	ID        uint
	PromoCode string
	OrderID   uint
	OwnerKey  string
	Discount  float64
	CreatedAt time.Time
}
