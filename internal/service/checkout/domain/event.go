// internal/service/checkout/domain/event.go
package domain

import "time"

// PaymentResultEvent 是支付协作方回调的事件载体。
// 成功驱动库存提交，失败驱动预占释放。
type PaymentResultEvent struct {
	TraceID   string    `json:"traceId,omitempty"`
	OrderNo   string    `json:"orderNo"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"`
	PaidAt    time.Time `json:"paidAt,omitempty"`
	EventID   string    `json:"eventId"`
	Gateway   string    `json:"gateway,omitempty"`
	Reference string    `json:"reference,omitempty"`
}

// LowStockEvent 在提交扣减使可用量触及补货水位时发布。
// 通知投递本身由下游负责，这里只负责发出信号。
type LowStockEvent struct {
	VariantID uint      `json:"variantId"`
	SKU       string    `json:"sku"`
	Available int       `json:"available"`
	Threshold int       `json:"threshold"`
	At        time.Time `json:"at"`
}
