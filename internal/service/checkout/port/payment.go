// internal/service/checkout/port/payment.go
package port

import (
	"context"

	"bazaar/internal/service/checkout/domain"
)

// PaymentGateway 是支付协作方的出站端口。
// 结账编排器只负责换取支付会话；支付结果通过回调/消息进入库存提交流程。
type PaymentGateway interface {
	// CreateSession 为订单创建一个支付会话，返回跳转地址。
	CreateSession(ctx context.Context, order *domain.Order) (redirectURL string, err error)
}
