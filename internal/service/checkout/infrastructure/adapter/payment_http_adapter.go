// internal/service/checkout/infrastructure/adapter/payment_http_adapter.go
package adapter

import (
	"context"
	"fmt"

	"bazaar/internal/pkg/httpclient"
	"bazaar/internal/service/checkout/domain"
	"bazaar/internal/service/checkout/port"
)

// PaymentHTTPAdapter 是 port.PaymentGateway 的 HTTP 实现。
// 只负责换取支付会话；支付结果经由回调/消息进入库存提交流程。
type PaymentHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

// NewPaymentHTTPAdapter 创建支付网关适配器。
func NewPaymentHTTPAdapter(client *httpclient.Client, baseURL string) *PaymentHTTPAdapter {
	return &PaymentHTTPAdapter{client: client, baseURL: baseURL}
}

type createSessionRequest struct {
	OrderNo  string  `json:"orderNo"`
	OwnerKey string  `json:"ownerKey"`
	Amount   float64 `json:"amount"`
}

type createSessionResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

// CreateSession 为订单创建支付会话。
func (a *PaymentHTTPAdapter) CreateSession(ctx context.Context, order *domain.Order) (string, error) {
	req := createSessionRequest{
		OrderNo:  order.OrderNo,
		OwnerKey: order.OwnerKey,
		Amount:   order.Total,
	}
	var resp createSessionResponse
	if err := a.client.PostJSON(ctx, a.baseURL+"/sessions", req, &resp); err != nil {
		return "", fmt.Errorf("payment session creation failed: %w", err)
	}
	return resp.RedirectURL, nil
}

var _ port.PaymentGateway = (*PaymentHTTPAdapter)(nil)
