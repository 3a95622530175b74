// internal/service/checkout/application/dto.go
package application

import "bazaar/internal/service/checkout/domain"

// PricedLine 是结算视图中的一行：数量与价格快照。
type PricedLine struct {
	VariantID uint    `json:"variantId"`
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
}

// CheckoutSummary 是 PrepareCheckout 的输出：行、合计与促销快照。
type CheckoutSummary struct {
	Lines     []PricedLine              `json:"lines"`
	Subtotal  float64                   `json:"subtotal"`
	Discount  float64                   `json:"discount"`
	Total     float64                   `json:"total"`
	Promotion *domain.PromotionSnapshot `json:"promotion,omitempty"`
}

// PlaceOrderResult 是 PlaceOrder 的输出。
// RedirectURL 为空表示支付会话创建失败，订单保持待支付，可重新发起支付。
type PlaceOrderResult struct {
	OrderNo     string        `json:"orderNo"`
	Status      domain.Status `json:"status"`
	Total       float64       `json:"total"`
	RedirectURL string        `json:"redirectUrl,omitempty"`
}
