// internal/service/checkout/domain/hold.go
package domain

import "context"

// Hold 是一次结算尝试对库存的临时占用：规格 → 已预占数量。
// 它由预占服务创建，被订单创建消费，结算失败时必须整体释放。
// Token 是显式传递的结算令牌，hold 不挂在任何隐式会话状态上。
type Hold struct {
	Token string
	Items map[uint]int
}

// NewHold 创建一个空的 hold。
func NewHold(token string) *Hold {
	return &Hold{Token: token, Items: make(map[uint]int)}
}

// IsEmpty 判断 hold 是否没有任何占用。
func (h *Hold) IsEmpty() bool {
	return h == nil || len(h.Items) == 0
}

// Held 返回某规格当前占用的数量。
func (h *Hold) Held(variantID uint) int {
	if h == nil {
		return 0
	}
	return h.Items[variantID]
}

// Consume 从 hold 中消费 needed 件，返回 hold 覆盖不了的缺口。
// 订单创建用它对账：缺口部分需要追加预占。
func (h *Hold) Consume(variantID uint, needed int) (shortfall int) {
	held := h.Held(variantID)
	if held >= needed {
		h.Items[variantID] = held - needed
		return 0
	}
	delete(h.Items, variantID)
	return needed - held
}

// HoldStore 按结算令牌持久化 hold，供后续消费或释放。
type HoldStore interface {
	Get(ctx context.Context, token string) (*Hold, error)
	Put(ctx context.Context, hold *Hold) error
	Delete(ctx context.Context, token string) error
}
