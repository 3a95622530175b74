// internal/service/checkout/domain/cart.go
package domain

import "context"

// Owner 标识购物车的归属：已登录用户或匿名会话。
type Owner struct {
	UserID    string
	SessionID string
}

// IsAnonymous 判断是否为匿名会话购物车。
func (o Owner) IsAnonymous() bool {
	return o.UserID == ""
}

// Key 返回用于持久化/缓存的归属键。
func (o Owner) Key() string {
	if o.IsAnonymous() {
		return "session:" + o.SessionID
	}
	return "user:" + o.UserID
}

// CartLine 是购物车中的一行：(归属, 规格) 唯一，数量为正整数。
// 同一规格重复加购时合并数量而不是新增行。
type CartLine struct {
	VariantID uint `json:"variantId"`
	Quantity  int  `json:"quantity"`
}

// CartBackend 统一了两种购物车实现：
// 已登录用户走持久化行（MySQL），匿名会话走会话级存储（Redis）。
// 编排层只依赖这个接口，不关心背后是哪种实现。
type CartBackend interface {
	Get(ctx context.Context, owner Owner) ([]CartLine, error)

	// Add 合并数量并按物理库存重新校验；不足时返回 InsufficientStockError。
	Add(ctx context.Context, owner Owner, variantID uint, qty int) error

	// Update 将某行数量改为 qty；qty 为 0 等价于 Remove。
	Update(ctx context.Context, owner Owner, variantID uint, qty int) error

	Remove(ctx context.Context, owner Owner, variantID uint) error
	Clear(ctx context.Context, owner Owner) error
}
