// internal/service/checkout/domain/repository.go
package domain

import "context"

// Store 是库存台账与订单的聚合仓储接口。
// 它位于领域层，由基础设施层实现。
//
// 订单创建必须和台账对账发生在同一个事务里，所以两者共用一个接口：
// InTx 内拿到的 Store 上的所有操作都在同一事务中执行，
// 事务内任何一步失败整体回滚——不会留下半个订单或半份预占。
type Store interface {
	// InTx 在一个事务内执行 fn。fn 返回错误时整个事务回滚。
	InTx(ctx context.Context, fn func(tx Store) error) error

	// LockVariant 以排他行锁读取规格（SELECT ... FOR UPDATE）。
	// 只允许在 InTx 内调用；锁随事务结束释放。
	LockVariant(ctx context.Context, variantID uint) (*Variant, error)

	// GetVariant 普通读取，不加锁。
	GetVariant(ctx context.Context, variantID uint) (*Variant, error)

	// SaveVariantQuantities 持久化规格的数量字段变更。
	SaveVariantQuantities(ctx context.Context, v *Variant) error

	// CreateOrder 持久化订单头和全部订单行。
	CreateOrder(ctx context.Context, order *Order) error

	// GetOrder 按订单号加载订单（含订单行）。
	GetOrder(ctx context.Context, orderNo string) (*Order, error)

	// UpdateOrderStatus 更新订单与支付状态。
	UpdateOrderStatus(ctx context.Context, orderNo string, status Status, payment PaymentStatus) error

	// RecordPromotionUsage 记录促销使用，和订单创建同事务。
	RecordPromotionUsage(ctx context.Context, usage *PromotionUsage) error
}
