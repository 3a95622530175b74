// internal/service/checkout/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrVariantNotFound 表示商品规格不存在。
	ErrVariantNotFound = errors.New("variant not found")

	// ErrEmptyCart 表示购物车为空，无法进入结算。
	ErrEmptyCart = errors.New("cart is empty")

	// ErrOrderNotFound 表示订单不存在。
	ErrOrderNotFound = errors.New("order not found")

	// ErrPromotionNotApplicable 表示促销不可用（未激活、已过期或条件不满足）。
	ErrPromotionNotApplicable = errors.New("promotion not applicable")
)

// InsufficientStockError 表示请求数量超出了可售数量。
// 加购时校验的是物理库存，预占/扣减时校验的是可用库存（物理库存 − 预占量）。
// 这类错误不重试，直接呈现给购买者。
type InsufficientStockError struct {
	VariantID uint
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %d: requested %d, available %d",
		e.VariantID, e.Requested, e.Available)
}

// ReconciliationError 表示订单创建时找不到预期要锁定的规格行。
// 这是数据完整性问题，不重试，按 error 级别记录。
type ReconciliationError struct {
	VariantID uint
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation failed: variant %d disappeared during order creation", e.VariantID)
}

// IsInsufficientStock 判断错误链上是否存在库存不足。
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}
