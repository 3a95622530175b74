// internal/service/checkout/domain/variant.go
package domain

import "time"

// Variant 是库存台账的根实体：每一个可售规格一行。
// StockQuantity 是物理在库数，ReservedQuantity 是在途结算的预占数。
// 不变式：StockQuantity ≥ ReservedQuantity ≥ 0，在任何并发交错下都成立。
// 所有数量变更都必须发生在持有该行排他锁的事务内。
type Variant struct {
	ID                uint
	SKU               string
	Name              string
	Price             float64
	StockQuantity     int
	ReservedQuantity  int
	TrackInventory    bool // 为 false 时跳过全部预占/可用性检查
	AllowBackorder    bool // 为 true 时允许在可用量不足的情况下完成扣减
	MinimumStockLevel int
	UpdatedAt         time.Time
}

// Available 返回当前真正可购买的数量。永远是推导值，不单独落库。
func (v *Variant) Available() int {
	return v.StockQuantity - v.ReservedQuantity
}

// Reserve 为一次结算预占 qty 件。
// 开启库存跟踪时要求可用量充足；失败不产生任何变更。
func (v *Variant) Reserve(qty int) error {
	if qty <= 0 {
		return &InsufficientStockError{VariantID: v.ID, Requested: qty, Available: v.Available()}
	}
	if v.TrackInventory && v.Available() < qty {
		return &InsufficientStockError{VariantID: v.ID, Requested: qty, Available: v.Available()}
	}
	v.ReservedQuantity += qty
	return nil
}

// ReleaseHold 归还 qty 件预占，下限为零。
// 用于结算重入时释放旧 hold，以及订单创建失败后的补偿。
func (v *Variant) ReleaseHold(qty int) {
	v.ReservedQuantity -= qty
	if v.ReservedQuantity < 0 {
		v.ReservedQuantity = 0
	}
}

// CommitSale 把预占转为永久扣减：物理库存和预占量同步下降。
// 这是唯一会减少 StockQuantity 的路径。
// 支付确认与下单之间库存可能被别的路径改动过，所以这里再校验一次。
// 注意校验对象是物理库存：本单自己的预占此刻还计在 ReservedQuantity 里，
// 按可用量校验会把占满最后几件库存的订单误判为不足。
// 允许欠货销售（backorder）的规格跳过校验。
func (v *Variant) CommitSale(qty int) error {
	if v.TrackInventory && !v.AllowBackorder && v.StockQuantity < qty {
		return &InsufficientStockError{VariantID: v.ID, Requested: qty, Available: v.Available()}
	}
	v.StockQuantity -= qty
	v.ReleaseHold(qty)
	return nil
}

// ExtendHold 无条件追加 qty 件预占。
// 仅用于订单创建对账时补齐 hold 覆盖不了的缺口：
// 这里信任稍早的 verify-and-reserve 校验，刻意不对可用量做第二次检查。
func (v *Variant) ExtendHold(qty int) {
	v.ReservedQuantity += qty
}

// RestoreSale 撤销一次已完成的扣减：归还物理库存，清掉可能残留的预占。
func (v *Variant) RestoreSale(qty int) {
	v.StockQuantity += qty
	v.ReleaseHold(qty)
}

// IsLowStock 判断可用量是否已触及补货水位。只是信号，不是硬性闸门。
func (v *Variant) IsLowStock() bool {
	return v.TrackInventory && v.Available() <= v.MinimumStockLevel
}

// ValidateCartQuantity 校验加购/改购后的目标数量。
// 刻意只看物理库存、不看预占量：预占只在结算进行中才有意义，
// 多个买家同时把同一件商品放进购物车是允许的，竞争留到结算时解决。
func ValidateCartQuantity(v *Variant, requested int) error {
	if requested <= 0 {
		// 非正数的请求永远无法满足，按库存不足处理
		return &InsufficientStockError{VariantID: v.ID, Requested: requested, Available: v.StockQuantity}
	}
	if v.TrackInventory && requested > v.StockQuantity {
		return &InsufficientStockError{VariantID: v.ID, Requested: requested, Available: v.StockQuantity}
	}
	return nil
}
