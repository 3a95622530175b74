// internal/service/checkout/infrastructure/gorm_model.go
package infrastructure

import (
	"time"

	"gorm.io/gorm"
)

// VariantModel 对应数据库中的 variant 表，是库存台账的权威记录。
// stock_quantity / reserved_quantity 只允许在持有行锁的事务内修改。
type VariantModel struct {
	gorm.Model
	SKU               string  `gorm:"uniqueIndex;size:64"`
	Name              string  `gorm:"size:255"`
	Price             float64 `gorm:"type:decimal(10,2)"`
	StockQuantity     int     `gorm:"not null;default:0"`
	ReservedQuantity  int     `gorm:"not null;default:0"`
	TrackInventory    bool    `gorm:"not null;default:true"`
	AllowBackorder    bool    `gorm:"not null;default:false"`
	MinimumStockLevel int     `gorm:"not null;default:0"`
}

// TableName 指定 GORM 应该使用的表名
func (VariantModel) TableName() string {
	return "variant"
}

// CartItemModel 对应 cart_item 表。(owner_key, variant_id) 唯一：
// 同一规格重复加购合并数量而不是新增行。
type CartItemModel struct {
	gorm.Model
	OwnerKey  string `gorm:"size:128;uniqueIndex:idx_owner_variant"`
	VariantID uint   `gorm:"uniqueIndex:idx_owner_variant"`
	Quantity  int    `gorm:"not null"`
}

// TableName 指定 GORM 应该使用的表名
func (CartItemModel) TableName() string {
	return "cart_item"
}

// OrderModel 对应 orders 表。
type OrderModel struct {
	gorm.Model
	OrderNo       string  `gorm:"uniqueIndex;size:64"`
	OwnerKey      string  `gorm:"index;size:128"`
	Status        string  `gorm:"size:32"`
	PaymentStatus string  `gorm:"size:32"`
	Subtotal      float64 `gorm:"type:decimal(10,2)"`
	Discount      float64 `gorm:"type:decimal(10,2)"`
	Total         float64 `gorm:"type:decimal(10,2)"`
	PromoCode     string  `gorm:"size:64"`
	// 关联关系
	Lines []OrderLineModel `gorm:"foreignKey:OrderID"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "orders"
}

// OrderLineModel 对应 order_line 表，保存下单时刻的价格/数量快照。
type OrderLineModel struct {
	gorm.Model
	OrderID   uint `gorm:"index"`
	VariantID uint
	Quantity  int
	UnitPrice float64 `gorm:"type:decimal(10,2)"`
	LineTotal float64 `gorm:"type:decimal(10,2)"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderLineModel) TableName() string {
	return "order_line"
}

// PromotionModel 对应 promotion 表。condition 列保存一条 CEL 资格表达式。
type PromotionModel struct {
	gorm.Model
	Code      string  `gorm:"uniqueIndex;size:64"`
	Kind      string  `gorm:"size:16"`
	Value     float64 `gorm:"type:decimal(10,2)"`
	Cap       float64 `gorm:"type:decimal(10,2)"`
	Condition string  `gorm:"type:text"`
	Active    bool    `gorm:"not null;default:false"`
	StartsAt  time.Time
	EndsAt    time.Time
}

// TableName 指定 GORM 应该使用的表名
func (PromotionModel) TableName() string {
	return "promotion"
}

// PromotionUsageModel 对应 promotion_usage 表，和订单创建同事务写入。
type PromotionUsageModel struct {
	gorm.Model
	PromoCode string  `gorm:"index;size:64"`
	OrderID   uint    `gorm:"index"`
	OwnerKey  string  `gorm:"size:128"`
	Discount  float64 `gorm:"type:decimal(10,2)"`
}

// TableName 指定 GORM 应该使用的表名
func (PromotionUsageModel) TableName() string {
	return "promotion_usage"
}
