// internal/service/checkout/infrastructure/gorm_store.go
package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bazaar/internal/service/checkout/domain"
)

// GormStore 是 domain.Store 的 GORM 实现。
// InTx 返回的实例绑定到事务连接上，行锁随事务提交/回滚释放。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建一个新的 GORM 仓储实例
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate 建表/补列。只在服务启动时调用。
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&VariantModel{},
		&CartItemModel{},
		&OrderModel{},
		&OrderLineModel{},
		&PromotionModel{},
		&PromotionUsageModel{},
	)
}

// InTx 在一个数据库事务内执行 fn。fn 返回错误时 GORM 自动回滚。
func (s *GormStore) InTx(ctx context.Context, fn func(tx domain.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// LockVariant 以 SELECT ... FOR UPDATE 读取规格行。
// 并发的结算事务在这里排队，直到持锁事务结束。
func (s *GormStore) LockVariant(ctx context.Context, variantID uint) (*domain.Variant, error) {
	var model VariantModel
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, variantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrVariantNotFound
		}
		return nil, pkgerrors.Wrap(err, "lock variant")
	}
	return ToDomainVariant(&model), nil
}

// GetVariant 普通读取，不加锁。
func (s *GormStore) GetVariant(ctx context.Context, variantID uint) (*domain.Variant, error) {
	var model VariantModel
	err := s.db.WithContext(ctx).First(&model, variantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrVariantNotFound
		}
		return nil, pkgerrors.Wrap(err, "get variant")
	}
	return ToDomainVariant(&model), nil
}

// SaveVariantQuantities 只更新数量字段，其余列不动。
func (s *GormStore) SaveVariantQuantities(ctx context.Context, v *domain.Variant) error {
	err := s.db.WithContext(ctx).
		Model(&VariantModel{}).
		Where("id = ?", v.ID).
		Updates(map[string]interface{}{
			"stock_quantity":    v.StockQuantity,
			"reserved_quantity": v.ReservedQuantity,
		}).Error
	return pkgerrors.Wrap(err, "save variant quantities")
}

// CreateOrder 持久化订单头与全部订单行，并把生成的主键写回领域对象。
func (s *GormStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	model := FromDomainOrder(order)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return pkgerrors.Wrap(err, "create order")
	}
	order.ID = model.ID
	for i := range model.Lines {
		order.Lines[i].ID = model.Lines[i].ID
		order.Lines[i].OrderID = model.Lines[i].OrderID
	}
	return nil
}

// GetOrder 按订单号加载订单（含订单行）。
func (s *GormStore) GetOrder(ctx context.Context, orderNo string) (*domain.Order, error) {
	var model OrderModel
	err := s.db.WithContext(ctx).
		Preload("Lines").
		Where("order_no = ?", orderNo).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, pkgerrors.Wrap(err, "get order")
	}
	return ToDomainOrder(&model), nil
}

// UpdateOrderStatus 更新订单与支付状态。
func (s *GormStore) UpdateOrderStatus(ctx context.Context, orderNo string, status domain.Status, payment domain.PaymentStatus) error {
	err := s.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("order_no = ?", orderNo).
		Updates(map[string]interface{}{
			"status":         string(status),
			"payment_status": string(payment),
		}).Error
	return pkgerrors.Wrap(err, "update order status")
}

// RecordPromotionUsage 记录促销使用。
func (s *GormStore) RecordPromotionUsage(ctx context.Context, usage *domain.PromotionUsage) error {
	model := &PromotionUsageModel{
		PromoCode: usage.PromoCode,
		OrderID:   usage.OrderID,
		OwnerKey:  usage.OwnerKey,
		Discount:  usage.Discount,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return pkgerrors.Wrap(err, "record promotion usage")
	}
	usage.ID = model.ID
	return nil
}

var _ domain.Store = (*GormStore)(nil)
