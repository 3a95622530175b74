// internal/service/checkout/infrastructure/gorm_cart.go
package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bazaar/internal/service/checkout/domain"
)

// PersistedCart 是已登录用户购物车的 GORM 实现。
//
// Add 在一个事务里锁定规格行和既有的 (owner, variant) 购物车行，
// 合并数量后只按物理库存复验——加购阶段刻意无视预占量，
// 多个买家同时把同一件商品放进购物车是允许的，竞争留到结算时解决。
type PersistedCart struct {
	db *gorm.DB
}

// NewPersistedCart 创建持久化购物车后端。
func NewPersistedCart(db *gorm.DB) *PersistedCart {
	return &PersistedCart{db: db}
}

func (c *PersistedCart) Get(ctx context.Context, owner domain.Owner) ([]domain.CartLine, error) {
	var items []CartItemModel
	err := c.db.WithContext(ctx).
		Where("owner_key = ?", owner.Key()).
		Order("variant_id asc").
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load cart")
	}
	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.CartLine{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	return lines, nil
}

func (c *PersistedCart) Add(ctx context.Context, owner domain.Owner, variantID uint, qty int) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		variant, err := lockVariantTx(tx, variantID)
		if err != nil {
			return err
		}

		var item CartItemModel
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner_key = ? AND variant_id = ?", owner.Key(), variantID).
			First(&item).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := domain.ValidateCartQuantity(variant, qty); err != nil {
				return err
			}
			return tx.Create(&CartItemModel{
				OwnerKey:  owner.Key(),
				VariantID: variantID,
				Quantity:  qty,
			}).Error
		case err != nil:
			return pkgerrors.Wrap(err, "lock cart line")
		}

		merged := item.Quantity + qty
		if err := domain.ValidateCartQuantity(variant, merged); err != nil {
			return err
		}
		return tx.Model(&item).Update("quantity", merged).Error
	})
}

func (c *PersistedCart) Update(ctx context.Context, owner domain.Owner, variantID uint, qty int) error {
	if qty == 0 {
		return c.Remove(ctx, owner, variantID)
	}
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		variant, err := lockVariantTx(tx, variantID)
		if err != nil {
			return err
		}
		if err := domain.ValidateCartQuantity(variant, qty); err != nil {
			return err
		}
		// 行不存在时按新增处理，存在时覆盖数量
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_key"}, {Name: "variant_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"quantity": qty}),
		}).Create(&CartItemModel{
			OwnerKey:  owner.Key(),
			VariantID: variantID,
			Quantity:  qty,
		}).Error
	})
}

func (c *PersistedCart) Remove(ctx context.Context, owner domain.Owner, variantID uint) error {
	err := c.db.WithContext(ctx).
		Where("owner_key = ? AND variant_id = ?", owner.Key(), variantID).
		Delete(&CartItemModel{}).Error
	return pkgerrors.Wrap(err, "remove cart line")
}

func (c *PersistedCart) Clear(ctx context.Context, owner domain.Owner) error {
	err := c.db.WithContext(ctx).
		Where("owner_key = ?", owner.Key()).
		Delete(&CartItemModel{}).Error
	return pkgerrors.Wrap(err, "clear cart")
}

func lockVariantTx(tx *gorm.DB, variantID uint) (*domain.Variant, error) {
	var model VariantModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, variantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrVariantNotFound
		}
		return nil, pkgerrors.Wrap(err, "lock variant")
	}
	return ToDomainVariant(&model), nil
}

var _ domain.CartBackend = (*PersistedCart)(nil)
