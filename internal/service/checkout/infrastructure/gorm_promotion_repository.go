// internal/service/checkout/infrastructure/gorm_promotion_repository.go
package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"bazaar/internal/service/checkout/domain"
)

// GormPromotionRepository 是 PromotionRepository 的 GORM 实现
type GormPromotionRepository struct {
	db *gorm.DB
}

// NewGormPromotionRepository 创建一个新的促销仓储实例
func NewGormPromotionRepository(db *gorm.DB) *GormPromotionRepository {
	return &GormPromotionRepository{db: db}
}

// FindByCode 按促销码查找促销规则
func (r *GormPromotionRepository) FindByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	var model PromotionModel
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPromotionNotApplicable
		}
		return nil, pkgerrors.Wrap(err, "find promotion")
	}
	return ToDomainPromotion(&model), nil
}

var _ domain.PromotionRepository = (*GormPromotionRepository)(nil)
