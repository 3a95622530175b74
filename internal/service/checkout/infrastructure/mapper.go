// internal/service/checkout/infrastructure/mapper.go
package infrastructure

import (
	"gorm.io/gorm"

	"bazaar/internal/service/checkout/domain"
)

// ToDomainVariant 将数据库模型转换为领域模型
func ToDomainVariant(model *VariantModel) *domain.Variant {
	if model == nil {
		return nil
	}
	return &domain.Variant{
		ID:                model.ID,
		SKU:               model.SKU,
		Name:              model.Name,
		Price:             model.Price,
		StockQuantity:     model.StockQuantity,
		ReservedQuantity:  model.ReservedQuantity,
		TrackInventory:    model.TrackInventory,
		AllowBackorder:    model.AllowBackorder,
		MinimumStockLevel: model.MinimumStockLevel,
		UpdatedAt:         model.UpdatedAt,
	}
}

// ToDomainOrder 将数据库模型转换为领域模型
func ToDomainOrder(model *OrderModel) *domain.Order {
	if model == nil {
		return nil
	}
	order := &domain.Order{
		ID:            model.ID,
		OrderNo:       model.OrderNo,
		OwnerKey:      model.OwnerKey,
		Status:        domain.Status(model.Status),
		PaymentStatus: domain.PaymentStatus(model.PaymentStatus),
		Subtotal:      model.Subtotal,
		Discount:      model.Discount,
		Total:         model.Total,
		PromoCode:     model.PromoCode,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
	for i := range model.Lines {
		line := &model.Lines[i]
		order.Lines = append(order.Lines, domain.OrderLine{
			ID:        line.ID,
			OrderID:   line.OrderID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		})
	}
	return order
}

// FromDomainOrder 将领域模型转换为数据库模型 (用于插入)
func FromDomainOrder(order *domain.Order) *OrderModel {
	if order == nil {
		return nil
	}
	model := &OrderModel{
		Model:         gorm.Model{ID: order.ID},
		OrderNo:       order.OrderNo,
		OwnerKey:      order.OwnerKey,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		Subtotal:      order.Subtotal,
		Discount:      order.Discount,
		Total:         order.Total,
		PromoCode:     order.PromoCode,
	}
	for _, line := range order.Lines {
		model.Lines = append(model.Lines, OrderLineModel{
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		})
	}
	return model
}

// ToDomainPromotion 将数据库模型转换为领域模型
func ToDomainPromotion(model *PromotionModel) *domain.Promotion {
	if model == nil {
		return nil
	}
	return &domain.Promotion{
		ID:        model.ID,
		Code:      model.Code,
		Kind:      domain.PromotionKind(model.Kind),
		Value:     model.Value,
		Cap:       model.Cap,
		Condition: model.Condition,
		Active:    model.Active,
		StartsAt:  model.StartsAt,
		EndsAt:    model.EndsAt,
	}
}
