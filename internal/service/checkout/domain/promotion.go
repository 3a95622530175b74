// internal/service/checkout/domain/promotion.go
package domain

import (
	"context"
	"time"
)

// PromotionKind 区分折扣的计算方式。
type PromotionKind string

const (
	PromotionPercent PromotionKind = "PERCENT" // Value 为百分比，如 10 表示九折
	PromotionFixed   PromotionKind = "FIXED"   // Value 为固定减免金额
)

// Promotion 是促销规则的只读视图。
// Condition 是一条 CEL 表达式，对 subtotal / userID 求值判定资格；
// 预算与用量核算由促销子系统负责，不在本核心内。
type Promotion struct {
	ID        uint
	Code      string
	Kind      PromotionKind
	Value     float64
	Cap       float64 // 折扣上限，0 表示不封顶
	Condition string
	Active    bool
	StartsAt  time.Time
	EndsAt    time.Time
}

// PromotionSnapshot 是结算时刻的促销快照：显式字段，不是松散的 map。
// Discount 已按订单小计算好，随订单落库。
type PromotionSnapshot struct {
	Code     string        `json:"code"`
	Kind     PromotionKind `json:"kind"`
	Value    float64       `json:"value"`
	Cap      float64       `json:"cap"`
	Discount float64       `json:"discount"`
}

// PromotionRepository 定义了促销规则的只读持久化接口。
type PromotionRepository interface {
	FindByCode(ctx context.Context, code string) (*Promotion, error)
}

// PromotionEvaluator 是促销协作方的出站端口。
// 给定促销码与小计，返回折扣快照；促销不可用时返回 ErrPromotionNotApplicable。
type PromotionEvaluator interface {
	Evaluate(ctx context.Context, promoCode, ownerKey string, subtotal float64) (*PromotionSnapshot, error)
}
