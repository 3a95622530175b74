// internal/service/checkout/infrastructure/adapter/promotion_cel_adapter.go
package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"bazaar/internal/service/checkout/domain"
)

// PromotionCELAdapter 是 domain.PromotionEvaluator 的本地实现。
// 促销行携带一条 CEL 资格表达式（如 "subtotal >= 100.0"），
// 这里把第三方表达式引擎适配到我们自己的领域接口上。
// 预算与用量核算属于促销子系统，不在这里。
type PromotionCELAdapter struct {
	repo domain.PromotionRepository
	env  *cel.Env

	mu       sync.Mutex
	programs map[string]cel.Program // 按表达式缓存编译结果
}

// NewPromotionCELAdapter 创建促销评估适配器。
func NewPromotionCELAdapter(repo domain.PromotionRepository) (*PromotionCELAdapter, error) {
	env, err := cel.NewEnv(
		cel.Variable("subtotal", cel.DoubleType),
		cel.Variable("owner", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build CEL environment: %w", err)
	}
	return &PromotionCELAdapter{
		repo:     repo,
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Evaluate 实现了 domain.PromotionEvaluator 接口。
func (a *PromotionCELAdapter) Evaluate(ctx context.Context, promoCode, ownerKey string, subtotal float64) (*domain.PromotionSnapshot, error) {
	promo, err := a.repo.FindByCode(ctx, promoCode)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !promo.Active || now.Before(promo.StartsAt) || now.After(promo.EndsAt) {
		return nil, domain.ErrPromotionNotApplicable
	}

	if promo.Condition != "" {
		eligible, err := a.evaluateCondition(promo.Condition, ownerKey, subtotal)
		if err != nil {
			return nil, fmt.Errorf("promotion %s condition evaluation failed: %w", promoCode, err)
		}
		if !eligible {
			return nil, domain.ErrPromotionNotApplicable
		}
	}

	discount := 0.0
	switch promo.Kind {
	case domain.PromotionPercent:
		discount = subtotal * promo.Value / 100
	case domain.PromotionFixed:
		discount = promo.Value
	default:
		return nil, fmt.Errorf("unknown promotion kind %q", promo.Kind)
	}
	if promo.Cap > 0 && discount > promo.Cap {
		discount = promo.Cap
	}
	if discount > subtotal {
		discount = subtotal
	}

	return &domain.PromotionSnapshot{
		Code:     promo.Code,
		Kind:     promo.Kind,
		Value:    promo.Value,
		Cap:      promo.Cap,
		Discount: discount,
	}, nil
}

func (a *PromotionCELAdapter) evaluateCondition(condition, ownerKey string, subtotal float64) (bool, error) {
	prg, err := a.program(condition)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]interface{}{
		"subtotal": subtotal,
		"owner":    ownerKey,
	})
	if err != nil {
		return false, err
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition did not evaluate to a boolean: %v", out.Value())
	}
	return result, nil
}

func (a *PromotionCELAdapter) program(condition string) (cel.Program, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if prg, ok := a.programs[condition]; ok {
		return prg, nil
	}
	ast, issues := a.env.Compile(condition)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err() // 规则定义本身可能存在语法错误
	}
	prg, err := a.env.Program(ast)
	if err != nil {
		return nil, err
	}
	a.programs[condition] = prg
	return prg, nil
}

var _ domain.PromotionEvaluator = (*PromotionCELAdapter)(nil)
