// internal/service/checkout/infrastructure/redis_cart.go
package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	pkgredis "bazaar/internal/pkg/redis"
	"bazaar/internal/service/checkout/domain"
)

// VariantReader 是临时购物车需要的最小读取能力。
type VariantReader interface {
	GetVariant(ctx context.Context, variantID uint) (*domain.Variant, error)
}

// EphemeralCart 是匿名会话购物车的 Redis 实现。
// 一个 hash 存一个会话：field 为规格 ID，value 为数量。
// 同一会话单写者的假设下不需要行锁，合并与校验策略与持久化购物车一致。
type EphemeralCart struct {
	client   *pkgredis.Client
	variants VariantReader
}

// NewEphemeralCart 创建会话级购物车后端。
func NewEphemeralCart(client *pkgredis.Client, variants VariantReader) *EphemeralCart {
	return &EphemeralCart{client: client, variants: variants}
}

func cartKey(owner domain.Owner) string {
	return fmt.Sprintf("cart:{%s}", owner.Key())
}

func (c *EphemeralCart) Get(ctx context.Context, owner domain.Owner) ([]domain.CartLine, error) {
	fields, err := c.client.GetClient().HGetAll(ctx, cartKey(owner)).Result()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load session cart")
	}
	lines := make([]domain.CartLine, 0, len(fields))
	for field, value := range fields {
		variantID, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		qty, err := strconv.Atoi(value)
		if err != nil || qty <= 0 {
			continue
		}
		lines = append(lines, domain.CartLine{VariantID: uint(variantID), Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].VariantID < lines[j].VariantID })
	return lines, nil
}

func (c *EphemeralCart) Add(ctx context.Context, owner domain.Owner, variantID uint, qty int) error {
	key := cartKey(owner)
	field := strconv.FormatUint(uint64(variantID), 10)

	current, err := c.client.GetClient().HGet(ctx, key, field).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return pkgerrors.Wrap(err, "read session cart line")
		}
		current = 0
	}
	merged := current + qty

	if err := c.validate(ctx, variantID, merged); err != nil {
		return err
	}
	return c.client.GetClient().HSet(ctx, key, field, merged).Err()
}

func (c *EphemeralCart) Update(ctx context.Context, owner domain.Owner, variantID uint, qty int) error {
	if qty == 0 {
		return c.Remove(ctx, owner, variantID)
	}
	if err := c.validate(ctx, variantID, qty); err != nil {
		return err
	}
	field := strconv.FormatUint(uint64(variantID), 10)
	return c.client.GetClient().HSet(ctx, cartKey(owner), field, qty).Err()
}

func (c *EphemeralCart) Remove(ctx context.Context, owner domain.Owner, variantID uint) error {
	field := strconv.FormatUint(uint64(variantID), 10)
	return c.client.GetClient().HDel(ctx, cartKey(owner), field).Err()
}

func (c *EphemeralCart) Clear(ctx context.Context, owner domain.Owner) error {
	return c.client.GetClient().Del(ctx, cartKey(owner)).Err()
}

func (c *EphemeralCart) validate(ctx context.Context, variantID uint, requested int) error {
	variant, err := c.variants.GetVariant(ctx, variantID)
	if err != nil {
		return err
	}
	return domain.ValidateCartQuantity(variant, requested)
}

var _ domain.CartBackend = (*EphemeralCart)(nil)
