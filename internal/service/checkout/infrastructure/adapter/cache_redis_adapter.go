// internal/service/checkout/infrastructure/adapter/cache_redis_adapter.go
package adapter

import (
	"context"
	"fmt"

	pkgredis "bazaar/internal/pkg/redis"
	"bazaar/internal/service/checkout/port"
)

// CacheRedisAdapter 是 port.CacheInvalidator 的 Redis 实现。
// 商品详情读模型按 product:detail:{variantID} 缓存，
// 数量变更后删除对应键，下一次读取回源重建。
type CacheRedisAdapter struct {
	client *pkgredis.Client
}

// NewCacheRedisAdapter 创建缓存失效适配器。
func NewCacheRedisAdapter(client *pkgredis.Client) *CacheRedisAdapter {
	return &CacheRedisAdapter{client: client}
}

// InvalidateVariants 删除给定规格的详情缓存键。
func (a *CacheRedisAdapter) InvalidateVariants(ctx context.Context, variantIDs ...uint) error {
	if len(variantIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(variantIDs))
	for _, id := range variantIDs {
		keys = append(keys, fmt.Sprintf("product:detail:{%d}", id))
	}
	return a.client.GetClient().Del(ctx, keys...).Err()
}

var _ port.CacheInvalidator = (*CacheRedisAdapter)(nil)
