// internal/service/checkout/port/cache.go
package port

import "context"

// CacheInvalidator 是缓存失效信号的出站端口。
// 任何 stockQuantity / reservedQuantity 变更后都会按规格发出 forget 信号，
// 避免商品详情读模型呈现过期的可用量。
// 失效失败只记日志，不影响主流程。
type CacheInvalidator interface {
	InvalidateVariants(ctx context.Context, variantIDs ...uint) error
}
