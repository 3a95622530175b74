// internal/service/checkout/infrastructure/redis_hold.go
package infrastructure

import (
	"context"
	"fmt"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	pkgredis "bazaar/internal/pkg/redis"
	"bazaar/internal/service/checkout/domain"
)

const replaceHoldScriptName = "replace_hold"

// 原子地用新内容整体替换一个 hold：先删旧 hash 再写新字段。
// KEYS[1] 为 hold 键，ARGV 为交替的 variantID/qty 对。
var replaceHoldScript = `
redis.call('del', KEYS[1])
for i = 1, #ARGV, 2 do
    redis.call('hset', KEYS[1], ARGV[i], ARGV[i + 1])
end
return 1
`

// RedisHoldStore 按结算令牌持久化 hold。
// 键不设 TTL：让记录过期而不把预占量还给台账会直接破坏不变式；
// 废弃结算的 hold 只能由后续动作（重新校验、下单失败或支付结果）释放。
type RedisHoldStore struct {
	client *pkgredis.Client
}

// NewRedisHoldStore 创建 hold 存储，并在创建时加载所需脚本。
func NewRedisHoldStore(client *pkgredis.Client) (*RedisHoldStore, error) {
	if err := client.LoadScriptFromContent(replaceHoldScriptName, replaceHoldScript); err != nil {
		return nil, fmt.Errorf("failed to load hold script: %w", err)
	}
	return &RedisHoldStore{client: client}, nil
}

func holdKey(token string) string {
	return fmt.Sprintf("checkout:hold:{%s}", token)
}

func (s *RedisHoldStore) Get(ctx context.Context, token string) (*domain.Hold, error) {
	fields, err := s.client.GetClient().HGetAll(ctx, holdKey(token)).Result()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load hold")
	}
	hold := domain.NewHold(token)
	for field, value := range fields {
		variantID, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		qty, err := strconv.Atoi(value)
		if err != nil || qty <= 0 {
			continue
		}
		hold.Items[uint(variantID)] = qty
	}
	return hold, nil
}

func (s *RedisHoldStore) Put(ctx context.Context, hold *domain.Hold) error {
	args := make([]interface{}, 0, len(hold.Items)*2)
	for variantID, qty := range hold.Items {
		args = append(args, strconv.FormatUint(uint64(variantID), 10), qty)
	}
	_, err := s.client.RunScript(ctx, replaceHoldScriptName, []string{holdKey(hold.Token)}, args...)
	return pkgerrors.Wrap(err, "persist hold")
}

func (s *RedisHoldStore) Delete(ctx context.Context, token string) error {
	return s.client.GetClient().Del(ctx, holdKey(token)).Err()
}

var _ domain.HoldStore = (*RedisHoldStore)(nil)
