// internal/pkg/retry/retry.go
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"bazaar/internal/pkg/logger"
)

// ErrExhausted 表示重试预算耗尽后依然失败。
// 调用方可以据此向用户提示“稍后重试”，而不是“减少购买数量”。
var ErrExhausted = errors.New("retry: attempts exhausted")

// MySQL 在锁竞争场景下返回的两类可重试错误：
// 1213 = deadlock found, 1205 = lock wait timeout。
const (
	mysqlErrDeadlock    = 1213
	mysqlErrLockTimeout = 1205
)

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient 将任意错误标记为瞬时错误，使其可以被 Do 重试。
// 主要给非 MySQL 的实现（如内存仓储）使用。
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsRetryable 判断一个错误是否值得重试。
// 只有锁竞争类错误（死锁、锁等待超时）和显式标记的瞬时错误可重试；
// 业务错误（如库存不足）永远直接返回。
func IsRetryable(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrDeadlock || myErr.Number == mysqlErrLockTimeout
	}
	var te *transientError
	return errors.As(err, &te)
}

// Do 在固定的尝试次数内执行 fn，吸收瞬时的锁竞争失败。
// 重试策略在这里声明一次，预占和补偿释放两条路径共用。
func Do(ctx context.Context, maxAttempts int, fn func(ctx context.Context) error) error {
	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = fn(ctx)
		if last == nil {
			return nil
		}
		if !IsRetryable(last) {
			return last
		}
		logger.Ctx(ctx).Warn().
			Err(last).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Msg("transient failure, retrying")
		if attempt < maxAttempts {
			// 线性退避足够：冲突窗口只有几个行更新的时长
			select {
			case <-time.After(time.Duration(attempt) * 20 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrExhausted, maxAttempts, last)
}
