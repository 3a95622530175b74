// internal/service/checkout/port/notifier.go
package port

import (
	"context"

	"bazaar/internal/service/checkout/domain"
)

// LowStockNotifier 是低库存信号的出站端口，实现方把事件发往消息总线。
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context, event *domain.LowStockEvent) error
}
