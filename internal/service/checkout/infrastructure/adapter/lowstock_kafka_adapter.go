// internal/service/checkout/infrastructure/adapter/lowstock_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"bazaar/internal/pkg/mq"
	"bazaar/internal/service/checkout/domain"
	"bazaar/internal/service/checkout/port"
)

// LowStockKafkaAdapter 把低库存信号发往消息总线，
// 由下游的补货/通知系统消费。
type LowStockKafkaAdapter struct {
	writer *kafka.Writer
}

// NewLowStockKafkaAdapter 创建低库存事件生产者。
func NewLowStockKafkaAdapter(writer *kafka.Writer) *LowStockKafkaAdapter {
	return &LowStockKafkaAdapter{writer: writer}
}

// NotifyLowStock 发布一条低库存事件，消息键为 SKU 以保证同规格有序。
func (a *LowStockKafkaAdapter) NotifyLowStock(ctx context.Context, event *domain.LowStockEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return mq.ProduceMessage(ctx, a.writer, []byte(event.SKU), payload)
}

var _ port.LowStockNotifier = (*LowStockKafkaAdapter)(nil)
