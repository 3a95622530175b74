// internal/service/checkout/interfaces/payment_consumer.go
package interfaces

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/mq"
	"bazaar/internal/service/checkout/application"
	"bazaar/internal/service/checkout/domain"
)

// PaymentResultConsumer 消费支付结果消息并驱动库存提交/释放。
// 消息处理失败时不提交位点，依赖重投与幂等处理兜底。
type PaymentResultConsumer struct {
	reader    *kafka.Reader
	inventory *application.InventoryService
}

// NewPaymentResultConsumer 创建支付结果消费者。
func NewPaymentResultConsumer(reader *kafka.Reader, inventory *application.InventoryService) *PaymentResultConsumer {
	return &PaymentResultConsumer{reader: reader, inventory: inventory}
}

// Start 启动消费循环，返回用于停止的函数。
func (c *PaymentResultConsumer) Start(ctx context.Context) func() {
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		c.run(runCtx)
	}()

	return func() {
		cancel()
		if err := c.reader.Close(); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("failed to close payment result reader")
		}
		<-done
	}
}

func (c *PaymentResultConsumer) run(ctx context.Context) {
	tracer := otel.Tracer("payment-result-consumer")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Ctx(ctx).Error().Err(err).Msg("failed to fetch payment result message")
			continue
		}

		msgCtx := mq.ExtractContext(ctx, msg)
		msgCtx, span := tracer.Start(msgCtx, "HandlePaymentResult")

		var event domain.PaymentResultEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// 毒消息：记录后提交位点跳过，避免阻塞分区
			logger.Ctx(msgCtx).Error().Err(err).
				Str("topic", msg.Topic).Int64("offset", msg.Offset).
				Msg("unparseable payment result message, skipping")
			span.End()
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(msgCtx).Error().Err(err).Msg("failed to commit skipped message")
			}
			continue
		}

		if err := c.inventory.HandlePaymentResult(msgCtx, &event); err != nil {
			logger.Ctx(msgCtx).Error().Err(err).
				Str("order_no", event.OrderNo).
				Msg("failed to handle payment result, will be redelivered")
			span.End()
			continue
		}
		span.End()

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(msgCtx).Error().Err(err).Str("order_no", event.OrderNo).Msg("failed to commit message offset")
		}
	}
}
