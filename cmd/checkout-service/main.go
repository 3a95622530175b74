// cmd/checkout-service/main.go
package main

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"bazaar/internal/pkg/bootstrap"
	"bazaar/internal/pkg/httpclient"
	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/mq"
	pkgredis "bazaar/internal/pkg/redis"
	"bazaar/internal/service/checkout/application"
	"bazaar/internal/service/checkout/infrastructure"
	"bazaar/internal/service/checkout/infrastructure/adapter"
	"bazaar/internal/service/checkout/interfaces"
)

func main() {
	if err := bootstrap.Init(); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := bootstrap.GetCurrentConfig()
	logger.Init(cfg.App.Name)

	// MySQL：库存台账、订单与持久化购物车
	db, err := gorm.Open(mysql.Open(cfg.Infra.MySQL.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	store := infrastructure.NewGormStore(db)
	if err := store.AutoMigrate(); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	// Redis：匿名购物车、预占持有与详情缓存失效
	redisClient, err := pkgredis.NewClient(context.Background(), cfg.Infra.Redis.Addr)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	holds, err := infrastructure.NewRedisHoldStore(redisClient)
	if err != nil {
		log.Fatalf("failed to init hold store: %v", err)
	}

	tracer := otel.Tracer(cfg.App.Name)
	cache := adapter.NewCacheRedisAdapter(redisClient)

	promotions, err := adapter.NewPromotionCELAdapter(infrastructure.NewGormPromotionRepository(db))
	if err != nil {
		log.Fatalf("failed to init promotion evaluator: %v", err)
	}
	payments := adapter.NewPaymentHTTPAdapter(httpclient.NewClient(tracer), cfg.Infra.PaymentGateway.BaseURL)

	lowStockWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.LowStockTopic)
	notifier := adapter.NewLowStockKafkaAdapter(lowStockWriter)

	carts := application.NewCartService(
		infrastructure.NewPersistedCart(db),
		infrastructure.NewEphemeralCart(redisClient, store),
		cache,
		tracer,
	)
	reservations := application.NewReservationService(store, holds, cache, tracer)
	checkout := application.NewCheckoutService(carts, reservations, store, holds, promotions, payments, tracer)
	inventory := application.NewInventoryService(store, cache, notifier, tracer)

	handler := interfaces.NewCheckoutHandler(carts, checkout, inventory)

	paymentReader := mq.NewReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.PaymentResultTopic, cfg.Infra.Kafka.ConsumerGroup)
	consumer := interfaces.NewPaymentResultConsumer(paymentReader, inventory)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: cfg.App.Name,
		Port:        cfg.App.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		BackgroundRunners: []func(ctx context.Context) (stop func()){
			consumer.Start,
			func(context.Context) func() {
				return func() {
					if err := lowStockWriter.Close(); err != nil {
						log.Printf("failed to close low stock writer: %v", err)
					}
					redisClient.Close()
				}
			},
		},
	})
}
