// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 汇总了服务运行所需的全部基础设施配置。
// 来源优先级：配置文件 < 环境变量。
type Config struct {
	App struct {
		Name string `yaml:"name"`
		Port int    `yaml:"port"`
	} `yaml:"app"`

	Infra struct {
		MySQL struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers            []string `yaml:"brokers"`
			PaymentResultTopic string   `yaml:"paymentResultTopic"`
			LowStockTopic      string   `yaml:"lowStockTopic"`
			ConsumerGroup      string   `yaml:"consumerGroup"`
		} `yaml:"kafka"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		PaymentGateway struct {
			BaseURL string `yaml:"baseUrl"`
		} `yaml:"paymentGateway"`
	} `yaml:"infra"`
}

var currentConfig Config

// Init 加载配置。CONFIG_PATH 未设置时退回到一组本地开发默认值。
func Init() error {
	cfg := defaultConfig()

	if path := getEnv("CONFIG_PATH", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// 环境变量覆盖，便于容器化部署
	cfg.Infra.MySQL.DSN = getEnv("MYSQL_DSN", cfg.Infra.MySQL.DSN)
	cfg.Infra.Redis.Addr = getEnv("REDIS_ADDR", cfg.Infra.Redis.Addr)
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	cfg.Infra.PaymentGateway.BaseURL = getEnv("PAYMENT_GATEWAY_URL", cfg.Infra.PaymentGateway.BaseURL)

	currentConfig = cfg
	return nil
}

// GetCurrentConfig 返回当前生效的配置。
func GetCurrentConfig() *Config {
	return &currentConfig
}

func defaultConfig() Config {
	var cfg Config
	cfg.App.Name = "checkout-service"
	cfg.App.Port = 8080
	cfg.Infra.MySQL.DSN = "root:root@tcp(localhost:3306)/bazaar?charset=utf8mb4&parseTime=True&loc=Local"
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Kafka.PaymentResultTopic = "payment-result-topic"
	cfg.Infra.Kafka.LowStockTopic = "inventory-low-stock-topic"
	cfg.Infra.Kafka.ConsumerGroup = "checkout-service"
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.PaymentGateway.BaseURL = "http://localhost:8090"
	return cfg
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
