package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Printify PrintifyConfig
	PayPal   PayPalConfig
	Redis    RedisConfig
	Observ   ObservabilityConfig
	Limits   LimitsConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type PrintifyConfig struct {
	APIBase string
	APIKey  string
	StoreID string
	Timeout time.Duration
}

type PayPalConfig struct {
	APIBase   string
	ClientID  string
	Secret    string
	WebhookID string
	Timeout   time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

type LimitsConfig struct {
	OrderRateMax    int
	OrderRateWindow time.Duration
	OrderKeyTTL     time.Duration
	WebhookKeyTTL   time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	orderRateMax, _ := strconv.Atoi(getEnv("ORDER_RATE_MAX", "10"))
	upstreamTimeout, _ := strconv.Atoi(getEnv("UPSTREAM_TIMEOUT_SECONDS", "20"))

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Printify: PrintifyConfig{
			APIBase: getEnv("PRINTIFY_API_BASE", "https://api.printify.com/v1"),
			APIKey:  getEnv("PRINTIFY_API_KEY", ""),
			StoreID: getEnv("PRINTIFY_STORE_ID", ""),
			Timeout: time.Duration(upstreamTimeout) * time.Second,
		},
		PayPal: PayPalConfig{
			APIBase:   getEnv("PAYPAL_API_BASE", "https://api-m.sandbox.paypal.com"),
			ClientID:  getEnv("PAYPAL_CLIENT_ID", ""),
			Secret:    getEnv("PAYPAL_SECRET", ""),
			WebhookID: getEnv("PAYPAL_WEBHOOK_ID", ""),
			Timeout:   time.Duration(upstreamTimeout) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
		Limits: LimitsConfig{
			OrderRateMax:    orderRateMax,
			OrderRateWindow: time.Minute,
			OrderKeyTTL:     15 * time.Minute,
			WebhookKeyTTL:   30 * time.Minute,
		},
	}

	log.Printf("Config loaded: env=%s, port=%s", cfg.Server.Env, cfg.Server.Port)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
