package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN       string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL       string `env:"RABBITMQ_URL,required=true"`
	RedisURL          string `env:"REDIS_URL,required=true"`
	SMSAPIURL         string `env:"SMS_API_URL,default=https://api.africastalking.com/version1/messaging"`
	SMSUsername       string `env:"SMS_USERNAME,required=true"`
	SMSAPIKey         string `env:"SMS_API_KEY,required=true"`
	SMSSenderID       string `env:"SMS_SENDER_ID,default=TC4A"`
	GatewayTimeoutSec int    `env:"GATEWAY_TIMEOUT_SEC,default=10"`
	RateLimitPerSec   int    `env:"RATE_LIMIT_PER_SEC,default=30"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY,default=1"`
	WorkerPrefetch    int    `env:"WORKER_PREFETCH,default=1"`
	APIPort           int    `env:"API_PORT,default=8080"`
	MetricsPort       int    `env:"METRICS_PORT,default=9090"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GatewayTimeoutSec < 1 {
		return fmt.Errorf("GATEWAY_TIMEOUT_SEC must be >= 1, got %d", c.GatewayTimeoutSec)
	}
	if c.RateLimitPerSec < 1 {
		return fmt.Errorf("RATE_LIMIT_PER_SEC must be >= 1, got %d", c.RateLimitPerSec)
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be >= 1, got %d", c.WorkerConcurrency)
	}
	if c.WorkerPrefetch < 1 {
		return fmt.Errorf("WORKER_PREFETCH must be >= 1, got %d", c.WorkerPrefetch)
	}
	return nil
}

func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.GatewayTimeoutSec) * time.Second
}
