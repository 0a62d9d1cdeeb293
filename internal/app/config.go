package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config описывает настройки запуска сервиса. Всё читается из окружения
// либо из .env-файла; пустой DATABASE_URL переключает хранилище на память.
type Config struct {
	HTTPAddr    string
	Environment string
	LogLevel    string

	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	Tracking TrackingConfig
	Retry    RetryConfig
}

// TrackingConfig — настройки курьерского провайдера.
type TrackingConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// RetryConfig — настройки повтора операций хранилища.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// IsRelease сообщает, работает ли сервис в production-режиме.
func (c Config) IsRelease() bool {
	return strings.EqualFold(c.Environment, "production")
}

// LoadConfig собирает конфигурацию из окружения и опционального .env.
func LoadConfig() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CACHE_TTL", "5m")
	viper.SetDefault("KAFKA_TOPIC", "storefront.order.events")
	viper.SetDefault("TRACKING_BASE_URL", "https://track.delhivery.com")
	viper.SetDefault("TRACKING_TIMEOUT", "10s")
	viper.SetDefault("RETRY_MAX_ATTEMPTS", "3")
	viper.SetDefault("RETRY_BASE_DELAY", "1s")
	viper.SetDefault("RETRY_MAX_DELAY", "10s")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		HTTPAddr:    getString("HTTP_ADDR", ":8080"),
		Environment: getString("ENVIRONMENT", "development"),
		LogLevel:    getString("LOG_LEVEL", "info"),
		DatabaseURL: getString("DATABASE_URL", ""),
		RedisURL:    getString("REDIS_URL", ""),
		KafkaTopic:  getString("KAFKA_TOPIC", "storefront.order.events"),
		Tracking: TrackingConfig{
			BaseURL: getString("TRACKING_BASE_URL", "https://track.delhivery.com"),
			APIKey:  getString("TRACKING_API_KEY", ""),
		},
	}

	if brokers := getString("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	var err error
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Tracking.Timeout, err = getDuration("TRACKING_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Retry.BaseDelay, err = getDuration("RETRY_BASE_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.Retry.MaxDelay, err = getDuration("RETRY_MAX_DELAY", 10*time.Second); err != nil {
		return nil, err
	}

	cfg.Retry.MaxAttempts = viper.GetInt("RETRY_MAX_ATTEMPTS")
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 3
	}

	return cfg, nil
}

func getString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		if val := viper.GetString(key); val != "" {
			return val
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getString(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
