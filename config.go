package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	awspkg "grocery-service/pkg/aws"
)

// Config holds all configuration for the grocery service.
type Config struct {
	Port string // Service port (default: 8080)
	Env  string // "production" or "development"

	MongoURI        string
	MongoDB         string
	MongoMaxRetries int
	MongoRetryDelay time.Duration

	RedisURL string

	KafkaBrokers []string
	KafkaTopic   string

	OrderSNSTopicARN string
}

// LoadConfig loads environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:             os.Getenv("PORT"),
		Env:              os.Getenv("APP_ENV"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          os.Getenv("MONGO_DB"),
		RedisURL:         os.Getenv("REDIS_URL"),
		KafkaTopic:       os.Getenv("KAFKA_ORDER_TOPIC"),
		OrderSNSTopicARN: os.Getenv("ORDER_SNS_TOPIC_ARN"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.MongoURI == "" {
		cfg.MongoURI = "mongodb://localhost:27017"
	}
	if cfg.MongoDB == "" {
		cfg.MongoDB = "grocery"
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = "order-events"
	}

	cfg.MongoMaxRetries = envInt("MONGO_MAX_RETRIES", 5)
	cfg.MongoRetryDelay = time.Duration(envInt("MONGO_RETRY_DELAY_SECONDS", 3)) * time.Second

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := awspkg.LoadAWSConfig(context.Background()); err == nil {
			sm := awspkg.NewSecretsClient(awsCfg)
			cfg.MongoURI = sm.Override(context.Background(), awspkg.SecretMongoURI, cfg.MongoURI)
			cfg.RedisURL = sm.Override(context.Background(), awspkg.SecretRedisURL, cfg.RedisURL)
		}
	}

	return cfg, nil
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
