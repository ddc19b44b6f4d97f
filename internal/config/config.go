package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type PolicyLifecycleConfig struct {
	Port         string
	PostgresCfg  PostgresConfig
	RabbitMQCfg  RabbitMQConfig
	RedisCfg     RedisConfig
	LifecycleCfg LifecycleConfig
}

type PostgresConfig struct {
	DBname   string
	Username string
	Password string
	Host     string
	Port     string
}

type RabbitMQConfig struct {
	Username string
	Password string
	Host     string
	Port     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// LifecycleConfig carries the workflow timing knobs and payout currency.
type LifecycleConfig struct {
	// AutoApprovalSLA is how long a partner has to decide a claim before
	// the system approves it on their behalf.
	AutoApprovalSLA time.Duration
	// NoticePeriod is the window after filing during which a farmer may
	// revoke a cancellation request unconditionally.
	NoticePeriod time.Duration
	// DisputeWindow is how long after a denial the requester may escalate.
	DisputeWindow time.Duration
	// PollInterval is the background sweep cadence.
	PollInterval time.Duration
	// Currency stamps newly created payouts.
	Currency string
	// WorkerCount and WorkerQueueSize size the background pool.
	WorkerCount     int
	WorkerQueueSize int
}

func New() *PolicyLifecycleConfig {
	return &PolicyLifecycleConfig{
		Port: getEnvOrDefault("PORT", "8083"),
		PostgresCfg: PostgresConfig{
			DBname:   getEnvOrDefault("POSTGRES_DB", "policy_lifecycle"),
			Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		},
		RabbitMQCfg: RabbitMQConfig{
			Username: getEnvOrDefault("RABBITMQ_USER", "admin"),
			Password: getEnvOrDefault("RABBITMQ_PWD", "admin"),
			Host:     getEnvOrDefault("RABBITMQ_HOST", "localhost"),
			Port:     getEnvOrDefault("RABBITMQ_PORT", "5672"),
		},
		RedisCfg: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       0,
		},
		LifecycleCfg: LifecycleConfig{
			AutoApprovalSLA: getDurationOrDefault("AUTO_APPROVAL_SLA", 72*time.Hour),
			NoticePeriod:    getDurationOrDefault("NOTICE_PERIOD", 168*time.Hour),
			DisputeWindow:   getDurationOrDefault("DISPUTE_WINDOW", 168*time.Hour),
			PollInterval:    getDurationOrDefault("AUTO_APPROVAL_POLL_INTERVAL", 5*time.Minute),
			Currency:        getEnvOrDefault("PAYOUT_CURRENCY", "VND"),
			WorkerCount:     getIntOrDefault("WORKER_COUNT", 4),
			WorkerQueueSize: getIntOrDefault("WORKER_QUEUE_SIZE", 64),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return d
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return n
}
