package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Dispatch modes
const (
	DispatchModeInline = "inline"
	DispatchModeQueue  = "queue"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	Dispatch DispatchConfig
	Sender   SenderConfig
	NLRule   NLRuleConfig
	LogLevel string
	Env      string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RabbitMQConfig holds RabbitMQ configuration
type RabbitMQConfig struct {
	Host      string
	Port      string
	User      string
	Password  string
	QueueName string
}

// RedisConfig holds the audience-size cache configuration
type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// DispatchConfig controls how delivery jobs are executed
type DispatchConfig struct {
	Mode         string
	Workers      int
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
	SendTimeout  time.Duration
}

// SenderConfig configures the simulated message channel
type SenderConfig struct {
	SuccessRate float64
}

// NLRuleConfig configures the natural-language-to-rule client
type NLRuleConfig struct {
	URL     string
	Timeout time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "campaignhub"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			DBName:   getEnv("POSTGRES_DB", "campaignhub_db"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		RabbitMQ: RabbitMQConfig{
			Host:      getEnv("RABBITMQ_HOST", "localhost"),
			Port:      getEnv("RABBITMQ_PORT", "5672"),
			User:      getEnv("RABBITMQ_DEFAULT_USER", "guest"),
			Password:  getEnv("RABBITMQ_DEFAULT_PASS", "guest"),
			QueueName: getEnv("RABBITMQ_QUEUE", "campaign_deliveries"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("AUDIENCE_CACHE_TTL", 24*time.Hour),
		},
		Dispatch: DispatchConfig{
			Mode:         strings.ToLower(getEnv("DISPATCH_MODE", DispatchModeInline)),
			Workers:      getEnvAsInt("DISPATCH_WORKERS", 8),
			QueueSize:    getEnvAsInt("DISPATCH_QUEUE_SIZE", 1024),
			MaxAttempts:  getEnvAsInt("SEND_MAX_ATTEMPTS", 1),
			RetryBackoff: getEnvAsDuration("SEND_RETRY_BACKOFF", 2*time.Second),
			SendTimeout:  getEnvAsDuration("SEND_TIMEOUT", 10*time.Second),
		},
		Sender: SenderConfig{
			SuccessRate: getEnvAsFloat("SENDER_SUCCESS_RATE", 0.9),
		},
		NLRule: NLRuleConfig{
			URL:     getEnv("NL_RULE_SERVICE_URL", ""),
			Timeout: getEnvAsDuration("NL_RULE_TIMEOUT", 15*time.Second),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Env:      getEnv("ENV", "development"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if c.Dispatch.Mode != DispatchModeInline && c.Dispatch.Mode != DispatchModeQueue {
		return fmt.Errorf("DISPATCH_MODE must be %q or %q, got %q", DispatchModeInline, DispatchModeQueue, c.Dispatch.Mode)
	}
	if c.Dispatch.Workers < 1 {
		return fmt.Errorf("DISPATCH_WORKERS must be at least 1")
	}
	if c.Dispatch.QueueSize < 0 {
		return fmt.Errorf("DISPATCH_QUEUE_SIZE cannot be negative")
	}
	if c.Dispatch.MaxAttempts < 1 {
		return fmt.Errorf("SEND_MAX_ATTEMPTS must be at least 1")
	}
	if c.Sender.SuccessRate < 0 || c.Sender.SuccessRate > 1 {
		return fmt.Errorf("SENDER_SUCCESS_RATE must be between 0 and 1")
	}
	return nil
}

// GetDatabaseDSN returns PostgreSQL connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetRabbitMQURL returns RabbitMQ connection URL
func (c *Config) GetRabbitMQURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		c.RabbitMQ.User,
		c.RabbitMQ.Password,
		c.RabbitMQ.Host,
		c.RabbitMQ.Port,
	)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// UsesQueue reports whether delivery jobs go through RabbitMQ
func (c *Config) UsesQueue() bool {
	return c.Dispatch.Mode == DispatchModeQueue
}

// getEnv gets environment variable or returns default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets environment variable as integer or returns default
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets environment variable as float or returns default
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets environment variable as bool or returns default
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets environment variable as a duration ("5s", "1m") or returns default
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
