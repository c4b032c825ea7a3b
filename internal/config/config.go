package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Subsystems
	Market  MarketConfig
	Monitor MonitorConfig
	Alert   AlertConfig
	AI      AIConfig
	Server  ServerConfig
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// MarketConfig holds market data provider configuration
type MarketConfig struct {
	Provider        string // "yahoo" or "mock"
	BaseURL         string
	FetchTimeout    time.Duration
	CacheTTL        time.Duration
	RSIPeriod       int
	IndicatorEngine string // "native" or "techan"
	HistoryDays     int    // daily bars fetched for RSI computation
}

// MonitorConfig holds evaluation cycle and scheduler configuration
type MonitorConfig struct {
	Interval     time.Duration
	OwnerID      string // owner evaluated by the scheduler; "all" fans out
	StoreType    string // "memory" or "postgres" for rules and holdings
	LedgerType   string // "memory", "redis" or "postgres"
	CycleTimeout time.Duration
}

// AlertConfig holds alert boundary configuration
type AlertConfig struct {
	Notifiers        []string // any of "console", "telegram"
	EmitTimeout      time.Duration
	TelegramToken    string
	TelegramChatID   string
	TelegramBaseURL  string
	NotifyMaxRetries int
	NotifyRetryDelay time.Duration
}

// AIConfig holds the optional alert context generator configuration
type AIConfig struct {
	Enabled     bool
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// ServerConfig holds the HTTP control surface configuration
type ServerConfig struct {
	Port            int
	HealthCheckPort int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory or parent directories
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "intelligent_investing"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		Market: MarketConfig{
			Provider:        getEnv("MARKET_PROVIDER", "yahoo"),
			BaseURL:         getEnv("MARKET_BASE_URL", "https://query1.finance.yahoo.com"),
			FetchTimeout:    getEnvAsDuration("MARKET_FETCH_TIMEOUT", 10*time.Second),
			CacheTTL:        getEnvAsDuration("MARKET_CACHE_TTL", 60*time.Second),
			RSIPeriod:       getEnvAsInt("MARKET_RSI_PERIOD", 14),
			IndicatorEngine: getEnv("MARKET_INDICATOR_ENGINE", "native"),
			HistoryDays:     getEnvAsInt("MARKET_HISTORY_DAYS", 90),
		},
		Monitor: MonitorConfig{
			Interval:     getEnvAsDuration("MONITOR_INTERVAL", 5*time.Minute),
			OwnerID:      getEnv("MONITOR_OWNER_ID", "all"),
			StoreType:    getEnv("MONITOR_STORE_TYPE", "memory"), // "memory" or "postgres"
			LedgerType:   getEnv("MONITOR_LEDGER_TYPE", "memory"),
			CycleTimeout: getEnvAsDuration("MONITOR_CYCLE_TIMEOUT", 2*time.Minute),
		},
		Alert: AlertConfig{
			Notifiers:        getEnvAsStringSlice("ALERT_NOTIFIERS", []string{"console"}),
			EmitTimeout:      getEnvAsDuration("ALERT_EMIT_TIMEOUT", 15*time.Second),
			TelegramToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
			TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
			TelegramBaseURL:  getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org"),
			NotifyMaxRetries: getEnvAsInt("ALERT_NOTIFY_MAX_RETRIES", 3),
			NotifyRetryDelay: getEnvAsDuration("ALERT_NOTIFY_RETRY_DELAY", 1*time.Second),
		},
		AI: AIConfig{
			Enabled:     getEnvAsBool("AI_CONTEXT_ENABLED", false),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens:   getEnvAsInt("OPENAI_MAX_TOKENS", 200),
			Temperature: getEnvAsFloat("OPENAI_TEMPERATURE", 0.3),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 20*time.Second),
		},
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			HealthCheckPort: getEnvAsInt("SERVER_HEALTH_PORT", 8081),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Market.Provider {
	case "yahoo", "mock":
	default:
		return fmt.Errorf("MARKET_PROVIDER must be \"yahoo\" or \"mock\", got %q", c.Market.Provider)
	}
	switch c.Market.IndicatorEngine {
	case "native", "techan":
	default:
		return fmt.Errorf("MARKET_INDICATOR_ENGINE must be \"native\" or \"techan\", got %q", c.Market.IndicatorEngine)
	}
	if c.Market.RSIPeriod < 2 {
		return fmt.Errorf("MARKET_RSI_PERIOD must be at least 2")
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("MONITOR_INTERVAL must be positive")
	}
	switch c.Monitor.StoreType {
	case "memory", "postgres":
	default:
		return fmt.Errorf("MONITOR_STORE_TYPE must be \"memory\" or \"postgres\", got %q", c.Monitor.StoreType)
	}
	switch c.Monitor.LedgerType {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("MONITOR_LEDGER_TYPE must be \"memory\", \"redis\" or \"postgres\", got %q", c.Monitor.LedgerType)
	}
	if c.Monitor.StoreType == "postgres" || c.Monitor.LedgerType == "postgres" {
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required when postgres storage is enabled")
		}
	}
	if c.Monitor.LedgerType == "redis" && c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required when MONITOR_LEDGER_TYPE is \"redis\"")
	}
	for _, n := range c.Alert.Notifiers {
		switch n {
		case "console":
		case "telegram":
			if c.Alert.TelegramToken == "" || c.Alert.TelegramChatID == "" {
				return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required for the telegram notifier")
			}
		default:
			return fmt.Errorf("unknown notifier %q in ALERT_NOTIFIERS", n)
		}
	}
	if c.AI.Enabled && c.AI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_CONTEXT_ENABLED is true")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
