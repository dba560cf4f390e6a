package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Cart     CartConfig
	Payment  PaymentConfig
	Shipping ShippingConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret string
}

// CartConfig holds cart lifecycle configuration.
type CartConfig struct {
	TTLMinutes int
}

// TTL returns the cart expiration window as a duration.
func (c CartConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// PaymentConfig holds payment gateway configuration.
type PaymentConfig struct {
	GatewayURL           string
	PaymentPageURL       string
	MerchantID           string
	CallbackURL          string
	TimeoutSeconds       int
	AttemptWindowMinutes int
	MaxAttempts          int
}

// Timeout returns the gateway request timeout as a duration.
func (c PaymentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AttemptWindow returns the window within which a pending checkout is
// considered recent enough to reuse.
func (c PaymentConfig) AttemptWindow() time.Duration {
	return time.Duration(c.AttemptWindowMinutes) * time.Minute
}

// ShippingConfig holds configuration for the shipping-rate table, which
// is loaded from a JSON file on local disk or in S3.
type ShippingConfig struct {
	RatesFile string
	S3Enabled bool
	S3Bucket  string
	S3Region  string
	S3Prefix  string // Path prefix within bucket (e.g., "shipping/")
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "goldkart"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Cart: CartConfig{
			TTLMinutes: getEnvAsInt("CART_TTL_MINUTES", 60),
		},
		Payment: PaymentConfig{
			GatewayURL:           getEnv("PAYMENT_GATEWAY_URL", ""),
			PaymentPageURL:       getEnv("PAYMENT_PAGE_URL", ""),
			MerchantID:           getEnv("PAYMENT_MERCHANT_ID", ""),
			CallbackURL:          getEnv("PAYMENT_CALLBACK_URL", ""),
			TimeoutSeconds:       getEnvAsInt("PAYMENT_TIMEOUT_SECONDS", 10),
			AttemptWindowMinutes: getEnvAsInt("PAYMENT_ATTEMPT_WINDOW_MINUTES", 15),
			MaxAttempts:          getEnvAsInt("PAYMENT_MAX_ATTEMPTS", 3),
		},
		Shipping: ShippingConfig{
			RatesFile: getEnv("SHIPPING_RATES_FILE", "data/shipping/rates.json"),
			S3Enabled: getEnvAsBool("SHIPPING_S3_ENABLED", false),
			S3Bucket:  getEnv("SHIPPING_S3_BUCKET", ""),
			S3Region:  getEnv("SHIPPING_S3_REGION", "us-east-1"),
			S3Prefix:  getEnv("SHIPPING_S3_PREFIX", "shipping/"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if c.Cart.TTLMinutes < 1 {
		return fmt.Errorf("cart TTL must be at least 1 minute")
	}

	if c.Payment.GatewayURL == "" {
		return fmt.Errorf("payment gateway URL is required")
	}

	if c.Payment.MerchantID == "" {
		return fmt.Errorf("payment merchant ID is required")
	}

	if c.Payment.CallbackURL == "" {
		return fmt.Errorf("payment callback URL is required")
	}

	if c.Payment.TimeoutSeconds < 1 {
		return fmt.Errorf("payment timeout must be at least 1 second")
	}

	if c.Payment.MaxAttempts < 1 {
		return fmt.Errorf("payment max attempts must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Shipping.S3Enabled {
		if c.Shipping.S3Bucket == "" {
			return fmt.Errorf("shipping S3 bucket is required when S3 is enabled")
		}
		if c.Shipping.S3Region == "" {
			return fmt.Errorf("shipping S3 region is required when S3 is enabled")
		}
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
