package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	OTEL      OTELConfig
	Emergency EmergencyConfig
	Contact   ContactConfig
	RateLimit RateLimitConfig
	Sweeper   SweeperConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host             string
	Port             int
	Env              string
	AllowedOrigins   []string
	ResourceCacheTTL time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL     string
	APIKey  string
	Enabled bool
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// EmergencyConfig holds the alert pipeline tunables
type EmergencyConfig struct {
	InitialRadiusKm      float64
	EscalationRadiusKm   float64
	MinProviders         int
	ResourceLimit        int
	AlertTTL             time.Duration
	MaxInfoNotifications int
	DispatchConcurrency  int
}

// ContactConfig selects and tunes the out-of-band call/SMS channel
type ContactConfig struct {
	Channel               string
	CallDelay             time.Duration
	SMSDelay              time.Duration
	SuccessRate           float64
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
}

// RateLimitConfig holds the API rate limit in ulule/limiter notation, e.g. "60-M".
// TrustForwardHeader keys clients by X-Forwarded-For and must only be set
// behind a proxy that rewrites it.
type RateLimitConfig struct {
	Rate               string
	Enabled            bool
	TrustForwardHeader bool
}

// SweeperConfig holds the expiry sweeper schedule
type SweeperConfig struct {
	Schedule string
	Enabled  bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:             getEnv("SERVER_HOST", "0.0.0.0"),
			Port:             getEnvAsInt("SERVER_PORT", 8080),
			Env:              getEnv("ENV", "production"),
			AllowedOrigins:   getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
			ResourceCacheTTL: getEnvAsDuration("RESOURCE_CACHE_TTL", 2*time.Minute),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "jeevanpath"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:     getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:  getEnv("TYPESENSE_API_KEY", ""),
			Enabled: getEnvAsBool("TYPESENSE_ENABLED", false),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "jeevanpath-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Emergency: EmergencyConfig{
			InitialRadiusKm:      getEnvAsFloat("EMERGENCY_INITIAL_RADIUS_KM", 15),
			EscalationRadiusKm:   getEnvAsFloat("EMERGENCY_ESCALATION_RADIUS_KM", 25),
			MinProviders:         getEnvAsInt("EMERGENCY_MIN_PROVIDERS", 2),
			ResourceLimit:        getEnvAsInt("EMERGENCY_RESOURCE_LIMIT", 15),
			AlertTTL:             getEnvAsDuration("EMERGENCY_ALERT_TTL", 4*time.Hour),
			MaxInfoNotifications: getEnvAsInt("EMERGENCY_MAX_INFO_NOTIFICATIONS", 5),
			DispatchConcurrency:  getEnvAsInt("EMERGENCY_DISPATCH_CONCURRENCY", 4),
		},
		Contact: ContactConfig{
			Channel:               getEnv("CONTACT_CHANNEL", "simulated"),
			CallDelay:             getEnvAsDuration("CONTACT_CALL_DELAY", 500*time.Millisecond),
			SMSDelay:              getEnvAsDuration("CONTACT_SMS_DELAY", 300*time.Millisecond),
			SuccessRate:           getEnvAsFloat("CONTACT_SUCCESS_RATE", 0.9),
			WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
			WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		},
		RateLimit: RateLimitConfig{
			Rate:               getEnv("RATE_LIMIT", "60-M"),
			Enabled:            getEnvAsBool("RATE_LIMIT_ENABLED", true),
			TrustForwardHeader: getEnvAsBool("RATE_LIMIT_TRUST_FORWARD_HEADER", false),
		},
		Sweeper: SweeperConfig{
			Schedule: getEnv("SWEEP_SCHEDULE", "@every 5m"),
			Enabled:  getEnvAsBool("SWEEP_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configured values are usable
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "SERVER_PORT must be between 1 and 65535")
	}
	if c.Database.Host == "" || c.Database.Database == "" {
		problems = append(problems, "DB_HOST and DB_NAME are required")
	}
	if c.Typesense.Enabled && c.Typesense.APIKey == "" {
		problems = append(problems, "TYPESENSE_API_KEY is required when TYPESENSE_ENABLED=true")
	}

	e := c.Emergency
	if e.InitialRadiusKm <= 0 {
		problems = append(problems, "EMERGENCY_INITIAL_RADIUS_KM must be positive")
	}
	if e.EscalationRadiusKm < e.InitialRadiusKm {
		problems = append(problems, "EMERGENCY_ESCALATION_RADIUS_KM must not be smaller than the initial radius")
	}
	if e.MinProviders < 0 {
		problems = append(problems, "EMERGENCY_MIN_PROVIDERS must not be negative")
	}
	if e.ResourceLimit <= 0 {
		problems = append(problems, "EMERGENCY_RESOURCE_LIMIT must be positive")
	}
	if e.AlertTTL <= 0 {
		problems = append(problems, "EMERGENCY_ALERT_TTL must be positive")
	}
	if e.MaxInfoNotifications < 0 {
		problems = append(problems, "EMERGENCY_MAX_INFO_NOTIFICATIONS must not be negative")
	}
	if e.DispatchConcurrency <= 0 {
		problems = append(problems, "EMERGENCY_DISPATCH_CONCURRENCY must be positive")
	}

	switch c.Contact.Channel {
	case "simulated":
	case "whatsapp":
		if c.Contact.WhatsAppAccessToken == "" || c.Contact.WhatsAppPhoneNumberID == "" {
			problems = append(problems, "WHATSAPP_ACCESS_TOKEN and WHATSAPP_PHONE_NUMBER_ID must be set for CONTACT_CHANNEL=whatsapp")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown CONTACT_CHANNEL %q", c.Contact.Channel))
	}
	if c.Contact.SuccessRate < 0 || c.Contact.SuccessRate > 1 {
		problems = append(problems, "CONTACT_SUCCESS_RATE must be between 0 and 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
