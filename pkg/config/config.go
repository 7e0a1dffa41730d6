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
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	OpenAI       OpenAIConfig
	Calendar     CalendarConfig
	SMS          SMSConfig
	Conversation ConversationConfig
	OTEL         OTELConfig
	Environment  string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
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

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// OpenAIConfig holds the LLM fallback configuration
type OpenAIConfig struct {
	APIKey         string
	Model          string
	Timeout        time.Duration
	RateLimitRPM   int
	RateLimitBurst int
}

// CalendarConfig holds external calendar configuration
type CalendarConfig struct {
	APIKey      string
	EventTypeID string
}

// SMSConfig holds SMS confirmation configuration
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// ConversationConfig holds the tunable knobs of the call flow
type ConversationConfig struct {
	// SessionTTL is how long an idle call session survives before it is
	// treated as abandoned.
	SessionTTL time.Duration

	// MaxRetries is the number of failed extraction attempts on a single
	// step before the deterministic fallback prompt is offered.
	MaxRetries int

	// DefaultDurationMinutes is used when the caller does not specify one.
	DefaultDurationMinutes int

	// Business hours window, in BusinessTimeZone local time. A time that
	// parses but falls outside [OpenHour, CloseHour) is re-prompted, not
	// hard rejected.
	BusinessOpenHour  int
	BusinessCloseHour int
	BusinessTimeZone  string

	// PhoneRegions is the ordered list of regions a caller's number is
	// expected to resolve to.
	PhoneRegions []string

	// DefaultCountryCode is prepended to bare 10-digit numbers.
	DefaultCountryCode string
}

// BusinessLocation resolves the configured business time zone,
// falling back to UTC if the zone name is unknown.
func (c *ConversationConfig) BusinessLocation() *time.Location {
	loc, err := time.LoadLocation(c.BusinessTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "voicebook"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout:        getEnvAsDuration("OPENAI_TIMEOUT", 8*time.Second),
			RateLimitRPM:   getEnvAsInt("OPENAI_RATE_LIMIT_RPM", 60),
			RateLimitBurst: getEnvAsInt("OPENAI_RATE_LIMIT_BURST", 5),
		},
		Calendar: CalendarConfig{
			APIKey:      getEnv("CALENDLY_API_KEY", ""),
			EventTypeID: getEnv("CALENDLY_EVENT_TYPE_ID", ""),
		},
		SMS: SMSConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		},
		Conversation: ConversationConfig{
			SessionTTL:             getEnvAsDuration("SESSION_TTL", 15*time.Minute),
			MaxRetries:             getEnvAsInt("MAX_STEP_RETRIES", 3),
			DefaultDurationMinutes: getEnvAsInt("DEFAULT_APPOINTMENT_MINUTES", 30),
			BusinessOpenHour:       getEnvAsInt("BUSINESS_OPEN_HOUR", 9),
			BusinessCloseHour:      getEnvAsInt("BUSINESS_CLOSE_HOUR", 17),
			BusinessTimeZone:       getEnv("BUSINESS_TIMEZONE", "America/Toronto"),
			PhoneRegions:           getEnvAsSlice("PHONE_REGIONS", []string{"CA", "US"}),
			DefaultCountryCode:     getEnv("DEFAULT_COUNTRY_CODE", "1"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "voicebook"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Environment: getEnv("APP_ENV", "development"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
