package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	SMTP       SMTPConfig
	Escalation EscalationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Channel is the pub/sub channel real-time clients subscribe to.
	Channel string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer-token parameters for the manual escalation path.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Enabled  bool
}

// EscalationConfig carries the operator-tunable escalation policy. These are
// loaded once at start and passed explicitly into the engine components.
type EscalationConfig struct {
	// Per-priority dwell before a ticket becomes due.
	LowDwell      time.Duration
	MediumDwell   time.Duration
	HighDwell     time.Duration
	CriticalDwell time.Duration
	// Per-zone SLA dwell ceilings.
	ZoneADwell time.Duration
	ZoneBDwell time.Duration
	ZoneCDwell time.Duration
	// Dwell between the two fixed critical-priority steps.
	CriticalStepDwell time.Duration
	// Age past which an unowned ticket triggers unassigned notifications.
	UnassignedAfter time.Duration
	// Runner cadence and retry envelope.
	CronSpec           string
	RunnerMaxAttempts  int
	RunnerRetryBackoff time.Duration
	// Recipients per destination tier, comma separated per env var.
	TierRecipients map[string][]string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "escalation-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			Channel:  getEnv("REDIS_ESCALATION_CHANNEL", "escalations"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "noreply@blueriver.example"),
			Enabled:  getEnvAsBool("SMTP_ENABLED", false),
		},
		Escalation: EscalationConfig{
			LowDwell:           getEnvAsDuration("ESCALATION_LOW_DWELL", 8*time.Hour),
			MediumDwell:        getEnvAsDuration("ESCALATION_MEDIUM_DWELL", 2*time.Hour),
			HighDwell:          getEnvAsDuration("ESCALATION_HIGH_DWELL", time.Hour),
			CriticalDwell:      getEnvAsDuration("ESCALATION_CRITICAL_DWELL", 30*time.Minute),
			ZoneADwell:         getEnvAsDuration("ESCALATION_ZONE_A_DWELL", 5*time.Minute),
			ZoneBDwell:         getEnvAsDuration("ESCALATION_ZONE_B_DWELL", 10*time.Minute),
			ZoneCDwell:         getEnvAsDuration("ESCALATION_ZONE_C_DWELL", 15*time.Minute),
			CriticalStepDwell:  getEnvAsDuration("ESCALATION_CRITICAL_STEP_DWELL", 5*time.Minute),
			UnassignedAfter:    getEnvAsDuration("ESCALATION_UNASSIGNED_AFTER", 2*time.Minute),
			CronSpec:           getEnv("ESCALATION_CRON", "*/1 * * * *"),
			RunnerMaxAttempts:  getEnvAsInt("ESCALATION_RUNNER_MAX_ATTEMPTS", 3),
			RunnerRetryBackoff: getEnvAsDuration("ESCALATION_RUNNER_RETRY_BACKOFF", time.Minute),
			TierRecipients: map[string][]string{
				"Tier 1": getEnvAsList("ESCALATION_TIER1_RECIPIENTS"),
				"Tier 2": getEnvAsList("ESCALATION_TIER2_RECIPIENTS"),
				"Tier 3": getEnvAsList("ESCALATION_TIER3_RECIPIENTS"),
				"Tier 4": getEnvAsList("ESCALATION_TIER4_RECIPIENTS"),
			},
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
