package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr           = ":8080"
	defaultDatabaseURL        = "ground.db"
	defaultStoreTimeout       = "5s"
	defaultReadRetries        = "3"
	defaultReadRetryBackoff   = "100ms"
	defaultTimezone           = "UTC"
	defaultPendingTTL         = "24h"
	defaultHoldTTL            = "10m"
	defaultMaintenanceEvery   = "1m"
	defaultDayRate            = "1500"
	defaultNightRate          = "2000"
	defaultNightStart         = "17"
	defaultNightEnd           = "7"
	defaultJWTSecret          = "change-me-jwt-secret"
	defaultJWTTTL             = "12h"
	defaultEventsExchange     = "ground.bookings"
	defaultCORSAllowedOrigins = "http://localhost:3000,http://localhost:5173"
)

type Config struct {
	AppEnv   string
	HTTPAddr string

	DatabaseURL      string
	DBDebug          bool
	StoreTimeout     time.Duration
	ReadRetries      int
	ReadRetryBackoff time.Duration

	Location            *time.Location
	PendingTTL          time.Duration
	HoldTTL             time.Duration
	MaintenanceInterval time.Duration

	DefaultDayRate    int64
	DefaultNightRate  int64
	DefaultNightStart int
	DefaultNightEnd   int

	JWTSecret string
	JWTTTL    time.Duration

	AMQPURL        string
	EventsExchange string

	TelegramBotToken     string
	TelegramAdminChatIDs []int64

	CORSAllowedOrigins []string
}

// Load reads the environment, optionally seeded from a .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)
	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.DBDebug = parseBoolEnv("DB_DEBUG", "false")

	var err error
	if cfg.StoreTimeout, err = parseDurationEnv("STORE_TIMEOUT", defaultStoreTimeout); err != nil {
		return nil, err
	}
	if cfg.ReadRetries, err = parseIntEnv("READ_RETRIES", defaultReadRetries); err != nil {
		return nil, err
	}
	if cfg.ReadRetryBackoff, err = parseDurationEnv("READ_RETRY_BACKOFF", defaultReadRetryBackoff); err != nil {
		return nil, err
	}
	if cfg.PendingTTL, err = parseDurationEnv("PENDING_TTL", defaultPendingTTL); err != nil {
		return nil, err
	}
	if cfg.HoldTTL, err = parseDurationEnv("HOLD_TTL", defaultHoldTTL); err != nil {
		return nil, err
	}
	if cfg.MaintenanceInterval, err = parseDurationEnv("MAINTENANCE_INTERVAL", defaultMaintenanceEvery); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}

	tz := strings.TrimSpace(getEnv("TIMEZONE", defaultTimezone))
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE value %q: %w", tz, err)
	}

	dayRate, err := parseIntEnv("DEFAULT_DAY_RATE", defaultDayRate)
	if err != nil {
		return nil, err
	}
	nightRate, err := parseIntEnv("DEFAULT_NIGHT_RATE", defaultNightRate)
	if err != nil {
		return nil, err
	}
	cfg.DefaultDayRate, cfg.DefaultNightRate = int64(dayRate), int64(nightRate)
	if cfg.DefaultNightStart, err = parseIntEnv("DEFAULT_NIGHT_START", defaultNightStart); err != nil {
		return nil, err
	}
	if cfg.DefaultNightEnd, err = parseIntEnv("DEFAULT_NIGHT_END", defaultNightEnd); err != nil {
		return nil, err
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.AMQPURL = strings.TrimSpace(os.Getenv("AMQP_URL"))
	cfg.EventsExchange = strings.TrimSpace(getEnv("EVENTS_EXCHANGE", defaultEventsExchange))
	cfg.TelegramBotToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))

	if raw := strings.TrimSpace(os.Getenv("TELEGRAM_ADMIN_CHAT_IDS")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid TELEGRAM_ADMIN_CHAT_IDS entry %q: %w", part, err)
			}
			cfg.TelegramAdminChatIDs = append(cfg.TelegramAdminChatIDs, id)
		}
	}

	for _, o := range strings.Split(getEnv("CORS_ALLOWED_ORIGINS", defaultCORSAllowedOrigins), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("config loaded: env=%s addr=%s tz=%s store_timeout=%s pending_ttl=%s hold_ttl=%s",
		cfg.AppEnv, cfg.HTTPAddr, cfg.Location, cfg.StoreTimeout, cfg.PendingTTL, cfg.HoldTTL)

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be > 0")
	}
	if cfg.ReadRetries < 0 {
		return fmt.Errorf("READ_RETRIES must be >= 0")
	}
	if cfg.PendingTTL < 0 {
		return fmt.Errorf("PENDING_TTL must be >= 0")
	}
	if cfg.HoldTTL <= 0 {
		return fmt.Errorf("HOLD_TTL must be > 0")
	}
	if cfg.MaintenanceInterval <= 0 {
		return fmt.Errorf("MAINTENANCE_INTERVAL must be > 0")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.DefaultDayRate <= 0 || cfg.DefaultNightRate <= 0 {
		return fmt.Errorf("DEFAULT_DAY_RATE and DEFAULT_NIGHT_RATE must be > 0")
	}
	if cfg.DefaultNightStart < 0 || cfg.DefaultNightStart > 23 || cfg.DefaultNightEnd < 0 || cfg.DefaultNightEnd > 23 {
		return fmt.Errorf("DEFAULT_NIGHT_START and DEFAULT_NIGHT_END must be between 0 and 23")
	}
	if cfg.TelegramBotToken != "" && len(cfg.TelegramAdminChatIDs) == 0 {
		return fmt.Errorf("TELEGRAM_ADMIN_CHAT_IDS is required when TELEGRAM_BOT_TOKEN is set")
	}

	if IsProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
	}
	return nil
}

func IsProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
