package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents application configuration
type Config struct {
	HTTPAddr   string
	SwaggerURL string

	Redis    RedisConfig
	Database DatabaseConfig
	Log      LogConfig
	Popup    PopupConfig
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DatabaseConfig contains PostgreSQL settings
type DatabaseConfig struct {
	URL     string
	Migrate bool
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

// PopupConfig contains scheduler and tab session timing
type PopupConfig struct {
	Interval         time.Duration
	InitialDelay     time.Duration
	ActivityDebounce time.Duration
	RouteDelay       time.Duration
	TypingWindow     time.Duration
	TabIdleTTL       time.Duration
	PreloadImages    bool
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	var errs []error
	cfg := &Config{
		HTTPAddr:   getenv("HTTP_ADDR", ":8080"),
		SwaggerURL: getenv("SWAGGER_URL", "http://localhost:8080/swagger/doc.json"),
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       intEnv("REDIS_DB", 0, &errs),
		},
		Database: DatabaseConfig{
			URL:     getenv("DATABASE_URL", "user=user dbname=popup_db sslmode=disable"),
			Migrate: boolEnv("DATABASE_MIGRATE", true, &errs),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getenv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getenv("LOG_FORMAT", "text")),
		},
		Popup: PopupConfig{
			Interval:         durationEnv("POPUP_INTERVAL", 30*time.Second, &errs),
			InitialDelay:     durationEnv("POPUP_INITIAL_DELAY", 3*time.Second, &errs),
			ActivityDebounce: durationEnv("POPUP_ACTIVITY_DEBOUNCE", 2*time.Second, &errs),
			RouteDelay:       durationEnv("POPUP_ROUTE_DELAY", 2*time.Second, &errs),
			TypingWindow:     durationEnv("POPUP_TYPING_WINDOW", 5*time.Second, &errs),
			TabIdleTTL:       durationEnv("TAB_IDLE_TTL", 30*time.Minute, &errs),
			PreloadImages:    boolEnv("PRELOAD_IMAGES", true, &errs),
		},
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("HTTP_ADDR is required")
	}
	if c.Redis.Addr == "" {
		return errors.New("REDIS_ADDR is required")
	}
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT %q is not one of text, json", c.Log.Format)
	}
	p := c.Popup
	if p.Interval <= 0 || p.ActivityDebounce <= 0 || p.RouteDelay <= 0 || p.TypingWindow <= 0 || p.TabIdleTTL <= 0 {
		return errors.New("popup durations must be positive")
	}
	if p.InitialDelay < 0 {
		return errors.New("POPUP_INITIAL_DELAY must not be negative")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func boolEnv(key string, def bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func durationEnv(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
