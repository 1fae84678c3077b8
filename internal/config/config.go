package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Kiosk    KioskConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	// PostgresDSN selects the Postgres backend when set; otherwise the
	// service runs on a local sqlite file.
	PostgresDSN   string
	SQLitePath    string
	MigrationsDir string
}

type RedisConfig struct {
	Addr    string
	Enabled bool
}

type KafkaConfig struct {
	Brokers    []string
	ClickTopic string
	Enabled    bool
}

type AuthConfig struct {
	PIN            string
	SessionTTL     time.Duration
	SessionSecret  string
	MaxPinFailures int
	FailureWindow  time.Duration
}

type KioskConfig struct {
	ButtonCount   int
	Timezone      string
	MaxLabelLen   int
	MaxIconBytes  int
	StatsWindow   int // trailing days shown in the per-day series
	PublicURL     string
	TodayClickCap int // payload cap for /api/clicks/today
}

func Load() *Config {
	redisAddr := os.Getenv("REDIS_ADDR")
	kafkaAddr := os.Getenv("KAFKA_ADDR")

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			PostgresDSN:   getEnv("POSTGRES_DSN", ""),
			SQLitePath:    getEnv("SQLITE_PATH", "kiosk.db"),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
		},
		Redis: RedisConfig{
			Addr:    redisAddr,
			Enabled: redisAddr != "",
		},
		Kafka: KafkaConfig{
			Brokers:    []string{kafkaAddr},
			ClickTopic: getEnv("KAFKA_CLICK_TOPIC", "kiosk.clicks.recorded"),
			Enabled:    kafkaAddr != "" && getEnvBool("KAFKA_ENABLED", true),
		},
		Auth: AuthConfig{
			PIN:            getEnv("KIOSK_PIN", ""),
			SessionTTL:     time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
			SessionSecret:  getEnv("SESSION_SECRET", ""),
			MaxPinFailures: getEnvInt("PIN_MAX_FAILURES", 5),
			FailureWindow:  time.Duration(getEnvInt("PIN_FAILURE_WINDOW_MINUTES", 15)) * time.Minute,
		},
		Kiosk: KioskConfig{
			ButtonCount:   getEnvInt("BUTTON_COUNT", 4),
			Timezone:      getEnv("TIMEZONE", "Europe/Lisbon"),
			MaxLabelLen:   getEnvInt("MAX_LABEL_LEN", 40),
			MaxIconBytes:  getEnvInt("MAX_ICON_BYTES", 2*1024*1024),
			StatsWindow:   getEnvInt("STATS_WINDOW_DAYS", 14),
			PublicURL:     getEnv("KIOSK_PUBLIC_URL", "http://localhost:8080"),
			TodayClickCap: getEnvInt("TODAY_CLICK_CAP", 200),
		},
	}
}

// Location resolves the configured timezone, falling back to the host's
// local zone when the name is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Kiosk.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
