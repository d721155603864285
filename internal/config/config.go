package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"

	"duty-planner/internal/calendar"
)

// Config keeps runtime settings for the bot and the CLI.
type Config struct {
	TelegramToken  string        `env:"PLANNER_TELEGRAM_TOKEN"`
	DatabaseURL    string        `env:"PLANNER_DATABASE_URL"    envDefault:"duty_planner.db"`
	DeviceDB       string        `env:"PLANNER_DEVICE_DB"       envDefault:"device.db"`
	RedisAddr      string        `env:"PLANNER_REDIS_ADDR"`
	CacheTTL       time.Duration `env:"PLANNER_CACHE_TTL"       envDefault:"30s"`
	ReportInterval time.Duration `env:"PLANNER_REPORT_INTERVAL" envDefault:"5h"`
	UTCOffset      time.Duration `env:"PLANNER_UTC_OFFSET"      envDefault:"3h"`
	SessionSecret  string        `env:"PLANNER_SESSION_SECRET"`
	SessionTTL     time.Duration `env:"PLANNER_SESSION_TTL"     envDefault:"720h"`
	PushURL        string        `env:"PLANNER_PUSH_URL"        envDefault:"https://exp.host/--/api/v2/push/send"`
	CompleteDelay  time.Duration `env:"PLANNER_COMPLETE_DELAY"  envDefault:"1s"`
	LogLevel       string        `env:"PLANNER_LOG_LEVEL"       envDefault:"info"`
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.validate()
}

// LoadFrom is Load over an explicit environment.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	c.TelegramToken = strings.TrimSpace(c.TelegramToken)
	if c.UTCOffset < -14*time.Hour || c.UTCOffset > 14*time.Hour {
		return fmt.Errorf("PLANNER_UTC_OFFSET %s out of range", c.UTCOffset)
	}
	if c.ReportInterval < time.Second {
		return errors.New("PLANNER_REPORT_INTERVAL must be at least 1s")
	}
	if c.SessionTTL <= 0 {
		return errors.New("PLANNER_SESSION_TTL must be positive")
	}
	if c.CompleteDelay < 0 {
		return errors.New("PLANNER_COMPLETE_DELAY must not be negative")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("PLANNER_LOG_LEVEL: %w", err)
	}
	return nil
}

// RequireTelegram fails when the bot token is missing.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("PLANNER_TELEGRAM_TOKEN is required")
	}
	return nil
}

func (c Config) Zone() calendar.Zone {
	return calendar.NewZone(c.UTCOffset)
}

func (c Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
