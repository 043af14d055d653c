// Package config loads service settings from an optional YAML file, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultFile is read when present.
const DefaultFile = "configs/config.yaml"

type Config struct {
	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`

	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Redis struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"redis"`

	Clock struct {
		Timezone string `mapstructure:"timezone"`
	} `mapstructure:"clock"`

	Events struct {
		Buffer int `mapstructure:"buffer"`
	} `mapstructure:"events"`

	Alerts struct {
		CacheTTL time.Duration `mapstructure:"cache_ttl"`
	} `mapstructure:"alerts"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.dsn", "file:rentaldesk.db?_pragma=foreign_keys(1)")
	v.SetDefault("redis.url", "")
	v.SetDefault("clock.timezone", "UTC")
	v.SetDefault("events.buffer", 256)
	v.SetDefault("alerts.cache_ttl", 60*time.Second)
}

// Load reads configuration from path, or DefaultFile when path is empty.
// A missing file is not an error. Environment variables override the file:
// SERVER_PORT, DATABASE_DSN, REDIS_URL and so on. PORT and DATABASE_URL are
// also honoured.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: reading .env: %v", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if path == "" {
		path = DefaultFile
	}
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		log.Printf("config: no config file at %s, using defaults", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if p := os.Getenv("PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			cfg.Server.Port = n
		}
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.DSN = dsn
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Database.DSN == "" {
		return errors.New("config: database.dsn is required")
	}
	if _, err := time.LoadLocation(c.Clock.Timezone); err != nil {
		return fmt.Errorf("config: clock.timezone: %w", err)
	}
	if c.Alerts.CacheTTL < 0 {
		return errors.New("config: alerts.cache_ttl must not be negative")
	}
	return nil
}
