package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"mongo"`
	AMQP struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"amqp"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Catalog struct {
		TTL             string `yaml:"ttl"`
		RefreshInterval string `yaml:"refreshInterval"`
	} `yaml:"catalog"`
	Progression struct {
		MaxWriteRetries int  `yaml:"maxWriteRetries"`
		AutoProvision   bool `yaml:"autoProvision"`
		LeaderboardSize int  `yaml:"leaderboardSize"`
	} `yaml:"progression"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file yields an empty config so every adapter falls back to memory.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Log.Mode, "LOG_MODE")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Postgres.URL, "POSTGRES_URL")
	setString(&c.Mongo.URI, "MONGO_URI")
	setString(&c.Mongo.Database, "MONGO_DATABASE")
	setString(&c.AMQP.URL, "AMQP_URL")
	if v := os.Getenv("PROGRESSION_AUTO_PROVISION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Progression.AutoProvision = b
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}
