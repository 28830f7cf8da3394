package config

import (
	"errors"
	"fmt"

	"mailsorter/pkg/config"
)

type Config struct {
	Server  config.ServerConfig  `yaml:"server"`
	Log     config.LogConfig     `yaml:"log"`
	Google  config.GoogleConfig  `yaml:"google"`
	Session config.SessionConfig `yaml:"session"`
	Model   config.ModelConfig   `yaml:"model"`
	Gmail   config.GmailConfig   `yaml:"gmail"`
	Otel    config.OtelConfig    `yaml:"otel"`
	Redis   config.RedisConfig   `yaml:"redis"`
	Storage config.StorageConfig `yaml:"storage"`
}

// Load 读取 config/base.yaml + config/<CONFIG_ENV>.yaml + secrets.env，再用环境变量覆盖
func Load() (*Config, error) {
	return LoadFrom(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
}

func LoadFrom(env, dir string) (*Config, error) {
	m, err := config.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := config.Decode(m, &cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideLogFromEnv(&cfg.Log)
	config.OverrideGoogleFromEnv(&cfg.Google)
	config.OverrideSessionFromEnv(&cfg.Session)
	config.OverrideModelFromEnv(&cfg.Model)
	config.OverrideOtelFromEnv(&cfg.Otel)
	config.OverrideRedisFromEnv(&cfg.Redis)

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Session.TTLHours <= 0 {
		c.Session.TTLHours = 24
	}
	if c.Gmail.DefaultMaxResults <= 0 {
		c.Gmail.DefaultMaxResults = 15
	}
	if c.Otel.ServiceName == "" {
		c.Otel.ServiceName = "mailsorter"
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Session.Secret == "" {
		errs = append(errs, errors.New("session.secret is required"))
	}
	if c.Gmail.DefaultMaxResults > 500 {
		errs = append(errs, fmt.Errorf("gmail.default_max_results %d exceeds 500", c.Gmail.DefaultMaxResults))
	}
	return errors.Join(errs...)
}

// OAuthConfigured reports whether sign-in can work.
func (c *Config) OAuthConfigured() error {
	if c.Google.ClientID == "" || c.Google.ClientSecret == "" || c.Google.RedirectURL == "" {
		return errors.New("google oauth client is not configured")
	}
	return nil
}
