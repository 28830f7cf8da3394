package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"mailsorter/pkg/config"
)

// Config is the inboxctl client profile.
type Config struct {
	Server     string               `mapstructure:"server"`
	Session    string               `mapstructure:"session"`
	MaxResults int                  `mapstructure:"max_results"`
	Log        config.LogConfig     `mapstructure:"log"`
	Storage    config.StorageConfig `mapstructure:"storage"`
	Redis      config.RedisConfig   `mapstructure:"redis"`
}

// DefaultConfigPath returns ~/.config/mailsorter/inboxctl.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "inboxctl.yaml")
	}
	return filepath.Join(home, ".config", "mailsorter", "inboxctl.yaml")
}

// LoadConfig reads the profile at path; a missing file means defaults.
// Environment variables use the INBOXCTL_ prefix (INBOXCTL_STORAGE_DRIVER).
// bind lets the caller attach command-line flags, which win over both.
func LoadConfig(path string, bind func(v *viper.Viper) error) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("server", "http://localhost:8080")
	v.SetDefault("session", "")
	v.SetDefault("max_results", 0)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.development", true)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "~/.config/mailsorter/state.db")
	v.SetDefault("storage.key_prefix", "mailsorter:")
	v.SetDefault("storage.keyring_backend", "")
	v.SetDefault("storage.keyring_password", "")
	v.SetDefault("redis.addr", "localhost:6379")

	v.SetEnvPrefix("INBOXCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if bind != nil {
		if err := bind(v); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}
