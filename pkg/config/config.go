package config

import (
	"os"
	"strconv"
)

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `yaml:"port"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// GoogleConfig Google OAuth 客户端配置
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// SessionConfig 会话 JWT 配置
type SessionConfig struct {
	Secret   string `yaml:"secret"`
	TTLHours int    `yaml:"ttl_hours"`
	Secure   bool   `yaml:"secure"`
}

// ModelConfig 托管模型配置
type ModelConfig struct {
	BaseURL string `yaml:"base_url"`
	Name    string `yaml:"name"`
	// 0 means no client-side timeout; the transport defaults apply.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// GmailConfig 邮件提供方配置
type GmailConfig struct {
	Endpoint          string `yaml:"endpoint"`
	DefaultMaxResults int    `yaml:"default_max_results"`
}

// OtelConfig OpenTelemetry 配置
type OtelConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// StorageConfig 客户端本地存储配置
type StorageConfig struct {
	Driver    string `yaml:"driver" mapstructure:"driver"` // sqlite | redis | keyring
	Path      string `yaml:"path" mapstructure:"path"`
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`

	// keyring 驱动：为空时依次尝试系统钥匙串，"file" 只用加密文件
	KeyringBackend  string `yaml:"keyring_backend" mapstructure:"keyring_backend"`
	KeyringPassword string `yaml:"keyring_password" mapstructure:"keyring_password"`
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideLogFromEnv 从环境变量覆盖日志配置
func OverrideLogFromEnv(cfg *LogConfig) {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Level = level
	}
	if dev := os.Getenv("LOG_DEVELOPMENT"); dev != "" {
		if b, err := strconv.ParseBool(dev); err == nil {
			cfg.Development = b
		}
	}
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			cfg.DB = n
		}
	}
}

// OverrideGoogleFromEnv 从环境变量覆盖 Google OAuth 配置
func OverrideGoogleFromEnv(cfg *GoogleConfig) {
	if id := os.Getenv("GOOGLE_CLIENT_ID"); id != "" {
		cfg.ClientID = id
	}
	if secret := os.Getenv("GOOGLE_CLIENT_SECRET"); secret != "" {
		cfg.ClientSecret = secret
	}
	if url := os.Getenv("GOOGLE_REDIRECT_URL"); url != "" {
		cfg.RedirectURL = url
	}
}

// OverrideSessionFromEnv 从环境变量覆盖会话配置
func OverrideSessionFromEnv(cfg *SessionConfig) {
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		cfg.Secret = secret
	}
}

// OverrideModelFromEnv 从环境变量覆盖模型配置
func OverrideModelFromEnv(cfg *ModelConfig) {
	if url := os.Getenv("MODEL_BASE_URL"); url != "" {
		cfg.BaseURL = url
	}
	if name := os.Getenv("MODEL_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideOtelFromEnv 从环境变量覆盖 OpenTelemetry 配置
func OverrideOtelFromEnv(cfg *OtelConfig) {
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if enabled := os.Getenv("OTEL_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			cfg.Enabled = b
		}
	}
}
