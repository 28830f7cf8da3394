// Package storage persists client-side state (the model API key and the last
// email list) across runs. Values are plain strings, usually JSON.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mailsorter/pkg/config"
)

const (
	KeyAPIKey = "openai_key"
	KeyEmails = "emails"
)

type Store interface {
	// Get returns ok=false when the key has never been written.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open 根据 driver 选择存储后端，默认 sqlite
func Open(ctx context.Context, cfg config.StorageConfig, redisCfg config.RedisConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLiteStore(ExpandHome(cfg.Path))
	case "redis":
		return NewRedisStore(ctx, redisCfg, cfg.KeyPrefix)
	case "keyring":
		return NewKeyringStore(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ExpandHome 展开路径开头的 ~/
func ExpandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
