package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"

	"mailsorter/pkg/config"
)

const keyringService = "mailsorter"

// ErrKeyringPassword 加密文件后端没有配置 keyring_password
var ErrKeyringPassword = errors.New("keyring file backend requires storage.keyring_password")

// KeyringStore keeps values in the OS credential store. The encrypted-file
// backend is only used when a password is configured.
type KeyringStore struct {
	ring keyring.Keyring
}

func NewKeyringStore(cfg config.StorageConfig) (*KeyringStore, error) {
	backends, err := keyringBackends(cfg)
	if err != nil {
		return nil, err
	}

	dir := cfg.Path
	if dir == "" {
		dir = "~/.config/mailsorter/keyring"
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:              keyringService,
		AllowedBackends:          backends,
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt(cfg.KeyringPassword),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &KeyringStore{ring: ring}, nil
}

func (s *KeyringStore) Get(ctx context.Context, key string) (string, bool, error) {
	item, err := s.ring.Get(key)
	if isNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting %q: %w", key, err)
	}
	return string(item.Data), true, nil
}

func (s *KeyringStore) Set(ctx context.Context, key, value string) error {
	if err := s.ring.Set(keyring.Item{Key: key, Data: []byte(value)}); err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return nil
}

func (s *KeyringStore) Delete(ctx context.Context, key string) error {
	err := s.ring.Remove(key)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return nil
}

func (s *KeyringStore) Close() error { return nil }

// file 后端删除不存在的 key 时返回 os 错误而不是 ErrKeyNotFound
func isNotFound(err error) bool {
	return errors.Is(err, keyring.ErrKeyNotFound) || errors.Is(err, os.ErrNotExist)
}

// keyringBackends 没有密码时不启用文件后端，避免用固定口令加密
func keyringBackends(cfg config.StorageConfig) ([]keyring.BackendType, error) {
	if cfg.KeyringBackend == "file" {
		if cfg.KeyringPassword == "" {
			return nil, ErrKeyringPassword
		}
		return []keyring.BackendType{keyring.FileBackend}, nil
	}
	backends := []keyring.BackendType{
		keyring.KeychainBackend,
		keyring.SecretServiceBackend,
		keyring.WinCredBackend,
		keyring.PassBackend,
	}
	if cfg.KeyringPassword != "" {
		backends = append(backends, keyring.FileBackend)
	}
	return backends, nil
}
