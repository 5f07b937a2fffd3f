// Package settings 持久化每个标签页的自动翻译设置
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultKey 保存全局默认目标语言的保留键
const DefaultKey = "_default"

// ErrInvalidKey 键为空
var ErrInvalidKey = errors.New("settings key must not be empty")

// TabSettings 标签页的自动翻译设置
type TabSettings struct {
	Enabled        bool      `json:"enabled" toml:"enabled"`
	TargetLanguage string    `json:"target_language" toml:"target_language"`
	UpdatedAt      time.Time `json:"updated_at" toml:"updated_at"`
}

// Store 设置存储
type Store interface {
	// Get 读取设置，不存在时 ok 为 false
	Get(ctx context.Context, key string) (s TabSettings, ok bool, err error)

	// Put 写入设置
	Put(ctx context.Context, key string, s TabSettings) error

	// Delete 删除设置，不存在时不报错
	Delete(ctx context.Context, key string) error

	// List 返回所有设置
	List(ctx context.Context) (map[string]TabSettings, error)

	// Close 释放资源
	Close() error
}

// Open 根据 DSN 打开存储：
// memory://、file://path.toml、sqlite://path.db、postgres://...
func Open(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		return NewMemoryStore(), nil
	}

	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return nil, fmt.Errorf("invalid settings DSN %q", dsn)
	}

	switch strings.ToLower(scheme) {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return OpenFileStore(rest)
	case "sqlite", "sqlite3":
		return OpenSQLiteStore(ctx, rest)
	case "postgres", "postgresql":
		return OpenPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported settings backend %q", scheme)
	}
}

// DefaultLanguage 读取保存的默认目标语言
func DefaultLanguage(ctx context.Context, store Store) (string, error) {
	s, ok, err := store.Get(ctx, DefaultKey)
	if err != nil || !ok {
		return "", err
	}
	return s.TargetLanguage, nil
}

// SetDefaultLanguage 保存默认目标语言
func SetDefaultLanguage(ctx context.Context, store Store, lang string) error {
	return store.Put(ctx, DefaultKey, TabSettings{TargetLanguage: lang})
}

func checkKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}

func stamp(s TabSettings) TabSettings {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	s.UpdatedAt = s.UpdatedAt.UTC().Truncate(time.Millisecond)
	return s
}
