package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS tab_settings (
	tab_id          TEXT PRIMARY KEY,
	enabled         INTEGER NOT NULL DEFAULT 0,
	target_language TEXT NOT NULL DEFAULT '',
	updated_at      INTEGER NOT NULL
)`

// SQLiteStore 基于 SQLite 的存储
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore 打开 SQLite 数据库并建表，path 为 ":memory:" 时使用内存库
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store path must not be empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// 单连接：内存库每个连接都是独立的数据库，写入也无需并发
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range append(pragmas, sqliteSchema) {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Get 读取设置
func (s *SQLiteStore) Get(ctx context.Context, key string) (TabSettings, bool, error) {
	if err := checkKey(key); err != nil {
		return TabSettings{}, false, err
	}

	var (
		ts      TabSettings
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT enabled, target_language, updated_at FROM tab_settings WHERE tab_id = ?`, key).
		Scan(&ts.Enabled, &ts.TargetLanguage, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return TabSettings{}, false, nil
	}
	if err != nil {
		return TabSettings{}, false, fmt.Errorf("sqlite: get %s: %w", key, err)
	}
	ts.UpdatedAt = time.UnixMilli(updated).UTC()
	return ts, true, nil
}

// Put 写入设置
func (s *SQLiteStore) Put(ctx context.Context, key string, ts TabSettings) error {
	if err := checkKey(key); err != nil {
		return err
	}
	ts = stamp(ts)

	_, err := s.db.ExecContext(ctx, `
INSERT INTO tab_settings (tab_id, enabled, target_language, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(tab_id) DO UPDATE SET
	enabled = excluded.enabled,
	target_language = excluded.target_language,
	updated_at = excluded.updated_at`,
		key, ts.Enabled, ts.TargetLanguage, ts.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite: put %s: %w", key, err)
	}
	return nil
}

// Delete 删除设置
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tab_settings WHERE tab_id = ?`, key); err != nil {
		return fmt.Errorf("sqlite: delete %s: %w", key, err)
	}
	return nil
}

// List 返回所有设置
func (s *SQLiteStore) List(ctx context.Context) (map[string]TabSettings, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tab_id, enabled, target_language, updated_at FROM tab_settings`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	defer rows.Close()

	out := make(map[string]TabSettings)
	for rows.Next() {
		var (
			key     string
			ts      TabSettings
			updated int64
		)
		if err := rows.Scan(&key, &ts.Enabled, &ts.TargetLanguage, &updated); err != nil {
			return nil, fmt.Errorf("sqlite: list: %w", err)
		}
		ts.UpdatedAt = time.UnixMilli(updated).UTC()
		out[key] = ts
	}
	return out, rows.Err()
}

// Close 关闭数据库
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
