package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS tab_settings (
	tab_id          TEXT PRIMARY KEY,
	enabled         BOOLEAN NOT NULL DEFAULT FALSE,
	target_language TEXT NOT NULL DEFAULT '',
	updated_at      TIMESTAMPTZ NOT NULL
)`

// PostgresStore 基于 PostgreSQL 的存储，多个服务实例可共享
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgresStore 连接数据库并建表
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Get 读取设置
func (p *PostgresStore) Get(ctx context.Context, key string) (TabSettings, bool, error) {
	if err := checkKey(key); err != nil {
		return TabSettings{}, false, err
	}

	var ts TabSettings
	err := p.pool.QueryRow(ctx,
		`SELECT enabled, target_language, updated_at FROM tab_settings WHERE tab_id = $1`, key).
		Scan(&ts.Enabled, &ts.TargetLanguage, &ts.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return TabSettings{}, false, nil
	}
	if err != nil {
		return TabSettings{}, false, fmt.Errorf("postgres: get %s: %w", key, err)
	}
	ts.UpdatedAt = ts.UpdatedAt.UTC()
	return ts, true, nil
}

// Put 写入设置
func (p *PostgresStore) Put(ctx context.Context, key string, ts TabSettings) error {
	if err := checkKey(key); err != nil {
		return err
	}
	ts = stamp(ts)

	_, err := p.pool.Exec(ctx, `
INSERT INTO tab_settings (tab_id, enabled, target_language, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (tab_id) DO UPDATE SET
	enabled = EXCLUDED.enabled,
	target_language = EXCLUDED.target_language,
	updated_at = EXCLUDED.updated_at`,
		key, ts.Enabled, ts.TargetLanguage, ts.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: put %s: %w", key, err)
	}
	return nil
}

// Delete 删除设置
func (p *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM tab_settings WHERE tab_id = $1`, key); err != nil {
		return fmt.Errorf("postgres: delete %s: %w", key, err)
	}
	return nil
}

// List 返回所有设置
func (p *PostgresStore) List(ctx context.Context) (map[string]TabSettings, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT tab_id, enabled, target_language, updated_at FROM tab_settings`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	defer rows.Close()

	out := make(map[string]TabSettings)
	for rows.Next() {
		var (
			key string
			ts  TabSettings
		)
		if err := rows.Scan(&key, &ts.Enabled, &ts.TargetLanguage, &ts.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: list: %w", err)
		}
		ts.UpdatedAt = ts.UpdatedAt.UTC()
		out[key] = ts
	}
	return out, rows.Err()
}

// Close 关闭连接池
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
