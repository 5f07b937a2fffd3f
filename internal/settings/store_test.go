package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore 所有后端共用的行为检查
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "tab-1")
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.Put(ctx, "tab-1", TabSettings{Enabled: true, TargetLanguage: "ja", UpdatedAt: at}))

	got, ok, err := s.Get(ctx, "tab-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Enabled)
	assert.Equal(t, "ja", got.TargetLanguage)
	assert.True(t, at.Equal(got.UpdatedAt))

	// 覆盖写入
	require.NoError(t, s.Put(ctx, "tab-1", TabSettings{Enabled: true, TargetLanguage: "fr"}))
	got, _, err = s.Get(ctx, "tab-1")
	require.NoError(t, err)
	assert.Equal(t, "fr", got.TargetLanguage)
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, SetDefaultLanguage(ctx, s, "ko"))
	lang, err := DefaultLanguage(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "ko", lang)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Contains(t, all, DefaultKey)

	require.NoError(t, s.Delete(ctx, "tab-1"))
	require.NoError(t, s.Delete(ctx, "tab-1"))
	_, ok, err = s.Get(ctx, "tab-1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, s.Put(ctx, "", TabSettings{}), ErrInvalidKey)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "settings.toml")
	s, err := OpenFileStore(path)
	require.NoError(t, err)
	exerciseStore(t, s)

	// 重新打开后数据仍在
	require.NoError(t, s.Put(context.Background(), "tab-2", TabSettings{Enabled: true, TargetLanguage: "es"}))
	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	got, ok, err := reopened.Get(context.Background(), "tab-2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "es", got.TargetLanguage)
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("tabs = [ not toml"), 0o644))
	_, err := OpenFileStore(path)
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("PAGETRANS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PAGETRANS_TEST_POSTGRES_DSN not set")
	}
	s, err := OpenPostgresStore(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx := context.Background()
		_ = s.Delete(ctx, "tab-1")
		_ = s.Delete(ctx, DefaultKey)
		s.Close()
	})
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for dsn, want := range map[string]any{
		"":                                       &MemoryStore{},
		"memory://":                              &MemoryStore{},
		"file://" + filepath.Join(dir, "s.toml"): &FileStore{},
		"sqlite://" + filepath.Join(dir, "s.db"): &SQLiteStore{},
		"sqlite://:memory:":                      &SQLiteStore{},
	} {
		s, err := Open(ctx, dsn)
		require.NoError(t, err, dsn)
		assert.IsType(t, want, s, dsn)
		require.NoError(t, s.Close())
	}

	_, err := Open(ctx, "redis://localhost")
	assert.Error(t, err)
	_, err = Open(ctx, "no-scheme")
	assert.Error(t, err)
}
