package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// FileStore 以 TOML 文件保存设置，每次修改整体重写
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]TabSettings
}

type fileDocument struct {
	Tabs map[string]TabSettings `toml:"tabs"`
}

// OpenFileStore 打开文件存储，文件不存在时视为空
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path must not be empty")
	}

	store := &FileStore{path: path, data: make(map[string]TabSettings)}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (f *FileStore) load() error {
	var doc fileDocument
	_, err := toml.DecodeFile(f.path, &doc)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read settings file %s: %w", f.path, err)
	}
	for k, v := range doc.Tabs {
		f.data[k] = v
	}
	return nil
}

// save 先写临时文件再重命名，调用方持有锁
func (f *FileStore) save() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".settings-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(fileDocument{Tabs: f.data}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

// Get 读取设置
func (f *FileStore) Get(_ context.Context, key string) (TabSettings, bool, error) {
	if err := checkKey(key); err != nil {
		return TabSettings{}, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.data[key]
	return s, ok, nil
}

// Put 写入设置
func (f *FileStore) Put(_ context.Context, key string, s TabSettings) error {
	if err := checkKey(key); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = stamp(s)
	return f.save()
}

// Delete 删除设置
func (f *FileStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.save()
}

// List 返回所有设置
func (f *FileStore) List(context.Context) (map[string]TabSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]TabSettings, len(f.data))
	for k, v := range f.data {
		out[k] = v
	}
	return out, nil
}

// Close 无操作
func (f *FileStore) Close() error {
	return nil
}
