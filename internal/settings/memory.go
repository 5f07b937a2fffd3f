package settings

import (
	"context"
	"sync"
)

// MemoryStore 进程内存储
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]TabSettings
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]TabSettings)}
}

// Get 读取设置
func (m *MemoryStore) Get(_ context.Context, key string) (TabSettings, bool, error) {
	if err := checkKey(key); err != nil {
		return TabSettings{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.data[key]
	return s, ok, nil
}

// Put 写入设置
func (m *MemoryStore) Put(_ context.Context, key string, s TabSettings) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = stamp(s)
	return nil
}

// Delete 删除设置
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// List 返回所有设置的副本
func (m *MemoryStore) List(context.Context) (map[string]TabSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]TabSettings, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

// Close 无操作
func (m *MemoryStore) Close() error {
	return nil
}
