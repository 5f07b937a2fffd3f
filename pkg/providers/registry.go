package providers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownProvider 注册表中没有该名称
var ErrUnknownProvider = errors.New("unknown provider")

// Registry 按名称保存已创建的提供商，名称不区分大小写
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Provider
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Provider)}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register 注册提供商，同名已存在时报错
func (r *Registry) Register(name string, provider Provider) error {
	key := normalizeName(name)
	if key == "" {
		return errors.New("provider name is empty")
	}
	if provider == nil {
		return fmt.Errorf("provider %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; exists {
		return fmt.Errorf("provider %q already registered", key)
	}
	r.entries[key] = provider
	return nil
}

// Get 按名称查找
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.entries[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Detector 按名称查找支持语言检测的提供商
func (r *Registry) Detector(name string) (Detector, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	d, ok := p.(Detector)
	if !ok || !p.GetCapabilities().SupportsDetection {
		return nil, fmt.Errorf("provider %s does not detect languages", p.GetName())
	}
	return d, nil
}

// List 已注册的名称，按字母排序
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove 移除提供商
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, normalizeName(name))
}
