// Package tabs 管理打开的页面及其翻译会话、滚动翻译与持久化设置
package tabs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerdneilsfield/go-page-translator/internal/settings"
	"github.com/nerdneilsfield/go-page-translator/pkg/dom"
	"github.com/nerdneilsfield/go-page-translator/pkg/pagetrans"
	"github.com/nerdneilsfield/go-page-translator/pkg/translation"
	"go.uber.org/zap"
)

// 预定义错误
var (
	ErrTabNotFound = errors.New("tab not found")
	ErrTabExists   = errors.New("tab already open")
)

// SampleLimit 语言检测样本的字符数
const SampleLimit = 500

// Translator 标签页需要的翻译能力
type Translator interface {
	translation.BatchTranslator
	DetectPageLanguage(ctx context.Context, sample string) (string, error)
}

// Config 管理器配置
type Config struct {
	Scope          pagetrans.Scope
	Scroll         pagetrans.ScrollConfig
	AutoStartDelay time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Scope:          pagetrans.ScopeViewport,
		Scroll:         pagetrans.DefaultScrollConfig(),
		AutoStartDelay: time.Second,
	}
}

// Manager 标签页管理器
type Manager struct {
	mu   sync.RWMutex
	tabs map[string]*Tab

	translator Translator
	store      settings.Store
	cfg        Config
	logger     *zap.Logger
}

// NewManager 创建管理器
func NewManager(translator Translator, store settings.Store, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = settings.NewMemoryStore()
	}
	def := DefaultConfig()
	if cfg.Scroll.Scheduler == nil {
		cfg.Scroll.Scheduler = def.Scroll.Scheduler
	}
	if cfg.Scroll.Logger == nil {
		cfg.Scroll.Logger = logger
	}

	return &Manager{
		tabs:       make(map[string]*Tab),
		translator: translator,
		store:      store,
		cfg:        cfg,
		logger:     logger,
	}
}

// Store 设置存储
func (m *Manager) Store() settings.Store {
	return m.store
}

// OpenOption 打开标签页的选项
type OpenOption func(*openOptions)

type openOptions struct {
	url   string
	sink  pagetrans.TextSink
	scope *pagetrans.Scope
}

// WithURL 记录页面地址
func WithURL(url string) OpenOption {
	return func(o *openOptions) { o.url = url }
}

// WithTextSink 把写入同步到外部，例如浏览器
func WithTextSink(sink pagetrans.TextSink) OpenOption {
	return func(o *openOptions) { o.sink = sink }
}

// WithScope 覆盖默认提取范围
func WithScope(scope pagetrans.Scope) OpenOption {
	return func(o *openOptions) { o.scope = &scope }
}

// Open 为文档打开标签页。若该标签页保存了启用的设置，
// 在 AutoStartDelay 后翻译可见内容并开启滚动翻译。
func (m *Manager) Open(ctx context.Context, id string, doc *dom.Document, opts ...OpenOption) (*Tab, error) {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}
	if id == "" {
		return nil, fmt.Errorf("tab id must not be empty")
	}

	scope := m.cfg.Scope
	if o.scope != nil {
		scope = *o.scope
	}
	sessionOpts := []pagetrans.Option{
		pagetrans.WithScope(scope),
		pagetrans.WithLogger(m.logger),
	}
	if o.sink != nil {
		sessionOpts = append(sessionOpts, pagetrans.WithSink(o.sink))
	}

	session := pagetrans.NewSession(doc, sessionOpts...)
	tab := &Tab{
		id:      id,
		url:     o.url,
		opened:  time.Now(),
		session: session,
		scroll:  pagetrans.NewScrollController(session, m.translator, m.cfg.Scroll),
		manager: m,
		logger:  m.logger.With(zap.String("tab", id)),
	}

	m.mu.Lock()
	if _, exists := m.tabs[id]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", id, ErrTabExists)
	}
	m.tabs[id] = tab
	m.mu.Unlock()

	s, ok, err := m.store.Get(ctx, id)
	if err != nil {
		tab.logger.Warn("failed to read tab settings", zap.Error(err))
		return tab, nil
	}
	if ok && s.Enabled && s.TargetLanguage != "" {
		tab.logger.Info("auto translation enabled",
			zap.String("target", s.TargetLanguage),
			zap.Duration("delay", m.cfg.AutoStartDelay))
		tab.scheduleAutoStart(s.TargetLanguage, m.cfg.AutoStartDelay)
	}
	return tab, nil
}

// Get 查找标签页
func (m *Manager) Get(id string) (*Tab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tab, ok := m.tabs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrTabNotFound)
	}
	return tab, nil
}

// List 按打开时间排序的标签页
func (m *Manager) List() []*Tab {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Tab, 0, len(m.tabs))
	for _, t := range m.tabs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].opened.Before(out[j].opened) })
	return out
}

// Close 关闭标签页，停止滚动翻译。设置保留，重新打开时会自动开始。
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	tab, ok := m.tabs[id]
	delete(m.tabs, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrTabNotFound)
	}
	tab.stop()
	return nil
}

// CloseAll 关闭所有标签页
func (m *Manager) CloseAll() {
	m.mu.Lock()
	tabs := m.tabs
	m.tabs = make(map[string]*Tab)
	m.mu.Unlock()
	for _, t := range tabs {
		t.stop()
	}
}
