// Package pagetrans 在 HTML 文档中就地提取、翻译、还原文本。
//
// Session 记录每个文本节点的原文与翻译状态，保证重复提取不会重复翻译，
// 还原时每个节点都能恢复到第一次看到时的内容。ScrollController 在滚动
// 揭示新内容时增量翻译。
package pagetrans

import (
	"strings"
	"sync"
	"weak"

	"github.com/google/uuid"
	"github.com/nerdneilsfield/go-page-translator/pkg/dom"
	"github.com/nerdneilsfield/go-page-translator/pkg/translation"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Scope 提取范围
type Scope int

const (
	// ScopeViewport 只提取与视口相交的节点
	ScopeViewport Scope = iota
	// ScopeDocument 提取整个文档
	ScopeDocument
)

// ParseScope 解析范围名称
func ParseScope(s string) Scope {
	switch strings.ToLower(s) {
	case "document", "page", "full":
		return ScopeDocument
	default:
		return ScopeViewport
	}
}

func (s Scope) String() string {
	if s == ScopeDocument {
		return "document"
	}
	return "viewport"
}

// Change 一次文本写入
type Change struct {
	Node *html.Node
	Text string
}

// TextSink 接收会话对文档的写入，例如同步到浏览器标签页
type TextSink interface {
	Flush(changes []Change)
}

// Item 待翻译的节点与其去除首尾空白的文本
type Item struct {
	Node *html.Node
	Text string
}

// Batch 一次提取的结果，顺序即与翻译结果的位置对应关系
type Batch struct {
	Items      []Item
	generation uint64
}

// Len 批次大小
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Items)
}

// Texts 按顺序返回文本
func (b *Batch) Texts() []string {
	texts := make([]string, len(b.Items))
	for i, it := range b.Items {
		texts[i] = it.Text
	}
	return texts
}

type nodeKey = weak.Pointer[html.Node]

// Session 一个文档的翻译会话
type Session struct {
	mu sync.Mutex

	id         string
	doc        *dom.Document
	classifier *Classifier
	sampler    *Classifier
	scope      Scope
	sink       TextSink
	cache      translation.Cache
	logger     *zap.Logger

	originals     map[nodeKey]string
	originalOrder []string
	translated    map[nodeKey]struct{}
	pending       *Batch
	extracted     bool
	isTranslated  bool
	generation    uint64
}

// Option 会话选项
type Option func(*Session)

// WithScope 设置提取范围
func WithScope(scope Scope) Option {
	return func(s *Session) { s.scope = scope }
}

// WithSink 设置写入接收者
func WithSink(sink TextSink) Option {
	return func(s *Session) { s.sink = sink }
}

// WithCache 设置翻译结果缓存
func WithCache(cache translation.Cache) Option {
	return func(s *Session) { s.cache = cache }
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// NewSession 为文档创建翻译会话
func NewSession(doc *dom.Document, opts ...Option) *Session {
	s := &Session{
		id:         uuid.NewString(),
		doc:        doc,
		classifier: NewClassifier(ExtractionExclusions...),
		sampler:    NewClassifier(SamplingExclusions...),
		cache:      translation.NewMemoryCache(),
		logger:     zap.NewNop(),
		originals:  make(map[nodeKey]string),
		translated: make(map[nodeKey]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session", s.id))
	return s
}

// ID 会话标识
func (s *Session) ID() string {
	return s.id
}

// Document 返回底层文档，调用方不得在会话外并发修改
func (s *Session) Document() *dom.Document {
	return s.doc
}

// Scope 返回提取范围
func (s *Session) Scope() Scope {
	return s.scope
}

// IsTranslated 页面当前是否显示译文
func (s *Session) IsTranslated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isTranslated
}

// Original 返回节点记录的原文
func (s *Session) Original(n *html.Node) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.originals[weak.Make(n)]
	return text, ok
}

// IsNodeTranslated 节点是否已写入译文
func (s *Session) IsNodeTranslated(n *html.Node) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.translated[weak.Make(n)]
	return ok
}

// OriginalTexts 第一次提取时按文档顺序记录的原文
func (s *Session) OriginalTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.originalOrder...)
}

// Pending 最近一次提取的批次
func (s *Session) Pending() *Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Viewport 当前视口
func (s *Session) Viewport() dom.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Viewport()
}

// ScrollTo 更新滚动位置
func (s *Session) ScrollTo(y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.ScrollTo(y)
}

// HTML 序列化当前文档
func (s *Session) HTML() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.HTML()
}

// reset 进入未翻译状态，调用方持有锁
func (s *Session) reset() {
	s.isTranslated = false
	s.originals = make(map[nodeKey]string)
	s.translated = make(map[nodeKey]struct{})
	s.originalOrder = nil
	s.pending = nil
	s.extracted = false
	s.generation++
	if s.cache != nil {
		if err := s.cache.Clear(); err != nil {
			s.logger.Warn("failed to clear translation cache", zap.Error(err))
		}
	}
}
