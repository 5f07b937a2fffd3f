package pagetrans

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/nerdneilsfield/go-page-translator/pkg/dom"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

// boxDoc 解析文档，按 id 登记包围盒
func boxDoc(t *testing.T, src string, rects map[string]dom.Rect) *dom.Document {
	t.Helper()
	layout := dom.NewBoxLayout()
	doc, err := dom.ParseString(src,
		dom.WithLayout(layout),
		dom.WithViewport(dom.Viewport{Width: 1000, Height: 500}))
	require.NoError(t, err)

	for id, r := range rects {
		layout.Set(byID(t, doc, id), r)
	}
	return doc
}

func byID(t *testing.T, doc *dom.Document, id string) *html.Node {
	t.Helper()
	sel := goquery.NewDocumentFromNode(doc.Root()).Find("#" + id)
	require.Equal(t, 1, sel.Length(), "element #%s", id)
	return sel.Nodes[0]
}

func texts(doc *dom.Document) []string {
	var out []string
	for _, n := range doc.TextNodes() {
		out = append(out, n.Data)
	}
	return out
}

// recordingSink 记录所有写入
type recordingSink struct {
	mu      sync.Mutex
	flushes [][]Change
}

func (r *recordingSink) Flush(changes []Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes = append(r.flushes, append([]Change(nil), changes...))
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.flushes {
		n += len(f)
	}
	return n
}

// upperTranslator 返回带语言前缀的译文，记录调用
type upperTranslator struct {
	mu    sync.Mutex
	calls [][]string
	err   error
	short bool
	block chan struct{}
}

func (u *upperTranslator) TranslateBatch(ctx context.Context, in []string, lang string) ([]string, error) {
	u.mu.Lock()
	u.calls = append(u.calls, append([]string(nil), in...))
	block := u.block
	u.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if u.err != nil {
		return nil, u.err
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = lang + ":" + s
	}
	if u.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (u *upperTranslator) callCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

// fakeScheduler 手动推进的时钟
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, at: s.now + d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

// Advance 推进时钟并同步执行到期的定时器
func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var due []*fakeTimer
		for _, t := range s.timers {
			if !t.stopped && !t.fired && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			s.now = target
			s.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
		next := due[0]
		next.fired = true
		s.now = next.at
		s.mu.Unlock()

		next.fn()
	}
}

func (s *fakeScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func htmlAttr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}
