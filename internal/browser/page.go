package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/nerdneilsfield/go-page-translator/pkg/dom"
	"github.com/nerdneilsfield/go-page-translator/pkg/pagetrans"
	"go.uber.org/zap"
)

// flushTimeout 同步一批写入的超时
const flushTimeout = 10 * time.Second

// stampScript 给每个元素标记序号、文档坐标系下的包围盒与计算样式的可见性
const stampScript = `() => {
	let id = 0;
	const sx = window.scrollX, sy = window.scrollY;
	for (const el of document.querySelectorAll('*')) {
		el.setAttribute('data-pt-id', String(id++));
		const r = el.getBoundingClientRect();
		el.setAttribute('data-pt-rect', [r.left + sx, r.top + sy, r.width, r.height].join(','));
		const cs = getComputedStyle(el);
		if (cs.display === 'none') {
			el.setAttribute('data-pt-hidden', 'display');
		} else if (cs.visibility === 'hidden' || cs.visibility === 'collapse') {
			el.setAttribute('data-pt-hidden', 'visibility');
		} else {
			el.removeAttribute('data-pt-hidden');
		}
	}
	return {
		html: document.documentElement.outerHTML,
		scrollX: sx,
		scrollY: sy,
		width: window.innerWidth,
		height: window.innerHeight,
	};
}`

// writeScript 按元素序号与文本子节点序号写入文本
const writeScript = `(changes) => {
	let applied = 0;
	for (const c of changes) {
		const el = document.querySelector('[data-pt-id="' + c.id + '"]');
		if (!el) continue;
		let idx = 0;
		for (const n of el.childNodes) {
			if (n.nodeType !== Node.TEXT_NODE) continue;
			if (idx++ === c.index) {
				n.textContent = c.text;
				applied++;
				break;
			}
		}
	}
	return applied;
}`

const scrollScript = `(y) => { window.scrollTo(window.scrollX, y); return window.scrollY; }`

// Snapshot 标记脚本的返回值
type Snapshot struct {
	HTML    string  `json:"html"`
	ScrollX float64 `json:"scrollX"`
	ScrollY float64 `json:"scrollY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// Document 用 StampedLayout 解析快照
func (s Snapshot) Document() (*dom.Document, error) {
	return dom.ParseString(s.HTML,
		dom.WithLayout(dom.StampedLayout{}),
		dom.WithViewport(dom.Viewport{
			Width:   s.Width,
			Height:  s.Height,
			ScrollX: s.ScrollX,
			ScrollY: s.ScrollY,
		}))
}

// Page 浏览器中的一个标签页，同时是会话的 TextSink
type Page struct {
	rod    *rod.Page
	url    string
	logger *zap.Logger
}

var _ pagetrans.TextSink = (*Page)(nil)

// URL 页面地址
func (p *Page) URL() string {
	return p.url
}

// Snapshot 标记并抓取当前 DOM
func (p *Page) Snapshot(ctx context.Context) (*dom.Document, error) {
	res, err := p.rod.Context(ctx).Eval(stampScript)
	if err != nil {
		return nil, fmt.Errorf("browser: snapshot: %w", err)
	}
	var snap Snapshot
	if err := res.Value.Unmarshal(&snap); err != nil {
		return nil, fmt.Errorf("browser: decode snapshot: %w", err)
	}
	return snap.Document()
}

// ScrollTo 滚动页面，返回实际的滚动位置
func (p *Page) ScrollTo(ctx context.Context, y float64) (float64, error) {
	res, err := p.rod.Context(ctx).Eval(scrollScript, y)
	if err != nil {
		return 0, fmt.Errorf("browser: scroll: %w", err)
	}
	return res.Value.Num(), nil
}

// Flush 把会话写入同步到页面，失败只记录日志
func (p *Page) Flush(changes []pagetrans.Change) {
	payload := locate(changes)
	if len(payload) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	res, err := p.rod.Context(ctx).Eval(writeScript, payload)
	if err != nil {
		p.logger.Error("failed to write texts to page", zap.Int("count", len(payload)), zap.Error(err))
		return
	}
	if applied := res.Value.Int(); applied != len(payload) {
		p.logger.Warn("some texts were not found in page",
			zap.Int("expected", len(payload)),
			zap.Int("applied", applied))
	}
}

// Close 关闭标签页
func (p *Page) Close() error {
	return p.rod.Close()
}

// location 文本节点在页面中的位置
type location struct {
	ID    int    `json:"id"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// locate 通过父元素的 data-pt-id 定位文本节点，无法定位的跳过
func locate(changes []pagetrans.Change) []location {
	out := make([]location, 0, len(changes))
	for _, c := range changes {
		parent := dom.ParentElement(c.Node)
		if parent == nil {
			continue
		}
		raw, ok := dom.Attr(parent, dom.AttrID)
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		out = append(out, location{ID: id, Index: dom.TextIndex(c.Node), Text: c.Text})
	}
	return out
}
