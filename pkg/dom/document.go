package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ErrNoBody 文档缺少 body 元素
var ErrNoBody = errors.New("document has no body element")

// Document 一个可被就地翻译的 HTML 文档
type Document struct {
	root     *html.Node
	body     *html.Node
	layout   Layout
	viewport Viewport
}

// Option 文档选项
type Option func(*Document)

// WithLayout 设置布局信息来源
func WithLayout(layout Layout) Option {
	return func(d *Document) {
		d.layout = layout
	}
}

// WithViewport 设置初始视口
func WithViewport(v Viewport) Option {
	return func(d *Document) {
		d.viewport = v
	}
}

// Parse 解析 HTML 文档
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	gq, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if len(gq.Nodes) == 0 {
		return nil, ErrNoBody
	}
	return NewDocument(gq.Nodes[0], opts...)
}

// ParseCharset 按 Content-Type 与文档内的 meta 声明转换为 UTF-8 后解析
func ParseCharset(r io.Reader, contentType string, opts ...Option) (*Document, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to detect charset: %w", err)
	}
	return Parse(utf8Reader, opts...)
}

// ParseString 从字符串解析 HTML 文档
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// NewDocument 包装已解析的节点树
func NewDocument(root *html.Node, opts ...Option) (*Document, error) {
	body := goquery.NewDocumentFromNode(root).Find("body").First()
	if body.Length() == 0 {
		return nil, ErrNoBody
	}

	d := &Document{
		root:     root,
		body:     body.Nodes[0],
		layout:   StyleLayout{},
		viewport: DefaultViewport(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Root 返回文档根节点
func (d *Document) Root() *html.Node {
	return d.root
}

// Body 返回 body 元素
func (d *Document) Body() *html.Node {
	return d.body
}

// Layout 返回布局信息来源
func (d *Document) Layout() Layout {
	return d.layout
}

// Viewport 返回当前视口
func (d *Document) Viewport() Viewport {
	return d.viewport
}

// SetViewport 替换视口
func (d *Document) SetViewport(v Viewport) {
	d.viewport = v
}

// ScrollTo 设置垂直滚动位置
func (d *Document) ScrollTo(y float64) {
	if y < 0 {
		y = 0
	}
	d.viewport.ScrollY = y
}

// WalkText 按文档顺序遍历 body 下的文本节点，fn 返回 false 时停止
func (d *Document) WalkText(fn func(n *html.Node) bool) {
	walkText(d.body, fn)
}

func walkText(n *html.Node, fn func(*html.Node) bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			if !fn(c) {
				return false
			}
			continue
		}
		if !walkText(c, fn) {
			return false
		}
	}
	return true
}

// TextNodes 返回 body 下所有文本节点（文档顺序）
func (d *Document) TextNodes() []*html.Node {
	var nodes []*html.Node
	d.WalkText(func(n *html.Node) bool {
		nodes = append(nodes, n)
		return true
	})
	return nodes
}

// Rendered 判断元素是否被渲染
func (d *Document) Rendered(el *html.Node) bool {
	return !d.layout.Hidden(el)
}

// InViewport 判断元素的包围盒是否与视口相交
func (d *Document) InViewport(el *html.Node) bool {
	rect, ok := d.layout.Bounds(el)
	if !ok {
		return false
	}
	return rect.Intersects(d.viewport.Rect())
}

// Render 序列化整个文档
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// HTML 返回序列化后的文档
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParentElement 返回节点的父元素，没有时返回 nil
func ParentElement(n *html.Node) *html.Node {
	if n == nil || n.Parent == nil || n.Parent.Type != html.ElementNode {
		return nil
	}
	return n.Parent
}

// Text 返回文本节点的内容
func Text(n *html.Node) string {
	return n.Data
}

// SetText 覆盖文本节点的内容
func SetText(n *html.Node, text string) {
	n.Data = text
}

// Attr 读取元素属性
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// TextIndex 返回文本节点在父元素的文本子节点中的序号
func TextIndex(n *html.Node) int {
	if n.Parent == nil {
		return -1
	}
	idx := 0
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c == n {
			return idx
		}
		if c.Type == html.TextNode {
			idx++
		}
	}
	return -1
}
