package dom

import (
	"strconv"
	"strings"

	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Rect 文档坐标系中的矩形
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right 右边界
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom 下边界
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Intersects 两个矩形在两个轴上都有非零重叠
func (r Rect) Intersects(o Rect) bool {
	return r.Y < o.Bottom() && r.Bottom() > o.Y &&
		r.X < o.Right() && r.Right() > o.X
}

// Viewport 可见窗口
type Viewport struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	ScrollX float64 `json:"scroll_x"`
	ScrollY float64 `json:"scroll_y"`
}

// DefaultViewport 默认 1280x800 视口
func DefaultViewport() Viewport {
	return Viewport{Width: 1280, Height: 800}
}

// Rect 视口在文档坐标系中的矩形
func (v Viewport) Rect() Rect {
	return Rect{X: v.ScrollX, Y: v.ScrollY, Width: v.Width, Height: v.Height}
}

// Layout 提供元素的几何与可见性信息
type Layout interface {
	// Bounds 返回元素的包围盒，未知时 ok 为 false
	Bounds(el *html.Node) (Rect, bool)

	// Hidden 元素是否未被渲染（display:none 或 visibility:hidden）
	Hidden(el *html.Node) bool
}

// StyleLayout 仅根据内联样式与 hidden 属性判断可见性，没有几何信息
type StyleLayout struct{}

// Bounds 没有几何信息
func (StyleLayout) Bounds(*html.Node) (Rect, bool) {
	return Rect{}, false
}

// uaHidden 浏览器默认样式为 display:none 的元素
var uaHidden = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Title:    true,
	atom.Template: true,
	atom.Datalist: true,
}

// Hidden 检查 display 与继承的 visibility
func (StyleLayout) Hidden(el *html.Node) bool {
	visibilityDecided := false
	for n := el; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if uaHidden[n.DataAtom] {
			return true
		}
		if _, ok := Attr(n, "hidden"); ok {
			return true
		}
		decls := inlineStyle(n)
		if strings.EqualFold(decls["display"], "none") {
			return true
		}
		// visibility 由最近声明它的祖先决定
		if v, ok := decls["visibility"]; ok && !visibilityDecided {
			visibilityDecided = true
			switch strings.ToLower(v) {
			case "hidden", "collapse":
				return true
			}
		}
	}
	return false
}

// inlineStyle 解析 style 属性
func inlineStyle(n *html.Node) map[string]string {
	raw, ok := Attr(n, "style")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	// 最后一条声明没有分号时 douceur 会丢掉它的值
	raw = strings.TrimSpace(raw)
	if !strings.HasSuffix(raw, ";") {
		raw += ";"
	}
	decls, err := parser.ParseDeclarations(raw)
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(decls))
	for _, d := range decls {
		out[strings.ToLower(d.Property)] = strings.TrimSpace(d.Value)
	}
	return out
}

// BoxLayout 显式登记的包围盒，可见性沿用内联样式
type BoxLayout struct {
	StyleLayout
	rects map[*html.Node]Rect
}

// NewBoxLayout 创建空的 BoxLayout
func NewBoxLayout() *BoxLayout {
	return &BoxLayout{rects: make(map[*html.Node]Rect)}
}

// Set 登记元素的包围盒
func (l *BoxLayout) Set(el *html.Node, r Rect) {
	l.rects[el] = r
}

// Bounds 返回登记的包围盒
func (l *BoxLayout) Bounds(el *html.Node) (Rect, bool) {
	r, ok := l.rects[el]
	return r, ok
}

// 浏览器侧脚本写入的属性
const (
	AttrID     = "data-pt-id"
	AttrRect   = "data-pt-rect"
	AttrHidden = "data-pt-hidden"
)

// StampedLayout 读取浏览器在元素上标记的几何与计算样式
type StampedLayout struct{}

// Bounds 解析 data-pt-rect="x,y,w,h"
func (StampedLayout) Bounds(el *html.Node) (Rect, bool) {
	raw, ok := Attr(el, AttrRect)
	if !ok {
		return Rect{}, false
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return Rect{}, false
	}
	var vals [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Rect{}, false
		}
		vals[i] = f
	}
	return Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, true
}

// Hidden 祖先上的 display 标记或自身的 visibility 标记
func (StampedLayout) Hidden(el *html.Node) bool {
	if v, ok := Attr(el, AttrHidden); ok && v == "visibility" {
		return true
	}
	for n := el; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if v, ok := Attr(n, AttrHidden); ok && v == "display" {
			return true
		}
	}
	return false
}

// StripStamps 删除浏览器标记属性
func StripStamps(root *html.Node) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			kept := n.Attr[:0]
			for _, a := range n.Attr {
				switch a.Key {
				case AttrID, AttrRect, AttrHidden:
					continue
				}
				kept = append(kept, a)
			}
			n.Attr = kept
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}
