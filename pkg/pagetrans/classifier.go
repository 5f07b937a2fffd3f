package pagetrans

import (
	"strings"

	"github.com/nerdneilsfield/go-page-translator/pkg/dom"
	"golang.org/x/net/html"
)

// 排除的父元素
var (
	// SamplingExclusions 语言检测取样时排除
	SamplingExclusions = []string{"script", "style", "noscript", "iframe"}

	// ExtractionExclusions 提取翻译文本时排除，额外跳过代码
	ExtractionExclusions = append(append([]string{}, SamplingExclusions...), "code", "pre")
)

// Classifier 判断文本节点是否可以提取
type Classifier struct {
	excluded map[string]struct{}
}

// NewClassifier 创建分类器
func NewClassifier(excluded ...string) *Classifier {
	c := &Classifier{excluded: make(map[string]struct{}, len(excluded))}
	for _, tag := range excluded {
		c.excluded[strings.ToLower(tag)] = struct{}{}
	}
	return c
}

// Accept 无副作用地判断节点当前是否可提取
func (c *Classifier) Accept(doc *dom.Document, n *html.Node) bool {
	if n == nil || n.Type != html.TextNode {
		return false
	}
	parent := dom.ParentElement(n)
	if parent == nil {
		return false
	}
	if _, skip := c.excluded[strings.ToLower(parent.Data)]; skip {
		return false
	}
	if !doc.Rendered(parent) {
		return false
	}
	return strings.TrimSpace(n.Data) != ""
}
