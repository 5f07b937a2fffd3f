package pagetrans

import (
	"strings"
	"unicode/utf8"
	"weak"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Extract 提取当前可见且未翻译的文本，并替换待应用批次。
//
// 每个通过分类器的节点都会记录原文（包括视口外和已翻译的节点），
// 只有第一次提取会把新记录追加到按文档顺序排列的原文数组。
func (s *Session) Extract() *Batch {
	s.mu.Lock()
	defer s.mu.Unlock()

	first := !s.extracted
	batch := &Batch{generation: s.generation}

	s.doc.WalkText(func(n *html.Node) bool {
		if !s.classifier.Accept(s.doc, n) {
			return true
		}

		key := weak.Make(n)
		if _, seen := s.originals[key]; !seen {
			s.originals[key] = n.Data
			if first {
				s.originalOrder = append(s.originalOrder, n.Data)
			}
		}

		if s.scope == ScopeViewport && !s.doc.InViewport(n.Parent) {
			return true
		}
		if _, done := s.translated[key]; done {
			return true
		}

		batch.Items = append(batch.Items, Item{Node: n, Text: strings.TrimSpace(n.Data)})
		return true
	})

	s.extracted = true
	s.pending = batch

	s.logger.Debug("extracted texts",
		zap.Int("count", batch.Len()),
		zap.Int("recorded", len(s.originals)),
		zap.Stringer("scope", s.scope))
	return batch
}

// SampleText 取样文本用于语言检测，累计超过 limit 个字符后停止
func (s *Session) SampleText(limit int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	runes := 0
	s.doc.WalkText(func(n *html.Node) bool {
		if !s.sampler.Accept(s.doc, n) {
			return true
		}
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		// 按字符计数，多字节文字与 ASCII 取样长度一致
		runes += utf8.RuneCountInString(n.Data) + 1
		return runes <= limit
	})
	return strings.TrimSpace(sb.String())
}
