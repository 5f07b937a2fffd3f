package pagetrans

import (
	"weak"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Restore 把所有记录过原文的节点写回原文，然后重置会话状态。
// 遍历不经过分类器，之后被隐藏的节点同样会被还原。返回还原的节点数。
func (s *Session) Restore() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changes []Change
	s.doc.WalkText(func(n *html.Node) bool {
		original, ok := s.originals[weak.Make(n)]
		if !ok {
			return true
		}
		if n.Data != original {
			n.Data = original
			changes = append(changes, Change{Node: n, Text: original})
		}
		return true
	})

	s.flush(changes)
	s.reset()

	s.logger.Debug("restored original texts", zap.Int("count", len(changes)))
	return len(changes)
}
