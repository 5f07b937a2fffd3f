package pagetrans

import (
	"weak"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
)

// \s 匹配 Unicode 空白（包括不换行空格），与浏览器中的语义一致
var (
	leadingSpace  = regexp2.MustCompile(`^\s*`, regexp2.None)
	trailingSpace = regexp2.MustCompile(`\s*$`, regexp2.None)
)

// preserveWhitespace 用当前文本的首尾空白包裹译文
func preserveWhitespace(current, translated string) string {
	lead := matchString(leadingSpace, current)
	if len(lead) == len(current) {
		return lead + translated
	}
	return lead + translated + matchString(trailingSpace, current)
}

func matchString(re *regexp2.Regexp, s string) string {
	m, err := re.FindStringMatch(s)
	if err != nil || m == nil {
		return ""
	}
	return m.String()
}

// ApplyPending 把译文应用到最近一次提取的批次
func (s *Session) ApplyPending(translations []string) error {
	s.mu.Lock()
	batch := s.pending
	s.mu.Unlock()

	if batch == nil {
		if len(translations) == 0 {
			return nil
		}
		return ErrNoPendingBatch
	}
	return s.Apply(batch, translations)
}

// Apply 按位置把译文写回批次中的节点。
//
// 数量不一致时不做任何写入，批次保持待应用。
// 只有最近一次提取的批次可以应用且只能应用一次，其余返回 ErrStaleBatch。
func (s *Session) Apply(batch *Batch, translations []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if batch == nil || batch.generation != s.generation || batch != s.pending {
		return ErrStaleBatch
	}
	if len(translations) != batch.Len() {
		s.logger.Error("translation count mismatch",
			zap.Int("texts", batch.Len()),
			zap.Int("translations", len(translations)))
		return &CountMismatchError{Want: batch.Len(), Got: len(translations)}
	}

	changes := make([]Change, 0, len(translations))
	for i, item := range batch.Items {
		text := preserveWhitespace(item.Node.Data, translations[i])
		item.Node.Data = text
		s.translated[weak.Make(item.Node)] = struct{}{}
		changes = append(changes, Change{Node: item.Node, Text: text})
	}

	s.pending = nil
	s.isTranslated = true
	s.flush(changes)

	s.logger.Debug("applied translations", zap.Int("count", len(changes)))
	return nil
}

// flush 通知写入接收者，调用方持有锁
func (s *Session) flush(changes []Change) {
	if s.sink != nil && len(changes) > 0 {
		s.sink.Flush(changes)
	}
}
