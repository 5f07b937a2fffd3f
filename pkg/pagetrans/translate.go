package pagetrans

import (
	"context"

	"github.com/nerdneilsfield/go-page-translator/pkg/translation"
	"go.uber.org/zap"
)

// Translate 翻译文本，命中会话缓存的文本不会再次发送。
// 返回结果与 texts 位置一一对应。
func (s *Session) Translate(ctx context.Context, t translation.BatchTranslator, texts []string, targetLang string) ([]string, error) {
	results := make([]string, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if cached, ok := s.cache.Get(cacheKey(targetLang, text)); ok {
			results[i] = cached
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return results, nil
	}

	translated, err := t.TranslateBatch(ctx, missing, targetLang)
	if err != nil {
		return nil, err
	}
	if len(translated) != len(missing) {
		return nil, &CountMismatchError{Want: len(missing), Got: len(translated)}
	}

	for j, idx := range missingIdx {
		results[idx] = translated[j]
		if err := s.cache.Set(cacheKey(targetLang, missing[j]), translated[j]); err != nil {
			s.logger.Warn("failed to cache translation", zap.Error(err))
		}
	}

	s.logger.Debug("translated texts",
		zap.Int("total", len(texts)),
		zap.Int("cache_hits", len(texts)-len(missing)))
	return results, nil
}

func cacheKey(lang, text string) string {
	return lang + "\x00" + text
}
