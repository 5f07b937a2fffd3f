package translation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
	"go.uber.org/zap"
)

const (
	// MaxDetectChars 语言检测最多发送的字符数
	MaxDetectChars = 1000
	// MinDetectChars 少于该字符数不做检测
	MinDetectChars = 10
)

// Service 批量翻译服务：分块、限速、保持顺序
type Service struct {
	provider providers.Provider
	options  serviceOptions
}

// 确保实现接口
var (
	_ BatchTranslator = (*Service)(nil)
	_ Detector        = (*Service)(nil)
)

// New 创建新的翻译服务
func New(provider providers.Provider, opts ...Option) *Service {
	options := serviceOptions{chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(&options)
	}
	if options.chunkSize <= 0 {
		options.chunkSize = DefaultChunkSize
	}
	// 不超过提供商的单次上限
	if limit := provider.GetCapabilities().MaxBatchSize; limit > 0 && options.chunkSize > limit {
		options.chunkSize = limit
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}

	return &Service{provider: provider, options: options}
}

// Provider 返回底层提供商
func (s *Service) Provider() providers.Provider {
	return s.provider
}

// ChunkSize 返回实际使用的分块大小
func (s *Service) ChunkSize() int {
	return s.options.chunkSize
}

// TranslateBatch 翻译一组文本，结果按提交顺序拼接。
// 任一分块失败则整体失败，不返回部分结果。
func (s *Service) TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}

	results := make([]string, 0, len(texts))
	chunks := Chunk(texts, s.options.chunkSize)
	for i, chunk := range chunks {
		if s.options.limiter != nil {
			if err := s.options.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := s.provider.TranslateTexts(ctx, &providers.BatchRequest{
			Texts:          chunk,
			TargetLanguage: targetLang,
		})
		if err != nil {
			s.options.logger.Debug("chunk translation failed",
				zap.Int("chunk", i),
				zap.Int("chunks", len(chunks)),
				zap.Error(err))
			return nil, err
		}
		if len(resp.Texts) != len(chunk) {
			return nil, &CountError{Provider: s.provider.GetName(), Want: len(chunk), Got: len(resp.Texts)}
		}
		results = append(results, resp.Texts...)
	}

	s.options.logger.Debug("batch translated",
		zap.String("provider", s.provider.GetName()),
		zap.String("target", targetLang),
		zap.Int("texts", len(texts)),
		zap.Int("chunks", len(chunks)))
	return results, nil
}

// Translate 翻译单条文本
func (s *Service) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	out, err := s.TranslateBatch(ctx, []string{text}, targetLang)
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// Detect 检测文本语言
func (s *Service) Detect(ctx context.Context, text string) (string, error) {
	detector, ok := s.provider.(providers.Detector)
	if !ok {
		return "", fmt.Errorf("%s: %w", s.provider.GetName(), ErrDetectionUnsupported)
	}
	if s.options.limiter != nil {
		if err := s.options.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	return detector.DetectLanguage(ctx, text)
}

// DetectPageLanguage 用页面样本文本检测语言，最多发送 MaxDetectChars 个字符
func (s *Service) DetectPageLanguage(ctx context.Context, sample string) (string, error) {
	sample = strings.TrimSpace(sample)
	if utf8.RuneCountInString(sample) < MinDetectChars {
		return "", ErrNotEnoughText
	}
	return s.Detect(ctx, truncateRunes(sample, MaxDetectChars))
}

// Selection 选中文本的翻译结果
type Selection struct {
	Original       string `json:"original"`
	Translated     string `json:"translated"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// TranslateSelection 检测选中文本的语言并翻译：英文译为日文，其余译为英文
func (s *Service) TranslateSelection(ctx context.Context, text string) (*Selection, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	source, err := s.Detect(ctx, text)
	if err != nil {
		return nil, err
	}
	target := SelectionTarget(source)

	translated, err := s.Translate(ctx, text, target)
	if err != nil {
		return nil, err
	}

	return &Selection{
		Original:       text,
		Translated:     translated,
		SourceLanguage: source,
		TargetLanguage: target,
	}, nil
}

// SelectionTarget 根据源语言选择目标语言
func SelectionTarget(source string) string {
	if BaseLanguage(source) == "en" {
		return "ja"
	}
	return "en"
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
