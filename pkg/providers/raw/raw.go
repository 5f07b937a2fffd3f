package raw

import (
	"context"
	"strings"

	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
)

// Config Raw 提供商配置
type Config struct {
	providers.BaseConfig
	// Marker 不为空时在译文前加上 "[目标语言] "，便于观察替换效果
	Marker bool `json:"marker"`
	// Language 检测时固定返回的语言
	Language string `json:"language"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig: providers.DefaultConfig(),
		Language:   "en",
	}
}

// Provider Raw 提供商实现（跳过翻译，直接返回原文）
type Provider struct {
	config Config
}

// 确保 Provider 实现接口
var (
	_ providers.Provider = (*Provider)(nil)
	_ providers.Detector = (*Provider)(nil)
)

// New 创建新的 Raw 提供商
func New(config Config) *Provider {
	return &Provider{
		config: config,
	}
}

// TranslateTexts 直接返回原文
func (p *Provider) TranslateTexts(ctx context.Context, req *providers.BatchRequest) (*providers.BatchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]string, len(req.Texts))
	for i, t := range req.Texts {
		if p.config.Marker {
			out[i] = "[" + req.TargetLanguage + "] " + t
		} else {
			out[i] = t
		}
	}
	return &providers.BatchResponse{Texts: out, DetectedSource: p.config.Language}, nil
}

// DetectLanguage 返回配置的语言
func (p *Provider) DetectLanguage(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" || p.config.Language == "" {
		return "", providers.NewDetectionError(p.GetName(), "unable to detect language")
	}
	return p.config.Language, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "raw"
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		SupportedLanguages: []providers.Language{
			// Raw 支持所有语言（因为不进行实际翻译）
			{Code: "*", Name: "All Languages"},
		},
		SupportsDetection: true,
	}
}
