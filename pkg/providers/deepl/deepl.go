package deepl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers/retry"
	"go.uber.org/zap"
)

// MaxBatchSize DeepL 单次请求最多 50 条文本
const MaxBatchSize = 50

// Config DeepL配置
type Config struct {
	providers.BaseConfig
	UseFreeAPI  bool              `json:"use_free_api"` // 是否使用免费API
	Formality   string            `json:"formality,omitempty"`
	RetryConfig retry.RetryConfig `json:"retry_config"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig:  providers.DefaultConfig(),
		RetryConfig: retry.DefaultRetryConfig(),
	}
	config.APIEndpoint = "https://api.deepl.com/v2"
	return config
}

// Provider DeepL提供商
type Provider struct {
	config     Config
	httpClient *http.Client
}

// 确保 Provider 实现 providers.Provider 接口
var _ providers.Provider = (*Provider)(nil)

// New 创建新的DeepL提供商
func New(config Config, logger *zap.Logger) *Provider {
	if config.APIEndpoint == "" {
		if config.UseFreeAPI {
			config.APIEndpoint = "https://api-free.deepl.com/v2"
		} else {
			config.APIEndpoint = "https://api.deepl.com/v2"
		}
	}
	config.RetryConfig.MaxRetries = config.MaxRetries

	return &Provider{
		config:     config,
		httpClient: retry.NewHTTPClient(config.RetryConfig, config.Timeout, logger),
	}
}

// TranslateTexts 执行批量翻译
func (p *Provider) TranslateTexts(ctx context.Context, req *providers.BatchRequest) (*providers.BatchResponse, error) {
	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("deepl: batch of %d exceeds limit %d", len(req.Texts), MaxBatchSize)
	}

	// 构建请求参数
	params := url.Values{}
	for _, t := range req.Texts {
		params.Add("text", t)
	}
	params.Set("target_lang", normalizeLanguageCode(req.TargetLanguage, false))
	if req.SourceLanguage != "" {
		params.Set("source_lang", normalizeLanguageCode(req.SourceLanguage, true))
	}
	if p.config.Formality != "" {
		params.Set("formality", p.config.Formality)
	}

	resp, err := p.translate(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(resp.Translations) != len(req.Texts) {
		return nil, providers.NewServiceError(p.GetName(), 0,
			fmt.Sprintf("expected %d translations, got %d", len(req.Texts), len(resp.Translations)))
	}

	out := &providers.BatchResponse{Texts: make([]string, len(resp.Translations))}
	for i, t := range resp.Translations {
		out.Texts[i] = t.Text
	}
	if len(resp.Translations) > 0 {
		out.DetectedSource = strings.ToLower(resp.Translations[0].DetectedSourceLanguage)
	}
	return out, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "deepl"
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		SupportedLanguages: []providers.Language{
			{Code: "AR", Name: "Arabic"},
			{Code: "DE", Name: "German"},
			{Code: "EN-GB", Name: "English (British)"},
			{Code: "EN-US", Name: "English (American)"},
			{Code: "ES", Name: "Spanish"},
			{Code: "FR", Name: "French"},
			{Code: "IT", Name: "Italian"},
			{Code: "JA", Name: "Japanese"},
			{Code: "KO", Name: "Korean"},
			{Code: "NL", Name: "Dutch"},
			{Code: "PL", Name: "Polish"},
			{Code: "PT-BR", Name: "Portuguese (Brazilian)"},
			{Code: "PT-PT", Name: "Portuguese (European)"},
			{Code: "RU", Name: "Russian"},
			{Code: "UK", Name: "Ukrainian"},
			{Code: "ZH", Name: "Chinese"},
		},
		MaxBatchSize:   MaxBatchSize,
		RequiresAPIKey: true,
	}
}

// translate 执行翻译请求
func (p *Provider) translate(ctx context.Context, params url.Values) (*TranslateResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.APIEndpoint+"/translate",
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// 设置头部
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+p.config.APIKey)
	for k, v := range p.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, providers.WrapServiceError(p.GetName(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(resp.Body)

		// 处理特定错误码
		var msg string
		switch resp.StatusCode {
		case 400:
			msg = fmt.Sprintf("bad request: %s", string(errBody))
		case 403:
			msg = "authentication failed"
		case 413:
			msg = "request size exceeded"
		case 429:
			msg = "too many requests"
		case 456:
			msg = "quota exceeded"
		case 503:
			msg = "service temporarily unavailable"
		default:
			msg = fmt.Sprintf("API error: %s", resp.Status)
		}
		return nil, providers.NewServiceError(p.GetName(), resp.StatusCode, msg)
	}

	var translateResp TranslateResponse
	if err := json.NewDecoder(resp.Body).Decode(&translateResp); err != nil {
		return nil, providers.WrapServiceError(p.GetName(), fmt.Errorf("failed to decode response: %w", err))
	}
	return &translateResp, nil
}

// normalizeLanguageCode 标准化语言代码为DeepL格式
func normalizeLanguageCode(lang string, isSource bool) string {
	// DeepL使用大写的语言代码
	upper := strings.ToUpper(strings.ReplaceAll(lang, "_", "-"))

	switch upper {
	case "ZH-HANS", "ZH-CN":
		return "ZH"
	}

	// 对于英语和葡萄牙语，目标语言需要指定变体
	if !isSource {
		switch upper {
		case "EN":
			return "EN-US" // 默认美式英语
		case "PT":
			return "PT-BR" // 默认巴西葡萄牙语
		}
		return upper
	}

	// 源语言只接受主语言
	if i := strings.Index(upper, "-"); i > 0 {
		return upper[:i]
	}
	return upper
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}
