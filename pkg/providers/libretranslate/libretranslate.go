package libretranslate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers/retry"
	"go.uber.org/zap"
)

// MaxBatchSize 单次请求最多的条目数
const MaxBatchSize = 50

// Config LibreTranslate配置
type Config struct {
	providers.BaseConfig
	// LibreTranslate特定配置
	RequiresAPIKey bool              `json:"requires_api_key"` // 服务器是否需要API密钥
	RetryConfig    retry.RetryConfig `json:"retry_config"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig:  providers.DefaultConfig(),
		RetryConfig: retry.DefaultRetryConfig(),
	}
	// 默认使用官方演示服务器
	config.APIEndpoint = "https://libretranslate.com"
	return config
}

// Provider LibreTranslate提供商
type Provider struct {
	config     Config
	httpClient *http.Client
}

// 确保 Provider 实现接口
var (
	_ providers.Provider = (*Provider)(nil)
	_ providers.Detector = (*Provider)(nil)
)

// New 创建新的LibreTranslate提供商
func New(config Config, logger *zap.Logger) *Provider {
	if config.APIEndpoint == "" {
		config.APIEndpoint = "https://libretranslate.com"
	}
	config.APIEndpoint = strings.TrimRight(config.APIEndpoint, "/")
	config.RetryConfig.MaxRetries = config.MaxRetries

	return &Provider{
		config:     config,
		httpClient: retry.NewHTTPClient(config.RetryConfig, config.Timeout, logger),
	}
}

// TranslateTexts 执行批量翻译
func (p *Provider) TranslateTexts(ctx context.Context, req *providers.BatchRequest) (*providers.BatchResponse, error) {
	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("libretranslate: batch of %d exceeds limit %d", len(req.Texts), MaxBatchSize)
	}

	source := "auto"
	if req.SourceLanguage != "" {
		source = normalizeLanguageCode(req.SourceLanguage)
	}

	body := TranslateRequest{
		Q:      req.Texts,
		Source: source,
		Target: normalizeLanguageCode(req.TargetLanguage),
		Format: "text",
		APIKey: p.config.APIKey,
	}

	var resp TranslateResponse
	if err := p.post(ctx, "/translate", body, &resp); err != nil {
		return nil, err
	}

	if len(resp.TranslatedText) != len(req.Texts) {
		return nil, providers.NewServiceError(p.GetName(), 0,
			fmt.Sprintf("expected %d translations, got %d", len(req.Texts), len(resp.TranslatedText)))
	}

	out := &providers.BatchResponse{Texts: resp.TranslatedText}
	if len(resp.DetectedLanguage) > 0 {
		out.DetectedSource = resp.DetectedLanguage[0].Language
	}
	return out, nil
}

// DetectLanguage 检测文本语言
func (p *Provider) DetectLanguage(ctx context.Context, text string) (string, error) {
	body := struct {
		Q      string `json:"q"`
		APIKey string `json:"api_key,omitempty"`
	}{Q: text, APIKey: p.config.APIKey}

	var resp []Detection
	if err := p.post(ctx, "/detect", body, &resp); err != nil {
		return "", err
	}
	if len(resp) == 0 || resp[0].Language == "" {
		return "", providers.NewDetectionError(p.GetName(), "unable to detect language")
	}
	return resp[0].Language, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "libretranslate"
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		SupportedLanguages: []providers.Language{
			{Code: "ar", Name: "Arabic"},
			{Code: "bn", Name: "Bengali"},
			{Code: "de", Name: "German"},
			{Code: "en", Name: "English"},
			{Code: "es", Name: "Spanish"},
			{Code: "fr", Name: "French"},
			{Code: "hi", Name: "Hindi"},
			{Code: "ja", Name: "Japanese"},
			{Code: "ko", Name: "Korean"},
			{Code: "zh", Name: "Chinese"},
		},
		MaxBatchSize:      MaxBatchSize,
		SupportsDetection: true,
		RequiresAPIKey:    p.config.RequiresAPIKey,
	}
}

// post 发送 JSON 请求并解析响应
func (p *Provider) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.APIEndpoint+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range p.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return providers.WrapServiceError(p.GetName(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(resp.Body)
		var errResp ErrorResponse
		if err := json.Unmarshal(errBody, &errResp); err == nil && errResp.Error != "" {
			return providers.NewServiceError(p.GetName(), resp.StatusCode, errResp.Error)
		}
		return providers.NewServiceError(p.GetName(), resp.StatusCode, fmt.Sprintf("API error: %s", resp.Status))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return providers.WrapServiceError(p.GetName(), fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// normalizeLanguageCode LibreTranslate 只使用主语言代码
func normalizeLanguageCode(lang string) string {
	lower := strings.ToLower(strings.ReplaceAll(lang, "_", "-"))
	if i := strings.Index(lower, "-"); i > 0 {
		return lower[:i]
	}
	return lower
}

// TranslateRequest 翻译请求
type TranslateRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Format string   `json:"format"`
	APIKey string   `json:"api_key,omitempty"` // API密钥（如果需要）
}

// Detection 检测结果
type Detection struct {
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
}

// TranslateResponse 批量翻译响应
type TranslateResponse struct {
	TranslatedText   []string    `json:"translatedText"`
	DetectedLanguage []Detection `json:"detectedLanguage,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}
