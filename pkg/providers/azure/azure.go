package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers/retry"
	"go.uber.org/zap"
)

const (
	apiVersion = "3.0"
	// MaxBatchSize 单次请求最多 100 个条目
	MaxBatchSize = 100
)

// Config Azure Translator配置
type Config struct {
	providers.BaseConfig
	Region      string            `json:"region,omitempty"`
	RetryConfig retry.RetryConfig `json:"retry_config"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig:  providers.DefaultConfig(),
		RetryConfig: retry.DefaultRetryConfig(),
	}
	config.APIEndpoint = "https://api.cognitive.microsofttranslator.com"
	return config
}

// Provider Azure Translator提供商
type Provider struct {
	config     Config
	httpClient *http.Client
}

// 确保 Provider 实现接口
var (
	_ providers.Provider = (*Provider)(nil)
	_ providers.Detector = (*Provider)(nil)
)

// New 创建新的Azure Translator提供商
func New(config Config, logger *zap.Logger) *Provider {
	if config.APIEndpoint == "" {
		config.APIEndpoint = "https://api.cognitive.microsofttranslator.com"
	}
	config.RetryConfig.MaxRetries = config.MaxRetries

	return &Provider{
		config:     config,
		httpClient: retry.NewHTTPClient(config.RetryConfig, config.Timeout, logger),
	}
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "azure"
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		SupportedLanguages: []providers.Language{
			{Code: "en", Name: "English"},
			{Code: "ja", Name: "Japanese"},
			{Code: "ko", Name: "Korean"},
			{Code: "zh-Hans", Name: "Chinese (Simplified)"},
			{Code: "zh-Hant", Name: "Chinese (Traditional)"},
			{Code: "bn", Name: "Bangla"},
			{Code: "hi", Name: "Hindi"},
			{Code: "ar", Name: "Arabic"},
			{Code: "es", Name: "Spanish"},
			{Code: "fr", Name: "French"},
			{Code: "de", Name: "German"},
		},
		MaxBatchSize:      MaxBatchSize,
		SupportsDetection: true,
		RequiresAPIKey:    true,
	}
}

// TranslateTexts 执行批量翻译
func (p *Provider) TranslateTexts(ctx context.Context, req *providers.BatchRequest) (*providers.BatchResponse, error) {
	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("azure: batch of %d exceeds limit %d", len(req.Texts), MaxBatchSize)
	}

	params := url.Values{}
	params.Set("api-version", apiVersion)
	params.Set("to", req.TargetLanguage)
	if req.SourceLanguage != "" {
		params.Set("from", req.SourceLanguage)
	}

	body := make([]textItem, len(req.Texts))
	for i, t := range req.Texts {
		body[i] = textItem{Text: t}
	}

	var result []translateResult
	if err := p.post(ctx, "/translate", params, body, &result); err != nil {
		return nil, err
	}

	if len(result) != len(req.Texts) {
		return nil, providers.NewServiceError(p.GetName(), 0,
			fmt.Sprintf("expected %d results, got %d", len(req.Texts), len(result)))
	}

	resp := &providers.BatchResponse{Texts: make([]string, len(result))}
	for i, item := range result {
		if len(item.Translations) == 0 {
			return nil, providers.NewServiceError(p.GetName(), 0, "unexpected response format")
		}
		resp.Texts[i] = item.Translations[0].Text
		if i == 0 && item.DetectedLanguage != nil {
			resp.DetectedSource = item.DetectedLanguage.Language
		}
	}
	return resp, nil
}

// DetectLanguage 检测文本语言
func (p *Provider) DetectLanguage(ctx context.Context, text string) (string, error) {
	params := url.Values{}
	params.Set("api-version", apiVersion)

	var result []detectResult
	if err := p.post(ctx, "/detect", params, []textItem{{Text: text}}, &result); err != nil {
		return "", err
	}

	if len(result) == 0 || result[0].Language == "" {
		return "", providers.NewDetectionError(p.GetName(), "unable to detect language")
	}
	return result[0].Language, nil
}

// post 发送请求并解析响应
func (p *Provider) post(ctx context.Context, path string, params url.Values, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.APIEndpoint+path+"?"+params.Encode(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// 设置头部
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", p.config.APIKey)
	if p.config.Region != "" {
		httpReq.Header.Set("Ocp-Apim-Subscription-Region", p.config.Region)
	}
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
		var apiErr APIError
		if err := json.Unmarshal(errBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return providers.NewServiceError(p.GetName(), resp.StatusCode, apiErr.Error.Message)
		}
		return providers.NewServiceError(p.GetName(), resp.StatusCode,
			fmt.Sprintf("request failed: %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return providers.WrapServiceError(p.GetName(), fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

type textItem struct {
	Text string `json:"text"`
}

type translateResult struct {
	DetectedLanguage *struct {
		Language string  `json:"language"`
		Score    float64 `json:"score"`
	} `json:"detectedLanguage,omitempty"`
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

type detectResult struct {
	Language string  `json:"language"`
	Score    float64 `json:"score"`
}

// APIError API错误
type APIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
