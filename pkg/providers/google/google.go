package google

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

// MaxBatchSize Google Translate v2 单次请求最多 128 段
const MaxBatchSize = 128

// Config Google Translate配置
type Config struct {
	providers.BaseConfig
	RetryConfig retry.RetryConfig `json:"retry_config"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig:  providers.DefaultConfig(),
		RetryConfig: retry.DefaultRetryConfig(),
	}
	// Google Translation API endpoint
	config.APIEndpoint = "https://translation.googleapis.com/language/translate/v2"
	return config
}

// Provider Google Translate提供商
type Provider struct {
	config     Config
	httpClient *http.Client
}

// 确保 Provider 实现接口
var (
	_ providers.Provider = (*Provider)(nil)
	_ providers.Detector = (*Provider)(nil)
)

// New 创建新的Google Translate提供商
func New(config Config, logger *zap.Logger) *Provider {
	if config.APIEndpoint == "" {
		config.APIEndpoint = "https://translation.googleapis.com/language/translate/v2"
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
		return nil, fmt.Errorf("google: batch of %d exceeds limit %d", len(req.Texts), MaxBatchSize)
	}

	params := url.Values{}
	for _, t := range req.Texts {
		params.Add("q", t)
	}
	params.Set("target", normalizeLanguageCode(req.TargetLanguage))
	if req.SourceLanguage != "" {
		params.Set("source", normalizeLanguageCode(req.SourceLanguage))
	}
	params.Set("format", "text")

	var resp TranslateResponse
	if err := p.post(ctx, "", params, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data.Translations) != len(req.Texts) {
		return nil, providers.NewServiceError(p.GetName(), 0,
			fmt.Sprintf("expected %d translations, got %d", len(req.Texts), len(resp.Data.Translations)))
	}

	out := &providers.BatchResponse{Texts: make([]string, len(req.Texts))}
	for i, t := range resp.Data.Translations {
		out.Texts[i] = t.TranslatedText
	}
	if len(resp.Data.Translations) > 0 {
		out.DetectedSource = resp.Data.Translations[0].DetectedSourceLanguage
	}
	return out, nil
}

// DetectLanguage 检测文本语言
func (p *Provider) DetectLanguage(ctx context.Context, text string) (string, error) {
	params := url.Values{}
	params.Set("q", text)

	var resp DetectResponse
	if err := p.post(ctx, "/detect", params, &resp); err != nil {
		return "", err
	}

	if len(resp.Data.Detections) == 0 || len(resp.Data.Detections[0]) == 0 ||
		resp.Data.Detections[0][0].Language == "" || resp.Data.Detections[0][0].Language == "und" {
		return "", providers.NewDetectionError(p.GetName(), "unable to detect language")
	}
	return resp.Data.Detections[0][0].Language, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "google"
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
			{Code: "it", Name: "Italian"},
			{Code: "ja", Name: "Japanese"},
			{Code: "ko", Name: "Korean"},
			{Code: "pt", Name: "Portuguese"},
			{Code: "ru", Name: "Russian"},
			{Code: "zh-CN", Name: "Chinese (Simplified)"},
			{Code: "zh-TW", Name: "Chinese (Traditional)"},
		},
		MaxBatchSize:      MaxBatchSize,
		SupportsDetection: true,
		RequiresAPIKey:    true,
	}
}

// post 发送表单请求并解析响应
func (p *Provider) post(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("key", p.config.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.APIEndpoint+path, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// 设置头部
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
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
		return providers.NewServiceError(p.GetName(), resp.StatusCode, fmt.Sprintf("API error: %s", resp.Status))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return providers.WrapServiceError(p.GetName(), fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// normalizeLanguageCode 标准化语言代码
func normalizeLanguageCode(lang string) string {
	switch strings.ToLower(lang) {
	case "zh-hans", "zh":
		return "zh-CN"
	case "zh-hant":
		return "zh-TW"
	}
	return lang
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage,omitempty"`
		} `json:"translations"`
	} `json:"data"`
}

// DetectResponse 检测响应
type DetectResponse struct {
	Data struct {
		Detections [][]struct {
			Language   string  `json:"language"`
			Confidence float64 `json:"confidence"`
		} `json:"detections"`
	} `json:"data"`
}

// APIError API错误
type APIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
