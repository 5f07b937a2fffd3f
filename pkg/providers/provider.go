package providers

import (
	"context"
	"fmt"
	"time"
)

// BaseConfig 基础配置
type BaseConfig struct {
	// API配置
	APIKey      string `json:"api_key,omitempty"`
	APIEndpoint string `json:"api_endpoint,omitempty"`

	// 超时和重试
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`

	// 自定义头部
	Headers map[string]string `json:"headers,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() BaseConfig {
	return BaseConfig{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second,
		Headers:    make(map[string]string),
	}
}

// BatchRequest 批量翻译请求
type BatchRequest struct {
	Texts          []string `json:"texts"`
	SourceLanguage string   `json:"source_language,omitempty"`
	TargetLanguage string   `json:"target_language"`
}

// BatchResponse 批量翻译响应，Texts 与请求等长且顺序一致
type BatchResponse struct {
	Texts          []string `json:"texts"`
	DetectedSource string   `json:"detected_source,omitempty"`
}

// Provider 翻译提供商接口
type Provider interface {
	// TranslateTexts 批量翻译
	TranslateTexts(ctx context.Context, req *BatchRequest) (*BatchResponse, error)

	// GetName 获取提供商名称
	GetName() string

	// GetCapabilities 获取提供商能力
	GetCapabilities() Capabilities
}

// Detector 支持语言检测的提供商
type Detector interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
}

// Capabilities 提供商能力
type Capabilities struct {
	// 支持的语言
	SupportedLanguages []Language `json:"supported_languages"`

	// 单次请求最多的条目数
	MaxBatchSize int `json:"max_batch_size"`

	// 是否支持语言检测
	SupportsDetection bool `json:"supports_detection"`

	// 是否需要API密钥
	RequiresAPIKey bool `json:"requires_api_key"`
}

// Language 语言信息
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ServiceError 远程翻译服务调用失败或返回非成功状态
type ServiceError struct {
	Provider string
	Status   int
	Message  string
	Cause    error
}

func (e *ServiceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Unwrap 返回原因错误
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// IsRetryable 判断错误是否可重试
func (e *ServiceError) IsRetryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// NewServiceError 创建服务错误
func NewServiceError(provider string, status int, message string) *ServiceError {
	return &ServiceError{Provider: provider, Status: status, Message: message}
}

// WrapServiceError 包装传输层错误
func WrapServiceError(provider string, cause error) *ServiceError {
	return &ServiceError{Provider: provider, Message: cause.Error(), Cause: cause}
}

// DetectionError 无法得到可用的语言代码
type DetectionError struct {
	Provider string
	Message  string
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// NewDetectionError 创建检测错误
func NewDetectionError(provider, message string) *DetectionError {
	return &DetectionError{Provider: provider, Message: message}
}
