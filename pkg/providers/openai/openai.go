package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers/retry"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// MaxBatchSize 单次请求最多的条目数
const MaxBatchSize = 40

const translateSystemPrompt = `You are a translation engine for web page text.
Translate every string of the JSON array given by the user into the language with BCP 47 code %q.
Reply with a JSON array of strings only: same length, same order, no commentary.
Keep numbers, URLs and product names unchanged.`

const detectSystemPrompt = `Identify the language of the user's text.
Reply with its BCP 47 language code only, for example "en" or "zh-Hans".
Reply "und" if the language cannot be identified.`

// Config OpenAI配置
type Config struct {
	providers.BaseConfig
	Model       string            `json:"model"`
	Temperature float32           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
	RetryConfig retry.RetryConfig `json:"retry_config"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  providers.DefaultConfig(),
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
		MaxTokens:   4096,
		RetryConfig: retry.DefaultRetryConfig(),
	}
}

// Provider OpenAI提供商
type Provider struct {
	config Config
	client *goopenai.Client
	logger *zap.Logger
}

// 确保 Provider 实现接口
var (
	_ providers.Provider = (*Provider)(nil)
	_ providers.Detector = (*Provider)(nil)
)

// New 创建新的OpenAI提供商
func New(config Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.RetryConfig.MaxRetries = config.MaxRetries

	clientConfig := goopenai.DefaultConfig(config.APIKey)
	clientConfig.HTTPClient = retry.NewHTTPClient(config.RetryConfig, config.Timeout, logger)
	if config.APIEndpoint != "" {
		// 避免与 go-openai 的路径后缀拼出双斜杠
		clientConfig.BaseURL = strings.TrimSuffix(config.APIEndpoint, "/")
	}

	return &Provider{
		config: config,
		client: goopenai.NewClientWithConfig(clientConfig),
		logger: logger,
	}
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "openai"
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		MaxBatchSize:      MaxBatchSize,
		SupportsDetection: true,
		RequiresAPIKey:    true,
	}
}

// TranslateTexts 把文本作为 JSON 数组发送，要求模型返回等长数组
func (p *Provider) TranslateTexts(ctx context.Context, req *providers.BatchRequest) (*providers.BatchResponse, error) {
	if len(req.Texts) == 0 {
		return &providers.BatchResponse{Texts: []string{}}, nil
	}
	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("openai: batch of %d exceeds limit %d", len(req.Texts), MaxBatchSize)
	}

	payload, err := json.Marshal(req.Texts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode texts: %w", err)
	}

	content, err := p.complete(ctx, fmt.Sprintf(translateSystemPrompt, req.TargetLanguage), string(payload))
	if err != nil {
		return nil, err
	}

	texts, err := parseArray(content)
	if err != nil {
		p.logger.Debug("unparseable completion", zap.String("content", content))
		return nil, providers.WrapServiceError(p.GetName(), err)
	}
	if len(texts) != len(req.Texts) {
		return nil, providers.NewServiceError(p.GetName(), 0,
			fmt.Sprintf("expected %d translations, got %d", len(req.Texts), len(texts)))
	}

	return &providers.BatchResponse{Texts: texts}, nil
}

// DetectLanguage 检测文本语言
func (p *Provider) DetectLanguage(ctx context.Context, text string) (string, error) {
	content, err := p.complete(ctx, detectSystemPrompt, text)
	if err != nil {
		return "", err
	}

	code := strings.Trim(strings.TrimSpace(content), "\"'`.")
	tag, err := language.Parse(code)
	if err != nil || tag == language.Und {
		return "", providers.NewDetectionError(p.GetName(), fmt.Sprintf("unusable language code %q", code))
	}
	return tag.String(), nil
}

// complete 发送一次对话补全请求
func (p *Provider) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		Temperature: p.config.Temperature,
		MaxTokens:   p.config.MaxTokens,
	})
	if err != nil {
		return "", p.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", providers.NewServiceError(p.GetName(), 0, "empty completion")
	}

	p.logger.Debug("completion received",
		zap.String("model", p.config.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	return resp.Choices[0].Message.Content, nil
}

// wrapError 把 go-openai 的错误转换为 ServiceError
func (p *Provider) wrapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		svcErr := providers.NewServiceError(p.GetName(), apiErr.HTTPStatusCode, apiErr.Message)
		svcErr.Cause = err
		return svcErr
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		svcErr := providers.NewServiceError(p.GetName(), reqErr.HTTPStatusCode, reqErr.Error())
		svcErr.Cause = err
		return svcErr
	}

	return providers.WrapServiceError(p.GetName(), err)
}

// parseArray 从回复中提取 JSON 字符串数组，容忍代码块包裹
func parseArray(content string) ([]string, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in completion")
	}

	var texts []string
	if err := json.Unmarshal([]byte(content[start:end+1]), &texts); err != nil {
		return nil, fmt.Errorf("failed to decode completion: %w", err)
	}
	return texts, nil
}
