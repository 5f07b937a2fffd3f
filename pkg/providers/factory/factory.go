package factory

import (
	"fmt"

	"github.com/nerdneilsfield/go-page-translator/internal/config"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers/azure"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers/deepl"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers/google"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers/libretranslate"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers/openai"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers/raw"
	"go.uber.org/zap"
)

// ProviderFactory 提供商工厂
type ProviderFactory struct {
	registry *providers.Registry
	logger   *zap.Logger
}

// New 创建新的提供商工厂
func New(logger *zap.Logger) *ProviderFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderFactory{
		registry: providers.NewRegistry(),
		logger:   logger,
	}
}

// Registry 返回已创建提供商的注册表
func (f *ProviderFactory) Registry() *providers.Registry {
	return f.registry
}

// Get 返回已创建的提供商，不存在时按配置创建并注册
func (f *ProviderFactory) Get(providerType string, pc config.ProviderConfig) (providers.Provider, error) {
	if p, err := f.registry.Get(providerType); err == nil {
		return p, nil
	}

	p, err := f.CreateProvider(providerType, pc)
	if err != nil {
		return nil, err
	}
	if err := f.registry.Register(providerType, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateProvider 根据配置创建提供商
func (f *ProviderFactory) CreateProvider(providerType string, pc config.ProviderConfig) (providers.Provider, error) {
	switch providerType {
	case "azure":
		return f.createAzureProvider(pc), nil
	case "google":
		return f.createGoogleProvider(pc), nil
	case "deepl":
		return f.createDeepLProvider(pc), nil
	case "libretranslate":
		return f.createLibreTranslateProvider(pc), nil
	case "openai":
		return f.createOpenAIProvider(pc, ""), nil
	case "ollama":
		// Ollama 提供 OpenAI 兼容接口
		return f.createOpenAIProvider(pc, "http://localhost:11434/v1"), nil
	case "raw", "none":
		return f.createRawProvider(pc), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

// baseConfig 把通用配置合并到默认值上
func baseConfig(pc config.ProviderConfig) providers.BaseConfig {
	base := providers.DefaultConfig()
	base.APIKey = pc.APIKey
	base.APIEndpoint = pc.Endpoint
	if pc.Timeout > 0 {
		base.Timeout = pc.Timeout
	}
	if pc.MaxRetries > 0 {
		base.MaxRetries = pc.MaxRetries
	}
	return base
}

// createAzureProvider 创建 Azure Translator 提供商
func (f *ProviderFactory) createAzureProvider(pc config.ProviderConfig) providers.Provider {
	cfg := azure.DefaultConfig()
	endpoint := cfg.APIEndpoint
	cfg.BaseConfig = baseConfig(pc)
	// 如果没有设置 Endpoint，使用默认值
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = endpoint
	}
	cfg.Region = pc.Region
	return azure.New(cfg, f.logger.Named("azure"))
}

// createGoogleProvider 创建 Google Translate 提供商
func (f *ProviderFactory) createGoogleProvider(pc config.ProviderConfig) providers.Provider {
	cfg := google.DefaultConfig()
	endpoint := cfg.APIEndpoint
	cfg.BaseConfig = baseConfig(pc)
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = endpoint
	}
	return google.New(cfg, f.logger.Named("google"))
}

// createDeepLProvider 创建 DeepL 提供商
func (f *ProviderFactory) createDeepLProvider(pc config.ProviderConfig) providers.Provider {
	cfg := deepl.DefaultConfig()
	cfg.BaseConfig = baseConfig(pc)
	cfg.UseFreeAPI = pc.UseFreeAPI
	return deepl.New(cfg, f.logger.Named("deepl"))
}

// createLibreTranslateProvider 创建 LibreTranslate 提供商
func (f *ProviderFactory) createLibreTranslateProvider(pc config.ProviderConfig) providers.Provider {
	cfg := libretranslate.DefaultConfig()
	endpoint := cfg.APIEndpoint
	cfg.BaseConfig = baseConfig(pc)
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = endpoint
	}
	cfg.RequiresAPIKey = pc.APIKey != ""
	return libretranslate.New(cfg, f.logger.Named("libretranslate"))
}

// createOpenAIProvider 创建 OpenAI 提供商
func (f *ProviderFactory) createOpenAIProvider(pc config.ProviderConfig, defaultEndpoint string) providers.Provider {
	cfg := openai.DefaultConfig()
	cfg.BaseConfig = baseConfig(pc)
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = defaultEndpoint
	}
	if pc.Model != "" {
		cfg.Model = pc.Model
	}
	if pc.Temperature > 0 {
		cfg.Temperature = float32(pc.Temperature)
	}
	return openai.New(cfg, f.logger.Named("openai"))
}

// createRawProvider 创建 Raw 提供商
func (f *ProviderFactory) createRawProvider(pc config.ProviderConfig) providers.Provider {
	cfg := raw.DefaultConfig()
	cfg.BaseConfig = baseConfig(pc)
	// Model 字段复用为是否加标记
	cfg.Marker = pc.Model == "marker"
	return raw.New(cfg)
}
