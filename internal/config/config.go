package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ProviderConfig 保存翻译服务配置
type ProviderConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Endpoint    string        `mapstructure:"endpoint"`
	Region      string        `mapstructure:"region"`      // Azure 资源区域
	Model       string        `mapstructure:"model"`       // LLM 模型
	Temperature float64       `mapstructure:"temperature"` // LLM 温度
	UseFreeAPI  bool          `mapstructure:"use_free_api"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// ScrollConfig 滚动翻译配置
type ScrollConfig struct {
	Debounce       time.Duration `mapstructure:"debounce"`
	ThresholdRatio float64       `mapstructure:"threshold_ratio"`
	AutoStartDelay time.Duration `mapstructure:"auto_start_delay"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// BrowserConfig 浏览器配置
type BrowserConfig struct {
	ControlURL string `mapstructure:"control_url"` // 已运行浏览器的 DevTools 地址
	Bin        string `mapstructure:"bin"`
	Headless   bool   `mapstructure:"headless"`
	Width      int    `mapstructure:"width"`
	Height     int    `mapstructure:"height"`
}

// Config 保存页面翻译器的所有配置
type Config struct {
	Debug           bool                      `mapstructure:"debug"`
	LogFormat       string                    `mapstructure:"log_format"` // console 或 json
	Provider        string                    `mapstructure:"provider"`   // 当前使用的翻译服务
	Providers       map[string]ProviderConfig `mapstructure:"providers"`
	DefaultLanguage string                    `mapstructure:"default_language"` // 未保存设置时的目标语言
	UILanguage      string                    `mapstructure:"ui_language"`      // 提示框等界面语言
	Scope           string                    `mapstructure:"scope"`            // viewport 或 document
	ChunkSize       int                       `mapstructure:"chunk_size"`       // 每次请求的最大条目数
	RateLimit       float64                   `mapstructure:"rate_limit"`       // 每秒请求数，0 表示不限制
	RateBurst       int                       `mapstructure:"rate_burst"`
	SettingsDSN     string                    `mapstructure:"settings_dsn"` // memory://, file://, sqlite://, postgres://
	StatsPath       string                    `mapstructure:"stats_path"`
	Scroll          ScrollConfig              `mapstructure:"scroll"`
	Server          ServerConfig              `mapstructure:"server"`
	Browser         BrowserConfig             `mapstructure:"browser"`
}

// ProviderSettings 返回当前服务的配置
func (c *Config) ProviderSettings() ProviderConfig {
	return c.ProviderSettingsFor(c.Provider)
}

// ProviderSettingsFor 返回指定服务的配置，未配置时返回零值
func (c *Config) ProviderSettingsFor(name string) ProviderConfig {
	if c.Providers == nil {
		return ProviderConfig{}
	}
	return c.Providers[name]
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Provider == "" {
		return errors.New("provider is required")
	}
	switch c.Scope {
	case "", "viewport", "document":
	default:
		return fmt.Errorf("invalid scope %q: must be viewport or document", c.Scope)
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid log_format %q: must be console or json", c.LogFormat)
	}
	if c.Scroll.ThresholdRatio < 0 {
		return fmt.Errorf("scroll.threshold_ratio must not be negative")
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must not be negative")
	}
	return nil
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	// .env 中的密钥以环境变量形式参与覆盖
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 如果配置路径已指定，则直接使用
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 查找家目录中的配置文件
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		// 添加可能的配置文件路径
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.SetConfigName(".pagetrans")
		v.SetConfigType("yaml")
	}

	// 读取环境变量，如 PAGETRANS_PROVIDERS_AZURE_API_KEY
	v.SetEnvPrefix("PAGETRANS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindProviderEnv(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果找不到配置文件，则使用默认值
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.SettingsDSN == "" {
		config.SettingsDSN = "sqlite://" + filepath.Join(getDefaultCacheDir(), "settings.db")
	}

	return &config, nil
}

// SaveConfig 将配置保存到文件
func SaveConfig(config *Config, configPath string) error {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		configPath = filepath.Join(home, ".pagetrans.yaml")
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	// 添加所有配置项
	if err := v.MergeConfigMap(structToMap(config)); err != nil {
		return err
	}

	// 创建父目录（如果不存在）
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	return v.WriteConfig()
}

// NewDefaultConfig 创建一个新的默认配置
func NewDefaultConfig() *Config {
	return &Config{
		Provider:  "azure",
		LogFormat: "console",
		Providers: map[string]ProviderConfig{
			"azure": {
				Endpoint:   "https://api.cognitive.microsofttranslator.com",
				Timeout:    30 * time.Second,
				MaxRetries: 3,
			},
		},
		DefaultLanguage: "ja",
		UILanguage:      "en",
		Scope:           "viewport",
		ChunkSize:       100,
		SettingsDSN:     "sqlite://" + filepath.Join(getDefaultCacheDir(), "settings.db"),
		Scroll: ScrollConfig{
			Debounce:       500 * time.Millisecond,
			ThresholdRatio: 0.3,
			AutoStartDelay: time.Second,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8787",
			ShutdownTimeout: 10 * time.Second,
		},
		Browser: BrowserConfig{
			Headless: true,
			Width:    1280,
			Height:   800,
		},
	}
}

func getDefaultCacheDir() string {
	// 优先使用系统缓存目录
	cacheDir, err := os.UserCacheDir()
	if err == nil {
		return filepath.Join(cacheDir, "pagetrans")
	}

	// 如果无法获取系统缓存目录，使用用户主目录
	homeDir, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(homeDir, ".pagetrans", "cache")
	}

	// 最后的兜底方案
	return "./pagetrans-cache"
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("debug", false)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("provider", d.Provider)
	v.SetDefault("default_language", d.DefaultLanguage)
	v.SetDefault("ui_language", d.UILanguage)
	v.SetDefault("scope", d.Scope)
	v.SetDefault("chunk_size", d.ChunkSize)
	v.SetDefault("rate_limit", 0)
	v.SetDefault("rate_burst", 1)
	v.SetDefault("stats_path", "")

	v.SetDefault("providers.azure.endpoint", d.Providers["azure"].Endpoint)
	v.SetDefault("providers.azure.timeout", d.Providers["azure"].Timeout)
	v.SetDefault("providers.azure.max_retries", d.Providers["azure"].MaxRetries)

	v.SetDefault("scroll.debounce", d.Scroll.Debounce)
	v.SetDefault("scroll.threshold_ratio", d.Scroll.ThresholdRatio)
	v.SetDefault("scroll.auto_start_delay", d.Scroll.AutoStartDelay)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.width", d.Browser.Width)
	v.SetDefault("browser.height", d.Browser.Height)
}

// knownProviders 需要从环境变量读取密钥的服务
var knownProviders = []string{"azure", "google", "deepl", "libretranslate", "openai"}

// bindProviderEnv 让 AutomaticEnv 能覆盖未出现在配置文件中的嵌套键
func bindProviderEnv(v *viper.Viper) {
	for _, name := range knownProviders {
		for _, key := range []string{"api_key", "endpoint", "region", "model"} {
			_ = v.BindEnv("providers." + name + "." + key)
		}
	}
}

// structToMap 将结构体转换为map
func structToMap(config *Config) map[string]interface{} {
	providers := make(map[string]interface{}, len(config.Providers))
	for name, p := range config.Providers {
		providers[name] = map[string]interface{}{
			"api_key":      p.APIKey,
			"endpoint":     p.Endpoint,
			"region":       p.Region,
			"model":        p.Model,
			"temperature":  p.Temperature,
			"use_free_api": p.UseFreeAPI,
			"timeout":      p.Timeout.String(),
			"max_retries":  p.MaxRetries,
		}
	}

	return map[string]interface{}{
		"debug":            config.Debug,
		"log_format":       config.LogFormat,
		"provider":         config.Provider,
		"providers":        providers,
		"default_language": config.DefaultLanguage,
		"ui_language":      config.UILanguage,
		"scope":            config.Scope,
		"chunk_size":       config.ChunkSize,
		"rate_limit":       config.RateLimit,
		"rate_burst":       config.RateBurst,
		"settings_dsn":     config.SettingsDSN,
		"stats_path":       config.StatsPath,
		"scroll": map[string]interface{}{
			"debounce":         config.Scroll.Debounce.String(),
			"threshold_ratio":  config.Scroll.ThresholdRatio,
			"auto_start_delay": config.Scroll.AutoStartDelay.String(),
		},
		"server": map[string]interface{}{
			"addr":             config.Server.Addr,
			"shutdown_timeout": config.Server.ShutdownTimeout.String(),
		},
		"browser": map[string]interface{}{
			"control_url": config.Browser.ControlURL,
			"bin":         config.Browser.Bin,
			"headless":    config.Browser.Headless,
			"width":       config.Browser.Width,
			"height":      config.Browser.Height,
		},
	}
}
