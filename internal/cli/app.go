package cli

import (
	"context"
	"fmt"

	"github.com/nerdneilsfield/go-page-translator/internal/config"
	"github.com/nerdneilsfield/go-page-translator/internal/logger"
	"github.com/nerdneilsfield/go-page-translator/internal/settings"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers/factory"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers/stats"
	"github.com/nerdneilsfield/go-page-translator/pkg/translation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app 命令共享的依赖
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	stats   *stats.StatsManager
	service *translation.Service
	store   settings.Store
}

// loadConfig 加载配置并应用命令行覆盖
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = debugMode
	}
	if cmd.Flags().Changed("provider") {
		cfg.Provider = providerName
	}
	if cmd.Flags().Changed("settings") {
		cfg.SettingsDSN = settingsDSN
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp 按配置创建提供商、翻译服务与设置存储
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Options{Debug: cfg.Debug, Format: cfg.LogFormat})
	if err != nil {
		return nil, err
	}

	statsManager := stats.NewStatsManager(cfg.StatsPath, log.Named("stats"))
	if err := statsManager.LoadFromDB(); err != nil {
		log.Warn("failed to load stats", zap.Error(err))
	}

	provider, err := factory.New(log.Named("provider")).CreateProvider(cfg.Provider, cfg.ProviderSettings())
	if err != nil {
		return nil, err
	}

	opts := []translation.Option{
		translation.WithChunkSize(cfg.ChunkSize),
		translation.WithLogger(log.Named("translation")),
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, translation.WithRateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	service := translation.New(stats.NewStatisticsMiddleware(provider, statsManager), opts...)

	store, err := settings.Open(cmd.Context(), cfg.SettingsDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}

	log.Debug("application ready",
		zap.String("provider", cfg.Provider),
		zap.Int("chunk_size", service.ChunkSize()),
		zap.String("settings", cfg.SettingsDSN))

	return &app{
		cfg:     cfg,
		log:     log,
		stats:   statsManager,
		service: service,
		store:   store,
	}, nil
}

// targetLanguage 命令行、保存的默认值、配置依次取第一个非空值
func (a *app) targetLanguage(ctx context.Context, flag string) (string, error) {
	langs := translation.DefaultLanguages(a.cfg.UILanguage)
	if flag != "" {
		return translation.ResolveLanguage(flag, langs)
	}
	if saved, err := settings.DefaultLanguage(ctx, a.store); err != nil {
		a.log.Warn("failed to read saved default language", zap.Error(err))
	} else if saved != "" {
		return saved, nil
	}
	return translation.ResolveLanguage(a.cfg.DefaultLanguage, langs)
}

func (a *app) close() {
	if err := a.stats.SaveToDB(); err != nil {
		a.log.Warn("failed to save stats", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close settings store", zap.Error(err))
	}
	_ = a.log.Sync()
}
