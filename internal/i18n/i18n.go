// Package i18n 提供界面文字的多语言版本
package i18n

import (
	"embed"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed active.*.toml
var localeFS embed.FS

// Translator 封装 go-i18n 的 Bundle
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
	logger          *zap.Logger
}

// NewTranslator 创建界面翻译器，defaultLocale 无法解析时使用英文
func NewTranslator(defaultLocale string, logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		tag = language.English
	}

	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	for _, file := range []string{"active.en.toml", "active.ja.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			logger.Warn("failed to load locale file", zap.String("file", file), zap.Error(err))
		}
	}

	return &Translator{bundle: bundle, defaultLanguage: tag, logger: logger}
}

// DefaultLanguage 默认界面语言
func (t *Translator) DefaultLanguage() string {
	return t.defaultLanguage.String()
}

// T 按语言渲染消息，找不到时依次回退到默认语言、英文、消息 ID
func (t *Translator) T(locale, id string, data map[string]any) string {
	if id == "" {
		return ""
	}

	var languages []string
	if locale != "" {
		languages = append(languages, locale)
	}
	languages = append(languages, t.defaultLanguage.String())

	localizer := i18n.NewLocalizer(t.bundle, languages...)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		t.logger.Debug("localize failed", zap.String("id", id), zap.Strings("locales", languages), zap.Error(err))
		return id
	}
	return msg
}
