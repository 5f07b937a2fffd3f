package tabs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerdneilsfield/go-page-translator/internal/settings"
	"github.com/nerdneilsfield/go-page-translator/pkg/pagetrans"
	"go.uber.org/zap"
)

// Tab 一个打开的页面
type Tab struct {
	id      string
	url     string
	opened  time.Time
	session *pagetrans.Session
	scroll  *pagetrans.ScrollController
	manager *Manager
	logger  *zap.Logger

	mu        sync.Mutex
	autoStart pagetrans.Timer
}

// State 标签页状态
type State struct {
	ID             string `json:"id"`
	URL            string `json:"url,omitempty"`
	IsTranslated   bool   `json:"is_translated"`
	AutoTranslate  bool   `json:"auto_translate"`
	TargetLanguage string `json:"target_language,omitempty"`
	Scope          string `json:"scope"`
	Busy           bool   `json:"busy"`
	Cycles         int64  `json:"cycles"`
}

// ID 标签页标识
func (t *Tab) ID() string { return t.id }

// URL 页面地址
func (t *Tab) URL() string { return t.url }

// Session 翻译会话
func (t *Tab) Session() *pagetrans.Session { return t.session }

// Scroll 滚动控制器
func (t *Tab) Scroll() *pagetrans.ScrollController { return t.scroll }

// State 返回当前状态
func (t *Tab) State() State {
	target := t.scroll.TargetLanguage()
	return State{
		ID:             t.id,
		URL:            t.url,
		IsTranslated:   t.session.IsTranslated(),
		AutoTranslate:  target != "",
		TargetLanguage: target,
		Scope:          t.session.Scope().String(),
		Busy:           t.scroll.Busy(),
		Cycles:         t.scroll.Cycles(),
	}
}

// SampleText 语言检测用的样本文本
func (t *Tab) SampleText() string {
	return t.session.SampleText(SampleLimit)
}

// Extract 提取待翻译文本
func (t *Tab) Extract() *pagetrans.Batch {
	return t.session.Extract()
}

// ApplyTranslations 把译文应用到最近一次提取的批次。
// 给出目标语言时保存启用设置并开启滚动翻译。
func (t *Tab) ApplyTranslations(ctx context.Context, translations []string, targetLang string) error {
	if err := t.session.ApplyPending(translations); err != nil {
		return err
	}
	if targetLang == "" {
		return nil
	}
	return t.enable(ctx, targetLang)
}

// Restore 还原原文，关闭滚动翻译并删除保存的设置
func (t *Tab) Restore(ctx context.Context) (int, error) {
	t.cancelAutoStart()
	// 先关闭滚动翻译，防止还原后定时器又触发一次翻译
	t.scroll.Disable()
	n := t.session.Restore()

	if err := t.manager.store.Delete(ctx, t.id); err != nil {
		return n, fmt.Errorf("failed to delete tab settings: %w", err)
	}
	return n, nil
}

// DetectLanguage 检测页面语言
func (t *Tab) DetectLanguage(ctx context.Context) (string, error) {
	return t.manager.translator.DetectPageLanguage(ctx, t.SampleText())
}

// TranslatePage 提取、翻译、应用可见文本，并开启滚动翻译
func (t *Tab) TranslatePage(ctx context.Context, targetLang string) (int, error) {
	if targetLang == "" {
		return 0, pagetrans.ErrNoTargetLanguage
	}

	batch := t.session.Extract()
	if batch.Len() > 0 {
		translations, err := t.session.Translate(ctx, t.manager.translator, batch.Texts(), targetLang)
		if err != nil {
			return 0, err
		}
		if err := t.session.Apply(batch, translations); err != nil {
			return 0, err
		}
	}

	if err := t.enable(ctx, targetLang); err != nil {
		return batch.Len(), err
	}
	t.logger.Info("page translated",
		zap.String("target", targetLang),
		zap.Int("texts", batch.Len()))
	return batch.Len(), nil
}

// ScrollTo 更新滚动位置并通知滚动控制器
func (t *Tab) ScrollTo(y float64) {
	t.session.ScrollTo(y)
	t.scroll.OnScroll()
}

// enable 保存设置并开启滚动翻译
func (t *Tab) enable(ctx context.Context, targetLang string) error {
	t.scroll.Enable(targetLang)
	err := t.manager.store.Put(ctx, t.id, settings.TabSettings{
		Enabled:        true,
		TargetLanguage: targetLang,
	})
	if err != nil {
		return fmt.Errorf("failed to save tab settings: %w", err)
	}
	return nil
}

// scheduleAutoStart 延迟后翻译可见内容并开启滚动翻译
func (t *Tab) scheduleAutoStart(targetLang string, delay time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.autoStart = t.manager.cfg.Scroll.Scheduler.AfterFunc(delay, func() {
		t.mu.Lock()
		t.autoStart = nil
		t.mu.Unlock()

		t.logger.Debug("starting initial translation and scroll monitoring")
		t.scroll.Enable(targetLang)
		t.scroll.TranslateVisible(context.Background())
	})
}

func (t *Tab) cancelAutoStart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.autoStart != nil {
		t.autoStart.Stop()
		t.autoStart = nil
	}
}

func (t *Tab) stop() {
	t.cancelAutoStart()
	t.scroll.Disable()
}
