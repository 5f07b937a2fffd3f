package pagetrans

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerdneilsfield/go-page-translator/pkg/translation"
	"go.uber.org/zap"
)

// 滚动翻译默认参数
const (
	DefaultDebounce       = 500 * time.Millisecond
	DefaultThresholdRatio = 0.3
)

// Timer 可停止的定时器
type Timer interface {
	Stop() bool
}

// Scheduler 定时器来源
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler 基于 time.AfterFunc 的定时器来源
func RealScheduler() Scheduler {
	return realScheduler{}
}

// ScrollConfig 滚动控制器配置
type ScrollConfig struct {
	Debounce       time.Duration
	ThresholdRatio float64
	Scheduler      Scheduler
	Logger         *zap.Logger
}

// DefaultScrollConfig 默认配置
func DefaultScrollConfig() ScrollConfig {
	return ScrollConfig{
		Debounce:       DefaultDebounce,
		ThresholdRatio: DefaultThresholdRatio,
		Scheduler:      RealScheduler(),
		Logger:         zap.NewNop(),
	}
}

// ScrollController 滚动揭示新内容时触发增量翻译
type ScrollController struct {
	session    *Session
	translator translation.BatchTranslator
	cfg        ScrollConfig
	logger     *zap.Logger

	mu         sync.Mutex
	target     string
	lastScroll float64
	threshold  float64
	timer      Timer
	seq        uint64

	busy   atomic.Bool
	cycles atomic.Int64
}

// NewScrollController 创建滚动控制器
func NewScrollController(session *Session, translator translation.BatchTranslator, cfg ScrollConfig) *ScrollController {
	def := DefaultScrollConfig()
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.ThresholdRatio <= 0 {
		cfg.ThresholdRatio = def.ThresholdRatio
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = def.Scheduler
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return &ScrollController{
		session:    session,
		translator: translator,
		cfg:        cfg,
		logger:     cfg.Logger.With(zap.String("session", session.ID())),
	}
}

// Enable 开启滚动翻译，记录当前位置与阈值（视口高度的 30%）
func (c *ScrollController) Enable(targetLang string) {
	vp := c.session.Viewport()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = targetLang
	c.lastScroll = vp.ScrollY
	c.threshold = vp.Height * c.cfg.ThresholdRatio
}

// Disable 关闭滚动翻译并取消等待中的防抖定时器
func (c *ScrollController) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = ""
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// TargetLanguage 当前自动翻译目标语言，空字符串表示未开启
func (c *ScrollController) TargetLanguage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Busy 是否有翻译周期在进行
func (c *ScrollController) Busy() bool {
	return c.busy.Load()
}

// Cycles 已启动的翻译周期数
func (c *ScrollController) Cycles() int64 {
	return c.cycles.Load()
}

// OnScroll 处理一次滚动信号：重新开始防抖计时
func (c *ScrollController) OnScroll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.target == "" || c.busy.Load() {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.seq++
	seq := c.seq
	c.timer = c.cfg.Scheduler.AfterFunc(c.cfg.Debounce, func() {
		c.evaluate(seq)
	})
}

// evaluate 防抖结束后比较滚动距离
func (c *ScrollController) evaluate(seq uint64) {
	pos := c.session.Viewport().ScrollY

	c.mu.Lock()
	if seq != c.seq || c.target == "" {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	delta := math.Abs(pos - c.lastScroll)
	if delta < c.threshold {
		c.mu.Unlock()
		return
	}
	c.lastScroll = pos
	c.mu.Unlock()

	c.logger.Debug("scroll threshold reached",
		zap.Float64("delta", delta),
		zap.Float64("position", pos))
	c.TranslateVisible(context.Background())
}

// TranslateVisible 后台翻译周期：错误只记录，不向上抛出
func (c *ScrollController) TranslateVisible(ctx context.Context) {
	if err := c.RunCycle(ctx); err != nil {
		if errors.Is(err, ErrCycleInFlight) {
			c.logger.Debug("translation cycle skipped", zap.Error(err))
			return
		}
		c.logger.Error("auto translation failed", zap.Error(err))
	}
}

// RunCycle 执行一次 提取 → 翻译 → 应用。
// 周期进行中再次调用直接返回 ErrCycleInFlight，不排队。
func (c *ScrollController) RunCycle(ctx context.Context) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrCycleInFlight
	}
	defer c.busy.Store(false)
	c.cycles.Add(1)

	target := c.TargetLanguage()
	if target == "" {
		return ErrNoTargetLanguage
	}

	batch := c.session.Extract()
	if batch.Len() == 0 {
		c.logger.Debug("no texts found, skipping translation")
		return nil
	}

	translations, err := c.session.Translate(ctx, c.translator, batch.Texts(), target)
	if err != nil {
		return fmt.Errorf("translate %d texts: %w", batch.Len(), err)
	}
	return c.session.Apply(batch, translations)
}
