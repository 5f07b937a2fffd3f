// Package browser 通过 DevTools 协议驱动真实浏览器：
// 打开页面、抓取带布局标记的快照、把会话的写入同步回页面。
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// Config 浏览器配置
type Config struct {
	// ControlURL 已运行浏览器的 DevTools WebSocket 地址，为空时本地启动
	ControlURL string
	// Bin 浏览器可执行文件，为空时由 launcher 查找或下载
	Bin             string
	Headless        bool
	Width           int
	Height          int
	NavigateTimeout time.Duration
	Logger          *zap.Logger
}

func (c *Config) defaults() {
	if c.Width <= 0 {
		c.Width = 1280
	}
	if c.Height <= 0 {
		c.Height = 800
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Browser 一个已连接的浏览器
type Browser struct {
	cfg  Config
	rod  *rod.Browser
	lnch *launcher.Launcher

	mu     sync.Mutex
	closed bool
}

// Launch 启动本地浏览器或连接到 ControlURL
func Launch(cfg Config) (*Browser, error) {
	cfg.defaults()
	log := cfg.Logger

	b := &Browser{cfg: cfg}
	wsURL := cfg.ControlURL
	if wsURL == "" {
		l := launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		b.lnch = l
		log.Info("launched local browser", zap.String("url", wsURL), zap.Bool("headless", cfg.Headless))
	} else {
		log.Info("connecting to remote browser", zap.String("url", wsURL))
	}

	rb := rod.New().ControlURL(wsURL)
	if err := rb.Connect(); err != nil {
		if b.lnch != nil {
			b.lnch.Kill()
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	b.rod = rb
	return b, nil
}

// Open 新建标签页，设置视口并加载地址
func (b *Browser) Open(ctx context.Context, pageURL string) (*Page, error) {
	p, err := b.rod.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	err = p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.cfg.Width,
		Height:            b.cfg.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("browser: set viewport: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavigateTimeout)
	defer cancel()

	if err := p.Context(navCtx).Navigate(pageURL); err != nil {
		p.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := p.Context(navCtx).WaitLoad(); err != nil {
		b.cfg.Logger.Warn("wait load timeout", zap.String("url", pageURL), zap.Error(err))
	}

	return &Page{
		rod:    p,
		url:    pageURL,
		logger: b.cfg.Logger.With(zap.String("url", pageURL)),
	}, nil
}

// Close 断开连接，本地启动的浏览器同时退出
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	err := b.rod.Close()
	if b.lnch != nil {
		b.lnch.Kill()
		b.lnch.Cleanup()
	}
	return err
}
