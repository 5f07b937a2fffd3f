package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerdneilsfield/go-page-translator/internal/browser"
	"github.com/nerdneilsfield/go-page-translator/internal/i18n"
	"github.com/nerdneilsfield/go-page-translator/internal/server"
	"github.com/nerdneilsfield/go-page-translator/internal/tabs"
	"github.com/nerdneilsfield/go-page-translator/internal/tooltip"
	"github.com/nerdneilsfield/go-page-translator/pkg/dom"
	"github.com/nerdneilsfield/go-page-translator/pkg/pagetrans"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveAddr    string
	serveBrowser bool
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		Long: `启动 HTTP 服务，按标签页管理翻译状态。

标签页可以提交 HTML 打开，也可以在 --browser 模式下按 URL 用无头浏览器加载，
此时译文与还原会同步写回浏览器中的页面。`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "", "监听地址 (默认使用配置 server.addr)")
	cmd.Flags().BoolVar(&serveBrowser, "browser", false, "启用浏览器加载 URL")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.stats.AutoSaveRoutine(ctx, time.Minute)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		a.stats,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	manager := tabs.NewManager(a.service, a.store, tabsConfig(a), a.log.Named("tabs"))
	defer manager.CloseAll()

	opts := server.Options{
		Addr:            a.cfg.Server.Addr,
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
		DefaultLanguage: a.cfg.DefaultLanguage,
		UILanguage:      a.cfg.UILanguage,
		Gatherer:        registry,
		Logger:          a.log.Named("server"),
	}
	if serveAddr != "" {
		opts.Addr = serveAddr
	}

	if serveBrowser {
		b, err := launchBrowser(a)
		if err != nil {
			return err
		}
		defer b.Close()
		opts.Loader = browserLoader{b}
	}

	ui := i18n.NewTranslator(a.cfg.UILanguage, a.log)
	srv := server.New(manager, a.service, tooltip.NewRenderer(ui), opts)

	a.log.Info("serving", zap.String("addr", opts.Addr), zap.Bool("browser", serveBrowser))
	return srv.Run(ctx)
}

// tabsConfig 把配置转换为标签页管理器配置
func tabsConfig(a *app) tabs.Config {
	cfg := tabs.DefaultConfig()
	cfg.Scope = pagetrans.ParseScope(a.cfg.Scope)
	cfg.Scroll.Debounce = a.cfg.Scroll.Debounce
	cfg.Scroll.ThresholdRatio = a.cfg.Scroll.ThresholdRatio
	cfg.Scroll.Logger = a.log.Named("scroll")
	cfg.AutoStartDelay = a.cfg.Scroll.AutoStartDelay
	return cfg
}

func launchBrowser(a *app) (*browser.Browser, error) {
	return browser.Launch(browser.Config{
		ControlURL: a.cfg.Browser.ControlURL,
		Bin:        a.cfg.Browser.Bin,
		Headless:   a.cfg.Browser.Headless,
		Width:      a.cfg.Browser.Width,
		Height:     a.cfg.Browser.Height,
		Logger:     a.log.Named("browser"),
	})
}

// browserLoader 用浏览器打开页面并生成快照
type browserLoader struct {
	b *browser.Browser
}

func (l browserLoader) Load(ctx context.Context, url string) (*dom.Document, server.LivePage, error) {
	page, err := l.b.Open(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	doc, err := page.Snapshot(ctx)
	if err != nil {
		_ = page.Close()
		return nil, nil, err
	}
	return doc, page, nil
}
