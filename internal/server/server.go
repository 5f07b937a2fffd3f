// Package server 通过 HTTP 暴露标签页的提取、应用、还原与翻译操作
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nerdneilsfield/go-page-translator/internal/logger"
	"github.com/nerdneilsfield/go-page-translator/internal/tabs"
	"github.com/nerdneilsfield/go-page-translator/internal/tooltip"
	"github.com/nerdneilsfield/go-page-translator/pkg/dom"
	"github.com/nerdneilsfield/go-page-translator/pkg/pagetrans"
	"github.com/nerdneilsfield/go-page-translator/pkg/translation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SelectionTranslator 翻译选中文本
type SelectionTranslator interface {
	TranslateSelection(ctx context.Context, text string) (*translation.Selection, error)
}

// LivePage 真实浏览器中的页面
type LivePage interface {
	pagetrans.TextSink
	ScrollTo(ctx context.Context, y float64) (float64, error)
	Close() error
}

// Loader 按地址加载页面
type Loader interface {
	Load(ctx context.Context, url string) (*dom.Document, LivePage, error)
}

// Options 服务选项
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	DefaultLanguage string
	UILanguage      string
	// Loader 为空时只能提交 HTML 打开标签页
	Loader   Loader
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Server HTTP 服务
type Server struct {
	opts      Options
	tabs      *tabs.Manager
	selection SelectionTranslator
	tooltips  *tooltip.Renderer
	router    chi.Router
	logger    *zap.Logger

	mu    sync.Mutex
	pages map[string]LivePage
}

// New 创建服务
func New(manager *tabs.Manager, selection SelectionTranslator, tooltips *tooltip.Renderer, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = translation.DefaultTargetLanguage
	}
	if opts.UILanguage == "" {
		opts.UILanguage = "en"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if tooltips == nil {
		tooltips = tooltip.NewRenderer(nil)
	}

	s := &Server{
		opts:      opts,
		tabs:      manager,
		selection: selection,
		tooltips:  tooltips,
		logger:    opts.Logger,
		pages:     make(map[string]LivePage),
	}
	s.router = s.routes()
	return s
}

// Handler 返回路由
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.Middleware(s.logger))

	r.Get("/healthz", s.handleHealth)
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/languages", s.handleLanguages)
	r.Get("/settings/default-language", s.handleGetDefaultLanguage)
	r.Put("/settings/default-language", s.handlePutDefaultLanguage)
	r.Post("/selection/translate", s.handleTranslateSelection)

	r.Route("/tabs", func(r chi.Router) {
		r.Get("/", s.handleListTabs)
		r.Post("/", s.handleOpenTab)

		r.Route("/{tabID}", func(r chi.Router) {
			r.Get("/", s.handleTabState)
			r.Delete("/", s.handleCloseTab)
			r.Get("/sample", s.handleSample)
			r.Post("/detect", s.handleDetect)
			r.Post("/extract", s.handleExtract)
			r.Post("/apply", s.handleApply)
			r.Post("/restore", s.handleRestore)
			r.Post("/scroll", s.handleScroll)
			r.Post("/translate", s.handleTranslatePage)
			r.Get("/html", s.handleHTML)
		})
	})
	return r
}

// Run 监听地址直到 ctx 结束，然后优雅退出
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.opts.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.closePages()
	s.tabs.CloseAll()
	return err
}

func (s *Server) attachPage(id string, p LivePage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[id] = p
}

func (s *Server) page(id string) LivePage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[id]
}

func (s *Server) detachPage(id string) {
	s.mu.Lock()
	p, ok := s.pages[id]
	delete(s.pages, id)
	s.mu.Unlock()
	if ok {
		if err := p.Close(); err != nil {
			s.logger.Warn("failed to close page", zap.String("tab", id), zap.Error(err))
		}
	}
}

func (s *Server) closePages() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.pages))
	for id := range s.pages {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.detachPage(id)
	}
}
