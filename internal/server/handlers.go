package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nerdneilsfield/go-page-translator/internal/settings"
	"github.com/nerdneilsfield/go-page-translator/internal/tabs"
	"github.com/nerdneilsfield/go-page-translator/internal/tooltip"
	"github.com/nerdneilsfield/go-page-translator/pkg/dom"
	"github.com/nerdneilsfield/go-page-translator/pkg/pagetrans"
	"github.com/nerdneilsfield/go-page-translator/pkg/translation"
	"go.uber.org/zap"
)

type openTabRequest struct {
	ID    string        `json:"id"`
	URL   string        `json:"url"`
	HTML  string        `json:"html"`
	Scope string        `json:"scope"`
	View  *dom.Viewport `json:"viewport"`
}

type applyRequest struct {
	Translations   []string `json:"translations"`
	TargetLanguage string   `json:"target_language"`
}

type scrollRequest struct {
	Y float64 `json:"y"`
}

type translateRequest struct {
	TargetLanguage string `json:"target_language"`
}

type selectionRequest struct {
	Text       string   `json:"text"`
	UILanguage string   `json:"ui_language"`
	Left       *float64 `json:"left"`
	Top        *float64 `json:"top"`
}

type selectionResponse struct {
	*translation.Selection
	Tooltip string `json:"tooltip"`
}

type languageRequest struct {
	Language string `json:"language"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	ui := r.URL.Query().Get("ui")
	if ui == "" {
		ui = s.opts.UILanguage
	}
	s.writeJSON(w, http.StatusOK, translation.DefaultLanguages(ui))
}

// defaultLanguage 保存的默认目标语言，没有时使用配置
func (s *Server) defaultLanguage(r *http.Request) string {
	lang, err := settings.DefaultLanguage(r.Context(), s.tabs.Store())
	if err != nil {
		s.logger.Warn("failed to read default language", zap.Error(err))
	}
	if lang == "" {
		return s.opts.DefaultLanguage
	}
	return lang
}

func (s *Server) handleGetDefaultLanguage(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, languageRequest{Language: s.defaultLanguage(r)})
}

func (s *Server) handlePutDefaultLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	code, err := translation.ResolveLanguage(req.Language, translation.DefaultLanguages(s.opts.UILanguage))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := settings.SetDefaultLanguage(r.Context(), s.tabs.Store(), code); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, languageRequest{Language: code})
}

func (s *Server) handleTranslateSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	ui := req.UILanguage
	if ui == "" {
		ui = s.opts.UILanguage
	}
	var pos *tooltip.Position
	if req.Left != nil && req.Top != nil {
		pos = &tooltip.Position{Left: *req.Left, Top: *req.Top}
	}

	sel, err := s.selection.TranslateSelection(r.Context(), req.Text)
	if err != nil {
		s.writeJSON(w, statusFor(err), errorResponse{
			Error:   err.Error(),
			Tooltip: s.tooltips.String(nil, err, ui, pos),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, selectionResponse{
		Selection: sel,
		Tooltip:   s.tooltips.String(sel, nil, ui, pos),
	})
}

func (s *Server) handleListTabs(w http.ResponseWriter, _ *http.Request) {
	list := s.tabs.List()
	states := make([]tabs.State, 0, len(list))
	for _, t := range list {
		states = append(states, t.State())
	}
	s.writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleOpenTab(w http.ResponseWriter, r *http.Request) {
	var req openTabRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	var (
		doc  *dom.Document
		live LivePage
		err  error
		opts = []tabs.OpenOption{tabs.WithURL(req.URL)}
	)
	switch {
	case strings.TrimSpace(req.HTML) != "":
		var domOpts []dom.Option
		if req.View != nil {
			domOpts = append(domOpts, dom.WithViewport(*req.View))
		}
		doc, err = dom.ParseString(req.HTML, domOpts...)
		if err != nil {
			s.writeError(w, badRequest(err.Error()))
			return
		}
		// 提交的 HTML 没有几何信息，默认翻译整个文档
		if req.Scope == "" {
			req.Scope = pagetrans.ScopeDocument.String()
		}
	case req.URL != "" && s.opts.Loader != nil:
		doc, live, err = s.opts.Loader.Load(r.Context(), req.URL)
		if err != nil {
			s.writeError(w, err)
			return
		}
		opts = append(opts, tabs.WithTextSink(live))
	default:
		s.writeError(w, badRequest("html is required (or url when a browser is configured)"))
		return
	}
	if req.Scope != "" {
		opts = append(opts, tabs.WithScope(pagetrans.ParseScope(req.Scope)))
	}

	tab, err := s.tabs.Open(r.Context(), req.ID, doc, opts...)
	if err != nil {
		if live != nil {
			live.Close()
		}
		s.writeError(w, err)
		return
	}
	if live != nil {
		s.attachPage(tab.ID(), live)
	}
	s.writeJSON(w, http.StatusCreated, tab.State())
}

// tab 读取路径中的标签页，不存在时写入错误
func (s *Server) tab(w http.ResponseWriter, r *http.Request) (*tabs.Tab, bool) {
	t, err := s.tabs.Get(chi.URLParam(r, "tabID"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return t, true
}

func (s *Server) handleTabState(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tab(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, t.State())
}

func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tabID")
	if err := s.tabs.Close(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.detachPage(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tab(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"text": t.SampleText()})
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tab(w, r)
	if !ok {
		return
	}
	lang, err := t.DetectLanguage(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"language": lang,
		"name":     translation.DisplayName(lang, s.opts.UILanguage),
	})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tab(w, r)
	if !ok {
		return
	}
	batch := t.Extract()
	s.writeJSON(w, http.StatusOK, map[string][]string{"texts": batch.Texts()})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tab(w, r)
	if !ok {
		return
	}
	var req applyRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := t.ApplyTranslations(r.Context(), req.Translations, req.TargetLanguage); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tab(w, r)
	if !ok {
		return
	}
	n, err := t.Restore(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "restored": n})
}

func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tab(w, r)
	if !ok {
		return
	}
	var req scrollRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	y := req.Y
	if live := s.page(t.ID()); live != nil {
		actual, err := live.ScrollTo(r.Context(), y)
		if err != nil {
			s.writeError(w, err)
			return
		}
		y = actual
	}
	t.ScrollTo(y)
	s.writeJSON(w, http.StatusOK, t.State())
}

func (s *Server) handleTranslatePage(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tab(w, r)
	if !ok {
		return
	}
	var req translateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	target := req.TargetLanguage
	if target == "" {
		target = s.defaultLanguage(r)
	}

	n, err := t.TranslatePage(r.Context(), target)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"translated":      n,
		"target_language": target,
	})
}

func (s *Server) handleHTML(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tab(w, r)
	if !ok {
		return
	}
	out, err := t.Session().HTML()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(out))
}
