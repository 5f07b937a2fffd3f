package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nerdneilsfield/go-page-translator/internal/settings"
	"github.com/nerdneilsfield/go-page-translator/internal/tabs"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers/stats"
	"github.com/nerdneilsfield/go-page-translator/pkg/translation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><body><h1>  Hello  </h1><p>Good <b>morning</b></p><script>var x;</script></body></html>`

type fakeTranslator struct {
	err    error
	detect string
}

func (f *fakeTranslator) TranslateBatch(_ context.Context, texts []string, lang string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = lang + ":" + t
	}
	return out, nil
}

func (f *fakeTranslator) DetectPageLanguage(_ context.Context, sample string) (string, error) {
	if len(sample) < translation.MinDetectChars {
		return "", translation.ErrNotEnoughText
	}
	if f.detect == "" {
		return "", providers.NewDetectionError("fake", "no language")
	}
	return f.detect, nil
}

func (f *fakeTranslator) TranslateSelection(_ context.Context, text string) (*translation.Selection, error) {
	if f.err != nil {
		return nil, f.err
	}
	if strings.TrimSpace(text) == "" {
		return nil, translation.ErrEmptyText
	}
	return &translation.Selection{Original: text, Translated: "ja:" + text, SourceLanguage: "en", TargetLanguage: "ja"}, nil
}

func newTestServer(t *testing.T, tr *fakeTranslator) (*httptest.Server, *Server) {
	t.Helper()
	manager := tabs.NewManager(tr, settings.NewMemoryStore(), tabs.DefaultConfig(), nil)

	reg := prometheus.NewRegistry()
	reg.MustRegister(stats.NewStatsManager("", nil))

	srv := New(manager, tr, nil, Options{Gatherer: reg})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, srv
}

func call(t *testing.T, ts *httptest.Server, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = strings.NewReader(string(b))
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func openTab(t *testing.T, ts *httptest.Server) {
	t.Helper()
	status, body := call(t, ts, http.MethodPost, "/tabs", map[string]any{"id": "t1", "html": page})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "document", body["scope"])
}

func TestExtractApplyRestore(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTranslator{})
	openTab(t, ts)

	status, body := call(t, ts, http.MethodPost, "/tabs/t1/extract", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"Hello", "Good", "morning"}, body["texts"])

	// 数量不一致
	status, body = call(t, ts, http.MethodPost, "/tabs/t1/apply", applyRequest{Translations: []string{"x"}})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body["error"], "mismatch")

	status, _ = call(t, ts, http.MethodPost, "/tabs/t1/apply", applyRequest{
		Translations:   []string{"Bonjour", "Bon", "matin"},
		TargetLanguage: "fr",
	})
	require.Equal(t, http.StatusOK, status)

	status, body = call(t, ts, http.MethodGet, "/tabs/t1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["is_translated"])
	assert.Equal(t, "fr", body["target_language"])

	resp, err := http.Get(ts.URL + "/tabs/t1/html")
	require.NoError(t, err)
	html, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(html), "<h1>  Bonjour  </h1>")

	status, body = call(t, ts, http.MethodPost, "/tabs/t1/restore", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), body["restored"])

	_, body = call(t, ts, http.MethodGet, "/tabs/t1", nil)
	assert.Equal(t, false, body["is_translated"])
	assert.Equal(t, false, body["auto_translate"])
}

func TestTranslatePageUsesDefaultLanguage(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTranslator{})
	openTab(t, ts)

	status, body := call(t, ts, http.MethodPut, "/settings/default-language", languageRequest{Language: "Korean"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ko", body["language"])

	status, body = call(t, ts, http.MethodPost, "/tabs/t1/translate", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), body["translated"])
	assert.Equal(t, "ko", body["target_language"])

	// 已翻译的节点不会再次提取
	_, body = call(t, ts, http.MethodPost, "/tabs/t1/extract", nil)
	assert.Empty(t, body["texts"])
}

func TestTranslatePageServiceError(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTranslator{err: providers.NewServiceError("azure", 401, "bad key")})
	openTab(t, ts)

	status, body := call(t, ts, http.MethodPost, "/tabs/t1/translate", translateRequest{TargetLanguage: "ja"})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, body["error"], "bad key")

	_, body = call(t, ts, http.MethodGet, "/tabs/t1", nil)
	assert.Equal(t, false, body["is_translated"])
}

func TestDetectAndSample(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTranslator{detect: "en"})
	openTab(t, ts)

	status, body := call(t, ts, http.MethodGet, "/tabs/t1/sample", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Hello   Good  morning", body["text"])

	status, body = call(t, ts, http.MethodPost, "/tabs/t1/detect", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "en", body["language"])
	assert.Equal(t, "English", body["name"])
}

func TestDetectFailure(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTranslator{})
	openTab(t, ts)

	status, _ := call(t, ts, http.MethodPost, "/tabs/t1/detect", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestSelectionTooltip(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTranslator{})

	status, body := call(t, ts, http.MethodPost, "/selection/translate", map[string]any{"text": "Hi", "left": 1, "top": 2})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ja:Hi", body["translated"])
	assert.Contains(t, body["tooltip"], "English → Japanese")

	status, body = call(t, ts, http.MethodPost, "/selection/translate", map[string]any{"text": " "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["tooltip"], "Translation Error")
}

func TestTabErrors(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTranslator{})

	status, _ := call(t, ts, http.MethodGet, "/tabs/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, ts, http.MethodPost, "/tabs", map[string]any{"url": "https://example.com"})
	assert.Equal(t, http.StatusBadRequest, status)

	openTab(t, ts)
	status, _ = call(t, ts, http.MethodPost, "/tabs", map[string]any{"id": "t1", "html": page})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = call(t, ts, http.MethodPost, "/tabs/t1/apply", applyRequest{Translations: []string{"x"}})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = call(t, ts, http.MethodDelete, "/tabs/t1", nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = call(t, ts, http.MethodDelete, "/tabs/t1", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLanguagesHealthMetrics(t *testing.T) {
	ts, _ := newTestServer(t, &fakeTranslator{})

	status, body := call(t, ts, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	resp, err := http.Get(ts.URL + "/languages?ui=en")
	require.NoError(t, err)
	var langs []translation.Language
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&langs))
	resp.Body.Close()
	require.NotEmpty(t, langs)
	assert.Equal(t, "en", langs[0].Code)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
	assert.Equal(t, http.StatusConflict, statusFor(&translation.CountError{Provider: "x", Want: 1, Got: 2}))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(translation.ErrDetectionUnsupported))
}
