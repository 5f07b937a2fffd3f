package azure

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/nerdneilsfield/go-page-translator/internal/test"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, mock *test.MockAzureServer) *Provider {
	t.Helper()
	cfg := DefaultConfig()
	cfg.APIEndpoint = mock.URL
	cfg.APIKey = "secret"
	cfg.Region = "japaneast"
	cfg.Timeout = 5 * time.Second
	cfg.MaxRetries = 2
	cfg.RetryConfig.InitialDelay = time.Millisecond
	cfg.RetryConfig.MaxDelay = 5 * time.Millisecond
	return New(cfg, nil)
}

func TestTranslateTexts(t *testing.T) {
	mock := test.NewMockAzureServer(t)
	p := newTestProvider(t, mock)

	resp, err := p.TranslateTexts(context.Background(), &providers.BatchRequest{
		Texts:          []string{"Hello", "World"},
		TargetLanguage: "fr",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"[fr] Hello", "[fr] World"}, resp.Texts)
	assert.Equal(t, "en", resp.DetectedSource)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/translate", reqs[0].Path)
	assert.Equal(t, "fr", reqs[0].To)
	assert.Equal(t, "secret", reqs[0].Key)
	assert.Equal(t, "japaneast", reqs[0].Region)
}

func TestTranslateTextsRejectsOversizedBatch(t *testing.T) {
	mock := test.NewMockAzureServer(t)
	p := newTestProvider(t, mock)

	_, err := p.TranslateTexts(context.Background(), &providers.BatchRequest{
		Texts:          make([]string, MaxBatchSize+1),
		TargetLanguage: "fr",
	})
	assert.Error(t, err)
	assert.Empty(t, mock.Requests())
}

func TestTranslateTextsServiceError(t *testing.T) {
	mock := test.NewMockAzureServer(t)
	mock.SetFailure(http.StatusUnauthorized, 10)
	p := newTestProvider(t, mock)

	_, err := p.TranslateTexts(context.Background(), &providers.BatchRequest{Texts: []string{"Hi"}, TargetLanguage: "ja"})

	var svcErr *providers.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusUnauthorized, svcErr.Status)
	assert.Equal(t, "mock failure", svcErr.Message)
	// 客户端错误不重试
	assert.Len(t, mock.Requests(), 1)
}

func TestTranslateTextsRetriesServerErrors(t *testing.T) {
	mock := test.NewMockAzureServer(t)
	mock.SetFailure(http.StatusServiceUnavailable, 1)
	p := newTestProvider(t, mock)

	resp, err := p.TranslateTexts(context.Background(), &providers.BatchRequest{Texts: []string{"Hi"}, TargetLanguage: "ja"})
	require.NoError(t, err)
	assert.Equal(t, []string{"[ja] Hi"}, resp.Texts)
	assert.Len(t, mock.Requests(), 2)
}

func TestDetectLanguage(t *testing.T) {
	mock := test.NewMockAzureServer(t)
	mock.DetectedLanguage = "de"
	p := newTestProvider(t, mock)

	lang, err := p.DetectLanguage(context.Background(), "Guten Tag")
	require.NoError(t, err)
	assert.Equal(t, "de", lang)
	assert.Equal(t, "/detect", mock.Requests()[0].Path)
}

func TestDetectLanguageNoResult(t *testing.T) {
	mock := test.NewMockAzureServer(t)
	mock.DetectedLanguage = ""
	p := newTestProvider(t, mock)

	_, err := p.DetectLanguage(context.Background(), "???")
	var detErr *providers.DetectionError
	assert.True(t, errors.As(err, &detErr))
}

func TestGetCapabilities(t *testing.T) {
	p := New(DefaultConfig(), nil)
	caps := p.GetCapabilities()
	assert.Equal(t, "azure", p.GetName())
	assert.Equal(t, MaxBatchSize, caps.MaxBatchSize)
	assert.True(t, caps.SupportsDetection)
}
