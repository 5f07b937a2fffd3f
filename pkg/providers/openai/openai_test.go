package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/nerdneilsfield/go-page-translator/internal/test"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(mock *test.MockOpenAIServer) *Provider {
	cfg := DefaultConfig()
	cfg.APIKey = "sk-test"
	cfg.APIEndpoint = mock.URL + "/v1/"
	cfg.Timeout = 5 * time.Second
	cfg.MaxRetries = 0
	return New(cfg, nil)
}

func TestTranslateTexts(t *testing.T) {
	mock := test.NewMockOpenAIServer(t)
	mock.Reply = func(system, user string) string {
		var in []string
		if err := json.Unmarshal([]byte(user), &in); err != nil {
			return "not json"
		}
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = strings.ToUpper(s)
		}
		b, _ := json.Marshal(out)
		// 模型常把结果包在代码块里
		return "```json\n" + string(b) + "\n```"
	}

	resp, err := newTestProvider(mock).TranslateTexts(context.Background(), &providers.BatchRequest{
		Texts:          []string{"hello", "world"},
		TargetLanguage: "fr",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"HELLO", "WORLD"}, resp.Texts)
	assert.Equal(t, []string{`["hello","world"]`}, mock.Requests())
}

func TestTranslateTextsCountMismatch(t *testing.T) {
	mock := test.NewMockOpenAIServer(t)
	mock.DefaultResponse = `["only one"]`

	_, err := newTestProvider(mock).TranslateTexts(context.Background(), &providers.BatchRequest{
		Texts:          []string{"a", "b"},
		TargetLanguage: "fr",
	})
	var svcErr *providers.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Contains(t, svcErr.Message, "expected 2 translations, got 1")
}

func TestTranslateTextsAPIError(t *testing.T) {
	mock := test.NewMockOpenAIServer(t)
	mock.SetFailStatus(http.StatusUnauthorized)

	_, err := newTestProvider(mock).TranslateTexts(context.Background(), &providers.BatchRequest{
		Texts:          []string{"a"},
		TargetLanguage: "fr",
	})
	var svcErr *providers.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusUnauthorized, svcErr.Status)
}

func TestDetectLanguage(t *testing.T) {
	mock := test.NewMockOpenAIServer(t)
	p := newTestProvider(mock)

	mock.AddResponse("Bonjour tout le monde", " \"fr\"\n")
	lang, err := p.DetectLanguage(context.Background(), "Bonjour tout le monde")
	require.NoError(t, err)
	assert.Equal(t, "fr", lang)

	mock.AddResponse("???", "und")
	_, err = p.DetectLanguage(context.Background(), "???")
	var detErr *providers.DetectionError
	assert.True(t, errors.As(err, &detErr))
}

func TestParseArray(t *testing.T) {
	texts, err := parseArray(`Sure: ["a", "b"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, texts)

	_, err = parseArray("no array here")
	assert.Error(t, err)
}
