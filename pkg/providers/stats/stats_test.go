package stats

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	err error
}

func (f *fakeProvider) TranslateTexts(ctx context.Context, req *providers.BatchRequest) (*providers.BatchResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &providers.BatchResponse{Texts: req.Texts}, nil
}

func (f *fakeProvider) GetName() string { return "fake" }

func (f *fakeProvider) GetCapabilities() providers.Capabilities { return providers.Capabilities{} }

func TestMiddlewareRecordsRequests(t *testing.T) {
	sm := NewStatsManager("", nil)
	p := &fakeProvider{}
	mw := NewStatisticsMiddleware(p, sm)

	_, err := mw.TranslateTexts(context.Background(), &providers.BatchRequest{Texts: []string{"a", "bc"}, TargetLanguage: "ja"})
	require.NoError(t, err)

	p.err = providers.NewServiceError("fake", 503, "unavailable")
	_, err = mw.TranslateTexts(context.Background(), &providers.BatchRequest{Texts: []string{"x"}, TargetLanguage: "ja"})
	require.Error(t, err)

	s := sm.GetStats("fake")
	require.NotNil(t, s)
	assert.Equal(t, int64(2), s.TotalRequests)
	assert.Equal(t, int64(1), s.SuccessfulRequests)
	assert.Equal(t, int64(1), s.FailedRequests)
	assert.Equal(t, int64(3), s.TotalTexts)
	assert.Equal(t, int64(4), s.TotalChars)
	assert.Equal(t, int64(1), s.ErrorTypes["server"])
	assert.InDelta(t, 50.0, s.SuccessRate(), 0.001)

	assert.Equal(t, 1.0, testutil.ToFloat64(sm.requests.WithLabelValues("fake", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sm.requests.WithLabelValues("fake", "failure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(sm.texts.WithLabelValues("fake")))
}

func TestMiddlewareDetectUnsupported(t *testing.T) {
	mw := NewStatisticsMiddleware(&fakeProvider{}, NewStatsManager("", nil))

	_, err := mw.DetectLanguage(context.Background(), "hello")
	var detErr *providers.DetectionError
	assert.True(t, errors.As(err, &detErr))
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "rate_limit", classifyError(providers.NewServiceError("p", 429, "slow down")))
	assert.Equal(t, "auth", classifyError(providers.NewServiceError("p", 401, "bad key")))
	assert.Equal(t, "client", classifyError(providers.NewServiceError("p", 400, "bad")))
	assert.Equal(t, "network", classifyError(providers.WrapServiceError("p", errors.New("dial tcp"))))
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "unknown", classifyError(errors.New("boom")))
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats", "providers.json")

	sm := NewStatsManager(path, nil)
	sm.RecordRequest("azure", RequestResult{Success: true, Texts: 5})
	require.NoError(t, sm.SaveToDB())

	loaded := NewStatsManager(path, nil)
	require.NoError(t, loaded.LoadFromDB())
	s := loaded.GetStats("azure")
	require.NotNil(t, s)
	assert.Equal(t, int64(5), s.TotalTexts)
}

func TestPrintStatsTable(t *testing.T) {
	var buf bytes.Buffer
	sm := NewStatsManager("", nil)
	sm.PrintStatsTable(&buf)
	assert.Contains(t, buf.String(), "No statistics available.")

	buf.Reset()
	sm.RecordRequest("azure", RequestResult{Success: false, ErrorType: "server"})
	sm.PrintStatsTable(&buf)
	assert.Contains(t, buf.String(), "azure")
	assert.Contains(t, buf.String(), "server (1)")
}
