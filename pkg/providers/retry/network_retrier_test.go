package retry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorTypeNone, Classify(nil, &http.Response{StatusCode: 200}))
	assert.Equal(t, ErrorTypeServerError, Classify(nil, &http.Response{StatusCode: 503}))
	assert.Equal(t, ErrorTypeRetryableHTTP, Classify(nil, &http.Response{StatusCode: 429}))
	assert.Equal(t, ErrorTypeClientError, Classify(nil, &http.Response{StatusCode: 401}))
	assert.Equal(t, ErrorTypeNetwork, Classify(syscall.ECONNREFUSED, nil))
	assert.Equal(t, ErrorTypePermanent, Classify(errors.New("bad certificate"), nil))
}

func TestBackoff(t *testing.T) {
	p := NewPolicy(RetryConfig{BackoffFactor: 2, NetworkInitialDelay: 10 * time.Millisecond})

	assert.Equal(t, 100*time.Millisecond, p.Backoff(100*time.Millisecond, time.Second, 0, &http.Response{}))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(100*time.Millisecond, time.Second, 2, &http.Response{}))
	assert.Equal(t, time.Second, p.Backoff(100*time.Millisecond, time.Second, 10, &http.Response{}))
	// 网络错误没有响应，使用更短的初始延迟
	assert.Equal(t, 20*time.Millisecond, p.Backoff(100*time.Millisecond, time.Second, 1, nil))
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
	client := NewHTTPClient(cfg, 5*time.Second, nil)

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewHTTPClient(RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, time.Second, nil)

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}
