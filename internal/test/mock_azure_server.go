package test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// AzureRequest 记录收到的请求
type AzureRequest struct {
	Path   string
	To     string
	Key    string
	Region string
	Texts  []string
}

// MockAzureServer 模拟 Azure Translator v3 API
type MockAzureServer struct {
	Server *httptest.Server
	URL    string

	// Translate 生成译文，默认返回 "[to] text"
	Translate func(text, to string) string
	// DetectedLanguage /detect 返回的语言代码，空则返回空数组
	DetectedLanguage string
	// FailStatus 不为零时前 FailCount 个请求返回该状态码
	FailStatus int
	FailCount  int
	// DelayMs 模拟延迟
	DelayMs int

	mu       sync.Mutex
	requests []AzureRequest
}

// NewMockAzureServer 创建模拟服务器，测试结束时自动关闭
func NewMockAzureServer(t *testing.T) *MockAzureServer {
	mock := &MockAzureServer{
		Translate: func(text, to string) string {
			return fmt.Sprintf("[%s] %s", to, text)
		},
		DetectedLanguage: "en",
	}

	mock.Server = httptest.NewServer(http.HandlerFunc(mock.handle))
	mock.URL = mock.Server.URL
	t.Cleanup(mock.Server.Close)
	return mock
}

// Requests 返回已记录的请求
func (m *MockAzureServer) Requests() []AzureRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AzureRequest(nil), m.requests...)
}

// SetFailure 设置前 count 个请求失败
func (m *MockAzureServer) SetFailure(status, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailStatus = status
	m.FailCount = count
}

func (m *MockAzureServer) handle(w http.ResponseWriter, r *http.Request) {
	var body []struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeAzureError(w, http.StatusBadRequest, 400000, "invalid request body")
		return
	}

	req := AzureRequest{
		Path:   r.URL.Path,
		To:     r.URL.Query().Get("to"),
		Key:    r.Header.Get("Ocp-Apim-Subscription-Key"),
		Region: r.Header.Get("Ocp-Apim-Subscription-Region"),
	}
	for _, item := range body {
		req.Texts = append(req.Texts, item.Text)
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	fail := 0
	if m.FailStatus != 0 && m.FailCount > 0 {
		fail = m.FailStatus
		m.FailCount--
	}
	translate := m.Translate
	detected := m.DetectedLanguage
	delay := m.DelayMs
	m.mu.Unlock()

	// 模拟延迟
	if delay > 0 {
		time.Sleep(time.Duration(delay) * time.Millisecond)
	}

	// 模拟错误
	if fail != 0 {
		writeAzureError(w, fail, fail*1000, "mock failure")
		return
	}

	if r.URL.Query().Get("api-version") != "3.0" {
		writeAzureError(w, http.StatusBadRequest, 400021, "The API version parameter is missing or invalid.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/translate"):
		if req.To == "" {
			writeAzureError(w, http.StatusBadRequest, 400036, "The target language is not valid.")
			return
		}
		type translation struct {
			Text string `json:"text"`
			To   string `json:"to"`
		}
		type result struct {
			DetectedLanguage map[string]interface{} `json:"detectedLanguage,omitempty"`
			Translations     []translation          `json:"translations"`
		}
		out := make([]result, len(req.Texts))
		for i, text := range req.Texts {
			out[i] = result{
				DetectedLanguage: map[string]interface{}{"language": detected, "score": 1.0},
				Translations:     []translation{{Text: translate(text, req.To), To: req.To}},
			}
		}
		_ = json.NewEncoder(w).Encode(out)

	case strings.HasSuffix(r.URL.Path, "/detect"):
		out := []map[string]interface{}{}
		if detected != "" {
			for range req.Texts {
				out = append(out, map[string]interface{}{"language": detected, "score": 0.98})
			}
		}
		_ = json.NewEncoder(w).Encode(out)

	default:
		writeAzureError(w, http.StatusNotFound, 404001, "The requested resource was not found.")
	}
}

func writeAzureError(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{"code": code, "message": message},
	})
}
