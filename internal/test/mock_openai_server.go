package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// MockOpenAIServer 是一个模拟的 OpenAI Chat Completions 服务器
type MockOpenAIServer struct {
	Server *httptest.Server
	URL    string

	// Reply 根据用户消息生成回复，未设置时返回 DefaultResponse
	Reply           func(system, user string) string
	Responses       map[string]string
	DefaultResponse string
	FailStatus      int

	mu       sync.Mutex
	requests []string
}

// NewMockOpenAIServer 创建一个新的模拟OpenAI服务器
func NewMockOpenAIServer(t *testing.T) *MockOpenAIServer {
	mock := &MockOpenAIServer{
		Responses:       make(map[string]string),
		DefaultResponse: "[]",
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 解析请求体
		var requestBody struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": {"message": "invalid request body", "type": "invalid_request_error"}}`))
			return
		}

		// 获取消息
		var system, user string
		for _, msg := range requestBody.Messages {
			switch msg.Role {
			case "system":
				system = msg.Content
			case "user":
				user = msg.Content
			}
		}

		mock.mu.Lock()
		mock.requests = append(mock.requests, user)
		failStatus := mock.FailStatus
		reply := mock.Reply
		response, ok := mock.Responses[user]
		if !ok {
			response = mock.DefaultResponse
		}
		mock.mu.Unlock()

		// 模拟错误
		if failStatus != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(failStatus)
			_, _ = w.Write([]byte(`{"error": {"message": "mock server error", "type": "server_error"}}`))
			return
		}

		if reply != nil && !ok {
			response = reply(system, user)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-mock",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   requestBody.Model,
			"choices": []map[string]interface{}{
				{
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": response,
					},
					"finish_reason": "stop",
					"index":         0,
				},
			},
			"usage": map[string]interface{}{
				"prompt_tokens":     100,
				"completion_tokens": 50,
				"total_tokens":      150,
			},
		})
	}))

	mock.Server = server
	mock.URL = server.URL

	// 添加清理函数
	t.Cleanup(server.Close)

	return mock
}

// AddResponse 添加特定的请求-响应对
func (m *MockOpenAIServer) AddResponse(request, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[request] = response
}

// SetFailStatus 让后续请求返回指定状态码，0 表示恢复正常
func (m *MockOpenAIServer) SetFailStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailStatus = status
}

// Requests 返回收到的用户消息
func (m *MockOpenAIServer) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}
