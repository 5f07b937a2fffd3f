package retry

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// RetryConfig 重试配置
type RetryConfig struct {
	// 最大重试次数
	MaxRetries int `json:"max_retries"`

	// 初始延迟时间
	InitialDelay time.Duration `json:"initial_delay"`

	// 最大延迟时间
	MaxDelay time.Duration `json:"max_delay"`

	// 退避因子（指数退避）
	BackoffFactor float64 `json:"backoff_factor"`

	// 网络错误的初始延迟（通常更短）
	NetworkInitialDelay time.Duration `json:"network_initial_delay"`
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:          3,
		InitialDelay:        1 * time.Second,
		MaxDelay:            30 * time.Second,
		BackoffFactor:       2.0,
		NetworkInitialDelay: 100 * time.Millisecond,
	}
}

// ErrorType 错误类型枚举
type ErrorType int

const (
	ErrorTypeNone          ErrorType = iota
	ErrorTypeNetwork                 // 网络瞬时错误
	ErrorTypeRetryableHTTP           // 可重试的HTTP错误
	ErrorTypeClientError             // 客户端错误（4xx）
	ErrorTypeServerError             // 服务端错误（5xx）
	ErrorTypePermanent               // 永久性错误
)

// Policy 基于错误分类的重试策略
type Policy struct {
	config RetryConfig
}

// NewPolicy 创建重试策略
func NewPolicy(config RetryConfig) *Policy {
	return &Policy{config: config}
}

// NewHTTPClient 创建带重试的 HTTP 客户端。
// 重试用尽时返回最后一次响应，调用方仍可读取状态码与错误体。
func NewHTTPClient(config RetryConfig, timeout time.Duration, logger *zap.Logger) *http.Client {
	policy := NewPolicy(config)

	client := retryablehttp.NewClient()
	client.RetryMax = config.MaxRetries
	client.RetryWaitMin = config.InitialDelay
	client.RetryWaitMax = config.MaxDelay
	client.CheckRetry = policy.CheckRetry
	client.Backoff = policy.Backoff
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.HTTPClient.Timeout = timeout
	if logger != nil {
		client.Logger = leveledLogger{logger.Sugar()}
	} else {
		client.Logger = nil
	}

	return client.StandardClient()
}

// CheckRetry 实现 retryablehttp.CheckRetry
func (p *Policy) CheckRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	switch Classify(err, resp) {
	case ErrorTypeNetwork, ErrorTypeServerError, ErrorTypeRetryableHTTP:
		return true, nil
	default:
		// 不可重试时交由调用方处理响应
		return false, nil
	}
}

// Backoff 实现 retryablehttp.Backoff：网络错误快速重试，其余指数退避
func (p *Policy) Backoff(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	delay := min
	if resp == nil && p.config.NetworkInitialDelay > 0 {
		delay = p.config.NetworkInitialDelay
	}

	if attemptNum > 0 {
		factor := p.config.BackoffFactor
		if factor <= 1.0 {
			factor = 2.0
		}
		delay = time.Duration(float64(delay) * math.Pow(factor, float64(attemptNum)))
	}

	if max > 0 && delay > max {
		delay = max
	}
	return delay
}

// Classify 分类错误
func Classify(err error, resp *http.Response) ErrorType {
	// 网络错误
	if err != nil {
		if IsNetworkError(err) {
			return ErrorTypeNetwork
		}
		return ErrorTypePermanent
	}

	// HTTP状态码错误
	if resp != nil {
		switch {
		case resp.StatusCode >= 500:
			return ErrorTypeServerError
		case resp.StatusCode == http.StatusTooManyRequests:
			return ErrorTypeRetryableHTTP
		case resp.StatusCode >= 400:
			return ErrorTypeClientError
		}
	}

	return ErrorTypeNone
}

// IsNetworkError 判断是否为网络错误
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// 检查URL错误
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		if IsNetworkError(urlErr.Err) {
			return true
		}
	}

	// 检查网络相关错误
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	// 检查连接错误
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	// 检查错误消息模式
	errStr := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"connection timed out",
		"temporary failure",
		"network is unreachable",
		"no such host",
		"broken pipe",
		"i/o timeout",
		"eof",
	}

	for _, pattern := range networkPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// leveledLogger 把 retryablehttp 的日志接到 zap
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
