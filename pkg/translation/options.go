package translation

import (
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultChunkSize 每次提交给提供商的最大条目数
const DefaultChunkSize = 100

// Option 服务配置选项函数
type Option func(*serviceOptions)

// serviceOptions 服务内部选项
type serviceOptions struct {
	chunkSize int
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// WithChunkSize 设置分块大小
func WithChunkSize(size int) Option {
	return func(o *serviceOptions) {
		o.chunkSize = size
	}
}

// WithRateLimit 限制每秒请求数，rps <= 0 表示不限制
func WithRateLimit(rps float64, burst int) Option {
	return func(o *serviceOptions) {
		if rps <= 0 {
			o.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}
