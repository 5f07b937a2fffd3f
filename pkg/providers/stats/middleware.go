package stats

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
)

// StatisticsMiddleware 统计中间件
type StatisticsMiddleware struct {
	next         providers.Provider
	statsManager *StatsManager
}

// 确保实现接口
var (
	_ providers.Provider = (*StatisticsMiddleware)(nil)
	_ providers.Detector = (*StatisticsMiddleware)(nil)
)

// NewStatisticsMiddleware 创建统计中间件
func NewStatisticsMiddleware(next providers.Provider, statsManager *StatsManager) *StatisticsMiddleware {
	return &StatisticsMiddleware{
		next:         next,
		statsManager: statsManager,
	}
}

// TranslateTexts 带统计的批量翻译
func (sm *StatisticsMiddleware) TranslateTexts(ctx context.Context, req *providers.BatchRequest) (*providers.BatchResponse, error) {
	startTime := time.Now()
	resp, err := sm.next.TranslateTexts(ctx, req)

	chars := 0
	for _, t := range req.Texts {
		chars += utf8.RuneCountInString(t)
	}

	result := RequestResult{
		Success: err == nil,
		Latency: time.Since(startTime),
		Texts:   len(req.Texts),
		Chars:   chars,
	}
	if err != nil {
		result.ErrorType = classifyError(err)
	}
	sm.statsManager.RecordRequest(sm.next.GetName(), result)

	return resp, err
}

// DetectLanguage 透传检测请求
func (sm *StatisticsMiddleware) DetectLanguage(ctx context.Context, text string) (string, error) {
	detector, ok := sm.next.(providers.Detector)
	if !ok {
		return "", providers.NewDetectionError(sm.next.GetName(), "language detection not supported")
	}
	return detector.DetectLanguage(ctx, text)
}

// GetName 获取提供商名称
func (sm *StatisticsMiddleware) GetName() string {
	return sm.next.GetName()
}

// GetCapabilities 获取提供商能力
func (sm *StatisticsMiddleware) GetCapabilities() providers.Capabilities {
	return sm.next.GetCapabilities()
}

// classifyError 分类错误
func classifyError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var svcErr *providers.ServiceError
	if errors.As(err, &svcErr) {
		switch {
		case svcErr.Status == 429:
			return "rate_limit"
		case svcErr.Status == 401 || svcErr.Status == 403:
			return "auth"
		case svcErr.Status >= 500:
			return "server"
		case svcErr.Status >= 400:
			return "client"
		case svcErr.Cause != nil:
			return "network"
		}
	}
	return "unknown"
}
