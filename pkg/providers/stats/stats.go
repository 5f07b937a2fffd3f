package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ProviderStats 提供商统计
type ProviderStats struct {
	ProviderName       string `json:"provider_name"`
	TotalRequests      int64  `json:"total_requests"`
	SuccessfulRequests int64  `json:"successful_requests"`
	FailedRequests     int64  `json:"failed_requests"`
	TotalTexts         int64  `json:"total_texts"`
	TotalChars         int64  `json:"total_chars"`

	// 性能指标
	MinLatency   time.Duration `json:"min_latency"`
	MaxLatency   time.Duration `json:"max_latency"`
	TotalLatency time.Duration `json:"total_latency"`

	// 按错误类型统计
	ErrorTypes map[string]int64 `json:"error_types"`

	FirstRequestTime time.Time `json:"first_request_time"`
	LastRequestTime  time.Time `json:"last_request_time"`
}

// AverageLatency 平均延迟
func (ps *ProviderStats) AverageLatency() time.Duration {
	if ps.TotalRequests == 0 {
		return 0
	}
	return ps.TotalLatency / time.Duration(ps.TotalRequests)
}

// SuccessRate 成功率（百分比）
func (ps *ProviderStats) SuccessRate() float64 {
	if ps.TotalRequests == 0 {
		return 0
	}
	return float64(ps.SuccessfulRequests) / float64(ps.TotalRequests) * 100
}

// RequestResult 单次请求结果
type RequestResult struct {
	Success   bool
	Latency   time.Duration
	Texts     int
	Chars     int
	ErrorType string
}

// StatsManager 统计管理器，同时维护 Prometheus 指标
type StatsManager struct {
	stats  map[string]*ProviderStats
	dbPath string
	logger *zap.Logger
	mu     sync.Mutex

	requests *prometheus.CounterVec
	texts    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewStatsManager 创建统计管理器
func NewStatsManager(dbPath string, logger *zap.Logger) *StatsManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsManager{
		stats:  make(map[string]*ProviderStats),
		dbPath: dbPath,
		logger: logger,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagetrans",
			Name:      "provider_requests_total",
			Help:      "Translation provider requests by outcome.",
		}, []string{"provider", "outcome"}),
		texts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagetrans",
			Name:      "provider_texts_total",
			Help:      "Text segments sent to translation providers.",
		}, []string{"provider"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pagetrans",
			Name:      "provider_request_duration_seconds",
			Help:      "Translation provider request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}
}

// Describe 实现 prometheus.Collector
func (sm *StatsManager) Describe(ch chan<- *prometheus.Desc) {
	sm.requests.Describe(ch)
	sm.texts.Describe(ch)
	sm.latency.Describe(ch)
}

// Collect 实现 prometheus.Collector
func (sm *StatsManager) Collect(ch chan<- prometheus.Metric) {
	sm.requests.Collect(ch)
	sm.texts.Collect(ch)
	sm.latency.Collect(ch)
}

// RecordRequest 记录请求结果
func (sm *StatsManager) RecordRequest(provider string, result RequestResult) {
	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	sm.requests.WithLabelValues(provider, outcome).Inc()
	sm.texts.WithLabelValues(provider).Add(float64(result.Texts))
	sm.latency.WithLabelValues(provider).Observe(result.Latency.Seconds())

	sm.mu.Lock()
	defer sm.mu.Unlock()

	stats, ok := sm.stats[provider]
	if !ok {
		stats = &ProviderStats{
			ProviderName: provider,
			ErrorTypes:   make(map[string]int64),
		}
		sm.stats[provider] = stats
	}

	now := time.Now()
	if stats.FirstRequestTime.IsZero() {
		stats.FirstRequestTime = now
	}
	stats.LastRequestTime = now

	stats.TotalRequests++
	stats.TotalTexts += int64(result.Texts)
	stats.TotalChars += int64(result.Chars)
	stats.TotalLatency += result.Latency
	if stats.MinLatency == 0 || result.Latency < stats.MinLatency {
		stats.MinLatency = result.Latency
	}
	if result.Latency > stats.MaxLatency {
		stats.MaxLatency = result.Latency
	}

	if result.Success {
		stats.SuccessfulRequests++
	} else {
		stats.FailedRequests++
		if result.ErrorType != "" {
			stats.ErrorTypes[result.ErrorType]++
		}
	}
}

// GetStats 获取某个提供商的统计副本
func (sm *StatsManager) GetStats(provider string) *ProviderStats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	stats, ok := sm.stats[provider]
	if !ok {
		return nil
	}
	return stats.clone()
}

// GetAllStats 获取所有统计副本
func (sm *StatsManager) GetAllStats() map[string]*ProviderStats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	result := make(map[string]*ProviderStats, len(sm.stats))
	for k, v := range sm.stats {
		result[k] = v.clone()
	}
	return result
}

func (ps *ProviderStats) clone() *ProviderStats {
	c := *ps
	c.ErrorTypes = make(map[string]int64, len(ps.ErrorTypes))
	for k, v := range ps.ErrorTypes {
		c.ErrorTypes[k] = v
	}
	return &c
}

// SaveToDB 保存统计数据到文件
func (sm *StatsManager) SaveToDB() error {
	if sm.dbPath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(sm.dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}

	jsonData, err := json.MarshalIndent(sm.GetAllStats(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats data: %w", err)
	}

	tempPath := sm.dbPath + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	if err := os.Rename(tempPath, sm.dbPath); err != nil {
		return fmt.Errorf("failed to rename stats file: %w", err)
	}

	sm.logger.Debug("stats saved", zap.String("path", sm.dbPath))
	return nil
}

// LoadFromDB 从文件加载统计数据，只恢复累计值
func (sm *StatsManager) LoadFromDB() error {
	if sm.dbPath == "" {
		return nil
	}

	data, err := os.ReadFile(sm.dbPath)
	if os.IsNotExist(err) {
		sm.logger.Debug("stats file not found, starting fresh", zap.String("path", sm.dbPath))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read stats file: %w", err)
	}

	var statsData map[string]*ProviderStats
	if err := json.Unmarshal(data, &statsData); err != nil {
		return fmt.Errorf("failed to unmarshal stats data: %w", err)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	for key, stats := range statsData {
		if stats.ErrorTypes == nil {
			stats.ErrorTypes = make(map[string]int64)
		}
		sm.stats[key] = stats
	}

	sm.logger.Info("stats loaded",
		zap.String("path", sm.dbPath),
		zap.Int("providers", len(statsData)))
	return nil
}

// AutoSaveRoutine 定期自动保存统计数据
func (sm *StatsManager) AutoSaveRoutine(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// 最后一次保存
			if err := sm.SaveToDB(); err != nil {
				sm.logger.Error("failed to save stats on shutdown", zap.Error(err))
			}
			return
		case <-ticker.C:
			if err := sm.SaveToDB(); err != nil {
				sm.logger.Error("failed to auto-save stats", zap.Error(err))
			}
		}
	}
}

// PrintStatsTable 打印统计表格
func (sm *StatsManager) PrintStatsTable(w io.Writer) {
	allStats := sm.GetAllStats()
	if len(allStats) == 0 {
		fmt.Fprintln(w, "No statistics available.")
		return
	}

	names := make([]string, 0, len(allStats))
	for name := range allStats {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Provider Statistics")
	t.AppendHeader(table.Row{"Provider", "Requests", "Success%", "Texts", "Avg Latency", "Top Error"})
	for _, name := range names {
		stats := allStats[name]
		t.AppendRow(table.Row{
			runewidth.Truncate(stats.ProviderName, 20, "..."),
			stats.TotalRequests,
			fmt.Sprintf("%.1f%%", stats.SuccessRate()),
			stats.TotalTexts,
			stats.AverageLatency().Round(time.Millisecond),
			topError(stats.ErrorTypes),
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func topError(errs map[string]int64) string {
	var best string
	var n int64
	for k, v := range errs {
		if v > n || (v == n && k < best) {
			best, n = k, v
		}
	}
	if best == "" {
		return "-"
	}
	return fmt.Sprintf("%s (%d)", best, n)
}
