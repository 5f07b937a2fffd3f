package translation

import "context"

// BatchTranslator 批量翻译，结果与输入等长且顺序一致
type BatchTranslator interface {
	TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error)
}

// Detector 语言检测
type Detector interface {
	Detect(ctx context.Context, text string) (string, error)
}

// Cache 翻译结果缓存接口
type Cache interface {
	// Get 获取缓存的翻译
	Get(key string) (string, bool)

	// Set 设置缓存
	Set(key string, value string) error

	// Delete 删除缓存
	Delete(key string) error

	// Clear 清除所有缓存
	Clear() error

	// Stats 获取缓存统计信息
	Stats() CacheStats
}

// CacheStats 缓存统计信息
type CacheStats struct {
	Hits      int64
	Misses    int64
	Size      int64
	Evictions int64
}
