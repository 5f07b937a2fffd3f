package translation

import (
	"container/list"
	"sync"
)

// DefaultCacheCapacity 单个页面会话缓存的最大条目数
const DefaultCacheCapacity = 10000

// MemoryCache 容量有限的 LRU 缓存，超出容量时淘汰最久未使用的译文
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // 最近使用的在前
	entries  map[string]*list.Element
	stats    CacheStats
}

type cacheEntry struct {
	key   string
	value string
}

// NewMemoryCache 创建默认容量的缓存
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheSize(DefaultCacheCapacity)
}

// NewMemoryCacheSize 创建指定容量的缓存，capacity <= 0 时不限制
func NewMemoryCacheSize(capacity int) *MemoryCache {
	return &MemoryCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get 获取缓存并标记为最近使用
func (c *MemoryCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return "", false
	}
	c.order.MoveToFront(el)
	c.stats.Hits++
	return el.Value.(*cacheEntry).value, true
}

// Set 写入缓存
func (c *MemoryCache) Set(key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).value = value
		c.order.MoveToFront(el)
		return nil
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, value: value})
	for c.capacity > 0 && c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
		c.stats.Evictions++
	}
	c.stats.Size = int64(c.order.Len())
	return nil
}

// Delete 删除缓存
func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
		c.stats.Size = int64(c.order.Len())
	}
	return nil
}

// Clear 清空缓存并重置统计
func (c *MemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.entries = make(map[string]*list.Element)
	c.stats = CacheStats{}
	return nil
}

// Stats 返回统计信息
func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
