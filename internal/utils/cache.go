package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/patrickmn/go-cache"
)

// NewCache 创建 go-cache 实例，默认过期时间 5 分钟，清理间隔 10 分钟
func NewCache() *cache.Cache {
	return cache.New(5*time.Minute, 10*time.Minute)
}

// CacheItem 包装实际的数据，增加过期时间
type CacheItem[T any] struct {
	Value     T
	ExpiredAt time.Time
}

// TTLCache 带过期时间的 LRU 缓存
type TTLCache[T any] struct {
	storage *lru.Cache[string, CacheItem[T]]
	ttl     time.Duration
	now     func() time.Time
}

// NewTTLCache size 是最大缓存条数，ttl 是数据有效期
func NewTTLCache[T any](size int, ttl time.Duration) *TTLCache[T] {
	if size <= 0 {
		size = 128
	}
	// lru.New 是线程安全的，size > 0 时不会返回错误
	c, _ := lru.New[string, CacheItem[T]](size)
	return &TTLCache[T]{
		storage: c,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Set 写入或覆盖
func (c *TTLCache[T]) Set(key string, value T) {
	c.storage.Add(key, CacheItem[T]{
		Value:     value,
		ExpiredAt: c.now().Add(c.ttl),
	})
}

// Get 读取（带过期检查）
func (c *TTLCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}

	if c.now().After(item.ExpiredAt) {
		c.storage.Remove(key)
		return zero, false
	}

	return item.Value, true
}

// Delete 删除
func (c *TTLCache[T]) Delete(key string) {
	c.storage.Remove(key)
}

// Clear 清空
func (c *TTLCache[T]) Clear() {
	c.storage.Purge()
}

// Len 当前条数（含未清理的过期项）
func (c *TTLCache[T]) Len() int {
	return c.storage.Len()
}
