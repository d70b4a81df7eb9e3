// Package limiter 基于令牌桶的限流器
package limiter

import (
	"sync"
	"time"

	"github.com/juju/ratelimit"
)

// Face 限流器接口，按 key 取令牌桶
type Face interface {
	GetBucket(key string) (*ratelimit.Bucket, bool)
	AddBuckets(rules ...BucketRule) Face
}

// BucketRule 令牌桶规则
type BucketRule struct {
	Key          string
	FillInterval time.Duration
	Capacity     int64
	Quantum      int64
}

// KeyLimiter 按 key 精确匹配规则的限流器
type KeyLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*ratelimit.Bucket
}

// NewKeyLimiter 创建限流器
func NewKeyLimiter() *KeyLimiter {
	return &KeyLimiter{buckets: make(map[string]*ratelimit.Bucket)}
}

func (l *KeyLimiter) GetBucket(key string) (*ratelimit.Bucket, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.buckets[key]
	return b, ok
}

func (l *KeyLimiter) AddBuckets(rules ...BucketRule) Face {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rule := range rules {
		if _, ok := l.buckets[rule.Key]; !ok {
			l.buckets[rule.Key] = ratelimit.NewBucketWithQuantum(rule.FillInterval, rule.Capacity, rule.Quantum)
		}
	}
	return l
}

// Allow 尝试获取一个令牌，key 无规则时放行
func Allow(l Face, key string) bool {
	b, ok := l.GetBucket(key)
	if !ok {
		return true
	}
	return b.TakeAvailable(1) > 0
}

// NewConnBucket 为单个连接创建令牌桶，perSecond <= 0 表示不限流并返回 nil
func NewConnBucket(perSecond, burst int64) *ratelimit.Bucket {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = perSecond
	}
	return ratelimit.NewBucketWithQuantum(time.Second, burst, perSecond)
}
