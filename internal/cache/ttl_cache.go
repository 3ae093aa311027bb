package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TTLCache 는 만료 시간과 최대 크기를 가진 LRU 캐시다.
// 가드 판정 결과와 분당 요청 카운터가 같은 구현을 쓴다.
type TTLCache[K comparable, V any] struct {
	mu  sync.Mutex
	lru *expirable.LRU[K, V]
}

// NewTTLCache 는 만료 시간과 최대 크기를 갖는 TTLCache 를 생성한다.
func NewTTLCache[K comparable, V any](maxSize int, ttl time.Duration) *TTLCache[K, V] {
	if maxSize <= 0 {
		maxSize = 1
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return &TTLCache[K, V]{lru: expirable.NewLRU[K, V](maxSize, nil, ttl)}
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, value)
}

// Modify 는 키의 현재 값을 fn 으로 갱신하고 결과를 저장한다. 만료된 항목은 없는 것으로 취급한다.
func (c *TTLCache[K, V]) Modify(key K, fn func(current V, exists bool) V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.lru.Get(key)
	next := fn(current, ok)
	c.lru.Add(key, next)
	return next
}

func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// Purge 는 모든 항목을 비운다.
func (c *TTLCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len 은 만료되지 않은 항목 수다.
func (c *TTLCache[K, V]) Len() int {
	return c.lru.Len()
}
