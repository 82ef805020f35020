package service

import (
	"sync"
)

// lruCache is a thread-safe least recently used cache
type lruCache[V any] struct {
	mutex    sync.Mutex
	capacity int
	items    map[string]*cacheNode[V]
	head     *cacheNode[V] // most recently used side
	tail     *cacheNode[V]
	hits     int64
	misses   int64
}

type cacheNode[V any] struct {
	key   string
	value V
	prev  *cacheNode[V]
	next  *cacheNode[V]
}

// CacheStats provides statistics about cache performance
type CacheStats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate_percent"`
	Size     int     `json:"current_size"`
	Capacity int     `json:"max_capacity"`
}

func newLRUCache[V any](capacity int) *lruCache[V] {
	if capacity <= 0 {
		capacity = 32
	}
	c := &lruCache[V]{
		capacity: capacity,
		items:    make(map[string]*cacheNode[V]),
		head:     &cacheNode[V]{},
		tail:     &cacheNode[V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, ok := c.items[key]; ok {
		c.moveToFront(node)
		c.hits++
		return node.value, true
	}
	c.misses++
	var zero V
	return zero, false
}

func (c *lruCache[V]) put(key string, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, ok := c.items[key]; ok {
		node.value = value
		c.moveToFront(node)
		return
	}

	node := &cacheNode[V]{key: key, value: value}
	c.addToFront(node)
	c.items[key] = node
	if len(c.items) > c.capacity {
		lru := c.tail.prev
		c.removeNode(lru)
		delete(c.items, lru.key)
	}
}

func (c *lruCache[V]) remove(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, ok := c.items[key]; ok {
		c.removeNode(node)
		delete(c.items, key)
	}
}

// keys lists the cached keys from most to least recently used
func (c *lruCache[V]) keys() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	out := make([]string, 0, len(c.items))
	for n := c.head.next; n != c.tail; n = n.next {
		out = append(out, n.key)
	}
	return out
}

func (c *lruCache[V]) stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	total := c.hits + c.misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}
	return CacheStats{
		Hits:     c.hits,
		Misses:   c.misses,
		HitRate:  hitRate,
		Size:     len(c.items),
		Capacity: c.capacity,
	}
}

func (c *lruCache[V]) moveToFront(node *cacheNode[V]) {
	c.removeNode(node)
	c.addToFront(node)
}

func (c *lruCache[V]) addToFront(node *cacheNode[V]) {
	node.prev = c.head
	node.next = c.head.next
	c.head.next.prev = node
	c.head.next = node
}

func (c *lruCache[V]) removeNode(node *cacheNode[V]) {
	node.prev.next = node.next
	node.next.prev = node.prev
}
