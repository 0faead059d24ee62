package crop

import (
	"container/list"
	"sync"
)

// probabilityCache is an LRU of classifier outputs keyed by feature vector.
// The feature space is small and fixed, so repeated requests skip inference.
type probabilityCache struct {
	capacity int
	cache    map[FeatureVector]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   FeatureVector
	value []float32
}

// newProbabilityCache creates a cache with the given capacity; nil when capacity <= 0.
func newProbabilityCache(capacity int) *probabilityCache {
	if capacity <= 0 {
		return nil
	}
	return &probabilityCache{
		capacity: capacity,
		cache:    make(map[FeatureVector]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached probabilities for key if present. Callers must not
// modify the returned slice.
func (c *probabilityCache) Get(key FeatureVector) ([]float32, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

// Set stores value for key, evicting the least recently used entry at capacity.
func (c *probabilityCache) Set(key FeatureVector, value []float32) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	elem := c.lru.PushFront(&cacheEntry{key: key, value: value})
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached vectors.
func (c *probabilityCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
