package pipeline

import "sync"

// Cache maps fixed-function state keys to pipelines, building each one on first use.
// Failed builds are not cached, so a later Get retries.
type Cache[K comparable] struct {
	mu      *sync.Mutex
	build   func(K) (Pipeline, error)
	entries map[K]Pipeline
	misses  int
}

// NewCache creates a Cache that calls build for keys it has not seen.
//
// Parameters:
//   - build: creates the pipeline for a key
//
// Returns:
//   - *Cache[K]: the cache
func NewCache[K comparable](build func(K) (Pipeline, error)) *Cache[K] {
	return &Cache[K]{
		mu:      &sync.Mutex{},
		build:   build,
		entries: make(map[K]Pipeline),
	}
}

// Get returns the pipeline for key, building it if needed.
//
// Parameters:
//   - key: the fixed-function state key
//
// Returns:
//   - Pipeline: the pipeline
//   - error: the build error, if any
func (c *Cache[K]) Get(key K) (Pipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.entries[key]; ok {
		return p, nil
	}
	c.misses++
	p, err := c.build(key)
	if err != nil {
		return nil, err
	}
	c.entries[key] = p
	return p, nil
}

// Len returns the number of cached pipelines.
func (c *Cache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Misses returns how many Get calls had to build.
func (c *Cache[K]) Misses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.misses
}

// Each calls fn for every cached pipeline. Iteration order is unspecified.
func (c *Cache[K]) Each(fn func(K, Pipeline)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, p := range c.entries {
		fn(k, p)
	}
}

// Clear drops every cached pipeline, e.g. after the surface format or sample count changes.
func (c *Cache[K]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]Pipeline)
}
