package ui

import (
	"hash/fnv"
	"strconv"
	"sync"
)

// RenderCache memoises expensive renders such as the glamour tutorial pages.
// When full, the whole cache is dropped.
type RenderCache struct {
	mu      sync.Mutex
	entries map[uint64]string
	maxSize int
	hits    int
	misses  int
}

// NewRenderCache creates a cache holding at most maxSize entries.
func NewRenderCache(maxSize int) *RenderCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &RenderCache{entries: make(map[uint64]string), maxSize: maxSize}
}

// tutorialCache holds rendered tutorial pages keyed by page, width and theme.
var tutorialCache = NewRenderCache(32)

// ComputeKey hashes the inputs into a cache key. Only strings, ints and
// bools contribute.
func ComputeKey(inputs ...interface{}) uint64 {
	h := fnv.New64a()
	for _, input := range inputs {
		switch v := input.(type) {
		case string:
			h.Write([]byte(v))
		case int:
			h.Write([]byte(strconv.Itoa(v)))
		case bool:
			if v {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
		}
		h.Write([]byte{0xff})
	}
	return h.Sum64()
}

// GetOrCompute returns the cached value for key, computing and storing it
// when missing.
func (rc *RenderCache) GetOrCompute(key uint64, compute func() string) string {
	rc.mu.Lock()
	if content, ok := rc.entries[key]; ok {
		rc.hits++
		rc.mu.Unlock()
		return content
	}
	rc.misses++
	rc.mu.Unlock()

	content := compute()

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if len(rc.entries) >= rc.maxSize {
		rc.entries = make(map[uint64]string)
	}
	rc.entries[key] = content
	return content
}

// Stats returns hit and miss counts.
func (rc *RenderCache) Stats() (hits, misses int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.hits, rc.misses
}

// Len returns the number of cached entries.
func (rc *RenderCache) Len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.entries)
}

// Clear empties the cache.
func (rc *RenderCache) Clear() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.entries = make(map[uint64]string)
}
