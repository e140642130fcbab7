// Package samplecache memoizes ephemeris provider results under a quantized
// time key. Nearby instants queried during refinement collapse onto the same
// bin, so the refiner's repeated evaluations around a root mostly hit the
// cache. The cache is a throughput optimization only: provider results are
// pure, so a miss or a race is always safe to resolve by recomputation.
package samplecache

import (
	"container/list"
	"math"
	"sync"
	"time"

	"aspectarian/pkg/ephemeris"
)

// DefaultBinSeconds is the default quantization width.
const DefaultBinSeconds = 1.0

// DefaultCapacity is the default maximum entry count.
const DefaultCapacity = 4096

// Key identifies one cached sample: the body, the quantized time bin, the
// coordinate frame, and the provider configuration signature (which covers
// accuracy mode). Two instants inside the same bin share a key.
type Key struct {
	Body      ephemeris.Body
	Bin       int64
	Frame     ephemeris.Frame
	Signature string
}

// Cache is a bounded, strict-LRU sample cache. Safe for concurrent use; a
// single mutex guards both the map and the recency list. Contention is
// acceptable because the guarded section never calls the provider.
type Cache struct {
	mu         sync.Mutex
	binSeconds float64
	capacity   int
	order      *list.List // front = most recently used
	entries    map[Key]*list.Element

	hits, misses, evictions uint64
}

type entry struct {
	key    Key
	sample ephemeris.Sample
}

// New returns a cache with the given quantization width in seconds and
// maximum entry count. Non-positive arguments select the defaults.
func New(binSeconds float64, capacity int) *Cache {
	if binSeconds <= 0 {
		binSeconds = DefaultBinSeconds
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		binSeconds: binSeconds,
		capacity:   capacity,
		order:      list.New(),
		entries:    make(map[Key]*list.Element),
	}
}

// Bin quantizes an instant into the cache's integer time bin.
func (c *Cache) Bin(t time.Time) int64 {
	sec := float64(t.UnixNano()) / 1e9
	return int64(math.Floor(sec / c.binSeconds))
}

// Get returns the cached sample for a key, marking it most recently used.
func (c *Cache) Get(k Key) (ephemeris.Sample, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[k]
	if !ok {
		c.misses++
		return ephemeris.Sample{}, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*entry).sample, true
}

// Put stores a sample, evicting the least recently used entry when the
// cache is at capacity.
func (c *Cache) Put(k Key, s ephemeris.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[k]; ok {
		el.Value.(*entry).sample = s
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry).key)
			c.evictions++
		}
	}
	c.entries[k] = c.order.PushFront(&entry{key: k, sample: s})
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats reports hit, miss and eviction counters since creation.
func (c *Cache) Stats() (hits, misses, evictions uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.evictions
}

// Wrap composes a provider with a cache. The wrapped provider is itself an
// ephemeris.Provider, so engines and tests compose it transparently.
func Wrap(p ephemeris.Provider, c *Cache) ephemeris.Provider {
	return &cachingProvider{inner: p, cache: c}
}

type cachingProvider struct {
	inner ephemeris.Provider
	cache *Cache
}

func (cp *cachingProvider) Name() string      { return cp.inner.Name() + "+cache" }
func (cp *cachingProvider) Signature() string { return cp.inner.Signature() }

func (cp *cachingProvider) Sample(body ephemeris.Body, t time.Time) (ephemeris.Sample, error) {
	k := Key{
		Body:      body,
		Bin:       cp.cache.Bin(t),
		Frame:     ephemeris.GeocentricEcliptic,
		Signature: cp.inner.Signature(),
	}
	if s, ok := cp.cache.Get(k); ok {
		return s, nil
	}
	s, err := cp.inner.Sample(body, t)
	if err != nil {
		return ephemeris.Sample{}, err
	}
	cp.cache.Put(k, s)
	return s, nil
}
