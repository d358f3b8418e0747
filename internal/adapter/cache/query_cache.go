package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"supportbot/internal/domain"
)

// QueryCache is an LRU cache of retrieval results with a TTL. Entries are
// tagged with the store generation they were computed against and are
// dropped once the store has changed.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	results    []domain.Chunk
	timestamp  time.Time
	generation uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 64
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// cacheKey hashes the length-prefixed query followed by k.
func cacheKey(query string, topK int) string {
	data := binary.AppendUvarint(nil, uint64(len(query)))
	data = append(data, query...)
	data = binary.AppendUvarint(data, uint64(topK))
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// Get returns cached results for query computed at the given generation.
func (c *QueryCache) Get(query string, topK int, generation uint64) ([]domain.Chunk, bool) {
	key := cacheKey(query, topK)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if c.now().Sub(entry.timestamp) > c.ttl || entry.generation != generation {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false
	}

	c.moveToEnd(key)
	return append([]domain.Chunk(nil), entry.results...), true
}

func (c *QueryCache) Put(query string, topK int, generation uint64, results []domain.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, topK)
	entry := &cacheEntry{
		results:    append([]domain.Chunk(nil), results...),
		timestamp:  c.now(),
		generation: generation,
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
}

func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
}

func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Retriever is a fixed-k retriever whose results may be cached.
type Retriever interface {
	GetRelevant(ctx context.Context, query string) ([]domain.Chunk, error)
	K() int
}

// Versioned reports the current generation of the underlying store.
type Versioned interface {
	Generation() uint64
}

type CachedRetriever struct {
	retriever Retriever
	source    Versioned
	cache     *QueryCache
}

func NewCachedRetriever(retriever Retriever, source Versioned, cache *QueryCache) *CachedRetriever {
	return &CachedRetriever{
		retriever: retriever,
		source:    source,
		cache:     cache,
	}
}

func (r *CachedRetriever) GetRelevant(ctx context.Context, query string) ([]domain.Chunk, error) {
	gen := r.source.Generation()
	if results, hit := r.cache.Get(query, r.retriever.K(), gen); hit {
		return results, nil
	}

	results, err := r.retriever.GetRelevant(ctx, query)
	if err != nil {
		return nil, err
	}

	r.cache.Put(query, r.retriever.K(), gen, results)
	return results, nil
}

func (r *CachedRetriever) K() int {
	return r.retriever.K()
}
