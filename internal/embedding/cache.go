// Package embedding generates and caches vector embeddings for
// opportunities and company profiles, and adapts an external embedding
// service behind a RATE_LIMIT/TRANSIENT/FATAL error taxonomy
// (spec.md §4.10).
package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Vector key suffixes for the section/chunk embeddings the semantic
// scorer blends in (spec.md §4.3: "title<->capability,
// description<->capability"); shared with internal/embedlookup, which
// resolves these same keys from the vector store once written here.
const (
	TitleSuffix       = ":title"
	DescriptionSuffix = ":description"
	chunkInfix        = ":chunk:"
)

// TitleKey returns baseRecordID's title-section record id.
func TitleKey(baseRecordID string) string { return baseRecordID + TitleSuffix }

// DescriptionKey returns baseRecordID's description-section record id.
func DescriptionKey(baseRecordID string) string { return baseRecordID + DescriptionSuffix }

// ChunkKey returns baseRecordID's record id for chunk index n.
func ChunkKey(baseRecordID string, n int) string {
	return fmt.Sprintf("%s%s%d", baseRecordID, chunkInfix, n)
}

// baseKeyOf strips a known section/chunk suffix from id, returning
// the entity's own vector_uri. Used by InvalidateRecord to find every
// cached variant of an entity without a separate secondary index --
// unlike internal/matchcache (which fronts an opaque cache.Cache with
// no iteration), EmbeddingCache owns its map directly, so a scan is
// the simpler correct tool here.
func baseKeyOf(id string) string {
	if i := strings.Index(id, chunkInfix); i >= 0 {
		return id[:i]
	}
	if strings.HasSuffix(id, TitleSuffix) {
		return strings.TrimSuffix(id, TitleSuffix)
	}
	if strings.HasSuffix(id, DescriptionSuffix) {
		return strings.TrimSuffix(id, DescriptionSuffix)
	}
	return id
}

// CachedEmbedding is one cached match-engine embedding with metadata.
type CachedEmbedding struct {
	RecordID     string
	ContentHash  string // SHA-256 hash of the opportunity/company text that produced Embedding
	ModelVersion string // embedding model version; a mismatch evicts the entry
	Embedding    []float32
	GeneratedAt  time.Time
	AccessCount  int64
	LastAccess   time.Time
}

// EmbeddingCache provides thread-safe caching of generated embeddings,
// keyed by record id (an opportunity/company's vector_uri, or one of
// its section/chunk variants via TitleKey/DescriptionKey/ChunkKey), so
// the embedding worker can skip a round trip to the external embedding
// service when the source text hasn't changed.
type EmbeddingCache struct {
	entries map[string]*CachedEmbedding // recordID -> cached embedding
	mu      sync.RWMutex

	hits         int64
	misses       int64
	evictions    int64
	totalEntries int64

	maxEntries int           // always > 0; Put evicts once this many entries are held
	ttl        time.Duration // <= 0 = no expiry
}

// CacheConfig configures the embedding cache.
type CacheConfig struct {
	MaxEntries int           // default 10000; values <= 0 use the default
	TTL        time.Duration // default 24h; 0 uses the default, a negative value disables expiry
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxEntries: 10000,
		TTL:        24 * time.Hour,
	}
}

// NewEmbeddingCache creates a new embedding cache.
func NewEmbeddingCache(cfg CacheConfig) *EmbeddingCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10000
	}
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}

	return &EmbeddingCache{
		entries:    make(map[string]*CachedEmbedding),
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
	}
}

// Get retrieves a cached embedding for recordID if its content hash
// and model version both still match, and it has not expired.
// Returns (nil, false) on any miss, including a stale hash/version,
// in which case the stale entry is evicted.
func (c *EmbeddingCache) Get(recordID, contentHash, modelVersion string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[recordID]
	if !exists {
		c.misses++
		return nil, false
	}

	if entry.ContentHash != contentHash || entry.ModelVersion != modelVersion {
		delete(c.entries, recordID)
		c.misses++
		c.evictions++
		return nil, false
	}

	if c.ttl > 0 && time.Since(entry.GeneratedAt) > c.ttl {
		delete(c.entries, recordID)
		c.misses++
		c.evictions++
		return nil, false
	}

	entry.AccessCount++
	entry.LastAccess = time.Now()
	c.hits++
	return entry.Embedding, true
}

// Put stores embedding for recordID under contentHash/modelVersion. If
// the cache is at capacity, it evicts the least-recently-used entry
// first.
func (c *EmbeddingCache) Put(recordID, contentHash, modelVersion string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("embedding cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictLRU()
	}

	c.entries[recordID] = &CachedEmbedding{
		RecordID:     recordID,
		ContentHash:  contentHash,
		ModelVersion: modelVersion,
		Embedding:    embedding,
		GeneratedAt:  time.Now(),
		LastAccess:   time.Now(),
	}
	c.totalEntries++
	return nil
}

// evictLRU removes the least recently used entry. Caller must hold
// the write lock.
func (c *EmbeddingCache) evictLRU() {
	var oldestID string
	var oldestTime time.Time

	for id, entry := range c.entries {
		if oldestID == "" || entry.LastAccess.Before(oldestTime) {
			oldestID = id
			oldestTime = entry.LastAccess
		}
	}
	if oldestID != "" {
		delete(c.entries, oldestID)
		c.evictions++
	}
}

// Delete removes recordID's entry, if any.
func (c *EmbeddingCache) Delete(recordID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[recordID]; exists {
		delete(c.entries, recordID)
		c.evictions++
	}
}

// InvalidateRecord drops baseRecordID's full-document embedding along
// with every section/chunk variant cached alongside it (TitleKey,
// DescriptionKey, ChunkKey). Called when a company profile or
// opportunity is edited, so a changed capability statement or
// description doesn't leave stale section embeddings behind it --
// the bulk-invalidate-by-owner counterpart to
// internal/matchcache.Cache.Invalidate, adapted to this cache's flat
// map instead of a secondary index, since this cache has no opaque
// backend to index around.
func (c *EmbeddingCache) InvalidateRecord(baseRecordID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int
	for id := range c.entries {
		if baseKeyOf(id) == baseRecordID {
			delete(c.entries, id)
			c.evictions++
			removed++
		}
	}
	return removed
}

// Clear removes all entries from the cache.
func (c *EmbeddingCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*CachedEmbedding)
}

// Stats returns cache performance statistics.
func (c *EmbeddingCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var hitRate float64
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return CacheStats{
		Entries:      len(c.entries),
		Hits:         c.hits,
		Misses:       c.misses,
		Evictions:    c.evictions,
		TotalEntries: c.totalEntries,
		HitRate:      hitRate,
		MaxEntries:   c.maxEntries,
		TTL:          c.ttl,
	}
}

// CacheStats tracks cache performance metrics.
type CacheStats struct {
	Entries      int
	Hits         int64
	Misses       int64
	Evictions    int64
	TotalEntries int64
	HitRate      float64
	MaxEntries   int
	TTL          time.Duration
}

// String returns a human-readable cache stats summary.
func (s CacheStats) String() string {
	return fmt.Sprintf(
		"Cache{entries=%d/%d, hits=%d, misses=%d, evictions=%d, hitRate=%.2f%%, ttl=%v}",
		s.Entries, s.MaxEntries, s.Hits, s.Misses, s.Evictions, s.HitRate*100, s.TTL,
	)
}

// ComputeContentHash returns a SHA-256 hash of text, used to detect
// content changes for cache invalidation.
func ComputeContentHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
