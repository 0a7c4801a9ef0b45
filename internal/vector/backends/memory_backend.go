// Package backends holds the raw key-value storage underneath
// internal/vector's HNSW-backed VectorStore: opportunity and company
// embeddings, addressed by their vector_uri (optionally suffixed
// ":title", ":description", or ":chunk:<n>" -- see
// internal/embedlookup), with no awareness of the domain objects those
// URIs name.
package backends

import (
	"fmt"
	"sync"

	"github.com/govbizai/matchcore/pkg/vector"
)

// MemoryBackend is an in-memory keyspace of vector_uri → (embedding,
// metadata), plus the uint64 key mapping fogfish/hnsw's graph index
// needs. It never generates an embedding itself -- callers write
// vectors the out-of-scope embedding pipeline already produced.
type MemoryBackend struct {
	// Metadata storage: vector_uri → metadata (exported for HNSW adapter)
	Metadata map[string]map[string]interface{}

	// Vector storage: vector_uri → embedding (exported for HNSW adapter)
	Vectors map[string][]float32

	// vector_uri to uint64 mapping for fogfish/hnsw
	idToKey map[string]uint64
	keyToID map[uint64]string

	// Counter for generating unique keys
	nextKey uint64

	// Thread safety (exported for HNSW adapter)
	Mu sync.RWMutex
}

// NewMemoryBackend creates an empty backend ready to hold
// opportunity/company vectors.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		Metadata: make(map[string]map[string]interface{}),
		Vectors:  make(map[string][]float32),
		idToKey:  make(map[string]uint64),
		keyToID:  make(map[uint64]string),
		nextKey:  1,
	}
}

// Insert stores the embedding and metadata for a vector_uri, replacing
// any prior value and reusing its fogfish/hnsw key so re-embedding an
// opportunity or company doesn't orphan graph nodes.
func (b *MemoryBackend) Insert(id string, vec []float32, metadata map[string]interface{}) (uint64, error) {
	b.Mu.Lock()
	defer b.Mu.Unlock()

	// Check if the vector_uri already exists
	if key, exists := b.idToKey[id]; exists {
		// Update existing
		b.Vectors[id] = vec
		b.Metadata[id] = metadata
		return key, nil
	}

	// Generate new key
	key := b.nextKey
	b.nextKey++

	// Store mappings
	b.idToKey[id] = key
	b.keyToID[key] = id

	// Store vector and metadata
	b.Vectors[id] = vec
	b.Metadata[id] = metadata

	return key, nil
}

// Get retrieves the embedding and metadata stored under a vector_uri.
func (b *MemoryBackend) Get(id string) (*vector.Vector, error) {
	b.Mu.RLock()
	defer b.Mu.RUnlock()

	vec, vecExists := b.Vectors[id]
	if !vecExists {
		return nil, fmt.Errorf("vector_uri not found: %s", id)
	}

	meta := b.Metadata[id]

	return &vector.Vector{
		ID:       id,
		Vector:   vec,
		Metadata: meta,
	}, nil
}

// Delete removes the embedding and metadata stored under a vector_uri,
// e.g. when an opportunity is withdrawn or a company re-embeds with a
// new vector_uri.
func (b *MemoryBackend) Delete(id string) error {
	b.Mu.Lock()
	defer b.Mu.Unlock()

	key, exists := b.idToKey[id]
	if !exists {
		return fmt.Errorf("vector_uri not found: %s", id)
	}

	// Remove all mappings
	delete(b.idToKey, id)
	delete(b.keyToID, key)
	delete(b.Vectors, id)
	delete(b.Metadata, id)

	return nil
}

// GetByKey retrieves ID by HNSW key
func (b *MemoryBackend) GetByKey(key uint64) (string, bool) {
	b.Mu.RLock()
	defer b.Mu.RUnlock()

	id, exists := b.keyToID[key]
	return id, exists
}

// GetKey retrieves HNSW key by ID
func (b *MemoryBackend) GetKey(id string) (uint64, bool) {
	b.Mu.RLock()
	defer b.Mu.RUnlock()

	key, exists := b.idToKey[id]
	return key, exists
}

// Count returns total number of vectors
func (b *MemoryBackend) Count() int64 {
	b.Mu.RLock()
	defer b.Mu.RUnlock()

	return int64(len(b.Vectors))
}

// MemoryUsage estimates memory usage in bytes
func (b *MemoryBackend) MemoryUsage(dimension int) int64 {
	b.Mu.RLock()
	defer b.Mu.RUnlock()

	// Rough estimate:
	// - Vector data: count × dimension × 4 bytes (float32)
	// - Metadata: count × 200 bytes (average)
	// - Maps overhead: count × 100 bytes (average)

	count := int64(len(b.Vectors))
	vectorBytes := count * int64(dimension) * 4
	metadataBytes := count * 200
	mapBytes := count * 100

	return vectorBytes + metadataBytes + mapBytes
}
