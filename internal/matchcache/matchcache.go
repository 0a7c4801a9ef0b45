// Package matchcache wraps internal/cache.Cache with the match-result
// specific behavior the orchestrator needs: keying by content
// fingerprint, a secondary per-company index so a company's matches can
// be invalidated in bulk, and the guarantee that cache failures never
// fail the caller (spec.md §4.1: "cache errors never fatal; on get
// error treat as a miss, on put error log and proceed").
package matchcache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/govbizai/matchcore/internal/cache"
	"github.com/govbizai/matchcore/pkg/types"
	"go.uber.org/zap"
)

const keyPrefix = "match:"

// indexKey returns the secondary-index key holding the set of
// fingerprints cached for a given company.
func indexKey(companyID string) string {
	return "match-index:" + companyID
}

// Cache is the match-result cache (spec.md §4.1).
type Cache struct {
	backend cache.Cache
	logger  *zap.Logger

	// indexMu serializes read-modify-write of the per-company index so
	// concurrent Put calls for the same company don't clobber each
	// other's additions.
	indexMu sync.Mutex
}

// New wraps backend, a generic key-value cache (LRU, Redis or hybrid),
// as a match-result cache.
func New(backend cache.Cache, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{backend: backend, logger: logger}
}

// Get returns the cached MatchResult for fingerprint fp, or
// (nil, false) on a miss or any cache-layer failure. It never returns
// an error: a failed lookup is indistinguishable from a true miss.
func (c *Cache) Get(fp string) (*types.MatchResult, bool) {
	raw, ok := c.backend.Get(keyPrefix + fp)
	if !ok {
		return nil, false
	}

	result, err := decodeMatchResult(raw)
	if err != nil {
		c.logger.Warn("matchcache: decode failed, treating as miss",
			zap.String("fingerprint", fp), zap.Error(err))
		return nil, false
	}
	return result, true
}

// Put stores result under fingerprint fp and records fp in the
// company's secondary index. A failure in either step is logged and
// swallowed; it never propagates to the caller.
func (c *Cache) Put(fp string, result *types.MatchResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("matchcache: encode failed, skipping put",
			zap.String("fingerprint", fp), zap.Error(err))
		return
	}
	c.backend.Set(keyPrefix+fp, string(raw))
	c.addToIndex(result.CompanyID, fp)
}

// Invalidate drops every cached MatchResult known to belong to
// companyID, per the company's secondary index, then clears the index
// itself. This is best-effort: a previously uncached result (e.g. one
// evicted from L1 but still alive behind a stale index entry) simply
// produces a harmless no-op delete.
func (c *Cache) Invalidate(companyID string) {
	fps := c.readIndex(companyID)
	for _, fp := range fps {
		c.backend.Delete(keyPrefix + fp)
	}
	c.backend.Delete(indexKey(companyID))
}

func (c *Cache) addToIndex(companyID, fp string) {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	fps := c.readIndexLocked(companyID)
	for _, existing := range fps {
		if existing == fp {
			return
		}
	}
	fps = append(fps, fp)

	raw, err := json.Marshal(fps)
	if err != nil {
		c.logger.Warn("matchcache: index encode failed",
			zap.String("company_id", companyID), zap.Error(err))
		return
	}
	c.backend.Set(indexKey(companyID), string(raw))
}

func (c *Cache) readIndex(companyID string) []string {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()
	return c.readIndexLocked(companyID)
}

func (c *Cache) readIndexLocked(companyID string) []string {
	raw, ok := c.backend.Get(indexKey(companyID))
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	var fps []string
	if err := json.Unmarshal([]byte(s), &fps); err != nil {
		return nil
	}
	return fps
}

func decodeMatchResult(raw interface{}) (*types.MatchResult, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("matchcache: unexpected cached value type %T", raw)
	}
	var result types.MatchResult
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DefaultTTL is the standard cache lifetime for match results: 24h,
// the same as the default cache TTL, and distinct from the much longer
// types.MatchResultTTL retention that applies to stored match results.
const DefaultTTL = 24 * time.Hour
