package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cachedMatch is a minimal stand-in for the orchestrator's
// match-result payload, just enough shape (a fingerprint-keyed score
// and component breakdown) to exercise the cache layers' JSON
// serializer without pulling in pkg/types.
type cachedMatch struct {
	FingerprintID string             `json:"fingerprint_id"`
	CompanyID     string             `json:"company_id"`
	TotalScore    float64            `json:"total_score"`
	Components    map[string]float64 `json:"components"`
}

func sampleMatch(fp string) cachedMatch {
	return cachedMatch{
		FingerprintID: fp,
		CompanyID:     "COMPANY-42",
		TotalScore:    0.82,
		Components:    map[string]float64{"semantic_similarity": 0.9, "naics_alignment": 0.75},
	}
}

// newFingerprintRedisCache wires a RedisCache directly against a
// miniredis instance, bypassing NewRedisCache's connection probe
// (miniredis doesn't support every admin command NewRedisCache pings).
func newFingerprintRedisCache(t *testing.T, keyPrefix string) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)

	var port int
	_, err := fmt.Sscanf(srv.Port(), "%d", &port)
	require.NoError(t, err)

	cfg := &RedisConfig{
		Host:      srv.Host(),
		Port:      port,
		PoolSize:  10,
		TTL:       time.Minute,
		KeyPrefix: keyPrefix,
	}
	client := redis.NewClient(&redis.Options{
		Addr:             fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		PoolSize:         cfg.PoolSize,
		DisableIndentity: true,
	})

	rc, cancel := newRedisCacheFromClient(client, cfg)
	t.Cleanup(func() {
		cancel()
		client.Close()
		srv.Close()
	})
	return rc, srv
}

func TestRedisCache_RoundTripsFingerprintedMatch(t *testing.T) {
	rc, _ := newFingerprintRedisCache(t, "match:")
	match := sampleMatch("fp-aaaa1111")

	rc.Set(match.FingerprintID, match)

	val, ok := rc.Get(match.FingerprintID)
	require.True(t, ok)
	decoded, ok := val.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, match.CompanyID, decoded["company_id"])
	assert.InDelta(t, match.TotalScore, decoded["total_score"], 0.0001)
}

func TestRedisCache_MissingFingerprintIsAMiss(t *testing.T) {
	rc, _ := newFingerprintRedisCache(t, "match:")

	_, ok := rc.Get("fp-never-cached")
	assert.False(t, ok)
}

func TestRedisCache_DeleteRemovesFingerprint(t *testing.T) {
	rc, _ := newFingerprintRedisCache(t, "match:")
	match := sampleMatch("fp-bbbb2222")
	rc.Set(match.FingerprintID, match)

	rc.Delete(match.FingerprintID)

	_, ok := rc.Get(match.FingerprintID)
	assert.False(t, ok)
}

func TestRedisCache_ClearWipesOnlyItsKeyPrefix(t *testing.T) {
	rc, srv := newFingerprintRedisCache(t, "match:")
	rc.Set("fp-cccc3333", sampleMatch("fp-cccc3333"))
	require.NoError(t, srv.Set("company-index:COMPANY-99", "fp-ddddd"))

	rc.Clear()

	_, ok := rc.Get("fp-cccc3333")
	assert.False(t, ok)
	assert.True(t, srv.Exists("company-index:COMPANY-99"), "keys outside the cache's prefix must survive Clear")
}

func TestRedisCache_TTLReflectsConfiguredFingerprintLifetime(t *testing.T) {
	rc, _ := newFingerprintRedisCache(t, "match:")
	match := sampleMatch("fp-eeee4444")
	rc.Set(match.FingerprintID, match)

	ttl := rc.GetTTL(match.FingerprintID)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestRedisCache_ExistsTracksFingerprintPresence(t *testing.T) {
	rc, _ := newFingerprintRedisCache(t, "match:")
	match := sampleMatch("fp-ffff5555")

	assert.False(t, rc.Exists(match.FingerprintID))
	rc.Set(match.FingerprintID, match)
	assert.True(t, rc.Exists(match.FingerprintID))
}

func TestRedisCache_ConcurrentFingerprintWrites(t *testing.T) {
	rc, _ := newFingerprintRedisCache(t, "match:")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			fp := fmt.Sprintf("fp-concurrent-%d", i)
			rc.Set(fp, sampleMatch(fp))
		}()
	}
	wg.Wait()

	stats := rc.Stats()
	assert.EqualValues(t, 50, stats.Size)
}

func TestHybridCache_PromotesFingerprintFromL2ToL1(t *testing.T) {
	l2, srv := newFingerprintRedisCache(t, "hybrid:")
	defer srv.Close()

	hc := &HybridCache{l1Local: NewLRU(100, time.Minute), l2Redis: l2, l2Enabled: true}
	match := sampleMatch("fp-promote-0001")

	hc.l2Redis.Set(match.FingerprintID, match)

	_, ok := hc.l1Local.Get(match.FingerprintID)
	assert.False(t, ok, "must not already be warm in L1 before the first Get")

	_, ok = hc.Get(match.FingerprintID)
	require.True(t, ok)

	_, ok = hc.l1Local.Get(match.FingerprintID)
	assert.True(t, ok, "an L2 hit should promote the fingerprint into L1")
}

func TestHybridCache_FallsBackToL1WhenL2Disabled(t *testing.T) {
	hc := &HybridCache{l1Local: NewLRU(100, time.Minute), l2Enabled: false}
	match := sampleMatch("fp-l1-only-0001")

	hc.Set(match.FingerprintID, match)

	val, ok := hc.Get(match.FingerprintID)
	require.True(t, ok)
	assert.Equal(t, match, val)
}

func TestHybridCache_ClearDropsBothTiers(t *testing.T) {
	l2, srv := newFingerprintRedisCache(t, "hybrid:")
	defer srv.Close()

	hc := &HybridCache{l1Local: NewLRU(100, time.Minute), l2Redis: l2, l2Enabled: true}
	match := sampleMatch("fp-clear-0001")
	hc.Set(match.FingerprintID, match)

	hc.Clear()

	_, ok := hc.l1Local.Get(match.FingerprintID)
	assert.False(t, ok)
	_, ok = hc.l2Redis.Get(match.FingerprintID)
	assert.False(t, ok)
}
