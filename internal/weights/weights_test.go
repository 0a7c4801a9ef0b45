package weights

import (
	"testing"
	"time"

	"github.com/govbizai/matchcore/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestResolver_DefaultsWithNilStore(t *testing.T) {
	r := New(nil)
	w := r.Resolve("tenant-a")
	assert.Equal(t, types.DefaultWeights(), w)
}

func TestResolver_TenantOverrideNormalized(t *testing.T) {
	store := NewInMemoryStore()
	store.Set("tenant-a", types.Weights{"naics_alignment": 2, "keyword_matching": 2})

	r := New(store)
	w := r.Resolve("tenant-a")

	var sum float64
	for _, v := range w {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, 0.5, w["naics_alignment"], 1e-9)
}

func TestResolver_UnknownTenantFallsBackToDefault(t *testing.T) {
	store := NewInMemoryStore()
	r := New(store)
	assert.Equal(t, types.DefaultWeights(), r.Resolve("no-such-tenant"))
}

func TestResolver_CachesWithinTTL(t *testing.T) {
	store := NewInMemoryStore()
	store.Set("tenant-a", types.Weights{"naics_alignment": 1})
	r := New(store)
	r.ttl = 50 * time.Millisecond

	first := r.Resolve("tenant-a")

	store.Set("tenant-a", types.Weights{"keyword_matching": 1})
	second := r.Resolve("tenant-a")
	assert.Equal(t, first, second, "cached value should be reused within TTL")

	time.Sleep(60 * time.Millisecond)
	third := r.Resolve("tenant-a")
	assert.InDelta(t, 1.0, third["keyword_matching"], 1e-9)
}

func TestResolver_Invalidate(t *testing.T) {
	store := NewInMemoryStore()
	store.Set("tenant-a", types.Weights{"naics_alignment": 1})
	r := New(store)

	_ = r.Resolve("tenant-a")
	store.Set("tenant-a", types.Weights{"keyword_matching": 1})
	r.Invalidate("tenant-a")

	refreshed := r.Resolve("tenant-a")
	assert.InDelta(t, 1.0, refreshed["keyword_matching"], 1e-9)
}

func TestResolver_ResolveWithOverride(t *testing.T) {
	r := New(nil)
	w := r.ResolveWithOverride("tenant-a", map[string]float64{"naics_alignment": 0.9})
	assert.InDelta(t, 1.0, sumWeights(w), 1e-9)
	assert.Greater(t, w["naics_alignment"], types.DefaultWeights()["naics_alignment"])
}

func TestResolver_ResolveWithEmptyOverride(t *testing.T) {
	r := New(nil)
	w := r.ResolveWithOverride("tenant-a", nil)
	assert.Equal(t, types.DefaultWeights(), w)
}

func sumWeights(w types.Weights) float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}
