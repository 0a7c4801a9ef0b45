package types

// ScorerNames lists the eight scoring components in the stable order
// used for tie-breaking (spec.md §4.4: "stable order by component name
// ascending").
var ScorerNames = []string{
	"capacity_fit",
	"certification_bonus",
	"geographic_match",
	"keyword_matching",
	"naics_alignment",
	"past_performance",
	"recency_factor",
	"semantic_similarity",
}

// Weights is a per-component weight vector. Keys are scorer names.
type Weights map[string]float64

// DefaultWeights returns the default weight vector from spec.md §4.3.
func DefaultWeights() Weights {
	return Weights{
		"semantic_similarity":  0.25,
		"keyword_matching":     0.15,
		"naics_alignment":      0.15,
		"past_performance":     0.20,
		"certification_bonus":  0.10,
		"geographic_match":     0.05,
		"capacity_fit":         0.05,
		"recency_factor":       0.05,
	}
}

// Normalize clamps negative weights to zero and rescales so weights sum
// to 1.0, per spec.md §4.5. An empty/zero-sum input returns the default
// weights.
func (w Weights) Normalize() Weights {
	clamped := make(Weights, len(w))
	var sum float64
	for name, v := range w {
		if v < 0 {
			v = 0
		}
		clamped[name] = v
		sum += v
	}
	if sum <= 0 {
		return DefaultWeights()
	}
	out := make(Weights, len(clamped))
	for name, v := range clamped {
		out[name] = v / sum
	}
	return out
}

// Clone returns a shallow copy safe for independent mutation.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}
