// Package match implements the candidate matching pipeline: hard filters,
// per-factor scoring, weighted aggregation and deterministic ranking.
package match

// Weights holds the relative importance of each scoring factor. Values need
// not sum to 1; the aggregator normalizes over the factors that are actually
// available for a given pair.
type Weights struct {
	Proximity   float64 `json:"proximity"`
	Age         float64 `json:"age"`
	Interests   float64 `json:"interests"`
	Activity    float64 `json:"activity"`
	Reciprocity float64 `json:"reciprocity"`
	Avatar      float64 `json:"avatar"`
}

// Named weight presets selectable per request.
const (
	PresetBalanced = "balanced"
	PresetNearby   = "nearby"
	PresetAffinity = "affinity"
)

// DefaultPresets returns the built-in weight presets.
//
// balanced spreads weight across all factors for general discovery.
// nearby emphasizes distance and recent activity for local browsing.
// affinity emphasizes shared interests and avatar similarity.
func DefaultPresets() map[string]Weights {
	return map[string]Weights{
		PresetBalanced: {
			Proximity:   0.25,
			Age:         0.15,
			Interests:   0.20,
			Activity:    0.15,
			Reciprocity: 0.15,
			Avatar:      0.10,
		},
		PresetNearby: {
			Proximity:   0.45,
			Age:         0.10,
			Interests:   0.10,
			Activity:    0.25,
			Reciprocity: 0.05,
			Avatar:      0.05,
		},
		PresetAffinity: {
			Proximity:   0.10,
			Age:         0.10,
			Interests:   0.35,
			Activity:    0.05,
			Reciprocity: 0.15,
			Avatar:      0.25,
		},
	}
}
