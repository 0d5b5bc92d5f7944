package match

import (
	"sort"

	"github.com/ederlyn/pairwise/internal/profile"
)

// scoredCandidate pairs a surviving candidate with its aggregated scores and
// the sub-scores the ranker needs for tie-breaking.
type scoredCandidate struct {
	profile    *profile.Profile
	composite  float64
	breakdown  map[string]float64
	proximity  float64
	distanceKm *float64
}

// rank orders candidates by composite score descending. Ties break on
// proximity descending, then last-active descending, then ID ascending so
// identical requests always produce identical orderings.
func rank(cands []scoredCandidate) {
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.composite != b.composite {
			return a.composite > b.composite
		}
		if a.proximity != b.proximity {
			return a.proximity > b.proximity
		}
		if !a.profile.LastActive.Equal(b.profile.LastActive) {
			return a.profile.LastActive.After(b.profile.LastActive)
		}
		return a.profile.ID < b.profile.ID
	})
}

// paginate applies offset and limit after the full sort. An offset past the
// end yields an empty slice.
func paginate(cands []scoredCandidate, limit, offset int) []scoredCandidate {
	if offset >= len(cands) {
		return nil
	}
	cands = cands[offset:]
	if limit > 0 && limit < len(cands) {
		cands = cands[:limit]
	}
	return cands
}
