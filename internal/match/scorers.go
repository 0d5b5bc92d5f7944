package match

import (
	"math"
	"strings"
	"time"

	"github.com/ederlyn/pairwise/internal/geo"
	"github.com/ederlyn/pairwise/internal/interaction"
)

// Fixed sub-scores used when a factor has no real signal to work with.
const (
	neutralProximity     = 0.5
	missingActivityScore = 0.1
	reciprocityNeutral   = 0.5
	reciprocityLike      = 0.9
	reciprocitySuperLike = 1.0
	reciprocityPass      = 0.1
)

// Factor names as they appear in the per-candidate score breakdown.
const (
	FactorProximity   = "proximity"
	FactorAge         = "age"
	FactorInterests   = "interests"
	FactorActivity    = "activity"
	FactorReciprocity = "reciprocity"
	FactorAvatar      = "avatar"
)

// ProximityScore computes the distance sub-score between two locations and
// returns the great-circle distance when both sides are located.
//
// With an active distance cap the score decays linearly to 0 at the cap.
// Without a cap it follows 1/(1+km) decay, giving 0.5 at 1 km. When either
// location is withheld the score is a neutral 0.5 and no distance is
// reported; exclusion under an active cap happens in the filter pipeline.
func ProximityScore(a, b *geo.Point, maxDistanceKm float64) (float64, *float64) {
	if a == nil || b == nil {
		return neutralProximity, nil
	}

	d := geo.Distance(*a, *b)

	if maxDistanceKm > 0 {
		score := 1 - d/maxDistanceKm
		if score < 0 {
			score = 0
		}
		return score, &d
	}

	return 1 / (1 + d), &d
}

// AgeScore computes the age sub-score against the resolved preference range.
// Ages inside the range score 1; outside, the score decays linearly to 0
// across toleranceYears. A zero bound means that side of the range is open.
func AgeScore(age, minAge, maxAge, toleranceYears int) float64 {
	var gap int
	switch {
	case minAge > 0 && age < minAge:
		gap = minAge - age
	case maxAge > 0 && age > maxAge:
		gap = age - maxAge
	default:
		return 1
	}

	if toleranceYears <= 0 {
		return 0
	}
	score := 1 - float64(gap)/float64(toleranceYears)
	if score < 0 {
		return 0
	}
	return score
}

// InterestScore computes the Jaccard similarity of two interest lists.
// Matching is case-insensitive; duplicates collapse. Either list being empty
// yields 0.
func InterestScore(a, b []string) float64 {
	setA := interestSet(a)
	setB := interestSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for k := range setA {
		if _, ok := setB[k]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func interestSet(interests []string) map[string]struct{} {
	set := make(map[string]struct{}, len(interests))
	for _, s := range interests {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

// ActivityScore computes the recency sub-score with exponential decay:
// exp(-elapsed/halfLife). A candidate active right now scores 1; a missing
// last-active timestamp scores a fixed 0.1.
func ActivityScore(lastActive, now time.Time, halfLife time.Duration) float64 {
	if lastActive.IsZero() {
		return missingActivityScore
	}
	if halfLife <= 0 {
		halfLife = 7 * 24 * time.Hour
	}

	elapsed := now.Sub(lastActive)
	if elapsed <= 0 {
		return 1
	}
	return math.Exp(-float64(elapsed) / float64(halfLife))
}

// ReciprocityScore converts the candidate's prior decision about the
// requester into a sub-score. No prior decision is neutral.
func ReciprocityScore(prior *interaction.Record) float64 {
	if prior == nil {
		return reciprocityNeutral
	}
	switch prior.Decision {
	case interaction.DecisionSuperLike:
		return reciprocitySuperLike
	case interaction.DecisionLike:
		return reciprocityLike
	case interaction.DecisionPass:
		return reciprocityPass
	}
	return reciprocityNeutral
}

// factor is one scored factor with its configured weight and availability.
// Unavailable factors are dropped from normalization entirely.
type factor struct {
	name      string
	score     float64
	weight    float64
	available bool
}

// aggregate combines factor sub-scores into a composite normalized over the
// available factors, clamped to [0, 1]. The breakdown contains only the
// factors that contributed. Zero available weight yields composite 0.
func aggregate(factors []factor) (float64, map[string]float64) {
	breakdown := make(map[string]float64, len(factors))

	var weighted, totalWeight float64
	for _, f := range factors {
		if !f.available {
			continue
		}
		breakdown[f.name] = f.score
		weighted += f.score * f.weight
		totalWeight += f.weight
	}

	if totalWeight <= 0 {
		return 0, breakdown
	}

	composite := weighted / totalWeight
	if composite < 0 {
		composite = 0
	}
	if composite > 1 {
		composite = 1
	}
	return composite, breakdown
}
