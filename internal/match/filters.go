package match

import (
	"context"
	"time"

	"github.com/ederlyn/pairwise/internal/geo"
	"github.com/ederlyn/pairwise/internal/interaction"
	"github.com/ederlyn/pairwise/internal/profile"
)

// Filters holds the optional per-request hard constraints. Zero values mean
// "not set" and fall back to the requester's stored preferences where one
// exists.
type Filters struct {
	MinAge        int     `json:"min_age"`
	MaxAge        int     `json:"max_age"`
	MaxDistanceKm float64 `json:"max_distance_km"`
	OnlineOnly    bool    `json:"online_only"`
	NewUsersOnly  bool    `json:"new_users_only"`
}

// FilterReason identifies which hard predicate removed a candidate.
// Used as a metric label.
type FilterReason string

const (
	FilterSelf     FilterReason = "self"
	FilterCorrupt  FilterReason = "corrupt"
	FilterBlocked  FilterReason = "blocked"
	FilterGender   FilterReason = "gender"
	FilterAge      FilterReason = "age"
	FilterPassed   FilterReason = "passed"
	FilterDistance FilterReason = "distance"
	FilterOffline  FilterReason = "offline"
	FilterNotNew   FilterReason = "not_new"
)

// resolveAgeBounds picks the effective age range: explicit request filters
// win over the requester's stored preferences, per field.
func resolveAgeBounds(f Filters, prefs profile.Preferences) (int, int) {
	minAge, maxAge := prefs.MinAge, prefs.MaxAge
	if f.MinAge > 0 {
		minAge = f.MinAge
	}
	if f.MaxAge > 0 {
		maxAge = f.MaxAge
	}
	return minAge, maxAge
}

// resolveDistanceCap picks the effective distance cap in kilometers.
// Zero means unbounded.
func resolveDistanceCap(f Filters, prefs profile.Preferences) float64 {
	if f.MaxDistanceKm > 0 {
		return f.MaxDistanceKm
	}
	return prefs.MaxDistanceKm
}

// excludeCandidate runs the ordered hard predicates against one candidate.
// It returns the first matching exclusion reason, or "" when the candidate
// survives. Predicates are ordered cheapest first so candidates drop out
// before any store lookups where possible.
func (e *Engine) excludeCandidate(ctx context.Context, requester, cand *profile.Profile, f Filters, now time.Time) (FilterReason, error) {
	if cand.ID == requester.ID {
		return FilterSelf, nil
	}
	if cand.Location != nil && !cand.Location.Valid() {
		return FilterCorrupt, nil
	}

	blocked, err := e.blocks.IsBlocked(ctx, requester.ID, cand.ID)
	if err != nil {
		return "", unavailable("checking block edge", err)
	}
	if blocked {
		return FilterBlocked, nil
	}

	if !requester.Preferences.WantsGender(cand.Gender) {
		return FilterGender, nil
	}

	minAge, maxAge := resolveAgeBounds(f, requester.Preferences)
	age := cand.Age(now)
	if (minAge > 0 && age < minAge) || (maxAge > 0 && age > maxAge) {
		return FilterAge, nil
	}

	excluded, err := e.passExcluded(ctx, requester.ID, cand.ID)
	if err != nil {
		return "", err
	}
	if excluded {
		return FilterPassed, nil
	}

	if cap := resolveDistanceCap(f, requester.Preferences); cap > 0 {
		if requester.Location == nil || cand.Location == nil {
			return FilterDistance, nil
		}
		if geo.Distance(*requester.Location, *cand.Location) > cap {
			return FilterDistance, nil
		}
	}

	if f.OnlineOnly {
		if cand.LastActive.IsZero() || now.Sub(cand.LastActive) > e.policy.OnlineWindow {
			return FilterOffline, nil
		}
	}

	if f.NewUsersOnly {
		if cand.CreatedAt.IsZero() || now.Sub(cand.CreatedAt) > e.policy.NewUserWindow {
			return FilterNotNew, nil
		}
	}

	return "", nil
}

// passExcluded decides whether prior pass decisions remove the candidate.
// Under the exclude policy any pass by the requester does; under penalize
// only a mutual pass does, and the one-sided pass is handled by the
// reciprocity scorer instead.
func (e *Engine) passExcluded(ctx context.Context, requesterID, candID string) (bool, error) {
	prior, err := e.interactions.GetPriorInteraction(ctx, requesterID, candID)
	if err != nil {
		return false, unavailable("reading prior interaction", err)
	}
	if prior == nil || prior.Decision != interaction.DecisionPass {
		return false, nil
	}
	if e.policy.PassPolicy == PassPolicyExclude {
		return true, nil
	}

	reverse, err := e.interactions.GetPriorInteraction(ctx, candID, requesterID)
	if err != nil {
		return false, unavailable("reading prior interaction", err)
	}
	return reverse != nil && reverse.Decision == interaction.DecisionPass, nil
}
