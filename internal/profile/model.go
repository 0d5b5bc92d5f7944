// Package profile provides the user profile model and repository used by the
// matching engine. Profiles are owned by the external profile-management
// subsystem; the engine only reads them.
package profile

import (
	"time"

	"github.com/ederlyn/pairwise/internal/geo"
)

// Preferences holds a user's configured matching preferences.
type Preferences struct {
	// MinAge and MaxAge bound the preferred candidate age range.
	// Zero values mean "no bound on this side".
	MinAge int `json:"min_age"`
	MaxAge int `json:"max_age"`

	// Genders lists acceptable candidate genders. Empty means any.
	Genders []string `json:"genders,omitempty"`

	// MaxDistanceKm is the default search radius. Zero means unbounded.
	MaxDistanceKm float64 `json:"max_distance_km"`
}

// WantsGender reports whether the given gender is acceptable under the
// preference set. An empty gender list accepts everyone.
func (p Preferences) WantsGender(gender string) bool {
	if len(p.Genders) == 0 {
		return true
	}
	for _, g := range p.Genders {
		if g == gender {
			return true
		}
	}
	return false
}

// Profile is a read-only view of a user record as the matching engine sees it.
type Profile struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name"`
	Gender      string      `json:"gender"`
	BirthDate   time.Time   `json:"birth_date"`
	Location    *geo.Point  `json:"location,omitempty"` // nil when the user withholds location
	Interests   []string    `json:"interests,omitempty"`
	LastActive  time.Time   `json:"last_active"` // zero value when never seen
	CreatedAt   time.Time   `json:"created_at"`
	Preferences Preferences `json:"preferences"`
}

// Age returns the user's age in whole years at the given reference time.
func (p *Profile) Age(now time.Time) int {
	years := now.Year() - p.BirthDate.Year()
	// Subtract a year if the birthday has not occurred yet this year.
	anniversary := p.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// Clone returns a deep copy so repository callers cannot mutate stored state.
func (p *Profile) Clone() *Profile {
	cp := *p
	if p.Location != nil {
		loc := *p.Location
		cp.Location = &loc
	}
	if p.Interests != nil {
		cp.Interests = make([]string, len(p.Interests))
		copy(cp.Interests, p.Interests)
	}
	if p.Preferences.Genders != nil {
		cp.Preferences.Genders = make([]string, len(p.Preferences.Genders))
		copy(cp.Preferences.Genders, p.Preferences.Genders)
	}
	return &cp
}
