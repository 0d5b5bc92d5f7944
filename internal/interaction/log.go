// Package interaction provides the prior-decision log (likes, passes,
// super-likes) used as a soft signal by the matching engine.
package interaction

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Decision is the kind of swipe decision one user made about another.
type Decision string

// Recognized decisions.
const (
	DecisionLike      Decision = "like"
	DecisionPass      Decision = "pass"
	DecisionSuperLike Decision = "superlike"
)

// Valid reports whether the decision is one of the recognized values.
func (d Decision) Valid() bool {
	switch d {
	case DecisionLike, DecisionPass, DecisionSuperLike:
		return true
	}
	return false
}

// Record is one stored decision from actor toward target.
type Record struct {
	Actor     string    `json:"actor"`
	Target    string    `json:"target"`
	Decision  Decision  `json:"decision"`
	CreatedAt time.Time `json:"created_at"`
}

// Log defines read/write access to interaction records.
// A later decision by the same actor about the same target replaces the
// earlier one (users change their minds).
// Implementations must be safe for concurrent use.
type Log interface {
	// GetPriorInteraction returns the latest decision actor made about
	// target, or nil when there is none.
	GetPriorInteraction(ctx context.Context, actor, target string) (*Record, error)

	// Record stores a decision, replacing any prior decision for the pair.
	Record(ctx context.Context, rec Record) error
}

// IsMutualPass reports whether both users have passed on each other.
// Used by the filter pipeline: a stored mutual pass is excluded upstream,
// never scored.
func IsMutualPass(ctx context.Context, log Log, a, b string) (bool, error) {
	ab, err := log.GetPriorInteraction(ctx, a, b)
	if err != nil {
		return false, err
	}
	if ab == nil || ab.Decision != DecisionPass {
		return false, nil
	}
	ba, err := log.GetPriorInteraction(ctx, b, a)
	if err != nil {
		return false, err
	}
	return ba != nil && ba.Decision == DecisionPass, nil
}

// InMemoryLog is an in-memory implementation of Log.
// Used for testing and development.
type InMemoryLog struct {
	mu      sync.RWMutex
	records map[[2]string]Record
}

// NewInMemoryLog creates a new in-memory interaction log.
func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{
		records: make(map[[2]string]Record),
	}
}

// GetPriorInteraction returns the latest decision actor made about target.
func (l *InMemoryLog) GetPriorInteraction(ctx context.Context, actor, target string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[[2]string{actor, target}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Record stores a decision, replacing any prior decision for the pair.
func (l *InMemoryLog) Record(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !rec.Decision.Valid() {
		return fmt.Errorf("invalid decision %q", rec.Decision)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[[2]string{rec.Actor, rec.Target}] = rec
	return nil
}
