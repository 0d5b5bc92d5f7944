// Package exclusion provides the symmetric block registry consulted by the
// matching engine. A block created by either party hides both users from
// each other.
package exclusion

import (
	"context"
	"sync"
)

// Registry defines lookup and mutation of block edges.
// IsBlocked must be symmetric: the order of a and b never matters.
// Implementations must be safe for concurrent use.
type Registry interface {
	// IsBlocked reports whether a block edge exists between the two users,
	// in either direction.
	IsBlocked(ctx context.Context, a, b string) (bool, error)

	// Block records a block created by actor against target.
	Block(ctx context.Context, actor, target string) error

	// Unblock removes a block created by actor against target.
	// Removing one direction does not remove a block the other party created.
	Unblock(ctx context.Context, actor, target string) error
}

// InMemoryRegistry is an in-memory implementation of Registry.
// Used for testing and development.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	edges map[[2]string]struct{} // ordered (actor, target) pairs
}

// NewInMemoryRegistry creates a new in-memory block registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		edges: make(map[[2]string]struct{}),
	}
}

// IsBlocked reports whether a block edge exists in either direction.
func (r *InMemoryRegistry) IsBlocked(ctx context.Context, a, b string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.edges[[2]string{a, b}]; ok {
		return true, nil
	}
	_, ok := r.edges[[2]string{b, a}]
	return ok, nil
}

// Block records a block created by actor against target.
func (r *InMemoryRegistry) Block(ctx context.Context, actor, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.edges[[2]string{actor, target}] = struct{}{}
	return nil
}

// Unblock removes a block created by actor against target.
func (r *InMemoryRegistry) Unblock(ctx context.Context, actor, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.edges, [2]string{actor, target})
	return nil
}
