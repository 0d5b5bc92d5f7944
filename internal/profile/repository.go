package profile

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when a requested profile does not exist.
var ErrNotFound = errors.New("profile not found")

// ListOptions narrows the candidate pool read from storage. These are coarse
// pre-filters; the match filter pipeline applies the full eligibility rules.
type ListOptions struct {
	// ExcludeID removes one profile from the listing (typically the requester).
	ExcludeID string

	// Limit bounds the page size. Zero means no limit.
	Limit int

	// AfterID resumes listing after the given profile ID (keyset paging).
	AfterID string
}

// Repository defines read access to user profiles.
// Implementations must be safe for concurrent use.
type Repository interface {
	// GetByID retrieves a profile by its ID. Returns ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*Profile, error)

	// ListCandidates returns profiles ordered by ID for stable paging.
	ListCandidates(ctx context.Context, opts ListOptions) ([]*Profile, error)

	// Upsert stores or replaces a profile. Mutations originate from the
	// external profile-management subsystem; the engine itself never writes.
	Upsert(ctx context.Context, p *Profile) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewInMemoryRepository creates a new in-memory profile repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		profiles: make(map[string]*Profile),
	}
}

// GetByID retrieves a profile by its ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// ListCandidates returns profiles ordered by ID for stable paging.
func (r *InMemoryRepository) ListCandidates(ctx context.Context, opts ListOptions) ([]*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		if id == opts.ExcludeID {
			continue
		}
		if opts.AfterID != "" && id <= opts.AfterID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if opts.Limit > 0 && len(ids) > opts.Limit {
		ids = ids[:opts.Limit]
	}

	result := make([]*Profile, 0, len(ids))
	for _, id := range ids {
		result = append(result, r.profiles[id].Clone())
	}
	return result, nil
}

// Upsert stores or replaces a profile.
func (r *InMemoryRepository) Upsert(ctx context.Context, p *Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[p.ID] = p.Clone()
	return nil
}
