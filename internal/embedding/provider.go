// Package embedding provides access to avatar embedding vectors and the
// similarity math used by the affinity scorer.
package embedding

import (
	"context"
	"errors"
	"math"
	"sync"
)

// ErrUnavailable indicates the embedding backend cannot serve vectors right
// now. Callers treat this as a degraded signal, not a failure.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Provider returns the avatar embedding vector for a user.
// A nil vector with a nil error means the user has no embedding (no avatar,
// or not yet processed); ErrUnavailable means the backend itself is down.
type Provider interface {
	Vector(ctx context.Context, userID string) ([]float64, error)
}

// CosineSimilarity returns the cosine similarity of two vectors mapped from
// [-1, 1] onto [0, 1]. Mismatched lengths or a zero-magnitude vector yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Floating-point drift can push cos slightly outside [-1, 1].
	cos = math.Max(-1, math.Min(1, cos))
	return (cos + 1) / 2
}

// InMemoryProvider serves vectors from an in-process map.
// Used for testing and development.
type InMemoryProvider struct {
	mu      sync.RWMutex
	vectors map[string][]float64
}

// NewInMemoryProvider creates an empty in-memory provider.
func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{
		vectors: make(map[string][]float64),
	}
}

// Set stores a vector for a user, replacing any existing one.
func (p *InMemoryProvider) Set(userID string, vec []float64) {
	cp := make([]float64, len(vec))
	copy(cp, vec)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.vectors[userID] = cp
}

// Vector returns the stored vector for a user, or nil when none exists.
func (p *InMemoryProvider) Vector(ctx context.Context, userID string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	vec, ok := p.vectors[userID]
	if !ok {
		return nil, nil
	}
	cp := make([]float64, len(vec))
	copy(cp, vec)
	return cp, nil
}

// UnavailableProvider always reports the backend as down. Used when avatar
// similarity is disabled so the scorer degrades instead of erroring out.
type UnavailableProvider struct{}

// Vector always returns ErrUnavailable.
func (UnavailableProvider) Vector(ctx context.Context, userID string) ([]float64, error) {
	return nil, ErrUnavailable
}
