package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/ederlyn/pairwise/internal/embedding"
	"github.com/ederlyn/pairwise/internal/exclusion"
	"github.com/ederlyn/pairwise/internal/interaction"
	"github.com/ederlyn/pairwise/internal/profile"
	"github.com/ederlyn/pairwise/internal/tracing"
)

// Pass policies for candidates the requester previously passed on.
const (
	PassPolicyExclude  = "exclude"
	PassPolicyPenalize = "penalize"
)

// Request bounds enforced during validation.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// candidatePageSize is the keyset page size used when draining the
// candidate pool from the profile repository.
const candidatePageSize = 500

// Policy holds the tunable matching behavior that is not per-request.
type Policy struct {
	PassPolicy        string
	DefaultPreset     string
	AgeToleranceYears int
	ActivityHalfLife  time.Duration
	OnlineWindow      time.Duration
	NewUserWindow     time.Duration
}

// withDefaults fills unset policy fields.
func (p Policy) withDefaults() Policy {
	if p.PassPolicy == "" {
		p.PassPolicy = PassPolicyExclude
	}
	if p.DefaultPreset == "" {
		p.DefaultPreset = PresetBalanced
	}
	if p.AgeToleranceYears == 0 {
		p.AgeToleranceYears = 5
	}
	if p.ActivityHalfLife == 0 {
		p.ActivityHalfLife = 7 * 24 * time.Hour
	}
	if p.OnlineWindow == 0 {
		p.OnlineWindow = 30 * time.Minute
	}
	if p.NewUserWindow == 0 {
		p.NewUserWindow = 7 * 24 * time.Hour
	}
	return p
}

// Request is one match query for the authenticated requester.
type Request struct {
	RequesterID string  `json:"requester_id"`
	Limit       int     `json:"limit"`
	Offset      int     `json:"offset"`
	Preset      string  `json:"preset"`
	Filters     Filters `json:"filters"`
}

// Candidate is one ranked result.
type Candidate struct {
	CandidateID    string             `json:"candidate_id"`
	DisplayName    string             `json:"display_name"`
	CompositeScore float64            `json:"composite_score"`
	Breakdown      map[string]float64 `json:"breakdown"`
	DistanceKm     *float64           `json:"distance_km,omitempty"`
}

// Result is the ranked page plus the size of the full ranked pool.
type Result struct {
	Candidates []Candidate `json:"results"`
	Total      int         `json:"total"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// EngineOptions collects the dependencies for NewEngine. Embeddings, Cache
// and Metrics are optional.
type EngineOptions struct {
	Profiles     profile.Repository
	Blocks       exclusion.Registry
	Interactions interaction.Log
	Embeddings   embedding.Provider
	Presets      map[string]Weights
	Policy       Policy
	Cache        *Cache
	Metrics      *Metrics
	Logger       *slog.Logger
}

// Engine orchestrates the matching pipeline.
type Engine struct {
	profiles     profile.Repository
	blocks       exclusion.Registry
	interactions interaction.Log
	embeddings   embedding.Provider
	presets      map[string]Weights
	policy       Policy
	cache        *Cache
	metrics      *Metrics
	logger       *slog.Logger
}

// NewEngine creates a matching engine from its dependencies.
func NewEngine(opts EngineOptions) *Engine {
	presets := opts.Presets
	if presets == nil {
		presets = DefaultPresets()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		profiles:     opts.Profiles,
		blocks:       opts.Blocks,
		interactions: opts.Interactions,
		embeddings:   opts.Embeddings,
		presets:      presets,
		policy:       opts.Policy.withDefaults(),
		cache:        opts.Cache,
		metrics:      opts.Metrics,
		logger:       logger,
	}
}

// Match runs the full pipeline for one request: validate, filter the
// candidate pool, score survivors concurrently, rank deterministically and
// slice the requested page.
func (e *Engine) Match(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := e.match(ctx, req)
	e.observeRequest(time.Since(start), err)
	return res, err
}

func (e *Engine) match(ctx context.Context, req Request) (*Result, error) {
	if err := e.validate(&req); err != nil {
		return nil, err
	}

	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, req); ok {
			e.countCacheEvent("hit")
			return cached, nil
		}
		e.countCacheEvent("miss")
	}

	requester, err := e.profiles.GetByID(ctx, req.RequesterID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, err
		}
		return nil, unavailable("loading requester profile", err)
	}

	pool, err := e.candidatePool(ctx, req.RequesterID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	survivors := make([]*profile.Profile, 0, len(pool))
	for _, cand := range pool {
		reason, err := e.excludeCandidate(ctx, requester, cand, req.Filters, now)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			e.countFiltered(reason)
			if reason == FilterCorrupt {
				e.logger.Warn("skipping candidate with corrupt coordinates",
					"candidate_id", cand.ID)
			}
			continue
		}
		survivors = append(survivors, cand)
	}

	scoreCtx, endScore := tracing.StartSpan(ctx, "match.score_pool")
	scored, warnings, err := e.scorePool(scoreCtx, requester, survivors, req, now)
	endScore(err)
	if err != nil {
		return nil, err
	}

	rank(scored)
	total := len(scored)
	page := paginate(scored, req.Limit, req.Offset)

	result := &Result{
		Candidates: make([]Candidate, 0, len(page)),
		Total:      total,
		Warnings:   warnings,
	}
	for _, sc := range page {
		result.Candidates = append(result.Candidates, Candidate{
			CandidateID:    sc.profile.ID,
			DisplayName:    sc.profile.DisplayName,
			CompositeScore: sc.composite,
			Breakdown:      sc.breakdown,
			DistanceKm:     sc.distanceKm,
		})
	}

	if e.cache != nil {
		e.cache.Set(ctx, req, result)
	}
	return result, nil
}

// validate checks request parameters before any store access and applies
// defaults for limit and preset.
func (e *Engine) validate(req *Request) error {
	if req.RequesterID == "" {
		return &ValidationError{Field: "requester_id", Message: "must not be empty"}
	}
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit < 1 || req.Limit > MaxLimit {
		return &ValidationError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", MaxLimit)}
	}
	if req.Offset < 0 {
		return &ValidationError{Field: "offset", Message: "must not be negative"}
	}
	if req.Filters.MinAge < 0 {
		return &ValidationError{Field: "min_age", Message: "must not be negative"}
	}
	if req.Filters.MaxAge < 0 {
		return &ValidationError{Field: "max_age", Message: "must not be negative"}
	}
	if req.Filters.MinAge > 0 && req.Filters.MaxAge > 0 && req.Filters.MinAge > req.Filters.MaxAge {
		return &ValidationError{Field: "min_age", Message: "must not exceed max_age"}
	}
	if req.Filters.MaxDistanceKm < 0 {
		return &ValidationError{Field: "max_distance_km", Message: "must not be negative"}
	}
	if req.Preset == "" {
		req.Preset = e.policy.DefaultPreset
	}
	if _, ok := e.presets[req.Preset]; !ok {
		return &ValidationError{Field: "preset", Message: fmt.Sprintf("unknown preset %q", req.Preset)}
	}
	return nil
}

// candidatePool drains all candidate profiles via keyset paging.
func (e *Engine) candidatePool(ctx context.Context, requesterID string) ([]*profile.Profile, error) {
	var pool []*profile.Profile
	after := ""
	for {
		page, err := e.profiles.ListCandidates(ctx, profile.ListOptions{
			ExcludeID: requesterID,
			AfterID:   after,
			Limit:     candidatePageSize,
		})
		if err != nil {
			return nil, unavailable("listing candidates", err)
		}
		pool = append(pool, page...)
		if len(page) < candidatePageSize {
			return pool, nil
		}
		after = page[len(page)-1].ID
	}
}

// scorePool fans candidate scoring out over a bounded worker pool and
// gathers results in input order before ranking.
func (e *Engine) scorePool(ctx context.Context, requester *profile.Profile, pool []*profile.Profile, req Request, now time.Time) ([]scoredCandidate, []string, error) {
	weights := e.presets[req.Preset]
	distanceCap := resolveDistanceCap(req.Filters, requester.Preferences)
	minAge, maxAge := resolveAgeBounds(req.Filters, requester.Preferences)

	var warnings []string
	requesterVec, avatarEnabled := e.requesterVector(ctx, requester.ID, &warnings)

	if len(pool) == 0 {
		return nil, warnings, nil
	}

	workers := runtime.NumCPU()
	if workers > len(pool) {
		workers = len(pool)
	}

	scored := make([]scoredCandidate, len(pool))
	ok := make([]bool, len(pool))
	jobs := make(chan int)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var scoreErr error

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				sc, err := e.scoreCandidate(ctx, requester, pool[i], weights, distanceCap, minAge, maxAge, requesterVec, avatarEnabled, now)
				if err != nil {
					mu.Lock()
					if scoreErr == nil {
						scoreErr = err
					}
					mu.Unlock()
					continue
				}
				scored[i] = sc
				ok[i] = true
			}
		}()
	}

	for i := range pool {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if scoreErr != nil {
		return nil, nil, scoreErr
	}

	out := make([]scoredCandidate, 0, len(pool))
	for i, sc := range scored {
		if ok[i] {
			out = append(out, sc)
		}
	}
	e.countScored(len(out))
	return out, warnings, nil
}

// requesterVector fetches the requester's avatar embedding once per request.
// A downed provider degrades the avatar factor for the whole request with a
// warning rather than failing the match.
func (e *Engine) requesterVector(ctx context.Context, requesterID string, warnings *[]string) ([]float64, bool) {
	if e.embeddings == nil {
		return nil, false
	}
	vec, err := e.embeddings.Vector(ctx, requesterID)
	if err != nil {
		if !errors.Is(err, embedding.ErrUnavailable) {
			e.logger.Warn("embedding provider error, degrading avatar factor",
				"requester_id", requesterID,
				"error", err)
		}
		*warnings = append(*warnings, "avatar similarity unavailable, scores computed without it")
		e.countDegraded(FactorAvatar)
		return nil, false
	}
	return vec, vec != nil
}

// scoreCandidate computes all factor sub-scores for one pair and aggregates
// them into a composite.
func (e *Engine) scoreCandidate(ctx context.Context, requester, cand *profile.Profile, weights Weights, distanceCap float64, minAge, maxAge int, requesterVec []float64, avatarEnabled bool, now time.Time) (scoredCandidate, error) {
	proximity, distanceKm := ProximityScore(requester.Location, cand.Location, distanceCap)

	prior, err := e.interactions.GetPriorInteraction(ctx, cand.ID, requester.ID)
	if err != nil {
		return scoredCandidate{}, unavailable("reading prior interaction", err)
	}

	avatarScore := 0.0
	avatarAvailable := false
	if avatarEnabled {
		candVec, err := e.embeddings.Vector(ctx, cand.ID)
		if err != nil {
			e.countDegraded(FactorAvatar)
		} else if candVec != nil {
			avatarScore = embedding.CosineSimilarity(requesterVec, candVec)
			avatarAvailable = true
		}
	}

	factors := []factor{
		{FactorProximity, proximity, weights.Proximity, true},
		{FactorAge, AgeScore(cand.Age(now), minAge, maxAge, e.policy.AgeToleranceYears), weights.Age, true},
		{FactorInterests, InterestScore(requester.Interests, cand.Interests), weights.Interests, true},
		{FactorActivity, ActivityScore(cand.LastActive, now, e.policy.ActivityHalfLife), weights.Activity, true},
		{FactorReciprocity, ReciprocityScore(prior), weights.Reciprocity, true},
		{FactorAvatar, avatarScore, weights.Avatar, avatarAvailable},
	}

	composite, breakdown := aggregate(factors)
	return scoredCandidate{
		profile:    cand,
		composite:  composite,
		breakdown:  breakdown,
		proximity:  proximity,
		distanceKm: distanceKm,
	}, nil
}

func (e *Engine) observeRequest(elapsed time.Duration, err error) {
	if e.metrics == nil {
		return
	}
	status := "ok"
	var verr *ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		status = "validation_error"
	case errors.Is(err, profile.ErrNotFound):
		status = "not_found"
	case errors.Is(err, ErrUnavailable):
		status = "unavailable"
	default:
		status = "error"
	}
	e.metrics.RequestsTotal.WithLabelValues(status).Inc()
	e.metrics.RequestDuration.Observe(elapsed.Seconds())
}

func (e *Engine) countFiltered(reason FilterReason) {
	if e.metrics != nil {
		e.metrics.CandidatesFiltered.WithLabelValues(string(reason)).Inc()
	}
}

func (e *Engine) countScored(n int) {
	if e.metrics != nil {
		e.metrics.CandidatesScored.Add(float64(n))
	}
}

func (e *Engine) countCacheEvent(event string) {
	if e.metrics != nil {
		e.metrics.CacheEvents.WithLabelValues(event).Inc()
	}
}

func (e *Engine) countDegraded(factorName string) {
	if e.metrics != nil {
		e.metrics.FactorDegraded.WithLabelValues(factorName).Inc()
	}
}
