package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ederlyn/pairwise/internal/match"
	"github.com/ederlyn/pairwise/internal/middleware"
	"github.com/ederlyn/pairwise/internal/profile"
)

// MatchHandlers serves the candidate matching endpoints.
type MatchHandlers struct {
	engine *match.Engine
	logger *slog.Logger
}

// NewMatchHandlers creates the match endpoint handlers.
func NewMatchHandlers(engine *match.Engine, logger *slog.Logger) *MatchHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchHandlers{
		engine: engine,
		logger: logger,
	}
}

// MatchResponse is the JSON body for GET /matches.
type MatchResponse struct {
	Results  []match.Candidate `json:"results"`
	Count    int               `json:"count"`
	Total    int               `json:"total"`
	Warnings []string          `json:"warnings,omitempty"`
}

// Matches handles GET /matches for the authenticated user. Filters arrive
// as query parameters; the requester identity comes from the bearer token.
func (h *MatchHandlers) Matches(w http.ResponseWriter, r *http.Request) {
	requesterID := middleware.GetUserID(r.Context())
	if requesterID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	req, err := parseMatchRequest(r, requesterID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	result, err := h.engine.Match(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MatchResponse{
		Results:  result.Candidates,
		Count:    len(result.Candidates),
		Total:    result.Total,
		Warnings: result.Warnings,
	})
}

// writeEngineError maps engine errors onto HTTP statuses and the standard
// envelope.
func (h *MatchHandlers) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *match.ValidationError
	switch {
	case errors.As(err, &verr):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, verr.Error())
	case errors.Is(err, profile.ErrNotFound):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Requester profile not found")
	case errors.Is(err, match.ErrUnavailable):
		h.logger.ErrorContext(r.Context(), "matching backend unavailable", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnavailable)
		WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeUnavailable, "Matching temporarily unavailable")
	default:
		h.logger.ErrorContext(r.Context(), "match request failed", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Internal server error")
	}
}

// parseMatchRequest reads the query parameters into a match request.
// Unparseable values are rejected here; range checks happen in the engine.
func parseMatchRequest(r *http.Request, requesterID string) (match.Request, error) {
	req := match.Request{
		RequesterID: requesterID,
		Preset:      r.URL.Query().Get("preset"),
	}

	q := r.URL.Query()
	intParams := []struct {
		name string
		dst  *int
	}{
		{"limit", &req.Limit},
		{"offset", &req.Offset},
		{"min_age", &req.Filters.MinAge},
		{"max_age", &req.Filters.MaxAge},
	}
	for _, p := range intParams {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return match.Request{}, &match.ValidationError{Field: p.name, Message: "must be an integer"}
		}
		*p.dst = v
	}

	if raw := q.Get("max_distance_km"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return match.Request{}, &match.ValidationError{Field: "max_distance_km", Message: "must be a number"}
		}
		req.Filters.MaxDistanceKm = v
	}

	boolParams := []struct {
		name string
		dst  *bool
	}{
		{"online_only", &req.Filters.OnlineOnly},
		{"new_users_only", &req.Filters.NewUsersOnly},
	}
	for _, p := range boolParams {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return match.Request{}, &match.ValidationError{Field: p.name, Message: "must be a boolean"}
		}
		*p.dst = v
	}

	return req, nil
}
