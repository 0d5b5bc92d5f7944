package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ederlyn/pairwise/internal/exclusion"
	"github.com/ederlyn/pairwise/internal/interaction"
	"github.com/ederlyn/pairwise/internal/middleware"
	"github.com/ederlyn/pairwise/internal/profile"
)

// CacheInvalidator drops cached match results for one requester.
type CacheInvalidator interface {
	InvalidateRequester(ctx context.Context, requesterID string) error
}

// InteractionHandlers serves decision recording and block management.
// Both are requester-side writes, so they invalidate the requester's cached
// match pages.
type InteractionHandlers struct {
	interactions interaction.Log
	blocks       exclusion.Registry
	profiles     profile.Repository
	cache        CacheInvalidator
	logger       *slog.Logger
}

// NewInteractionHandlers creates the interaction and block handlers.
// cache may be nil when result caching is disabled.
func NewInteractionHandlers(log interaction.Log, blocks exclusion.Registry, profiles profile.Repository, cache CacheInvalidator, logger *slog.Logger) *InteractionHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &InteractionHandlers{
		interactions: log,
		blocks:       blocks,
		profiles:     profiles,
		cache:        cache,
		logger:       logger,
	}
}

type decisionRequest struct {
	TargetID string `json:"target_id"`
	Decision string `json:"decision"`
}

// RecordDecision handles POST /interactions: stores a like/pass/superlike
// from the authenticated user toward a target.
func (h *InteractionHandlers) RecordDecision(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	if actorID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var body decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}

	if body.TargetID == "" || body.TargetID == actorID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "target_id must name another user")
		return
	}
	decision := interaction.Decision(body.Decision)
	if !decision.Valid() {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "decision must be like, pass or superlike")
		return
	}

	if _, err := h.profiles.GetByID(r.Context(), body.TargetID); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Target profile not found")
			return
		}
		h.writeStoreError(w, r, err)
		return
	}

	rec := interaction.Record{
		Actor:     actorID,
		Target:    body.TargetID,
		Decision:  decision,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.interactions.Record(r.Context(), rec); err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	h.invalidate(r.Context(), actorID)
	w.WriteHeader(http.StatusNoContent)
}

type blockRequest struct {
	TargetID string `json:"target_id"`
}

// Block handles POST /blocks: hides the target from the authenticated user
// and vice versa.
func (h *InteractionHandlers) Block(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	if actorID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var body blockRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}
	if body.TargetID == "" || body.TargetID == actorID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "target_id must name another user")
		return
	}

	if err := h.blocks.Block(r.Context(), actorID, body.TargetID); err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	h.invalidate(r.Context(), actorID)
	w.WriteHeader(http.StatusNoContent)
}

// Unblock handles DELETE /blocks/{target}: removes the authenticated user's
// own block edge. A block created by the other side stays in force.
func (h *InteractionHandlers) Unblock(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	if actorID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	targetID := r.PathValue("target")
	if targetID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "target must not be empty")
		return
	}

	if err := h.blocks.Unblock(r.Context(), actorID, targetID); err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	h.invalidate(r.Context(), actorID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *InteractionHandlers) invalidate(ctx context.Context, requesterID string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateRequester(ctx, requesterID); err != nil {
		h.logger.WarnContext(ctx, "failed to invalidate match cache",
			"requester_id", requesterID,
			"error", err)
	}
}

func (h *InteractionHandlers) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "store operation failed", "error", err)
	ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnavailable)
	WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeUnavailable, "Storage temporarily unavailable")
}
