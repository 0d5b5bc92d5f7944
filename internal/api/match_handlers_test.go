package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ederlyn/pairwise/internal/embedding"
	"github.com/ederlyn/pairwise/internal/exclusion"
	"github.com/ederlyn/pairwise/internal/geo"
	"github.com/ederlyn/pairwise/internal/interaction"
	"github.com/ederlyn/pairwise/internal/match"
	"github.com/ederlyn/pairwise/internal/middleware"
	"github.com/ederlyn/pairwise/internal/profile"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func seedProfile(t *testing.T, repo *profile.InMemoryRepository, id string) {
	t.Helper()
	now := time.Now().UTC()
	p := &profile.Profile{
		ID:          id,
		DisplayName: "user " + id,
		Gender:      "woman",
		BirthDate:   now.AddDate(-30, 0, -1),
		Location:    &geo.Point{Lat: 40.7, Lng: -74.0},
		Interests:   []string{"hiking"},
		LastActive:  now.Add(-time.Hour),
		CreatedAt:   now.AddDate(-1, 0, 0),
	}
	if err := repo.Upsert(context.Background(), p); err != nil {
		t.Fatalf("failed to seed profile %s: %v", id, err)
	}
}

func newMatchHandlers(t *testing.T) (*MatchHandlers, *profile.InMemoryRepository) {
	t.Helper()
	repo := profile.NewInMemoryRepository()
	engine := match.NewEngine(match.EngineOptions{
		Profiles:     repo,
		Blocks:       exclusion.NewInMemoryRegistry(),
		Interactions: interaction.NewInMemoryLog(),
		Embeddings:   embedding.NewInMemoryProvider(),
		Logger:       discardLogger(),
	})
	return NewMatchHandlers(engine, discardLogger()), repo
}

func authedRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(middleware.SetUserID(req.Context(), "alice"))
}

// TestMatchesHappyPath returns ranked candidates for the token's user.
func TestMatchesHappyPath(t *testing.T) {
	handlers, repo := newMatchHandlers(t)
	seedProfile(t, repo, "alice")
	seedProfile(t, repo, "bob")
	seedProfile(t, repo, "carol")

	rec := httptest.NewRecorder()
	handlers.Matches(rec, authedRequest(http.MethodGet, "/matches?limit=10"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp MatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 2 || resp.Total != 2 {
		t.Errorf("count/total = %d/%d, expected 2/2", resp.Count, resp.Total)
	}
	for _, c := range resp.Results {
		if c.CandidateID == "alice" {
			t.Error("requester must never appear in their own results")
		}
		if c.CompositeScore < 0 || c.CompositeScore > 1 {
			t.Errorf("composite %f outside [0, 1]", c.CompositeScore)
		}
	}
}

// TestMatchesUnauthenticated rejects requests without a user in context.
func TestMatchesUnauthenticated(t *testing.T) {
	handlers, _ := newMatchHandlers(t)

	rec := httptest.NewRecorder()
	handlers.Matches(rec, httptest.NewRequest(http.MethodGet, "/matches", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, expected 401", rec.Code)
	}
}

// TestMatchesErrorMapping verifies engine errors map to statuses and the
// error envelope.
func TestMatchesErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		seed       bool
		status     int
		code       string
	}{
		{"unknown requester", "/matches", false, http.StatusNotFound, ErrCodeNotFound},
		{"bad limit param", "/matches?limit=abc", true, http.StatusBadRequest, ErrCodeValidation},
		{"oversized limit", "/matches?limit=500", true, http.StatusBadRequest, ErrCodeValidation},
		{"bad bool param", "/matches?online_only=maybe", true, http.StatusBadRequest, ErrCodeValidation},
		{"bad distance param", "/matches?max_distance_km=near", true, http.StatusBadRequest, ErrCodeValidation},
		{"unknown preset", "/matches?preset=bogus", true, http.StatusBadRequest, ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers, repo := newMatchHandlers(t)
			if tt.seed {
				seedProfile(t, repo, "alice")
			}

			rec := httptest.NewRecorder()
			handlers.Matches(rec, authedRequest(http.MethodGet, tt.target))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, expected %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode error envelope: %v", err)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("code = %s, expected %s", resp.Error.Code, tt.code)
			}
		})
	}
}

// TestMatchesQueryFilters verifies query parameters reach the engine.
func TestMatchesQueryFilters(t *testing.T) {
	handlers, repo := newMatchHandlers(t)
	seedProfile(t, repo, "alice")
	seedProfile(t, repo, "bob")

	now := time.Now().UTC()
	old := &profile.Profile{
		ID:         "elder",
		Gender:     "woman",
		BirthDate:  now.AddDate(-70, 0, -1),
		Location:   &geo.Point{Lat: 40.7, Lng: -74.0},
		LastActive: now,
		CreatedAt:  now.AddDate(-1, 0, 0),
	}
	if err := repo.Upsert(context.Background(), old); err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}

	rec := httptest.NewRecorder()
	handlers.Matches(rec, authedRequest(http.MethodGet, "/matches?min_age=25&max_age=35"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp MatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 1 || resp.Results[0].CandidateID != "bob" {
		t.Errorf("expected only bob after age filter, got %+v", resp.Results)
	}
}
