//go:build integration

// Integration tests for the Postgres profile repository.
// Run with: go test -tags=integration -v ./internal/profile/...
// Requires Docker for the throwaway Postgres container.
package profile

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ederlyn/pairwise/internal/geo"
)

const profileSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	gender TEXT NOT NULL DEFAULT '',
	birth_date TIMESTAMPTZ NOT NULL,
	location_lat DOUBLE PRECISION,
	location_lng DOUBLE PRECISION,
	interests TEXT[] NOT NULL DEFAULT '{}',
	last_active_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	pref_min_age INT NOT NULL DEFAULT 0,
	pref_max_age INT NOT NULL DEFAULT 0,
	pref_genders TEXT[] NOT NULL DEFAULT '{}',
	pref_max_distance_km DOUBLE PRECISION NOT NULL DEFAULT 0
)`

// startPostgres launches a throwaway Postgres container and returns an open DB.
func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("pairwise_test"),
		postgres.WithUsername("pairwise"),
		postgres.WithPassword("pairwise"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("could not start postgres container (docker unavailable?): %v", err)
	}
	t.Cleanup(func() {
		if err := ctr.Terminate(ctx); err != nil {
			t.Logf("warning: failed to terminate container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.ExecContext(ctx, profileSchema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

// TestPostgresRoundTrip verifies upsert and read-back of a full profile.
func TestPostgresRoundTrip(t *testing.T) {
	db := startPostgres(t)
	repo := NewPostgresRepository(db, nil)
	ctx := context.Background()

	want := &Profile{
		ID:          "user-1",
		DisplayName: "Avery",
		Gender:      "woman",
		BirthDate:   time.Date(1994, time.February, 11, 0, 0, 0, 0, time.UTC),
		Location:    &geo.Point{Lat: 40.7128, Lng: -74.0060},
		Interests:   []string{"climbing", "jazz"},
		LastActive:  time.Date(2026, time.August, 30, 9, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		Preferences: Preferences{
			MinAge:        25,
			MaxAge:        38,
			Genders:       []string{"man", "nonbinary"},
			MaxDistanceKm: 50,
		},
	}
	if err := repo.Upsert(ctx, want); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.DisplayName != want.DisplayName || got.Gender != want.Gender {
		t.Errorf("identity mismatch: got %+v", got)
	}
	if got.Location == nil || got.Location.Lat != want.Location.Lat {
		t.Errorf("location mismatch: got %+v", got.Location)
	}
	if len(got.Interests) != 2 || got.Interests[0] != "climbing" {
		t.Errorf("interests mismatch: got %v", got.Interests)
	}
	if got.Preferences.MinAge != 25 || got.Preferences.MaxDistanceKm != 50 {
		t.Errorf("preferences mismatch: got %+v", got.Preferences)
	}
	if !got.LastActive.Equal(want.LastActive) {
		t.Errorf("last active mismatch: got %v, want %v", got.LastActive, want.LastActive)
	}
}

// TestPostgresNullableColumns verifies profiles without location or activity.
func TestPostgresNullableColumns(t *testing.T) {
	db := startPostgres(t)
	repo := NewPostgresRepository(db, nil)
	ctx := context.Background()

	p := &Profile{
		ID:        "user-2",
		Gender:    "man",
		BirthDate: time.Date(1990, time.July, 4, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Upsert(ctx, p); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "user-2")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Location != nil {
		t.Errorf("expected nil location, got %+v", got.Location)
	}
	if !got.LastActive.IsZero() {
		t.Errorf("expected zero last active, got %v", got.LastActive)
	}
}

// TestPostgresListCandidates verifies paging order and requester exclusion.
func TestPostgresListCandidates(t *testing.T) {
	db := startPostgres(t)
	repo := NewPostgresRepository(db, nil)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		p := &Profile{
			ID:        id,
			Gender:    "woman",
			BirthDate: time.Date(1992, time.March, 3, 0, 0, 0, 0, time.UTC),
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.Upsert(ctx, p); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	page, err := repo.ListCandidates(ctx, ListOptions{ExcludeID: "a", Limit: 2})
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != "b" || page[1].ID != "c" {
		t.Fatalf("unexpected page: %+v", page)
	}

	rest, err := repo.ListCandidates(ctx, ListOptions{ExcludeID: "a", AfterID: "c"})
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != "d" {
		t.Fatalf("unexpected remainder: %+v", rest)
	}
}
