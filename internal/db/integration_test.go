//go:build integration

// Integration tests for the Postgres-backed stores.
//
// These tests start a disposable PostgreSQL container via testcontainers and
// apply the migrations from the migrations/ directory.
// Run with: go test -tags=integration -v ./internal/db/...
package db_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ederlyn/pairwise/internal/db"
	"github.com/ederlyn/pairwise/internal/embedding"
	"github.com/ederlyn/pairwise/internal/exclusion"
	"github.com/ederlyn/pairwise/internal/geo"
	"github.com/ederlyn/pairwise/internal/interaction"
	"github.com/ederlyn/pairwise/internal/profile"
)

// startPostgres runs a throwaway Postgres container with migrations applied
// and returns a connection URL.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
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
		t.Skipf("could not start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("warning: failed to terminate container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	return url
}

// applyMigrations runs every up migration in order.
func applyMigrations(t *testing.T, ctx context.Context, url string) {
	t.Helper()

	handle, err := db.Open(ctx, url)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer handle.Close()

	files, err := filepath.Glob(filepath.Join("..", "..", "migrations", "*.up.sql"))
	if err != nil {
		t.Fatalf("failed to glob migrations: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migration files found")
	}
	slices.Sort(files)

	for _, f := range files {
		ddl, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("failed to read migration %s: %v", f, err)
		}
		if _, err := handle.ExecContext(ctx, string(ddl)); err != nil {
			t.Fatalf("failed to apply migration %s: %v", f, err)
		}
	}
}

func TestPostgresStores(t *testing.T) {
	ctx := context.Background()
	url := startPostgres(t)
	applyMigrations(t, ctx, url)

	handle, err := db.Open(ctx, url)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer handle.Close()

	now := time.Now().UTC().Truncate(time.Second)

	t.Run("migrated schema accepts profiles", func(t *testing.T) {
		repo := profile.NewPostgresRepository(handle, nil)
		p := &profile.Profile{
			ID:        "alice",
			Gender:    "woman",
			BirthDate: now.AddDate(-30, 0, 0),
			Location:  &geo.Point{Lat: 40.7, Lng: -74.0},
			Interests: []string{"hiking", "jazz"},
			CreatedAt: now,
		}
		if err := repo.Upsert(ctx, p); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if _, err := repo.GetByID(ctx, "alice"); err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
	})

	t.Run("blocks", func(t *testing.T) {
		registry := exclusion.NewPostgresRegistry(handle, nil)
		if err := registry.Block(ctx, "alice", "bob"); err != nil {
			t.Fatalf("Block failed: %v", err)
		}
		// Duplicate blocks are ignored.
		if err := registry.Block(ctx, "alice", "bob"); err != nil {
			t.Fatalf("duplicate Block failed: %v", err)
		}

		blocked, err := registry.IsBlocked(ctx, "bob", "alice")
		if err != nil {
			t.Fatalf("IsBlocked failed: %v", err)
		}
		if !blocked {
			t.Error("block must be visible in both directions")
		}

		if err := registry.Unblock(ctx, "alice", "bob"); err != nil {
			t.Fatalf("Unblock failed: %v", err)
		}
		blocked, err = registry.IsBlocked(ctx, "alice", "bob")
		if err != nil {
			t.Fatalf("IsBlocked failed: %v", err)
		}
		if blocked {
			t.Error("block must be gone after Unblock")
		}
	})

	t.Run("interactions", func(t *testing.T) {
		log := interaction.NewPostgresLog(handle, nil)
		rec := interaction.Record{
			Actor:     "alice",
			Target:    "bob",
			Decision:  interaction.DecisionPass,
			CreatedAt: now,
		}
		if err := log.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}

		// A later decision replaces the earlier one.
		rec.Decision = interaction.DecisionLike
		if err := log.Record(ctx, rec); err != nil {
			t.Fatalf("Record replace failed: %v", err)
		}

		got, err := log.GetPriorInteraction(ctx, "alice", "bob")
		if err != nil {
			t.Fatalf("GetPriorInteraction failed: %v", err)
		}
		if got == nil || got.Decision != interaction.DecisionLike {
			t.Errorf("expected replaced like, got %+v", got)
		}

		none, err := log.GetPriorInteraction(ctx, "bob", "alice")
		if err != nil {
			t.Fatalf("GetPriorInteraction failed: %v", err)
		}
		if none != nil {
			t.Errorf("expected nil for missing direction, got %+v", none)
		}
	})

	t.Run("embeddings", func(t *testing.T) {
		provider := embedding.NewPostgresProvider(handle, nil)
		if err := provider.Store(ctx, "alice", []float64{0.1, 0.2, 0.3}); err != nil {
			t.Fatalf("Store failed: %v", err)
		}

		vec, err := provider.Vector(ctx, "alice")
		if err != nil {
			t.Fatalf("Vector failed: %v", err)
		}
		if len(vec) != 3 || vec[1] != 0.2 {
			t.Errorf("unexpected vector %v", vec)
		}

		missing, err := provider.Vector(ctx, "ghost")
		if err != nil {
			t.Fatalf("Vector failed: %v", err)
		}
		if missing != nil {
			t.Errorf("expected nil vector for unknown user, got %v", missing)
		}
	})
}
