package embedding

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
)

// PostgresProvider implements Provider backed by an avatar_embeddings table
// populated by the offline image pipeline.
type PostgresProvider struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresProvider creates a new Postgres-backed embedding provider.
func NewPostgresProvider(db *sql.DB, logger *slog.Logger) *PostgresProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProvider{
		db:     db,
		logger: logger,
	}
}

// Vector returns the stored embedding for a user, or nil when the user has
// no embedding yet.
func (p *PostgresProvider) Vector(ctx context.Context, userID string) ([]float64, error) {
	var vec pq.Float64Array
	err := p.db.QueryRowContext(ctx,
		`SELECT vector FROM avatar_embeddings WHERE user_id = $1`, userID).Scan(&vec)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load embedding for %s: %w", userID, err)
	}
	return []float64(vec), nil
}

// Store saves or replaces a user's embedding.
func (p *PostgresProvider) Store(ctx context.Context, userID string, vec []float64) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO avatar_embeddings (user_id, vector)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET vector = EXCLUDED.vector
	`, userID, pq.Array(vec))
	if err != nil {
		return fmt.Errorf("failed to store embedding for %s: %w", userID, err)
	}
	return nil
}
