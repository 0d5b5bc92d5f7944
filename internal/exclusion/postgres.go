package exclusion

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// PostgresRegistry implements Registry backed by PostgreSQL.
type PostgresRegistry struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRegistry creates a new Postgres-backed block registry.
func NewPostgresRegistry(db *sql.DB, logger *slog.Logger) *PostgresRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRegistry{
		db:     db,
		logger: logger,
	}
}

// IsBlocked reports whether a block edge exists in either direction.
func (r *PostgresRegistry) IsBlocked(ctx context.Context, a, b string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (
		SELECT 1 FROM blocks
		WHERE (actor_id = $1 AND target_id = $2)
		   OR (actor_id = $2 AND target_id = $1)
	)`
	if err := r.db.QueryRowContext(ctx, query, a, b).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check block edge: %w", err)
	}
	return exists, nil
}

// Block records a block created by actor against target. Duplicate blocks
// are ignored.
func (r *PostgresRegistry) Block(ctx context.Context, actor, target string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blocks (actor_id, target_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT DO NOTHING
	`, actor, target)
	if err != nil {
		return fmt.Errorf("failed to insert block edge: %w", err)
	}
	return nil
}

// Unblock removes a block created by actor against target.
func (r *PostgresRegistry) Unblock(ctx context.Context, actor, target string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM blocks WHERE actor_id = $1 AND target_id = $2`, actor, target)
	if err != nil {
		return fmt.Errorf("failed to delete block edge: %w", err)
	}
	return nil
}
