package interaction

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ederlyn/pairwise/internal/tracing"
)

// PostgresLog implements Log backed by PostgreSQL.
type PostgresLog struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresLog creates a new Postgres-backed interaction log.
func NewPostgresLog(db *sql.DB, logger *slog.Logger) *PostgresLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresLog{
		db:     db,
		logger: logger,
	}
}

// GetPriorInteraction returns the latest decision actor made about target.
func (l *PostgresLog) GetPriorInteraction(ctx context.Context, actor, target string) (*Record, error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "interactions", tracing.DBOperationQuery)

	var rec Record
	query := `SELECT actor_id, target_id, decision, created_at
		FROM interactions
		WHERE actor_id = $1 AND target_id = $2`
	err := l.db.QueryRowContext(ctx, query, actor, target).
		Scan(&rec.Actor, &rec.Target, &rec.Decision, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		endSpan(nil)
		return nil, nil
	}
	if err != nil {
		endSpan(err)
		return nil, fmt.Errorf("failed to get prior interaction: %w", err)
	}
	endSpan(nil)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

// Record stores a decision, replacing any prior decision for the pair.
func (l *PostgresLog) Record(ctx context.Context, rec Record) error {
	if !rec.Decision.Valid() {
		return fmt.Errorf("invalid decision %q", rec.Decision)
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "interactions", tracing.DBOperationInsert)
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO interactions (actor_id, target_id, decision, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (actor_id, target_id) DO UPDATE SET
			decision = EXCLUDED.decision,
			created_at = EXCLUDED.created_at
	`, rec.Actor, rec.Target, rec.Decision, rec.CreatedAt)
	endSpan(err)
	if err != nil {
		return fmt.Errorf("failed to record interaction: %w", err)
	}
	return nil
}
