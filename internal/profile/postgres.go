package profile

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/ederlyn/pairwise/internal/geo"
)

// PostgresRepository implements Repository backed by PostgreSQL.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new Postgres-backed profile repository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

const profileColumns = `id, display_name, gender, birth_date, location_lat, location_lng,
	interests, last_active_at, created_at,
	pref_min_age, pref_max_age, pref_genders, pref_max_distance_km`

// GetByID retrieves a profile by its ID. Returns ErrNotFound when absent.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", id, err)
	}
	return p, nil
}

// ListCandidates returns profiles ordered by ID for stable keyset paging.
func (r *PostgresRepository) ListCandidates(ctx context.Context, opts ListOptions) ([]*Profile, error) {
	query := `SELECT ` + profileColumns + `
		FROM profiles
		WHERE id <> $1 AND id > $2
		ORDER BY id ASC`
	args := []any{opts.ExcludeID, opts.AfterID}

	if opts.Limit > 0 {
		query += ` LIMIT $3`
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Warn("failed to close candidate rows", "error", err)
		}
	}()

	var result []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			// A single corrupt row must not abort the batch.
			r.logger.Warn("skipping unreadable profile row", "error", err)
			continue
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	return result, nil
}

// Upsert stores or replaces a profile.
func (r *PostgresRepository) Upsert(ctx context.Context, p *Profile) error {
	var lat, lng sql.NullFloat64
	if p.Location != nil {
		lat = sql.NullFloat64{Float64: p.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: p.Location.Lng, Valid: true}
	}

	var lastActive sql.NullTime
	if !p.LastActive.IsZero() {
		lastActive = sql.NullTime{Time: p.LastActive, Valid: true}
	}

	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			gender = EXCLUDED.gender,
			birth_date = EXCLUDED.birth_date,
			location_lat = EXCLUDED.location_lat,
			location_lng = EXCLUDED.location_lng,
			interests = EXCLUDED.interests,
			last_active_at = EXCLUDED.last_active_at,
			pref_min_age = EXCLUDED.pref_min_age,
			pref_max_age = EXCLUDED.pref_max_age,
			pref_genders = EXCLUDED.pref_genders,
			pref_max_distance_km = EXCLUDED.pref_max_distance_km
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.DisplayName, p.Gender, p.BirthDate, lat, lng,
		pq.Array(p.Interests), lastActive, p.CreatedAt,
		p.Preferences.MinAge, p.Preferences.MaxAge,
		pq.Array(p.Preferences.Genders), p.Preferences.MaxDistanceKm,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", p.ID, err)
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanProfile reads one profile row in profileColumns order.
func scanProfile(row rowScanner) (*Profile, error) {
	var (
		p          Profile
		lat, lng   sql.NullFloat64
		lastActive sql.NullTime
		interests  pq.StringArray
		genders    pq.StringArray
	)

	err := row.Scan(
		&p.ID, &p.DisplayName, &p.Gender, &p.BirthDate, &lat, &lng,
		&interests, &lastActive, &p.CreatedAt,
		&p.Preferences.MinAge, &p.Preferences.MaxAge,
		&genders, &p.Preferences.MaxDistanceKm,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid && lng.Valid {
		p.Location = &geo.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	if lastActive.Valid {
		p.LastActive = lastActive.Time.UTC()
	}
	p.BirthDate = p.BirthDate.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.Interests = []string(interests)
	p.Preferences.Genders = []string(genders)

	return &p, nil
}

// Touch updates last_active_at for a user. Exposed for the presence
// subsystem; the matching engine itself never writes.
func (r *PostgresRepository) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET last_active_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to touch profile %s: %w", id, err)
	}
	return nil
}
