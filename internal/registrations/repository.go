package registrations

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-funnel/backend/internal/models"
)

// Repository handles webinar_registrations persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert inserts a registration, unique per (webinar_event_id, email).
// Re-registering updates nothing but returns the existing row, so the
// caller always sees the same user_id and the suppression filter's scope
// stays stable across retries.
func (r *Repository) Upsert(ctx context.Context, reg *models.WebinarRegistration) error {
	const q = `INSERT INTO webinar_registrations (id, user_id, email, webinar_event_id)
		VALUES (gen_random_uuid(), $1, $2, $3)
		ON CONFLICT (webinar_event_id, email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, user_id, registered_at`
	return r.pool.QueryRow(ctx, q, reg.UserID, reg.Email, reg.WebinarEventID).
		Scan(&reg.ID, &reg.UserID, &reg.RegisteredAt)
}

// ListByEvent returns all registrations for an event, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.WebinarRegistration, error) {
	const q = `SELECT id, user_id, email, webinar_event_id, registered_at, attended
		FROM webinar_registrations WHERE webinar_event_id = $1 ORDER BY registered_at DESC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.WebinarRegistration
	for rows.Next() {
		var reg models.WebinarRegistration
		if err := rows.Scan(&reg.ID, &reg.UserID, &reg.Email, &reg.WebinarEventID, &reg.RegisteredAt, &reg.Attended); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// MarkAttended records whether a registrant attended.
func (r *Repository) MarkAttended(ctx context.Context, id uuid.UUID, attended bool) error {
	const q = `UPDATE webinar_registrations SET attended = $1 WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, attended, id)
	return err
}

// CountByEvent returns total and attended registration counts for an event.
func (r *Repository) CountByEvent(ctx context.Context, eventID uuid.UUID) (total, attended int, err error) {
	const q = `SELECT COUNT(*), COUNT(*) FILTER (WHERE attended) FROM webinar_registrations WHERE webinar_event_id = $1`
	err = r.pool.QueryRow(ctx, q, eventID).Scan(&total, &attended)
	return total, attended, err
}
