package webinarevents

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-funnel/backend/internal/models"
)

// Repository handles webinar_events persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a webinar events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, title, webinar_date, discount_window_hours, post_webinar_trigger_offset_minutes, is_active, created_at, updated_at`

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, ev *models.WebinarEvent) error {
	const q = `INSERT INTO webinar_events (id, title, webinar_date, discount_window_hours, post_webinar_trigger_offset_minutes, is_active)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, ev.Title, ev.WebinarDate, ev.DiscountWindowHours, ev.PostWebinarTriggerOffsetMinutes, ev.IsActive).
		Scan(&ev.ID, &ev.CreatedAt, &ev.UpdatedAt)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.WebinarEvent, error) {
	var ev models.WebinarEvent
	err := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM webinar_events WHERE id = $1`, id).
		Scan(&ev.ID, &ev.Title, &ev.WebinarDate, &ev.DiscountWindowHours, &ev.PostWebinarTriggerOffsetMinutes, &ev.IsActive, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ActiveEvent returns the current event for scheduling and discount
// decisions. When several events are flagged active the earliest
// webinar_date wins. Returns nil when no event is active.
func (r *Repository) ActiveEvent(ctx context.Context) (*models.WebinarEvent, error) {
	const q = `SELECT ` + columns + ` FROM webinar_events
		WHERE is_active
		ORDER BY webinar_date
		LIMIT 1`
	var ev models.WebinarEvent
	err := r.pool.QueryRow(ctx, q).
		Scan(&ev.ID, &ev.Title, &ev.WebinarDate, &ev.DiscountWindowHours, &ev.PostWebinarTriggerOffsetMinutes, &ev.IsActive, &ev.CreatedAt, &ev.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// List returns all events, newest first.
func (r *Repository) List(ctx context.Context) ([]models.WebinarEvent, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM webinar_events ORDER BY webinar_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.WebinarEvent
	for rows.Next() {
		var ev models.WebinarEvent
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.WebinarDate, &ev.DiscountWindowHours, &ev.PostWebinarTriggerOffsetMinutes, &ev.IsActive, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, ev)
	}
	return list, rows.Err()
}

// Update updates event fields.
func (r *Repository) Update(ctx context.Context, ev *models.WebinarEvent) error {
	const q = `UPDATE webinar_events
		SET title = $1, webinar_date = $2, discount_window_hours = $3, post_webinar_trigger_offset_minutes = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6`
	_, err := r.pool.Exec(ctx, q, ev.Title, ev.WebinarDate, ev.DiscountWindowHours, ev.PostWebinarTriggerOffsetMinutes, ev.IsActive, ev.ID)
	return err
}

// Activate flags one event active and deactivates the rest.
func (r *Repository) Activate(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE webinar_events SET is_active = FALSE, updated_at = NOW() WHERE is_active`); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `UPDATE webinar_events SET is_active = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}
