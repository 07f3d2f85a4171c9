package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-funnel/backend/internal/models"
)

// Repository handles email_schedules persistence. The partial unique index
// on (user_id, email_type, webinar_event_id) is the real duplicate
// backstop; InsertBatch relies on ON CONFLICT DO NOTHING so two racing
// triggers cannot both insert the same logical email.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a schedule repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ExistingTypes returns the email types already persisted for the user in
// the given webinar-event scope (nil scope = purchase-lifecycle emails).
func (r *Repository) ExistingTypes(ctx context.Context, userID uuid.UUID, webinarEventID *uuid.UUID) (map[string]struct{}, error) {
	const q = `SELECT email_type FROM email_schedules
		WHERE user_id = $1 AND webinar_event_id IS NOT DISTINCT FROM $2`
	rows, err := r.pool.Query(ctx, q, userID, webinarEventID)
	if err != nil {
		return nil, fmt.Errorf("query existing types: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		existing[t] = struct{}{}
	}
	return existing, rows.Err()
}

// InsertBatch inserts schedule entries, skipping conflicts on the unique
// index, and returns how many rows were actually inserted.
func (r *Repository) InsertBatch(ctx context.Context, entries []models.EmailScheduleEntry) (int, error) {
	const q = `INSERT INTO email_schedules (id, user_id, email, email_type, template_name, scheduled_for, status, metadata, webinar_event_id)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, email_type, webinar_event_id) DO NOTHING`
	inserted := 0
	for _, e := range entries {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return inserted, fmt.Errorf("marshal metadata: %w", err)
		}
		tag, err := r.pool.Exec(ctx, q, e.UserID, e.Email, e.EmailType, e.TemplateName, e.ScheduledFor, e.Status, meta, e.WebinarEventID)
		if err != nil {
			return inserted, fmt.Errorf("insert schedule %s: %w", e.EmailType, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// ListDue returns pending entries whose scheduled_for has passed, oldest first.
func (r *Repository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.EmailScheduleEntry, error) {
	const q = `SELECT id, user_id, email, email_type, template_name, scheduled_for, status, metadata, webinar_event_id, created_at, updated_at
		FROM email_schedules
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for
		LIMIT $3`
	rows, err := r.pool.Query(ctx, q, models.ScheduleStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// GetByID returns a schedule entry.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.EmailScheduleEntry, error) {
	const q = `SELECT id, user_id, email, email_type, template_name, scheduled_for, status, metadata, webinar_event_id, created_at, updated_at
		FROM email_schedules WHERE id = $1`
	rows, err := r.pool.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// ListByUser returns all schedule entries for a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.EmailScheduleEntry, error) {
	const q = `SELECT id, user_id, email, email_type, template_name, scheduled_for, status, metadata, webinar_event_id, created_at, updated_at
		FROM email_schedules WHERE user_id = $1 ORDER BY scheduled_for DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// MarkSent transitions a pending entry to sent.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE email_schedules SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	_, err := r.pool.Exec(ctx, q, models.ScheduleStatusSent, id, models.ScheduleStatusPending)
	return err
}

// MarkFailed transitions a pending entry to failed.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE email_schedules SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	_, err := r.pool.Exec(ctx, q, models.ScheduleStatusFailed, id, models.ScheduleStatusPending)
	return err
}

type rowsLike interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEntries(rows rowsLike) ([]models.EmailScheduleEntry, error) {
	var list []models.EmailScheduleEntry
	for rows.Next() {
		var e models.EmailScheduleEntry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Email, &e.EmailType, &e.TemplateName, &e.ScheduledFor, &e.Status, &meta, &e.WebinarEventID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
