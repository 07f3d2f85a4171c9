package emaillogs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-funnel/backend/internal/models"
)

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create records one delivery attempt.
func (r *Repository) Create(ctx context.Context, l *models.EmailLog) error {
	const q = `INSERT INTO email_logs (id, schedule_id, webinar_event_id, email_type, recipient_email, subject, status, error_message, sent_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, l.ScheduleID, l.WebinarEventID, l.EmailType, l.RecipientEmail,
		l.Subject, l.Status, l.ErrorMessage, l.SentAt).
		Scan(&l.ID, &l.CreatedAt)
}

const columns = `id, schedule_id, webinar_event_id, email_type, recipient_email, subject, status, error_message, sent_at, created_at`

// ListRecent returns the newest delivery attempts, up to limit.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]*models.EmailLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM email_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLogs(rows)
}

// ListByEvent returns delivery attempts tied to a webinar event, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*models.EmailLog, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM email_logs WHERE webinar_event_id = $1 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLogs(rows)
}

// ListByRecipient returns delivery attempts for one recipient, newest first.
func (r *Repository) ListByRecipient(ctx context.Context, email string) ([]*models.EmailLog, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM email_logs WHERE recipient_email = $1 ORDER BY created_at DESC`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLogs(rows)
}

// CountsByStatus returns delivery attempt counts keyed by status.
func (r *Repository) CountsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM email_logs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

type rowsLike interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanLogs(rows rowsLike) ([]*models.EmailLog, error) {
	var list []*models.EmailLog
	for rows.Next() {
		var el models.EmailLog
		var subject, errMsg *string
		var sentAt *time.Time
		if err := rows.Scan(&el.ID, &el.ScheduleID, &el.WebinarEventID, &el.EmailType, &el.RecipientEmail,
			&subject, &el.Status, &errMsg, &sentAt, &el.CreatedAt); err != nil {
			return nil, err
		}
		if subject != nil {
			el.Subject = *subject
		}
		if errMsg != nil {
			el.ErrorMessage = *errMsg
		}
		el.SentAt = sentAt
		list = append(list, &el)
	}
	return list, rows.Err()
}
