package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/config"
	"github.com/inkwell-funnel/backend/internal/mailer"
	"github.com/inkwell-funnel/backend/internal/models"
)

type fakeSchedules struct {
	due    []models.EmailScheduleEntry
	sent   []uuid.UUID
	failed []uuid.UUID
}

func (f *fakeSchedules) ListDue(ctx context.Context, now time.Time, limit int) ([]models.EmailScheduleEntry, error) {
	if limit < len(f.due) {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeSchedules) GetByID(ctx context.Context, id uuid.UUID) (*models.EmailScheduleEntry, error) {
	for i := range f.due {
		if f.due[i].ID == id {
			return &f.due[i], nil
		}
	}
	return nil, nil
}

func (f *fakeSchedules) MarkSent(ctx context.Context, id uuid.UUID) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeSchedules) MarkFailed(ctx context.Context, id uuid.UUID) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeLogs struct {
	entries []*models.EmailLog
}

func (f *fakeLogs) Create(ctx context.Context, l *models.EmailLog) error {
	f.entries = append(f.entries, l)
	return nil
}

// failTo fails sends addressed to a specific recipient.
type failTo struct {
	to    string
	sends []mailer.Message
}

func (f *failTo) Send(ctx context.Context, msg mailer.Message) error {
	if msg.To == f.to {
		return errors.New("mailbox unavailable")
	}
	f.sends = append(f.sends, msg)
	return nil
}

func dueEntry(email, emailType, tmpl string) models.EmailScheduleEntry {
	return models.EmailScheduleEntry{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		Email:        email,
		EmailType:    emailType,
		TemplateName: tmpl,
		ScheduledFor: time.Now().Add(-time.Minute),
		Status:       models.ScheduleStatusPending,
		Metadata:     map[string]string{"webinar_title": "Draft Night", "product_type": "workbook"},
	}
}

func newTestProcessor(schedules *fakeSchedules, logs *fakeLogs, sender mailer.Sender) *EmailProcessor {
	return NewEmailProcessor(schedules, logs, sender, nil,
		config.EmailConfig{FromAddress: "hello@inkwell.example", FromName: "Inkwell"},
		config.WorkerConfig{TickInterval: time.Minute, BatchSize: 50, SendTimeout: time.Second},
		"https://inkwell.example", zap.NewNop())
}

func TestProcessDueSendsAndMarks(t *testing.T) {
	schedules := &fakeSchedules{due: []models.EmailScheduleEntry{
		dueEntry("a@example.com", models.EmailTypeConfirmation, "webinar-confirmation"),
		dueEntry("b@example.com", models.EmailTypeWelcome, "purchase-welcome"),
	}}
	logs := &fakeLogs{}
	sender := &failTo{}
	p := newTestProcessor(schedules, logs, sender)

	sent, failed := p.ProcessDue(context.Background())

	assert.Equal(t, 2, sent)
	assert.Equal(t, 0, failed)
	assert.Len(t, schedules.sent, 2)
	assert.Empty(t, schedules.failed)
	require.Len(t, logs.entries, 2)
	assert.Equal(t, models.EmailLogStatusSent, logs.entries[0].Status)
	assert.Equal(t, "Inkwell <hello@inkwell.example>", sender.sends[0].From)
}

func TestProcessDueIsolatesFailures(t *testing.T) {
	schedules := &fakeSchedules{due: []models.EmailScheduleEntry{
		dueEntry("bad@example.com", models.EmailTypeReminder24h, "webinar-reminder-24h"),
		dueEntry("good@example.com", models.EmailTypeReminder24h, "webinar-reminder-24h"),
	}}
	logs := &fakeLogs{}
	p := newTestProcessor(schedules, logs, &failTo{to: "bad@example.com"})

	sent, failed := p.ProcessDue(context.Background())

	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, failed)
	require.Len(t, schedules.failed, 1)
	assert.Equal(t, schedules.due[0].ID, schedules.failed[0])
	require.Len(t, logs.entries, 2)
	assert.Equal(t, models.EmailLogStatusFailed, logs.entries[0].Status)
	assert.Equal(t, "mailbox unavailable", logs.entries[0].ErrorMessage)
	assert.Equal(t, models.EmailLogStatusSent, logs.entries[1].Status)
}

func TestProcessDueFailsUnknownTemplate(t *testing.T) {
	schedules := &fakeSchedules{due: []models.EmailScheduleEntry{
		dueEntry("a@example.com", "mystery", "no-such-template"),
	}}
	logs := &fakeLogs{}
	p := newTestProcessor(schedules, logs, &failTo{})

	sent, failed := p.ProcessDue(context.Background())

	assert.Equal(t, 0, sent)
	assert.Equal(t, 1, failed)
	require.Len(t, logs.entries, 1)
	assert.Equal(t, models.EmailLogStatusFailed, logs.entries[0].Status)
}

func TestProcessResendUnknownScheduleIsNoop(t *testing.T) {
	p := newTestProcessor(&fakeSchedules{}, &fakeLogs{}, &failTo{})
	err := p.processResend(context.Background(), uuid.New())
	assert.NoError(t, err)
}

func TestProcessResendSendsAgain(t *testing.T) {
	entry := dueEntry("a@example.com", models.EmailTypeWelcome, "purchase-welcome")
	entry.Status = models.ScheduleStatusSent
	schedules := &fakeSchedules{due: []models.EmailScheduleEntry{entry}}
	logs := &fakeLogs{}
	sender := &failTo{}
	p := newTestProcessor(schedules, logs, sender)

	require.NoError(t, p.processResend(context.Background(), entry.ID))
	assert.Len(t, sender.sends, 1)
	require.Len(t, logs.entries, 1)
	assert.Equal(t, models.EmailLogStatusSent, logs.entries[0].Status)
}
