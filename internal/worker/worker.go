// Package worker delivers due lifecycle emails: a ticker scans
// email_schedules for pending entries whose time has come, and a queue
// consumer reacts to dispatch kicks so immediate emails (confirmation,
// welcome) do not wait for the next tick.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/config"
	"github.com/inkwell-funnel/backend/internal/mailer"
	"github.com/inkwell-funnel/backend/internal/models"
	"github.com/inkwell-funnel/backend/pkg/queue"
)

// ScheduleStore is the email_schedules surface the processor needs.
type ScheduleStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.EmailScheduleEntry, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.EmailScheduleEntry, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

// LogStore records delivery attempts.
type LogStore interface {
	Create(ctx context.Context, l *models.EmailLog) error
}

// EmailProcessor sends due scheduled emails.
type EmailProcessor struct {
	schedules ScheduleStore
	logs      LogStore
	sender    mailer.Sender
	queue     *queue.Queue
	logger    *zap.Logger

	from        string
	baseURL     string
	tick        time.Duration
	batchSize   int
	sendTimeout time.Duration
	now         func() time.Time
}

// NewEmailProcessor creates an email processor.
func NewEmailProcessor(schedules ScheduleStore, logs LogStore, sender mailer.Sender, q *queue.Queue, emailCfg config.EmailConfig, workerCfg config.WorkerConfig, baseURL string, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{
		schedules:   schedules,
		logs:        logs,
		sender:      sender,
		queue:       q,
		logger:      logger,
		from:        mailer.FromHeader(emailCfg),
		baseURL:     baseURL,
		tick:        workerCfg.TickInterval,
		batchSize:   workerCfg.BatchSize,
		sendTimeout: workerCfg.SendTimeout,
		now:         time.Now,
	}
}

// ProcessDue sends every pending entry whose scheduled_for has passed.
// Failures are isolated per entry: one bad address never blocks the rest
// of the batch. Returns (sent, failed).
func (p *EmailProcessor) ProcessDue(ctx context.Context) (int, int) {
	due, err := p.schedules.ListDue(ctx, p.now(), p.batchSize)
	if err != nil {
		p.logger.Error("list due schedules failed", zap.Error(err))
		return 0, 0
	}
	if len(due) == 0 {
		return 0, 0
	}

	sent, failed := 0, 0
	for i := range due {
		if err := p.sendEntry(ctx, &due[i]); err != nil {
			failed++
			continue
		}
		sent++
	}
	p.logger.Info("due pass complete", zap.Int("sent", sent), zap.Int("failed", failed))
	return sent, failed
}

func (p *EmailProcessor) sendEntry(ctx context.Context, entry *models.EmailScheduleEntry) error {
	rendered, err := mailer.Render(entry.TemplateName, mailer.DataFromMetadata(entry.Metadata, p.baseURL))
	if err != nil {
		p.recordFailure(ctx, entry, "", err)
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.sendTimeout)
	defer cancel()
	err = p.sender.Send(sendCtx, mailer.Message{
		From:    p.from,
		To:      entry.Email,
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
	})
	if err != nil {
		p.recordFailure(ctx, entry, rendered.Subject, err)
		return err
	}

	if err := p.schedules.MarkSent(ctx, entry.ID); err != nil {
		p.logger.Error("mark sent failed", zap.Error(err), zap.String("schedule_id", entry.ID.String()))
	}
	sentAt := p.now()
	p.appendLog(ctx, &models.EmailLog{
		ScheduleID:     &entry.ID,
		WebinarEventID: entry.WebinarEventID,
		EmailType:      entry.EmailType,
		RecipientEmail: entry.Email,
		Subject:        rendered.Subject,
		Status:         models.EmailLogStatusSent,
		SentAt:         &sentAt,
	})
	p.logger.Debug("email sent",
		zap.String("schedule_id", entry.ID.String()),
		zap.String("email_type", entry.EmailType),
	)
	return nil
}

func (p *EmailProcessor) recordFailure(ctx context.Context, entry *models.EmailScheduleEntry, subject string, cause error) {
	p.logger.Error("email send failed",
		zap.Error(cause),
		zap.String("schedule_id", entry.ID.String()),
		zap.String("email_type", entry.EmailType),
	)
	if err := p.schedules.MarkFailed(ctx, entry.ID); err != nil {
		p.logger.Error("mark failed failed", zap.Error(err), zap.String("schedule_id", entry.ID.String()))
	}
	p.appendLog(ctx, &models.EmailLog{
		ScheduleID:     &entry.ID,
		WebinarEventID: entry.WebinarEventID,
		EmailType:      entry.EmailType,
		RecipientEmail: entry.Email,
		Subject:        subject,
		Status:         models.EmailLogStatusFailed,
		ErrorMessage:   cause.Error(),
	})
}

func (p *EmailProcessor) appendLog(ctx context.Context, l *models.EmailLog) {
	if err := p.logs.Create(ctx, l); err != nil {
		p.logger.Error("email log write failed", zap.Error(err))
	}
}

// Process executes one queue job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeDispatch:
		var payload queue.DispatchPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		p.logger.Debug("dispatch kick", zap.String("user_id", payload.UserID.String()), zap.String("reason", payload.Reason))
		p.ProcessDue(ctx)
		return nil
	case queue.JobTypeResend:
		var payload queue.ResendPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.processResend(ctx, payload.ScheduleID)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// processResend re-sends a single schedule entry regardless of its current
// status. Each attempt still lands in email_logs.
func (p *EmailProcessor) processResend(ctx context.Context, scheduleID uuid.UUID) error {
	entry, err := p.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}
	if entry == nil {
		p.logger.Warn("resend for unknown schedule", zap.String("schedule_id", scheduleID.String()))
		return nil
	}
	return p.sendEntry(ctx, entry)
}

// Run starts the ticker loop and the queue consumer, blocking until ctx is
// cancelled.
func (p *EmailProcessor) Run(ctx context.Context) {
	go p.consumeQueue(ctx)

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	p.ProcessDue(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		case <-ticker.C:
			p.ProcessDue(ctx)
		}
	}
}

func (p *EmailProcessor) consumeQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
