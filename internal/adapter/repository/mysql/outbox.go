package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"loanflow-backend/internal/domain/outbox"
)

type OutboxRepository struct{ db *gorm.DB }

func NewOutboxRepository(db *gorm.DB) *OutboxRepository { return &OutboxRepository{db: db} }

func (r *OutboxRepository) Create(ctx context.Context, tasks ...*outbox.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(tasks).Error
}

// ClaimDue leases due tasks in one short transaction. Rows another worker holds are skipped
// on MySQL; sqlite serializes writers anyway.
func (r *OutboxRepository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*outbox.Task, error) {
	var claimed []*outbox.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var due []*outbox.Task
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("(status IN ? AND next_attempt_at <= ?) OR (status = ? AND lease_until < ?)",
				[]outbox.TaskStatus{outbox.TaskStatusCreated, outbox.TaskStatusFailed}, now,
				outbox.TaskStatusProcessing, now).
			Order("next_attempt_at ASC").
			Limit(limit).
			Find(&due).Error
		if err != nil || len(due) == 0 {
			return err
		}

		ids := make([]string, len(due))
		for i, t := range due {
			ids[i] = t.ID
		}
		until := now.Add(lease)
		err = tx.Model(&outbox.Task{}).
			Where("id IN ?", ids).
			Updates(map[string]any{"status": outbox.TaskStatusProcessing, "lease_until": until}).Error
		if err != nil {
			return err
		}
		for _, t := range due {
			t.Status = outbox.TaskStatusProcessing
			t.LeaseUntil = &until
		}
		claimed = due
		return nil
	})
	return claimed, err
}

func (r *OutboxRepository) MarkDone(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"status":       outbox.TaskStatusDone,
		"completed_at": at,
		"lease_until":  nil,
	})
}

func (r *OutboxRepository) MarkRetry(ctx context.Context, id string, attempts int, lastErr string, next time.Time) error {
	return r.update(ctx, id, map[string]any{
		"status":          outbox.TaskStatusFailed,
		"attempts":        attempts,
		"last_error":      lastErr,
		"next_attempt_at": next,
		"lease_until":     nil,
	})
}

func (r *OutboxRepository) MarkDead(ctx context.Context, id string, attempts int, lastErr string) error {
	return r.update(ctx, id, map[string]any{
		"status":      outbox.TaskStatusDead,
		"attempts":    attempts,
		"last_error":  lastErr,
		"lease_until": nil,
	})
}

func (r *OutboxRepository) update(ctx context.Context, id string, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&outbox.Task{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return outbox.ErrTaskNotFound
	}
	return nil
}

type ReceiptRepository struct{ db *gorm.DB }

func NewReceiptRepository(db *gorm.DB) *ReceiptRepository { return &ReceiptRepository{db: db} }

func (r *ReceiptRepository) SentRecipients(ctx context.Context, taskID string) (map[string]bool, error) {
	var keys []string
	err := r.db.WithContext(ctx).Model(&outbox.Receipt{}).
		Where("task_id = ? AND sent = ?", taskID, true).
		Pluck("recipient_key", &keys).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k] = true
	}
	return out, nil
}

// MarkSent is idempotent per (task, recipient).
func (r *ReceiptRepository) MarkSent(ctx context.Context, rc *outbox.Receipt) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rc).Error
}
