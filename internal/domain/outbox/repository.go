package outbox

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, tasks ...*Task) error
	// ClaimDue leases up to limit due tasks and marks them PROCESSING.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*Task, error)
	MarkDone(ctx context.Context, id string, at time.Time) error
	MarkRetry(ctx context.Context, id string, attempts int, lastErr string, next time.Time) error
	MarkDead(ctx context.Context, id string, attempts int, lastErr string) error
}

type ReceiptRepository interface {
	// SentRecipients returns the recipient keys already confirmed for the task.
	SentRecipients(ctx context.Context, taskID string) (map[string]bool, error)
	MarkSent(ctx context.Context, r *Receipt) error
}
