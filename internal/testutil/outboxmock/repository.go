package outboxmock

import (
	"context"
	"sync"
	"time"

	domain "loanflow-backend/internal/domain/outbox"
)

var (
	_ domain.Repository        = (*Repo)(nil)
	_ domain.ReceiptRepository = (*Receipts)(nil)
)

// Repo is a function-backed mock of domain.Repository.
// Create without a func appends to Created so tests can inspect scheduled tasks.
type Repo struct {
	CreateFn    func(ctx context.Context, tasks ...*domain.Task) error
	ClaimDueFn  func(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*domain.Task, error)
	MarkDoneFn  func(ctx context.Context, id string, at time.Time) error
	MarkRetryFn func(ctx context.Context, id string, attempts int, lastErr string, next time.Time) error
	MarkDeadFn  func(ctx context.Context, id string, attempts int, lastErr string) error

	mu      sync.Mutex
	Created []*domain.Task
}

func (m *Repo) Create(ctx context.Context, tasks ...*domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, tasks...)
	}
	m.mu.Lock()
	m.Created = append(m.Created, tasks...)
	m.mu.Unlock()
	return nil
}

func (m *Repo) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*domain.Task, error) {
	if m.ClaimDueFn != nil {
		return m.ClaimDueFn(ctx, now, lease, limit)
	}
	return nil, nil
}

func (m *Repo) MarkDone(ctx context.Context, id string, at time.Time) error {
	if m.MarkDoneFn != nil {
		return m.MarkDoneFn(ctx, id, at)
	}
	return nil
}

func (m *Repo) MarkRetry(ctx context.Context, id string, attempts int, lastErr string, next time.Time) error {
	if m.MarkRetryFn != nil {
		return m.MarkRetryFn(ctx, id, attempts, lastErr, next)
	}
	return nil
}

func (m *Repo) MarkDead(ctx context.Context, id string, attempts int, lastErr string) error {
	if m.MarkDeadFn != nil {
		return m.MarkDeadFn(ctx, id, attempts, lastErr)
	}
	return nil
}

// Kinds lists the event kinds of created tasks in order.
func (m *Repo) Kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Created))
	for _, t := range m.Created {
		out = append(out, string(t.Kind)+":"+t.EventKind)
	}
	return out
}

// Receipts is an in-memory ReceiptRepository keyed by task id.
type Receipts struct {
	MarkSentFn func(ctx context.Context, r *domain.Receipt) error

	mu   sync.Mutex
	sent map[string]map[string]bool
}

func (m *Receipts) SentRecipients(_ context.Context, taskID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for k, v := range m.sent[taskID] {
		out[k] = v
	}
	return out, nil
}

func (m *Receipts) MarkSent(ctx context.Context, r *domain.Receipt) error {
	if m.MarkSentFn != nil {
		if err := m.MarkSentFn(ctx, r); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent == nil {
		m.sent = map[string]map[string]bool{}
	}
	if m.sent[r.TaskID] == nil {
		m.sent[r.TaskID] = map[string]bool{}
	}
	m.sent[r.TaskID][r.RecipientKey] = true
	return nil
}
