package sideeffect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"loanflow-backend/internal/domain/outbox"
	se "loanflow-backend/internal/domain/sideeffect"
	"loanflow-backend/internal/metrics"
)

var (
	ErrTaskTimeout    = errors.New("side effect exceeded its time budget")
	errMalformed      = errors.New("malformed task payload")
	errUnknownKind    = errors.New("unknown task kind")
	errNoCollaborator = errors.New("collaborator not configured")
)

type Config struct {
	PollInterval  time.Duration
	BatchSize     int
	MaxAttempts   int
	TaskTimeout   time.Duration
	LeaseTTL      time.Duration
	RetryMaxDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 10 * time.Second
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = 30 * time.Second
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 5 * time.Minute
	}
	return c
}

// Worker drains the outbox: notifications go to the Dispatcher, mirror rows to MirrorSync.
type Worker struct {
	tasks      outbox.Repository
	receipts   outbox.ReceiptRepository
	dispatcher se.Dispatcher
	mirror     se.MirrorSync
	log        *zap.Logger
	cfg        Config
	now        func() time.Time
	wake       chan struct{}
}

func NewWorker(tasks outbox.Repository, receipts outbox.ReceiptRepository, d se.Dispatcher, m se.MirrorSync, log *zap.Logger, cfg Config) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		tasks:      tasks,
		receipts:   receipts,
		dispatcher: d,
		mirror:     m,
		log:        log,
		cfg:        cfg.withDefaults(),
		now:        func() time.Time { return time.Now().UTC() },
		wake:       make(chan struct{}, 1),
	}
}

// Wake never blocks; several wakes before the next poll collapse into one.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("outbox worker started", zap.Duration("poll_interval", w.cfg.PollInterval))
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("outbox worker stopped")
			return nil
		case <-ticker.C:
		case <-w.wake:
		}
		for {
			n, err := w.RunOnce(ctx)
			if err != nil {
				w.log.Error("outbox batch failed", zap.Error(err))
				break
			}
			if n < w.cfg.BatchSize || ctx.Err() != nil {
				break
			}
		}
	}
}

// RunOnce claims and handles one batch. It returns the number of tasks claimed.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	batch, err := w.tasks.ClaimDue(ctx, w.now(), w.cfg.LeaseTTL, w.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim outbox tasks: %w", err)
	}
	for _, t := range batch {
		if ctx.Err() != nil {
			return len(batch), ctx.Err()
		}
		w.handle(ctx, t)
	}
	return len(batch), nil
}

func (w *Worker) handle(ctx context.Context, t *outbox.Task) {
	err := w.deliver(ctx, t)
	metrics.SideEffectDeliveriesTotal.WithLabelValues(string(t.Kind), metrics.Outcome(err)).Inc()

	if err == nil {
		if mErr := w.tasks.MarkDone(ctx, t.ID, w.now()); mErr != nil {
			w.log.Error("mark outbox task done", zap.String("task_id", t.ID), zap.Error(mErr))
		}
		return
	}

	attempts := t.Attempts + 1
	permanent := errors.Is(err, errMalformed) || errors.Is(err, errUnknownKind)
	if permanent || attempts >= w.cfg.MaxAttempts {
		metrics.OutboxDeadTasksTotal.Inc()
		w.log.Error("outbox task dead",
			zap.String("task_id", t.ID),
			zap.String("loan_id", t.LoanID),
			zap.String("event", t.EventKind),
			zap.Int("attempts", attempts),
			zap.Error(err))
		if mErr := w.tasks.MarkDead(ctx, t.ID, attempts, err.Error()); mErr != nil {
			w.log.Error("mark outbox task dead", zap.String("task_id", t.ID), zap.Error(mErr))
		}
		return
	}

	delay := Backoff(attempts, w.cfg.RetryMaxDelay)
	w.log.Warn("side effect delivery failed",
		zap.String("task_id", t.ID),
		zap.String("loan_id", t.LoanID),
		zap.String("kind", string(t.Kind)),
		zap.String("event", t.EventKind),
		zap.Int("attempts", attempts),
		zap.Duration("retry_in", delay),
		zap.Error(err))
	if mErr := w.tasks.MarkRetry(ctx, t.ID, attempts, err.Error(), w.now().Add(delay)); mErr != nil {
		w.log.Error("mark outbox task for retry", zap.String("task_id", t.ID), zap.Error(mErr))
	}
}

func (w *Worker) deliver(ctx context.Context, t *outbox.Task) error {
	switch t.Kind {
	case outbox.KindNotification:
		return w.deliverNotification(ctx, t)
	case outbox.KindMirror:
		return w.deliverMirror(ctx, t)
	}
	return fmt.Errorf("%w: %q", errUnknownKind, t.Kind)
}

func (w *Worker) deliverNotification(ctx context.Context, t *outbox.Task) error {
	var p se.NotificationPayload
	if err := json.Unmarshal([]byte(t.Payload), &p); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if w.dispatcher == nil {
		return errNoCollaborator
	}

	sent, err := w.receipts.SentRecipients(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("load receipts: %w", err)
	}
	pending := make([]se.Recipient, 0, len(p.Recipients))
	for _, r := range p.Recipients {
		if !sent[r.Key()] {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	var outcomes []se.Outcome
	err = withBudget(ctx, w.cfg.TaskTimeout, func(ctx context.Context) error {
		outcomes = w.dispatcher.Dispatch(ctx, p.Snapshot, pending, p.Kind, p.Context)
		return nil
	})
	if err != nil {
		return err
	}

	var failed []error
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", o.Recipient.Key(), o.Err))
			continue
		}
		rec := &outbox.Receipt{
			TaskID:       t.ID,
			LoanID:       t.LoanID,
			RecipientKey: o.Recipient.Key(),
			Sent:         true,
			SentAt:       w.now(),
		}
		if err := w.receipts.MarkSent(ctx, rec); err != nil {
			failed = append(failed, fmt.Errorf("receipt %s: %w", rec.RecipientKey, err))
		}
	}
	if len(outcomes) < len(pending) {
		failed = append(failed, fmt.Errorf("dispatcher reported %d of %d recipients", len(outcomes), len(pending)))
	}
	return errors.Join(failed...)
}

func (w *Worker) deliverMirror(ctx context.Context, t *outbox.Task) error {
	var p se.MirrorPayload
	if err := json.Unmarshal([]byte(t.Payload), &p); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if w.mirror == nil {
		return errNoCollaborator
	}
	return withBudget(ctx, w.cfg.TaskTimeout, func(ctx context.Context) error {
		return w.mirror.Sync(ctx, p.Snapshot, p.StatusText, p.Sheet)
	})
}

// withBudget runs fn with a deadline and stops waiting once it passes,
// even if fn ignores its context.
func withBudget(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w (%s)", ErrTaskTimeout, d)
	}
}

// Backoff is 1s doubled per attempt, capped at max.
func Backoff(attempt int, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 30 {
		return max
	}
	d := time.Second << (attempt - 1)
	if max > 0 && d > max {
		return max
	}
	return d
}
