package sideeffect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"loanflow-backend/internal/domain/loan"
	"loanflow-backend/internal/domain/outbox"
	se "loanflow-backend/internal/domain/sideeffect"
)

// Plan collects the outbox tasks a transition schedules.
// The snapshot is taken once, so build the plan after the loan has been mutated.
type Plan struct {
	snap  se.Snapshot
	at    time.Time
	tasks []*outbox.Task
	err   error
}

func NewPlan(l *loan.Loan, at time.Time) *Plan {
	return &Plan{snap: se.SnapshotOf(l, at), at: at.UTC()}
}

// Notify adds a notification bundle for the given roles. Roles without an identity are skipped;
// an empty bundle schedules nothing.
func (p *Plan) Notify(kind se.EventKind, meta map[string]string, roles ...se.Role) *Plan {
	recipients := se.Targets(p.snap, roles...)
	if len(recipients) == 0 {
		return p
	}
	return p.add(outbox.KindNotification, kind, se.NotificationPayload{
		Snapshot:   p.snap,
		Recipients: recipients,
		Kind:       kind,
		Context:    meta,
	})
}

// Mirror adds an overwrite of the loan's external sheet row.
func (p *Plan) Mirror(kind se.EventKind) *Plan {
	return p.add(outbox.KindMirror, kind, se.MirrorPayload{
		Snapshot:   p.snap,
		StatusText: string(p.snap.Status),
		Sheet:      se.SheetSelector(p.snap.Category),
		Kind:       kind,
	})
}

func (p *Plan) add(kind outbox.TaskKind, ev se.EventKind, payload any) *Plan {
	if p.err != nil {
		return p
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		p.err = fmt.Errorf("encode %s payload: %w", kind, err)
		return p
	}
	p.tasks = append(p.tasks, &outbox.Task{
		ID:            uuid.NewString(),
		LoanID:        p.snap.LoanID,
		Kind:          kind,
		EventKind:     string(ev),
		Payload:       string(raw),
		Status:        outbox.TaskStatusCreated,
		NextAttemptAt: p.at,
	})
	return p
}

func (p *Plan) Tasks() ([]*outbox.Task, error) { return p.tasks, p.err }

// Schedule writes the planned tasks through repo, normally the transaction-bound one.
func (p *Plan) Schedule(ctx context.Context, repo outbox.Repository) error {
	if p.err != nil {
		return p.err
	}
	if len(p.tasks) == 0 || repo == nil {
		return nil
	}
	if err := repo.Create(ctx, p.tasks...); err != nil {
		return fmt.Errorf("schedule side effects: %w", err)
	}
	return nil
}

// Nudge wakes the worker if one is wired.
func Nudge(w se.Waker) {
	if w != nil {
		w.Wake()
	}
}
