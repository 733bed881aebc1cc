package returns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"loanflow-backend/internal/domain/access"
	"loanflow-backend/internal/domain/loan"
	se "loanflow-backend/internal/domain/sideeffect"
	"loanflow-backend/internal/domain/uow"
	"loanflow-backend/internal/metrics"
	"loanflow-backend/internal/usecase/sideeffect"
)

var openForAction = map[Action]map[loan.Status]bool{
	ActionApprove: {
		loan.StatusReturnRequested:  true,
		loan.StatusIncompleteReturn: true,
		loan.StatusFollowUp:         true,
	},
	ActionReject: {
		loan.StatusReturnRequested:  true,
		loan.StatusIncompleteReturn: true,
	},
	ActionComplete: {
		loan.StatusReturnRequested:  true,
		loan.StatusIncompleteReturn: true,
		loan.StatusFollowUp:         true,
	},
}

// ApplyReturnAction processes the warehouse decision on a return request and appends
// exactly one event with the given id. Pure: l is left untouched.
func ApplyReturnAction(l *loan.Loan, in Input, actor access.Actor, now time.Time, eventID string) (*loan.Loan, loan.ReturnRequestEvent, error) {
	var none loan.ReturnRequestEvent
	if !actor.IsWarehouse() && !actor.IsPrivileged() {
		return nil, none, &loan.AuthorizationError{
			ActorID: actor.ID,
			Reason:  "return decisions need the warehouse role",
			Detail:  map[string]any{"actorRole": string(actor.Role), "action": string(in.Action)},
		}
	}
	if strings.TrimSpace(in.RequestID) == "" {
		return nil, none, loan.Invalid("requestId", "required")
	}
	cond, err := ClassifyCondition(in.Condition)
	if err != nil {
		return nil, none, err
	}
	origin, ok := l.FindReturnEvent(in.RequestID)
	if !ok {
		return nil, none, loan.ErrReturnRequestNotFound
	}
	if origin.Status != loan.EventSubmitted {
		return nil, none, loan.Invalid("requestId", "must reference a submitted return request")
	}
	if latest, _ := l.LastSubmittedEvent(); latest.ID != origin.ID {
		return nil, none, fmt.Errorf("%w: return request %q was superseded by %q", loan.ErrInvalidTransition, origin.ID, latest.ID)
	}
	current := loan.DeriveCanonicalStatus(l)
	allowed, known := openForAction[in.Action]
	if !known {
		return nil, none, loan.Invalid("action", fmt.Sprintf("unknown action %q", in.Action))
	}
	if !allowed[current] {
		return nil, none, fmt.Errorf("%w: return %s from %q", loan.ErrInvalidTransition, in.Action, current)
	}

	out := l.Clone()
	at := now.UTC()
	by := actor.DisplayName()
	note := strings.TrimSpace(in.Note)
	condition := strings.TrimSpace(in.Condition)

	rs := &loan.ReturnStatus{}
	prev := string(current)
	if out.ReturnStatus != nil {
		rs.History = out.ReturnStatus.History
		rs.ProofFiles = out.ReturnStatus.ProofFiles
		rs.FinePaused = out.ReturnStatus.FinePaused
		rs.FinePausedAt = out.ReturnStatus.FinePausedAt
		if out.ReturnStatus.Status != "" {
			prev = out.ReturnStatus.Status
		}
	}
	rs.PreviousStatus = prev
	rs.Note = note
	rs.Condition = condition
	rs.ProcessedAt, rs.ProcessedBy = &at, by

	var ev loan.ReturnRequestEvent
	switch {
	case in.Action == ActionComplete, in.Action == ActionApprove && cond == ConditionComplete:
		ev = loan.NewCompletedEvent(eventID, in.RequestID, by, note, condition, at)
		rs.Status = string(loan.StatusReturned)
		rs.DisplayStatus = string(loan.StatusReturned)
		rs.NoFine = true
		out.LoanStatus = string(loan.EventCompleted)

	case in.Action == ActionApprove && cond == ConditionDamaged:
		ev = loan.NewFollowUpEvent(eventID, in.RequestID, by, note, condition, at)
		rs.Status = string(loan.StatusFollowUp)
		rs.DisplayStatus = string(loan.StatusFollowUp)
		if !rs.FinePaused {
			rs.FinePaused, rs.FinePausedAt = true, &at
		}
		out.LoanStatus = string(loan.EventFollowUp)

	case in.Action == ActionApprove:
		ev = loan.NewAcceptedEvent(eventID, in.RequestID, by, note, at)
		ev.Condition = condition
		rs.Status = string(loan.EventAccepted)
		rs.DisplayStatus = string(loan.StatusIncompleteReturn)
		out.LoanStatus = string(loan.EventAccepted)

	case in.Action == ActionReject:
		ev = loan.NewRejectedEvent(eventID, in.RequestID, by, note, at)
		rs.Status = string(loan.EventRejected)
		rs.DisplayStatus = string(loan.StatusReturnRejected)
		out.LoanStatus = string(loan.StatusBorrowed)
		out.WarehouseStatus.Status = string(loan.StatusBorrowed)
		out.WarehouseStatus.History = append(out.WarehouseStatus.History, loan.HistoryEntry{
			Status:      string(loan.StatusBorrowed),
			Note:        firstNonEmpty(note, "return rejected"),
			ProcessedAt: at,
			ProcessedBy: by,
		})
	}

	rs.History = append(rs.History, loan.HistoryEntry{Status: rs.Status, Note: note, ProcessedAt: at, ProcessedBy: by})
	out.ReturnStatus = rs
	out.ReturnRequest = append(out.ReturnRequest, ev)
	return out, ev, nil
}

// SubmitReturnRequest appends a borrower's submitted event. Allowed while Borrowed or after a rejected return.
func SubmitReturnRequest(l *loan.Loan, note string, actor access.Actor, now time.Time, eventID string) (*loan.Loan, loan.ReturnRequestEvent, error) {
	var none loan.ReturnRequestEvent
	if actor.ID != l.BorrowerID && !actor.IsPrivileged() {
		return nil, none, &loan.AuthorizationError{
			ActorID: actor.ID,
			Reason:  "only the borrower may request a return",
			Detail:  map[string]any{"borrowerId": l.BorrowerID},
		}
	}
	switch current := loan.DeriveCanonicalStatus(l); current {
	case loan.StatusBorrowed, loan.StatusReturnRejected:
	default:
		return nil, none, fmt.Errorf("%w: return request from %q", loan.ErrInvalidTransition, current)
	}

	out := l.Clone()
	ev := loan.NewSubmittedEvent(eventID, actor.DisplayName(), strings.TrimSpace(note), now.UTC())
	out.ReturnRequest = append(out.ReturnRequest, ev)
	return out, ev, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// eventEffects names the notification and its recipients per appended event.
func eventEffects(s loan.ReturnEventStatus) (se.EventKind, []se.Role) {
	switch s {
	case loan.EventSubmitted:
		return se.EventReturnSubmitted, []se.Role{se.RoleWarehouse, se.RoleEntitas}
	case loan.EventAccepted:
		return se.EventReturnAccepted, []se.Role{se.RoleBorrower, se.RoleEntitas}
	case loan.EventRejected:
		return se.EventReturnRejected, []se.Role{se.RoleBorrower, se.RoleEntitas}
	case loan.EventFollowUp:
		return se.EventReturnFollowUp, []se.Role{se.RoleBorrower, se.RoleEntitas, se.RoleWarehouse}
	default:
		return se.EventReturnCompleted, []se.Role{se.RoleBorrower, se.RoleEntitas, se.RoleCompany}
	}
}

type Usecase struct {
	uow   uow.UnitOfWork
	waker se.Waker
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

func NewUsecase(tx uow.UnitOfWork, waker se.Waker, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{uow: tx, waker: waker, log: log, now: time.Now, newID: uuid.NewString}
}

func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

func (u *Usecase) Act(ctx context.Context, in Input) (*EventDTO, error) {
	now := u.now().UTC()
	return u.transition(ctx, "return_"+string(in.Action), in.LoanID, in.Actor, func(l *loan.Loan) (*loan.Loan, loan.ReturnRequestEvent, error) {
		return ApplyReturnAction(l, in, in.Actor, now, u.newID())
	}, now)
}

func (u *Usecase) Submit(ctx context.Context, in SubmitInput) (*EventDTO, error) {
	now := u.now().UTC()
	return u.transition(ctx, "return_submit", in.LoanID, in.Actor, func(l *loan.Loan) (*loan.Loan, loan.ReturnRequestEvent, error) {
		return SubmitReturnRequest(l, in.Note, in.Actor, now, u.newID())
	}, now)
}

func (u *Usecase) transition(ctx context.Context, op, loanID string, actor access.Actor,
	apply func(*loan.Loan) (*loan.Loan, loan.ReturnRequestEvent, error), now time.Time) (*EventDTO, error) {
	var dto *EventDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		next, ev, err := apply(l)
		if err != nil {
			return err
		}
		if err := r.Loans.Save(ctx, next); err != nil {
			return err
		}

		kind, roles := eventEffects(ev.Status)
		meta := map[string]string{
			"actor":     actor.DisplayName(),
			"eventId":   ev.ID,
			"requestId": ev.RequestID,
			"note":      ev.ProcessedNote,
			"condition": ev.Condition,
		}
		err = sideeffect.NewPlan(next, now).
			Notify(kind, meta, roles...).
			Mirror(kind).
			Schedule(ctx, r.Outbox)
		if err != nil {
			return err
		}

		status := loan.DeriveCanonicalStatus(next)
		dto = &EventDTO{
			LoanID:       next.LoanID,
			Event:        ev,
			Status:       status,
			Color:        loan.ColorFor(status),
			LoanStatus:   next.LoanStatus,
			ReturnStatus: next.ReturnStatus,
		}
		return nil
	})
	metrics.TransitionsTotal.WithLabelValues(op, metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, loan.Persist(op, err)
	}

	u.log.Info("return event appended",
		zap.String("loan_id", dto.LoanID),
		zap.String("event", string(dto.Event.Status)),
		zap.String("request_id", dto.Event.RequestID),
		zap.String("actor", actor.ID))
	sideeffect.Nudge(u.waker)
	return dto, nil
}
