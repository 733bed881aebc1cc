package extension

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

type RequestInput struct {
	LoanID              string
	RequestedReturnDate time.Time
	Reason              string
	Actor               access.Actor
}

type DecideInput struct {
	LoanID      string
	ExtensionID string
	Approved    bool
	Note        string
	Actor       access.Actor
}

type ExtensionDTO struct {
	LoanID           string                `json:"loanId"`
	Extension        loan.ExtensionRequest `json:"extension"`
	EffectiveDueDate *time.Time            `json:"effectiveDueDate,omitempty"`
	Status           loan.Status           `json:"status"`
}

// ApplyRequest appends a pending extension. The new date must be later than the current due date.
func ApplyRequest(l *loan.Loan, in RequestInput, now time.Time, id string) (*loan.Loan, loan.ExtensionRequest, error) {
	var none loan.ExtensionRequest
	if in.Actor.ID != l.BorrowerID && !in.Actor.IsPrivileged() {
		return nil, none, &loan.AuthorizationError{
			ActorID: in.Actor.ID,
			Reason:  "only the borrower may request an extension",
			Detail:  map[string]any{"borrowerId": l.BorrowerID},
		}
	}
	if in.RequestedReturnDate.IsZero() {
		return nil, none, loan.Invalid("requestedReturnDate", "required")
	}
	switch status := loan.DeriveCanonicalStatus(l); status {
	case loan.StatusBorrowed, loan.StatusReturnRejected:
	default:
		return nil, none, fmt.Errorf("%w: extension from %q", loan.ErrInvalidTransition, status)
	}
	for _, ext := range l.ExtendStatus {
		if ext.ApproveStatus == loan.ExtensionPending {
			return nil, none, fmt.Errorf("%w: extension %s is still pending", loan.ErrInvalidTransition, ext.ID)
		}
	}
	due := l.EffectiveDueDate()
	if due != nil && !in.RequestedReturnDate.After(*due) {
		return nil, none, loan.Invalid("requestedReturnDate", "must be after the current due date "+due.Format(time.DateOnly))
	}

	ext := loan.ExtensionRequest{
		ID:                  id,
		RequestedReturnDate: in.RequestedReturnDate.UTC(),
		Reason:              strings.TrimSpace(in.Reason),
		RequestedAt:         now.UTC(),
		RequestedBy:         in.Actor.DisplayName(),
		ApproveStatus:       loan.ExtensionPending,
	}
	out := l.Clone()
	out.ExtendStatus = append(out.ExtendStatus, ext)
	return out, ext, nil
}

// ApplyDecision settles a pending extension; only privileged actors decide.
func ApplyDecision(l *loan.Loan, in DecideInput, now time.Time) (*loan.Loan, loan.ExtensionRequest, error) {
	var none loan.ExtensionRequest
	if !in.Actor.IsPrivileged() {
		return nil, none, &loan.AuthorizationError{
			ActorID: in.Actor.ID,
			Reason:  "extension decisions need an admin role",
			Detail:  map[string]any{"actorRole": string(in.Actor.Role)},
		}
	}
	out := l.Clone()
	idx := -1
	for i, ext := range out.ExtendStatus {
		if ext.ID == in.ExtensionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, none, loan.ErrExtensionNotFound
	}
	ext := out.ExtendStatus[idx]
	if ext.ApproveStatus != loan.ExtensionPending {
		return nil, none, fmt.Errorf("%w: extension already %s", loan.ErrInvalidTransition, ext.ApproveStatus)
	}

	at := now.UTC()
	ext.ApproveStatus = loan.ExtensionRejected
	if in.Approved {
		ext.ApproveStatus = loan.ExtensionApproved
	}
	ext.DecidedAt = &at
	ext.DecidedBy = in.Actor.DisplayName()
	ext.DecisionNote = strings.TrimSpace(in.Note)
	out.ExtendStatus[idx] = ext
	return out, ext, nil
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

func (u *Usecase) Request(ctx context.Context, in RequestInput) (*ExtensionDTO, error) {
	now := u.now().UTC()
	return u.run(ctx, "extension_request", in.LoanID, func(l *loan.Loan) (*loan.Loan, loan.ExtensionRequest, error) {
		return ApplyRequest(l, in, now, u.newID())
	}, func(p *sideeffect.Plan, ext loan.ExtensionRequest) {
		p.Notify(se.EventExtensionAsked, map[string]string{
			"extensionId":   ext.ID,
			"requestedDate": ext.RequestedReturnDate.Format(time.DateOnly),
			"reason":        ext.Reason,
		}, se.RoleEntitas, se.RoleCompany)
	}, now)
}

func (u *Usecase) Decide(ctx context.Context, in DecideInput) (*ExtensionDTO, error) {
	now := u.now().UTC()
	return u.run(ctx, "extension_decide", in.LoanID, func(l *loan.Loan) (*loan.Loan, loan.ExtensionRequest, error) {
		return ApplyDecision(l, in, now)
	}, func(p *sideeffect.Plan, ext loan.ExtensionRequest) {
		p.Notify(se.EventExtensionDecided, map[string]string{
			"extensionId": ext.ID,
			"decision":    string(ext.ApproveStatus),
			"note":        ext.DecisionNote,
		}, se.RoleBorrower)
		if ext.ApproveStatus == loan.ExtensionApproved {
			p.Mirror(se.EventExtensionDecided)
		}
	}, now)
}

func (u *Usecase) run(ctx context.Context, op, loanID string,
	apply func(*loan.Loan) (*loan.Loan, loan.ExtensionRequest, error),
	effects func(*sideeffect.Plan, loan.ExtensionRequest), now time.Time) (*ExtensionDTO, error) {
	var dto *ExtensionDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		next, ext, err := apply(l)
		if err != nil {
			return err
		}
		if err := r.Loans.Save(ctx, next); err != nil {
			return err
		}
		plan := sideeffect.NewPlan(next, now)
		effects(plan, ext)
		if err := plan.Schedule(ctx, r.Outbox); err != nil {
			return err
		}
		dto = &ExtensionDTO{
			LoanID:           next.LoanID,
			Extension:        ext,
			EffectiveDueDate: next.EffectiveDueDate(),
			Status:           loan.DeriveCanonicalStatus(next),
		}
		return nil
	})
	metrics.TransitionsTotal.WithLabelValues(op, metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, loan.Persist(op, err)
	}
	u.log.Info("extension updated",
		zap.String("loan_id", dto.LoanID),
		zap.String("extension_id", dto.Extension.ID),
		zap.String("state", string(dto.Extension.ApproveStatus)))
	sideeffect.Nudge(u.waker)
	return dto, nil
}
