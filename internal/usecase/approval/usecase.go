package approval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"loanflow-backend/internal/domain/access"
	"loanflow-backend/internal/domain/loan"
	se "loanflow-backend/internal/domain/sideeffect"
	"loanflow-backend/internal/domain/uow"
	"loanflow-backend/internal/metrics"
	"loanflow-backend/internal/usecase/sideeffect"
)

// ApplyApproval applies one decision to the approval map. Pure: the input map is never mutated.
func ApplyApproval(in loan.Approvals, d Decision, actor access.Actor, now time.Time) (Result, error) {
	reason := strings.TrimSpace(d.Reason)
	if !d.Approved && reason == "" {
		return Result{}, loan.Invalid("reason", "required when rejecting")
	}
	if !actor.IsPrivileged() {
		if in.Completed() {
			return Result{}, loan.ErrAlreadyApproved
		}
		if in.Rejected() {
			return Result{}, loan.ErrInvalidTransition
		}
	}

	out := in.Clone()
	at := now.UTC()
	var touched []string
	for _, company := range out.CompanyKeys() {
		if !actor.CanActOn(company) {
			continue
		}
		prev := out.Companies[company]
		e := loan.ApprovalEntry{
			Approved:   d.Approved,
			ApprovedBy: actor.DisplayName(),
			ApprovedAt: &at,
			Note:       prev.Note,
		}
		if !d.Approved {
			e.RejectionReason = reason
		}
		if n := strings.TrimSpace(d.Note); n != "" {
			e.Note = n
		}
		out.Companies[company] = e
		touched = append(touched, company)
	}

	if len(touched) == 0 {
		return Result{}, &loan.AuthorizationError{
			ActorID: actor.ID,
			Reason:  "no approval entry within the actor's companies",
			Detail: map[string]any{
				"actorRole":      string(actor.Role),
				"actorCompanies": actor.Companies,
				"loanCompanies":  in.CompanyKeys(),
			},
		}
	}

	return Result{
		Approvals: out,
		Completed: out.Completed(),
		Rejected:  out.Rejected(),
		Touched:   touched,
	}, nil
}

// approvable lists the states in which approvals may still change. Later states
// belong to the warehouse and return flows.
var approvable = map[loan.Status]bool{
	loan.StatusPending:  true,
	loan.StatusApproved: true,
	loan.StatusRejected: true,
}

type Usecase struct {
	uow   uow.UnitOfWork
	waker se.Waker
	log   *zap.Logger
	now   func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, waker se.Waker, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{uow: tx, waker: waker, log: log, now: time.Now}
}

// WithClock swaps the time source; tests use it.
func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

func (u *Usecase) Approve(ctx context.Context, in ApproveInput) (*ApprovalDTO, error) {
	if u.uow == nil {
		return nil, loan.ErrInvalidTransition
	}
	var dto *ApprovalDTO
	now := u.now().UTC()

	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
		if l.IsDraft {
			return loan.ErrInvalidTransition
		}
		if current := loan.DeriveCanonicalStatus(l); !approvable[current] {
			return fmt.Errorf("%w: approve from %q", loan.ErrInvalidTransition, current)
		}
		res, err := ApplyApproval(l.Approvals, in.Decision, in.Actor, now)
		if err != nil {
			return err
		}

		l.Approvals = res.Approvals
		switch {
		case res.Rejected:
			l.LoanStatus = string(loan.StatusRejected)
		case res.Completed:
			l.LoanStatus = string(loan.StatusApproved)
			if strings.TrimSpace(l.WarehouseStatus.Status) == "" {
				l.WarehouseStatus.Status = string(loan.StatusPending)
			}
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		meta := map[string]string{
			"actor":     in.Actor.DisplayName(),
			"companies": strings.Join(res.Touched, ","),
		}
		plan := sideeffect.NewPlan(l, now)
		switch {
		case res.Rejected:
			meta["reason"] = strings.TrimSpace(in.Decision.Reason)
			plan.Notify(se.EventApprovalRejected, meta, se.RoleEntitas, se.RoleCompany, se.RoleBorrower)
		case res.Completed:
			plan.Notify(se.EventFinalApproved, meta, se.RoleEntitas, se.RoleCompany, se.RoleWarehouse, se.RoleBorrower)
		default:
			plan.Notify(se.EventApprovalProgress, meta, se.RoleEntitas, se.RoleCompany)
		}
		if err := plan.Schedule(ctx, r.Outbox); err != nil {
			return err
		}

		status := loan.DeriveCanonicalStatus(l)
		dto = &ApprovalDTO{
			LoanID:    l.LoanID,
			Status:    status,
			Color:     loan.ColorFor(status),
			Completed: res.Completed,
			Rejected:  res.Rejected,
			Touched:   res.Touched,
			Approvals: res.Approvals,
		}
		return nil
	})
	metrics.TransitionsTotal.WithLabelValues("approve", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, loan.Persist("approve loan", err)
	}

	u.log.Info("approval recorded",
		zap.String("loan_id", dto.LoanID),
		zap.String("actor", in.Actor.ID),
		zap.Strings("companies", dto.Touched),
		zap.String("status", string(dto.Status)))
	sideeffect.Nudge(u.waker)
	return dto, nil
}
