package loan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"loanflow-backend/internal/domain/access"
	domain "loanflow-backend/internal/domain/loan"
	se "loanflow-backend/internal/domain/sideeffect"
	"loanflow-backend/internal/domain/uow"
	"loanflow-backend/internal/metrics"
	"loanflow-backend/internal/usecase/sideeffect"
	"loanflow-backend/pkg/id"
)

type Usecase struct {
	repo   domain.Repository
	uow    uow.UnitOfWork
	policy domain.FinePolicy
	waker  se.Waker
	log    *zap.Logger
	now    func() time.Time
}

func NewUsecase(r domain.Repository, tx uow.UnitOfWork, policy domain.FinePolicy, waker se.Waker, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{repo: r, uow: tx, policy: policy, waker: waker, log: log, now: time.Now}
}

func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

// Create stores a draft or submitted loan with every company seeded as a pending approval.
func (u *Usecase) Create(ctx context.Context, in CreateLoanInput) (*LoanDTO, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	now := u.now().UTC()

	companies := map[string]domain.ApprovalEntry{}
	for _, c := range in.Companies {
		if key := strings.TrimSpace(c); key != "" {
			companies[key] = domain.ApprovalEntry{}
		}
	}
	l := &domain.Loan{
		LoanID:          id.NewLoanID(),
		BorrowerID:      in.BorrowerID,
		BorrowerName:    strings.TrimSpace(in.BorrowerName),
		BorrowerEmail:   strings.TrimSpace(in.BorrowerEmail),
		EntitasID:       in.EntitasID,
		Category:        strings.TrimSpace(in.Category),
		ItemDescription: strings.TrimSpace(in.ItemDescription),
		IsDraft:         in.Draft,
		Approvals:       domain.Approvals{Companies: companies},
		UseDate:         utc(in.UseDate),
		ReturnDate:      utc(in.ReturnDate),
	}
	if !in.Draft {
		l.SubmittedAt = &now
	}

	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		if in.Draft {
			return nil
		}
		return submittedPlan(l, now, in.Actor).Schedule(ctx, r.Outbox)
	})
	metrics.TransitionsTotal.WithLabelValues("create", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, domain.Persist("create loan", err)
	}

	u.log.Info("loan created", zap.String("loan_id", l.LoanID), zap.Bool("draft", l.IsDraft))
	if !in.Draft {
		sideeffect.Nudge(u.waker)
	}
	return toDTO(l, now, u.policy), nil
}

// Submit turns a draft into a submitted loan.
func (u *Usecase) Submit(ctx context.Context, loanID string, actor access.Actor) (*LoanDTO, error) {
	now := u.now().UTC()
	var out *domain.Loan
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if actor.ID != l.BorrowerID && !actor.IsPrivileged() {
			return &domain.AuthorizationError{
				ActorID: actor.ID,
				Reason:  "only the borrower may submit",
				Detail:  map[string]any{"borrowerId": l.BorrowerID},
			}
		}
		if !l.IsDraft {
			return fmt.Errorf("%w: loan already submitted", domain.ErrInvalidTransition)
		}
		if len(l.Approvals.Companies) == 0 {
			return domain.Invalid("companies", "at least one approving company is required")
		}
		l.IsDraft = false
		l.SubmittedAt = &now
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		out = l
		return submittedPlan(l, now, actor).Schedule(ctx, r.Outbox)
	})
	metrics.TransitionsTotal.WithLabelValues("submit", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, domain.Persist("submit loan", err)
	}
	sideeffect.Nudge(u.waker)
	return toDTO(out, now, u.policy), nil
}

// Get returns the loan with its canonical status, display color and a freshly computed fine.
func (u *Usecase) Get(ctx context.Context, loanID string) (*LoanDTO, error) {
	l, err := u.repo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, domain.Persist("get loan", err)
	}
	return toDTO(l, u.now().UTC(), u.policy), nil
}

func submittedPlan(l *domain.Loan, now time.Time, actor access.Actor) *sideeffect.Plan {
	return sideeffect.NewPlan(l, now).
		Notify(se.EventLoanSubmitted, map[string]string{"actor": actor.DisplayName()}, se.RoleEntitas, se.RoleCompany)
}

func validateCreate(in CreateLoanInput) error {
	switch {
	case strings.TrimSpace(in.BorrowerID) == "":
		return domain.Invalid("borrowerId", "required")
	case !in.Draft && len(in.Companies) == 0:
		return domain.Invalid("companies", "at least one approving company is required")
	case in.ReturnDate == nil && !in.Draft:
		return domain.Invalid("returnDate", "required")
	case in.ReturnDate != nil && in.UseDate != nil && in.ReturnDate.Before(*in.UseDate):
		return domain.Invalid("returnDate", "must not be before useDate")
	}
	if in.Actor.ID != "" && in.Actor.ID != in.BorrowerID && !in.Actor.IsPrivileged() {
		return &domain.AuthorizationError{
			ActorID: in.Actor.ID,
			Reason:  "borrowers create loans only for themselves",
			Detail:  map[string]any{"borrowerId": in.BorrowerID},
		}
	}
	return nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
