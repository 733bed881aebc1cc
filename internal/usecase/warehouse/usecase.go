package warehouse

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

// ApplyWarehouseAction returns the loan after the action. Pure: l is left untouched.
// proofRefs are the stored references of already validated files, used by return only.
func ApplyWarehouseAction(l *loan.Loan, action Action, p Payload, proofRefs []string, actor access.Actor, now time.Time) (*loan.Loan, error) {
	if !actor.IsWarehouse() && !actor.IsPrivileged() {
		return nil, &loan.AuthorizationError{
			ActorID: actor.ID,
			Reason:  "warehouse actions need the warehouse role",
			Detail:  map[string]any{"actorRole": string(actor.Role), "action": string(action)},
		}
	}
	if err := checkPrecondition(l, action); err != nil {
		return nil, err
	}

	out := l.Clone()
	at := now.UTC()
	by := actor.DisplayName()
	note := strings.TrimSpace(p.Note)
	ws := &out.WarehouseStatus

	switch action {
	case ActionProcess:
		ws.Status = string(loan.StatusBorrowed)
		ws.Note = note
		ws.RejectionReason = ""
		ws.ProcessedAt, ws.ProcessedBy = &at, by
		out.LoanStatus = string(loan.StatusBorrowed)
		if out.OutDate == nil {
			out.OutDate = &at
		}

	case ActionReject:
		reason := strings.TrimSpace(p.Reason)
		if reason == "" {
			return nil, loan.Invalid("reason", "required when rejecting")
		}
		ws.Status = string(loan.StatusRejected)
		ws.Note = note
		ws.RejectionReason = reason
		ws.ProcessedAt, ws.ProcessedBy = &at, by
		out.LoanStatus = string(loan.StatusRejected)

	case ActionReturn:
		rs := &loan.ReturnStatus{}
		if out.ReturnStatus != nil {
			rs.History = out.ReturnStatus.History
		}
		rs.Status = string(loan.StatusReturned)
		rs.DisplayStatus = string(loan.StatusReturned)
		rs.PreviousStatus = l.WarehouseStatus.Status
		rs.Note = note
		rs.ProcessedAt, rs.ProcessedBy = &at, by
		rs.ProofFiles = append([]string(nil), proofRefs...)
		rs.History = append(rs.History, loan.HistoryEntry{Status: rs.Status, Note: note, ProcessedAt: at, ProcessedBy: by})
		out.ReturnStatus = rs
		out.LoanStatus = string(loan.StatusReturned)
		if note != "" {
			ws.Note = note
		}

	default:
		return nil, loan.Invalid("action", fmt.Sprintf("unknown action %q", action))
	}

	ws.History = append(ws.History, loan.HistoryEntry{
		Status:      string(action),
		Note:        firstNonEmpty(note, strings.TrimSpace(p.Reason)),
		ProcessedAt: at,
		ProcessedBy: by,
	})
	return out, nil
}

func checkPrecondition(l *loan.Loan, action Action) error {
	status := loan.DeriveCanonicalStatus(l)
	switch action {
	case ActionProcess, ActionReject:
		if status == loan.StatusApproved || (status == loan.StatusPending && l.Approvals.Completed()) {
			return nil
		}
	case ActionReturn:
		if loan.IsOverdueEligible(status) {
			return nil
		}
	default:
		return loan.Invalid("action", fmt.Sprintf("unknown action %q", action))
	}
	return fmt.Errorf("%w: %s from %q", loan.ErrInvalidTransition, action, status)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

type Usecase struct {
	uow   uow.UnitOfWork
	files FileStore
	waker se.Waker
	log   *zap.Logger
	now   func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, files FileStore, waker se.Waker, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{uow: tx, files: files, waker: waker, log: log, now: time.Now}
}

func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

func (u *Usecase) Act(ctx context.Context, in ActionInput) (*ActionDTO, error) {
	if in.Action == ActionReturn {
		if err := ValidateFiles(in.Payload.Files); err != nil {
			return nil, err
		}
	} else if len(in.Payload.Files) > 0 {
		return nil, loan.Invalid("files", "only the return action accepts files")
	}

	var dto *ActionDTO
	now := u.now().UTC()
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
		// authorization and state are checked before any file is stored
		if _, err := ApplyWarehouseAction(l, in.Action, in.Payload, nil, in.Actor, now); err != nil {
			return err
		}
		refs, err := u.storeFiles(ctx, l.LoanID, in.Payload.Files)
		if err != nil {
			return err
		}
		next, err := ApplyWarehouseAction(l, in.Action, in.Payload, refs, in.Actor, now)
		if err != nil {
			return err
		}
		if err := r.Loans.Save(ctx, next); err != nil {
			return err
		}

		meta := map[string]string{"actor": in.Actor.DisplayName(), "action": string(in.Action)}
		plan := sideeffect.NewPlan(next, now)
		switch in.Action {
		case ActionProcess:
			plan.Notify(se.EventWarehouseProcess, meta, se.RoleEntitas, se.RoleCompany).
				Mirror(se.EventWarehouseProcess)
		case ActionReject:
			meta["reason"] = next.WarehouseStatus.RejectionReason
			plan.Notify(se.EventWarehouseRejected, meta, se.RoleEntitas, se.RoleCompany)
		case ActionReturn:
			plan.Notify(se.EventWarehouseReturned, meta, se.RoleEntitas, se.RoleCompany, se.RoleBorrower).
				Mirror(se.EventWarehouseReturned)
		}
		if err := plan.Schedule(ctx, r.Outbox); err != nil {
			return err
		}

		status := loan.DeriveCanonicalStatus(next)
		dto = &ActionDTO{
			LoanID:          next.LoanID,
			Action:          in.Action,
			Status:          status,
			Color:           loan.ColorFor(status),
			WarehouseStatus: next.WarehouseStatus,
			ReturnStatus:    next.ReturnStatus,
		}
		return nil
	})
	metrics.TransitionsTotal.WithLabelValues("warehouse_"+string(in.Action), metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, loan.Persist("warehouse action", err)
	}

	u.log.Info("warehouse action applied",
		zap.String("loan_id", dto.LoanID),
		zap.String("action", string(in.Action)),
		zap.String("actor", in.Actor.ID))
	sideeffect.Nudge(u.waker)
	return dto, nil
}

func (u *Usecase) storeFiles(ctx context.Context, loanID string, files []ProofFile) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if u.files == nil {
		return nil, fmt.Errorf("no file store configured")
	}
	refs := make([]string, 0, len(files))
	for _, f := range files {
		ref, err := u.files.Save(ctx, loanID, f)
		if err != nil {
			return nil, fmt.Errorf("store proof %s: %w", f.Name, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
