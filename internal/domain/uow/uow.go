package uow

import (
	"context"

	"loanflow-backend/internal/domain/loan"
	"loanflow-backend/internal/domain/outbox"
)

// Repos bundles repositories bound to one transaction.
type Repos struct {
	Loans  loan.Repository
	Outbox outbox.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock loan first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
