package fine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanflow-backend/internal/domain/loan"
	"loanflow-backend/internal/domain/uow"
	"loanflow-backend/internal/testutil/loanmock"
	"loanflow-backend/internal/testutil/outboxmock"
	"loanflow-backend/internal/testutil/uowmock"
)

var (
	now = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	due = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
)

func borrowed(id string) *loan.Loan {
	d := due
	return &loan.Loan{LoanID: id, LoanStatus: string(loan.StatusBorrowed), ReturnDate: &d}
}

func store(loans ...*loan.Loan) map[string]*loan.Loan {
	m := map[string]*loan.Loan{}
	for _, l := range loans {
		m[l.LoanID] = l
	}
	return m
}

func repoOver(m map[string]*loan.Loan) *loanmock.Repo {
	lookup := func(_ context.Context, id string) (*loan.Loan, error) {
		l, ok := m[id]
		if !ok {
			return nil, loan.ErrNotFound
		}
		return l.Clone(), nil
	}
	return &loanmock.Repo{
		GetByLoanIDFn:          lookup,
		GetByLoanIDForUpdateFn: lookup,
		ListOpenFn: func(context.Context) ([]*loan.Loan, error) {
			var out []*loan.Loan
			for _, l := range m {
				out = append(out, l.Clone())
			}
			return out, nil
		},
	}
}

func denda(amount int64, days int) loan.TotalDenda {
	return loan.TotalDenda{FineAmount: decimal.NewFromInt(amount), DaysOverdue: days, UpdatedAt: now}
}

func TestBulkUpsert(t *testing.T) {
	already := borrowed("LN-2")
	d := denda(300000, 3)
	already.TotalDenda = &d

	loans := repoOver(store(borrowed("LN-1"), already))
	uc := NewUsecase(loans, uowmock.Passthrough(uow.Repos{Loans: loans, Outbox: &outboxmock.Repo{}}), loan.DefaultFinePolicy(), nil)

	sum, err := uc.BulkUpsert(context.Background(), []Update{
		{LoanID: "LN-1", TotalDenda: denda(500000, 5)},
		{LoanID: "LN-2", TotalDenda: denda(300000, 3)},
		{LoanID: "LN-3", TotalDenda: denda(100000, 1)},
		{LoanID: "LN-1", TotalDenda: denda(0, 0)},
		{LoanID: "LN-1", TotalDenda: denda(-100, 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Written)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 2, sum.Dropped)
	assert.Equal(t, []string{"LN-3"}, sum.Missing)

	require.Len(t, loans.Saved, 1)
	assert.True(t, loans.Saved[0].TotalDenda.FineAmount.Equal(decimal.NewFromInt(500000)))
}

func TestBulkUpsert_IsIdempotent(t *testing.T) {
	m := store(borrowed("LN-1"))
	loans := repoOver(m)
	loans.SaveFn = func(_ context.Context, l *loan.Loan) error {
		m[l.LoanID] = l
		return nil
	}
	uc := NewUsecase(loans, uowmock.Passthrough(uow.Repos{Loans: loans}), loan.DefaultFinePolicy(), nil)
	batch := []Update{{LoanID: "LN-1", TotalDenda: denda(500000, 5)}}

	first, err := uc.BulkUpsert(context.Background(), batch)
	require.NoError(t, err)
	second, err := uc.BulkUpsert(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Written)
	assert.Equal(t, 0, second.Written)
	assert.Equal(t, 1, second.Skipped)
}

func TestRecompute(t *testing.T) {
	returned := borrowed("LN-R")
	returned.LoanStatus = string(loan.StatusReturned)

	current := borrowed("LN-C")
	d := denda(500000, 5)
	current.TotalDenda = &d

	m := store(borrowed("LN-1"), returned, current)
	loans := repoOver(m)
	uc := NewUsecase(loans, uowmock.Passthrough(uow.Repos{Loans: loans}), loan.DefaultFinePolicy(), nil).WithConcurrency(2)

	sum, err := uc.Recompute(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Written)
	assert.Equal(t, 2, sum.Skipped)

	require.Len(t, loans.Saved, 1)
	saved := loans.Saved[0]
	assert.Equal(t, "LN-1", saved.LoanID)
	assert.Equal(t, 5, saved.TotalDenda.DaysOverdue)
	assert.True(t, saved.TotalDenda.FineAmount.Equal(decimal.NewFromInt(500000)))
}

func TestRecompute_ReportsFailuresAndContinues(t *testing.T) {
	loans := repoOver(store(borrowed("LN-1"), borrowed("LN-2")))
	loans.SaveFn = func(_ context.Context, l *loan.Loan) error {
		if l.LoanID == "LN-2" {
			return errors.New("lock wait timeout")
		}
		return nil
	}
	uc := NewUsecase(loans, uowmock.Passthrough(uow.Repos{Loans: loans}), loan.DefaultFinePolicy(), nil)

	sum, err := uc.Recompute(context.Background(), now)
	require.ErrorIs(t, err, loan.ErrPersistence)
	assert.Equal(t, 1, sum.Written)
	assert.Equal(t, []string{"LN-2"}, sum.Failed)
}
