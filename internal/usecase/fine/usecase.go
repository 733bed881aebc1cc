package fine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"loanflow-backend/internal/domain/loan"
	"loanflow-backend/internal/domain/uow"
	"loanflow-backend/internal/metrics"
)

type Update struct {
	LoanID     string
	TotalDenda loan.TotalDenda
}

type Summary struct {
	Written int      `json:"written"`
	Skipped int      `json:"skipped"`
	Dropped int      `json:"dropped"`
	Missing []string `json:"missing,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

type Usecase struct {
	loans       loan.Repository
	uow         uow.UnitOfWork
	policy      loan.FinePolicy
	log         *zap.Logger
	concurrency int
}

func NewUsecase(loans loan.Repository, tx uow.UnitOfWork, policy loan.FinePolicy, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{loans: loans, uow: tx, policy: policy, log: log, concurrency: 4}
}

// WithConcurrency bounds how many loans Recompute handles at once.
func (u *Usecase) WithConcurrency(n int) *Usecase {
	if n > 0 {
		u.concurrency = n
	}
	return u
}

// BulkUpsert writes externally computed fines in one transaction.
// Non-positive entries are dropped, unchanged ones skipped, unknown loans reported as missing.
func (u *Usecase) BulkUpsert(ctx context.Context, updates []Update) (*Summary, error) {
	sum := &Summary{}
	var keep []Update
	for _, up := range updates {
		if up.LoanID == "" || up.TotalDenda.DaysOverdue <= 0 || !up.TotalDenda.FineAmount.IsPositive() {
			sum.Dropped++
			continue
		}
		keep = append(keep, up)
	}
	if len(keep) == 0 {
		return sum, nil
	}

	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		for _, up := range keep {
			l, err := r.Loans.GetByLoanIDForUpdate(ctx, up.LoanID)
			if errors.Is(err, loan.ErrNotFound) {
				sum.Missing = append(sum.Missing, up.LoanID)
				continue
			}
			if err != nil {
				return err
			}
			fresh := up.TotalDenda
			if fresh.UpdatedAt.IsZero() {
				fresh.UpdatedAt = time.Now().UTC()
			}
			if !loan.NeedsFineUpdate(l.TotalDenda, &fresh) {
				sum.Skipped++
				continue
			}
			l.TotalDenda = &fresh
			if err := r.Loans.Save(ctx, l); err != nil {
				return err
			}
			sum.Written++
		}
		return nil
	})
	metrics.TransitionsTotal.WithLabelValues("fine_upsert", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, loan.Persist("bulk upsert fines", err)
	}
	metrics.FinesWrittenTotal.Add(float64(sum.Written))
	return sum, nil
}

// Recompute refreshes the stored fine of every open loan. Each loan runs in its own transaction,
// so one failure does not hold back the rest.
func (u *Usecase) Recompute(ctx context.Context, now time.Time) (*Summary, error) {
	open, err := u.loans.ListOpen(ctx)
	if err != nil {
		return nil, loan.Persist("list open loans", err)
	}

	var (
		mu   sync.Mutex
		sum  = &Summary{}
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for _, candidate := range open {
		if loan.ComputeFine(candidate, now, u.policy) == nil {
			mu.Lock()
			sum.Skipped++
			mu.Unlock()
			continue
		}
		loanID := candidate.LoanID
		g.Go(func() error {
			wrote, err := u.recomputeOne(gctx, loanID, now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				sum.Failed = append(sum.Failed, loanID)
				errs = append(errs, fmt.Errorf("%s: %w", loanID, err))
			case wrote:
				sum.Written++
			default:
				sum.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	metrics.FinesWrittenTotal.Add(float64(sum.Written))
	u.log.Info("fines recomputed",
		zap.Int("open", len(open)),
		zap.Int("written", sum.Written),
		zap.Int("failed", len(sum.Failed)))
	if len(errs) > 0 {
		return sum, loan.Persist("recompute fines", errors.Join(errs...))
	}
	return sum, nil
}

func (u *Usecase) recomputeOne(ctx context.Context, loanID string, now time.Time) (bool, error) {
	wrote := false
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		fresh := loan.ComputeFine(l, now, u.policy)
		if !loan.NeedsFineUpdate(l.TotalDenda, fresh) {
			return nil
		}
		l.TotalDenda = fresh
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		wrote = true
		return nil
	})
	return wrote, err
}
