package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDailyFine is the fine charged per overdue day.
var DefaultDailyFine = decimal.NewFromInt(100_000)

type FinePolicy struct {
	DailyRate decimal.Decimal
	// Location decides where calendar days start; nil means UTC.
	Location *time.Location
}

func DefaultFinePolicy() FinePolicy {
	return FinePolicy{DailyRate: DefaultDailyFine, Location: time.UTC}
}

func (p FinePolicy) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func (p FinePolicy) rate() decimal.Decimal {
	if p.DailyRate.IsZero() {
		return DefaultDailyFine
	}
	return p.DailyRate
}

// dayNumber counts calendar days since the epoch in loc.
func dayNumber(t time.Time, loc *time.Location) int64 {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// ComputeFine returns the fine owed at now, or nil when no fine applies.
// A paused fine is frozen at the pause timestamp; a waived fine is always nil.
func ComputeFine(l *Loan, now time.Time, p FinePolicy) *TotalDenda {
	if l == nil {
		return nil
	}
	if !IsOverdueEligible(DeriveCanonicalStatus(l)) {
		return nil
	}
	ref := now
	if rs := l.ReturnStatus; rs != nil {
		if rs.NoFine {
			return nil
		}
		if at := rs.PausedAt(); at != nil && at.Before(now) {
			ref = *at
		}
	}
	due := l.EffectiveDueDate()
	if due == nil || due.IsZero() {
		return nil
	}
	days := dayNumber(ref, p.loc()) - dayNumber(*due, p.loc())
	if days <= 0 {
		return nil
	}
	return &TotalDenda{
		FineAmount:  p.rate().Mul(decimal.NewFromInt(days)),
		DaysOverdue: int(days),
		UpdatedAt:   now.UTC(),
	}
}

// NeedsFineUpdate is false when the stored fine already matches the fresh one.
// A nil fresh fine never clears what is stored: the last accrued amount stays on record.
func NeedsFineUpdate(stored, fresh *TotalDenda) bool {
	switch {
	case fresh == nil:
		return false
	case stored == nil:
		return true
	}
	return stored.DaysOverdue != fresh.DaysOverdue || !stored.FineAmount.Equal(fresh.FineAmount)
}
