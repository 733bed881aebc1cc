package loan

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func borrowedDue(due string) *Loan {
	return &Loan{LoanStatus: string(StatusBorrowed), ReturnDate: at(due)}
}

func TestComputeFine_Overdue(t *testing.T) {
	l := borrowedDue("2025-01-10T00:00:00Z")

	got := ComputeFine(l, *at("2025-01-15T09:00:00Z"), DefaultFinePolicy())
	require.NotNil(t, got)
	assert.Equal(t, 5, got.DaysOverdue)
	assert.True(t, got.FineAmount.Equal(decimal.NewFromInt(500000)), got.FineAmount.String())
}

func TestComputeFine_PausedIsFrozen(t *testing.T) {
	l := borrowedDue("2025-01-10T00:00:00Z")
	l.ReturnStatus = &ReturnStatus{
		Status:      string(EventFollowUp),
		FinePaused:  true,
		ProcessedAt: at("2025-01-12T00:00:00Z"),
	}

	for _, now := range []string{"2025-01-15T00:00:00Z", "2025-03-01T00:00:00Z"} {
		got := ComputeFine(l, *at(now), DefaultFinePolicy())
		require.NotNil(t, got, now)
		assert.Equal(t, 2, got.DaysOverdue, now)
		assert.True(t, got.FineAmount.Equal(decimal.NewFromInt(200000)), now)
	}
}

func TestComputeFine_PauseOutlivesLaterProcessing(t *testing.T) {
	l := borrowedDue("2025-01-10T00:00:00Z")
	l.ReturnStatus = &ReturnStatus{
		Status:       string(EventAccepted),
		FinePaused:   true,
		FinePausedAt: at("2025-01-12T00:00:00Z"),
		ProcessedAt:  at("2025-01-20T00:00:00Z"),
	}

	got := ComputeFine(l, *at("2025-01-30T00:00:00Z"), DefaultFinePolicy())
	require.NotNil(t, got)
	assert.Equal(t, 2, got.DaysOverdue)
	assert.Equal(t, at("2025-01-12T00:00:00Z"), l.ReturnStatus.PausedAt())

	l.ReturnStatus.FinePaused = false
	assert.Nil(t, l.ReturnStatus.PausedAt())
}

func TestComputeFine_NoFine(t *testing.T) {
	now := *at("2025-01-15T00:00:00Z")
	p := DefaultFinePolicy()

	waived := borrowedDue("2025-01-10T00:00:00Z")
	waived.ReturnStatus = &ReturnStatus{Status: string(EventAccepted), NoFine: true, ProcessedAt: at("2025-01-12T00:00:00Z")}
	assert.Nil(t, ComputeFine(waived, now, p), "waived")

	assert.Nil(t, ComputeFine(borrowedDue("2025-01-15T00:00:00Z"), now.Add(20*time.Hour), p), "due today")
	assert.Nil(t, ComputeFine(borrowedDue("2025-01-20T00:00:00Z"), now, p), "not yet due")
	assert.Nil(t, ComputeFine(&Loan{LoanStatus: string(StatusBorrowed)}, now, p), "no due date")

	returned := borrowedDue("2025-01-10T00:00:00Z")
	returned.LoanStatus = string(StatusReturned)
	assert.Nil(t, ComputeFine(returned, now, p), "returned")

	pending := borrowedDue("2025-01-10T00:00:00Z")
	pending.LoanStatus = ""
	assert.Nil(t, ComputeFine(pending, now, p), "pending")
	assert.Nil(t, ComputeFine(nil, now, p))
}

func TestComputeFine_ApprovedExtensionMovesDueDate(t *testing.T) {
	l := borrowedDue("2025-01-10T00:00:00Z")
	l.ExtendStatus = []ExtensionRequest{
		{ID: "e1", RequestedReturnDate: *at("2025-01-13T00:00:00Z"), ApproveStatus: ExtensionApproved},
		{ID: "e2", RequestedReturnDate: *at("2025-01-30T00:00:00Z"), ApproveStatus: ExtensionRejected},
	}

	got := ComputeFine(l, *at("2025-01-15T00:00:00Z"), DefaultFinePolicy())
	require.NotNil(t, got)
	assert.Equal(t, 2, got.DaysOverdue)
}

func TestComputeFine_DayBoundaryFollowsPolicyLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	l := borrowedDue("2025-01-10T00:00:00Z")
	now := *at("2025-01-10T20:00:00Z") // already the 11th in Jakarta

	assert.Nil(t, ComputeFine(l, now, DefaultFinePolicy()))

	got := ComputeFine(l, now, FinePolicy{DailyRate: decimal.NewFromInt(25000), Location: jakarta})
	require.NotNil(t, got)
	assert.Equal(t, 1, got.DaysOverdue)
	assert.True(t, got.FineAmount.Equal(decimal.NewFromInt(25000)))
}

func TestComputeFine_Idempotent(t *testing.T) {
	l := borrowedDue("2025-01-10T00:00:00Z")
	now := *at("2025-01-15T09:00:00Z")

	first := ComputeFine(l, now, DefaultFinePolicy())
	second := ComputeFine(l, now, DefaultFinePolicy())
	assert.Equal(t, first, second)

	l.TotalDenda = first
	assert.False(t, NeedsFineUpdate(l.TotalDenda, ComputeFine(l, now, DefaultFinePolicy())))
}

func TestNeedsFineUpdate(t *testing.T) {
	stored := &TotalDenda{FineAmount: decimal.NewFromInt(200000), DaysOverdue: 2}

	assert.False(t, NeedsFineUpdate(stored, nil))
	assert.True(t, NeedsFineUpdate(nil, stored))
	// only the amount and days matter, not the timestamp
	assert.False(t, NeedsFineUpdate(stored, &TotalDenda{FineAmount: decimal.RequireFromString("200000.00"), DaysOverdue: 2, UpdatedAt: time.Now()}))
	assert.True(t, NeedsFineUpdate(stored, &TotalDenda{FineAmount: decimal.NewFromInt(300000), DaysOverdue: 3}))
}
