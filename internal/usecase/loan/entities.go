package loan

import (
	"time"

	"loanflow-backend/internal/domain/access"
	domain "loanflow-backend/internal/domain/loan"
)

type CreateLoanInput struct {
	BorrowerID      string
	BorrowerName    string
	BorrowerEmail   string
	EntitasID       string
	Category        string
	ItemDescription string
	Companies       []string
	UseDate         *time.Time
	ReturnDate      *time.Time
	Draft           bool
	Actor           access.Actor
}

// LoanDTO is the read model: the stored loan plus everything derived from it.
type LoanDTO struct {
	*domain.Loan
	Status           domain.Status      `json:"status"`
	Color            domain.Color       `json:"color"`
	EffectiveDueDate *time.Time         `json:"effectiveDueDate,omitempty"`
	CurrentFine      *domain.TotalDenda `json:"currentFine,omitempty"`
}

func toDTO(l *domain.Loan, now time.Time, p domain.FinePolicy) *LoanDTO {
	status := domain.DeriveCanonicalStatus(l)
	return &LoanDTO{
		Loan:             l,
		Status:           status,
		Color:            domain.ColorFor(status),
		EffectiveDueDate: l.EffectiveDueDate(),
		CurrentFine:      domain.ComputeFine(l, now, p),
	}
}
