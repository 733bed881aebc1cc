package approval

import (
	"loanflow-backend/internal/domain/access"
	"loanflow-backend/internal/domain/loan"
)

// Decision is one approver's verdict. Rejecting needs a reason.
type Decision struct {
	Approved bool
	Reason   string
	Note     string
}

type Result struct {
	Approvals loan.Approvals
	Completed bool
	Rejected  bool
	// Touched lists the company keys this decision mutated, sorted.
	Touched []string
}

type ApproveInput struct {
	LoanID   string
	Decision Decision
	Actor    access.Actor
}

type ApprovalDTO struct {
	LoanID    string         `json:"loanId"`
	Status    loan.Status    `json:"status"`
	Color     loan.Color     `json:"color"`
	Completed bool           `json:"completed"`
	Rejected  bool           `json:"rejected"`
	Touched   []string       `json:"touched"`
	Approvals loan.Approvals `json:"approvals"`
}
