// Package sideeffect defines the best-effort collaborators triggered by loan transitions:
// the notification dispatcher and the external spreadsheet mirror.
//
// Both are fed from outbox payloads only, never from request-scoped state.
package sideeffect

//go:generate mockgen -source=sideeffect.go -destination=mocks/mock_sideeffect.go -package=mock_sideeffect

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"loanflow-backend/internal/domain/loan"
)

type EventKind string

const (
	EventLoanSubmitted     EventKind = "loan_submitted"
	EventApprovalProgress  EventKind = "approval_progress"
	EventFinalApproved     EventKind = "final_approved"
	EventApprovalRejected  EventKind = "approval_rejected"
	EventWarehouseProcess  EventKind = "warehouse_processed"
	EventWarehouseRejected EventKind = "warehouse_rejected"
	EventWarehouseReturned EventKind = "warehouse_returned"
	EventReturnSubmitted   EventKind = "return_submitted"
	EventReturnAccepted    EventKind = "return_accepted"
	EventReturnRejected    EventKind = "return_rejected"
	EventReturnCompleted   EventKind = "return_completed"
	EventReturnFollowUp    EventKind = "return_follow_up"
	EventExtensionAsked    EventKind = "extension_requested"
	EventExtensionDecided  EventKind = "extension_decided"
)

type Role string

const (
	RoleEntitas   Role = "entitas"
	RoleCompany   Role = "company"
	RoleWarehouse Role = "warehouse"
	RoleBorrower  Role = "borrower"
)

type Recipient struct {
	Role    Role   `json:"role"`
	ID      string `json:"id"`
	Address string `json:"address,omitempty"`
}

// Key identifies the recipient in delivery receipts.
func (r Recipient) Key() string { return string(r.Role) + ":" + r.ID }

// Snapshot is the copy of loan state a side effect needs after the request is gone.
type Snapshot struct {
	LoanID          string           `json:"loanId"`
	BorrowerID      string           `json:"borrowerId"`
	BorrowerName    string           `json:"borrowerName,omitempty"`
	BorrowerEmail   string           `json:"borrowerEmail,omitempty"`
	EntitasID       string           `json:"entitasId,omitempty"`
	Category        string           `json:"category,omitempty"`
	ItemDescription string           `json:"itemDescription,omitempty"`
	Companies       []string         `json:"companies,omitempty"`
	Status          loan.Status      `json:"status"`
	ReturnDate      *time.Time       `json:"returnDate,omitempty"`
	FineAmount      *decimal.Decimal `json:"fineAmount,omitempty"`
	TakenAt         time.Time        `json:"takenAt"`
}

func SnapshotOf(l *loan.Loan, at time.Time) Snapshot {
	s := Snapshot{
		LoanID:          l.LoanID,
		BorrowerID:      l.BorrowerID,
		BorrowerName:    l.BorrowerName,
		BorrowerEmail:   l.BorrowerEmail,
		EntitasID:       l.EntitasID,
		Category:        l.Category,
		ItemDescription: l.ItemDescription,
		Companies:       l.Approvals.CompanyKeys(),
		Status:          loan.DeriveCanonicalStatus(l),
		ReturnDate:      l.EffectiveDueDate(),
		TakenAt:         at.UTC(),
	}
	if l.TotalDenda != nil {
		amt := l.TotalDenda.FineAmount
		s.FineAmount = &amt
	}
	return s
}

// Targets resolves the recipients for the given roles from a snapshot.
// Roles with no identity on the loan are skipped.
func Targets(s Snapshot, roles ...Role) []Recipient {
	var out []Recipient
	for _, role := range roles {
		switch role {
		case RoleEntitas:
			if s.EntitasID != "" {
				out = append(out, Recipient{Role: RoleEntitas, ID: s.EntitasID})
			}
		case RoleCompany:
			for _, c := range s.Companies {
				out = append(out, Recipient{Role: RoleCompany, ID: c})
			}
		case RoleWarehouse:
			out = append(out, Recipient{Role: RoleWarehouse, ID: "warehouse"})
		case RoleBorrower:
			if s.BorrowerID != "" {
				out = append(out, Recipient{Role: RoleBorrower, ID: s.BorrowerID, Address: s.BorrowerEmail})
			}
		}
	}
	return out
}

// SheetSelector derives the mirror sheet from the loan category.
func SheetSelector(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	switch {
	case c == "":
		return "general"
	case strings.Contains(c, "kendaraan") || strings.Contains(c, "vehicle"):
		return "vehicles"
	case strings.Contains(c, "elektronik") || strings.Contains(c, "electronic") || c == "it":
		return "electronics"
	}
	return strings.ReplaceAll(c, " ", "_")
}

type NotificationPayload struct {
	Snapshot   Snapshot          `json:"snapshot"`
	Recipients []Recipient       `json:"recipients"`
	Kind       EventKind         `json:"kind"`
	Context    map[string]string `json:"context,omitempty"`
}

type MirrorPayload struct {
	Snapshot   Snapshot  `json:"snapshot"`
	StatusText string    `json:"statusText"`
	Sheet      string    `json:"sheet"`
	Kind       EventKind `json:"kind"`
}

// Outcome is the per-recipient delivery result; Err nil means delivered.
type Outcome struct {
	Recipient Recipient
	Err       error
}

// Dispatcher delivers one notification bundle. It returns one outcome per recipient.
type Dispatcher interface {
	Dispatch(ctx context.Context, snap Snapshot, recipients []Recipient, kind EventKind, meta map[string]string) []Outcome
}

// MirrorSync overwrites the loan's row in the external sheet.
type MirrorSync interface {
	Sync(ctx context.Context, snap Snapshot, statusText, sheet string) error
}

// Waker nudges the outbox worker after a transition commits.
type Waker interface {
	Wake()
}
