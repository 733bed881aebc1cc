package loan

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// fine amounts travel as JSON numbers, both on the wire and in the json columns
	decimal.MarshalJSONWithoutQuotes = true
}

type ApprovalEntry struct {
	Approved        bool       `json:"approved"`
	ApprovedBy      string     `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	Note            string     `json:"note,omitempty"`
}

// IsRejected is true only for an explicit rejection: approved=false with a reason.
// A pending entry (approved=false, no reason) is not a rejection.
func (e ApprovalEntry) IsRejected() bool {
	return !e.Approved && strings.TrimSpace(e.RejectionReason) != ""
}

type Approvals struct {
	Companies map[string]ApprovalEntry `json:"companies"`
}

func (a Approvals) Clone() Approvals {
	if a.Companies == nil {
		return Approvals{}
	}
	out := Approvals{Companies: make(map[string]ApprovalEntry, len(a.Companies))}
	for k, v := range a.Companies {
		out.Companies[k] = v
	}
	return out
}

// CompanyKeys returns the company keys in a stable order.
func (a Approvals) CompanyKeys() []string {
	keys := make([]string, 0, len(a.Companies))
	for k := range a.Companies {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Completed: non-empty and every entry approved.
func (a Approvals) Completed() bool {
	if len(a.Companies) == 0 {
		return false
	}
	for _, e := range a.Companies {
		if !e.Approved {
			return false
		}
	}
	return true
}

func (a Approvals) Rejected() bool {
	for _, e := range a.Companies {
		if e.IsRejected() {
			return true
		}
	}
	return false
}

// HistoryEntry is an append-only audit record for warehouse and return sub-states.
type HistoryEntry struct {
	Status      string    `json:"status"`
	Note        string    `json:"note,omitempty"`
	ProcessedAt time.Time `json:"processedAt"`
	ProcessedBy string    `json:"processedBy,omitempty"`
}

// WarehouseStatus holds physical-handling state only.
type WarehouseStatus struct {
	Status          string         `json:"status,omitempty"`
	Note            string         `json:"note,omitempty"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
	ProcessedAt     *time.Time     `json:"processedAt,omitempty"`
	ProcessedBy     string         `json:"processedBy,omitempty"`
	History         []HistoryEntry `json:"history,omitempty"`
}

type ReturnStatus struct {
	Status         string         `json:"status"`
	PreviousStatus string         `json:"previousStatus,omitempty"`
	DisplayStatus  string         `json:"displayStatus,omitempty"`
	Note           string         `json:"note,omitempty"`
	Condition      string         `json:"condition,omitempty"`
	ProcessedAt    *time.Time     `json:"processedAt,omitempty"`
	ProcessedBy    string         `json:"processedBy,omitempty"`
	FinePaused     bool           `json:"finePaused,omitempty"`
	FinePausedAt   *time.Time     `json:"finePausedAt,omitempty"`
	NoFine         bool           `json:"noFine,omitempty"`
	ProofFiles     []string       `json:"proofFiles,omitempty"`
	History        []HistoryEntry `json:"history,omitempty"`
}

// PausedAt is when the fine froze, or nil when it is not paused.
// Rows written before finePausedAt existed fall back to processedAt.
func (rs *ReturnStatus) PausedAt() *time.Time {
	if rs == nil || !rs.FinePaused {
		return nil
	}
	if rs.FinePausedAt != nil {
		return rs.FinePausedAt
	}
	return rs.ProcessedAt
}

type ExtensionStatus string

const (
	ExtensionPending  ExtensionStatus = "pending"
	ExtensionApproved ExtensionStatus = "approved"
	ExtensionRejected ExtensionStatus = "rejected"
)

// ParseExtensionStatus accepts stored spellings of the extension decision.
func ParseExtensionStatus(raw string) (ExtensionStatus, bool) {
	switch FoldKey(raw) {
	case "pending", "menunggu", "requested", "":
		return ExtensionPending, true
	case "approved", "approve", "disetujui", "accepted":
		return ExtensionApproved, true
	case "rejected", "reject", "ditolak", "declined":
		return ExtensionRejected, true
	}
	return "", false
}

type ExtensionRequest struct {
	ID                  string          `json:"id"`
	RequestedReturnDate time.Time       `json:"requestedReturnDate"`
	Reason              string          `json:"reason,omitempty"`
	RequestedAt         time.Time       `json:"requestedAt"`
	RequestedBy         string          `json:"requestedBy,omitempty"`
	ApproveStatus       ExtensionStatus `json:"approveStatus"`
	DecidedAt           *time.Time      `json:"decidedAt,omitempty"`
	DecidedBy           string          `json:"decidedBy,omitempty"`
	DecisionNote        string          `json:"decisionNote,omitempty"`
}

type TotalDenda struct {
	FineAmount  decimal.Decimal `json:"fineAmount"`
	DaysOverdue int             `json:"daysOverdue"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type Loan struct {
	ID              uint64 `gorm:"primaryKey;column:id" json:"-"`
	LoanID          string `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loanId"`
	BorrowerID      string `gorm:"size:64;index:idx_loans_borrower" json:"borrowerId"`
	BorrowerName    string `gorm:"size:191" json:"borrowerName,omitempty"`
	BorrowerEmail   string `gorm:"size:191" json:"borrowerEmail,omitempty"`
	EntitasID       string `gorm:"size:64;index" json:"entitasId,omitempty"`
	Category        string `gorm:"size:64" json:"category,omitempty"`
	ItemDescription string `gorm:"type:text" json:"itemDescription,omitempty"`

	IsDraft     bool       `json:"isDraft"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`

	Approvals       Approvals            `gorm:"type:text;serializer:json" json:"approvals"`
	WarehouseStatus WarehouseStatus      `gorm:"type:text;serializer:json" json:"warehouseStatus"`
	ReturnStatus    *ReturnStatus        `gorm:"type:text;serializer:json" json:"returnStatus,omitempty"`
	ReturnRequest   []ReturnRequestEvent `gorm:"type:text;serializer:json" json:"returnRequest,omitempty"`
	ExtendStatus    []ExtensionRequest   `gorm:"type:text;serializer:json" json:"extendStatus,omitempty"`
	TotalDenda      *TotalDenda          `gorm:"type:text;serializer:json" json:"totalDenda,omitempty"`
	LoanStatus      string               `gorm:"size:64" json:"loanStatus,omitempty"`

	UseDate    *time.Time `json:"useDate,omitempty"`
	OutDate    *time.Time `json:"outDate,omitempty"`
	ReturnDate *time.Time `json:"returnDate,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Loan) TableName() string { return "loans" }

// AfterFind runs the legacy normalization pass once per load.
func (l *Loan) AfterFind(*gorm.DB) error {
	l.NormalizeLegacy()
	return nil
}

// NormalizeLegacy rewrites historical return-event and extension spellings to the finite enums.
func (l *Loan) NormalizeLegacy() {
	for i := range l.ReturnRequest {
		if s, ok := ParseReturnEventStatus(string(l.ReturnRequest[i].Status)); ok {
			l.ReturnRequest[i].Status = s
		}
	}
	for i := range l.ExtendStatus {
		if s, ok := ParseExtensionStatus(string(l.ExtendStatus[i].ApproveStatus)); ok {
			l.ExtendStatus[i].ApproveStatus = s
		}
	}
	if l.Approvals.Companies == nil {
		l.Approvals.Companies = map[string]ApprovalEntry{}
	}
}

// FindReturnEvent returns the event with the given id.
func (l *Loan) FindReturnEvent(id string) (ReturnRequestEvent, bool) {
	for _, ev := range l.ReturnRequest {
		if ev.ID == id {
			return ev, true
		}
	}
	return ReturnRequestEvent{}, false
}

// LastSubmittedEvent returns the most recent borrower submission.
func (l *Loan) LastSubmittedEvent() (ReturnRequestEvent, bool) {
	for i := len(l.ReturnRequest) - 1; i >= 0; i-- {
		if l.ReturnRequest[i].Status == EventSubmitted {
			return l.ReturnRequest[i], true
		}
	}
	return ReturnRequestEvent{}, false
}

// LastReturnEvent returns the most recently appended event.
func (l *Loan) LastReturnEvent() (ReturnRequestEvent, bool) {
	if len(l.ReturnRequest) == 0 {
		return ReturnRequestEvent{}, false
	}
	return l.ReturnRequest[len(l.ReturnRequest)-1], true
}

// EffectiveDueDate is the requested date of the last approved extension, else ReturnDate.
func (l *Loan) EffectiveDueDate() *time.Time {
	for i := len(l.ExtendStatus) - 1; i >= 0; i-- {
		ext := l.ExtendStatus[i]
		if ext.ApproveStatus == ExtensionApproved && !ext.RequestedReturnDate.IsZero() {
			d := ext.RequestedReturnDate
			return &d
		}
	}
	return l.ReturnDate
}

// Clone deep-copies every nested field so transitions can work on a copy.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	c := *l
	c.Approvals = l.Approvals.Clone()
	c.WarehouseStatus.History = slices.Clone(l.WarehouseStatus.History)
	if l.ReturnStatus != nil {
		rs := *l.ReturnStatus
		rs.History = slices.Clone(l.ReturnStatus.History)
		rs.ProofFiles = slices.Clone(l.ReturnStatus.ProofFiles)
		c.ReturnStatus = &rs
	}
	c.ReturnRequest = slices.Clone(l.ReturnRequest)
	c.ExtendStatus = slices.Clone(l.ExtendStatus)
	if l.TotalDenda != nil {
		td := *l.TotalDenda
		c.TotalDenda = &td
	}
	return &c
}
