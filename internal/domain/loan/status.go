package loan

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Status is the canonical, human-facing lifecycle label.
type Status string

const (
	StatusDraft            Status = "Draft"
	StatusPending          Status = "Pending"
	StatusApproved         Status = "Approved"
	StatusRejected         Status = "Rejected"
	StatusBorrowed         Status = "Borrowed"
	StatusReturnRequested  Status = "Permintaan Pengembalian"
	StatusReturnRejected   Status = "Pengembalian Ditolak"
	StatusIncompleteReturn Status = "Dikembalikan Tidak Lengkap"
	StatusFollowUp         Status = "Perlu Tindak Lanjut"
	StatusReturned         Status = "Returned"
)

type Color string

const (
	ColorDefault   Color = "default"
	ColorPrimary   Color = "primary"
	ColorSecondary Color = "secondary"
	ColorError     Color = "error"
	ColorInfo      Color = "info"
	ColorSuccess   Color = "success"
	ColorWarning   Color = "warning"
)

// ReturnToken classifies free text found in return-related fields.
type ReturnToken int

const (
	TokenNone ReturnToken = iota
	TokenFollowUp
	TokenIncomplete
	TokenRejected
	TokenCompleted
	TokenPending
)

// Checked in this order: "incomplete" contains "complete", "return_rejected" contains "return".
var returnTokenTable = []struct {
	token  ReturnToken
	needle []string
}{
	{TokenFollowUp, []string{"followup", "tindaklanjut"}},
	{TokenIncomplete, []string{"tidaklengkap", "incomplete", "returnaccepted", "accepted", "diterima"}},
	{TokenRejected, []string{"reject", "ditolak", "tolak"}},
	{TokenCompleted, []string{"complete", "returned", "dikembalikan", "selesai"}},
	{TokenPending, []string{"submit", "pending", "permintaan", "request", "menunggu", "diajukan"}},
}

var returnMentions = []string{"return", "pengembalian", "dikembalikan", "kembali", "followup", "tindaklanjut"}

var statusLookup = map[string]Status{
	"approved":  StatusApproved,
	"approve":   StatusApproved,
	"disetujui": StatusApproved,
	"rejected":  StatusRejected,
	"reject":    StatusRejected,
	"ditolak":   StatusRejected,
	"draft":     StatusDraft,
	"borrowed":  StatusBorrowed,
	"dipinjam":  StatusBorrowed,
	"processed": StatusBorrowed,
	"diproses":  StatusBorrowed,
	"returned":  StatusReturned,
	"completed": StatusReturned,
	"complete":  StatusReturned,
	"selesai":   StatusReturned,
	"pending":   StatusPending,
	"menunggu":  StatusPending,
	"submitted": StatusPending,
	"diajukan":  StatusPending,
}

// compact folds case and drops everything except letters and digits,
// so "Follow-Up", "follow_up" and "FOLLOWUP" compare equal.
func compact(s string) string {
	folded := cases.Fold().String(s)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FoldKey is the comparison key used by every free-text match in this package.
func FoldKey(s string) string { return compact(s) }

// ClassifyReturnToken finds the return signal in text. Empty or unrelated text yields TokenNone.
func ClassifyReturnToken(text string) ReturnToken {
	c := compact(text)
	if c == "" {
		return TokenNone
	}
	for _, row := range returnTokenTable {
		for _, n := range row.needle {
			if strings.Contains(c, n) {
				return row.token
			}
		}
	}
	return TokenNone
}

func mentionsReturn(c string) bool {
	for _, n := range returnMentions {
		if strings.Contains(c, n) {
			return true
		}
	}
	return false
}

func (t ReturnToken) Status() Status {
	switch t {
	case TokenFollowUp:
		return StatusFollowUp
	case TokenIncomplete:
		return StatusIncompleteReturn
	case TokenRejected:
		return StatusReturnRejected
	case TokenCompleted:
		return StatusReturned
	case TokenPending:
		return StatusReturnRequested
	}
	return ""
}

// NormalizeStatusText maps a free-text status field through the fixed lookup.
// Return-flavoured text is classified as a return signal first; unknown text is kept verbatim.
func NormalizeStatusText(raw string) (Status, bool) {
	trimmed := strings.TrimSpace(raw)
	c := compact(trimmed)
	if c == "" {
		return "", false
	}
	if mentionsReturn(c) {
		if tok := ClassifyReturnToken(trimmed); tok != TokenNone {
			return tok.Status(), true
		}
	}
	if s, ok := statusLookup[c]; ok {
		return s, true
	}
	return Status(trimmed), true
}

// returnSignal picks the most recent of returnStatus and the last returnRequest event.
func returnSignal(l *Loan) ReturnToken {
	var rsTok, evTok ReturnToken
	var rsAt, evAt int64
	hasRSAt := false

	if rs := l.ReturnStatus; rs != nil {
		text := rs.Status
		if strings.TrimSpace(text) == "" {
			text = rs.DisplayStatus
		}
		rsTok = ClassifyReturnToken(text)
		if rs.ProcessedAt != nil {
			rsAt, hasRSAt = rs.ProcessedAt.UnixNano(), true
		}
	}
	if ev, ok := l.LastReturnEvent(); ok {
		evTok = ev.Status.Token()
		evAt = ev.ProcessedAt.UnixNano()
	}

	switch {
	case rsTok == TokenNone:
		return evTok
	case evTok == TokenNone:
		return rsTok
	case !hasRSAt || evAt > rsAt:
		return evTok
	default:
		return rsTok
	}
}

// DeriveCanonicalStatus reduces all raw state fields to one label. Pure.
func DeriveCanonicalStatus(l *Loan) Status {
	if l == nil {
		return StatusPending
	}
	if tok := returnSignal(l); tok != TokenNone {
		return tok.Status()
	}
	if s, ok := NormalizeStatusText(l.LoanStatus); ok {
		return s
	}
	if s, ok := NormalizeStatusText(l.WarehouseStatus.Status); ok {
		return s
	}
	if l.IsDraft {
		return StatusDraft
	}
	switch {
	case len(l.Approvals.Companies) == 0:
		return StatusPending
	case l.Approvals.Rejected():
		return StatusRejected
	case l.Approvals.Completed():
		return StatusApproved
	}
	return StatusPending
}

// ColorFor maps a canonical status to its display color; pass-through text is token-checked.
func ColorFor(s Status) Color {
	switch s {
	case StatusReturned:
		return ColorSuccess
	case StatusApproved:
		return ColorPrimary
	case StatusRejected, StatusReturnRejected:
		return ColorError
	case StatusBorrowed:
		return ColorInfo
	case StatusReturnRequested:
		return ColorSecondary
	case StatusFollowUp, StatusIncompleteReturn, StatusPending:
		return ColorWarning
	case StatusDraft:
		return ColorDefault
	}
	c := compact(string(s))
	switch {
	case strings.Contains(c, "reject") || strings.Contains(c, "tolak"):
		return ColorError
	case strings.Contains(c, "complete") || strings.Contains(c, "selesai"):
		return ColorSuccess
	case strings.Contains(c, "approve") || strings.Contains(c, "setuju"):
		return ColorPrimary
	}
	return ColorDefault
}

func ResolveDisplayColor(l *Loan) Color {
	return ColorFor(DeriveCanonicalStatus(l))
}

var overdueEligible = map[Status]bool{
	StatusBorrowed:         true,
	StatusReturnRequested:  true,
	StatusFollowUp:         true,
	StatusIncompleteReturn: true,
	StatusReturnRejected:   true,
}

// IsOverdueEligible reports whether fines may accrue in status s.
func IsOverdueEligible(s Status) bool { return overdueEligible[s] }
