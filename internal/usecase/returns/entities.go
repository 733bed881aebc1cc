package returns

import (
	"strconv"
	"strings"

	"loanflow-backend/internal/domain/access"
	"loanflow-backend/internal/domain/loan"
)

type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionComplete Action = "complete"
)

// ParseAction folds the accepted synonyms: accept means approve, confirm means complete.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved", "accept", "accepted", "terima":
		return ActionApprove, nil
	case "reject", "rejected", "tolak":
		return ActionReject, nil
	case "confirm", "confirmed", "complete", "completed", "selesai":
		return ActionComplete, nil
	}
	return "", loan.Invalid("action", "must be one of approve, accept, reject, confirm, complete")
}

type Condition int

const (
	ConditionNone Condition = iota
	ConditionComplete
	ConditionIncomplete
	ConditionDamaged
)

// Checked in order: negated damage reads as complete, and "tidaklengkap" contains "lengkap".
var conditionTable = []struct {
	cond   Condition
	needle []string
}{
	{ConditionIncomplete, []string{"tidaklengkap", "incomplete", "kurang", "partial"}},
	{ConditionComplete, []string{"tidakrusak", "tidakcacat", "tanparusak", "tanpacacat", "notdamaged", "undamaged", "nodamage", "notbroken", "notdefective"}},
	{ConditionDamaged, []string{"rusak", "cacat", "damaged", "defective", "broken"}},
	{ConditionComplete, []string{"lengkap", "complete", "baik", "good"}},
}

// ClassifyCondition maps the free-text item condition. Unknown non-empty text is rejected.
func ClassifyCondition(raw string) (Condition, error) {
	key := loan.FoldKey(raw)
	if key == "" {
		return ConditionNone, nil
	}
	for _, row := range conditionTable {
		for _, n := range row.needle {
			if strings.Contains(key, n) {
				return row.cond, nil
			}
		}
	}
	return ConditionNone, loan.Invalid("condition", "unrecognized item condition "+strconv.Quote(strings.TrimSpace(raw)))
}

type Input struct {
	LoanID    string
	RequestID string
	Action    Action
	Note      string
	Condition string
	Actor     access.Actor
}

type SubmitInput struct {
	LoanID string
	Note   string
	Actor  access.Actor
}

type EventDTO struct {
	LoanID       string                  `json:"loanId"`
	Event        loan.ReturnRequestEvent `json:"event"`
	Status       loan.Status             `json:"status"`
	Color        loan.Color              `json:"color"`
	LoanStatus   string                  `json:"loanStatus"`
	ReturnStatus *loan.ReturnStatus      `json:"returnStatus,omitempty"`
}
