package warehouse

import (
	"context"
	"strings"

	"loanflow-backend/internal/domain/access"
	"loanflow-backend/internal/domain/loan"
)

type Action string

const (
	ActionProcess Action = "process"
	ActionReject  Action = "reject"
	ActionReturn  Action = "return"
)

func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "process", "processed", "proses", "diproses":
		return ActionProcess, nil
	case "reject", "rejected", "tolak", "ditolak":
		return ActionReject, nil
	case "return", "returned", "kembali", "dikembalikan":
		return ActionReturn, nil
	}
	return "", loan.Invalid("action", "must be one of process, reject, return")
}

// ProofFile is one uploaded proof-of-return image, already read into memory.
type ProofFile struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

type Payload struct {
	Note   string
	Reason string
	Files  []ProofFile
}

type ActionInput struct {
	LoanID  string
	Action  Action
	Payload Payload
	Actor   access.Actor
}

// FileStore persists proof files and returns the reference kept on the loan.
type FileStore interface {
	Save(ctx context.Context, loanID string, f ProofFile) (string, error)
}

type ActionDTO struct {
	LoanID          string               `json:"loanId"`
	Action          Action               `json:"action"`
	Status          loan.Status          `json:"status"`
	Color           loan.Color           `json:"color"`
	WarehouseStatus loan.WarehouseStatus `json:"warehouseStatus"`
	ReturnStatus    *loan.ReturnStatus   `json:"returnStatus,omitempty"`
}
