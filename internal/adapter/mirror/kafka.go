// Package mirror keeps the external spreadsheet in step with loan state.
//
// Rows are published to a compacted topic keyed by loan id, so the latest message per
// loan is the row the sheet consumer writes.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loanflow-backend/internal/domain/sideeffect"
	"loanflow-backend/internal/infrastructure/kafka"
)

type Row struct {
	Sheet      string              `json:"sheet"`
	StatusText string              `json:"statusText"`
	Loan       sideeffect.Snapshot `json:"loan"`
	SyncedAt   time.Time           `json:"syncedAt"`
}

type Sync struct {
	producer kafka.Producer
	topic    string
	now      func() time.Time
}

func NewSync(p kafka.Producer, topic string) *Sync {
	return &Sync{producer: p, topic: topic, now: time.Now}
}

func (s *Sync) Sync(ctx context.Context, snap sideeffect.Snapshot, statusText, sheet string) error {
	if snap.LoanID == "" {
		return fmt.Errorf("mirror: snapshot without loan id")
	}
	body, err := json.Marshal(Row{Sheet: sheet, StatusText: statusText, Loan: snap, SyncedAt: s.now().UTC()})
	if err != nil {
		return err
	}
	return s.producer.SendMessage(ctx, s.topic, []byte(snap.LoanID), body)
}
