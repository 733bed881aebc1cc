// Package notifier publishes per-recipient notification messages.
package notifier

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"loanflow-backend/internal/domain/sideeffect"
	"loanflow-backend/internal/infrastructure/kafka"
)

type Message struct {
	Kind      sideeffect.EventKind `json:"kind"`
	Recipient sideeffect.Recipient `json:"recipient"`
	Loan      sideeffect.Snapshot  `json:"loan"`
	Context   map[string]string    `json:"context,omitempty"`
	SentAt    time.Time            `json:"sentAt"`
}

type Dispatcher struct {
	producer kafka.Producer
	topic    string
	log      *zap.Logger
	now      func() time.Time
}

func NewDispatcher(p kafka.Producer, topic string, log *zap.Logger) *Dispatcher {
	return &Dispatcher{producer: p, topic: topic, log: log.Named("notifier"), now: time.Now}
}

// Dispatch sends one message per recipient; a failure for one does not stop the rest.
func (d *Dispatcher) Dispatch(ctx context.Context, snap sideeffect.Snapshot, recipients []sideeffect.Recipient, kind sideeffect.EventKind, meta map[string]string) []sideeffect.Outcome {
	out := make([]sideeffect.Outcome, 0, len(recipients))
	for _, rc := range recipients {
		body, err := json.Marshal(Message{Kind: kind, Recipient: rc, Loan: snap, Context: meta, SentAt: d.now().UTC()})
		if err == nil {
			err = d.producer.SendMessage(ctx, d.topic, []byte(snap.LoanID+"/"+rc.Key()), body)
		}
		if err != nil {
			d.log.Debug("notification not sent",
				zap.String("loan_id", snap.LoanID),
				zap.String("recipient", rc.Key()),
				zap.Error(err))
		}
		out = append(out, sideeffect.Outcome{Recipient: rc, Err: err})
	}
	return out
}
