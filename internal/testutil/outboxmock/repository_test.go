package outboxmock

import (
	"context"
	"errors"
	"testing"

	domain "loanflow-backend/internal/domain/outbox"
)

func TestRepo_CreateRecords(t *testing.T) {
	m := &Repo{}
	err := m.Create(context.Background(),
		&domain.Task{Kind: domain.KindNotification, EventKind: "final_approved"},
		&domain.Task{Kind: domain.KindMirror, EventKind: "final_approved"},
	)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got := m.Kinds()
	if len(got) != 2 || got[0] != "notification:final_approved" || got[1] != "mirror:final_approved" {
		t.Fatalf("unexpected kinds: %v", got)
	}
}

func TestReceipts_MarkSent(t *testing.T) {
	ctx := context.Background()
	m := &Receipts{}
	if err := m.MarkSent(ctx, &domain.Receipt{TaskID: "t1", RecipientKey: "borrower:b1"}); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	sent, _ := m.SentRecipients(ctx, "t1")
	if !sent["borrower:b1"] {
		t.Fatalf("receipt not recorded: %v", sent)
	}
	other, _ := m.SentRecipients(ctx, "t2")
	if len(other) != 0 {
		t.Fatalf("receipts leaked across tasks: %v", other)
	}

	boom := errors.New("boom")
	m.MarkSentFn = func(context.Context, *domain.Receipt) error { return boom }
	if err := m.MarkSent(ctx, &domain.Receipt{TaskID: "t3", RecipientKey: "x"}); !errors.Is(err, boom) {
		t.Fatalf("want %v, got %v", boom, err)
	}
	if sent, _ := m.SentRecipients(ctx, "t3"); len(sent) != 0 {
		t.Fatalf("failed MarkSent must not record: %v", sent)
	}
}
