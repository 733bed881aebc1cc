package outbox

import (
	"errors"
	"time"
)

var ErrTaskNotFound = errors.New("outbox task not found")

type TaskStatus string

const (
	TaskStatusCreated    TaskStatus = "CREATED"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusFailed     TaskStatus = "FAILED"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusDead       TaskStatus = "DEAD"
)

type TaskKind string

const (
	KindNotification TaskKind = "notification"
	KindMirror       TaskKind = "mirror"
)

// Task is a pending side effect, written in the same transaction as the transition.
type Task struct {
	ID            string     `gorm:"column:id;type:char(36);primaryKey"`
	LoanID        string     `gorm:"column:loan_id;size:32;index"`
	Kind          TaskKind   `gorm:"column:kind;size:32;not null"`
	EventKind     string     `gorm:"column:event_kind;size:64;not null"`
	Payload       string     `gorm:"column:payload;type:text;not null"`
	Status        TaskStatus `gorm:"column:status;size:16;not null;index:idx_outbox_due,priority:1"`
	Attempts      int        `gorm:"column:attempts;not null;default:0"`
	LastError     *string    `gorm:"column:last_error;type:text"`
	NextAttemptAt time.Time  `gorm:"column:next_attempt_at;index:idx_outbox_due,priority:2"`
	LeaseUntil    *time.Time `gorm:"column:lease_until"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt   *time.Time `gorm:"column:completed_at"`
}

func (Task) TableName() string { return "outbox_tasks" }

// Receipt marks one recipient of a notification task as confirmed delivered.
type Receipt struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	TaskID       string    `gorm:"column:task_id;type:char(36);not null;uniqueIndex:ux_receipts_task_recipient"`
	LoanID       string    `gorm:"column:loan_id;size:32;index"`
	RecipientKey string    `gorm:"column:recipient_key;size:191;not null;uniqueIndex:ux_receipts_task_recipient"`
	Sent         bool      `gorm:"column:sent;not null"`
	SentAt       time.Time `gorm:"column:sent_at"`
}

func (Receipt) TableName() string { return "delivery_receipts" }
