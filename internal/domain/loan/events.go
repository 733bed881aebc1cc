package loan

import "time"

type ReturnEventStatus string

const (
	EventSubmitted ReturnEventStatus = "submitted"
	EventAccepted  ReturnEventStatus = "returnAccepted"
	EventRejected  ReturnEventStatus = "return_rejected"
	EventCompleted ReturnEventStatus = "completed"
	EventFollowUp  ReturnEventStatus = "followUp"
)

// ReturnRequestEvent is one entry of the append-only return audit trail.
// Events other than submitted point back to the originating event via RequestID.
type ReturnRequestEvent struct {
	ID            string            `json:"id"`
	Status        ReturnEventStatus `json:"status"`
	ProcessedAt   time.Time         `json:"processedAt"`
	ProcessedBy   string            `json:"processedBy,omitempty"`
	ProcessedNote string            `json:"processedNote,omitempty"`
	Condition     string            `json:"condition,omitempty"`
	RequestID     string            `json:"requestId,omitempty"`
}

// ParseReturnEventStatus maps stored spellings (any casing, legacy synonyms) to the enum.
func ParseReturnEventStatus(raw string) (ReturnEventStatus, bool) {
	switch ClassifyReturnToken(raw) {
	case TokenPending:
		return EventSubmitted, true
	case TokenIncomplete:
		return EventAccepted, true
	case TokenRejected:
		return EventRejected, true
	case TokenCompleted:
		return EventCompleted, true
	case TokenFollowUp:
		return EventFollowUp, true
	}
	return "", false
}

// Token is the return-signal class of the event status.
func (s ReturnEventStatus) Token() ReturnToken {
	switch s {
	case EventSubmitted:
		return TokenPending
	case EventAccepted:
		return TokenIncomplete
	case EventRejected:
		return TokenRejected
	case EventCompleted:
		return TokenCompleted
	case EventFollowUp:
		return TokenFollowUp
	}
	return ClassifyReturnToken(string(s))
}

func NewSubmittedEvent(id, by, note string, at time.Time) ReturnRequestEvent {
	return ReturnRequestEvent{ID: id, Status: EventSubmitted, ProcessedAt: at, ProcessedBy: by, ProcessedNote: note}
}

func NewAcceptedEvent(id, requestID, by, note string, at time.Time) ReturnRequestEvent {
	return ReturnRequestEvent{ID: id, Status: EventAccepted, ProcessedAt: at, ProcessedBy: by, ProcessedNote: note, RequestID: requestID}
}

func NewRejectedEvent(id, requestID, by, note string, at time.Time) ReturnRequestEvent {
	return ReturnRequestEvent{ID: id, Status: EventRejected, ProcessedAt: at, ProcessedBy: by, ProcessedNote: note, RequestID: requestID}
}

func NewCompletedEvent(id, requestID, by, note, condition string, at time.Time) ReturnRequestEvent {
	return ReturnRequestEvent{ID: id, Status: EventCompleted, ProcessedAt: at, ProcessedBy: by, ProcessedNote: note, Condition: condition, RequestID: requestID}
}

func NewFollowUpEvent(id, requestID, by, note, condition string, at time.Time) ReturnRequestEvent {
	return ReturnRequestEvent{ID: id, Status: EventFollowUp, ProcessedAt: at, ProcessedBy: by, ProcessedNote: note, Condition: condition, RequestID: requestID}
}
