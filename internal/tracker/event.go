package tracker

import "time"

// EventType names an audited mutation.
type EventType string

const (
	EventUserRegistered    EventType = "user_registered"
	EventActionEvaluated   EventType = "action_evaluated"
	EventDebtCreated       EventType = "debt_created"
	EventDebtRepaid        EventType = "debt_repaid"
	EventDebtTransferred   EventType = "debt_transferred"
	EventPrarabdhaAdjusted EventType = "prarabdha_adjusted"
	EventDeathRecorded     EventType = "death_recorded"
	EventRebirth           EventType = "rebirth"
)

// Event is the payload written to the audit chain and sent over the bridge.
type Event struct {
	Type   EventType `json:"type"`
	UserID string    `json:"user_id"`
	Data   any       `json:"data"`
	At     time.Time `json:"at"`

	// AuditIndex and Forwarded describe what happened to the event; they are
	// not part of the chained payload.
	AuditIndex *int64 `json:"-"`
	Forwarded  bool   `json:"-"`
}
