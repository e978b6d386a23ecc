package amqp

import (
	"encoding/json"
	"time"
)

// Entry event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// EntryEventMessage notifies downstream consumers that a ledger entry
// changed. It carries only identifiers; consumers fetch the current
// row themselves, so a stale message never ships stale data.
type EntryEventMessage struct {
	Action    string    `json:"action"`
	EntryID   int64     `json:"entry_id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEntryEventMessage creates an event message stamped with the current time
func NewEntryEventMessage(action string, entryID, userID int64) *EntryEventMessage {
	return &EntryEventMessage{
		Action:    action,
		EntryID:   entryID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntryEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryEventMessageFromJSON creates a message from JSON bytes
func EntryEventMessageFromJSON(data []byte) (*EntryEventMessage, error) {
	var msg EntryEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
