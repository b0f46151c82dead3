package events

import (
	"time"
)

// EventType defines the type of event
type EventType string

const (
	// Object events
	EventTypeObjectCreated EventType = "object.created"
	EventTypeObjectMerged  EventType = "object.merged"

	// Pending review events
	EventTypeRecordPending   EventType = "record.pending"
	EventTypePendingApproved EventType = "pending.approved"
	EventTypePendingRejected EventType = "pending.rejected"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}
