package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to the entity
type EventType string

const (
	EventTypeCreated EventType = "created"
	EventTypeUpdated EventType = "updated"
	EventTypeDeleted EventType = "deleted"
	EventTypePosted  EventType = "posted"
	EventTypeSkipped EventType = "skipped"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeTransaction  EntityType = "transaction"
	EntityTypeRecurring    EntityType = "recurring"
	EntityTypeNotification EntityType = "notification"
)

// Event represents a message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "transaction.created"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "transaction"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionCreated creates a transaction.created event
func TransactionCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeTransaction, payload)
}

// TransactionUpdated creates a transaction.updated event
func TransactionUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeTransaction, payload)
}

// TransactionDeleted creates a transaction.deleted event
func TransactionDeleted(payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypeTransaction, payload)
}

// RecurringPosted creates a recurring.posted event
func RecurringPosted(payload interface{}) Event {
	return NewEvent(EventTypePosted, EntityTypeRecurring, payload)
}

// RecurringSkipped creates a recurring.skipped event for an item that could not be funded
func RecurringSkipped(payload interface{}) Event {
	return NewEvent(EventTypeSkipped, EntityTypeRecurring, payload)
}

// NotificationCreated creates a notification.created event
func NotificationCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeNotification, payload)
}

// TransactionDeletedPayload identifies a removed transaction
type TransactionDeletedPayload struct {
	ID        int32 `json:"id"`
	AccountID int32 `json:"accountId"`
}
