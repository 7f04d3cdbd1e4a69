package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is something that happened to an aggregate
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	TenantID() uuid.UUID
}

// RecordEvent holds the envelope fields shared by every event
type RecordEvent struct {
	ID       uuid.UUID `json:"id"`
	Type     string    `json:"type"`
	At       time.Time `json:"occurred_at"`
	RecordID uuid.UUID `json:"record_id"`
	Scope    uuid.UUID `json:"tenant_id"`
}

// NewRecordEvent stamps a new event for the aggregate recordID
func NewRecordEvent(eventType string, recordID, tenantID uuid.UUID, at time.Time) RecordEvent {
	return RecordEvent{
		ID:       uuid.New(),
		Type:     eventType,
		At:       at,
		RecordID: recordID,
		Scope:    tenantID,
	}
}

func (e *RecordEvent) EventID() uuid.UUID     { return e.ID }
func (e *RecordEvent) EventType() string      { return e.Type }
func (e *RecordEvent) OccurredAt() time.Time  { return e.At }
func (e *RecordEvent) AggregateID() uuid.UUID { return e.RecordID }
func (e *RecordEvent) TenantID() uuid.UUID    { return e.Scope }
