package shared

import "github.com/google/uuid"

// TenantAggregateRoot is the embedded base of a tenant-scoped aggregate.
// Version backs optimistic locking: a save succeeds only against the version
// it was loaded at. Events raised by mutations wait here until the owning
// transaction commits.
type TenantAggregateRoot struct {
	BaseEntity
	TenantID uuid.UUID
	Version  int
	pending  []DomainEvent
}

// NewTenantAggregateRoot starts an aggregate at version 1
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		BaseEntity: NewBaseEntity(),
		TenantID:   tenantID,
		Version:    1,
	}
}

// IncrementVersion bumps the version after a mutation
func (a *TenantAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent queues an event for publication after commit
func (a *TenantAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the queued events in the order they were raised
func (a *TenantAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents drops the queued events
func (a *TenantAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}
