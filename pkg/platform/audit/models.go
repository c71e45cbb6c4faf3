package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by retention and routing needs.
type EventCategory string

const (
	// CategoryCompliance covers settlement and screening decisions with
	// regulatory significance. These are persisted fail-closed.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	// Escrow lifecycle
	EventEscrowCreated     AuditEvent = "escrow_created"
	EventEscrowReleased    AuditEvent = "escrow_released"
	EventEscrowRefunded    AuditEvent = "escrow_refunded"
	EventEscrowFlagged     AuditEvent = "escrow_flagged"
	EventEscrowFlagCleared AuditEvent = "escrow_flag_cleared"
	EventReleaseDenied     AuditEvent = "release_denied"

	// Compliance registry
	EventComplianceUpdated AuditEvent = "compliance_updated"
	EventComplianceChecked AuditEvent = "compliance_checked"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventEscrowCreated:     CategoryCompliance,
	EventEscrowReleased:    CategoryCompliance,
	EventEscrowRefunded:    CategoryCompliance,
	EventEscrowFlagged:     CategoryCompliance,
	EventEscrowFlagCleared: CategoryCompliance,
	EventReleaseDenied:     CategoryCompliance,
	EventComplianceUpdated: CategoryCompliance,

	EventComplianceChecked: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. Subject is the
// escrow ID or address the action applies to.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Subject   string
	Action    string
	Decision  string
	Reason    string
	RequestID string
	// ActorID is the address or "admin" that triggered the action.
	ActorID string
}

// ComplianceEvent captures a regulatory-significant action. Use with the
// compliance publisher for fail-closed semantics.
type ComplianceEvent struct {
	Timestamp time.Time
	Subject   string
	Action    AuditEvent
	Decision  string
	Reason    string
	RequestID string
	ActorID   string
}

// ToEvent converts to the storage Event shape.
func (e ComplianceEvent) ToEvent() Event {
	return Event{
		Category:  CategoryCompliance,
		Timestamp: e.Timestamp,
		Subject:   e.Subject,
		Action:    string(e.Action),
		Decision:  e.Decision,
		Reason:    e.Reason,
		RequestID: e.RequestID,
		ActorID:   e.ActorID,
	}
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
