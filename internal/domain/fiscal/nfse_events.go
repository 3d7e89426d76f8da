package fiscal

import (
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for service invoices
const (
	EventNFSeCreated    = "nfse.created"
	EventNFSeSubmitted  = "nfse.submitted"
	EventNFSeAuthorized = "nfse.authorized"
	EventNFSeCancelled  = "nfse.cancelled"
)

const nfseAggregate = "NFSeDocument"

// NFSeCreatedEvent is raised when a service invoice is created
type NFSeCreatedEvent struct {
	shared.BaseDomainEvent
	RPSNumber    string          `json:"rps_number"`
	ServiceValue decimal.Decimal `json:"service_value"`
}

// NewNFSeCreatedEvent creates a created event
func NewNFSeCreatedEvent(n *NFSeDocument) *NFSeCreatedEvent {
	return &NFSeCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventNFSeCreated, nfseAggregate, n.ID, n.OrganizationID),
		RPSNumber:       n.RPSNumber,
		ServiceValue:    n.ServiceValue,
	}
}

// NFSeSubmittedEvent is raised when the invoice is sent to the municipality
type NFSeSubmittedEvent struct {
	shared.BaseDomainEvent
	RPSNumber string `json:"rps_number"`
}

// NewNFSeSubmittedEvent creates a submitted event
func NewNFSeSubmittedEvent(n *NFSeDocument) *NFSeSubmittedEvent {
	return &NFSeSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventNFSeSubmitted, nfseAggregate, n.ID, n.OrganizationID),
		RPSNumber:       n.RPSNumber,
	}
}

// NFSeAuthorizedEvent is raised on municipal authorization
type NFSeAuthorizedEvent struct {
	shared.BaseDomainEvent
	VerificationCode string `json:"verification_code"`
}

// NewNFSeAuthorizedEvent creates an authorized event
func NewNFSeAuthorizedEvent(n *NFSeDocument) *NFSeAuthorizedEvent {
	return &NFSeAuthorizedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventNFSeAuthorized, nfseAggregate, n.ID, n.OrganizationID),
		VerificationCode: n.VerificationCode,
	}
}

// NFSeCancelledEvent is raised when the invoice is cancelled
type NFSeCancelledEvent struct {
	shared.BaseDomainEvent
	Reason string `json:"reason"`
}

// NewNFSeCancelledEvent creates a cancelled event
func NewNFSeCancelledEvent(n *NFSeDocument) *NFSeCancelledEvent {
	return &NFSeCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventNFSeCancelled, nfseAggregate, n.ID, n.OrganizationID),
		Reason:          n.CancelReason,
	}
}
