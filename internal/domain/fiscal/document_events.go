package fiscal

import (
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types for fiscal documents
const (
	EventFiscalDocumentCreated    = "fiscal_document.created"
	EventFiscalDocumentSubmitted  = "fiscal_document.submitted"
	EventFiscalDocumentAuthorized = "fiscal_document.authorized"
	EventFiscalDocumentCancelled  = "fiscal_document.cancelled"
	EventFiscalDocumentManifested = "fiscal_document.manifested"
	EventFiscalDocumentPosted     = "fiscal_document.posted"
)

const fiscalDocumentAggregate = "FiscalDocument"

// FiscalDocumentCreatedEvent is raised when a document is imported or created
type FiscalDocumentCreatedEvent struct {
	shared.BaseDomainEvent
	DocumentType DocumentType    `json:"document_type"`
	Series       string          `json:"series"`
	Number       string          `json:"number"`
	IssuerCNPJ   string          `json:"issuer_cnpj"`
	TotalValue   decimal.Decimal `json:"total_value"`
}

// NewFiscalDocumentCreatedEvent creates a created event
func NewFiscalDocumentCreatedEvent(d *FiscalDocument) *FiscalDocumentCreatedEvent {
	return &FiscalDocumentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventFiscalDocumentCreated, fiscalDocumentAggregate, d.ID, d.OrganizationID),
		DocumentType:    d.DocumentType,
		Series:          d.Series,
		Number:          d.Number,
		IssuerCNPJ:      d.IssuerCNPJ,
		TotalValue:      d.TotalValue,
	}
}

// FiscalDocumentSubmittedEvent is raised when a document is submitted
type FiscalDocumentSubmittedEvent struct {
	shared.BaseDomainEvent
	Series string `json:"series"`
	Number string `json:"number"`
}

// NewFiscalDocumentSubmittedEvent creates a submitted event
func NewFiscalDocumentSubmittedEvent(d *FiscalDocument) *FiscalDocumentSubmittedEvent {
	return &FiscalDocumentSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventFiscalDocumentSubmitted, fiscalDocumentAggregate, d.ID, d.OrganizationID),
		Series:          d.Series,
		Number:          d.Number,
	}
}

// FiscalDocumentAuthorizedEvent is raised when the authority authorizes the document
type FiscalDocumentAuthorizedEvent struct {
	shared.BaseDomainEvent
	Protocol string `json:"protocol"`
}

// NewFiscalDocumentAuthorizedEvent creates an authorized event
func NewFiscalDocumentAuthorizedEvent(d *FiscalDocument) *FiscalDocumentAuthorizedEvent {
	return &FiscalDocumentAuthorizedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventFiscalDocumentAuthorized, fiscalDocumentAggregate, d.ID, d.OrganizationID),
		Protocol:        d.Protocol,
	}
}

// FiscalDocumentCancelledEvent is raised when the document is cancelled
type FiscalDocumentCancelledEvent struct {
	shared.BaseDomainEvent
	PreviousStatus DocumentStatus `json:"previous_status"`
	Reason         string         `json:"reason"`
}

// NewFiscalDocumentCancelledEvent creates a cancelled event
func NewFiscalDocumentCancelledEvent(d *FiscalDocument, previous DocumentStatus) *FiscalDocumentCancelledEvent {
	return &FiscalDocumentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventFiscalDocumentCancelled, fiscalDocumentAggregate, d.ID, d.OrganizationID),
		PreviousStatus:  previous,
		Reason:          d.CancelReason,
	}
}

// FiscalDocumentManifestedEvent is raised on recipient manifestation
type FiscalDocumentManifestedEvent struct {
	shared.BaseDomainEvent
	Manifestation ManifestationStatus `json:"manifestation"`
}

// NewFiscalDocumentManifestedEvent creates a manifested event
func NewFiscalDocumentManifestedEvent(d *FiscalDocument, status ManifestationStatus) *FiscalDocumentManifestedEvent {
	return &FiscalDocumentManifestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventFiscalDocumentManifested, fiscalDocumentAggregate, d.ID, d.OrganizationID),
		Manifestation:   status,
	}
}

// FiscalDocumentPostedEvent is raised when a journal entry is generated
type FiscalDocumentPostedEvent struct {
	shared.BaseDomainEvent
	JournalEntryID uuid.UUID `json:"journal_entry_id"`
}

// NewFiscalDocumentPostedEvent creates a posted event
func NewFiscalDocumentPostedEvent(d *FiscalDocument, journalEntryID uuid.UUID) *FiscalDocumentPostedEvent {
	return &FiscalDocumentPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventFiscalDocumentPosted, fiscalDocumentAggregate, d.ID, d.OrganizationID),
		JournalEntryID:  journalEntryID,
	}
}
