package accounting

import (
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types for journal entries
const (
	EventJournalEntryCreated  = "journal_entry.created"
	EventJournalEntryPosted   = "journal_entry.posted"
	EventJournalEntryReversed = "journal_entry.reversed"
)

const journalEntryAggregate = "JournalEntry"

// JournalEntryCreatedEvent is raised when an entry is created
type JournalEntryCreatedEvent struct {
	shared.BaseDomainEvent
	EntryNumber string      `json:"entry_number"`
	Source      EntrySource `json:"source"`
}

// NewJournalEntryCreatedEvent creates a created event
func NewJournalEntryCreatedEvent(e *JournalEntry) *JournalEntryCreatedEvent {
	return &JournalEntryCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventJournalEntryCreated, journalEntryAggregate, e.ID, e.OrganizationID),
		EntryNumber:     e.EntryNumber,
		Source:          e.Source,
	}
}

// JournalEntryPostedEvent is raised when an entry is posted
type JournalEntryPostedEvent struct {
	shared.BaseDomainEvent
	EntryNumber string          `json:"entry_number"`
	TotalDebits decimal.Decimal `json:"total_debits"`
}

// NewJournalEntryPostedEvent creates a posted event
func NewJournalEntryPostedEvent(e *JournalEntry) *JournalEntryPostedEvent {
	return &JournalEntryPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventJournalEntryPosted, journalEntryAggregate, e.ID, e.OrganizationID),
		EntryNumber:     e.EntryNumber,
		TotalDebits:     e.TotalDebits(),
	}
}

// JournalEntryReversedEvent is raised on the original entry when a
// reversal is created
type JournalEntryReversedEvent struct {
	shared.BaseDomainEvent
	ReversalEntryID uuid.UUID `json:"reversal_entry_id"`
}

// NewJournalEntryReversedEvent creates a reversed event
func NewJournalEntryReversedEvent(e *JournalEntry, reversalID uuid.UUID) *JournalEntryReversedEvent {
	return &JournalEntryReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventJournalEntryReversed, journalEntryAggregate, e.ID, e.OrganizationID),
		ReversalEntryID: reversalID,
	}
}
