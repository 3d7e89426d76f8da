package accounting

import (
	"fmt"
	"time"

	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/fiscaltms/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryLineType is the side of a journal entry line
type EntryLineType string

const (
	EntryLineDebit  EntryLineType = "DEBIT"
	EntryLineCredit EntryLineType = "CREDIT"
)

// Inverted returns the opposite side, used when building reversals
func (t EntryLineType) Inverted() EntryLineType {
	if t == EntryLineDebit {
		return EntryLineCredit
	}
	return EntryLineDebit
}

// EntrySource identifies what originated a journal entry
type EntrySource string

const (
	EntrySourceManual         EntrySource = "MANUAL"
	EntrySourceFiscalDocument EntrySource = "FISCAL_DOCUMENT"
	EntrySourceReversal       EntrySource = "REVERSAL"
)

// EntryStatus is the lifecycle state of a journal entry.
// DRAFT is initial, REVERSED is terminal.
type EntryStatus string

const (
	EntryStatusDraft    EntryStatus = "DRAFT"
	EntryStatusPosted   EntryStatus = "POSTED"
	EntryStatusReversed EntryStatus = "REVERSED"
)

// JournalEntryLine is one side of a double-entry posting. It carries a
// denormalized account code so statements survive chart renames.
type JournalEntryLine struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	JournalEntryID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNumber     int             `gorm:"not null"`
	AccountID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountCode    string          `gorm:"type:varchar(20);not null"`
	Type           EntryLineType   `gorm:"type:varchar(6);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Description    string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (JournalEntryLine) TableName() string {
	return "journal_entry_lines"
}

// AmountMoney returns the line amount as Money
func (l *JournalEntryLine) AmountMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(l.Amount)
}

// JournalEntry is the double-entry accounting aggregate. Lines may only
// change while in DRAFT; Post enforces the balancing invariant; a
// POSTED entry can only leave that state through a reversal.
type JournalEntry struct {
	shared.OrgAggregateRoot
	EntryNumber      string             `gorm:"type:varchar(30);not null"`
	EntryDate        time.Time          `gorm:"not null;index"`
	Description      string             `gorm:"type:varchar(500);not null"`
	Source           EntrySource        `gorm:"type:varchar(20);not null"`
	SourceDocumentID *uuid.UUID         `gorm:"type:uuid;index"` // fiscal document for FISCAL_DOCUMENT entries
	ReversedEntryID  *uuid.UUID         `gorm:"type:uuid;index"` // original entry for REVERSAL entries
	Status           EntryStatus        `gorm:"type:varchar(10);not null;default:'DRAFT';index"`
	Lines            []JournalEntryLine `gorm:"foreignKey:JournalEntryID;references:ID"`
	PostedAt         *time.Time
}

// TableName returns the table name for GORM
func (JournalEntry) TableName() string {
	return "journal_entries"
}

// NewJournalEntry creates a journal entry in DRAFT
func NewJournalEntry(
	organizationID, branchID uuid.UUID,
	entryNumber string,
	entryDate time.Time,
	description string,
	source EntrySource,
) (*JournalEntry, error) {
	if entryNumber == "" {
		return nil, shared.NewDomainError("INVALID_ENTRY_NUMBER", "Entry number is required")
	}
	if entryDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_ENTRY_DATE", "Entry date is required")
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Entry description is required")
	}

	entry := &JournalEntry{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID, branchID),
		EntryNumber:      entryNumber,
		EntryDate:        entryDate,
		Description:      description,
		Source:           source,
		Status:           EntryStatusDraft,
		Lines:            make([]JournalEntryLine, 0),
	}

	entry.AddDomainEvent(NewJournalEntryCreatedEvent(entry))

	return entry, nil
}

// SetSourceDocument links the fiscal document that originated the entry
func (e *JournalEntry) SetSourceDocument(documentID uuid.UUID) {
	e.SourceDocumentID = &documentID
	e.UpdatedAt = time.Now()
}

// AddLine appends a debit or credit line. Lines may only be added in
// DRAFT and amounts must be positive; the side carries the sign.
func (e *JournalEntry) AddLine(accountID uuid.UUID, accountCode string, lineType EntryLineType, amount valueobject.Money, description string) error {
	if e.Status != EntryStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot add lines to a %s entry", e.Status))
	}
	if accountID == uuid.Nil {
		return shared.NewDomainError("INVALID_LINE", "Line account is required")
	}
	if lineType != EntryLineDebit && lineType != EntryLineCredit {
		return shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Unknown line type %q", lineType))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_LINE", "Line amount must be positive")
	}

	e.Lines = append(e.Lines, JournalEntryLine{
		ID:             uuid.New(),
		JournalEntryID: e.ID,
		LineNumber:     len(e.Lines) + 1,
		AccountID:      accountID,
		AccountCode:    accountCode,
		Type:           lineType,
		Amount:         amount.Amount(),
		Description:    description,
	})
	e.UpdatedAt = time.Now()

	return nil
}

// TotalDebits sums the debit lines
func (e *JournalEntry) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		if line.Type == EntryLineDebit {
			total = total.Add(line.Amount)
		}
	}
	return total
}

// TotalCredits sums the credit lines
func (e *JournalEntry) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		if line.Type == EntryLineCredit {
			total = total.Add(line.Amount)
		}
	}
	return total
}

// IsBalanced returns true when debits equal credits
func (e *JournalEntry) IsBalanced() bool {
	return e.TotalDebits().Equal(e.TotalCredits())
}

// Post moves the entry to POSTED. Requires at least one debit, at
// least one credit and equal totals.
func (e *JournalEntry) Post() error {
	if e.Status == EntryStatusPosted {
		return shared.NewDomainError("INVALID_STATE", "Entry has already been posted")
	}
	if e.Status == EntryStatusReversed {
		return shared.NewDomainError("INVALID_STATE", "Cannot post a reversed entry")
	}
	if e.TotalDebits().IsZero() || e.TotalCredits().IsZero() {
		return shared.NewDomainError("UNBALANCED_ENTRY", "Unbalanced entry: at least one debit and one credit line are required")
	}
	if !e.IsBalanced() {
		return shared.NewDomainError("UNBALANCED_ENTRY", fmt.Sprintf("Unbalanced entry: debits %s do not equal credits %s", e.TotalDebits(), e.TotalCredits()))
	}

	now := time.Now()
	e.Status = EntryStatusPosted
	e.PostedAt = &now
	e.UpdatedAt = now
	e.IncrementVersion()

	e.AddDomainEvent(NewJournalEntryPostedEvent(e))

	return nil
}

// CreateReversal builds a new entry with inverted line sides and marks
// this entry REVERSED. Only POSTED entries can be reversed; REVERSED is
// terminal.
func (e *JournalEntry) CreateReversal(entryNumber, description string, entryDate time.Time) (*JournalEntry, error) {
	if e.Status != EntryStatusPosted {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reverse a %s entry", e.Status))
	}

	reversal, err := NewJournalEntry(e.OrganizationID, e.BranchID, entryNumber, entryDate, description, EntrySourceReversal)
	if err != nil {
		return nil, err
	}
	reversal.ReversedEntryID = &e.ID
	reversal.SourceDocumentID = e.SourceDocumentID

	for _, line := range e.Lines {
		if err := reversal.AddLine(line.AccountID, line.AccountCode, line.Type.Inverted(), valueobject.NewMoneyBRL(line.Amount), line.Description); err != nil {
			return nil, err
		}
	}
	if err := reversal.Post(); err != nil {
		return nil, err
	}

	e.Status = EntryStatusReversed
	e.UpdatedAt = time.Now()
	e.IncrementVersion()

	e.AddDomainEvent(NewJournalEntryReversedEvent(e, reversal.ID))

	return reversal, nil
}
