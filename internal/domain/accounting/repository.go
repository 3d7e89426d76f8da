package accounting

import (
	"context"
	"time"

	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// JournalEntryFilter defines filtering options for entry queries
type JournalEntryFilter struct {
	shared.Pagination
	BranchID         *uuid.UUID
	Status           *EntryStatus
	Source           *EntrySource
	SourceDocumentID *uuid.UUID
	EntryDateFrom    *time.Time
	EntryDateTo      *time.Time
}

// JournalEntryRepository defines the interface for journal entry persistence
type JournalEntryRepository interface {
	// FindByID finds an entry by ID
	FindByID(ctx context.Context, id uuid.UUID) (*JournalEntry, error)

	// FindByIDForOrg finds an entry by ID scoped to an organization
	FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*JournalEntry, error)

	// FindBySourceDocument finds the entries generated from a fiscal document
	FindBySourceDocument(ctx context.Context, organizationID, documentID uuid.UUID) ([]JournalEntry, error)

	// FindAllForOrg lists entries for an organization with filtering
	FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter JournalEntryFilter) ([]JournalEntry, error)

	// NextEntryNumber allocates the next sequential entry number for a branch
	NextEntryNumber(ctx context.Context, organizationID, branchID uuid.UUID) (string, error)

	// Save creates or updates an entry together with its lines
	Save(ctx context.Context, entry *JournalEntry) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, entry *JournalEntry) error

	// CountForOrg counts entries for an organization with optional filters
	CountForOrg(ctx context.Context, organizationID uuid.UUID, filter JournalEntryFilter) (int64, error)
}

// AccountRepository defines the interface for chart-of-accounts persistence
type AccountRepository interface {
	// FindByID finds an account by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByIDForOrg finds an account by ID scoped to an organization
	FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*Account, error)

	// FindByCode finds an account by its dot-notation code
	FindByCode(ctx context.Context, organizationID uuid.UUID, code string) (*Account, error)

	// FindFirstAnalyticalByPrefix finds the first active analytical account
	// whose code starts with the prefix, ordered by code
	FindFirstAnalyticalByPrefix(ctx context.Context, organizationID uuid.UUID, prefix string) (*Account, error)

	// FindAnalyticalSiblings lists active analytical accounts under a parent
	// code, used to build remediation messages
	FindAnalyticalSiblings(ctx context.Context, organizationID uuid.UUID, parentCode string, limit int) ([]Account, error)

	// FindAllForOrg lists accounts for an organization
	FindAllForOrg(ctx context.Context, organizationID uuid.UUID, pagination shared.Pagination) ([]Account, error)

	// CountForOrg counts accounts for an organization
	CountForOrg(ctx context.Context, organizationID uuid.UUID) (int64, error)

	// Save creates or updates an account
	Save(ctx context.Context, account *Account) error
}
