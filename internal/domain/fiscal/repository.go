package fiscal

import (
	"context"
	"time"

	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// FiscalDocumentFilter defines filtering options for document queries
type FiscalDocumentFilter struct {
	shared.Pagination
	BranchID         *uuid.UUID
	DocumentType     *DocumentType
	Status           *DocumentStatus
	AccountingStatus *AccountingStatus
	Role             *DocumentRole
	IssuerCNPJ       *string
	IssueDateFrom    *time.Time
	IssueDateTo      *time.Time
}

// FiscalDocumentRepository defines the interface for fiscal document persistence
type FiscalDocumentRepository interface {
	// FindByID finds a document by ID
	FindByID(ctx context.Context, id uuid.UUID) (*FiscalDocument, error)

	// FindByIDForOrg finds a document by ID scoped to an organization
	FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*FiscalDocument, error)

	// FindByFiscalKey finds a document by its 44-digit key within an organization
	FindByFiscalKey(ctx context.Context, organizationID uuid.UUID, fiscalKey string) (*FiscalDocument, error)

	// ExistsByFiscalKey reports whether a document with the key was already imported
	ExistsByFiscalKey(ctx context.Context, organizationID uuid.UUID, fiscalKey string) (bool, error)

	// FindAllForOrg lists documents for an organization with filtering
	FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter FiscalDocumentFilter) ([]FiscalDocument, error)

	// FindPendingAccounting lists authorized documents not yet posted
	FindPendingAccounting(ctx context.Context, organizationID uuid.UUID, filter FiscalDocumentFilter) ([]FiscalDocument, error)

	// Save creates or updates a document together with its items
	Save(ctx context.Context, doc *FiscalDocument) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, doc *FiscalDocument) error

	// DeleteForOrg soft deletes a document for an organization
	DeleteForOrg(ctx context.Context, organizationID, id uuid.UUID) error

	// CountForOrg counts documents for an organization with optional filters
	CountForOrg(ctx context.Context, organizationID uuid.UUID, filter FiscalDocumentFilter) (int64, error)
}

// NFSeDocumentFilter defines filtering options for service invoice queries
type NFSeDocumentFilter struct {
	shared.Pagination
	BranchID      *uuid.UUID
	Status        *NFSeStatus
	PrestadorCNPJ *string
	IssueDateFrom *time.Time
	IssueDateTo   *time.Time
}

// NFSeDocumentRepository defines the interface for service invoice persistence
type NFSeDocumentRepository interface {
	// FindByID finds a service invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*NFSeDocument, error)

	// FindByIDForOrg finds a service invoice by ID scoped to an organization
	FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*NFSeDocument, error)

	// FindByRPSNumber finds a service invoice by RPS number within a branch
	FindByRPSNumber(ctx context.Context, organizationID, branchID uuid.UUID, rpsNumber string) (*NFSeDocument, error)

	// FindAllForOrg lists service invoices for an organization with filtering
	FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter NFSeDocumentFilter) ([]NFSeDocument, error)

	// Save creates or updates a service invoice
	Save(ctx context.Context, doc *NFSeDocument) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, doc *NFSeDocument) error

	// CountForOrg counts service invoices for an organization with optional filters
	CountForOrg(ctx context.Context, organizationID uuid.UUID, filter NFSeDocumentFilter) (int64, error)
}
