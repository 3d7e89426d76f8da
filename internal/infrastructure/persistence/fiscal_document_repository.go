package persistence

import (
	"context"
	"errors"

	"github.com/fiscaltms/backend/internal/domain/fiscal"
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFiscalDocumentRepository implements FiscalDocumentRepository using GORM
type GormFiscalDocumentRepository struct {
	db *gorm.DB
}

// NewGormFiscalDocumentRepository creates a new GormFiscalDocumentRepository
func NewGormFiscalDocumentRepository(db *gorm.DB) *GormFiscalDocumentRepository {
	return &GormFiscalDocumentRepository{db: db}
}

// FindByID finds a fiscal document by ID
func (r *GormFiscalDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*fiscal.FiscalDocument, error) {
	var doc fiscal.FiscalDocument
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// FindByIDForOrg finds a fiscal document by ID for a specific organization
func (r *GormFiscalDocumentRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*fiscal.FiscalDocument, error) {
	var doc fiscal.FiscalDocument
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&doc, "id = ? AND organization_id = ?", id, organizationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// FindByFiscalKey finds a fiscal document by its 44-digit key for an organization
func (r *GormFiscalDocumentRepository) FindByFiscalKey(ctx context.Context, organizationID uuid.UUID, fiscalKey string) (*fiscal.FiscalDocument, error) {
	var doc fiscal.FiscalDocument
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&doc, "fiscal_key = ? AND organization_id = ?", fiscalKey, organizationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// ExistsByFiscalKey checks if a fiscal key was already imported for an organization
func (r *GormFiscalDocumentRepository) ExistsByFiscalKey(ctx context.Context, organizationID uuid.UUID, fiscalKey string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&fiscal.FiscalDocument{}).
		Where("fiscal_key = ? AND organization_id = ?", fiscalKey, organizationID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAllForOrg finds all fiscal documents for an organization with filtering
func (r *GormFiscalDocumentRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter fiscal.FiscalDocumentFilter) ([]fiscal.FiscalDocument, error) {
	var docs []fiscal.FiscalDocument
	query := r.applyFilter(r.db.WithContext(ctx).Where("organization_id = ?", organizationID), filter)

	query = query.Limit(filter.Limit()).Offset(filter.Offset()).
		Order(sortClause(filter.SortBy, filter.SortOrder, FiscalDocumentSortFields, "issue_date", "DESC"))

	if err := query.Preload("Items").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// FindPendingAccounting finds authorized documents that have not been posted yet
func (r *GormFiscalDocumentRepository) FindPendingAccounting(ctx context.Context, organizationID uuid.UUID, filter fiscal.FiscalDocumentFilter) ([]fiscal.FiscalDocument, error) {
	var docs []fiscal.FiscalDocument
	query := r.applyFilter(r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Where("status = ?", fiscal.DocumentStatusAuthorized).
		Where("accounting_status = ?", fiscal.AccountingStatusPending), filter)

	query = query.Limit(filter.Limit()).Offset(filter.Offset()).Order("issue_date ASC")

	if err := query.Preload("Items").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Save creates or updates a fiscal document together with its items
func (r *GormFiscalDocumentRepository) Save(ctx context.Context, doc *fiscal.FiscalDocument) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(doc).Error
}

// SaveWithLock saves with optimistic locking (version check).
// The root row update and the item updates run in one transaction so a
// version conflict rolls everything back.
func (r *GormFiscalDocumentRepository) SaveWithLock(ctx context.Context, doc *fiscal.FiscalDocument) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(doc).
			Where("id = ? AND version = ?", doc.ID, doc.Version-1).
			Updates(doc)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		for i := range doc.Items {
			if err := tx.Save(&doc.Items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteForOrg soft deletes a fiscal document for an organization
func (r *GormFiscalDocumentRepository) DeleteForOrg(ctx context.Context, organizationID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&fiscal.FiscalDocument{}, "id = ? AND organization_id = ?", id, organizationID).Error
}

// CountForOrg counts fiscal documents for an organization with optional filters
func (r *GormFiscalDocumentRepository) CountForOrg(ctx context.Context, organizationID uuid.UUID, filter fiscal.FiscalDocumentFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).
		Model(&fiscal.FiscalDocument{}).
		Where("organization_id = ?", organizationID), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies the optional filter conditions to a query
func (r *GormFiscalDocumentRepository) applyFilter(query *gorm.DB, filter fiscal.FiscalDocumentFilter) *gorm.DB {
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.DocumentType != nil {
		query = query.Where("document_type = ?", *filter.DocumentType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AccountingStatus != nil {
		query = query.Where("accounting_status = ?", *filter.AccountingStatus)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.IssuerCNPJ != nil {
		query = query.Where("issuer_cnpj = ?", *filter.IssuerCNPJ)
	}
	if filter.IssueDateFrom != nil {
		query = query.Where("issue_date >= ?", *filter.IssueDateFrom)
	}
	if filter.IssueDateTo != nil {
		query = query.Where("issue_date <= ?", *filter.IssueDateTo)
	}
	return query
}

// Ensure GormFiscalDocumentRepository implements the interface
var _ fiscal.FiscalDocumentRepository = (*GormFiscalDocumentRepository)(nil)
