package persistence

import (
	"context"
	"errors"

	"github.com/fiscaltms/backend/internal/domain/fiscal"
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormNFSeDocumentRepository implements NFSeDocumentRepository using GORM
type GormNFSeDocumentRepository struct {
	db *gorm.DB
}

// NewGormNFSeDocumentRepository creates a new GormNFSeDocumentRepository
func NewGormNFSeDocumentRepository(db *gorm.DB) *GormNFSeDocumentRepository {
	return &GormNFSeDocumentRepository{db: db}
}

// FindByID finds a service invoice by ID
func (r *GormNFSeDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*fiscal.NFSeDocument, error) {
	var doc fiscal.NFSeDocument
	if err := r.db.WithContext(ctx).
		First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// FindByIDForOrg finds a service invoice by ID for a specific organization
func (r *GormNFSeDocumentRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*fiscal.NFSeDocument, error) {
	var doc fiscal.NFSeDocument
	if err := r.db.WithContext(ctx).
		First(&doc, "id = ? AND organization_id = ?", id, organizationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// FindByRPSNumber finds a service invoice by RPS number within a branch
func (r *GormNFSeDocumentRepository) FindByRPSNumber(ctx context.Context, organizationID, branchID uuid.UUID, rpsNumber string) (*fiscal.NFSeDocument, error) {
	var doc fiscal.NFSeDocument
	if err := r.db.WithContext(ctx).
		First(&doc, "rps_number = ? AND organization_id = ? AND branch_id = ?", rpsNumber, organizationID, branchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// FindAllForOrg finds all service invoices for an organization with filtering
func (r *GormNFSeDocumentRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter fiscal.NFSeDocumentFilter) ([]fiscal.NFSeDocument, error) {
	var docs []fiscal.NFSeDocument
	query := r.applyFilter(r.db.WithContext(ctx).Where("organization_id = ?", organizationID), filter)

	query = query.Limit(filter.Limit()).Offset(filter.Offset()).
		Order(sortClause(filter.SortBy, filter.SortOrder, NFSeSortFields, "issue_date", "DESC"))

	if err := query.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Save creates or updates a service invoice
func (r *GormNFSeDocumentRepository) Save(ctx context.Context, doc *fiscal.NFSeDocument) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormNFSeDocumentRepository) SaveWithLock(ctx context.Context, doc *fiscal.NFSeDocument) error {
	result := r.db.WithContext(ctx).
		Model(doc).
		Where("id = ? AND version = ?", doc.ID, doc.Version-1).
		Updates(doc)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// CountForOrg counts service invoices for an organization with optional filters
func (r *GormNFSeDocumentRepository) CountForOrg(ctx context.Context, organizationID uuid.UUID, filter fiscal.NFSeDocumentFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).
		Model(&fiscal.NFSeDocument{}).
		Where("organization_id = ?", organizationID), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies the optional filter conditions to a query
func (r *GormNFSeDocumentRepository) applyFilter(query *gorm.DB, filter fiscal.NFSeDocumentFilter) *gorm.DB {
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PrestadorCNPJ != nil {
		query = query.Where("prestador_cnpj = ?", *filter.PrestadorCNPJ)
	}
	if filter.IssueDateFrom != nil {
		query = query.Where("issue_date >= ?", *filter.IssueDateFrom)
	}
	if filter.IssueDateTo != nil {
		query = query.Where("issue_date <= ?", *filter.IssueDateTo)
	}
	return query
}

// Ensure GormNFSeDocumentRepository implements the interface
var _ fiscal.NFSeDocumentRepository = (*GormNFSeDocumentRepository)(nil)
