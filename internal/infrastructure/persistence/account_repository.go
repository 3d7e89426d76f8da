package persistence

import (
	"context"
	"errors"

	"github.com/fiscaltms/backend/internal/domain/accounting"
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAccountRepository implements AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*accounting.Account, error) {
	var account accounting.Account
	if err := r.db.WithContext(ctx).
		First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FindByIDForOrg finds an account by ID for a specific organization
func (r *GormAccountRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*accounting.Account, error) {
	var account accounting.Account
	if err := r.db.WithContext(ctx).
		First(&account, "id = ? AND organization_id = ?", id, organizationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FindByCode finds an account by its dot-notation code for an organization
func (r *GormAccountRepository) FindByCode(ctx context.Context, organizationID uuid.UUID, code string) (*accounting.Account, error) {
	var account accounting.Account
	if err := r.db.WithContext(ctx).
		First(&account, "code = ? AND organization_id = ?", code, organizationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FindFirstAnalyticalByPrefix finds the first active analytical account whose
// code starts with the prefix, ordered by code
func (r *GormAccountRepository) FindFirstAnalyticalByPrefix(ctx context.Context, organizationID uuid.UUID, prefix string) (*accounting.Account, error) {
	var account accounting.Account
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND code LIKE ? AND is_analytical = ? AND active = ?",
			organizationID, prefix+"%", true, true).
		Order("code ASC").
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FindAnalyticalSiblings lists active analytical accounts under a parent code
func (r *GormAccountRepository) FindAnalyticalSiblings(ctx context.Context, organizationID uuid.UUID, parentCode string, limit int) ([]accounting.Account, error) {
	var accounts []accounting.Account
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND code LIKE ? AND is_analytical = ? AND active = ?",
			organizationID, parentCode+".%", true, true).
		Order("code ASC").
		Limit(limit).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// FindAllForOrg lists accounts for an organization
func (r *GormAccountRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, pagination shared.Pagination) ([]accounting.Account, error) {
	var accounts []accounting.Account
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order(sortClause(pagination.SortBy, pagination.SortOrder, AccountSortFields, "code", "ASC")).
		Limit(pagination.Limit()).
		Offset(pagination.Offset()).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// CountForOrg counts accounts for an organization
func (r *GormAccountRepository) CountForOrg(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&accounting.Account{}).
		Where("organization_id = ?", organizationID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, account *accounting.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// Ensure GormAccountRepository implements the interface
var _ accounting.AccountRepository = (*GormAccountRepository)(nil)
