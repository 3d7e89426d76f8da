package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fiscaltms/backend/internal/domain/accounting"
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormJournalEntryRepository implements JournalEntryRepository using GORM
type GormJournalEntryRepository struct {
	db *gorm.DB
}

// NewGormJournalEntryRepository creates a new GormJournalEntryRepository
func NewGormJournalEntryRepository(db *gorm.DB) *GormJournalEntryRepository {
	return &GormJournalEntryRepository{db: db}
}

// FindByID finds a journal entry by ID
func (r *GormJournalEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*accounting.JournalEntry, error) {
	var entry accounting.JournalEntry
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// FindByIDForOrg finds a journal entry by ID for a specific organization
func (r *GormJournalEntryRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*accounting.JournalEntry, error) {
	var entry accounting.JournalEntry
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&entry, "id = ? AND organization_id = ?", id, organizationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// FindBySourceDocument finds the entries generated from a fiscal document
func (r *GormJournalEntryRepository) FindBySourceDocument(ctx context.Context, organizationID, documentID uuid.UUID) ([]accounting.JournalEntry, error) {
	var entries []accounting.JournalEntry
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND source_document_id = ?", organizationID, documentID).
		Preload("Lines").
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindAllForOrg finds all journal entries for an organization with filtering
func (r *GormJournalEntryRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter accounting.JournalEntryFilter) ([]accounting.JournalEntry, error) {
	var entries []accounting.JournalEntry
	query := r.applyFilter(r.db.WithContext(ctx).Where("organization_id = ?", organizationID), filter)

	query = query.Limit(filter.Limit()).Offset(filter.Offset()).
		Order(sortClause(filter.SortBy, filter.SortOrder, JournalEntrySortFields, "entry_number", "DESC"))

	if err := query.Preload("Lines").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// NextEntryNumber allocates the next sequential entry number for a branch.
// Format: JE-YYYY-NNNNNN, where the sequence restarts each year.
func (r *GormJournalEntryRepository) NextEntryNumber(ctx context.Context, organizationID, branchID uuid.UUID) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("JE-%d-", year)

	var maxNumber string
	if err := r.db.WithContext(ctx).
		Model(&accounting.JournalEntry{}).
		Select("entry_number").
		Where("organization_id = ? AND branch_id = ? AND entry_number LIKE ?", organizationID, branchID, prefix+"%").
		Order("entry_number DESC").
		Limit(1).
		Scan(&maxNumber).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	nextSeq := 1
	if maxNumber != "" {
		var seq int
		if _, err := fmt.Sscanf(maxNumber[len(prefix):], "%06d", &seq); err == nil {
			nextSeq = seq + 1
		}
	}

	return fmt.Sprintf("%s%06d", prefix, nextSeq), nil
}

// Save creates or updates a journal entry together with its lines
func (r *GormJournalEntryRepository) Save(ctx context.Context, entry *accounting.JournalEntry) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(entry).Error
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormJournalEntryRepository) SaveWithLock(ctx context.Context, entry *accounting.JournalEntry) error {
	result := r.db.WithContext(ctx).
		Model(entry).
		Where("id = ? AND version = ?", entry.ID, entry.Version-1).
		Updates(entry)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// CountForOrg counts journal entries for an organization with optional filters
func (r *GormJournalEntryRepository) CountForOrg(ctx context.Context, organizationID uuid.UUID, filter accounting.JournalEntryFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).
		Model(&accounting.JournalEntry{}).
		Where("organization_id = ?", organizationID), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies the optional filter conditions to a query
func (r *GormJournalEntryRepository) applyFilter(query *gorm.DB, filter accounting.JournalEntryFilter) *gorm.DB {
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	if filter.SourceDocumentID != nil {
		query = query.Where("source_document_id = ?", *filter.SourceDocumentID)
	}
	if filter.EntryDateFrom != nil {
		query = query.Where("entry_date >= ?", *filter.EntryDateFrom)
	}
	if filter.EntryDateTo != nil {
		query = query.Where("entry_date <= ?", *filter.EntryDateTo)
	}
	return query
}

// Ensure GormJournalEntryRepository implements the interface
var _ accounting.JournalEntryRepository = (*GormJournalEntryRepository)(nil)
