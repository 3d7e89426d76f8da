package persistence

import (
	"context"

	accountingapp "github.com/fiscaltms/backend/internal/application/accounting"
	"github.com/fiscaltms/backend/internal/domain/accounting"
	"github.com/fiscaltms/backend/internal/domain/fiscal"
	"gorm.io/gorm"
)

// GormTransactionScope implements the accounting engine's TransactionScope
// using a GORM transaction. All repositories handed to the callback share
// the same transaction, so posting a journal entry and flipping the source
// document's accounting status commit or roll back together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos accountingapp.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides repositories bound to one transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Documents() fiscal.FiscalDocumentRepository {
	return NewGormFiscalDocumentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Entries() accounting.JournalEntryRepository {
	return NewGormJournalEntryRepository(r.tx)
}

func (r *gormTransactionalRepositories) Accounts() accounting.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

// Ensure GormTransactionScope implements the interface
var _ accountingapp.TransactionScope = (*GormTransactionScope)(nil)
