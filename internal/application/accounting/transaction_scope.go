package accounting

import (
	"context"

	"github.com/fiscaltms/backend/internal/domain/accounting"
	"github.com/fiscaltms/backend/internal/domain/fiscal"
)

// TransactionScope provides transactional access to the repositories the
// accounting engine touches. When a function is executed within a
// transaction scope, all repository operations are part of the same
// database transaction and commit or roll back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the engine's repositories
// within a transaction. All repositories returned share the same
// underlying database transaction.
//
// Posting spans two aggregates (the fiscal document and the journal
// entry); the transaction plus the document's optimistic lock keep the
// check-then-act window between reading AccountingStatus and flipping it
// closed even across concurrent posting requests.
type TransactionalRepositories interface {
	// Documents returns the fiscal document repository scoped to the transaction
	Documents() fiscal.FiscalDocumentRepository
	// Entries returns the journal entry repository scoped to the transaction
	Entries() accounting.JournalEntryRepository
	// Accounts returns the chart-of-accounts repository scoped to the transaction
	Accounts() accounting.AccountRepository
}

// NoOpTransactionScope runs the function without a real transaction.
// Useful for tests and for callers that bring their own atomicity.
type NoOpTransactionScope struct {
	documents fiscal.FiscalDocumentRepository
	entries   accounting.JournalEntryRepository
	accounts  accounting.AccountRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories
func NewNoOpTransactionScope(
	documents fiscal.FiscalDocumentRepository,
	entries accounting.JournalEntryRepository,
	accounts accounting.AccountRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		documents: documents,
		entries:   entries,
		accounts:  accounts,
	}
}

// Execute runs the function without transaction boundaries
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Documents returns the fiscal document repository
func (s *NoOpTransactionScope) Documents() fiscal.FiscalDocumentRepository {
	return s.documents
}

// Entries returns the journal entry repository
func (s *NoOpTransactionScope) Entries() accounting.JournalEntryRepository {
	return s.entries
}

// Accounts returns the chart-of-accounts repository
func (s *NoOpTransactionScope) Accounts() accounting.AccountRepository {
	return s.accounts
}
