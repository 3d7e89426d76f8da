package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fiscaltms/backend/internal/domain/accounting"
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockJournalEntryRepository creates a GormJournalEntryRepository with a mocked SQL connection
func newMockJournalEntryRepository(t *testing.T) (*GormJournalEntryRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormJournalEntryRepository(gormDB), mock, mockDB
}

func TestGormJournalEntryRepository_NextEntryNumber(t *testing.T) {
	prefix := fmt.Sprintf("JE-%d-", time.Now().Year())

	t.Run("starts at one for an empty branch", func(t *testing.T) {
		repo, mock, mockDB := newMockJournalEntryRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT entry_number FROM "journal_entries"`).
			WillReturnRows(sqlmock.NewRows([]string{"entry_number"}))

		number, err := repo.NextEntryNumber(context.Background(), uuid.New(), uuid.New())

		assert.NoError(t, err)
		assert.Equal(t, prefix+"000001", number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("increments the highest existing number", func(t *testing.T) {
		repo, mock, mockDB := newMockJournalEntryRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT entry_number FROM "journal_entries"`).
			WillReturnRows(sqlmock.NewRows([]string{"entry_number"}).AddRow(prefix + "000041"))

		number, err := repo.NextEntryNumber(context.Background(), uuid.New(), uuid.New())

		assert.NoError(t, err)
		assert.Equal(t, prefix+"000042", number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormJournalEntryRepository_FindByIDForOrg(t *testing.T) {
	t.Run("finds entry with lines", func(t *testing.T) {
		repo, mock, mockDB := newMockJournalEntryRepository(t)
		defer mockDB.Close()

		entryID := uuid.New()
		orgID := uuid.New()

		entryRows := sqlmock.NewRows([]string{"id", "organization_id", "entry_number", "status", "source"}).
			AddRow(entryID, orgID, "JE-2026-000001", "POSTED", "FISCAL_DOCUMENT")
		lineRows := sqlmock.NewRows([]string{"id", "journal_entry_id", "line_number", "account_code", "type"}).
			AddRow(uuid.New(), entryID, 1, "1.1.03.01", "DEBIT").
			AddRow(uuid.New(), entryID, 2, "2.1.01.01", "CREDIT")

		mock.ExpectQuery(`SELECT \* FROM "journal_entries" WHERE id = \$1 AND organization_id = \$2.*LIMIT`).
			WillReturnRows(entryRows)
		mock.ExpectQuery(`SELECT \* FROM "journal_entry_lines"`).
			WillReturnRows(lineRows)

		entry, err := repo.FindByIDForOrg(context.Background(), orgID, entryID)

		assert.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, accounting.EntryStatusPosted, entry.Status)
		assert.Len(t, entry.Lines, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil for non-existent entry", func(t *testing.T) {
		repo, mock, mockDB := newMockJournalEntryRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "journal_entries"`).
			WillReturnError(gorm.ErrRecordNotFound)

		entry, err := repo.FindByIDForOrg(context.Background(), uuid.New(), uuid.New())

		assert.NoError(t, err)
		assert.Nil(t, entry)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormJournalEntryRepository_SaveWithLock(t *testing.T) {
	entry := func() *accounting.JournalEntry {
		e := &accounting.JournalEntry{}
		e.ID = uuid.New()
		e.OrganizationID = uuid.New()
		e.Version = 3
		e.UpdatedAt = time.Now()
		return e
	}

	t.Run("updates when version matches", func(t *testing.T) {
		repo, mock, mockDB := newMockJournalEntryRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "journal_entries" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveWithLock(context.Background(), entry())

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns concurrency conflict on version mismatch", func(t *testing.T) {
		repo, mock, mockDB := newMockJournalEntryRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "journal_entries" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), entry())

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
