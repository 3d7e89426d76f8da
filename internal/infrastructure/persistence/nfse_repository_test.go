package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fiscaltms/backend/internal/domain/fiscal"
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockNFSeRepository(t *testing.T) (*GormNFSeDocumentRepository, sqlmock.Sqlmock, *sql.DB) {
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

	return NewGormNFSeDocumentRepository(gormDB), mock, mockDB
}

func TestGormNFSeDocumentRepository_FindByRPSNumber(t *testing.T) {
	t.Run("finds invoice by RPS within branch", func(t *testing.T) {
		repo, mock, mockDB := newMockNFSeRepository(t)
		defer mockDB.Close()

		docID := uuid.New()
		orgID := uuid.New()
		branchID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "organization_id", "branch_id", "rps_number", "status"}).
			AddRow(docID, orgID, branchID, "RPS-42", "DRAFT")

		mock.ExpectQuery(`SELECT \* FROM "nfse_documents" WHERE rps_number = \$1 AND organization_id = \$2 AND branch_id = \$3.*LIMIT`).
			WillReturnRows(rows)

		doc, err := repo.FindByRPSNumber(context.Background(), orgID, branchID, "RPS-42")

		assert.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, docID, doc.ID)
		assert.Equal(t, fiscal.NFSeStatusDraft, doc.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil when the RPS is unknown", func(t *testing.T) {
		repo, mock, mockDB := newMockNFSeRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "nfse_documents"`).
			WillReturnError(gorm.ErrRecordNotFound)

		doc, err := repo.FindByRPSNumber(context.Background(), uuid.New(), uuid.New(), "RPS-404")

		assert.NoError(t, err)
		assert.Nil(t, doc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormNFSeDocumentRepository_CountForOrg(t *testing.T) {
	repo, mock, mockDB := newMockNFSeRepository(t)
	defer mockDB.Close()

	status := fiscal.NFSeStatusAuthorized
	mock.ExpectQuery(`SELECT count\(\*\) FROM "nfse_documents" WHERE organization_id = \$1 AND status = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountForOrg(context.Background(), uuid.New(), fiscal.NFSeDocumentFilter{Status: &status})

	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormNFSeDocumentRepository_SaveWithLock(t *testing.T) {
	invoice := func() *fiscal.NFSeDocument {
		doc := &fiscal.NFSeDocument{}
		doc.ID = uuid.New()
		doc.OrganizationID = uuid.New()
		doc.Version = 2
		doc.UpdatedAt = time.Now()
		return doc
	}

	t.Run("updates when version matches", func(t *testing.T) {
		repo, mock, mockDB := newMockNFSeRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "nfse_documents" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveWithLock(context.Background(), invoice())

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns concurrency conflict on version mismatch", func(t *testing.T) {
		repo, mock, mockDB := newMockNFSeRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "nfse_documents" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), invoice())

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
