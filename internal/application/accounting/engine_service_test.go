package accounting

import (
	"context"
	"testing"
	"time"

	domainaccounting "github.com/fiscaltms/backend/internal/domain/accounting"
	"github.com/fiscaltms/backend/internal/domain/fiscal"
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/fiscaltms/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ===================== Mocks =====================

// MockFiscalDocumentRepository is a mock implementation of fiscal.FiscalDocumentRepository
type MockFiscalDocumentRepository struct {
	mock.Mock
}

func (m *MockFiscalDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*fiscal.FiscalDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.FiscalDocument), args.Error(1)
}

func (m *MockFiscalDocumentRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*fiscal.FiscalDocument, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.FiscalDocument), args.Error(1)
}

func (m *MockFiscalDocumentRepository) FindByFiscalKey(ctx context.Context, organizationID uuid.UUID, fiscalKey string) (*fiscal.FiscalDocument, error) {
	args := m.Called(ctx, organizationID, fiscalKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.FiscalDocument), args.Error(1)
}

func (m *MockFiscalDocumentRepository) ExistsByFiscalKey(ctx context.Context, organizationID uuid.UUID, fiscalKey string) (bool, error) {
	args := m.Called(ctx, organizationID, fiscalKey)
	return args.Bool(0), args.Error(1)
}

func (m *MockFiscalDocumentRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter fiscal.FiscalDocumentFilter) ([]fiscal.FiscalDocument, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).([]fiscal.FiscalDocument), args.Error(1)
}

func (m *MockFiscalDocumentRepository) FindPendingAccounting(ctx context.Context, organizationID uuid.UUID, filter fiscal.FiscalDocumentFilter) ([]fiscal.FiscalDocument, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).([]fiscal.FiscalDocument), args.Error(1)
}

func (m *MockFiscalDocumentRepository) Save(ctx context.Context, doc *fiscal.FiscalDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockFiscalDocumentRepository) SaveWithLock(ctx context.Context, doc *fiscal.FiscalDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockFiscalDocumentRepository) DeleteForOrg(ctx context.Context, organizationID, id uuid.UUID) error {
	args := m.Called(ctx, organizationID, id)
	return args.Error(0)
}

func (m *MockFiscalDocumentRepository) CountForOrg(ctx context.Context, organizationID uuid.UUID, filter fiscal.FiscalDocumentFilter) (int64, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockJournalEntryRepository is a mock implementation of accounting.JournalEntryRepository
type MockJournalEntryRepository struct {
	mock.Mock
}

func (m *MockJournalEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domainaccounting.JournalEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainaccounting.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*domainaccounting.JournalEntry, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainaccounting.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindBySourceDocument(ctx context.Context, organizationID, documentID uuid.UUID) ([]domainaccounting.JournalEntry, error) {
	args := m.Called(ctx, organizationID, documentID)
	return args.Get(0).([]domainaccounting.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter domainaccounting.JournalEntryFilter) ([]domainaccounting.JournalEntry, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).([]domainaccounting.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) NextEntryNumber(ctx context.Context, organizationID, branchID uuid.UUID) (string, error) {
	args := m.Called(ctx, organizationID, branchID)
	return args.String(0), args.Error(1)
}

func (m *MockJournalEntryRepository) Save(ctx context.Context, entry *domainaccounting.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockJournalEntryRepository) SaveWithLock(ctx context.Context, entry *domainaccounting.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockJournalEntryRepository) CountForOrg(ctx context.Context, organizationID uuid.UUID, filter domainaccounting.JournalEntryFilter) (int64, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockAccountRepository is a mock implementation of accounting.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*domainaccounting.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainaccounting.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*domainaccounting.Account, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainaccounting.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByCode(ctx context.Context, organizationID uuid.UUID, code string) (*domainaccounting.Account, error) {
	args := m.Called(ctx, organizationID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainaccounting.Account), args.Error(1)
}

func (m *MockAccountRepository) FindFirstAnalyticalByPrefix(ctx context.Context, organizationID uuid.UUID, prefix string) (*domainaccounting.Account, error) {
	args := m.Called(ctx, organizationID, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainaccounting.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAnalyticalSiblings(ctx context.Context, organizationID uuid.UUID, parentCode string, limit int) ([]domainaccounting.Account, error) {
	args := m.Called(ctx, organizationID, parentCode, limit)
	return args.Get(0).([]domainaccounting.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, pagination shared.Pagination) ([]domainaccounting.Account, error) {
	args := m.Called(ctx, organizationID, pagination)
	return args.Get(0).([]domainaccounting.Account), args.Error(1)
}

func (m *MockAccountRepository) CountForOrg(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, organizationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) Save(ctx context.Context, account *domainaccounting.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// ===================== Helpers =====================

const (
	testIssuerCNPJ = "11222333000181"
	testNFeKey     = "35230111222333000181550010000000011123456786"
)

type engineFixture struct {
	service  *EngineService
	docRepo  *MockFiscalDocumentRepository
	entries  *MockJournalEntryRepository
	accounts *MockAccountRepository
	orgID    uuid.UUID
	branchID uuid.UUID
}

func newEngineFixture(t *testing.T) *engineFixture {
	docRepo := new(MockFiscalDocumentRepository)
	entries := new(MockJournalEntryRepository)
	accounts := new(MockAccountRepository)
	scope := NewNoOpTransactionScope(docRepo, entries, accounts)

	return &engineFixture{
		service:  NewEngineService(scope, zap.NewNop()),
		docRepo:  docRepo,
		entries:  entries,
		accounts: accounts,
		orgID:    uuid.New(),
		branchID: uuid.New(),
	}
}

func (f *engineFixture) authorizedPurchaseDocument(t *testing.T, itemAccounts ...*domainaccounting.Account) *fiscal.FiscalDocument {
	doc, err := fiscal.NewFiscalDocument(
		f.orgID, f.branchID,
		fiscal.DocumentTypeNFe, "1", "123",
		testIssuerCNPJ, "Fornecedor ABC Ltda",
		time.Now(), testNFeKey,
		valueobject.NewMoneyBRLFromFloat(1000.00),
	)
	require.NoError(t, err)
	doc.SetRole(fiscal.RolePurchase)

	cfop, err := valueobject.NewCFOP("1102")
	require.NoError(t, err)
	for i, account := range itemAccounts {
		item, err := doc.AddItem("PROD", "Item de compra", "", cfop, "UN",
			decimal.NewFromInt(int64(i+1)), valueobject.NewMoneyBRLFromFloat(100.00))
		require.NoError(t, err)
		if account != nil {
			require.NoError(t, doc.CategorizeItem(item.ID, account.ID))
		}
	}

	require.NoError(t, doc.Submit())
	require.NoError(t, doc.Authorize("135230000012345"))
	return doc
}

func analyticalAccount(t *testing.T, orgID uuid.UUID, code string) *domainaccounting.Account {
	account, err := domainaccounting.NewAccount(orgID, code, "Conta "+code, domainaccounting.AccountTypeExpense, true, "")
	require.NoError(t, err)
	return account
}

func syntheticAccount(t *testing.T, orgID uuid.UUID, code string) *domainaccounting.Account {
	account, err := domainaccounting.NewAccount(orgID, code, "Conta "+code, domainaccounting.AccountTypeExpense, false, "")
	require.NoError(t, err)
	return account
}

// ===================== GenerateJournalEntry Tests =====================

func TestEngineService_GenerateJournalEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("posts a balanced entry for a purchase document", func(t *testing.T) {
		f := newEngineFixture(t)
		expenseA := analyticalAccount(t, f.orgID, "4.1.01.01")
		expenseB := analyticalAccount(t, f.orgID, "4.1.01.02")
		payable := analyticalAccount(t, f.orgID, "2.1.01.01")
		doc := f.authorizedPurchaseDocument(t, expenseA, expenseB)

		f.docRepo.On("FindByIDForOrg", ctx, f.orgID, doc.ID).Return(doc, nil)
		f.entries.On("NextEntryNumber", ctx, f.orgID, f.branchID).Return("JE-2026-000001", nil)
		f.accounts.On("FindByIDForOrg", ctx, f.orgID, expenseA.ID).Return(expenseA, nil)
		f.accounts.On("FindByIDForOrg", ctx, f.orgID, expenseB.ID).Return(expenseB, nil)
		f.accounts.On("FindFirstAnalyticalByPrefix", ctx, f.orgID, "2.1.01").Return(payable, nil)
		f.entries.On("Save", ctx, mock.AnythingOfType("*accounting.JournalEntry")).Return(nil)
		f.docRepo.On("SaveWithLock", ctx, doc).Return(nil)

		response, err := f.service.GenerateJournalEntry(ctx, f.orgID, f.branchID, doc.ID, nil)
		require.NoError(t, err)

		assert.Equal(t, "JE-2026-000001", response.EntryNumber)
		assert.Equal(t, "POSTED", response.Status)
		assert.Equal(t, string(domainaccounting.EntrySourceFiscalDocument), response.Source)
		assert.Equal(t, doc.ID, *response.SourceDocumentID)
		// items: 1x100 + 2x100 debit, one balancing credit
		require.Len(t, response.Lines, 3)
		assert.Equal(t, "300.00", response.TotalDebits)
		assert.Equal(t, response.TotalDebits, response.TotalCredits)
		assert.Equal(t, "2.1.01.01", response.Lines[2].AccountCode)
		assert.Equal(t, "CREDIT", response.Lines[2].Type)

		assert.Equal(t, fiscal.AccountingStatusPosted, doc.AccountingStatus)
		assert.NotNil(t, doc.JournalEntryID)
		f.docRepo.AssertCalled(t, "SaveWithLock", ctx, doc)
	})

	t.Run("credits receivable for non-purchase documents", func(t *testing.T) {
		f := newEngineFixture(t)
		expense := analyticalAccount(t, f.orgID, "4.1.01.01")
		receivable := analyticalAccount(t, f.orgID, "1.1.01.01")
		doc := f.authorizedPurchaseDocument(t, expense)
		doc.SetRole(fiscal.RoleOther)

		f.docRepo.On("FindByIDForOrg", ctx, f.orgID, doc.ID).Return(doc, nil)
		f.entries.On("NextEntryNumber", ctx, f.orgID, f.branchID).Return("JE-2026-000001", nil)
		f.accounts.On("FindByIDForOrg", ctx, f.orgID, expense.ID).Return(expense, nil)
		f.accounts.On("FindFirstAnalyticalByPrefix", ctx, f.orgID, "1.1.01").Return(receivable, nil)
		f.entries.On("Save", ctx, mock.Anything).Return(nil)
		f.docRepo.On("SaveWithLock", ctx, doc).Return(nil)

		response, err := f.service.GenerateJournalEntry(ctx, f.orgID, f.branchID, doc.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, "1.1.01.01", response.Lines[len(response.Lines)-1].AccountCode)
	})

	t.Run("fails when the document does not exist", func(t *testing.T) {
		f := newEngineFixture(t)
		docID := uuid.New()
		f.docRepo.On("FindByIDForOrg", ctx, f.orgID, docID).Return(nil, nil)

		_, err := f.service.GenerateJournalEntry(ctx, f.orgID, f.branchID, docID, nil)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})

	t.Run("fails when the document was already posted", func(t *testing.T) {
		f := newEngineFixture(t)
		expense := analyticalAccount(t, f.orgID, "4.1.01.01")
		doc := f.authorizedPurchaseDocument(t, expense)
		require.NoError(t, doc.MarkPosted(uuid.New()))

		f.docRepo.On("FindByIDForOrg", ctx, f.orgID, doc.ID).Return(doc, nil)

		_, err := f.service.GenerateJournalEntry(ctx, f.orgID, f.branchID, doc.ID, nil)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_POSTED", domainErr.Code)
		f.entries.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("fails without categorized items", func(t *testing.T) {
		f := newEngineFixture(t)
		doc := f.authorizedPurchaseDocument(t, (*domainaccounting.Account)(nil))

		f.docRepo.On("FindByIDForOrg", ctx, f.orgID, doc.ID).Return(doc, nil)

		_, err := f.service.GenerateJournalEntry(ctx, f.orgID, f.branchID, doc.ID, nil)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NO_CATEGORIZED_ITEMS", domainErr.Code)
	})

	t.Run("rejects synthetic accounts and lists analytical children", func(t *testing.T) {
		f := newEngineFixture(t)
		synthetic := syntheticAccount(t, f.orgID, "4.1.01")
		doc := f.authorizedPurchaseDocument(t, synthetic)

		f.docRepo.On("FindByIDForOrg", ctx, f.orgID, doc.ID).Return(doc, nil)
		f.entries.On("NextEntryNumber", ctx, f.orgID, f.branchID).Return("JE-2026-000001", nil)
		f.accounts.On("FindByIDForOrg", ctx, f.orgID, synthetic.ID).Return(synthetic, nil)
		f.accounts.On("FindAnalyticalSiblings", ctx, f.orgID, "4.1.01", 5).Return([]domainaccounting.Account{
			*analyticalAccount(t, f.orgID, "4.1.01.01"),
			*analyticalAccount(t, f.orgID, "4.1.01.02"),
		}, nil)

		_, err := f.service.GenerateJournalEntry(ctx, f.orgID, f.branchID, doc.ID, nil)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NON_ANALYTICAL_ACCOUNT", domainErr.Code)
		assert.Contains(t, err.Error(), "4.1.01.01")
		assert.Contains(t, err.Error(), "4.1.01.02")
		f.entries.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("fails when no counter account exists under the prefix", func(t *testing.T) {
		f := newEngineFixture(t)
		expense := analyticalAccount(t, f.orgID, "4.1.01.01")
		doc := f.authorizedPurchaseDocument(t, expense)

		f.docRepo.On("FindByIDForOrg", ctx, f.orgID, doc.ID).Return(doc, nil)
		f.entries.On("NextEntryNumber", ctx, f.orgID, f.branchID).Return("JE-2026-000001", nil)
		f.accounts.On("FindByIDForOrg", ctx, f.orgID, expense.ID).Return(expense, nil)
		f.accounts.On("FindFirstAnalyticalByPrefix", ctx, f.orgID, "2.1.01").Return(nil, nil)

		_, err := f.service.GenerateJournalEntry(ctx, f.orgID, f.branchID, doc.ID, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2.1.01")
	})
}

// ===================== ReverseJournalEntry Tests =====================

func TestEngineService_ReverseJournalEntry(t *testing.T) {
	ctx := context.Background()

	newPostedEntry := func(t *testing.T, f *engineFixture, docID uuid.UUID) *domainaccounting.JournalEntry {
		entry, err := domainaccounting.NewJournalEntry(f.orgID, f.branchID, "JE-2026-000001",
			time.Now(), "Lançamento original", domainaccounting.EntrySourceFiscalDocument)
		require.NoError(t, err)
		entry.SetSourceDocument(docID)
		require.NoError(t, entry.AddLine(uuid.New(), "4.1.01.01", domainaccounting.EntryLineDebit,
			valueobject.NewMoneyBRLFromFloat(300), ""))
		require.NoError(t, entry.AddLine(uuid.New(), "2.1.01.01", domainaccounting.EntryLineCredit,
			valueobject.NewMoneyBRLFromFloat(300), ""))
		require.NoError(t, entry.Post())
		return entry
	}

	t.Run("reverses the entry and reopens the document", func(t *testing.T) {
		f := newEngineFixture(t)
		expense := analyticalAccount(t, f.orgID, "4.1.01.01")
		doc := f.authorizedPurchaseDocument(t, expense)
		entry := newPostedEntry(t, f, doc.ID)
		require.NoError(t, doc.MarkPosted(entry.ID))

		f.entries.On("FindByIDForOrg", ctx, f.orgID, entry.ID).Return(entry, nil)
		f.entries.On("NextEntryNumber", ctx, f.orgID, f.branchID).Return("JE-2026-000002", nil)
		f.entries.On("Save", ctx, mock.Anything).Return(nil)
		f.entries.On("SaveWithLock", ctx, entry).Return(nil)
		f.docRepo.On("FindByIDForOrg", ctx, f.orgID, doc.ID).Return(doc, nil)
		f.docRepo.On("SaveWithLock", ctx, doc).Return(nil)

		response, err := f.service.ReverseJournalEntry(ctx, f.orgID, f.branchID, entry.ID, nil)
		require.NoError(t, err)

		assert.Equal(t, "JE-2026-000002", response.EntryNumber)
		assert.Equal(t, string(domainaccounting.EntrySourceReversal), response.Source)
		assert.Equal(t, entry.ID, *response.ReversedEntryID)
		assert.Equal(t, "POSTED", response.Status)
		assert.Equal(t, "DEBIT", response.Lines[1].Type) // inverted credit

		assert.Equal(t, domainaccounting.EntryStatusReversed, entry.Status)
		assert.Equal(t, fiscal.AccountingStatusPending, doc.AccountingStatus)
		assert.Nil(t, doc.JournalEntryID)
	})

	t.Run("fails for a missing entry", func(t *testing.T) {
		f := newEngineFixture(t)
		entryID := uuid.New()
		f.entries.On("FindByIDForOrg", ctx, f.orgID, entryID).Return(nil, nil)

		_, err := f.service.ReverseJournalEntry(ctx, f.orgID, f.branchID, entryID, nil)
		require.Error(t, err)
	})

	t.Run("fails for a draft entry", func(t *testing.T) {
		f := newEngineFixture(t)
		entry, err := domainaccounting.NewJournalEntry(f.orgID, f.branchID, "JE-1",
			time.Now(), "Rascunho", domainaccounting.EntrySourceManual)
		require.NoError(t, err)

		f.entries.On("FindByIDForOrg", ctx, f.orgID, entry.ID).Return(entry, nil)
		f.entries.On("NextEntryNumber", ctx, f.orgID, f.branchID).Return("JE-2", nil)

		_, err = f.service.ReverseJournalEntry(ctx, f.orgID, f.branchID, entry.ID, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot reverse a DRAFT entry")
	})

	t.Run("reversing twice fails", func(t *testing.T) {
		f := newEngineFixture(t)
		entry := newPostedEntry(t, f, uuid.New())
		_, err := entry.CreateReversal("JE-X", "Primeiro estorno", time.Now())
		require.NoError(t, err)

		f.entries.On("FindByIDForOrg", ctx, f.orgID, entry.ID).Return(entry, nil)
		f.entries.On("NextEntryNumber", ctx, f.orgID, f.branchID).Return("JE-3", nil)

		_, err = f.service.ReverseJournalEntry(ctx, f.orgID, f.branchID, entry.ID, nil)
		require.Error(t, err)
	})
}
