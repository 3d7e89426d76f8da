package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appfiscal "github.com/fiscaltms/backend/internal/application/fiscal"
	"github.com/fiscaltms/backend/internal/domain/fiscal"
	"github.com/fiscaltms/backend/internal/infrastructure/cache"
	"github.com/fiscaltms/backend/internal/infrastructure/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testIssuerCNPJ = "11222333000181"
	testBranchCNPJ = "11444777000161"
	testNFeKey     = "35230111222333000181550010000000011123456786"
)

// MockFiscalDocumentRepository mocks the fiscal document repository
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

var _ fiscal.FiscalDocumentRepository = (*MockFiscalDocumentRepository)(nil)

// MockNFeParser mocks the NFe XML parser port
type MockNFeParser struct {
	mock.Mock
}

func (m *MockNFeParser) Parse(data []byte) (*fiscal.NFeSummary, error) {
	args := m.Called(data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.NFeSummary), args.Error(1)
}

var _ appfiscal.NFeParser = (*MockNFeParser)(nil)

func newDocumentService(repo *MockFiscalDocumentRepository, parser *MockNFeParser) *appfiscal.DocumentService {
	return appfiscal.NewDocumentService(
		repo,
		fiscal.NewNFeClassifier(),
		fiscal.NewTaxCreditCalculator(),
		fiscal.NewIBSCalculator(),
		parser,
		cache.NewInMemoryIdempotencyStore(),
		storage.NewStubXMLArchive(""),
		zap.NewNop(),
	)
}

func purchaseSummary() *fiscal.NFeSummary {
	return &fiscal.NFeSummary{
		FiscalKey: testNFeKey,
		Series:    "1",
		Number:    "123",
		IssueDate: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		Issuer:    fiscal.NFeParty{CNPJ: testIssuerCNPJ, Name: "Auto Pecas Alvorada Ltda", UF: "SP"},
		Recipient: fiscal.NFeParty{CNPJ: testBranchCNPJ, Name: "Transportes Serra Azul SA", UF: "MG"},
		Items: []fiscal.NFeItem{
			{
				ProductCode: "PN-500",
				Description: "Pastilha de freio",
				NCM:         "87083090",
				CFOP:        "1102",
				Unit:        "UN",
				Quantity:    decimal.NewFromInt(10),
				UnitPrice:   decimal.NewFromInt(100),
			},
		},
		Total:    decimal.NewFromInt(1000),
		Protocol: "135230000012345",
	}
}

func TestFiscalDocumentHandler_ImportNFe(t *testing.T) {
	orgID, branchID, userID := uuid.New(), uuid.New(), uuid.New()
	xmlBody := []byte("<nfeProc>...</nfeProc>")

	t.Run("imports an authorized purchase NFe", func(t *testing.T) {
		repo := new(MockFiscalDocumentRepository)
		parser := new(MockNFeParser)
		parser.On("Parse", xmlBody).Return(purchaseSummary(), nil)
		repo.On("ExistsByFiscalKey", mock.Anything, orgID, testNFeKey).Return(false, nil)
		repo.On("Save", mock.Anything, mock.AnythingOfType("*fiscal.FiscalDocument")).Return(nil)

		engine := newTestEngine(NewFiscalDocumentHandler(newDocumentService(repo, parser)), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost,
			"/api/v1/fiscal-documents/import?branch_cnpj="+testBranchCNPJ, bytes.NewReader(xmlBody))
		req.Header.Set("Content-Type", "application/xml")
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"fiscal_key":"`+testNFeKey+`"`)
		assert.Contains(t, w.Body.String(), `"role":"PURCHASE"`)
		assert.Contains(t, w.Body.String(), `"status":"AUTHORIZED"`)
		repo.AssertExpectations(t)
	})

	t.Run("rejects duplicate fiscal key with 409", func(t *testing.T) {
		repo := new(MockFiscalDocumentRepository)
		parser := new(MockNFeParser)
		parser.On("Parse", xmlBody).Return(purchaseSummary(), nil)
		repo.On("ExistsByFiscalKey", mock.Anything, orgID, testNFeKey).Return(true, nil)

		engine := newTestEngine(NewFiscalDocumentHandler(newDocumentService(repo, parser)), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost,
			"/api/v1/fiscal-documents/import?branch_cnpj="+testBranchCNPJ, bytes.NewReader(xmlBody))
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_ALREADY_EXISTS")
	})

	t.Run("rejects unparseable XML with 400", func(t *testing.T) {
		repo := new(MockFiscalDocumentRepository)
		parser := new(MockNFeParser)
		parser.On("Parse", mock.Anything).Return(nil, fmt.Errorf("unsupported document root \"html\""))

		engine := newTestEngine(NewFiscalDocumentHandler(newDocumentService(repo, parser)), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost,
			"/api/v1/fiscal-documents/import?branch_cnpj="+testBranchCNPJ, bytes.NewReader([]byte("<html/>")))
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_INVALID_XML")
	})

	t.Run("requires branch_cnpj query parameter", func(t *testing.T) {
		repo := new(MockFiscalDocumentRepository)
		parser := new(MockNFeParser)
		engine := newTestEngine(NewFiscalDocumentHandler(newDocumentService(repo, parser)), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/fiscal-documents/import", bytes.NewReader(xmlBody))
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFiscalDocumentHandler_GetDocument(t *testing.T) {
	orgID, branchID, userID := uuid.New(), uuid.New(), uuid.New()

	t.Run("returns 404 for unknown document", func(t *testing.T) {
		repo := new(MockFiscalDocumentRepository)
		parser := new(MockNFeParser)
		id := uuid.New()
		repo.On("FindByIDForOrg", mock.Anything, orgID, id).Return(nil, nil)

		engine := newTestEngine(NewFiscalDocumentHandler(newDocumentService(repo, parser)), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/fiscal-documents/"+id.String(), nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestFiscalDocumentHandler_ListDocuments(t *testing.T) {
	orgID, branchID, userID := uuid.New(), uuid.New(), uuid.New()

	t.Run("passes filters through and returns meta", func(t *testing.T) {
		repo := new(MockFiscalDocumentRepository)
		parser := new(MockNFeParser)
		repo.On("FindAllForOrg", mock.Anything, orgID, mock.MatchedBy(func(f fiscal.FiscalDocumentFilter) bool {
			return f.Role != nil && *f.Role == fiscal.RolePurchase && f.Page == 2
		})).Return([]fiscal.FiscalDocument{}, nil)
		repo.On("CountForOrg", mock.Anything, orgID, mock.AnythingOfType("fiscal.FiscalDocumentFilter")).
			Return(int64(0), nil)

		engine := newTestEngine(NewFiscalDocumentHandler(newDocumentService(repo, parser)), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/fiscal-documents?role=PURCHASE&page=2", nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"page":2`)
		repo.AssertExpectations(t)
	})

	t.Run("rejects malformed issue_date_from", func(t *testing.T) {
		repo := new(MockFiscalDocumentRepository)
		parser := new(MockNFeParser)
		engine := newTestEngine(NewFiscalDocumentHandler(newDocumentService(repo, parser)), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/fiscal-documents?issue_date_from=15-01-2026", nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFiscalDocumentHandler_CalculateIBS(t *testing.T) {
	orgID, branchID, userID := uuid.New(), uuid.New(), uuid.New()

	t.Run("computes the 2026 test-rate split", func(t *testing.T) {
		repo := new(MockFiscalDocumentRepository)
		parser := new(MockNFeParser)
		engine := newTestEngine(NewFiscalDocumentHandler(newDocumentService(repo, parser)), orgID, branchID, userID)

		body := []byte(`{"base_value":"10000","year":2026,"uf_code":"35"}`)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tax/ibs", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"ibs_uf_value":"5.00"`)
		assert.Contains(t, w.Body.String(), `"ibs_mun_value":"5.00"`)
		assert.Contains(t, w.Body.String(), `"total_ibs":"10.00"`)
	})

	t.Run("rejects a request without year or rates", func(t *testing.T) {
		repo := new(MockFiscalDocumentRepository)
		parser := new(MockNFeParser)
		engine := newTestEngine(NewFiscalDocumentHandler(newDocumentService(repo, parser)), orgID, branchID, userID)

		body := []byte(`{"base_value":"10000","uf_code":"35"}`)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tax/ibs", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_INVALID_INPUT")
	})
}
