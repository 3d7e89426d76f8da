package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appfiscal "github.com/fiscaltms/backend/internal/application/fiscal"
	"github.com/fiscaltms/backend/internal/domain/fiscal"
	"github.com/fiscaltms/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPrestadorCNPJ = "11222333000181"

// MockNFSeRepository mocks the service invoice repository
type MockNFSeRepository struct {
	mock.Mock
}

func (m *MockNFSeRepository) FindByID(ctx context.Context, id uuid.UUID) (*fiscal.NFSeDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.NFSeDocument), args.Error(1)
}

func (m *MockNFSeRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*fiscal.NFSeDocument, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.NFSeDocument), args.Error(1)
}

func (m *MockNFSeRepository) FindByRPSNumber(ctx context.Context, organizationID, branchID uuid.UUID, rpsNumber string) (*fiscal.NFSeDocument, error) {
	args := m.Called(ctx, organizationID, branchID, rpsNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.NFSeDocument), args.Error(1)
}

func (m *MockNFSeRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter fiscal.NFSeDocumentFilter) ([]fiscal.NFSeDocument, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).([]fiscal.NFSeDocument), args.Error(1)
}

func (m *MockNFSeRepository) Save(ctx context.Context, doc *fiscal.NFSeDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockNFSeRepository) SaveWithLock(ctx context.Context, doc *fiscal.NFSeDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockNFSeRepository) CountForOrg(ctx context.Context, organizationID uuid.UUID, filter fiscal.NFSeDocumentFilter) (int64, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).(int64), args.Error(1)
}

var _ fiscal.NFSeDocumentRepository = (*MockNFSeRepository)(nil)

func newNFSeFixture(t *testing.T, orgID, branchID uuid.UUID) *fiscal.NFSeDocument {
	t.Helper()
	doc, err := fiscal.NewNFSeDocument(
		orgID, branchID,
		"RPS-100",
		testPrestadorCNPJ, "Transportadora Ipiranga Ltda",
		"", "",
		"16.02", "Frete rodoviario de carga",
		valueobject.NewMoneyBRL(decimal.NewFromInt(1500)),
		decimal.NewFromFloat(5),
		false,
		time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return doc
}

func TestNFSeHandler_CreateNFSe(t *testing.T) {
	orgID, branchID, userID := uuid.New(), uuid.New(), uuid.New()

	createBody := func() []byte {
		body, _ := json.Marshal(map[string]any{
			"rps_number":          "RPS-100",
			"prestador_cnpj":      testPrestadorCNPJ,
			"prestador_name":      "Transportadora Ipiranga Ltda",
			"service_code":        "16.02",
			"service_description": "Frete rodoviario de carga",
			"service_value":       "1500.00",
			"iss_rate":            "5",
			"issue_date":          "2026-02-10T00:00:00Z",
		})
		return body
	}

	t.Run("creates invoice and returns 201", func(t *testing.T) {
		repo := new(MockNFSeRepository)
		repo.On("FindByRPSNumber", mock.Anything, orgID, branchID, "RPS-100").Return(nil, nil)
		repo.On("Save", mock.Anything, mock.AnythingOfType("*fiscal.NFSeDocument")).Return(nil)

		engine := newTestEngine(NewNFSeHandler(appfiscal.NewNFSeService(repo, zap.NewNop())), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/nfse", bytes.NewReader(createBody()))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"rps_number":"RPS-100"`)
		assert.Contains(t, w.Body.String(), `"status":"DRAFT"`)
		repo.AssertExpectations(t)
	})

	t.Run("returns 409 for duplicate RPS number", func(t *testing.T) {
		repo := new(MockNFSeRepository)
		existing := newNFSeFixture(t, orgID, branchID)
		repo.On("FindByRPSNumber", mock.Anything, orgID, branchID, "RPS-100").Return(existing, nil)

		engine := newTestEngine(NewNFSeHandler(appfiscal.NewNFSeService(repo, zap.NewNop())), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/nfse", bytes.NewReader(createBody()))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_ALREADY_EXISTS")
	})

	t.Run("returns 400 for missing required fields", func(t *testing.T) {
		repo := new(MockNFSeRepository)
		engine := newTestEngine(NewNFSeHandler(appfiscal.NewNFSeService(repo, zap.NewNop())), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/nfse", bytes.NewReader([]byte(`{"rps_number":"RPS-1"}`)))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_INVALID_JSON")
	})
}

func TestNFSeHandler_GetNFSe(t *testing.T) {
	orgID, branchID, userID := uuid.New(), uuid.New(), uuid.New()

	t.Run("returns 404 for unknown invoice", func(t *testing.T) {
		repo := new(MockNFSeRepository)
		id := uuid.New()
		repo.On("FindByIDForOrg", mock.Anything, orgID, id).Return(nil, nil)

		engine := newTestEngine(NewNFSeHandler(appfiscal.NewNFSeService(repo, zap.NewNop())), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/nfse/"+id.String(), nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("returns 400 for malformed id", func(t *testing.T) {
		repo := new(MockNFSeRepository)
		engine := newTestEngine(NewNFSeHandler(appfiscal.NewNFSeService(repo, zap.NewNop())), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/nfse/not-a-uuid", nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestNFSeHandler_ListNFSe(t *testing.T) {
	orgID, branchID, userID := uuid.New(), uuid.New(), uuid.New()

	t.Run("returns invoices with pagination meta", func(t *testing.T) {
		repo := new(MockNFSeRepository)
		doc := newNFSeFixture(t, orgID, branchID)
		repo.On("FindAllForOrg", mock.Anything, orgID, mock.AnythingOfType("fiscal.NFSeDocumentFilter")).
			Return([]fiscal.NFSeDocument{*doc}, nil)
		repo.On("CountForOrg", mock.Anything, orgID, mock.AnythingOfType("fiscal.NFSeDocumentFilter")).
			Return(int64(1), nil)

		engine := newTestEngine(NewNFSeHandler(appfiscal.NewNFSeService(repo, zap.NewNop())), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/nfse?page=1&page_size=10", nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total":1`)
		assert.Contains(t, w.Body.String(), `"page_size":10`)
	})

	t.Run("rejects malformed branch filter", func(t *testing.T) {
		repo := new(MockNFSeRepository)
		engine := newTestEngine(NewNFSeHandler(appfiscal.NewNFSeService(repo, zap.NewNop())), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/nfse?branch_id=nope", nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestNFSeHandler_Workflow(t *testing.T) {
	orgID, branchID, userID := uuid.New(), uuid.New(), uuid.New()

	t.Run("submit moves a draft to PENDING", func(t *testing.T) {
		repo := new(MockNFSeRepository)
		doc := newNFSeFixture(t, orgID, branchID)
		repo.On("FindByIDForOrg", mock.Anything, orgID, doc.ID).Return(doc, nil)
		repo.On("SaveWithLock", mock.Anything, doc).Return(nil)

		engine := newTestEngine(NewNFSeHandler(appfiscal.NewNFSeService(repo, zap.NewNop())), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/nfse/%s/submit", doc.ID), nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"PENDING"`)
	})

	t.Run("cancel without reason is rejected", func(t *testing.T) {
		repo := new(MockNFSeRepository)
		doc := newNFSeFixture(t, orgID, branchID)

		engine := newTestEngine(NewNFSeHandler(appfiscal.NewNFSeService(repo, zap.NewNop())), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/nfse/%s/cancel", doc.ID), bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("authorize on a draft returns 422", func(t *testing.T) {
		repo := new(MockNFSeRepository)
		doc := newNFSeFixture(t, orgID, branchID)
		repo.On("FindByIDForOrg", mock.Anything, orgID, doc.ID).Return(doc, nil)

		engine := newTestEngine(NewNFSeHandler(appfiscal.NewNFSeService(repo, zap.NewNop())), orgID, branchID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/nfse/%s/authorize", doc.ID),
			bytes.NewReader([]byte(`{"verification_code":"ABC123"}`)))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_INVALID_STATE")
	})
}
