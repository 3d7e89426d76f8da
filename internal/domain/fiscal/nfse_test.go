package fiscal

import (
	"testing"
	"time"

	"github.com/fiscaltms/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers
func createTestNFSe(t *testing.T, issRetained bool) *NFSeDocument {
	doc, err := NewNFSeDocument(
		uuid.New(),
		uuid.New(),
		"RPS-0001",
		"11444777000161",
		"Transportes Beta Ltda",
		"12.345.678/0001-95",
		"Cliente Gama SA",
		"16.02",
		"Transporte rodoviário de carga intermunicipal",
		valueobject.NewMoneyBRLFromFloat(2000.00),
		decimal.NewFromFloat(5),
		issRetained,
		time.Now(),
	)
	require.NoError(t, err)
	return doc
}

func createAuthorizedNFSe(t *testing.T) *NFSeDocument {
	doc := createTestNFSe(t, false)
	require.NoError(t, doc.Submit())
	require.NoError(t, doc.Authorize("VRF-9F2A"))
	return doc
}

// ============================================
// NewNFSeDocument Tests
// ============================================

func TestNewNFSeDocument(t *testing.T) {
	t.Run("creates invoice and computes ISS", func(t *testing.T) {
		doc := createTestNFSe(t, false)
		assert.Equal(t, NFSeStatusDraft, doc.Status)
		assert.Equal(t, "11444777000161", doc.PrestadorCNPJ)
		assert.Equal(t, "12345678000195", doc.TomadorCNPJCPF)
		assert.True(t, doc.ISSValue.Equal(decimal.NewFromInt(100)))
		assert.True(t, doc.ValorLiquido.Equal(decimal.NewFromInt(2000)))
		assert.NotEmpty(t, doc.GetDomainEvents())
	})

	t.Run("deducts retained ISS from the net value", func(t *testing.T) {
		doc := createTestNFSe(t, true)
		assert.True(t, doc.ISSRetained)
		assert.True(t, doc.ValorLiquido.Equal(decimal.NewFromInt(1900)))
	})

	t.Run("fails with empty RPS number", func(t *testing.T) {
		_, err := NewNFSeDocument(uuid.New(), uuid.New(), "", "11444777000161", "Prestador",
			"", "", "16.02", "Serviço", valueobject.NewMoneyBRLFromFloat(100),
			decimal.NewFromInt(5), false, time.Now())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RPS number is required")
	})

	t.Run("fails with invalid provider CNPJ", func(t *testing.T) {
		_, err := NewNFSeDocument(uuid.New(), uuid.New(), "RPS-1", "11444777000199", "Prestador",
			"", "", "16.02", "Serviço", valueobject.NewMoneyBRLFromFloat(100),
			decimal.NewFromInt(5), false, time.Now())
		require.Error(t, err)
	})

	t.Run("fails with non-positive service value", func(t *testing.T) {
		_, err := NewNFSeDocument(uuid.New(), uuid.New(), "RPS-1", "11444777000161", "Prestador",
			"", "", "16.02", "Serviço", valueobject.ZeroBRL(),
			decimal.NewFromInt(5), false, time.Now())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be positive")
	})

	t.Run("fails with ISS rate above 100", func(t *testing.T) {
		_, err := NewNFSeDocument(uuid.New(), uuid.New(), "RPS-1", "11444777000161", "Prestador",
			"", "", "16.02", "Serviço", valueobject.NewMoneyBRLFromFloat(100),
			decimal.NewFromInt(101), false, time.Now())
		require.Error(t, err)
	})
}

// ============================================
// Lifecycle Tests
// ============================================

func TestNFSeDocument_Lifecycle(t *testing.T) {
	t.Run("submit moves draft to pending", func(t *testing.T) {
		doc := createTestNFSe(t, false)
		require.NoError(t, doc.Submit())
		assert.Equal(t, NFSeStatusPending, doc.Status)
	})

	t.Run("submit fails when already pending", func(t *testing.T) {
		doc := createTestNFSe(t, false)
		require.NoError(t, doc.Submit())
		require.Error(t, doc.Submit())
	})

	t.Run("authorize requires pending", func(t *testing.T) {
		doc := createTestNFSe(t, false)
		err := doc.Authorize("VRF-9F2A")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot authorize a DRAFT service invoice")
	})

	t.Run("authorize records the verification code", func(t *testing.T) {
		doc := createTestNFSe(t, false)
		require.NoError(t, doc.Submit())
		require.NoError(t, doc.Authorize("VRF-9F2A"))
		assert.Equal(t, NFSeStatusAuthorized, doc.Status)
		assert.Equal(t, "VRF-9F2A", doc.VerificationCode)
		assert.NotNil(t, doc.AuthorizedAt)
	})

	t.Run("authorize fails without verification code", func(t *testing.T) {
		doc := createTestNFSe(t, false)
		require.NoError(t, doc.Submit())
		require.Error(t, doc.Authorize(""))
	})

	t.Run("cancel requires authorized", func(t *testing.T) {
		doc := createTestNFSe(t, false)
		err := doc.Cancel("Serviço não foi prestado ao tomador")
		require.Error(t, err)
	})

	t.Run("cancel with justified reason", func(t *testing.T) {
		doc := createAuthorizedNFSe(t)
		require.NoError(t, doc.Cancel("Serviço não foi prestado ao tomador"))
		assert.Equal(t, NFSeStatusCancelled, doc.Status)
		assert.NotNil(t, doc.CancelledAt)
	})

	t.Run("cancel rejects short reason", func(t *testing.T) {
		doc := createAuthorizedNFSe(t)
		err := doc.Cancel("erro")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 15 characters")
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		doc := createAuthorizedNFSe(t)
		require.NoError(t, doc.Cancel("Serviço não foi prestado ao tomador"))
		require.Error(t, doc.Submit())
		require.Error(t, doc.Authorize("VRF-0000"))
		require.Error(t, doc.Cancel("Segunda tentativa de cancelamento"))
	})
}

func TestNFSeDocument_MoneyAccessors(t *testing.T) {
	doc := createTestNFSe(t, true)
	assert.True(t, doc.ServiceValueMoney().Amount().Equal(decimal.NewFromInt(2000)))
	assert.True(t, doc.ISSValueMoney().Amount().Equal(decimal.NewFromInt(100)))
	assert.True(t, doc.ValorLiquidoMoney().Amount().Equal(decimal.NewFromInt(1900)))
	assert.Equal(t, valueobject.BRL, doc.ServiceValueMoney().Currency())
}
