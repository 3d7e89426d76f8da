package valueobject

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validNFeKey is a structurally valid NFe access key (model 55) built
// from UF 35, period 2301, issuer CNPJ 11222333000181.
const validNFeKey = "35230111222333000181550010000000011123456786"

func TestNewFiscalKey(t *testing.T) {
	t.Run("accepts valid 44-digit key", func(t *testing.T) {
		k, err := NewFiscalKey(validNFeKey)
		require.NoError(t, err)
		assert.Equal(t, validNFeKey, k.Key())
		assert.Equal(t, "11222333000181", k.IssuerCNPJ())
		assert.Equal(t, "55", k.Model())
		assert.False(t, k.IsEmpty())
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := NewFiscalKey(validNFeKey[:43])
		require.Error(t, err)
		assert.Contains(t, err.Error(), "44 digits")
	})

	t.Run("rejects non-numeric key", func(t *testing.T) {
		_, err := NewFiscalKey(strings.Replace(validNFeKey, "3", "x", 1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "numeric")
	})

	t.Run("rejects bad check digit", func(t *testing.T) {
		bad := validNFeKey[:43] + "0"
		_, err := NewFiscalKey(bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "check digit")
	})
}

func TestFiscalKeyCheckDigit(t *testing.T) {
	// The computed digit over the first 43 positions must reproduce the
	// final position of a known-good key.
	assert.Equal(t, validNFeKey[43], fiscalKeyCheckDigit(validNFeKey[:43]))
}

func TestFiscalKeyScan(t *testing.T) {
	var k FiscalKey
	require.NoError(t, k.Scan(validNFeKey))
	assert.Equal(t, validNFeKey, k.Key())

	require.NoError(t, k.Scan(nil))
	assert.True(t, k.IsEmpty())

	assert.Error(t, k.Scan(12345))
}
