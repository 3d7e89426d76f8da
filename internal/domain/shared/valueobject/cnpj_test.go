package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCNPJ(t *testing.T) {
	assert.Equal(t, "11222333000181", NormalizeCNPJ("11.222.333/0001-81"))
	assert.Equal(t, "11222333000181", NormalizeCNPJ("11222333000181"))
	assert.Equal(t, "", NormalizeCNPJ("abc"))
}

func TestNewCNPJ(t *testing.T) {
	t.Run("accepts valid formatted CNPJ", func(t *testing.T) {
		c, err := NewCNPJ("11.222.333/0001-81")
		require.NoError(t, err)
		assert.Equal(t, "11222333000181", c.Digits())
		assert.Equal(t, "11.222.333/0001-81", c.Formatted())
	})

	t.Run("accepts valid bare CNPJ", func(t *testing.T) {
		c, err := NewCNPJ("11444777000161")
		require.NoError(t, err)
		assert.Equal(t, "11444777000161", c.Digits())
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := NewCNPJ("1122233300018")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "14 digits")
	})

	t.Run("rejects repeated digits", func(t *testing.T) {
		_, err := NewCNPJ("11111111111111")
		assert.Error(t, err)
	})

	t.Run("rejects invalid check digits", func(t *testing.T) {
		_, err := NewCNPJ("11222333000182")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "check digits")
	})
}

func TestCNPJEqual(t *testing.T) {
	a, err := NewCNPJ("11.222.333/0001-81")
	require.NoError(t, err)
	b, err := NewCNPJ("11222333000181")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.True(t, a.EqualString("11.222.333/0001-81"))
	assert.False(t, a.EqualString("11444777000161"))
}
