package valueobject

import (
	"database/sql/driver"
	"fmt"
)

// FiscalKey is the 44-digit access key (chave de acesso) that uniquely
// identifies an electronic fiscal document (NFe/CTe). Layout:
// cUF(2) AAMM(4) CNPJ(14) modelo(2) série(3) número(9) tpEmis(1) cNF(8) cDV(1).
type FiscalKey struct {
	key string
}

// NewFiscalKey creates a validated fiscal key
func NewFiscalKey(raw string) (FiscalKey, error) {
	if len(raw) != 44 {
		return FiscalKey{}, fmt.Errorf("fiscal key must have 44 digits, got %d", len(raw))
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return FiscalKey{}, fmt.Errorf("fiscal key must be numeric")
		}
	}
	if expected := fiscalKeyCheckDigit(raw[:43]); raw[43] != expected {
		return FiscalKey{}, fmt.Errorf("fiscal key check digit mismatch: expected %c", expected)
	}
	return FiscalKey{key: raw}, nil
}

// Key returns the full 44-digit key
func (k FiscalKey) Key() string {
	return k.key
}

// IssuerCNPJ returns the issuer CNPJ segment of the key
func (k FiscalKey) IssuerCNPJ() string {
	return k.key[6:20]
}

// Model returns the document model segment (55 = NFe, 57 = CTe)
func (k FiscalKey) Model() string {
	return k.key[20:22]
}

// IsEmpty returns true for the zero value
func (k FiscalKey) IsEmpty() bool {
	return k.key == ""
}

// String returns the key
func (k FiscalKey) String() string {
	return k.key
}

// Value implements driver.Valuer for database storage
func (k FiscalKey) Value() (driver.Value, error) {
	return k.key, nil
}

// Scan implements sql.Scanner for database retrieval
func (k *FiscalKey) Scan(value any) error {
	if value == nil {
		k.key = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		k.key = v
	case []byte:
		k.key = string(v)
	default:
		return fmt.Errorf("cannot scan %T into FiscalKey", value)
	}
	return nil
}

// fiscalKeyCheckDigit computes the modulo-11 check digit over the first
// 43 digits, weights cycling 2..9 from the rightmost digit.
func fiscalKeyCheckDigit(base string) byte {
	weight := 2
	sum := 0
	for i := len(base) - 1; i >= 0; i-- {
		sum += int(base[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + 11 - r)
}
