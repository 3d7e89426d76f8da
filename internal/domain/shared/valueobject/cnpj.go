package valueobject

import (
	"fmt"
	"strings"
)

// CNPJ is the Brazilian company registration number (Cadastro Nacional
// da Pessoa Jurídica), stored in its normalized 14-digit form.
type CNPJ struct {
	digits string
}

// NormalizeCNPJ strips formatting characters, keeping digits only.
// "12.345.678/0001-99" and "12345678000199" normalize to the same value.
func NormalizeCNPJ(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NewCNPJ creates a validated CNPJ from a raw (possibly formatted) string
func NewCNPJ(raw string) (CNPJ, error) {
	digits := NormalizeCNPJ(raw)
	if len(digits) != 14 {
		return CNPJ{}, fmt.Errorf("CNPJ must have 14 digits, got %d", len(digits))
	}
	if allSameDigit(digits) {
		return CNPJ{}, fmt.Errorf("CNPJ %s is not valid", digits)
	}
	if !validCNPJCheckDigits(digits) {
		return CNPJ{}, fmt.Errorf("CNPJ %s has invalid check digits", digits)
	}
	return CNPJ{digits: digits}, nil
}

// Digits returns the normalized 14-digit form
func (c CNPJ) Digits() string {
	return c.digits
}

// Equal compares two CNPJs by normalized digits
func (c CNPJ) Equal(other CNPJ) bool {
	return c.digits == other.digits
}

// EqualString compares against a raw string after normalizing it
func (c CNPJ) EqualString(raw string) bool {
	return c.digits == NormalizeCNPJ(raw)
}

// Formatted returns the display form XX.XXX.XXX/XXXX-XX
func (c CNPJ) Formatted() string {
	d := c.digits
	return fmt.Sprintf("%s.%s.%s/%s-%s", d[0:2], d[2:5], d[5:8], d[8:12], d[12:14])
}

// String returns the normalized digits
func (c CNPJ) String() string {
	return c.digits
}

func allSameDigit(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

// validCNPJCheckDigits verifies the two modulo-11 check digits
func validCNPJCheckDigits(digits string) bool {
	weightsFirst := []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	weightsSecond := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}

	check := func(weights []int) byte {
		sum := 0
		for i, w := range weights {
			sum += int(digits[i]-'0') * w
		}
		r := sum % 11
		if r < 2 {
			return '0'
		}
		return byte('0' + 11 - r)
	}

	return digits[12] == check(weightsFirst) && digits[13] == check(weightsSecond)
}
