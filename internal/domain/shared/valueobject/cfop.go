package valueobject

import (
	"database/sql/driver"
	"fmt"
)

// OperationDirection indicates whether a CFOP classifies an inbound
// (entrada) or outbound (saída) fiscal operation.
type OperationDirection string

const (
	DirectionInbound  OperationDirection = "INBOUND"
	DirectionOutbound OperationDirection = "OUTBOUND"
)

// CFOP is the Código Fiscal de Operações e Prestações: a 4-digit code
// classifying the nature and direction of a fiscal operation.
// Leading digit 1/2/3 marks inbound operations (intrastate, interstate,
// foreign) and 5/6/7 marks outbound ones.
type CFOP struct {
	code string
}

// NewCFOP creates a validated CFOP from a 4-digit code
func NewCFOP(code string) (CFOP, error) {
	if code == "" {
		return CFOP{}, fmt.Errorf("CFOP não informado")
	}
	if len(code) != 4 {
		return CFOP{}, fmt.Errorf("CFOP must have exactly 4 digits, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return CFOP{}, fmt.Errorf("CFOP must be numeric, got %q", code)
		}
	}
	switch code[0] {
	case '1', '2', '3', '5', '6', '7':
	default:
		return CFOP{}, fmt.Errorf("CFOP leading digit %c does not identify a fiscal operation", code[0])
	}
	return CFOP{code: code}, nil
}

// Code returns the 4-digit code
func (c CFOP) Code() string {
	return c.code
}

// Direction returns the operation direction derived from the leading digit
func (c CFOP) Direction() OperationDirection {
	switch c.code[0] {
	case '1', '2', '3':
		return DirectionInbound
	default:
		return DirectionOutbound
	}
}

// IsInbound returns true for entrada operations (1xxx/2xxx/3xxx)
func (c CFOP) IsInbound() bool {
	return c.Direction() == DirectionInbound
}

// IsOutbound returns true for saída operations (5xxx/6xxx/7xxx)
func (c CFOP) IsOutbound() bool {
	return c.Direction() == DirectionOutbound
}

// IsInterstate returns true for interstate operations (2xxx/6xxx)
func (c CFOP) IsInterstate() bool {
	return c.code[0] == '2' || c.code[0] == '6'
}

// String returns the code
func (c CFOP) String() string {
	return c.code
}

// Value implements driver.Valuer for database storage
func (c CFOP) Value() (driver.Value, error) {
	return c.code, nil
}

// Scan implements sql.Scanner for database retrieval
func (c *CFOP) Scan(value any) error {
	if value == nil {
		c.code = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		c.code = v
	case []byte:
		c.code = string(v)
	default:
		return fmt.Errorf("cannot scan %T into CFOP", value)
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (c CFOP) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.code + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (c *CFOP) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("CFOP must be a JSON string")
	}
	parsed, err := NewCFOP(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
