package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxRate holds the PIS and COFINS percentage pair applied to the net
// value of qualifying inbound fiscal documents.
type TaxRate struct {
	pisRate    decimal.Decimal
	cofinsRate decimal.Decimal
}

// NewTaxRate creates a TaxRate with both percentages validated to [0,100]
func NewTaxRate(pisRate, cofinsRate decimal.Decimal) (TaxRate, error) {
	if pisRate.IsNegative() || pisRate.GreaterThan(decimal.NewFromInt(100)) {
		return TaxRate{}, fmt.Errorf("PIS rate must be between 0 and 100, got %s", pisRate)
	}
	if cofinsRate.IsNegative() || cofinsRate.GreaterThan(decimal.NewFromInt(100)) {
		return TaxRate{}, fmt.Errorf("COFINS rate must be between 0 and 100, got %s", cofinsRate)
	}
	return TaxRate{pisRate: pisRate, cofinsRate: cofinsRate}, nil
}

// NonCumulativeRegime returns the regime não cumulativo preset (1.65% / 7.6%)
func NonCumulativeRegime() TaxRate {
	return TaxRate{
		pisRate:    decimal.NewFromFloat(1.65),
		cofinsRate: decimal.NewFromFloat(7.6),
	}
}

// CumulativeRegime returns the regime cumulativo preset (0.65% / 3.0%)
func CumulativeRegime() TaxRate {
	return TaxRate{
		pisRate:    decimal.NewFromFloat(0.65),
		cofinsRate: decimal.NewFromFloat(3.0),
	}
}

// PISRate returns the PIS percentage
func (t TaxRate) PISRate() decimal.Decimal {
	return t.pisRate
}

// COFINSRate returns the COFINS percentage
func (t TaxRate) COFINSRate() decimal.Decimal {
	return t.cofinsRate
}

// Combined returns the summed PIS+COFINS percentage
func (t TaxRate) Combined() decimal.Decimal {
	return t.pisRate.Add(t.cofinsRate)
}

// ApplyPIS returns the PIS share of the given base value
func (t TaxRate) ApplyPIS(base Money) Money {
	return base.CalculatePercentage(t.pisRate)
}

// ApplyCOFINS returns the COFINS share of the given base value
func (t TaxRate) ApplyCOFINS(base Money) Money {
	return base.CalculatePercentage(t.cofinsRate)
}

// ApplyCombined returns the combined PIS+COFINS share of the base value
func (t TaxRate) ApplyCombined(base Money) Money {
	return base.CalculatePercentage(t.Combined())
}

// String returns a human-readable representation
func (t TaxRate) String() string {
	return fmt.Sprintf("PIS %s%% / COFINS %s%%", t.pisRate, t.cofinsRate)
}

// AliquotaIBS is a single IBS percentage in [0,100]. The combined IBS
// rate of an operation splits into a UF share and a municipal share,
// each carried as its own AliquotaIBS.
type AliquotaIBS struct {
	percentage decimal.Decimal
}

// NewAliquotaIBS creates a validated IBS rate
func NewAliquotaIBS(percentage decimal.Decimal) (AliquotaIBS, error) {
	if percentage.IsNegative() || percentage.GreaterThan(decimal.NewFromInt(100)) {
		return AliquotaIBS{}, fmt.Errorf("IBS rate must be between 0 and 100, got %s", percentage)
	}
	return AliquotaIBS{percentage: percentage}, nil
}

// MustAliquotaIBS creates an IBS rate, panicking on out-of-range values.
// Intended for static rate tables only.
func MustAliquotaIBS(percentage float64) AliquotaIBS {
	rate, err := NewAliquotaIBS(decimal.NewFromFloat(percentage))
	if err != nil {
		panic(err)
	}
	return rate
}

// Percentage returns the rate percentage
func (a AliquotaIBS) Percentage() decimal.Decimal {
	return a.percentage
}

// ApplyTo returns the IBS share of the given base value
func (a AliquotaIBS) ApplyTo(base Money) Money {
	return base.CalculatePercentage(a.percentage)
}

// IsZero returns true for a zero rate
func (a AliquotaIBS) IsZero() bool {
	return a.percentage.IsZero()
}

// String returns a human-readable representation
func (a AliquotaIBS) String() string {
	return a.percentage.String() + "%"
}
