package fiscal

import (
	"fmt"

	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/fiscaltms/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// IBSCalculationInput carries the base value, the UF/municipal rate
// split and the optional reduction and deferral percentages of an IBS
// computation under the 2026+ tax transition.
type IBSCalculationInput struct {
	BaseValue     valueobject.Money
	IBSUFRate     valueobject.AliquotaIBS
	IBSMunRate    valueobject.AliquotaIBS
	UFCode        string
	MunicipioCode string           // optional, 7 digits when present
	ReductionRate *decimal.Decimal // optional, percentage in [0,100]
	DeferralRate  *decimal.Decimal // optional, percentage in [0,100]
}

// IBSCalculationResult carries both the original and the effective base
// along with the split amounts, so callers can audit how a reduction
// changed the computation.
type IBSCalculationResult struct {
	OriginalBase  valueobject.Money  `json:"original_base"`
	EffectiveBase valueobject.Money  `json:"effective_base"`
	IBSUFValue    valueobject.Money  `json:"ibs_uf_value"`
	IBSMunValue   valueobject.Money  `json:"ibs_mun_value"`
	TotalIBS      valueobject.Money  `json:"total_ibs"`
	DeferredValue *valueobject.Money `json:"deferred_value,omitempty"`
}

// IBSCalculator computes the split IBS-UF / IBS-municipal tax for the
// 2026-2033 IBS/CBS transition. Pure: no logging, no I/O.
type IBSCalculator struct{}

// NewIBSCalculator creates an IBS calculator
func NewIBSCalculator() *IBSCalculator {
	return &IBSCalculator{}
}

// Calculate validates the input and computes the IBS split. The
// effective base applies the reduction rate; the deferral applies to
// the computed total.
func (c *IBSCalculator) Calculate(input IBSCalculationInput) (IBSCalculationResult, error) {
	if input.BaseValue.IsNegative() {
		return IBSCalculationResult{}, shared.NewDomainError("INVALID_INPUT", "Base value cannot be negative")
	}
	if len(input.UFCode) != 2 {
		return IBSCalculationResult{}, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("UF code must have exactly 2 characters, got %q", input.UFCode))
	}
	if input.MunicipioCode != "" {
		if len(input.MunicipioCode) != 7 {
			return IBSCalculationResult{}, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Município code must have exactly 7 digits, got %q", input.MunicipioCode))
		}
		for _, r := range input.MunicipioCode {
			if r < '0' || r > '9' {
				return IBSCalculationResult{}, shared.NewDomainError("INVALID_INPUT", "Município code must be numeric")
			}
		}
	}
	if err := validatePercentage("Reduction rate", input.ReductionRate); err != nil {
		return IBSCalculationResult{}, err
	}
	if err := validatePercentage("Deferral rate", input.DeferralRate); err != nil {
		return IBSCalculationResult{}, err
	}

	effectiveBase := input.BaseValue
	if input.ReductionRate != nil {
		factor := decimal.NewFromInt(1).Sub(input.ReductionRate.Div(decimal.NewFromInt(100)))
		effectiveBase = input.BaseValue.Multiply(factor)
	}

	ufValue := input.IBSUFRate.ApplyTo(effectiveBase).RoundBank(2)
	munValue := input.IBSMunRate.ApplyTo(effectiveBase).RoundBank(2)
	total, err := ufValue.Add(munValue)
	if err != nil {
		return IBSCalculationResult{}, err
	}

	result := IBSCalculationResult{
		OriginalBase:  input.BaseValue,
		EffectiveBase: effectiveBase,
		IBSUFValue:    ufValue,
		IBSMunValue:   munValue,
		TotalIBS:      total,
	}

	if input.DeferralRate != nil {
		deferred := total.CalculatePercentage(*input.DeferralRate).RoundBank(2)
		result.DeferredValue = &deferred
	}

	return result, nil
}

func validatePercentage(name string, rate *decimal.Decimal) error {
	if rate == nil {
		return nil
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("%s must be between 0 and 100, got %s", name, rate))
	}
	return nil
}

// TransitionRates holds the combined IBS test rates for one year of the
// 2026-2033 phase-in (LC 214/2025 schedule: 0.1% test rate in 2026,
// then the IBS share ramps while ICMS/ISS phase out through 2033).
type TransitionRates struct {
	Year    int
	UFRate  valueobject.AliquotaIBS
	MunRate valueobject.AliquotaIBS
}

var transitionSchedule = []TransitionRates{
	{Year: 2026, UFRate: valueobject.MustAliquotaIBS(0.05), MunRate: valueobject.MustAliquotaIBS(0.05)},
	{Year: 2027, UFRate: valueobject.MustAliquotaIBS(0.05), MunRate: valueobject.MustAliquotaIBS(0.05)},
	{Year: 2028, UFRate: valueobject.MustAliquotaIBS(0.05), MunRate: valueobject.MustAliquotaIBS(0.05)},
	{Year: 2029, UFRate: valueobject.MustAliquotaIBS(1.77), MunRate: valueobject.MustAliquotaIBS(1.77)},
	{Year: 2030, UFRate: valueobject.MustAliquotaIBS(3.54), MunRate: valueobject.MustAliquotaIBS(3.54)},
	{Year: 2031, UFRate: valueobject.MustAliquotaIBS(5.31), MunRate: valueobject.MustAliquotaIBS(5.31)},
	{Year: 2032, UFRate: valueobject.MustAliquotaIBS(7.08), MunRate: valueobject.MustAliquotaIBS(7.08)},
	{Year: 2033, UFRate: valueobject.MustAliquotaIBS(8.85), MunRate: valueobject.MustAliquotaIBS(8.85)},
}

// RatesForYear returns the transition-schedule rates applicable to the
// given year. Years before 2026 have no IBS; years past 2033 use the
// final schedule entry.
func RatesForYear(year int) (TransitionRates, error) {
	if year < transitionSchedule[0].Year {
		return TransitionRates{}, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("IBS does not apply before %d", transitionSchedule[0].Year))
	}
	for _, entry := range transitionSchedule {
		if entry.Year == year {
			return entry, nil
		}
	}
	return transitionSchedule[len(transitionSchedule)-1], nil
}
