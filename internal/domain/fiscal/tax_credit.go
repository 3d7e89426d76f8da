package fiscal

import (
	"fmt"

	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/fiscaltms/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxCreditInput describes the document slice needed to compute
// PIS/COFINS input credits.
type TaxCreditInput struct {
	DocumentID   uuid.UUID
	DocumentType DocumentType
	CFOP         string
	NetAmount    valueobject.Money
}

// TaxCreditResult holds the computed PIS and COFINS credit amounts.
// It is a computed value, never persisted.
type TaxCreditResult struct {
	PISCredit    valueobject.Money `json:"pis_credit"`
	COFINSCredit valueobject.Money `json:"cofins_credit"`
}

// TotalCredit returns the summed credit. Addition can fail when the two
// amounts carry mismatched currencies.
func (r TaxCreditResult) TotalCredit() (valueobject.Money, error) {
	return r.PISCredit.Add(r.COFINSCredit)
}

// TaxCreditCalculator computes PIS/COFINS credit eligibility and
// amounts under Brazilian tax law. Only inbound operations (CFOP
// 1xxx/2xxx/3xxx) generate input credits; outbound documents are
// never eligible. The calculator is pure: no logging, no I/O.
type TaxCreditCalculator struct {
	rate valueobject.TaxRate
}

// NewTaxCreditCalculator creates a calculator under the non-cumulative
// regime (1.65% / 7.6%), the default for lucro real companies.
func NewTaxCreditCalculator() *TaxCreditCalculator {
	return &TaxCreditCalculator{rate: valueobject.NonCumulativeRegime()}
}

// NewTaxCreditCalculatorWithRate creates a calculator with an explicit
// regime, e.g. valueobject.CumulativeRegime for lucro presumido.
func NewTaxCreditCalculatorWithRate(rate valueobject.TaxRate) *TaxCreditCalculator {
	return &TaxCreditCalculator{rate: rate}
}

// Rate returns the configured regime rates
func (c *TaxCreditCalculator) Rate() valueobject.TaxRate {
	return c.rate
}

// Calculate computes the PIS and COFINS credits for a document.
// Fails when the CFOP is missing or identifies an outbound operation.
func (c *TaxCreditCalculator) Calculate(input TaxCreditInput) (TaxCreditResult, error) {
	cfop, err := valueobject.NewCFOP(input.CFOP)
	if err != nil {
		return TaxCreditResult{}, shared.NewDomainError("INVALID_CFOP", err.Error())
	}
	if cfop.IsOutbound() {
		return TaxCreditResult{}, shared.NewDomainError(
			"NOT_ELIGIBLE",
			fmt.Sprintf("CFOP %s: documento não elegível para crédito (operação de saída)", cfop.Code()),
		)
	}

	return TaxCreditResult{
		PISCredit:    c.rate.ApplyPIS(input.NetAmount).RoundBank(2),
		COFINSCredit: c.rate.ApplyCOFINS(input.NetAmount).RoundBank(2),
	}, nil
}

// CalculateDepreciationCredit computes the monthly straight-line
// PIS/COFINS credit on a depreciable asset: the combined rate applied
// to the asset value, recognized over the given number of months.
func (c *TaxCreditCalculator) CalculateDepreciationCredit(assetValue valueobject.Money, months int) (valueobject.Money, error) {
	if months <= 0 {
		return valueobject.Money{}, shared.NewDomainError("INVALID_INPUT", "Número de meses deve ser maior que zero")
	}
	if !assetValue.IsPositive() {
		return valueobject.Money{}, shared.NewDomainError("INVALID_INPUT", "Valor do ativo deve ser maior que zero")
	}

	total := c.rate.ApplyCombined(assetValue)
	monthly, err := total.Divide(decimal.NewFromInt(int64(months)))
	if err != nil {
		return valueobject.Money{}, err
	}
	return monthly.RoundBank(2), nil
}
