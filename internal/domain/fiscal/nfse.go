package fiscal

import (
	"fmt"
	"strings"
	"time"

	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/fiscaltms/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NFSeDocument is the aggregate root for service invoices (Nota Fiscal
// de Serviço Eletrônica). Unlike NFe/CTe it is authorized by the
// municipality and carries ISS instead of ICMS/IBS.
type NFSeDocument struct {
	shared.OrgAggregateRoot
	RPSNumber          string               `gorm:"type:varchar(15);not null"` // provisional receipt number
	PrestadorCNPJ      string               `gorm:"type:varchar(14);not null;index"`
	PrestadorName      string               `gorm:"type:varchar(200);not null"`
	TomadorCNPJCPF     string               `gorm:"type:varchar(14)"`
	TomadorName        string               `gorm:"type:varchar(200)"`
	ServiceCode        string               `gorm:"type:varchar(10);not null"` // LC 116/2003 service item
	ServiceDescription string               `gorm:"type:varchar(1000);not null"`
	ServiceValue       decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	ISSRate            decimal.Decimal      `gorm:"type:decimal(5,2);not null"`
	ISSValue           decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	ISSRetained        bool                 `gorm:"not null;default:false"`
	ValorLiquido       decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Currency           valueobject.Currency `gorm:"type:varchar(3);not null;default:'BRL'"`
	Status             NFSeStatus           `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	IssueDate          time.Time            `gorm:"not null"`
	AuthorizedAt       *time.Time
	VerificationCode   string `gorm:"type:varchar(30)"` // municipal verification code
	CancelledAt        *time.Time
	CancelReason       string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (NFSeDocument) TableName() string {
	return "nfse_documents"
}

// NewNFSeDocument creates a service invoice in DRAFT. ISS is computed
// from the service value and rate; when ISS is retained by the taker
// the net value excludes it.
func NewNFSeDocument(
	organizationID, branchID uuid.UUID,
	rpsNumber string,
	prestadorCNPJ, prestadorName string,
	tomadorCNPJCPF, tomadorName string,
	serviceCode, serviceDescription string,
	serviceValue valueobject.Money,
	issRate decimal.Decimal,
	issRetained bool,
	issueDate time.Time,
) (*NFSeDocument, error) {
	if rpsNumber == "" {
		return nil, shared.NewDomainError("INVALID_RPS", "RPS number is required")
	}
	prestador, err := valueobject.NewCNPJ(prestadorCNPJ)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PRESTADOR_CNPJ", err.Error())
	}
	if prestadorName == "" {
		return nil, shared.NewDomainError("INVALID_PRESTADOR_NAME", "Provider name is required")
	}
	if serviceCode == "" || serviceDescription == "" {
		return nil, shared.NewDomainError("INVALID_SERVICE", "Service code and description are required")
	}
	if !serviceValue.IsPositive() {
		return nil, shared.NewDomainError("INVALID_SERVICE_VALUE", "Service value must be positive")
	}
	if issRate.IsNegative() || issRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_ISS_RATE", fmt.Sprintf("ISS rate must be between 0 and 100, got %s", issRate))
	}
	if issueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_ISSUE_DATE", "Issue date is required")
	}

	issValue := serviceValue.CalculatePercentage(issRate).Round(2)
	liquido := serviceValue
	if issRetained {
		liquido, err = serviceValue.Subtract(issValue)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_SERVICE_VALUE", err.Error())
		}
	}

	doc := &NFSeDocument{
		OrgAggregateRoot:   shared.NewOrgAggregateRoot(organizationID, branchID),
		RPSNumber:          rpsNumber,
		PrestadorCNPJ:      prestador.Digits(),
		PrestadorName:      prestadorName,
		TomadorCNPJCPF:     valueobject.NormalizeCNPJ(tomadorCNPJCPF),
		TomadorName:        tomadorName,
		ServiceCode:        serviceCode,
		ServiceDescription: serviceDescription,
		ServiceValue:       serviceValue.Amount(),
		ISSRate:            issRate,
		ISSValue:           issValue.Amount(),
		ISSRetained:        issRetained,
		ValorLiquido:       liquido.Amount(),
		Currency:           serviceValue.Currency(),
		Status:             NFSeStatusDraft,
		IssueDate:          issueDate,
	}

	doc.AddDomainEvent(NewNFSeCreatedEvent(doc))

	return doc, nil
}

// Submit moves the invoice from DRAFT to PENDING (sent to the municipality)
func (n *NFSeDocument) Submit() error {
	if !n.Status.CanSubmit() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot submit a %s service invoice", n.Status))
	}

	n.Status = NFSeStatusPending
	n.UpdatedAt = time.Now()
	n.IncrementVersion()

	n.AddDomainEvent(NewNFSeSubmittedEvent(n))

	return nil
}

// Authorize records the municipal authorization. Requires PENDING.
func (n *NFSeDocument) Authorize(verificationCode string) error {
	if !n.Status.CanAuthorize() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot authorize a %s service invoice", n.Status))
	}
	if verificationCode == "" {
		return shared.NewDomainError("INVALID_VERIFICATION_CODE", "Verification code is required")
	}

	now := time.Now()
	n.Status = NFSeStatusAuthorized
	n.AuthorizedAt = &now
	n.VerificationCode = verificationCode
	n.UpdatedAt = now
	n.IncrementVersion()

	n.AddDomainEvent(NewNFSeAuthorizedEvent(n))

	return nil
}

// Cancel cancels an AUTHORIZED invoice with a justified reason
func (n *NFSeDocument) Cancel(reason string) error {
	if !n.Status.CanCancel() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel a %s service invoice", n.Status))
	}
	if len(strings.TrimSpace(reason)) < MinCancelReasonLength {
		return shared.NewDomainError("INVALID_REASON", fmt.Sprintf("Cancel reason must have at least %d characters", MinCancelReasonLength))
	}

	now := time.Now()
	n.Status = NFSeStatusCancelled
	n.CancelledAt = &now
	n.CancelReason = reason
	n.UpdatedAt = now
	n.IncrementVersion()

	n.AddDomainEvent(NewNFSeCancelledEvent(n))

	return nil
}

// ServiceValueMoney returns the gross service value as Money
func (n *NFSeDocument) ServiceValueMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(n.ServiceValue, n.Currency)
	return m
}

// ValorLiquidoMoney returns the net value as Money
func (n *NFSeDocument) ValorLiquidoMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(n.ValorLiquido, n.Currency)
	return m
}

// ISSValueMoney returns the ISS tax amount as Money
func (n *NFSeDocument) ISSValueMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(n.ISSValue, n.Currency)
	return m
}
