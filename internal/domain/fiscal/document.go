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

// MinCancelReasonLength is the minimum justification length accepted by
// the fiscal authority for a cancellation request.
const MinCancelReasonLength = 15

// FiscalDocumentItem is a line item of a fiscal document. It is owned
// exclusively by its document and carries the CFOP that drives tax
// credit eligibility plus the optional chart-of-accounts categorization
// consumed by the accounting engine.
type FiscalDocumentItem struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key"`
	FiscalDocumentID uuid.UUID        `gorm:"type:uuid;not null;index"`
	ItemNumber       int              `gorm:"not null"`
	ProductCode      string           `gorm:"type:varchar(60)"`
	Description      string           `gorm:"type:varchar(500);not null"`
	NCM              string           `gorm:"type:varchar(8)"`
	CFOP             valueobject.CFOP `gorm:"type:varchar(4);not null"`
	Unit             string           `gorm:"type:varchar(10)"`
	Quantity         decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	UnitPrice        decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	AccountID        *uuid.UUID       `gorm:"type:uuid;index"` // chart-of-accounts categorization
}

// TableName returns the table name for GORM
func (FiscalDocumentItem) TableName() string {
	return "fiscal_document_items"
}

// Total returns quantity × unit price as Money
func (i *FiscalDocumentItem) Total() valueobject.Money {
	return valueobject.NewMoneyBRL(i.Quantity.Mul(i.UnitPrice))
}

// UnitPriceMoney returns the unit price as Money
func (i *FiscalDocumentItem) UnitPriceMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(i.UnitPrice)
}

// IsCategorized returns true when the item has been assigned an account
func (i *FiscalDocumentItem) IsCategorized() bool {
	return i.AccountID != nil
}

// FiscalDocument is the aggregate root for NFe and CTe documents. It
// owns the lifecycle state machine, the accounting-posting status and
// the line items.
type FiscalDocument struct {
	shared.OrgAggregateRoot
	DocumentType     DocumentType          `gorm:"type:varchar(3);not null;index"`
	Series           string                `gorm:"type:varchar(5);not null"`
	Number           string                `gorm:"type:varchar(15);not null"`
	FiscalKey        valueobject.FiscalKey `gorm:"type:varchar(44);uniqueIndex:idx_fiscal_doc_org_key,priority:2"`
	IssuerCNPJ       string                `gorm:"type:varchar(14);not null;index"`
	IssuerName       string                `gorm:"type:varchar(200);not null"`
	RecipientCNPJCPF string                `gorm:"type:varchar(14)"`
	RecipientName    string                `gorm:"type:varchar(200)"`
	IssueDate        time.Time             `gorm:"not null;index"`
	Status           DocumentStatus        `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Manifestation    ManifestationStatus   `gorm:"type:varchar(20);not null;default:'PENDING'"`
	Role             DocumentRole          `gorm:"type:varchar(10);not null;default:'OTHER'"`
	TotalValue       decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Currency         valueobject.Currency  `gorm:"type:varchar(3);not null;default:'BRL'"`
	Items            []FiscalDocumentItem  `gorm:"foreignKey:FiscalDocumentID;references:ID"`
	AccountingStatus AccountingStatus      `gorm:"type:varchar(10);not null;default:'PENDING';index"`
	JournalEntryID   *uuid.UUID            `gorm:"type:uuid;index"`
	AuthorizedAt     *time.Time
	Protocol         string `gorm:"type:varchar(30)"` // SEFAZ authorization protocol
	CancelledAt      *time.Time
	CancelReason     string `gorm:"type:varchar(500)"`
	CargoDescription string          `gorm:"type:varchar(500)"` // CTe only
	CargoWeightKg    decimal.Decimal `gorm:"type:decimal(12,3)"`
	XMLArchiveURI    string          `gorm:"type:varchar(500)"` // raw XML retention location
}

// SetXMLArchiveURI records where the raw XML was archived
func (d *FiscalDocument) SetXMLArchiveURI(uri string) {
	d.XMLArchiveURI = uri
	d.UpdatedAt = time.Now()
}

// TableName returns the table name for GORM
func (FiscalDocument) TableName() string {
	return "fiscal_documents"
}

// NewFiscalDocument creates a fiscal document in DRAFT with a validated
// issuer CNPJ and access key. The key model must agree with the
// document type (55 for NFe, 57 for CTe).
func NewFiscalDocument(
	organizationID, branchID uuid.UUID,
	documentType DocumentType,
	series, number string,
	issuerCNPJ, issuerName string,
	issueDate time.Time,
	fiscalKey string,
	totalValue valueobject.Money,
) (*FiscalDocument, error) {
	if !documentType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", fmt.Sprintf("Unknown document type %q", documentType))
	}
	if series == "" || number == "" {
		return nil, shared.NewDomainError("INVALID_IDENTIFICATION", "Series and number are required")
	}
	cnpj, err := valueobject.NewCNPJ(issuerCNPJ)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_ISSUER_CNPJ", err.Error())
	}
	if issuerName == "" {
		return nil, shared.NewDomainError("INVALID_ISSUER_NAME", "Issuer name is required")
	}
	if issueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_ISSUE_DATE", "Issue date is required")
	}
	key, err := valueobject.NewFiscalKey(fiscalKey)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_FISCAL_KEY", err.Error())
	}
	if documentType == DocumentTypeNFe && key.Model() != "55" {
		return nil, shared.NewDomainError("INVALID_FISCAL_KEY", "Access key model does not identify an NFe")
	}
	if documentType == DocumentTypeCTe && key.Model() != "57" {
		return nil, shared.NewDomainError("INVALID_FISCAL_KEY", "Access key model does not identify a CTe")
	}
	if totalValue.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TOTAL", "Total value cannot be negative")
	}

	doc := &FiscalDocument{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID, branchID),
		DocumentType:     documentType,
		Series:           series,
		Number:           number,
		FiscalKey:        key,
		IssuerCNPJ:       cnpj.Digits(),
		IssuerName:       issuerName,
		IssueDate:        issueDate,
		Status:           DocumentStatusDraft,
		Manifestation:    ManifestationPending,
		Role:             RoleOther,
		TotalValue:       totalValue.Amount(),
		Currency:         totalValue.Currency(),
		Items:            make([]FiscalDocumentItem, 0),
		AccountingStatus: AccountingStatusPending,
	}

	doc.AddDomainEvent(NewFiscalDocumentCreatedEvent(doc))

	return doc, nil
}

// SetRecipient records the recipient identification
func (d *FiscalDocument) SetRecipient(cnpjCpf, name string) {
	d.RecipientCNPJCPF = valueobject.NormalizeCNPJ(cnpjCpf)
	d.RecipientName = name
	d.UpdatedAt = time.Now()
}

// SetRole records the business role determined by the classifier
func (d *FiscalDocument) SetRole(role DocumentRole) {
	d.Role = role
	d.UpdatedAt = time.Now()
}

// AddItem appends a line item. Items may only change while in DRAFT.
func (d *FiscalDocument) AddItem(
	productCode, description, ncm string,
	cfop valueobject.CFOP,
	unit string,
	quantity decimal.Decimal,
	unitPrice valueobject.Money,
) (*FiscalDocumentItem, error) {
	if d.Status != DocumentStatusDraft {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot add items to a %s document", d.Status))
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item description is required")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item unit price cannot be negative")
	}

	item := FiscalDocumentItem{
		ID:               uuid.New(),
		FiscalDocumentID: d.ID,
		ItemNumber:       len(d.Items) + 1,
		ProductCode:      productCode,
		Description:      description,
		NCM:              ncm,
		CFOP:             cfop,
		Unit:             unit,
		Quantity:         quantity,
		UnitPrice:        unitPrice.Amount(),
	}
	d.Items = append(d.Items, item)
	d.UpdatedAt = time.Now()

	return &d.Items[len(d.Items)-1], nil
}

// CategorizeItem assigns a chart-of-accounts account to a line item.
// Allowed until the document has been posted to accounting.
func (d *FiscalDocument) CategorizeItem(itemID, accountID uuid.UUID) error {
	if d.AccountingStatus == AccountingStatusPosted {
		return shared.NewDomainError("ALREADY_POSTED", "Cannot recategorize items of a posted document")
	}
	for i := range d.Items {
		if d.Items[i].ID == itemID {
			d.Items[i].AccountID = &accountID
			d.UpdatedAt = time.Now()
			return nil
		}
	}
	return shared.NewDomainError("NOT_FOUND", "Item not found on this document")
}

// Submit moves the document from DRAFT to SUBMITTED
func (d *FiscalDocument) Submit() error {
	if !d.Status.CanSubmit() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot submit a %s document", d.Status))
	}
	if len(d.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot submit a document without items")
	}

	d.Status = DocumentStatusSubmitted
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	d.AddDomainEvent(NewFiscalDocumentSubmittedEvent(d))

	return nil
}

// Authorize records the fiscal authority's authorization
func (d *FiscalDocument) Authorize(protocol string) error {
	if !d.Status.CanAuthorize() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot authorize a %s document", d.Status))
	}
	if protocol == "" {
		return shared.NewDomainError("INVALID_PROTOCOL", "Authorization protocol is required")
	}

	now := time.Now()
	d.Status = DocumentStatusAuthorized
	d.AuthorizedAt = &now
	d.Protocol = protocol
	d.UpdatedAt = now
	d.IncrementVersion()

	d.AddDomainEvent(NewFiscalDocumentAuthorizedEvent(d))

	return nil
}

// Cancel cancels the document. The justification must satisfy the
// authority's minimum length; SUBMITTED documents must first be
// resolved and CANCELLED is terminal.
func (d *FiscalDocument) Cancel(reason string) error {
	if !d.Status.CanCancel() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel a %s document", d.Status))
	}
	if len(strings.TrimSpace(reason)) < MinCancelReasonLength {
		return shared.NewDomainError("INVALID_REASON", fmt.Sprintf("Cancel reason must have at least %d characters", MinCancelReasonLength))
	}

	now := time.Now()
	previous := d.Status
	d.Status = DocumentStatusCancelled
	d.CancelledAt = &now
	d.CancelReason = reason
	d.UpdatedAt = now
	d.IncrementVersion()

	d.AddDomainEvent(NewFiscalDocumentCancelledEvent(d, previous))

	return nil
}

// Manifest records the recipient manifestation for an inbound NFe.
// CTe documents have no manifestation flow.
func (d *FiscalDocument) Manifest(status ManifestationStatus) error {
	if d.DocumentType != DocumentTypeNFe {
		return shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Manifestation applies to NFe documents only")
	}
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown manifestation status %q", status))
	}
	if d.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Cannot manifest a cancelled document")
	}

	d.Manifestation = status
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	d.AddDomainEvent(NewFiscalDocumentManifestedEvent(d, status))

	return nil
}

// SetCargoInfo records freight cargo details. NFe documents carry goods
// line items, not cargo manifests.
func (d *FiscalDocument) SetCargoInfo(description string, weightKg decimal.Decimal) error {
	if d.DocumentType != DocumentTypeCTe {
		return shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Cargo info applies to CTe documents only")
	}
	if weightKg.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Cargo weight cannot be negative")
	}

	d.CargoDescription = description
	d.CargoWeightKg = weightKg
	d.UpdatedAt = time.Now()

	return nil
}

// MarkPosted links the generated journal entry and flips the accounting
// status to POSTED. Used by the accounting engine inside its transaction.
func (d *FiscalDocument) MarkPosted(journalEntryID uuid.UUID) error {
	if d.AccountingStatus == AccountingStatusPosted {
		return shared.NewDomainError("ALREADY_POSTED", fmt.Sprintf("Document %s/%s has already been posted", d.Series, d.Number))
	}

	d.AccountingStatus = AccountingStatusPosted
	d.JournalEntryID = &journalEntryID
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	d.AddDomainEvent(NewFiscalDocumentPostedEvent(d, journalEntryID))

	return nil
}

// ResetAccounting returns the document to PENDING after its journal
// entry was reversed, allowing a new posting.
func (d *FiscalDocument) ResetAccounting() error {
	if d.AccountingStatus != AccountingStatusPosted {
		return shared.NewDomainError("INVALID_STATE", "Document has no posted journal entry to reset")
	}

	d.AccountingStatus = AccountingStatusPending
	d.JournalEntryID = nil
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	return nil
}

// TotalValueMoney returns the document total as Money
func (d *FiscalDocument) TotalValueMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(d.TotalValue, d.Currency)
	return m
}

// CategorizedItems returns the line items assigned to an account
func (d *FiscalDocument) CategorizedItems() []FiscalDocumentItem {
	out := make([]FiscalDocumentItem, 0, len(d.Items))
	for _, item := range d.Items {
		if item.IsCategorized() {
			out = append(out, item)
		}
	}
	return out
}

// IsCancelled returns true if the document was cancelled
func (d *FiscalDocument) IsCancelled() bool {
	return d.Status == DocumentStatusCancelled
}

// IsAuthorized returns true if the document was authorized
func (d *FiscalDocument) IsAuthorized() bool {
	return d.Status == DocumentStatusAuthorized
}

// IsPurchase returns true when the classifier marked the document as a
// purchase for the owning branch
func (d *FiscalDocument) IsPurchase() bool {
	return d.Role == RolePurchase
}
