package fiscal

import (
	"context"
	"fmt"
	"time"

	"github.com/fiscaltms/backend/internal/domain/fiscal"
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/fiscaltms/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// importIdempotencyTTL bounds how long an import key blocks retries of
// the same fiscal key. Long enough to cover any realistic double-upload
// window; the database unique key is the durable guard.
const importIdempotencyTTL = 24 * time.Hour

// DocumentService provides application-level fiscal document operations:
// XML import with classification, workflow transitions and the tax
// calculation endpoints.
type DocumentService struct {
	docRepo     fiscal.FiscalDocumentRepository
	classifier  *fiscal.NFeClassifier
	taxCalc     *fiscal.TaxCreditCalculator
	ibsCalc     *fiscal.IBSCalculator
	parser      NFeParser
	idempotency shared.IdempotencyStore
	archive     XMLArchive
	logger      *zap.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	docRepo fiscal.FiscalDocumentRepository,
	classifier *fiscal.NFeClassifier,
	taxCalc *fiscal.TaxCreditCalculator,
	ibsCalc *fiscal.IBSCalculator,
	parser NFeParser,
	idempotency shared.IdempotencyStore,
	archive XMLArchive,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		docRepo:     docRepo,
		classifier:  classifier,
		taxCalc:     taxCalc,
		ibsCalc:     ibsCalc,
		parser:      parser,
		idempotency: idempotency,
		archive:     archive,
		logger:      logger,
	}
}

// ===================== DTOs =====================

// FiscalDocumentItemResponse represents a line item in API responses
type FiscalDocumentItemResponse struct {
	ID          uuid.UUID  `json:"id"`
	ItemNumber  int        `json:"item_number"`
	ProductCode string     `json:"product_code,omitempty"`
	Description string     `json:"description"`
	NCM         string     `json:"ncm,omitempty"`
	CFOP        string     `json:"cfop"`
	Unit        string     `json:"unit,omitempty"`
	Quantity    string     `json:"quantity"`
	UnitPrice   string     `json:"unit_price"`
	Total       string     `json:"total"`
	AccountID   *uuid.UUID `json:"account_id,omitempty"`
}

// FiscalDocumentResponse represents a fiscal document in API responses
type FiscalDocumentResponse struct {
	ID               uuid.UUID                    `json:"id"`
	OrganizationID   uuid.UUID                    `json:"organization_id"`
	BranchID         uuid.UUID                    `json:"branch_id"`
	DocumentType     string                       `json:"document_type"`
	Series           string                       `json:"series"`
	Number           string                       `json:"number"`
	FiscalKey        string                       `json:"fiscal_key"`
	IssuerCNPJ       string                       `json:"issuer_cnpj"`
	IssuerName       string                       `json:"issuer_name"`
	RecipientCNPJCPF string                       `json:"recipient_cnpj_cpf,omitempty"`
	RecipientName    string                       `json:"recipient_name,omitempty"`
	IssueDate        time.Time                    `json:"issue_date"`
	Status           string                       `json:"status"`
	Manifestation    string                       `json:"manifestation"`
	Role             string                       `json:"role"`
	TotalValue       string                       `json:"total_value"`
	Currency         string                       `json:"currency"`
	Items            []FiscalDocumentItemResponse `json:"items"`
	AccountingStatus string                       `json:"accounting_status"`
	JournalEntryID   *uuid.UUID                   `json:"journal_entry_id,omitempty"`
	AuthorizedAt     *time.Time                   `json:"authorized_at,omitempty"`
	Protocol         string                       `json:"protocol,omitempty"`
	CancelledAt      *time.Time                   `json:"cancelled_at,omitempty"`
	CancelReason     string                       `json:"cancel_reason,omitempty"`
	CargoDescription string                       `json:"cargo_description,omitempty"`
	CargoWeightKg    string                       `json:"cargo_weight_kg,omitempty"`
	XMLArchiveURI    string                       `json:"xml_archive_uri,omitempty"`
	CreatedAt        time.Time                    `json:"created_at"`
	UpdatedAt        time.Time                    `json:"updated_at"`
	Version          int                          `json:"version"`
}

func toFiscalDocumentResponse(doc *fiscal.FiscalDocument) *FiscalDocumentResponse {
	items := make([]FiscalDocumentItemResponse, 0, len(doc.Items))
	for i := range doc.Items {
		item := &doc.Items[i]
		items = append(items, FiscalDocumentItemResponse{
			ID:          item.ID,
			ItemNumber:  item.ItemNumber,
			ProductCode: item.ProductCode,
			Description: item.Description,
			NCM:         item.NCM,
			CFOP:        item.CFOP.Code(),
			Unit:        item.Unit,
			Quantity:    item.Quantity.String(),
			UnitPrice:   item.UnitPrice.String(),
			Total:       item.Total().StringFixed(2),
			AccountID:   item.AccountID,
		})
	}

	response := &FiscalDocumentResponse{
		ID:               doc.ID,
		OrganizationID:   doc.OrganizationID,
		BranchID:         doc.BranchID,
		DocumentType:     string(doc.DocumentType),
		Series:           doc.Series,
		Number:           doc.Number,
		FiscalKey:        doc.FiscalKey.String(),
		IssuerCNPJ:       doc.IssuerCNPJ,
		IssuerName:       doc.IssuerName,
		RecipientCNPJCPF: doc.RecipientCNPJCPF,
		RecipientName:    doc.RecipientName,
		IssueDate:        doc.IssueDate,
		Status:           string(doc.Status),
		Manifestation:    string(doc.Manifestation),
		Role:             string(doc.Role),
		TotalValue:       doc.TotalValue.StringFixed(2),
		Currency:         string(doc.Currency),
		Items:            items,
		AccountingStatus: string(doc.AccountingStatus),
		JournalEntryID:   doc.JournalEntryID,
		AuthorizedAt:     doc.AuthorizedAt,
		Protocol:         doc.Protocol,
		CancelledAt:      doc.CancelledAt,
		CancelReason:     doc.CancelReason,
		CargoDescription: doc.CargoDescription,
		XMLArchiveURI:    doc.XMLArchiveURI,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
		Version:          doc.Version,
	}
	if !doc.CargoWeightKg.IsZero() {
		response.CargoWeightKg = doc.CargoWeightKg.String()
	}
	return response
}

// ImportNFeRequest represents an NFe XML import request
type ImportNFeRequest struct {
	BranchCNPJ string     `json:"branch_cnpj" binding:"required"`
	XML        []byte     `json:"-"`
	ImportedBy *uuid.UUID `json:"-"` // Set from JWT context, not from request body
}

// CancelDocumentRequest carries the cancellation justification
type CancelDocumentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AuthorizeDocumentRequest carries the authority protocol
type AuthorizeDocumentRequest struct {
	Protocol string `json:"protocol" binding:"required"`
}

// ManifestDocumentRequest carries the recipient manifestation
type ManifestDocumentRequest struct {
	Status string `json:"status" binding:"required"`
}

// CategorizeItemRequest assigns an account to a line item
type CategorizeItemRequest struct {
	AccountID uuid.UUID `json:"account_id" binding:"required"`
}

// ===================== Import =====================

func importKey(organizationID uuid.UUID, fiscalKey string) string {
	return fmt.Sprintf("nfe_import:%s:%s", organizationID, fiscalKey)
}

// ImportNFe parses an NFe XML, classifies the branch's role, archives
// the raw XML and persists the document. The same fiscal key is
// imported at most once per organization: a redis idempotency mark
// absorbs double submissions and the repository check backs it up.
func (s *DocumentService) ImportNFe(ctx context.Context, organizationID, branchID uuid.UUID, req ImportNFeRequest) (*FiscalDocumentResponse, error) {
	summary, err := s.parser.Parse(req.XML)
	if err != nil {
		s.logger.Warn("NFe XML parse failed",
			zap.String("organization_id", organizationID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INVALID_XML", err.Error())
	}

	exists, err := s.docRepo.ExistsByFiscalKey(ctx, organizationID, summary.FiscalKey)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Document with fiscal key %s was already imported", summary.FiscalKey))
	}

	fresh, err := s.idempotency.MarkProcessed(ctx, importKey(organizationID, summary.FiscalKey), importIdempotencyTTL)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return nil, shared.NewDomainError("DUPLICATE_IMPORT", fmt.Sprintf("Import of fiscal key %s is already in progress", summary.FiscalKey))
	}

	role := s.classifier.ClassifyNFe(*summary, req.BranchCNPJ)

	doc, err := fiscal.NewFiscalDocument(
		organizationID,
		branchID,
		fiscal.DocumentTypeNFe,
		summary.Series,
		summary.Number,
		summary.Issuer.CNPJ,
		summary.Issuer.Name,
		summary.IssueDate,
		summary.FiscalKey,
		valueobject.NewMoneyBRL(summary.Total),
	)
	if err != nil {
		return nil, err
	}
	doc.SetRecipient(summary.Recipient.CNPJ, summary.Recipient.Name)
	doc.SetRole(role)
	if req.ImportedBy != nil {
		doc.SetCreatedBy(*req.ImportedBy)
	}

	for _, item := range summary.Items {
		cfop, err := valueobject.NewCFOP(item.CFOP)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_CFOP", fmt.Sprintf("Item %q: %s", item.Description, err.Error()))
		}
		if _, err := doc.AddItem(item.ProductCode, item.Description, item.NCM, cfop, item.Unit, item.Quantity, valueobject.NewMoneyBRL(item.UnitPrice)); err != nil {
			return nil, err
		}
	}

	// XML from SEFAZ proc documents is already authorized
	if summary.Protocol != "" {
		if err := doc.Submit(); err != nil {
			return nil, err
		}
		if err := doc.Authorize(summary.Protocol); err != nil {
			return nil, err
		}
	}

	uri, err := s.archive.Store(ctx, organizationID, summary.FiscalKey, req.XML)
	if err != nil {
		s.logger.Error("XML archive failed",
			zap.String("fiscal_key", summary.FiscalKey),
			zap.Error(err))
		return nil, err
	}
	doc.SetXMLArchiveURI(uri)

	if err := s.docRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("NFe imported",
		zap.String("organization_id", organizationID.String()),
		zap.String("fiscal_key", summary.FiscalKey),
		zap.String("role", string(role)),
		zap.Int("items", len(doc.Items)))

	return toFiscalDocumentResponse(doc), nil
}

// ===================== CRUD =====================

// GetDocument loads one document
func (s *DocumentService) GetDocument(ctx context.Context, organizationID, id uuid.UUID) (*FiscalDocumentResponse, error) {
	doc, err := s.findDocument(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	return toFiscalDocumentResponse(doc), nil
}

// ListDocuments lists documents with filtering and pagination
func (s *DocumentService) ListDocuments(ctx context.Context, organizationID uuid.UUID, filter fiscal.FiscalDocumentFilter) ([]FiscalDocumentResponse, int64, error) {
	docs, err := s.docRepo.FindAllForOrg(ctx, organizationID, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.docRepo.CountForOrg(ctx, organizationID, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]FiscalDocumentResponse, 0, len(docs))
	for i := range docs {
		responses = append(responses, *toFiscalDocumentResponse(&docs[i]))
	}
	return responses, total, nil
}

func (s *DocumentService) findDocument(ctx context.Context, organizationID, id uuid.UUID) (*fiscal.FiscalDocument, error) {
	doc, err := s.docRepo.FindByIDForOrg(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Fiscal document not found")
	}
	return doc, nil
}

// ===================== Workflow =====================

// transition loads the document, applies fn and saves with the
// optimistic lock.
func (s *DocumentService) transition(ctx context.Context, organizationID, id uuid.UUID, userID *uuid.UUID, fn func(*fiscal.FiscalDocument) error) (*FiscalDocumentResponse, error) {
	doc, err := s.findDocument(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if userID != nil {
		doc.SetUpdatedBy(*userID)
	}
	if err := s.docRepo.SaveWithLock(ctx, doc); err != nil {
		return nil, err
	}
	return toFiscalDocumentResponse(doc), nil
}

// SubmitDocument sends a draft for authorization
func (s *DocumentService) SubmitDocument(ctx context.Context, organizationID, id uuid.UUID, userID *uuid.UUID) (*FiscalDocumentResponse, error) {
	return s.transition(ctx, organizationID, id, userID, func(doc *fiscal.FiscalDocument) error {
		return doc.Submit()
	})
}

// AuthorizeDocument records the authority's authorization
func (s *DocumentService) AuthorizeDocument(ctx context.Context, organizationID, id uuid.UUID, req AuthorizeDocumentRequest, userID *uuid.UUID) (*FiscalDocumentResponse, error) {
	return s.transition(ctx, organizationID, id, userID, func(doc *fiscal.FiscalDocument) error {
		return doc.Authorize(req.Protocol)
	})
}

// CancelDocument cancels the document with a justified reason
func (s *DocumentService) CancelDocument(ctx context.Context, organizationID, id uuid.UUID, req CancelDocumentRequest, userID *uuid.UUID) (*FiscalDocumentResponse, error) {
	response, err := s.transition(ctx, organizationID, id, userID, func(doc *fiscal.FiscalDocument) error {
		return doc.Cancel(req.Reason)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Fiscal document cancelled",
		zap.String("organization_id", organizationID.String()),
		zap.String("document_id", id.String()))
	return response, nil
}

// ManifestDocument records the recipient manifestation of an NFe
func (s *DocumentService) ManifestDocument(ctx context.Context, organizationID, id uuid.UUID, req ManifestDocumentRequest, userID *uuid.UUID) (*FiscalDocumentResponse, error) {
	return s.transition(ctx, organizationID, id, userID, func(doc *fiscal.FiscalDocument) error {
		return doc.Manifest(fiscal.ManifestationStatus(req.Status))
	})
}

// CategorizeItem assigns a chart-of-accounts account to a line item
func (s *DocumentService) CategorizeItem(ctx context.Context, organizationID, documentID, itemID uuid.UUID, req CategorizeItemRequest, userID *uuid.UUID) (*FiscalDocumentResponse, error) {
	return s.transition(ctx, organizationID, documentID, userID, func(doc *fiscal.FiscalDocument) error {
		return doc.CategorizeItem(itemID, req.AccountID)
	})
}

// ===================== Tax calculations =====================

// TaxCreditRequest selects the document slice to compute credits for.
// When CFOP is empty the first item's CFOP is used.
type TaxCreditRequest struct {
	CFOP string `json:"cfop"`
}

// TaxCreditResponse carries the computed credits
type TaxCreditResponse struct {
	DocumentID   uuid.UUID `json:"document_id"`
	CFOP         string    `json:"cfop"`
	NetAmount    string    `json:"net_amount"`
	PISCredit    string    `json:"pis_credit"`
	COFINSCredit string    `json:"cofins_credit"`
	TotalCredit  string    `json:"total_credit"`
}

// CalculateTaxCredit computes PIS/COFINS input credits for a document
func (s *DocumentService) CalculateTaxCredit(ctx context.Context, organizationID, id uuid.UUID, req TaxCreditRequest) (*TaxCreditResponse, error) {
	doc, err := s.findDocument(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}

	cfop := req.CFOP
	if cfop == "" && len(doc.Items) > 0 {
		cfop = doc.Items[0].CFOP.Code()
	}

	result, err := s.taxCalc.Calculate(fiscal.TaxCreditInput{
		DocumentID:   doc.ID,
		DocumentType: doc.DocumentType,
		CFOP:         cfop,
		NetAmount:    doc.TotalValueMoney(),
	})
	if err != nil {
		return nil, err
	}
	total, err := result.TotalCredit()
	if err != nil {
		return nil, err
	}

	return &TaxCreditResponse{
		DocumentID:   doc.ID,
		CFOP:         cfop,
		NetAmount:    doc.TotalValue.StringFixed(2),
		PISCredit:    result.PISCredit.StringFixed(2),
		COFINSCredit: result.COFINSCredit.StringFixed(2),
		TotalCredit:  total.StringFixed(2),
	}, nil
}

// IBSCalculationRequest carries the inputs of an IBS computation. When
// Year is set the transition-schedule rates for that year are used;
// otherwise explicit rates are required.
type IBSCalculationRequest struct {
	BaseValue     decimal.Decimal  `json:"base_value" binding:"required"`
	Year          int              `json:"year"`
	UFRate        *decimal.Decimal `json:"uf_rate"`
	MunRate       *decimal.Decimal `json:"mun_rate"`
	UFCode        string           `json:"uf_code" binding:"required"`
	MunicipioCode string           `json:"municipio_code"`
	ReductionRate *decimal.Decimal `json:"reduction_rate"`
	DeferralRate  *decimal.Decimal `json:"deferral_rate"`
}

// IBSCalculationResponse carries the computed IBS split
type IBSCalculationResponse struct {
	OriginalBase  string  `json:"original_base"`
	EffectiveBase string  `json:"effective_base"`
	IBSUFValue    string  `json:"ibs_uf_value"`
	IBSMunValue   string  `json:"ibs_mun_value"`
	TotalIBS      string  `json:"total_ibs"`
	DeferredValue *string `json:"deferred_value,omitempty"`
}

// CalculateIBS computes the IBS UF/municipal split for a base value
func (s *DocumentService) CalculateIBS(ctx context.Context, req IBSCalculationRequest) (*IBSCalculationResponse, error) {
	var ufRate, munRate valueobject.AliquotaIBS
	switch {
	case req.Year != 0:
		rates, err := fiscal.RatesForYear(req.Year)
		if err != nil {
			return nil, err
		}
		ufRate, munRate = rates.UFRate, rates.MunRate
	case req.UFRate != nil && req.MunRate != nil:
		var err error
		ufRate, err = valueobject.NewAliquotaIBS(*req.UFRate)
		if err != nil {
			return nil, err
		}
		munRate, err = valueobject.NewAliquotaIBS(*req.MunRate)
		if err != nil {
			return nil, err
		}
	default:
		return nil, shared.NewDomainError("INVALID_INPUT", "Either year or explicit UF and município rates are required")
	}

	result, err := s.ibsCalc.Calculate(fiscal.IBSCalculationInput{
		BaseValue:     valueobject.NewMoneyBRL(req.BaseValue),
		IBSUFRate:     ufRate,
		IBSMunRate:    munRate,
		UFCode:        req.UFCode,
		MunicipioCode: req.MunicipioCode,
		ReductionRate: req.ReductionRate,
		DeferralRate:  req.DeferralRate,
	})
	if err != nil {
		return nil, err
	}

	response := &IBSCalculationResponse{
		OriginalBase:  result.OriginalBase.StringFixed(2),
		EffectiveBase: result.EffectiveBase.StringFixed(2),
		IBSUFValue:    result.IBSUFValue.StringFixed(2),
		IBSMunValue:   result.IBSMunValue.StringFixed(2),
		TotalIBS:      result.TotalIBS.StringFixed(2),
	}
	if result.DeferredValue != nil {
		deferred := result.DeferredValue.StringFixed(2)
		response.DeferredValue = &deferred
	}
	return response, nil
}
