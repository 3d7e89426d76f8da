package fiscal

import (
	"context"
	"time"

	"github.com/fiscaltms/backend/internal/domain/fiscal"
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/fiscaltms/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NFSeService provides application-level service invoice operations
type NFSeService struct {
	nfseRepo fiscal.NFSeDocumentRepository
	logger   *zap.Logger
}

// NewNFSeService creates a new NFSeService
func NewNFSeService(nfseRepo fiscal.NFSeDocumentRepository, logger *zap.Logger) *NFSeService {
	return &NFSeService{
		nfseRepo: nfseRepo,
		logger:   logger,
	}
}

// NFSeResponse represents a service invoice in API responses
type NFSeResponse struct {
	ID                 uuid.UUID  `json:"id"`
	OrganizationID     uuid.UUID  `json:"organization_id"`
	BranchID           uuid.UUID  `json:"branch_id"`
	RPSNumber          string     `json:"rps_number"`
	PrestadorCNPJ      string     `json:"prestador_cnpj"`
	PrestadorName      string     `json:"prestador_name"`
	TomadorCNPJCPF     string     `json:"tomador_cnpj_cpf,omitempty"`
	TomadorName        string     `json:"tomador_name,omitempty"`
	ServiceCode        string     `json:"service_code"`
	ServiceDescription string     `json:"service_description"`
	ServiceValue       string     `json:"service_value"`
	ISSRate            string     `json:"iss_rate"`
	ISSValue           string     `json:"iss_value"`
	ISSRetained        bool       `json:"iss_retained"`
	ValorLiquido       string     `json:"valor_liquido"`
	Status             string     `json:"status"`
	IssueDate          time.Time  `json:"issue_date"`
	AuthorizedAt       *time.Time `json:"authorized_at,omitempty"`
	VerificationCode   string     `json:"verification_code,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelReason       string     `json:"cancel_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	Version            int        `json:"version"`
}

func toNFSeResponse(doc *fiscal.NFSeDocument) *NFSeResponse {
	return &NFSeResponse{
		ID:                 doc.ID,
		OrganizationID:     doc.OrganizationID,
		BranchID:           doc.BranchID,
		RPSNumber:          doc.RPSNumber,
		PrestadorCNPJ:      doc.PrestadorCNPJ,
		PrestadorName:      doc.PrestadorName,
		TomadorCNPJCPF:     doc.TomadorCNPJCPF,
		TomadorName:        doc.TomadorName,
		ServiceCode:        doc.ServiceCode,
		ServiceDescription: doc.ServiceDescription,
		ServiceValue:       doc.ServiceValue.StringFixed(2),
		ISSRate:            doc.ISSRate.String(),
		ISSValue:           doc.ISSValue.StringFixed(2),
		ISSRetained:        doc.ISSRetained,
		ValorLiquido:       doc.ValorLiquido.StringFixed(2),
		Status:             string(doc.Status),
		IssueDate:          doc.IssueDate,
		AuthorizedAt:       doc.AuthorizedAt,
		VerificationCode:   doc.VerificationCode,
		CancelledAt:        doc.CancelledAt,
		CancelReason:       doc.CancelReason,
		CreatedAt:          doc.CreatedAt,
		Version:            doc.Version,
	}
}

// CreateNFSeRequest represents a request to create a service invoice
type CreateNFSeRequest struct {
	RPSNumber          string          `json:"rps_number" binding:"required"`
	PrestadorCNPJ      string          `json:"prestador_cnpj" binding:"required,cnpj"`
	PrestadorName      string          `json:"prestador_name" binding:"required"`
	TomadorCNPJCPF     string          `json:"tomador_cnpj_cpf"`
	TomadorName        string          `json:"tomador_name"`
	ServiceCode        string          `json:"service_code" binding:"required"`
	ServiceDescription string          `json:"service_description" binding:"required"`
	ServiceValue       decimal.Decimal `json:"service_value" binding:"required"`
	ISSRate            decimal.Decimal `json:"iss_rate"`
	ISSRetained        bool            `json:"iss_retained"`
	IssueDate          time.Time       `json:"issue_date" binding:"required"`
	CreatedBy          *uuid.UUID      `json:"-"` // Set from JWT context, not from request body
}

// AuthorizeNFSeRequest carries the municipal verification code
type AuthorizeNFSeRequest struct {
	VerificationCode string `json:"verification_code" binding:"required"`
}

// CancelNFSeRequest carries the cancellation justification
type CancelNFSeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CreateNFSe creates a service invoice in DRAFT
func (s *NFSeService) CreateNFSe(ctx context.Context, organizationID, branchID uuid.UUID, req CreateNFSeRequest) (*NFSeResponse, error) {
	existing, err := s.nfseRepo.FindByRPSNumber(ctx, organizationID, branchID, req.RPSNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A service invoice with this RPS number already exists")
	}

	doc, err := fiscal.NewNFSeDocument(
		organizationID,
		branchID,
		req.RPSNumber,
		req.PrestadorCNPJ,
		req.PrestadorName,
		req.TomadorCNPJCPF,
		req.TomadorName,
		req.ServiceCode,
		req.ServiceDescription,
		valueobject.NewMoneyBRL(req.ServiceValue),
		req.ISSRate,
		req.ISSRetained,
		req.IssueDate,
	)
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != nil {
		doc.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.nfseRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("NFSe created",
		zap.String("organization_id", organizationID.String()),
		zap.String("rps_number", doc.RPSNumber))

	return toNFSeResponse(doc), nil
}

// GetNFSe loads one service invoice
func (s *NFSeService) GetNFSe(ctx context.Context, organizationID, id uuid.UUID) (*NFSeResponse, error) {
	doc, err := s.findNFSe(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	return toNFSeResponse(doc), nil
}

// ListNFSe lists service invoices with filtering and pagination
func (s *NFSeService) ListNFSe(ctx context.Context, organizationID uuid.UUID, filter fiscal.NFSeDocumentFilter) ([]NFSeResponse, int64, error) {
	docs, err := s.nfseRepo.FindAllForOrg(ctx, organizationID, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.nfseRepo.CountForOrg(ctx, organizationID, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]NFSeResponse, 0, len(docs))
	for i := range docs {
		responses = append(responses, *toNFSeResponse(&docs[i]))
	}
	return responses, total, nil
}

func (s *NFSeService) findNFSe(ctx context.Context, organizationID, id uuid.UUID) (*fiscal.NFSeDocument, error) {
	doc, err := s.nfseRepo.FindByIDForOrg(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Service invoice not found")
	}
	return doc, nil
}

func (s *NFSeService) transition(ctx context.Context, organizationID, id uuid.UUID, userID *uuid.UUID, fn func(*fiscal.NFSeDocument) error) (*NFSeResponse, error) {
	doc, err := s.findNFSe(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if userID != nil {
		doc.SetUpdatedBy(*userID)
	}
	if err := s.nfseRepo.SaveWithLock(ctx, doc); err != nil {
		return nil, err
	}
	return toNFSeResponse(doc), nil
}

// SubmitNFSe sends the invoice to the municipality
func (s *NFSeService) SubmitNFSe(ctx context.Context, organizationID, id uuid.UUID, userID *uuid.UUID) (*NFSeResponse, error) {
	return s.transition(ctx, organizationID, id, userID, func(doc *fiscal.NFSeDocument) error {
		return doc.Submit()
	})
}

// AuthorizeNFSe records the municipal authorization
func (s *NFSeService) AuthorizeNFSe(ctx context.Context, organizationID, id uuid.UUID, req AuthorizeNFSeRequest, userID *uuid.UUID) (*NFSeResponse, error) {
	return s.transition(ctx, organizationID, id, userID, func(doc *fiscal.NFSeDocument) error {
		return doc.Authorize(req.VerificationCode)
	})
}

// CancelNFSe cancels an authorized invoice
func (s *NFSeService) CancelNFSe(ctx context.Context, organizationID, id uuid.UUID, req CancelNFSeRequest, userID *uuid.UUID) (*NFSeResponse, error) {
	response, err := s.transition(ctx, organizationID, id, userID, func(doc *fiscal.NFSeDocument) error {
		return doc.Cancel(req.Reason)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("NFSe cancelled",
		zap.String("organization_id", organizationID.String()),
		zap.String("nfse_id", id.String()))
	return response, nil
}
