package handler

import (
	"io"
	"net/http"
	"time"

	appfiscal "github.com/fiscaltms/backend/internal/application/fiscal"
	"github.com/fiscaltms/backend/internal/domain/fiscal"
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/fiscaltms/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FiscalDocumentHandler serves the fiscal document lifecycle API
type FiscalDocumentHandler struct {
	BaseHandler
	service *appfiscal.DocumentService
}

// NewFiscalDocumentHandler creates a new FiscalDocumentHandler
func NewFiscalDocumentHandler(service *appfiscal.DocumentService) *FiscalDocumentHandler {
	return &FiscalDocumentHandler{service: service}
}

// RegisterRoutes registers fiscal document routes
func (h *FiscalDocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	docs := rg.Group("/fiscal-documents")
	{
		docs.POST("/import", h.ImportNFe)
		docs.GET("", h.ListDocuments)
		docs.GET("/:id", h.GetDocument)
		docs.POST("/:id/submit", h.SubmitDocument)
		docs.POST("/:id/authorize", h.AuthorizeDocument)
		docs.POST("/:id/cancel", h.CancelDocument)
		docs.POST("/:id/manifest", h.ManifestDocument)
		docs.PUT("/:id/items/:itemID/account", h.CategorizeItem)
		docs.POST("/:id/tax-credit", h.CalculateTaxCredit)
	}
	rg.POST("/tax/ibs", h.CalculateIBS)
}

// ImportNFe imports an authorized NFe from its raw XML. The XML is the
// request body; the receiving branch's CNPJ comes as a query parameter
// so the classifier can decide the document role.
func (h *FiscalDocumentHandler) ImportNFe(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Organization not found in token")
		return
	}
	branchID, err := getBranchID(c)
	if err != nil {
		h.Unauthorized(c, "Branch not found in token")
		return
	}
	userID, _ := getUserID(c)

	branchCNPJ := c.Query("branch_cnpj")
	if branchCNPJ == "" {
		h.BadRequest(c, "branch_cnpj query parameter is required")
		return
	}

	xml, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(xml) == 0 {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidXML, "Request body must contain the NFe XML")
		return
	}

	req := appfiscal.ImportNFeRequest{
		BranchCNPJ: branchCNPJ,
		XML:        xml,
	}
	if userID != uuid.Nil {
		req.ImportedBy = &userID
	}

	doc, err := h.service.ImportNFe(c.Request.Context(), orgID, branchID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, doc)
}

// listDocumentsRequest binds the list query parameters
type listDocumentsRequest struct {
	dto.ListRequest
	BranchID         string `form:"branch_id"`
	DocumentType     string `form:"document_type"`
	Status           string `form:"status"`
	AccountingStatus string `form:"accounting_status"`
	Role             string `form:"role"`
	IssuerCNPJ       string `form:"issuer_cnpj"`
	IssueDateFrom    string `form:"issue_date_from"`
	IssueDateTo      string `form:"issue_date_to"`
}

// ListDocuments lists fiscal documents with filters and pagination
func (h *FiscalDocumentHandler) ListDocuments(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Organization not found in token")
		return
	}

	var req listDocumentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := fiscal.FiscalDocumentFilter{
		Pagination: shared.Pagination{Page: req.PageOrDefault(), PageSize: req.PageSizeOrDefault(), SortBy: req.SortBy, SortOrder: req.SortOrder},
	}
	if req.BranchID != "" {
		branchID, err := uuid.Parse(req.BranchID)
		if err != nil {
			h.BadRequest(c, "Invalid branch_id")
			return
		}
		filter.BranchID = &branchID
	}
	if req.DocumentType != "" {
		docType := fiscal.DocumentType(req.DocumentType)
		filter.DocumentType = &docType
	}
	if req.Status != "" {
		status := fiscal.DocumentStatus(req.Status)
		filter.Status = &status
	}
	if req.AccountingStatus != "" {
		accStatus := fiscal.AccountingStatus(req.AccountingStatus)
		filter.AccountingStatus = &accStatus
	}
	if req.Role != "" {
		role := fiscal.DocumentRole(req.Role)
		filter.Role = &role
	}
	if req.IssuerCNPJ != "" {
		filter.IssuerCNPJ = &req.IssuerCNPJ
	}
	if filter.IssueDateFrom, err = parseDateParam(req.IssueDateFrom); err != nil {
		h.BadRequest(c, "Invalid issue_date_from, expected YYYY-MM-DD")
		return
	}
	if filter.IssueDateTo, err = parseDateParam(req.IssueDateTo); err != nil {
		h.BadRequest(c, "Invalid issue_date_to, expected YYYY-MM-DD")
		return
	}

	docs, total, err := h.service.ListDocuments(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, docs, total, filter.Page, filter.PageSize)
}

// GetDocument returns a single fiscal document with its items
func (h *FiscalDocumentHandler) GetDocument(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Organization not found in token")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID")
		return
	}

	doc, err := h.service.GetDocument(c.Request.Context(), orgID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, doc)
}

// SubmitDocument moves a DRAFT document to PENDING_AUTHORIZATION
func (h *FiscalDocumentHandler) SubmitDocument(c *gin.Context) {
	h.runTransition(c, func(ctx *gin.Context, orgID, id uuid.UUID, userID *uuid.UUID) (*appfiscal.FiscalDocumentResponse, error) {
		return h.service.SubmitDocument(ctx.Request.Context(), orgID, id, userID)
	})
}

// AuthorizeDocument records the authority protocol and authorizes the document
func (h *FiscalDocumentHandler) AuthorizeDocument(c *gin.Context) {
	var req appfiscal.AuthorizeDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}
	h.runTransition(c, func(ctx *gin.Context, orgID, id uuid.UUID, userID *uuid.UUID) (*appfiscal.FiscalDocumentResponse, error) {
		return h.service.AuthorizeDocument(ctx.Request.Context(), orgID, id, req, userID)
	})
}

// CancelDocument cancels a document with a justification
func (h *FiscalDocumentHandler) CancelDocument(c *gin.Context) {
	var req appfiscal.CancelDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}
	h.runTransition(c, func(ctx *gin.Context, orgID, id uuid.UUID, userID *uuid.UUID) (*appfiscal.FiscalDocumentResponse, error) {
		return h.service.CancelDocument(ctx.Request.Context(), orgID, id, req, userID)
	})
}

// ManifestDocument records the recipient manifestation on an inbound document
func (h *FiscalDocumentHandler) ManifestDocument(c *gin.Context) {
	var req appfiscal.ManifestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}
	h.runTransition(c, func(ctx *gin.Context, orgID, id uuid.UUID, userID *uuid.UUID) (*appfiscal.FiscalDocumentResponse, error) {
		return h.service.ManifestDocument(ctx.Request.Context(), orgID, id, req, userID)
	})
}

// CategorizeItem assigns an analytical account to a line item
func (h *FiscalDocumentHandler) CategorizeItem(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Organization not found in token")
		return
	}
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID")
		return
	}
	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID")
		return
	}

	var req appfiscal.CategorizeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}

	userID := userIDPointer(c)
	doc, err := h.service.CategorizeItem(c.Request.Context(), orgID, documentID, itemID, req, userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, doc)
}

// CalculateTaxCredit computes PIS/COFINS input credits for a document
func (h *FiscalDocumentHandler) CalculateTaxCredit(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Organization not found in token")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID")
		return
	}

	var req appfiscal.TaxCreditRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.service.CalculateTaxCredit(c.Request.Context(), orgID, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// CalculateIBS computes the IBS UF/municipal split for a base value
func (h *FiscalDocumentHandler) CalculateIBS(c *gin.Context) {
	var req appfiscal.IBSCalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.service.CalculateIBS(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// runTransition factors the shared shape of the workflow action handlers
func (h *FiscalDocumentHandler) runTransition(c *gin.Context, fn func(*gin.Context, uuid.UUID, uuid.UUID, *uuid.UUID) (*appfiscal.FiscalDocumentResponse, error)) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Organization not found in token")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID")
		return
	}

	doc, err := fn(c, orgID, id, userIDPointer(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, doc)
}

// userIDPointer returns the authenticated user ID or nil
func userIDPointer(c *gin.Context) *uuid.UUID {
	userID, err := getUserID(c)
	if err != nil || userID == uuid.Nil {
		return nil
	}
	return &userID
}

// parseDateParam parses an optional YYYY-MM-DD query parameter
func parseDateParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
