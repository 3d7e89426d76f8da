package handler

import (
	"net/http"

	appfiscal "github.com/fiscaltms/backend/internal/application/fiscal"
	"github.com/fiscaltms/backend/internal/domain/fiscal"
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/fiscaltms/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NFSeHandler serves the municipal service invoice API
type NFSeHandler struct {
	BaseHandler
	service *appfiscal.NFSeService
}

// NewNFSeHandler creates a new NFSeHandler
func NewNFSeHandler(service *appfiscal.NFSeService) *NFSeHandler {
	return &NFSeHandler{service: service}
}

// RegisterRoutes registers service invoice routes
func (h *NFSeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	nfse := rg.Group("/nfse")
	{
		nfse.POST("", h.CreateNFSe)
		nfse.GET("", h.ListNFSe)
		nfse.GET("/:id", h.GetNFSe)
		nfse.POST("/:id/submit", h.SubmitNFSe)
		nfse.POST("/:id/authorize", h.AuthorizeNFSe)
		nfse.POST("/:id/cancel", h.CancelNFSe)
	}
}

// CreateNFSe creates a service invoice in DRAFT
func (h *NFSeHandler) CreateNFSe(c *gin.Context) {
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

	var req appfiscal.CreateNFSeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}
	req.CreatedBy = userIDPointer(c)

	invoice, err := h.service.CreateNFSe(c.Request.Context(), orgID, branchID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, invoice)
}

// listNFSeRequest binds the list query parameters
type listNFSeRequest struct {
	dto.ListRequest
	BranchID      string `form:"branch_id"`
	Status        string `form:"status"`
	PrestadorCNPJ string `form:"prestador_cnpj"`
	IssueDateFrom string `form:"issue_date_from"`
	IssueDateTo   string `form:"issue_date_to"`
}

// ListNFSe lists service invoices with filters and pagination
func (h *NFSeHandler) ListNFSe(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Organization not found in token")
		return
	}

	var req listNFSeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := fiscal.NFSeDocumentFilter{
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
	if req.Status != "" {
		status := fiscal.NFSeStatus(req.Status)
		filter.Status = &status
	}
	if req.PrestadorCNPJ != "" {
		filter.PrestadorCNPJ = &req.PrestadorCNPJ
	}
	if filter.IssueDateFrom, err = parseDateParam(req.IssueDateFrom); err != nil {
		h.BadRequest(c, "Invalid issue_date_from, expected YYYY-MM-DD")
		return
	}
	if filter.IssueDateTo, err = parseDateParam(req.IssueDateTo); err != nil {
		h.BadRequest(c, "Invalid issue_date_to, expected YYYY-MM-DD")
		return
	}

	invoices, total, err := h.service.ListNFSe(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, invoices, total, filter.Page, filter.PageSize)
}

// GetNFSe returns a single service invoice
func (h *NFSeHandler) GetNFSe(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Organization not found in token")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := h.service.GetNFSe(c.Request.Context(), orgID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, invoice)
}

// SubmitNFSe sends a DRAFT invoice to the municipality
func (h *NFSeHandler) SubmitNFSe(c *gin.Context) {
	h.runNFSeTransition(c, func(ctx *gin.Context, orgID, id uuid.UUID, userID *uuid.UUID) (*appfiscal.NFSeResponse, error) {
		return h.service.SubmitNFSe(ctx.Request.Context(), orgID, id, userID)
	})
}

// AuthorizeNFSe records the municipal verification code
func (h *NFSeHandler) AuthorizeNFSe(c *gin.Context) {
	var req appfiscal.AuthorizeNFSeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}
	h.runNFSeTransition(c, func(ctx *gin.Context, orgID, id uuid.UUID, userID *uuid.UUID) (*appfiscal.NFSeResponse, error) {
		return h.service.AuthorizeNFSe(ctx.Request.Context(), orgID, id, req, userID)
	})
}

// CancelNFSe cancels an invoice with a justification
func (h *NFSeHandler) CancelNFSe(c *gin.Context) {
	var req appfiscal.CancelNFSeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}
	h.runNFSeTransition(c, func(ctx *gin.Context, orgID, id uuid.UUID, userID *uuid.UUID) (*appfiscal.NFSeResponse, error) {
		return h.service.CancelNFSe(ctx.Request.Context(), orgID, id, req, userID)
	})
}

func (h *NFSeHandler) runNFSeTransition(c *gin.Context, fn func(*gin.Context, uuid.UUID, uuid.UUID, *uuid.UUID) (*appfiscal.NFSeResponse, error)) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Organization not found in token")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := fn(c, orgID, id, userIDPointer(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, invoice)
}
