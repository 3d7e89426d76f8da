package handler

import (
	"net/http"

	appaccounting "github.com/fiscaltms/backend/internal/application/accounting"
	"github.com/fiscaltms/backend/internal/domain/accounting"
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/fiscaltms/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountingHandler serves the journal entry and chart-of-accounts API
type AccountingHandler struct {
	BaseHandler
	engine   *appaccounting.EngineService
	accounts *appaccounting.AccountService
}

// NewAccountingHandler creates a new AccountingHandler
func NewAccountingHandler(engine *appaccounting.EngineService, accounts *appaccounting.AccountService) *AccountingHandler {
	return &AccountingHandler{engine: engine, accounts: accounts}
}

// RegisterRoutes registers accounting routes
func (h *AccountingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	entries := rg.Group("/journal-entries")
	{
		entries.POST("", h.GenerateEntry)
		entries.GET("", h.ListEntries)
		entries.GET("/:id", h.GetEntry)
		entries.POST("/:id/reverse", h.ReverseEntry)
	}
	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.CreateAccount)
		accounts.GET("", h.ListAccounts)
		accounts.GET("/:id", h.GetAccount)
		accounts.POST("/:id/deactivate", h.DeactivateAccount)
	}
}

// generateEntryRequest selects the fiscal document to post
type generateEntryRequest struct {
	DocumentID uuid.UUID `json:"document_id" binding:"required"`
}

// GenerateEntry posts the journal entry for a categorized fiscal document
func (h *AccountingHandler) GenerateEntry(c *gin.Context) {
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

	var req generateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.engine.GenerateJournalEntry(c.Request.Context(), orgID, branchID, req.DocumentID, userIDPointer(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, entry)
}

// ReverseEntry reverses a posted journal entry and reopens the document
func (h *AccountingHandler) ReverseEntry(c *gin.Context) {
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
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID")
		return
	}

	reversal, err := h.engine.ReverseJournalEntry(c.Request.Context(), orgID, branchID, entryID, userIDPointer(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, reversal)
}

// GetEntry returns a journal entry with its lines
func (h *AccountingHandler) GetEntry(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Organization not found in token")
		return
	}
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID")
		return
	}

	entry, err := h.engine.GetJournalEntry(c.Request.Context(), orgID, entryID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, entry)
}

// listEntriesRequest binds the list query parameters
type listEntriesRequest struct {
	dto.ListRequest
	BranchID         string `form:"branch_id"`
	Status           string `form:"status"`
	Source           string `form:"source"`
	SourceDocumentID string `form:"source_document_id"`
	EntryDateFrom    string `form:"entry_date_from"`
	EntryDateTo      string `form:"entry_date_to"`
}

// ListEntries lists journal entries with filters and pagination
func (h *AccountingHandler) ListEntries(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Organization not found in token")
		return
	}

	var req listEntriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := accounting.JournalEntryFilter{
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
		status := accounting.EntryStatus(req.Status)
		filter.Status = &status
	}
	if req.Source != "" {
		source := accounting.EntrySource(req.Source)
		filter.Source = &source
	}
	if req.SourceDocumentID != "" {
		docID, err := uuid.Parse(req.SourceDocumentID)
		if err != nil {
			h.BadRequest(c, "Invalid source_document_id")
			return
		}
		filter.SourceDocumentID = &docID
	}
	if filter.EntryDateFrom, err = parseDateParam(req.EntryDateFrom); err != nil {
		h.BadRequest(c, "Invalid entry_date_from, expected YYYY-MM-DD")
		return
	}
	if filter.EntryDateTo, err = parseDateParam(req.EntryDateTo); err != nil {
		h.BadRequest(c, "Invalid entry_date_to, expected YYYY-MM-DD")
		return
	}

	entries, total, err := h.engine.ListJournalEntries(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, entries, total, filter.Page, filter.PageSize)
}

// CreateAccount adds an account to the organization's chart
func (h *AccountingHandler) CreateAccount(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Organization not found in token")
		return
	}

	var req appaccounting.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}

	account, err := h.accounts.CreateAccount(c.Request.Context(), orgID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, account)
}

// ListAccounts lists the organization's chart of accounts
func (h *AccountingHandler) ListAccounts(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Organization not found in token")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	pagination := shared.Pagination{Page: req.PageOrDefault(), PageSize: req.PageSizeOrDefault(), SortBy: req.SortBy, SortOrder: req.SortOrder}

	accounts, total, err := h.accounts.ListAccounts(c.Request.Context(), orgID, pagination)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, accounts, total, pagination.Page, pagination.PageSize)
}

// GetAccount returns one chart-of-accounts entry
func (h *AccountingHandler) GetAccount(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Organization not found in token")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID")
		return
	}

	account, err := h.accounts.GetAccount(c.Request.Context(), orgID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, account)
}

// DeactivateAccount blocks an account from receiving new postings
func (h *AccountingHandler) DeactivateAccount(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Organization not found in token")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID")
		return
	}

	account, err := h.accounts.DeactivateAccount(c.Request.Context(), orgID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, account)
}
