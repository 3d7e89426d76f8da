package accounting

import (
	"context"
	"time"

	"github.com/fiscaltms/backend/internal/domain/accounting"
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountService manages the chart of accounts
type AccountService struct {
	accounts accounting.AccountRepository
	logger   *zap.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(accounts accounting.AccountRepository, logger *zap.Logger) *AccountService {
	return &AccountService{
		accounts: accounts,
		logger:   logger,
	}
}

// AccountResponse represents a chart-of-accounts entry in API responses
type AccountResponse struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	IsAnalytical bool      `json:"is_analytical"`
	ParentCode   string    `json:"parent_code,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

func toAccountResponse(account *accounting.Account) *AccountResponse {
	return &AccountResponse{
		ID:           account.ID,
		Code:         account.Code,
		Name:         account.Name,
		Type:         string(account.Type),
		IsAnalytical: account.IsAnalytical,
		ParentCode:   account.ParentCode,
		Active:       account.Active,
		CreatedAt:    account.CreatedAt,
	}
}

// CreateAccountRequest creates a chart-of-accounts entry
type CreateAccountRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Type         string `json:"type" binding:"required"`
	IsAnalytical bool   `json:"is_analytical"`
	ParentCode   string `json:"parent_code"`
}

// CreateAccount adds an account to the organization's chart
func (s *AccountService) CreateAccount(ctx context.Context, organizationID uuid.UUID, req CreateAccountRequest) (*AccountResponse, error) {
	existing, err := s.accounts.FindByCode(ctx, organizationID, req.Code)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check account code")
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "An account with this code already exists")
	}

	account, err := accounting.NewAccount(organizationID, req.Code, req.Name,
		accounting.AccountType(req.Type), req.IsAnalytical, req.ParentCode)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Save(ctx, account); err != nil {
		s.logger.Error("failed to save account",
			zap.String("organization_id", organizationID.String()),
			zap.String("code", req.Code),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save account")
	}

	s.logger.Info("account created",
		zap.String("organization_id", organizationID.String()),
		zap.String("account_id", account.ID.String()),
		zap.String("code", account.Code))

	return toAccountResponse(account), nil
}

// GetAccount returns one account scoped to the organization
func (s *AccountService) GetAccount(ctx context.Context, organizationID, id uuid.UUID) (*AccountResponse, error) {
	account, err := s.accounts.FindByIDForOrg(ctx, organizationID, id)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load account")
	}
	if account == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Account not found")
	}
	return toAccountResponse(account), nil
}

// ListAccounts lists the organization's chart of accounts ordered by code
func (s *AccountService) ListAccounts(ctx context.Context, organizationID uuid.UUID, pagination shared.Pagination) ([]AccountResponse, int64, error) {
	accounts, err := s.accounts.FindAllForOrg(ctx, organizationID, pagination)
	if err != nil {
		return nil, 0, shared.NewDomainError("INTERNAL_ERROR", "Failed to list accounts")
	}
	total, err := s.accounts.CountForOrg(ctx, organizationID)
	if err != nil {
		return nil, 0, shared.NewDomainError("INTERNAL_ERROR", "Failed to count accounts")
	}

	responses := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		responses = append(responses, *toAccountResponse(&accounts[i]))
	}
	return responses, total, nil
}

// DeactivateAccount blocks an account from receiving new postings
func (s *AccountService) DeactivateAccount(ctx context.Context, organizationID, id uuid.UUID) (*AccountResponse, error) {
	account, err := s.accounts.FindByIDForOrg(ctx, organizationID, id)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load account")
	}
	if account == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Account not found")
	}

	account.Deactivate()
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save account")
	}
	return toAccountResponse(account), nil
}
