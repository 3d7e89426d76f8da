package accounting

import (
	"context"
	"testing"

	domainaccounting "github.com/fiscaltms/backend/internal/domain/accounting"
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAccountService(repo *MockAccountRepository) *AccountService {
	return NewAccountService(repo, zap.NewNop())
}

func TestAccountService_CreateAccount(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("creates an analytical account", func(t *testing.T) {
		repo := new(MockAccountRepository)
		repo.On("FindByCode", ctx, orgID, "1.1.01.001").Return(nil, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*accounting.Account")).Return(nil)

		resp, err := newAccountService(repo).CreateAccount(ctx, orgID, CreateAccountRequest{
			Code:         "1.1.01.001",
			Name:         "Clientes nacionais",
			Type:         "ASSET",
			IsAnalytical: true,
			ParentCode:   "1.1.01",
		})

		require.NoError(t, err)
		assert.Equal(t, "1.1.01.001", resp.Code)
		assert.True(t, resp.IsAnalytical)
		assert.True(t, resp.Active)
		repo.AssertExpectations(t)
	})

	t.Run("rejects duplicate code", func(t *testing.T) {
		repo := new(MockAccountRepository)
		existing, err := domainaccounting.NewAccount(orgID, "1.1", "Disponibilidades", domainaccounting.AccountTypeAsset, false, "1")
		require.NoError(t, err)
		repo.On("FindByCode", ctx, orgID, "1.1").Return(existing, nil)

		_, err = newAccountService(repo).CreateAccount(ctx, orgID, CreateAccountRequest{
			Code: "1.1",
			Name: "Disponibilidades",
			Type: "ASSET",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	})

	t.Run("rejects malformed code", func(t *testing.T) {
		repo := new(MockAccountRepository)
		repo.On("FindByCode", ctx, orgID, "abc").Return(nil, nil)

		_, err := newAccountService(repo).CreateAccount(ctx, orgID, CreateAccountRequest{
			Code: "abc",
			Name: "Conta",
			Type: "ASSET",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_ACCOUNT_CODE", domainErr.Code)
	})
}

func TestAccountService_ListAccounts(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("returns accounts with total", func(t *testing.T) {
		repo := new(MockAccountRepository)
		a1, err := domainaccounting.NewAccount(orgID, "1", "Ativo", domainaccounting.AccountTypeAsset, false, "")
		require.NoError(t, err)
		a2, err := domainaccounting.NewAccount(orgID, "1.1.01.001", "Clientes", domainaccounting.AccountTypeAsset, true, "1.1.01")
		require.NoError(t, err)

		pagination := shared.Pagination{Page: 1, PageSize: 20}
		repo.On("FindAllForOrg", ctx, orgID, pagination).Return([]domainaccounting.Account{*a1, *a2}, nil)
		repo.On("CountForOrg", ctx, orgID).Return(int64(2), nil)

		accounts, total, err := newAccountService(repo).ListAccounts(ctx, orgID, pagination)

		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, accounts, 2)
		assert.Equal(t, "1", accounts[0].Code)
		assert.Equal(t, "1.1.01.001", accounts[1].Code)
	})
}

func TestAccountService_GetAccount(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("returns not found for unknown account", func(t *testing.T) {
		repo := new(MockAccountRepository)
		id := uuid.New()
		repo.On("FindByIDForOrg", ctx, orgID, id).Return(nil, nil)

		_, err := newAccountService(repo).GetAccount(ctx, orgID, id)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})
}

func TestAccountService_DeactivateAccount(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("deactivates and bumps version", func(t *testing.T) {
		repo := new(MockAccountRepository)
		account, err := domainaccounting.NewAccount(orgID, "1.1.01.001", "Clientes", domainaccounting.AccountTypeAsset, true, "1.1.01")
		require.NoError(t, err)
		repo.On("FindByIDForOrg", ctx, orgID, account.ID).Return(account, nil)
		repo.On("Save", ctx, account).Return(nil)

		resp, err := newAccountService(repo).DeactivateAccount(ctx, orgID, account.ID)

		require.NoError(t, err)
		assert.False(t, resp.Active)
		assert.False(t, account.AcceptsPostings())
	})
}
