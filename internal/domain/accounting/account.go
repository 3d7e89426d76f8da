package accounting

import (
	"fmt"
	"regexp"

	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountType classifies chart-of-accounts entries
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// IsValid checks if the account type is known
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// String returns the string representation
func (t AccountType) String() string {
	return string(t)
}

// accountCodePattern matches dot-notation codes such as 1, 1.1, 2.1.01
var accountCodePattern = regexp.MustCompile(`^\d+(\.\d+)*$`)

// Account is a chart-of-accounts entry. Only analytical (leaf) accounts
// accept postings; synthetic accounts exist for grouping and reporting
// (NBC TG 26).
type Account struct {
	shared.BaseAggregateRoot
	OrganizationID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_account_org_code,priority:1"`
	Code           string      `gorm:"type:varchar(20);not null;uniqueIndex:idx_account_org_code,priority:2"`
	Name           string      `gorm:"type:varchar(200);not null"`
	Type           AccountType `gorm:"type:varchar(10);not null;index"`
	IsAnalytical   bool        `gorm:"not null;default:false"`
	ParentCode     string      `gorm:"type:varchar(20);index"`
	Active         bool        `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Account) TableName() string {
	return "chart_of_accounts"
}

// NewAccount creates a chart-of-accounts entry
func NewAccount(organizationID uuid.UUID, code, name string, accountType AccountType, isAnalytical bool, parentCode string) (*Account, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID is required")
	}
	if !accountCodePattern.MatchString(code) {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_CODE", fmt.Sprintf("Account code %q is not a valid dot-notation code", code))
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name is required")
	}
	if !accountType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_TYPE", fmt.Sprintf("Unknown account type %q", accountType))
	}

	return &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrganizationID:    organizationID,
		Code:              code,
		Name:              name,
		Type:              accountType,
		IsAnalytical:      isAnalytical,
		ParentCode:        parentCode,
		Active:            true,
	}, nil
}

// Deactivate marks the account as no longer usable for new postings
func (a *Account) Deactivate() {
	a.Active = false
	a.IncrementVersion()
}

// AcceptsPostings returns true when journal lines may reference this account
func (a *Account) AcceptsPostings() bool {
	return a.Active && a.IsAnalytical
}
