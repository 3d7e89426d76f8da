package orgscope

import (
	"strings"

	"github.com/fiscaltms/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrgCallback provides GORM callback hooks for automatic organization filtering
type OrgCallback struct {
	orgColumn string
	required  bool
}

// NewOrgCallback creates a new organization callback handler
func NewOrgCallback(orgColumn string, required bool) *OrgCallback {
	if orgColumn == "" {
		orgColumn = "organization_id"
	}
	return &OrgCallback{
		orgColumn: orgColumn,
		required:  required,
	}
}

// RegisterCallbacks registers organization callbacks with GORM
func (oc *OrgCallback) RegisterCallbacks(db *gorm.DB) {
	_ = db.Callback().Query().Before("gorm:query").Register("orgscope:before_query", oc.beforeQuery)
	_ = db.Callback().Update().Before("gorm:update").Register("orgscope:before_update", oc.beforeUpdate)
	_ = db.Callback().Delete().Before("gorm:delete").Register("orgscope:before_delete", oc.beforeDelete)
	_ = db.Callback().Row().Before("gorm:row").Register("orgscope:before_row", oc.beforeQuery)

	// Create callback is not registered because organization_id is set
	// explicitly by the application when creating entities
}

func (oc *OrgCallback) beforeQuery(db *gorm.DB) {
	oc.addOrgFilter(db)
}

func (oc *OrgCallback) beforeUpdate(db *gorm.DB) {
	oc.addOrgFilter(db)
}

func (oc *OrgCallback) beforeDelete(db *gorm.DB) {
	oc.addOrgFilter(db)
}

// addOrgFilter adds organization filtering to the query
func (oc *OrgCallback) addOrgFilter(db *gorm.DB) {
	if db.Statement.Context == nil {
		return
	}

	if db.Statement.Unscoped {
		return
	}

	// Skip if the query already filters on organization_id
	if oc.hasOrgCondition(db) {
		return
	}

	orgID := logger.GetOrgID(db.Statement.Context)
	if orgID == "" {
		if oc.required {
			_ = db.AddError(ErrOrgIDRequired)
		}
		return
	}

	if _, err := uuid.Parse(orgID); err != nil {
		_ = db.AddError(ErrInvalidOrgID)
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: oc.orgColumn},
				Value:  orgID,
			},
		},
	})
}

// hasOrgCondition checks if an organization_id condition is already present
func (oc *OrgCallback) hasOrgCondition(db *gorm.DB) bool {
	if db.Statement.Unscoped {
		return true
	}

	if whereClause, ok := db.Statement.Clauses["WHERE"]; ok {
		if where, ok := whereClause.Expression.(clause.Where); ok {
			for _, expr := range where.Exprs {
				if oc.exprContainsOrg(expr) {
					return true
				}
			}
		}
	}

	sql := db.Statement.SQL.String()
	if sql != "" && strings.Contains(sql, oc.orgColumn) {
		return true
	}

	return false
}

// exprContainsOrg checks if an expression contains the organization column
func (oc *OrgCallback) exprContainsOrg(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == oc.orgColumn
		}
	case clause.IN:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == oc.orgColumn
		}
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if oc.exprContainsOrg(cond) {
				return true
			}
		}
	case clause.OrConditions:
		for _, cond := range e.Exprs {
			if oc.exprContainsOrg(cond) {
				return true
			}
		}
	}
	return false
}

// EnableAutoOrgFilter enables automatic organization filtering on a GORM DB instance
func EnableAutoOrgFilter(db *gorm.DB, required bool) {
	oc := NewOrgCallback("organization_id", required)
	oc.RegisterCallbacks(db)
}

// DisableAutoOrgFilter removes the organization callbacks (mainly for testing)
func DisableAutoOrgFilter(db *gorm.DB) {
	_ = db.Callback().Query().Remove("orgscope:before_query")
	_ = db.Callback().Update().Remove("orgscope:before_update")
	_ = db.Callback().Delete().Remove("orgscope:before_delete")
	_ = db.Callback().Row().Remove("orgscope:before_row")
}
