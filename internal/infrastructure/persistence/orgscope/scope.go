// Package orgscope provides multi-tenant database scoping for GORM.
//
// Every row in the fiscal and accounting tables carries an organization_id
// column. This package extracts the organization ID from the request context
// and automatically applies WHERE organization_id = ? conditions so that one
// organization can never read another organization's documents.
//
// Usage:
//
//	db := orgscope.NewOrgDB(gormDB)
//	scopedDB := db.WithContext(ctx) // automatically applies organization filtering
//	scopedDB.Find(&documents) // WHERE organization_id = 'xxx' is auto-added
package orgscope

import (
	"context"
	"errors"

	"github.com/fiscaltms/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrOrgIDRequired is returned when organization_id is required but not found
var ErrOrgIDRequired = errors.New("organization_id is required but not found in context")

// ErrInvalidOrgID is returned when organization_id format is invalid
var ErrInvalidOrgID = errors.New("invalid organization_id format")

// OrgScope applies organization filtering to GORM queries
func OrgScope(organizationID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("organization_id = ?", organizationID)
	}
}

// OrgScopeString applies organization filtering using a string organization ID
func OrgScopeString(organizationID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("organization_id = ?", organizationID)
	}
}

// OrgDB wraps GORM DB with automatic organization scoping
type OrgDB struct {
	db        *gorm.DB
	orgColumn string
	required  bool
}

// Config holds configuration for OrgDB
type Config struct {
	// OrgColumn is the name of the organization ID column (default: "organization_id")
	OrgColumn string
	// Required determines if organization_id is mandatory (default: true)
	Required bool
}

// DefaultConfig returns default OrgDB configuration
func DefaultConfig() Config {
	return Config{
		OrgColumn: "organization_id",
		Required:  true,
	}
}

// NewOrgDB creates a new OrgDB with default configuration
func NewOrgDB(db *gorm.DB) *OrgDB {
	return NewOrgDBWithConfig(db, DefaultConfig())
}

// NewOrgDBWithConfig creates a new OrgDB with custom configuration
func NewOrgDBWithConfig(db *gorm.DB, cfg Config) *OrgDB {
	if cfg.OrgColumn == "" {
		cfg.OrgColumn = "organization_id"
	}
	return &OrgDB{
		db:        db,
		orgColumn: cfg.OrgColumn,
		required:  cfg.Required,
	}
}

// DB returns the underlying GORM DB without organization scoping.
// Use with caution - this bypasses organization isolation.
func (o *OrgDB) DB() *gorm.DB {
	return o.db
}

// WithContext returns a GORM DB scoped to the organization from context.
// It extracts organization_id from the context (set by the auth middleware)
// and automatically applies the organization filter to all queries.
//
// If organization_id is not found in context and Required is true, it
// returns a DB that will error on any operation.
func (o *OrgDB) WithContext(ctx context.Context) *gorm.DB {
	orgID := logger.GetOrgID(ctx)

	if orgID == "" {
		if o.required {
			db := o.db.WithContext(ctx)
			_ = db.AddError(ErrOrgIDRequired)
			return db
		}
		return o.db.WithContext(ctx)
	}

	if _, err := uuid.Parse(orgID); err != nil {
		db := o.db.WithContext(ctx)
		_ = db.AddError(ErrInvalidOrgID)
		return db
	}

	return o.db.WithContext(ctx).Scopes(OrgScopeString(orgID))
}

// WithOrg returns a GORM DB scoped to a specific organization ID.
// Use this when you have the organization ID directly rather than from context.
func (o *OrgDB) WithOrg(organizationID uuid.UUID) *gorm.DB {
	if organizationID == uuid.Nil {
		if o.required {
			db := o.db
			_ = db.AddError(ErrOrgIDRequired)
			return db
		}
		return o.db
	}
	return o.db.Scopes(OrgScope(organizationID))
}

// ForOrg creates a GORM DB scoped to both a context and an organization ID.
// This is useful for creating a scoped DB that can be passed around.
func (o *OrgDB) ForOrg(ctx context.Context, organizationID uuid.UUID) *gorm.DB {
	return o.db.WithContext(ctx).Scopes(OrgScope(organizationID))
}

// Transaction executes a function within a database transaction with organization scope
func (o *OrgDB) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	orgID := logger.GetOrgID(ctx)

	if orgID == "" && o.required {
		return ErrOrgIDRequired
	}

	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if orgID != "" {
			tx = tx.Scopes(OrgScopeString(orgID))
		}
		return fn(tx)
	})
}

// Unscoped returns the underlying DB without any organization scoping.
// WARNING: bypasses organization isolation. Only for system-level
// operations or migrations.
func (o *OrgDB) Unscoped() *gorm.DB {
	return o.db
}

// SetRequired changes whether organization_id is required
func (o *OrgDB) SetRequired(required bool) *OrgDB {
	return &OrgDB{
		db:        o.db,
		orgColumn: o.orgColumn,
		required:  required,
	}
}
