package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// FiscalDocumentSortFields contains allowed sort fields for fiscal documents
var FiscalDocumentSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"issue_date":  true,
	"total_value": true,
	"number":      true,
	"series":      true,
	"status":      true,
	"issuer_cnpj": true,
}

// NFSeSortFields contains allowed sort fields for NFSe documents
var NFSeSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"issue_date":     true,
	"rps_number":     true,
	"status":         true,
	"service_value":  true,
	"prestador_cnpj": true,
}

// JournalEntrySortFields contains allowed sort fields for journal entries
var JournalEntrySortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"entry_number": true,
	"entry_date":   true,
	"status":       true,
	"posted_at":    true,
}

// AccountSortFields contains allowed sort fields for chart-of-accounts rows
var AccountSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"type":       true,
}

// sortClause builds a safe ORDER BY clause from user-supplied sort
// parameters. Both the field and the direction go through whitelist
// validation, so the result can be interpolated into a query.
func sortClause(sortBy, sortOrder string, allowedFields map[string]bool, defaultField, defaultOrder string) string {
	field := ValidateSortField(sortBy, allowedFields, defaultField)
	order := defaultOrder
	if strings.TrimSpace(sortOrder) != "" {
		order = ValidateSortOrder(sortOrder)
	}
	return field + " " + order
}
