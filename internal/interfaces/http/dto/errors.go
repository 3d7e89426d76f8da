package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the caller lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeDuplicateImport is used when a fiscal key was already imported
	ErrCodeDuplicateImport = "ERR_DUPLICATE_IMPORT"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for the current status
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeNoItems is used when a document has no items
	ErrCodeNoItems = "ERR_NO_ITEMS"
	// ErrCodeNoCategorizedItems is used when posting requires categorized items
	ErrCodeNoCategorizedItems = "ERR_NO_CATEGORIZED_ITEMS"
	// ErrCodeNonAnalyticalAccount is used when a line targets a synthetic account
	ErrCodeNonAnalyticalAccount = "ERR_NON_ANALYTICAL_ACCOUNT"
	// ErrCodeUnbalancedEntry is used when debits and credits do not match
	ErrCodeUnbalancedEntry = "ERR_UNBALANCED_ENTRY"
	// ErrCodeAlreadyPosted is used when a document already has a journal entry
	ErrCodeAlreadyPosted = "ERR_ALREADY_POSTED"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeInvalidXML is used when an uploaded fiscal XML cannot be parsed
	ErrCodeInvalidXML = "ERR_INVALID_XML"
	// ErrCodeInvalidFiscalKey is used when a 44-digit access key fails validation
	ErrCodeInvalidFiscalKey = "ERR_INVALID_FISCAL_KEY"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeDuplicateImport:     http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:         http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:         http.StatusUnprocessableEntity,
	ErrCodeNoItems:              http.StatusUnprocessableEntity,
	ErrCodeNoCategorizedItems:   http.StatusUnprocessableEntity,
	ErrCodeNonAnalyticalAccount: http.StatusUnprocessableEntity,
	ErrCodeUnbalancedEntry:      http.StatusUnprocessableEntity,
	ErrCodeAlreadyPosted:        http.StatusConflict,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidInput:     http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeInvalidXML:       http.StatusBadRequest,
	ErrCodeInvalidFiscalKey: http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Domain validation codes all follow the INVALID_<FIELD> convention, so
// codes with that prefix that have no explicit mapping are treated as
// bad input rather than server errors. Everything else falls back to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") || strings.HasPrefix(code, "ERR_INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to the API error codes.
// Domain errors use bare codes like NOT_FOUND; the API surface prefixes
// them. Validation codes not listed here pass through NormalizeErrorCode
// unchanged and are classified by prefix in GetHTTPStatus.
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"ALREADY_EXISTS":         ErrCodeAlreadyExists,
	"DUPLICATE_IMPORT":       ErrCodeDuplicateImport,
	"CONCURRENCY_CONFLICT":   ErrCodeConcurrencyConflict,
	"ALREADY_POSTED":         ErrCodeAlreadyPosted,
	"INVALID_STATE":          ErrCodeInvalidState,
	"NO_ITEMS":               ErrCodeNoItems,
	"NO_CATEGORIZED_ITEMS":   ErrCodeNoCategorizedItems,
	"NON_ANALYTICAL_ACCOUNT": ErrCodeNonAnalyticalAccount,
	"UNBALANCED_ENTRY":       ErrCodeUnbalancedEntry,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_XML":            ErrCodeInvalidXML,
	"INVALID_FISCAL_KEY":     ErrCodeInvalidFiscalKey,
	"UNAUTHORIZED":           ErrCodeUnauthorized,
	"FORBIDDEN":              ErrCodeForbidden,
	"BAD_REQUEST":            ErrCodeBadRequest,
	"INTERNAL_ERROR":         ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// If the code is already in the API format or unknown, returns it as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
