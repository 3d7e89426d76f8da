package fiscal

// DocumentType identifies the kind of electronic fiscal document
type DocumentType string

const (
	DocumentTypeNFe DocumentType = "NFE" // Nota Fiscal Eletrônica (goods)
	DocumentTypeCTe DocumentType = "CTE" // Conhecimento de Transporte Eletrônico (freight)
)

// IsValid checks if the document type is known
func (t DocumentType) IsValid() bool {
	return t == DocumentTypeNFe || t == DocumentTypeCTe
}

// String returns the string representation
func (t DocumentType) String() string {
	return string(t)
}

// DocumentStatus represents the lifecycle state of a fiscal document.
// DRAFT is initial, CANCELLED is terminal.
type DocumentStatus string

const (
	DocumentStatusDraft      DocumentStatus = "DRAFT"
	DocumentStatusSubmitted  DocumentStatus = "SUBMITTED"
	DocumentStatusAuthorized DocumentStatus = "AUTHORIZED"
	DocumentStatusCancelled  DocumentStatus = "CANCELLED"
)

// IsValid checks if the status is known
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusDraft, DocumentStatusSubmitted, DocumentStatusAuthorized, DocumentStatusCancelled:
		return true
	}
	return false
}

// CanSubmit returns true if the document can be submitted for authorization
func (s DocumentStatus) CanSubmit() bool {
	return s == DocumentStatusDraft
}

// CanAuthorize returns true if the document can be authorized
func (s DocumentStatus) CanAuthorize() bool {
	return s == DocumentStatusSubmitted
}

// CanCancel returns true if the document can still be cancelled.
// Submitted documents are awaiting the authority's answer and may not be
// cancelled until that answer arrives.
func (s DocumentStatus) CanCancel() bool {
	return s == DocumentStatusDraft || s == DocumentStatusAuthorized
}

// IsTerminal returns true for states with no outgoing transitions
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusCancelled
}

// String returns the string representation
func (s DocumentStatus) String() string {
	return string(s)
}

// AccountingStatus tracks whether a journal entry has been generated
// from the document.
type AccountingStatus string

const (
	AccountingStatusPending AccountingStatus = "PENDING"
	AccountingStatusPosted  AccountingStatus = "POSTED"
)

// String returns the string representation
func (s AccountingStatus) String() string {
	return string(s)
}

// ManifestationStatus is the recipient manifestation sub-state of an
// inbound NFe (manifestação do destinatário).
type ManifestationStatus string

const (
	ManifestationPending   ManifestationStatus = "PENDING"
	ManifestationConfirmed ManifestationStatus = "CONFIRMED"
	ManifestationUnknown   ManifestationStatus = "UNKNOWN"
	ManifestationRejected  ManifestationStatus = "REJECTED"
)

// IsValid checks if the manifestation status is known
func (s ManifestationStatus) IsValid() bool {
	switch s {
	case ManifestationPending, ManifestationConfirmed, ManifestationUnknown, ManifestationRejected:
		return true
	}
	return false
}

// NFSeStatus represents the lifecycle state of a service invoice.
// DRAFT → PENDING → AUTHORIZED → CANCELLED, with CANCELLED terminal.
type NFSeStatus string

const (
	NFSeStatusDraft      NFSeStatus = "DRAFT"
	NFSeStatusPending    NFSeStatus = "PENDING"
	NFSeStatusAuthorized NFSeStatus = "AUTHORIZED"
	NFSeStatusCancelled  NFSeStatus = "CANCELLED"
)

// CanSubmit returns true if the invoice can move to PENDING
func (s NFSeStatus) CanSubmit() bool {
	return s == NFSeStatusDraft
}

// CanAuthorize returns true if the invoice can be authorized
func (s NFSeStatus) CanAuthorize() bool {
	return s == NFSeStatusPending
}

// CanCancel returns true if the invoice can be cancelled
func (s NFSeStatus) CanCancel() bool {
	return s == NFSeStatusAuthorized
}

// String returns the string representation
func (s NFSeStatus) String() string {
	return string(s)
}
