package fiscal

import (
	"strings"
	"time"

	"github.com/fiscaltms/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DocumentRole is the relationship of the receiving branch to a
// fiscal document, derived by the classifier.
type DocumentRole string

// Document roles
const (
	RolePurchase DocumentRole = "PURCHASE" // branch is the recipient
	RoleCargo    DocumentRole = "CARGO"    // branch is the carrier
	RoleReturn   DocumentRole = "RETURN"   // branch is the issuer
	RoleOther    DocumentRole = "OTHER"    // no party matches
)

// NFeParty identifies one participant of an NFe (issuer, recipient or
// carrier) as parsed from the XML.
type NFeParty struct {
	CNPJ string
	Name string
	UF   string
}

// NFeCargo carries the transport block of an NFe, when present.
type NFeCargo struct {
	Description string
	WeightKg    decimal.Decimal
	VolumeCount int
}

// NFeItem is one parsed product line of an NFe
type NFeItem struct {
	ProductCode string
	Description string
	NCM         string
	CFOP        string
	Unit        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// NFeSummary is the parsed slice of an NFe needed for import,
// classification and cargo extraction. Built by the XML parser; the
// classifier never touches raw XML.
type NFeSummary struct {
	FiscalKey string
	Series    string
	Number    string
	IssueDate time.Time
	Issuer    NFeParty
	Recipient NFeParty
	Carrier   *NFeParty
	Cargo     *NFeCargo
	Items     []NFeItem
	Total     decimal.Decimal
	Protocol  string // SEFAZ authorization protocol, when the XML is a proc document
}

// CargoInfo is the transport data extracted for CTe-like handling of
// an NFe where the branch acts as the carrier.
type CargoInfo struct {
	Description string
	WeightKg    decimal.Decimal
	OriginUF    string
	DestUF      string
}

// NFeClassifier determines the branch's role in an NFe and extracts
// transport data. Pure: no logging, no I/O, never returns an error.
type NFeClassifier struct{}

// NewNFeClassifier creates a classifier
func NewNFeClassifier() *NFeClassifier {
	return &NFeClassifier{}
}

// ClassifyNFe derives the branch's role from the document parties.
// CNPJs are normalized to bare digits before comparison, so formatted
// and unformatted values match. Priority when the same CNPJ appears in
// more than one party: recipient, then carrier, then issuer.
func (c *NFeClassifier) ClassifyNFe(summary NFeSummary, branchCNPJ string) DocumentRole {
	branch := valueobject.NormalizeCNPJ(branchCNPJ)
	if branch == "" {
		return RoleOther
	}

	if valueobject.NormalizeCNPJ(summary.Recipient.CNPJ) == branch {
		return RolePurchase
	}
	if summary.Carrier != nil && valueobject.NormalizeCNPJ(summary.Carrier.CNPJ) == branch {
		return RoleCargo
	}
	if valueobject.NormalizeCNPJ(summary.Issuer.CNPJ) == branch {
		return RoleReturn
	}
	return RoleOther
}

// ExtractCargoInfo pulls transport data out of an NFe summary. Returns
// nil when the transport block is absent or has no usable description,
// never an error: missing cargo data is a normal condition.
func (c *NFeClassifier) ExtractCargoInfo(summary NFeSummary) *CargoInfo {
	if summary.Cargo == nil {
		return nil
	}
	description := strings.TrimSpace(summary.Cargo.Description)
	if description == "" {
		return nil
	}

	return &CargoInfo{
		Description: description,
		WeightKg:    summary.Cargo.WeightKg,
		OriginUF:    summary.Issuer.UF,
		DestUF:      summary.Recipient.UF,
	}
}

// ufRegions maps each UF to its IBGE macro-region.
var ufRegions = map[string]string{
	"AC": "N", "AP": "N", "AM": "N", "PA": "N", "RO": "N", "RR": "N", "TO": "N",
	"AL": "NE", "BA": "NE", "CE": "NE", "MA": "NE", "PB": "NE", "PE": "NE", "PI": "NE", "RN": "NE", "SE": "NE",
	"DF": "CO", "GO": "CO", "MT": "CO", "MS": "CO",
	"ES": "SE", "MG": "SE", "RJ": "SE", "SP": "SE",
	"PR": "S", "RS": "S", "SC": "S",
}

// neighboring macro-regions for the mid-range delivery estimate
var adjacentRegions = map[string]map[string]bool{
	"N":  {"NE": true, "CO": true},
	"NE": {"N": true, "CO": true, "SE": true},
	"CO": {"N": true, "NE": true, "SE": true, "S": true},
	"SE": {"NE": true, "CO": true, "S": true},
	"S":  {"CO": true, "SE": true},
}

// EstimateDeliveryDeadline estimates a delivery date from the issue
// date and the origin/destination UFs using a coarse macro-region
// table: same UF +2 days, same region +3, adjacent regions +5, long
// haul +7. Unknown UFs fall back to +5.
func (c *NFeClassifier) EstimateDeliveryDeadline(issueDate time.Time, originUF, destUF string) time.Time {
	origin := strings.ToUpper(strings.TrimSpace(originUF))
	dest := strings.ToUpper(strings.TrimSpace(destUF))

	originRegion, okOrigin := ufRegions[origin]
	destRegion, okDest := ufRegions[dest]

	days := 5
	switch {
	case !okOrigin || !okDest:
		days = 5
	case origin == dest:
		days = 2
	case originRegion == destRegion:
		days = 3
	case adjacentRegions[originRegion][destRegion]:
		days = 5
	default:
		days = 7
	}

	return issueDate.AddDate(0, 0, days)
}
