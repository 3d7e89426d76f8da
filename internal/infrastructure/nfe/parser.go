package nfe

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	fiscalapp "github.com/fiscaltms/backend/internal/application/fiscal"
	"github.com/fiscaltms/backend/internal/domain/fiscal"
	"github.com/fiscaltms/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Ensure Parser implements NFeParser
var _ fiscalapp.NFeParser = (*Parser)(nil)

// Parser parses NFe XML into a fiscal.NFeSummary. It accepts both the
// authorized nfeProc envelope and a bare NFe document; only the former
// yields an authorization protocol.
type Parser struct{}

// NewParser creates a Parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse validates and extracts the summary from raw NFe XML
func (p *Parser) Parse(data []byte) (*fiscal.NFeSummary, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty xml document")
	}

	root, err := rootElement(data)
	if err != nil {
		return nil, fmt.Errorf("invalid xml: %w", err)
	}

	var inf infNFe
	var protocol string

	switch root {
	case "nfeProc":
		var proc procDocument
		if err := xml.Unmarshal(data, &proc); err != nil {
			return nil, fmt.Errorf("invalid nfeProc xml: %w", err)
		}
		inf = proc.NFe.InfNFe
		protocol = proc.Prot.InfProt.Protocol
	case "NFe":
		var doc nfeDocument
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid NFe xml: %w", err)
		}
		inf = doc.InfNFe
	default:
		return nil, fmt.Errorf("unsupported document root %q, expected nfeProc or NFe", root)
	}

	key, err := valueobject.NewFiscalKey(strings.TrimPrefix(inf.ID, "NFe"))
	if err != nil {
		return nil, fmt.Errorf("invalid access key: %w", err)
	}

	issueDate, err := parseIssueDate(inf.Ide)
	if err != nil {
		return nil, err
	}

	total, err := parseDecimal(inf.Total.ICMSTot.TotalValue, "total value")
	if err != nil {
		return nil, err
	}

	if len(inf.Items) == 0 {
		return nil, fmt.Errorf("document has no items")
	}

	items := make([]fiscal.NFeItem, 0, len(inf.Items))
	for _, det := range inf.Items {
		item, err := parseItem(det)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	summary := &fiscal.NFeSummary{
		FiscalKey: key.Key(),
		Series:    inf.Ide.Series,
		Number:    inf.Ide.Number,
		IssueDate: issueDate,
		Issuer: fiscal.NFeParty{
			CNPJ: inf.Emit.CNPJ,
			Name: inf.Emit.Name,
			UF:   inf.Emit.Address.UF,
		},
		Recipient: fiscal.NFeParty{
			CNPJ: inf.Dest.CNPJ,
			Name: inf.Dest.Name,
			UF:   inf.Dest.Address.UF,
		},
		Items:    items,
		Total:    total,
		Protocol: protocol,
	}

	if c := inf.Transp.Carrier; c != nil && c.CNPJ != "" {
		summary.Carrier = &fiscal.NFeParty{
			CNPJ: c.CNPJ,
			Name: c.Name,
			UF:   c.UF,
		}
	}
	if cargo := parseCargo(inf.Transp.Volumes); cargo != nil {
		summary.Cargo = cargo
	}

	return summary, nil
}

// rootElement returns the name of the first start element
func rootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", fmt.Errorf("no root element")
		}
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

func parseIssueDate(ide identifier) (time.Time, error) {
	if ide.IssuedAt != "" {
		t, err := time.Parse(time.RFC3339, ide.IssuedAt)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid issue date %q: %w", ide.IssuedAt, err)
		}
		return t, nil
	}
	if ide.IssuedOld != "" {
		t, err := time.Parse("2006-01-02", ide.IssuedOld)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid issue date %q: %w", ide.IssuedOld, err)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("document has no issue date")
}

func parseItem(det detail) (fiscal.NFeItem, error) {
	quantity, err := parseDecimal(det.Product.Quantity, fmt.Sprintf("item %s quantity", det.Number))
	if err != nil {
		return fiscal.NFeItem{}, err
	}
	unitPrice, err := parseDecimal(det.Product.UnitPrice, fmt.Sprintf("item %s unit price", det.Number))
	if err != nil {
		return fiscal.NFeItem{}, err
	}
	return fiscal.NFeItem{
		ProductCode: det.Product.Code,
		Description: det.Product.Description,
		NCM:         det.Product.NCM,
		CFOP:        det.Product.CFOP,
		Unit:        det.Product.Unit,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
	}, nil
}

// parseCargo aggregates the volume blocks. Weight sums across volumes;
// the description comes from the first volume that has one.
func parseCargo(volumes []volume) *fiscal.NFeCargo {
	if len(volumes) == 0 {
		return nil
	}

	cargo := &fiscal.NFeCargo{WeightKg: decimal.Zero}
	for _, vol := range volumes {
		if vol.Count != "" {
			if n, err := strconv.Atoi(vol.Count); err == nil {
				cargo.VolumeCount += n
			}
		}
		if vol.GrossWeight != "" {
			if w, err := decimal.NewFromString(vol.GrossWeight); err == nil {
				cargo.WeightKg = cargo.WeightKg.Add(w)
			}
		}
		if cargo.Description == "" {
			cargo.Description = vol.Description
		}
	}
	return cargo
}

func parseDecimal(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("missing %s", field)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	return d, nil
}
