// Package nfe parses NFe XML (layout 4.00) into the typed summary the
// fiscal import flow consumes. Only the fields the back office needs are
// mapped; the full XML is archived separately.
package nfe

import "encoding/xml"

// procDocument is the SEFAZ-authorized envelope (nfeProc) wrapping the
// NFe and its authorization protocol.
type procDocument struct {
	XMLName xml.Name     `xml:"nfeProc"`
	NFe     nfeDocument  `xml:"NFe"`
	Prot    protDocument `xml:"protNFe"`
}

// nfeDocument is a bare NFe, as issued before authorization
type nfeDocument struct {
	XMLName xml.Name `xml:"NFe"`
	InfNFe  infNFe   `xml:"infNFe"`
}

type protDocument struct {
	InfProt infProt `xml:"infProt"`
}

type infProt struct {
	FiscalKey string `xml:"chNFe"`
	Protocol  string `xml:"nProt"`
	Status    string `xml:"cStat"`
}

type infNFe struct {
	// Id carries the access key prefixed with "NFe"
	ID     string      `xml:"Id,attr"`
	Ide    identifier  `xml:"ide"`
	Emit   emitParty   `xml:"emit"`
	Dest   destParty   `xml:"dest"`
	Items  []detail    `xml:"det"`
	Total  totalBlock  `xml:"total"`
	Transp transpBlock `xml:"transp"`
}

type identifier struct {
	Series    string `xml:"serie"`
	Number    string `xml:"nNF"`
	IssuedAt  string `xml:"dhEmi"`
	IssuedOld string `xml:"dEmi"` // layout 2.00 date-only field
}

type emitParty struct {
	CNPJ    string  `xml:"CNPJ"`
	Name    string  `xml:"xNome"`
	Address address `xml:"enderEmit"`
}

type destParty struct {
	CNPJ    string  `xml:"CNPJ"`
	Name    string  `xml:"xNome"`
	Address address `xml:"enderDest"`
}

type address struct {
	UF string `xml:"UF"`
}

type detail struct {
	Number  string  `xml:"nItem,attr"`
	Product product `xml:"prod"`
}

type product struct {
	Code        string `xml:"cProd"`
	Description string `xml:"xProd"`
	NCM         string `xml:"NCM"`
	CFOP        string `xml:"CFOP"`
	Unit        string `xml:"uCom"`
	Quantity    string `xml:"qCom"`
	UnitPrice   string `xml:"vUnCom"`
}

type totalBlock struct {
	ICMSTot icmsTotal `xml:"ICMSTot"`
}

type icmsTotal struct {
	TotalValue string `xml:"vNF"`
}

type transpBlock struct {
	Carrier *carrierParty `xml:"transporta"`
	Volumes []volume      `xml:"vol"`
}

type carrierParty struct {
	CNPJ string `xml:"CNPJ"`
	Name string `xml:"xNome"`
	UF   string `xml:"UF"`
}

type volume struct {
	Count       string `xml:"qVol"`
	Description string `xml:"esp"`
	GrossWeight string `xml:"pesoB"`
}
