package nfe

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type xmlProc struct {
	XMLName xml.Name `xml:"nfeProc"`
	NFe     xmlNFe   `xml:"NFe"`
}

type xmlNFe struct {
	XMLName xml.Name  `xml:"NFe"`
	InfNFe  xmlInfNFe `xml:"infNFe"`
}

type xmlInfNFe struct {
	ID  string `xml:"Id,attr"`
	Ide struct {
		Number   string `xml:"nNF"`
		Series   string `xml:"serie"`
		IssuedAt string `xml:"dhEmi"`
		Date     string `xml:"dEmi"`
	} `xml:"ide"`
	Emit struct {
		CNPJ string `xml:"CNPJ"`
		Name string `xml:"xNome"`
	} `xml:"emit"`
	Det []struct {
		Line int `xml:"nItem,attr"`
		Prod struct {
			Code        string `xml:"cProd"`
			EAN         string `xml:"cEAN"`
			Description string `xml:"xProd"`
			NCM         string `xml:"NCM"`
			CFOP        string `xml:"CFOP"`
			Unit        string `xml:"uCom"`
			Quantity    string `xml:"qCom"`
			UnitValue   string `xml:"vUnCom"`
			Total       string `xml:"vProd"`
		} `xml:"prod"`
	} `xml:"det"`
	Total struct {
		ICMSTot struct {
			Value string `xml:"vNF"`
		} `xml:"ICMSTot"`
	} `xml:"total"`
}

// ParseXML は nfeProc または NFe をルートとする XML を Invoice に変換します。
func ParseXML(r io.Reader) (*Invoice, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read xml: %w", err)
	}

	inf, err := decodeInfNFe(raw)
	if err != nil {
		return nil, err
	}

	key, err := ParseAccessKey(strings.TrimPrefix(strings.TrimSpace(inf.ID), "NFe"))
	if err != nil {
		return nil, err
	}

	issuedAt, err := parseIssuedAt(inf.Ide.IssuedAt, inf.Ide.Date)
	if err != nil {
		return nil, err
	}

	invoice := &Invoice{
		AccessKey:   key.Raw,
		Number:      strings.TrimSpace(inf.Ide.Number),
		Series:      strings.TrimSpace(inf.Ide.Series),
		IssuedAt:    issuedAt,
		EmitterCNPJ: strings.TrimSpace(inf.Emit.CNPJ),
		EmitterName: strings.TrimSpace(inf.Emit.Name),
	}
	if invoice.TotalValue, err = parseDecimal("vNF", inf.Total.ICMSTot.Value); err != nil {
		return nil, err
	}

	for i, det := range inf.Det {
		item := InvoiceItem{
			Line:        det.Line,
			Code:        strings.TrimSpace(det.Prod.Code),
			EAN:         normalizeGTIN(det.Prod.EAN),
			Description: strings.TrimSpace(det.Prod.Description),
			NCM:         strings.TrimSpace(det.Prod.NCM),
			CFOP:        strings.TrimSpace(det.Prod.CFOP),
			Unit:        strings.TrimSpace(det.Prod.Unit),
		}
		if item.Line == 0 {
			item.Line = i + 1
		}
		if item.Quantity, err = parseDecimal("qCom", det.Prod.Quantity); err != nil {
			return nil, err
		}
		if item.UnitValue, err = parseDecimal("vUnCom", det.Prod.UnitValue); err != nil {
			return nil, err
		}
		if item.Total, err = parseDecimal("vProd", det.Prod.Total); err != nil {
			return nil, err
		}
		invoice.Items = append(invoice.Items, item)
	}
	return invoice, nil
}

func decodeInfNFe(raw []byte) (*xmlInfNFe, error) {
	var proc xmlProc
	if err := xml.Unmarshal(raw, &proc); err == nil && proc.NFe.InfNFe.ID != "" {
		return &proc.NFe.InfNFe, nil
	}
	var doc xmlNFe
	if err := xml.NewDecoder(bytes.NewReader(raw)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidXML, err)
	}
	if doc.InfNFe.ID == "" {
		return nil, fmt.Errorf("%w: infNFe not found", ErrInvalidXML)
	}
	return &doc.InfNFe, nil
}

// parseIssuedAt は dhEmi (RFC 3339) を優先し、旧レイアウトの dEmi (日付) も受け付けます。
func parseIssuedAt(dateTime, date string) (time.Time, error) {
	if v := strings.TrimSpace(dateTime); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: dhEmi %q", ErrInvalidXML, v)
		}
		return t.UTC(), nil
	}
	if v := strings.TrimSpace(date); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: dEmi %q", ErrInvalidXML, v)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: issue date is missing", ErrInvalidXML)
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q", ErrInvalidXML, field, v)
	}
	return d, nil
}

// normalizeGTIN は "SEM GTIN" などの数字でない値を空にします。
func normalizeGTIN(raw string) string {
	v := strings.TrimSpace(raw)
	for _, r := range v {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return v
}
