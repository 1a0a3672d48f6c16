package handler

import (
	"context"
	"encoding/base64"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ogurasousui/stockly/internal/core/nfe"
)

// InvoiceHandler は stockly.v1.InvoiceService の gRPC 実装です。
type InvoiceHandler struct {
	svc nfe.UseCase
}

// NewInvoiceHandler は InvoiceHandler を生成します。
func NewInvoiceHandler(svc nfe.UseCase) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

// Register は InvoiceService を登録します。
func (h *InvoiceHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(newServiceDesc("InvoiceService", map[string]unaryMethod{
		"Fetch":             h.fetch,
		"Manifest":          h.manifest,
		"ExtractFromDANFE":  h.extractFromDANFE,
		"ImportXML":         h.importXML,
		"ImportFromGateway": h.importFromGateway,
		"ListImports":       h.listImports,
	}), h)
}

func (h *InvoiceHandler) fetch(ctx context.Context, req *request) (object, error) {
	key := req.str("access_key")
	if err := req.validate(); err != nil {
		return nil, err
	}

	invoice, err := h.svc.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	return object{"invoice": nested(invoiceObject(invoice))}, nil
}

func (h *InvoiceHandler) manifest(ctx context.Context, req *request) (object, error) {
	key := req.str("access_key")
	event := nfe.ManifestEvent(req.str("event"))
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := h.svc.Manifest(ctx, key, event); err != nil {
		return nil, err
	}
	return object{}, nil
}

// extractFromDANFE の image は base64 でエンコードした画像です。
func (h *InvoiceHandler) extractFromDANFE(ctx context.Context, req *request) (object, error) {
	raw := req.str("image")
	contentType := req.str("content_type")
	if err := req.validate(); err != nil {
		return nil, err
	}
	image, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "field image must be base64 encoded")
	}

	ex, err := h.svc.ExtractFromDANFE(ctx, image, contentType)
	if err != nil {
		return nil, err
	}
	var total interface{}
	if ex.TotalValue != nil {
		total = decValue(*ex.TotalValue)
	}
	return object{"extraction": map[string]interface{}{
		"access_key":       ex.AccessKey,
		"access_key_valid": ex.AccessKeyValid,
		"number":           ex.Number,
		"series":           ex.Series,
		"emitter_cnpj":     ex.EmitterCNPJ,
		"emitter_name":     ex.EmitterName,
		"issued_at":        optTimeValue(ex.IssuedAt),
		"total_value":      total,
		"confidence":       ex.Confidence,
	}}, nil
}

func (h *InvoiceHandler) importXML(ctx context.Context, req *request) (object, error) {
	in := nfe.ImportXMLInput{
		OrganizationID: req.str("organization_id"),
		LocationID:     req.str("location_id"),
		XML:            strings.NewReader(req.str("xml")),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	result, err := h.svc.ImportXML(ctx, in)
	if err != nil {
		return nil, err
	}
	return importResultObject(result), nil
}

// importFromGateway はアクセスキーで NF-e を取得してから取り込みます。
func (h *InvoiceHandler) importFromGateway(ctx context.Context, req *request) (object, error) {
	orgID := req.str("organization_id")
	locationID := req.str("location_id")
	key := req.str("access_key")
	if err := req.validate(); err != nil {
		return nil, err
	}

	invoice, err := h.svc.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	result, err := h.svc.Import(ctx, nfe.ImportInput{
		OrganizationID: orgID,
		LocationID:     locationID,
		Invoice:        invoice,
	})
	if err != nil {
		return nil, err
	}
	return importResultObject(result), nil
}

func (h *InvoiceHandler) listImports(ctx context.Context, req *request) (object, error) {
	in := nfe.ListImportsInput{
		OrganizationID: req.str("organization_id"),
		PageSize:       req.integer("page_size"),
		PageToken:      req.str("page_token"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	result, err := h.svc.ListImports(ctx, in)
	if err != nil {
		return nil, err
	}
	return pageObject("imports", listValue(result.Imports, importObject), result.NextPageToken), nil
}

func invoiceObject(inv *nfe.Invoice) object {
	return object{
		"access_key":   inv.AccessKey,
		"number":       inv.Number,
		"series":       inv.Series,
		"issued_at":    timeValue(inv.IssuedAt),
		"emitter_cnpj": inv.EmitterCNPJ,
		"emitter_name": inv.EmitterName,
		"total_value":  decValue(inv.TotalValue),
		"items":        listValue(inv.Items, invoiceItemObject),
	}
}

func invoiceItemObject(it nfe.InvoiceItem) object {
	return object{
		"line":        it.Line,
		"code":        it.Code,
		"ean":         it.EAN,
		"description": it.Description,
		"ncm":         it.NCM,
		"cfop":        it.CFOP,
		"unit":        it.Unit,
		"quantity":    decValue(it.Quantity),
		"unit_value":  decValue(it.UnitValue),
		"total":       decValue(it.Total),
	}
}

func importObject(imp *nfe.Import) object {
	return object{
		"id":              imp.ID,
		"organization_id": imp.OrganizationID,
		"access_key":      imp.AccessKey,
		"number":          imp.Number,
		"series":          imp.Series,
		"emitter_cnpj":    imp.EmitterCNPJ,
		"emitter_name":    imp.EmitterName,
		"batch_id":        imp.BatchID,
		"location_id":     imp.LocationID,
		"imported_lines":  imp.ImportedLines,
		"unmatched_lines": imp.UnmatchedLines,
		"total_value":     decValue(imp.TotalValue),
		"imported_at":     timeValue(imp.ImportedAt),
	}
}

func importResultObject(r *nfe.ImportResult) object {
	return object{
		"import": nested(importObject(r.Import)),
		"imported": listValue(r.Imported, func(l nfe.ImportedLine) object {
			return object{
				"item":        nested(invoiceItemObject(l.Item)),
				"product_id":  l.ProductID,
				"matched_by":  l.MatchedBy,
				"movement_id": l.MovementID,
			}
		}),
		"unmatched": listValue(r.Unmatched, invoiceItemObject),
	}
}
