package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/ogurasousui/stockly/internal/core/product"
	"github.com/ogurasousui/stockly/internal/platform/format"
)

// ProductHandler は stockly.v1.ProductService の gRPC 実装です。
type ProductHandler struct {
	svc product.UseCase
}

// NewProductHandler は ProductHandler を生成します。
func NewProductHandler(svc product.UseCase) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// Register は ProductService を登録します。
func (h *ProductHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(newServiceDesc("ProductService", map[string]unaryMethod{
		"CreateProduct": h.createProduct,
		"GetProduct":    h.getProduct,
		"ListProducts":  h.listProducts,
		"UpdateProduct": h.updateProduct,
		"DeleteProduct": h.deleteProduct,
		"LowStock":      h.lowStock,
	}), h)
}

func (h *ProductHandler) createProduct(ctx context.Context, req *request) (object, error) {
	in := product.CreateProductInput{
		OrganizationID: req.str("organization_id"),
		SKU:            req.str("sku"),
		Name:           req.str("name"),
		Category:       req.str("category"),
		Unit:           req.str("unit"),
		EAN:            req.optStr("ean"),
		UnitCost:       req.dec("unit_cost"),
		MinimumStock:   req.dec("minimum_stock"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	created, err := h.svc.CreateProduct(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"product": nested(productObject(created))}, nil
}

func (h *ProductHandler) getProduct(ctx context.Context, req *request) (object, error) {
	in := product.GetProductInput{OrganizationID: req.str("organization_id"), ID: req.str("id")}
	if err := req.validate(); err != nil {
		return nil, err
	}

	found, err := h.svc.GetProduct(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"product": nested(productObject(found))}, nil
}

func (h *ProductHandler) listProducts(ctx context.Context, req *request) (object, error) {
	in := product.ListProductsInput{
		OrganizationID: req.str("organization_id"),
		Category:       req.optStr("category"),
		Search:         req.optStr("search"),
		PageSize:       req.integer("page_size"),
		PageToken:      req.str("page_token"),
	}
	if s := req.optStr("status"); s != nil && *s != "" {
		st := product.Status(*s)
		in.Status = &st
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	result, err := h.svc.ListProducts(ctx, in)
	if err != nil {
		return nil, err
	}
	return pageObject("products", listValue(result.Products, productObject), result.NextPageToken), nil
}

func (h *ProductHandler) updateProduct(ctx context.Context, req *request) (object, error) {
	in := product.UpdateProductInput{
		OrganizationID: req.str("organization_id"),
		ID:             req.str("id"),
		SKU:            req.optStr("sku"),
		Name:           req.optStr("name"),
		Category:       req.optStr("category"),
		Unit:           req.optStr("unit"),
		EAN:            req.optStr("ean"),
		UnitCost:       req.optDec("unit_cost"),
		MinimumStock:   req.optDec("minimum_stock"),
	}
	if s := req.optStr("status"); s != nil {
		st := product.Status(*s)
		in.Status = &st
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	updated, err := h.svc.UpdateProduct(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"product": nested(productObject(updated))}, nil
}

func (h *ProductHandler) deleteProduct(ctx context.Context, req *request) (object, error) {
	in := product.DeleteProductInput{OrganizationID: req.str("organization_id"), ID: req.str("id")}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := h.svc.DeleteProduct(ctx, in); err != nil {
		return nil, err
	}
	return object{}, nil
}

func (h *ProductHandler) lowStock(ctx context.Context, req *request) (object, error) {
	orgID := req.str("organization_id")
	if err := req.validate(); err != nil {
		return nil, err
	}

	items, err := h.svc.LowStock(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return object{"items": listValue(items, func(it *product.LowStockItem) object {
		return object{
			"product":  nested(productObject(it.Product)),
			"balance":  decValue(it.Balance),
			"shortage": decValue(it.Shortage()),
		}
	})}, nil
}

func productObject(p *product.Product) object {
	if p == nil {
		return nil
	}
	return object{
		"id":              p.ID,
		"organization_id": p.OrganizationID,
		"sku":             p.SKU,
		"name":            p.Name,
		"category":        p.Category,
		"unit":            p.Unit,
		"ean":             optStringValue(p.EAN),
		"unit_cost":       decValue(p.UnitCost),
		"unit_cost_brl":   format.FormatBRL(p.UnitCost),
		"minimum_stock":   decValue(p.MinimumStock),
		"status":          string(p.Status),
		"created_at":      timeValue(p.CreatedAt),
		"updated_at":      timeValue(p.UpdatedAt),
	}
}
