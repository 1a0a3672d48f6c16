package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/ogurasousui/stockly/internal/core/supplier"
	"github.com/ogurasousui/stockly/internal/platform/format"
)

// SupplierHandler は stockly.v1.SupplierService の gRPC 実装です。
type SupplierHandler struct {
	svc supplier.UseCase
}

// NewSupplierHandler は SupplierHandler を生成します。
func NewSupplierHandler(svc supplier.UseCase) *SupplierHandler {
	return &SupplierHandler{svc: svc}
}

// Register は SupplierService を登録します。
func (h *SupplierHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(newServiceDesc("SupplierService", map[string]unaryMethod{
		"CreateSupplier":    h.createSupplier,
		"GetSupplier":       h.getSupplier,
		"ListSuppliers":     h.listSuppliers,
		"UpdateSupplier":    h.updateSupplier,
		"DeleteSupplier":    h.deleteSupplier,
		"Evaluate":          h.evaluate,
		"RecordPerformance": h.recordPerformance,
		"Scorecard":         h.scorecard,
	}), h)
}

func (h *SupplierHandler) createSupplier(ctx context.Context, req *request) (object, error) {
	in := supplier.CreateSupplierInput{
		OrganizationID: req.str("organization_id"),
		Name:           req.str("name"),
		CNPJ:           req.str("cnpj"),
		Email:          req.optStr("email"),
		Phone:          req.optStr("phone"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	created, err := h.svc.CreateSupplier(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"supplier": nested(supplierObject(created))}, nil
}

func (h *SupplierHandler) getSupplier(ctx context.Context, req *request) (object, error) {
	in := supplier.GetSupplierInput{OrganizationID: req.str("organization_id"), ID: req.str("id")}
	if err := req.validate(); err != nil {
		return nil, err
	}

	found, err := h.svc.GetSupplier(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"supplier": nested(supplierObject(found))}, nil
}

func (h *SupplierHandler) listSuppliers(ctx context.Context, req *request) (object, error) {
	in := supplier.ListSuppliersInput{
		OrganizationID: req.str("organization_id"),
		PageSize:       req.integer("page_size"),
		PageToken:      req.str("page_token"),
	}
	if s := req.optStr("status"); s != nil && *s != "" {
		st := supplier.Status(*s)
		in.Status = &st
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	result, err := h.svc.ListSuppliers(ctx, in)
	if err != nil {
		return nil, err
	}
	return pageObject("suppliers", listValue(result.Suppliers, supplierObject), result.NextPageToken), nil
}

func (h *SupplierHandler) updateSupplier(ctx context.Context, req *request) (object, error) {
	in := supplier.UpdateSupplierInput{
		OrganizationID: req.str("organization_id"),
		ID:             req.str("id"),
		Name:           req.optStr("name"),
		CNPJ:           req.optStr("cnpj"),
		Email:          req.optStr("email"),
		Phone:          req.optStr("phone"),
	}
	if s := req.optStr("status"); s != nil {
		st := supplier.Status(*s)
		in.Status = &st
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	updated, err := h.svc.UpdateSupplier(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"supplier": nested(supplierObject(updated))}, nil
}

func (h *SupplierHandler) deleteSupplier(ctx context.Context, req *request) (object, error) {
	in := supplier.DeleteSupplierInput{OrganizationID: req.str("organization_id"), ID: req.str("id")}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := h.svc.DeleteSupplier(ctx, in); err != nil {
		return nil, err
	}
	return object{}, nil
}

func (h *SupplierHandler) evaluate(ctx context.Context, req *request) (object, error) {
	in := supplier.EvaluateInput{
		OrganizationID: req.str("organization_id"),
		SupplierID:     req.str("supplier_id"),
		Quality:        req.integer("quality"),
		Delivery:       req.integer("delivery"),
		Price:          req.integer("price"),
		Service:        req.integer("service"),
		Comment:        req.optStr("comment"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	ev, err := h.svc.Evaluate(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"evaluation": map[string]interface{}{
		"id":           ev.ID,
		"supplier_id":  ev.SupplierID,
		"quality":      ev.Quality,
		"delivery":     ev.Delivery,
		"price":        ev.Price,
		"service":      ev.Service,
		"average":      ev.Average(),
		"comment":      optStringValue(ev.Comment),
		"evaluated_at": timeValue(ev.EvaluatedAt),
	}}, nil
}

func (h *SupplierHandler) recordPerformance(ctx context.Context, req *request) (object, error) {
	in := supplier.RecordPerformanceInput{
		OrganizationID:   req.str("organization_id"),
		SupplierID:       req.str("supplier_id"),
		PurchaseOrderID:  req.str("purchase_order_id"),
		ExpectedDate:     req.optTime("expected_date"),
		ReceivedDate:     req.timestamp("received_date"),
		OrderedQuantity:  req.dec("ordered_quantity"),
		ReceivedQuantity: req.dec("received_quantity"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	p, err := h.svc.RecordPerformance(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"performance": map[string]interface{}{
		"id":                p.ID,
		"supplier_id":       p.SupplierID,
		"purchase_order_id": p.PurchaseOrderID,
		"expected_date":     dateValue(p.ExpectedDate),
		"received_date":     dateValue(&p.ReceivedDate),
		"on_time":           p.OnTime,
		"ordered_quantity":  decValue(p.OrderedQuantity),
		"received_quantity": decValue(p.ReceivedQuantity),
		"created_at":        timeValue(p.CreatedAt),
	}}, nil
}

func (h *SupplierHandler) scorecard(ctx context.Context, req *request) (object, error) {
	in := supplier.GetSupplierInput{OrganizationID: req.str("organization_id"), ID: req.str("id")}
	if err := req.validate(); err != nil {
		return nil, err
	}

	sc, err := h.svc.Scorecard(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"scorecard": map[string]interface{}{
		"supplier_id":        sc.SupplierID,
		"evaluation_count":   sc.EvaluationCount,
		"average_quality":    sc.AverageQuality,
		"average_delivery":   sc.AverageDelivery,
		"average_price":      sc.AveragePrice,
		"average_service":    sc.AverageService,
		"overall_average":    sc.OverallAverage,
		"delivery_count":     sc.DeliveryCount,
		"on_time_rate":       sc.OnTimeRate,
		"fill_rate":          sc.FillRate,
		"last_evaluated_at":  optTimeValue(sc.LastEvaluatedAt),
		"last_delivery_date": dateValue(sc.LastDeliveryDate),
	}}, nil
}

func supplierObject(s *supplier.Supplier) object {
	if s == nil {
		return nil
	}
	return object{
		"id":              s.ID,
		"organization_id": s.OrganizationID,
		"name":            s.Name,
		"cnpj":            s.CNPJ,
		"cnpj_masked":     format.MaskCNPJ(s.CNPJ),
		"email":           optStringValue(s.Email),
		"phone":           optStringValue(s.Phone),
		"phone_masked":    maskedValue(s.Phone, format.MaskPhone),
		"status":          string(s.Status),
		"created_at":      timeValue(s.CreatedAt),
		"updated_at":      timeValue(s.UpdatedAt),
	}
}
