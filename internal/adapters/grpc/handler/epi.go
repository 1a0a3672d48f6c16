package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/ogurasousui/stockly/internal/core/epi"
)

// EPIHandler は stockly.v1.EPIService の gRPC 実装です。
// 保護具の種別、要件、支給、受領書をまとめて扱います。
type EPIHandler struct {
	svc epi.UseCase
}

// NewEPIHandler は EPIHandler を生成します。
func NewEPIHandler(svc epi.UseCase) *EPIHandler {
	return &EPIHandler{svc: svc}
}

// Register は EPIService を登録します。
func (h *EPIHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(newServiceDesc("EPIService", map[string]unaryMethod{
		"CreateEPI":         h.createEPI,
		"GetEPI":            h.getEPI,
		"ListEPIs":          h.listEPIs,
		"UpdateEPI":         h.updateEPI,
		"DeleteEPI":         h.deleteEPI,
		"AdjustStock":       h.adjustStock,
		"CreateRequirement": h.createRequirement,
		"DeleteRequirement": h.deleteRequirement,
		"ListRequirements":  h.listRequirements,
		"RequirementsFor":   h.requirementsFor,
		"DeliverEPI":        h.deliverEPI,
		"ReturnDelivery":    h.returnDelivery,
		"ExpireOverdue":     h.expireOverdue,
		"ListDeliveries":    h.listDeliveries,
		"IssueDeliveryTerm": h.issueDeliveryTerm,
		"GetDeliveryTerm":   h.getDeliveryTerm,
	}), h)
}

func (h *EPIHandler) createEPI(ctx context.Context, req *request) (object, error) {
	in := epi.CreateEPIInput{
		OrganizationID: req.str("organization_id"),
		Name:           req.str("name"),
		Category:       req.str("category"),
		CANumber:       req.optStr("ca_number"),
		ValidityDays:   req.integer("validity_days"),
		StockQuantity:  req.integer("stock_quantity"),
		MinimumStock:   req.integer("minimum_stock"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	created, err := h.svc.CreateEPI(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"epi": nested(epiObject(created))}, nil
}

func (h *EPIHandler) getEPI(ctx context.Context, req *request) (object, error) {
	in := epi.GetEPIInput{OrganizationID: req.str("organization_id"), ID: req.str("id")}
	if err := req.validate(); err != nil {
		return nil, err
	}

	found, err := h.svc.GetEPI(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"epi": nested(epiObject(found))}, nil
}

func (h *EPIHandler) listEPIs(ctx context.Context, req *request) (object, error) {
	in := epi.ListEPIsInput{
		OrganizationID: req.str("organization_id"),
		Category:       req.optStr("category"),
		LowStockOnly:   req.boolean("low_stock_only"),
		PageSize:       req.integer("page_size"),
		PageToken:      req.str("page_token"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	result, err := h.svc.ListEPIs(ctx, in)
	if err != nil {
		return nil, err
	}
	return pageObject("epis", listValue(result.EPIs, epiObject), result.NextPageToken), nil
}

func (h *EPIHandler) updateEPI(ctx context.Context, req *request) (object, error) {
	in := epi.UpdateEPIInput{
		OrganizationID: req.str("organization_id"),
		ID:             req.str("id"),
		Name:           req.optStr("name"),
		Category:       req.optStr("category"),
		CANumber:       req.optStr("ca_number"),
		ValidityDays:   req.optInteger("validity_days"),
		MinimumStock:   req.optInteger("minimum_stock"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	updated, err := h.svc.UpdateEPI(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"epi": nested(epiObject(updated))}, nil
}

func (h *EPIHandler) deleteEPI(ctx context.Context, req *request) (object, error) {
	in := epi.DeleteEPIInput{OrganizationID: req.str("organization_id"), ID: req.str("id")}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := h.svc.DeleteEPI(ctx, in); err != nil {
		return nil, err
	}
	return object{}, nil
}

func (h *EPIHandler) adjustStock(ctx context.Context, req *request) (object, error) {
	in := epi.AdjustStockInput{
		OrganizationID: req.str("organization_id"),
		ID:             req.str("id"),
		Delta:          req.integer("delta"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	adjusted, err := h.svc.AdjustStock(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"epi": nested(epiObject(adjusted))}, nil
}

func (h *EPIHandler) createRequirement(ctx context.Context, req *request) (object, error) {
	in := epi.CreateRequirementInput{
		OrganizationID: req.str("organization_id"),
		Category:       req.str("category"),
		Department:     req.optStr("department"),
		Position:       req.optStr("position"),
		Mandatory:      req.boolean("mandatory"),
		Notes:          req.optStr("notes"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	created, err := h.svc.CreateRequirement(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"requirement": nested(requirementObject(created))}, nil
}

func (h *EPIHandler) deleteRequirement(ctx context.Context, req *request) (object, error) {
	in := epi.DeleteRequirementInput{OrganizationID: req.str("organization_id"), ID: req.str("id")}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := h.svc.DeleteRequirement(ctx, in); err != nil {
		return nil, err
	}
	return object{}, nil
}

func (h *EPIHandler) listRequirements(ctx context.Context, req *request) (object, error) {
	orgID := req.str("organization_id")
	if err := req.validate(); err != nil {
		return nil, err
	}

	requirements, err := h.svc.ListRequirements(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return object{"requirements": listValue(requirements, requirementObject)}, nil
}

func (h *EPIHandler) requirementsFor(ctx context.Context, req *request) (object, error) {
	in := epi.RequirementsForInput{
		OrganizationID: req.str("organization_id"),
		Department:     req.str("department"),
		Position:       req.str("position"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	requirements, err := h.svc.RequirementsFor(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"requirements": listValue(requirements, requirementObject)}, nil
}

func (h *EPIHandler) deliverEPI(ctx context.Context, req *request) (object, error) {
	in := epi.DeliverEPIInput{
		OrganizationID: req.str("organization_id"),
		EPIID:          req.str("epi_id"),
		EmployeeID:     req.str("employee_id"),
		Quantity:       req.integer("quantity"),
		DeliveredAt:    req.optTime("delivered_at"),
		Notes:          req.optStr("notes"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	delivery, err := h.svc.DeliverEPI(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"delivery": nested(deliveryObject(delivery))}, nil
}

func (h *EPIHandler) returnDelivery(ctx context.Context, req *request) (object, error) {
	in := epi.ReturnDeliveryInput{
		OrganizationID: req.str("organization_id"),
		ID:             req.str("id"),
		ReturnedAt:     req.optTime("returned_at"),
		ReturnToStock:  req.boolean("return_to_stock"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	delivery, err := h.svc.ReturnDelivery(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"delivery": nested(deliveryObject(delivery))}, nil
}

func (h *EPIHandler) expireOverdue(ctx context.Context, req *request) (object, error) {
	orgID := req.str("organization_id")
	if err := req.validate(); err != nil {
		return nil, err
	}

	expired, err := h.svc.ExpireOverdue(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return object{"expired": expired}, nil
}

func (h *EPIHandler) listDeliveries(ctx context.Context, req *request) (object, error) {
	in := epi.ListDeliveriesInput{
		OrganizationID: req.str("organization_id"),
		EmployeeID:     req.optStr("employee_id"),
		EPIID:          req.optStr("epi_id"),
		PageSize:       req.integer("page_size"),
		PageToken:      req.str("page_token"),
	}
	if s := req.optStr("status"); s != nil && *s != "" {
		st := epi.DeliveryStatus(*s)
		in.Status = &st
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	result, err := h.svc.ListDeliveries(ctx, in)
	if err != nil {
		return nil, err
	}
	return pageObject("deliveries", listValue(result.Deliveries, deliveryObject), result.NextPageToken), nil
}

func (h *EPIHandler) issueDeliveryTerm(ctx context.Context, req *request) (object, error) {
	in := epi.IssueDeliveryTermInput{
		OrganizationID: req.str("organization_id"),
		EmployeeID:     req.str("employee_id"),
		DeliveryIDs:    req.stringList("delivery_ids"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	term, err := h.svc.IssueDeliveryTerm(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"term": nested(termObject(term))}, nil
}

func (h *EPIHandler) getDeliveryTerm(ctx context.Context, req *request) (object, error) {
	in := epi.GetDeliveryTermInput{OrganizationID: req.str("organization_id"), ID: req.str("id")}
	if err := req.validate(); err != nil {
		return nil, err
	}

	term, err := h.svc.GetDeliveryTerm(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"term": nested(termObject(term))}, nil
}

func epiObject(e *epi.EPI) object {
	if e == nil {
		return nil
	}
	return object{
		"id":              e.ID,
		"organization_id": e.OrganizationID,
		"name":            e.Name,
		"category":        e.Category,
		"ca_number":       optStringValue(e.CANumber),
		"validity_days":   e.ValidityDays,
		"stock_quantity":  e.StockQuantity,
		"minimum_stock":   e.MinimumStock,
		"low_stock":       e.IsLowStock(),
		"created_at":      timeValue(e.CreatedAt),
		"updated_at":      timeValue(e.UpdatedAt),
	}
}

func requirementObject(r *epi.Requirement) object {
	return object{
		"id":              r.ID,
		"organization_id": r.OrganizationID,
		"category":        r.Category,
		"department":      optStringValue(r.Department),
		"position":        optStringValue(r.Position),
		"mandatory":       r.Mandatory,
		"notes":           optStringValue(r.Notes),
		"created_at":      timeValue(r.CreatedAt),
	}
}

func deliveryObject(d *epi.Delivery) object {
	if d == nil {
		return nil
	}
	return object{
		"id":              d.ID,
		"organization_id": d.OrganizationID,
		"epi_id":          d.EPIID,
		"employee_id":     d.EmployeeID,
		"quantity":        d.Quantity,
		"delivered_at":    timeValue(d.DeliveredAt),
		"expires_at":      optTimeValue(d.ExpiresAt),
		"status":          string(d.Status),
		"returned_at":     optTimeValue(d.ReturnedAt),
		"term_id":         optStringValue(d.TermID),
		"notes":           optStringValue(d.Notes),
		"created_at":      timeValue(d.CreatedAt),
		"updated_at":      timeValue(d.UpdatedAt),
	}
}

func termObject(t *epi.DeliveryTerm) object {
	if t == nil {
		return nil
	}
	return object{
		"id":              t.ID,
		"organization_id": t.OrganizationID,
		"number":          t.Number,
		"employee_id":     t.EmployeeID,
		"delivery_ids":    stringsValue(t.DeliveryIDs),
		"issued_at":       timeValue(t.IssuedAt),
	}
}
