package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/ogurasousui/stockly/internal/core/organization"
	"github.com/ogurasousui/stockly/internal/platform/format"
)

// OrganizationHandler は stockly.v1.OrganizationService の gRPC 実装です。
type OrganizationHandler struct {
	svc organization.UseCase
}

// NewOrganizationHandler は OrganizationHandler を生成します。
func NewOrganizationHandler(svc organization.UseCase) *OrganizationHandler {
	return &OrganizationHandler{svc: svc}
}

// Register は OrganizationService を登録します。
func (h *OrganizationHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(newServiceDesc("OrganizationService", map[string]unaryMethod{
		"CreateOrganization": h.createOrganization,
		"GetOrganization":    h.getOrganization,
		"ListOrganizations":  h.listOrganizations,
		"UpdateOrganization": h.updateOrganization,
		"DeleteOrganization": h.deleteOrganization,
	}), h)
}

func (h *OrganizationHandler) createOrganization(ctx context.Context, req *request) (object, error) {
	in := organization.CreateOrganizationInput{
		Name: req.str("name"),
		Code: req.str("code"),
		CNPJ: req.optStr("cnpj"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	created, err := h.svc.CreateOrganization(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"organization": nested(organizationObject(created))}, nil
}

func (h *OrganizationHandler) getOrganization(ctx context.Context, req *request) (object, error) {
	id := req.str("id")
	if err := req.validate(); err != nil {
		return nil, err
	}

	found, err := h.svc.GetOrganization(ctx, organization.GetOrganizationInput{ID: id})
	if err != nil {
		return nil, err
	}
	return object{"organization": nested(organizationObject(found))}, nil
}

func (h *OrganizationHandler) listOrganizations(ctx context.Context, req *request) (object, error) {
	in := organization.ListOrganizationsInput{
		PageSize:  req.integer("page_size"),
		PageToken: req.str("page_token"),
	}
	if s := req.optStr("status"); s != nil && *s != "" {
		st := organization.Status(*s)
		in.Status = &st
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	result, err := h.svc.ListOrganizations(ctx, in)
	if err != nil {
		return nil, err
	}
	return pageObject("organizations", listValue(result.Organizations, organizationObject), result.NextPageToken), nil
}

func (h *OrganizationHandler) updateOrganization(ctx context.Context, req *request) (object, error) {
	in := organization.UpdateOrganizationInput{
		ID:   req.str("id"),
		Name: req.optStr("name"),
		Code: req.optStr("code"),
		CNPJ: req.optStr("cnpj"),
	}
	if s := req.optStr("status"); s != nil {
		st := organization.Status(*s)
		in.Status = &st
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	updated, err := h.svc.UpdateOrganization(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"organization": nested(organizationObject(updated))}, nil
}

func (h *OrganizationHandler) deleteOrganization(ctx context.Context, req *request) (object, error) {
	id := req.str("id")
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := h.svc.DeleteOrganization(ctx, organization.DeleteOrganizationInput{ID: id}); err != nil {
		return nil, err
	}
	return object{}, nil
}

func organizationObject(o *organization.Organization) object {
	if o == nil {
		return nil
	}
	return object{
		"id":          o.ID,
		"name":        o.Name,
		"code":        o.Code,
		"cnpj":        optStringValue(o.CNPJ),
		"cnpj_masked": maskedValue(o.CNPJ, format.MaskCNPJ),
		"status":      string(o.Status),
		"created_at":  timeValue(o.CreatedAt),
		"updated_at":  timeValue(o.UpdatedAt),
	}
}
