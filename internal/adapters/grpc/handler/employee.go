package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/ogurasousui/stockly/internal/core/employee"
	"github.com/ogurasousui/stockly/internal/platform/format"
)

// EmployeeHandler は stockly.v1.EmployeeService の gRPC 実装です。
type EmployeeHandler struct {
	svc employee.UseCase
}

// NewEmployeeHandler は EmployeeHandler を生成します。
func NewEmployeeHandler(svc employee.UseCase) *EmployeeHandler {
	return &EmployeeHandler{svc: svc}
}

// Register は EmployeeService を登録します。
func (h *EmployeeHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(newServiceDesc("EmployeeService", map[string]unaryMethod{
		"CreateEmployee":      h.createEmployee,
		"GetEmployee":         h.getEmployee,
		"ListEmployees":       h.listEmployees,
		"ListActiveEmployees": h.listActiveEmployees,
		"UpdateEmployee":      h.updateEmployee,
		"DeleteEmployee":      h.deleteEmployee,
	}), h)
}

func (h *EmployeeHandler) createEmployee(ctx context.Context, req *request) (object, error) {
	in := employee.CreateEmployeeInput{
		OrganizationID: req.str("organization_id"),
		Name:           req.str("name"),
		Document:       req.optStr("document"),
		Department:     req.str("department"),
		Position:       req.str("position"),
		Email:          req.optStr("email"),
		HiredAt:        req.optTime("hired_at"),
		TerminatedAt:   req.optTime("terminated_at"),
	}
	if s := req.optStr("status"); s != nil {
		st := employee.Status(*s)
		in.Status = &st
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	created, err := h.svc.CreateEmployee(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"employee": nested(employeeObject(created))}, nil
}

func (h *EmployeeHandler) getEmployee(ctx context.Context, req *request) (object, error) {
	in := employee.GetEmployeeInput{OrganizationID: req.str("organization_id"), ID: req.str("id")}
	if err := req.validate(); err != nil {
		return nil, err
	}

	found, err := h.svc.GetEmployee(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"employee": nested(employeeObject(found))}, nil
}

func (h *EmployeeHandler) listEmployees(ctx context.Context, req *request) (object, error) {
	in := employee.ListEmployeesInput{
		OrganizationID: req.str("organization_id"),
		PageSize:       req.integer("page_size"),
		PageToken:      req.str("page_token"),
		Department:     req.optStr("department"),
	}
	if s := req.optStr("status"); s != nil && *s != "" {
		st := employee.Status(*s)
		in.Status = &st
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	result, err := h.svc.ListEmployees(ctx, in)
	if err != nil {
		return nil, err
	}
	return pageObject("employees", listValue(result.Employees, employeeObject), result.NextPageToken), nil
}

func (h *EmployeeHandler) listActiveEmployees(ctx context.Context, req *request) (object, error) {
	orgID := req.str("organization_id")
	if err := req.validate(); err != nil {
		return nil, err
	}

	employees, err := h.svc.ListActive(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return object{"employees": listValue(employees, employeeObject)}, nil
}

// updateEmployee は送られたフィールドだけを更新します。
// hired_at / terminated_at に null を送るとその日付を消去します。
func (h *EmployeeHandler) updateEmployee(ctx context.Context, req *request) (object, error) {
	in := employee.UpdateEmployeeInput{
		OrganizationID:  req.str("organization_id"),
		ID:              req.str("id"),
		Name:            req.optStr("name"),
		Document:        req.optStr("document"),
		Department:      req.optStr("department"),
		Position:        req.optStr("position"),
		Email:           req.optStr("email"),
		HiredAt:         req.optTime("hired_at"),
		HiredAtSet:      req.present("hired_at"),
		TerminatedAt:    req.optTime("terminated_at"),
		TerminatedAtSet: req.present("terminated_at"),
	}
	if s := req.optStr("status"); s != nil {
		st := employee.Status(*s)
		in.Status = &st
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	updated, err := h.svc.UpdateEmployee(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"employee": nested(employeeObject(updated))}, nil
}

func (h *EmployeeHandler) deleteEmployee(ctx context.Context, req *request) (object, error) {
	in := employee.DeleteEmployeeInput{OrganizationID: req.str("organization_id"), ID: req.str("id")}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := h.svc.DeleteEmployee(ctx, in); err != nil {
		return nil, err
	}
	return object{}, nil
}

func employeeObject(e *employee.Employee) object {
	if e == nil {
		return nil
	}
	return object{
		"id":              e.ID,
		"organization_id": e.OrganizationID,
		"name":            e.Name,
		"document":        optStringValue(e.Document),
		"document_masked": maskedValue(e.Document, format.MaskCPF),
		"department":      e.Department,
		"position":        e.Position,
		"email":           optStringValue(e.Email),
		"status":          string(e.Status),
		"hired_at":        dateValue(e.HiredAt),
		"terminated_at":   dateValue(e.TerminatedAt),
		"created_at":      timeValue(e.CreatedAt),
		"updated_at":      timeValue(e.UpdatedAt),
	}
}
