package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/ogurasousui/stockly/internal/core/compliance"
)

// ComplianceHandler は stockly.v1.ComplianceService の gRPC 実装です。
type ComplianceHandler struct {
	svc compliance.UseCase
}

// NewComplianceHandler は ComplianceHandler を生成します。
func NewComplianceHandler(svc compliance.UseCase) *ComplianceHandler {
	return &ComplianceHandler{svc: svc}
}

// Register は ComplianceService を登録します。
func (h *ComplianceHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(newServiceDesc("ComplianceService", map[string]unaryMethod{
		"Evaluate":           h.evaluate,
		"Summary":            h.summary,
		"EmployeeStatus":     h.employeeStatus,
		"NotifyNonCompliant": h.notifyNonCompliant,
	}), h)
}

func (h *ComplianceHandler) evaluate(ctx context.Context, req *request) (object, error) {
	orgID := req.str("organization_id")
	if err := req.validate(); err != nil {
		return nil, err
	}

	report, err := h.svc.Evaluate(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return object{
		"organization_id": report.OrganizationID,
		"evaluated_at":    timeValue(report.EvaluatedAt),
		"statuses":        listValue(report.Statuses, employeeStatusObject),
		"summary":         nested(summaryObject(&report.Summary)),
		"non_compliant":   listValue(report.NonCompliant, employeeStatusObject),
	}, nil
}

func (h *ComplianceHandler) summary(ctx context.Context, req *request) (object, error) {
	orgID := req.str("organization_id")
	if err := req.validate(); err != nil {
		return nil, err
	}

	summary, err := h.svc.Summary(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return object{"summary": nested(summaryObject(summary))}, nil
}

func (h *ComplianceHandler) employeeStatus(ctx context.Context, req *request) (object, error) {
	orgID := req.str("organization_id")
	employeeID := req.str("employee_id")
	if err := req.validate(); err != nil {
		return nil, err
	}

	st, err := h.svc.EmployeeStatus(ctx, orgID, employeeID)
	if err != nil {
		return nil, err
	}
	return object{"status": nested(employeeStatusObject(*st))}, nil
}

func (h *ComplianceHandler) notifyNonCompliant(ctx context.Context, req *request) (object, error) {
	in := compliance.NotifyInput{
		OrganizationID: req.str("organization_id"),
		Recipients:     req.stringList("recipients"),
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	notified, err := h.svc.NotifyNonCompliant(ctx, in)
	if err != nil {
		return nil, err
	}
	return object{"non_compliant_employees": notified}, nil
}

func employeeStatusObject(s compliance.EmployeeStatus) object {
	return object{
		"employee_id":          s.EmployeeID,
		"employee_name":        s.EmployeeName,
		"department":           s.Department,
		"position":             s.Position,
		"required_categories":  stringsValue(s.RequiredCategories),
		"delivered_categories": stringsValue(s.DeliveredCategories),
		"missing_categories":   stringsValue(s.MissingCategories),
		"expired_categories":   stringsValue(s.ExpiredCategories),
		"compliant":            s.Compliant,
		"compliance_rate":      s.ComplianceRate,
	}
}

func summaryObject(s *compliance.Summary) object {
	return object{
		"total_employees":         s.TotalEmployees,
		"compliant_employees":     s.CompliantEmployees,
		"non_compliant_employees": s.NonCompliantEmployees,
		"employees_with_missing":  s.EmployeesWithMissing,
		"employees_with_expired":  s.EmployeesWithExpired,
		"overall_compliance_rate": s.OverallComplianceRate,
	}
}
