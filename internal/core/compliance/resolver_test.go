package compliance

import (
	"reflect"
	"testing"
	"time"

	"github.com/ogurasousui/stockly/internal/core/employee"
	"github.com/ogurasousui/stockly/internal/core/epi"
)

var now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func activeEmployee(id, name, department, position string) *employee.Employee {
	return &employee.Employee{ID: id, Name: name, Department: department, Position: position, Status: employee.StatusActive}
}

func deptRequirement(category, department string) *epi.Requirement {
	return &epi.Requirement{Category: category, Department: strPtr(department), Mandatory: true}
}

func positionRequirement(category, position string) *epi.Requirement {
	return &epi.Requirement{Category: category, Position: strPtr(position), Mandatory: true}
}

func inUse(employeeID, epiID string, expires *time.Time) *epi.Delivery {
	return &epi.Delivery{EmployeeID: employeeID, EPIID: epiID, Quantity: 1, Status: epi.DeliveryStatusInUse, ExpiresAt: expires}
}

func onlyStatus(t *testing.T, r *Report) EmployeeStatus {
	t.Helper()
	if len(r.Statuses) != 1 {
		t.Fatalf("expected exactly one status, got %d", len(r.Statuses))
	}
	return r.Statuses[0]
}

func TestResolve_VacuousCompliance(t *testing.T) {
	t.Parallel()

	report := Resolve(Input{
		Employees:    []*employee.Employee{activeEmployee("e1", "Ana", "Administrativo", "Analista")},
		Requirements: []*epi.Requirement{deptRequirement("Luva", "Produção")},
	}, now)

	st := onlyStatus(t, report)
	if len(st.MissingCategories) != 0 || len(st.ExpiredCategories) != 0 {
		t.Fatalf("expected nothing missing or expired, got %+v", st)
	}
	if !st.Compliant || st.ComplianceRate != 100 {
		t.Fatalf("expected vacuous compliance, got compliant=%v rate=%v", st.Compliant, st.ComplianceRate)
	}
}

func TestResolve_MissingDetection(t *testing.T) {
	t.Parallel()

	report := Resolve(Input{
		Employees:    []*employee.Employee{activeEmployee("e1", "Ana", "Produção", "")},
		EPIs:         []*epi.EPI{{ID: "epi-luva", Category: "Luva"}},
		Requirements: []*epi.Requirement{deptRequirement("Luva", "Produção")},
	}, now)

	st := onlyStatus(t, report)
	if !reflect.DeepEqual(st.MissingCategories, []string{"Luva"}) {
		t.Fatalf("expected missing [Luva], got %v", st.MissingCategories)
	}
	if st.Compliant {
		t.Fatalf("expected non-compliant")
	}
	if st.ComplianceRate != 0 {
		t.Fatalf("expected rate 0, got %v", st.ComplianceRate)
	}
}

func TestResolve_ExpiryDetection(t *testing.T) {
	t.Parallel()

	report := Resolve(Input{
		Employees:    []*employee.Employee{activeEmployee("e1", "Ana", "Produção", "")},
		EPIs:         []*epi.EPI{{ID: "epi-cap", Category: "Capacete"}},
		Requirements: []*epi.Requirement{deptRequirement("Capacete", "Produção")},
		Deliveries:   []*epi.Delivery{inUse("e1", "epi-cap", timePtr(now.AddDate(0, 0, -1)))},
	}, now)

	st := onlyStatus(t, report)
	if !reflect.DeepEqual(st.ExpiredCategories, []string{"Capacete"}) {
		t.Fatalf("expected expired [Capacete], got %v", st.ExpiredCategories)
	}
	if !reflect.DeepEqual(st.MissingCategories, []string{"Capacete"}) {
		t.Fatalf("expired delivery must not satisfy the requirement, got missing %v", st.MissingCategories)
	}
	if st.Compliant {
		t.Fatalf("expected non-compliant")
	}
}

func TestResolve_ValidCoverage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		expires *time.Time
	}{
		{name: "no expiry", expires: nil},
		{name: "future expiry", expires: timePtr(now.AddDate(0, 1, 0))},
		{name: "expires exactly now", expires: timePtr(now)},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			report := Resolve(Input{
				Employees:    []*employee.Employee{activeEmployee("e1", "Ana", "Produção", "")},
				EPIs:         []*epi.EPI{{ID: "epi-luva", Category: "Luva"}},
				Requirements: []*epi.Requirement{deptRequirement("Luva", "Produção")},
				Deliveries:   []*epi.Delivery{inUse("e1", "epi-luva", tc.expires)},
			}, now)

			st := onlyStatus(t, report)
			if len(st.MissingCategories) != 0 || len(st.ExpiredCategories) != 0 {
				t.Fatalf("expected requirement satisfied, got %+v", st)
			}
			if !reflect.DeepEqual(st.DeliveredCategories, []string{"Luva"}) {
				t.Fatalf("expected delivered [Luva], got %v", st.DeliveredCategories)
			}
			if !st.Compliant || st.ComplianceRate != 100 {
				t.Fatalf("expected compliant, got %+v", st)
			}
		})
	}
}

func TestResolve_ReturnedDeliveriesDoNotCount(t *testing.T) {
	t.Parallel()

	returned := inUse("e1", "epi-luva", nil)
	returned.Status = epi.DeliveryStatusReturned

	report := Resolve(Input{
		Employees:    []*employee.Employee{activeEmployee("e1", "Ana", "Produção", "")},
		EPIs:         []*epi.EPI{{ID: "epi-luva", Category: "Luva"}},
		Requirements: []*epi.Requirement{deptRequirement("Luva", "Produção")},
		Deliveries:   []*epi.Delivery{returned},
	}, now)

	st := onlyStatus(t, report)
	if !reflect.DeepEqual(st.MissingCategories, []string{"Luva"}) || len(st.ExpiredCategories) != 0 {
		t.Fatalf("returned delivery must count as unsatisfied, got %+v", st)
	}
}

func TestResolve_Deduplication(t *testing.T) {
	t.Parallel()

	report := Resolve(Input{
		Employees: []*employee.Employee{activeEmployee("e1", "Ana", "Produção", "Soldador")},
		Requirements: []*epi.Requirement{
			deptRequirement("Luva", "Produção"),
			positionRequirement("Luva", "Soldador"),
		},
	}, now)

	st := onlyStatus(t, report)
	if !reflect.DeepEqual(st.RequiredCategories, []string{"Luva"}) {
		t.Fatalf("expected single required category, got %v", st.RequiredCategories)
	}
	if !reflect.DeepEqual(st.MissingCategories, []string{"Luva"}) {
		t.Fatalf("expected single missing category, got %v", st.MissingCategories)
	}
}

// Rules are matched with OR: a rule naming both a department and a position
// applies to an employee that shares only one of them.
func TestResolve_RequirementMatchesDepartmentOrPosition(t *testing.T) {
	t.Parallel()

	rule := &epi.Requirement{Category: "Capacete", Department: strPtr("Produção"), Position: strPtr("Supervisor")}
	report := Resolve(Input{
		Employees: []*employee.Employee{
			activeEmployee("e1", "Ana", "Produção", "Soldador"),
			activeEmployee("e2", "Bruno", "Logística", "Supervisor"),
			activeEmployee("e3", "Carla", "Logística", "Conferente"),
		},
		Requirements: []*epi.Requirement{rule},
	}, now)

	got := map[string][]string{}
	for _, st := range report.Statuses {
		got[st.EmployeeID] = st.RequiredCategories
	}
	want := map[string][]string{
		"e1": {"Capacete"},
		"e2": {"Capacete"},
		"e3": {},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected required categories: %v", got)
	}
}

func TestResolve_AggregateMath(t *testing.T) {
	t.Parallel()

	report := Resolve(Input{
		Employees: []*employee.Employee{
			activeEmployee("e1", "Ana", "Administrativo", ""),
			activeEmployee("e2", "Bruno", "Administrativo", ""),
			activeEmployee("e3", "Carla", "Administrativo", ""),
			activeEmployee("e4", "Diego", "Produção", ""),
		},
		EPIs:         []*epi.EPI{{ID: "epi-luva", Category: "Luva"}},
		Requirements: []*epi.Requirement{deptRequirement("Luva", "Produção")},
	}, now)

	s := report.Summary
	if s.TotalEmployees != 4 || s.CompliantEmployees != 3 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if s.OverallComplianceRate != 75 {
		t.Fatalf("expected overall rate 75, got %v", s.OverallComplianceRate)
	}
	if s.NonCompliantEmployees != 1 || s.EmployeesWithMissing != 1 || s.EmployeesWithExpired != 0 {
		t.Fatalf("unexpected breakdown: %+v", s)
	}
	if len(report.NonCompliant) != 1 || report.NonCompliant[0].EmployeeID != "e4" {
		t.Fatalf("unexpected non-compliant list: %+v", report.NonCompliant)
	}
}

func TestResolve_PartialRate(t *testing.T) {
	t.Parallel()

	report := Resolve(Input{
		Employees: []*employee.Employee{activeEmployee("e1", "Ana", "Produção", "")},
		EPIs: []*epi.EPI{
			{ID: "epi-luva", Category: "Luva"},
			{ID: "epi-bota", Category: "Bota"},
		},
		Requirements: []*epi.Requirement{
			deptRequirement("Luva", "Produção"),
			deptRequirement("Bota", "Produção"),
			deptRequirement("Óculos", "Produção"),
			deptRequirement("Capacete", "Produção"),
		},
		Deliveries: []*epi.Delivery{
			inUse("e1", "epi-luva", nil),
			inUse("e1", "epi-bota", nil),
		},
	}, now)

	st := onlyStatus(t, report)
	if st.ComplianceRate != 50 {
		t.Fatalf("expected rate 50, got %v", st.ComplianceRate)
	}
	if !reflect.DeepEqual(st.MissingCategories, []string{"Capacete", "Óculos"}) {
		t.Fatalf("unexpected missing categories: %v", st.MissingCategories)
	}
}

func TestResolve_InactiveExclusion(t *testing.T) {
	t.Parallel()

	inactive := activeEmployee("e2", "Bruno", "Produção", "")
	inactive.Status = employee.StatusInactive

	report := Resolve(Input{
		Employees:    []*employee.Employee{activeEmployee("e1", "Ana", "Produção", ""), inactive},
		EPIs:         []*epi.EPI{{ID: "epi-luva", Category: "Luva"}},
		Requirements: []*epi.Requirement{deptRequirement("Luva", "Produção")},
		Deliveries:   []*epi.Delivery{inUse("e2", "epi-luva", nil)},
	}, now)

	for _, st := range report.Statuses {
		if st.EmployeeID == "e2" {
			t.Fatalf("inactive employee must not appear: %+v", st)
		}
	}
	if report.Summary.TotalEmployees != 1 {
		t.Fatalf("expected one evaluated employee, got %d", report.Summary.TotalEmployees)
	}
}

func TestResolve_EmptyAndNilInputs(t *testing.T) {
	t.Parallel()

	report := Resolve(Input{}, now)
	if len(report.Statuses) != 0 || len(report.NonCompliant) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
	if report.Summary.OverallComplianceRate != 100 {
		t.Fatalf("expected rate 100 for empty organization, got %v", report.Summary.OverallComplianceRate)
	}

	report = Resolve(Input{
		Employees:    []*employee.Employee{nil, activeEmployee("e1", "Ana", "Produção", "")},
		EPIs:         []*epi.EPI{nil},
		Requirements: []*epi.Requirement{nil, deptRequirement("Luva", "Produção")},
		Deliveries:   []*epi.Delivery{nil, inUse("e1", "unknown-epi", nil)},
	}, now)
	st := onlyStatus(t, report)
	if !reflect.DeepEqual(st.MissingCategories, []string{"Luva"}) {
		t.Fatalf("delivery of unknown epi must be ignored, got %+v", st)
	}
}

func TestResolve_CustomLookup(t *testing.T) {
	t.Parallel()

	calls := 0
	report := Resolve(Input{
		Employees: []*employee.Employee{activeEmployee("e1", "Ana", "Produção", "Soldador")},
		Lookup: func(department, position string) []*epi.Requirement {
			calls++
			if department != "Produção" || position != "Soldador" {
				t.Errorf("unexpected lookup args %q %q", department, position)
			}
			return []*epi.Requirement{{Category: "Avental"}}
		},
	}, now)

	if calls != 1 {
		t.Fatalf("expected one lookup call, got %d", calls)
	}
	st := onlyStatus(t, report)
	if !reflect.DeepEqual(st.RequiredCategories, []string{"Avental"}) {
		t.Fatalf("unexpected required categories: %v", st.RequiredCategories)
	}
}

func TestResolve_SortedByName(t *testing.T) {
	t.Parallel()

	report := Resolve(Input{
		Employees: []*employee.Employee{
			activeEmployee("e2", "Carla", "", ""),
			activeEmployee("e1", "Ana", "", ""),
			activeEmployee("e3", "Bruno", "", ""),
		},
	}, now)

	var names []string
	for _, st := range report.Statuses {
		names = append(names, st.EmployeeName)
	}
	if !reflect.DeepEqual(names, []string{"Ana", "Bruno", "Carla"}) {
		t.Fatalf("unexpected order: %v", names)
	}
}
