// Package compliance は社員ごとの EPI 充足状況を判定します。
package compliance

import (
	"sort"
	"time"

	"github.com/ogurasousui/stockly/internal/core/employee"
	"github.com/ogurasousui/stockly/internal/core/epi"
)

// RequirementLookup は部署・役職に適用される要件を返します。
type RequirementLookup func(department, position string) []*epi.Requirement

// Input は判定に必要なスナップショットです。判定中に変更されません。
type Input struct {
	Employees    []*employee.Employee
	EPIs         []*epi.EPI
	Deliveries   []*epi.Delivery
	Requirements []*epi.Requirement
	// Lookup が nil の場合は Requirements を部署 OR 役職で突き合わせます。
	Lookup RequirementLookup
}

// EmployeeStatus は社員ひとり分の判定結果です。
type EmployeeStatus struct {
	EmployeeID          string
	EmployeeName        string
	Department          string
	Position            string
	RequiredCategories  []string
	DeliveredCategories []string
	MissingCategories   []string
	ExpiredCategories   []string
	Compliant           bool
	ComplianceRate      float64
}

// Summary は組織全体の集計です。
type Summary struct {
	TotalEmployees        int
	CompliantEmployees    int
	NonCompliantEmployees int
	EmployeesWithMissing  int
	EmployeesWithExpired  int
	OverallComplianceRate float64
}

// Report は判定結果一式です。
type Report struct {
	OrganizationID string
	EvaluatedAt    time.Time
	Statuses       []EmployeeStatus
	Summary        Summary
	NonCompliant   []EmployeeStatus
}

// Resolve は在籍中の社員ごとに必要カテゴリ・有効支給・不足・期限切れを算出します。
// I/O は行わず、nil や空の入力には空の結果を返します。
func Resolve(in Input, now time.Time) *Report {
	lookup := in.Lookup
	if lookup == nil {
		requirements := in.Requirements
		lookup = func(department, position string) []*epi.Requirement {
			return epi.MatchRequirements(requirements, department, position)
		}
	}

	categoryByEPI := make(map[string]string, len(in.EPIs))
	for _, e := range in.EPIs {
		if e == nil {
			continue
		}
		categoryByEPI[e.ID] = e.Category
	}

	deliveriesByEmployee := make(map[string][]*epi.Delivery)
	for _, d := range in.Deliveries {
		if d == nil || d.Status != epi.DeliveryStatusInUse {
			continue
		}
		deliveriesByEmployee[d.EmployeeID] = append(deliveriesByEmployee[d.EmployeeID], d)
	}

	statuses := make([]EmployeeStatus, 0, len(in.Employees))
	for _, emp := range in.Employees {
		if !emp.IsActive() {
			continue
		}
		statuses = append(statuses, resolveEmployee(emp, lookup, categoryByEPI, deliveriesByEmployee[emp.ID], now))
	}

	sort.SliceStable(statuses, func(i, j int) bool {
		if statuses[i].EmployeeName != statuses[j].EmployeeName {
			return statuses[i].EmployeeName < statuses[j].EmployeeName
		}
		return statuses[i].EmployeeID < statuses[j].EmployeeID
	})

	return &Report{
		EvaluatedAt:  now,
		Statuses:     statuses,
		Summary:      Summarize(statuses),
		NonCompliant: NonCompliant(statuses),
	}
}

func resolveEmployee(
	emp *employee.Employee,
	lookup RequirementLookup,
	categoryByEPI map[string]string,
	deliveries []*epi.Delivery,
	now time.Time,
) EmployeeStatus {
	required := newCategorySet()
	for _, r := range lookup(emp.Department, emp.Position) {
		if r == nil {
			continue
		}
		required.add(r.Category)
	}

	valid := newCategorySet()
	expired := newCategorySet()
	for _, d := range deliveries {
		category, ok := categoryByEPI[d.EPIID]
		if !ok {
			continue
		}
		if d.IsExpiredAt(now) {
			expired.add(category)
			continue
		}
		valid.add(category)
	}

	missing := newCategorySet()
	for _, category := range required.sorted() {
		if !valid.has(category) {
			missing.add(category)
		}
	}

	rate := 100.0
	if required.len() > 0 {
		rate = float64(required.len()-missing.len()) / float64(required.len()) * 100
	}

	return EmployeeStatus{
		EmployeeID:          emp.ID,
		EmployeeName:        emp.Name,
		Department:          emp.Department,
		Position:            emp.Position,
		RequiredCategories:  required.sorted(),
		DeliveredCategories: valid.sorted(),
		MissingCategories:   missing.sorted(),
		ExpiredCategories:   expired.sorted(),
		Compliant:           missing.len() == 0 && expired.len() == 0,
		ComplianceRate:      rate,
	}
}

// Summarize は社員ごとの結果から組織の集計を作ります。社員 0 人の場合の充足率は 100 です。
func Summarize(statuses []EmployeeStatus) Summary {
	s := Summary{TotalEmployees: len(statuses)}
	for _, st := range statuses {
		if st.Compliant {
			s.CompliantEmployees++
		}
		if len(st.MissingCategories) > 0 {
			s.EmployeesWithMissing++
		}
		if len(st.ExpiredCategories) > 0 {
			s.EmployeesWithExpired++
		}
	}
	s.NonCompliantEmployees = s.TotalEmployees - s.CompliantEmployees
	s.OverallComplianceRate = 100
	if s.TotalEmployees > 0 {
		s.OverallComplianceRate = float64(s.CompliantEmployees) / float64(s.TotalEmployees) * 100
	}
	return s
}

// NonCompliant は未充足の社員だけを返します。
func NonCompliant(statuses []EmployeeStatus) []EmployeeStatus {
	out := make([]EmployeeStatus, 0)
	for _, st := range statuses {
		if !st.Compliant {
			out = append(out, st)
		}
	}
	return out
}

type categorySet map[string]struct{}

func newCategorySet() categorySet {
	return make(categorySet)
}

func (s categorySet) add(category string) {
	s[category] = struct{}{}
}

func (s categorySet) has(category string) bool {
	_, ok := s[category]
	return ok
}

func (s categorySet) len() int {
	return len(s)
}

func (s categorySet) sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
