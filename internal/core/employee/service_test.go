package employee

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"
)

const testOrg = "org-1"

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type recordingInvalidator struct {
	calls []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, organizationID string) error {
	r.calls = append(r.calls, organizationID)
	return nil
}

type fakeEmployeeRepo struct {
	employees map[string]*Employee
	sequence  int
	order     []string
}

func newFakeEmployeeRepo() *fakeEmployeeRepo {
	return &fakeEmployeeRepo{employees: make(map[string]*Employee)}
}

func (r *fakeEmployeeRepo) Create(_ context.Context, e *Employee) (*Employee, error) {
	clone := cloneEmployee(e)
	r.sequence++
	id := fmt.Sprintf("emp-%d", r.sequence)
	clone.ID = id
	r.employees[id] = clone
	r.order = append(r.order, id)
	return cloneEmployee(clone), nil
}

func (r *fakeEmployeeRepo) Update(_ context.Context, e *Employee) (*Employee, error) {
	existing, ok := r.employees[e.ID]
	if !ok || existing.OrganizationID != e.OrganizationID {
		return nil, ErrEmployeeNotFound
	}
	r.employees[e.ID] = cloneEmployee(e)
	return cloneEmployee(e), nil
}

func (r *fakeEmployeeRepo) Delete(_ context.Context, organizationID, id string) error {
	existing, ok := r.employees[id]
	if !ok || existing.OrganizationID != organizationID {
		return ErrEmployeeNotFound
	}
	delete(r.employees, id)
	for idx, existingID := range r.order {
		if existingID == id {
			r.order = append(r.order[:idx], r.order[idx+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeEmployeeRepo) FindByID(_ context.Context, organizationID, id string) (*Employee, error) {
	emp, ok := r.employees[id]
	if !ok || emp.OrganizationID != organizationID {
		return nil, ErrEmployeeNotFound
	}
	return cloneEmployee(emp), nil
}

func (r *fakeEmployeeRepo) FindByDocument(_ context.Context, organizationID, document string) (*Employee, error) {
	for _, emp := range r.employees {
		if emp.OrganizationID == organizationID && emp.Document != nil && *emp.Document == document {
			return cloneEmployee(emp), nil
		}
	}
	return nil, ErrEmployeeNotFound
}

func (r *fakeEmployeeRepo) List(_ context.Context, filter ListEmployeesFilter) ([]*Employee, string, error) {
	var filtered []*Employee
	for _, id := range r.order {
		emp := r.employees[id]
		if emp.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.Status != nil && emp.Status != *filter.Status {
			continue
		}
		if filter.Department != nil && emp.Department != *filter.Department {
			continue
		}
		filtered = append(filtered, cloneEmployee(emp))
	}

	if filter.Offset > len(filtered) {
		return []*Employee{}, "", nil
	}

	end := filter.Offset + filter.Limit
	if end > len(filtered) {
		end = len(filtered)
	}

	nextToken := ""
	if end < len(filtered) {
		nextToken = strconv.Itoa(end)
	}

	return filtered[filter.Offset:end], nextToken, nil
}

func (r *fakeEmployeeRepo) ListActive(_ context.Context, organizationID string) ([]*Employee, error) {
	var out []*Employee
	for _, id := range r.order {
		emp := r.employees[id]
		if emp.OrganizationID == organizationID && emp.Status == StatusActive {
			out = append(out, cloneEmployee(emp))
		}
	}
	return out, nil
}

func cloneEmployee(emp *Employee) *Employee {
	if emp == nil {
		return nil
	}
	c := *emp
	if emp.Document != nil {
		document := *emp.Document
		c.Document = &document
	}
	if emp.Email != nil {
		email := *emp.Email
		c.Email = &email
	}
	if emp.HiredAt != nil {
		hired := *emp.HiredAt
		c.HiredAt = &hired
	}
	if emp.TerminatedAt != nil {
		terminated := *emp.TerminatedAt
		c.TerminatedAt = &terminated
	}
	return &c
}

func strPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestService_CreateEmployee_Success(t *testing.T) {
	t.Parallel()

	clk := &stubClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	inv := &recordingInvalidator{}
	svc := NewService(newFakeEmployeeRepo(), clk, nil, inv)

	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{
		OrganizationID: testOrg,
		Name:           "  Ana Souza ",
		Document:       strPtr("529.982.247-25"),
		Department:     " Produção ",
		Position:       "Soldador",
		Email:          strPtr(" Ana@Example.com "),
		HiredAt:        timePtr(time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	if created.Name != "Ana Souza" || created.Department != "Produção" {
		t.Errorf("expected trimmed fields, got %+v", created)
	}
	if created.Document == nil || *created.Document != "52998224725" {
		t.Errorf("expected cpf digits, got %v", created.Document)
	}
	if created.Email == nil || *created.Email != "ana@example.com" {
		t.Errorf("expected normalized email, got %v", created.Email)
	}
	if created.Status != StatusActive {
		t.Errorf("expected active status, got %s", created.Status)
	}
	if created.HiredAt == nil || !created.HiredAt.Equal(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected hired date truncated, got %v", created.HiredAt)
	}
	if len(inv.calls) != 1 || inv.calls[0] != testOrg {
		t.Errorf("expected invalidation for %s, got %v", testOrg, inv.calls)
	}
}

func TestService_CreateEmployee_Validation(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), nil, nil, nil)

	cases := []struct {
		name string
		in   CreateEmployeeInput
		want error
	}{
		{name: "blank name", in: CreateEmployeeInput{OrganizationID: testOrg, Name: " "}, want: ErrInvalidName},
		{name: "bad cpf", in: CreateEmployeeInput{OrganizationID: testOrg, Name: "A", Document: strPtr("111.111.111-11")}, want: ErrInvalidDocument},
		{name: "bad email", in: CreateEmployeeInput{OrganizationID: testOrg, Name: "A", Email: strPtr("not-mail")}, want: ErrInvalidEmail},
		{
			name: "terminated before hired",
			in: CreateEmployeeInput{
				OrganizationID: testOrg,
				Name:           "A",
				HiredAt:        timePtr(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)),
				TerminatedAt:   timePtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
			},
			want: ErrInvalidDateRange,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := svc.CreateEmployee(context.Background(), tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestService_CreateEmployee_DuplicateDocument(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), nil, nil, nil)

	if _, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{OrganizationID: testOrg, Name: "A", Document: strPtr("52998224725")}); err != nil {
		t.Fatalf("seed error: %v", err)
	}

	_, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{OrganizationID: testOrg, Name: "B", Document: strPtr("529.982.247-25")})
	if !errors.Is(err, ErrDocumentAlreadyExists) {
		t.Fatalf("expected ErrDocumentAlreadyExists, got %v", err)
	}

	if _, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{OrganizationID: "org-2", Name: "C", Document: strPtr("52998224725")}); err != nil {
		t.Fatalf("same cpf in another organization should be allowed: %v", err)
	}
}

func TestService_UpdateEmployee_Success(t *testing.T) {
	t.Parallel()

	clk := &stubClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	inv := &recordingInvalidator{}
	svc := NewService(newFakeEmployeeRepo(), clk, nil, inv)

	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{OrganizationID: testOrg, Name: "A", Department: "Produção"})
	if err != nil {
		t.Fatalf("CreateEmployee error: %v", err)
	}

	clk.now = clk.now.Add(24 * time.Hour)
	inactive := StatusInactive
	updated, err := svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{
		OrganizationID:  testOrg,
		ID:              created.ID,
		Department:      strPtr("Manutenção"),
		Position:        strPtr("Eletricista"),
		Status:          &inactive,
		TerminatedAt:    timePtr(clk.now),
		TerminatedAtSet: true,
	})
	if err != nil {
		t.Fatalf("UpdateEmployee returned error: %v", err)
	}

	if updated.Department != "Manutenção" || updated.Position != "Eletricista" || updated.Status != StatusInactive {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.TerminatedAt == nil || !updated.TerminatedAt.Equal(clk.now) {
		t.Fatalf("expected terminated date, got %v", updated.TerminatedAt)
	}
	if !updated.UpdatedAt.Equal(clk.now) {
		t.Fatalf("expected UpdatedAt from clock")
	}
	if len(inv.calls) != 2 {
		t.Fatalf("expected two invalidations, got %d", len(inv.calls))
	}
}

func TestService_UpdateEmployee_ClearHiredDate(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), nil, nil, nil)

	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{
		OrganizationID: testOrg,
		Name:           "A",
		HiredAt:        timePtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("CreateEmployee error: %v", err)
	}

	updated, err := svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{OrganizationID: testOrg, ID: created.ID, HiredAtSet: true})
	if err != nil {
		t.Fatalf("UpdateEmployee returned error: %v", err)
	}
	if updated.HiredAt != nil {
		t.Fatalf("expected hired date cleared, got %v", updated.HiredAt)
	}
}

func TestService_GetEmployee_OtherOrganization(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), nil, nil, nil)

	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{OrganizationID: testOrg, Name: "A"})
	if err != nil {
		t.Fatalf("CreateEmployee error: %v", err)
	}

	if _, err := svc.GetEmployee(context.Background(), GetEmployeeInput{OrganizationID: "org-2", ID: created.ID}); !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestService_DeleteEmployee(t *testing.T) {
	t.Parallel()

	inv := &recordingInvalidator{}
	svc := NewService(newFakeEmployeeRepo(), nil, nil, inv)

	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{OrganizationID: testOrg, Name: "A"})
	if err != nil {
		t.Fatalf("CreateEmployee error: %v", err)
	}

	if err := svc.DeleteEmployee(context.Background(), DeleteEmployeeInput{OrganizationID: testOrg, ID: created.ID}); err != nil {
		t.Fatalf("DeleteEmployee returned error: %v", err)
	}
	if err := svc.DeleteEmployee(context.Background(), DeleteEmployeeInput{OrganizationID: testOrg, ID: created.ID}); !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
	if len(inv.calls) != 2 {
		t.Fatalf("failed delete must not invalidate, got %v", inv.calls)
	}
}

func TestService_ListEmployees_Pagination(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), nil, nil, nil)

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{OrganizationID: testOrg, Name: fmt.Sprintf("Emp %d", i), Department: "Produção"}); err != nil {
			t.Fatalf("seed error: %v", err)
		}
	}

	first, err := svc.ListEmployees(context.Background(), ListEmployeesInput{OrganizationID: testOrg, PageSize: 2})
	if err != nil {
		t.Fatalf("ListEmployees returned error: %v", err)
	}
	if len(first.Employees) != 2 || first.NextPageToken != "2" {
		t.Fatalf("unexpected first page: %d %q", len(first.Employees), first.NextPageToken)
	}

	second, err := svc.ListEmployees(context.Background(), ListEmployeesInput{OrganizationID: testOrg, PageSize: 2, PageToken: first.NextPageToken})
	if err != nil {
		t.Fatalf("ListEmployees returned error: %v", err)
	}
	if len(second.Employees) != 1 || second.NextPageToken != "" {
		t.Fatalf("unexpected second page: %d %q", len(second.Employees), second.NextPageToken)
	}
}

func TestService_ListActive(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), nil, nil, nil)

	inactive := StatusInactive
	if _, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{OrganizationID: testOrg, Name: "Active"}); err != nil {
		t.Fatalf("seed error: %v", err)
	}
	if _, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{OrganizationID: testOrg, Name: "Gone", Status: &inactive}); err != nil {
		t.Fatalf("seed error: %v", err)
	}

	active, err := svc.ListActive(context.Background(), testOrg)
	if err != nil {
		t.Fatalf("ListActive returned error: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Active" {
		t.Fatalf("unexpected active employees: %+v", active)
	}
}
