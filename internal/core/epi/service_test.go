package epi

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ogurasousui/stockly/internal/core/employee"
)

const testOrg = "org-1"

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type countingInvalidator struct {
	count int
}

func (c *countingInvalidator) Invalidate(context.Context, string) error {
	c.count++
	return nil
}

type fakeEPIRepo struct {
	items map[string]*EPI
	order []string
	seq   int
}

func (r *fakeEPIRepo) Create(_ context.Context, e *EPI) (*EPI, error) {
	r.seq++
	c := *e
	c.ID = "epi-" + strconv.Itoa(r.seq)
	r.items[c.ID] = &c
	r.order = append(r.order, c.ID)
	out := c
	return &out, nil
}

func (r *fakeEPIRepo) Update(_ context.Context, e *EPI) (*EPI, error) {
	if _, ok := r.items[e.ID]; !ok {
		return nil, ErrEPINotFound
	}
	c := *e
	r.items[e.ID] = &c
	out := c
	return &out, nil
}

func (r *fakeEPIRepo) Delete(_ context.Context, organizationID, id string) error {
	e, ok := r.items[id]
	if !ok || e.OrganizationID != organizationID {
		return ErrEPINotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeEPIRepo) FindByID(_ context.Context, organizationID, id string) (*EPI, error) {
	e, ok := r.items[id]
	if !ok || e.OrganizationID != organizationID {
		return nil, ErrEPINotFound
	}
	out := *e
	return &out, nil
}

func (r *fakeEPIRepo) List(_ context.Context, filter ListEPIsFilter) ([]*EPI, string, error) {
	var out []*EPI
	for _, id := range r.order {
		e, ok := r.items[id]
		if !ok || e.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.LowStockOnly && !e.IsLowStock() {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	return out, "", nil
}

func (r *fakeEPIRepo) ListAll(ctx context.Context, organizationID string) ([]*EPI, error) {
	out, _, err := r.List(ctx, ListEPIsFilter{OrganizationID: organizationID})
	return out, err
}

func (r *fakeEPIRepo) AdjustStock(_ context.Context, organizationID, id string, delta int, updatedAt time.Time) (*EPI, error) {
	e, ok := r.items[id]
	if !ok || e.OrganizationID != organizationID {
		return nil, ErrEPINotFound
	}
	if e.StockQuantity+delta < 0 {
		return nil, ErrInsufficientStock
	}
	e.StockQuantity += delta
	e.UpdatedAt = updatedAt
	out := *e
	return &out, nil
}

type fakeRequirementRepo struct {
	items []*Requirement
	seq   int
}

func (r *fakeRequirementRepo) Create(_ context.Context, req *Requirement) (*Requirement, error) {
	r.seq++
	c := *req
	c.ID = "req-" + strconv.Itoa(r.seq)
	r.items = append(r.items, &c)
	out := c
	return &out, nil
}

func (r *fakeRequirementRepo) Delete(_ context.Context, organizationID, id string) error {
	for i, req := range r.items {
		if req.ID == id && req.OrganizationID == organizationID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return ErrRequirementNotFound
}

func (r *fakeRequirementRepo) List(_ context.Context, organizationID string) ([]*Requirement, error) {
	var out []*Requirement
	for _, req := range r.items {
		if req.OrganizationID == organizationID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *fakeRequirementRepo) ListMatching(ctx context.Context, organizationID, department, position string) ([]*Requirement, error) {
	all, _ := r.List(ctx, organizationID)
	return MatchRequirements(all, department, position), nil
}

type fakeDeliveryRepo struct {
	items map[string]*Delivery
	order []string
	seq   int
}

func (r *fakeDeliveryRepo) Create(_ context.Context, d *Delivery) (*Delivery, error) {
	r.seq++
	c := *d
	c.ID = "dlv-" + strconv.Itoa(r.seq)
	r.items[c.ID] = &c
	r.order = append(r.order, c.ID)
	out := c
	return &out, nil
}

func (r *fakeDeliveryRepo) Update(_ context.Context, d *Delivery) (*Delivery, error) {
	if _, ok := r.items[d.ID]; !ok {
		return nil, ErrDeliveryNotFound
	}
	c := *d
	r.items[d.ID] = &c
	out := c
	return &out, nil
}

func (r *fakeDeliveryRepo) FindByID(_ context.Context, organizationID, id string) (*Delivery, error) {
	d, ok := r.items[id]
	if !ok || d.OrganizationID != organizationID {
		return nil, ErrDeliveryNotFound
	}
	out := *d
	return &out, nil
}

func (r *fakeDeliveryRepo) List(_ context.Context, filter ListDeliveriesFilter) ([]*Delivery, string, error) {
	var out []*Delivery
	for _, id := range r.order {
		d := r.items[id]
		if d.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.EmployeeID != nil && d.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		c := *d
		out = append(out, &c)
	}
	return out, "", nil
}

func (r *fakeDeliveryRepo) ListInUse(ctx context.Context, organizationID string) ([]*Delivery, error) {
	status := DeliveryStatusInUse
	out, _, err := r.List(ctx, ListDeliveriesFilter{OrganizationID: organizationID, Status: &status})
	return out, err
}

func (r *fakeDeliveryRepo) ExpireOverdue(_ context.Context, organizationID string, now time.Time) (int64, error) {
	var n int64
	for _, d := range r.items {
		if d.OrganizationID == organizationID && d.Status == DeliveryStatusInUse && d.IsExpiredAt(now) {
			d.Status = DeliveryStatusExpired
			n++
		}
	}
	return n, nil
}

type fakeTermRepo struct {
	deliveries *fakeDeliveryRepo
	terms      map[string]*DeliveryTerm
	seq        int
}

func (r *fakeTermRepo) Create(_ context.Context, term *DeliveryTerm) (*DeliveryTerm, error) {
	r.seq++
	c := *term
	c.ID = "term-" + strconv.Itoa(r.seq)
	for _, id := range c.DeliveryIDs {
		termID := c.ID
		r.deliveries.items[id].TermID = &termID
	}
	r.terms[c.ID] = &c
	out := c
	return &out, nil
}

func (r *fakeTermRepo) FindByID(_ context.Context, organizationID, id string) (*DeliveryTerm, error) {
	t, ok := r.terms[id]
	if !ok || t.OrganizationID != organizationID {
		return nil, ErrTermNotFound
	}
	out := *t
	return &out, nil
}

type fakeEmployees map[string]*employee.Employee

func (f fakeEmployees) FindByID(_ context.Context, organizationID, id string) (*employee.Employee, error) {
	e, ok := f[id]
	if !ok || e.OrganizationID != organizationID {
		return nil, employee.ErrEmployeeNotFound
	}
	return e, nil
}

type fixture struct {
	svc        *Service
	clock      *stubClock
	epis       *fakeEPIRepo
	reqs       *fakeRequirementRepo
	deliveries *fakeDeliveryRepo
	inv        *countingInvalidator
}

func newFixture() *fixture {
	clk := &stubClock{now: time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)}
	epis := &fakeEPIRepo{items: map[string]*EPI{}}
	reqs := &fakeRequirementRepo{}
	deliveries := &fakeDeliveryRepo{items: map[string]*Delivery{}}
	terms := &fakeTermRepo{deliveries: deliveries, terms: map[string]*DeliveryTerm{}}
	employees := fakeEmployees{
		"emp-1": {ID: "emp-1", OrganizationID: testOrg, Name: "Ana", Department: "Produção", Position: "Soldador", Status: employee.StatusActive},
		"emp-2": {ID: "emp-2", OrganizationID: testOrg, Name: "Bruno", Department: "Produção", Status: employee.StatusInactive},
	}
	inv := &countingInvalidator{}
	svc := NewService(Repositories{
		EPIs:         epis,
		Requirements: reqs,
		Deliveries:   deliveries,
		Terms:        terms,
		Employees:    employees,
	}, clk, nil, inv)
	svc.termSuffix = func() string { return "ABCDEF12" }
	return &fixture{svc: svc, clock: clk, epis: epis, reqs: reqs, deliveries: deliveries, inv: inv}
}

func (f *fixture) seedEPI(t *testing.T, category string, validity, stock int) *EPI {
	t.Helper()
	created, err := f.svc.CreateEPI(context.Background(), CreateEPIInput{
		OrganizationID: testOrg,
		Name:           category + " padrão",
		Category:       category,
		ValidityDays:   validity,
		StockQuantity:  stock,
		MinimumStock:   1,
	})
	if err != nil {
		t.Fatalf("CreateEPI error: %v", err)
	}
	return created
}

func strPtr(s string) *string {
	return &s
}

func TestService_CreateEPI_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture()
	cases := []struct {
		name string
		in   CreateEPIInput
		want error
	}{
		{name: "blank name", in: CreateEPIInput{OrganizationID: testOrg, Category: "Luva"}, want: ErrInvalidName},
		{name: "blank category", in: CreateEPIInput{OrganizationID: testOrg, Name: "Luva"}, want: ErrInvalidCategory},
		{name: "negative validity", in: CreateEPIInput{OrganizationID: testOrg, Name: "L", Category: "Luva", ValidityDays: -1}, want: ErrInvalidValidityDays},
		{name: "negative stock", in: CreateEPIInput{OrganizationID: testOrg, Name: "L", Category: "Luva", StockQuantity: -1}, want: ErrInsufficientStock},
		{name: "negative minimum", in: CreateEPIInput{OrganizationID: testOrg, Name: "L", Category: "Luva", MinimumStock: -1}, want: ErrInvalidMinimumStock},
	}
	for _, tc := range cases {
		if _, err := f.svc.CreateEPI(context.Background(), tc.in); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestService_AdjustStock(t *testing.T) {
	t.Parallel()

	f := newFixture()
	item := f.seedEPI(t, "Luva", 0, 5)

	adjusted, err := f.svc.AdjustStock(context.Background(), AdjustStockInput{OrganizationID: testOrg, ID: item.ID, Delta: -3})
	if err != nil {
		t.Fatalf("AdjustStock returned error: %v", err)
	}
	if adjusted.StockQuantity != 2 {
		t.Fatalf("expected stock 2, got %d", adjusted.StockQuantity)
	}

	if _, err := f.svc.AdjustStock(context.Background(), AdjustStockInput{OrganizationID: testOrg, ID: item.ID, Delta: -3}); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if _, err := f.svc.AdjustStock(context.Background(), AdjustStockInput{OrganizationID: testOrg, ID: item.ID}); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestService_CreateRequirement_NeedsScope(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.svc.CreateRequirement(context.Background(), CreateRequirementInput{OrganizationID: testOrg, Category: "Luva", Department: strPtr("  ")})
	if !errors.Is(err, ErrInvalidRequirement) {
		t.Fatalf("expected ErrInvalidRequirement, got %v", err)
	}
}

// A rule carrying both department and position applies when either one matches.
func TestService_RequirementsFor_MatchesDepartmentOrPosition(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	seed := []CreateRequirementInput{
		{OrganizationID: testOrg, Category: "Capacete", Department: strPtr("Produção"), Position: strPtr("Supervisor")},
		{OrganizationID: testOrg, Category: "Luva", Position: strPtr("Soldador")},
		{OrganizationID: testOrg, Category: "Protetor auricular", Department: strPtr("Manutenção")},
	}
	for _, in := range seed {
		if _, err := f.svc.CreateRequirement(ctx, in); err != nil {
			t.Fatalf("CreateRequirement error: %v", err)
		}
	}

	reqs, err := f.svc.RequirementsFor(ctx, RequirementsForInput{OrganizationID: testOrg, Department: "Produção", Position: "Soldador"})
	if err != nil {
		t.Fatalf("RequirementsFor returned error: %v", err)
	}

	var categories []string
	for _, r := range reqs {
		categories = append(categories, r.Category)
	}
	if got := strings.Join(categories, ","); got != "Capacete,Luva" {
		t.Fatalf("unexpected categories: %s", got)
	}

	none, err := f.svc.RequirementsFor(ctx, RequirementsForInput{OrganizationID: testOrg})
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no requirements for empty scope, got %v (%v)", none, err)
	}
	if f.inv.count != 3 {
		t.Fatalf("expected invalidation per requirement, got %d", f.inv.count)
	}
}

func TestService_DeliverEPI_Success(t *testing.T) {
	t.Parallel()

	f := newFixture()
	item := f.seedEPI(t, "Capacete", 180, 10)

	delivered, err := f.svc.DeliverEPI(context.Background(), DeliverEPIInput{
		OrganizationID: testOrg,
		EPIID:          item.ID,
		EmployeeID:     "emp-1",
		Quantity:       2,
	})
	if err != nil {
		t.Fatalf("DeliverEPI returned error: %v", err)
	}

	wantDelivered := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	if !delivered.DeliveredAt.Equal(wantDelivered) {
		t.Errorf("expected delivery date %v, got %v", wantDelivered, delivered.DeliveredAt)
	}
	if delivered.ExpiresAt == nil || !delivered.ExpiresAt.Equal(wantDelivered.AddDate(0, 0, 180)) {
		t.Errorf("unexpected expiry: %v", delivered.ExpiresAt)
	}
	if delivered.Status != DeliveryStatusInUse {
		t.Errorf("expected in_use, got %s", delivered.Status)
	}
	if f.epis.items[item.ID].StockQuantity != 8 {
		t.Errorf("expected stock 8, got %d", f.epis.items[item.ID].StockQuantity)
	}
}

func TestService_DeliverEPI_NoValidity(t *testing.T) {
	t.Parallel()

	f := newFixture()
	item := f.seedEPI(t, "Óculos", 0, 1)

	delivered, err := f.svc.DeliverEPI(context.Background(), DeliverEPIInput{OrganizationID: testOrg, EPIID: item.ID, EmployeeID: "emp-1", Quantity: 1})
	if err != nil {
		t.Fatalf("DeliverEPI returned error: %v", err)
	}
	if delivered.ExpiresAt != nil {
		t.Fatalf("expected no expiry, got %v", delivered.ExpiresAt)
	}
}

func TestService_DeliverEPI_Rejections(t *testing.T) {
	t.Parallel()

	f := newFixture()
	item := f.seedEPI(t, "Luva", 30, 1)

	cases := []struct {
		name string
		in   DeliverEPIInput
		want error
	}{
		{name: "inactive employee", in: DeliverEPIInput{OrganizationID: testOrg, EPIID: item.ID, EmployeeID: "emp-2", Quantity: 1}, want: ErrEmployeeInactive},
		{name: "unknown employee", in: DeliverEPIInput{OrganizationID: testOrg, EPIID: item.ID, EmployeeID: "emp-9", Quantity: 1}, want: employee.ErrEmployeeNotFound},
		{name: "zero quantity", in: DeliverEPIInput{OrganizationID: testOrg, EPIID: item.ID, EmployeeID: "emp-1"}, want: ErrInvalidQuantity},
		{name: "insufficient stock", in: DeliverEPIInput{OrganizationID: testOrg, EPIID: item.ID, EmployeeID: "emp-1", Quantity: 2}, want: ErrInsufficientStock},
	}
	for _, tc := range cases {
		if _, err := f.svc.DeliverEPI(context.Background(), tc.in); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if f.epis.items[item.ID].StockQuantity != 1 {
		t.Fatalf("rejected deliveries must not touch stock")
	}
}

func TestService_ReturnDelivery(t *testing.T) {
	t.Parallel()

	f := newFixture()
	item := f.seedEPI(t, "Luva", 30, 3)
	delivered, err := f.svc.DeliverEPI(context.Background(), DeliverEPIInput{OrganizationID: testOrg, EPIID: item.ID, EmployeeID: "emp-1", Quantity: 2})
	if err != nil {
		t.Fatalf("DeliverEPI error: %v", err)
	}

	f.clock.now = f.clock.now.AddDate(0, 0, 5)
	returned, err := f.svc.ReturnDelivery(context.Background(), ReturnDeliveryInput{OrganizationID: testOrg, ID: delivered.ID, ReturnToStock: true})
	if err != nil {
		t.Fatalf("ReturnDelivery returned error: %v", err)
	}
	if returned.Status != DeliveryStatusReturned || returned.ReturnedAt == nil {
		t.Fatalf("unexpected returned delivery: %+v", returned)
	}
	if f.epis.items[item.ID].StockQuantity != 3 {
		t.Fatalf("expected stock restored to 3, got %d", f.epis.items[item.ID].StockQuantity)
	}

	if _, err := f.svc.ReturnDelivery(context.Background(), ReturnDeliveryInput{OrganizationID: testOrg, ID: delivered.ID}); !errors.Is(err, ErrDeliveryNotInUse) {
		t.Fatalf("expected ErrDeliveryNotInUse, got %v", err)
	}
}

func TestService_ReturnDelivery_BeforeDeliveryDate(t *testing.T) {
	t.Parallel()

	f := newFixture()
	item := f.seedEPI(t, "Luva", 30, 3)
	delivered, err := f.svc.DeliverEPI(context.Background(), DeliverEPIInput{OrganizationID: testOrg, EPIID: item.ID, EmployeeID: "emp-1", Quantity: 1})
	if err != nil {
		t.Fatalf("DeliverEPI error: %v", err)
	}

	early := delivered.DeliveredAt.AddDate(0, 0, -1)
	if _, err := f.svc.ReturnDelivery(context.Background(), ReturnDeliveryInput{OrganizationID: testOrg, ID: delivered.ID, ReturnedAt: &early}); !errors.Is(err, ErrInvalidReturnDate) {
		t.Fatalf("expected ErrInvalidReturnDate, got %v", err)
	}
}

func TestService_ExpireOverdue(t *testing.T) {
	t.Parallel()

	f := newFixture()
	shortLived := f.seedEPI(t, "Máscara", 1, 5)
	permanent := f.seedEPI(t, "Óculos", 0, 5)

	for _, id := range []string{shortLived.ID, permanent.ID} {
		if _, err := f.svc.DeliverEPI(context.Background(), DeliverEPIInput{OrganizationID: testOrg, EPIID: id, EmployeeID: "emp-1", Quantity: 1}); err != nil {
			t.Fatalf("DeliverEPI error: %v", err)
		}
	}

	f.clock.now = f.clock.now.AddDate(0, 0, 3)
	before := f.inv.count
	n, err := f.svc.ExpireOverdue(context.Background(), testOrg)
	if err != nil {
		t.Fatalf("ExpireOverdue returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired delivery, got %d", n)
	}
	if f.inv.count != before+1 {
		t.Fatalf("expected invalidation after expiring deliveries")
	}

	n, err = f.svc.ExpireOverdue(context.Background(), testOrg)
	if err != nil || n != 0 {
		t.Fatalf("expected idempotent second run, got %d (%v)", n, err)
	}
}

func TestService_IssueDeliveryTerm(t *testing.T) {
	t.Parallel()

	f := newFixture()
	item := f.seedEPI(t, "Luva", 30, 10)
	for i := 0; i < 2; i++ {
		if _, err := f.svc.DeliverEPI(context.Background(), DeliverEPIInput{OrganizationID: testOrg, EPIID: item.ID, EmployeeID: "emp-1", Quantity: 1}); err != nil {
			t.Fatalf("DeliverEPI error: %v", err)
		}
	}

	term, err := f.svc.IssueDeliveryTerm(context.Background(), IssueDeliveryTermInput{OrganizationID: testOrg, EmployeeID: "emp-1"})
	if err != nil {
		t.Fatalf("IssueDeliveryTerm returned error: %v", err)
	}
	if term.Number != "TE-20250610-ABCDEF12" {
		t.Errorf("unexpected term number: %s", term.Number)
	}
	if len(term.DeliveryIDs) != 2 {
		t.Fatalf("expected two deliveries in term, got %v", term.DeliveryIDs)
	}

	if _, err := f.svc.IssueDeliveryTerm(context.Background(), IssueDeliveryTermInput{OrganizationID: testOrg, EmployeeID: "emp-1"}); !errors.Is(err, ErrNoDeliveriesForTerm) {
		t.Fatalf("expected ErrNoDeliveriesForTerm, got %v", err)
	}

	_, err = f.svc.IssueDeliveryTerm(context.Background(), IssueDeliveryTermInput{OrganizationID: testOrg, EmployeeID: "emp-1", DeliveryIDs: []string{term.DeliveryIDs[0]}})
	if !errors.Is(err, ErrDeliveryAlreadyInTerm) {
		t.Fatalf("expected ErrDeliveryAlreadyInTerm, got %v", err)
	}

	found, err := f.svc.GetDeliveryTerm(context.Background(), GetDeliveryTermInput{OrganizationID: testOrg, ID: term.ID})
	if err != nil || found.Number != term.Number {
		t.Fatalf("GetDeliveryTerm mismatch: %+v (%v)", found, err)
	}
}

func TestRandomTermSuffix(t *testing.T) {
	t.Parallel()

	got := randomTermSuffix()
	if len(got) != 8 || strings.ToUpper(got) != got {
		t.Fatalf("unexpected suffix %q", got)
	}
	if got == randomTermSuffix() {
		t.Fatalf("expected random suffixes to differ")
	}
}

func TestDelivery_IsExpiredAt_ExpiryDay(t *testing.T) {
	t.Parallel()

	expires := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	d := &Delivery{ExpiresAt: &expires}

	cases := []struct {
		now  time.Time
		want bool
	}{
		{time.Date(2025, 6, 9, 23, 59, 0, 0, time.UTC), false},
		{expires, false},
		{time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC), true},
	}
	for _, tc := range cases {
		if got := d.IsExpiredAt(tc.now); got != tc.want {
			t.Errorf("IsExpiredAt(%v) = %v, want %v", tc.now, got, tc.want)
		}
	}

	if (&Delivery{}).IsExpiredAt(expires.AddDate(1, 0, 0)) {
		t.Error("delivery without expiry must never expire")
	}
}
