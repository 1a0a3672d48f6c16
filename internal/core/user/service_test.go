package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/ogurasousui/stockly/internal/core/shared"
)

const testOrg = "org-1"

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeRepo struct {
	users map[string]*User
	order []string
	seq   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*User)}
}

func (r *fakeRepo) Create(_ context.Context, user *User) (*User, error) {
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, ErrEmailAlreadyExists
		}
	}
	r.seq++
	id := "user-" + strconv.Itoa(r.seq)
	stored := *user
	stored.ID = id
	r.users[id] = &stored
	r.order = append(r.order, id)
	return cloneUser(&stored), nil
}

func (r *fakeRepo) Update(_ context.Context, user *User) (*User, error) {
	existing, ok := r.users[user.ID]
	if !ok || existing.OrganizationID != user.OrganizationID {
		return nil, ErrUserNotFound
	}
	*existing = *user
	return cloneUser(existing), nil
}

func (r *fakeRepo) Delete(_ context.Context, organizationID, id string) error {
	u, ok := r.users[id]
	if !ok || u.OrganizationID != organizationID {
		return ErrUserNotFound
	}
	delete(r.users, id)
	for i, existingID := range r.order {
		if existingID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, organizationID, id string) (*User, error) {
	u, ok := r.users[id]
	if !ok || u.OrganizationID != organizationID {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *fakeRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *fakeRepo) List(_ context.Context, filter ListUsersFilter) ([]*User, string, error) {
	var filtered []*User
	for _, id := range r.order {
		u := r.users[id]
		if u.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.Status != nil && u.Status != *filter.Status {
			continue
		}
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		filtered = append(filtered, cloneUser(u))
	}

	if filter.Offset >= len(filtered) {
		return []*User{}, "", nil
	}

	end := filter.Offset + filter.Limit
	if end > len(filtered) {
		end = len(filtered)
	}

	var nextToken string
	if end < len(filtered) {
		nextToken = strconv.Itoa(end)
	}

	return filtered[filter.Offset:end], nextToken, nil
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func TestService_CreateUser_Success(t *testing.T) {
	t.Parallel()

	clk := &stubClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc := NewService(newFakeRepo(), clk, nil)

	created, err := svc.CreateUser(context.Background(), CreateUserInput{
		OrganizationID: testOrg,
		Email:          " JOAO@example.com ",
		Name:           "  João Silva  ",
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	if created.Email != "joao@example.com" {
		t.Errorf("expected normalized email, got %s", created.Email)
	}
	if created.Name != "João Silva" {
		t.Errorf("expected trimmed name, got %q", created.Name)
	}
	if created.Role != RoleOperator {
		t.Errorf("expected default operator role, got %s", created.Role)
	}
	if created.Status != StatusActive {
		t.Errorf("expected status active, got %s", created.Status)
	}
	if created.OrganizationID != testOrg {
		t.Errorf("expected organization %s, got %s", testOrg, created.OrganizationID)
	}
	if !created.CreatedAt.Equal(clk.now) || !created.UpdatedAt.Equal(clk.now) {
		t.Errorf("expected timestamps to use clock, got %v and %v", created.CreatedAt, created.UpdatedAt)
	}
}

func TestService_CreateUser_Validation(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	cases := []struct {
		name string
		in   CreateUserInput
		want error
	}{
		{name: "missing organization", in: CreateUserInput{Email: "a@example.com", Name: "A"}, want: shared.ErrInvalidOrganizationID},
		{name: "invalid email", in: CreateUserInput{OrganizationID: testOrg, Email: "nope", Name: "A"}, want: ErrInvalidEmail},
		{name: "blank name", in: CreateUserInput{OrganizationID: testOrg, Email: "a@example.com", Name: " "}, want: ErrInvalidName},
		{name: "unknown role", in: CreateUserInput{OrganizationID: testOrg, Email: "a@example.com", Name: "A", Role: "root"}, want: ErrInvalidRole},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := svc.CreateUser(context.Background(), tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestService_CreateUser_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	if _, err := svc.CreateUser(context.Background(), CreateUserInput{OrganizationID: testOrg, Email: "john@example.com", Name: "John"}); err != nil {
		t.Fatalf("unexpected error preparing data: %v", err)
	}

	_, err := svc.CreateUser(context.Background(), CreateUserInput{OrganizationID: "org-2", Email: "JOHN@example.com", Name: "Johnny"})
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestService_UpdateUser_Success(t *testing.T) {
	t.Parallel()

	clk := &stubClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewService(newFakeRepo(), clk, nil)

	created, err := svc.CreateUser(context.Background(), CreateUserInput{OrganizationID: testOrg, Email: "user@example.com", Name: "User"})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	newName := "New Name"
	newRole := RoleManager
	newStatus := StatusInactive
	clk.now = clk.now.Add(time.Hour)

	updated, err := svc.UpdateUser(context.Background(), UpdateUserInput{
		OrganizationID: testOrg,
		ID:             created.ID,
		Name:           &newName,
		Role:           &newRole,
		Status:         &newStatus,
	})
	if err != nil {
		t.Fatalf("UpdateUser returned error: %v", err)
	}

	if updated.Name != newName || updated.Role != newRole || updated.Status != newStatus {
		t.Errorf("update not applied: %+v", updated)
	}
	if !updated.UpdatedAt.Equal(clk.now) {
		t.Errorf("expected UpdatedAt to use clock, got %v", updated.UpdatedAt)
	}
}

func TestService_UpdateUser_OtherOrganization(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	created, err := svc.CreateUser(context.Background(), CreateUserInput{OrganizationID: testOrg, Email: "user@example.com", Name: "User"})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	name := "Intruder"
	_, err = svc.UpdateUser(context.Background(), UpdateUserInput{OrganizationID: "org-2", ID: created.ID, Name: &name})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestService_UpdateUser_InvalidStatus(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	created, err := svc.CreateUser(context.Background(), CreateUserInput{OrganizationID: testOrg, Email: "user@example.com", Name: "User"})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	invalidStatus := Status("blocked")
	_, err = svc.UpdateUser(context.Background(), UpdateUserInput{OrganizationID: testOrg, ID: created.ID, Status: &invalidStatus})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestService_DeleteUser_InvalidID(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	err := svc.DeleteUser(context.Background(), DeleteUserInput{OrganizationID: testOrg, ID: ""})
	if !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestService_GetUser_Success(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	created, err := svc.CreateUser(context.Background(), CreateUserInput{OrganizationID: testOrg, Email: "user@example.com", Name: "User"})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	found, err := svc.GetUser(context.Background(), GetUserInput{OrganizationID: testOrg, ID: created.ID})
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("expected ID %s, got %s", created.ID, found.ID)
	}
}

func TestService_LookupUser(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	created, err := svc.CreateUser(context.Background(), CreateUserInput{OrganizationID: testOrg, Email: "maria@example.com", Name: "Maria", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	found, err := svc.LookupUser(context.Background(), LookupUserInput{Identifier: "  Maria@Example.com"})
	if err != nil {
		t.Fatalf("LookupUser returned error: %v", err)
	}
	if found.ID != created.ID || found.Role != RoleAdmin || found.OrganizationID != testOrg {
		t.Fatalf("unexpected lookup result: %+v", found)
	}

	if _, err := svc.LookupUser(context.Background(), LookupUserInput{Identifier: "ghost@example.com"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.LookupUser(context.Background(), LookupUserInput{Identifier: ""}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestService_ListUsers_Defaults(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	for i := 0; i < 3; i++ {
		in := CreateUserInput{OrganizationID: testOrg, Email: fmt.Sprintf("user%d@example.com", i), Name: fmt.Sprintf("User %d", i)}
		if _, err := svc.CreateUser(context.Background(), in); err != nil {
			t.Fatalf("CreateUser error: %v", err)
		}
	}
	if _, err := svc.CreateUser(context.Background(), CreateUserInput{OrganizationID: "org-2", Email: "other@example.com", Name: "Other"}); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	result, err := svc.ListUsers(context.Background(), ListUsersInput{OrganizationID: testOrg})
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if len(result.Users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(result.Users))
	}
	if result.NextPageToken != "" {
		t.Fatalf("expected no next token, got %s", result.NextPageToken)
	}
}

func TestService_ListUsers_PageValidation(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	if _, err := svc.ListUsers(context.Background(), ListUsersInput{OrganizationID: testOrg, PageSize: shared.MaxListPageSize + 1}); !errors.Is(err, shared.ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize, got %v", err)
	}
	if _, err := svc.ListUsers(context.Background(), ListUsersInput{OrganizationID: testOrg, PageToken: "abc"}); !errors.Is(err, shared.ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}

func TestService_ListUsers_FilterByRole(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), nil, nil)

	if _, err := svc.CreateUser(context.Background(), CreateUserInput{OrganizationID: testOrg, Email: "op@example.com", Name: "Op"}); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if _, err := svc.CreateUser(context.Background(), CreateUserInput{OrganizationID: testOrg, Email: "boss@example.com", Name: "Boss", Role: RoleManager}); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	manager := RoleManager
	result, err := svc.ListUsers(context.Background(), ListUsersInput{OrganizationID: testOrg, Role: &manager})
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if len(result.Users) != 1 || result.Users[0].Email != "boss@example.com" {
		t.Fatalf("unexpected filtered users: %+v", result.Users)
	}
}
