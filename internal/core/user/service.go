package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/ogurasousui/stockly/internal/core/shared"
)

// Service はユーザーに関するユースケースをまとめます。
type Service struct {
	repo  Repository
	clock shared.Clock
	tx    shared.TransactionManager
}

// UseCase はユーザーユースケースの公開インターフェースです。
type UseCase interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*User, error)
	UpdateUser(ctx context.Context, in UpdateUserInput) (*User, error)
	DeleteUser(ctx context.Context, in DeleteUserInput) error
	GetUser(ctx context.Context, in GetUserInput) (*User, error)
	ListUsers(ctx context.Context, in ListUsersInput) (*ListUsersResult, error)
	LookupUser(ctx context.Context, in LookupUserInput) (*User, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, clock shared.Clock, tx shared.TransactionManager) *Service {
	if clock == nil {
		clock = shared.RealClock{}
	}
	if tx == nil {
		tx = shared.NoopTransactionManager{}
	}
	return &Service{repo: repo, clock: clock, tx: tx}
}

// CreateUserInput はユーザー作成時の入力です。
type CreateUserInput struct {
	OrganizationID string
	Email          string
	Name           string
	Role           Role
}

// UpdateUserInput はユーザー更新時の入力です。
type UpdateUserInput struct {
	OrganizationID string
	ID             string
	Name           *string
	Role           *Role
	Status         *Status
}

// DeleteUserInput はユーザー削除時の入力です。
type DeleteUserInput struct {
	OrganizationID string
	ID             string
}

// GetUserInput はユーザー取得時の入力です。
type GetUserInput struct {
	OrganizationID string
	ID             string
}

// LookupUserInput は識別子 (メールアドレス) でのユーザー検索入力です。
type LookupUserInput struct {
	Identifier string
}

// ListUsersInput は一覧取得時の入力です。
type ListUsersInput struct {
	OrganizationID string
	PageSize       int
	PageToken      string
	Status         *Status
	Role           *Role
}

// ListUsersResult は一覧取得結果を表します。
type ListUsersResult struct {
	Users         []*User
	NextPageToken string
}

// CreateUser は新しいユーザーを作成します。ロール未指定時は operator になります。
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	role := in.Role
	if role == "" {
		role = RoleOperator
	}
	if !isValidRole(role) {
		return nil, ErrInvalidRole
	}

	var created *User
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureEmailNotExists(txCtx, email); err != nil {
			return err
		}

		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &User{
			OrganizationID: orgID,
			Email:          email,
			Name:           name,
			Role:           role,
			Status:         StatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateUser はユーザー情報を更新します。
func (s *Service) UpdateUser(ctx context.Context, in UpdateUserInput) (*User, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var updated *User
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, orgID, in.ID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			updatedName := strings.TrimSpace(*in.Name)
			if updatedName == "" {
				return ErrInvalidName
			}
			existing.Name = updatedName
		}

		if in.Role != nil {
			if !isValidRole(*in.Role) {
				return ErrInvalidRole
			}
			existing.Role = *in.Role
		}

		if in.Status != nil {
			if !isValidStatus(*in.Status) {
				return ErrInvalidStatus
			}
			existing.Status = *in.Status
		}

		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteUser はユーザーを削除します。
func (s *Service) DeleteUser(ctx context.Context, in DeleteUserInput) error {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}
	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, orgID, in.ID)
	})
}

// GetUser は ID でユーザーを取得します。
func (s *Service) GetUser(ctx context.Context, in GetUserInput) (*User, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var found *User
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		u, err := s.repo.FindByID(txCtx, orgID, in.ID)
		if err != nil {
			return err
		}
		found = u
		return nil
	}); err != nil {
		return nil, err
	}
	return found, nil
}

// LookupUser はメールアドレスからユーザーを解決します。
// 認証基盤が発行した識別子を組織・ロールへ対応付けるために使います。
func (s *Service) LookupUser(ctx context.Context, in LookupUserInput) (*User, error) {
	email, err := normalizeEmail(in.Identifier)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	var found *User
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		u, err := s.repo.FindByEmail(txCtx, email)
		if err != nil {
			return err
		}
		found = u
		return nil
	}); err != nil {
		return nil, err
	}
	return found, nil
}

// ListUsers はユーザーの一覧を取得します。
func (s *Service) ListUsers(ctx context.Context, in ListUsersInput) (*ListUsersResult, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}

	limit, err := shared.NormalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := shared.ParsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	if in.Status != nil && !isValidStatus(*in.Status) {
		return nil, ErrInvalidStatus
	}
	if in.Role != nil && !isValidRole(*in.Role) {
		return nil, ErrInvalidRole
	}

	result := &ListUsersResult{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		users, nextToken, err := s.repo.List(txCtx, ListUsersFilter{
			OrganizationID: orgID,
			Limit:          limit,
			Offset:         offset,
			Status:         in.Status,
			Role:           in.Role,
		})
		if err != nil {
			return err
		}
		result.Users = users
		result.NextPageToken = nextToken
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Service) ensureEmailNotExists(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}
	if user != nil {
		return ErrEmailAlreadyExists
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", ErrInvalidEmail
	}

	return strings.ToLower(addr.Address), nil
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusInactive:
		return true
	default:
		return false
	}
}

func isValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleOperator:
		return true
	default:
		return false
	}
}
