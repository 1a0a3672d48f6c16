package employee

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/ogurasousui/stockly/internal/core/shared"
	"github.com/ogurasousui/stockly/internal/platform/format"
)

// Service は社員に関するユースケースをまとめます。
type Service struct {
	repo        Repository
	clock       shared.Clock
	tx          shared.TransactionManager
	invalidator shared.Invalidator
}

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error)
	ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error)
	ListActive(ctx context.Context, organizationID string) ([]*Employee, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error)
	DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error
}

// NewService は Service を生成します。
// 部署・役職・在籍状態の変更はコンプライアンス判定に影響するため invalidator へ通知します。
func NewService(repo Repository, clock shared.Clock, tx shared.TransactionManager, invalidator shared.Invalidator) *Service {
	if clock == nil {
		clock = shared.RealClock{}
	}
	if tx == nil {
		tx = shared.NoopTransactionManager{}
	}
	if invalidator == nil {
		invalidator = shared.NoopInvalidator{}
	}
	return &Service{repo: repo, clock: clock, tx: tx, invalidator: invalidator}
}

// CreateEmployeeInput は社員作成時の入力です。
type CreateEmployeeInput struct {
	OrganizationID string
	Name           string
	Document       *string
	Department     string
	Position       string
	Email          *string
	Status         *Status
	HiredAt        *time.Time
	TerminatedAt   *time.Time
}

// UpdateEmployeeInput は社員更新時の入力です。
type UpdateEmployeeInput struct {
	OrganizationID  string
	ID              string
	Name            *string
	Document        *string
	Department      *string
	Position        *string
	Email           *string
	Status          *Status
	HiredAt         *time.Time
	HiredAtSet      bool
	TerminatedAt    *time.Time
	TerminatedAtSet bool
}

// DeleteEmployeeInput は社員削除時の入力です。
type DeleteEmployeeInput struct {
	OrganizationID string
	ID             string
}

// GetEmployeeInput は社員取得時の入力です。
type GetEmployeeInput struct {
	OrganizationID string
	ID             string
}

// ListEmployeesInput は一覧取得時の入力です。
type ListEmployeesInput struct {
	OrganizationID string
	PageSize       int
	PageToken      string
	Status         *Status
	Department     *string
}

// ListEmployeesResult は一覧取得結果を表します。
type ListEmployeesResult struct {
	Employees     []*Employee
	NextPageToken string
}

// CreateEmployee は新しい社員を作成します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}

	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	document, err := normalizeDocument(in.Document)
	if err != nil {
		return nil, err
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	hiredAt := shared.TruncateDate(in.HiredAt)
	terminatedAt := shared.TruncateDate(in.TerminatedAt)

	if err := validateEmploymentPeriod(hiredAt, terminatedAt); err != nil {
		return nil, err
	}

	status := StatusActive
	if in.Status != nil {
		if !isValidStatus(*in.Status) {
			return nil, ErrInvalidStatus
		}
		status = *in.Status
	}

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if document != nil {
			if err := s.ensureDocumentNotExists(txCtx, orgID, *document); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &Employee{
			OrganizationID: orgID,
			Name:           name,
			Document:       document,
			Department:     strings.TrimSpace(in.Department),
			Position:       strings.TrimSpace(in.Position),
			Email:          email,
			Status:         status,
			HiredAt:        hiredAt,
			TerminatedAt:   terminatedAt,
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

	s.invalidate(ctx, orgID)
	return created, nil
}

// UpdateEmployee は社員情報を更新します。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var updated *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, orgID, in.ID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name, err := normalizeName(*in.Name)
			if err != nil {
				return err
			}
			existing.Name = name
		}

		if in.Document != nil {
			document, err := normalizeDocument(in.Document)
			if err != nil {
				return err
			}
			if document != nil && (existing.Document == nil || *existing.Document != *document) {
				if err := s.ensureDocumentNotExists(txCtx, orgID, *document); err != nil {
					return err
				}
			}
			existing.Document = document
		}

		if in.Department != nil {
			existing.Department = strings.TrimSpace(*in.Department)
		}

		if in.Position != nil {
			existing.Position = strings.TrimSpace(*in.Position)
		}

		if in.Email != nil {
			email, err := normalizeEmail(in.Email)
			if err != nil {
				return err
			}
			existing.Email = email
		}

		if in.Status != nil {
			if !isValidStatus(*in.Status) {
				return ErrInvalidStatus
			}
			existing.Status = *in.Status
		}

		if in.HiredAtSet {
			existing.HiredAt = shared.TruncateDate(in.HiredAt)
		}

		if in.TerminatedAtSet {
			existing.TerminatedAt = shared.TruncateDate(in.TerminatedAt)
		}

		if err := validateEmploymentPeriod(existing.HiredAt, existing.TerminatedAt); err != nil {
			return err
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

	s.invalidate(ctx, orgID)
	return updated, nil
}

// DeleteEmployee は社員を削除します。
func (s *Service) DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, orgID, in.ID)
	}); err != nil {
		return err
	}

	s.invalidate(ctx, orgID)
	return nil
}

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, orgID, in.ID)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListEmployees は社員の一覧を取得します。
func (s *Service) ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error) {
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

	var (
		employees []*Employee
		nextToken string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		resultEmployees, token, err := s.repo.List(txCtx, ListEmployeesFilter{
			OrganizationID: orgID,
			Status:         in.Status,
			Department:     shared.NormalizeOptionalString(in.Department),
			Limit:          limit,
			Offset:         offset,
		})
		if err != nil {
			return err
		}
		employees = resultEmployees
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListEmployeesResult{Employees: employees, NextPageToken: nextToken}, nil
}

// ListActive は組織の在籍中の社員を全件取得します。
func (s *Service) ListActive(ctx context.Context, organizationID string) ([]*Employee, error) {
	orgID, err := shared.NormalizeOrganizationID(organizationID)
	if err != nil {
		return nil, err
	}

	var employees []*Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.ListActive(txCtx, orgID)
		if err != nil {
			return err
		}
		employees = result
		return nil
	}); err != nil {
		return nil, err
	}
	return employees, nil
}

func (s *Service) invalidate(ctx context.Context, orgID string) {
	// キャッシュの破棄に失敗しても TTL で失効するため更新自体は成功扱いにします。
	_ = s.invalidator.Invalidate(ctx, orgID)
}

func (s *Service) ensureDocumentNotExists(ctx context.Context, orgID, document string) error {
	emp, err := s.repo.FindByDocument(ctx, orgID, document)
	if err != nil && !errors.Is(err, ErrEmployeeNotFound) {
		return err
	}
	if emp != nil {
		return ErrDocumentAlreadyExists
	}
	return nil
}

func normalizeName(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidName
	}
	return trimmed, nil
}

// normalizeDocument は CPF を数字のみに正規化します。空文字は未設定扱いです。
func normalizeDocument(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	digits := format.OnlyDigits(*raw)
	if digits == "" {
		return nil, nil
	}
	if !format.ValidCPF(digits) {
		return nil, ErrInvalidDocument
	}
	return &digits, nil
}

func normalizeEmail(raw *string) (*string, error) {
	trimmed := shared.NormalizeOptionalString(raw)
	if trimmed == nil {
		return nil, nil
	}
	addr, err := mail.ParseAddress(*trimmed)
	if err != nil {
		return nil, ErrInvalidEmail
	}
	lower := strings.ToLower(addr.Address)
	return &lower, nil
}

func validateEmploymentPeriod(hiredAt, terminatedAt *time.Time) error {
	if hiredAt == nil || terminatedAt == nil {
		return nil
	}
	if terminatedAt.Before(*hiredAt) {
		return ErrInvalidDateRange
	}
	return nil
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusInactive:
		return true
	default:
		return false
	}
}
