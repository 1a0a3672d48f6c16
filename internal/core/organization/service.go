package organization

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ogurasousui/stockly/internal/core/shared"
	"github.com/ogurasousui/stockly/internal/platform/format"
)

var codePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Service は組織に関するユースケースをまとめます。
type Service struct {
	repo  Repository
	clock shared.Clock
	tx    shared.TransactionManager
}

// UseCase は組織ユースケースの公開インターフェースです。
type UseCase interface {
	CreateOrganization(ctx context.Context, in CreateOrganizationInput) (*Organization, error)
	GetOrganization(ctx context.Context, in GetOrganizationInput) (*Organization, error)
	ListOrganizations(ctx context.Context, in ListOrganizationsInput) (*ListOrganizationsResult, error)
	UpdateOrganization(ctx context.Context, in UpdateOrganizationInput) (*Organization, error)
	DeleteOrganization(ctx context.Context, in DeleteOrganizationInput) error
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

// CreateOrganizationInput は組織作成時の入力です。
type CreateOrganizationInput struct {
	Name string
	Code string
	CNPJ *string
}

// UpdateOrganizationInput は組織更新時の入力です。
type UpdateOrganizationInput struct {
	ID     string
	Name   *string
	Code   *string
	CNPJ   *string
	Status *Status
}

// DeleteOrganizationInput は組織削除時の入力です。
type DeleteOrganizationInput struct {
	ID string
}

// GetOrganizationInput は組織取得時の入力です。
type GetOrganizationInput struct {
	ID string
}

// ListOrganizationsInput は一覧取得時の入力です。
type ListOrganizationsInput struct {
	PageSize  int
	PageToken string
	Status    *Status
}

// ListOrganizationsResult は一覧取得結果を表します。
type ListOrganizationsResult struct {
	Organizations []*Organization
	NextPageToken string
}

// CreateOrganization は新しい組織を作成します。
func (s *Service) CreateOrganization(ctx context.Context, in CreateOrganizationInput) (*Organization, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	code, err := normalizeCode(in.Code)
	if err != nil {
		return nil, err
	}

	cnpj, err := normalizeCNPJ(in.CNPJ)
	if err != nil {
		return nil, err
	}

	var created *Organization
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureCodeNotExists(txCtx, code); err != nil {
			return err
		}

		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &Organization{
			Name:      name,
			Code:      code,
			CNPJ:      cnpj,
			Status:    StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
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

// UpdateOrganization は組織情報を更新します。
func (s *Service) UpdateOrganization(ctx context.Context, in UpdateOrganizationInput) (*Organization, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var updated *Organization
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
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

		if in.Code != nil {
			code, err := normalizeCode(*in.Code)
			if err != nil {
				return err
			}
			if code != existing.Code {
				if err := s.ensureCodeNotExists(txCtx, code); err != nil {
					return err
				}
				existing.Code = code
			}
		}

		if in.CNPJ != nil {
			cnpj, err := normalizeCNPJ(in.CNPJ)
			if err != nil {
				return err
			}
			existing.CNPJ = cnpj
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

// DeleteOrganization は組織を削除します。
func (s *Service) DeleteOrganization(ctx context.Context, in DeleteOrganizationInput) error {
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, in.ID)
	})
}

// GetOrganization は ID で組織を取得します。
func (s *Service) GetOrganization(ctx context.Context, in GetOrganizationInput) (*Organization, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var org *Organization
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		org = result
		return nil
	}); err != nil {
		return nil, err
	}

	return org, nil
}

// ListOrganizations は組織の一覧を取得します。
func (s *Service) ListOrganizations(ctx context.Context, in ListOrganizationsInput) (*ListOrganizationsResult, error) {
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

	result := &ListOrganizationsResult{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		orgs, token, err := s.repo.List(txCtx, ListOrganizationsFilter{
			Limit:  limit,
			Offset: offset,
			Status: in.Status,
		})
		if err != nil {
			return err
		}
		result.Organizations = orgs
		result.NextPageToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Service) ensureCodeNotExists(ctx context.Context, code string) error {
	org, err := s.repo.FindByCode(ctx, code)
	if err != nil && !errors.Is(err, ErrOrganizationNotFound) {
		return err
	}
	if org != nil {
		return ErrCodeAlreadyExists
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

func normalizeCode(raw string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" || !codePattern.MatchString(lower) {
		return "", ErrInvalidCode
	}
	return lower, nil
}

// normalizeCNPJ は数字のみに正規化し、空文字は未設定として扱います。
func normalizeCNPJ(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	digits := format.OnlyDigits(*raw)
	if digits == "" {
		return nil, nil
	}
	if !format.ValidCNPJ(digits) {
		return nil, ErrInvalidCNPJ
	}
	return &digits, nil
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusInactive:
		return true
	default:
		return false
	}
}
