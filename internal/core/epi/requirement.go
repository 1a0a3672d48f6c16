package epi

import (
	"context"
	"strings"

	"github.com/ogurasousui/stockly/internal/core/shared"
)

// CreateRequirementInput は要件作成時の入力です。
type CreateRequirementInput struct {
	OrganizationID string
	Category       string
	Department     *string
	Position       *string
	Mandatory      bool
	Notes          *string
}

// DeleteRequirementInput は要件削除時の入力です。
type DeleteRequirementInput struct {
	OrganizationID string
	ID             string
}

// RequirementsForInput は部署・役職に適用される要件の検索入力です。
type RequirementsForInput struct {
	OrganizationID string
	Department     string
	Position       string
}

// CreateRequirement は部署または役職に EPI カテゴリを必須化するルールを登録します。
func (s *Service) CreateRequirement(ctx context.Context, in CreateRequirementInput) (*Requirement, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}
	category, err := normalizeRequired(in.Category, ErrInvalidCategory)
	if err != nil {
		return nil, err
	}

	department := shared.NormalizeOptionalString(in.Department)
	position := shared.NormalizeOptionalString(in.Position)
	if department == nil && position == nil {
		return nil, ErrInvalidRequirement
	}

	var created *Requirement
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		result, err := s.requirements.Create(txCtx, &Requirement{
			OrganizationID: orgID,
			Category:       category,
			Department:     department,
			Position:       position,
			Mandatory:      in.Mandatory,
			Notes:          shared.NormalizeOptionalString(in.Notes),
			CreatedAt:      s.clock.Now(),
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

// DeleteRequirement は要件を削除します。
func (s *Service) DeleteRequirement(ctx context.Context, in DeleteRequirementInput) error {
	orgID, id, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return err
	}

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.requirements.Delete(txCtx, orgID, id)
	}); err != nil {
		return err
	}

	s.invalidate(ctx, orgID)
	return nil
}

// ListRequirements は組織の要件を全件返します。
func (s *Service) ListRequirements(ctx context.Context, organizationID string) ([]*Requirement, error) {
	orgID, err := shared.NormalizeOrganizationID(organizationID)
	if err != nil {
		return nil, err
	}

	var reqs []*Requirement
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.requirements.List(txCtx, orgID)
		if err != nil {
			return err
		}
		reqs = result
		return nil
	}); err != nil {
		return nil, err
	}
	return reqs, nil
}

// RequirementsFor は部署または役職が一致する要件を返します。
// 両方が空の場合は何にも一致しません。
func (s *Service) RequirementsFor(ctx context.Context, in RequirementsForInput) ([]*Requirement, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}

	department := strings.TrimSpace(in.Department)
	position := strings.TrimSpace(in.Position)
	if department == "" && position == "" {
		return []*Requirement{}, nil
	}

	var reqs []*Requirement
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.requirements.ListMatching(txCtx, orgID, department, position)
		if err != nil {
			return err
		}
		reqs = result
		return nil
	}); err != nil {
		return nil, err
	}
	return reqs, nil
}
