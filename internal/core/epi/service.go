package epi

import (
	"context"
	"fmt"
	"strings"

	"github.com/ogurasousui/stockly/internal/core/shared"
)

// Repositories は EPI ユースケースが利用する永続化ポートの集合です。
type Repositories struct {
	EPIs         Repository
	Requirements RequirementRepository
	Deliveries   DeliveryRepository
	Terms        TermRepository
	Employees    EmployeeReader
}

// Service は EPI 種別・要件・支給・受領書のユースケースをまとめます。
type Service struct {
	epis         Repository
	requirements RequirementRepository
	deliveries   DeliveryRepository
	terms        TermRepository
	employees    EmployeeReader
	clock        shared.Clock
	tx           shared.TransactionManager
	invalidator  shared.Invalidator
	termSuffix   func() string
}

// UseCase は EPI ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEPI(ctx context.Context, in CreateEPIInput) (*EPI, error)
	GetEPI(ctx context.Context, in GetEPIInput) (*EPI, error)
	ListEPIs(ctx context.Context, in ListEPIsInput) (*ListEPIsResult, error)
	UpdateEPI(ctx context.Context, in UpdateEPIInput) (*EPI, error)
	DeleteEPI(ctx context.Context, in DeleteEPIInput) error
	AdjustStock(ctx context.Context, in AdjustStockInput) (*EPI, error)

	CreateRequirement(ctx context.Context, in CreateRequirementInput) (*Requirement, error)
	DeleteRequirement(ctx context.Context, in DeleteRequirementInput) error
	ListRequirements(ctx context.Context, organizationID string) ([]*Requirement, error)
	RequirementsFor(ctx context.Context, in RequirementsForInput) ([]*Requirement, error)

	DeliverEPI(ctx context.Context, in DeliverEPIInput) (*Delivery, error)
	ReturnDelivery(ctx context.Context, in ReturnDeliveryInput) (*Delivery, error)
	ExpireOverdue(ctx context.Context, organizationID string) (int64, error)
	ListDeliveries(ctx context.Context, in ListDeliveriesInput) (*ListDeliveriesResult, error)
	IssueDeliveryTerm(ctx context.Context, in IssueDeliveryTermInput) (*DeliveryTerm, error)
	GetDeliveryTerm(ctx context.Context, in GetDeliveryTermInput) (*DeliveryTerm, error)
}

// NewService は Service を生成します。
func NewService(repos Repositories, clock shared.Clock, tx shared.TransactionManager, invalidator shared.Invalidator) *Service {
	if clock == nil {
		clock = shared.RealClock{}
	}
	if tx == nil {
		tx = shared.NoopTransactionManager{}
	}
	if invalidator == nil {
		invalidator = shared.NoopInvalidator{}
	}
	return &Service{
		epis:         repos.EPIs,
		requirements: repos.Requirements,
		deliveries:   repos.Deliveries,
		terms:        repos.Terms,
		employees:    repos.Employees,
		clock:        clock,
		tx:           tx,
		invalidator:  invalidator,
		termSuffix:   randomTermSuffix,
	}
}

// CreateEPIInput は EPI 種別作成時の入力です。
type CreateEPIInput struct {
	OrganizationID string
	Name           string
	Category       string
	CANumber       *string
	ValidityDays   int
	StockQuantity  int
	MinimumStock   int
}

// UpdateEPIInput は EPI 種別更新時の入力です。在庫数は AdjustStock でのみ変更します。
type UpdateEPIInput struct {
	OrganizationID string
	ID             string
	Name           *string
	Category       *string
	CANumber       *string
	ValidityDays   *int
	MinimumStock   *int
}

// GetEPIInput は EPI 種別取得時の入力です。
type GetEPIInput struct {
	OrganizationID string
	ID             string
}

// DeleteEPIInput は EPI 種別削除時の入力です。
type DeleteEPIInput struct {
	OrganizationID string
	ID             string
}

// ListEPIsInput は EPI 一覧取得時の入力です。
type ListEPIsInput struct {
	OrganizationID string
	Category       *string
	LowStockOnly   bool
	PageSize       int
	PageToken      string
}

// ListEPIsResult は EPI 一覧の取得結果です。
type ListEPIsResult struct {
	EPIs          []*EPI
	NextPageToken string
}

// AdjustStockInput は在庫調整の入力です。Delta は正で入庫、負で出庫です。
type AdjustStockInput struct {
	OrganizationID string
	ID             string
	Delta          int
}

// CreateEPI は EPI 種別を登録します。
func (s *Service) CreateEPI(ctx context.Context, in CreateEPIInput) (*EPI, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}

	name, err := normalizeRequired(in.Name, ErrInvalidName)
	if err != nil {
		return nil, err
	}
	category, err := normalizeRequired(in.Category, ErrInvalidCategory)
	if err != nil {
		return nil, err
	}
	if in.ValidityDays < 0 {
		return nil, ErrInvalidValidityDays
	}
	if in.StockQuantity < 0 {
		return nil, ErrInsufficientStock
	}
	if in.MinimumStock < 0 {
		return nil, ErrInvalidMinimumStock
	}

	var created *EPI
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		result, err := s.epis.Create(txCtx, &EPI{
			OrganizationID: orgID,
			Name:           name,
			Category:       category,
			CANumber:       shared.NormalizeOptionalString(in.CANumber),
			ValidityDays:   in.ValidityDays,
			StockQuantity:  in.StockQuantity,
			MinimumStock:   in.MinimumStock,
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

// UpdateEPI は EPI 種別を更新します。カテゴリ変更はコンプライアンスに影響します。
func (s *Service) UpdateEPI(ctx context.Context, in UpdateEPIInput) (*EPI, error) {
	orgID, id, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return nil, err
	}

	var updated *EPI
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.epis.FindByID(txCtx, orgID, id)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name, err := normalizeRequired(*in.Name, ErrInvalidName)
			if err != nil {
				return err
			}
			existing.Name = name
		}
		if in.Category != nil {
			category, err := normalizeRequired(*in.Category, ErrInvalidCategory)
			if err != nil {
				return err
			}
			existing.Category = category
		}
		if in.CANumber != nil {
			existing.CANumber = shared.NormalizeOptionalString(in.CANumber)
		}
		if in.ValidityDays != nil {
			if *in.ValidityDays < 0 {
				return ErrInvalidValidityDays
			}
			existing.ValidityDays = *in.ValidityDays
		}
		if in.MinimumStock != nil {
			if *in.MinimumStock < 0 {
				return ErrInvalidMinimumStock
			}
			existing.MinimumStock = *in.MinimumStock
		}

		existing.UpdatedAt = s.clock.Now()

		result, err := s.epis.Update(txCtx, existing)
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

// GetEPI は EPI 種別を取得します。
func (s *Service) GetEPI(ctx context.Context, in GetEPIInput) (*EPI, error) {
	orgID, id, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return nil, err
	}

	var found *EPI
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.epis.FindByID(txCtx, orgID, id)
		if err != nil {
			return err
		}
		found = result
		return nil
	}); err != nil {
		return nil, err
	}
	return found, nil
}

// DeleteEPI は EPI 種別を削除します。支給記録が残っている場合は ErrEPIInUse になります。
func (s *Service) DeleteEPI(ctx context.Context, in DeleteEPIInput) error {
	orgID, id, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return err
	}

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.epis.Delete(txCtx, orgID, id)
	}); err != nil {
		return err
	}

	s.invalidate(ctx, orgID)
	return nil
}

// ListEPIs は EPI 種別の一覧を取得します。
func (s *Service) ListEPIs(ctx context.Context, in ListEPIsInput) (*ListEPIsResult, error) {
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

	result := &ListEPIsResult{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		epis, token, err := s.epis.List(txCtx, ListEPIsFilter{
			OrganizationID: orgID,
			Category:       shared.NormalizeOptionalString(in.Category),
			LowStockOnly:   in.LowStockOnly,
			Limit:          limit,
			Offset:         offset,
		})
		if err != nil {
			return err
		}
		result.EPIs = epis
		result.NextPageToken = token
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// AdjustStock は EPI の在庫を増減します。在庫は 0 未満になりません。
func (s *Service) AdjustStock(ctx context.Context, in AdjustStockInput) (*EPI, error) {
	orgID, id, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return nil, err
	}
	if in.Delta == 0 {
		return nil, ErrInvalidQuantity
	}

	var adjusted *EPI
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if _, err := s.epis.FindByID(txCtx, orgID, id); err != nil {
			return err
		}
		result, err := s.epis.AdjustStock(txCtx, orgID, id, in.Delta, s.clock.Now())
		if err != nil {
			return err
		}
		adjusted = result
		return nil
	}); err != nil {
		return nil, err
	}
	return adjusted, nil
}

func (s *Service) invalidate(ctx context.Context, orgID string) {
	_ = s.invalidator.Invalidate(ctx, orgID)
}

func normalizeKeys(rawOrgID, rawID string) (string, string, error) {
	orgID, err := shared.NormalizeOrganizationID(rawOrgID)
	if err != nil {
		return "", "", err
	}
	id := strings.TrimSpace(rawID)
	if id == "" {
		return "", "", fmt.Errorf("id: %w", ErrInvalidID)
	}
	return orgID, id, nil
}

func normalizeRequired(raw string, invalid error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", invalid
	}
	return trimmed, nil
}
