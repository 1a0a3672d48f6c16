package product

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ogurasousui/stockly/internal/core/shared"
	"github.com/ogurasousui/stockly/internal/platform/format"
)

var skuPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._-]*$`)

const defaultUnit = "UN"

// Service は商品カタログのユースケースをまとめます。
type Service struct {
	repo  Repository
	clock shared.Clock
	tx    shared.TransactionManager
}

// UseCase は商品ユースケースの公開インターフェースです。
type UseCase interface {
	CreateProduct(ctx context.Context, in CreateProductInput) (*Product, error)
	GetProduct(ctx context.Context, in GetProductInput) (*Product, error)
	ListProducts(ctx context.Context, in ListProductsInput) (*ListProductsResult, error)
	UpdateProduct(ctx context.Context, in UpdateProductInput) (*Product, error)
	DeleteProduct(ctx context.Context, in DeleteProductInput) error
	LowStock(ctx context.Context, organizationID string) ([]*LowStockItem, error)
	Catalog(ctx context.Context, organizationID string) ([]*Product, error)
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

// CreateProductInput は商品登録の入力です。
type CreateProductInput struct {
	OrganizationID string
	SKU            string
	Name           string
	Category       string
	Unit           string
	EAN            *string
	UnitCost       decimal.Decimal
	MinimumStock   decimal.Decimal
}

// UpdateProductInput は商品更新の入力です。
type UpdateProductInput struct {
	OrganizationID string
	ID             string
	SKU            *string
	Name           *string
	Category       *string
	Unit           *string
	EAN            *string
	UnitCost       *decimal.Decimal
	MinimumStock   *decimal.Decimal
	Status         *Status
}

// GetProductInput は商品取得の入力です。
type GetProductInput struct {
	OrganizationID string
	ID             string
}

// DeleteProductInput は商品削除の入力です。
type DeleteProductInput struct {
	OrganizationID string
	ID             string
}

// ListProductsInput は商品一覧の入力です。
type ListProductsInput struct {
	OrganizationID string
	Category       *string
	Status         *Status
	Search         *string
	PageSize       int
	PageToken      string
}

// ListProductsResult は商品一覧の結果です。
type ListProductsResult struct {
	Products      []*Product
	NextPageToken string
}

// CreateProduct は商品を登録します。
func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput) (*Product, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}
	sku, err := NormalizeSKU(in.SKU)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	unit, err := normalizeUnit(in.Unit)
	if err != nil {
		return nil, err
	}
	ean, err := normalizeEAN(in.EAN)
	if err != nil {
		return nil, err
	}
	if in.UnitCost.IsNegative() {
		return nil, ErrInvalidUnitCost
	}
	if in.MinimumStock.IsNegative() {
		return nil, ErrInvalidMinimumStock
	}

	var created *Product
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureSKUNotExists(txCtx, orgID, sku); err != nil {
			return err
		}
		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &Product{
			OrganizationID: orgID,
			SKU:            sku,
			Name:           name,
			Category:       strings.TrimSpace(in.Category),
			Unit:           unit,
			EAN:            ean,
			UnitCost:       in.UnitCost,
			MinimumStock:   in.MinimumStock,
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

// UpdateProduct は商品を更新します。
func (s *Service) UpdateProduct(ctx context.Context, in UpdateProductInput) (*Product, error) {
	orgID, id, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return nil, err
	}

	var updated *Product
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, orgID, id)
		if err != nil {
			return err
		}

		if in.SKU != nil {
			sku, err := NormalizeSKU(*in.SKU)
			if err != nil {
				return err
			}
			if sku != existing.SKU {
				if err := s.ensureSKUNotExists(txCtx, orgID, sku); err != nil {
					return err
				}
				existing.SKU = sku
			}
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return ErrInvalidName
			}
			existing.Name = name
		}
		if in.Category != nil {
			existing.Category = strings.TrimSpace(*in.Category)
		}
		if in.Unit != nil {
			unit, err := normalizeUnit(*in.Unit)
			if err != nil {
				return err
			}
			existing.Unit = unit
		}
		if in.EAN != nil {
			ean, err := normalizeEAN(in.EAN)
			if err != nil {
				return err
			}
			existing.EAN = ean
		}
		if in.UnitCost != nil {
			if in.UnitCost.IsNegative() {
				return ErrInvalidUnitCost
			}
			existing.UnitCost = *in.UnitCost
		}
		if in.MinimumStock != nil {
			if in.MinimumStock.IsNegative() {
				return ErrInvalidMinimumStock
			}
			existing.MinimumStock = *in.MinimumStock
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

// GetProduct は商品を取得します。
func (s *Service) GetProduct(ctx context.Context, in GetProductInput) (*Product, error) {
	orgID, id, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return nil, err
	}

	var found *Product
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, orgID, id)
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

// DeleteProduct は商品を削除します。
func (s *Service) DeleteProduct(ctx context.Context, in DeleteProductInput) error {
	orgID, id, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return err
	}
	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, orgID, id)
	})
}

// ListProducts は商品一覧を取得します。
func (s *Service) ListProducts(ctx context.Context, in ListProductsInput) (*ListProductsResult, error) {
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

	result := &ListProductsResult{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		products, token, err := s.repo.List(txCtx, ListProductsFilter{
			OrganizationID: orgID,
			Category:       shared.NormalizeOptionalString(in.Category),
			Status:         in.Status,
			Search:         shared.NormalizeOptionalString(in.Search),
			Limit:          limit,
			Offset:         offset,
		})
		if err != nil {
			return err
		}
		result.Products = products
		result.NextPageToken = token
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// LowStock は最低在庫を下回る商品を返します。
func (s *Service) LowStock(ctx context.Context, organizationID string) ([]*LowStockItem, error) {
	orgID, err := shared.NormalizeOrganizationID(organizationID)
	if err != nil {
		return nil, err
	}

	var items []*LowStockItem
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.LowStock(txCtx, orgID)
		if err != nil {
			return err
		}
		items = result
		return nil
	}); err != nil {
		return nil, err
	}
	return items, nil
}

// Catalog は組織の全商品を返します。帳票出力用でページングしません。
func (s *Service) Catalog(ctx context.Context, organizationID string) ([]*Product, error) {
	orgID, err := shared.NormalizeOrganizationID(organizationID)
	if err != nil {
		return nil, err
	}

	var products []*Product
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.ListAll(txCtx, orgID)
		if err != nil {
			return err
		}
		products = result
		return nil
	}); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Service) ensureSKUNotExists(ctx context.Context, orgID, sku string) error {
	p, err := s.repo.FindBySKU(ctx, orgID, sku)
	if err != nil && !errors.Is(err, ErrProductNotFound) {
		return err
	}
	if p != nil {
		return ErrSKUAlreadyExists
	}
	return nil
}

// NormalizeSKU は SKU を大文字にし、使用可能な文字だけで構成されているか検証します。
func NormalizeSKU(raw string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if upper == "" || !skuPattern.MatchString(upper) {
		return "", ErrInvalidSKU
	}
	return upper, nil
}

func normalizeUnit(raw string) (string, error) {
	unit := strings.ToUpper(strings.TrimSpace(raw))
	if unit == "" {
		return defaultUnit, nil
	}
	if len(unit) > 6 {
		return "", ErrInvalidUnit
	}
	return unit, nil
}

// normalizeEAN は GTIN-8/12/13/14 のチェックディジットを検証します。
func normalizeEAN(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	digits := format.OnlyDigits(*raw)
	if digits == "" {
		return nil, nil
	}
	if !ValidGTIN(digits) {
		return nil, ErrInvalidEAN
	}
	return &digits, nil
}

// ValidGTIN は EAN/GTIN のチェックディジットを検証します。
func ValidGTIN(digits string) bool {
	switch len(digits) {
	case 8, 12, 13, 14:
	default:
		return false
	}
	sum := 0
	for i := len(digits) - 2; i >= 0; i-- {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if (len(digits)-2-i)%2 == 0 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return int(digits[len(digits)-1]-'0') == check
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

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusInactive:
		return true
	default:
		return false
	}
}
