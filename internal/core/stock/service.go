package stock

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ogurasousui/stockly/internal/core/product"
	"github.com/ogurasousui/stockly/internal/core/shared"
)

var locationCodePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]*$`)

// Repositories は在庫ユースケースが利用する永続化ポートです。
type Repositories struct {
	Locations LocationRepository
	Movements MovementRepository
	Balances  BalanceRepository
	Products  ProductReader
}

// Service は入出庫・移動・残高のユースケースをまとめます。
type Service struct {
	locations LocationRepository
	movements MovementRepository
	balances  BalanceRepository
	products  ProductReader
	clock     shared.Clock
	tx        shared.TransactionManager
}

// UseCase は在庫ユースケースの公開インターフェースです。
type UseCase interface {
	CreateLocation(ctx context.Context, in CreateLocationInput) (*Location, error)
	ListLocations(ctx context.Context, organizationID string) ([]*Location, error)
	RegisterEntry(ctx context.Context, in MovementInput) (*Movement, error)
	RegisterExit(ctx context.Context, in MovementInput) (*Movement, error)
	Transfer(ctx context.Context, in TransferInput) (*Transfer, error)
	ListMovements(ctx context.Context, in ListMovementsInput) (*ListMovementsResult, error)
	Balances(ctx context.Context, organizationID string, productID *string) ([]*Balance, error)
}

// NewService は Service を生成します。
func NewService(repos Repositories, clock shared.Clock, tx shared.TransactionManager) *Service {
	if clock == nil {
		clock = shared.RealClock{}
	}
	if tx == nil {
		tx = shared.NoopTransactionManager{}
	}
	return &Service{
		locations: repos.Locations,
		movements: repos.Movements,
		balances:  repos.Balances,
		products:  repos.Products,
		clock:     clock,
		tx:        tx,
	}
}

// CreateLocationInput はロケーション作成の入力です。
type CreateLocationInput struct {
	OrganizationID string
	Code           string
	Name           string
}

// MovementInput は入庫・出庫の入力です。
// UnitCost 省略時は商品の標準原価を使います。OccurredAt 省略時は現在時刻です。
type MovementInput struct {
	OrganizationID string
	ProductID      string
	LocationID     string
	Quantity       decimal.Decimal
	UnitCost       *decimal.Decimal
	Reference      *string
	OccurredAt     *time.Time
}

// TransferInput はロケーション間移動の入力です。
type TransferInput struct {
	OrganizationID string
	ProductID      string
	FromLocationID string
	ToLocationID   string
	Quantity       decimal.Decimal
	Reference      *string
	OccurredAt     *time.Time
}

// ListMovementsInput は在庫移動一覧の入力です。
type ListMovementsInput struct {
	OrganizationID string
	ProductID      *string
	LocationID     *string
	Type           *MovementType
	From           *time.Time
	To             *time.Time
	PageSize       int
	PageToken      string
}

// ListMovementsResult は在庫移動一覧の結果です。
type ListMovementsResult struct {
	Movements     []*Movement
	NextPageToken string
}

// CreateLocation はロケーションを作成します。
func (s *Service) CreateLocation(ctx context.Context, in CreateLocationInput) (*Location, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" || !locationCodePattern.MatchString(code) {
		return nil, ErrInvalidLocationCode
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidLocationName
	}

	var created *Location
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.locations.FindByCode(txCtx, orgID, code)
		if err != nil && !errors.Is(err, ErrLocationNotFound) {
			return err
		}
		if existing != nil {
			return ErrLocationCodeExists
		}
		result, err := s.locations.Create(txCtx, &Location{
			OrganizationID: orgID,
			Code:           code,
			Name:           name,
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
	return created, nil
}

// ListLocations はロケーションを全件返します。
func (s *Service) ListLocations(ctx context.Context, organizationID string) ([]*Location, error) {
	orgID, err := shared.NormalizeOrganizationID(organizationID)
	if err != nil {
		return nil, err
	}

	var locations []*Location
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.locations.List(txCtx, orgID)
		if err != nil {
			return err
		}
		locations = result
		return nil
	}); err != nil {
		return nil, err
	}
	return locations, nil
}

// RegisterEntry は入庫を記録し残高を加算します。
func (s *Service) RegisterEntry(ctx context.Context, in MovementInput) (*Movement, error) {
	return s.register(ctx, in, MovementEntry)
}

// RegisterExit は出庫を記録し残高を減算します。残高不足の場合は ErrInsufficientStock です。
func (s *Service) RegisterExit(ctx context.Context, in MovementInput) (*Movement, error) {
	return s.register(ctx, in, MovementExit)
}

func (s *Service) register(ctx context.Context, in MovementInput, typ MovementType) (*Movement, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}
	productID := strings.TrimSpace(in.ProductID)
	locationID := strings.TrimSpace(in.LocationID)
	if productID == "" || locationID == "" {
		return nil, fmt.Errorf("product or location id: %w", ErrInvalidID)
	}
	if !in.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return nil, ErrInvalidUnitCost
	}

	now := s.clock.Now()
	occurredAt := now
	if in.OccurredAt != nil {
		occurredAt = in.OccurredAt.UTC()
	}

	var created *Movement
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		p, err := s.products.FindByID(txCtx, orgID, productID)
		if err != nil {
			return err
		}
		if typ == MovementEntry && p.Status != product.StatusActive {
			return ErrProductInactive
		}
		if _, err := s.locations.FindByID(txCtx, orgID, locationID); err != nil {
			return err
		}

		unitCost := p.UnitCost
		if in.UnitCost != nil {
			unitCost = *in.UnitCost
		}

		m, err := s.apply(txCtx, &Movement{
			OrganizationID: orgID,
			ProductID:      productID,
			LocationID:     locationID,
			Type:           typ,
			Quantity:       in.Quantity,
			UnitCost:       unitCost,
			Reference:      shared.NormalizeOptionalString(in.Reference),
			OccurredAt:     occurredAt,
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
		created = m
		return nil
	}); err != nil {
		return nil, err
	}
	return created, nil
}

// Transfer はロケーション間で在庫を移動します。
// transfer_out と transfer_in の 2 件を同一トランザクションで記録します。
func (s *Service) Transfer(ctx context.Context, in TransferInput) (*Transfer, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}
	productID := strings.TrimSpace(in.ProductID)
	from := strings.TrimSpace(in.FromLocationID)
	to := strings.TrimSpace(in.ToLocationID)
	if productID == "" || from == "" || to == "" {
		return nil, fmt.Errorf("product or location id: %w", ErrInvalidID)
	}
	if from == to {
		return nil, ErrSameLocation
	}
	if !in.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	now := s.clock.Now()
	occurredAt := now
	if in.OccurredAt != nil {
		occurredAt = in.OccurredAt.UTC()
	}
	reference := shared.NormalizeOptionalString(in.Reference)

	var result *Transfer
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		p, err := s.products.FindByID(txCtx, orgID, productID)
		if err != nil {
			return err
		}
		for _, id := range []string{from, to} {
			if _, err := s.locations.FindByID(txCtx, orgID, id); err != nil {
				return err
			}
		}

		out, err := s.apply(txCtx, &Movement{
			OrganizationID: orgID,
			ProductID:      productID,
			LocationID:     from,
			Type:           MovementTransferOut,
			Quantity:       in.Quantity,
			UnitCost:       p.UnitCost,
			Reference:      reference,
			OccurredAt:     occurredAt,
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
		inbound, err := s.apply(txCtx, &Movement{
			OrganizationID: orgID,
			ProductID:      productID,
			LocationID:     to,
			Type:           MovementTransferIn,
			Quantity:       in.Quantity,
			UnitCost:       p.UnitCost,
			Reference:      reference,
			OccurredAt:     occurredAt,
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
		result = &Transfer{Out: out, In: inbound}
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// apply は残高を更新してから移動記録を保存します。
func (s *Service) apply(ctx context.Context, m *Movement) (*Movement, error) {
	delta := m.Quantity
	if m.Type.Sign() < 0 {
		delta = delta.Neg()
	}
	if _, err := s.balances.Apply(ctx, m.OrganizationID, m.ProductID, m.LocationID, delta, m.CreatedAt); err != nil {
		return nil, err
	}
	return s.movements.Create(ctx, m)
}

// ListMovements は在庫移動を検索します。
func (s *Service) ListMovements(ctx context.Context, in ListMovementsInput) (*ListMovementsResult, error) {
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
	if in.From != nil && in.To != nil && in.To.Before(*in.From) {
		return nil, ErrInvalidPeriod
	}

	var types []MovementType
	if in.Type != nil {
		if in.Type.Sign() == 0 {
			return nil, ErrInvalidMovementType
		}
		types = []MovementType{*in.Type}
	}

	result := &ListMovementsResult{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		movements, token, err := s.movements.List(txCtx, ListMovementsFilter{
			OrganizationID: orgID,
			ProductID:      shared.NormalizeOptionalString(in.ProductID),
			LocationID:     shared.NormalizeOptionalString(in.LocationID),
			Types:          types,
			From:           in.From,
			To:             in.To,
			Limit:          limit,
			Offset:         offset,
		})
		if err != nil {
			return err
		}
		result.Movements = movements
		result.NextPageToken = token
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// Balances は在庫残高を返します。productID 指定時はその商品に絞り込みます。
func (s *Service) Balances(ctx context.Context, organizationID string, productID *string) ([]*Balance, error) {
	orgID, err := shared.NormalizeOrganizationID(organizationID)
	if err != nil {
		return nil, err
	}

	var balances []*Balance
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.balances.List(txCtx, orgID, shared.NormalizeOptionalString(productID))
		if err != nil {
			return err
		}
		balances = result
		return nil
	}); err != nil {
		return nil, err
	}
	return balances, nil
}
