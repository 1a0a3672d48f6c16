package stock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ogurasousui/stockly/internal/core/product"
)

// LocationRepository はロケーションの永続化を行います。
type LocationRepository interface {
	Create(ctx context.Context, l *Location) (*Location, error)
	FindByID(ctx context.Context, organizationID, id string) (*Location, error)
	FindByCode(ctx context.Context, organizationID, code string) (*Location, error)
	List(ctx context.Context, organizationID string) ([]*Location, error)
}

// MovementRepository は在庫移動の永続化を行います。
type MovementRepository interface {
	Create(ctx context.Context, m *Movement) (*Movement, error)
	List(ctx context.Context, filter ListMovementsFilter) ([]*Movement, string, error)
}

// ListMovementsFilter は在庫移動の検索条件です。From は含み To は含みません。
type ListMovementsFilter struct {
	OrganizationID string
	ProductID      *string
	LocationID     *string
	Types          []MovementType
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

// BalanceRepository は在庫残高を管理します。
type BalanceRepository interface {
	// Apply は残高に delta を加算します。行がなければ作成し、結果が負になる場合は ErrInsufficientStock を返します。
	Apply(ctx context.Context, organizationID, productID, locationID string, delta decimal.Decimal, at time.Time) (*Balance, error)
	List(ctx context.Context, organizationID string, productID *string) ([]*Balance, error)
}

// ProductReader は入出庫対象の商品参照に使います。product.Repository が満たします。
type ProductReader interface {
	FindByID(ctx context.Context, organizationID, id string) (*product.Product, error)
}
