package purchasing

import (
	"context"

	"github.com/ogurasousui/stockly/internal/core/epi"
	"github.com/ogurasousui/stockly/internal/core/stock"
	"github.com/ogurasousui/stockly/internal/core/supplier"
)

// Repository は発注と明細の永続化を行います。Create は明細も合わせて登録します。
type Repository interface {
	Create(ctx context.Context, order *Order) (*Order, error)
	Update(ctx context.Context, order *Order) (*Order, error)
	FindByID(ctx context.Context, organizationID, id string) (*Order, error)
	List(ctx context.Context, filter ListOrdersFilter) ([]*Order, string, error)
}

// ListOrdersFilter は発注一覧の検索条件です。明細は読み込みません。
type ListOrdersFilter struct {
	OrganizationID string
	SupplierID     *string
	Status         *Status
	Limit          int
	Offset         int
}

// SupplierReader は supplier.Repository が満たします。
type SupplierReader interface {
	FindByID(ctx context.Context, organizationID, id string) (*supplier.Supplier, error)
}

// StockRecorder は stock.Service が満たします。
type StockRecorder interface {
	RegisterEntry(ctx context.Context, in stock.MovementInput) (*stock.Movement, error)
}

// EPIStockAdjuster は epi.Service が満たします。
type EPIStockAdjuster interface {
	AdjustStock(ctx context.Context, in epi.AdjustStockInput) (*epi.EPI, error)
}

// PerformanceRecorder は supplier.Service が満たします。
type PerformanceRecorder interface {
	RecordPerformance(ctx context.Context, in supplier.RecordPerformanceInput) (*supplier.Performance, error)
}
