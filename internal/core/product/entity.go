package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status は商品の取扱状態です。
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Product はカタログ上の商品です。SKU は組織内で一意です。
type Product struct {
	ID             string
	OrganizationID string
	SKU            string
	Name           string
	Category       string
	Unit           string
	EAN            *string
	UnitCost       decimal.Decimal
	MinimumStock   decimal.Decimal
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LowStockItem は最低在庫を下回った商品と全ロケーション合計の在庫です。
type LowStockItem struct {
	Product *Product
	Balance decimal.Decimal
}

// Shortage は最低在庫までの不足数量です。
func (i LowStockItem) Shortage() decimal.Decimal {
	return i.Product.MinimumStock.Sub(i.Balance)
}
