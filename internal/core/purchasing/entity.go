package purchasing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status は発注の状態です。
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

// CanTransitionTo は draft → sent → received、および draft / sent からの cancelled のみを許可します。
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusSent || next == StatusCancelled
	case StatusSent:
		return next == StatusReceived || next == StatusCancelled
	default:
		return false
	}
}

// Order は仕入先への発注です。
type Order struct {
	ID             string
	OrganizationID string
	SupplierID     string
	Number         string
	Status         Status
	LocationID     *string
	ExpectedDate   *time.Time
	ReceivedDate   *time.Time
	Notes          *string
	Items          []*Item
	Total          decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Item は発注明細です。ProductID と EPIID のどちらか一方だけが設定されます。
type Item struct {
	ID               string
	OrderID          string
	ProductID        *string
	EPIID            *string
	Quantity         decimal.Decimal
	ReceivedQuantity decimal.Decimal
	UnitCost         decimal.Decimal
}

// Total は明細金額です。
func (i *Item) Total() decimal.Decimal {
	return i.Quantity.Mul(i.UnitCost)
}

// IsProduct は商品明細かどうかを返します。
func (i *Item) IsProduct() bool {
	return i.ProductID != nil
}

func orderTotal(items []*Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total())
	}
	return total
}
