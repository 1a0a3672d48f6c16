package stock

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location は倉庫・保管場所です。Code は組織内で一意です。
type Location struct {
	ID             string
	OrganizationID string
	Code           string
	Name           string
	CreatedAt      time.Time
}

// MovementType は在庫移動の種別です。
type MovementType string

const (
	MovementEntry       MovementType = "entry"
	MovementExit        MovementType = "exit"
	MovementTransferOut MovementType = "transfer_out"
	MovementTransferIn  MovementType = "transfer_in"
)

// Sign は残高に対する符号を返します。
func (t MovementType) Sign() int {
	switch t {
	case MovementEntry, MovementTransferIn:
		return 1
	case MovementExit, MovementTransferOut:
		return -1
	default:
		return 0
	}
}

// Movement は在庫の入出庫記録です。Quantity は常に正です。
type Movement struct {
	ID             string
	OrganizationID string
	ProductID      string
	LocationID     string
	Type           MovementType
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	Reference      *string
	OccurredAt     time.Time
	CreatedAt      time.Time
}

// Value は移動金額 (数量 × 単価) です。
func (m *Movement) Value() decimal.Decimal {
	return m.Quantity.Mul(m.UnitCost)
}

// Balance は商品 × ロケーションの在庫残高です。
type Balance struct {
	OrganizationID string
	ProductID      string
	LocationID     string
	Quantity       decimal.Decimal
	UpdatedAt      time.Time
}

// Transfer はロケーション間移動で作られた 2 件の記録です。
type Transfer struct {
	Out *Movement
	In  *Movement
}
