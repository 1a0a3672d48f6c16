package supplier

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status は仕入先の取引状態です。
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Supplier は仕入先です。CNPJ は組織内で一意です。
type Supplier struct {
	ID             string
	OrganizationID string
	Name           string
	CNPJ           string
	Email          *string
	Phone          *string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Evaluation は仕入先の評価です。各スコアは 1 から 5 です。
type Evaluation struct {
	ID             string
	OrganizationID string
	SupplierID     string
	Quality        int
	Delivery       int
	Price          int
	Service        int
	Comment        *string
	EvaluatedAt    time.Time
}

// Average は 4 項目の平均です。
func (e *Evaluation) Average() float64 {
	return float64(e.Quality+e.Delivery+e.Price+e.Service) / 4
}

// Performance は発注ごとの納入実績です。
type Performance struct {
	ID               string
	OrganizationID   string
	SupplierID       string
	PurchaseOrderID  string
	ExpectedDate     *time.Time
	ReceivedDate     time.Time
	OnTime           bool
	OrderedQuantity  decimal.Decimal
	ReceivedQuantity decimal.Decimal
	CreatedAt        time.Time
}

// Scorecard は仕入先の評価と納入実績の集計です。
type Scorecard struct {
	SupplierID       string
	EvaluationCount  int
	AverageQuality   float64
	AverageDelivery  float64
	AveragePrice     float64
	AverageService   float64
	OverallAverage   float64
	DeliveryCount    int
	OnTimeRate       float64
	FillRate         float64
	LastEvaluatedAt  *time.Time
	LastDeliveryDate *time.Time
}
