package analytics

import "github.com/shopspring/decimal"

// Turnover は在庫回転の指標です。
// CoverageDays は消費がない場合 nil です。
type Turnover struct {
	ProductID               string
	Consumed                decimal.Decimal
	AverageStock            decimal.Decimal
	CurrentStock            decimal.Decimal
	Rate                    float64
	AverageDailyConsumption float64
	CoverageDays            *float64
}

// ComputeTurnover は消費量 / 平均在庫と、現在庫 / 1 日平均消費を求めます。
func ComputeTurnover(productID string, consumed, averageStock, currentStock decimal.Decimal, days int) *Turnover {
	t := &Turnover{
		ProductID:    productID,
		Consumed:     consumed,
		AverageStock: averageStock,
		CurrentStock: currentStock,
	}
	if averageStock.IsPositive() {
		t.Rate = consumed.Div(averageStock).InexactFloat64()
	}
	if days > 0 && consumed.IsPositive() {
		daily := consumed.Div(decimal.NewFromInt(int64(days)))
		t.AverageDailyConsumption = daily.InexactFloat64()
		coverage := currentStock.Div(daily).InexactFloat64()
		t.CoverageDays = &coverage
	}
	return t
}
