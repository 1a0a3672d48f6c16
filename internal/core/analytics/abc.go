package analytics

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Class は ABC 分類の区分です。
type Class string

const (
	ClassA Class = "A"
	ClassB Class = "B"
	ClassC Class = "C"
)

// 累積構成比の境界 (%)。
const (
	classABoundary = 80.0
	classBBoundary = 95.0
)

// Consumption は商品ごとの期間内消費です。Value は数量 × 単価の合計です。
type Consumption struct {
	ProductID string
	SKU       string
	Name      string
	Quantity  decimal.Decimal
	Value     decimal.Decimal
}

// ABCItem は分類済みの 1 商品です。Share と CumulativeShare は百分率です。
type ABCItem struct {
	Consumption
	Share           float64
	CumulativeShare float64
	Class           Class
}

// ClassSummary は区分ごとの集計です。
type ClassSummary struct {
	Class Class
	Count int
	Value decimal.Decimal
	Share float64
}

// ABCResult は ABC 分析の結果です。
type ABCResult struct {
	Items      []*ABCItem
	TotalValue decimal.Decimal
	Classes    []ClassSummary
}

// ClassifyABC は消費金額の降順に並べ、各商品を加算する前の累積構成比で区分します。
// 80% 未満は A、95% 未満は B、それ以外は C です。合計が 0 の場合はすべて C です。
func ClassifyABC(items []Consumption) *ABCResult {
	sorted := make([]Consumption, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].Value.Cmp(sorted[j].Value); c != 0 {
			return c > 0
		}
		return sorted[i].SKU < sorted[j].SKU
	})

	total := decimal.Zero
	for _, item := range sorted {
		total = total.Add(item.Value)
	}

	result := &ABCResult{
		Items:      make([]*ABCItem, 0, len(sorted)),
		TotalValue: total,
	}
	summaries := map[Class]*ClassSummary{
		ClassA: {Class: ClassA, Value: decimal.Zero},
		ClassB: {Class: ClassB, Value: decimal.Zero},
		ClassC: {Class: ClassC, Value: decimal.Zero},
	}

	cumulative := decimal.Zero
	for _, item := range sorted {
		class := ClassC
		var share, before float64
		if total.IsPositive() {
			before = percentOf(cumulative, total)
			share = percentOf(item.Value, total)
			switch {
			case before < classABoundary:
				class = ClassA
			case before < classBBoundary:
				class = ClassB
			}
		}
		cumulative = cumulative.Add(item.Value)

		abc := &ABCItem{Consumption: item, Share: share, Class: class}
		if total.IsPositive() {
			abc.CumulativeShare = percentOf(cumulative, total)
		}
		result.Items = append(result.Items, abc)

		summary := summaries[class]
		summary.Count++
		summary.Value = summary.Value.Add(item.Value)
	}

	for _, class := range []Class{ClassA, ClassB, ClassC} {
		summary := summaries[class]
		if total.IsPositive() {
			summary.Share = percentOf(summary.Value, total)
		}
		result.Classes = append(result.Classes, *summary)
	}
	return result
}

func percentOf(part, total decimal.Decimal) float64 {
	return part.Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
