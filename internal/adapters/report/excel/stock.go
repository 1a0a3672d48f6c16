package excel

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ogurasousui/stockly/internal/core/product"
	"github.com/ogurasousui/stockly/internal/core/stock"
)

// StockRow は在庫一覧の 1 行です。
type StockRow struct {
	SKU          string
	Name         string
	Unit         string
	LocationCode string
	LocationName string
	Quantity     decimal.Decimal
	UnitCost     decimal.Decimal
	MinimumStock decimal.Decimal
}

// Value は在庫金額です。
func (r StockRow) Value() decimal.Decimal {
	return r.Quantity.Mul(r.UnitCost)
}

// StockRows は残高に商品とロケーションを結び付け、SKU とロケーションコード順に並べます。
// 対応する商品が見つからない残高は除外します。
func StockRows(products []*product.Product, locations []*stock.Location, balances []*stock.Balance) []StockRow {
	productsByID := make(map[string]*product.Product, len(products))
	for _, p := range products {
		productsByID[p.ID] = p
	}
	locationsByID := make(map[string]*stock.Location, len(locations))
	for _, l := range locations {
		locationsByID[l.ID] = l
	}

	rows := make([]StockRow, 0, len(balances))
	for _, b := range balances {
		p, ok := productsByID[b.ProductID]
		if !ok {
			continue
		}
		row := StockRow{
			SKU:          p.SKU,
			Name:         p.Name,
			Unit:         p.Unit,
			LocationCode: b.LocationID,
			Quantity:     b.Quantity,
			UnitCost:     p.UnitCost,
			MinimumStock: p.MinimumStock,
		}
		if l, ok := locationsByID[b.LocationID]; ok {
			row.LocationCode = l.Code
			row.LocationName = l.Name
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SKU != rows[j].SKU {
			return rows[i].SKU < rows[j].SKU
		}
		return rows[i].LocationCode < rows[j].LocationCode
	})
	return rows
}

// Stock は在庫残高のブックを作ります。最終行は在庫金額の合計です。
func Stock(rows []StockRow) ([]byte, error) {
	sh := sheet{
		name: "Estoque",
		columns: []column{
			{header: "SKU", width: 16},
			{header: "Produto", width: 36},
			{header: "Unidade", width: 10},
			{header: "Local", width: 12},
			{header: "Descrição do local", width: 24},
			{header: "Quantidade", width: 14},
			{header: "Estoque mínimo", width: 14},
			{header: "Custo unitário", width: 14},
			{header: "Valor", width: 16},
		},
	}

	total := decimal.Zero
	for _, r := range rows {
		value := r.Value()
		total = total.Add(value)
		sh.rows = append(sh.rows, []interface{}{
			r.SKU,
			r.Name,
			r.Unit,
			r.LocationCode,
			r.LocationName,
			r.Quantity.InexactFloat64(),
			r.MinimumStock.InexactFloat64(),
			r.UnitCost.InexactFloat64(),
			value.Round(2).InexactFloat64(),
		})
	}
	sh.rows = append(sh.rows, []interface{}{"Total", nil, nil, nil, nil, nil, nil, nil, total.Round(2).InexactFloat64()})

	return render([]sheet{sh})
}
