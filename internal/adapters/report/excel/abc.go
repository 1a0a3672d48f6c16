package excel

import (
	"github.com/ogurasousui/stockly/internal/core/analytics"
)

// ABC は ABC 分析の明細シートと区分集計シートを持つブックを作ります。
func ABC(result *analytics.ABCResult) ([]byte, error) {
	if result == nil {
		result = &analytics.ABCResult{}
	}

	items := sheet{
		name: "Curva ABC",
		columns: []column{
			{header: "Classe", width: 8},
			{header: "SKU", width: 16},
			{header: "Produto", width: 36},
			{header: "Quantidade", width: 14},
			{header: "Valor consumido", width: 16},
			{header: "Participação (%)", width: 16},
			{header: "Acumulado (%)", width: 16},
		},
	}
	for _, it := range result.Items {
		items.rows = append(items.rows, []interface{}{
			string(it.Class),
			it.SKU,
			it.Name,
			it.Quantity.InexactFloat64(),
			it.Value.Round(2).InexactFloat64(),
			round2(it.Share),
			round2(it.CumulativeShare),
		})
	}

	classes := sheet{
		name: "Classes",
		columns: []column{
			{header: "Classe", width: 8},
			{header: "Itens", width: 10},
			{header: "Valor", width: 16},
			{header: "Participação (%)", width: 16},
		},
	}
	for _, c := range result.Classes {
		classes.rows = append(classes.rows, []interface{}{
			string(c.Class),
			c.Count,
			c.Value.Round(2).InexactFloat64(),
			round2(c.Share),
		})
	}
	classes.rows = append(classes.rows, []interface{}{"Total", len(result.Items), result.TotalValue.Round(2).InexactFloat64(), nil})

	return render([]sheet{items, classes})
}
