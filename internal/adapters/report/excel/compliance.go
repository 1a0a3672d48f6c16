package excel

import (
	"math"
	"strings"

	"github.com/ogurasousui/stockly/internal/core/compliance"
)

// Compliance は社員ごとの判定シートと集計シートを持つブックを作ります。
func Compliance(report *compliance.Report) ([]byte, error) {
	if report == nil {
		report = &compliance.Report{}
	}

	employees := sheet{
		name: "Colaboradores",
		columns: []column{
			{header: "Nome", width: 32},
			{header: "Departamento", width: 20},
			{header: "Cargo", width: 20},
			{header: "EPIs exigidos", width: 30},
			{header: "EPIs entregues", width: 30},
			{header: "Faltantes", width: 30},
			{header: "Vencidos", width: 30},
			{header: "Conforme", width: 10},
			{header: "Conformidade (%)", width: 16},
		},
	}
	for _, st := range report.Statuses {
		employees.rows = append(employees.rows, []interface{}{
			st.EmployeeName,
			st.Department,
			st.Position,
			strings.Join(st.RequiredCategories, ", "),
			strings.Join(st.DeliveredCategories, ", "),
			strings.Join(st.MissingCategories, ", "),
			strings.Join(st.ExpiredCategories, ", "),
			yesNo(st.Compliant),
			round2(st.ComplianceRate),
		})
	}

	s := report.Summary
	summary := sheet{
		name:    "Resumo",
		columns: []column{{header: "Indicador", width: 36}, {header: "Valor", width: 18}},
		rows: [][]interface{}{
			{"Avaliado em", report.EvaluatedAt.UTC().Format("02/01/2006 15:04")},
			{"Colaboradores ativos", s.TotalEmployees},
			{"Conformes", s.CompliantEmployees},
			{"Não conformes", s.NonCompliantEmployees},
			{"Com EPIs faltantes", s.EmployeesWithMissing},
			{"Com EPIs vencidos", s.EmployeesWithExpired},
			{"Conformidade geral (%)", round2(s.OverallComplianceRate)},
		},
	}

	return render([]sheet{employees, summary})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
