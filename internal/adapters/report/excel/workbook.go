// Package excel は在庫・コンプライアンス帳票を xlsx に書き出します。
package excel

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ContentType は xlsx のメディアタイプです。
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const defaultSheet = "Sheet1"

type column struct {
	header string
	width  float64
}

type sheet struct {
	name    string
	columns []column
	rows    [][]interface{}
}

// render はシートを順に書き込み、ブックをバイト列で返します。
// 先頭シートは既定の Sheet1 を改名して使います。
func render(sheets []sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F4E78"}},
	})
	if err != nil {
		return nil, fmt.Errorf("excel: header style: %w", err)
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sh.name); err != nil {
				return nil, fmt.Errorf("excel: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return nil, fmt.Errorf("excel: new sheet %s: %w", sh.name, err)
		}
		if err := writeSheet(f, sh, headerStyle); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("excel: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sh sheet, headerStyle int) error {
	sw, err := f.NewStreamWriter(sh.name)
	if err != nil {
		return fmt.Errorf("excel: stream writer %s: %w", sh.name, err)
	}

	header := make([]interface{}, len(sh.columns))
	for i, col := range sh.columns {
		header[i] = col.header
		if col.width > 0 {
			if err := sw.SetColWidth(i+1, i+1, col.width); err != nil {
				return fmt.Errorf("excel: column width: %w", err)
			}
		}
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return fmt.Errorf("excel: header row: %w", err)
	}

	for i, row := range sh.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("excel: cell name: %w", err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("excel: row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("excel: flush %s: %w", sh.name, err)
	}
	return nil
}

func yesNo(v bool) string {
	if v {
		return "Sim"
	}
	return "Não"
}
