// Package xlsx builds simple styled workbooks for downloads.
package xlsx

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of an .xlsx file.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook wraps an excelize file with a shared header style.
type Workbook struct {
	f           *excelize.File
	headerStyle int
	sheets      int
}

// New creates an empty workbook.
func New() (*Workbook, error) {
	f := excelize.NewFile()
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#0056A4"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	return &Workbook{f: f, headerStyle: style}, nil
}

func (w *Workbook) sheet(name string) error {
	if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	if w.sheets == 0 {
		if name != "Sheet1" {
			if err := w.f.DeleteSheet("Sheet1"); err != nil {
				return fmt.Errorf("delete default sheet: %w", err)
			}
		}
		idx, err := w.f.GetSheetIndex(name)
		if err != nil {
			return err
		}
		w.f.SetActiveSheet(idx)
	}
	w.sheets++
	return nil
}

// AddTable writes a header row followed by rows. widths is optional per column.
func (w *Workbook) AddTable(name string, headers []string, widths []float64, rows [][]interface{}) error {
	if err := w.sheet(name); err != nil {
		return err
	}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := w.f.SetCellValue(name, cell, h); err != nil {
			return fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := w.f.SetCellStyle(name, cell, cell, w.headerStyle); err != nil {
			return fmt.Errorf("set header style: %w", err)
		}
	}
	for i, width := range widths {
		if width <= 0 || i >= len(headers) {
			continue
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := w.f.SetColWidth(name, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := w.f.SetCellValue(name, cell, v); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}
	return nil
}

// AddFields writes a two-column label/value sheet.
func (w *Workbook) AddFields(name string, fields [][2]interface{}) error {
	rows := make([][]interface{}, len(fields))
	for i, f := range fields {
		rows[i] = []interface{}{f[0], f[1]}
	}
	return w.AddTable(name, []string{"Field", "Value"}, []float64{32, 48}, rows)
}

// Bytes serializes and closes the workbook.
func (w *Workbook) Bytes() ([]byte, error) {
	defer w.f.Close()
	var buf bytes.Buffer
	if _, err := w.f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Close releases the workbook without writing it.
func (w *Workbook) Close() error {
	return w.f.Close()
}
