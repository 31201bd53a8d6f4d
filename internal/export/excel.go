// Package export renders bookings as Excel workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// SheetWriter builds a workbook one row at a time.
type SheetWriter interface {
	AddSheet(name string) error
	WriteHeader(columns []string) error
	WriteRow(row []interface{}) error
	Save(w io.Writer) error
	Close() error
}

// ExcelizeWriter writes rows into sheets of an in-memory workbook.
type ExcelizeWriter struct {
	file        *excelize.File
	sheet       string
	row         int
	widths      map[int]int
	headerStyle int
}

func NewExcelizeWriter() *ExcelizeWriter {
	return &ExcelizeWriter{file: excelize.NewFile()}
}

// AddSheet starts a new sheet and makes it current. The first call renames
// the workbook's default sheet.
func (w *ExcelizeWriter) AddSheet(name string) error {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}

	if w.sheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.flushWidths()
	w.sheet = name
	w.row = 1
	w.widths = make(map[int]int)
	return nil
}

// WriteHeader writes a bold header row and freezes it.
func (w *ExcelizeWriter) WriteHeader(columns []string) error {
	values := make([]interface{}, len(columns))
	for i, c := range columns {
		values[i] = c
	}
	headerRow := w.row
	if err := w.WriteRow(values); err != nil {
		return err
	}

	if w.headerStyle == 0 {
		style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		w.headerStyle = style
	}
	first, _ := excelize.CoordinatesToCellName(1, headerRow)
	last, _ := excelize.CoordinatesToCellName(len(columns), headerRow)
	if err := w.file.SetCellStyle(w.sheet, first, last, w.headerStyle); err != nil {
		return err
	}

	return w.file.SetPanes(w.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: fmt.Sprintf("A%d", headerRow+1),
		ActivePane:  "bottomLeft",
	})
}

func (w *ExcelizeWriter) WriteRow(row []interface{}) error {
	if w.sheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.sheet, cell, val); err != nil {
			return err
		}
		if n := len(fmt.Sprint(val)); n > w.widths[i+1] {
			w.widths[i+1] = n
		}
	}

	w.row++
	return nil
}

func (w *ExcelizeWriter) flushWidths() {
	if w.sheet == "" {
		return
	}
	for col, n := range w.widths {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			continue
		}
		_ = w.file.SetColWidth(w.sheet, name, name, float64(n+2))
	}
}

func (w *ExcelizeWriter) Save(wr io.Writer) error {
	w.flushWidths()
	return w.file.Write(wr)
}

func (w *ExcelizeWriter) Close() error {
	return w.file.Close()
}
