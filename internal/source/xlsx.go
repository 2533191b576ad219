package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// XLSXFile reads one worksheet of an Excel workbook.
type XLSXFile struct {
	Path  string
	Sheet string
}

// Records implements RecordSource.
func (f *XLSXFile) Records(ctx context.Context) (*Dataset, error) {
	book, err := excelize.OpenFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer book.Close()

	sheet := f.Sheet
	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("xlsx %s has no sheets", f.Path)
		}
		sheet = sheets[0]
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// raw values keep date-typed cells as serial numbers instead of m/d/yy
	rows, err := book.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	ds, err := normalize(rows, excelDate)
	if err != nil {
		return nil, fmt.Errorf("read xlsx %s: %w", f.Path, err)
	}
	return ds, nil
}

// excelDate renders a serial date cell as YYYY-MM-DD. Text cells pass through.
func excelDate(cell string) string {
	cell = strings.TrimSpace(cell)
	serial, err := strconv.ParseFloat(cell, 64)
	if err != nil || serial <= 0 {
		return cell
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return cell
	}
	return t.Format(time.DateOnly)
}

var _ RecordSource = (*XLSXFile)(nil)
var _ RecordSource = (*CSVFile)(nil)
