package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVFile reads a comma separated export with a header row.
type CSVFile struct {
	Path string
}

// Records implements RecordSource.
func (f *CSVFile) Records(ctx context.Context) (*Dataset, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	ds, err := ReadCSV(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", f.Path, err)
	}
	return ds, nil
}

// ReadCSV normalizes CSV content from r.
func ReadCSV(ctx context.Context, r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = trimBOM(rows[0][0])
	}
	return normalize(rows, nil)
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
