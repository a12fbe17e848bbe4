package xray

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/robotomize/go-testrail-xray/internal/interchange"
)

// WriteCSV writes a header of the selected columns followed by one record per row.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	record := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		record[i] = string(col)
	}

	if err := cw.Write(record); err != nil {
		return fmt.Errorf("csv.Writer.Write: %w", err)
	}

	for _, row := range t.Rows {
		for i, col := range t.Columns {
			record[i] = row.Value(col)
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("csv.Writer.Write: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv.Writer.Flush: %w", err)
	}

	return nil
}

// Convert reads an interchange document from r and writes its flat table to w.
func Convert(r io.Reader, w io.Writer, opts ...Option) (*Table, error) {
	doc, err := interchange.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("interchange.Decode: %w", err)
	}

	t, err := Flatten(doc, opts...)
	if err != nil {
		return nil, err
	}

	if err := WriteCSV(w, t); err != nil {
		return nil, err
	}

	return t, nil
}
