// Package ingest parses uploaded CSV into the tabular shape the mapper
// consumes, so CSV and JSON inputs take the same path.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"fleetroute/internal/model"
)

// ParseTable reads CSV with the first record as headers. Ragged rows are
// tolerated; the mapper treats short rows as missing fields.
func ParseTable(r io.Reader) (model.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return model.Table{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return model.Table{}, nil
	}
	t := model.Table{Headers: make([]string, len(records[0]))}
	for i, h := range records[0] {
		t.Headers[i] = strings.TrimSpace(h)
	}
	for _, rec := range records[1:] {
		row := make([]any, len(rec))
		for i, c := range rec {
			row[i] = c
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
