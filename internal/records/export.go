package records

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// WriteCSV writes a requester's extraction history as CSV. The column
// set is the ordered union of every record's requested fields (first
// seen wins), prefixed with an extracted_at column. Rows from records
// that never requested a column get "" there.
func WriteCSV(w io.Writer, recs []Record) error {
	columns := unionFields(recs)
	header := append([]string{"extracted_at"}, columns...)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, rec := range recs {
		stamp := ""
		if !rec.CreatedAt.IsZero() {
			stamp = rec.CreatedAt.Format(time.RFC3339)
		}
		for _, row := range rec.Rows {
			line := make([]string, 0, len(header))
			line = append(line, stamp)
			for _, col := range columns {
				line = append(line, row[col])
			}
			if err := cw.Write(line); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// unionFields returns the ordered union of requested fields across
// records, preserving first-seen order.
func unionFields(recs []Record) []string {
	var columns []string
	seen := make(map[string]bool)
	for _, rec := range recs {
		for _, f := range rec.FieldsRequested {
			if !seen[f] {
				seen[f] = true
				columns = append(columns, f)
			}
		}
	}
	return columns
}
