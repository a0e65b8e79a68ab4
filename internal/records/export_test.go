package records

import (
	"strings"
	"testing"
	"time"

	"github.com/scrapetab/scrapetab/internal/extract"
)

func TestWriteCSV(t *testing.T) {
	recs := []Record{
		{
			FieldsRequested: []string{"name", "price"},
			Rows: []extract.Row{
				{"name": "Widget", "price": "19.99"},
				{"name": "Gadget", "price": ""},
			},
			CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			FieldsRequested: []string{"name", "sku"},
			Rows: []extract.Row{
				{"name": "Sprocket", "sku": "S-1"},
			},
			CreatedAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		},
	}

	var buf strings.Builder
	if err := WriteCSV(&buf, recs); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}

	// Union of columns in first-seen order.
	if lines[0] != "extracted_at,name,price,sku" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "2026-03-01T12:00:00Z,Widget,19.99," {
		t.Errorf("row 1 = %q", lines[1])
	}
	// A column the record never requested stays empty.
	if lines[3] != "2026-03-02T12:00:00Z,Sprocket,,S-1" {
		t.Errorf("row 3 = %q", lines[3])
	}
}

func TestWriteCSVEmptyHistory(t *testing.T) {
	var buf strings.Builder
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "extracted_at" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWriteCSVEscaping(t *testing.T) {
	recs := []Record{
		{
			FieldsRequested: []string{"quote"},
			Rows:            []extract.Row{{"quote": `he said "hi", then left`}},
			CreatedAt:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	var buf strings.Builder
	if err := WriteCSV(&buf, recs); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"he said ""hi"", then left"`) {
		t.Errorf("value not CSV-escaped: %q", buf.String())
	}
}
