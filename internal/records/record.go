// Package records persists completed extractions and retrieves a
// requester's history from DefraDB.
package records

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/scrapetab/scrapetab/internal/extract"
)

// Record is one stored extraction.
type Record struct {
	// DocID is the DefraDB document ID, set on reads.
	DocID string `json:"docID,omitempty"`

	Requester       string        `json:"requester"`
	FieldsRequested []string      `json:"fields_requested"`
	Rows            []extract.Row `json:"rows"`
	ModelRaw        string        `json:"model_raw"`
	Diagnostic      string        `json:"diagnostic,omitempty"`
	Provider        string        `json:"provider,omitempty"`
	Model           string        `json:"model,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// FromResult builds a Record from an extraction result.
func FromResult(requester string, fields []string, result *extract.Result) *Record {
	return &Record{
		Requester:       requester,
		FieldsRequested: fields,
		Rows:            result.Rows,
		ModelRaw:        result.RawModelText,
		Diagnostic:      result.Diagnostic,
		Provider:        result.Provider,
		Model:           result.Model,
		CreatedAt:       time.Now().UTC(),
	}
}

// ToMap converts the Record to a map for DefraDB insertion. Rows are
// serialized to a JSON string since DefraDB has no nested-object field
// for arbitrary keys.
func (r *Record) ToMap(logger *slog.Logger) map[string]any {
	rows := r.Rows
	if rows == nil {
		rows = []extract.Row{}
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("failed to serialize rows for extraction record", "error", err)
		rowsJSON = []byte("[]")
	}

	fields := r.FieldsRequested
	if fields == nil {
		fields = []string{}
	}

	m := map[string]any{
		"requester":        r.Requester,
		"fields_requested": fields,
		"rows":             string(rowsJSON),
		"model_raw":        r.ModelRaw,
		"row_count":        len(rows),
		"created_at":       r.CreatedAt.Format(time.RFC3339),
	}

	if r.Diagnostic != "" {
		m["diagnostic"] = r.Diagnostic
	}
	if r.Provider != "" {
		m["provider"] = r.Provider
	}
	if r.Model != "" {
		m["model"] = r.Model
	}

	return m
}
