package records

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/scrapetab/scrapetab/internal/defra"
	"github.com/scrapetab/scrapetab/internal/extract"
)

// Collection is the DefraDB collection extraction records live in.
const Collection = "Extraction"

// recordFields are the fields fetched on reads.
const recordFields = "_docID requester fields_requested rows model_raw diagnostic provider model created_at"

// Store provides access to extraction records in DefraDB.
type Store struct {
	client *defra.Client
	logger *slog.Logger
}

// NewStore creates a new extraction record store.
func NewStore(client *defra.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, logger: logger}
}

// Save persists a record and returns its document ID.
func (s *Store) Save(ctx context.Context, rec *Record) (string, error) {
	docID, err := s.client.Create(ctx, Collection, rec.ToMap(s.logger))
	if err != nil {
		return "", fmt.Errorf("failed to save extraction: %w", err)
	}
	rec.DocID = docID
	return docID, nil
}

// ListByRequester returns a requester's extractions, newest first.
// Requester may be an opaque id or an email-like string; both are
// matched exactly. A limit of 0 means no limit.
func (s *Store) ListByRequester(ctx context.Context, requester string, limit, offset int) ([]Record, error) {
	qb := defra.NewQuery(Collection).
		Filter("requester", requester).
		Fields(recordFields).
		OrderBy("created_at", "DESC")
	if limit > 0 {
		qb.Limit(limit)
	}
	if offset > 0 {
		qb.Offset(offset)
	}

	resp, err := qb.Execute(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("graphql error: %s", errMsg)
	}

	return s.parseRecords(resp.Data)
}

// Get retrieves a single record by document ID. Returns nil when the
// record does not exist.
func (s *Store) Get(ctx context.Context, docID string) (*Record, error) {
	if err := defra.ValidateID(docID); err != nil {
		return nil, fmt.Errorf("invalid document id: %w", err)
	}

	resp, err := defra.NewQuery(Collection).
		Filter("_docID", docID).
		Fields(recordFields).
		Execute(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("graphql error: %s", errMsg)
	}

	recs, err := s.parseRecords(resp.Data)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// parseRecords parses Extraction entries from GraphQL response data.
func (s *Store) parseRecords(data map[string]any) ([]Record, error) {
	raw, ok := data[Collection]
	if !ok {
		return nil, nil
	}

	docs, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected %s type: %T", Collection, raw)
	}

	recs := make([]Record, 0, len(docs))
	for _, d := range docs {
		doc, ok := d.(map[string]any)
		if !ok {
			continue
		}

		rec := Record{}
		if v, ok := doc["_docID"].(string); ok {
			rec.DocID = v
		}
		if v, ok := doc["requester"].(string); ok {
			rec.Requester = v
		}
		if v, ok := doc["fields_requested"].([]any); ok {
			for _, f := range v {
				if name, ok := f.(string); ok {
					rec.FieldsRequested = append(rec.FieldsRequested, name)
				}
			}
		}
		if v, ok := doc["rows"].(string); ok {
			var rows []extract.Row
			if err := json.Unmarshal([]byte(v), &rows); err != nil {
				s.logger.Warn("stored rows are not valid JSON", "docID", rec.DocID, "error", err)
			} else {
				rec.Rows = rows
			}
		}
		if rec.Rows == nil {
			rec.Rows = []extract.Row{}
		}
		if v, ok := doc["model_raw"].(string); ok {
			rec.ModelRaw = v
		}
		if v, ok := doc["diagnostic"].(string); ok {
			rec.Diagnostic = v
		}
		if v, ok := doc["provider"].(string); ok {
			rec.Provider = v
		}
		if v, ok := doc["model"].(string); ok {
			rec.Model = v
		}
		if v, ok := doc["created_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				rec.CreatedAt = t
			}
		}

		recs = append(recs, rec)
	}

	return recs, nil
}
