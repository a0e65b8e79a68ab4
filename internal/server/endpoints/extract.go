package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/scrapetab/scrapetab/internal/api"
	"github.com/scrapetab/scrapetab/internal/extract"
	"github.com/scrapetab/scrapetab/internal/identity"
	"github.com/scrapetab/scrapetab/internal/records"
	"github.com/scrapetab/scrapetab/internal/svcctx"
)

// ExtractRequest is the request body for running an extraction.
// UserID and Email are identity claims; which one counts depends on the
// configured identity strategy.
type ExtractRequest struct {
	UserID     string   `json:"userId,omitempty"`
	Email      string   `json:"email,omitempty"`
	Fields     []string `json:"fields"`
	RawContent string   `json:"rawContent"`
}

// ExtractResponse is the response for a completed extraction.
type ExtractResponse struct {
	Status          string        `json:"status"`
	UserID          string        `json:"userId"`
	FieldsRequested []string      `json:"fields_requested"`
	Rows            []extract.Row `json:"rows"`
	Diagnostic      string        `json:"diagnostic,omitempty"`
	DocID           string        `json:"doc_id,omitempty"`
	Timestamp       string        `json:"timestamp"`
}

// ExtractEndpoint handles POST /api/extract.
type ExtractEndpoint struct{}

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/extract", e.handler
}

func (e *ExtractEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Run an extraction
//	@Description	Extract structured rows for the requested fields from raw page text
//	@Tags			extract
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ExtractRequest	true	"Extraction request"
//	@Success		200		{object}	ExtractResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/extract [post]
func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.RawContent == "" {
		writeError(w, http.StatusBadRequest, "rawContent is required")
		return
	}
	if len(req.Fields) == 0 {
		writeError(w, http.StatusBadRequest, "fields is required")
		return
	}

	resolver := svcctx.IdentityFrom(r.Context())
	if resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "identity resolver not initialized")
		return
	}

	requester, err := resolver.Resolve(r.Context(), identity.Claim{
		BearerToken: bearerToken(r),
		Email:       req.Email,
		ProvidedID:  req.UserID,
	})
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	extractor := svcctx.ExtractorFrom(r.Context())
	if extractor == nil {
		writeError(w, http.StatusServiceUnavailable, "extractor not initialized")
		return
	}

	result := extractor.Extract(r.Context(), extract.Request{
		Fields:     req.Fields,
		RawContent: req.RawContent,
		Requester:  requester,
	})

	rec := records.FromResult(requester, req.Fields, &result)

	var docID string
	if store := svcctx.RecordsFrom(r.Context()); store != nil {
		docID, err = store.Save(r.Context(), rec)
		if err != nil {
			// The rows are already extracted; losing the audit record
			// should not fail the request.
			if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
				logger.Error("failed to persist extraction", "requester", requester, "error", err)
			}
		}
	}

	status := "success"
	if len(result.Rows) == 0 {
		status = "no_rows"
	}

	writeJSON(w, http.StatusOK, ExtractResponse{
		Status:          status,
		UserID:          requester,
		FieldsRequested: req.Fields,
		Rows:            result.Rows,
		Diagnostic:      result.Diagnostic,
		DocID:           docID,
		Timestamp:       rec.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		userID  string
		email   string
		fields  []string
		content string
		file    string
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract structured rows from raw text",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := content
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				raw = string(data)
			}
			if raw == "" {
				return fmt.Errorf("--content or --file is required")
			}

			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp ExtractResponse
			req := ExtractRequest{
				UserID:     userID,
				Email:      email,
				Fields:     fields,
				RawContent: raw,
			}
			if err := client.Post(ctx, "/api/extract", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Requester ID to attribute the extraction to")
	cmd.Flags().StringVar(&email, "email", "", "Requester email claim")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "Field names to extract (comma-separated)")
	cmd.Flags().StringVar(&content, "content", "", "Raw text to extract from")
	cmd.Flags().StringVar(&file, "file", "", "Read raw text from a file")
	return cmd
}

// bearerToken pulls the token out of an Authorization header, if any.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	const prefix = "Bearer "
	if strings.HasPrefix(auth, prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return strings.TrimSpace(auth)
}
