package endpoints

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/scrapetab/scrapetab/internal/api"
	"github.com/scrapetab/scrapetab/internal/records"
	"github.com/scrapetab/scrapetab/internal/svcctx"
)

// defaultHistoryLimit bounds history queries when no limit is given.
const defaultHistoryLimit = 100

// ExtractionsResponse is the response for listing a requester's history.
type ExtractionsResponse struct {
	Status  string           `json:"status"`
	UserID  string           `json:"userId"`
	Count   int              `json:"count"`
	Records []records.Record `json:"records"`
}

// ListExtractionsEndpoint handles GET /api/extractions/{requester}.
type ListExtractionsEndpoint struct{}

func (e *ListExtractionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/extractions/{requester}", e.handler
}

func (e *ListExtractionsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List extractions
//	@Description	List stored extractions for a requester, newest first
//	@Tags			extractions
//	@Produce		json
//	@Param			requester	path		string	true	"Requester ID or email"
//	@Param			limit		query		int		false	"Maximum records to return"
//	@Param			offset		query		int		false	"Records to skip"
//	@Success		200	{object}	ExtractionsResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/extractions/{requester} [get]
func (e *ListExtractionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	requester := r.PathValue("requester")
	if requester == "" {
		writeError(w, http.StatusBadRequest, "requester is required")
		return
	}

	limit := queryInt(r, "limit", defaultHistoryLimit)
	offset := queryInt(r, "offset", 0)

	store := svcctx.RecordsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "record store not initialized")
		return
	}

	recs, err := store.ListByRequester(r.Context(), requester, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ExtractionsResponse{
		Status:  "success",
		UserID:  requester,
		Count:   len(recs),
		Records: recs,
	})
}

func (e *ListExtractionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		limit  int
		offset int
	)
	cmd := &cobra.Command{
		Use:   "list <requester>",
		Short: "List stored extractions for a requester",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			path := fmt.Sprintf("/api/extractions/%s?limit=%d&offset=%d", args[0], limit, offset)
			var resp ExtractionsResponse
			if err := client.Get(ctx, path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "Maximum records to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Records to skip")
	return cmd
}

// GetExtractionEndpoint handles GET /api/extraction/{docID}.
type GetExtractionEndpoint struct{}

func (e *GetExtractionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/extraction/{docID}", e.handler
}

func (e *GetExtractionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get an extraction
//	@Description	Fetch one stored extraction by document ID
//	@Tags			extractions
//	@Produce		json
//	@Param			docID	path		string	true	"Document ID"
//	@Success		200		{object}	records.Record
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/extraction/{docID} [get]
func (e *GetExtractionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("docID")

	store := svcctx.RecordsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "record store not initialized")
		return
	}

	rec, err := store.Get(r.Context(), docID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "extraction not found")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (e *GetExtractionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <docID>",
		Short: "Get one stored extraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var rec records.Record
			if err := client.Get(ctx, "/api/extraction/"+args[0], &rec); err != nil {
				return err
			}
			return api.Output(rec)
		},
	}
}

// ExportExtractionsEndpoint handles GET /api/extractions/{requester}/export.
type ExportExtractionsEndpoint struct{}

func (e *ExportExtractionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/extractions/{requester}/export", e.handler
}

func (e *ExportExtractionsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Export extractions as CSV
//	@Description	Export a requester's extraction history as a CSV table
//	@Tags			extractions
//	@Produce		text/csv
//	@Param			requester	path		string	true	"Requester ID or email"
//	@Param			limit		query		int		false	"Maximum records to export"
//	@Success		200	{string}	string	"CSV content"
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/extractions/{requester}/export [get]
func (e *ExportExtractionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	requester := r.PathValue("requester")
	if requester == "" {
		writeError(w, http.StatusBadRequest, "requester is required")
		return
	}

	limit := queryInt(r, "limit", defaultHistoryLimit)

	store := svcctx.RecordsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "record store not initialized")
		return
	}

	recs, err := store.ListByRequester(r.Context(), requester, limit, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", requester+"-extractions.csv"))
	if err := records.WriteCSV(w, recs); err != nil {
		if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
			logger.Error("csv export failed", "requester", requester, "error", err)
		}
	}
}

func (e *ExportExtractionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		limit int
		file  string
	)
	cmd := &cobra.Command{
		Use:   "export <requester>",
		Short: "Export a requester's extractions as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			path := fmt.Sprintf("/api/extractions/%s/export?limit=%d", args[0], limit)
			data, err := client.GetRaw(ctx, path)
			if err != nil {
				return err
			}
			if file != "" {
				return os.WriteFile(file, data, 0o644)
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "Maximum records to export")
	cmd.Flags().StringVar(&file, "file", "", "Write CSV to a file instead of stdout")
	return cmd
}

// queryInt parses an integer query parameter with a fallback.
func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
