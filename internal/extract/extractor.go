package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/scrapetab/scrapetab/internal/providers"
)

// CallRecorder receives the raw completion result for asynchronous audit.
// Implementations must not block.
type CallRecorder interface {
	Record(*providers.ChatResult)
}

// Extractor runs the full pipeline: prompt build, completion call,
// normalization, row fill. It holds no mutable state and is safe for
// concurrent use.
type Extractor struct {
	client       providers.LLMClient
	model        string
	timeout      time.Duration
	strictSchema bool
	recorder     CallRecorder
	logger       *slog.Logger
}

// Config holds Extractor construction parameters.
type Config struct {
	// Client is the completion endpoint adapter (required).
	Client providers.LLMClient
	// Model overrides the client's default model when set.
	Model string
	// Timeout bounds the completion call (default 60s).
	Timeout time.Duration
	// StrictSchema asks the provider for schema-constrained output and
	// validates the normalized rows locally.
	StrictSchema bool
	// Recorder, when set, receives every completion result for audit.
	Recorder CallRecorder
	Logger   *slog.Logger
}

// New creates an Extractor.
func New(cfg Config) *Extractor {
	if cfg.Timeout == 0 {
		cfg.Timeout = providers.DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Extractor{
		client:       cfg.Client,
		model:        cfg.Model,
		timeout:      cfg.Timeout,
		strictSchema: cfg.StrictSchema,
		recorder:     cfg.Recorder,
		logger:       cfg.Logger,
	}
}

// Extract runs one extraction. It never returns an error for the expected
// degraded conditions: endpoint failures and malformed model output both
// produce a Result with empty Rows and a Diagnostic string.
func (e *Extractor) Extract(ctx context.Context, req Request) Result {
	messages := BuildMessages(req.Fields, req.RawContent)

	chatReq := &providers.ChatRequest{
		Messages: messages,
		Model:    e.model,
		Timeout:  e.timeout,
	}
	if e.strictSchema {
		if rf, err := providers.WrapSchemaForResponseFormat("extraction_rows", RowsSchema(req.Fields)); err == nil {
			chatReq.ResponseFormat = rf
		}
	}

	chatRes, err := e.client.Chat(ctx, chatReq)
	if e.recorder != nil {
		e.recorder.Record(chatRes)
	}

	out := Result{Rows: []Row{}}
	if chatRes != nil {
		out.Provider = chatRes.Provider
		out.Model = chatRes.ModelUsed
		out.RequestID = chatRes.RequestID
		out.PromptTokens = chatRes.PromptTokens
		out.CompletionTokens = chatRes.CompletionTokens
		out.LatencyMs = int(chatRes.ExecutionTime.Milliseconds())
	}

	if err != nil || chatRes == nil || !chatRes.Success {
		out.Diagnostic = diagnosticFor(chatRes, err)
		e.logger.Warn("completion call failed",
			"requester", req.Requester,
			"diagnostic", out.Diagnostic)
		return out
	}

	out.RawModelText = chatRes.Content
	out.Rows = FillMissing(req.Fields, Normalize(chatRes.Content))
	if len(out.Rows) == 0 {
		out.Diagnostic = "no rows recognized in model output"
	}

	if e.strictSchema && len(out.Rows) > 0 {
		if err := e.validateRows(req.Fields, out.Rows); err != nil {
			// Validation failures are advisory: the rows are already
			// normalized and filled, so we keep them.
			e.logger.Warn("extracted rows failed schema validation", "error", err)
		}
	}

	return out
}

// FillMissing guarantees the row invariant: every requested field is
// present in every row, empty string when the model omitted it.
func FillMissing(fields []string, rows []Row) []Row {
	for _, row := range rows {
		for _, f := range fields {
			if _, ok := row[f]; !ok {
				row[f] = ""
			}
		}
	}
	return rows
}

func (e *Extractor) validateRows(fields []string, rows []Row) error {
	doc, err := json.Marshal(map[string]any{"rows": rows})
	if err != nil {
		return err
	}
	return providers.ValidateAgainstSchema(RowsSchema(fields), doc)
}

// diagnosticFor renders a human-readable failure description from whatever
// the adapter produced.
func diagnosticFor(res *providers.ChatResult, err error) string {
	if res != nil && res.ErrorMessage != "" {
		return "Error: " + res.ErrorMessage
	}
	if err != nil {
		return "Error: " + err.Error()
	}
	return "Error: completion call failed"
}
