package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scrapetab/scrapetab/internal/defra"
)

// Initialize applies all schemas to DefraDB. Safe to call repeatedly;
// collections that already exist are skipped.
func Initialize(ctx context.Context, client *defra.Client, logger *slog.Logger) error {
	for _, s := range All() {
		if err := applySchema(ctx, client, s, logger); err != nil {
			return err
		}
	}
	return nil
}

func applySchema(ctx context.Context, client *defra.Client, s Schema, logger *slog.Logger) error {
	err := client.AddSchema(ctx, s.SDL)
	if err != nil {
		if isAlreadyExistsError(err) {
			logger.Info("schema already exists", "name", s.Name)
			return nil
		}
		return fmt.Errorf("failed to add schema %s: %w", s.Name, err)
	}

	logger.Info("schema added", "name", s.Name)
	return nil
}

// isAlreadyExistsError checks if the error indicates the collection
// already exists. DefraDB is accessed over HTTP, so errors are parsed
// from response bodies; string matching is unavoidable here.
func isAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "collection already exists") ||
		strings.Contains(msg, "already exists")
}
