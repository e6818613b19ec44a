package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// WriteJSON replaces filePath atomically with the indented JSON encoding of v.
func (w *CSVWriter) WriteJSON(ctx context.Context, filePath string, v any) (FileResult, error) {
	out, err := createAtomic(w.resolvePath(filePath))
	if err != nil {
		return FileResult{}, err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		out.Abort()
		return FileResult{}, fmt.Errorf("failed to encode JSON: %w", err)
	}

	result, err := out.Commit()
	if err != nil {
		return FileResult{}, err
	}

	w.logger.DebugContext(ctx, "JSON file written",
		slog.String("path", result.Path),
		slog.Int64("bytes", result.Bytes))
	return result, nil
}
