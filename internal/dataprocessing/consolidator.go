package dataprocessing

import (
	"context"
	"log/slog"
)

// SourceSummary describes one source's contribution to the consolidated table.
type SourceSummary struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	// MissingColumns lists union columns this source lacked; its rows hold
	// nulls there.
	MissingColumns []string `json:"missing_columns,omitempty"`
}

// Consolidator concatenates per-source tables under the union of their
// columns.
type Consolidator struct {
	logger *slog.Logger
}

// NewConsolidator creates a consolidator
func NewConsolidator(logger *slog.Logger) *Consolidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consolidator{logger: logger.With(slog.String("component", "consolidator"))}
}

// Consolidate appends the rows of every source, in source order and file
// order within a source. The column set is the union of all source columns
// in order of first appearance; a row whose source lacks a column gets a
// null there. Nothing is dropped or deduplicated.
func (c *Consolidator) Consolidate(ctx context.Context, sources []SourceTable) (*Table, []SourceSummary, error) {
	var columns []string
	seen := make(map[string]bool)
	total := 0
	for _, st := range sources {
		for _, name := range st.Table.columns {
			if !seen[name] {
				seen[name] = true
				columns = append(columns, name)
			}
		}
		total += st.Table.Len()
	}

	out, err := NewTable(columns)
	if err != nil {
		return nil, nil, err
	}
	out.rows = make([][]Cell, 0, total)

	summaries := make([]SourceSummary, 0, len(sources))
	for _, st := range sources {
		// positions[j] is where source column j lands in the union.
		positions := make([]int, st.Table.Width())
		for j, name := range st.Table.columns {
			positions[j] = out.index[name]
		}

		for _, src := range st.Table.rows {
			row := make([]Cell, len(columns))
			for j, cell := range src {
				row[positions[j]] = cell
			}
			out.rows = append(out.rows, row)
		}

		summary := SourceSummary{
			ID:      st.Source.ID,
			Path:    st.Source.Path,
			Rows:    st.Table.Len(),
			Columns: st.Table.Width(),
		}
		for _, name := range columns {
			if !st.Table.Has(name) {
				summary.MissingColumns = append(summary.MissingColumns, name)
			}
		}
		if len(summary.MissingColumns) > 0 {
			c.logger.WarnContext(ctx, "Source lacks columns present in other sources",
				slog.String("source", summary.ID),
				slog.Any("missing_columns", summary.MissingColumns))
		}
		summaries = append(summaries, summary)
	}

	c.logger.InfoContext(ctx, "Sources consolidated",
		slog.Int("sources", len(sources)),
		slog.Int("rows", out.Len()),
		slog.Int("columns", out.Width()))

	return out, summaries, nil
}
