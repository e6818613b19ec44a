package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"acidentes/internal/dataprocessing"
)

// ReportWriter writes the frequency tables to an xlsx workbook, one sheet per
// table in the given order.
type ReportWriter struct {
	csv *CSVWriter
}

// NewReportWriter creates a report writer resolving paths like w.
func NewReportWriter(w *CSVWriter) *ReportWriter {
	return &ReportWriter{csv: w}
}

// WriteReport replaces filePath atomically with a workbook holding tables.
func (r *ReportWriter) WriteReport(ctx context.Context, filePath string, tables []*dataprocessing.FrequencyTable) (FileResult, error) {
	if len(tables) == 0 {
		return FileResult{}, fmt.Errorf("no frequency tables to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return FileResult{}, fmt.Errorf("failed to create header style: %w", err)
	}

	defaultSheet := f.GetSheetName(0)
	used := make(map[string]bool, len(tables))
	for i, table := range tables {
		if err := ctx.Err(); err != nil {
			return FileResult{}, err
		}

		name := sheetName(table.Name)
		if used[name] {
			return FileResult{}, fmt.Errorf("duplicate sheet name %q", name)
		}
		used[name] = true

		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return FileResult{}, fmt.Errorf("failed to name sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return FileResult{}, fmt.Errorf("failed to add sheet %q: %w", name, err)
		}

		if err := writeFrequencySheet(f, name, table, bold); err != nil {
			return FileResult{}, err
		}
	}
	f.SetActiveSheet(0)

	fullPath := r.csv.resolvePath(filePath)
	out, err := createAtomic(fullPath)
	if err != nil {
		return FileResult{}, err
	}
	if err := f.Write(out); err != nil {
		out.Abort()
		return FileResult{}, fmt.Errorf("failed to write workbook: %w", err)
	}
	result, err := out.Commit()
	if err != nil {
		return FileResult{}, err
	}
	result.Rows = len(tables)

	r.csv.logger.InfoContext(ctx, "Report workbook written",
		slog.String("path", result.Path),
		slog.Int("sheets", len(tables)),
		slog.Int64("bytes", result.Bytes))

	return result, nil
}

func writeFrequencySheet(f *excelize.File, sheet string, table *dataprocessing.FrequencyTable, headerStyle int) error {
	header := frequencyHeader(table.Columns)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header of %q: %w", sheet, err)
	}

	for i, fr := range table.Rows {
		row := make([]any, 0, len(fr.Keys)+1)
		for _, k := range fr.Keys {
			row = append(row, k)
		}
		row = append(row, fr.Count)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i+2, sheet, err)
		}
	}
	return nil
}
