// Package exporter writes pipeline outputs to disk.
//
// Every file is written to a temporary sibling and renamed over its target
// only once it is complete, so a failed run never leaves a truncated output
// behind and the previous version survives.
//
// CSVWriter: delimited text in a configurable encoding and delimiter, with a
// streaming variant for large tables. Output is deterministic: the same table
// always produces the same bytes.
//
// ReportWriter: the frequency tables as an xlsx workbook, one sheet each.
//
// Example usage:
//
//	writer := exporter.NewCSVWriter(paths, logger)
//	result, err := writer.WriteTable(ctx, "df_consolidado_atualizado.csv", table,
//	    exporter.OptionsFromConfig(cfg.Output))
package exporter
