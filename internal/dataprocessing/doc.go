// Package dataprocessing implements the accident pipeline stages over an
// in-memory Table of nullable string cells.
//
// Stages run in a fixed order and never modify the table they are given:
//
//	Loader        reads each yearly source verbatim (csv or xlsx)
//	Consolidator  concatenates sources under the union of their columns
//	Cleaner       imputes nulls, normalizes data_inversa, derives hora
//	Deriver       appends the temporal, severity and injury features
//	Aggregator    computes the frequency tables used for reporting
//
// Basic usage:
//
//	loaded, err := dataprocessing.NewLoader(logger).Load(ctx, sources)
//	table, summaries, err := dataprocessing.NewConsolidator(logger).Consolidate(ctx, loaded)
//	table, cleaning, err := dataprocessing.NewCleaner(logger).Clean(ctx, table)
//	table, derivation, err := dataprocessing.NewDeriver(logger).Derive(ctx, table)
//
// Missing values are real nulls (Cell.Valid false), never sentinel strings.
// Imputation is global: a column's fill value is computed once over the whole
// consolidated table.
package dataprocessing
