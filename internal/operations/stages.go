package operations

import (
	"context"
	"fmt"
	"log/slog"

	"acidentes/internal/config"
	"acidentes/internal/dataprocessing"
	apperrors "acidentes/internal/errors"
	"acidentes/internal/exporter"
	"acidentes/internal/files"
	"acidentes/internal/infrastructure"
)

// Step identifiers
const (
	StepIDLoad        = "load"
	StepIDConsolidate = "consolidate"
	StepIDClean       = "clean"
	StepIDDerive      = "derive"
	StepIDAggregate   = "aggregate"
	StepIDExport      = "export"
)

// Step names
const (
	StepNameLoad        = "Source Loading"
	StepNameConsolidate = "Consolidation"
	StepNameClean       = "Cleaning"
	StepNameDerive      = "Feature Derivation"
	StepNameAggregate   = "Aggregation"
	StepNameExport      = "Export"
)

// LoadStage reads every configured source
type LoadStage struct {
	BaseStage
	loader    *dataprocessing.Loader
	discovery *files.Discovery
	paths     *config.Paths
	logger    *slog.Logger
}

// NewLoadStage creates a new load step
func NewLoadStage(loader *dataprocessing.Loader) *LoadStage {
	return &LoadStage{BaseStage: NewBaseStage(StepIDLoad, StepNameLoad), loader: loader}
}

// NewDiscoveringLoadStage creates a load step that ignores the configured
// sources and reads the yearly files found in the data directory instead.
func NewDiscoveringLoadStage(loader *dataprocessing.Loader, paths *config.Paths, logger *slog.Logger) *LoadStage {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	s := NewLoadStage(loader)
	s.discovery = files.NewDiscovery(paths.WorkDir)
	s.paths = paths
	s.logger = logger.With(slog.String("step", StepIDLoad))
	return s
}

// Execute loads state.Sources into state.Loaded
func (s *LoadStage) Execute(ctx context.Context, state *RunState) error {
	if s.discovery != nil {
		if err := s.discover(ctx, state); err != nil {
			return err
		}
	}
	if len(state.Sources) == 0 {
		return NewValidationError(s.ID(), "no sources configured")
	}
	loaded, err := s.loader.Load(ctx, state.Sources)
	if err != nil {
		return err
	}
	state.Loaded = loaded
	return nil
}

func (s *LoadStage) discover(ctx context.Context, state *RunState) error {
	found, err := s.discovery.DiscoverSources(s.paths.DataDir)
	if apperrors.IsType(err, apperrors.ErrTypeValidation) {
		return WrapError(err, s.ID())
	}
	if err != nil {
		return NewFatalError("source discovery failed", err)
	}
	state.Sources = make([]dataprocessing.Source, 0, len(found))
	for _, src := range found {
		s.logger.InfoContext(ctx, "Source discovered",
			slog.String("source", src.ID),
			slog.String("path", src.Path),
			slog.String("format", src.Format),
			slog.String("encoding", src.Encoding),
			slog.String("delimiter", src.Delimiter))
		state.Sources = append(state.Sources, dataprocessing.SourceFromConfig(src, s.paths))
	}
	return nil
}

// Rows returns the total number of rows read
func (s *LoadStage) Rows(state *RunState) int {
	total := 0
	for _, st := range state.Loaded {
		total += st.Table.Len()
	}
	return total
}

// ConsolidateStage concatenates the loaded tables
type ConsolidateStage struct {
	BaseStage
	consolidator *dataprocessing.Consolidator
}

// NewConsolidateStage creates a new consolidation step
func NewConsolidateStage(consolidator *dataprocessing.Consolidator) *ConsolidateStage {
	return &ConsolidateStage{BaseStage: NewBaseStage(StepIDConsolidate, StepNameConsolidate), consolidator: consolidator}
}

// Execute sets state.Consolidated and state.Table
func (s *ConsolidateStage) Execute(ctx context.Context, state *RunState) error {
	table, summaries, err := s.consolidator.Consolidate(ctx, state.Loaded)
	if err != nil {
		return err
	}
	state.Consolidated = table
	state.Table = table
	state.SourceSummaries = summaries
	// The per-source tables are no longer needed.
	state.Loaded = nil
	return nil
}

// CleanStage imputes nulls and normalizes dates and times
type CleanStage struct {
	BaseStage
	cleaner *dataprocessing.Cleaner
}

// NewCleanStage creates a new cleaning step
func NewCleanStage(cleaner *dataprocessing.Cleaner) *CleanStage {
	return &CleanStage{BaseStage: NewBaseStage(StepIDClean, StepNameClean), cleaner: cleaner}
}

// Execute replaces state.Table with the cleaned table
func (s *CleanStage) Execute(ctx context.Context, state *RunState) error {
	table, report, err := s.cleaner.Clean(ctx, state.Table)
	if err != nil {
		return err
	}
	state.Table = table
	state.Cleaning = report
	infrastructure.SetSpanAttributes(ctx, map[string]int{
		"clean.cells_imputed":    report.CellsImputed(),
		"clean.all_null_columns": len(report.AllNullColumns),
		"clean.unparsable_dates": report.UnparsableDates,
		"clean.future_dates":     report.FutureDates,
		"clean.duplicate_rows":   report.DuplicateRows,
	})
	return nil
}

// DeriveStage appends the derived feature columns
type DeriveStage struct {
	BaseStage
	deriver *dataprocessing.Deriver
}

// NewDeriveStage creates a new derivation step
func NewDeriveStage(deriver *dataprocessing.Deriver) *DeriveStage {
	return &DeriveStage{BaseStage: NewBaseStage(StepIDDerive, StepNameDerive), deriver: deriver}
}

// Execute replaces state.Table with the enriched table
func (s *DeriveStage) Execute(ctx context.Context, state *RunState) error {
	table, report, err := s.deriver.Derive(ctx, state.Table)
	if err != nil {
		return err
	}
	state.Table = table
	state.Derivation = report
	infrastructure.SetSpanAttributes(ctx, map[string]int{
		"derive.unknown_classifications": report.UnknownClassificationRows(),
		"derive.null_dates":              report.NullDates,
		"derive.null_totals":             report.NullTotals,
		"derive.injured_out_of_domain":   report.InjuredOutOfDomain,
	})
	return nil
}

// AggregateStage computes the frequency tables of the enriched table
type AggregateStage struct {
	BaseStage
	aggregator *dataprocessing.Aggregator
}

// NewAggregateStage creates a new aggregation step
func NewAggregateStage(aggregator *dataprocessing.Aggregator) *AggregateStage {
	return &AggregateStage{BaseStage: NewBaseStage(StepIDAggregate, StepNameAggregate), aggregator: aggregator}
}

// Execute sets state.Aggregations
func (s *AggregateStage) Execute(ctx context.Context, state *RunState) error {
	tables, err := s.aggregator.Aggregate(ctx, state.Table)
	if err != nil {
		return err
	}
	state.Aggregations = tables
	return nil
}

// ExportTargets names the files written by ExportStage. Empty names are
// skipped, except Final which is required.
type ExportTargets struct {
	Consolidated string
	Final        string
	Report       string
}

// ExportStage writes the run outputs. Nothing is written before every
// preceding step has succeeded, and each file replaces its predecessor
// atomically.
type ExportStage struct {
	BaseStage
	writer  *exporter.CSVWriter
	report  *exporter.ReportWriter
	targets ExportTargets
	options exporter.WriteOptions
	logger  *slog.Logger
}

// NewExportStage creates a new export step
func NewExportStage(writer *exporter.CSVWriter, targets ExportTargets, options exporter.WriteOptions, logger *slog.Logger) *ExportStage {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &ExportStage{
		BaseStage: NewBaseStage(StepIDExport, StepNameExport),
		writer:    writer,
		report:    exporter.NewReportWriter(writer),
		targets:   targets,
		options:   options,
		logger:    logger.With(slog.String("step", StepIDExport)),
	}
}

// Execute writes the consolidated table, the final table and the report
// workbook, in that order.
func (s *ExportStage) Execute(ctx context.Context, state *RunState) error {
	if s.targets.Final == "" {
		return NewValidationError(s.ID(), "no output file configured")
	}
	if state.Table == nil {
		return NewValidationError(s.ID(), "nothing to export")
	}

	if s.targets.Consolidated != "" && state.Consolidated != nil {
		result, err := s.writer.WriteTable(ctx, s.targets.Consolidated, state.Consolidated, s.options)
		if err != nil {
			return fmt.Errorf("failed to write consolidated table: %w", err)
		}
		state.AddOutput(result)
	}

	result, err := s.writer.WriteTable(ctx, s.targets.Final, state.Table, s.options)
	if err != nil {
		return fmt.Errorf("failed to write output table: %w", err)
	}
	state.AddOutput(result)

	if s.targets.Report != "" {
		if len(state.Aggregations) == 0 {
			s.logger.WarnContext(ctx, "No frequency tables to report, skipping workbook",
				slog.String("path", s.targets.Report))
			return nil
		}
		result, err := s.report.WriteReport(ctx, s.targets.Report, state.Aggregations)
		if err != nil {
			return fmt.Errorf("failed to write report workbook: %w", err)
		}
		state.AddOutput(result)
	}
	return nil
}
