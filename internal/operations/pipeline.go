package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"acidentes/internal/config"
	"acidentes/internal/dataprocessing"
	"acidentes/internal/exporter"
	"acidentes/internal/infrastructure"
)

// Pipeline runs the steps of one batch in order. Steps share nothing but the
// RunState; the first failing step ends the run.
type Pipeline struct {
	cfg     *config.Config
	paths   *config.Paths
	logger  *slog.Logger
	tracer  *StageTracer
	writer  *exporter.CSVWriter
	steps   []Step
	now     func() time.Time
	refDate time.Time
}

// PipelineOption customizes a Pipeline
type PipelineOption func(*Pipeline)

// WithClock sets the clock used for timestamps and, unless the
// configuration pins a reference date, for the future-date check.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithSteps replaces the default step sequence.
func WithSteps(steps ...Step) PipelineOption {
	return func(p *Pipeline) {
		p.steps = steps
	}
}

// NewPipeline builds the default Load, Consolidate, Clean, Derive, Aggregate
// and Export sequence from cfg.
func NewPipeline(cfg *config.Config, paths *config.Paths, logger *slog.Logger, telemetry *infrastructure.Telemetry, opts ...PipelineOption) (*Pipeline, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	p := &Pipeline{
		cfg:    cfg,
		paths:  paths,
		logger: infrastructure.WithComponent(logger, "pipeline"),
		tracer: NewStageTracer(telemetry),
		writer: exporter.NewCSVWriter(paths, logger),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if cfg.Pipeline.ReferenceDate != "" {
		ref, err := time.Parse(config.ReferenceDateLayout, cfg.Pipeline.ReferenceDate)
		if err != nil {
			return nil, NewFatalError("invalid reference date", err)
		}
		p.refDate = ref
	}

	if p.steps == nil {
		p.steps = p.defaultSteps(logger)
	}
	return p, nil
}

func (p *Pipeline) defaultSteps(logger *slog.Logger) []Step {
	cleanerOpts := []dataprocessing.CleanerOption{
		dataprocessing.WithClock(p.referenceClock),
		dataprocessing.WithFutureDateSampleSize(p.cfg.Pipeline.FutureDateSampleSize),
	}
	targets := ExportTargets{
		Consolidated: p.paths.OutputPath(p.cfg.Output.ConsolidatedFileName),
		Final:        p.paths.OutputPath(p.cfg.Output.FileName),
		Report:       p.paths.OutputPath(p.cfg.Output.ReportFileName),
	}
	load := NewLoadStage(dataprocessing.NewLoader(logger))
	if p.cfg.Pipeline.DiscoverSources {
		load = NewDiscoveringLoadStage(dataprocessing.NewLoader(logger), p.paths, logger)
	}
	return []Step{
		load,
		NewConsolidateStage(dataprocessing.NewConsolidator(logger)),
		NewCleanStage(dataprocessing.NewCleaner(logger, cleanerOpts...)),
		NewDeriveStage(dataprocessing.NewDeriver(logger)),
		NewAggregateStage(dataprocessing.NewAggregator(logger)),
		NewExportStage(p.writer, targets, exporter.OptionsFromConfig(p.cfg.Output), logger),
	}
}

// referenceClock is "today" for the future-date check
func (p *Pipeline) referenceClock() time.Time {
	if !p.refDate.IsZero() {
		return p.refDate
	}
	return p.now()
}

// Steps returns the step sequence of the pipeline
func (p *Pipeline) Steps() []Step {
	return p.steps
}

// Run executes every step in order and returns the run manifest. The
// manifest is returned, and written when configured, even when the run
// fails; the returned error is an *OperationError.
func (p *Pipeline) Run(ctx context.Context) (*RunManifest, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	runID := infrastructure.GetRunID(ctx)

	sources := make([]dataprocessing.Source, 0, len(p.cfg.Sources))
	for _, src := range p.cfg.Sources {
		sources = append(sources, dataprocessing.SourceFromConfig(src, p.paths))
	}

	state := NewRunState(runID, sources)
	for _, step := range p.steps {
		state.AddStep(NewStepState(step.ID(), step.Name()))
	}

	ctx, span := p.tracer.TraceRun(ctx, runID, len(sources))

	p.logger.InfoContext(ctx, "Pipeline started",
		slog.Int("sources", len(sources)),
		slog.Int("steps", len(p.steps)))

	state.Start(p.now())
	runErr := p.runSteps(ctx, state)

	status := RunStatusCompleted
	switch GetErrorType(runErr) {
	case "":
	case ErrorTypeCancellation:
		status = RunStatusCancelled
	default:
		status = RunStatusFailed
	}
	state.Finish(p.now(), status)
	p.tracer.RecordRunCompletion(ctx, span, state, runErr)

	manifest := NewRunManifest(state, p.referenceClock().UTC().Format(config.ReferenceDateLayout), runErr)
	if err := p.writeManifest(context.WithoutCancel(ctx), manifest); err != nil {
		p.logger.ErrorContext(ctx, "Failed to write run manifest", slog.String("error", err.Error()))
		if runErr == nil {
			runErr = NewFatalError("failed to write run manifest", err)
		}
	}

	if runErr != nil {
		p.logger.ErrorContext(ctx, "Pipeline failed",
			slog.String("status", string(status)),
			slog.String("error", runErr.Error()),
			slog.Duration("duration", state.Duration()))
		return manifest, runErr
	}

	p.logger.InfoContext(ctx, "Pipeline completed",
		slog.Int("rows", state.TableRows()),
		slog.Int("outputs", len(state.Outputs)),
		slog.Duration("duration", state.Duration()))
	return manifest, nil
}

// runSteps executes the steps until one fails. Remaining steps are marked
// skipped.
func (p *Pipeline) runSteps(ctx context.Context, state *RunState) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.skipRemaining(state, i, "run cancelled")
			return WrapError(err, step.ID())
		}
		if err := p.runStep(ctx, state, step); err != nil {
			p.skipRemaining(state, i+1, fmt.Sprintf("step %s failed", step.ID()))
			return err
		}
	}
	return nil
}

func (p *Pipeline) runStep(ctx context.Context, state *RunState, step Step) error {
	stepState := state.GetStep(step.ID())
	logger := p.logger.With(slog.String("step", step.ID()))

	stepCtx, span := p.tracer.TraceStep(ctx, state.ID, step)
	start := p.now()
	stepState.Start(start)
	logger.InfoContext(stepCtx, "Step started", slog.String("name", step.Name()))

	err := step.Execute(stepCtx, state)
	end := p.now()

	if err != nil {
		opErr := WrapError(err, step.ID())
		stepState.Fail(end, opErr)
		p.tracer.RecordStepCompletion(stepCtx, span, step.ID(), end.Sub(start), 0, opErr)
		infrastructure.WithError(logger, opErr).ErrorContext(stepCtx, "Step failed",
			slog.String("error_type", string(opErr.Type)))
		return opErr
	}

	rows := state.TableRows()
	if counter, ok := step.(interface{ Rows(*RunState) int }); ok {
		rows = counter.Rows(state)
	}
	stepState.Complete(end, rows)
	p.tracer.RecordStepCompletion(stepCtx, span, step.ID(), end.Sub(start), rows, nil)
	logger.InfoContext(stepCtx, "Step completed",
		slog.Int("rows", rows),
		slog.Duration("duration", end.Sub(start)))
	return nil
}

func (p *Pipeline) skipRemaining(state *RunState, from int, reason string) {
	for _, step := range p.steps[from:] {
		state.GetStep(step.ID()).Skip(reason)
	}
}

// writeManifest writes the manifest next to the final output, if enabled
func (p *Pipeline) writeManifest(ctx context.Context, manifest *RunManifest) error {
	if !p.cfg.Output.WriteManifest || p.cfg.Output.FileName == "" {
		return nil
	}
	path := p.paths.ManifestPath(p.paths.OutputPath(p.cfg.Output.FileName))
	_, err := p.writer.WriteJSON(ctx, path, manifest)
	return err
}
