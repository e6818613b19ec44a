package operations

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"acidentes/internal/infrastructure"
)

// StageTracer wraps pipeline runs and steps in spans and records their
// metrics. A nil telemetry yields a tracer that records nothing.
type StageTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewStageTracer creates a stage tracer backed by telemetry
func NewStageTracer(telemetry *infrastructure.Telemetry) *StageTracer {
	if telemetry == nil || telemetry.Tracer == nil {
		return &StageTracer{tracer: noop.NewTracerProvider().Tracer(infrastructure.InstrumentationName)}
	}
	return &StageTracer{tracer: telemetry.Tracer, metrics: telemetry.Metrics}
}

// TraceRun creates a span for the entire run
func (st *StageTracer) TraceRun(ctx context.Context, runID string, sources int) (context.Context, trace.Span) {
	return st.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.sources", sources),
		),
	)
}

// TraceStep creates a span for one step
func (st *StageTracer) TraceStep(ctx context.Context, runID string, step Step) (context.Context, trace.Span) {
	return st.tracer.Start(ctx, "pipeline.step."+step.ID(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("step.id", step.ID()),
			attribute.String("step.name", step.Name()),
		),
	)
}

// RecordStepCompletion closes the step span and records its duration and
// output size.
func (st *StageTracer) RecordStepCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, rows int, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	span.SetAttributes(
		attribute.String("step.status", status),
		attribute.Float64("step.duration_seconds", duration.Seconds()),
		attribute.Int("step.rows", rows),
	)
	if err != nil {
		infrastructure.RecordError(trace.ContextWithSpan(ctx, span), err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	if st.metrics == nil {
		return
	}
	stage := metric.WithAttributes(attribute.String("stage", stepID))
	st.metrics.StageDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("stage", stepID), attribute.String("status", status)))
	if err != nil {
		st.metrics.StageErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", stepID),
			attribute.String("error_type", string(GetErrorType(err))),
		))
		return
	}
	if rows > 0 {
		st.metrics.RowsProcessed.Add(ctx, int64(rows), stage)
	}
}

// RecordRunCompletion closes the run span and records the run outcome and
// the counters taken from the run reports.
func (st *StageTracer) RecordRunCompletion(ctx context.Context, span trace.Span, state *RunState, err error) {
	duration := state.Duration()
	span.SetAttributes(
		attribute.String("run.status", string(state.Status)),
		attribute.Int("run.rows", state.TableRows()),
		attribute.Float64("run.duration_seconds", duration.Seconds()),
	)
	if err != nil {
		infrastructure.RecordError(trace.ContextWithSpan(ctx, span), err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	defer span.End()

	if st.metrics == nil {
		return
	}
	outcome := metric.WithAttributes(attribute.String("status", string(state.Status)))
	st.metrics.RunsTotal.Add(ctx, 1, outcome)
	st.metrics.RunDuration.Record(ctx, duration.Seconds(), outcome)

	for _, src := range state.SourceSummaries {
		st.metrics.SourceRows.Add(ctx, int64(src.Rows),
			metric.WithAttributes(attribute.String("source", src.ID)))
	}
	if r := state.Cleaning; r != nil {
		for _, col := range r.Imputed {
			st.metrics.CellsImputed.Add(ctx, int64(col.NullCount),
				metric.WithAttributes(attribute.String("column", col.Column)))
		}
		st.metrics.UnparsableDates.Add(ctx, int64(r.UnparsableDates))
		st.metrics.FutureDates.Add(ctx, int64(r.FutureDates))
		st.metrics.DuplicateRows.Add(ctx, int64(r.DuplicateRows))
	}
	if r := state.Derivation; r != nil {
		st.metrics.UnknownSeverity.Add(ctx, int64(r.UnknownClassificationRows()))
	}
	for _, out := range state.Outputs {
		st.metrics.BytesWritten.Add(ctx, out.Bytes)
	}
}
