package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"acidentes/internal/config"
)

// InstrumentationName names the tracer and meter of the pipeline.
const InstrumentationName = "acidentes"

// Telemetry holds the tracing and metrics providers of one run. Metrics are
// collected into a private Prometheus registry; a batch job has no scrape
// endpoint, so the registry is written to a textfile on Shutdown instead.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *promclient.Registry
	Metrics        *PipelineMetrics

	textfile string
	logger   *slog.Logger
}

// TelemetryOption customizes InitializeTelemetry
type TelemetryOption func(*telemetryOptions)

type telemetryOptions struct {
	traceWriter io.Writer
}

// WithTraceWriter sends stdout-exported spans to w instead of os.Stdout.
func WithTraceWriter(w io.Writer) TelemetryOption {
	return func(o *telemetryOptions) {
		o.traceWriter = w
	}
}

// InitializeTelemetry sets up tracing and metrics according to cfg.
func InitializeTelemetry(cfg config.TelemetryConfig, logger *slog.Logger, opts ...TelemetryOption) (*Telemetry, error) {
	options := telemetryOptions{traceWriter: os.Stdout}
	for _, opt := range opts {
		opt(&options)
	}
	if logger == nil {
		logger = slog.Default()
	}

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	t := &Telemetry{
		textfile: cfg.MetricsTextfile,
		logger:   logger,
	}

	if err := t.initializeTracing(cfg, res, options); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := t.initializeMetrics(res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.Debug("Telemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metrics_textfile", cfg.MetricsTextfile))

	return t, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg config.TelemetryConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(config.AppVersion),
	), nil
}

func (t *Telemetry) initializeTracing(cfg config.TelemetryConfig, res *resource.Resource, options telemetryOptions) error {
	switch cfg.TraceExporter {
	case "", "none":
		t.Tracer = noop.NewTracerProvider().Tracer(InstrumentationName)
		return nil
	case "stdout":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(options.traceWriter),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	t.TracerProvider = tp
	t.Tracer = tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(config.AppVersion))
	return nil
}

func (t *Telemetry) initializeMetrics(res *resource.Resource) error {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(
		prometheus.WithRegisterer(registry),
		prometheus.WithoutTargetInfo(),
		prometheus.WithoutScopeInfo(),
	)
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	t.Registry = registry
	t.MeterProvider = mp
	t.Meter = mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(config.AppVersion))

	t.Metrics, err = CreatePipelineMetrics(t.Meter)
	return err
}

// PipelineMetrics contains the instruments recorded by a pipeline run
type PipelineMetrics struct {
	RunsTotal       metric.Int64Counter
	RunDuration     metric.Float64Histogram
	StageDuration   metric.Float64Histogram
	StageErrors     metric.Int64Counter
	RowsProcessed   metric.Int64Counter
	SourceRows      metric.Int64Counter
	CellsImputed    metric.Int64Counter
	UnparsableDates metric.Int64Counter
	FutureDates     metric.Int64Counter
	DuplicateRows   metric.Int64Counter
	UnknownSeverity metric.Int64Counter
	BytesWritten    metric.Int64Counter
}

// CreatePipelineMetrics creates all pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	var (
		m    PipelineMetrics
		errs []error
	)
	counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		errs = append(errs, err)
		return c
	}
	histogram := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300),
		)
		errs = append(errs, err)
		return h
	}

	m.RunsTotal = counter("acidentes_runs", "Pipeline runs by outcome", "{run}")
	m.RunDuration = histogram("acidentes_run_duration", "Wall time of a pipeline run")
	m.StageDuration = histogram("acidentes_stage_duration", "Wall time of a pipeline stage")
	m.StageErrors = counter("acidentes_stage_errors", "Stage failures by error type", "{error}")
	m.RowsProcessed = counter("acidentes_rows", "Rows produced by each stage", "{row}")
	m.SourceRows = counter("acidentes_source_rows", "Rows loaded from each source file", "{row}")
	m.CellsImputed = counter("acidentes_cells_imputed", "Null cells filled during cleaning", "{cell}")
	m.UnparsableDates = counter("acidentes_unparsable_dates", "Dates coerced to null", "{row}")
	m.FutureDates = counter("acidentes_future_dates", "Rows dated after the reference date", "{row}")
	m.DuplicateRows = counter("acidentes_duplicate_rows", "Fully duplicated rows after cleaning", "{row}")
	m.UnknownSeverity = counter("acidentes_unknown_classifications", "Rows whose classification fell back to the default severity", "{row}")
	m.BytesWritten = counter("acidentes_output_bytes", "Bytes written to output files", "By")

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	return &m, nil
}

// Shutdown writes the metrics textfile, if configured, and flushes and
// stops the providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.textfile != "" && t.Registry != nil {
		if err := promclient.WriteToTextfile(t.textfile, t.Registry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics textfile: %w", err))
		} else {
			t.logger.DebugContext(ctx, "Metrics textfile written", slog.String("path", t.textfile))
		}
	}

	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// RecordError marks the span in ctx as failed
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets integer attributes on the span in ctx
func SetSpanAttributes(ctx context.Context, attrs map[string]int) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, attribute.Int(k, v))
	}
	span.SetAttributes(kvs...)
}
