package utcp

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goadesign/utcp-go/runtime/telemetry"
)

// OperationType identifies the kind of client-runtime operation being
// observed. Grounded on runtime/registry/observability.go's OperationType,
// re-keyed to UTCP's own operation vocabulary.
type OperationType string

const (
	OpRegisterManual   OperationType = "register_manual"
	OpDeregisterManual OperationType = "deregister_manual"
	OpCallTool         OperationType = "call_tool"
	OpCallToolStream   OperationType = "call_tool_streaming"
	OpSearchTools      OperationType = "search_tools"
)

// OperationOutcome is the result of an observed operation.
type OperationOutcome string

const (
	OutcomeSuccess OperationOutcome = "success"
	OutcomeError   OperationOutcome = "error"
)

// OperationEvent is a structured log/metric event for one client-runtime
// operation.
type OperationEvent struct {
	Operation   OperationType
	Manual      string
	Tool        string
	Query       string
	Duration    time.Duration
	Outcome     OperationOutcome
	Error       string
	ResultCount int
}

// Observability provides structured logging, metrics, and tracing for
// client runtime operations. Grounded on
// runtime/registry/observability.go's Observability.
type Observability struct {
	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer
}

// NewObservability constructs an Observability, defaulting any missing
// telemetry component to its no-op implementation.
func NewObservability(logger telemetry.Logger, metrics telemetry.Metrics, tracer telemetry.Tracer) *Observability {
	o := &Observability{logger: logger, metrics: metrics, tracer: tracer}
	if o.logger == nil {
		o.logger = telemetry.NewNoopLogger()
	}
	if o.metrics == nil {
		o.metrics = telemetry.NewNoopMetrics()
	}
	if o.tracer == nil {
		o.tracer = telemetry.NewNoopTracer()
	}
	return o
}

// LogOperation emits a structured log event for a client-runtime operation.
func (o *Observability) LogOperation(ctx context.Context, event OperationEvent) {
	keyvals := []any{
		"operation", string(event.Operation),
		"outcome", string(event.Outcome),
		"duration_ms", event.Duration.Milliseconds(),
	}
	if event.Manual != "" {
		keyvals = append(keyvals, "manual", event.Manual)
	}
	if event.Tool != "" {
		keyvals = append(keyvals, "tool", event.Tool)
	}
	if event.Query != "" {
		keyvals = append(keyvals, "query", event.Query)
	}
	if event.ResultCount > 0 {
		keyvals = append(keyvals, "result_count", event.ResultCount)
	}
	if event.Error != "" {
		keyvals = append(keyvals, "error", event.Error)
	}
	const msg = "utcp operation completed"
	if event.Outcome == OutcomeError {
		o.logger.Error(ctx, msg, keyvals...)
	} else {
		o.logger.Info(ctx, msg, keyvals...)
	}
}

// RecordOperationMetrics records latency and outcome counters for an
// operation.
func (o *Observability) RecordOperationMetrics(event OperationEvent) {
	tags := []string{"operation", string(event.Operation), "outcome", string(event.Outcome)}
	if event.Manual != "" {
		tags = append(tags, "manual", event.Manual)
	}
	o.metrics.RecordTimer("utcp.operation.duration", event.Duration, tags...)
	switch event.Outcome {
	case OutcomeSuccess:
		o.metrics.IncCounter("utcp.operation.success", 1, tags...)
	case OutcomeError:
		o.metrics.IncCounter("utcp.operation.error", 1, tags...)
	}
	if event.ResultCount > 0 {
		o.metrics.RecordGauge("utcp.operation.result_count", float64(event.ResultCount), tags...)
	}
}

// StartSpan starts a new trace span for a client-runtime operation.
func (o *Observability) StartSpan(ctx context.Context, operation OperationType, attrs ...attribute.KeyValue) (context.Context, telemetry.Span) {
	opts := []trace.SpanStartOption{trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...)}
	return o.tracer.Start(ctx, "utcp."+string(operation), opts...)
}

// EndSpan ends a trace span, recording err if present.
func (o *Observability) EndSpan(span telemetry.Span, outcome OperationOutcome, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, string(outcome))
	}
	span.End()
}
