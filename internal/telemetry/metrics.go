package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the application's OpenTelemetry instruments.
type Metrics struct {
	QueriesTotal        metric.Int64Counter
	QueryDuration        metric.Float64Histogram
	BuildsTotal          metric.Int64Counter
	BuildDuration        metric.Float64Histogram
	EmbedCallsTotal      metric.Int64Counter
	EmbedBatchSize       metric.Int64Histogram
	CircuitBreakerState  metric.Int64Counter
	StorageOperations    metric.Int64Counter
	SpatialCandidates    metric.Int64Histogram
}

// InitMetrics initializes all application metrics.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("georag")

	queriesTotal, err := meter.Int64Counter(
		"georag.queries.total",
		metric.WithDescription("Total retrieval pipeline queries"),
	)
	if err != nil {
		return nil, err
	}

	queryDuration, err := meter.Float64Histogram(
		"georag.query.duration",
		metric.WithDescription("Retrieval pipeline query duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	buildsTotal, err := meter.Int64Counter(
		"georag.builds.total",
		metric.WithDescription("Total index builds attempted"),
	)
	if err != nil {
		return nil, err
	}

	buildDuration, err := meter.Float64Histogram(
		"georag.build.duration",
		metric.WithDescription("Index build duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	embedCallsTotal, err := meter.Int64Counter(
		"georag.embed.calls.total",
		metric.WithDescription("Total embedder adapter calls"),
	)
	if err != nil {
		return nil, err
	}

	embedBatchSize, err := meter.Int64Histogram(
		"georag.embed.batch_size",
		metric.WithDescription("Embedder batch sizes"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	storageOperations, err := meter.Int64Counter(
		"georag.storage.operations.total",
		metric.WithDescription("Total storage port operations"),
	)
	if err != nil {
		return nil, err
	}

	spatialCandidates, err := meter.Int64Histogram(
		"georag.spatial.candidates",
		metric.WithDescription("Candidate set size after the spatial index stage"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		QueriesTotal:        queriesTotal,
		QueryDuration:       queryDuration,
		BuildsTotal:         buildsTotal,
		BuildDuration:       buildDuration,
		EmbedCallsTotal:     embedCallsTotal,
		EmbedBatchSize:      embedBatchSize,
		CircuitBreakerState: circuitBreakerState,
		StorageOperations:   storageOperations,
		SpatialCandidates:   spatialCandidates,
	}, nil
}

// RecordQuery records one retrieval pipeline invocation.
func (m *Metrics) RecordQuery(workspaceID string, duration float64, outcome string) {
	attrs := []attribute.KeyValue{
		attribute.String("workspace_id", workspaceID),
		attribute.String("outcome", outcome),
	}
	m.QueriesTotal.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.QueryDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordBuild records one index build attempt.
func (m *Metrics) RecordBuild(workspaceID string, duration float64, state string) {
	attrs := []attribute.KeyValue{
		attribute.String("workspace_id", workspaceID),
		attribute.String("state", state),
	}
	m.BuildsTotal.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.BuildDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordEmbedCall records one batch call against the Embedder port.
func (m *Metrics) RecordEmbedCall(model string, batchSize int, ok bool) {
	attrs := []attribute.KeyValue{
		attribute.String("model", model),
		attribute.Bool("ok", ok),
	}
	m.EmbedCallsTotal.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.EmbedBatchSize.Record(context.Background(), int64(batchSize), metric.WithAttributes(attrs...))
}

// RecordCircuitBreakerState records an embedder circuit breaker transition.
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}
	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordStorageOperation records one storage port call.
func (m *Metrics) RecordStorageOperation(port, operation string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("port", port),
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	}
	m.StorageOperations.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordSpatialCandidates records the candidate count surviving the spatial stage.
func (m *Metrics) RecordSpatialCandidates(predicate string, count int) {
	attrs := []attribute.KeyValue{attribute.String("predicate", predicate)}
	m.SpatialCandidates.Record(context.Background(), int64(count), metric.WithAttributes(attrs...))
}
