package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	TokensUsed          metric.Int64Counter
	IndexingDuration    metric.Float64Histogram
	AskDuration         metric.Float64Histogram
	ChunksIndexed       metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
	CleanupFailures     metric.Int64Counter
	ActiveSessions      metric.Int64UpDownCounter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("docqa-service")
	m := &Metrics{}
	var err error

	if m.RequestCounter, err = meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.RequestDuration, err = meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.TokensUsed, err = meter.Int64Counter(
		"llm.tokens.used",
		metric.WithDescription("Estimated tokens sent to the generation model"),
	); err != nil {
		return nil, err
	}

	if m.IndexingDuration, err = meter.Float64Histogram(
		"session.indexing.duration",
		metric.WithDescription("Time to extract, chunk, embed and store a session's documents"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.AskDuration, err = meter.Float64Histogram(
		"session.ask.duration",
		metric.WithDescription("End-to-end question answering latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.ChunksIndexed, err = meter.Int64Counter(
		"session.chunks.indexed",
		metric.WithDescription("Chunks written to vector collections"),
	); err != nil {
		return nil, err
	}

	if m.CircuitBreakerState, err = meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	); err != nil {
		return nil, err
	}

	if m.CleanupFailures, err = meter.Int64Counter(
		"session.cleanup.failures",
		metric.WithDescription("Vector collections that could not be released"),
	); err != nil {
		return nil, err
	}

	if m.ActiveSessions, err = meter.Int64UpDownCounter(
		"session.active",
		metric.WithDescription("Sessions currently registered"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	)
	m.RequestCounter.Add(context.Background(), 1, attrs)
	m.RequestDuration.Record(context.Background(), duration, attrs)
}

// RecordTokensUsed records generation token usage
func (m *Metrics) RecordTokensUsed(tokens int64, model string) {
	if m == nil {
		return
	}
	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(
		attribute.String("llm.model", model),
	))
}

// RecordIndexing records a create_session outcome
func (m *Metrics) RecordIndexing(duration float64, chunks int, status string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.IndexingDuration.Record(context.Background(), duration, attrs)
	if chunks > 0 {
		m.ChunksIndexed.Add(context.Background(), int64(chunks), attrs)
	}
}

// RecordAsk records an ask outcome
func (m *Metrics) RecordAsk(duration float64, status string) {
	if m == nil {
		return
	}
	m.AskDuration.Record(context.Background(), duration, metric.WithAttributes(
		attribute.String("status", status),
	))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("state", state),
	))
}

// RecordCleanupFailure counts a collection that was left behind
func (m *Metrics) RecordCleanupFailure(backend string) {
	if m == nil {
		return
	}
	m.CleanupFailures.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("vector.backend", backend),
	))
}

// SessionOpened and SessionClosed track the live session gauge
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.ActiveSessions.Add(context.Background(), 1)
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.ActiveSessions.Add(context.Background(), -1)
	}
}
