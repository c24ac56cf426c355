package telemetry

import "testing"

func TestInitMetricsWithNoopProvider(t *testing.T) {
	m, err := InitMetrics()
	if err != nil {
		t.Fatalf("InitMetrics: %v", err)
	}
	m.RecordRequest("GET", "/health", "success", 0.01)
	m.RecordIndexing(1.5, 12, "success")
	m.RecordAsk(0.2, "error")
	m.RecordCleanupFailure("qdrant")
	m.SessionOpened()
	m.SessionClosed()
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("GET", "/", "success", 0)
	m.RecordTokensUsed(10, "model")
	m.RecordCircuitBreakerState("gemini", "open")
	m.SessionOpened()
}
