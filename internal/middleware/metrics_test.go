package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type mockHTTPRecorder struct {
	statuses  []int
	latencies []time.Duration
}

func (m *mockHTTPRecorder) RecordHTTPStatus(statusCode int) {
	m.statuses = append(m.statuses, statusCode)
}

func (m *mockHTTPRecorder) RecordRequestLatency(d time.Duration) {
	m.latencies = append(m.latencies, d)
}

func TestMetricsMiddleware_RecordsStatusAndLatency(t *testing.T) {
	rec := &mockHTTPRecorder{}
	handler := NewMetricsMiddleware(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/todos", nil))

	if len(rec.statuses) != 1 || rec.statuses[0] != http.StatusCreated {
		t.Errorf("statuses = %v, want [201]", rec.statuses)
	}
	if len(rec.latencies) != 1 || rec.latencies[0] < 0 {
		t.Errorf("latencies = %v, want one non-negative value", rec.latencies)
	}
}

// ロギングとメトリクスを重ねても同じステータスを観測すること
func TestMetricsMiddleware_SharesRecorderWithLogging(t *testing.T) {
	var buf bytes.Buffer
	rec := &mockHTTPRecorder{}

	inner := NewMetricsMiddleware(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler := NewLoggingMiddleware(newTestLogger(&buf))(inner)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entry := decodeLogEntry(t, &buf)
	if int(entry["status"].(float64)) != http.StatusNotFound {
		t.Errorf("logged status = %v, want 404", entry["status"])
	}
	if len(rec.statuses) != 1 || rec.statuses[0] != http.StatusNotFound {
		t.Errorf("recorded statuses = %v, want [404]", rec.statuses)
	}
}
