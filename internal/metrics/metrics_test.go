package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ToolCall("search_notes", "ok")
	m.ToolCall("search_notes", "ok")
	m.AuthAttempt("api_key", "unauthorized")
	m.NoteMutation("created")

	if got := testutil.ToFloat64(m.ToolCalls.WithLabelValues("search_notes", "ok")); got != 2 {
		t.Errorf("tool calls = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.AuthAttempts.WithLabelValues("api_key", "unauthorized")); got != 1 {
		t.Errorf("auth attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.NoteMutations.WithLabelValues("created")); got != 1 {
		t.Errorf("mutations = %v, want 1", got)
	}
}

func TestHandlerExposesInstruments(t *testing.T) {
	m := New()
	m.ObserveEmbedding("embed_many", time.Now(), errors.New("boom"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `recall_embedding_duration_seconds_count{op="embed_many",outcome="error"} 1`) {
		t.Errorf("histogram missing from exposition:\n%s", body)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ToolCall("x", "ok")
	m.AuthAttempt("session", "ok")
	m.NoteMutation("deleted")
	m.ObserveEmbedding("embed_one", time.Now(), nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("nil handler status = %d, want 404", rec.Code)
	}
}
