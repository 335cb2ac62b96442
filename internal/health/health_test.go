package health

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsEndpointReportsRegisteredGauges(t *testing.T) {
	r := New()
	r.ListenerState.WithLabelValues("cosmoshub-4").Set(2)
	r.ReconnectsTotal.WithLabelValues("cosmoshub-4").Inc()
	r.CollectorQueueDepth.Set(3)

	handler := promhttp.HandlerFor(r.registerer, promhttp.HandlerOpts{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	handler.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "cosmon_listener_state") {
		t.Fatalf("expected listener state gauge in output, got:\n%s", body)
	}
	if !strings.Contains(body, "cosmon_reconnects_total") {
		t.Fatalf("expected reconnects counter in output")
	}
	if !strings.Contains(body, "cosmon_collector_queue_depth") {
		t.Fatalf("expected queue depth gauge in output")
	}
}
