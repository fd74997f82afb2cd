package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.ObserveRequest("POST", "/api/orders/{orderId}/accept", 200, 42*time.Millisecond)
	m.ObserveRequest("POST", "/api/orders/{orderId}/accept", 409, time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var total float64
	for _, fam := range families {
		if fam.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range fam.GetMetric() {
			total += metric.GetCounter().GetValue()
			assertLabel(t, metric, "route", "/api/orders/{orderId}/accept")
		}
	}
	if total != 2 {
		t.Fatalf("expected 2 observed requests, got %v", total)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *HTTPMetrics
	m.ObserveRequest("GET", "/", 200, time.Second)
	m.IncInFlight()
	m.DecInFlight()
}

func assertLabel(t *testing.T, metric *dto.Metric, name, want string) {
	t.Helper()
	for _, label := range metric.GetLabel() {
		if label.GetName() == name {
			if label.GetValue() != want {
				t.Fatalf("label %s = %q, want %q", name, label.GetValue(), want)
			}
			return
		}
	}
	t.Fatalf("label %s missing", name)
}
