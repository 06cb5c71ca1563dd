package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOrderMetricsCountsTransitionsAndRejections(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	m.IncTransition("pending", "confirmed")
	m.IncTransition("pending", "confirmed")
	m.IncRejection("confirm", "STOCK_UNAVAILABLE")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "order_transitions_total", "to", "confirmed"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 2 {
		t.Fatalf("expected transitions=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "order_rejections_total", "code", "STOCK_UNAVAILABLE"); err != nil {
		t.Fatalf("fetch rejections: %v", err)
	} else if got != 1 {
		t.Fatalf("expected rejections=1, got %f", got)
	}
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("POST", "/api/v1/orders", 201, 40*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchHistogramSum(mfs, "http_request_duration_seconds", "route", "/api/v1/orders"); err != nil {
		t.Fatalf("fetch histogram: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected positive duration sum, got %f", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	var nilMetrics *OrderMetrics
	nilMetrics.IncTransition("a", "b")
	NewOrderMetrics(nil).IncRejection("create", "BLACKLISTED")
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Millisecond)
	NewCronJobMetrics(nil).IncSuccess("job")
}
