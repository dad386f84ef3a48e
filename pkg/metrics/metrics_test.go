package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestOrderMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOrderMetrics(reg)
	metrics.OrderCreated(enums.PaymentMethodCOD)
	metrics.OrderCreated(enums.PaymentMethodCOD)
	metrics.OrderDecided(enums.OrderStatusAccepted)
	metrics.StockConflict("accept")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "orders_created_total", "payment_method", "cod"); err != nil {
		t.Fatalf("fetch created: %v", err)
	} else if got != 2 {
		t.Fatalf("expected created=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "orders_decided_total", "status", "accepted"); err != nil {
		t.Fatalf("fetch decided: %v", err)
	} else if got != 1 {
		t.Fatalf("expected decided=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "orders_stock_conflicts_total", "stage", "accept"); err != nil {
		t.Fatalf("fetch conflicts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected conflicts=1, got %f", got)
	}
}

func TestWebhookMetricsLabelsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewWebhookMetrics(reg)
	metrics.Observe("payment_intent.succeeded", WebhookProcessed)
	metrics.Observe("", WebhookRejected)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "stripe_webhook_events_total", "outcome", WebhookProcessed); err != nil {
		t.Fatalf("fetch processed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected processed=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "stripe_webhook_events_total", "event_type", "unknown"); err != nil {
		t.Fatalf("fetch unknown type: %v", err)
	} else if got != 1 {
		t.Fatalf("expected unknown=1, got %f", got)
	}
}

func TestOutboxMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOutboxMetrics(reg)
	metrics.ObserveBatch(250 * time.Millisecond)
	metrics.IncPublished("order_created")
	metrics.IncFailed("order_paid", true)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_published_total", "event_type", "order_created"); err != nil {
		t.Fatalf("fetch published: %v", err)
	} else if got != 1 {
		t.Fatalf("expected published=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_failed_total", "terminal", "true"); err != nil {
		t.Fatalf("fetch failed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failed=1, got %f", got)
	}
	mf := findMetricFamily(mfs, "outbox_batch_duration_seconds")
	if mf == nil || len(mf.GetMetric()) == 0 {
		t.Fatal("batch histogram missing")
	}
	if sum := mf.GetMetric()[0].GetHistogram().GetSampleSum(); sum <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", sum)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var orders *OrderMetrics
	orders.OrderCreated(enums.PaymentMethodCard)
	var webhooks *WebhookMetrics
	webhooks.Observe("x", WebhookFailed)
	unregistered := NewOutboxMetrics(nil)
	unregistered.IncPublished("x")
	var cron *CronJobMetrics
	cron.SetOutboxParked(3)
}

func TestCronJobMetricsExportsJobOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	metrics.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	metrics.IncSuccess("outbox-retention")
	metrics.IncFailure("")
	metrics.ObserveDuration("outbox-retention", time.Second)
	metrics.SetOutboxParked(4)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "cron_job_runs_total", "outcome", "success"); err != nil || got != 1 {
		t.Fatalf("expected one successful run, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "cron_job_runs_total", "job", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected failure for unknown job, got %f (%v)", got, err)
	}
	last := findMetricFamily(mfs, "cron_job_last_success_timestamp_seconds")
	if last == nil || last.GetMetric()[0].GetGauge().GetValue() != 1_700_000_000 {
		t.Fatal("expected last success timestamp for outbox-retention")
	}
	gauge := findMetricFamily(mfs, "outbox_events_parked")
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != 4 {
		t.Fatal("expected parked gauge at 4")
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
