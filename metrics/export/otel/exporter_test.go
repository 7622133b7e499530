package otel

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fintrackhq/authkit"
)

type fakeSource struct {
	snapshot authkit.MetricsSnapshot
	dropped  uint64
}

func (s *fakeSource) MetricsSnapshot() authkit.MetricsSnapshot { return s.snapshot }
func (s *fakeSource) AuditDropped() uint64                     { return s.dropped }

func TestExporterObservesCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	meter := provider.Meter("authkit-test")

	source := &fakeSource{
		snapshot: authkit.MetricsSnapshot{Counters: map[authkit.MetricID]uint64{
			authkit.MetricLoginSuccess: 7,
			authkit.MetricRefreshReuse: 2,
		}},
		dropped: 3,
	}

	exporter, err := NewExporter(meter, source)
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	t.Cleanup(func() { _ = exporter.Close() })

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	got := collectValues(&rm)
	if got["authkit_login_success_total"] != 7 {
		t.Fatalf("login_success = %d", got["authkit_login_success_total"])
	}
	if got["authkit_refresh_reuse_total"] != 2 {
		t.Fatalf("refresh_reuse = %d", got["authkit_refresh_reuse_total"])
	}
	if got["authkit_audit_dropped_total"] != 3 {
		t.Fatalf("audit_dropped = %d", got["authkit_audit_dropped_total"])
	}
	if got["authkit_logout_total"] != 0 {
		t.Fatalf("logout = %d", got["authkit_logout_total"])
	}
}

func TestExporterValidation(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	meter := provider.Meter("authkit-test")

	if _, err := NewExporter(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("nil meter: %v", err)
	}
	if _, err := NewExporter(meter, nil); err != ErrNilSource {
		t.Fatalf("nil source: %v", err)
	}
}

func TestExporterCloseUnregisters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	meter := provider.Meter("authkit-test")

	source := &fakeSource{snapshot: authkit.MetricsSnapshot{Counters: map[authkit.MetricID]uint64{}}}
	exporter, err := NewExporter(meter, source)
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	if err := exporter.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Double close is harmless.
	if err := exporter.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func collectValues(rm *metricdata.ResourceMetrics) map[string]int64 {
	out := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, point := range sum.DataPoints {
				out[m.Name] = point.Value
			}
		}
	}
	return out
}
