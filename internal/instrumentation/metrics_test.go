package instrumentation

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T, detailed bool) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), detailed)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// sumByAttrs collects the named Int64 sum and returns values keyed by the
// value of attribute key.
func sumByAttrs(t *testing.T, reader *sdkmetric.ManualReader, name, key string) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != name {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is %T, want Sum[int64]", name, md.Data)
			}
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key(key))
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestMetrics_RecordToolInvocation(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordToolInvocation(ctx, "calendly", "get_user", StatusSuccess, 10*time.Millisecond)
	m.RecordToolInvocation(ctx, "calendly", "get_user", StatusError, 10*time.Millisecond)
	m.RecordToolInvocation(ctx, "gmail", "send_email", StatusSuccess, 10*time.Millisecond)

	byTool := sumByAttrs(t, reader, "tool_invocations_total", attrTool)
	if byTool["calendly"] != 2 || byTool["gmail"] != 1 {
		t.Errorf("unexpected counts by tool: %v", byTool)
	}

	byAction := sumByAttrs(t, reader, "tool_invocations_total", attrAction)
	if byAction[""] != 3 {
		t.Errorf("action label should be absent without detailed labels, got %v", byAction)
	}
}

func TestMetrics_RecordToolInvocation_DetailedLabels(t *testing.T) {
	m, reader := newTestMetrics(t, true)
	ctx := context.Background()

	m.RecordToolInvocation(ctx, "calendly", "get_user", StatusSuccess, time.Millisecond)
	m.RecordToolInvocation(ctx, "calendly", "Robert'); DROP TABLE", StatusError, time.Millisecond)

	byAction := sumByAttrs(t, reader, "tool_invocations_total", attrAction)
	if byAction["get_user"] != 1 || byAction[ActionOther] != 1 {
		t.Errorf("unexpected counts by action: %v", byAction)
	}
}

func TestMetrics_RecordCredentialRefresh(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordCredentialRefresh(ctx, "google", "success")
	m.RecordCredentialRefresh(ctx, "google", "failure")
	m.RecordCredentialRefresh(ctx, "calendly", "stale")

	byProvider := sumByAttrs(t, reader, "credential_refresh_total", attrProvider)
	if byProvider["google"] != 2 || byProvider["calendly"] != 1 {
		t.Errorf("unexpected counts by provider: %v", byProvider)
	}
}

func TestMetrics_RecordPoolInFlight(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordPoolInFlight(ctx, "gmail", 1)
	m.RecordPoolInFlight(ctx, "gmail", 1)
	m.RecordPoolInFlight(ctx, "gmail", -1)

	byPool := sumByAttrs(t, reader, "workerpool_inflight", attrPool)
	if byPool["gmail"] != 1 {
		t.Errorf("expected gmail in-flight 1, got %v", byPool)
	}
}

func TestMetrics_RecordRateLimitedAndAPI(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordRateLimited(ctx, "google_drive")
	m.RecordAPIOperation(ctx, ServiceDrive, OperationList, StatusSuccess, 20*time.Millisecond)
	m.RecordHTTPRequest(ctx, "POST", "/mcp", 200, time.Millisecond)

	if got := sumByAttrs(t, reader, "rate_limited_total", attrTool); got["google_drive"] != 1 {
		t.Errorf("rate_limited_total = %v", got)
	}
	if got := sumByAttrs(t, reader, "external_api_operations_total", attrService); got[ServiceDrive] != 1 {
		t.Errorf("external_api_operations_total = %v", got)
	}
	if got := sumByAttrs(t, reader, "http_requests_total", attrStatus); got["200"] != 1 {
		t.Errorf("http_requests_total = %v", got)
	}
}

func TestMetrics_NilAndZeroAreNoOps(t *testing.T) {
	ctx := context.Background()

	var nilMetrics *Metrics
	nilMetrics.RecordToolInvocation(ctx, "t", "a", StatusSuccess, time.Second)
	nilMetrics.RecordCredentialRefresh(ctx, "p", "success")
	nilMetrics.RecordPoolInFlight(ctx, "p", 1)

	zero := &Metrics{}
	zero.RecordRateLimited(ctx, "t")
	zero.RecordAPIOperation(ctx, "s", "o", StatusError, time.Second)
	zero.RecordHTTPRequest(ctx, "GET", "/", 200, time.Second)
}
