package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsInitialized(t *testing.T) {
	Init()
	Init() // second call must not re-register

	if PageViews == nil || RawRequests == nil || CounterErrors == nil {
		t.Fatal("page metrics not initialized")
	}
	if BotCommands == nil || BotSends == nil || BotReady == nil {
		t.Fatal("bot metrics not initialized")
	}
	if HTTPRequests == nil || HTTPDuration == nil || VisitCount == nil || RateLimitRejects == nil {
		t.Fatal("http metrics not initialized")
	}
}

func TestCounterHelpers(t *testing.T) {
	Init()

	before := testutil.ToFloat64(PageViews)
	IncPageView()
	if got := testutil.ToFloat64(PageViews); got != before+1 {
		t.Errorf("page views = %v, want %v", got, before+1)
	}

	tests := []struct {
		name string
		c    prometheus.Collector
		inc  func()
	}{
		{"raw thanks", RawRequests.WithLabelValues("thanks"), func() { IncRaw("thanks") }},
		{"counter error", CounterErrors.WithLabelValues("increment"), func() { IncCounterError("increment") }},
		{"bot command", BotCommands.WithLabelValues("discord", "start"), func() { IncBotCommand("discord", "start") }},
		{"bot send", BotSends.WithLabelValues("discord", "dropped"), func() { IncBotSend("discord", "dropped") }},
		{"rate limited", RateLimitRejects, IncRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(tt.c)
			tt.inc()
			tt.inc()
			if got := testutil.ToFloat64(tt.c); got != before+2 {
				t.Errorf("value = %v, want %v", got, before+2)
			}
		})
	}
}

func TestGaugeHelpers(t *testing.T) {
	Init()

	SetVisitCount(42)
	if got := testutil.ToFloat64(VisitCount); got != 42 {
		t.Errorf("visit count = %v, want 42", got)
	}
	SetBotReady("twitch", true)
	if got := testutil.ToFloat64(BotReady.WithLabelValues("twitch")); got != 1 {
		t.Errorf("bot ready = %v, want 1", got)
	}
	SetBotReady("twitch", false)
	if got := testutil.ToFloat64(BotReady.WithLabelValues("twitch")); got != 0 {
		t.Errorf("bot ready = %v, want 0", got)
	}
}

func TestObserveHTTP(t *testing.T) {
	Init()

	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "404"))
	ObserveHTTP("GET", "not_found", 404, 3*time.Millisecond)
	if got := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "404")); got != before+1 {
		t.Errorf("requests = %v, want %v", got, before+1)
	}
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	testHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration",
		Buckets: prometheus.DefBuckets,
	})

	executed := false
	duration := TimeFunc(testHistogram, func() {
		time.Sleep(10 * time.Millisecond)
		executed = true
	})
	if !executed {
		t.Error("TimeFunc did not execute provided function")
	}
	if duration < 10*time.Millisecond {
		t.Errorf("TimeFunc duration = %v, want >= 10ms", duration)
	}

	metric := &dto.Metric{}
	if err := testHistogram.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram == nil || metric.Histogram.GetSampleCount() != 1 {
		t.Error("TimeFunc did not record observation in histogram")
	}

	// nil observer is allowed
	TimeFunc(nil, func() {})
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Fatalf("GetCorrelation on bare context = %q", got)
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Fatalf("GetCorrelation = %q, want abc-123", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Fatal("LoggerWithCorr returned nil")
	}
}

func TestInitTracingDisabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	shutdown, err := InitTracing("tribute-test", "test")
	if err != nil {
		t.Fatalf("InitTracing() error: %v", err)
	}
	shutdown()
	if IsTracingEnabled() {
		t.Fatal("tracing should be disabled without an endpoint")
	}

	// spans are no-ops without a provider but must still be usable
	_, span := StartSpan(WithCorrelation(context.Background(), "c1"), "test", "op", HTTPRouteAttr("/"))
	SetSpanHTTPStatus(span, 500)
	RecordError(span, nil)
	span.End()
}
