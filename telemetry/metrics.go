// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	PageViews        prometheus.Counter
	RawRequests      *prometheus.CounterVec // label: text
	CounterErrors    *prometheus.CounterVec // label: op
	BotCommands      *prometheus.CounterVec // labels: platform, command
	BotSends         *prometheus.CounterVec // labels: platform, outcome
	HTTPRequests     *prometheus.CounterVec // labels: method, code
	RateLimitRejects prometheus.Counter

	// Histograms (seconds)
	HTTPDuration *prometheus.HistogramVec // label: route

	// Gauges
	VisitCount prometheus.Gauge
	BotReady   *prometheus.GaugeVec // label: platform; 1=ready,0=not ready
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		PageViews = promauto.NewCounter(prometheus.CounterOpts{Name: "tribute_page_views_total", Help: "Number of tribute page renders"})
		RawRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tribute_raw_requests_total", Help: "Number of plaintext tribute requests"}, []string{"text"})
		CounterErrors = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tribute_counter_errors_total", Help: "Visit counter storage failures"}, []string{"op"})
		BotCommands = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tribute_bot_commands_total", Help: "Chat commands handled"}, []string{"platform", "command"})
		BotSends = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tribute_bot_sends_total", Help: "Chat replies by delivery outcome"}, []string{"platform", "outcome"})
		HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tribute_http_requests_total", Help: "HTTP requests by method and status code"}, []string{"method", "code"})
		RateLimitRejects = promauto.NewCounter(prometheus.CounterOpts{Name: "tribute_rate_limit_rejections_total", Help: "Requests rejected by the per-IP limiter"})
		HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "tribute_http_request_duration_seconds", Help: "HTTP request duration seconds", Buckets: prometheus.DefBuckets}, []string{"route"})
		VisitCount = promauto.NewGauge(prometheus.GaugeOpts{Name: "tribute_visit_count", Help: "Last visit count observed by this process"})
		BotReady = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "tribute_bot_ready", Help: "Chat client ready=1 otherwise 0"}, []string{"platform"})
	})
}

// IncPageView records a page render.
func IncPageView() {
	if PageViews != nil {
		PageViews.Inc()
	}
}

// IncRaw records a plaintext request for text ("thanks" or "glory").
func IncRaw(text string) {
	if RawRequests != nil {
		RawRequests.WithLabelValues(text).Inc()
	}
}

// IncCounterError records a counter storage failure for op ("increment" or "get").
func IncCounterError(op string) {
	if CounterErrors != nil {
		CounterErrors.WithLabelValues(op).Inc()
	}
}

// IncBotCommand records a handled chat command.
func IncBotCommand(platform, command string) {
	if BotCommands != nil {
		BotCommands.WithLabelValues(platform, command).Inc()
	}
}

// IncBotSend records the delivery outcome of a chat reply.
func IncBotSend(platform, outcome string) {
	if BotSends != nil {
		BotSends.WithLabelValues(platform, outcome).Inc()
	}
}

// IncRateLimited records a rejected request.
func IncRateLimited() {
	if RateLimitRejects != nil {
		RateLimitRejects.Inc()
	}
}

// ObserveHTTP records one finished HTTP request.
func ObserveHTTP(method, route string, code int, d time.Duration) {
	if HTTPRequests != nil {
		HTTPRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	}
	if HTTPDuration != nil {
		HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
	}
}

// SetVisitCount records the latest visit count seen.
func SetVisitCount(n int64) {
	if VisitCount != nil {
		VisitCount.Set(float64(n))
	}
}

// SetBotReady sets the ready gauge for platform.
func SetBotReady(platform string, ready bool) {
	if BotReady == nil {
		return
	}
	if ready {
		BotReady.WithLabelValues(platform).Set(1)
	} else {
		BotReady.WithLabelValues(platform).Set(0)
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
