package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "openai_bridge"

// Modes and statuses used as label values.
const (
	ModeBlocking  = "blocking"
	ModeStreaming = "streaming"

	StatusSuccess   = "success"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// Collector tracks chat completion traffic.
//
// Metrics:
//   - openai_bridge_requests_total: requests by mode and status
//   - openai_bridge_request_duration_seconds: request duration by mode
//   - openai_bridge_tokens_total: estimated tokens by type (prompt, completion)
//   - openai_bridge_stream_frames_total: content frames written to streaming clients
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	streamFrames    prometheus.Counter
}

// NewCollector creates a Collector on its own registry. Go runtime and
// process collectors are registered alongside.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of chat completion requests",
			},
			[]string{"mode", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of chat completion requests in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"mode"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "Estimated tokens processed (whitespace approximation)",
			},
			[]string{"type"},
		),

		streamFrames: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_frames_total",
				Help:      "Content frames written to streaming clients",
			},
		),
	}

	c.registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.tokensTotal,
		c.streamFrames,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// RecordRequest records one finished request. A nil Collector is a no-op.
func (c *Collector) RecordRequest(mode, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(mode, status).Inc()
	c.requestDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordTokens records estimated prompt and completion tokens.
func (c *Collector) RecordTokens(promptTokens, completionTokens int) {
	if c == nil {
		return
	}
	if promptTokens > 0 {
		c.tokensTotal.WithLabelValues("prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		c.tokensTotal.WithLabelValues("completion").Add(float64(completionTokens))
	}
}

func (c *Collector) RecordStreamFrame() {
	if c == nil {
		return
	}
	c.streamFrames.Inc()
}

// Handler returns an HTTP handler exposing the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
