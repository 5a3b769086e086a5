package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, which keeps component constructors usable in tests.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Proxy metrics
	ProxyFetches       *prometheus.CounterVec
	ProxyFetchDuration *prometheus.HistogramVec
	RewriteFallbacks   *prometheus.CounterVec

	// Realtime metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec
	WSDropped     prometheus.Counter
	Rooms         prometheus.Gauge
	Broadcasts    *prometheus.CounterVec

	// Persistence metrics
	Mutations *prometheus.CounterVec
	Mentions  prometheus.Counter

	// Capture metrics
	Captures        *prometheus.CounterVec
	CaptureDuration *prometheus.HistogramVec
	PagesInUse      prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
	stop      chan struct{}
	stopOnce  sync.Once

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"totalRequests"`
	TotalErrors       int64   `json:"totalErrors"`
	ActiveConnections int64   `json:"activeConnections"`
	ProxyFetches      int64   `json:"proxyFetches"`
	Captures          int64   `json:"captures"`
	CapturesSkipped   int64   `json:"capturesSkipped"`
	AvgLatencyMs      float64 `json:"avgLatencyMs"`
	UptimeSeconds     float64 `json:"uptimeSeconds"`

	totalDuration float64
}

var latencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// NewMetrics creates a metrics collector registered on reg. Each server owns
// its registry so several instances can coexist in one process.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),
		stop:      make(chan struct{}),

		// HTTP metrics
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviewcanvas_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reviewcanvas_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: latencyBuckets,
			},
			[]string{"method", "route"},
		),
		ResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reviewcanvas_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "route"},
		),

		// Proxy metrics
		ProxyFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviewcanvas_proxy_fetches_total",
				Help: "Upstream fetches by browser profile, content kind and outcome",
			},
			[]string{"profile", "kind", "outcome"},
		),
		ProxyFetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reviewcanvas_proxy_fetch_duration_seconds",
				Help:    "Upstream fetch plus rewrite duration in seconds",
				Buckets: latencyBuckets,
			},
			[]string{"kind"},
		),
		RewriteFallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviewcanvas_proxy_rewrite_fallbacks_total",
				Help: "Bodies passed through unmodified because rewriting failed",
			},
			[]string{"kind"},
		),

		// Realtime metrics
		WSConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "reviewcanvas_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviewcanvas_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "event"},
		),
		WSDropped: f.NewCounter(
			prometheus.CounterOpts{
				Name: "reviewcanvas_ws_dropped_total",
				Help: "Outbound frames dropped because a client queue was full",
			},
		),
		Rooms: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "reviewcanvas_rooms",
				Help: "Number of rooms with at least one member",
			},
		),
		Broadcasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviewcanvas_broadcasts_total",
				Help: "Room broadcasts by event",
			},
			[]string{"event"},
		),

		// Persistence metrics
		Mutations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviewcanvas_mutations_total",
				Help: "Comment and review mutations by entity, operation and status",
			},
			[]string{"entity", "op", "status"},
		),
		Mentions: f.NewCounter(
			prometheus.CounterOpts{
				Name: "reviewcanvas_mention_notifications_total",
				Help: "Mention notifications dispatched",
			},
		),

		// Capture metrics
		Captures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviewcanvas_captures_total",
				Help: "Point-of-interest captures by renderer and outcome",
			},
			[]string{"renderer", "outcome"},
		),
		CaptureDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reviewcanvas_capture_duration_seconds",
				Help:    "Capture duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"renderer"},
		),
		PagesInUse: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "reviewcanvas_browser_pages_in_use",
				Help: "Headless browser pages currently checked out",
			},
		),

		// System metrics
		Uptime: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "reviewcanvas_uptime_seconds",
				Help: "Backend uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Close stops the uptime updater.
func (m *Metrics) Close() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() { close(m.stop) })
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		}
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, route).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordProxyFetch records one upstream fetch.
func (m *Metrics) RecordProxyFetch(profile, kind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ProxyFetches.WithLabelValues(profile, kind, outcome).Inc()
	m.ProxyFetchDuration.WithLabelValues(kind).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.ProxyFetches++
	m.mu.Unlock()
}

// RecordRewriteFallback records a body served unmodified after a rewrite failure.
func (m *Metrics) RecordRewriteFallback(kind string) {
	if m == nil {
		return
	}
	m.RewriteFallbacks.WithLabelValues(kind).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, event string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, event).Inc()
}

// IncWSDropped counts a frame dropped for a slow client.
func (m *Metrics) IncWSDropped() {
	if m == nil {
		return
	}
	m.WSDropped.Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// SetRooms sets the number of live rooms.
func (m *Metrics) SetRooms(count int) {
	if m == nil {
		return
	}
	m.Rooms.Set(float64(count))
}

// RecordBroadcast records one room broadcast.
func (m *Metrics) RecordBroadcast(event string) {
	if m == nil {
		return
	}
	m.Broadcasts.WithLabelValues(event).Inc()
}

// RecordMutation records a persisted comment or review mutation.
func (m *Metrics) RecordMutation(entity, op string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.Mutations.WithLabelValues(entity, op, status).Inc()
}

// AddMentions records dispatched mention notifications.
func (m *Metrics) AddMentions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Mentions.Add(float64(n))
}

// RecordCapture records one capture attempt. outcome is "success",
// "skipped" or "error".
func (m *Metrics) RecordCapture(renderer, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Captures.WithLabelValues(renderer, outcome).Inc()
	if outcome != "skipped" {
		m.CaptureDuration.WithLabelValues(renderer).Observe(duration.Seconds())
	}

	m.mu.Lock()
	m.snapshot.Captures++
	if outcome == "skipped" {
		m.snapshot.CapturesSkipped++
	}
	m.mu.Unlock()
}

// SetPagesInUse sets the number of checked out browser pages.
func (m *Metrics) SetPagesInUse(n int) {
	if m == nil {
		return
	}
	m.PagesInUse.Set(float64(n))
}
