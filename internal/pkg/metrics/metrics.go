package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainschedule",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trainschedule",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trainschedule",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Railway-specific metrics
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainschedule",
		Subsystem: "tdx",
		Name:      "token_refreshes_total",
		Help:      "Access token refresh attempts by result",
	}, []string{"result"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trainschedule",
		Subsystem: "tdx",
		Name:      "request_duration_seconds",
		Help:      "Duration of timetable API calls",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	APIRequestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainschedule",
		Subsystem: "tdx",
		Name:      "request_errors_total",
		Help:      "Failed timetable API calls",
	}, []string{"endpoint"})

	CatalogRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainschedule",
		Subsystem: "catalog",
		Name:      "refreshes_total",
		Help:      "Station/line catalog refreshes by result status",
	}, []string{"status"})

	ScraperParses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainschedule",
		Subsystem: "scraper",
		Name:      "parses_total",
		Help:      "Timetable page parse attempts by layout parser and outcome",
	}, []string{"parser", "outcome"})

	ScraperFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trainschedule",
		Subsystem: "scraper",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of timetable page downloads",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	LiveBoardPolls = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trainschedule",
		Subsystem: "liveboard",
		Name:      "polls_total",
		Help:      "Live-board feed polls",
	})

	LiveBoardPollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trainschedule",
		Subsystem: "liveboard",
		Name:      "poll_errors_total",
		Help:      "Live-board feed polls that failed and yielded no rows",
	})

	ActiveTrackers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trainschedule",
		Subsystem: "liveboard",
		Name:      "active_trackers",
		Help:      "Trains currently being tracked",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trainschedule",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainschedule",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainschedule",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trainschedule",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trainschedule",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trainschedule",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics copies pool gauges from a pgxpool.Stat. It takes an
// interface so this package stays free of the driver import.
func UpdateDBPoolMetrics(stat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}) {
	DBPoolConnsAcquired.Set(float64(stat.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(stat.IdleConns()))
	DBPoolConnsOpen.Set(float64(stat.TotalConns()))
}
