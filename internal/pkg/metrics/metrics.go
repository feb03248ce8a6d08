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
		Namespace: "streetrisk",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "streetrisk",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "streetrisk",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Scoring metrics
	ScoringPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "streetrisk",
		Subsystem: "scoring",
		Name:      "pass_duration_seconds",
		Help:      "Duration of a full scoring pass including geometry fetch",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	StreetsScored = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "streetrisk",
		Subsystem: "scoring",
		Name:      "streets",
		Help:      "Streets produced by the last scoring pass, by color bucket",
	}, []string{"bucket"})

	FragmentsScored = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "streetrisk",
		Subsystem: "scoring",
		Name:      "fragments",
		Help:      "Way fragments with at least one nearby sample in the last pass",
	})

	SamplesLoaded = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "streetrisk",
		Subsystem: "scoring",
		Name:      "samples_loaded",
		Help:      "Point samples loaded for the last pass, by source",
	}, []string{"source"})

	DegradedPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streetrisk",
		Subsystem: "scoring",
		Name:      "degraded_passes_total",
		Help:      "Scoring passes that ran with missing geometry or samples",
	}, []string{"reason"})

	// Overpass metrics
	OverpassFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "streetrisk",
		Subsystem: "overpass",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of Overpass requests per endpoint",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"endpoint"})

	OverpassFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streetrisk",
		Subsystem: "overpass",
		Name:      "fetch_errors_total",
		Help:      "Failed Overpass requests per endpoint",
	}, []string{"endpoint"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "streetrisk",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streetrisk",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streetrisk",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "streetrisk",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "streetrisk",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "streetrisk",
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

// PoolStat is the subset of pgxpool.Stat reported as gauges.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// UpdateDBPoolMetrics updates database pool gauges from pgx pool stats.
func UpdateDBPoolMetrics(s PoolStat) {
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))
}

// ObserveRun records the gauges describing a finished scoring pass.
func ObserveRun(duration time.Duration, fragments int, buckets map[string]int, samples map[string]int) {
	ScoringPassDuration.Observe(duration.Seconds())
	FragmentsScored.Set(float64(fragments))
	for bucket, n := range buckets {
		StreetsScored.WithLabelValues(bucket).Set(float64(n))
	}
	for source, n := range samples {
		SamplesLoaded.WithLabelValues(source).Set(float64(n))
	}
}
