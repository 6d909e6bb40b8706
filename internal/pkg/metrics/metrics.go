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
		Namespace: "ebtfinder",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ebtfinder",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ebtfinder",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Search metrics
	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ebtfinder",
		Subsystem: "search",
		Name:      "requests_total",
		Help:      "Total location searches by mode, category and outcome",
	}, []string{"mode", "category", "outcome"})

	SearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ebtfinder",
		Subsystem: "search",
		Name:      "duration_seconds",
		Help:      "End-to-end location search latency",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"mode"})

	SearchCandidates = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ebtfinder",
		Subsystem: "search",
		Name:      "candidates",
		Help:      "Candidates returned by the storage prefilter per search",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"mode"})

	TrendingFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ebtfinder",
		Subsystem: "search",
		Name:      "trending_fallbacks_total",
		Help:      "Trending searches that had no click evidence",
	})

	// Click metrics
	ClicksRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ebtfinder",
		Subsystem: "clicks",
		Name:      "recorded_total",
		Help:      "Click events accepted, by delivery path",
	}, []string{"path"})

	ClicksPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ebtfinder",
		Subsystem: "clicks",
		Name:      "pruned_total",
		Help:      "Click events deleted by the retention workflow",
	})

	LocationsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ebtfinder",
		Subsystem: "ingest",
		Name:      "locations_total",
		Help:      "Retailer rows processed by the ingestor",
	}, []string{"result"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ebtfinder",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ebtfinder",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ebtfinder",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ebtfinder",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ebtfinder",
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

// UpdateDBPoolMetrics updates database pool gauges from a pgxpool.Stat.
// The stat is taken as an interface so this package does not import pgx.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
