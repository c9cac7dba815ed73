package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// outcome: created, existing, empty
	MissionsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missions_generated_total",
			Help: "Daily mission generation results",
		},
		[]string{"outcome"},
	)

	MissionRegenerations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mission_regenerations_total",
			Help: "Explicit mission regenerations",
		},
	)

	MissionEstimatedMinutes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mission_estimated_minutes",
			Help:    "Total estimated minutes of generated missions",
			Buckets: []float64{20, 35, 50, 60, 75, 90, 120},
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(MissionsGenerated)
	prometheus.MustRegister(MissionRegenerations)
	prometheus.MustRegister(MissionEstimatedMinutes)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
