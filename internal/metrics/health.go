package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// dependencyUp is 1 when the last ping to a dependency succeeded, else 0.
	// Labels:
	// - dependency: "db" or "redis"
	dependencyUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "shopmail",
		Subsystem: "health",
		Name:      "up",
		Help:      "Dependency availability (1=up, 0=down).",
	}, []string{"dependency"})

	dependencyPingSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shopmail",
		Subsystem: "health",
		Name:      "ping_seconds",
		Help:      "Dependency ping latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"dependency"})
)

// Ping runs fn, records availability and latency under the dependency label
// and returns "ok" or "down" for health responses.
func Ping(ctx context.Context, dependency string, fn func(context.Context) error) string {
	start := time.Now()
	err := fn(ctx)
	dependencyPingSeconds.WithLabelValues(dependency).Observe(time.Since(start).Seconds())
	if err != nil {
		dependencyUp.WithLabelValues(dependency).Set(0)
		return "down"
	}
	dependencyUp.WithLabelValues(dependency).Set(1)
	return "ok"
}
