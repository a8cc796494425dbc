package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// rateLimitExceeded counts HTTP 429 events from the rate limit middleware.
	// Labels:
	// - endpoint: short name like "mail:test-email"
	// - source:   "tenant" or "ip"
	rateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopmail",
			Subsystem: "http",
			Name:      "rate_limit_exceeded_total",
			Help:      "Number of requests rejected due to rate limiting (HTTP 429)",
		},
		[]string{"endpoint", "source"},
	)

	// mailSends counts SendMail outcomes.
	// Labels:
	// - outcome: "primary", "degraded", "fallback" or "failed"
	mailSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopmail",
			Subsystem: "mail",
			Name:      "sends_total",
			Help:      "Number of SendMail calls by outcome",
		},
		[]string{"outcome"},
	)

	// mailVerify counts transport verification handshakes.
	// Labels:
	// - source: "tenant", "override" or "default"
	// - result: "success" or "failure"
	mailVerify = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopmail",
			Subsystem: "mail",
			Name:      "verify_total",
			Help:      "Number of SMTP verify handshakes by config source and result",
		},
		[]string{"source", "result"},
	)

	// mailCache counts transport cache lookups ("hit" or "miss").
	mailCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopmail",
			Subsystem: "mail",
			Name:      "cache_total",
			Help:      "Transport cache lookups by result",
		},
		[]string{"result"},
	)

	mailCacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shopmail",
		Subsystem: "mail",
		Name:      "cache_entries",
		Help:      "Number of cached tenant transports",
	})

	mailSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shopmail",
			Subsystem: "mail",
			Name:      "send_duration_seconds",
			Help:      "Duration of SendMail including fallback",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
)

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// IncRateLimitExceeded increments the 429 counter for the given endpoint and source.
func IncRateLimitExceeded(endpoint, source string) {
	rateLimitExceeded.WithLabelValues(orUnknown(endpoint), orUnknown(source)).Inc()
}

// ObserveMailSend records one SendMail outcome and its duration.
func ObserveMailSend(outcome string, seconds float64) {
	outcome = orUnknown(outcome)
	mailSends.WithLabelValues(outcome).Inc()
	mailSendDuration.WithLabelValues(outcome).Observe(seconds)
}

// IncMailVerify increments the verify counter.
func IncMailVerify(source string, ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	mailVerify.WithLabelValues(orUnknown(source), result).Inc()
}

func IncMailCache(hit bool) {
	if hit {
		mailCache.WithLabelValues("hit").Inc()
		return
	}
	mailCache.WithLabelValues("miss").Inc()
}

func SetMailCacheEntries(n int) { mailCacheEntries.Set(float64(n)) }
