// Package metrics exposes Prometheus instrumentation for the bot. Collectors
// cover the admission pipeline (request counts, latencies, rejections) and
// per-feature activity (AI calls, transcriptions, images, smart-home and
// vehicle commands, market-data lookups) with careful attention to label
// cardinality:
//
//   - command: the leading command token without the sigil (e.g. "ask"),
//     or "chat"/"echo"/"unknown"/"callback" for the catch-all routes
//   - error_type / provider: small fixed vocabularies
//
// All collectors are registered once at package load and are safe for
// concurrent use. The /metrics endpoint is served by the HTTP surface via
// promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Requests counts every update that enters the admission pipeline.
	Requests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_bot_requests_total",
			Help: "Total number of inbound requests.",
		},
	)

	// RequestDuration records end-to-end handling latency in seconds.
	RequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "telegram_bot_request_duration_seconds",
			Help:    "Duration of request handling in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Commands counts dispatched commands by name.
	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_bot_commands_total",
			Help: "Total commands executed.",
		},
		[]string{"command"},
	)

	// Errors counts handler failures by coarse error type.
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_bot_errors_total",
			Help: "Total errors.",
		},
		[]string{"error_type"},
	)

	// Unauthorized counts requests rejected by the authorization gate.
	Unauthorized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_bot_unauthorized_total",
			Help: "Requests rejected by the allow-list.",
		},
	)

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_bot_rate_limited_total",
			Help: "Requests rejected by the per-user rate limiter.",
		},
	)

	// ActiveUsers gauges identities seen in the current rate window.
	ActiveUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "telegram_bot_active_users",
			Help: "Number of identities with activity in the rate window.",
		},
	)

	// AIRequests counts LLM calls by provider.
	AIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_bot_ai_requests_total",
			Help: "AI requests.",
		},
		[]string{"provider"},
	)

	// VoiceMessages counts transcriptions performed.
	VoiceMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_bot_voice_messages_total",
			Help: "Voice messages processed.",
		},
	)

	// ImagesGenerated counts generated images.
	ImagesGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_bot_images_generated_total",
			Help: "Images generated.",
		},
	)

	// SmartHomeCommands counts home-automation service calls.
	SmartHomeCommands = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_bot_smart_home_commands_total",
			Help: "Smart home commands.",
		},
	)

	// TeslaCommands counts vehicle telematics calls.
	TeslaCommands = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_bot_tesla_commands_total",
			Help: "Tesla commands.",
		},
	)

	// FinanceRequests counts market-data lookups.
	FinanceRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_bot_finance_requests_total",
			Help: "Finance requests.",
		},
	)

	// TelemetryFailures counts activity-record deliveries that failed.
	// Delivery failures never surface to the user; this counter is the only
	// operator-visible signal besides the warning log.
	TelemetryFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_bot_telemetry_failures_total",
			Help: "Activity record deliveries that failed.",
		},
	)

	// CacheHits and CacheMisses track response-cache effectiveness by
	// call-site namespace (e.g. "stock", "crypto", "rss", "news").
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_bot_cache_hits_total",
			Help: "Response cache hits.",
		},
		[]string{"namespace"},
	)
	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_bot_cache_misses_total",
			Help: "Response cache misses.",
		},
		[]string{"namespace"},
	)
)

func init() {
	prometheus.MustRegister(
		Requests, RequestDuration, Commands, Errors,
		Unauthorized, RateLimited, ActiveUsers,
		AIRequests, VoiceMessages, ImagesGenerated,
		SmartHomeCommands, TeslaCommands, FinanceRequests,
		TelemetryFailures, CacheHits, CacheMisses,
	)
}
