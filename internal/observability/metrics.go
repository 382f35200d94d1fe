// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Collector metrics
	WebhookDeliveries   *prometheus.CounterVec
	EventsAccepted      prometheus.Counter
	EventsDiscarded     *prometheus.CounterVec
	SignalsDebounced    prometheus.Counter
	SignalsEmitted      *prometheus.CounterVec

	// Profile metrics
	OpenWindows     prometheus.Gauge
	WindowsEvicted  prometheus.Counter
	ProfilesScored  prometheus.Counter
	ActionsAssigned *prometheus.CounterVec

	// Router metrics
	ProfilesRouted   prometheus.Counter
	ProfilesShed     prometheus.Counter
	GatewayLatency   prometheus.Histogram
	GatewayErrors    *prometheus.CounterVec

	// Batch metrics
	BatchesAnalyzed  prometheus.Counter
	DecisionsJournal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_sniper"
	}

	return &Metrics{
		WebhookDeliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "webhook_deliveries_total",
			Help:      "Total number of webhook deliveries by channel",
		}, []string{"channel"}),
		EventsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "events_accepted_total",
			Help:      "Total number of provider events accepted by the watch filter",
		}),
		EventsDiscarded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "events_discarded_total",
			Help:      "Total number of provider events discarded by reason",
		}, []string{"reason"}),
		SignalsDebounced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "signals_debounced_total",
			Help:      "Total number of redundant deliveries merged by debounce",
		}),
		SignalsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "signals_emitted_total",
			Help:      "Total number of signals emitted by type",
		}, []string{"signal_type"}),

		OpenWindows: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "profile",
			Name:      "open_windows",
			Help:      "Current number of open per-mint accumulation windows",
		}),
		WindowsEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "profile",
			Name:      "windows_evicted_total",
			Help:      "Total number of token windows evicted by TTL or retirement",
		}),
		ProfilesScored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "profile",
			Name:      "profiles_scored_total",
			Help:      "Total number of profile snapshots produced",
		}),
		ActionsAssigned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "profile",
			Name:      "actions_assigned_total",
			Help:      "Total number of recommended actions assigned by action",
		}, []string{"action"}),

		ProfilesRouted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "profiles_routed_total",
			Help:      "Total number of profiles dispatched to the AI gateway",
		}),
		ProfilesShed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "profiles_shed_total",
			Help:      "Total number of profiles dropped under backpressure",
		}),
		GatewayLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "gateway_latency_seconds",
			Help:      "AI gateway request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		GatewayErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "gateway_errors_total",
			Help:      "Total number of gateway failures by reason",
		}, []string{"reason"}),

		BatchesAnalyzed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyze",
			Name:      "batches_total",
			Help:      "Total number of analyze batches processed",
		}),
		DecisionsJournal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyze",
			Name:      "decisions_total",
			Help:      "Total number of AI decisions recorded by outcome",
		}, []string{"outcome"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordWebhookDelivery increments the delivery counter for a channel.
func RecordWebhookDelivery(channel string) {
	DefaultMetrics.WebhookDeliveries.WithLabelValues(channel).Inc()
}

// RecordEventAccepted increments the accepted events counter.
func RecordEventAccepted() {
	DefaultMetrics.EventsAccepted.Inc()
}

// RecordEventDiscarded records a discarded provider event.
func RecordEventDiscarded(reason string) {
	DefaultMetrics.EventsDiscarded.WithLabelValues(reason).Inc()
}

// RecordSignalEmitted records one emitted signal, merged or fresh.
func RecordSignalEmitted(signalType string, merged bool) {
	DefaultMetrics.SignalsEmitted.WithLabelValues(signalType).Inc()
	if merged {
		DefaultMetrics.SignalsDebounced.Inc()
	}
}

// RecordProfileScored records one produced snapshot and its action.
func RecordProfileScored(action string) {
	DefaultMetrics.ProfilesScored.Inc()
	DefaultMetrics.ActionsAssigned.WithLabelValues(action).Inc()
}

// UpdateOpenWindows updates the open window gauge.
func UpdateOpenWindows(n int) {
	DefaultMetrics.OpenWindows.Set(float64(n))
}

// RecordEviction adds to the evicted windows counter.
func RecordEviction(n int) {
	DefaultMetrics.WindowsEvicted.Add(float64(n))
}

// RecordRouted records gateway dispatch outcomes for one batch.
func RecordRouted(dispatched, shed int) {
	DefaultMetrics.ProfilesRouted.Add(float64(dispatched))
	DefaultMetrics.ProfilesShed.Add(float64(shed))
}

// RecordGatewayLatency records one gateway round trip.
func RecordGatewayLatency(seconds float64) {
	DefaultMetrics.GatewayLatency.Observe(seconds)
}

// RecordGatewayError records a gateway failure by reason.
func RecordGatewayError(reason string) {
	DefaultMetrics.GatewayErrors.WithLabelValues(reason).Inc()
}

// RecordBatch records one analyze batch with its outcome counts.
func RecordBatch(succeeded, failed int) {
	DefaultMetrics.BatchesAnalyzed.Inc()
	DefaultMetrics.DecisionsJournal.WithLabelValues("success").Add(float64(succeeded))
	DefaultMetrics.DecisionsJournal.WithLabelValues("error").Add(float64(failed))
}
