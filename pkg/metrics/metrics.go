// Package metrics provides Prometheus metrics for the precision-landing service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "lander"
)

// registry is the service-private metrics registry. Handlers serve it via
// GetRegistry so the default global registry stays untouched.
var registry = prometheus.NewRegistry()

var (
	// Tracker metrics.
	framesProcessed = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tracker",
		Name:      "frames_processed_total",
		Help:      "Total image frames run through the tracker.",
	})
	framesCorrupt = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tracker",
		Name:      "frames_corrupt_total",
		Help:      "Frames skipped because the pixel buffer was malformed.",
	})
	detections = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tracker",
		Name:      "detections_total",
		Help:      "Frames in which the landing target was detected.",
	})
	observationConfidence = promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "tracker",
		Name:      "observation_confidence",
		Help:      "Confidence of published valid observations.",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	})

	// Commander metrics.
	currentPhase = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "commander",
		Name:      "phase",
		Help:      "Current commander phase as an ordinal.",
	})
	phaseTransitions = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "commander",
		Name:      "phase_transitions_total",
		Help:      "Phase transitions keyed by destination phase.",
	}, []string{"to"})
	targetLosses = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "commander",
		Name:      "target_losses_total",
		Help:      "Times the target was lost long enough to force re-acquisition.",
	})
	commandsIssued = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "commander",
		Name:      "commands_issued_total",
		Help:      "Guidance commands dispatched to the vehicle interface.",
	})
	tickDuration = promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "commander",
		Name:      "tick_duration_seconds",
		Help:      "Wall time of a single control tick.",
		Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 8),
	})

	// Vehicle boundary metrics.
	vehicleStateUpdates = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "vehicle",
		Name:      "state_updates_total",
		Help:      "Vehicle state messages received from the flight controller bridge.",
	})

	// Telemetry relay metrics.
	relayPublishes = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "telemetry",
		Name:      "relay_publishes_total",
		Help:      "Messages republished on the telemetry relay.",
	})
	relayErrors = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "telemetry",
		Name:      "relay_errors_total",
		Help:      "Failed telemetry relay publishes.",
	})

	// HTTP status surface metrics.
	httpRequests = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	httpRequestDuration = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request duration in milliseconds.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"endpoint", "method"})
)

// GetRegistry returns the registry backing all service metrics.
func GetRegistry() *prometheus.Registry { return registry }

// RecordFrameProcessed counts one frame through the tracker.
func RecordFrameProcessed() { framesProcessed.Inc() }

// RecordFrameCorrupt counts a skipped malformed frame.
func RecordFrameCorrupt() { framesCorrupt.Inc() }

// RecordDetection counts a successful target detection.
func RecordDetection() { detections.Inc() }

// RecordObservationConfidence records the confidence of a valid observation.
func RecordObservationConfidence(c float64) { observationConfidence.Observe(c) }

// UpdatePhase sets the current commander phase ordinal.
func UpdatePhase(ordinal int) { currentPhase.Set(float64(ordinal)) }

// RecordPhaseTransition counts a transition into the named phase.
func RecordPhaseTransition(to string) { phaseTransitions.WithLabelValues(to).Inc() }

// RecordTargetLoss counts a forced re-acquisition.
func RecordTargetLoss() { targetLosses.Inc() }

// RecordCommandIssued counts a dispatched guidance command.
func RecordCommandIssued() { commandsIssued.Inc() }

// RecordTickDuration records the wall time of one control tick.
func RecordTickDuration(seconds float64) { tickDuration.Observe(seconds) }

// RecordVehicleStateUpdate counts a received vehicle state message.
func RecordVehicleStateUpdate() { vehicleStateUpdates.Inc() }

// RecordRelayPublish counts a telemetry relay publish.
func RecordRelayPublish() { relayPublishes.Inc() }

// RecordRelayError counts a failed telemetry relay publish.
func RecordRelayError() { relayErrors.Inc() }

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration records an HTTP request's duration.
func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}
