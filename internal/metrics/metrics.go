// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HostsTracked is the number of hosts currently in the controller index.
	HostsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gaze_hosts_tracked",
			Help: "Number of hosts currently tracked by the controller",
		},
	)

	// HostsLinked is 1 while a host is linked, 0 otherwise.
	HostsLinked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gaze_hosts_linked",
			Help: "Number of linked hosts (never more than one)",
		},
	)

	// HostEventsTotal counts published controller events by kind.
	HostEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gaze_host_events_total",
			Help: "Total number of controller events published, by kind",
		},
		[]string{"kind"},
	)

	// ProtocolEventsTotal counts protocol events by subject and result.
	ProtocolEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gaze_protocol_events_total",
			Help: "Total number of protocol events handled, by subject and result",
		},
		[]string{"subject", "result"},
	)

	// SensorErrorsTotal counts sensor I/O failures by host and sensor type.
	SensorErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gaze_sensor_errors_total",
			Help: "Total number of sensor I/O errors",
		},
		[]string{"host", "sensor"},
	)

	// HostsDegradedTotal counts transitions of a host into the degraded state.
	HostsDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gaze_hosts_degraded_total",
			Help: "Total number of times a host was marked degraded",
		},
		[]string{"host"},
	)

	FramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gaze_frames_total",
			Help: "Total number of scene frames fetched from the linked host",
		},
	)

	GazeSamplesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gaze_samples_total",
			Help: "Total number of coalesced gaze samples fetched from the linked host",
		},
	)

	// MapOutcomesTotal counts mapper results by reason.
	MapOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gaze_map_outcomes_total",
			Help: "Total number of gaze mapping outcomes, by reason",
		},
		[]string{"reason"},
	)

	// PointerActionsTotal counts pointer injections by action and status.
	PointerActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gaze_pointer_actions_total",
			Help: "Total number of pointer actions injected, by action and status",
		},
		[]string{"action", "status"},
	)

	// VoiceCommandsTotal counts voice commands by status (queued, dropped, performed).
	VoiceCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gaze_voice_commands_total",
			Help: "Total number of voice commands, by status",
		},
		[]string{"status"},
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gaze_tick_duration_seconds",
			Help:    "Duration of one poll loop tick in seconds",
			Buckets: []float64{0.0005, 0.001, 0.004, 0.008, 0.016, 0.033, 0.1},
		},
	)
)

// SetHostCounts updates the tracked and linked host gauges.
func SetHostCounts(tracked int, linked bool) {
	HostsTracked.Set(float64(tracked))
	if linked {
		HostsLinked.Set(1)
	} else {
		HostsLinked.Set(0)
	}
}

func RecordHostEvent(kind string) {
	HostEventsTotal.WithLabelValues(kind).Inc()
}

// RecordProtocolEvent counts one protocol event. result is "applied",
// "ignored" or "rejected".
func RecordProtocolEvent(subject, result string) {
	ProtocolEventsTotal.WithLabelValues(subject, result).Inc()
}

func RecordSensorError(host, sensor string) {
	SensorErrorsTotal.WithLabelValues(host, sensor).Inc()
}

func RecordHostDegraded(host string) {
	HostsDegradedTotal.WithLabelValues(host).Inc()
}

// RecordMapOutcome counts one mapper result.
func RecordMapOutcome(reason string) {
	MapOutcomesTotal.WithLabelValues(reason).Inc()
}

// RecordPointerAction counts one pointer injection. A nil err is recorded
// as "success".
func RecordPointerAction(action string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	PointerActionsTotal.WithLabelValues(action, status).Inc()
}

func RecordVoiceCommand(status string) {
	VoiceCommandsTotal.WithLabelValues(status).Inc()
}
