package hostctl

import (
	"time"
)

// HealthStatus summarises the stream health of a linked host.
type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusFailing  HealthStatus = "failing"
	StatusDegraded HealthStatus = "degraded"
)

// Health is a copy of one host's stream health.
type Health struct {
	Status      HealthStatus `json:"status"`
	Failures    int          `json:"failures"`
	LastError   string       `json:"lastError,omitempty"`
	LastFailure time.Time    `json:"lastFailure,omitempty"`
}

// streamHealth tracks consecutive failed fetch ticks for one linked host.
// It is only touched from the controller goroutine.
type streamHealth struct {
	failures int
	lastErr  string
	lastFail time.Time
}

func (h *streamHealth) recordSuccess() {
	h.failures = 0
	h.lastErr = ""
}

// recordFailure counts one failed tick and returns the streak length.
func (h *streamHealth) recordFailure(err error) int {
	h.failures++
	h.lastErr = err.Error()
	h.lastFail = time.Now()
	return h.failures
}

func (h *streamHealth) snapshot(threshold int, degraded bool) Health {
	out := Health{
		Status:      StatusHealthy,
		Failures:    h.failures,
		LastError:   h.lastErr,
		LastFailure: h.lastFail,
	}
	switch {
	case degraded || h.failures >= threshold:
		out.Status = StatusDegraded
	case h.failures > 0:
		out.Status = StatusFailing
	}
	return out
}
