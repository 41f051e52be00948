package device

import (
	"errors"
	"time"
)

// ErrStreamUnsupported is returned by a SensorClient when the device refuses
// a data subscription. The companion app usually needs a restart to recover.
var ErrStreamUnsupported = errors.New("sensor does not support data subscription")

// Subject is the kind of a protocol event.
type Subject string

const (
	SubjectAttach Subject = "attach"
	SubjectDetach Subject = "detach"
)

// ProtocolEvent is a single attach/detach notification from the discovery
// layer. SensorType is the raw protocol name; types the controller does not
// track are ignored.
type ProtocolEvent struct {
	Subject    Subject `json:"subject"`
	HostUUID   string  `json:"host_uuid"`
	HostName   string  `json:"host_name"`
	SensorUUID string  `json:"sensor_uuid"`
	SensorType string  `json:"sensor_type"`
	SensorName string  `json:"sensor_name"`
}

// Network is the sensor-network session the controller owns exclusively.
// None of its methods may block.
type Network interface {
	// Start joins the sensor network. A failure here is fatal for the
	// process.
	Start() error

	// Stop leaves the network and releases its resources.
	Stop() error

	// NextEvent returns the next pending protocol event, or false when
	// none is queued.
	NextEvent() (ProtocolEvent, bool)

	// Sensor opens a client for the sensor with the given uuid.
	Sensor(uuid string) (SensorClient, error)
}

// SensorClient is the per-sensor data and control channel.
//
// Implementations are only used from the poll goroutine and need not be
// safe for concurrent use.
type SensorClient interface {
	// SetStreaming toggles the sensor's streaming control and refreshes
	// its control state.
	SetStreaming(enabled bool) error

	// HasNotification reports whether a control notification is pending.
	HasNotification() bool

	// HandleNotification consumes one pending notification.
	HandleNotification() error

	// NewestFrame returns the most recent video frame, waiting at most
	// timeout. It returns nil with a nil error when no frame is ready.
	NewestFrame(timeout time.Duration) (*Frame, error)

	// FetchGaze drains every buffered gaze sample.
	FetchGaze() ([]GazeSample, error)

	// Unlink closes the data subscription.
	Unlink() error
}

// Frame is one scene camera image. Data is opaque to the core.
type Frame struct {
	Index     uint64    `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Format    string    `json:"format,omitempty"`
	Data      []byte    `json:"-"`
}

// GazeSample is a gaze estimate in scene camera image coordinates.
type GazeSample struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Timestamp time.Time `json:"timestamp"`
}
