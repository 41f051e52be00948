package ws

import (
	"github.com/gaze-pointer/monitor/internal/snapshot"
)

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgDelta    MessageType = "delta"
	MsgTracking MessageType = "tracking"
	MsgAlert    MessageType = "alert"
	MsgError    MessageType = "error"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Seq     uint64      `json:"seq"`
	Payload interface{} `json:"payload"`
}

type SnapshotPayload struct {
	Hosts    []snapshot.HostState `json:"hosts"`
	Tracking snapshot.Tracking    `json:"tracking"`
}

type DeltaPayload struct {
	Updates []snapshot.HostState `json:"updates"`
	Removed []string             `json:"removed,omitempty"`
}

type TrackingPayload struct {
	Tracking snapshot.Tracking `json:"tracking"`
}

// AlertPayload tells clients a host went into a bad state.
type AlertPayload struct {
	Host    string `json:"host"`
	Message string `json:"message"`
}

// LinkResponse is returned by the link and unlink endpoints.
type LinkResponse struct {
	Host   string `json:"host,omitempty"`
	Status string `json:"status"`
}

// StatusPayload is served on /api/status.
type StatusPayload struct {
	Hosts     int               `json:"hosts"`
	Linked    string            `json:"linked,omitempty"`
	Clients   int               `json:"clients"`
	Tracking  snapshot.Tracking `json:"tracking"`
	Process   ProcessStats      `json:"process"`
	UptimeSec float64           `json:"uptimeSec"`
}

type ProcessStats struct {
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpuPercent"`
	RSSBytes   uint64  `json:"rssBytes"`
	Goroutines int     `json:"goroutines"`
	Threads    int32   `json:"threads"`
}
