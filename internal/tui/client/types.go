// Package client provides WebSocket and HTTP clients for the gaze-monitor
// server. Types mirror the server wire protocol without importing server
// packages.
package client

import (
	"encoding/json"
	"time"
)

// MessageType identifies the kind of WebSocket message.
type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgDelta    MessageType = "delta"
	MsgTracking MessageType = "tracking"
	MsgAlert    MessageType = "alert"
	MsgError    MessageType = "error"
)

// WSMessage is the envelope for all WebSocket messages.
type WSMessage struct {
	Type    MessageType     `json:"type"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload"`
}

// HealthStatus mirrors hostctl.HealthStatus.
type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusFailing  HealthStatus = "failing"
	StatusDegraded HealthStatus = "degraded"
)

type Health struct {
	Status      HealthStatus `json:"status"`
	Failures    int          `json:"failures"`
	LastError   string       `json:"lastError,omitempty"`
	LastFailure time.Time    `json:"lastFailure,omitempty"`
}

// SensorView mirrors device.SensorView.
type SensorView struct {
	UUID      string `json:"uuid"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	Streaming bool   `json:"streaming"`
}

// HostState mirrors snapshot.HostState.
type HostState struct {
	UUID      string       `json:"uuid"`
	Name      string       `json:"name"`
	Index     int          `json:"index"`
	Linked    bool         `json:"linked"`
	Degraded  bool         `json:"degraded"`
	Connected bool         `json:"connected"`
	Available bool         `json:"available"`
	Sensors   []SensorView `json:"sensors,omitempty"`
	Health    Health       `json:"health"`
}

// Point is a 2D coordinate as the server encodes it.
type Point struct {
	X float64 `json:"X"`
	Y float64 `json:"Y"`
}

type Quad struct {
	TopLeft     Point `json:"topLeft"`
	TopRight    Point `json:"topRight"`
	BottomRight Point `json:"bottomRight"`
	BottomLeft  Point `json:"bottomLeft"`
}

type GazeSample struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Timestamp time.Time `json:"timestamp"`
}

// Tracking mirrors snapshot.Tracking.
type Tracking struct {
	Tick       uint64      `json:"tick"`
	Host       string      `json:"host,omitempty"`
	FrameIndex uint64      `json:"frameIndex,omitempty"`
	HasFrame   bool        `json:"hasFrame"`
	Gaze       *GazeSample `json:"gaze,omitempty"`
	Markers    int         `json:"markers"`
	Outcome    string      `json:"outcome,omitempty"`
	Missing    []int       `json:"missing,omitempty"`
	Quad       *Quad       `json:"quad,omitempty"`
	Relative   *Point      `json:"relative,omitempty"`
	Target     *Point      `json:"target,omitempty"`
	Pointer    *Point      `json:"pointer,omitempty"`
	Commands   []string    `json:"commands,omitempty"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

type SnapshotPayload struct {
	Hosts    []HostState `json:"hosts"`
	Tracking Tracking    `json:"tracking"`
}

type DeltaPayload struct {
	Updates []HostState `json:"updates"`
	Removed []string    `json:"removed,omitempty"`
}

type TrackingPayload struct {
	Tracking Tracking `json:"tracking"`
}

type AlertPayload struct {
	Host    string `json:"host"`
	Message string `json:"message"`
}

type LinkResponse struct {
	Host   string `json:"host,omitempty"`
	Status string `json:"status"`
}

type ProcessStats struct {
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpuPercent"`
	RSSBytes   uint64  `json:"rssBytes"`
	Goroutines int     `json:"goroutines"`
	Threads    int32   `json:"threads"`
}

// Status mirrors the /api/status response.
type Status struct {
	Hosts     int          `json:"hosts"`
	Linked    string       `json:"linked,omitempty"`
	Clients   int          `json:"clients"`
	Tracking  Tracking     `json:"tracking"`
	Process   ProcessStats `json:"process"`
	UptimeSec float64      `json:"uptimeSec"`
}
