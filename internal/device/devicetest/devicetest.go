// Package devicetest provides scripted in-memory implementations of the
// device.Network and device.SensorClient interfaces for tests.
package devicetest

import (
	"fmt"
	"time"

	"github.com/gaze-pointer/monitor/internal/device"
)

// Network is a scripted device.Network. Events pushed with Attach/Detach
// are returned by NextEvent in order.
type Network struct {
	StartErr error
	Started  bool
	Stopped  bool

	// OpenErr makes Sensor fail for the given sensor uuid.
	OpenErr map[string]error
	// Opened records every sensor uuid passed to Sensor.
	Opened []string

	events  []device.ProtocolEvent
	sensors map[string]*Sensor
}

func NewNetwork() *Network {
	return &Network{
		OpenErr: make(map[string]error),
		sensors: make(map[string]*Sensor),
	}
}

func (n *Network) Start() error {
	if n.StartErr != nil {
		return n.StartErr
	}
	n.Started = true
	return nil
}

func (n *Network) Stop() error {
	n.Stopped = true
	return nil
}

func (n *Network) NextEvent() (device.ProtocolEvent, bool) {
	if len(n.events) == 0 {
		return device.ProtocolEvent{}, false
	}
	ev := n.events[0]
	n.events = n.events[1:]
	return ev, true
}

// Pending returns the number of queued events.
func (n *Network) Pending() int {
	return len(n.events)
}

func (n *Network) Sensor(uuid string) (device.SensorClient, error) {
	n.Opened = append(n.Opened, uuid)
	if err := n.OpenErr[uuid]; err != nil {
		return nil, err
	}
	return n.SensorFor(uuid), nil
}

// SensorFor returns the fake sensor with the given uuid, creating it on
// first use.
func (n *Network) SensorFor(uuid string) *Sensor {
	s, ok := n.sensors[uuid]
	if !ok {
		s = &Sensor{UUID: uuid}
		n.sensors[uuid] = s
	}
	return s
}

// Push queues raw protocol events.
func (n *Network) Push(evs ...device.ProtocolEvent) {
	n.events = append(n.events, evs...)
}

// Attach queues an attach event.
func (n *Network) Attach(hostUUID, hostName, sensorUUID, sensorType, sensorName string) {
	n.Push(device.ProtocolEvent{
		Subject:    device.SubjectAttach,
		HostUUID:   hostUUID,
		HostName:   hostName,
		SensorUUID: sensorUUID,
		SensorType: sensorType,
		SensorName: sensorName,
	})
}

// Detach queues a detach event.
func (n *Network) Detach(hostUUID, hostName, sensorUUID string) {
	n.Push(device.ProtocolEvent{
		Subject:    device.SubjectDetach,
		HostUUID:   hostUUID,
		HostName:   hostName,
		SensorUUID: sensorUUID,
	})
}

// AttachDevice queues the attach events of a typical eye tracker: a world
// camera, an eye camera and a gaze sensor. Sensor uuids are derived from
// the host name.
func (n *Network) AttachDevice(hostName string) {
	hostUUID := "host-" + hostName
	n.Attach(hostUUID, hostName, VideoUUID(hostName), "video", "PI world v1")
	n.Attach(hostUUID, hostName, hostName+"-eyes", "video", "PI left v1")
	n.Attach(hostUUID, hostName, GazeUUID(hostName), "gaze", "Gaze")
}

// VideoUUID is the world camera uuid AttachDevice uses for hostName.
func VideoUUID(hostName string) string { return hostName + "-world" }

// GazeUUID is the gaze sensor uuid AttachDevice uses for hostName.
func GazeUUID(hostName string) string { return hostName + "-gaze" }

// Sensor is a scripted device.SensorClient.
type Sensor struct {
	UUID string

	Streaming bool
	Unlinked  int

	Notifications int
	Handled       int

	Frames []*device.Frame
	Gaze   []device.GazeSample

	StreamErr error
	NotifyErr error
	FrameErr  error
	GazeErr   error
	UnlinkErr error
}

func (s *Sensor) SetStreaming(enabled bool) error {
	if s.StreamErr != nil {
		return s.StreamErr
	}
	s.Streaming = enabled
	return nil
}

func (s *Sensor) HasNotification() bool {
	return s.Notifications > 0
}

func (s *Sensor) HandleNotification() error {
	if s.NotifyErr != nil {
		return s.NotifyErr
	}
	s.Notifications--
	s.Handled++
	return nil
}

// NewestFrame returns the last queued frame and discards the rest.
func (s *Sensor) NewestFrame(time.Duration) (*device.Frame, error) {
	if s.FrameErr != nil {
		return nil, s.FrameErr
	}
	if len(s.Frames) == 0 {
		return nil, nil
	}
	f := s.Frames[len(s.Frames)-1]
	s.Frames = nil
	return f, nil
}

func (s *Sensor) FetchGaze() ([]device.GazeSample, error) {
	if s.GazeErr != nil {
		return nil, s.GazeErr
	}
	out := s.Gaze
	s.Gaze = nil
	return out, nil
}

func (s *Sensor) Unlink() error {
	s.Unlinked++
	s.Streaming = false
	return s.UnlinkErr
}

// QueueFrame appends a frame with the given index.
func (s *Sensor) QueueFrame(index uint64) *device.Frame {
	f := &device.Frame{Index: index, Width: 1088, Height: 1080, Format: "jpeg"}
	s.Frames = append(s.Frames, f)
	return f
}

// QueueGaze appends gaze samples.
func (s *Sensor) QueueGaze(points ...[2]float64) {
	for _, p := range points {
		s.Gaze = append(s.Gaze, device.GazeSample{X: p[0], Y: p[1]})
	}
}

func (s *Sensor) String() string {
	return fmt.Sprintf("fake sensor %s", s.UUID)
}
