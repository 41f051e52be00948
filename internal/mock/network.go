// Package mock simulates a sensor network of eye trackers for demo mode and
// tests. Devices announce themselves, stream a scene with the calibration
// markers and a scripted gaze, and occasionally misbehave.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/gaze-pointer/monitor/internal/device"
	"github.com/gaze-pointer/monitor/internal/gaze"
)

// SceneFormat marks frames whose Data is a JSON encoded scene.
const SceneFormat = "mock-scene"

// maxBufferedGaze bounds the gaze samples a sensor keeps between fetches;
// older samples are dropped first.
const maxBufferedGaze = 120

var ErrUnknownSensor = errors.New("unknown sensor")

type scene struct {
	Markers []gaze.Marker `json:"markers"`
}

type sensorState struct {
	uuid      string
	kind      device.SensorType
	dev       *mockDevice
	open      bool
	streaming bool
	notes     int
	frame     *device.Frame
	gaze      []device.GazeSample
	broken    bool
}

// Network is a simulated device.Network. With a positive interval, Start
// advances the simulation on its own goroutine; otherwise call Step.
type Network struct {
	mu       sync.Mutex
	layout   gaze.Layout
	interval time.Duration
	devices  []*mockDevice
	sensors  map[string]*sensorState
	events   []device.ProtocolEvent
	tick     int
	frameIdx uint64

	cancel context.CancelFunc
	done   chan struct{}
}

func NewNetwork(layout gaze.Layout, interval time.Duration, seed int64) *Network {
	n := &Network{
		layout:   layout,
		interval: interval,
		devices:  defaultDevices(),
		sensors:  make(map[string]*sensorState),
	}
	for i, d := range n.devices {
		d.jitterRng = rand.New(rand.NewSource(seed + int64(i)))
	}
	return n
}

func (n *Network) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		return errors.New("mock network already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.done = make(chan struct{})
	if n.interval <= 0 {
		close(n.done)
		return nil
	}
	go n.run(ctx)
	log.Printf("Mock network started with %d devices", len(n.devices))
	return nil
}

func (n *Network) run(ctx context.Context) {
	defer close(n.done)
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.Step()
		}
	}
}

func (n *Network) Stop() error {
	n.mu.Lock()
	cancel, done := n.cancel, n.done
	n.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (n *Network) NextEvent() (device.ProtocolEvent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return device.ProtocolEvent{}, false
	}
	ev := n.events[0]
	n.events = n.events[1:]
	return ev, true
}

func (n *Network) Sensor(uuid string) (device.SensorClient, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := n.sensors[uuid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSensor, uuid)
	}
	s.open = true
	return &sensorClient{net: n, uuid: uuid}, nil
}

// Step advances the simulation by one tick.
func (n *Network) Step() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tick++
	t := n.tick

	for _, d := range n.devices {
		switch {
		case !d.attached && t >= d.attachAt && (d.detachAt == 0 || t < d.detachAt):
			n.attach(d)
		case d.attached && d.detachAt > 0 && t >= d.detachAt:
			n.detach(d)
		}
		if d.attached {
			n.stream(d, t)
		}
	}
}

func (n *Network) attach(d *mockDevice) {
	d.attached = true
	d.streamed = 0
	for _, s := range []struct {
		uuid, kind, name string
	}{
		{d.videoUUID(), "video", "PI world v1"},
		{d.eyesUUID(), "video", "PI left v1"},
		{d.gazeUUID(), "gaze", "Gaze"},
	} {
		n.sensors[s.uuid] = &sensorState{uuid: s.uuid, kind: device.ParseSensorType(s.kind), dev: d}
		n.events = append(n.events, device.ProtocolEvent{
			Subject:    device.SubjectAttach,
			HostUUID:   d.uuid,
			HostName:   d.name,
			SensorUUID: s.uuid,
			SensorType: s.kind,
			SensorName: s.name,
		})
	}
}

func (n *Network) detach(d *mockDevice) {
	d.attached = false
	for _, uuid := range []string{d.videoUUID(), d.eyesUUID(), d.gazeUUID()} {
		delete(n.sensors, uuid)
		n.events = append(n.events, device.ProtocolEvent{
			Subject:    device.SubjectDetach,
			HostUUID:   d.uuid,
			HostName:   d.name,
			SensorUUID: uuid,
		})
	}
}

func (n *Network) stream(d *mockDevice, t int) {
	video := n.sensors[d.videoUUID()]
	gz := n.sensors[d.gazeUUID()]
	if (video == nil || !video.streaming) && (gz == nil || !gz.streaming) {
		return
	}
	d.streamed++

	if video != nil && video.streaming && t%2 == 0 {
		data, err := json.Marshal(scene{Markers: sceneMarkers(n.layout, t)})
		if err == nil {
			n.frameIdx++
			video.frame = &device.Frame{
				Index:     n.frameIdx,
				Timestamp: time.Now(),
				Width:     CameraWidth,
				Height:    CameraHeight,
				Format:    SceneFormat,
				Data:      data,
			}
		}
	}

	if gz != nil && gz.streaming {
		if d.failAt > 0 && d.streamed >= d.failAt {
			gz.broken = true
		}
		p := d.gazeAt(t)
		gz.gaze = append(gz.gaze, device.GazeSample{X: p.X, Y: p.Y, Timestamp: time.Now()})
		if over := len(gz.gaze) - maxBufferedGaze; over > 0 {
			gz.gaze = gz.gaze[over:]
		}
	}
}

// sensorClient is the device.SensorClient handed out by Network.Sensor.
type sensorClient struct {
	net  *Network
	uuid string
}

func (c *sensorClient) state() (*sensorState, error) {
	s, ok := c.net.sensors[c.uuid]
	if !ok || !s.open {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSensor, c.uuid)
	}
	return s, nil
}

func (c *sensorClient) SetStreaming(enabled bool) error {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	s, err := c.state()
	if err != nil {
		return err
	}
	s.streaming = enabled
	s.notes++
	return nil
}

func (c *sensorClient) HasNotification() bool {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	s, err := c.state()
	return err == nil && s.notes > 0
}

func (c *sensorClient) HandleNotification() error {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	s, err := c.state()
	if err != nil {
		return err
	}
	if s.notes > 0 {
		s.notes--
	}
	return nil
}

func (c *sensorClient) NewestFrame(time.Duration) (*device.Frame, error) {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	s, err := c.state()
	if err != nil {
		return nil, err
	}
	f := s.frame
	s.frame = nil
	return f, nil
}

func (c *sensorClient) FetchGaze() ([]device.GazeSample, error) {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	s, err := c.state()
	if err != nil {
		return nil, err
	}
	if s.broken {
		return nil, fmt.Errorf("gaze subscription on %s: %w", s.dev.name, device.ErrStreamUnsupported)
	}
	out := s.gaze
	s.gaze = nil
	return out, nil
}

func (c *sensorClient) Unlink() error {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	s, ok := c.net.sensors[c.uuid]
	if !ok {
		// Already detached; nothing to release.
		return nil
	}
	s.open = false
	s.streaming = false
	s.frame = nil
	s.gaze = nil
	if s.kind == device.SensorGaze {
		s.broken = false
		s.dev.streamed = 0
	}
	return nil
}
