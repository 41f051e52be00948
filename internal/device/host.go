package device

import (
	"errors"
	"fmt"
	"log"
)

// Host aggregates the sensors discovered on one physical device.
//
// A Host is owned by the controller goroutine. Consumers on other
// goroutines must use View copies.
type Host struct {
	UUID string
	Name string

	available map[SensorType]Advert
	sensors   map[SensorType]*Sensor
	linked    bool
	degraded  bool
}

func NewHost(uuid, name string) *Host {
	return &Host{
		UUID:      uuid,
		Name:      name,
		available: make(map[SensorType]Advert),
		sensors:   make(map[SensorType]*Sensor),
	}
}

func (h *Host) String() string {
	return fmt.Sprintf("<Host %s>", h.Name)
}

// IsConnected reports whether at least one sensor is live.
func (h *Host) IsConnected() bool {
	return len(h.sensors) > 0
}

// IsAvailable reports whether the host advertises at least one sensor.
func (h *Host) IsAvailable() bool {
	return len(h.available) > 0
}

func (h *Host) IsLinked() bool   { return h.linked }
func (h *Host) IsDegraded() bool { return h.degraded }

// MarkDegraded flags the host as being in a bad state. The flag clears only
// when the host is unlinked.
func (h *Host) MarkDegraded() {
	h.degraded = true
}

// Available returns the advertised sensor of type t.
func (h *Host) Available(t SensorType) (Advert, bool) {
	a, ok := h.available[t]
	return a, ok
}

// Sensor returns the live sensor of type t.
func (h *Host) Sensor(t SensorType) (*Sensor, bool) {
	s, ok := h.sensors[t]
	return s, ok
}

// AddSensor registers an advertised sensor. Sensors rejected by AcceptSensor
// are ignored and reported as not accepted. Re-adding a type replaces the
// previous advert. On a linked host the sensor is connected straight away,
// replacing any live sensor of the same type.
func (h *Host) AddSensor(network Network, t SensorType, uuid, name, worldMarker string) (bool, error) {
	if !AcceptSensor(t, name, worldMarker) {
		return false, nil
	}
	h.available[t] = Advert{UUID: uuid, Name: name}
	if h.linked {
		return true, h.connectSensor(network, t)
	}
	return true, nil
}

// RemoveSensor drops every advert with the given uuid and disconnects the
// matching live sensor. It reports whether anything was removed.
func (h *Host) RemoveSensor(uuid string) bool {
	removed := false
	for t, a := range h.available {
		if a.UUID != uuid {
			continue
		}
		h.disconnectSensor(t)
		delete(h.available, t)
		removed = true
	}
	return removed
}

// Link marks the host linked and connects all advertised sensors. Sensors
// that fail to connect are left disconnected; their errors are joined.
func (h *Host) Link(network Network) error {
	h.linked = true
	var errs []error
	for _, t := range SensorTypes {
		if _, ok := h.available[t]; !ok {
			continue
		}
		if err := h.connectSensor(network, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Unlink disconnects every live sensor and clears the linked and degraded
// flags.
func (h *Host) Unlink() {
	for t := range h.sensors {
		h.disconnectSensor(t)
	}
	h.linked = false
	h.degraded = false
}

func (h *Host) connectSensor(network Network, t SensorType) error {
	h.disconnectSensor(t)

	a := h.available[t]
	client, err := network.Sensor(a.UUID)
	if err != nil {
		return fmt.Errorf("open %s sensor %s: %w", t, a.UUID, err)
	}
	if err := client.SetStreaming(true); err != nil {
		_ = client.Unlink()
		return fmt.Errorf("enable streaming on %s sensor %s: %w", t, a.UUID, err)
	}
	h.sensors[t] = &Sensor{
		UUID:      a.UUID,
		Type:      t,
		Name:      a.Name,
		Streaming: true,
		client:    client,
	}
	return nil
}

func (h *Host) disconnectSensor(t SensorType) {
	s, ok := h.sensors[t]
	if !ok {
		return
	}
	delete(h.sensors, t)
	if err := s.client.Unlink(); err != nil {
		log.Printf("[device] %s: unlink %s sensor %s: %v", h, t, s.UUID, err)
	}
}

// PollNotifications drains pending control notifications on every live
// sensor. The first error stops draining that sensor and is returned.
func (h *Host) PollNotifications() error {
	for _, t := range SensorTypes {
		s, ok := h.sensors[t]
		if !ok {
			continue
		}
		for s.client.HasNotification() {
			if err := s.client.HandleNotification(); err != nil {
				return fmt.Errorf("%s sensor notification: %w", t, err)
			}
		}
	}
	return nil
}

// FetchRecentFrame returns the newest scene frame without waiting, or nil
// when the host has no video sensor or no frame is ready.
func (h *Host) FetchRecentFrame() (*Frame, error) {
	s, ok := h.sensors[SensorVideo]
	if !ok {
		return nil, nil
	}
	frame, err := s.client.NewestFrame(0)
	if err != nil {
		return nil, fmt.Errorf("video frame: %w", err)
	}
	return frame, nil
}

// FetchRecentGaze drains buffered gaze samples and returns only the latest,
// or nil when there is none.
func (h *Host) FetchRecentGaze() (*GazeSample, error) {
	s, ok := h.sensors[SensorGaze]
	if !ok {
		return nil, nil
	}
	samples, err := s.client.FetchGaze()
	if err != nil {
		return nil, fmt.Errorf("gaze samples: %w", err)
	}
	if len(samples) == 0 {
		return nil, nil
	}
	latest := samples[len(samples)-1]
	return &latest, nil
}

// Close unlinks the host and forgets its live sensors.
func (h *Host) Close() {
	h.Unlink()
	clear(h.sensors)
}
