// Package hostctl tracks the eye-tracker hosts announced on the sensor
// network and keeps at most one of them linked.
package hostctl

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/gaze-pointer/monitor/internal/device"
	"github.com/gaze-pointer/monitor/internal/metrics"
)

var (
	ErrUnknownHost = errors.New("unknown host")
	ErrClosed      = errors.New("controller closed")
)

// DefaultDegradeAfter is the number of consecutive failed fetch ticks after
// which a linked host is marked degraded.
const DefaultDegradeAfter = 3

type Options struct {
	// WorldMarker selects the scene camera among video sensors.
	// Empty means device.DefaultWorldMarker.
	WorldMarker string

	// DegradeAfter is the failure streak that degrades a host. Zero means
	// DefaultDegradeAfter.
	DegradeAfter int
}

// Recent is the data fetched from the linked host in one tick. Host is
// empty and both pointers nil when no host is linked.
type Recent struct {
	Host  string
	Index int
	Frame *device.Frame
	Gaze  *device.GazeSample
}

// Controller is the session manager. It owns the network exclusively and,
// apart from the embedded Bus's Subscribe and Unsubscribe, must only be used
// from one goroutine.
type Controller struct {
	Bus

	network device.Network
	opts    Options

	hosts  []*device.Host // ordered by name
	byName map[string]*device.Host
	health map[*device.Host]*streamHealth
	closed bool
}

// New takes ownership of network and starts it. A start failure is
// returned as is and leaves the controller unusable.
func New(network device.Network, opts Options) (*Controller, error) {
	if opts.WorldMarker == "" {
		opts.WorldMarker = device.DefaultWorldMarker
	}
	if opts.DegradeAfter <= 0 {
		opts.DegradeAfter = DefaultDegradeAfter
	}
	if err := network.Start(); err != nil {
		return nil, err
	}
	return &Controller{
		network: network,
		opts:    opts,
		byName:  make(map[string]*device.Host),
		health:  make(map[*device.Host]*streamHealth),
	}, nil
}

// PollEvents handles every pending protocol event. It never blocks.
func (c *Controller) PollEvents() {
	if c.closed {
		return
	}
	for {
		ev, ok := c.network.NextEvent()
		if !ok {
			break
		}
		c.onProtocolEvent(ev)
	}
	c.updateGauges()
}

func (c *Controller) onProtocolEvent(ev device.ProtocolEvent) {
	switch ev.Subject {
	case device.SubjectAttach:
		c.onAttach(ev)
	case device.SubjectDetach:
		c.onDetach(ev)
	default:
		metrics.RecordProtocolEvent(string(ev.Subject), "ignored")
	}
}

func (c *Controller) onAttach(ev device.ProtocolEvent) {
	t := device.ParseSensorType(ev.SensorType)
	if t == device.SensorUnknown {
		metrics.RecordProtocolEvent(string(ev.Subject), "ignored")
		return
	}

	host, ok := c.byName[ev.HostName]
	if ok && host.UUID != ev.HostUUID {
		log.Printf("[hostctl] Rejecting %s sensor %s: host name %q already belongs to %s (uuid %s, got %s)",
			t, ev.SensorUUID, ev.HostName, host, host.UUID, ev.HostUUID)
		metrics.RecordProtocolEvent(string(ev.Subject), "rejected")
		return
	}
	if !ok {
		host = device.NewHost(ev.HostUUID, ev.HostName)
		c.insertHost(host)
		log.Printf("[hostctl] Discovered host %s", host)
		c.publishHost(HostAdded, host)
	}

	accepted, err := host.AddSensor(c.network, t, ev.SensorUUID, ev.SensorName, c.opts.WorldMarker)
	if err != nil {
		log.Printf("[hostctl] %s: %v", host, err)
	}
	if accepted {
		metrics.RecordProtocolEvent(string(ev.Subject), "applied")
	} else {
		metrics.RecordProtocolEvent(string(ev.Subject), "ignored")
	}
	c.publishHost(HostChanged, host)
}

func (c *Controller) onDetach(ev device.ProtocolEvent) {
	host, ok := c.byName[ev.HostName]
	if !ok || (ev.HostUUID != "" && host.UUID != ev.HostUUID) {
		metrics.RecordProtocolEvent(string(ev.Subject), "ignored")
		return
	}

	result := "ignored"
	if host.RemoveSensor(ev.SensorUUID) {
		result = "applied"
	}
	metrics.RecordProtocolEvent(string(ev.Subject), result)
	c.publishHost(HostChanged, host)
	if !host.IsLinked() && !host.IsAvailable() {
		c.removeHost(host)
	}
}

// Link makes target the only linked host. Other linked hosts are unlinked
// first, so observers never see two linked hosts. Hosts left neither
// linked nor available are removed afterwards.
func (c *Controller) Link(target *device.Host) error {
	if c.closed {
		return ErrClosed
	}
	if target == nil || c.Index(target) < 0 {
		return fmt.Errorf("link %v: %w", target, ErrUnknownHost)
	}

	for _, h := range slices.Clone(c.hosts) {
		if h == target || !h.IsLinked() {
			continue
		}
		c.unlinkHost(h)
		log.Printf("[hostctl] Unlinked previously connected host %s", h)
	}

	if !target.IsLinked() {
		if err := target.Link(c.network); err != nil {
			log.Printf("[hostctl] %s: link incomplete: %v", target, err)
		}
		log.Printf("[hostctl] Linked connected host %s", target)
		c.publishHost(HostChanged, target)
		c.publishHost(HostLinked, target)
	}

	c.pruneHosts()
	c.updateGauges()
	return nil
}

// LinkByName links the host with the given name.
func (c *Controller) LinkByName(name string) error {
	host, ok := c.Lookup(name)
	if !ok {
		return fmt.Errorf("link %q: %w", name, ErrUnknownHost)
	}
	return c.Link(host)
}

// Unlink unlinks whichever host is linked. It is a no-op when none is.
func (c *Controller) Unlink() {
	if c.closed {
		return
	}
	for _, h := range slices.Clone(c.hosts) {
		if h.IsLinked() {
			c.unlinkHost(h)
			log.Printf("[hostctl] Unlinked host %s", h)
		}
	}
	c.pruneHosts()
	c.updateGauges()
}

func (c *Controller) unlinkHost(h *device.Host) {
	h.Unlink()
	delete(c.health, h)
	c.publishHost(HostChanged, h)
}

// FetchRecentData pulls the newest frame and gaze sample from the linked
// host. Sensor errors never escape: ErrStreamUnsupported degrades the host
// at once, any other error after DegradeAfter failed ticks in a row.
func (c *Controller) FetchRecentData() Recent {
	if c.closed {
		return Recent{}
	}
	host := c.Linked()
	if host == nil {
		return Recent{}
	}
	index := c.Index(host)
	rec := Recent{Host: host.Name, Index: index}

	var errs []error
	if err := host.PollNotifications(); err != nil {
		metrics.RecordSensorError(host.Name, "notification")
		errs = append(errs, err)
	}

	frame, err := host.FetchRecentFrame()
	if err != nil {
		metrics.RecordSensorError(host.Name, device.SensorVideo.String())
		errs = append(errs, err)
	} else if frame != nil {
		rec.Frame = frame
		metrics.FramesTotal.Inc()
		c.publish(Event{Kind: RecentFrame, Index: index, Host: host.View(index), Frame: frame})
	}

	gaze, err := host.FetchRecentGaze()
	if err != nil {
		metrics.RecordSensorError(host.Name, device.SensorGaze.String())
		errs = append(errs, err)
	} else if gaze != nil {
		rec.Gaze = gaze
		metrics.GazeSamplesTotal.Inc()
		c.publish(Event{Kind: RecentGaze, Index: index, Host: host.View(index), Gaze: gaze})
	}

	c.recordFetch(host, errors.Join(errs...))
	return rec
}

func (c *Controller) recordFetch(host *device.Host, err error) {
	hl := c.healthFor(host)
	if err == nil {
		hl.recordSuccess()
		return
	}

	streak := hl.recordFailure(err)
	if host.IsDegraded() {
		return
	}
	if streak == 1 {
		log.Printf("[hostctl] %s: sensor error: %v", host, err)
	}
	if errors.Is(err, device.ErrStreamUnsupported) || streak >= c.opts.DegradeAfter {
		host.MarkDegraded()
		metrics.RecordHostDegraded(host.Name)
		log.Printf("[hostctl] %s is in a bad state (%d failed fetches): %v. Force-restart the companion app on the device.",
			host, streak, err)
		c.publishHost(HostChanged, host)
	}
}

func (c *Controller) healthFor(h *device.Host) *streamHealth {
	hl, ok := c.health[h]
	if !ok {
		hl = &streamHealth{}
		c.health[h] = hl
	}
	return hl
}

// Health returns the stream health of h. Hosts that are not linked report
// healthy unless flagged degraded.
func (c *Controller) Health(h *device.Host) Health {
	hl, ok := c.health[h]
	if !ok {
		hl = &streamHealth{}
	}
	return hl.snapshot(c.opts.DegradeAfter, h.IsDegraded())
}

// Hosts returns the tracked hosts in index order. The slice is a copy; the
// hosts are not.
func (c *Controller) Hosts() []*device.Host {
	return slices.Clone(c.hosts)
}

// Host returns the host at index i, or nil when i is out of range.
func (c *Controller) Host(i int) *device.Host {
	if i < 0 || i >= len(c.hosts) {
		return nil
	}
	return c.hosts[i]
}

// Index returns the position of h in the index, or -1.
func (c *Controller) Index(h *device.Host) int {
	return slices.Index(c.hosts, h)
}

func (c *Controller) Lookup(name string) (*device.Host, bool) {
	h, ok := c.byName[name]
	return h, ok
}

// Linked returns the linked host, or nil.
func (c *Controller) Linked() *device.Host {
	for _, h := range c.hosts {
		if h.IsLinked() {
			return h
		}
	}
	return nil
}

// Views returns copies of every tracked host, in index order.
func (c *Controller) Views() []device.HostView {
	views := make([]device.HostView, len(c.hosts))
	for i, h := range c.hosts {
		views[i] = h.View(i)
	}
	return views
}

// Close unlinks every host and stops the network. Calling it again is a
// no-op.
func (c *Controller) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	for _, h := range c.hosts {
		h.Close()
	}
	c.updateGauges()
	if err := c.network.Stop(); err != nil {
		return fmt.Errorf("stop network: %w", err)
	}
	return nil
}

func (c *Controller) insertHost(h *device.Host) {
	i, _ := slices.BinarySearchFunc(c.hosts, h.Name, func(e *device.Host, name string) int {
		return strings.Compare(e.Name, name)
	})
	c.hosts = slices.Insert(c.hosts, i, h)
	c.byName[h.Name] = h
}

func (c *Controller) removeHost(h *device.Host) {
	i := c.Index(h)
	if i < 0 {
		return
	}
	view := h.View(i)
	c.hosts = slices.Delete(c.hosts, i, i+1)
	delete(c.byName, h.Name)
	delete(c.health, h)
	log.Printf("[hostctl] Removed host %s", h)
	c.publish(Event{Kind: HostRemoved, Index: i, Host: view})
}

func (c *Controller) pruneHosts() {
	for _, h := range slices.Clone(c.hosts) {
		if !h.IsLinked() && !h.IsAvailable() {
			c.removeHost(h)
		}
	}
}

func (c *Controller) publishHost(kind EventKind, h *device.Host) {
	i := c.Index(h)
	c.publish(Event{Kind: kind, Index: i, Host: h.View(i)})
}

func (c *Controller) updateGauges() {
	linked := false
	if !c.closed {
		linked = c.Linked() != nil
	}
	metrics.SetHostCounts(len(c.hosts), linked)
}
