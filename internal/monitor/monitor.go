// Package monitor drives the poll loop: it feeds protocol events to the
// controller, pulls the linked host's newest frame and gaze sample, maps the
// gaze onto the screen and performs queued voice commands.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gaze-pointer/monitor/internal/device"
	"github.com/gaze-pointer/monitor/internal/gaze"
	"github.com/gaze-pointer/monitor/internal/hostctl"
	"github.com/gaze-pointer/monitor/internal/metrics"
	"github.com/gaze-pointer/monitor/internal/pointer"
	"github.com/gaze-pointer/monitor/internal/snapshot"
	"github.com/gaze-pointer/monitor/internal/voice"
)

// ErrBusy is returned when the link request queue is full.
var ErrBusy = errors.New("link request queue full")

const (
	DefaultFrameRate    = 60
	DefaultRequestQueue = 8
)

type Config struct {
	FrameRate int

	// Smoothing damps pointer targets with a spring.
	Smoothing       bool
	SmoothFrequency float64
	SmoothDamping   float64

	// RequestQueue bounds link requests waiting for the next tick.
	RequestQueue int

	// Verbose logs every change of the mapping outcome.
	Verbose bool
}

// Publisher receives state changes for connected UI clients.
// *ws.Broadcaster implements it.
type Publisher interface {
	QueueUpdate(hosts ...snapshot.HostState)
	QueueRemoval(names ...string)
	QueueTracking(t snapshot.Tracking)
	Alert(host, message string)
}

type linkRequest struct {
	name   string
	unlink bool
}

// Loop owns the controller, detector, mapper and pointer. Tick and Run must
// be called from a single goroutine; RequestLink and RequestUnlink may be
// called from any.
type Loop struct {
	cfg      Config
	ctrl     *hostctl.Controller
	detector gaze.Detector
	mapper   *gaze.Mapper
	pointer  pointer.Pointer
	voice    *voice.Queue
	smoother *pointer.Smoother

	store *snapshot.Store
	pub   Publisher

	requests chan linkRequest
	subID    string

	tick       uint64
	hostsDirty bool
	removed    []string
	degraded   map[string]bool
	lastHealth hostctl.Health
	lastHost   string
	lastReason string
	lastErr    map[string]string
}

// New wires a loop around ctrl. voiceQueue may be nil.
func New(ctrl *hostctl.Controller, detector gaze.Detector, mapper *gaze.Mapper, ptr pointer.Pointer, voiceQueue *voice.Queue, cfg Config) *Loop {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	if cfg.RequestQueue <= 0 {
		cfg.RequestQueue = DefaultRequestQueue
	}
	l := &Loop{
		cfg:        cfg,
		ctrl:       ctrl,
		detector:   detector,
		mapper:     mapper,
		pointer:    ptr,
		voice:      voiceQueue,
		requests:   make(chan linkRequest, cfg.RequestQueue),
		hostsDirty: true,
		degraded:   make(map[string]bool),
		lastErr:    make(map[string]string),
	}
	if cfg.Smoothing {
		l.smoother = pointer.NewSmoother(cfg.FrameRate, cfg.SmoothFrequency, cfg.SmoothDamping)
	}
	l.subID = ctrl.Subscribe(l.onHostEvent,
		hostctl.HostAdded, hostctl.HostRemoved, hostctl.HostChanged, hostctl.HostLinked)
	return l
}

// SetSnapshots makes the loop mirror host and tracking state into store and
// forward changes to pub. Either may be nil.
func (l *Loop) SetSnapshots(store *snapshot.Store, pub Publisher) {
	l.store = store
	l.pub = pub
	l.hostsDirty = true
}

// RequestLink asks the loop to link the named host on its next tick.
func (l *Loop) RequestLink(name string) error {
	return l.enqueue(linkRequest{name: name})
}

// RequestUnlink asks the loop to unlink whichever host is linked.
func (l *Loop) RequestUnlink() error {
	return l.enqueue(linkRequest{unlink: true})
}

func (l *Loop) enqueue(req linkRequest) error {
	select {
	case l.requests <- req:
		return nil
	default:
		return ErrBusy
	}
}

// Run ticks at the configured frame rate until ctx is done. The first tick
// runs immediately.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(l.cfg.FrameRate))
	defer ticker.Stop()

	log.Printf("Poll loop started at %d Hz", l.cfg.FrameRate)

	l.Tick()

	for {
		select {
		case <-ctx.Done():
			log.Println("Poll loop stopped")
			return
		case <-ticker.C:
			l.Tick()
		}
	}
}

// Tick runs one iteration of the loop.
func (l *Loop) Tick() {
	start := time.Now()
	l.tick++

	l.ctrl.PollEvents()
	l.applyRequests()

	rec := l.ctrl.FetchRecentData()
	if rec.Host != l.lastHost {
		l.resetSmoother()
		l.lastHost = rec.Host
	}

	tr := snapshot.Tracking{Tick: l.tick, Host: rec.Host, UpdatedAt: start}
	if rec.Gaze != nil {
		g := *rec.Gaze
		tr.Gaze = &g
	}
	if rec.Frame != nil {
		tr.HasFrame = true
		tr.FrameIndex = rec.Frame.Index
		l.track(&tr, rec)
	}
	tr.Commands = l.runVoice()

	l.publish(tr)
	metrics.TickDuration.Observe(time.Since(start).Seconds())
}

func (l *Loop) applyRequests() {
	for {
		select {
		case req := <-l.requests:
			if req.unlink {
				l.ctrl.Unlink()
				continue
			}
			if err := l.ctrl.LinkByName(req.name); err != nil {
				log.Printf("[monitor] link %s: %v", req.name, err)
			}
		default:
			return
		}
	}
}

// track maps the newest gaze sample onto the screen and moves the pointer.
// A frame without gaze is recorded as such without running detection.
func (l *Loop) track(tr *snapshot.Tracking, rec hostctl.Recent) {
	if rec.Gaze == nil {
		l.record(tr, gaze.Outcome{Reason: gaze.ReasonNoGaze})
		return
	}

	markers, err := l.detector.Detect(rec.Frame)
	if err != nil {
		l.logOnce("detect", rec.Host, err)
		markers = nil
	} else {
		l.clearErr("detect")
	}
	tr.Markers = len(markers)

	out := l.mapper.Map(markers, &gaze.Point{X: rec.Gaze.X, Y: rec.Gaze.Y})
	l.record(tr, out)
	if !out.Move() {
		l.resetSmoother()
		return
	}

	x, y := out.Target.X, out.Target.Y
	if l.smoother != nil {
		x, y = l.smoother.Next(x, y)
	}
	err = l.pointer.MoveAbsolute(x, y)
	metrics.RecordPointerAction("move", err)
	if err != nil {
		l.logOnce("pointer", rec.Host, err)
		return
	}
	l.clearErr("pointer")
	tr.Pointer = &gaze.Point{X: x, Y: y}
}

func (l *Loop) record(tr *snapshot.Tracking, out gaze.Outcome) {
	reason := out.Reason.String()
	metrics.RecordMapOutcome(reason)

	tr.Outcome = reason
	tr.Missing = out.Missing
	tr.Quad = out.Quad
	if out.Move() {
		rel, target := out.Relative, out.Target
		tr.Relative = &rel
		tr.Target = &target
	}

	if l.cfg.Verbose && reason != l.lastReason {
		log.Printf("[monitor] %s: %s", tr.Host, describe(out))
	}
	l.lastReason = reason
}

func describe(out gaze.Outcome) string {
	switch out.Reason {
	case gaze.ReasonMove:
		return fmt.Sprintf("move to (%.0f, %.0f)", out.Target.X, out.Target.Y)
	case gaze.ReasonMissingMarkers:
		return fmt.Sprintf("missing markers %v", out.Missing)
	default:
		return out.Reason.String()
	}
}

func (l *Loop) runVoice() []string {
	if l.voice == nil {
		return nil
	}
	var performed []string
	for _, cmd := range l.voice.Drain() {
		err := cmd.Action.Perform(l.pointer)
		metrics.RecordPointerAction(string(cmd.Action.Kind), err)
		if err != nil {
			metrics.RecordVoiceCommand("failed")
			log.Printf("[monitor] voice command %q (%s): %v", cmd.Word, cmd.Action, err)
			continue
		}
		metrics.RecordVoiceCommand("performed")
		performed = append(performed, cmd.Word)
	}
	return performed
}

func (l *Loop) resetSmoother() {
	if l.smoother != nil {
		l.smoother.Reset()
	}
}

// logOnce logs err unless the same error was the last one logged for kind.
func (l *Loop) logOnce(kind, host string, err error) {
	msg := err.Error()
	if l.lastErr[kind] == msg {
		return
	}
	l.lastErr[kind] = msg
	log.Printf("[monitor] %s: %s failed: %v", host, kind, err)
}

func (l *Loop) clearErr(kind string) {
	delete(l.lastErr, kind)
}

func (l *Loop) onHostEvent(ev hostctl.Event) {
	l.hostsDirty = true
	name := ev.Host.Name
	switch {
	case ev.Kind == hostctl.HostRemoved:
		l.removed = append(l.removed, name)
		delete(l.degraded, name)
	case ev.Host.Degraded && !l.degraded[name]:
		l.degraded[name] = true
		if l.pub != nil {
			l.pub.Alert(name, fmt.Sprintf("%s is in a bad state. Force-restart the companion app on the device.", name))
		}
	case !ev.Host.Degraded:
		delete(l.degraded, name)
	}
}

func (l *Loop) publish(tr snapshot.Tracking) {
	if linked := l.ctrl.Linked(); linked != nil {
		if h := l.ctrl.Health(linked); h.Status != l.lastHealth.Status || h.Failures != l.lastHealth.Failures {
			l.lastHealth = h
			l.hostsDirty = true
		}
	}
	if l.hostsDirty {
		l.syncHosts()
	}

	if l.store != nil {
		l.store.SetTracking(tr)
	}
	if l.pub != nil {
		l.pub.QueueTracking(tr)
	}
}

// syncHosts mirrors the controller's hosts. Indices shift on every insert
// and removal, so the whole set is replaced.
func (l *Loop) syncHosts() {
	views := l.ctrl.Views()
	states := make([]snapshot.HostState, 0, len(views))
	present := make(map[string]bool, len(views))
	for _, v := range views {
		states = append(states, snapshot.HostState{HostView: v, Health: l.health(v)})
		present[v.Name] = true
	}

	var removed []string
	for _, name := range l.removed {
		if !present[name] {
			removed = append(removed, name)
		}
	}
	l.removed = nil
	l.hostsDirty = false

	if l.store != nil {
		l.store.Replace(states)
	}
	if l.pub != nil {
		if len(states) > 0 {
			l.pub.QueueUpdate(states...)
		}
		if len(removed) > 0 {
			l.pub.QueueRemoval(removed...)
		}
	}
}

func (l *Loop) health(v device.HostView) hostctl.Health {
	h := l.ctrl.Host(v.Index)
	if h == nil {
		return hostctl.Health{Status: hostctl.StatusHealthy}
	}
	return l.ctrl.Health(h)
}

// Close tears down in order: every host is unlinked and the network
// stopped, then the detector is released.
func (l *Loop) Close() error {
	l.ctrl.Unsubscribe(l.subID)
	var errs []error
	if err := l.ctrl.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close controller: %w", err))
	}
	if err := l.detector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close detector: %w", err))
	}
	return errors.Join(errs...)
}
