package mock

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gaze-pointer/monitor/internal/device"
	"github.com/gaze-pointer/monitor/internal/gaze"
	"github.com/gaze-pointer/monitor/internal/hostctl"
)

func drain(n *Network) []device.ProtocolEvent {
	var evs []device.ProtocolEvent
	for {
		ev, ok := n.NextEvent()
		if !ok {
			return evs
		}
		evs = append(evs, ev)
	}
}

func stepN(n *Network, ticks int) {
	for range ticks {
		n.Step()
	}
}

func TestStepAnnouncesDevicesOnSchedule(t *testing.T) {
	n := NewNetwork(gaze.DefaultLayout, 0, 1)

	n.Step()
	evs := drain(n)
	if len(evs) != 3 {
		t.Fatalf("tick 1: got %d events, want 3", len(evs))
	}
	for _, ev := range evs {
		if ev.Subject != device.SubjectAttach || ev.HostName != "pi-lab" {
			t.Errorf("tick 1 event = %+v, want pi-lab attach", ev)
		}
	}

	stepN(n, 9)
	var names []string
	for _, ev := range drain(n) {
		if ev.SensorType == "gaze" {
			names = append(names, ev.HostName)
		}
	}
	if diff := cmp.Diff([]string{"pi-desk", "pi-reading", "pi-loaner"}, names); diff != "" {
		t.Errorf("attached hosts mismatch (-want +got):\n%s", diff)
	}
}

func TestReadingDeviceDetaches(t *testing.T) {
	n := NewNetwork(gaze.DefaultLayout, 0, 1)
	stepN(n, 1799)
	drain(n)

	n.Step()
	evs := drain(n)
	if len(evs) != 3 {
		t.Fatalf("got %d events at detach tick, want 3", len(evs))
	}
	for _, ev := range evs {
		if ev.Subject != device.SubjectDetach || ev.HostName != "pi-reading" {
			t.Errorf("event = %+v, want pi-reading detach", ev)
		}
	}
	if _, err := n.Sensor(deviceUUID("pi-reading") + "-gaze"); !errors.Is(err, ErrUnknownSensor) {
		t.Errorf("Sensor after detach err = %v, want ErrUnknownSensor", err)
	}
}

func TestSceneMarkersOcclusion(t *testing.T) {
	if got := len(sceneMarkers(gaze.DefaultLayout, 10)); got != 4 {
		t.Errorf("tick 10: %d markers, want 4", got)
	}
	markers := sceneMarkers(gaze.DefaultLayout, 280)
	if len(markers) != 3 {
		t.Fatalf("tick 280: %d markers, want 3", len(markers))
	}
	_, missing, ok := gaze.BuildQuad(gaze.DefaultLayout, markers)
	if ok || len(missing) != 1 {
		t.Errorf("BuildQuad ok=%v missing=%v, want one missing marker", ok, missing)
	}
}

func TestDetector(t *testing.T) {
	var d Detector

	if markers, err := d.Detect(nil); err != nil || markers != nil {
		t.Errorf("Detect(nil) = %v, %v", markers, err)
	}
	if _, err := d.Detect(&device.Frame{Format: "jpeg"}); !errors.Is(err, ErrUnsupportedFrame) {
		t.Errorf("jpeg frame err = %v, want ErrUnsupportedFrame", err)
	}
	if _, err := d.Detect(&device.Frame{Format: SceneFormat, Data: []byte("{")}); err == nil {
		t.Error("truncated scene decoded without error")
	}
}

func newController(t *testing.T, n *Network) *hostctl.Controller {
	t.Helper()
	c, err := hostctl.New(n, hostctl.Options{})
	if err != nil {
		t.Fatalf("hostctl.New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLinkedDeviceStreamsMappableScene(t *testing.T) {
	n := NewNetwork(gaze.DefaultLayout, 0, 1)
	c := newController(t, n)

	stepN(n, 10)
	c.PollEvents()
	if got := len(c.Hosts()); got != 4 {
		t.Fatalf("tracking %d hosts, want 4", got)
	}
	if err := c.LinkByName("pi-lab"); err != nil {
		t.Fatalf("LinkByName: %v", err)
	}

	stepN(n, 2)
	rec := c.FetchRecentData()
	if rec.Host != "pi-lab" || rec.Frame == nil || rec.Gaze == nil {
		t.Fatalf("FetchRecentData = %+v, want frame and gaze from pi-lab", rec)
	}

	markers, err := Detector{}.Detect(rec.Frame)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(markers) != 4 {
		t.Fatalf("detected %d markers, want 4", len(markers))
	}

	m, err := gaze.NewMapper(gaze.DefaultLayout, gaze.DefaultResolution)
	if err != nil {
		t.Fatal(err)
	}
	out := m.Map(markers, &gaze.Point{X: rec.Gaze.X, Y: rec.Gaze.Y})
	if !out.Move() {
		t.Fatalf("Map reason = %s, want move", out.Reason)
	}
	if out.Target.X < 0 || out.Target.X > 1920 || out.Target.Y < 0 || out.Target.Y > 1080 {
		t.Errorf("target %v outside the screen", out.Target)
	}
}

func TestUnlinkedDeviceDoesNotStream(t *testing.T) {
	n := NewNetwork(gaze.DefaultLayout, 0, 1)
	c := newController(t, n)

	stepN(n, 4)
	c.PollEvents()
	if rec := c.FetchRecentData(); rec.Host != "" {
		t.Errorf("FetchRecentData with nothing linked = %+v", rec)
	}
}

func TestLoanerStreamBreaksAndRecoversOnUnlink(t *testing.T) {
	n := NewNetwork(gaze.DefaultLayout, 0, 1)
	c := newController(t, n)

	stepN(n, 10)
	c.PollEvents()
	if err := c.LinkByName("pi-loaner"); err != nil {
		t.Fatal(err)
	}
	loaner, _ := c.Lookup("pi-loaner")

	for range 600 {
		n.Step()
		c.FetchRecentData()
	}
	if !loaner.IsDegraded() {
		t.Fatal("pi-loaner not degraded after its gaze stream broke")
	}
	if h := c.Health(loaner); h.Status != hostctl.StatusDegraded {
		t.Errorf("health = %+v, want degraded", h)
	}

	c.Unlink()
	if err := c.LinkByName("pi-loaner"); err != nil {
		t.Fatal(err)
	}
	n.Step()
	if rec := c.FetchRecentData(); rec.Gaze == nil {
		t.Error("no gaze after relinking pi-loaner")
	}
}

func TestDeviceUUIDStable(t *testing.T) {
	a, b := defaultDevices(), defaultDevices()
	for i := range a {
		if a[i].uuid != b[i].uuid {
			t.Errorf("%s uuid changed between runs: %s != %s", a[i].name, a[i].uuid, b[i].uuid)
		}
	}
	if a[0].uuid == a[1].uuid {
		t.Error("distinct devices share a uuid")
	}
}

func TestStartStop(t *testing.T) {
	n := NewNetwork(gaze.DefaultLayout, 0, 1)
	if err := n.Start(); err != nil {
		t.Fatal(err)
	}
	if err := n.Start(); err == nil {
		t.Error("second Start succeeded")
	}
	if err := n.Stop(); err != nil {
		t.Fatal(err)
	}
}
