package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gaze-pointer/monitor/internal/tui/client"
)

type fakeServer struct {
	hosts    []client.HostState
	linked   []string
	unlinked int
	linkErr  error
}

func (f *fakeServer) GetHosts() ([]client.HostState, error) { return f.hosts, nil }

func (f *fakeServer) Link(name string) (*client.LinkResponse, error) {
	if f.linkErr != nil {
		return nil, f.linkErr
	}
	f.linked = append(f.linked, name)
	return &client.LinkResponse{Host: name, Status: "pending"}, nil
}

func (f *fakeServer) Unlink() (*client.LinkResponse, error) {
	f.unlinked++
	return &client.LinkResponse{Status: "pending"}, nil
}

type fakeStream struct{}

func (fakeStream) Listen(context.Context) tea.Cmd   { return nil }
func (fakeStream) ReadLoop(context.Context) tea.Cmd { return nil }

func newModel(srv *fakeServer) Model {
	m := New(fakeStream{}, srv)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m, _ = update(t, m, cmd())
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var snapshot = client.SnapshotPayload{
	Hosts: []client.HostState{
		{UUID: "a", Name: "pi-lab", Index: 0, Available: true, Linked: true},
		{UUID: "b", Name: "pi-desk", Index: 1, Available: true},
		{UUID: "c", Name: "pi-old", Index: 2},
	},
	Tracking: client.Tracking{Tick: 4, Host: "pi-lab", Outcome: "move", Relative: &client.Point{X: 0.5, Y: 0.5}},
}

func TestSnapshotPopulatesHosts(t *testing.T) {
	m, _ := update(t, newModel(&fakeServer{}), client.WSSnapshotMsg{Payload: snapshot})

	if got := strings.Join(m.Hosts(), ","); got != "pi-lab,pi-desk,pi-old" {
		t.Errorf("Hosts() = %s", got)
	}
	if m.statusBar.Linked != "pi-lab" || m.statusBar.Hosts != 3 || m.statusBar.Available != 2 {
		t.Errorf("status bar = %+v", m.statusBar)
	}
	if m.statusBar.Outcome != "move" {
		t.Errorf("status outcome = %q, want move", m.statusBar.Outcome)
	}
}

func TestDeltaUpdatesAndRemoves(t *testing.T) {
	m, _ := update(t, newModel(&fakeServer{}), client.WSSnapshotMsg{Payload: snapshot})
	m, _ = update(t, m, client.WSDeltaMsg{Payload: client.DeltaPayload{
		Updates: []client.HostState{{UUID: "b", Name: "pi-desk", Index: 1, Available: true, Degraded: true, Linked: true}},
		Removed: []string{"pi-old"},
	}})

	if len(m.hosts) != 2 {
		t.Fatalf("hosts = %d, want 2", len(m.hosts))
	}
	if !m.hosts["b"].Degraded {
		t.Error("delta update not applied")
	}
	if m.statusBar.Degraded != 1 {
		t.Errorf("Degraded = %d, want 1", m.statusBar.Degraded)
	}
}

func TestEnterLinksSelectedHost(t *testing.T) {
	srv := &fakeServer{}
	m, _ := update(t, newModel(srv), client.WSSnapshotMsg{Payload: snapshot})
	m, _ = update(t, m, keyMsg("j")) // pi-desk

	m, cmd := update(t, m, keyMsg("enter"))
	m = run(t, m, cmd)

	if len(srv.linked) != 1 || srv.linked[0] != "pi-desk" {
		t.Fatalf("linked = %v, want [pi-desk]", srv.linked)
	}
	last := m.events.Entries[len(m.events.Entries)-1]
	if last.Message != "link pi-desk pending" {
		t.Errorf("last event = %q", last.Message)
	}
}

func TestLinkUnavailableHostIsRefused(t *testing.T) {
	srv := &fakeServer{}
	m, _ := update(t, newModel(srv), client.WSSnapshotMsg{Payload: snapshot})
	m, _ = update(t, m, keyMsg("3")) // pi-old

	m, cmd := update(t, m, keyMsg("enter"))
	if cmd != nil {
		t.Error("linking an unavailable host should not send a request")
	}
	if len(srv.linked) != 0 {
		t.Errorf("linked = %v", srv.linked)
	}
	if n := len(m.events.Entries); n == 0 || !strings.Contains(m.events.Entries[n-1].Message, "not available") {
		t.Errorf("events = %+v", m.events.Entries)
	}
}

func TestLinkErrorShownInDetail(t *testing.T) {
	srv := &fakeServer{linkErr: errors.New("503 link queue full")}
	m, _ := update(t, newModel(srv), client.WSSnapshotMsg{Payload: snapshot})
	m, _ = update(t, m, keyMsg("2"))
	m, cmd := update(t, m, keyMsg("enter"))
	m = run(t, m, cmd)

	m, _ = update(t, m, keyMsg("i"))
	if m.overlay != OverlayDetail {
		t.Fatalf("overlay = %d, want detail", m.overlay)
	}
	if v := m.View(); !strings.Contains(v, "link queue full") {
		t.Errorf("detail view missing link error:\n%s", v)
	}
}

func TestUnlink(t *testing.T) {
	srv := &fakeServer{}
	m, _ := update(t, newModel(srv), client.WSSnapshotMsg{Payload: snapshot})
	_, cmd := update(t, m, keyMsg("u"))
	run(t, m, cmd)
	if srv.unlinked != 1 {
		t.Errorf("unlinked = %d, want 1", srv.unlinked)
	}
}

func TestAlertShownAndLogged(t *testing.T) {
	m, _ := update(t, newModel(&fakeServer{}), client.WSAlertMsg{Payload: client.AlertPayload{
		Host:    "pi-loaner",
		Message: "pi-loaner is in a bad state. Force-restart the companion app on the device.",
	}})
	m.connected = true

	v := m.View()
	if !strings.Contains(v, "pi-loaner is in a bad state") {
		t.Errorf("view missing alert:\n%s", v)
	}
	if !strings.Contains(v, "1 new alert") {
		t.Errorf("view missing unseen alert count:\n%s", v)
	}

	m, _ = update(t, m, keyMsg("e"))
	if m.overlay != OverlayEvents || m.events.Unseen != 0 {
		t.Errorf("overlay=%d unseen=%d, want events overlay and alerts seen", m.overlay, m.events.Unseen)
	}
	m, _ = update(t, m, keyMsg("esc"))
	m, _ = update(t, m, keyMsg("esc"))
	if m.alert != "" {
		t.Errorf("alert = %q after esc, want cleared", m.alert)
	}
}

func TestVoiceCommandsLoggedOncePerTick(t *testing.T) {
	m := newModel(&fakeServer{})
	tr := client.Tracking{Tick: 9, Host: "pi-lab", Commands: []string{"left_click"}}
	m, _ = update(t, m, client.WSTrackingMsg{Payload: client.TrackingPayload{Tracking: tr}})
	m, _ = update(t, m, client.WSTrackingMsg{Payload: client.TrackingPayload{Tracking: tr}})

	var n int
	for _, e := range m.events.Entries {
		if e.Message == "left_click" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("voice command logged %d times, want 1", n)
	}
}

func TestDisconnectBanner(t *testing.T) {
	m := newModel(&fakeServer{})
	v := m.View()
	if !strings.Contains(v, "DISCONNECTED") || !strings.Contains(v, "Reconnecting") {
		t.Errorf("view missing disconnect banner:\n%s", v)
	}

	m, _ = update(t, m, client.WSConnectedMsg{})
	if strings.Contains(m.View(), "DISCONNECTED") {
		t.Error("banner shown while connected")
	}
}

func TestHelpOverlay(t *testing.T) {
	m := newModel(&fakeServer{})
	m.helpView.Style = "notty"
	m, _ = update(t, m, keyMsg("?"))
	if m.overlay != OverlayHelp {
		t.Fatalf("overlay = %d, want help", m.overlay)
	}
	if v := m.View(); !strings.Contains(v, "link host") {
		t.Errorf("help overlay missing key list:\n%s", v)
	}
	m, _ = update(t, m, keyMsg("?"))
	if m.overlay != OverlayNone {
		t.Errorf("overlay = %d after second ?, want none", m.overlay)
	}
}

func TestQuit(t *testing.T) {
	m := newModel(&fakeServer{})
	_, cmd := update(t, m, keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
	if m.ctx.Err() == nil {
		t.Error("quit should cancel the client context")
	}
}
