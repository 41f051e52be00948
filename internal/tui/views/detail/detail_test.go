package detail

import (
	"strings"
	"testing"
	"time"

	"github.com/gaze-pointer/monitor/internal/tui/client"
)

func TestViewNilHost(t *testing.T) {
	if v := New(nil).View(); v != "" {
		t.Errorf("View() with no host = %q, want empty", v)
	}
}

func TestState(t *testing.T) {
	tests := []struct {
		name string
		host client.HostState
		want string
	}{
		{"offline", client.HostState{}, "offline"},
		{"available", client.HostState{Available: true}, "available"},
		{"linked", client.HostState{Available: true, Linked: true}, "linked"},
		{"failing", client.HostState{Linked: true, Health: client.Health{Status: client.StatusFailing}}, "failing"},
		{"degraded", client.HostState{Linked: true, Degraded: true}, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := State(&tt.host); got != tt.want {
				t.Errorf("State() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestViewLinkedHost(t *testing.T) {
	h := &client.HostState{
		UUID:      "4f9c-pi-lab",
		Name:      "pi-lab",
		Linked:    true,
		Connected: true,
		Available: true,
		Health: client.Health{
			Status:      client.StatusFailing,
			Failures:    2,
			LastError:   "fetch gaze: timeout",
			LastFailure: time.Now().Add(-5 * time.Second),
		},
		Sensors: []client.SensorView{
			{UUID: "4f9c-world", Type: "video", Name: "PI world v1", Connected: true, Streaming: true},
			{UUID: "4f9c-gaze", Type: "gaze", Name: "Gaze", Connected: true},
		},
	}
	v := New(h).View()
	for _, want := range []string{"Host: pi-lab", "failing", "Failures", "fetch gaze: timeout", "Sensors (2)", "PI world v1", "[u] unlink"} {
		if !strings.Contains(v, want) {
			t.Errorf("View() missing %q:\n%s", want, v)
		}
	}
}

func TestViewLinkError(t *testing.T) {
	m := New(&client.HostState{Name: "pi-desk", Available: true})
	m.LinkError = "link queue full"
	v := m.View()
	if !strings.Contains(v, "Link error: link queue full") {
		t.Errorf("View() missing link error:\n%s", v)
	}
	if !strings.Contains(v, "[enter] link") {
		t.Errorf("View() should offer link for an available host:\n%s", v)
	}
}
