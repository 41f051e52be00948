package events

import (
	"strings"
	"testing"
)

func TestAddEntry(t *testing.T) {
	m := New()
	m.Add(KindWS, "connected")
	if len(m.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(m.Entries))
	}
	if m.Entries[0].Kind != KindWS {
		t.Errorf("expected kind %q, got %q", KindWS, m.Entries[0].Kind)
	}
	if m.Unseen != 0 {
		t.Errorf("Unseen = %d after a ws entry, want 0", m.Unseen)
	}
}

func TestMaxEntries(t *testing.T) {
	m := New()
	for i := 0; i < maxEntries+50; i++ {
		m.Add(KindWS, "msg")
	}
	if len(m.Entries) != maxEntries {
		t.Errorf("expected %d entries, got %d", maxEntries, len(m.Entries))
	}
}

func TestScroll(t *testing.T) {
	m := New()
	for i := 0; i < 20; i++ {
		m.Add(KindWS, "msg")
	}

	m.ScrollUp(5)
	if m.Offset != 5 {
		t.Errorf("expected offset 5, got %d", m.Offset)
	}
	m.ScrollDown(3)
	if m.Offset != 2 {
		t.Errorf("expected offset 2, got %d", m.Offset)
	}
	m.ScrollDown(10)
	if m.Offset != 0 {
		t.Errorf("expected offset 0, got %d", m.Offset)
	}
	m.ScrollUp(100)
	if m.Offset != 19 {
		t.Errorf("expected offset capped at 19, got %d", m.Offset)
	}

	m.Add(KindWS, "new")
	if m.Offset != 0 {
		t.Error("adding an entry should reset scroll to 0")
	}
}

func TestAlertsCountUntilSeen(t *testing.T) {
	m := New()
	m.Add(KindAlert, "pi-loaner is in a bad state")
	m.Add(KindAlert, "pi-desk is in a bad state")
	if m.Unseen != 2 {
		t.Fatalf("Unseen = %d, want 2", m.Unseen)
	}
	m.MarkSeen()
	if m.Unseen != 0 {
		t.Errorf("Unseen = %d after MarkSeen, want 0", m.Unseen)
	}
}

func TestAlertsOnlyFilter(t *testing.T) {
	m := New()
	m.Add(KindWS, "connected")
	m.Add(KindLink, "link pi-lab queued")
	m.Add(KindAlert, "pi-loaner is in a bad state")
	m.Add(KindErr, "unlink: 503")

	m.ToggleFilter()
	v := m.View(100, 20)
	if strings.Contains(v, "connected") || strings.Contains(v, "queued") {
		t.Errorf("filtered view shows non-alert entries:\n%s", v)
	}
	if !strings.Contains(v, "bad state") || !strings.Contains(v, "503") {
		t.Errorf("filtered view is missing alerts or errors:\n%s", v)
	}

	m.ScrollUp(10)
	if m.Offset != 1 {
		t.Errorf("offset = %d, want scroll capped by the filtered count", m.Offset)
	}
}

func TestViewEmpty(t *testing.T) {
	v := New().View(80, 20)
	if !strings.Contains(v, "No events") {
		t.Error("empty view should show 'No events' message")
	}
}
