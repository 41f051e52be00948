package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/gaze-pointer/monitor/internal/device"
	"github.com/gaze-pointer/monitor/internal/snapshot"
)

func hostState(name string, linked bool) snapshot.HostState {
	return snapshot.HostState{HostView: device.HostView{Name: name, Linked: linked}}
}

// dialBroadcaster serves b on a test server and returns a connected client.
func dialBroadcaster(t *testing.T, b *Broadcaster) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		if _, err := b.AddClient(conn); err != nil {
			t.Errorf("AddClient: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type rawMessage struct {
	Type    MessageType     `json:"type"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload"`
}

func readMessage(t *testing.T, conn *websocket.Conn) rawMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg rawMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestAddClientSendsSnapshot(t *testing.T) {
	store := snapshot.NewStore()
	store.Update(hostState("alpha", true))
	b := NewBroadcaster(store, 10*time.Millisecond, time.Hour, 0)
	defer b.Stop()

	conn := dialBroadcaster(t, b)
	msg := readMessage(t, conn)
	if msg.Type != MsgSnapshot {
		t.Fatalf("first message type = %s, want snapshot", msg.Type)
	}

	var payload SnapshotPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.Hosts) != 1 || payload.Hosts[0].Name != "alpha" || !payload.Hosts[0].Linked {
		t.Errorf("snapshot hosts = %+v, want linked alpha", payload.Hosts)
	}
}

func TestQueuedUpdatesAreBatched(t *testing.T) {
	b := NewBroadcaster(snapshot.NewStore(), 20*time.Millisecond, time.Hour, 0)
	defer b.Stop()
	conn := dialBroadcaster(t, b)
	first := readMessage(t, conn)

	b.QueueUpdate(hostState("alpha", false))
	b.QueueUpdate(hostState("bravo", false), hostState("alpha", true))
	b.QueueRemoval("charlie")
	b.QueueTracking(snapshot.Tracking{Tick: 1})
	b.QueueTracking(snapshot.Tracking{Tick: 2})

	delta := readMessage(t, conn)
	if delta.Type != MsgDelta {
		t.Fatalf("type = %s, want delta", delta.Type)
	}
	if delta.Seq <= first.Seq {
		t.Errorf("delta seq %d not after snapshot seq %d", delta.Seq, first.Seq)
	}
	var dp DeltaPayload
	if err := json.Unmarshal(delta.Payload, &dp); err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, h := range dp.Updates {
		got = append(got, h.Name)
	}
	if diff := cmp.Diff([]string{"alpha", "bravo"}, got); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}
	if !dp.Updates[0].Linked {
		t.Error("batched update did not keep the latest alpha state")
	}
	if diff := cmp.Diff([]string{"charlie"}, dp.Removed); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}

	tracking := readMessage(t, conn)
	if tracking.Type != MsgTracking {
		t.Fatalf("type = %s, want tracking", tracking.Type)
	}
	var tp TrackingPayload
	if err := json.Unmarshal(tracking.Payload, &tp); err != nil {
		t.Fatal(err)
	}
	if tp.Tracking.Tick != 2 {
		t.Errorf("tracking tick = %d, want the newest (2)", tp.Tracking.Tick)
	}
}

func TestAlertIsImmediate(t *testing.T) {
	b := NewBroadcaster(snapshot.NewStore(), time.Hour, time.Hour, 0)
	defer b.Stop()
	conn := dialBroadcaster(t, b)
	readMessage(t, conn)

	b.Alert("alpha", "force-restart the companion app")

	msg := readMessage(t, conn)
	if msg.Type != MsgAlert {
		t.Fatalf("type = %s, want alert", msg.Type)
	}
	var ap AlertPayload
	if err := json.Unmarshal(msg.Payload, &ap); err != nil {
		t.Fatal(err)
	}
	if ap.Host != "alpha" {
		t.Errorf("alert host = %q, want alpha", ap.Host)
	}
}

func TestLatestPerHost(t *testing.T) {
	got := latestPerHost([]snapshot.HostState{
		hostState("a", false),
		hostState("b", false),
		hostState("a", true),
	})
	if len(got) != 2 || got[0].Name != "a" || !got[0].Linked || got[1].Name != "b" {
		t.Errorf("latestPerHost = %+v", got)
	}
}

func TestBroadcaster_SequenceNumberIncrement(t *testing.T) {
	b := NewBroadcaster(snapshot.NewStore(), time.Hour, time.Hour, 0)
	defer b.Stop()

	if b.seq.Load() != 0 {
		t.Errorf("expected initial seq to be 0, got %d", b.seq.Load())
	}
	for i := 1; i <= 5; i++ {
		if seq := b.seq.Add(1); seq != uint64(i) {
			t.Errorf("seq[%d]: expected %d, got %d", i, i, seq)
		}
	}
}

func TestStopIsIdempotent(t *testing.T) {
	b := NewBroadcaster(snapshot.NewStore(), time.Hour, time.Hour, 0)
	dialBroadcaster(t, b)

	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	b.Stop()
	b.Stop()
	if got := b.ClientCount(); got != 0 {
		t.Errorf("ClientCount after Stop = %d, want 0", got)
	}
}
