package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestDispatch(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"snapshot", `{"type":"snapshot","seq":1,"payload":{"hosts":[{"name":"pi-lab","linked":true}]}}`, "client.WSSnapshotMsg"},
		{"delta", `{"type":"delta","seq":2,"payload":{"updates":[],"removed":["pi-desk"]}}`, "client.WSDeltaMsg"},
		{"tracking", `{"type":"tracking","seq":3,"payload":{"tracking":{"tick":9,"outcome":"move"}}}`, "client.WSTrackingMsg"},
		{"alert", `{"type":"alert","seq":4,"payload":{"host":"pi-lab","message":"bad"}}`, "client.WSAlertMsg"},
		{"error", `{"type":"error","seq":5,"payload":"boom"}`, "client.WSErrorMsg"},
		{"unknown", `{"type":"resync","seq":6,"payload":{}}`, "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg WSMessage
			if err := json.Unmarshal([]byte(tt.raw), &msg); err != nil {
				t.Fatal(err)
			}
			got := dispatch(msg)
			if name := fmt.Sprintf("%T", got); name != tt.want {
				t.Errorf("dispatch() = %s, want %s", name, tt.want)
			}
		})
	}
}

func TestDispatchDecodesTracking(t *testing.T) {
	raw := `{"type":"tracking","seq":3,"payload":{"tracking":{"tick":9,"host":"pi-lab","outcome":"move","target":{"X":960,"Y":540}}}}`
	var msg WSMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatal(err)
	}
	got, ok := dispatch(msg).(WSTrackingMsg)
	if !ok {
		t.Fatalf("dispatch() = %T, want WSTrackingMsg", dispatch(msg))
	}
	tr := got.Payload.Tracking
	if tr.Tick != 9 || tr.Host != "pi-lab" || tr.Outcome != "move" {
		t.Errorf("tracking = %+v", tr)
	}
	if tr.Target == nil || tr.Target.X != 960 || tr.Target.Y != 540 {
		t.Errorf("target = %+v, want (960,540)", tr.Target)
	}
}

func TestHTTPClientSendsToken(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"host":"pi lab","status":"pending"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "s3cret")
	resp, err := c.Link("pi lab")
	if err != nil {
		t.Fatalf("Link() error: %v", err)
	}
	if gotAuth != "Bearer s3cret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/api/hosts/pi%20lab/link" {
		t.Errorf("path = %q", gotPath)
	}
	if resp.Status != "pending" {
		t.Errorf("status = %q, want pending", resp.Status)
	}
}

func TestHTTPClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "link queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, "").Unlink()
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("Unlink() error = %v, want 503", err)
	}
}

func TestListenAndRead(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(map[string]interface{}{
			"type":    "alert",
			"seq":     7,
			"payload": map[string]string{"host": "pi-loaner", "message": "bad state"},
		})
		conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := NewWSClient("ws"+strings.TrimPrefix(srv.URL, "http"), "tok")
	defer c.Close()
	if _, ok := c.Listen(ctx)().(WSConnectedMsg); !ok {
		t.Fatal("Listen() did not connect")
	}
	msg, ok := c.ReadLoop(ctx)().(WSAlertMsg)
	if !ok {
		t.Fatal("ReadLoop() did not return an alert")
	}
	if msg.Payload.Host != "pi-loaner" {
		t.Errorf("alert host = %q", msg.Payload.Host)
	}
	if c.Seq() != 7 {
		t.Errorf("Seq() = %d, want 7", c.Seq())
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestReadLoopWithoutConnection(t *testing.T) {
	c := NewWSClient("ws://127.0.0.1:1/ws", "")
	msg, ok := c.ReadLoop(context.Background())().(WSDisconnectedMsg)
	if !ok {
		t.Fatal("ReadLoop() without a connection should report a disconnect")
	}
	if msg.Err != errNotConnected {
		t.Errorf("Err = %v, want errNotConnected", msg.Err)
	}
}

func TestReadLoopReportsServerClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		conn.Close()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := NewWSClient("ws"+strings.TrimPrefix(srv.URL, "http"), "")
	if _, ok := c.Listen(ctx)().(WSConnectedMsg); !ok {
		t.Fatal("Listen() did not connect")
	}
	if _, ok := c.ReadLoop(ctx)().(WSDisconnectedMsg); !ok {
		t.Fatal("ReadLoop() should report the dropped connection")
	}
	if _, ok := c.ReadLoop(ctx)().(WSDisconnectedMsg); !ok {
		t.Fatal("ReadLoop() after a drop should report a disconnect")
	}
}

func TestBackoff(t *testing.T) {
	b := backoff{base: time.Millisecond, max: 4 * time.Millisecond}
	var waits []time.Duration
	for range 4 {
		if !b.wait(context.Background()) {
			t.Fatal("wait() returned false with a live context")
		}
		waits = append(waits, b.next)
	}
	want := []time.Duration{2 * time.Millisecond, 4 * time.Millisecond, 4 * time.Millisecond, 4 * time.Millisecond}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("next delay after wait %d = %v, want %v", i+1, waits[i], want[i])
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if b.wait(ctx) {
		t.Error("wait() with a cancelled context should return false")
	}
}

func TestListenGivesUpWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewWSClient("ws://127.0.0.1:1/ws", "")
	if msg := c.Listen(ctx)(); msg != nil {
		t.Errorf("Listen() = %T, want nil", msg)
	}
}
