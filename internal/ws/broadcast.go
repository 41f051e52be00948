package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gaze-pointer/monitor/internal/snapshot"
)

var ErrTooManyClients = errors.New("too many websocket clients")

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.b.RemoveClient(c)
			// Drain until RemoveClient closes send.
			for range c.send {
			}
			return
		}
	}
}

// Broadcaster pushes host deltas and tracking updates to websocket clients.
// Host deltas are batched over the throttle window; tracking updates keep
// only the newest one per window. A full snapshot goes out every
// snapshotInterval.
type Broadcaster struct {
	mu         sync.RWMutex
	clients    map[*client]bool
	maxClients int

	store    *snapshot.Store
	throttle time.Duration
	seq      atomic.Uint64

	flushMu         sync.Mutex
	pendingUpdates  []snapshot.HostState
	pendingRemoved  []string
	pendingTracking *snapshot.Tracking
	flushTimer      *time.Timer

	snapshotTicker *time.Ticker
	done           chan struct{}
	stopOnce       sync.Once
}

// NewBroadcaster starts the snapshot loop. maxClients <= 0 means no limit.
func NewBroadcaster(store *snapshot.Store, throttle, snapshotInterval time.Duration, maxClients int) *Broadcaster {
	b := &Broadcaster{
		clients:        make(map[*client]bool),
		maxClients:     maxClients,
		store:          store,
		throttle:       throttle,
		snapshotTicker: time.NewTicker(snapshotInterval),
		done:           make(chan struct{}),
	}
	go b.snapshotLoop()
	return b
}

// AddClient registers conn and queues the current snapshot for it.
func (b *Broadcaster) AddClient(conn *websocket.Conn) (*client, error) {
	c := &client{
		conn: conn,
		b:    b,
		send: make(chan []byte, 64),
	}

	b.mu.Lock()
	if b.maxClients > 0 && len(b.clients) >= b.maxClients {
		b.mu.Unlock()
		return nil, ErrTooManyClients
	}
	b.clients[c] = true
	b.mu.Unlock()

	go c.writePump()

	data, err := b.encode(MsgSnapshot, b.snapshotPayload())
	if err == nil {
		select {
		case c.send <- data:
		default:
			// Client too slow, drop the snapshot
		}
	}
	return c, nil
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) QueueUpdate(hosts ...snapshot.HostState) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	b.pendingUpdates = append(b.pendingUpdates, hosts...)
	b.armLocked()
}

func (b *Broadcaster) QueueRemoval(names ...string) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	b.pendingRemoved = append(b.pendingRemoved, names...)
	b.armLocked()
}

// QueueTracking replaces any tracking update not yet sent.
func (b *Broadcaster) QueueTracking(t snapshot.Tracking) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	b.pendingTracking = &t
	b.armLocked()
}

// Alert is sent immediately.
func (b *Broadcaster) Alert(host, message string) {
	b.broadcast(MsgAlert, AlertPayload{Host: host, Message: message})
}

func (b *Broadcaster) armLocked() {
	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
}

func (b *Broadcaster) flush() {
	b.flushMu.Lock()
	updates := b.pendingUpdates
	removed := b.pendingRemoved
	tracking := b.pendingTracking
	b.pendingUpdates = nil
	b.pendingRemoved = nil
	b.pendingTracking = nil
	b.flushTimer = nil
	b.flushMu.Unlock()

	if len(updates) > 0 || len(removed) > 0 {
		b.broadcast(MsgDelta, DeltaPayload{Updates: latestPerHost(updates), Removed: removed})
	}
	if tracking != nil {
		b.broadcast(MsgTracking, TrackingPayload{Tracking: *tracking})
	}
}

// latestPerHost keeps the last update of each host, in first-seen order.
func latestPerHost(updates []snapshot.HostState) []snapshot.HostState {
	pos := make(map[string]int, len(updates))
	out := make([]snapshot.HostState, 0, len(updates))
	for _, u := range updates {
		if i, ok := pos[u.Name]; ok {
			out[i] = u
			continue
		}
		pos[u.Name] = len(out)
		out = append(out, u)
	}
	return out
}

func (b *Broadcaster) snapshotPayload() SnapshotPayload {
	return SnapshotPayload{
		Hosts:    b.store.GetAll(),
		Tracking: b.store.Tracking(),
	}
}

func (b *Broadcaster) snapshotLoop() {
	for {
		select {
		case <-b.done:
			return
		case <-b.snapshotTicker.C:
			b.broadcast(MsgSnapshot, b.snapshotPayload())
		}
	}
}

func (b *Broadcaster) encode(t MessageType, payload interface{}) ([]byte, error) {
	msg := WSMessage{Type: t, Seq: b.seq.Add(1), Payload: payload}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return nil, err
	}
	return data, nil
}

func (b *Broadcaster) broadcast(t MessageType, payload interface{}) {
	data, err := b.encode(t, payload)
	if err != nil {
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		b.mu.RLock()
		live := b.clients[c]
		if live {
			select {
			case c.send <- data:
			default:
				live = false
			}
		}
		b.mu.RUnlock()
		if !live {
			// Client can't keep up, disconnect it
			log.Printf("ws client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Stop ends the snapshot loop and disconnects every client.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.snapshotTicker.Stop()

		b.flushMu.Lock()
		if b.flushTimer != nil {
			b.flushTimer.Stop()
			b.flushTimer = nil
		}
		b.flushMu.Unlock()

		b.mu.Lock()
		for c := range b.clients {
			delete(b.clients, c)
			close(c.send)
		}
		b.mu.Unlock()
	})
}
