package client

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

var errNotConnected = errors.New("not connected")

// Bubble Tea messages produced by WSClient.
type (
	WSConnectedMsg    struct{}
	WSDisconnectedMsg struct{ Err error }
	WSSnapshotMsg     struct{ Payload SnapshotPayload }
	WSDeltaMsg        struct{ Payload DeltaPayload }
	WSTrackingMsg     struct{ Payload TrackingPayload }
	// WSAlertMsg is sent when a host goes into a bad state.
	WSAlertMsg struct{ Payload AlertPayload }
	WSErrorMsg struct{ Raw json.RawMessage }
)

// backoff doubles the retry delay up to max.
type backoff struct {
	next, base, max time.Duration
}

func (b *backoff) wait(ctx context.Context) bool {
	if b.next == 0 {
		b.next = b.base
	}
	t := time.NewTimer(b.next)
	defer t.Stop()
	b.next = min(b.next*2, b.max)
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// session is one live connection plus its keepalive.
type session struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	stopPing context.CancelFunc
}

func (s *session) ping() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *session) close() {
	s.stopPing()
	_ = s.conn.Close()
}

// WSClient follows the monitor's websocket stream, reconnecting with
// backoff whenever it drops.
type WSClient struct {
	url    string
	token  string
	dialer websocket.Dialer
	retry  backoff

	mu  sync.Mutex
	cur *session
	seq uint64
}

func NewWSClient(url, token string) *WSClient {
	return &WSClient{
		url:    url,
		token:  token,
		dialer: websocket.Dialer{HandshakeTimeout: dialTimeout, Proxy: http.ProxyFromEnvironment},
		retry:  backoff{base: time.Second, max: 30 * time.Second},
	}
}

func (c *WSClient) header() http.Header {
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	return h
}

// Listen dials until a connection is up, then reports WSConnectedMsg.
// The command yields nil if ctx ends first.
func (c *WSClient) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		for ctx.Err() == nil {
			conn, _, err := c.dialer.DialContext(ctx, c.url, c.header())
			if err != nil {
				log.Printf("[ws] dial %s: %v", c.url, err)
				if !c.retry.wait(ctx) {
					return nil
				}
				continue
			}
			c.retry.next = 0
			c.attach(ctx, conn)
			return WSConnectedMsg{}
		}
		return nil
	}
}

func (c *WSClient) attach(ctx context.Context, conn *websocket.Conn) {
	pingCtx, stop := context.WithCancel(ctx)
	s := &session{conn: conn, stopPing: stop}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))

	c.mu.Lock()
	if c.cur != nil {
		c.cur.close()
	}
	c.cur = s
	c.seq = 0
	c.mu.Unlock()

	go c.keepalive(pingCtx, s)
}

func (c *WSClient) keepalive(ctx context.Context, s *session) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ping(); err != nil {
				log.Printf("[ws] ping: %v", err)
				return
			}
		}
	}
}

// ReadLoop blocks until the next message the UI cares about and returns it.
// Re-issue it after every message.
func (c *WSClient) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		s := c.cur
		c.mu.Unlock()
		if s == nil {
			return WSDisconnectedMsg{Err: errNotConnected}
		}

		for {
			var msg WSMessage
			if err := s.conn.ReadJSON(&msg); err != nil {
				var syntax *json.SyntaxError
				if errors.As(err, &syntax) {
					continue
				}
				c.drop(s)
				return WSDisconnectedMsg{Err: err}
			}

			c.mu.Lock()
			c.seq = msg.Seq
			c.mu.Unlock()

			if out := dispatch(msg); out != nil {
				return out
			}
		}
	}
}

func (c *WSClient) drop(s *session) {
	c.mu.Lock()
	if c.cur == s {
		c.cur = nil
	}
	c.mu.Unlock()
	s.close()
}

// Close drops the active connection, if any.
func (c *WSClient) Close() {
	c.mu.Lock()
	s := c.cur
	c.cur = nil
	c.mu.Unlock()
	if s != nil {
		s.close()
	}
}

// Seq returns the sequence number of the last message read.
func (c *WSClient) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

func decode[T any](raw json.RawMessage, wrap func(T) tea.Msg) tea.Msg {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Printf("[ws] bad payload: %v", err)
		return nil
	}
	return wrap(p)
}

var decoders = map[MessageType]func(json.RawMessage) tea.Msg{
	MsgSnapshot: func(raw json.RawMessage) tea.Msg {
		return decode(raw, func(p SnapshotPayload) tea.Msg { return WSSnapshotMsg{Payload: p} })
	},
	MsgDelta: func(raw json.RawMessage) tea.Msg {
		return decode(raw, func(p DeltaPayload) tea.Msg { return WSDeltaMsg{Payload: p} })
	},
	MsgTracking: func(raw json.RawMessage) tea.Msg {
		return decode(raw, func(p TrackingPayload) tea.Msg { return WSTrackingMsg{Payload: p} })
	},
	MsgAlert: func(raw json.RawMessage) tea.Msg {
		return decode(raw, func(p AlertPayload) tea.Msg { return WSAlertMsg{Payload: p} })
	},
	MsgError: func(raw json.RawMessage) tea.Msg { return WSErrorMsg{Raw: raw} },
}

// dispatch turns a wire message into its Bubble Tea message, or nil for
// types the UI ignores.
func dispatch(msg WSMessage) tea.Msg {
	if fn, ok := decoders[msg.Type]; ok {
		return fn(msg.Payload)
	}
	return nil
}
