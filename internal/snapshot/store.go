// Package snapshot keeps read-only copies of controller and tracking state
// for the HTTP and websocket goroutines.
package snapshot

import (
	"slices"
	"sync"
	"time"

	"github.com/gaze-pointer/monitor/internal/device"
	"github.com/gaze-pointer/monitor/internal/gaze"
	"github.com/gaze-pointer/monitor/internal/hostctl"
)

// HostState is a host view plus its stream health.
type HostState struct {
	device.HostView
	Health hostctl.Health `json:"health"`
}

func (h HostState) clone() HostState {
	h.HostView = h.HostView.Clone()
	return h
}

// Tracking is the outcome of the latest poll tick.
type Tracking struct {
	Tick       uint64             `json:"tick"`
	Host       string             `json:"host,omitempty"`
	FrameIndex uint64             `json:"frameIndex,omitempty"`
	HasFrame   bool               `json:"hasFrame"`
	Gaze       *device.GazeSample `json:"gaze,omitempty"`
	Markers    int                `json:"markers"`
	Outcome    string             `json:"outcome,omitempty"`
	Missing    []int              `json:"missing,omitempty"`
	Quad       *gaze.Quad         `json:"quad,omitempty"`
	Relative   *gaze.Point        `json:"relative,omitempty"`
	Target     *gaze.Point        `json:"target,omitempty"`
	Pointer    *gaze.Point        `json:"pointer,omitempty"`
	Commands   []string           `json:"commands,omitempty"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

func (t Tracking) clone() Tracking {
	if t.Gaze != nil {
		g := *t.Gaze
		t.Gaze = &g
	}
	if t.Quad != nil {
		q := *t.Quad
		t.Quad = &q
	}
	for _, p := range []**gaze.Point{&t.Relative, &t.Target, &t.Pointer} {
		if *p != nil {
			v := **p
			*p = &v
		}
	}
	t.Missing = slices.Clone(t.Missing)
	t.Commands = slices.Clone(t.Commands)
	return t
}

// Store is safe for concurrent use. Everything going in or out is copied.
type Store struct {
	mu       sync.RWMutex
	hosts    map[string]HostState
	tracking Tracking
}

func NewStore() *Store {
	return &Store{
		hosts: make(map[string]HostState),
	}
}

func (s *Store) Get(name string) (HostState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hosts[name]
	if !ok {
		return HostState{}, false
	}
	return h.clone(), true
}

// GetAll returns every host ordered by index.
func (s *Store) GetAll() []HostState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]HostState, 0, len(s.hosts))
	for _, h := range s.hosts {
		result = append(result, h.clone())
	}
	slices.SortFunc(result, func(a, b HostState) int { return a.Index - b.Index })
	return result
}

func (s *Store) Update(h HostState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hosts[h.Name] = h.clone()
}

// Replace swaps the whole host set, e.g. after indices shifted.
func (s *Store) Replace(hosts []HostState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.hosts)
	for _, h := range hosts {
		s.hosts[h.Name] = h.clone()
	}
}

func (s *Store) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hosts, name)
}

// Linked returns the linked host, if any.
func (s *Store) Linked() (HostState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.hosts {
		if h.Linked {
			return h.clone(), true
		}
	}
	return HostState{}, false
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hosts)
}

func (s *Store) SetTracking(t Tracking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracking = t.clone()
}

func (s *Store) Tracking() Tracking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracking.clone()
}
