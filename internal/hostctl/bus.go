package hostctl

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/gaze-pointer/monitor/internal/device"
	"github.com/gaze-pointer/monitor/internal/metrics"
)

// EventKind classifies controller events.
type EventKind int

const (
	HostAdded   EventKind = iota // host first discovered
	HostRemoved                  // host dropped from the index
	HostChanged                  // sensors, link or degraded state changed
	HostLinked                   // host became the linked host
	RecentFrame                  // newest scene frame of the linked host
	RecentGaze                   // newest gaze sample of the linked host
)

// AllEventKinds lists every EventKind.
var AllEventKinds = []EventKind{HostAdded, HostRemoved, HostChanged, HostLinked, RecentFrame, RecentGaze}

var eventKindNames = map[EventKind]string{
	HostAdded:   "host_added",
	HostRemoved: "host_removed",
	HostChanged: "host_changed",
	HostLinked:  "host_linked",
	RecentFrame: "recent_frame",
	RecentGaze:  "recent_gaze",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Event carries one controller notification to observers. Index is the
// host's position in the name-ordered index at publish time; for
// HostRemoved it is the position the host had before removal. Host is a
// copy and safe to retain.
type Event struct {
	Kind  EventKind
	Index int
	Host  device.HostView
	Frame *device.Frame
	Gaze  *device.GazeSample
}

type subscription struct {
	id    string
	kinds map[EventKind]bool // nil means every kind
	fn    func(Event)
}

// Bus fans controller events out to subscribers. Handlers run
// synchronously on the publishing goroutine in subscription order and must
// not call back into the controller.
type Bus struct {
	mu   sync.Mutex
	subs []subscription
}

// Subscribe registers fn for the given kinds, or for every kind when none
// are given. It returns an id for Unsubscribe.
func (b *Bus) Subscribe(fn func(Event), kinds ...EventKind) string {
	sub := subscription{id: uuid.NewString(), fn: fn}
	if len(kinds) > 0 {
		sub.kinds = make(map[EventKind]bool, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = true
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
	return sub.id
}

// Unsubscribe removes a subscription. It reports whether the id was known.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := slices.IndexFunc(b.subs, func(s subscription) bool { return s.id == id })
	if i < 0 {
		return false
	}
	b.subs = slices.Delete(b.subs, i, i+1)
	return true
}

func (b *Bus) publish(ev Event) {
	metrics.RecordHostEvent(ev.Kind.String())

	b.mu.Lock()
	subs := slices.Clone(b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		if s.kinds != nil && !s.kinds[ev.Kind] {
			continue
		}
		s.fn(ev)
	}
}
