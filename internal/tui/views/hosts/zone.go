package hosts

import (
	"github.com/gaze-pointer/monitor/internal/tui/client"
)

// Zone groups hosts in the list.
type Zone int

const (
	ZoneLinked Zone = iota
	ZoneAvailable
	ZoneOffline
)

// Classify returns the zone a host belongs in. A degraded host stays in
// the linked zone until it is unlinked.
func Classify(h *client.HostState) Zone {
	switch {
	case h.Linked:
		return ZoneLinked
	case h.Available:
		return ZoneAvailable
	default:
		return ZoneOffline
	}
}

func ZoneName(z Zone) string {
	switch z {
	case ZoneLinked:
		return "LINKED"
	case ZoneAvailable:
		return "AVAILABLE"
	case ZoneOffline:
		return "OFFLINE"
	default:
		return "?"
	}
}
