package device

// SensorView is a read-only copy of one advertised sensor.
type SensorView struct {
	UUID      string     `json:"uuid"`
	Type      SensorType `json:"type"`
	Name      string     `json:"name"`
	Connected bool       `json:"connected"`
	Streaming bool       `json:"streaming"`
}

// HostView is a read-only copy of a Host, safe to hand to other goroutines.
type HostView struct {
	UUID      string       `json:"uuid"`
	Name      string       `json:"name"`
	Index     int          `json:"index"`
	Linked    bool         `json:"linked"`
	Degraded  bool         `json:"degraded"`
	Connected bool         `json:"connected"`
	Available bool         `json:"available"`
	Sensors   []SensorView `json:"sensors,omitempty"`
}

// View returns a snapshot of the host at the given index.
func (h *Host) View(index int) HostView {
	v := HostView{
		UUID:      h.UUID,
		Name:      h.Name,
		Index:     index,
		Linked:    h.linked,
		Degraded:  h.degraded,
		Connected: h.IsConnected(),
		Available: h.IsAvailable(),
	}
	for _, t := range SensorTypes {
		a, ok := h.available[t]
		if !ok {
			continue
		}
		sv := SensorView{UUID: a.UUID, Type: t, Name: a.Name}
		if s, ok := h.sensors[t]; ok && s.UUID == a.UUID {
			sv.Connected = true
			sv.Streaming = s.Streaming
		}
		v.Sensors = append(v.Sensors, sv)
	}
	return v
}

// Clone returns a deep copy of the view.
func (v HostView) Clone() HostView {
	if len(v.Sensors) > 0 {
		v.Sensors = append([]SensorView(nil), v.Sensors...)
	}
	return v
}
