package device

import (
	"encoding/json"
	"strings"
)

type SensorType int

const (
	SensorUnknown SensorType = iota
	SensorVideo
	SensorGaze
)

var sensorTypeNames = map[SensorType]string{
	SensorVideo: "video",
	SensorGaze:  "gaze",
}

var sensorTypeFromName = map[string]SensorType{
	"video": SensorVideo,
	"gaze":  SensorGaze,
}

// SensorTypes lists the sensor types a host can register, in connect order.
var SensorTypes = []SensorType{SensorVideo, SensorGaze}

// DefaultWorldMarker is the substring that identifies the primary scene
// camera among the video sensors a device advertises.
const DefaultWorldMarker = "world"

func (t SensorType) String() string {
	if s, ok := sensorTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

func (t SensorType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *SensorType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseSensorType(s)
	return nil
}

// ParseSensorType maps a protocol sensor type name to a SensorType.
// Names the controller does not track map to SensorUnknown.
func ParseSensorType(name string) SensorType {
	if t, ok := sensorTypeFromName[name]; ok {
		return t
	}
	return SensorUnknown
}

// AcceptSensor reports whether a sensor advertised with the given type and
// name should be registered on a host. Gaze sensors are always accepted;
// video sensors only when their name carries worldMarker, so auxiliary eye
// cameras are ignored. Every other type is rejected.
func AcceptSensor(t SensorType, name, worldMarker string) bool {
	switch t {
	case SensorGaze:
		return true
	case SensorVideo:
		if worldMarker == "" {
			worldMarker = DefaultWorldMarker
		}
		return strings.Contains(name, worldMarker)
	default:
		return false
	}
}

// Advert is a sensor a host has announced but that is not necessarily
// connected.
type Advert struct {
	UUID string
	Name string
}

// Sensor is a connected, streaming data endpoint owned by a linked Host.
type Sensor struct {
	UUID      string
	Type      SensorType
	Name      string
	Streaming bool

	client SensorClient
}

// Client returns the protocol client backing this sensor.
func (s *Sensor) Client() SensorClient {
	return s.client
}
