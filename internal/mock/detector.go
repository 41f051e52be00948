package mock

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gaze-pointer/monitor/internal/device"
	"github.com/gaze-pointer/monitor/internal/gaze"
)

var ErrUnsupportedFrame = errors.New("unsupported frame format")

// Detector reads the markers a simulated frame carries. It implements
// gaze.Detector.
type Detector struct{}

func (Detector) Detect(frame *device.Frame) ([]gaze.Marker, error) {
	if frame == nil {
		return nil, nil
	}
	if frame.Format != SceneFormat {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFrame, frame.Format)
	}
	var sc scene
	if err := json.Unmarshal(frame.Data, &sc); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	return sc.Markers, nil
}

func (Detector) Close() error { return nil }
