// Package gaze maps gaze points from scene camera coordinates to screen
// coordinates using a calibration quad built from four fiducial markers.
package gaze

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gaze-pointer/monitor/internal/device"
)

// Point is a position in image or screen space.
type Point = r2.Vec

// Corner names one corner of a marker or of the calibration quad.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomRight
	BottomLeft
)

// Corners lists the corners in polygon order.
var Corners = []Corner{TopLeft, TopRight, BottomRight, BottomLeft}

var cornerNames = map[Corner]string{
	TopLeft:     "top_left",
	TopRight:    "top_right",
	BottomRight: "bottom_right",
	BottomLeft:  "bottom_left",
}

func (c Corner) String() string {
	if s, ok := cornerNames[c]; ok {
		return s
	}
	return "unknown"
}

// Marker is one detected fiducial marker. Corners are ordered top-left,
// top-right, bottom-right, bottom-left whatever the marker's rotation in
// the image.
type Marker struct {
	ID      int      `json:"id"`
	Corners [4]Point `json:"corners"`
}

// Corner returns the marker's corner c.
func (m Marker) Corner(c Corner) Point {
	return m.Corners[c]
}

// Detector finds fiducial markers in a scene frame.
type Detector interface {
	Detect(frame *device.Frame) ([]Marker, error)
	Close() error
}

var ErrInvalidLayout = errors.New("invalid calibration layout")

// Layout assigns a marker id to each corner of the calibration quad. Each
// marker contributes its own corner of the same name: the top-left marker
// its top-left corner, and so on.
type Layout struct {
	TopLeft     int `yaml:"top_left" json:"topLeft"`
	TopRight    int `yaml:"top_right" json:"topRight"`
	BottomRight int `yaml:"bottom_right" json:"bottomRight"`
	BottomLeft  int `yaml:"bottom_left" json:"bottomLeft"`
}

// DefaultLayout is the marker arrangement printed around the reference
// screen.
var DefaultLayout = Layout{
	TopLeft:     42,
	TopRight:    24,
	BottomRight: 70,
	BottomLeft:  66,
}

// ID returns the marker id assigned to corner c.
func (l Layout) ID(c Corner) int {
	switch c {
	case TopLeft:
		return l.TopLeft
	case TopRight:
		return l.TopRight
	case BottomRight:
		return l.BottomRight
	default:
		return l.BottomLeft
	}
}

// IDs returns the marker ids in polygon order.
func (l Layout) IDs() [4]int {
	return [4]int{l.TopLeft, l.TopRight, l.BottomRight, l.BottomLeft}
}

func (l Layout) Validate() error {
	seen := make(map[int]Corner, 4)
	for _, c := range Corners {
		id := l.ID(c)
		if id < 0 {
			return fmt.Errorf("%w: %s marker id %d is negative", ErrInvalidLayout, c, id)
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("%w: marker %d used for both %s and %s", ErrInvalidLayout, id, prev, c)
		}
		seen[id] = c
	}
	return nil
}
