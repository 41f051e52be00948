package gaze

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// Reason classifies the result of one Map call.
type Reason int

const (
	ReasonMove Reason = iota
	ReasonNoGaze
	ReasonNoMarkers
	ReasonMissingMarkers
	ReasonMiss
	ReasonDegenerate
)

// Reasons lists every Reason, for metrics and tests.
var Reasons = []Reason{ReasonMove, ReasonNoGaze, ReasonNoMarkers, ReasonMissingMarkers, ReasonMiss, ReasonDegenerate}

var reasonNames = map[Reason]string{
	ReasonMove:           "move",
	ReasonNoGaze:         "no_gaze",
	ReasonNoMarkers:      "no_markers",
	ReasonMissingMarkers: "missing_markers",
	ReasonMiss:           "miss",
	ReasonDegenerate:     "degenerate",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return "unknown"
}

// Resolution is the target screen size in pixels.
type Resolution struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// DefaultResolution is the reference screen the markers surround.
var DefaultResolution = Resolution{Width: 1920, Height: 1080}

var ErrInvalidResolution = errors.New("invalid screen resolution")

func (r Resolution) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidResolution, r.Width, r.Height)
	}
	return nil
}

// Outcome is the result of mapping one gaze sample. Only ReasonMove
// carries a Target.
type Outcome struct {
	Reason   Reason `json:"reason"`
	Quad     *Quad  `json:"quad,omitempty"`
	Missing  []int  `json:"missing,omitempty"`
	Relative Point  `json:"relative"`
	Target   Point  `json:"target"`
}

// Move reports whether the outcome asks for a pointer move.
func (o Outcome) Move() bool {
	return o.Reason == ReasonMove
}

// Mapper turns a marker set and a gaze point into a screen coordinate.
type Mapper struct {
	layout Layout
	screen Resolution
}

func NewMapper(layout Layout, screen Resolution) (*Mapper, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if err := screen.Validate(); err != nil {
		return nil, err
	}
	return &Mapper{layout: layout, screen: screen}, nil
}

func (m *Mapper) Layout() Layout     { return m.layout }
func (m *Mapper) Screen() Resolution { return m.screen }

// Map locates the gaze point relative to the calibration quad.
//
// The relative position treats the quad as axis aligned in the image: it
// divides the offset from the top-left reference corner by the top edge
// width and the left edge height. Rotation and perspective are not
// corrected.
func (m *Mapper) Map(markers []Marker, gaze *Point) Outcome {
	if gaze == nil {
		return Outcome{Reason: ReasonNoGaze}
	}
	if len(markers) == 0 {
		return Outcome{Reason: ReasonNoMarkers}
	}
	quad, missing, ok := BuildQuad(m.layout, markers)
	if !ok {
		return Outcome{Reason: ReasonMissingMarkers, Missing: missing}
	}
	if !quad.Contains(*gaze) {
		return Outcome{Reason: ReasonMiss, Quad: &quad}
	}

	width, height := quad.Width(), quad.Height()
	if width == 0 || height == 0 {
		return Outcome{Reason: ReasonDegenerate, Quad: &quad}
	}

	offset := r2.Sub(*gaze, quad.TopLeft)
	rel := Point{X: offset.X / width, Y: offset.Y / height}
	return Outcome{
		Reason:   ReasonMove,
		Quad:     &quad,
		Relative: rel,
		Target: Point{
			X: rel.X * float64(m.screen.Width),
			Y: rel.Y * float64(m.screen.Height),
		},
	}
}
