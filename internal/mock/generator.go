package mock

import (
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/gaze-pointer/monitor/internal/gaze"
)

// Scene camera geometry of the simulated devices.
const (
	CameraWidth  = 1088
	CameraHeight = 1080

	markerSize = 40
)

// screenRect is where the target screen sits in the scene camera image
// when the wearer's head is still.
var screenRect = struct{ X, Y, W, H float64 }{X: 244, Y: 290, W: 600, H: 340}

type mockDevice struct {
	name     string
	uuid     string
	pattern  string
	attachAt int // tick when the device announces itself
	detachAt int // tick when it leaves (0 = never)
	failAt   int // streaming ticks before the gaze stream breaks (0 = never)

	attached  bool
	streamed  int
	jitterRng *rand.Rand
}

// deviceUUID derives a stable uuid from the device name so that runs are
// reproducible.
func deviceUUID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mock://"+name)).String()
}

func defaultDevices() []*mockDevice {
	devs := []*mockDevice{
		{name: "pi-lab", pattern: "circle", attachAt: 1},
		{name: "pi-desk", pattern: "sweep", attachAt: 3},
		{name: "pi-reading", pattern: "fixate", attachAt: 6, detachAt: 1800},
		{name: "pi-loaner", pattern: "circle", attachAt: 10, failAt: 600},
	}
	for _, d := range devs {
		d.uuid = deviceUUID(d.name)
	}
	return devs
}

func (d *mockDevice) videoUUID() string { return d.uuid + "-world" }
func (d *mockDevice) eyesUUID() string  { return d.uuid + "-eyes" }
func (d *mockDevice) gazeUUID() string  { return d.uuid + "-gaze" }

// sway is the head movement offset at tick t.
func sway(t int) (float64, float64) {
	ft := float64(t)
	return 15 * math.Sin(ft/90), 10 * math.Cos(ft/120)
}

// sceneMarkers places the calibration markers for tick t. One marker is
// occluded for a short window every 300 ticks.
func sceneMarkers(layout gaze.Layout, t int) []gaze.Marker {
	dx, dy := sway(t)
	x, y := screenRect.X+dx, screenRect.Y+dy
	w, h := screenRect.W, screenRect.H

	markers := []gaze.Marker{
		square(layout.TopLeft, x, y),
		square(layout.TopRight, x+w-markerSize, y),
		square(layout.BottomRight, x+w-markerSize, y+h-markerSize),
		square(layout.BottomLeft, x, y+h-markerSize),
	}
	if t%300 >= 280 {
		hidden := (t / 300) % len(markers)
		markers = append(markers[:hidden], markers[hidden+1:]...)
	}
	return markers
}

func square(id int, x, y float64) gaze.Marker {
	return gaze.Marker{
		ID: id,
		Corners: [4]gaze.Point{
			{X: x, Y: y},
			{X: x + markerSize, Y: y},
			{X: x + markerSize, Y: y + markerSize},
			{X: x, Y: y + markerSize},
		},
	}
}

// gazeAt returns the device's gaze point in image coordinates at tick t.
func (d *mockDevice) gazeAt(t int) gaze.Point {
	ft := float64(t)
	var u, v float64
	switch d.pattern {
	case "sweep":
		// Left to right across the screen and past both edges.
		u = -0.2 + 1.4*math.Mod(ft/240, 1)
		v = 0.5 + 0.1*math.Sin(ft/30)
	case "fixate":
		u = 0.3 + d.jitterRng.NormFloat64()*0.01
		v = 0.6 + d.jitterRng.NormFloat64()*0.01
	default:
		u = 0.5 + 0.35*math.Cos(ft/40)
		v = 0.5 + 0.35*math.Sin(ft/40)
	}

	dx, dy := sway(t)
	return gaze.Point{
		X: screenRect.X + dx + u*screenRect.W,
		Y: screenRect.Y + dy + v*screenRect.H,
	}
}
