package gaze

import (
	"testing"
)

func unitSquare() Quad {
	return Quad{
		TopLeft:     Point{X: 0, Y: 0},
		TopRight:    Point{X: 1, Y: 0},
		BottomRight: Point{X: 1, Y: 1},
		BottomLeft:  Point{X: 0, Y: 1},
	}
}

func TestQuadContainsUnitSquare(t *testing.T) {
	q := unitSquare()

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"center", Point{X: 0.5, Y: 0.5}, true},
		{"right of square", Point{X: 1.5, Y: 0.5}, false},
		{"left of square", Point{X: -0.5, Y: 0.5}, false},
		{"above", Point{X: 0.5, Y: -0.1}, false},
		{"below", Point{X: 0.5, Y: 1.1}, false},
		{"near corner inside", Point{X: 0.999, Y: 0.001}, true},
		{"top edge", Point{X: 0.5, Y: 0}, false},
		{"right edge", Point{X: 1, Y: 0.5}, false},
		{"bottom edge", Point{X: 0.5, Y: 1}, false},
		{"left edge", Point{X: 0, Y: 0.5}, false},
		{"vertex", Point{X: 1, Y: 1}, false},
		{"origin vertex", Point{X: 0, Y: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := q.Contains(tt.p); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestQuadContainsIgnoresWinding(t *testing.T) {
	q := unitSquare()
	reversed := []Point{q.TopLeft, q.BottomLeft, q.BottomRight, q.TopRight}

	for _, p := range []Point{{X: 0.5, Y: 0.5}, {X: 1.5, Y: 0.5}, {X: 0, Y: 0.5}} {
		if got, want := polygonContains(reversed, p), q.Contains(p); got != want {
			t.Errorf("reversed winding Contains(%v) = %v, want %v", p, got, want)
		}
	}
}

func TestQuadContainsRotated(t *testing.T) {
	// A diamond: the camera sees the marker quad rotated by 45 degrees.
	q := Quad{
		TopLeft:     Point{X: 0, Y: -1},
		TopRight:    Point{X: 1, Y: 0},
		BottomRight: Point{X: 0, Y: 1},
		BottomLeft:  Point{X: -1, Y: 0},
	}

	tests := []struct {
		p    Point
		want bool
	}{
		{Point{X: 0, Y: 0}, true},
		{Point{X: 0.4, Y: 0.4}, true},
		{Point{X: 0.6, Y: 0.6}, false},
		{Point{X: 0.9, Y: -0.9}, false},
		{Point{X: 0.5, Y: 0.5}, false},
	}
	for _, tt := range tests {
		if got := q.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestBuildQuad(t *testing.T) {
	markers := screenMarkers()
	// A duplicate detection of the top-left id must not override the first.
	markers = append(markers, square(DefaultLayout.TopLeft, 0, 0, 5))

	q, missing, ok := BuildQuad(DefaultLayout, markers)
	if !ok {
		t.Fatalf("BuildQuad missing %v", missing)
	}
	if q.TopLeft != (Point{X: 100, Y: 100}) {
		t.Errorf("TopLeft = %v, want (100,100)", q.TopLeft)
	}
	if q.Width() != 200 || q.Height() != 300 {
		t.Errorf("Width, Height = %v, %v; want 200, 300", q.Width(), q.Height())
	}
}

func TestBuildQuadIncomplete(t *testing.T) {
	_, missing, ok := BuildQuad(DefaultLayout, screenMarkers()[1:])
	if ok {
		t.Fatal("BuildQuad succeeded with three markers")
	}
	if len(missing) != 1 || missing[0] != DefaultLayout.TopLeft {
		t.Errorf("missing = %v, want [%d]", missing, DefaultLayout.TopLeft)
	}
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name    string
		layout  Layout
		wantErr bool
	}{
		{"default", DefaultLayout, false},
		{"duplicate", Layout{TopLeft: 1, TopRight: 2, BottomRight: 2, BottomLeft: 3}, true},
		{"negative", Layout{TopLeft: -1, TopRight: 2, BottomRight: 4, BottomLeft: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCornerString(t *testing.T) {
	want := []string{"top_left", "top_right", "bottom_right", "bottom_left"}
	for i, c := range Corners {
		if c.String() != want[i] {
			t.Errorf("Corner(%d).String() = %q, want %q", i, c.String(), want[i])
		}
	}
}
