package gaze

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Quad is the calibration quadrilateral for one frame.
type Quad struct {
	TopLeft     Point `json:"topLeft"`
	TopRight    Point `json:"topRight"`
	BottomRight Point `json:"bottomRight"`
	BottomLeft  Point `json:"bottomLeft"`
}

// BuildQuad picks the configured corner of each configured marker. It
// returns false and the ids that were not detected when the quad is
// incomplete. The first detection of a duplicated id wins.
func BuildQuad(layout Layout, markers []Marker) (Quad, []int, bool) {
	byID := make(map[int]Marker, len(markers))
	for _, m := range markers {
		if _, dup := byID[m.ID]; !dup {
			byID[m.ID] = m
		}
	}

	var q Quad
	var missing []int
	for _, c := range Corners {
		id := layout.ID(c)
		m, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		q.set(c, m.Corner(c))
	}
	if len(missing) > 0 {
		return Quad{}, missing, false
	}
	return q, nil, true
}

func (q *Quad) set(c Corner, p Point) {
	switch c {
	case TopLeft:
		q.TopLeft = p
	case TopRight:
		q.TopRight = p
	case BottomRight:
		q.BottomRight = p
	case BottomLeft:
		q.BottomLeft = p
	}
}

// Polygon returns the corners in ring order.
func (q Quad) Polygon() [4]Point {
	return [4]Point{q.TopLeft, q.TopRight, q.BottomRight, q.BottomLeft}
}

// Width is the horizontal extent between the top reference corners.
func (q Quad) Width() float64 {
	return q.TopRight.X - q.TopLeft.X
}

// Height is the vertical extent between the left reference corners.
func (q Quad) Height() float64 {
	return q.BottomLeft.Y - q.TopLeft.Y
}

// Contains reports whether p lies strictly inside the quad. Points on an
// edge or vertex are outside. Works for either winding and for rotated or
// skewed quads.
func (q Quad) Contains(p Point) bool {
	poly := q.Polygon()
	return polygonContains(poly[:], p)
}

// polygonContains is an even-odd ray cast along +X with the boundary
// excluded.
func polygonContains(poly []Point, p Point) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[j], poly[i]
		if onSegment(a, b, p) {
			return false
		}
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(a, b, p Point) bool {
	if r2.Cross(r2.Sub(b, a), r2.Sub(p, a)) != 0 {
		return false
	}
	return p.X >= min(a.X, b.X) && p.X <= max(a.X, b.X) &&
		p.Y >= min(a.Y, b.Y) && p.Y <= max(a.Y, b.Y)
}
