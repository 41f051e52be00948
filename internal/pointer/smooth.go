package pointer

import (
	"github.com/charmbracelet/harmonica"
)

// Smoother damps pointer targets with a critically damped spring so a noisy
// gaze does not make the pointer jitter. It advances one step per call.
type Smoother struct {
	spring harmonica.Spring
	x, y   float64
	vx, vy float64
	primed bool
}

// NewSmoother returns a smoother stepped at fps. frequency is the spring's
// angular frequency; damping 1 is critical damping.
func NewSmoother(fps int, frequency, damping float64) *Smoother {
	if fps <= 0 {
		fps = 60
	}
	return &Smoother{spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping)}
}

// Next moves one step towards (tx, ty) and returns the new position. The
// first call after a reset jumps straight to the target.
func (s *Smoother) Next(tx, ty float64) (float64, float64) {
	if !s.primed {
		s.x, s.y = tx, ty
		s.vx, s.vy = 0, 0
		s.primed = true
		return s.x, s.y
	}
	s.x, s.vx = s.spring.Update(s.x, s.vx, tx)
	s.y, s.vy = s.spring.Update(s.y, s.vy, ty)
	return s.x, s.y
}

// Reset forgets the current position, e.g. when tracking is lost.
func (s *Smoother) Reset() {
	s.primed = false
}
