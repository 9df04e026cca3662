package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// VisualizationState is the full host side description of one rendered frame. The interaction layer mutates a
// copy of it, the render core only ever reads snapshots. Colors holds 2 or 3 entries and Midpoints 1 to 3
// strictly increasing values in [0,1]; the config loader guarantees both before the state reaches the core.
type VisualizationState struct {
	N     uint32
	C     mgl32.Vec2
	Iters uint32

	Viewport Viewport

	Colors    []mgl32.Vec4
	Midpoints []float32
}

// Clone returns a deep copy, so the color and midpoint slices of a snapshot can't be changed behind its back.
func (s *VisualizationState) Clone() VisualizationState {
	c := *s
	c.Colors = append([]mgl32.Vec4(nil), s.Colors...)
	c.Midpoints = append([]float32(nil), s.Midpoints...)
	return c
}

// WithAspect returns a copy of the state with its viewport refit to a w x h pixel target.
func (s *VisualizationState) WithAspect(w uint32, h uint32) VisualizationState {
	c := s.Clone()
	c.Viewport = s.Viewport.FitAspect(w, h)
	return c
}

func (s *VisualizationState) MoveC(d mgl32.Vec2) {
	s.C = s.C.Add(d)
}

// SetN clamps the exponent to [MinExponent, MaxExponent].
func (s *VisualizationState) SetN(n int) {
	if n < MinExponent {
		n = MinExponent
	}
	if n > MaxExponent {
		n = MaxExponent
	}
	s.N = uint32(n)
}

// SetIters keeps at least one iteration, a zero cap would make every point "inside".
func (s *VisualizationState) SetIters(iters uint32) {
	if iters < 1 {
		iters = 1
	}
	s.Iters = iters
}

const (
	MinExponent = 2
	// MaxExponent is the largest n for which (250*n)^n still fits into a float32.
	MaxExponent = 11
)
