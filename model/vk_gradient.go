package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Gradient is the three color, three stop piecewise linear color ramp evaluated by the compute kernel.
type Gradient struct {
	Colors [3]mgl32.Vec4
	Stops  [3]float32
}

func NewGradient(s *VisualizationState) Gradient {
	return Gradient{
		Colors: paddedColors(s.Colors),
		Stops:  GradientStops(len(s.Colors), s.Midpoints),
	}
}

// At maps an escape index t in [0,1] to a color. The comparisons and the mix formula are the ones in julia.wgsl.
func (g Gradient) At(t float32) mgl32.Vec4 {
	switch {
	case t <= g.Stops[0]:
		return g.Colors[0]
	case t <= g.Stops[1]:
		return mix(g.Colors[0], g.Colors[1], (t-g.Stops[0])/(g.Stops[1]-g.Stops[0]))
	case t < g.Stops[2]:
		return mix(g.Colors[1], g.Colors[2], (t-g.Stops[1])/(g.Stops[2]-g.Stops[1]))
	default:
		return g.Colors[2]
	}
}

// mix is WGSL's mix(): a*(1-f) + b*f, evaluated per component.
func mix(a mgl32.Vec4, b mgl32.Vec4, f float32) mgl32.Vec4 {
	var out mgl32.Vec4
	for i := range out {
		out[i] = a[i]*(1-f) + b[i]*f
	}
	return out
}
