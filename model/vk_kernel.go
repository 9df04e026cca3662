package model

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// CPU mirror of the escape time kernel in renderer/shaders/julia.wgsl. It is used to probe single points for the
// UI and to test the kernel's properties without a GPU. The GPU's float rounding may differ in the last bits.

// EscapeRadiusPerExponent scales the bailout radius with n. Larger exponents need a larger radius before the
// log-log smoothing term settles.
const EscapeRadiusPerExponent = 250

// SampleOffsets are the four sub-pixel antialiasing positions. Sample s uses bit 0 for x and bit 1 for y.
var SampleOffsets = [4]mgl32.Vec2{
	{-0.25, -0.25},
	{0.25, -0.25},
	{-0.25, 0.25},
	{0.25, 0.25},
}

// EscapeIndex iterates z <- z^n + c starting at z and returns the smoothed escape index in [0,1]. Points that
// don't escape within iters iterations are "inside" and return 1.
func EscapeIndex(z mgl32.Vec2, c mgl32.Vec2, n uint32, iters uint32) float32 {
	r := float32(EscapeRadiusPerExponent * n)
	zr, zi := z.X(), z.Y()
	for i := uint32(0); i < iters; i++ {
		mag := magnitude(zr, zi)
		if mag > r {
			nu := float32(i) + 1 - math32.Log(math32.Log(mag)/math32.Log(r))/math32.Log(float32(n))
			return clamp01(1 - nu/float32(iters))
		}
		zr, zi = cpow(zr, zi, n)
		zr += c.X()
		zi += c.Y()
	}
	return 1
}

// Shade computes the color of pixel (x, y) of a w x h target: four sub-pixel samples pushed through the
// gradient and averaged.
func Shade(s *VisualizationState, x uint32, y uint32, w uint32, h uint32) mgl32.Vec4 {
	g := NewGradient(s)
	var acc mgl32.Vec4
	for _, off := range SampleOffsets {
		p := s.Viewport.PlaneCoordinate(float32(x)+0.5+off.X(), float32(y)+0.5+off.Y(), w, h)
		acc = acc.Add(g.At(EscapeIndex(p, s.C, s.N, s.Iters)))
	}
	return acc.Mul(0.25)
}

// Probe returns the escape index of the plane point under the (fractional) pixel position px, py.
func Probe(s *VisualizationState, px float32, py float32, w uint32, h uint32) float32 {
	return EscapeIndex(s.Viewport.PlaneCoordinate(px, py, w, h), s.C, s.N, s.Iters)
}

// RenderReference renders the whole target on the CPU into tightly packed RGBA8 rows, top row first. It
// produces the same layout the export pass reads back.
func RenderReference(s *VisualizationState, w uint32, h uint32) []byte {
	pix := make([]byte, int(w)*int(h)*4)
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			c := Shade(s, x, y, w, h)
			o := (int(y)*int(w) + int(x)) * 4
			for i := 0; i < 4; i++ {
				pix[o+i] = ToUnorm8(c[i])
			}
		}
	}
	return pix
}

// ToUnorm8 converts like a write to an rgba8unorm storage texture.
func ToUnorm8(v float32) uint8 {
	return uint8(math32.Floor(clamp01(v)*255 + 0.5))
}

func cpow(zr float32, zi float32, n uint32) (float32, float32) {
	rr, ri := zr, zi
	for k := uint32(1); k < n; k++ {
		rr, ri = rr*zr-ri*zi, rr*zi+ri*zr
	}
	return rr, ri
}

// magnitude is |z| scaled by the larger component first. Right after bailout z can be as large as R^n, whose
// square no longer fits into a float32.
func magnitude(zr float32, zi float32) float32 {
	m := math32.Max(math32.Abs(zr), math32.Abs(zi))
	if m == 0 {
		return 0
	}
	x, y := zr/m, zi/m
	return m * math32.Sqrt(x*x+y*y)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
