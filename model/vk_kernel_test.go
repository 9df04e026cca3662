package model

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	black = mgl32.Vec4{0, 0, 0, 1}
	red   = mgl32.Vec4{1, 0, 0, 1}
	white = mgl32.Vec4{1, 1, 1, 1}
)

// scenarioState is n=2, c=0, centered, extent 3.6, 100 iterations, black to white with midpoint 0.5.
func scenarioState() VisualizationState {
	return VisualizationState{
		N:         2,
		C:         mgl32.Vec2{0, 0},
		Iters:     100,
		Viewport:  NewViewport(mgl32.Vec2{0, 0}, 3.6, 800, 800),
		Colors:    []mgl32.Vec4{black, white},
		Midpoints: []float32{0.5},
	}
}

func TestScenarioOriginIsInside(t *testing.T) {
	s := scenarioState()
	center := s.Viewport.PlaneCoordinate(400, 400, 800, 800)
	require.Equal(t, mgl32.Vec2{0, 0}, center)

	idx := EscapeIndex(center, s.C, s.N, s.Iters)
	assert.Equal(t, float32(1), idx, "0 is a fixed point of z^2 and must never escape")
	assert.Equal(t, float32(1), Probe(&s, 400, 400, 800, 800))
	assert.Equal(t, white, NewGradient(&s).At(idx), "inside maps to the last color")
}

func TestScenarioFarPointEscapesNearWhite(t *testing.T) {
	s := scenarioState()
	idx := EscapeIndex(mgl32.Vec2{2, 2}, s.C, s.N, s.Iters)
	if idx >= 1 || idx < 0.95 {
		t.Errorf("2+2i should escape within a few iterations, got index %v", idx)
	}
	col := NewGradient(&s).At(idx)
	for ch := 0; ch < 3; ch++ {
		assert.InDelta(t, 1.0, col[ch], 0.05, "channel %d", ch)
	}
}

func TestEscapeIndexMonotonicInIterations(t *testing.T) {
	c := mgl32.Vec2{-0.8, 0.156}
	caps := []uint32{10, 20, 50, 100, 400}
	for y := -15; y <= 15; y++ {
		for x := -15; x <= 15; x++ {
			p := mgl32.Vec2{float32(x) * 0.1, float32(y) * 0.1}
			for n := uint32(2); n <= 4; n++ {
				prev := EscapeIndex(p, c, n, caps[0])
				for _, m := range caps[1:] {
					cur := EscapeIndex(p, c, n, m)
					if prev < 1 && cur < prev {
						t.Errorf("p=%v n=%d: index dropped from %v to %v when raising cap to %d", p, n, prev, cur, m)
					}
					prev = cur
				}
			}
		}
	}
}

func TestEscapeIndexNeverEscapingStaysInside(t *testing.T) {
	for _, m := range []uint32{1, 10, 100, 1000} {
		assert.Equal(t, float32(1), EscapeIndex(mgl32.Vec2{0, 0}, mgl32.Vec2{0, 0}, 2, m))
		assert.Equal(t, float32(1), EscapeIndex(mgl32.Vec2{0, 0}, mgl32.Vec2{0, 0}, 5, m))
	}
}

func TestEscapeIndexBounded(t *testing.T) {
	for _, p := range []mgl32.Vec2{{1000, 0}, {0, -600}, {3, 3}, {0.5, 0.5}} {
		idx := EscapeIndex(p, mgl32.Vec2{0.3, 0.5}, 3, 50)
		if idx < 0 || idx > 1 {
			t.Errorf("index for %v out of [0,1]: %v", p, idx)
		}
	}
}

// escapeIteration64 runs the same iteration in float64 and returns the iteration at which |z| first exceeds R.
func escapeIteration64(z mgl32.Vec2, c mgl32.Vec2, n uint32, iters uint32) (uint32, bool) {
	r := float64(EscapeRadiusPerExponent * n)
	zr, zi := float64(z.X()), float64(z.Y())
	for i := uint32(0); i < iters; i++ {
		if math.Hypot(zr, zi) > r {
			return i, true
		}
		rr, ri := zr, zi
		for k := uint32(1); k < n; k++ {
			rr, ri = rr*zr-ri*zi, rr*zi+ri*zr
		}
		zr, zi = rr+float64(c.X()), ri+float64(c.Y())
	}
	return 0, false
}

func TestEscapeIndexEscapedNeverInsideForAllExponents(t *testing.T) {
	const (
		steps = 61
		iters = 100
	)
	c := mgl32.Vec2{0.2, 0}
	for n := uint32(MinExponent); n <= MaxExponent; n++ {
		checked := 0
		for iy := 0; iy < steps; iy++ {
			for ix := 0; ix < steps; ix++ {
				p := mgl32.Vec2{
					-1.2 + 2.4*float32(ix)/(steps-1),
					-1.2 + 2.4*float32(iy)/(steps-1),
				}
				// Only points that escape quickly, so float32 and float64 orbits can't drift apart
				i, escaped := escapeIteration64(p, c, n, iters)
				if !escaped || i > 8 {
					continue
				}
				checked++
				idx := EscapeIndex(p, c, n, iters)
				if !(idx >= 0 && idx < 1) {
					t.Fatalf("n=%d: %v escapes at iteration %d but reports index %v", n, p, i, idx)
				}
			}
		}
		assert.NotZero(t, checked, "n=%d", n)
	}
}

func TestEscapeIndexHugeMagnitudeAfterBailout(t *testing.T) {
	// For large n this escapes within a few iterations to magnitudes whose square overflows float32
	for n := uint32(MinExponent); n <= MaxExponent; n++ {
		idx := EscapeIndex(mgl32.Vec2{1.2, 1.2}, mgl32.Vec2{0.2, 0}, n, 100)
		assert.Greater(t, idx, float32(0.9), "n=%d", n)
		assert.Less(t, idx, float32(1), "n=%d", n)
	}
}

func TestMagnitude(t *testing.T) {
	assert.Equal(t, float32(0), magnitude(0, 0))
	assert.InDelta(t, 5, magnitude(3, -4), 1e-6)
	big := magnitude(3e30, 4e30)
	assert.False(t, math.IsInf(float64(big), 0))
	assert.InDelta(t, 5e30, float64(big), 1e24)
}

func TestGradientBoundaries(t *testing.T) {
	s := VisualizationState{Colors: []mgl32.Vec4{black, red, white}, Midpoints: []float32{0.25}}
	g := NewGradient(&s)
	assert.Equal(t, black, g.At(0))
	assert.Equal(t, red, g.At(0.25))
	assert.Equal(t, white, g.At(1))
	assert.Equal(t, mgl32.Vec4{1, 0.5, 0.5, 1}, g.At(0.625))

	s.Midpoints = []float32{0.2, 0.5, 0.8}
	g = NewGradient(&s)
	assert.Equal(t, black, g.At(0), "below the first stop is flat")
	assert.Equal(t, black, g.At(0.2))
	assert.Equal(t, red, g.At(0.5))
	assert.Equal(t, white, g.At(0.8))
	assert.Equal(t, white, g.At(1))

	two := VisualizationState{Colors: []mgl32.Vec4{black, red}, Midpoints: []float32{1}}
	g = NewGradient(&two)
	assert.Equal(t, black, g.At(0))
	assert.Equal(t, red, g.At(1), "last configured color for the inside sentinel")
}

func TestRenderReferenceIdempotent(t *testing.T) {
	s := testState()
	a := RenderReference(&s, 16, 12)
	b := RenderReference(&s, 16, 12)
	require.Len(t, a, 16*12*4)
	assert.Equal(t, a, b)
	for i := 3; i < len(a); i += 4 {
		if a[i] != 255 {
			t.Fatalf("alpha at byte %d is %d", i, a[i])
		}
	}
}

func TestExportRenderLeavesStateUntouched(t *testing.T) {
	s := scenarioState()
	s.Iters = 20
	before := s.Clone()
	block := Encode(&s)

	export := s.WithAspect(1600, 1200)
	pix := RenderReference(&export, 1600, 1200)

	assert.Len(t, pix, 1600*1200*4)
	assert.Equal(t, before, s)
	assert.Equal(t, block, Encode(&s), "parameter block of the interactive state changed")
	assert.Equal(t, NewViewport(mgl32.Vec2{0, 0}, 3.6, 800, 800), s.Viewport)
	assert.Equal(t, float32(3.6), export.Viewport.Extents.X())
	assert.InDelta(t, 2.7, export.Viewport.Extents.Y(), 1e-5)

	// The export copy owns its slices
	export.Colors[0] = red
	assert.Equal(t, black, s.Colors[0])
}

func TestToUnorm8(t *testing.T) {
	assert.Equal(t, uint8(0), ToUnorm8(-1))
	assert.Equal(t, uint8(0), ToUnorm8(0))
	assert.Equal(t, uint8(128), ToUnorm8(0.5))
	assert.Equal(t, uint8(255), ToUnorm8(1))
	assert.Equal(t, uint8(255), ToUnorm8(7))
}
