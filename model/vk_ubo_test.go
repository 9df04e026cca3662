package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState() VisualizationState {
	return VisualizationState{
		N:     3,
		C:     mgl32.Vec2{-0.4, 0.6},
		Iters: 250,
		Viewport: Viewport{
			Center:  mgl32.Vec2{0.1, -0.2},
			Extents: mgl32.Vec2{1.5, 1.125},
		},
		Colors: []mgl32.Vec4{
			{0, 0, 0, 1},
			{1, 0.5, 0.25, 1},
			{1, 1, 1, 1},
		},
		Midpoints: []float32{0.25},
	}
}

func f32At(pb ParameterBlock, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(pb[off : off+4]))
}

func u32At(pb ParameterBlock, off int) uint32 {
	return binary.LittleEndian.Uint32(pb[off : off+4])
}

func TestEncodeLayout(t *testing.T) {
	s := testState()
	pb := Encode(&s)

	require.Len(t, pb, ParameterBlockSize)
	for i, c := range s.Colors {
		for ch := 0; ch < 4; ch++ {
			if got := f32At(pb, OffsetColors+i*16+ch*4); got != c[ch] {
				t.Errorf("color %d channel %d: got %v want %v", i, ch, got, c[ch])
			}
		}
	}
	assert.Equal(t, float32(0), f32At(pb, OffsetStops))
	assert.Equal(t, float32(0.25), f32At(pb, OffsetStops+4))
	assert.Equal(t, float32(1), f32At(pb, OffsetStops+8))
	assert.Equal(t, float32(0), f32At(pb, OffsetStops+12))
	assert.Equal(t, uint32(3), u32At(pb, OffsetN))
	assert.Equal(t, float32(-0.4), f32At(pb, OffsetC))
	assert.Equal(t, float32(0.6), f32At(pb, OffsetC+4))
	assert.Equal(t, uint32(250), u32At(pb, OffsetIters))
	assert.Equal(t, float32(0.1), f32At(pb, OffsetCenter))
	assert.Equal(t, float32(-0.2), f32At(pb, OffsetCenter+4))
	assert.Equal(t, float32(1.5), f32At(pb, OffsetExtents))
	assert.Equal(t, float32(1.125), f32At(pb, OffsetExtents+4))

	// alignment gaps stay zero
	for _, gap := range [][2]int{{68, 72}, {84, 88}, {104, 112}} {
		for i := gap[0]; i < gap[1]; i++ {
			if pb[i] != 0 {
				t.Errorf("padding byte %d is %d, want 0", i, pb[i])
			}
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	s := testState()
	a := Encode(&s)
	b := Encode(&s)
	clone := s.Clone()
	c := Encode(&clone)
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)

	clone.Iters++
	assert.NotEqual(t, a, Encode(&clone))
}

func TestEncodeTwoColorSentinel(t *testing.T) {
	s := testState()
	s.Colors = s.Colors[:2]
	s.Midpoints = []float32{0.5}
	pb := Encode(&s)

	assert.Equal(t, pb[OffsetColors+16:OffsetColors+32], pb[OffsetColors+32:OffsetColors+48],
		"third color slot must duplicate the second")
	assert.Equal(t, f32At(pb, OffsetStops+4), f32At(pb, OffsetStops+8),
		"last stop must collapse onto the middle one")
	assert.Equal(t, float32(0), f32At(pb, OffsetStops))
}

func TestGradientStops(t *testing.T) {
	cases := []struct {
		name   string
		colors int
		mids   []float32
		want   [3]float32
	}{
		{"three colors one midpoint", 3, []float32{0.25}, [3]float32{0, 0.25, 1}},
		{"three colors two midpoints", 3, []float32{0.3, 0.6}, [3]float32{0, 0.3, 0.6}},
		{"three colors three midpoints", 3, []float32{0.1, 0.5, 0.9}, [3]float32{0.1, 0.5, 0.9}},
		{"two colors full ramp", 2, []float32{1}, [3]float32{0, 1, 1}},
		{"two colors one midpoint", 2, []float32{0.5}, [3]float32{0, 0.5, 0.5}},
		{"two colors ramp window", 2, []float32{0.2, 0.7}, [3]float32{0.2, 0.7, 0.7}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GradientStops(tc.colors, tc.mids))
		})
	}
}
