package config

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGradient(t *testing.T) {
	var (
		black = mgl32.Vec4{0, 0, 0, 1}
		white = mgl32.Vec4{1, 1, 1, 1}
		red   = mgl32.Vec4{1, 0, 0, 1}
	)
	cases := []struct {
		in        string
		colors    []mgl32.Vec4
		midpoints []float32
	}{
		{"black,white", []mgl32.Vec4{black, white}, []float32{1}},
		{"black, white ,0.4", []mgl32.Vec4{black, white}, []float32{0.4}},
		{"black,white,0.2,0.8", []mgl32.Vec4{black, white}, []float32{0.2, 0.8}},
		{"black,red,white", []mgl32.Vec4{black, red, white}, []float32{0.25}},
		{"black,red,white,0.5", []mgl32.Vec4{black, red, white}, []float32{0.5}},
		{"black,red,white,0,0.5,1", []mgl32.Vec4{black, red, white}, []float32{0, 0.5, 1}},
		{"#000,#ff0000", []mgl32.Vec4{black, red}, []float32{1}},
		{"Black,#FFFFFF", []mgl32.Vec4{black, white}, []float32{1}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			g, err := ParseGradient(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.colors, g.Colors)
			assert.Equal(t, tc.midpoints, g.Midpoints)
		})
	}
}

func TestParseGradientRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"black",
		"black,0.5",
		"black,white,red,blue",
		"black,white,0.1,0.2,0.3",
		"black,red,white,0.1,0.2,0.3,0.4",
		"black,white,0.5,0.5",
		"black,white,0.6,0.2",
		"black,white,1.5",
		"black,white,-0.1",
		"black,0.5,white",
		"black,,white",
		"black,notacolor",
		"black,#12",
		"black,#gggggg",
	} {
		if _, err := ParseGradient(in); err == nil {
			t.Errorf("ParseGradient(%q) succeeded", in)
		}
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#336699")
	require.NoError(t, err)
	assert.InDelta(t, 0.2, c.X(), 1e-6)
	assert.InDelta(t, 0.4, c.Y(), 1e-6)
	assert.InDelta(t, 0.6, c.Z(), 1e-6)
	assert.Equal(t, float32(1), c.W())

	short, err := ParseColor("#369")
	require.NoError(t, err)
	assert.Equal(t, c, short)

	named, err := ParseColor("CornflowerBlue")
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{100.0 / 255, 149.0 / 255, 237.0 / 255, 1}, named)
}
