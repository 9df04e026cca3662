package model

import (
	"bytes"
	"encoding/binary"
	"log"

	"github.com/go-gl/mathgl/mgl32"
)

// ParameterBlockSize is the size of the uniform 'Params' struct of the compute kernel. WGSL rounds the 104 bytes of
// members up to the 16 byte alignment of its vec4 members.
const ParameterBlockSize = 112

// Byte offsets of the members inside the uniform block. These must change together with 'struct Params' in
// renderer/shaders/julia.wgsl.
const (
	OffsetColors  = 0
	OffsetStops   = 48
	OffsetN       = 64
	OffsetC       = 72
	OffsetIters   = 80
	OffsetCenter  = 88
	OffsetExtents = 96
)

// ParameterBlock is the encoded, GPU ready form of a VisualizationState.
type ParameterBlock [ParameterBlockSize]byte

// parameterBlockLayout mirrors the std140-like layout WGSL uses for uniforms. Blank fields are the alignment gaps,
// binary.Write emits them as zeros.
type parameterBlockLayout struct {
	Colors  [3][4]float32
	Stops   [4]float32
	N       uint32
	_       [4]byte
	C       [2]float32
	Iters   uint32
	_       [4]byte
	Center  [2]float32
	Extents [2]float32
	_       [8]byte
}

// Encode serializes a state into the uniform layout of the compute kernel. It has no side effects and the same
// state always yields the same bytes. A two color state fills the third color slot with a duplicate of the second
// and collapses the last stop onto the second, so the kernel never interpolates into the third segment.
func Encode(s *VisualizationState) ParameterBlock {
	stops := GradientStops(len(s.Colors), s.Midpoints)
	layout := parameterBlockLayout{
		Stops:   [4]float32{stops[0], stops[1], stops[2], 0},
		N:       s.N,
		C:       [2]float32{s.C.X(), s.C.Y()},
		Iters:   s.Iters,
		Center:  [2]float32{s.Viewport.Center.X(), s.Viewport.Center.Y()},
		Extents: [2]float32{s.Viewport.Extents.X(), s.Viewport.Extents.Y()},
	}
	colors := paddedColors(s.Colors)
	for i := range colors {
		layout.Colors[i] = [4]float32(colors[i])
	}

	buf := new(bytes.Buffer)
	buf.Grow(ParameterBlockSize)
	if err := binary.Write(buf, binary.LittleEndian, &layout); err != nil {
		log.Panicf("Failed to encode parameter block: %v", err)
	}
	var pb ParameterBlock
	copy(pb[:], buf.Bytes())
	return pb
}

// GradientStops expands the configured midpoints into the three stop positions s0 <= s1 <= s2 the kernel expects.
//
//	1 midpoint m:      3 colors (0, m, 1)   2 colors (0, m, m)
//	2 midpoints a, b:  3 colors (0, a, b)   2 colors (a, b, b)
//	3 midpoints:       (a, b, c)
func GradientStops(colorCount int, midpoints []float32) [3]float32 {
	var stops [3]float32
	switch len(midpoints) {
	case 0:
		stops = [3]float32{0, 1, 1}
	case 1:
		stops = [3]float32{0, midpoints[0], 1}
	case 2:
		if colorCount == 2 {
			stops = [3]float32{midpoints[0], midpoints[1], 1}
		} else {
			stops = [3]float32{0, midpoints[0], midpoints[1]}
		}
	default:
		stops = [3]float32{midpoints[0], midpoints[1], midpoints[2]}
	}
	if colorCount == 2 {
		stops[2] = stops[1]
	}
	return stops
}

func paddedColors(colors []mgl32.Vec4) [3]mgl32.Vec4 {
	var out [3]mgl32.Vec4
	for i := 0; i < 3; i++ {
		switch {
		case i < len(colors):
			out[i] = colors[i]
		case i > 0:
			out[i] = out[i-1]
		}
	}
	return out
}
