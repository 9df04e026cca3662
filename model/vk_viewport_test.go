package model

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestFitAspect(t *testing.T) {
	vp := NewViewport(mgl32.Vec2{}, 3.6, 800, 800)
	assert.Equal(t, mgl32.Vec2{3.6, 3.6}, vp.Extents)

	wide := vp.FitAspect(1600, 1200)
	assert.InDelta(t, 3.6, wide.Extents.X(), 1e-6)
	assert.InDelta(t, 2.7, wide.Extents.Y(), 1e-6)

	tall := vp.FitAspect(600, 800)
	assert.InDelta(t, 2.7, tall.Extents.X(), 1e-6)
	assert.InDelta(t, 3.6, tall.Extents.Y(), 1e-6)

	// refitting keeps the larger extent, so round trips don't shrink the view
	back := tall.FitAspect(800, 800)
	assert.InDelta(t, 3.6, back.Extents.X(), 1e-6)
	assert.InDelta(t, 3.6, back.Extents.Y(), 1e-6)

	assert.Equal(t, vp, vp.FitAspect(0, 600))
}

func TestPlaneCoordinateAxes(t *testing.T) {
	vp := Viewport{Center: mgl32.Vec2{1, 2}, Extents: mgl32.Vec2{2, 1}}
	assert.Equal(t, mgl32.Vec2{1, 2}, vp.PlaneCoordinate(50, 25, 100, 50))
	assert.Equal(t, mgl32.Vec2{-1, 3}, vp.PlaneCoordinate(0, 0, 100, 50), "top left is min re, max im")
	assert.Equal(t, mgl32.Vec2{3, 1}, vp.PlaneCoordinate(100, 50, 100, 50))
}

func TestDragFollowsCursor(t *testing.T) {
	vp := Viewport{Center: mgl32.Vec2{0, 0}, Extents: mgl32.Vec2{2, 2}}
	before := vp.PlaneCoordinate(10, 10, 100, 100)
	vp.Drag(30, -20, 100, 100)
	after := vp.PlaneCoordinate(40, -10, 100, 100)
	assert.InDelta(t, before.X(), after.X(), 1e-6)
	assert.InDelta(t, before.Y(), after.Y(), 1e-6)
}

func TestZoomAtKeepsAnchor(t *testing.T) {
	vp := Viewport{Center: mgl32.Vec2{0.5, -0.5}, Extents: mgl32.Vec2{2, 1.5}}
	anchor := vp.PlaneCoordinate(70, 20, 200, 150)
	vp.ZoomAt(0.8, 70, 20, 200, 150)
	moved := vp.PlaneCoordinate(70, 20, 200, 150)
	assert.InDelta(t, anchor.X(), moved.X(), 1e-5)
	assert.InDelta(t, anchor.Y(), moved.Y(), 1e-5)
	assert.InDelta(t, 1.6, vp.Extents.X(), 1e-6)
	assert.InDelta(t, 1.2, vp.Extents.Y(), 1e-6)
}

func TestStateSetters(t *testing.T) {
	s := testState()
	s.SetN(1)
	assert.Equal(t, uint32(MinExponent), s.N)
	s.SetN(40)
	assert.Equal(t, uint32(MaxExponent), s.N)
	s.SetIters(0)
	assert.Equal(t, uint32(1), s.Iters)
	s.MoveC(mgl32.Vec2{0.5, -0.5})
	assert.InDelta(t, 0.1, s.C.X(), 1e-6)
	assert.InDelta(t, 0.1, s.C.Y(), 1e-6)

	c := s.Clone()
	c.Colors[0] = white
	c.Midpoints[0] = 0.9
	assert.NotEqual(t, white, s.Colors[0])
	assert.Equal(t, float32(0.25), s.Midpoints[0])
}
