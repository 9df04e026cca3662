package model

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"
)

// Viewport is the window onto the complex plane. Extents are half-widths, so the visible region spans
// Center-Extents to Center+Extents. The imaginary axis points up while pixel rows count down.
type Viewport struct {
	Center  mgl32.Vec2
	Extents mgl32.Vec2
}

// NewViewport constructs a viewport whose larger pixel dimension spans 'extent' in both directions from center.
func NewViewport(center mgl32.Vec2, extent float32, w uint32, h uint32) Viewport {
	vp := Viewport{
		Center:  center,
		Extents: mgl32.Vec2{extent, extent},
	}
	return vp.FitAspect(w, h)
}

// Extent returns the half extent along the larger image dimension.
func (v Viewport) Extent() float32 {
	if v.Extents.X() > v.Extents.Y() {
		return v.Extents.X()
	}
	return v.Extents.Y()
}

// FitAspect keeps the half extent of the larger dimension and scales the smaller one by the aspect ratio, so
// pixels stay square on the complex plane.
func (v Viewport) FitAspect(w uint32, h uint32) Viewport {
	if w == 0 || h == 0 {
		log.Printf("Ignoring aspect fit for degenerate size %dx%d", w, h)
		return v
	}
	e := v.Extent()
	aspect := float32(w) / float32(h)
	if w < h {
		v.Extents = mgl32.Vec2{e * aspect, e}
	} else {
		v.Extents = mgl32.Vec2{e, e / aspect}
	}
	return v
}

// Zoom scales the visible region around its center, factor < 1 zooms in.
func (v *Viewport) Zoom(factor float32) {
	v.Extents = v.Extents.Mul(factor)
}

// ZoomAt zooms while keeping the plane point under pixel (px, py) fixed on screen.
func (v *Viewport) ZoomAt(factor float32, px float32, py float32, w uint32, h uint32) {
	anchor := v.PlaneCoordinate(px, py, w, h)
	v.Center = anchor.Add(v.Center.Sub(anchor).Mul(factor))
	v.Zoom(factor)
}

// Move shifts the center by a delta given in plane units.
func (v *Viewport) Move(d mgl32.Vec2) {
	v.Center = v.Center.Add(d)
}

// Drag moves the plane along with a cursor displacement of (dx, dy) pixels.
func (v *Viewport) Drag(dx float32, dy float32, w uint32, h uint32) {
	if w == 0 || h == 0 {
		return
	}
	v.Center = v.Center.Add(mgl32.Vec2{
		-dx / float32(w) * 2 * v.Extents.X(),
		dy / float32(h) * 2 * v.Extents.Y(),
	})
}

// PlaneCoordinate maps a (possibly fractional) pixel position to the complex plane. Pixel centers sit at +0.5,
// the same convention the compute kernel uses.
func (v Viewport) PlaneCoordinate(px float32, py float32, w uint32, h uint32) mgl32.Vec2 {
	nx := px/float32(w)*2 - 1
	ny := py/float32(h)*2 - 1
	return mgl32.Vec2{
		v.Center.X() + nx*v.Extents.X(),
		v.Center.Y() - ny*v.Extents.Y(),
	}
}
