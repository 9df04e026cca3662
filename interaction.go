package main

import (
	"fmt"
	"log"
	"time"

	"julia_explorer/config"
	"julia_explorer/model"
	"julia_explorer/renderer"
	"julia_explorer/renderer/frames"
	"julia_explorer/snapshot"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	zoomIn     = 0.8
	zoomOut    = 1.25
	panStep    = 0.1
	cStep      = 0.01
	cStepFine  = 0.001
	maxIters   = 1 << 20
	probeUnset = -1
)

// session is the interaction layer: it owns the live VisualizationState and turns SDL events into edits of it.
// The core only ever sees the snapshot handed out by onDraw.
type session struct {
	cfg     *config.Config
	initial model.VisualizationState
	state   model.VisualizationState

	dragging bool
	cursorX  float32
	cursorY  float32
	title    string
}

func newSession(cfg *config.Config) *session {
	s := &session{
		cfg:     cfg,
		initial: cfg.InitialState(),
		cursorX: probeUnset,
	}
	s.state = s.initial.Clone()
	return s
}

// onIteration handles one SDL event. ESC and window events were already handled by the core.
func (s *session) onIteration(event sdl.Event, c *renderer.Core) {
	switch ev := event.(type) {
	case *sdl.MouseButtonEvent:
		if ev.Button == uint8(sdl.BUTTON_LEFT) {
			s.dragging = ev.Type == sdl.MOUSEBUTTONDOWN
		}
	case *sdl.MouseMotionEvent:
		x, y := s.toTarget(c, float32(ev.X), float32(ev.Y))
		if s.dragging {
			dx, dy := s.toTarget(c, float32(ev.XRel), float32(ev.YRel))
			s.fitted(c, func(vp *model.Viewport, w uint32, h uint32) {
				vp.Drag(dx, dy, w, h)
			})
		}
		s.cursorX, s.cursorY = x, y
	case *sdl.MouseWheelEvent:
		if ev.Y == 0 || s.cursorX == probeUnset {
			return
		}
		factor := float32(zoomIn)
		if ev.Y < 0 {
			factor = zoomOut
		}
		s.fitted(c, func(vp *model.Viewport, w uint32, h uint32) {
			vp.ZoomAt(factor, s.cursorX, s.cursorY, w, h)
		})
	case *sdl.KeyboardEvent:
		if ev.Type == sdl.KEYDOWN {
			s.onKey(ev.Keysym, c)
		}
	}
}

func (s *session) onKey(key sdl.Keysym, c *renderer.Core) {
	step := float32(cStep)
	if key.Mod&uint16(sdl.KMOD_SHIFT) != 0 {
		step = cStepFine
	}
	ext := s.state.Viewport.Extents

	switch key.Sym {
	case sdl.K_PLUS, sdl.K_EQUALS, sdl.K_KP_PLUS:
		s.state.Viewport.Zoom(zoomIn)
	case sdl.K_MINUS, sdl.K_KP_MINUS:
		s.state.Viewport.Zoom(zoomOut)
	case sdl.K_LEFT:
		s.state.Viewport.Move(mgl32.Vec2{-2 * panStep * ext.X(), 0})
	case sdl.K_RIGHT:
		s.state.Viewport.Move(mgl32.Vec2{2 * panStep * ext.X(), 0})
	case sdl.K_UP:
		s.state.Viewport.Move(mgl32.Vec2{0, 2 * panStep * ext.Y()})
	case sdl.K_DOWN:
		s.state.Viewport.Move(mgl32.Vec2{0, -2 * panStep * ext.Y()})
	case sdl.K_a:
		s.state.MoveC(mgl32.Vec2{-step, 0})
	case sdl.K_d:
		s.state.MoveC(mgl32.Vec2{step, 0})
	case sdl.K_s:
		s.state.MoveC(mgl32.Vec2{0, -step})
	case sdl.K_w:
		s.state.MoveC(mgl32.Vec2{0, step})
	case sdl.K_PAGEUP:
		s.state.SetN(int(s.state.N) + 1)
	case sdl.K_PAGEDOWN:
		s.state.SetN(int(s.state.N) - 1)
	case sdl.K_i:
		if s.state.Iters < maxIters {
			s.state.SetIters(s.state.Iters * 2)
		}
	case sdl.K_k:
		s.state.SetIters(s.state.Iters / 2)
	case sdl.K_r:
		s.state = s.initial.Clone()
	case sdl.K_e:
		s.export(c)
	}
}

// onDraw hands the current state to the core and keeps the window title in sync with it.
func (s *session) onDraw(_ time.Duration, c *renderer.Core) *model.VisualizationState {
	if title := s.probeTitle(c); title != s.title {
		c.SetTitle(title)
		s.title = title
	}
	return &s.state
}

func (s *session) probeTitle(c *renderer.Core) string {
	st := &s.state
	title := fmt.Sprintf("%s | n=%d c=%.4f%+.4fi m=%d", renderer.PROGRAM_NAME, st.N, st.C.X(), st.C.Y(), st.Iters)
	if s.cursorX == probeUnset {
		return title
	}
	w, h := c.TargetSize()
	fit := st.WithAspect(w, h)
	p := fit.Viewport.PlaneCoordinate(s.cursorX, s.cursorY, w, h)
	return fmt.Sprintf("%s | at %.5f%+.5fi: %.3f", title, p.X(), p.Y(), model.Probe(&fit, s.cursorX, s.cursorY, w, h))
}

// fitted applies f to the viewport as it is displayed, refit to the render target, and keeps the result.
func (s *session) fitted(c *renderer.Core, f func(vp *model.Viewport, w uint32, h uint32)) {
	w, h := c.TargetSize()
	vp := s.state.Viewport.FitAspect(w, h)
	f(&vp, w, h)
	s.state.Viewport = vp
}

// toTarget converts window coordinates into render target pixels, they differ on high DPI displays.
func (s *session) toTarget(c *renderer.Core, x float32, y float32) (float32, float32) {
	ww, wh := c.Win.Win.GetSize()
	tw, th := c.TargetSize()
	if ww <= 0 || wh <= 0 {
		return x, y
	}
	return x * float32(tw) / float32(ww), y * float32(th) / float32(wh)
}

func (s *session) export(c *renderer.Core) {
	if err := exportState(c, s.cfg, &s.state); err != nil {
		if errors.Cause(err) == frames.ErrQueueBusy {
			log.Printf("Export skipped, GPU busy: %v", err)
			return
		}
		log.Printf("Export failed: %+v", err)
	}
}

// exportState renders state at the configured export size and writes it to the configured or generated file name.
func exportState(c *renderer.Core, cfg *config.Config, state *model.VisualizationState) error {
	w, h := cfg.ExportWidth, cfg.ExportHeight
	pix, err := c.Export(state, w, h)
	if err != nil {
		return err
	}
	name := cfg.Output
	if name == "" {
		name = snapshot.Filename(state, w, h)
	}
	return snapshot.WritePNG(name, w, h, pix)
}
