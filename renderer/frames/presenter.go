package frames

import (
	"log"

	"github.com/pkg/errors"
)

// State of the presentation cycle.
//
//	Ready --Acquire--> Acquired | OutOfDate
//	Acquired --Present--> Ready | OutOfDate
//	OutOfDate --Rebuild--> Ready
type State int

const (
	Ready State = iota
	Acquired
	OutOfDate
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Acquired:
		return "Acquired"
	case OutOfDate:
		return "OutOfDate"
	default:
		return "Unknown"
	}
}

// SurfaceBackend is the swapchain side of presentation. The Vulkan implementation lives in the renderer package,
// tests use a mock that only counts resources.
type SurfaceBackend interface {
	// Acquire returns the next presentable image for the in-flight slot. ErrOutOfDate and ErrTimeout are expected
	// results, anything else is fatal.
	Acquire(slot int) (uint32, error)
	// Present queues image for display. A suboptimal swapchain is presented and then reported as ErrOutOfDate.
	Present(slot int, image uint32) error
	// Rebuild discards and recreates the swapchain and every resource sized after it.
	Rebuild() error
}

// Presenter drives a SurfaceBackend through the presentation state machine and rejects out of order calls.
type Presenter struct {
	backend  SurfaceBackend
	state    State
	image    uint32
	stale    bool
	rebuilds int
}

func NewPresenter(backend SurfaceBackend) *Presenter {
	return &Presenter{
		backend: backend,
		state:   Ready,
	}
}

func (p *Presenter) State() State {
	return p.state
}

// Image is the swapchain image index held while Acquired.
func (p *Presenter) Image() uint32 {
	return p.image
}

// Rebuilds counts completed swapchain rebuilds.
func (p *Presenter) Rebuilds() int {
	return p.rebuilds
}

// Acquire asks the backend for the next image. A timeout leaves the presenter Ready so the next frame retries.
func (p *Presenter) Acquire(slot int) (uint32, error) {
	if p.state != Ready {
		return 0, errors.Errorf("acquire requested in state %s", p.state)
	}
	img, err := p.backend.Acquire(slot)
	switch errors.Cause(err) {
	case nil:
		p.state = Acquired
		p.image = img
		return img, nil
	case ErrOutOfDate:
		p.state = OutOfDate
		return 0, err
	default:
		return 0, err
	}
}

// Present hands the acquired image back to the backend. A pending Invalidate takes effect after the image is shown.
func (p *Presenter) Present(slot int) error {
	if p.state != Acquired {
		return errors.Errorf("present requested in state %s", p.state)
	}
	err := p.backend.Present(slot, p.image)
	p.state = Ready
	if errors.Cause(err) == ErrOutOfDate || p.stale {
		p.state = OutOfDate
		p.stale = false
	}
	return err
}

// Invalidate marks the swapchain stale, e.g. on a window resize event. While an image is acquired the transition is
// deferred until it has been presented.
func (p *Presenter) Invalidate() {
	switch p.state {
	case Ready:
		p.state = OutOfDate
	case Acquired:
		p.stale = true
	}
}

func (p *Presenter) NeedsRebuild() bool {
	return p.state == OutOfDate
}

// Rebuild recreates the swapchain through the backend. An acquired image would be orphaned, so that is refused.
func (p *Presenter) Rebuild() error {
	if p.state == Acquired {
		return errors.New("rebuild requested while an image is acquired")
	}
	if err := p.backend.Rebuild(); err != nil {
		p.state = OutOfDate
		return errors.Wrap(err, "rebuild swapchain")
	}
	p.rebuilds++
	p.state = Ready
	log.Printf("Swapchain rebuilt (%d)", p.rebuilds)
	return nil
}
