package frames

import (
	"time"

	"github.com/pkg/errors"
)

// Fence is the host visible completion signal of the GPU work submitted for one slot.
type Fence interface {
	// Wait blocks until the fence is signaled, or returns ErrTimeout once timeout has passed.
	Wait(timeout time.Duration) error
	// Reset moves the fence back to unsignaled, right before new work that will signal it is submitted.
	Reset() error
}

// Slot is one entry of the in-flight ring. Generation increases every time the slot is handed out again, so
// resources recorded for an older generation can be told apart.
type Slot struct {
	Index      int
	Generation uint64
	fence      Fence
}

func (s *Slot) Fence() Fence {
	return s.fence
}

// Ring bounds how far the host may run ahead of the GPU. Acquiring a slot waits on the fence of the work last
// submitted through it; that wait is the only thing keeping the host from overwriting a parameter block or command
// buffer the GPU is still reading.
type Ring struct {
	slots   []*Slot
	current int
	timeout time.Duration
}

// NewRing builds a ring with one slot per fence. Fences must start signaled so the first round doesn't block.
func NewRing(fences []Fence, timeout time.Duration) *Ring {
	r := &Ring{
		slots:   make([]*Slot, len(fences)),
		timeout: timeout,
	}
	for i := range fences {
		r.slots[i] = &Slot{Index: i, fence: fences[i]}
	}
	return r
}

func (r *Ring) Len() int {
	return len(r.slots)
}

func (r *Ring) Current() *Slot {
	return r.slots[r.current]
}

func (r *Ring) Slot(i int) *Slot {
	return r.slots[i]
}

// Acquire waits for the current slot to retire its previous frame and hands it out for reuse. On timeout the slot
// stays untouched and ErrTimeout is returned.
func (r *Ring) Acquire() (*Slot, error) {
	s := r.slots[r.current]
	if err := s.fence.Wait(r.timeout); err != nil {
		return nil, errors.Wrapf(err, "wait for in-flight slot %d", s.Index)
	}
	s.Generation++
	return s, nil
}

// Arm resets the slot's fence. Call it only when work that signals the fence is about to be submitted.
func (r *Ring) Arm(s *Slot) error {
	return errors.Wrapf(s.fence.Reset(), "reset fence of slot %d", s.Index)
}

// Advance moves on to the next slot.
func (r *Ring) Advance() {
	r.current = (r.current + 1) % len(r.slots)
}

// WaitAll waits for every slot, e.g. before tearing down or rebuilding shared resources. The timeout applies per
// slot.
func (r *Ring) WaitAll(timeout time.Duration) error {
	for _, s := range r.slots {
		if err := s.fence.Wait(timeout); err != nil {
			return errors.Wrapf(err, "wait for in-flight slot %d", s.Index)
		}
	}
	return nil
}

// Quiesce is the gate for work that must run between frames, like an export. It waits for every slot like
// WaitAll, but a slot that doesn't retire within timeout turns into ErrQueueBusy and nothing is touched.
func (r *Ring) Quiesce(timeout time.Duration) error {
	err := r.WaitAll(timeout)
	if errors.Cause(err) == ErrTimeout {
		return errors.Wrap(ErrQueueBusy, err.Error())
	}
	return err
}
