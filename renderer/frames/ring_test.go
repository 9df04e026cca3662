package frames

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFence behaves like a VkFence: signaled or not, waited on from the host, signaled by "the GPU".
type fakeFence struct {
	mu       sync.Mutex
	signaled bool
	ch       chan struct{}
	resets   int
}

func newFakeFence(signaled bool) *fakeFence {
	f := &fakeFence{ch: make(chan struct{})}
	if signaled {
		f.signaled = true
		close(f.ch)
	}
	return f
}

func (f *fakeFence) Wait(timeout time.Duration) error {
	f.mu.Lock()
	ch := f.ch
	f.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-time.After(timeout):
		return ErrTimeout
	}
}

func (f *fakeFence) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signaled {
		f.signaled = false
		f.ch = make(chan struct{})
	}
	f.resets++
	return nil
}

func (f *fakeFence) Signal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.signaled {
		f.signaled = true
		close(f.ch)
	}
}

func fakeFences(n int) ([]Fence, []*fakeFence) {
	fences := make([]Fence, n)
	fakes := make([]*fakeFence, n)
	for i := range fences {
		fakes[i] = newFakeFence(true)
		fences[i] = fakes[i]
	}
	return fences, fakes
}

func TestRingCyclesSlots(t *testing.T) {
	fences, _ := fakeFences(3)
	r := NewRing(fences, time.Second)
	require.Equal(t, 3, r.Len())

	var order []int
	for i := 0; i < 7; i++ {
		s, err := r.Acquire()
		require.NoError(t, err)
		order = append(order, s.Index)
		r.Advance()
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, order)
	assert.Equal(t, uint64(3), r.Slot(0).Generation)
	assert.Equal(t, uint64(2), r.Slot(2).Generation)
}

func TestRingAcquireBlocksUntilSignal(t *testing.T) {
	fences, fakes := fakeFences(2)
	r := NewRing(fences, 2*time.Second)

	s, err := r.Acquire()
	require.NoError(t, err)
	require.NoError(t, r.Arm(s))
	r.Advance()
	s, err = r.Acquire()
	require.NoError(t, err)
	require.NoError(t, r.Arm(s))
	r.Advance()

	const delay = 50 * time.Millisecond
	start := time.Now()
	go func() {
		time.Sleep(delay)
		fakes[0].Signal()
	}()

	s, err = r.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 0, s.Index)
	assert.GreaterOrEqual(t, time.Since(start), delay, "slot 0 was reused before its frame retired")
}

func TestRingAcquireTimeout(t *testing.T) {
	fences, fakes := fakeFences(1)
	r := NewRing(fences, 10*time.Millisecond)

	s, err := r.Acquire()
	require.NoError(t, err)
	require.NoError(t, r.Arm(s))
	gen := s.Generation

	_, err = r.Acquire()
	require.Error(t, err)
	assert.Equal(t, ErrTimeout, errors.Cause(err))
	assert.True(t, IsRecoverable(err))
	assert.Equal(t, gen, r.Current().Generation, "a timed out acquire must not hand the slot out")

	fakes[0].Signal()
	_, err = r.Acquire()
	assert.NoError(t, err)
}

func TestRingWaitAll(t *testing.T) {
	fences, fakes := fakeFences(3)
	r := NewRing(fences, time.Second)
	for i := 0; i < 3; i++ {
		s, err := r.Acquire()
		require.NoError(t, err)
		require.NoError(t, r.Arm(s))
		r.Advance()
	}
	assert.Equal(t, ErrTimeout, errors.Cause(r.WaitAll(5*time.Millisecond)))

	for _, f := range fakes {
		f.Signal()
	}
	assert.NoError(t, r.WaitAll(5*time.Millisecond))
	assert.Equal(t, 1, fakes[1].resets)
}

func TestRingQuiesce(t *testing.T) {
	fences, fakes := fakeFences(2)
	r := NewRing(fences, time.Second)
	assert.NoError(t, r.Quiesce(5*time.Millisecond), "all slots retired")

	s, err := r.Acquire()
	require.NoError(t, err)
	require.NoError(t, r.Arm(s))
	r.Advance()
	gen := r.Slot(0).Generation

	err = r.Quiesce(5 * time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, ErrQueueBusy, errors.Cause(err))
	assert.True(t, IsRecoverable(err))
	assert.Equal(t, gen, r.Slot(0).Generation, "a busy gate must not touch the slots")
	assert.Equal(t, 1, r.Current().Index)
	assert.Equal(t, 1, fakes[0].resets)

	fakes[0].Signal()
	assert.NoError(t, r.Quiesce(5*time.Millisecond))
}

// TestRingProtectsInFlightParameters runs a fake GPU that reads each slot's parameter buffer some time after
// submission. With the ring in front of every write no frame may observe another frame's parameters.
func TestRingProtectsInFlightParameters(t *testing.T) {
	const frames = 40
	fences, fakes := fakeFences(2)
	r := NewRing(fences, 2*time.Second)

	buffers := make([]int, r.Len())
	var mu sync.Mutex
	results := make([]int, frames)

	type submission struct {
		frame int
		slot  int
	}
	queue := make(chan submission, frames)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for sub := range queue {
			time.Sleep(time.Millisecond)
			mu.Lock()
			results[sub.frame] = buffers[sub.slot]
			mu.Unlock()
			fakes[sub.slot].Signal()
		}
	}()

	for k := 0; k < frames; k++ {
		s, err := r.Acquire()
		require.NoError(t, err)
		mu.Lock()
		buffers[s.Index] = k
		mu.Unlock()
		require.NoError(t, r.Arm(s))
		queue <- submission{frame: k, slot: s.Index}
		r.Advance()
	}
	close(queue)
	<-done

	for k := range results {
		assert.Equal(t, k, results[k], "frame %d read parameters of another frame", k)
	}
}
