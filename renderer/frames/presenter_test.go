package frames

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSurface stands in for a swapchain. It only tracks how many of each size dependent resource are alive.
type mockSurface struct {
	drawW, drawH uint32
	extW, extH   uint32
	imageCount   int

	swapchains   int
	views        int
	framebuffers int
	semaphores   int
	targets      int
	doubleFree   bool

	next       uint32
	acquireErr []error
	presentErr []error
	presented  []uint32
}

func newMockSurface(w uint32, h uint32) *mockSurface {
	m := &mockSurface{drawW: w, drawH: h, imageCount: 3}
	m.create()
	return m
}

func (m *mockSurface) create() {
	m.swapchains++
	m.views += m.imageCount
	m.framebuffers += m.imageCount
	m.semaphores += m.imageCount
	m.targets++
	m.extW, m.extH = m.drawW, m.drawH
}

func (m *mockSurface) destroy() {
	m.swapchains--
	m.views -= m.imageCount
	m.framebuffers -= m.imageCount
	m.semaphores -= m.imageCount
	m.targets--
	if m.swapchains < 0 || m.views < 0 || m.framebuffers < 0 || m.semaphores < 0 || m.targets < 0 {
		m.doubleFree = true
	}
}

func (m *mockSurface) live() [5]int {
	return [5]int{m.swapchains, m.views, m.framebuffers, m.semaphores, m.targets}
}

func (m *mockSurface) resize(w uint32, h uint32) {
	m.drawW, m.drawH = w, h
}

func (m *mockSurface) Acquire(slot int) (uint32, error) {
	if len(m.acquireErr) > 0 {
		err := m.acquireErr[0]
		m.acquireErr = m.acquireErr[1:]
		if err != nil {
			return 0, err
		}
	}
	if m.extW != m.drawW || m.extH != m.drawH {
		return 0, errors.Wrap(ErrOutOfDate, "acquire")
	}
	img := m.next
	m.next = (m.next + 1) % uint32(m.imageCount)
	return img, nil
}

func (m *mockSurface) Present(slot int, image uint32) error {
	m.presented = append(m.presented, image)
	if len(m.presentErr) > 0 {
		err := m.presentErr[0]
		m.presentErr = m.presentErr[1:]
		return err
	}
	return nil
}

func (m *mockSurface) Rebuild() error {
	m.destroy()
	m.create()
	return nil
}

func frame(t *testing.T, p *Presenter, slot int) error {
	t.Helper()
	if p.NeedsRebuild() {
		require.NoError(t, p.Rebuild())
	}
	if _, err := p.Acquire(slot); err != nil {
		return err
	}
	return p.Present(slot)
}

func TestPresenterResizeRoundTrip(t *testing.T) {
	surf := newMockSurface(800, 800)
	p := NewPresenter(surf)
	baseline := surf.live()

	require.NoError(t, frame(t, p, 0))
	assert.Equal(t, Ready, p.State())

	sizes := [][2]uint32{{1024, 600}, {640, 480}, {1920, 1080}, {800, 800}, {333, 777}}
	for cycle := 0; cycle < 4; cycle++ {
		for i, sz := range sizes {
			surf.resize(sz[0], sz[1])

			err := frame(t, p, i%2)
			require.Error(t, err)
			assert.True(t, IsRecoverable(err))
			assert.Equal(t, OutOfDate, p.State(), "acquire on a stale swapchain must go OutOfDate")

			// next frame rebuilds and renders at the new size
			require.NoError(t, frame(t, p, (i+1)%2))
			assert.Equal(t, Ready, p.State())
			assert.Equal(t, sz, [2]uint32{surf.extW, surf.extH})
			assert.Equal(t, baseline, surf.live(), "resource counts must not drift across rebuilds")
		}
	}
	assert.False(t, surf.doubleFree)
	assert.Equal(t, 4*len(sizes), p.Rebuilds())
}

func TestPresenterInvalidateWhileAcquired(t *testing.T) {
	surf := newMockSurface(800, 600)
	p := NewPresenter(surf)

	img, err := p.Acquire(0)
	require.NoError(t, err)
	p.Invalidate()
	assert.Equal(t, Acquired, p.State(), "an acquired image is still presented")

	require.NoError(t, p.Present(0))
	assert.Equal(t, []uint32{img}, surf.presented)
	assert.Equal(t, OutOfDate, p.State())

	require.NoError(t, p.Rebuild())
	assert.Equal(t, Ready, p.State())

	p.Invalidate()
	assert.Equal(t, OutOfDate, p.State())
}

func TestPresenterSuboptimalPresent(t *testing.T) {
	surf := newMockSurface(800, 600)
	surf.presentErr = []error{errors.Wrap(ErrOutOfDate, "suboptimal")}
	p := NewPresenter(surf)

	err := frame(t, p, 0)
	assert.True(t, IsRecoverable(err))
	assert.Len(t, surf.presented, 1, "a suboptimal image is still shown")
	assert.True(t, p.NeedsRebuild())
}

func TestPresenterAcquireTimeoutStaysReady(t *testing.T) {
	surf := newMockSurface(800, 600)
	surf.acquireErr = []error{errors.Wrap(ErrTimeout, "acquire")}
	p := NewPresenter(surf)

	_, err := p.Acquire(0)
	assert.True(t, IsRecoverable(err))
	assert.Equal(t, Ready, p.State())
	assert.Equal(t, 0, p.Rebuilds())

	require.NoError(t, frame(t, p, 0))
}

func TestPresenterRejectsOutOfOrderCalls(t *testing.T) {
	surf := newMockSurface(800, 600)
	p := NewPresenter(surf)

	assert.Error(t, p.Present(0), "present without acquire")
	_, err := p.Acquire(0)
	require.NoError(t, err)
	_, err = p.Acquire(1)
	assert.Error(t, err, "double acquire")
	assert.Error(t, p.Rebuild(), "rebuild while holding an image")
	assert.False(t, IsRecoverable(err))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Ready", Ready.String())
	assert.Equal(t, "Acquired", Acquired.String())
	assert.Equal(t, "OutOfDate", OutOfDate.String())
	assert.Equal(t, "Unknown", State(42).String())
}
