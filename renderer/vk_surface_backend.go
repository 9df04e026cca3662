package renderer

import (
	"log"

	com "julia_explorer/common"
	"julia_explorer/renderer/frames"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// surfaceBackend is the Vulkan swapchain behind frames.Presenter.
type surfaceBackend struct {
	core *Core
}

func (b *surfaceBackend) Acquire(slot int) (uint32, error) {
	c := b.core
	var imgIdx uint32
	result := vk.AcquireNextImage(
		c.device.Device,
		c.swapChain.Handle,
		uint64(c.opts.FrameTimeout.Nanoseconds()),
		c.slots[slot].imageAvailable,
		vk.NullFence,
		&imgIdx,
	)
	// React on surface changes and other possible causes for failure (e.g.: Window resizing). A suboptimal image is
	// still usable, presenting it reports the mismatch.
	switch result {
	case vk.Success, vk.Suboptimal:
		return imgIdx, nil
	case vk.ErrorOutOfDate:
		return 0, frames.ErrOutOfDate
	case vk.Timeout, vk.NotReady:
		return 0, frames.ErrTimeout
	}
	return 0, errors.Wrap(vk.Error(result), "acquire swapchain image")
}

func (b *surfaceBackend) Present(slot int, image uint32) error {
	c := b.core
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		PNext:              nil,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{c.swapChain.RenderFinished[image]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{c.swapChain.Handle},
		PImageIndices:      []uint32{image},
		PResults:           nil,
	}
	result := vk.QueuePresent(c.device.PresentQ, &presentInfo)
	switch result {
	case vk.Success:
		return nil
	case vk.Suboptimal, vk.ErrorOutOfDate:
		return frames.ErrOutOfDate
	}
	return errors.Wrapf(vk.Error(result), "present swapchain image %d", image)
}

// Rebuild replaces the swapchain and everything sized after it. No frame may be in flight while that happens, so it
// first drains the ring and the device. A minimized window blocks here until it has an area again.
func (b *surfaceBackend) Rebuild() error {
	c := b.core
	if !c.Win.WaitForDrawable() {
		// Closing, the loop ends before the next frame.
		return frames.ErrOutOfDate
	}
	if err := c.ring.WaitAll(c.opts.FrameTimeout); err != nil {
		return err
	}
	vk.DeviceWaitIdle(c.device.Device)

	old := c.swapChain
	sc, err := com.NewSwapChain(c.device, c.Win, c.presentMode, old.Handle)
	if err != nil {
		return err
	}
	// The old handle was needed as OldSwapchain above, it can go now
	old.Destroy(c.device)
	c.swapChain = sc
	c.imagesInFlight = make([]vk.Fence, len(sc.Images))

	if sc.Format.Format != c.presentPass.Format() {
		log.Printf("Swapchain format changed to %d, recreating present pass", sc.Format.Format)
		pp, err := NewPresentPass(c.device, sc.Format.Format, c.presentDescs.Layout())
		if err != nil {
			return err
		}
		c.presentPass.Destroy()
		c.presentPass = pp
	}
	if err := sc.CreateFrameBuffers(c.device, c.presentPass.RenderPass()); err != nil {
		return err
	}

	c.target.Destroy(c.device)
	c.target = nil
	if err := c.createRenderTarget(); err != nil {
		return err
	}
	c.Win.Resized = false
	return nil
}
