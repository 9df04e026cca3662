package renderer

import (
	"log"
	"strings"
	"time"

	com "julia_explorer/common"
	"julia_explorer/model"
	"julia_explorer/renderer/frames"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"
)

const PROGRAM_NAME = "Julia explorer"

// Options are the startup settings the render core needs, already validated by the config loader.
type Options struct {
	Title      string
	Width      uint32
	Height     uint32
	Hidden     bool
	Validation bool

	FramesInFlight int
	PresentMode    string
	FrameTimeout   time.Duration

	// ShaderPath optionally replaces the embedded kernel, see shaders.Load.
	ShaderPath string
}

// ParsePresentMode maps the configured name onto a Vulkan present mode.
func ParsePresentMode(name string) (vk.PresentMode, error) {
	switch strings.ToLower(name) {
	case "", "fifo":
		return vk.PresentModeFifo, nil
	case "mailbox":
		return vk.PresentModeMailbox, nil
	case "immediate":
		return vk.PresentModeImmediate, nil
	}
	return vk.PresentModeFifo, errors.Errorf("unknown present mode %q", name)
}

// Core is the GPU side of the explorer: it owns the device, both passes, the in-flight slots and the presentation
// state machine, and turns one VisualizationState per frame into a displayed image.
type Core struct {
	// OS/Window level
	Win    *com.Window
	device *com.Device
	opts   Options

	// Target level
	swapChain      *com.SwapChain
	presentMode    vk.PresentMode
	imagesInFlight []vk.Fence
	target         *com.Image

	// Drawing infrastructure level
	computeDescs *DescriptorProvisioner
	presentDescs *DescriptorProvisioner
	computePass  *ComputePass
	presentPass  *PresentPass
	commandPool  vk.CommandPool

	// Frame level
	slots     []*frameSlot
	ring      *frames.Ring
	presenter *frames.Presenter

	export  *ExportPass
	watcher *ShaderWatcher
}

// Externally facing functions

// NewCore brings up window, device and every pipeline object. Any error is fatal: the device lacks a required
// capability or a Vulkan call failed. Whatever was created up to that point is released again.
func NewCore(opts Options) (*Core, error) {
	if opts.FramesInFlight < 1 {
		opts.FramesInFlight = 2
	}
	if opts.FrameTimeout <= 0 {
		opts.FrameTimeout = time.Second
	}
	if opts.Title == "" {
		opts.Title = PROGRAM_NAME
	}
	presentMode, err := ParsePresentMode(opts.PresentMode)
	if err != nil {
		return nil, err
	}
	c := &Core{
		opts:        opts,
		presentMode: presentMode,
	}
	if err := c.initialize(); err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}

func (c *Core) initialize() error {
	var err error
	c.Win, err = com.NewWindow(c.opts.Title, int32(c.opts.Width), int32(c.opts.Height), c.opts.Hidden, c.opts.Validation)
	if err != nil {
		return err
	}
	if c.device, err = com.NewDevice(c.Win); err != nil {
		return err
	}
	if c.swapChain, err = com.NewSwapChain(c.device, c.Win, c.presentMode, vk.NullSwapchain); err != nil {
		return err
	}
	c.imagesInFlight = make([]vk.Fence, len(c.swapChain.Images))

	n := c.opts.FramesInFlight
	if c.computeDescs, err = NewDescriptorProvisioner(c.device.Device, computeBindings(), n); err != nil {
		return errors.Wrap(err, "compute descriptors")
	}
	if c.presentDescs, err = NewDescriptorProvisioner(c.device.Device, presentBindings(), n); err != nil {
		return errors.Wrap(err, "present descriptors")
	}
	words, err := computeWords(c.opts.ShaderPath)
	if err != nil {
		return err
	}
	if c.computePass, err = NewComputePass(c.device, c.computeDescs.Layout(), words); err != nil {
		return err
	}
	if c.presentPass, err = NewPresentPass(c.device, c.swapChain.Format.Format, c.presentDescs.Layout()); err != nil {
		return err
	}
	if err = c.swapChain.CreateFrameBuffers(c.device, c.presentPass.RenderPass()); err != nil {
		return err
	}
	if err = c.createCommandPool(); err != nil {
		return err
	}
	if c.slots, c.ring, err = createFrameSlots(c.device, c.commandPool, n, c.opts.FrameTimeout); err != nil {
		return err
	}
	if err = c.createRenderTarget(); err != nil {
		return err
	}
	c.presenter = frames.NewPresenter(&surfaceBackend{core: c})

	if c.opts.ShaderPath != "" {
		if c.watcher, err = NewShaderWatcher(c.opts.ShaderPath); err != nil {
			// Hot reload is a convenience, the kernel is already loaded.
			log.Printf("Shader hot reload disabled: %v", err)
		}
	}
	log.Printf("Render core ready on %s with %d frames in flight", c.device.Name(), n)
	return nil
}

// IterationHandler is called for every SDL event after the core's own window handling.
type IterationHandler func(sdl.Event, *Core)

// StateHandler provides the state to draw for the next frame.
type StateHandler func(time.Duration, *Core) *model.VisualizationState

// Loop this function represents the event-loop for user interaction and contains the primary draw call that
// renders each frame. The whole purpose of this function is to provide a neat interface for call backs and all
// basic functionality a well-behaved app should have. E.g.: Not rendering if minimized, close on Window 'close
// button', close on ESC key. Recoverable frame errors drop the frame, any other error ends the loop and is returned.
func (c *Core) Loop(ih IterationHandler, sh StateHandler) error {
	t0 := time.Now()
	drawn, dropped := 0, 0
	var loopErr error
	var event sdl.Event
	c.Win.Close = false
	for !c.Win.Close {
		for event = sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			// Doing some basic functionality for basic window handling
			switch ev := event.(type) {
			case *sdl.QuitEvent:
				c.Win.Close = true
			case *sdl.WindowEvent:
				switch ev.Event {
				case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED:
					c.Win.Resized = true
					c.presenter.Invalidate()
				case sdl.WINDOWEVENT_MINIMIZED:
					c.Win.Minimized = true
				case sdl.WINDOWEVENT_RESTORED:
					c.Win.Minimized = false
					c.presenter.Invalidate()
				}
			case *sdl.KeyboardEvent:
				if ev.Type == sdl.KEYDOWN && ev.Keysym.Sym == sdl.K_ESCAPE {
					c.Win.Close = true
				}
			}
			ih(event, c)
		}
		if c.Win.Close {
			break
		}
		if c.Win.Minimized {
			// Sleep until new events change c.Win.Minimized, the event itself is handled in the next round
			if ev := sdl.WaitEvent(); ev != nil {
				if _, err := sdl.PushEvent(ev); err != nil {
					log.Printf("Failed to requeue event: %v", err)
				}
			}
			continue
		}
		err := c.DrawFrame(sh(time.Since(t0), c))
		switch {
		case err == nil:
			drawn++
		case frames.IsRecoverable(err):
			dropped++
		default:
			loopErr = err
			c.Win.Close = true
		}
	}
	dt := time.Since(t0)
	log.Printf("Elapsed: %v, rough avg fps: %v fps, dropped frames: %d", dt, float64(drawn)/dt.Seconds(), dropped)
	return loopErr
}

// DrawFrame renders and presents one frame of state. The state is refit to the render target's aspect ratio, the
// caller's copy is not modified.
func (c *Core) DrawFrame(state *model.VisualizationState) error {
	if c.presenter.NeedsRebuild() {
		if err := c.presenter.Rebuild(); err != nil {
			return err
		}
	}
	if c.watcher != nil && c.watcher.Changed() {
		c.reloadKernel()
	}

	// Wait for the slot to be ready - signalled by the fence of the last frame submitted through it
	slot, err := c.ring.Acquire()
	if err != nil {
		return err
	}
	fs := c.slots[slot.Index]

	snapshot := state.WithAspect(c.target.Width, c.target.Height)
	block := model.Encode(&snapshot)
	if err := fs.ubo.Write(block[:]); err != nil {
		return err
	}
	// Reset the fence only if we are actually going to execute work that will put the fence into the signalled state
	if err := c.ring.Arm(slot); err != nil {
		return err
	}
	if err := c.recordCompute(fs, slot.Index); err != nil {
		return err
	}
	if err := c.submitCompute(fs); err != nil {
		return err
	}

	img, err := c.presenter.Acquire(slot.Index)
	if err != nil {
		// The compute work is already queued, the slot's fence must still be signaled behind it.
		if drainErr := c.submitDrain(fs); drainErr != nil {
			return drainErr
		}
		c.ring.Advance()
		return err
	}

	// A previous frame may still be rendering into this swapchain image
	if prev := c.imagesInFlight[img]; prev != vk.NullFence && prev != fs.fence.handle {
		if err := com.VkWaitForFence(c.device.Device, prev, c.opts.FrameTimeout); err != nil {
			log.Printf("Swapchain image %d still in flight: %v", img, err)
		}
	}
	c.imagesInFlight[img] = fs.fence.handle

	if err := c.recordPresent(fs, slot.Index, img); err != nil {
		return err
	}
	if err := c.submitPresent(fs, img); err != nil {
		return err
	}
	err = c.presenter.Present(slot.Index)
	c.ring.Advance()
	return err
}

// Export renders state off-screen at w x h and returns tightly packed RGBA8 rows, top row first. It runs between
// interactive frames and never touches the interactive render target or slots.
func (c *Core) Export(state *model.VisualizationState, w uint32, h uint32) ([]byte, error) {
	if c.export == nil {
		ep, err := NewExportPass(c.device, c.computePass, c.ring, c.opts.FrameTimeout)
		if err != nil {
			return nil, err
		}
		c.export = ep
	}
	return c.export.Export(state, w, h)
}

// TargetSize is the size of the interactive render target, which follows the swapchain.
func (c *Core) TargetSize() (uint32, uint32) {
	return c.target.Width, c.target.Height
}

func (c *Core) SetTitle(title string) {
	c.Win.SetTitle(title)
}

// Destroy waits for every in-flight frame before any GPU object is released. It copes with a partially initialized
// core, NewCore relies on that.
func (c *Core) Destroy() {
	if c.watcher != nil {
		if err := c.watcher.Close(); err != nil {
			log.Printf("Failed to close shader watcher: %v", err)
		}
		c.watcher = nil
	}
	if c.device != nil {
		if c.ring != nil {
			if err := c.ring.WaitAll(c.opts.FrameTimeout); err != nil {
				log.Printf("In-flight frames did not finish in time: %v", err)
			}
		}
		// We need to wait for the last asynchronous call to finish before tear down
		vk.DeviceWaitIdle(c.device.Device)

		if c.export != nil {
			c.export.Destroy()
		}
		if c.target != nil {
			c.target.Destroy(c.device)
		}
		for _, fs := range c.slots {
			fs.destroy(c.device)
		}
		if c.commandPool != vk.NullCommandPool {
			vk.DestroyCommandPool(c.device.Device, c.commandPool, nil)
		}
		if c.swapChain != nil {
			c.swapChain.Destroy(c.device)
		}
		if c.presentPass != nil {
			c.presentPass.Destroy()
		}
		if c.computePass != nil {
			c.computePass.Destroy()
		}
		if c.presentDescs != nil {
			c.presentDescs.Destroy()
		}
		if c.computeDescs != nil {
			c.computeDescs.Destroy()
		}
		c.device.Destroy()
		c.device = nil
	}
	if c.Win != nil {
		c.Win.Destroy()
		c.Win = nil
	}
}

func (c *Core) createCommandPool() error {
	commandPool, err := com.VKSCreateCommandPool(
		c.device.Device,
		vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		*c.device.QFamilies.GraphicsFamily,
	)
	if err != nil {
		return errors.Wrap(err, "create command pool")
	}
	log.Printf("Successfully created command pool")
	c.commandPool = commandPool
	return nil
}

// createRenderTarget sizes the render target after the swapchain and points every slot's descriptor sets at it.
func (c *Core) createRenderTarget() error {
	w, h := c.swapChain.Extent.Width, c.swapChain.Extent.Height
	if err := c.computePass.CheckDispatch(w, h); err != nil {
		return err
	}
	target, err := createRenderTarget(c.device, w, h)
	if err != nil {
		return err
	}
	c.target = target
	for i, fs := range c.slots {
		c.computeDescs.WriteCompute(i, target.View, fs.ubo)
		c.presentDescs.WritePresent(i, target.View, c.presentPass.Sampler())
	}
	return nil
}

// reloadKernel swaps in the changed override kernel. A kernel that fails to load keeps the old one running.
func (c *Core) reloadKernel() {
	words, err := computeWords(c.watcher.Path())
	if err != nil {
		log.Printf("Keeping current kernel: %v", err)
		return
	}
	if err := c.ring.WaitAll(c.opts.FrameTimeout); err != nil {
		log.Printf("Postponing kernel reload: %v", err)
		c.watcher.changed.Store(true)
		return
	}
	vk.DeviceWaitIdle(c.device.Device)
	if err := c.computePass.Reload(words); err != nil {
		log.Printf("Keeping current kernel: %v", err)
		return
	}
	log.Printf("Reloaded kernel from %s", c.watcher.Path())
}
