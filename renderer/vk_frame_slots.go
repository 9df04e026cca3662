package renderer

import (
	"time"

	com "julia_explorer/common"
	"julia_explorer/model"
	"julia_explorer/renderer/frames"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// vkFence lets frames.Ring wait on a Vulkan fence.
type vkFence struct {
	device vk.Device
	handle vk.Fence
}

func (f *vkFence) Wait(timeout time.Duration) error {
	err := com.VkWaitForFence(f.device, f.handle, timeout)
	if errors.Cause(err) == com.ErrWaitTimeout {
		return frames.ErrTimeout
	}
	return err
}

func (f *vkFence) Reset() error {
	return com.VkResetFence(f.device, f.handle)
}

// frameSlot holds everything one in-flight frame uses. Slots are created once and recycled by frames.Ring, the
// slot's fence decides when that is safe.
type frameSlot struct {
	fence          *vkFence
	imageAvailable vk.Semaphore
	computeDone    vk.Semaphore

	// ubo is persistently mapped, written by the host right before the slot's compute submission.
	ubo *com.Buffer

	computeCmd vk.CommandBuffer
	presentCmd vk.CommandBuffer
}

func newFrameSlot(dc *com.Device, computeCmd vk.CommandBuffer, presentCmd vk.CommandBuffer) (*frameSlot, error) {
	fs := &frameSlot{
		computeCmd: computeCmd,
		presentCmd: presentCmd,
	}
	// Fences start signaled, otherwise the first wait of the ring would never return
	fence, err := com.VKSCreateFence(dc.Device, true)
	if err != nil {
		return nil, errors.Wrap(err, "create in-flight fence")
	}
	fs.fence = &vkFence{device: dc.Device, handle: fence}
	if fs.imageAvailable, err = com.VKSCreateSemaphore(dc.Device); err != nil {
		fs.destroy(dc)
		return nil, errors.Wrap(err, "create image available semaphore")
	}
	if fs.computeDone, err = com.VKSCreateSemaphore(dc.Device); err != nil {
		fs.destroy(dc)
		return nil, errors.Wrap(err, "create compute done semaphore")
	}
	fs.ubo, err = com.CreateBuffer(
		dc,
		model.ParameterBlockSize,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		com.HostCoherent,
	)
	if err != nil {
		fs.destroy(dc)
		return nil, errors.Wrap(err, "create parameter block buffer")
	}
	if err = fs.ubo.Map(dc); err != nil {
		fs.destroy(dc)
		return nil, err
	}
	return fs, nil
}

// destroy releases the slot's objects. Command buffers go with their pool.
func (fs *frameSlot) destroy(dc *com.Device) {
	if fs.ubo != nil {
		fs.ubo.Destroy(dc)
		fs.ubo = nil
	}
	if fs.computeDone != vk.NullSemaphore {
		vk.DestroySemaphore(dc.Device, fs.computeDone, nil)
		fs.computeDone = vk.NullSemaphore
	}
	if fs.imageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(dc.Device, fs.imageAvailable, nil)
		fs.imageAvailable = vk.NullSemaphore
	}
	if fs.fence != nil {
		vk.DestroyFence(dc.Device, fs.fence.handle, nil)
		fs.fence = nil
	}
}

// createFrameSlots builds count slots with their command buffers taken from pool, plus the ring cycling them.
func createFrameSlots(dc *com.Device, pool vk.CommandPool, count int, timeout time.Duration) ([]*frameSlot, *frames.Ring, error) {
	cmds, err := com.VKAllocateCommandBuffersPrimary(dc.Device, pool, uint32(2*count))
	if err != nil {
		return nil, nil, errors.Wrap(err, "allocate frame command buffers")
	}
	slots := make([]*frameSlot, 0, count)
	fences := make([]frames.Fence, 0, count)
	for i := 0; i < count; i++ {
		fs, err := newFrameSlot(dc, cmds[2*i], cmds[2*i+1])
		if err != nil {
			for _, s := range slots {
				s.destroy(dc)
			}
			return nil, nil, errors.Wrapf(err, "create frame slot %d", i)
		}
		slots = append(slots, fs)
		fences = append(fences, fs.fence)
	}
	return slots, frames.NewRing(fences, timeout), nil
}
