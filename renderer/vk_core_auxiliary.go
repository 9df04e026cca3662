package renderer

import (
	com "julia_explorer/common"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// These auxiliary functions record and submit the per frame command buffers. They are tied to the Core and its slot
// layout, unlike the general VKS simplifications in common.

// recordCompute re-records the slot's compute command buffer: dispatch over the render target, then hand the target
// to the fragment shader of the present pass.
func (c *Core) recordCompute(fs *frameSlot, slotIdx int) error {
	if err := vk.Error(vk.ResetCommandBuffer(fs.computeCmd, 0)); err != nil {
		return errors.Wrap(err, "reset compute command buffer")
	}
	if err := com.VKSBeginCommandBuffer(fs.computeCmd); err != nil {
		return errors.Wrap(err, "begin compute command buffer")
	}
	c.computePass.Record(fs.computeCmd, c.computeDescs.Set(slotIdx), c.target, computeToSampleTransition)
	return errors.Wrap(vk.Error(vk.EndCommandBuffer(fs.computeCmd)), "record compute command buffer")
}

func (c *Core) recordPresent(fs *frameSlot, slotIdx int, img uint32) error {
	if err := vk.Error(vk.ResetCommandBuffer(fs.presentCmd, 0)); err != nil {
		return errors.Wrap(err, "reset present command buffer")
	}
	if err := com.VKSBeginCommandBuffer(fs.presentCmd); err != nil {
		return errors.Wrap(err, "begin present command buffer")
	}
	c.presentPass.Record(fs.presentCmd, c.swapChain.FrameBuffers[img], c.swapChain.Extent, c.presentDescs.Set(slotIdx))
	return errors.Wrap(vk.Error(vk.EndCommandBuffer(fs.presentCmd)), "record present command buffer")
}

// submitCompute queues the dispatch. It signals computeDone but no fence: the present or drain submission that
// waits on computeDone carries the slot's fence.
func (c *Core) submitCompute(fs *frameSlot) error {
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		PNext:                nil,
		WaitSemaphoreCount:   0,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{fs.computeCmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{fs.computeDone},
	}
	return errors.Wrap(com.VKSQueueSubmit(c.device.GraphicsQ, submitInfo, vk.NullFence), "submit compute command buffer")
}

// submitPresent draws into swapchain image img once it is available and the slot's dispatch finished.
func (c *Core) submitPresent(fs *frameSlot, img uint32) error {
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		PNext:              nil,
		WaitSemaphoreCount: 2,
		PWaitSemaphores:    []vk.Semaphore{fs.imageAvailable, fs.computeDone},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{fs.presentCmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{c.swapChain.RenderFinished[img]},
	}
	return errors.Wrap(com.VKSQueueSubmit(c.device.GraphicsQ, submitInfo, fs.fence.handle), "submit present command buffer")
}

// submitDrain consumes computeDone and signals the slot's fence without presenting, for frames whose acquire failed.
func (c *Core) submitDrain(fs *frameSlot) error {
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		PNext:              nil,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{fs.computeDone},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		},
		CommandBufferCount:   0,
		SignalSemaphoreCount: 0,
	}
	return errors.Wrap(com.VKSQueueSubmit(c.device.GraphicsQ, submitInfo, fs.fence.handle), "submit drain")
}
