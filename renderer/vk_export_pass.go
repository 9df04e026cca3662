package renderer

import (
	"log"
	"time"

	com "julia_explorer/common"
	"julia_explorer/model"
	"julia_explorer/renderer/frames"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// ExportPass renders a state once into its own render target and reads it back. It shares the compute pipeline with
// the interactive frames but nothing else: target, parameter block, descriptors, command buffer and fence are its own.
// Resources are kept for the last used size.
type ExportPass struct {
	dc      *com.Device
	compute *ComputePass
	ring    *frames.Ring
	timeout time.Duration

	descs       *DescriptorProvisioner
	commandPool vk.CommandPool
	cmd         vk.CommandBuffer
	fence       vk.Fence
	ubo         *com.Buffer

	// sized per export resolution
	target  *com.Image
	staging *com.Buffer
}

func NewExportPass(dc *com.Device, compute *ComputePass, ring *frames.Ring, timeout time.Duration) (*ExportPass, error) {
	ep := &ExportPass{
		dc:      dc,
		compute: compute,
		ring:    ring,
		timeout: timeout,
	}
	if err := ep.initialize(); err != nil {
		ep.Destroy()
		return nil, errors.Wrap(err, "create export pass")
	}
	return ep, nil
}

func (ep *ExportPass) initialize() error {
	var err error
	if ep.descs, err = NewDescriptorProvisioner(ep.dc.Device, computeBindings(), 1); err != nil {
		return err
	}
	ep.commandPool, err = com.VKSCreateCommandPool(
		ep.dc.Device,
		vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		*ep.dc.QFamilies.GraphicsFamily,
	)
	if err != nil {
		return err
	}
	cmds, err := com.VKAllocateCommandBuffersPrimary(ep.dc.Device, ep.commandPool, 1)
	if err != nil {
		return err
	}
	ep.cmd = cmds[0]
	if ep.fence, err = com.VKSCreateFence(ep.dc.Device, false); err != nil {
		return err
	}
	ep.ubo, err = com.CreateBuffer(ep.dc, model.ParameterBlockSize, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), com.HostCoherent)
	if err != nil {
		return err
	}
	return ep.ubo.Map(ep.dc)
}

// Export renders state at w x h and returns w*h*4 bytes of RGBA8, rows top to bottom. If interactive frames don't
// finish within the timeout it gives up with frames.ErrQueueBusy, leaving everything as it was.
func (ep *ExportPass) Export(state *model.VisualizationState, w uint32, h uint32) ([]byte, error) {
	if err := ep.compute.CheckDispatch(w, h); err != nil {
		return nil, err
	}
	// Export only runs between interactive frames
	if err := ep.ring.Quiesce(ep.timeout); err != nil {
		return nil, err
	}
	if err := ep.ensureSize(w, h); err != nil {
		return nil, err
	}

	snapshot := state.WithAspect(w, h)
	block := model.Encode(&snapshot)
	if err := ep.ubo.Write(block[:]); err != nil {
		return nil, err
	}
	if err := ep.record(); err != nil {
		return nil, err
	}
	if err := com.VkResetFence(ep.dc.Device, ep.fence); err != nil {
		return nil, errors.Wrap(err, "reset export fence")
	}
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		PNext:              nil,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{ep.cmd},
	}
	if err := com.VKSQueueSubmit(ep.dc.GraphicsQ, submitInfo, ep.fence); err != nil {
		return nil, errors.Wrap(err, "submit export")
	}

	t0 := time.Now()
	if err := ep.waitDone(); err != nil {
		return nil, err
	}
	pix, err := ep.staging.Read(int(w) * int(h) * 4)
	if err != nil {
		return nil, err
	}
	log.Printf("Exported %dx%d in %v", w, h, time.Since(t0))
	return pix, nil
}

// waitDone waits for the export submission. The readback wait is bounded too, but a large export can take much
// longer than a frame, so it gets a generous multiple of the frame timeout. After a timeout the device is drained
// before returning, the staging buffer must not be reused while the copy may still run.
func (ep *ExportPass) waitDone() error {
	err := com.VkWaitForFence(ep.dc.Device, ep.fence, 10*ep.timeout)
	if errors.Cause(err) == com.ErrWaitTimeout {
		vk.DeviceWaitIdle(ep.dc.Device)
		return errors.Wrap(frames.ErrTimeout, "export readback")
	}
	return errors.Wrap(err, "wait for export")
}

func (ep *ExportPass) ensureSize(w uint32, h uint32) error {
	if ep.target != nil && ep.target.Width == w && ep.target.Height == h {
		return nil
	}
	ep.destroySized()
	target, err := createRenderTarget(ep.dc, w, h)
	if err != nil {
		return err
	}
	ep.target = target
	staging, err := com.CreateBuffer(
		ep.dc,
		vk.DeviceSize(w)*vk.DeviceSize(h)*4,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		com.HostCoherent,
	)
	if err != nil {
		ep.destroySized()
		return errors.Wrap(err, "create export staging buffer")
	}
	if err = staging.Map(ep.dc); err != nil {
		staging.Destroy(ep.dc)
		ep.destroySized()
		return err
	}
	ep.staging = staging
	ep.descs.WriteCompute(0, target.View, ep.ubo)
	return nil
}

// record: dispatch, target to TRANSFER_SRC, copy into the staging buffer, make the copy visible to the host.
func (ep *ExportPass) record() error {
	if err := vk.Error(vk.ResetCommandBuffer(ep.cmd, 0)); err != nil {
		return errors.Wrap(err, "reset export command buffer")
	}
	if err := com.VKSBeginCommandBuffer(ep.cmd); err != nil {
		return errors.Wrap(err, "begin export command buffer")
	}
	ep.compute.Record(ep.cmd, ep.descs.Set(0), ep.target, computeToTransferTransition)

	// Tightly packed rows: row length and image height 0 mean "same as the image extent"
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{
			Width:  ep.target.Width,
			Height: ep.target.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyImageToBuffer(ep.cmd, ep.target.Handle, vk.ImageLayoutTransferSrcOptimal, ep.staging.Handle, 1, []vk.BufferImageCopy{region})
	com.VKCmdBufferHostBarrier(ep.cmd, ep.staging.Handle, ep.staging.Size)

	return errors.Wrap(vk.Error(vk.EndCommandBuffer(ep.cmd)), "record export command buffer")
}

func (ep *ExportPass) destroySized() {
	if ep.staging != nil {
		ep.staging.Destroy(ep.dc)
		ep.staging = nil
	}
	if ep.target != nil {
		ep.target.Destroy(ep.dc)
		ep.target = nil
	}
}

// Destroy assumes the device is idle.
func (ep *ExportPass) Destroy() {
	ep.destroySized()
	if ep.ubo != nil {
		ep.ubo.Destroy(ep.dc)
		ep.ubo = nil
	}
	if ep.fence != vk.NullFence {
		vk.DestroyFence(ep.dc.Device, ep.fence, nil)
		ep.fence = vk.NullFence
	}
	if ep.commandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(ep.dc.Device, ep.commandPool, nil)
		ep.commandPool = vk.NullCommandPool
	}
	if ep.descs != nil {
		ep.descs.Destroy()
		ep.descs = nil
	}
}
