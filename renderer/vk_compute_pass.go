package renderer

import (
	"log"

	com "julia_explorer/common"
	"julia_explorer/renderer/shaders"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// ComputePass dispatches the escape time kernel over a storage image. The pipeline and its layout are shared by every
// in-flight slot and the export pass, only descriptor sets differ.
type ComputePass struct {
	dc *com.Device

	setLayout      vk.DescriptorSetLayout
	pipelineLayout vk.PipelineLayout
	pipeline       vk.Pipeline
}

// Before the dispatch the previous content is discarded: every pixel gets rewritten. The source stage covers the
// fragment shader of an earlier present that may still sample the image.
var computeWriteTransition = com.LayoutTransition{
	OldLayout: vk.ImageLayoutUndefined,
	NewLayout: vk.ImageLayoutGeneral,
	SrcAccess: vk.AccessShaderReadBit,
	DstAccess: vk.AccessShaderWriteBit,
	SrcStage:  vk.PipelineStageFragmentShaderBit,
	DstStage:  vk.PipelineStageComputeShaderBit,
}

// Hands the finished image to the presentation's fragment shader.
var computeToSampleTransition = com.LayoutTransition{
	OldLayout: vk.ImageLayoutGeneral,
	NewLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	SrcAccess: vk.AccessShaderWriteBit,
	DstAccess: vk.AccessShaderReadBit,
	SrcStage:  vk.PipelineStageComputeShaderBit,
	DstStage:  vk.PipelineStageFragmentShaderBit,
}

// Hands the finished image to a copy into host visible memory.
var computeToTransferTransition = com.LayoutTransition{
	OldLayout: vk.ImageLayoutGeneral,
	NewLayout: vk.ImageLayoutTransferSrcOptimal,
	SrcAccess: vk.AccessShaderWriteBit,
	DstAccess: vk.AccessTransferReadBit,
	SrcStage:  vk.PipelineStageComputeShaderBit,
	DstStage:  vk.PipelineStageTransferBit,
}

func NewComputePass(dc *com.Device, setLayout vk.DescriptorSetLayout, words []uint32) (*ComputePass, error) {
	cp := &ComputePass{
		dc:        dc,
		setLayout: setLayout,
	}
	pipelineLayoutInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		PNext:                  nil,
		Flags:                  0,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{setLayout},
		PushConstantRangeCount: 0,
		PPushConstantRanges:    nil,
	}
	layout, err := com.VkCreatePipelineLayout(dc.Device, &pipelineLayoutInfo, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create compute pipeline layout")
	}
	cp.pipelineLayout = layout

	if err := cp.Reload(words); err != nil {
		cp.Destroy()
		return nil, err
	}
	return cp, nil
}

// Reload builds a pipeline from new kernel code and swaps it in. The caller makes sure no submitted work still uses
// the old pipeline. On failure the old pipeline stays in place.
func (cp *ComputePass) Reload(words []uint32) error {
	// Shader mode deletion can be done right after pipeline creation
	mod, stageInfo, err := LoadCompute(cp.dc.Device, words)
	if err != nil {
		return err
	}
	defer DeleteShaderMod(cp.dc.Device, mod)

	pipelineInfo := vk.ComputePipelineCreateInfo{
		SType:              vk.StructureTypeComputePipelineCreateInfo,
		PNext:              nil,
		Flags:              0,
		Stage:              stageInfo,
		Layout:             cp.pipelineLayout,
		BasePipelineHandle: vk.NullPipeline,
		BasePipelineIndex:  -1,
	}
	pipelines, err := com.VkCreateComputePipelines(cp.dc.Device, nil, 1, []vk.ComputePipelineCreateInfo{pipelineInfo}, nil)
	if err != nil {
		return errors.Wrap(err, "create compute pipeline")
	}
	if cp.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(cp.dc.Device, cp.pipeline, nil)
	}
	cp.pipeline = pipelines[0]
	log.Printf("Successfully created compute pipeline")
	return nil
}

// CheckDispatch rejects targets the device can't cover with a single dispatch.
func (cp *ComputePass) CheckDispatch(w uint32, h uint32) error {
	if w == 0 || h == 0 {
		return errors.Errorf("empty render target %dx%d", w, h)
	}
	if maxDim := cp.dc.MaxImageDimension2D(); w > maxDim || h > maxDim {
		return errors.Errorf("render target %dx%d exceeds the device limit of %d pixels per side", w, h, maxDim)
	}
	gx, gy := shaders.WorkGroups(w, h)
	if maxGroups := cp.dc.MaxComputeWorkGroupCount(); gx > maxGroups[0] || gy > maxGroups[1] {
		return errors.Errorf("dispatch of %dx%d work groups exceeds the device limit of %dx%d", gx, gy, maxGroups[0], maxGroups[1])
	}
	return nil
}

// Record writes the dispatch over target into cmd, framed by the layout transition into GENERAL and the given
// transition out of it. The descriptor set has to reference target.
func (cp *ComputePass) Record(cmd vk.CommandBuffer, set vk.DescriptorSet, target *com.Image, after com.LayoutTransition) {
	com.VKCmdTransitionImage(cmd, target.Handle, computeWriteTransition)

	vk.CmdBindPipeline(cmd, vk.PipelineBindPointCompute, cp.pipeline)
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointCompute, cp.pipelineLayout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
	gx, gy := shaders.WorkGroups(target.Width, target.Height)
	vk.CmdDispatch(cmd, gx, gy, 1)

	com.VKCmdTransitionImage(cmd, target.Handle, after)
}

func (cp *ComputePass) Destroy() {
	if cp.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(cp.dc.Device, cp.pipeline, nil)
		cp.pipeline = vk.NullPipeline
	}
	if cp.pipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(cp.dc.Device, cp.pipelineLayout, nil)
		cp.pipelineLayout = vk.NullPipelineLayout
	}
}

// renderTargetUsage covers all uses of a render target: kernel writes, presentation reads and export copies.
const renderTargetUsage = vk.ImageUsageFlags(vk.ImageUsageStorageBit | vk.ImageUsageSampledBit | vk.ImageUsageTransferSrcBit)

func createRenderTarget(dc *com.Device, w uint32, h uint32) (*com.Image, error) {
	img, err := com.CreateImage(dc, w, h, com.RenderTargetFormat, renderTargetUsage)
	if err != nil {
		return nil, errors.Wrap(err, "create render target")
	}
	log.Printf("Created %dx%d render target", w, h)
	return img, nil
}
