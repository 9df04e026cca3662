package renderer

import (
	"log"

	com "julia_explorer/common"
	"julia_explorer/renderer/shaders"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// PresentPass draws the render target into a swapchain image with a single fullscreen triangle. It only depends on
// the swapchain's format, so it survives swapchain rebuilds as long as the format stays the same.
type PresentPass struct {
	dc     *com.Device
	format vk.Format

	renderPass     vk.RenderPass
	pipelineLayout vk.PipelineLayout
	pipeline       vk.Pipeline
	sampler        vk.Sampler
}

func NewPresentPass(dc *com.Device, format vk.Format, setLayout vk.DescriptorSetLayout) (*PresentPass, error) {
	pp := &PresentPass{
		dc:     dc,
		format: format,
	}
	if err := pp.createRenderPass(); err != nil {
		return nil, err
	}
	if err := pp.createPipeline(setLayout); err != nil {
		pp.Destroy()
		return nil, err
	}
	if err := pp.createSampler(); err != nil {
		pp.Destroy()
		return nil, err
	}
	return pp, nil
}

func (pp *PresentPass) Format() vk.Format {
	return pp.format
}

func (pp *PresentPass) RenderPass() vk.RenderPass {
	return pp.renderPass
}

func (pp *PresentPass) Sampler() vk.Sampler {
	return pp.sampler
}

func (pp *PresentPass) createRenderPass() error {
	// Every pixel gets overwritten by the triangle, so the old content is never loaded.
	colorAttachment := vk.AttachmentDescription{
		Flags:          0,
		Format:         pp.format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpDontCare,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	colorAttachmentRef := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}
	subpass := vk.SubpassDescription{
		Flags:                   0,
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		InputAttachmentCount:    0,
		PInputAttachments:       nil,
		ColorAttachmentCount:    1,
		PColorAttachments:       []vk.AttachmentReference{colorAttachmentRef},
		PResolveAttachments:     nil,
		PDepthStencilAttachment: nil,
		PreserveAttachmentCount: 0,
		PPreserveAttachments:    nil,
	}
	// The acquire semaphore is waited on at the color output stage, the layout transition has to wait for it too.
	dependency := vk.SubpassDependency{
		SrcSubpass:      vk.SubpassExternal,
		DstSubpass:      0,
		SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask:   0,
		DstAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		DependencyFlags: 0,
	}
	renderPassInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		PNext:           nil,
		Flags:           0,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
	renderPass, err := com.VkCreateRenderPass(pp.dc.Device, &renderPassInfo, nil)
	if err != nil {
		return errors.Wrap(err, "create render pass")
	}
	pp.renderPass = renderPass
	log.Println("Successfully created render pass")
	return nil
}

func (pp *PresentPass) createPipeline(setLayout vk.DescriptorSetLayout) error {
	words, err := shaders.Present()
	if err != nil {
		return err
	}
	// Shader mode deletion can be done right after pipeline creation
	vertShaderMod, vertStageInfo, err := LoadVert(pp.dc.Device, words)
	if err != nil {
		return err
	}
	defer DeleteShaderMod(pp.dc.Device, vertShaderMod)
	fragShaderMod, fragStageInfo, err := LoadFrag(pp.dc.Device, words)
	if err != nil {
		return err
	}
	defer DeleteShaderMod(pp.dc.Device, fragShaderMod)
	shaderStages := []vk.PipelineShaderStageCreateInfo{vertStageInfo, fragStageInfo}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		PNext:             nil,
		Flags:             0,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}
	// The triangle is generated from the vertex index, there are no vertex buffers.
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		PNext:                           nil,
		Flags:                           0,
		VertexBindingDescriptionCount:   0,
		PVertexBindingDescriptions:      nil,
		VertexAttributeDescriptionCount: 0,
		PVertexAttributeDescriptions:    nil,
	}
	inputAssemblyInfo := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		PNext:                  nil,
		Flags:                  0,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}
	viewportStateInfo := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		PNext:         nil,
		Flags:         0,
		ViewportCount: 1,
		PViewports:    nil,
		ScissorCount:  1,
		PScissors:     nil,
	}
	rasterizerInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		PNext:                   nil,
		Flags:                   0,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
		LineWidth:               1.0,
	}
	multisamplingInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		PNext:                 nil,
		Flags:                 0,
		RasterizationSamples:  vk.SampleCount1Bit,
		SampleShadingEnable:   vk.False,
		MinSampleShading:      1.0,
		PSampleMask:           nil,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}
	colorBlendAttachmentInfo := vk.PipelineColorBlendAttachmentState{
		BlendEnable:    vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	colorBlendingInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		PNext:           nil,
		Flags:           0,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentInfo},
		BlendConstants:  [4]float32{0, 0, 0, 0},
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
	layout, err := com.VkCreatePipelineLayout(pp.dc.Device, &pipelineLayoutInfo, nil)
	if err != nil {
		return errors.Wrap(err, "create present pipeline layout")
	}
	pp.pipelineLayout = layout

	// The actual pipeline
	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:               nil,
		Flags:               0,
		StageCount:          uint32(len(shaderStages)),
		PStages:             shaderStages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssemblyInfo,
		PTessellationState:  nil,
		PViewportState:      &viewportStateInfo,
		PRasterizationState: &rasterizerInfo,
		PMultisampleState:   &multisamplingInfo,
		PDepthStencilState:  nil,
		PColorBlendState:    &colorBlendingInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              pp.pipelineLayout,
		RenderPass:          pp.renderPass,
		Subpass:             0,
		BasePipelineHandle:  nil,
		BasePipelineIndex:   -1,
	}
	pipelines, err := com.VkCreateGraphicsPipelines(pp.dc.Device, nil, 1, []vk.GraphicsPipelineCreateInfo{pipelineInfo}, nil)
	if err != nil {
		return errors.Wrap(err, "create present pipeline")
	}
	pp.pipeline = pipelines[0]
	log.Printf("Successfully created graphics pipeline")
	return nil
}

// createSampler uses nearest filtering, the render target has the size of the framebuffer it is drawn into.
func (pp *PresentPass) createSampler() error {
	samplerInfo := &vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		PNext:                   nil,
		Flags:                   0,
		MagFilter:               vk.FilterNearest,
		MinFilter:               vk.FilterNearest,
		MipmapMode:              vk.SamplerMipmapModeNearest,
		AddressModeU:            vk.SamplerAddressModeClampToEdge,
		AddressModeV:            vk.SamplerAddressModeClampToEdge,
		AddressModeW:            vk.SamplerAddressModeClampToEdge,
		MipLodBias:              0.0,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1.0,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  0.0,
		MaxLod:                  0.0,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	sampler, err := com.VkCreateSampler(pp.dc.Device, samplerInfo, nil)
	if err != nil {
		return errors.Wrap(err, "create render target sampler")
	}
	pp.sampler = sampler
	return nil
}

// Record draws into framebuffer, set has to reference the render target in SHADER_READ_ONLY_OPTIMAL.
func (pp *PresentPass) Record(cmd vk.CommandBuffer, framebuffer vk.Framebuffer, extent vk.Extent2D, set vk.DescriptorSet) {
	renderArea := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	renderPassInfo := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		PNext:           nil,
		RenderPass:      pp.renderPass,
		Framebuffer:     framebuffer,
		RenderArea:      renderArea,
		ClearValueCount: 0,
		PClearValues:    nil,
	}
	vk.CmdBeginRenderPass(cmd, &renderPassInfo, vk.SubpassContentsInline)

	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, pp.pipeline)
	viewport := []vk.Viewport{
		{
			X:        0,
			Y:        0,
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MinDepth: 0,
			MaxDepth: 1.0,
		},
	}
	vk.CmdSetViewport(cmd, 0, 1, viewport)
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{renderArea})
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, pp.pipelineLayout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
	vk.CmdDraw(cmd, 3, 1, 0, 0)

	vk.CmdEndRenderPass(cmd)
}

func (pp *PresentPass) Destroy() {
	if pp.sampler != vk.NullSampler {
		vk.DestroySampler(pp.dc.Device, pp.sampler, nil)
		pp.sampler = vk.NullSampler
	}
	if pp.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(pp.dc.Device, pp.pipeline, nil)
		pp.pipeline = vk.NullPipeline
	}
	if pp.pipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(pp.dc.Device, pp.pipelineLayout, nil)
		pp.pipelineLayout = vk.NullPipelineLayout
	}
	if pp.renderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(pp.dc.Device, pp.renderPass, nil)
		pp.renderPass = vk.NullRenderPass
	}
}
