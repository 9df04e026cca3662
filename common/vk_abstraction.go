package common

import (
	vk "github.com/goki/vulkan"
)

// Utility functions that reduce visual clutter by abstracting some of the common default values into very obvious
// functions that should cover their respective use case most of the time. This is done to cut down on labor writing
// things out that are unlikely to change or are not relevant now. The main way typing is reduced by moving or
// defaulting parameters from 'createInfo' structs.

func VKAllocateCommandBuffersPrimary(device vk.Device, cmdPool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error) {
	cbAllocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		PNext:              nil,
		CommandPool:        cmdPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	return VkAllocateCommandBuffers(device, &cbAllocateInfo)
}

// VKCreate2DFullSizeImageView creates a color or depth view covering the single mip level and layer of image.
func VKCreate2DFullSizeImageView(device vk.Device, image vk.Image, format vk.Format, aspectFlags vk.ImageAspectFlags) (vk.ImageView, error) {
	createInfo := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		PNext:    nil,
		Flags:    0,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: ColorSubresourceRange(aspectFlags),
	}
	return VkCreateImageView(device, createInfo, nil)
}

func ColorSubresourceRange(aspectFlags vk.ImageAspectFlags) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     aspectFlags,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

// LayoutTransition describes one image memory barrier: from which layout and access to which, and which pipeline
// stages on either side have to be ordered.
type LayoutTransition struct {
	OldLayout vk.ImageLayout
	NewLayout vk.ImageLayout
	SrcAccess vk.AccessFlagBits
	DstAccess vk.AccessFlagBits
	SrcStage  vk.PipelineStageFlagBits
	DstStage  vk.PipelineStageFlagBits
}

// VKCmdTransitionImage records t for the color aspect of img.
func VKCmdTransitionImage(cmd vk.CommandBuffer, img vk.Image, t LayoutTransition) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		PNext:               nil,
		SrcAccessMask:       vk.AccessFlags(t.SrcAccess),
		DstAccessMask:       vk.AccessFlags(t.DstAccess),
		OldLayout:           t.OldLayout,
		NewLayout:           t.NewLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange:    ColorSubresourceRange(vk.ImageAspectFlags(vk.ImageAspectColorBit)),
	}
	vk.CmdPipelineBarrier(
		cmd,
		vk.PipelineStageFlags(t.SrcStage), vk.PipelineStageFlags(t.DstStage),
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier},
	)
}

// VKCmdBufferHostBarrier makes transfer writes into buf visible to host reads after the fence wait.
func VKCmdBufferHostBarrier(cmd vk.CommandBuffer, buf vk.Buffer, size vk.DeviceSize) {
	barrier := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		PNext:               nil,
		SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessHostReadBit),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buf,
		Offset:              0,
		Size:                size,
	}
	vk.CmdPipelineBarrier(
		cmd,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageHostBit),
		0,
		0, nil,
		1, []vk.BufferMemoryBarrier{barrier},
		0, nil,
	)
}
