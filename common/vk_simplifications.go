package common

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// Utility functions providing slightly altered versions of the raw go bindings and wrapped functions. These altered
// versions of common functions should only hide very obvious default values that will not need to change most of the
// time. Thus representing a tiny step-up in abstraction to allow for a simpler usage of common vulkan calls. Each
// simplification function should specify the simplification it does. Names are prefixed with VKS which stands for
// (V)ul(K)an (S)implified.

// VKSCreateCommandPool implicitly instantiates the CreateInfo for the command pool based in the provided arguments. This
// is easily possible as the CreateInfo does only contain 2 interesting values in this case.
func VKSCreateCommandPool(device vk.Device, flags vk.CommandPoolCreateFlags, queueFamilyIndex uint32) (vk.CommandPool, error) {
	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		PNext:            nil,
		Flags:            flags,
		QueueFamilyIndex: queueFamilyIndex,
	}
	return VkCreateCommandPool(device, &poolInfo, nil)
}

// VKSCreateFence creates a fence that optionally starts out signaled. Fences guarding frame slots start signaled, so
// the very first wait on them returns immediately.
func VKSCreateFence(device vk.Device, signaled bool) (vk.Fence, error) {
	var flags vk.FenceCreateFlags
	if signaled {
		flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	return VkCreateFence(device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		PNext: nil,
		Flags: flags,
	}, nil)
}

// VKSCreateSemaphore creates a binary semaphore, the only kind of semaphore used here.
func VKSCreateSemaphore(device vk.Device) (vk.Semaphore, error) {
	return VkCreateSemaphore(device, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
		PNext: nil,
		Flags: 0,
	}, nil)
}

// VKSCreateShaderModule builds a shader module straight from SPIR-V words.
func VKSCreateShaderModule(device vk.Device, words []uint32) (vk.ShaderModule, error) {
	if len(words) == 0 {
		return nil, errors.New("empty SPIR-V module")
	}
	return VkCreateShaderModule(device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		PNext:    nil,
		Flags:    0,
		CodeSize: uint64(len(words) * 4),
		PCode:    words,
	}, nil)
}

// VKSBeginCommandBuffer resets nothing and assumes a one time submit, which is how every command buffer in this
// program is used: re-recorded before each submission.
func VKSBeginCommandBuffer(buffer vk.CommandBuffer) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType:            vk.StructureTypeCommandBufferBeginInfo,
		PNext:            nil,
		Flags:            vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
		PInheritanceInfo: nil,
	}
	return vk.Error(vk.BeginCommandBuffer(buffer, &beginInfo))
}

// VKSQueueSubmit submits a single batch.
func VKSQueueSubmit(queue vk.Queue, submitInfo vk.SubmitInfo, fence vk.Fence) error {
	return vk.Error(vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, fence))
}
