package common

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// QueueFamilyIndices holds the families the device is created with. GraphicsFamily also runs the compute kernel, so
// compute and presentation are ordered on one queue by semaphores alone.
type QueueFamilyIndices struct {
	GraphicsFamily *uint32
	PresentFamily  *uint32
}

func findQueueFamilies(pd vk.PhysicalDevice, surf vk.Surface) (*QueueFamilyIndices, error) {
	qFamilies := ReadQueueFamilies(pd)
	flags := make([]vk.QueueFlags, len(qFamilies))
	present := make([]bool, len(qFamilies))
	for i := range qFamilies {
		flags[i] = qFamilies[i].QueueFlags
		var presentSupport vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(i), surf, &presentSupport)
		present[i] = presentSupport > 0
	}
	return pickQueueFamilies(flags, present)
}

// pickQueueFamilies chooses the first family offering both graphics and compute. A family that can also present to the
// surface is preferred, otherwise presentation falls back to the first family that can.
func pickQueueFamilies(flags []vk.QueueFlags, present []bool) (*QueueFamilyIndices, error) {
	indices := &QueueFamilyIndices{}
	for i := range flags {
		if !isBitSet(flags[i], vk.QueueGraphicsBit) || !isBitSet(flags[i], vk.QueueComputeBit) {
			continue
		}
		if indices.GraphicsFamily == nil {
			indices.GraphicsFamily = index(i)
		}
		if present[i] {
			indices.GraphicsFamily = index(i)
			indices.PresentFamily = index(i)
			return indices, nil
		}
	}
	if indices.GraphicsFamily == nil {
		return nil, errors.New("unable to find a queue family supporting both graphics and compute")
	}
	for i := range present {
		if present[i] {
			indices.PresentFamily = index(i)
			return indices, nil
		}
	}
	return nil, errors.New("unable to find present capable queue family for given surface")
}

func index(i int) *uint32 {
	v := uint32(i)
	return &v
}

func isBitSet(flags vk.QueueFlags, bit vk.QueueFlagBits) bool {
	return vk.QueueFlagBits(flags)&bit > 0
}

func (q *QueueFamilyIndices) isAllQueuesFound() bool {
	return q.GraphicsFamily != nil && q.PresentFamily != nil
}

// IsShared reports whether graphics and presentation run on the same family.
func (q *QueueFamilyIndices) IsShared() bool {
	return *q.GraphicsFamily == *q.PresentFamily
}

func (q *QueueFamilyIndices) toQueueCreateInfos() []vk.DeviceQueueCreateInfo {
	uniqIndices := []uint32{*q.GraphicsFamily}
	if !q.IsShared() {
		uniqIndices = append(uniqIndices, *q.PresentFamily)
	}
	infos := make([]vk.DeviceQueueCreateInfo, len(uniqIndices))
	for i := range uniqIndices {
		infos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			PNext:            nil,
			Flags:            0,
			QueueFamilyIndex: uniqIndices[i],
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}
	return infos
}
