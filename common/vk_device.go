package common

import (
	"log"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

var VALIDATION_LAYERS = []string{
	"VK_LAYER_KHRONOS_validation",
}

var DEVICE_EXTENSIONS = []string{
	"VK_KHR_swapchain",
}

// RenderTargetFormat is written by the compute kernel as a storage image and sampled by the presentation pass.
const RenderTargetFormat = vk.FormatR8g8b8a8Unorm

// Device represents the interfacing objects between the SDL window, the Hardware running Vulkan
// and the rest of the rendering engine. Its main purpose is to encapsulate the corresponding objects
// to make the initialization and teardown of a given application neater.
type Device struct {
	PhysicalDevice vk.PhysicalDevice
	PdProps        vk.PhysicalDeviceProperties
	PdMemoryProps  vk.PhysicalDeviceMemoryProperties
	QFamilies      QueueFamilyIndices

	Device    vk.Device
	GraphicsQ vk.Queue
	PresentQ  vk.Queue

	validation bool
}

func NewDevice(w *Window) (*Device, error) {
	dc := &Device{validation: w.Validation}
	if err := dc.selectPhysicalDevice(w.Inst, w.Surf); err != nil {
		return nil, err
	}
	if err := dc.createLogicalDevice(); err != nil {
		return nil, err
	}
	return dc, nil
}

// Destroy all objects created by itself. It does not destroy the sdl.window object provided for instantiation.
func (dc *Device) Destroy() {
	vk.DestroyDevice(dc.Device, nil)
}

// Name is the driver reported device name.
func (dc *Device) Name() string {
	return vk.ToString(dc.PdProps.DeviceName[:])
}

// MaxImageDimension2D bounds both render target and export sizes.
func (dc *Device) MaxImageDimension2D() uint32 {
	return dc.PdProps.Limits.MaxImageDimension2D
}

func (dc *Device) MaxComputeWorkGroupCount() [3]uint32 {
	return dc.PdProps.Limits.MaxComputeWorkGroupCount
}

func (dc *Device) selectPhysicalDevice(in *vk.Instance, su *vk.Surface) error {
	availableDevices := ReadPhysicalDevices(*in)
	if len(availableDevices) == 0 {
		return errors.New("no Vulkan capable physical device available")
	}
	var pd vk.PhysicalDevice
	bestRank := -1
	var lastReason error
	for i := range availableDevices {
		props := ReadPhysicalDeviceProperties(availableDevices[i])
		if err := isDeviceSuitable(availableDevices[i], props, su); err != nil {
			log.Printf("Skipping device %q: %v", vk.ToString(props.DeviceName[:]), err)
			lastReason = err
			continue
		}
		if rank := deviceTypeRank(props.DeviceType); rank > bestRank {
			bestRank = rank
			pd = availableDevices[i]
		}
	}
	if pd == nil {
		return errors.Wrap(lastReason, "no suitable physical device (GPU) found")
	}
	dc.PhysicalDevice = pd

	// Also set related member variables for dc.PhysicalDevice as they are needed later
	qf, err := findQueueFamilies(dc.PhysicalDevice, *su)
	if err != nil {
		return errors.Wrap(err, "read queue families from selected device")
	}
	dc.QFamilies = *qf
	dc.PdProps = ReadPhysicalDeviceProperties(dc.PhysicalDevice)
	dc.PdMemoryProps = ReadDeviceMemoryProperties(dc.PhysicalDevice)
	log.Printf("Selected device %q (%s)", dc.Name(), toStringDeviceType(dc.PdProps.DeviceType))
	return nil
}

// deviceTypeRank orders device types by preference: discrete > integrated > virtual > cpu > other.
func deviceTypeRank(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 4
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 3
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 2
	case vk.PhysicalDeviceTypeCpu:
		return 1
	default:
		return 0
	}
}

// isDeviceSuitable returns nil for a usable device, or an error naming the first missing capability.
func isDeviceSuitable(pd vk.PhysicalDevice, pdProps vk.PhysicalDeviceProperties, su *vk.Surface) error {
	pdFeatures := ReadPhysicalDeviceFeatures(pd)
	pdQueueFams := ReadQueueFamilies(pd)
	log.Printf("Physical device\n%s", ToStringPhysicalDeviceTable(pdProps, pdFeatures, pdQueueFams))

	indices, err := findQueueFamilies(pd, *su)
	if err != nil {
		return err
	}
	if !indices.isAllQueuesFound() {
		return errors.New("missing graphics/compute or present queue family")
	}
	if missing := missingDeviceExtensions(pd, DEVICE_EXTENSIONS); len(missing) > 0 {
		return errors.Errorf("missing device extensions %v", missing)
	}
	if !checkSwapChainAdequacy(pd, *su) {
		return errors.New("surface offers no formats or present modes")
	}
	fProps := ReadFormatProperties(pd, RenderTargetFormat)
	required := vk.FormatFeatureFlags(vk.FormatFeatureStorageImageBit | vk.FormatFeatureSampledImageBit)
	if fProps.OptimalTilingFeatures&required != required {
		return errors.New("R8G8B8A8_UNORM lacks storage image or sampled image support with optimal tiling")
	}
	return nil
}

func (dc *Device) createLogicalDevice() error {
	queueInfos := dc.QFamilies.toQueueCreateInfos()
	deviceCreatInfo := &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   nil,
		Flags:                   0,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledLayerCount:       0,
		PpEnabledLayerNames:     nil,
		EnabledExtensionCount:   uint32(len(DEVICE_EXTENSIONS)),
		PpEnabledExtensionNames: TerminatedStrs(DEVICE_EXTENSIONS),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
	}
	if dc.validation {
		deviceCreatInfo.EnabledLayerCount = uint32(len(VALIDATION_LAYERS))
		deviceCreatInfo.PpEnabledLayerNames = TerminatedStrs(VALIDATION_LAYERS)
	}

	var err error
	dc.Device, err = VkCreateDevice(dc.PhysicalDevice, deviceCreatInfo, nil)
	if err != nil {
		return errors.Wrap(err, "create logical device")
	}
	dc.GraphicsQ, err = VkGetDeviceQueue(dc.Device, dc.QFamilies.GraphicsFamily, 0)
	if err != nil {
		return errors.Wrap(err, "get graphics/compute device queue")
	}
	dc.PresentQ, err = VkGetDeviceQueue(dc.Device, dc.QFamilies.PresentFamily, 0)
	if err != nil {
		return errors.Wrap(err, "get present device queue")
	}
	log.Printf("Created logical device with %d queue families", len(queueInfos))
	return nil
}

func missingDeviceExtensions(pd vk.PhysicalDevice, requiredDeviceExt []string) []string {
	supported := ReadDeviceExtensionPropertyNames(pd)
	log.Printf("Required device extensions: %v", requiredDeviceExt)
	log.Printf("Available device extensions (%d) [...]\n", len(supported))
	return MissingOfAinB(requiredDeviceExt, supported)
}
