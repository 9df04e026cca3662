package common

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllOfAinB(t *testing.T) {
	supported := []string{"VK_KHR_surface", "VK_KHR_xcb_surface\x00", "VK_KHR_swapchain"}
	if !AllOfAinB([]string{"VK_KHR_swapchain", "VK_KHR_xcb_surface"}, supported) {
		t.Errorf("terminated and unterminated names should compare equal")
	}
	assert.Equal(t, []string{"VK_EXT_debug_utils"}, MissingOfAinB([]string{"VK_KHR_surface", "VK_EXT_debug_utils"}, supported))
	assert.True(t, AllOfAinB(nil, supported))
}

func TestTerminatedStrs(t *testing.T) {
	in := []string{"a", "b\x00"}
	out := TerminatedStrs(in)
	assert.Equal(t, []string{"a\x00", "b\x00"}, out)
	assert.Equal(t, "a", in[0], "input must not be modified")
	assert.Equal(t, "\x00", TerminatedStr(""))
}

func TestPickQueueFamilies(t *testing.T) {
	gfx := vk.QueueFlags(vk.QueueGraphicsBit)
	gfxCompute := vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit)
	compute := vk.QueueFlags(vk.QueueComputeBit)

	t.Run("shared family preferred", func(t *testing.T) {
		q, err := pickQueueFamilies([]vk.QueueFlags{gfxCompute, gfxCompute}, []bool{false, true})
		require.NoError(t, err)
		assert.Equal(t, uint32(1), *q.GraphicsFamily)
		assert.True(t, q.IsShared())
		assert.Len(t, q.toQueueCreateInfos(), 1)
	})
	t.Run("separate present family", func(t *testing.T) {
		q, err := pickQueueFamilies([]vk.QueueFlags{compute, gfxCompute, 0}, []bool{false, false, true})
		require.NoError(t, err)
		assert.Equal(t, uint32(1), *q.GraphicsFamily)
		assert.Equal(t, uint32(2), *q.PresentFamily)
		assert.False(t, q.IsShared())
		assert.Len(t, q.toQueueCreateInfos(), 2)
	})
	t.Run("graphics without compute", func(t *testing.T) {
		_, err := pickQueueFamilies([]vk.QueueFlags{gfx, compute}, []bool{true, true})
		assert.Error(t, err)
	})
	t.Run("no present", func(t *testing.T) {
		_, err := pickQueueFamilies([]vk.QueueFlags{gfxCompute}, []bool{false})
		assert.Error(t, err)
	})
}

func TestDeviceTypeRank(t *testing.T) {
	order := []vk.PhysicalDeviceType{
		vk.PhysicalDeviceTypeDiscreteGpu,
		vk.PhysicalDeviceTypeIntegratedGpu,
		vk.PhysicalDeviceTypeVirtualGpu,
		vk.PhysicalDeviceTypeCpu,
		vk.PhysicalDeviceTypeOther,
	}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, deviceTypeRank(order[i-1]), deviceTypeRank(order[i]), "%s vs %s",
			toStringDeviceType(order[i-1]), toStringDeviceType(order[i]))
	}
}

func TestSwapChainDetailsSelection(t *testing.T) {
	s := SwapChainDetails{
		formats: []vk.SurfaceFormat{
			{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		presentModes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate},
	}
	f := s.selectSwapSurfaceFormat([]vk.Format{vk.FormatB8g8r8a8Unorm, vk.FormatR8g8b8a8Unorm}, vk.ColorSpaceSrgbNonlinear)
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, f.Format)

	assert.Equal(t, vk.PresentModeImmediate, s.selectSwapPresentMode(vk.PresentModeImmediate))
	assert.Equal(t, vk.PresentModeFifo, s.selectSwapPresentMode(vk.PresentModeMailbox))

	s.capabilities.MinImageCount = 2
	s.capabilities.MaxImageCount = 0
	assert.Equal(t, uint32(3), s.selectImageCount(), "0 means no upper limit")
	s.capabilities.MaxImageCount = 2
	assert.Equal(t, uint32(2), s.selectImageCount())

	s.capabilities.SupportedCompositeAlpha = vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit)
	assert.Equal(t, vk.CompositeAlphaInheritBit, s.selectCompositeAlpha())
	s.capabilities.SupportedCompositeAlpha = vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit | vk.CompositeAlphaInheritBit)
	assert.Equal(t, vk.CompositeAlphaOpaqueBit, s.selectCompositeAlpha())
}

func TestSelectSwapExtent(t *testing.T) {
	s := SwapChainDetails{}
	s.capabilities.CurrentExtent = vk.Extent2D{Width: 640, Height: 480}
	assert.Equal(t, vk.Extent2D{Width: 640, Height: 480}, s.selectSwapExtent(1000, 1000))

	s.capabilities.CurrentExtent = vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32}
	s.capabilities.MinImageExtent = vk.Extent2D{Width: 1, Height: 1}
	s.capabilities.MaxImageExtent = vk.Extent2D{Width: 4096, Height: 2048}
	assert.Equal(t, vk.Extent2D{Width: 1600, Height: 900}, s.selectSwapExtent(1600, 900))
	assert.Equal(t, vk.Extent2D{Width: 4096, Height: 2048}, s.selectSwapExtent(5000, 3000))
}

func TestDriverVersionStrings(t *testing.T) {
	assert.Equal(t, "NVIDIA", asVendorName(0x10DE))
	assert.Equal(t, "unknown", asVendorName(0x1234))
	raw := uint32(535<<22 | 113<<14 | 1<<6)
	assert.Equal(t, "535.113.1.0", asDriverVersion(0x10DE, raw))
	assert.Equal(t, []string{"VK_QUEUE_GRAPHICS_BIT", "VK_QUEUE_COMPUTE_BIT"},
		toStringQueueFlags(vk.QueueFlags(vk.QueueGraphicsBit|vk.QueueComputeBit)))
}
