package common

import (
	"log"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// SwapChain owns the swapchain handle and everything sized after it that lives per swapchain image: image views,
// framebuffers and the semaphores presentation waits on.
type SwapChain struct {
	supDetails SwapChainDetails
	Handle     vk.Swapchain

	Format      vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D

	Images   []vk.Image
	ImgViews []vk.ImageView
	Aspect   float32

	FrameBuffers   []vk.Framebuffer
	RenderFinished []vk.Semaphore
}

// NewSwapChain creates a swapchain for the window's current drawable size. A non nil old swapchain is handed to the
// driver for reuse, the caller still destroys it afterwards.
func NewSwapChain(dc *Device, w *Window, presentMode vk.PresentMode, old vk.Swapchain) (*SwapChain, error) {
	sc := &SwapChain{}
	drawW, drawH := w.DrawableSize()
	sc.chooseConfiguration(dc, w, presentMode, drawW, drawH)
	if sc.Extent.Width == 0 || sc.Extent.Height == 0 {
		return nil, errors.New("surface has a zero sized extent")
	}
	if err := sc.createSwapChainHandle(dc, w, old); err != nil {
		return nil, err
	}
	sc.Images = ReadSwapChainImages(dc.Device, sc.Handle)
	if err := sc.createImageViews(dc); err != nil {
		sc.Destroy(dc)
		return nil, err
	}
	if err := sc.createSemaphores(dc); err != nil {
		sc.Destroy(dc)
		return nil, err
	}

	// Precalculate the images' aspect ratio for later
	sc.Aspect = float32(sc.Extent.Width) / float32(sc.Extent.Height)
	return sc, nil
}

func (sc *SwapChain) CreateFrameBuffers(dc *Device, renderPass vk.RenderPass) error {
	sc.FrameBuffers = make([]vk.Framebuffer, len(sc.ImgViews))
	for i := range sc.ImgViews {
		framebufferInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			PNext:           nil,
			Flags:           0,
			RenderPass:      renderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{sc.ImgViews[i]},
			Width:           sc.Extent.Width,
			Height:          sc.Extent.Height,
			Layers:          1,
		}
		fb, err := VkCreateFrameBuffer(dc.Device, &framebufferInfo, nil)
		if err != nil {
			return errors.Wrapf(err, "create frame buffer [%d]", i)
		}
		sc.FrameBuffers[i] = fb
	}
	log.Printf("Successfully created %d frame buffers", len(sc.FrameBuffers))
	return nil
}

func (sc *SwapChain) chooseConfiguration(dc *Device, w *Window, presentMode vk.PresentMode, drawW uint32, drawH uint32) {
	sc.supDetails = ReadSwapChainSupportDetails(dc.PhysicalDevice, *w.Surf)
	sc.Format = sc.supDetails.selectSwapSurfaceFormat(
		[]vk.Format{vk.FormatB8g8r8a8Unorm, vk.FormatR8g8b8a8Unorm},
		vk.ColorSpaceSrgbNonlinear,
	)
	sc.PresentMode = sc.supDetails.selectSwapPresentMode(presentMode)
	sc.Extent = sc.supDetails.selectSwapExtent(drawW, drawH)
}

func (sc *SwapChain) createSwapChainHandle(dc *Device, w *Window, old vk.Swapchain) error {
	// Depending on whether our queue families are the same for graphics and presentation, we need to choose different
	// swap chain configurations: https://vulkan-tutorial.com/Drawing_a_triangle/Presentation/Swap_chain
	indices := dc.QFamilies
	sharingMode := vk.SharingModeExclusive
	var qFamIndices []uint32
	if !indices.IsShared() {
		sharingMode = vk.SharingModeConcurrent
		qFamIndices = []uint32{*indices.GraphicsFamily, *indices.PresentFamily}
	}

	createInfo := &vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		PNext:                 nil,
		Flags:                 0,
		Surface:               *w.Surf,
		MinImageCount:         sc.supDetails.selectImageCount(),
		ImageFormat:           sc.Format.Format,
		ImageColorSpace:       sc.Format.ColorSpace,
		ImageExtent:           sc.Extent,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      sharingMode,
		QueueFamilyIndexCount: uint32(len(qFamIndices)),
		PQueueFamilyIndices:   qFamIndices,
		PreTransform:          sc.supDetails.capabilities.CurrentTransform,
		CompositeAlpha:        sc.supDetails.selectCompositeAlpha(),
		PresentMode:           sc.PresentMode,
		Clipped:               vk.True,
		OldSwapchain:          old,
	}

	var err error
	sc.Handle, err = VkCreateSwapChain(dc.Device, createInfo, nil)
	if err != nil {
		return errors.Wrap(err, "create swapchain")
	}
	log.Printf("Successfully created swap chain %dx%d", sc.Extent.Width, sc.Extent.Height)
	return nil
}

func (sc *SwapChain) createImageViews(dc *Device) error {
	sc.ImgViews = make([]vk.ImageView, 0, len(sc.Images))
	for i := range sc.Images {
		view, err := VKCreate2DFullSizeImageView(dc.Device, sc.Images[i], sc.Format.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return errors.Wrapf(err, "create swapchain image view [%d]", i)
		}
		sc.ImgViews = append(sc.ImgViews, view)
	}
	log.Printf("Successfully created %d image views", len(sc.ImgViews))
	return nil
}

// createSemaphores makes one renderFinished semaphore per image. Presentation of image i waits on semaphore i, so a
// semaphore is never re-signaled while a present may still be waiting on it.
func (sc *SwapChain) createSemaphores(dc *Device) error {
	sc.RenderFinished = make([]vk.Semaphore, 0, len(sc.Images))
	for i := range sc.Images {
		sem, err := VKSCreateSemaphore(dc.Device)
		if err != nil {
			return errors.Wrapf(err, "create render finished semaphore [%d]", i)
		}
		sc.RenderFinished = append(sc.RenderFinished, sem)
	}
	return nil
}

// DestroyDerivatives destroys everything but the swapchain handle itself, which may still be needed as the old
// swapchain of its replacement.
func (sc *SwapChain) DestroyDerivatives(dc *Device) {
	for i := range sc.FrameBuffers {
		vk.DestroyFramebuffer(dc.Device, sc.FrameBuffers[i], nil)
	}
	for i := range sc.ImgViews {
		vk.DestroyImageView(dc.Device, sc.ImgViews[i], nil)
	}
	for i := range sc.RenderFinished {
		vk.DestroySemaphore(dc.Device, sc.RenderFinished[i], nil)
	}
	sc.FrameBuffers = nil
	sc.ImgViews = nil
	sc.RenderFinished = nil
}

func (sc *SwapChain) Destroy(dc *Device) {
	sc.DestroyDerivatives(dc)
	if sc.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(dc.Device, sc.Handle, nil)
		sc.Handle = vk.NullSwapchain
	}
}

type SwapChainDetails struct {
	capabilities vk.SurfaceCapabilities
	formats      []vk.SurfaceFormat
	presentModes []vk.PresentMode
}

// selectSwapSurfaceFormat returns the first of the desired formats offered with the desired color space. Only UNORM
// formats are desired: the render target already holds display ready values, an sRGB swapchain would encode them twice.
func (s *SwapChainDetails) selectSwapSurfaceFormat(desiredFormats []vk.Format, desiredColorSpace vk.ColorSpace) vk.SurfaceFormat {
	for _, df := range desiredFormats {
		for _, af := range s.formats {
			if af.Format == df && af.ColorSpace == desiredColorSpace {
				return af
			}
		}
	}
	fallbackFormat := s.formats[0]
	log.Printf("Did not find prefered SurfaceFormat, selecting first one available. (%v)", fallbackFormat)
	return fallbackFormat
}

func (s *SwapChainDetails) selectSwapPresentMode(desiredMode vk.PresentMode) vk.PresentMode {
	for _, pm := range s.presentModes {
		if pm == desiredMode {
			return pm
		}
	}
	fallbackMode := vk.PresentModeFifo
	log.Printf("Did not find prefered PresentMode %d, selecting FIFO", desiredMode)
	return fallbackMode
}

// selectSwapExtent uses the surface's current extent. Surfaces that leave the choice to the application report
// 0xFFFFFFFF, in which case the drawable size clamped to the supported range is used.
func (s *SwapChainDetails) selectSwapExtent(drawW uint32, drawH uint32) vk.Extent2D {
	if s.capabilities.CurrentExtent.Width != vk.MaxUint32 {
		return s.capabilities.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clampU32(drawW, s.capabilities.MinImageExtent.Width, s.capabilities.MaxImageExtent.Width),
		Height: clampU32(drawH, s.capabilities.MinImageExtent.Height, s.capabilities.MaxImageExtent.Height),
	}
}

// selectImageCount asks for one image more than the minimum. A max count of 0 means unlimited.
func (s *SwapChainDetails) selectImageCount() uint32 {
	imgCount := s.capabilities.MinImageCount + 1
	if s.capabilities.MaxImageCount > 0 && imgCount > s.capabilities.MaxImageCount {
		imgCount = s.capabilities.MaxImageCount
	}
	return imgCount
}

func (s *SwapChainDetails) selectCompositeAlpha() vk.CompositeAlphaFlagBits {
	supported := vk.CompositeAlphaFlagBits(s.capabilities.SupportedCompositeAlpha)
	for _, ca := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if supported&ca != 0 {
			return ca
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

func clampU32(v uint32, lo uint32, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func checkSwapChainAdequacy(pd vk.PhysicalDevice, surface vk.Surface) bool {
	scDetails := ReadSwapChainSupportDetails(pd, surface)
	return len(scDetails.formats) > 0 && len(scDetails.presentModes) > 0
}
