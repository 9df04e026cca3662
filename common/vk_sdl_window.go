package common

import (
	"fmt"
	"log"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"
)

const APPLICATION_NAME = "Julia explorer"
const APP_MAJOR, APP_MINOR, APP_PATCH = 1, 0, 0
const ENGINE_NAME = "No Engine"
const ENGINE_MAJOR, ENGINE_MINOR, ENGINE_PATCH = 1, 0, 0

const SDL_MAJOR, SDL_MINOR, SDL_PATCH = int(sdl.MAJOR_VERSION), int(sdl.MINOR_VERSION), int(sdl.PATCHLEVEL)

// Vulkan spec go bindings = v1.0.7, as per: https://github.com/goki/vulkan = 1.3.239
const VK_SPEC_MAJOR, VK_SPEC_MINOR, VK_SPEC_PATCH int = 1, 3, 239

// Window encapsulates all window handling components and vulkan access objects to talk, to actual draw on screen. It
// uses SDL for window management and user input, for a Vulkan application. Thus simplifying the process of getting a
// vk.surface to draw on and interact with.
type Window struct {
	sdlVersion string
	vkVersion  string

	Win       *sdl.Window
	Resized   bool
	Minimized bool
	Close     bool

	// Validation is true when the validation layers were requested and are available.
	Validation bool

	Inst *vk.Instance
	Surf *vk.Surface
}

// NewWindow constructs a new Window struct by default initializing things, stating some meta information and
// calling the corresponding init functions for the SDL window, Vulkan API instance and so on. On tear down,
// we need to destroy the: vk.surface, vk.instance and sdl.window. A hidden window still provides a surface, which is
// all an off-screen export needs.
func NewWindow(title string, w int32, h int32, hidden bool, validation bool) (*Window, error) {
	window := &Window{
		sdlVersion: fmt.Sprintf("v%d.%d.%d", SDL_MAJOR, SDL_MINOR, SDL_PATCH),
		vkVersion:  fmt.Sprintf("v%d.%d.%d", VK_SPEC_MAJOR, VK_SPEC_MINOR, VK_SPEC_PATCH),
	}
	if err := window.initSDLWindow(title, w, h, hidden); err != nil {
		return nil, err
	}
	if err := window.initVulkan(); err != nil {
		window.destroySDL()
		return nil, err
	}
	if err := window.createVulkanInstance(validation); err != nil {
		window.destroySDL()
		return nil, err
	}
	if err := window.createSdlVkSurface(); err != nil {
		vk.DestroyInstance(*window.Inst, nil)
		window.destroySDL()
		return nil, err
	}
	log.Printf("Generated SDL/Vulkan window - SDL: %s Vulkan Spec: %s", window.sdlVersion, window.vkVersion)
	return window, nil
}

// Destroy is a convenience method to tear down all relevant instances (vk.surface, vk.instance and sdl.window)
// that have been initialized by itself.
func (w *Window) Destroy() {
	vk.DestroySurface(*w.Inst, *w.Surf, nil)
	vk.DestroyInstance(*w.Inst, nil)
	w.destroySDL()
}

func (w *Window) destroySDL() {
	if err := w.Win.Destroy(); err != nil {
		log.Printf("Failed to destroy SDL window: %v", err)
	}
	sdl.Quit()
}

// DrawableSize is the window size in pixels, which differs from the logical size on high DPI displays.
func (w *Window) DrawableSize() (uint32, uint32) {
	dw, dh := w.Win.VulkanGetDrawableSize()
	if dw < 0 || dh < 0 {
		return 0, 0
	}
	return uint32(dw), uint32(dh)
}

// WaitForDrawable blocks on SDL events while the window has no area, e.g. while minimized. It returns false if the
// window was asked to close in the meantime.
func (w *Window) WaitForDrawable() bool {
	for {
		dw, dh := w.DrawableSize()
		if dw > 0 && dh > 0 {
			return true
		}
		if _, ok := sdl.WaitEvent().(*sdl.QuitEvent); ok {
			w.Close = true
			return false
		}
	}
}

func (w *Window) SetTitle(title string) {
	w.Win.SetTitle(title)
}

func (w *Window) initSDLWindow(title string, width int32, height int32, hidden bool) error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return errors.Wrap(err, "initialize SDL")
	}
	log.Println("Initialized SDL")
	flags := uint32(sdl.WINDOW_RESIZABLE | sdl.WINDOW_VULKAN | sdl.WINDOW_ALLOW_HIGHDPI)
	if hidden {
		flags |= sdl.WINDOW_HIDDEN
	} else {
		flags |= sdl.WINDOW_SHOWN
	}
	win, err := sdl.CreateWindow(
		title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		width,
		height,
		flags,
	)
	if err != nil {
		sdl.Quit()
		return errors.Wrap(err, "create SDL window for use with Vulkan")
	}
	log.Printf("Created SDL window for use with Vulkan. Title: \"%s\", Width: %d, Height: %d", title, width, height)
	w.Win = win
	return nil
}

func (w *Window) initVulkan() error {
	// Find and load Vulkan addresses to be able to call driver level functions via provided mechanism
	vk.SetGetInstanceProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	return errors.Wrap(vk.Init(), "initialize Vulkan API")
}

func (w *Window) createVulkanInstance(validation bool) error {
	requiredExtensions := w.Win.VulkanGetInstanceExtensions()
	if missing := MissingOfAinB(requiredExtensions, ReadInstanceExtensionPropertyNames()); len(missing) > 0 {
		return errors.Errorf("required instance extensions not supported: %v", missing)
	}
	log.Printf("Required instance extensions: %v", requiredExtensions)

	if validation {
		if missing := MissingOfAinB(VALIDATION_LAYERS, ReadInstanceLayerPropertyNames()); len(missing) > 0 {
			log.Printf("Validation requested but layers %v are missing, continuing without", missing)
			validation = false
		}
	}
	w.Validation = validation

	applicationInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PNext:              nil,
		PApplicationName:   TerminatedStr(APPLICATION_NAME),
		ApplicationVersion: vk.MakeVersion(APP_MAJOR, APP_MINOR, APP_PATCH),
		PEngineName:        TerminatedStr(ENGINE_NAME),
		EngineVersion:      vk.MakeVersion(ENGINE_MAJOR, ENGINE_MINOR, ENGINE_PATCH),
		ApiVersion:         vk.MakeVersion(1, 1, 0),
	}
	createInfo := &vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PNext:                   nil,
		Flags:                   0,
		PApplicationInfo:        applicationInfo,
		EnabledLayerCount:       0,
		PpEnabledLayerNames:     nil,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: TerminatedStrs(requiredExtensions),
	}
	if validation {
		createInfo.EnabledLayerCount = uint32(len(VALIDATION_LAYERS))
		createInfo.PpEnabledLayerNames = TerminatedStrs(VALIDATION_LAYERS)
	}
	ins, err := VkCreateInstance(createInfo, nil)
	if err != nil {
		return errors.Wrap(err, "create vk instance")
	}
	w.Inst = &ins
	return nil
}

func (w *Window) createSdlVkSurface() error {
	surf, err := SdlCreateVkSurface(w.Win, *w.Inst)
	if err != nil {
		return errors.Wrap(err, "create SDL window's Vulkan surface")
	}
	w.Surf = &surf
	return nil
}
