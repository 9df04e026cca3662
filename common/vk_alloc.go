package common

import (
	"log"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// This Code section contains allocation helper functions. It aims to simplify the allocation of buffers and
// images on the selected device.

const HostCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

type Buffer struct {
	Handle    vk.Buffer
	DeviceMem vk.DeviceMemory
	Size      vk.DeviceSize
	Usage     vk.BufferUsageFlags
	props     vk.MemoryPropertyFlags

	// Mapped is set while the whole buffer is persistently mapped.
	Mapped unsafe.Pointer
}

func CreateBuffer(dc *Device, size vk.DeviceSize, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags) (*Buffer, error) {
	// Buffer Handle of fitting Size
	bufferInfo := vk.BufferCreateInfo{
		SType:                 vk.StructureTypeBufferCreateInfo,
		PNext:                 nil,
		Flags:                 0,
		Size:                  size,
		Usage:                 usage,
		SharingMode:           vk.SharingModeExclusive,
		QueueFamilyIndexCount: 0,
		PQueueFamilyIndices:   nil,
	}
	buf, err := VkCreateBuffer(dc.Device, &bufferInfo, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "create buffer of %d bytes", size)
	}

	bufRequirements := ReadBufferMemoryRequirements(dc.Device, buf)
	memType, err := findMemoryType(dc, bufRequirements.MemoryTypeBits, props)
	if err != nil {
		vk.DestroyBuffer(dc.Device, buf, nil)
		return nil, err
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		PNext:           nil,
		AllocationSize:  bufRequirements.Size,
		MemoryTypeIndex: memType,
	}
	deviceMem, err := VkAllocateMemory(dc.Device, &allocInfo, nil)
	if err != nil {
		vk.DestroyBuffer(dc.Device, buf, nil)
		return nil, errors.Wrap(err, "allocate buffer memory")
	}

	// Associate allocated memory with buffer Handle
	if err = VkBindBufferMemory(dc.Device, buf, deviceMem, 0); err != nil {
		vk.DestroyBuffer(dc.Device, buf, nil)
		vk.FreeMemory(dc.Device, deviceMem, nil)
		return nil, errors.Wrap(err, "bind device memory to buffer handle")
	}

	return &Buffer{
		Handle:    buf,
		DeviceMem: deviceMem,
		Size:      size,
		Usage:     usage,
		props:     props,
	}, nil
}

// Map persistently maps the whole buffer. The memory has to be host visible and coherent, so writes through Mapped
// need no flush.
func (b *Buffer) Map(dc *Device) error {
	if b.props&HostCoherent != HostCoherent {
		return errors.New("buffer memory is not host visible and coherent")
	}
	if b.Mapped != nil {
		return nil
	}
	pData, err := VkMapMemory(dc.Device, b.DeviceMem, 0, b.Size, 0)
	if err != nil {
		return errors.Wrap(err, "map buffer memory")
	}
	b.Mapped = pData
	return nil
}

// Write copies payload to the start of the mapped buffer.
func (b *Buffer) Write(payload []byte) error {
	if b.Mapped == nil {
		return errors.New("write to unmapped buffer")
	}
	if vk.DeviceSize(len(payload)) > b.Size {
		return errors.Errorf("payload of %d bytes exceeds buffer of %d bytes", len(payload), b.Size)
	}
	vk.Memcopy(b.Mapped, payload)
	return nil
}

// Read copies n bytes out of the mapped buffer.
func (b *Buffer) Read(n int) ([]byte, error) {
	if b.Mapped == nil {
		return nil, errors.New("read from unmapped buffer")
	}
	if vk.DeviceSize(n) > b.Size {
		return nil, errors.Errorf("read of %d bytes exceeds buffer of %d bytes", n, b.Size)
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(b.Mapped), n))
	return out, nil
}

func (b *Buffer) Destroy(dc *Device) {
	if b.Mapped != nil {
		vk.UnmapMemory(dc.Device, b.DeviceMem)
		b.Mapped = nil
	}
	vk.DestroyBuffer(dc.Device, b.Handle, nil)
	vk.FreeMemory(dc.Device, b.DeviceMem, nil)
}

// Image is a device local 2D color image together with a view on it.
type Image struct {
	Handle    vk.Image
	DeviceMem vk.DeviceMemory
	View      vk.ImageView
	Format    vk.Format
	Width     uint32
	Height    uint32
}

func CreateImage(dc *Device, w uint32, h uint32, format vk.Format, usage vk.ImageUsageFlags) (*Image, error) {
	imageInfo := &vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		PNext:     nil,
		Flags:     0,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  w,
			Height: h,
			Depth:  1,
		},
		MipLevels:             1,
		ArrayLayers:           1,
		Samples:               vk.SampleCount1Bit,
		Tiling:                vk.ImageTilingOptimal,
		Usage:                 usage,
		SharingMode:           vk.SharingModeExclusive,
		QueueFamilyIndexCount: 0,
		PQueueFamilyIndices:   nil,
		InitialLayout:         vk.ImageLayoutUndefined,
	}
	img, err := VkCreateImage(dc.Device, imageInfo, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "create %dx%d image", w, h)
	}

	memRequirements := ReadImageMemoryRequirements(dc.Device, img)
	memType, err := findMemoryType(dc, memRequirements.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(dc.Device, img, nil)
		return nil, err
	}
	allocInfo := &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		PNext:           nil,
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memType,
	}
	imgMemory, err := VkAllocateMemory(dc.Device, allocInfo, nil)
	if err != nil {
		vk.DestroyImage(dc.Device, img, nil)
		return nil, errors.Wrap(err, "allocate image device memory")
	}
	if err = VkBindImageMemory(dc.Device, img, imgMemory, 0); err != nil {
		vk.DestroyImage(dc.Device, img, nil)
		vk.FreeMemory(dc.Device, imgMemory, nil)
		return nil, errors.Wrap(err, "bind image memory")
	}
	view, err := VKCreate2DFullSizeImageView(dc.Device, img, format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		vk.DestroyImage(dc.Device, img, nil)
		vk.FreeMemory(dc.Device, imgMemory, nil)
		return nil, errors.Wrap(err, "create image view")
	}
	return &Image{
		Handle:    img,
		DeviceMem: imgMemory,
		View:      view,
		Format:    format,
		Width:     w,
		Height:    h,
	}, nil
}

func (im *Image) Destroy(dc *Device) {
	vk.DestroyImageView(dc.Device, im.View, nil)
	vk.DestroyImage(dc.Device, im.Handle, nil)
	vk.FreeMemory(dc.Device, im.DeviceMem, nil)
}

func findMemoryType(dc *Device, typeFilter uint32, propFlags vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < dc.PdMemoryProps.MemoryTypeCount; i++ {
		ofType := (typeFilter & (1 << i)) > 0
		hasProperties := dc.PdMemoryProps.MemoryTypes[i].PropertyFlags&propFlags == propFlags
		if ofType && hasProperties {
			log.Printf("Found memory type %d on heap %d", i, dc.PdMemoryProps.MemoryTypes[i].HeapIndex)
			return i, nil
		}
	}
	return 0, errors.Errorf("no memory type matches filter %032b with properties %b", typeFilter, propFlags)
}
