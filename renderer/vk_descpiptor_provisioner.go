package renderer

import (
	"log"

	com "julia_explorer/common"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// DescriptorProvisioner owns one descriptor set layout together with a pool holding exactly 'count' sets of it.
// The compute pass binds a storage image and the parameter block, the present pass a sampled image and its sampler.
type DescriptorProvisioner struct {
	device vk.Device

	descriptorSetLayout vk.DescriptorSetLayout
	descriptorPool      vk.DescriptorPool
	descriptorSets      []vk.DescriptorSet
}

func NewDescriptorProvisioner(device vk.Device, bindings []vk.DescriptorSetLayoutBinding, count int) (*DescriptorProvisioner, error) {
	dp := &DescriptorProvisioner{
		device: device,
	}
	if err := dp.createDescriptorSetLayout(bindings); err != nil {
		return nil, err
	}
	if err := dp.createDescriptorPool(bindings, uint32(count)); err != nil {
		dp.Destroy()
		return nil, err
	}
	layouts := make([]vk.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = dp.descriptorSetLayout
	}
	sets, err := dp.allocDescriptorSets(layouts)
	if err != nil {
		dp.Destroy()
		return nil, err
	}
	dp.descriptorSets = sets
	return dp, nil
}

// computeBindings matches julia.wgsl: binding 0 the storage image written by the kernel, binding 1 the parameters.
func computeBindings() []vk.DescriptorSetLayoutBinding {
	return []vk.DescriptorSetLayoutBinding{
		{
			Binding:            0,
			DescriptorType:     vk.DescriptorTypeStorageImage,
			DescriptorCount:    1,
			StageFlags:         vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			PImmutableSamplers: nil,
		},
		{
			Binding:            1,
			DescriptorType:     vk.DescriptorTypeUniformBuffer,
			DescriptorCount:    1,
			StageFlags:         vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			PImmutableSamplers: nil,
		},
	}
}

// presentBindings matches present.wgsl: a separate texture and sampler instead of a combined image sampler.
func presentBindings() []vk.DescriptorSetLayoutBinding {
	return []vk.DescriptorSetLayoutBinding{
		{
			Binding:            0,
			DescriptorType:     vk.DescriptorTypeSampledImage,
			DescriptorCount:    1,
			StageFlags:         vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			PImmutableSamplers: nil,
		},
		{
			Binding:            1,
			DescriptorType:     vk.DescriptorTypeSampler,
			DescriptorCount:    1,
			StageFlags:         vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			PImmutableSamplers: nil,
		},
	}
}

func (dp *DescriptorProvisioner) Layout() vk.DescriptorSetLayout {
	return dp.descriptorSetLayout
}

func (dp *DescriptorProvisioner) Set(i int) vk.DescriptorSet {
	return dp.descriptorSets[i]
}

func (dp *DescriptorProvisioner) Len() int {
	return len(dp.descriptorSets)
}

// allocDescriptorSets Allocates a list of descriptor sets of given layout from the provisioner's pool
func (dp *DescriptorProvisioner) allocDescriptorSets(layouts []vk.DescriptorSetLayout) ([]vk.DescriptorSet, error) {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		PNext:              nil,
		DescriptorPool:     dp.descriptorPool,
		DescriptorSetCount: uint32(len(layouts)),
		PSetLayouts:        layouts,
	}
	sets, err := com.VkAllocateDescriptorSets(dp.device, &allocInfo)
	if err != nil {
		return nil, errors.Wrapf(err, "allocate %d descriptor sets", len(layouts))
	}
	return sets, nil
}

func (dp *DescriptorProvisioner) createDescriptorSetLayout(bindings []vk.DescriptorSetLayoutBinding) error {
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		PNext:        nil,
		Flags:        0,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	dsl, err := com.VkCreateDescriptorSetLayout(dp.device, &layoutInfo, nil)
	if err != nil {
		return errors.Wrap(err, "create descriptor set layout")
	}
	dp.descriptorSetLayout = dsl
	return nil
}

// createDescriptorPool sizes the pool so every set can hold one descriptor per binding.
func (dp *DescriptorProvisioner) createDescriptorPool(bindings []vk.DescriptorSetLayoutBinding, count uint32) error {
	poolSizes := make([]vk.DescriptorPoolSize, 0, len(bindings))
	for _, b := range bindings {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            b.DescriptorType,
			DescriptorCount: b.DescriptorCount * count,
		})
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PNext:         nil,
		Flags:         0,
		MaxSets:       count,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	pool, err := com.VkCreateDescriptorPool(dp.device, &poolInfo, nil)
	if err != nil {
		return errors.Wrap(err, "create descriptor pool")
	}
	dp.descriptorPool = pool
	log.Printf("Successfully created descriptor pool for %d sets", count)
	return nil
}

// WriteCompute points set i at the render target and a parameter block buffer.
func (dp *DescriptorProvisioner) WriteCompute(i int, target vk.ImageView, ubo *com.Buffer) {
	targetInfo := vk.DescriptorImageInfo{
		Sampler:     nil,
		ImageView:   target,
		ImageLayout: vk.ImageLayoutGeneral,
	}
	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: ubo.Handle,
		Offset: 0,
		Range:  ubo.Size,
	}
	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			PNext:           nil,
			DstSet:          dp.descriptorSets[i],
			DstBinding:      0,
			DstArrayElement: 0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageImage,
			PImageInfo:      []vk.DescriptorImageInfo{targetInfo},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			PNext:           nil,
			DstSet:          dp.descriptorSets[i],
			DstBinding:      1,
			DstArrayElement: 0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
		},
	}
	vk.UpdateDescriptorSets(dp.device, uint32(len(writes)), writes, 0, nil)
}

// WritePresent points set i at the render target in its shader read layout and the sampler used to read it.
func (dp *DescriptorProvisioner) WritePresent(i int, target vk.ImageView, sampler vk.Sampler) {
	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			PNext:           nil,
			DstSet:          dp.descriptorSets[i],
			DstBinding:      0,
			DstArrayElement: 0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeSampledImage,
			PImageInfo: []vk.DescriptorImageInfo{{
				ImageView:   target,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			PNext:           nil,
			DstSet:          dp.descriptorSets[i],
			DstBinding:      1,
			DstArrayElement: 0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeSampler,
			PImageInfo: []vk.DescriptorImageInfo{{
				Sampler: sampler,
			}},
		},
	}
	vk.UpdateDescriptorSets(dp.device, uint32(len(writes)), writes, 0, nil)
}

// Destroy frees the pool, which implicitly frees its sets, and the layout.
func (dp *DescriptorProvisioner) Destroy() {
	if dp.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(dp.device, dp.descriptorPool, nil)
		dp.descriptorPool = vk.NullDescriptorPool
	}
	if dp.descriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(dp.device, dp.descriptorSetLayout, nil)
		dp.descriptorSetLayout = vk.NullDescriptorSetLayout
	}
	dp.descriptorSets = nil
}
