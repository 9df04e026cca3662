package renderer

import (
	"log"

	com "julia_explorer/common"
	"julia_explorer/renderer/shaders"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// LoadCompute wraps SPIR-V words containing the escape time kernel into a shader module for a compute pipeline. For
// this, the shader module and its vk.PipelineShaderStageCreateInfo are returned.
func LoadCompute(d vk.Device, words []uint32) (vk.ShaderModule, vk.PipelineShaderStageCreateInfo, error) {
	return loadStage(d, words, vk.ShaderStageComputeBit, shaders.ComputeEntry)
}

// LoadVert wraps SPIR-V words with a vertex entry point for use in the presentation pipeline.
func LoadVert(d vk.Device, words []uint32) (vk.ShaderModule, vk.PipelineShaderStageCreateInfo, error) {
	return loadStage(d, words, vk.ShaderStageVertexBit, shaders.VertexEntry)
}

// LoadFrag wraps SPIR-V words with a fragment entry point for use in the presentation pipeline.
func LoadFrag(d vk.Device, words []uint32) (vk.ShaderModule, vk.PipelineShaderStageCreateInfo, error) {
	return loadStage(d, words, vk.ShaderStageFragmentBit, shaders.FragmentEntry)
}

// DeleteShaderMod discards a shader module. As vk.ShaderModule is only meant as a container to move the shader code
// onto device memory, it can be destroyed right after creating a shader stage when binding to a rendering pipeline.
func DeleteShaderMod(d vk.Device, mod vk.ShaderModule) {
	vk.DestroyShaderModule(d, mod, nil)
}

// computeWords picks the kernel: the override file if one is configured, the embedded one otherwise.
func computeWords(overridePath string) ([]uint32, error) {
	if overridePath == "" {
		return shaders.Julia()
	}
	return shaders.Load(overridePath)
}

func loadStage(d vk.Device, words []uint32, stage vk.ShaderStageFlagBits, entry string) (vk.ShaderModule, vk.PipelineShaderStageCreateInfo, error) {
	mod, err := com.VKSCreateShaderModule(d, words)
	if err != nil {
		return nil, vk.PipelineShaderStageCreateInfo{}, errors.Wrapf(err, "create shader module for entry point %q", entry[:len(entry)-1])
	}
	log.Printf("Created shader module %v (%d words)", mod, len(words))

	stageInfo := vk.PipelineShaderStageCreateInfo{
		SType:               vk.StructureTypePipelineShaderStageCreateInfo,
		PNext:               nil,
		Flags:               0,
		Stage:               stage,
		Module:              mod,
		PName:               entry, // entrypoint -> function name in the shader
		PSpecializationInfo: nil,
	}
	return mod, stageInfo, nil
}
