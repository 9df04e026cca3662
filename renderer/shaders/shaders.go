// Package shaders holds the WGSL sources of the render core and turns them into SPIR-V words for Vulkan.
package shaders

import (
	_ "embed"
	"encoding/binary"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"
	"github.com/pkg/errors"
)

//go:embed julia.wgsl
var juliaSource string

//go:embed present.wgsl
var presentSource string

// SpirvMagic is the first word of every SPIR-V module.
const SpirvMagic = 0x07230203

// WorkGroupSize is the edge length of the compute kernel's square work group, see @workgroup_size in julia.wgsl.
const WorkGroupSize = 8

// Entry points, terminated for vk.PipelineShaderStageCreateInfo.
const (
	ComputeEntry  = "main\x00"
	VertexEntry   = "vs_main\x00"
	FragmentEntry = "fs_main\x00"
)

// Julia compiles the embedded escape time kernel.
func Julia() ([]uint32, error) {
	return compile("julia.wgsl", juliaSource)
}

// Present compiles the embedded fullscreen blit, vertex and fragment stage live in the same module.
func Present() ([]uint32, error) {
	return compile("present.wgsl", presentSource)
}

// Load reads a compute kernel override from disk. Precompiled '.spv' modules are used as is, anything else is
// compiled as WGSL. The override has to keep the bindings and the Params layout of julia.wgsl.
func Load(path string) ([]uint32, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader file '%s'", path)
	}
	log.Printf("Read shader file (%s) of size: %dByte", path, len(code))
	if strings.EqualFold(filepath.Ext(path), ".spv") {
		return Words(code)
	}
	return compile(filepath.Base(path), string(code))
}

// WorkGroups is the dispatch size covering a w x h image, rounded up to whole work groups.
func WorkGroups(w uint32, h uint32) (uint32, uint32) {
	return (w + WorkGroupSize - 1) / WorkGroupSize, (h + WorkGroupSize - 1) / WorkGroupSize
}

// Words turns SPIR-V bytes into the word slice vk.ShaderModuleCreateInfo expects. The bytes are little-endian
// as produced by naga and glslc. Byte swapped modules are rejected by checking the magic number.
func Words(code []byte) ([]uint32, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.Errorf("SPIR-V size %d is not a positive multiple of 4", len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	if words[0] != SpirvMagic {
		return nil, errors.Errorf("bad SPIR-V magic number 0x%08x", words[0])
	}
	return words, nil
}

func compile(name string, source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, errors.Wrapf(err, "compile %s", name)
	}
	log.Printf("Compiled %s to %d bytes of SPIR-V", name, len(spirvBytes))
	return Words(spirvBytes)
}
