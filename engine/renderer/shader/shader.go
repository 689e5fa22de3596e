package shader

import (
	"embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies a shader stage.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex stage.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment stage.
	ShaderTypeFragment
)

//go:embed assets/vertex.wgsl assets/slider.wgsl assets/flashlight.wgsl
var builtinSources embed.FS

// builtinFiles names the embedded shader of every primitive family.
var builtinFiles = map[batch.Kind]string{
	batch.KindVertex:     "assets/vertex.wgsl",
	batch.KindSlider:     "assets/slider.wgsl",
	batch.KindFlashlight: "assets/flashlight.wgsl",
}

type shader struct {
	key                        string
	source                     string
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexLayouts              []wgpu.VertexBufferLayout
	entryPoints                map[ShaderType]string
	declarations               []Annotation
	module                     *wgpu.ShaderModuleDescriptor
}

// Shader is a pre-processed WGSL module holding both a vertex and a fragment entry point, along with
// the layouts parsed from its source that pipeline creation needs.
type Shader interface {
	// Key returns the unique identifier of the shader.
	//
	// Returns:
	//   - string: the shader key
	Key() string

	// Source returns the pre-processed WGSL source.
	//
	// Returns:
	//   - string: the WGSL source
	Source() string

	// EntryPoint returns the entry point function of a stage.
	//
	// Parameters:
	//   - stage: the shader stage
	//
	// Returns:
	//   - string: the function name, empty if the stage has none
	EntryPoint(stage ShaderType) string

	// VertexLayouts returns the vertex buffer layouts parsed from the vertex input structs.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the layouts in buffer slot order
	VertexLayouts() []wgpu.VertexBufferLayout

	// BindGroupLayoutDescriptors returns the bind group layouts keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: the layouts
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName returns the WGSL variable bound at a group and binding.
	//
	// Parameters:
	//   - group: the group index
	//   - binding: the binding index
	//
	// Returns:
	//   - string: the variable name, empty if nothing is bound there
	BindGroupVarName(group, binding int) string

	// Declarations returns the binding annotations found in the source.
	//
	// Returns:
	//   - []Annotation: the group annotations in source order
	Declarations() []Annotation

	// Module returns the descriptor to create the GPU shader module from.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the module descriptor
	Module() *wgpu.ShaderModuleDescriptor
}

var _ Shader = &shader{}

// NewShader pre-processes and parses WGSL source.
//
// Parameters:
//   - key: a unique identifier, used as the module label
//   - source: WGSL source, possibly containing @oxy: annotations
//
// Returns:
//   - Shader: the parsed shader
//   - error: error if pre-processing fails or an entry point is missing
func NewShader(key, source string) (Shader, error) {
	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}

	s := &shader{
		key:    key,
		source: processed,
		entryPoints: map[ShaderType]string{
			ShaderTypeVertex:   parseEntryPoint(processed, ShaderTypeVertex),
			ShaderTypeFragment: parseEntryPoint(processed, ShaderTypeFragment),
		},
		vertexLayouts: parseVertexLayouts(processed),
		declarations:  append([]Annotation(nil), pp.Declarations()...),
		module: &wgpu.ShaderModuleDescriptor{
			Label:          key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: processed},
		},
	}
	for stage, name := range s.entryPoints {
		if name == "" {
			return nil, fmt.Errorf("shader %s: no %s entry point", key, stage)
		}
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(processed, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)
	return s, nil
}

// Builtin returns the embedded shader drawing a primitive family.
//
// Parameters:
//   - kind: the primitive family
//
// Returns:
//   - Shader: the parsed shader
//   - error: error for an unknown kind or a broken embedded source
func Builtin(kind batch.Kind) (Shader, error) {
	name, ok := builtinFiles[kind]
	if !ok {
		return nil, fmt.Errorf("no builtin shader for %s", kind)
	}
	data, err := builtinSources.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return NewShader(kind.String(), string(data))
}

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint(stage ShaderType) string {
	return s.entryPoints[stage]
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	return s.bindingVarNames[group][binding]
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}
