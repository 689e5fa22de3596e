package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy2d/common"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/shader"

	"github.com/cogentcore/webgpu/wgpu"
)

// Key identifies a render pipeline: the primitive family it draws, its blend mode and the format of
// the color target it writes.
type Key struct {
	Kind   batch.Kind
	Mode   common.BlendMode
	Format wgpu.TextureFormat
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Kind, k.Mode, k.Format)
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	key    Key
	shader shader.Shader

	// renderPipeline is nil until the backend creates it.
	renderPipeline *wgpu.RenderPipeline

	blendEnabled bool
	blendState   *wgpu.BlendState
	cullMode     wgpu.CullMode
	topology     wgpu.PrimitiveTopology
	frontFace    wgpu.FrontFace
	writeMask    wgpu.ColorWriteMask
}

// Pipeline describes a render pipeline and holds the GPU object once the backend has created it.
type Pipeline interface {
	// Key returns the key the pipeline is cached under.
	//
	// Returns:
	//   - Key: the pipeline key
	Key() Key

	// Shader returns the shader module both stages come from.
	//
	// Returns:
	//   - shader.Shader: the shader
	Shader() shader.Shader

	// Pipeline returns the GPU pipeline, or nil before SetRenderPipeline.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the pipeline
	Pipeline() *wgpu.RenderPipeline

	// BlendEnabled returns whether the color target blends.
	//
	// Returns:
	//   - bool: true if blending is enabled
	BlendEnabled() bool

	// BlendState returns the blend state, nil when blending is disabled.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state
	BlendState() *wgpu.BlendState

	// CullMode returns the face culling mode.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the topology
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order.
	//
	// Returns:
	//   - wgpu.FrontFace: the winding order
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the write mask
	WriteMask() wgpu.ColorWriteMask

	// SetRenderPipeline stores the created GPU pipeline.
	//
	// Parameters:
	//   - p: the GPU pipeline
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// Release frees the GPU pipeline.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline describes the pipeline for key drawn with s. The blend state defaults to the one of
// key.Mode. 2D geometry is never culled since transforms may mirror it.
//
// Parameters:
//   - key: the pipeline key
//   - s: the shader providing both stages
//   - opts: functional options overriding the defaults
//
// Returns:
//   - Pipeline: the pipeline description
//   - error: error if the kind cannot be drawn with the mode
func NewPipeline(key Key, s shader.Shader, opts ...PipelineBuilderOption) (Pipeline, error) {
	if !Supports(key.Kind, key.Mode) {
		return nil, fmt.Errorf("%s cannot be drawn with blend mode %s", key.Kind, key.Mode)
	}
	state := BlendStateFor(key.Mode)
	p := &pipeline{
		key:          key,
		shader:       s,
		blendEnabled: state != nil,
		blendState:   state,
		cullMode:     wgpu.CullModeNone,
		topology:     wgpu.PrimitiveTopologyTriangleList,
		frontFace:    wgpu.FrontFaceCCW,
		writeMask:    wgpu.ColorWriteMaskAll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Supports reports whether a primitive family has a pipeline for a blend mode. Plain vertices use
// every regular mode, sliders and flashlights only their own mode. BlendNone is the fallback every
// family supports.
//
// Parameters:
//   - kind: the primitive family
//   - mode: the blend mode
//
// Returns:
//   - bool: true if the pipeline exists
func Supports(kind batch.Kind, mode common.BlendMode) bool {
	if mode == common.BlendNone {
		return true
	}
	switch kind {
	case batch.KindVertex:
		return mode <= common.BlendNone
	case batch.KindSlider:
		return mode == common.BlendSlider
	case batch.KindFlashlight:
		return mode == common.BlendFlashlight
	default:
		return false
	}
}

// BlendStateFor returns the blend state of a mode, nil for BlendNone and unknown modes. The slider
// and flashlight modes blend like BlendAlpha.
//
// Parameters:
//   - mode: the blend mode
//
// Returns:
//   - *wgpu.BlendState: the blend state
func BlendStateFor(mode common.BlendMode) *wgpu.BlendState {
	over := wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	}
	keep := wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorZero,
		DstFactor: wgpu.BlendFactorOne,
		Operation: wgpu.BlendOperationAdd,
	}
	straight := wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	}

	switch mode {
	case common.BlendAlpha, common.BlendSlider, common.BlendFlashlight:
		return &wgpu.BlendState{Color: straight, Alpha: over}
	case common.BlendAlphaOverwrite:
		return &wgpu.BlendState{
			Color: straight,
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorZero,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	case common.BlendPremultiplied:
		return &wgpu.BlendState{Color: over, Alpha: over}
	case common.BlendAdditive:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: keep,
		}
	case common.BlendSourceAlpha:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorZero,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: keep,
		}
	default:
		return nil
	}
}

func (p *pipeline) Key() Key {
	return p.key
}

func (p *pipeline) Shader() shader.Shader {
	return p.shader
}

func (p *pipeline) Pipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	if !p.blendEnabled {
		return nil
	}
	return p.blendState
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
}
