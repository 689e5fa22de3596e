package gpu

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/shader"

	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// frameGroup holds the globals, the atlas and its sampler, shared by every family.
	frameGroup = 0
	// objectGroup holds the per-buffer storage arrays of sliders and flashlights.
	objectGroup = 1
)

// family is everything the backend needs to draw one batch kind.
type family struct {
	kind   batch.Kind
	shader shader.Shader
	module *wgpu.ShaderModule

	// objectLayout is nil for kinds without storage arrays.
	objectLayout     *wgpu.BindGroupLayout
	objectDescriptor wgpu.BindGroupLayoutDescriptor
	pipelineLayout   *wgpu.PipelineLayout

	vertexStride uint64
	// bindings maps every sub-resource to its provider binding.
	bindings map[batch.Resource]int
	// strides holds the element size of every storage binding.
	strides map[int]uint64
}

func (f *family) release() {
	if f.pipelineLayout != nil {
		f.pipelineLayout.Release()
	}
	if f.objectLayout != nil {
		f.objectLayout.Release()
	}
	if f.module != nil {
		f.module.Release()
	}
}

// initFamilies compiles the built-in shaders and creates the layouts they share. Group 0 is created
// once from the first family since every built-in shader declares it identically.
func (b *Backend) initFamilies() error {
	for _, kind := range []batch.Kind{batch.KindVertex, batch.KindSlider, batch.KindFlashlight} {
		s, err := shader.Builtin(kind)
		if err != nil {
			return err
		}
		f, err := b.newFamily(kind, s)
		if err != nil {
			return fmt.Errorf("%s shader: %w", kind, err)
		}
		b.families[kind] = f
	}
	return nil
}

func (b *Backend) newFamily(kind batch.Kind, s shader.Shader) (*family, error) {
	descriptors := s.BindGroupLayoutDescriptors()
	frameDesc, ok := descriptors[frameGroup]
	if !ok {
		return nil, errors.New("no frame bind group")
	}
	if b.frameLayout == nil {
		frameDesc.Label = "Frame Bind Group Layout"
		layout, err := b.device.CreateBindGroupLayout(&frameDesc)
		if err != nil {
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", frameGroup, err)
		}
		b.frameLayout = layout
		b.frameDescriptor = frameDesc
	}

	layouts := s.VertexLayouts()
	if len(layouts) != 1 {
		return nil, fmt.Errorf("expected one vertex buffer layout; got %d", len(layouts))
	}

	module, err := b.device.CreateShaderModule(s.Module())
	if err != nil {
		return nil, err
	}
	f := &family{
		kind:         kind,
		shader:       s,
		module:       module,
		vertexStride: layouts[0].ArrayStride,
		bindings: map[batch.Resource]int{
			batch.ResourceVertices: bind_group_provider.BindingVertex,
			batch.ResourceIndices:  bind_group_provider.BindingIndex,
		},
		strides: make(map[int]uint64),
	}

	bindGroupLayouts := []*wgpu.BindGroupLayout{b.frameLayout}
	if desc, ok := descriptors[objectGroup]; ok {
		desc.Label = kind.String() + " Object Bind Group Layout"
		sort.Slice(desc.Entries, func(i, j int) bool {
			return desc.Entries[i].Binding < desc.Entries[j].Binding
		})
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			f.release()
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", objectGroup, err)
		}
		f.objectLayout = layout
		f.objectDescriptor = desc
		bindGroupLayouts = append(bindGroupLayouts, layout)

		for _, entry := range desc.Entries {
			f.strides[int(entry.Binding)] = entry.Buffer.MinBindingSize
		}
		for _, a := range s.Declarations() {
			if a.Group == nil || a.Binding == nil || *a.Group != objectGroup {
				continue
			}
			st, _ := a.StructType()
			res, ok := resourceFor(st)
			if !ok {
				f.release()
				return nil, fmt.Errorf("binding %d holds %s, which no buffer resource provides", *a.Binding, st)
			}
			f.bindings[res] = *a.Binding
		}
	}

	f.pipelineLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            kind.String() + " Pipeline Layout",
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		f.release()
		return nil, err
	}
	return f, nil
}

// resourceFor maps the struct type of a storage binding to the buffer resource it is filled from.
func resourceFor(st shader.AnnotationArg) (batch.Resource, bool) {
	switch st {
	case shader.AnnotationArgSliderData, shader.AnnotationArgFlashlightData:
		return batch.ResourceObjects, true
	case shader.AnnotationArgGridCell:
		return batch.ResourceCells, true
	case shader.AnnotationArgLineSegment:
		return batch.ResourceSegments, true
	default:
		return 0, false
	}
}

// pipelineFor returns the cached pipeline for key, creating it on first use. Failures are cached too so
// a broken pipeline is only reported once. Callers hold b.mu.
func (b *Backend) pipelineFor(key pipeline.Key) pipeline.Pipeline {
	if p, ok := b.pipelines[key]; ok {
		return p
	}
	p, err := b.createPipeline(key)
	if err != nil {
		logger.Errorf("pipeline %s: %v", key, err)
		b.pipelines[key] = nil
		return nil
	}
	logger.Debugf("created pipeline %s", key)
	b.pipelines[key] = p
	return p
}

func (b *Backend) createPipeline(key pipeline.Key) (pipeline.Pipeline, error) {
	f, ok := b.families[key.Kind]
	if !ok {
		return nil, fmt.Errorf("no shader for %s", key.Kind)
	}
	p, err := pipeline.NewPipeline(key, f.shader)
	if err != nil {
		return nil, err
	}

	target := wgpu.ColorTargetState{
		Format:    key.Format,
		WriteMask: p.WriteMask(),
	}
	if p.BlendEnabled() {
		target.Blend = p.BlendState()
	}

	s := p.Shader()
	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  key.String() + " Render Pipeline",
		Layout: f.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     f.module,
			EntryPoint: s.EntryPoint(shader.ShaderTypeVertex),
			Buffers:    s.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     f.module,
			EntryPoint: s.EntryPoint(shader.ShaderTypeFragment),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}
	p.SetRenderPipeline(created)
	return p, nil
}

// createBindGroup creates the buffers a layout needs that the provider does not hold yet and binds them
// together with the provider's texture views and samplers. sizes overrides the minimum binding size of
// buffers, which for storage arrays is a single element.
func (b *Backend) createBindGroup(provider bind_group_provider.BindGroupProvider, layout *wgpu.BindGroupLayout, descriptor wgpu.BindGroupLayoutDescriptor, sizes map[int]uint64) error {
	entries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined
		isSampler := entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined

		switch {
		case isTexture:
			tv := provider.TextureView(binding)
			if tv == nil {
				return fmt.Errorf("texture binding %d has no texture view", binding)
			}
			entries[i] = wgpu.BindGroupEntry{Binding: entry.Binding, TextureView: tv}
		case isSampler:
			samp := provider.Sampler(binding)
			if samp == nil {
				return fmt.Errorf("sampler binding %d has no sampler", binding)
			}
			entries[i] = wgpu.BindGroupEntry{Binding: entry.Binding, Sampler: samp}
		default:
			var usage wgpu.BufferUsage
			switch entry.Buffer.Type {
			case wgpu.BufferBindingTypeUniform:
				usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
			default:
				usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
			}

			buf := provider.Buffer(binding)
			if buf == nil {
				size := entry.Buffer.MinBindingSize
				if override, ok := sizes[binding]; ok {
					size = override
				}
				var err error
				buf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
					Label: fmt.Sprintf("%s Buffer %d", provider.Label(), binding),
					Size:  size,
					Usage: usage,
				})
				if err != nil {
					return err
				}
				provider.SetBuffer(binding, buf)
			}
			entries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)
	return nil
}
