package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Pseudo binding indices addressing the vertex and index buffers through Buffer and BufferWrite.
const (
	BindingVertex = -1
	BindingIndex  = -2
)

type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// The following fields are GPU allocated resources owned by the provider and freed by Release.

	// bindGroup is the bind group over buffers, textureViews and samplers, or nil if not created yet.
	bindGroup *wgpu.BindGroup
	// buffers holds the storage and uniform buffers keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// textureViews holds the texture views keyed by binding index. Views are borrowed and not released.
	textureViews map[int]*wgpu.TextureView
	// samplers holds the samplers keyed by binding index. Samplers are borrowed and not released.
	samplers map[int]*wgpu.Sampler

	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
}

// BindGroupProvider holds the GPU resources behind one bind group, plus the vertex and index buffers
// drawn with it. The frame globals and every completed batch buffer are each one provider.
type BindGroupProvider interface {
	// Release frees every buffer and the bind group. Texture views and samplers are borrowed from the
	// atlas and are left alone. Calling Release twice is a no-op.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the bind group, or nil if it has not been created.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// Buffer returns the buffer at a binding. BindingVertex and BindingIndex address the vertex and
	// index buffers.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// TextureView returns the texture view at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the sampler at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// VertexBuffer returns the vertex buffer, or nil if the provider draws nothing.
	//
	// Returns:
	//   - *wgpu.Buffer: the vertex buffer or nil
	VertexBuffer() *wgpu.Buffer

	// IndexBuffer returns the index buffer, or nil if the provider draws nothing.
	//
	// Returns:
	//   - *wgpu.Buffer: the index buffer or nil
	IndexBuffer() *wgpu.Buffer

	// SetBindGroup sets the bind group, releasing the previous one.
	//
	// Parameters:
	//   - bg: the new bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBuffer sets the buffer at a binding, releasing the previous one. BindingVertex and
	// BindingIndex set the vertex and index buffers.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the new buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetTextureView sets the texture view at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the borrowed texture view
	SetTextureView(binding int, tv *wgpu.TextureView)

	// SetSampler sets the sampler at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the borrowed sampler
	SetSampler(binding int, s *wgpu.Sampler)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider with the options applied.
//
// Parameters:
//   - label: the debug label
//   - options: functional options seeding resources
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	switch binding {
	case BindingVertex:
		return p.vertexBuffer
	case BindingIndex:
		return p.indexBuffer
	default:
		return p.buffers[binding]
	}
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer {
	return p.vertexBuffer
}

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	if p.bindGroup != nil && p.bindGroup != bg {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	var slot **wgpu.Buffer
	switch binding {
	case BindingVertex:
		slot = &p.vertexBuffer
	case BindingIndex:
		slot = &p.indexBuffer
	default:
		old := p.buffers[binding]
		if old != nil && old != buf {
			old.Release()
		}
		p.buffers[binding] = buf
		return
	}
	if *slot != nil && *slot != buf {
		(*slot).Release()
	}
	*slot = buf
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	for binding, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, binding)
	}
	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
		p.vertexBuffer = nil
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}
	clear(p.textureViews)
	clear(p.samplers)
}
