package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithTextureView seeds a borrowed texture view at a binding.
//
// Parameters:
//   - binding: the binding index
//   - tv: the texture view
//
// Returns:
//   - BindGroupProviderOption: a function that sets the texture view for the binding
func WithTextureView(binding int, tv *wgpu.TextureView) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.textureViews[binding] = tv
	}
}

// WithSampler seeds a borrowed sampler at a binding.
//
// Parameters:
//   - binding: the binding index
//   - s: the sampler
//
// Returns:
//   - BindGroupProviderOption: a function that sets the sampler for the binding
func WithSampler(binding int, s *wgpu.Sampler) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.samplers[binding] = s
	}
}

// WithBuffer seeds an owned buffer at a binding. BindingVertex and BindingIndex set the vertex and
// index buffers.
//
// Parameters:
//   - binding: the binding index
//   - buf: the buffer
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the binding
func WithBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.SetBuffer(binding, buf)
	}
}
