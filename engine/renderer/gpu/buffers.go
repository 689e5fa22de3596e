package gpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy2d/engine/renderer"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy2d/engine/renderer/bind_group_provider"

	"github.com/cogentcore/webgpu/wgpu"
)

// indexSize is the byte size of one uint32 index.
const indexSize = 4

// gpuBuffer is the buffer set of one batch: vertex and index buffers plus, for kinds with storage arrays,
// the object bind group and its buffers.
type gpuBuffer struct {
	kind     batch.Kind
	provider bind_group_provider.BindGroupProvider
}

func (g *gpuBuffer) Release() {
	g.provider.Release()
}

// NewBuffer panics when the device cannot allocate, matching the other GPU creation paths.
func (b *Backend) NewBuffer(kind batch.Kind, capacity batch.Usage) renderer.GPUBuffer {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, ok := b.families[kind]
	if !ok {
		panic(fmt.Sprintf("no shader for %s buffers", kind))
	}
	b.bufferSeq++
	label := fmt.Sprintf("%s %d", kind, b.bufferSeq)

	vb, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Vertex Buffer",
		Size:  bufferSize(capacity.Vertices, f.vertexStride),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	ib, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Index Buffer",
		Size:  bufferSize(capacity.Indices, indexSize),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		vb.Release()
		panic(err)
	}
	provider := bind_group_provider.NewBindGroupProvider(label,
		bind_group_provider.WithBuffer(bind_group_provider.BindingVertex, vb),
		bind_group_provider.WithBuffer(bind_group_provider.BindingIndex, ib),
	)

	if f.objectLayout != nil {
		sizes := make(map[int]uint64, len(f.strides))
		for res, binding := range f.bindings {
			if stride, ok := f.strides[binding]; ok {
				sizes[binding] = bufferSize(count(capacity, res), stride)
			}
		}
		if err := b.createBindGroup(provider, f.objectLayout, f.objectDescriptor, sizes); err != nil {
			panic(err)
		}
	}

	logger.Debugf("created %s buffer %s", kind, provider.Label())
	return &gpuBuffer{kind: kind, provider: provider}
}

func (b *Backend) Upload(buf renderer.GPUBuffer, regions []batch.Region) {
	g, ok := buf.(*gpuBuffer)
	if !ok {
		logger.Errorf("upload into foreign buffer %T", buf)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	f := b.families[g.kind]
	writes := make([]bind_group_provider.BufferWrite, 0, len(regions))
	for _, r := range regions {
		binding, ok := f.bindings[r.Resource]
		if !ok {
			logger.Warningf("%s buffers have no binding for resource %d", g.kind, r.Resource)
			continue
		}
		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: g.provider,
			Binding:  binding,
			Data:     r.Data,
		})
	}
	b.writeBuffers(writes)
}

func (b *Backend) writeBuffers(writes []bind_group_provider.BufferWrite) {
	for _, w := range writes {
		if !w.Valid() {
			continue
		}
		if err := b.queue.WriteBuffer(w.Provider.Buffer(w.Binding), w.Offset, w.Data); err != nil {
			logger.Errorf("write %s binding %d: %v", w.Provider.Label(), w.Binding, err)
		}
	}
}

// bufferSize is the byte size of n elements of stride bytes. Empty buffers still get one element since
// zero sized bindings are invalid.
func bufferSize(n int, stride uint64) uint64 {
	return uint64(max(n, 1)) * stride
}

func count(u batch.Usage, r batch.Resource) int {
	switch r {
	case batch.ResourceVertices:
		return u.Vertices
	case batch.ResourceIndices:
		return u.Indices
	case batch.ResourceObjects:
		return u.Objects
	case batch.ResourceCells:
		return u.Cells
	case batch.ResourceSegments:
		return u.Segments
	default:
		return 0
	}
}
