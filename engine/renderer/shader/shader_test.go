package shader

import (
	"strings"
	"testing"
	"unsafe"

	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestBuiltinVertexLayoutsMatchGoTypes(t *testing.T) {
	tests := []struct {
		kind   batch.Kind
		stride uint64
		attrs  int
	}{
		{batch.KindVertex, uint64(unsafe.Sizeof(batch.Vertex{})), 3},
		{batch.KindSlider, uint64(unsafe.Sizeof(batch.SliderVertex{})), 3},
		{batch.KindFlashlight, uint64(unsafe.Sizeof(batch.FlashlightVertex{})), 3},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			s, err := Builtin(tt.kind)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			layouts := s.VertexLayouts()
			if len(layouts) != 1 {
				t.Fatalf("expected 1 vertex layout; got %d", len(layouts))
			}
			if layouts[0].ArrayStride != tt.stride {
				t.Fatalf("expected stride %d; got %d", tt.stride, layouts[0].ArrayStride)
			}
			if len(layouts[0].Attributes) != tt.attrs {
				t.Fatalf("expected %d attributes; got %d", tt.attrs, len(layouts[0].Attributes))
			}
			if s.EntryPoint(ShaderTypeVertex) != "vs_main" || s.EntryPoint(ShaderTypeFragment) != "fs_main" {
				t.Fatalf("expected vs_main and fs_main; got %q and %q", s.EntryPoint(ShaderTypeVertex), s.EntryPoint(ShaderTypeFragment))
			}
		})
	}
}

func TestBuiltinFrameGroupIsShared(t *testing.T) {
	var first wgpu.BindGroupLayoutDescriptor
	for i, kind := range []batch.Kind{batch.KindVertex, batch.KindSlider, batch.KindFlashlight} {
		s, err := Builtin(kind)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		desc, ok := s.BindGroupLayoutDescriptors()[0]
		if !ok || len(desc.Entries) != 3 {
			t.Fatalf("expected 3 entries in group 0 of %s; got %+v", kind, desc)
		}
		if desc.Entries[0].Buffer.Type != wgpu.BufferBindingTypeUniform || desc.Entries[0].Buffer.MinBindingSize != uint64(unsafe.Sizeof(Globals{})) {
			t.Fatalf("expected a %d byte uniform at binding 0; got %+v", unsafe.Sizeof(Globals{}), desc.Entries[0].Buffer)
		}
		if desc.Entries[1].Texture.ViewDimension != wgpu.TextureViewDimension2DArray || desc.Entries[1].Texture.SampleType != wgpu.TextureSampleTypeFloat {
			t.Fatalf("expected a float 2d array texture at binding 1; got %+v", desc.Entries[1].Texture)
		}
		if desc.Entries[2].Sampler.Type != wgpu.SamplerBindingTypeFiltering {
			t.Fatalf("expected a filtering sampler at binding 2; got %+v", desc.Entries[2].Sampler)
		}
		if i == 0 {
			first = desc
			continue
		}
		for j := range desc.Entries {
			if desc.Entries[j] != first.Entries[j] {
				t.Fatalf("expected group 0 of %s to match the vertex shader; got %+v", kind, desc.Entries[j])
			}
		}
	}
}

func TestSliderStorageBindings(t *testing.T) {
	s, err := Builtin(batch.KindSlider)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	desc := s.BindGroupLayoutDescriptors()[1]
	want := []uint64{
		uint64(unsafe.Sizeof(batch.SliderData{})),
		uint64(unsafe.Sizeof(batch.GridCell{})),
		uint64(unsafe.Sizeof(batch.LineSegment{})),
	}
	if len(desc.Entries) != len(want) {
		t.Fatalf("expected %d entries in group 1; got %d", len(want), len(desc.Entries))
	}
	for i, size := range want {
		e := desc.Entries[i]
		if e.Buffer.Type != wgpu.BufferBindingTypeReadOnlyStorage || e.Buffer.MinBindingSize != size {
			t.Fatalf("expected read-only storage of %d bytes at binding %d; got %+v", size, i, e.Buffer)
		}
	}
	if s.BindGroupVarName(1, 2) != "segments" {
		t.Fatalf("expected segments at group 1 binding 2; got %q", s.BindGroupVarName(1, 2))
	}

	var types []AnnotationArg
	for _, d := range s.Declarations() {
		if st, isArray := d.StructType(); isArray {
			types = append(types, st)
		}
	}
	if len(types) != 3 || types[0] != AnnotationArgSliderData || types[1] != AnnotationArgGridCell || types[2] != AnnotationArgLineSegment {
		t.Fatalf("expected slider_data, grid_cell and line_segment arrays; got %v", types)
	}
}

func TestFlashlightDataSize(t *testing.T) {
	s, err := Builtin(batch.KindFlashlight)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := s.BindGroupLayoutDescriptors()[1].Entries[0]
	if e.Buffer.MinBindingSize != uint64(unsafe.Sizeof(batch.FlashlightData{})) {
		t.Fatalf("expected %d bytes per mask; got %d", unsafe.Sizeof(batch.FlashlightData{}), e.Buffer.MinBindingSize)
	}
}

func TestPreProcessor(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr string
		want    string
	}{
		{
			name:   "include",
			source: "//@oxy:include grid_cell",
			want:   "struct GridCell",
		},
		{
			name:   "group array",
			source: "//@oxy:group 1 1 storage_read cells array<grid_cell>",
			want:   "@group(1) @binding(1) var<storage, read> cells: array<GridCell>;",
		},
		{
			name:   "plain lines kept",
			source: "fn f() {}",
			want:   "fn f() {}",
		},
		{
			name:    "unknown struct",
			source:  "//@oxy:include camera",
			wantErr: "unknown struct type",
		},
		{
			name:    "double include",
			source:  "//@oxy:include grid_cell\n//@oxy:include grid_cell",
			wantErr: "already included",
		},
		{
			name:    "bad binding",
			source:  "//@oxy:group 0 x storage_read cells array<grid_cell>",
			wantErr: "invalid binding",
		},
		{
			name:    "unknown type",
			source:  "//@oxy:provider 0 1 frame",
			wantErr: "unknown @oxy annotation type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewPreProcessor().Process(tt.source)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q; got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Fatalf("expected output containing %q; got %q", tt.want, out)
			}
		})
	}
}

func TestNewShaderRequiresEntryPoints(t *testing.T) {
	_, err := NewShader("broken", "@vertex fn vs() -> @builtin(position) vec4<f32> { return vec4<f32>(); }")
	if err == nil || !strings.Contains(err.Error(), "fragment") {
		t.Fatalf("expected a missing fragment entry point error; got %v", err)
	}
}

func TestStripComments(t *testing.T) {
	src := "a /* b /* nested */ c */ d // e\nf"
	if got := stripComments(src); got != "a  d \nf" {
		t.Fatalf("expected comments removed; got %q", got)
	}
}
