package shader

import (
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslPrimitiveLayoutMap maps scalar, vector and matrix types to their size and alignment.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"bool": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},

	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},

	"mat3x3<f32>": {48, 16},
	"mat4x4<f32>": {64, 16},
}

// roundUpAlign rounds value up to a multiple of the power of two alignment.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// resolveTypeLayout resolves a type to its size and alignment. A runtime-sized array resolves to one
// element stride, the smallest useful binding.
//
// Parameters:
//   - typeName: the WGSL type, e.g. "u32", "SliderData" or "array<GridCell>"
//   - knownTypes: already resolved struct layouts
//
// Returns:
//   - wgslTypeLayout: the layout
//   - bool: false for unknown types
func resolveTypeLayout(typeName string, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if layout, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return layout, true
	}
	if layout, ok := knownTypes[typeName]; ok {
		return layout, true
	}

	inner, ok := strings.CutPrefix(typeName, "array<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return wgslTypeLayout{}, false
	}
	parts := strings.SplitN(strings.TrimSuffix(inner, ">"), ",", 2)
	elem, ok := resolveTypeLayout(strings.TrimSpace(parts[0]), knownTypes)
	if !ok {
		return wgslTypeLayout{}, false
	}
	stride := roundUpAlign(elem.align, elem.size)
	if len(parts) == 1 {
		return wgslTypeLayout{stride, elem.align}, true
	}
	count, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return wgslTypeLayout{}, false
	}
	return wgslTypeLayout{count * stride, elem.align}, true
}

// computeStructLayout lays out a struct's fields at aligned offsets and rounds the total size up to
// the largest field alignment. Builtin fields are not part of memory layouts and are skipped.
func computeStructLayout(ps parsedStruct, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	var offset uint64
	maxAlign := uint64(1)
	for _, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		layout, ok := resolveTypeLayout(f.typeName, knownTypes)
		if !ok {
			return wgslTypeLayout{}, false
		}
		offset = roundUpAlign(layout.align, offset) + layout.size
		maxAlign = max(maxAlign, layout.align)
	}
	return wgslTypeLayout{roundUpAlign(maxAlign, offset), maxAlign}, true
}

// computeStructSizes resolves every struct, repeating until structs nested in others resolve.
func computeStructSizes(structs []parsedStruct) map[string]wgslTypeLayout {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)
	for len(remaining) > 0 {
		next := remaining[:0]
		for _, ps := range remaining {
			if layout, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = layout
			} else {
				next = append(next, ps)
			}
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	return resolved
}

// classifyResource builds the layout entry of one declaration from its address space and type.
//
// Parameters:
//   - binding: the @binding index
//   - visibility: the stages that see the binding
//   - addressSpace: "uniform", "storage, read" and so on, or empty for handle types
//   - typeName: the declared type
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the populated entry
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		if strings.Contains(addressSpace, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		}
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case strings.HasPrefix(typeName, "texture_"):
		base, param := splitTypeParams(typeName)
		entry.Texture.ViewDimension = wgslTextureDimMap[base]
		entry.Texture.SampleType = wgslSampleTypeMap[param]
	}
	return entry
}

// splitTypeParams splits "texture_2d_array<f32>" into "texture_2d_array" and "f32".
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

// stripComments removes line comments and nested block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch {
			case source[i] == '/' && source[i+1] == '*':
				depth++
				i++
				continue
			case source[i] == '*' && source[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			case source[i] == '/' && source[i+1] == '/' && depth == 0:
				for i < len(source) && source[i] != '\n' {
					i++
				}
				if i < len(source) {
					sb.WriteByte('\n')
				}
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// isVertexInputStruct reports whether ps has @location fields and no @builtin field, which sets
// vertex inputs apart from stage outputs carrying @builtin(position).
func isVertexInputStruct(ps parsedStruct) bool {
	hasLocation := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		if f.location >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}

// buildVertexBufferLayout packs the fields of a vertex input struct tightly in declaration order.
func buildVertexBufferLayout(ps parsedStruct) (wgpu.VertexBufferLayout, bool) {
	attrs := make([]wgpu.VertexAttribute, 0, len(ps.fields))
	var offset uint64
	for _, f := range ps.fields {
		info, ok := wgslVertexFormatMap[f.typeName]
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         info.format,
			Offset:         offset,
			ShaderLocation: uint32(f.location),
		})
		offset += info.size
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, true
}

// splitAtTopLevelCommas splits at commas outside angle brackets, keeping array<T, N> whole.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
