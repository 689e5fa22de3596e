package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslVertexFormatMap maps WGSL vertex input types to their vertex format and byte size
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2f":     {wgpu.VertexFormatFloat32x2, 8},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f":     {wgpu.VertexFormatFloat32x3, 12},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f":     {wgpu.VertexFormatFloat32x4, 16},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"vec2u":     {wgpu.VertexFormatUint32x2, 8},
	"vec2<u32>": {wgpu.VertexFormatUint32x2, 8},
	"vec4u":     {wgpu.VertexFormatUint32x4, 16},
	"vec4<u32>": {wgpu.VertexFormatUint32x4, 16},
	"i32":       {wgpu.VertexFormatSint32, 4},
	"vec2i":     {wgpu.VertexFormatSint32x2, 8},
	"vec2<i32>": {wgpu.VertexFormatSint32x2, 8},
}

// wgslTextureDimMap maps sampled texture base names to their view dimension
var wgslTextureDimMap = map[string]wgpu.TextureViewDimension{
	"texture_2d":       wgpu.TextureViewDimension2D,
	"texture_2d_array": wgpu.TextureViewDimension2DArray,
}

// wgslSampleTypeMap maps texture scalar parameters to their sample type
var wgslSampleTypeMap = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var (
	// structBlockRegex captures the name and body of a struct declaration
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field: any attributes, then name: type
	fieldRegex = regexp.MustCompile(`(?:@\w+\([^)]*\)\s*)*(\w+)\s*:\s*(.+)`)

	vertexEntryRegex   = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, address space, name and type of a declaration like
	// @group(1) @binding(0) var<storage, read> sliders: array<SliderData>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseVertexLayouts builds one vertex buffer layout per vertex input struct, meaning a struct with
// @location fields and no @builtin field. Structs with unmapped field types are skipped.
//
// Parameters:
//   - source: the WGSL source
//
// Returns:
//   - []wgpu.VertexBufferLayout: the layouts in source order
func parseVertexLayouts(source string) []wgpu.VertexBufferLayout {
	var layouts []wgpu.VertexBufferLayout
	for _, ps := range parseStructBlocks(stripComments(source)) {
		if !isVertexInputStruct(ps) {
			continue
		}
		if layout, ok := buildVertexBufferLayout(ps); ok {
			layouts = append(layouts, layout)
		}
	}
	return layouts
}

// parseBindGroupLayouts extracts every @group(N) @binding(M) declaration and groups the layout
// entries by group index, sorted by binding. Buffer entries get MinBindingSize from the bound type.
//
// Parameters:
//   - source: the WGSL source
//   - visibility: the shader stages applied to every entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: layout descriptors keyed by group index
//   - map[int]map[int]string: variable names keyed by group and binding index
func parseBindGroupLayouts(source string, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	cleaned := stripComments(source)
	structSizes := computeStructSizes(parseStructBlocks(cleaned))

	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	names := make(map[int]map[int]string)
	for _, m := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		typeName := strings.TrimSpace(m[5])

		entry := classifyResource(uint32(binding), visibility, strings.TrimSpace(m[3]), typeName)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if layout, ok := resolveTypeLayout(typeName, structSizes); ok {
				entry.Buffer.MinBindingSize = layout.size
			}
		}
		groups[group] = append(groups[group], entry)

		if names[group] == nil {
			names[group] = make(map[int]string)
		}
		names[group][binding] = strings.TrimSpace(m[4])
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return result, names
}

// parseEntryPoint returns the name of the first function marked with the stage attribute, or empty.
//
// Parameters:
//   - source: the WGSL source
//   - stage: ShaderTypeVertex or ShaderTypeFragment
//
// Returns:
//   - string: the entry point name
func parseEntryPoint(source string, stage ShaderType) string {
	var re *regexp.Regexp
	switch stage {
	case ShaderTypeVertex:
		re = vertexEntryRegex
	case ShaderTypeFragment:
		re = fragmentEntryRegex
	default:
		return ""
	}
	if m := re.FindStringSubmatch(stripComments(source)); m != nil {
		return m[1]
	}
	return ""
}

// parseStructBlocks parses every struct block of comment-free source.
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, m := range matches {
		structs = append(structs, parsedStruct{name: m[1], fields: parseStructFields(m[2])})
	}
	return structs
}

// parseStructFields splits a struct body into fields along with their @location and @builtin attributes.
func parseStructFields(body string) []parsedField {
	parts := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fm := fieldRegex.FindStringSubmatch(part)
		if fm == nil {
			continue
		}

		field := parsedField{
			name:      fm[1],
			typeName:  strings.TrimSpace(fm[2]),
			location:  -1,
			isBuiltin: builtinRegex.MatchString(part),
		}
		if lm := locationRegex.FindStringSubmatch(part); lm != nil {
			if loc, err := strconv.Atoi(lm[1]); err == nil {
				field.location = loc
			}
		}
		fields = append(fields, field)
	}
	return fields
}
