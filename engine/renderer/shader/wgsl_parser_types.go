package shader

import "github.com/cogentcore/webgpu/wgpu"

// vertexFormatInfo holds a vertex format and its byte size for offset calculation
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// wgslTypeLayout holds the byte size and alignment of a WGSL type in host-shareable memory
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField is one field of a WGSL struct
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct is one WGSL struct block
type parsedStruct struct {
	name   string
	fields []parsedField
}
