// annotations.go defines the annotation types, argument constants and parser for the
// WGSL pre-processor. Annotations are single-line WGSL comments prefixed with @oxy:
// that inject the canonical WGSL definitions of the batch GPU types and generate the
// matching @group/@binding declarations, so the Go structs and the shaders cannot drift.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix marks an annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct at the annotation site.
	// It is consumed entirely during pre-processing.
	//
	// Syntax: //@oxy:include <struct_type>
	//
	// Example: //@oxy:include slider_data
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a @group/@binding variable declaration and records it
	// in the pre-processor's declarations so the backend can match the binding to a buffer resource.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 1 0 storage_read sliders array<slider_data>
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// Annotation is one parsed @oxy: annotation.
type Annotation struct {
	Type AnnotationType

	// Args holds the annotation's arguments:
	//   - include: [0] = struct type key
	//   - group:   [0] = address space, [1] = var name, [2] = struct type key, optionally array<key>
	Args []AnnotationArg

	// Line is the 1-based source line, for error reporting.
	Line int

	// Group and Binding are set for group annotations only.
	Group   *int
	Binding *int
}

// StructType returns the struct type key of a group annotation with any array<> wrapper removed.
//
// Returns:
//   - AnnotationArg: the struct type key, or empty for other annotation types
//   - bool: true if the binding is a runtime-sized array of the struct
func (a Annotation) StructType() (AnnotationArg, bool) {
	if a.Type != AnnotationTypeBindingGroup || len(a.Args) < 3 {
		return "", false
	}
	if inner, ok := strings.CutPrefix(string(a.Args[2]), "array<"); ok {
		return AnnotationArg(strings.TrimSuffix(inner, ">")), true
	}
	return a.Args[2], false
}

// AnnotationArg is a typed argument of an annotation.
type AnnotationArg string

// Struct type arguments. Each maps to a Go GPU type with an embedded .wgsl definition.
const (
	// AnnotationArgGlobals identifies the Globals uniform holding the projection.
	AnnotationArgGlobals AnnotationArg = "globals"

	// annotationArgVertex identifies the VertexInput struct of plain vertex buffers.
	annotationArgVertex AnnotationArg = "vertex"

	// annotationArgSliderVertex identifies the SliderVertexInput struct.
	annotationArgSliderVertex AnnotationArg = "slider_vertex"

	// annotationArgFlashlightVertex identifies the FlashlightVertexInput struct.
	annotationArgFlashlightVertex AnnotationArg = "flashlight_vertex"

	// AnnotationArgSliderData identifies the per-slider SliderData struct.
	AnnotationArgSliderData AnnotationArg = "slider_data"

	// AnnotationArgGridCell identifies the GridCell struct of the slider segment grid.
	AnnotationArgGridCell AnnotationArg = "grid_cell"

	// AnnotationArgLineSegment identifies the LineSegment struct of slider paths.
	AnnotationArgLineSegment AnnotationArg = "line_segment"

	// AnnotationArgFlashlightData identifies the per-mask FlashlightData struct.
	AnnotationArgFlashlightData AnnotationArg = "flashlight_data"
)

// Address space arguments, mapped to WGSL var<> declarations.
const (
	annotationArgStorageTypeUniform AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead    AnnotationArg = "storage_read"
)

var validStructTypes = []AnnotationArg{
	AnnotationArgGlobals,
	annotationArgVertex,
	annotationArgSliderVertex,
	annotationArgFlashlightVertex,
	AnnotationArgSliderData,
	AnnotationArgGridCell,
	AnnotationArgLineSegment,
	AnnotationArgFlashlightData,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
}

// parseAnnotation parses one line of WGSL source. Lines without the annotation prefix return nil
// and no error.
//
// Parameters:
//   - line: the raw WGSL source line
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	_, after, ok := strings.Cut(strings.TrimSpace(line), annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch args[0] {
	case string(annotationTypeInclude):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case string(AnnotationTypeBindingGroup):
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires five arguments (group, binding, address space, name, type)", lineNum)
		}
		group, err := strconv.Atoi(args[1])
		if err != nil || group < 0 {
			return nil, fmt.Errorf("line %d: invalid group number %q in @oxy group annotation", lineNum, args[1])
		}
		binding, err := strconv.Atoi(args[2])
		if err != nil || binding < 0 {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy group annotation", lineNum, args[2])
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		a := &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}
		if st, _ := a.StructType(); !slices.Contains(validStructTypes, st) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", lineNum, args[5])
		}
		return a, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
