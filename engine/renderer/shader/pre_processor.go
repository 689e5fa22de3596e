// pre_processor.go implements the WGSL pre-processor. It replaces @oxy: annotations with the
// registered struct sources or generated binding declarations and collects the binding
// declarations for the backend.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy2d/engine/renderer/batch"
)

// registryEntry pairs an embedded WGSL struct source with the type name used in declarations.
type registryEntry struct {
	Source string
	Type   string
}

type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string
	declarations         []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Process replaces every annotation in source with its WGSL output. The declarations list is
	// reset at the start of each call.
	//
	// Parameters:
	//   - source: the WGSL source containing annotations
	//
	// Returns:
	//   - string: the expanded source
	//   - error: error if an annotation is malformed or a struct is included twice
	Process(source string) (string, error)

	// Declarations returns the group annotations of the last Process call in source order.
	//
	// Returns:
	//   - []Annotation: the binding declarations
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor knowing every batch GPU type.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgGlobals:          {Source: GPUGlobalsSource, Type: "Globals"},
			annotationArgVertex:           {Source: batch.GPUVertexSource, Type: "VertexInput"},
			annotationArgSliderVertex:     {Source: batch.GPUSliderVertexSource, Type: "SliderVertexInput"},
			annotationArgFlashlightVertex: {Source: batch.GPUFlashlightVertexSource, Type: "FlashlightVertexInput"},
			AnnotationArgSliderData:       {Source: batch.GPUSliderDataSource, Type: "SliderData"},
			AnnotationArgGridCell:         {Source: batch.GPUGridCellSource, Type: "GridCell"},
			AnnotationArgLineSegment:      {Source: batch.GPULineSegmentSource, Type: "LineSegment"},
			AnnotationArgFlashlightData:   {Source: batch.GPUFlashlightDataSource, Type: "FlashlightData"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform: "var<uniform>",
			annotationArgStorageTypeRead:    "var<storage, read>",
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]
	included := make(map[AnnotationArg]bool)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			if included[a.Args[0]] {
				return "", fmt.Errorf("line %d: %q is already included", a.Line, a.Args[0])
			}
			included[a.Args[0]] = true
			out = append(out, p.structRegistry[a.Args[0]].Source)
		case AnnotationTypeBindingGroup:
			st, isArray := a.StructType()
			wgslType := p.structRegistry[st].Type
			if isArray {
				wgslType = fmt.Sprintf("array<%s>", wgslType)
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, p.addressSpaceRegistry[a.Args[0]], a.Args[1], wgslType))
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
