// pre_processor.go implements the WGSL pre-processor. It replaces @oxy: annotations with
// injected record structs, shared routine libraries, or generated binding declarations,
// and collects the binding declarations for the renderer to wire resources by role.
//
// Record structs come from the packages that own the matching Go types, so a layout change
// in Go and in WGSL lives next to each other and the layout tests keep them in step.
package shader

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/mesh"
	"github.com/Carmen-Shannon/oxy-rt/engine/raytrace"
)

// samplingSource holds the texel fetch and attribute unpacking helpers.
//
//go:embed assets/sampling.wgsl
var samplingSource string

// brdfSource holds the direct lighting routine. It expects `frame`, `lights` and
// `shadow_maps` to be declared by the including shader.
//
//go:embed assets/brdf.wgsl
var brdfSource string

// registryEntry pairs a WGSL source with the type name used in generated declarations.
// Libraries have no type name.
type registryEntry struct {
	Source string
	Type   string
}

type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string
	declarations         []Annotation
}

// PreProcessor rewrites annotated WGSL into plain WGSL and records the binding declarations
// found along the way.
type PreProcessor interface {
	// Process replaces every @oxy: annotation in source. Include annotations are replaced
	// with the registered source, group annotations with a generated declaration, and
	// provider annotations are dropped after being recorded. Each struct or library is
	// injected at most once per call.
	//
	// Parameters:
	//   - source: the annotated WGSL source
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error if any annotation is malformed
	Process(source string) (string, error)

	// Declarations returns the group and provider annotations collected by the last
	// Process call, in source order.
	//
	// Returns:
	//   - []Annotation: the collected declarations
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with every record type and library registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgTriangle:       {Source: raytrace.TriangleSource, Type: "Triangle"},
			AnnotationArgBoundingVolume: {Source: raytrace.BoundingVolumeSource, Type: "BoundingVolume"},
			AnnotationArgMaterialRecord: {Source: raytrace.MaterialRecordSource, Type: "MaterialRecord"},
			AnnotationArgRayNode:        {Source: raytrace.RayNodeSource, Type: "RayNode"},
			AnnotationArgDispatchArgs:   {Source: raytrace.DispatchArgsSource, Type: "DispatchArgs"},
			AnnotationArgFrameUniforms:  {Source: raytrace.FrameUniformsSource, Type: "FrameUniforms"},
			AnnotationArgLight:          {Source: light.GPULightSource, Type: "Light"},
			annotationArgVertex:         {Source: mesh.GPUVertexSource, Type: "VertexInput"},
			AnnotationArgObject:         {Source: mesh.GPUObjectSource, Type: "ObjectData"},
			annotationArgSampling:       {Source: samplingSource},
			annotationArgBRDF:           {Source: brdfSource},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = nil
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
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", a.Line, a.Args[0])
			}
			if !included[a.Args[0]] {
				out = append(out, entry.Source)
				included[a.Args[0]] = true
			}
		case AnnotationTypeBindingGroup:
			wgslType, err := p.declaredType(a.Args[2])
			if err != nil {
				return "", fmt.Errorf("line %d: %w", a.Line, err)
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
				*a.Group, *a.Binding, p.addressSpaceRegistry[a.Args[0]], a.Args[1], wgslType))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeProvider:
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

// declaredType resolves a struct key, optionally wrapped in array<>, to its WGSL type name.
func (p *preProcessor) declaredType(arg AnnotationArg) (string, error) {
	key, isArray := strings.CutPrefix(string(arg), "array<")
	key = strings.TrimSuffix(key, ">")
	entry, ok := p.structRegistry[AnnotationArg(key)]
	if !ok || entry.Type == "" {
		return "", fmt.Errorf("%q is not a struct type", key)
	}
	if isArray {
		return "array<" + entry.Type + ">", nil
	}
	return entry.Type, nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
