// annotations.go defines the annotation types, argument constants, and parser for the
// WGSL pre-processor. Annotations are single-line WGSL comments prefixed with @oxy: that
// inject record structs and shared routines, generate @group/@binding declarations, and
// tag hand-written bindings with the resource they expect. The renderer binds resources by
// the role recorded on each declaration instead of by group and binding numbers.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix marks an annotation inside a WGSL line comment.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct or routine
	// library at the annotation site. It is consumed entirely during pre-processing.
	//
	// Syntax: //@oxy:include <struct_type|library>
	//
	// Example: //@oxy:include ray_node
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a @group/@binding variable declaration for a
	// registered struct type. The variable name doubles as the binding role.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 1 0 storage_read triangles array<triangle>
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider tags the hand-written binding below it (textures, atomics, raw
	// arrays) with a provider identity and a binding role. No WGSL is generated.
	//
	// Syntax: //@oxy:provider <group> <binding> <provider_identity> <binding_role>
	//
	// Example: //@oxy:provider 2 1 rays counter
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed (include, group, or provider).
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:  [0] = struct type or library key
	//   - group:    [0] = address space, [1] = var name, [2] = type key
	//   - provider: [0] = provider identity, [1] = binding role
	Args []AnnotationArg

	// Line is the 1-based source line of the annotation.
	Line int

	// Group is the @group index for group and provider annotations, nil for includes.
	Group *int

	// Binding is the @binding index for group and provider annotations, nil for includes.
	Binding *int
}

// Role returns the binding role of a declaration: the variable name of a group annotation or
// the role argument of a provider annotation. Includes have no role.
//
// Returns:
//   - AnnotationArg: the role, or "" for includes
func (a Annotation) Role() AnnotationArg {
	if a.Type == annotationTypeInclude || len(a.Args) < 2 {
		return ""
	}
	return a.Args[1]
}

// AnnotationArg is a typed string constant used as an annotation argument.
type AnnotationArg string

// ── Struct type arguments ──────────────────────────────────────────────────────
// Each maps to a Go record type with an embedded .wgsl asset declaring the same layout.

const (
	// AnnotationArgTriangle identifies the migrated Triangle record (engine/raytrace).
	AnnotationArgTriangle AnnotationArg = "triangle"

	// AnnotationArgBoundingVolume identifies the per-mesh BoundingVolume record (engine/raytrace).
	AnnotationArgBoundingVolume AnnotationArg = "bounding_volume"

	// AnnotationArgMaterialRecord identifies the per-mesh MaterialRecord (engine/raytrace).
	AnnotationArgMaterialRecord AnnotationArg = "material_record"

	// AnnotationArgRayNode identifies the reflection chain RayNode record (engine/raytrace).
	AnnotationArgRayNode AnnotationArg = "ray_node"

	// AnnotationArgDispatchArgs identifies the indirect dispatch descriptor (engine/raytrace).
	AnnotationArgDispatchArgs AnnotationArg = "dispatch_args"

	// AnnotationArgFrameUniforms identifies the per-frame uniform block (engine/raytrace).
	AnnotationArgFrameUniforms AnnotationArg = "frame_uniforms"

	// AnnotationArgLight identifies the Light record (engine/light).
	AnnotationArgLight AnnotationArg = "light"

	// annotationArgVertex identifies the packed VertexInput struct (engine/mesh).
	annotationArgVertex AnnotationArg = "vertex"

	// AnnotationArgObject identifies the per-draw ObjectData record (engine/mesh).
	AnnotationArgObject AnnotationArg = "object"
)

// ── Library arguments ──────────────────────────────────────────────────────────
// Shared WGSL routines, only valid in include annotations.

const (
	// annotationArgSampling injects texel fetch and packed attribute decoding helpers.
	annotationArgSampling AnnotationArg = "sampling"

	// annotationArgBRDF injects the direct lighting routine and shadow lookup.
	annotationArgBRDF AnnotationArg = "brdf"
)

// ── Address space arguments ────────────────────────────────────────────────────

const (
	// annotationArgStorageTypeUniform maps to var<uniform> in WGSL.
	annotationArgStorageTypeUniform AnnotationArg = "storage_uniform"

	// annotationArgStorageTypeRead maps to var<storage, read> in WGSL.
	annotationArgStorageTypeRead AnnotationArg = "storage_read"

	// annotationArgStorageTypeReadWrite maps to var<storage, read_write> in WGSL.
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// ── Provider identity arguments ────────────────────────────────────────────────

const (
	// AnnotationArgScene identifies the migrated scene buffers and the texture array.
	AnnotationArgScene AnnotationArg = "scene"

	// AnnotationArgRays identifies the per-frame ray state: nodes, counter, heads, dispatch.
	AnnotationArgRays AnnotationArg = "rays"

	// AnnotationArgGBuffer identifies the G-buffer render targets.
	AnnotationArgGBuffer AnnotationArg = "gbuffer"

	// AnnotationArgLights identifies the light array and the shadow map array.
	AnnotationArgLights AnnotationArg = "lights"

	// AnnotationArgOutput identifies the lighting output image.
	AnnotationArgOutput AnnotationArg = "output"
)

// ── Binding role arguments ─────────────────────────────────────────────────────
// Roles of provider-tagged bindings. Group annotations use their variable name as the role.

const (
	AnnotationArgRoleCounter      AnnotationArg = "counter"
	AnnotationArgRoleHeads        AnnotationArg = "heads"
	AnnotationArgRoleTextures     AnnotationArg = "textures"
	AnnotationArgRolePosition     AnnotationArg = "position"
	AnnotationArgRoleNormal       AnnotationArg = "normal"
	AnnotationArgRoleAlbedo       AnnotationArg = "albedo"
	AnnotationArgRoleTriangleID   AnnotationArg = "triangle_id"
	AnnotationArgRoleShadowMaps   AnnotationArg = "shadow_maps"
	AnnotationArgRoleColor        AnnotationArg = "color"
	AnnotationArgRoleColorTexture AnnotationArg = "color_texture"
)

var validStructTypes = []AnnotationArg{
	AnnotationArgTriangle,
	AnnotationArgBoundingVolume,
	AnnotationArgMaterialRecord,
	AnnotationArgRayNode,
	AnnotationArgDispatchArgs,
	AnnotationArgFrameUniforms,
	AnnotationArgLight,
	annotationArgVertex,
	AnnotationArgObject,
}

var validLibraries = []AnnotationArg{
	annotationArgSampling,
	annotationArgBRDF,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
	annotationArgStorageTypeReadWrite,
}

var validProviderIdentities = []AnnotationArg{
	AnnotationArgScene,
	AnnotationArgRays,
	AnnotationArgGBuffer,
	AnnotationArgLights,
	AnnotationArgOutput,
}

var validBindingRoles = []AnnotationArg{
	AnnotationArgRoleCounter,
	AnnotationArgRoleHeads,
	AnnotationArgRoleTextures,
	AnnotationArgRolePosition,
	AnnotationArgRoleNormal,
	AnnotationArgRoleAlbedo,
	AnnotationArgRoleTriangleID,
	AnnotationArgRoleShadowMaps,
	AnnotationArgRoleColor,
	AnnotationArgRoleColorTexture,
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Lines without the prefix return nil and no error.
//
// Parameters:
//   - line: the raw WGSL source line to parse
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

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		key := AnnotationArg(args[1])
		if !slices.Contains(validStructTypes, key) && !slices.Contains(validLibraries, key) {
			return nil, fmt.Errorf("line %d: unknown include %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{Type: annotationTypeInclude, Args: []AnnotationArg{key}, Line: lineNum}, nil

	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires group, binding, address space, name and type", lineNum)
		}
		group, binding, err := parseSlot(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		elem := args[5]
		if inner, ok := strings.CutPrefix(elem, "array<"); ok {
			elem = strings.TrimSuffix(inner, ">")
		}
		if !slices.Contains(validStructTypes, AnnotationArg(elem)) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", lineNum, elem)
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil

	case AnnotationTypeProvider:
		if len(args) != 5 {
			return nil, fmt.Errorf("line %d: @oxy provider annotation requires group, binding, provider identity and binding role", lineNum)
		}
		group, binding, err := parseSlot(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validProviderIdentities, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown provider identity %q in @oxy provider annotation", lineNum, args[3])
		}
		if !slices.Contains(validBindingRoles, AnnotationArg(args[4])) {
			return nil, fmt.Errorf("line %d: unknown binding role %q in @oxy provider annotation", lineNum, args[4])
		}
		return &Annotation{
			Type:    AnnotationTypeProvider,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}

func parseSlot(groupArg, bindingArg string, lineNum int) (int, int, error) {
	group, err := strconv.Atoi(groupArg)
	if err != nil {
		return 0, 0, fmt.Errorf("line %d: invalid group number %q: %w", lineNum, groupArg, err)
	}
	binding, err := strconv.Atoi(bindingArg)
	if err != nil {
		return 0, 0, fmt.Errorf("line %d: invalid binding number %q: %w", lineNum, bindingArg, err)
	}
	return group, binding, nil
}
