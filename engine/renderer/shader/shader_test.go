package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/mesh"
	"github.com/Carmen-Shannon/oxy-rt/engine/raytrace"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestRecordLayoutsMatchGo(t *testing.T) {
	tests := []struct {
		key  AnnotationArg
		name string
		want int
	}{
		{AnnotationArgTriangle, "Triangle", (&raytrace.TriangleRecord{}).Size()},
		{AnnotationArgBoundingVolume, "BoundingVolume", (&raytrace.BoundingVolume{}).Size()},
		{AnnotationArgMaterialRecord, "MaterialRecord", (&raytrace.MaterialRecord{}).Size()},
		{AnnotationArgRayNode, "RayNode", (&raytrace.RayNode{}).Size()},
		{AnnotationArgDispatchArgs, "DispatchArgs", (&raytrace.DispatchArgs{}).Size()},
		{AnnotationArgFrameUniforms, "FrameUniforms", (&raytrace.FrameUniforms{}).Size()},
		{AnnotationArgLight, "Light", (&light.GPULight{}).Size()},
		{AnnotationArgObject, "ObjectData", (&mesh.GPUObject{}).Size()},
	}

	registry := NewPreProcessor().(*preProcessor).structRegistry
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			sizes := computeStructSizes(parseStructBlocks(stripComments(registry[tt.key].Source)))
			layout, ok := sizes[tt.name]
			if !ok {
				t.Fatalf("struct %s not resolved", tt.name)
			}
			if int(layout.size) != tt.want {
				t.Errorf("size(%s) = %d, want %d", tt.name, layout.size, tt.want)
			}
		})
	}
}

func TestVertexInputStride(t *testing.T) {
	src := mesh.GPUVertexSource + "\n@vertex\nfn vs(vin: VertexInput, @builtin(instance_index) instance: u32) -> @builtin(position) vec4<f32> {\n    return vec4<f32>(vin.position, 1.0);\n}\n"
	layouts := parseVertexLayouts(src)
	if len(layouts) != 1 {
		t.Fatalf("parseVertexLayouts() returned %d layouts, want 1", len(layouts))
	}
	if want := uint64((&mesh.Vertex{}).Size()); layouts[0].ArrayStride != want {
		t.Errorf("ArrayStride = %d, want %d", layouts[0].ArrayStride, want)
	}
	wantFormats := []wgpu.VertexFormat{
		wgpu.VertexFormatFloat32x3, wgpu.VertexFormatUint32, wgpu.VertexFormatUint32, wgpu.VertexFormatUint32,
	}
	for i, attr := range layouts[0].Attributes {
		if attr.Format != wantFormats[i] || attr.ShaderLocation != uint32(i) {
			t.Errorf("attribute %d = %v@%d, want %v@%d", i, attr.Format, attr.ShaderLocation, wantFormats[i], i)
		}
	}
}

func TestVertexLayoutsIgnoreOutputStructs(t *testing.T) {
	src := `
struct Out {
    @location(0) color: vec4<f32>,
    @location(1) normal: vec4<f32>,
}
@vertex
fn vs(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}
`
	if got := parseVertexLayouts(src); len(got) != 0 {
		t.Errorf("parseVertexLayouts() = %d layouts, want 0", len(got))
	}
}

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantType AnnotationType
		wantRole AnnotationArg
		wantErr  bool
		wantNil  bool
	}{
		{name: "plain line", line: "let x = 1;", wantNil: true},
		{name: "include struct", line: "//@oxy:include ray_node", wantType: annotationTypeInclude},
		{name: "include library", line: "  //@oxy:include brdf", wantType: annotationTypeInclude},
		{name: "group", line: "//@oxy:group 1 0 storage_read triangles array<triangle>", wantType: AnnotationTypeBindingGroup, wantRole: "triangles"},
		{name: "provider", line: "//@oxy:provider 2 1 rays counter", wantType: AnnotationTypeProvider, wantRole: AnnotationArgRoleCounter},
		{name: "unknown include", line: "//@oxy:include camera", wantErr: true},
		{name: "bad address space", line: "//@oxy:group 0 0 private frame frame_uniforms", wantErr: true},
		{name: "bad binding", line: "//@oxy:group 0 x storage_uniform frame frame_uniforms", wantErr: true},
		{name: "provider without role", line: "//@oxy:provider 2 1 rays", wantErr: true},
		{name: "unknown role", line: "//@oxy:provider 2 1 rays depth", wantErr: true},
		{name: "unknown type", line: "//@oxy:bind 0 0", wantErr: true},
		{name: "empty", line: "//@oxy:", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := parseAnnotation(tt.line, 7)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAnnotation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.wantNil {
				if a != nil {
					t.Errorf("parseAnnotation() = %+v, want nil", a)
				}
				return
			}
			if a.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", a.Type, tt.wantType)
			}
			if a.Role() != tt.wantRole {
				t.Errorf("Role() = %q, want %q", a.Role(), tt.wantRole)
			}
			if a.Line != 7 {
				t.Errorf("Line = %d, want 7", a.Line)
			}
		})
	}
}

func TestProcessIncludesOnce(t *testing.T) {
	src := strings.Join([]string{
		"//@oxy:include frame_uniforms",
		"//@oxy:include frame_uniforms",
		"//@oxy:group 0 0 storage_uniform frame frame_uniforms",
		"//@oxy:provider 0 1 rays counter",
		"@group(0) @binding(1) var<storage, read_write> counter: atomic<u32>;",
	}, "\n")

	pp := NewPreProcessor()
	out, err := pp.Process(src)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if n := strings.Count(out, "struct FrameUniforms"); n != 1 {
		t.Errorf("FrameUniforms injected %d times, want 1", n)
	}
	if !strings.Contains(out, "@group(0) @binding(0) var<uniform> frame: FrameUniforms;") {
		t.Errorf("Process() missing generated declaration:\n%s", out)
	}
	if strings.Contains(out, annotationPrefix) {
		t.Errorf("Process() left an annotation in the output:\n%s", out)
	}
	if got := len(pp.Declarations()); got != 2 {
		t.Errorf("len(Declarations()) = %d, want 2", got)
	}
}

func TestProcessArrayDeclaration(t *testing.T) {
	out, err := NewPreProcessor().Process("//@oxy:include light\n//@oxy:group 3 0 storage_read lights array<light>")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !strings.Contains(out, "var<storage, read> lights: array<Light>;") {
		t.Errorf("Process() = %q, want an array<Light> declaration", out)
	}
	if _, err := NewPreProcessor().Process("//@oxy:group 0 0 storage_read lib array<brdf>"); err == nil {
		t.Error("Process() with a library type error = nil, want error")
	}
}

const counterKernel = `//@oxy:include frame_uniforms
//@oxy:group 0 0 storage_uniform frame frame_uniforms
//@oxy:provider 1 0 rays counter
@group(1) @binding(0) var<storage, read_write> counter: atomic<u32>;
//@oxy:provider 1 1 lights shadow_maps
@group(1) @binding(1) var shadow_maps: texture_2d_array<f32>;

@compute @workgroup_size(8, 8)
fn count(@builtin(global_invocation_id) id: vec3<u32>) {
    if id.x < frame.width && id.y < frame.height {
        let d = textureLoad(shadow_maps, vec2<i32>(0, 0), 0, 0).r;
        if d > 0.0 {
            atomicAdd(&counter, 1u);
        }
    }
}
`

func TestNewShaderCompute(t *testing.T) {
	s, err := NewShader("count", ShaderTypeCompute, counterKernel)
	if err != nil {
		t.Fatalf("NewShader() error = %v", err)
	}
	if s.EntryPoint() != "count" {
		t.Errorf("EntryPoint() = %q, want %q", s.EntryPoint(), "count")
	}
	if got := s.WorkgroupSize(); got != [3]uint32{8, 8, 1} {
		t.Errorf("WorkgroupSize() = %v, want [8 8 1]", got)
	}
	if g, b, ok := s.Binding(AnnotationArgRoleCounter); !ok || g != 1 || b != 0 {
		t.Errorf("Binding(counter) = (%d, %d, %v), want (1, 0, true)", g, b, ok)
	}
	if g, b, ok := s.Binding("frame"); !ok || g != 0 || b != 0 {
		t.Errorf("Binding(frame) = (%d, %d, %v), want (0, 0, true)", g, b, ok)
	}
	if _, _, ok := s.Binding(AnnotationArgRoleHeads); ok {
		t.Error("Binding(heads) found, want missing")
	}

	frame := s.BindGroupLayoutDescriptor(0).Entries
	if len(frame) != 1 || frame[0].Buffer.Type != wgpu.BufferBindingTypeUniform || frame[0].Buffer.MinBindingSize != 144 {
		t.Errorf("group 0 entries = %+v, want one 144 byte uniform", frame)
	}
	rays := s.BindGroupLayoutDescriptor(1).Entries
	if len(rays) != 2 {
		t.Fatalf("group 1 has %d entries, want 2", len(rays))
	}
	if rays[0].Buffer.Type != wgpu.BufferBindingTypeStorage || rays[0].Visibility != wgpu.ShaderStageCompute {
		t.Errorf("counter entry = %+v, want compute read-write storage", rays[0])
	}
	if rays[1].Texture.SampleType != wgpu.TextureSampleTypeUnfilterableFloat ||
		rays[1].Texture.ViewDimension != wgpu.TextureViewDimension2DArray {
		t.Errorf("shadow map entry = %+v, want unfilterable 2d array", rays[1].Texture)
	}
	if s.BindGroupVarName(1, 1) != "shadow_maps" {
		t.Errorf("BindGroupVarName(1, 1) = %q, want shadow_maps", s.BindGroupVarName(1, 1))
	}
}

func TestNewShaderErrors(t *testing.T) {
	if _, err := NewShader("none", ShaderTypeVertex, counterKernel); err == nil {
		t.Error("NewShader() for a missing vertex entry error = nil, want error")
	}
	if _, err := NewShader("bad", ShaderTypeCompute, "//@oxy:include nothing"); err == nil {
		t.Error("NewShader() with a bad annotation error = nil, want error")
	}
	_, err := NewShader("syntax", ShaderTypeCompute, "@compute @workgroup_size(1) fn main( {")
	if !errors.Is(err, ErrInvalidShader) {
		t.Errorf("NewShader() with a syntax error = %v, want ErrInvalidShader", err)
	}
}

func TestStripComments(t *testing.T) {
	src := "a /* b /* c */ d */ e // f\ng"
	if got, want := stripComments(src), "a  e \ng"; got != want {
		t.Errorf("stripComments() = %q, want %q", got, want)
	}
}
