package pipeline

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

// pipeline is the implementation of the Pipeline interface.
// It holds the underlying WebGPU pipeline objects and the bind groups built for them.
type pipeline struct {
	// pipelineType indicates the type of pipeline this is; compute or render
	pipelineType PipelineType
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	// the following shader references are required to be set before initializing a pipeline.

	vertexShader, fragmentShader, computeShader shader.Shader

	// renderPipeline is the render pipeline if this is a render pipeline, nil otherwise
	renderPipeline *wgpu.RenderPipeline
	// computePipeline is the compute pipeline if this is a compute pipeline, nil otherwise
	computePipeline *wgpu.ComputePipeline
	// pipelineLayout is the explicit layout both pipeline kinds are created with
	pipelineLayout *wgpu.PipelineLayout
	// bindGroupLayouts are the layouts of pipelineLayout, indexed by group
	bindGroupLayouts []*wgpu.BindGroupLayout
	// bindGroups are the bind groups resolved from providers, keyed by group
	bindGroups map[int]*wgpu.BindGroup

	// Render pipeline state set by the builder options. Triangles are drawn as a CCW list without
	// culling. Compute pipelines ignore these.

	depthTestEnabled  bool
	depthWriteEnabled bool
	depthFormat       wgpu.TextureFormat
	colorFormats      []wgpu.TextureFormat
}

// Pipeline defines the interface for a GPU pipeline, encapsulating either a render pipeline
// (vertex + fragment shaders) or a compute pipeline (compute shader). It holds the configuration
// required for pipeline creation and the bind groups the backend resolves for it.
type Pipeline interface {
	// Type returns the type of the pipeline
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader associated with the specified type if it exists, nil otherwise.
	//
	// Parameters:
	//   - shaderType: the type of shader to retrieve (vertex, fragment, or compute)
	//
	// Returns:
	//   - shader.Shader: the shader associated with the specified type, or nil if not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// Shaders returns every shader set on the pipeline, vertex before fragment.
	//
	// Returns:
	//   - []shader.Shader: the shaders
	Shaders() []shader.Shader

	// Pipeline returns the underlying pipeline object, either *wgpu.RenderPipeline or *wgpu.ComputePipeline
	// Note: The caller is responsible for type asserting the returned value as either pipeline type.
	//
	// Returns:
	//   - any: the underlying pipeline object.
	Pipeline() any

	// RenderPipeline returns the render pipeline, nil for compute pipelines or before creation.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the render pipeline
	RenderPipeline() *wgpu.RenderPipeline

	// ComputePipeline returns the compute pipeline, nil for render pipelines or before creation.
	//
	// Returns:
	//   - *wgpu.ComputePipeline: the compute pipeline
	ComputePipeline() *wgpu.ComputePipeline

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth testing is enabled, false otherwise
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth writing is enabled, false otherwise
	DepthWriteEnabled() bool

	// DepthFormat returns the depth attachment format used when depth testing is enabled.
	//
	// Returns:
	//   - wgpu.TextureFormat: the depth format
	DepthFormat() wgpu.TextureFormat

	// ColorFormats returns the formats of the color targets, one per fragment output location.
	//
	// Returns:
	//   - []wgpu.TextureFormat: the color target formats
	ColorFormats() []wgpu.TextureFormat

	// BindGroupLayout returns the created layout of a bind group.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout, or nil if the group is not used or not yet created
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// BindGroup returns the bind group resolved for a group index.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group, or nil if not yet resolved
	BindGroup(group int) *wgpu.BindGroup

	// BindGroupCount returns the number of bind group slots of the pipeline layout.
	//
	// Returns:
	//   - int: the highest used group index plus one
	BindGroupCount() int

	// SetRenderPipeline sets the render pipeline
	//
	// Parameters:
	//   - p: the WebGPU render pipeline to set
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// SetComputePipeline sets the compute pipeline
	//
	// Parameters:
	//   - p: the WebGPU compute pipeline to set
	SetComputePipeline(p *wgpu.ComputePipeline)

	// SetLayout stores the pipeline layout and its bind group layouts, indexed by group.
	//
	// Parameters:
	//   - layout: the pipeline layout
	//   - groups: the bind group layouts
	SetLayout(layout *wgpu.PipelineLayout, groups []*wgpu.BindGroupLayout)

	// SetBindGroup stores the bind group of a group index, releasing the one it replaces.
	//
	// Parameters:
	//   - group: the bind group index
	//   - bg: the bind group
	SetBindGroup(group int, bg *wgpu.BindGroup)

	// ReleaseBindGroups releases every resolved bind group, keeping the pipeline itself.
	ReleaseBindGroups()

	// Release releases the pipeline, its layouts and its bind groups.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline interface. A PipelineType must be specified and provided upon creation.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified type and configuration
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		pipelineType:      pipelineType,
		bindGroups:        make(map[int]*wgpu.BindGroup),
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		depthFormat:       wgpu.TextureFormatDepth32Float,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Pipeline() any {
	switch p.pipelineType {
	case PipelineTypeRender:
		return p.renderPipeline
	case PipelineTypeCompute:
		return p.computePipeline
	default:
		return nil
	}
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) ComputePipeline() *wgpu.ComputePipeline {
	return p.computePipeline
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthFormat() wgpu.TextureFormat {
	return p.depthFormat
}

func (p *pipeline) ColorFormats() []wgpu.TextureFormat {
	return p.colorFormats
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	case shader.ShaderTypeCompute:
		return p.computeShader
	default:
		return nil
	}
}

func (p *pipeline) Shaders() []shader.Shader {
	var out []shader.Shader
	for _, s := range []shader.Shader{p.vertexShader, p.fragmentShader, p.computeShader} {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (p *pipeline) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	if group < 0 || group >= len(p.bindGroupLayouts) {
		return nil
	}
	return p.bindGroupLayouts[group]
}

func (p *pipeline) BindGroup(group int) *wgpu.BindGroup {
	return p.bindGroups[group]
}

func (p *pipeline) BindGroupCount() int {
	return len(p.bindGroupLayouts)
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.computePipeline = cp
}

func (p *pipeline) SetLayout(layout *wgpu.PipelineLayout, groups []*wgpu.BindGroupLayout) {
	p.pipelineLayout = layout
	p.bindGroupLayouts = groups
}

func (p *pipeline) SetBindGroup(group int, bg *wgpu.BindGroup) {
	if old := p.bindGroups[group]; old != nil && old != bg {
		old.Release()
	}
	p.bindGroups[group] = bg
}

func (p *pipeline) ReleaseBindGroups() {
	for g, bg := range p.bindGroups {
		if bg != nil {
			bg.Release()
		}
		delete(p.bindGroups, g)
	}
}

func (p *pipeline) Release() {
	p.ReleaseBindGroups()
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	for _, l := range p.bindGroupLayouts {
		if l != nil {
			l.Release()
		}
	}
	p.bindGroupLayouts = nil
}
