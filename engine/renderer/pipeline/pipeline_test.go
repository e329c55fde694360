package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("gbuffer", PipelineTypeRender)
	if got := p.PipelineKey(); got != "gbuffer" {
		t.Errorf("PipelineKey() = %q, want %q", got, "gbuffer")
	}
	if !p.DepthTestEnabled() || !p.DepthWriteEnabled() {
		t.Errorf("depth test/write = %v/%v, want true/true", p.DepthTestEnabled(), p.DepthWriteEnabled())
	}
	if got := p.DepthFormat(); got != wgpu.TextureFormatDepth32Float {
		t.Errorf("DepthFormat() = %v, want %v", got, wgpu.TextureFormatDepth32Float)
	}
	if got := p.BindGroupCount(); got != 0 {
		t.Errorf("BindGroupCount() = %d, want 0", got)
	}
	if p.BindGroupLayout(0) != nil || p.BindGroup(0) != nil {
		t.Errorf("BindGroupLayout(0)/BindGroup(0) = non-nil before creation")
	}
}

func TestPipelineOptions(t *testing.T) {
	p := NewPipeline("present", PipelineTypeRender,
		WithDepthTestEnabled(false),
		WithColorFormats(wgpu.TextureFormatBGRA8Unorm),
	)
	if p.DepthTestEnabled() {
		t.Errorf("DepthTestEnabled() = true, want false")
	}
	if got := p.ColorFormats(); len(got) != 1 || got[0] != wgpu.TextureFormatBGRA8Unorm {
		t.Errorf("ColorFormats() = %v, want [%v]", got, wgpu.TextureFormatBGRA8Unorm)
	}
}

func TestPipelineShaders(t *testing.T) {
	src := `//@oxy:include frame_uniforms
//@oxy:group 0 0 storage_uniform frame frame_uniforms
@compute @workgroup_size(1)
fn main() {
    let w = frame.width;
}
`
	cs, err := shader.NewShader("noop", shader.ShaderTypeCompute, src)
	if err != nil {
		t.Fatalf("NewShader() error = %v", err)
	}
	p := NewPipeline("noop", PipelineTypeCompute, WithComputeShader(cs))
	if got := p.Shader(shader.ShaderTypeCompute); got != cs {
		t.Errorf("Shader(compute) = %v, want %v", got, cs)
	}
	if got := p.Shader(shader.ShaderTypeVertex); got != nil {
		t.Errorf("Shader(vertex) = %v, want nil", got)
	}
	if got := len(p.Shaders()); got != 1 {
		t.Errorf("len(Shaders()) = %d, want 1", got)
	}
	if p.Pipeline().(*wgpu.ComputePipeline) != nil {
		t.Errorf("Pipeline() = non-nil before creation")
	}
}
