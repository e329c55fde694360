package renderer

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/gbuffer.wgsl
var gbufferSource string

//go:embed assets/spawn.wgsl
var spawnSource string

//go:embed assets/dispatch.wgsl
var dispatchSource string

//go:embed assets/trace.wgsl
var traceSource string

//go:embed assets/lighting.wgsl
var lightingSource string

//go:embed assets/present.wgsl
var presentSource string

// Pipeline keys of the frame stages.
const (
	PipelineGBuffer  = "gbuffer"
	PipelineSpawn    = "spawn"
	PipelineDispatch = "dispatch"
	PipelineTrace    = "trace"
	PipelineLighting = "lighting"
	PipelinePresent  = "present"
)

// G-buffer target formats. Position needs full precision for the ray origins.
const (
	gbufferPositionFormat = wgpu.TextureFormatRGBA32Float
	gbufferNormalFormat   = wgpu.TextureFormatRGBA16Float
	gbufferAlbedoFormat   = wgpu.TextureFormatRGBA16Float
	gbufferTriangleFormat = wgpu.TextureFormatR32Uint
	gbufferDepthFormat    = wgpu.TextureFormatDepth32Float
)

// kernelPipelines parses every kernel and describes the pipelines of a frame. The present
// pipeline is only built when a surface format is given.
//
// Parameters:
//   - surfaceFormat: the format of the presentation surface, wgpu.TextureFormatUndefined when headless
//
// Returns:
//   - []pipeline.Pipeline: the pipelines in execution order
//   - error: an error if a kernel fails to parse or validate
func kernelPipelines(surfaceFormat wgpu.TextureFormat) ([]pipeline.Pipeline, error) {
	gbufferVS, err := shader.NewShader(PipelineGBuffer, shader.ShaderTypeVertex, gbufferSource)
	if err != nil {
		return nil, err
	}
	gbufferFS, err := shader.NewShader(PipelineGBuffer, shader.ShaderTypeFragment, gbufferSource)
	if err != nil {
		return nil, err
	}
	pipelines := []pipeline.Pipeline{
		pipeline.NewPipeline(PipelineGBuffer, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(gbufferVS),
			pipeline.WithFragmentShader(gbufferFS),
			pipeline.WithDepthTestEnabled(true),
			pipeline.WithDepthWriteEnabled(true),
			pipeline.WithDepthFormat(gbufferDepthFormat),
			pipeline.WithColorFormats(gbufferPositionFormat, gbufferNormalFormat, gbufferAlbedoFormat, gbufferTriangleFormat),
		),
	}

	computes := []struct {
		key    string
		source string
	}{
		{PipelineSpawn, spawnSource},
		{PipelineDispatch, dispatchSource},
		{PipelineTrace, traceSource},
		{PipelineLighting, lightingSource},
	}
	for _, c := range computes {
		cs, err := shader.NewShader(c.key, shader.ShaderTypeCompute, c.source)
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, pipeline.NewPipeline(c.key, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(cs)))
	}

	if surfaceFormat == wgpu.TextureFormatUndefined {
		return pipelines, nil
	}
	presentVS, err := shader.NewShader(PipelinePresent, shader.ShaderTypeVertex, presentSource)
	if err != nil {
		return nil, err
	}
	presentFS, err := shader.NewShader(PipelinePresent, shader.ShaderTypeFragment, presentSource)
	if err != nil {
		return nil, err
	}
	return append(pipelines, pipeline.NewPipeline(PipelinePresent, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(presentVS),
		pipeline.WithFragmentShader(presentFS),
		pipeline.WithDepthTestEnabled(false),
		pipeline.WithDepthWriteEnabled(false),
		pipeline.WithColorFormats(surfaceFormat),
	)), nil
}

// kernelSources returns every kernel source by pipeline key.
func kernelSources() map[string]string {
	return map[string]string{
		PipelineGBuffer:  gbufferSource,
		PipelineSpawn:    spawnSource,
		PipelineDispatch: dispatchSource,
		PipelineTrace:    traceSource,
		PipelineLighting: lightingSource,
		PipelinePresent:  presentSource,
	}
}
