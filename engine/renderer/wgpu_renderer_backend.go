package renderer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/mesh"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/raytrace"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderlist"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// frameIdentity is the provider of the frame uniform block.
	frameIdentity shader.AnnotationArg = "frame"

	// depthRole stores the G-buffer depth target, which no kernel binds.
	depthRole shader.AnnotationArg = "depth"

	// spawnTile and lightingTile are the 2D workgroup edge of the per-pixel kernels.
	spawnTile    = 8
	lightingTile = 8
)

// Roles of group annotations, which name their variable instead of a provider.
const (
	roleFrame     shader.AnnotationArg = "frame"
	roleObjects   shader.AnnotationArg = "objects"
	roleTriangles shader.AnnotationArg = "triangles"
	roleVolumes   shader.AnnotationArg = "volumes"
	roleMaterials shader.AnnotationArg = "materials"
	roleNodes     shader.AnnotationArg = "nodes"
	roleDispatch  shader.AnnotationArg = "dispatch"
	roleLights    shader.AnnotationArg = "lights"
)

// groupIdentities maps generated bindings to the provider holding their resource.
var groupIdentities = map[shader.AnnotationArg]shader.AnnotationArg{
	roleFrame:     frameIdentity,
	roleObjects:   shader.AnnotationArgScene,
	roleTriangles: shader.AnnotationArgScene,
	roleVolumes:   shader.AnnotationArgScene,
	roleMaterials: shader.AnnotationArgScene,
	roleNodes:     shader.AnnotationArgRays,
	roleDispatch:  shader.AnnotationArgRays,
	roleLights:    shader.AnnotationArgLights,
}

// wgpuBackendOptions carries the builder options the WGPU backend needs at creation.
type wgpuBackendOptions struct {
	window               window.Window
	forceFallbackAdapter bool
	presentMode          PresentMode
	textures             *material.TextureArray
}

// meshDraw is one G-buffer draw: instance index i selects object and material record i.
type meshDraw struct {
	vertex     *wgpu.Buffer
	index      *wgpu.Buffer
	indexCount uint32
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat // TextureFormatUndefined when headless
	presentMode   wgpu.PresentMode
	textures      *material.TextureArray

	config    raytrace.Config
	pipelines map[string]pipeline.Pipeline
	providers map[shader.AnnotationArg]bind_group_provider.BindGroupProvider

	scene         *raytrace.Scene
	draws         []meshDraw
	meshBuffers   []*wgpu.Buffer
	textureLayers uint32
	shadowLayers  uint32
	shadowSize    int
	shadowsBound  []bool

	// bindGroupsDirty is set whenever a bound resource is recreated.
	bindGroupsDirty bool
}

// wgpuRendererBackend is the RendererBackend running every stage as a WebGPU pipeline.
type wgpuRendererBackend interface {
	RendererBackend

	// Pipeline returns a created frame pipeline by key.
	//
	// Parameters:
	//   - key: one of the Pipeline* keys
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline, nil if unknown or not built for this backend
	Pipeline(key string) pipeline.Pipeline
}

var _ wgpuRendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(opts wgpuBackendOptions) (wgpuRendererBackend, error) {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:            &sync.Mutex{},
		instance:      wgpu.CreateInstance(nil),
		surfaceFormat: wgpu.TextureFormatUndefined,
		textures:      opts.textures,
		pipelines:     make(map[string]pipeline.Pipeline),
		providers:     make(map[shader.AnnotationArg]bind_group_provider.BindGroupProvider),
	}
	b.setPresentMode(opts.presentMode)

	if opts.window != nil {
		b.surface = b.instance.CreateSurface(opts.window.SurfaceDescriptor())
	}

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: opts.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("%w: request adapter: %v", ErrBackendUnavailable, err)
	}
	b.adapter = a
	info := a.GetInfo()
	logger.Infof("wgpu adapter %q (%v)", info.Name, info.BackendType)

	// Chains are stored for every pixel, so the node buffer outgrows the default binding size.
	supported := a.GetLimits().Limits
	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 8
	limits.MaxStorageBufferBindingSize = supported.MaxStorageBufferBindingSize
	limits.MaxBufferSize = supported.MaxBufferSize

	// The G-buffer records the migrated triangle of every pixel from the primitive index.
	if !a.HasFeature(wgpu.NativeFeatureShaderPrimitiveIndex) {
		b.Release()
		return nil, fmt.Errorf("%w: adapter %q lacks %v", ErrBackendUnavailable, info.Name, wgpu.NativeFeatureShaderPrimitiveIndex)
	}

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            "Main Device",
		RequiredFeatures: []wgpu.FeatureName{wgpu.NativeFeatureShaderPrimitiveIndex},
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("%w: request device: %v", ErrBackendUnavailable, err)
	}
	b.device = d
	b.queue = d.GetQueue()

	if b.surface != nil {
		capabilities := b.surface.GetCapabilities(b.adapter)
		b.surfaceFormat = presentFormat(capabilities.Formats)
	}

	pipelines, err := kernelPipelines(b.surfaceFormat)
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("build kernels: %w", err)
	}
	for _, p := range pipelines {
		if err := b.registerPipeline(p); err != nil {
			b.Release()
			return nil, fmt.Errorf("create pipeline %q: %w", p.PipelineKey(), err)
		}
	}

	for _, id := range []shader.AnnotationArg{
		frameIdentity,
		shader.AnnotationArgScene,
		shader.AnnotationArgRays,
		shader.AnnotationArgGBuffer,
		shader.AnnotationArgLights,
		shader.AnnotationArgOutput,
	} {
		b.providers[id] = bind_group_provider.NewBindGroupProvider(id)
	}
	if err := b.ensureBuffer(b.providers[frameIdentity], roleFrame, uint64(new(raytrace.FrameUniforms).Size()),
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

// presentFormat picks a non-sRGB surface format because the present kernel encodes sRGB itself.
func presentFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range formats {
		if f == wgpu.TextureFormatBGRA8Unorm || f == wgpu.TextureFormatRGBA8Unorm {
			return f
		}
	}
	if len(formats) == 0 {
		return wgpu.TextureFormatUndefined
	}
	return formats[0]
}

func (b *wgpuRendererBackendImpl) Type() RendererBackendType {
	return BackendTypeWGPU
}

func (b *wgpuRendererBackendImpl) Pipeline(key string) pipeline.Pipeline {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pipelines[key]
}

func (b *wgpuRendererBackendImpl) setPresentMode(mode PresentMode) {
	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) configureSurface(width, height int) {
	if b.surface == nil {
		return
	}
	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) registerPipeline(p pipeline.Pipeline) error {
	switch p.Type() {
	case pipeline.PipelineTypeCompute:
		return b.registerComputePipeline(p)
	case pipeline.PipelineTypeRender:
		return b.registerRenderPipeline(p)
	default:
		return fmt.Errorf("unknown pipeline type %d", p.Type())
	}
}

// createLayouts creates one bind group layout per group index up to the highest used group.
// Unused indices get an empty layout.
func (b *wgpuRendererBackendImpl) createLayouts(key string, descriptors map[int]wgpu.BindGroupLayoutDescriptor) (*wgpu.PipelineLayout, []*wgpu.BindGroupLayout, error) {
	maxGroup := -1
	for g := range descriptors {
		maxGroup = max(maxGroup, g)
	}
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := range bindGroupLayouts {
		desc, ok := descriptors[g]
		if !ok {
			desc = wgpu.BindGroupLayoutDescriptor{Label: fmt.Sprintf("%s empty group %d", key, g)}
		}
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		bindGroupLayouts[g] = layout
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            key,
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return nil, nil, err
	}
	return pipelineLayout, bindGroupLayouts, nil
}

func (b *wgpuRendererBackendImpl) registerRenderPipeline(p pipeline.Pipeline) error {
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)
	if vertexShader == nil || fragmentShader == nil {
		return errors.New("both vertex and fragment shaders must be set to create a render pipeline")
	}

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return err
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return err
	}
	defer fs.Release()

	merged := mergeBindGroupLayouts(vertexShader.BindGroupLayoutDescriptors(), fragmentShader.BindGroupLayoutDescriptors())
	layout, groups, err := b.createLayouts(p.PipelineKey(), merged)
	if err != nil {
		return err
	}
	p.SetLayout(layout, groups)

	targets := make([]wgpu.ColorTargetState, 0, len(p.ColorFormats()))
	for _, format := range p.ColorFormats() {
		targets = append(targets, wgpu.ColorTargetState{Format: format, WriteMask: wgpu.ColorWriteMaskAll})
	}

	var depthStencil *wgpu.DepthStencilState
	if p.DepthTestEnabled() || p.DepthWriteEnabled() {
		depthCompare := wgpu.CompareFunctionLess
		if !p.DepthTestEnabled() {
			depthCompare = wgpu.CompareFunctionAlways
		}
		depthStencil = &wgpu.DepthStencilState{
			Format:            p.DepthFormat(),
			DepthWriteEnabled: p.DepthWriteEnabled(),
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    vertexShader.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		return err
	}

	p.SetRenderPipeline(created)
	b.pipelines[p.PipelineKey()] = p
	return nil
}

func (b *wgpuRendererBackendImpl) registerComputePipeline(p pipeline.Pipeline) error {
	computeShader := p.Shader(shader.ShaderTypeCompute)
	if computeShader == nil {
		return errors.New("compute shader must be set to create a compute pipeline")
	}

	s, err := b.device.CreateShaderModule(computeShader.Module())
	if err != nil {
		return err
	}
	defer s.Release()

	layout, groups, err := b.createLayouts(p.PipelineKey(), computeShader.BindGroupLayoutDescriptors())
	if err != nil {
		return err
	}
	p.SetLayout(layout, groups)

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return err
	}

	p.SetComputePipeline(created)
	b.pipelines[p.PipelineKey()] = p
	return nil
}

// resolveBindGroups creates the bind groups of every pipeline from the declarations of its
// shaders. Each declaration names the provider and role that hold the bound resource.
func (b *wgpuRendererBackendImpl) resolveBindGroups() error {
	if !b.bindGroupsDirty {
		return nil
	}
	for key, p := range b.pipelines {
		p.ReleaseBindGroups()
		entries := make(map[int]map[int]wgpu.BindGroupEntry)
		for _, s := range p.Shaders() {
			for _, decl := range s.Declarations() {
				if decl.Group == nil || decl.Binding == nil {
					continue
				}
				identity := groupIdentities[decl.Role()]
				if decl.Type == shader.AnnotationTypeProvider {
					identity = decl.Args[0]
				}
				provider := b.providers[identity]
				if provider == nil {
					return fmt.Errorf("pipeline %q: no provider %q for %q", key, identity, decl.Role())
				}
				entry, ok := provider.Entry(*decl.Binding, decl.Role())
				if !ok {
					return fmt.Errorf("pipeline %q: provider %q has no resource for %q", key, identity, decl.Role())
				}
				if entries[*decl.Group] == nil {
					entries[*decl.Group] = make(map[int]wgpu.BindGroupEntry)
				}
				entries[*decl.Group][*decl.Binding] = entry
			}
		}

		for g := range p.BindGroupCount() {
			group := make([]wgpu.BindGroupEntry, 0, len(entries[g]))
			for _, e := range entries[g] {
				group = append(group, e)
			}
			sort.Slice(group, func(i, j int) bool { return group[i].Binding < group[j].Binding })
			bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
				Label:   fmt.Sprintf("%s group %d", key, g),
				Layout:  p.BindGroupLayout(g),
				Entries: group,
			})
			if err != nil {
				return fmt.Errorf("pipeline %q group %d: %w", key, g, err)
			}
			p.SetBindGroup(g, bg)
		}
	}
	b.bindGroupsDirty = false
	return nil
}

// ensureBuffer makes sure a provider holds a buffer of at least size bytes under role.
func (b *wgpuRendererBackendImpl) ensureBuffer(provider bind_group_provider.BindGroupProvider, role shader.AnnotationArg, size uint64, usage wgpu.BufferUsage) error {
	size = max(alignUp(size, 16), 16)
	if buf := provider.Buffer(role); buf != nil && buf.GetSize() == size {
		return nil
	}
	buf, err := b.newBuffer(provider, role, size, usage)
	if err != nil {
		return err
	}
	provider.SetBuffer(role, buf)
	b.bindGroupsDirty = true
	return nil
}

func (b *wgpuRendererBackendImpl) newBuffer(provider bind_group_provider.BindGroupProvider, role shader.AnnotationArg, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("%s %s Buffer", provider.Label(), role),
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s %s buffer: %w", provider.Label(), role, err)
	}
	return buf, nil
}

// createTexture creates a 2D or 2D array texture and its view and stores both on a provider.
func (b *wgpuRendererBackendImpl) createTexture(provider bind_group_provider.BindGroupProvider, role shader.AnnotationArg, width, height, layers uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage, array bool) (*wgpu.Texture, error) {
	tex, view, err := b.newTexture(provider, role, width, height, layers, format, usage, array)
	if err != nil {
		return nil, err
	}
	provider.SetTexture(role, tex, view)
	b.bindGroupsDirty = true
	return tex, nil
}

func (b *wgpuRendererBackendImpl) newTexture(provider bind_group_provider.BindGroupProvider, role shader.AnnotationArg, width, height, layers uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage, array bool) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: fmt.Sprintf("%s %s Texture", provider.Label(), role),
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: layers,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s %s texture: %w", provider.Label(), role, err)
	}

	var viewDesc *wgpu.TextureViewDescriptor
	if array {
		viewDesc = &wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("%s %s View", provider.Label(), role),
			Format:          format,
			Dimension:       wgpu.TextureViewDimension2DArray,
			BaseMipLevel:    0,
			MipLevelCount:   1,
			BaseArrayLayer:  0,
			ArrayLayerCount: layers,
			Aspect:          wgpu.TextureAspectAll,
		}
	}
	view, err := tex.CreateView(viewDesc)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("create %s %s view: %w", provider.Label(), role, err)
	}
	return tex, view, nil
}

func (b *wgpuRendererBackendImpl) writeTexture(tex *wgpu.Texture, pixels []byte, bytesPerRow, width, height, layers uint32) {
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  bytesPerRow,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: layers,
		},
	)
}

func (b *wgpuRendererBackendImpl) MeshReader() raytrace.MeshReader {
	return gpuMeshReader{backend: b}
}

func (b *wgpuRendererBackendImpl) PrepareMeshes(list *renderlist.List) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := list.LightCount(); i < list.Len(); i++ {
		m, ok := list.At(i).AsMesh()
		if !ok || !m.HasGeometry() {
			continue
		}
		if v, idx := m.GPUBuffers(); v != nil && idx != nil {
			continue
		}
		vertex, err := b.uploadMeshBuffer(m.Name()+" Vertex Buffer", m.VertexData(), wgpu.BufferUsageVertex)
		if err != nil {
			return err
		}
		index, err := b.uploadMeshBuffer(m.Name()+" Index Buffer", m.IndexData(), wgpu.BufferUsageIndex)
		if err != nil {
			vertex.Release()
			return err
		}
		m.SetGPUBuffers(vertex, index)
		b.meshBuffers = append(b.meshBuffers, vertex, index)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) uploadMeshBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             alignUp(uint64(len(data)), 4),
		Usage:            usage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	b.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// gpuMeshReader reads mesh geometry back from the vertex and index buffers the G-buffer pass
// draws with, so migration sees exactly what is rasterized.
type gpuMeshReader struct {
	backend *wgpuRendererBackendImpl
}

func (r gpuMeshReader) ReadMesh(m mesh.Mesh) ([]mesh.Vertex, []uint32, error) {
	vertex, index := m.GPUBuffers()
	if vertex == nil || index == nil {
		return nil, nil, fmt.Errorf("mesh %q has no GPU buffers: %w", m.Name(), raytrace.ErrNotRenderable)
	}
	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()

	vertexData, err := r.backend.readBuffer(vertex, uint64(len(m.VertexData())))
	if err != nil {
		return nil, nil, fmt.Errorf("read vertices of %q: %w", m.Name(), err)
	}
	indexData, err := r.backend.readBuffer(index, uint64(len(m.IndexData())))
	if err != nil {
		return nil, nil, fmt.Errorf("read indices of %q: %w", m.Name(), err)
	}
	return mesh.UnmarshalVertices(vertexData), mesh.UnmarshalIndices(indexData), nil
}

func (b *wgpuRendererBackendImpl) Upload(scene *raytrace.Scene, list *renderlist.List) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sp := b.providers[shader.AnnotationArgScene]
	objects := make([]byte, 0, len(scene.Volumes)*144)
	draws := make([]meshDraw, 0, len(scene.Volumes))
	for i := list.LightCount(); i < list.Len(); i++ {
		e := list.At(i)
		m, ok := e.AsMesh()
		if !ok {
			return fmt.Errorf("element %d is a %s: %w", i, e.Kind, raytrace.ErrNotRenderable)
		}
		if len(draws) >= len(scene.Volumes) {
			return fmt.Errorf("element %d has no migrated volume: %w", i, raytrace.ErrNotRenderable)
		}
		obj := mesh.NewGPUObject(e.World, uint32(len(draws)), scene.Volumes[len(draws)].FirstTriangle)
		objects = append(objects, obj.Marshal()...)
		vertex, index := m.GPUBuffers()
		draws = append(draws, meshDraw{vertex: vertex, index: index, indexCount: uint32(len(m.Indices()))})
	}

	staging := material.NewTextureArray(1).Staging()
	if b.textures != nil {
		staging = b.textures.Staging()
	}
	layers := max(staging.Layers, 1)

	storage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	err := stageUpload(
		b.stageBuffer(sp, roleTriangles, scene.TriangleData(), storage),
		b.stageBuffer(sp, roleVolumes, scene.VolumeData(), storage),
		b.stageBuffer(sp, roleMaterials, scene.MaterialData(), storage),
		b.stageBuffer(sp, roleObjects, objects, storage),
		b.stageTextures(sp, staging, layers),
	)
	if err != nil {
		return err
	}

	b.scene = scene
	b.draws = draws
	logger.Debugf("uploaded %d triangles, %d texture layers", len(scene.Triangles), layers)
	return nil
}

// uploadStep is one resource allocated by an upload. commit stores it and writes its data,
// discard frees it unused.
type uploadStep struct {
	commit  func()
	discard func()
}

// stageUpload runs every allocation before committing any of them. On the first failure the
// steps allocated so far are discarded, so the provider keeps its previous resources.
func stageUpload(allocs ...func() (uploadStep, error)) error {
	steps := make([]uploadStep, 0, len(allocs))
	for _, alloc := range allocs {
		step, err := alloc()
		if err != nil {
			for _, s := range steps {
				if s.discard != nil {
					s.discard()
				}
			}
			return err
		}
		steps = append(steps, step)
	}
	for _, s := range steps {
		if s.commit != nil {
			s.commit()
		}
	}
	return nil
}

// stageBuffer reuses the buffer under role when its size fits data, otherwise allocates a new one.
func (b *wgpuRendererBackendImpl) stageBuffer(provider bind_group_provider.BindGroupProvider, role shader.AnnotationArg, data []byte, usage wgpu.BufferUsage) func() (uploadStep, error) {
	return func() (uploadStep, error) {
		size := max(alignUp(uint64(len(data)), 16), 16)
		buf := provider.Buffer(role)
		write := func() {
			if len(data) > 0 {
				b.queue.WriteBuffer(buf, 0, data)
			}
		}
		if buf != nil && buf.GetSize() == size {
			return uploadStep{commit: write}, nil
		}
		var err error
		if buf, err = b.newBuffer(provider, role, size, usage); err != nil {
			return uploadStep{}, err
		}
		return uploadStep{
			commit: func() {
				provider.SetBuffer(role, buf)
				b.bindGroupsDirty = true
				write()
			},
			discard: buf.Release,
		}, nil
	}
}

// stageTextures reuses the material texture array when its shape matches staging.
func (b *wgpuRendererBackendImpl) stageTextures(provider bind_group_provider.BindGroupProvider, staging common.TextureStagingData, layers uint32) func() (uploadStep, error) {
	return func() (uploadStep, error) {
		tex := provider.Texture(shader.AnnotationArgRoleTextures)
		write := func() {
			b.writeTexture(tex, staging.Pixels, staging.Width*4, staging.Width, staging.Height, layers)
		}
		if tex != nil && layers == b.textureLayers && tex.GetWidth() == staging.Width {
			return uploadStep{commit: write}, nil
		}
		tex, view, err := b.newTexture(provider, shader.AnnotationArgRoleTextures, staging.Width, staging.Height, layers,
			wgpu.TextureFormatRGBA8Unorm, wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst, true)
		if err != nil {
			return uploadStep{}, err
		}
		return uploadStep{
			commit: func() {
				provider.SetTexture(shader.AnnotationArgRoleTextures, tex, view)
				b.bindGroupsDirty = true
				b.textureLayers = layers
				write()
			},
			discard: func() {
				view.Release()
				tex.Release()
			},
		}, nil
	}
}

func (b *wgpuRendererBackendImpl) Resize(cfg raytrace.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	width, height := uint32(cfg.Width), uint32(cfg.Height)
	pixels := uint64(width) * uint64(height)
	rays := b.providers[shader.AnnotationArgRays]
	storage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc

	if err := b.ensureBuffer(rays, roleNodes, uint64(cfg.Capacity())*uint64(new(raytrace.RayNode).Size()), storage); err != nil {
		return err
	}
	if err := b.ensureBuffer(rays, shader.AnnotationArgRoleCounter, 4, storage); err != nil {
		return err
	}
	if err := b.ensureBuffer(rays, shader.AnnotationArgRoleHeads, pixels*4, storage); err != nil {
		return err
	}
	if err := b.ensureBuffer(rays, roleDispatch, uint64(new(raytrace.DispatchArgs).Size()), storage|wgpu.BufferUsageIndirect); err != nil {
		return err
	}
	if err := b.ensureBuffer(b.providers[shader.AnnotationArgOutput], shader.AnnotationArgRoleColor, pixels*16, storage); err != nil {
		return err
	}

	gb := b.providers[shader.AnnotationArgGBuffer]
	targets := []struct {
		role   shader.AnnotationArg
		format wgpu.TextureFormat
	}{
		{shader.AnnotationArgRolePosition, gbufferPositionFormat},
		{shader.AnnotationArgRoleNormal, gbufferNormalFormat},
		{shader.AnnotationArgRoleAlbedo, gbufferAlbedoFormat},
		{shader.AnnotationArgRoleTriangleID, gbufferTriangleFormat},
		{depthRole, gbufferDepthFormat},
	}
	for _, t := range targets {
		if _, err := b.createTexture(gb, t.role, width, height, 1, t.format,
			wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding, false); err != nil {
			return err
		}
	}

	if b.providers[shader.AnnotationArgLights].Texture(shader.AnnotationArgRoleShadowMaps) == nil {
		if err := b.uploadShadowMaps(nil, nil); err != nil {
			return err
		}
	}
	if err := b.ensureBuffer(b.providers[shader.AnnotationArgLights], roleLights, uint64(new(light.GPULight).Size()),
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst); err != nil {
		return err
	}

	b.configureSurface(cfg.Width, cfg.Height)
	b.config = cfg
	return nil
}

// uploadShadowMaps copies every map matching the first map's size into one r32float array layer
// per light. Without maps a single far-plane layer is bound.
func (b *wgpuRendererBackendImpl) uploadShadowMaps(list *renderlist.List, shadows light.ShadowSource) error {
	lp := b.providers[shader.AnnotationArgLights]
	lightCount := 0
	if list != nil {
		lightCount = list.LightCount()
	}

	maps := make([]*light.ShadowMap, lightCount)
	size := 0
	if shadows != nil {
		for i := range lightCount {
			l, ok := list.At(i).AsLight()
			if !ok || !l.CastsShadows() {
				continue
			}
			if m, ok := shadows.ShadowMap(i); ok && m.Size > 0 {
				if size == 0 {
					size = m.Size
				}
				if m.Size == size {
					maps[i] = m
				}
			}
		}
	}

	layers := uint32(max(lightCount, 1))
	edge := uint32(max(size, 1))
	if lp.Texture(shader.AnnotationArgRoleShadowMaps) == nil || layers != b.shadowLayers || size != b.shadowSize {
		if _, err := b.createTexture(lp, shader.AnnotationArgRoleShadowMaps, edge, edge, layers,
			wgpu.TextureFormatR32Float, wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst, true); err != nil {
			return err
		}
		b.shadowLayers, b.shadowSize = layers, size
	}

	texels := int(edge * edge)
	depth := make([]float32, texels*int(layers))
	b.shadowsBound = make([]bool, lightCount)
	for layer := range int(layers) {
		dst := depth[layer*texels : (layer+1)*texels]
		if layer < len(maps) && maps[layer] != nil {
			copy(dst, maps[layer].Depth)
			b.shadowsBound[layer] = true
			continue
		}
		for i := range dst {
			dst[i] = 1
		}
	}
	b.writeTexture(lp.Texture(shader.AnnotationArgRoleShadowMaps), common.SliceToBytes(depth), edge*4, edge, edge, layers)
	return nil
}

func (b *wgpuRendererBackendImpl) uploadLights(list *renderlist.List) error {
	lp := b.providers[shader.AnnotationArgLights]
	data := make([]byte, 0, max(list.LightCount(), 1)*96)
	for i, e := range list.Lights() {
		l, ok := e.AsLight()
		if !ok {
			continue
		}
		g := light.ToGPULight(l, e.World)
		g.Position[3] = 0
		if i < len(b.shadowsBound) && b.shadowsBound[i] {
			g.Position[3] = 1
		}
		data = append(data, g.Marshal()...)
	}
	if err := b.ensureBuffer(lp, roleLights, uint64(len(data)), wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst); err != nil {
		return err
	}
	b.writeBuffers(bind_group_provider.BufferWrite{Provider: lp, Role: roleLights, Data: data})
	return nil
}

func (b *wgpuRendererBackendImpl) writeUniforms(in *FrameInput) {
	u := in.Uniforms(b.scene, b.shadowSize)
	b.writeBuffers(bind_group_provider.BufferWrite{Provider: b.providers[frameIdentity], Role: roleFrame, Data: u.Marshal()})
}

// writeBuffers queues writes to provider buffers. Empty writes are skipped.
func (b *wgpuRendererBackendImpl) writeBuffers(writes ...bind_group_provider.BufferWrite) {
	for _, w := range writes {
		buf := w.Provider.Buffer(w.Role)
		if buf == nil || len(w.Data) == 0 {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

// submit encodes one stage into its own command buffer and waits for the queue to drain, so the
// stage timing covers the GPU work.
func (b *wgpuRendererBackendImpl) submit(stats *profiler.FrameStats, stage profiler.Stage, encode func(encoder *wgpu.CommandEncoder) error) error {
	return stats.Measure(stage, func() error {
		encoder, err := b.device.CreateCommandEncoder(nil)
		if err != nil {
			return err
		}
		defer encoder.Release()
		if err := encode(encoder); err != nil {
			return fmt.Errorf("%s: %w", stage, err)
		}
		commandBuffer, err := encoder.Finish(nil)
		if err != nil {
			return fmt.Errorf("%s: %w", stage, err)
		}
		defer commandBuffer.Release()
		b.queue.Submit(commandBuffer)
		b.device.Poll(true, nil)
		return nil
	})
}

func (b *wgpuRendererBackendImpl) dispatch(encoder *wgpu.CommandEncoder, key string, x, y, z uint32) {
	p := b.pipelines[key]
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p.ComputePipeline())
	for g := range p.BindGroupCount() {
		pass.SetBindGroup(uint32(g), p.BindGroup(g), nil)
	}
	pass.DispatchWorkgroups(x, y, z)
	pass.End()
}

func (b *wgpuRendererBackendImpl) Trace(in *FrameInput, stats *profiler.FrameStats) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.scene == nil {
		return ErrNotMigrated
	}
	if err := b.resolveBindGroups(); err != nil {
		return err
	}
	b.writeUniforms(in)
	rays := b.providers[shader.AnnotationArgRays]
	b.writeBuffers(bind_group_provider.BufferWrite{Provider: rays, Role: shader.AnnotationArgRoleCounter, Data: make([]byte, 4)})

	width, height := uint32(in.Config.Width), uint32(in.Config.Height)
	err := b.submit(stats, profiler.StageRaster, func(encoder *wgpu.CommandEncoder) error {
		gb := b.providers[shader.AnnotationArgGBuffer]
		attachment := func(role shader.AnnotationArg, clearValue wgpu.Color) wgpu.RenderPassColorAttachment {
			return wgpu.RenderPassColorAttachment{
				View:       gb.TextureView(role),
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: clearValue,
			}
		}
		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			ColorAttachments: []wgpu.RenderPassColorAttachment{
				attachment(shader.AnnotationArgRolePosition, wgpu.Color{}),
				attachment(shader.AnnotationArgRoleNormal, wgpu.Color{}),
				attachment(shader.AnnotationArgRoleAlbedo, wgpu.Color{}),
				attachment(shader.AnnotationArgRoleTriangleID, wgpu.Color{R: float64(raytrace.NoTriangle)}),
			},
			DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
				View:            gb.TextureView(depthRole),
				DepthLoadOp:     wgpu.LoadOpClear,
				DepthStoreOp:    wgpu.StoreOpDiscard,
				DepthClearValue: 1.0,
			},
		})
		p := b.pipelines[PipelineGBuffer]
		pass.SetPipeline(p.RenderPipeline())
		for g := range p.BindGroupCount() {
			pass.SetBindGroup(uint32(g), p.BindGroup(g), nil)
		}
		for i, d := range b.draws {
			if d.vertex == nil || d.index == nil || d.indexCount == 0 {
				continue
			}
			pass.SetVertexBuffer(0, d.vertex, 0, wgpu.WholeSize)
			pass.SetIndexBuffer(d.index, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
			pass.DrawIndexed(d.indexCount, 1, 0, 0, uint32(i))
		}
		return pass.End()
	})
	if err != nil {
		return err
	}

	err = b.submit(stats, profiler.StageSpawn, func(encoder *wgpu.CommandEncoder) error {
		b.dispatch(encoder, PipelineSpawn, common.CeilDiv(width, spawnTile), common.CeilDiv(height, spawnTile), 1)
		return nil
	})
	if err != nil {
		return err
	}

	err = b.submit(stats, profiler.StageDispatch, func(encoder *wgpu.CommandEncoder) error {
		b.dispatch(encoder, PipelineDispatch, 1, 1, 1)
		return nil
	})
	if err != nil {
		return err
	}

	if in.Config.MaxBounces > 0 {
		err = b.submit(stats, profiler.StageTrace, func(encoder *wgpu.CommandEncoder) error {
			p := b.pipelines[PipelineTrace]
			pass := encoder.BeginComputePass(nil)
			pass.SetPipeline(p.ComputePipeline())
			for g := range p.BindGroupCount() {
				pass.SetBindGroup(uint32(g), p.BindGroup(g), nil)
			}
			pass.DispatchWorkgroupsIndirect(rays.Buffer(roleDispatch), 0)
			return pass.End()
		})
		if err != nil {
			return err
		}
	}

	counter, dispatch, err := b.readCounters()
	if err != nil {
		return err
	}
	capacity := in.Config.Capacity()
	live := min(counter, capacity)
	stats.Seeds = dispatch.SeedCount
	stats.Nodes = live
	stats.Hits = live - min(dispatch.SeedCount, live)
	if counter > capacity {
		stats.Dropped = counter - capacity
	}
	return nil
}

func (b *wgpuRendererBackendImpl) readCounters() (uint32, raytrace.DispatchArgs, error) {
	rays := b.providers[shader.AnnotationArgRays]
	var dispatch raytrace.DispatchArgs
	counterData, err := b.readBuffer(rays.Buffer(shader.AnnotationArgRoleCounter), 4)
	if err != nil {
		return 0, dispatch, fmt.Errorf("read counter: %w", err)
	}
	dispatchData, err := b.readBuffer(rays.Buffer(roleDispatch), uint64(dispatch.Size()))
	if err != nil {
		return 0, dispatch, fmt.Errorf("read dispatch: %w", err)
	}
	if _, err := binary.Decode(dispatchData, binary.LittleEndian, &dispatch); err != nil {
		return 0, dispatch, fmt.Errorf("decode dispatch: %w", err)
	}
	return binary.LittleEndian.Uint32(counterData), dispatch, nil
}

func (b *wgpuRendererBackendImpl) Composite(in *FrameInput, stats *profiler.FrameStats) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.scene == nil {
		return ErrNotMigrated
	}
	if err := b.uploadShadowMaps(in.List, in.Shadows); err != nil {
		return err
	}
	if err := b.uploadLights(in.List); err != nil {
		return err
	}
	if err := b.resolveBindGroups(); err != nil {
		return err
	}
	b.writeUniforms(in)

	width, height := uint32(in.Config.Width), uint32(in.Config.Height)
	return b.submit(stats, profiler.StageLighting, func(encoder *wgpu.CommandEncoder) error {
		b.dispatch(encoder, PipelineLighting, common.CeilDiv(width, lightingTile), common.CeilDiv(height, lightingTile), 1)
		return nil
	})
}

func (b *wgpuRendererBackendImpl) Output() ([]mgl32.Vec4, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.config.Width * b.config.Height
	data, err := b.readBuffer(b.providers[shader.AnnotationArgOutput].Buffer(shader.AnnotationArgRoleColor), uint64(n)*16)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	colors := make([]mgl32.Vec4, n)
	if _, err := binary.Decode(data, binary.LittleEndian, colors); err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	return colors, nil
}

func (b *wgpuRendererBackendImpl) Frame() (*raytrace.FrameContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cfg := b.config
	f := raytrace.NewFrameContext(cfg.Width, cfg.Height, cfg.MaxBounces, cfg.Capacity())
	rays := b.providers[shader.AnnotationArgRays]

	counter, dispatch, err := b.readCounters()
	if err != nil {
		return nil, err
	}
	live := min(counter, cfg.Capacity())
	if live > 0 {
		nodes, err := b.readBuffer(rays.Buffer(roleNodes), uint64(live)*uint64(new(raytrace.RayNode).Size()))
		if err != nil {
			return nil, fmt.Errorf("read nodes: %w", err)
		}
		if _, err := binary.Decode(nodes, binary.LittleEndian, f.Nodes[:live]); err != nil {
			return nil, fmt.Errorf("decode nodes: %w", err)
		}
	}
	heads, err := b.readBuffer(rays.Buffer(shader.AnnotationArgRoleHeads), uint64(len(f.Heads))*4)
	if err != nil {
		return nil, fmt.Errorf("read heads: %w", err)
	}
	if _, err := binary.Decode(heads, binary.LittleEndian, f.Heads); err != nil {
		return nil, fmt.Errorf("decode heads: %w", err)
	}
	f.Counter.Store(counter)
	f.Dispatch = dispatch
	return f, nil
}

// readBuffer copies the first size bytes of src into a mappable buffer and returns them.
func (b *wgpuRendererBackendImpl) readBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	if src == nil {
		return nil, errors.New("buffer not allocated")
	}
	padded := alignUp(size, 4)
	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Readback Buffer",
		Size:  padded,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Release()
	if err := encoder.CopyBufferToBuffer(src, 0, staging, 0, padded); err != nil {
		return nil, err
	}
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	defer commandBuffer.Release()
	b.queue.Submit(commandBuffer)

	var status wgpu.BufferMapAsyncStatus
	mapped := false
	if err := staging.MapAsync(wgpu.MapModeRead, 0, padded, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		mapped = true
	}); err != nil {
		return nil, err
	}
	for !mapped {
		b.device.Poll(true, nil)
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("map readback buffer: status %d", status)
	}
	data := slices.Clone(staging.GetMappedRange(0, uint(padded))[:size])
	staging.Unmap()
	return data, nil
}

func (b *wgpuRendererBackendImpl) Present(in *FrameInput) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.pipelines[PipelinePresent]
	if b.surface == nil || p == nil {
		return ErrNoSurface
	}
	if err := b.resolveBindGroups(); err != nil {
		return err
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	defer surfaceTexture.Release()
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return err
	}
	defer view.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{A: 1},
			},
		},
	})
	pass.SetPipeline(p.RenderPipeline())
	for g := range p.BindGroupCount() {
		pass.SetBindGroup(uint32(g), p.BindGroup(g), nil)
	}
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		return err
	}
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer commandBuffer.Release()
	b.queue.Submit(commandBuffer)
	b.surface.Present()
	return nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, p := range b.pipelines {
		p.Release()
		delete(b.pipelines, key)
	}
	for id, p := range b.providers {
		p.Release()
		delete(b.providers, id)
	}
	for _, buf := range b.meshBuffers {
		buf.Release()
	}
	b.meshBuffers = nil
	b.draws = nil
	b.scene = nil

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// ListAdapters enumerates the WebGPU adapters of the system.
//
// Returns:
//   - []string: one "name (backend, type)" line per adapter
func ListAdapters() []string {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapters := instance.EnumerateAdapters(nil)
	out := make([]string, 0, len(adapters))
	for _, a := range adapters {
		info := a.GetInfo()
		out = append(out, fmt.Sprintf("%s (%v, %v)", info.Name, info.BackendType, info.AdapterType))
		a.Release()
	}
	return out
}

func alignUp(n, align uint64) uint64 {
	return (n + align - 1) / align * align
}

// mergeBindGroupLayouts combines the bind group layouts of a vertex and a fragment shader. Groups
// used by both stages get the union of their entries, with the visibility of shared bindings ORed.
func mergeBindGroupLayouts(
	vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor,
) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)

	groupIndices := make(map[int]bool)
	for g := range vertexLayouts {
		groupIndices[g] = true
	}
	for g := range fragmentLayouts {
		groupIndices[g] = true
	}

	for g := range groupIndices {
		vDesc, hasV := vertexLayouts[g]
		fDesc, hasF := fragmentLayouts[g]

		switch {
		case hasV && !hasF:
			merged[g] = vDesc
		case hasF && !hasV:
			merged[g] = fDesc
		default:
			entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry)
			for _, e := range vDesc.Entries {
				entryMap[e.Binding] = e
			}
			for _, e := range fDesc.Entries {
				if existing, ok := entryMap[e.Binding]; ok {
					existing.Visibility |= e.Visibility
					entryMap[e.Binding] = existing
				} else {
					entryMap[e.Binding] = e
				}
			}

			entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
			for _, e := range entryMap {
				entries = append(entries, e)
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].Binding < entries[j].Binding
			})

			merged[g] = wgpu.BindGroupLayoutDescriptor{
				Label:   vDesc.Label,
				Entries: entries,
			}
		}
	}

	return merged
}
