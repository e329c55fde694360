package bind_group_provider

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string
	// identity is the provider identity shader annotations refer to.
	identity shader.AnnotationArg

	// The following fields are GPU allocated resources owned by the provider and released with it.

	// buffers holds the GPU buffers of this provider, keyed by binding role.
	buffers map[shader.AnnotationArg]*wgpu.Buffer
	// textures holds the GPU textures of this provider, keyed by binding role.
	textures map[shader.AnnotationArg]*wgpu.Texture
	// textureViews holds the views bound for each texture role.
	textureViews map[shader.AnnotationArg]*wgpu.TextureView
}

// BindGroupProvider is a named set of GPU resources addressed by binding role. Shaders declare
// which provider and role each binding expects; the renderer resolves the declarations of a
// pipeline against its providers to build bind groups, so the same buffer can sit at different
// group and binding numbers in different kernels.
//
// Usage pattern:
//  1. The renderer creates one provider per resource family (scene, rays, gbuffer, ...)
//  2. Resources are created and stored with SetBuffer/SetTexture under their role
//  3. Bind groups are built by calling Entry for every declaration of a pipeline
//  4. Release frees every resource once the provider is replaced or the renderer shuts down
type BindGroupProvider interface {
	// Release releases every GPU resource held by this provider and empties it.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Identity returns the provider identity used by @oxy:provider annotations.
	//
	// Returns:
	//   - shader.AnnotationArg: the identity
	Identity() shader.AnnotationArg

	// Buffer returns the buffer stored under a role.
	//
	// Parameters:
	//   - role: the binding role
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer, or nil if none is stored
	Buffer(role shader.AnnotationArg) *wgpu.Buffer

	// Texture returns the texture stored under a role.
	//
	// Parameters:
	//   - role: the binding role
	//
	// Returns:
	//   - *wgpu.Texture: the texture, or nil if none is stored
	Texture(role shader.AnnotationArg) *wgpu.Texture

	// TextureView returns the texture view stored under a role.
	//
	// Parameters:
	//   - role: the binding role
	//
	// Returns:
	//   - *wgpu.TextureView: the view, or nil if none is stored
	TextureView(role shader.AnnotationArg) *wgpu.TextureView

	// Has reports whether any resource is stored under a role.
	//
	// Parameters:
	//   - role: the binding role
	//
	// Returns:
	//   - bool: true if a buffer or texture view is stored
	Has(role shader.AnnotationArg) bool

	// Roles returns every role with a stored resource, in no particular order.
	//
	// Returns:
	//   - []shader.AnnotationArg: the roles
	Roles() []shader.AnnotationArg

	// SetBuffer stores a buffer under a role. A previous buffer under the same role is released.
	//
	// Parameters:
	//   - role: the binding role
	//   - buf: the buffer to store
	SetBuffer(role shader.AnnotationArg, buf *wgpu.Buffer)

	// SetTexture stores a texture and the view bound for it under a role. A previous texture
	// and view under the same role are released.
	//
	// Parameters:
	//   - role: the binding role
	//   - tex: the texture to store
	//   - view: the view bound in bind groups
	SetTexture(role shader.AnnotationArg, tex *wgpu.Texture, view *wgpu.TextureView)

	// Entry builds the bind group entry for a role at a binding index.
	//
	// Parameters:
	//   - binding: the binding index within the group
	//   - role: the binding role
	//
	// Returns:
	//   - wgpu.BindGroupEntry: the entry, binding the whole buffer for buffer roles
	//   - bool: false if nothing is stored under the role
	Entry(binding int, role shader.AnnotationArg) (wgpu.BindGroupEntry, bool)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty BindGroupProvider.
//
// Parameters:
//   - identity: the provider identity annotations refer to
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(identity shader.AnnotationArg, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        string(identity),
		identity:     identity,
		buffers:      make(map[shader.AnnotationArg]*wgpu.Buffer),
		textures:     make(map[shader.AnnotationArg]*wgpu.Texture),
		textureViews: make(map[shader.AnnotationArg]*wgpu.TextureView),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Identity() shader.AnnotationArg {
	return p.identity
}

func (p *bindGroupProvider) Buffer(role shader.AnnotationArg) *wgpu.Buffer {
	return p.buffers[role]
}

func (p *bindGroupProvider) Texture(role shader.AnnotationArg) *wgpu.Texture {
	return p.textures[role]
}

func (p *bindGroupProvider) TextureView(role shader.AnnotationArg) *wgpu.TextureView {
	return p.textureViews[role]
}

func (p *bindGroupProvider) Has(role shader.AnnotationArg) bool {
	return p.buffers[role] != nil || p.textureViews[role] != nil
}

func (p *bindGroupProvider) Roles() []shader.AnnotationArg {
	roles := make([]shader.AnnotationArg, 0, len(p.buffers)+len(p.textureViews))
	for r, b := range p.buffers {
		if b != nil {
			roles = append(roles, r)
		}
	}
	for r, v := range p.textureViews {
		if v != nil {
			roles = append(roles, r)
		}
	}
	return roles
}

func (p *bindGroupProvider) SetBuffer(role shader.AnnotationArg, buf *wgpu.Buffer) {
	if old := p.buffers[role]; old != nil && old != buf {
		old.Release()
	}
	p.buffers[role] = buf
}

func (p *bindGroupProvider) SetTexture(role shader.AnnotationArg, tex *wgpu.Texture, view *wgpu.TextureView) {
	if old := p.textureViews[role]; old != nil && old != view {
		old.Release()
	}
	if old := p.textures[role]; old != nil && old != tex {
		old.Release()
	}
	p.textures[role] = tex
	p.textureViews[role] = view
}

func (p *bindGroupProvider) Entry(binding int, role shader.AnnotationArg) (wgpu.BindGroupEntry, bool) {
	if buf := p.buffers[role]; buf != nil {
		return wgpu.BindGroupEntry{Binding: uint32(binding), Buffer: buf, Offset: 0, Size: wgpu.WholeSize}, true
	}
	if view := p.textureViews[role]; view != nil {
		return wgpu.BindGroupEntry{Binding: uint32(binding), TextureView: view}, true
	}
	return wgpu.BindGroupEntry{}, false
}

func (p *bindGroupProvider) Release() {
	for r, tv := range p.textureViews {
		if tv != nil {
			tv.Release()
		}
		delete(p.textureViews, r)
	}
	for r, tex := range p.textures {
		if tex != nil {
			tex.Release()
		}
		delete(p.textures, r)
	}
	for r, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, r)
	}
}
