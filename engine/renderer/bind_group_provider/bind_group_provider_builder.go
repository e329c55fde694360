package bind_group_provider

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithLabel overrides the debug label, which defaults to the provider identity.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - BindGroupProviderOption: a function that sets the label for this provider
func WithLabel(label string) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.label = label
	}
}

// WithBuffer stores a buffer under a binding role.
//
// Parameters:
//   - role: the binding role for this buffer
//   - buf: the buffer to associate with the role
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified role
func WithBuffer(role shader.AnnotationArg, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[role] = buf
	}
}

// WithBuffers stores multiple buffers keyed by binding role.
//
// Parameters:
//   - buffers: a map of binding roles to buffers
//
// Returns:
//   - BindGroupProviderOption: a function that sets multiple buffers for this provider
func WithBuffers(buffers map[shader.AnnotationArg]*wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		for role, buf := range buffers {
			p.buffers[role] = buf
		}
	}
}
