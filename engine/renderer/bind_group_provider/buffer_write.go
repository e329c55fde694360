package bind_group_provider

import "github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"

// BufferWrite describes a single GPU buffer write targeting the buffer stored under a role on a
// BindGroupProvider, at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Role     shader.AnnotationArg
	Offset   uint64
	Data     []byte
}
