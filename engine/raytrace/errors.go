package raytrace

import "errors"

var (
	// ErrEmptyRenderList is returned when migration receives a nil or empty render list.
	ErrEmptyRenderList = errors.New("render list is empty")

	// ErrNotRenderable is returned when an element at a mesh position is not a mesh, or the mesh
	// has no readable geometry.
	ErrNotRenderable = errors.New("render list element is not a renderable mesh")

	// ErrChainTooLong is returned when a ray chain exceeds the bounce limit or revisits a slot.
	ErrChainTooLong = errors.New("ray chain exceeds bounce limit")
)
