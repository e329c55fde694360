// Package renderlist holds the flat, ordered list of lights and meshes the renderer consumes, and a
// minimal scene graph that flattens into it.
package renderlist

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

// Kind tags the variant held by an Element.
type Kind int

const (
	// KindLight marks an element carrying a light.
	KindLight Kind = iota

	// KindMesh marks an element carrying a mesh.
	KindMesh
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindLight:
		return "light"
	case KindMesh:
		return "mesh"
	default:
		return "unknown"
	}
}

// Element is one entry of the render list: either a light or a mesh, placed by a world matrix.
type Element struct {
	Kind  Kind
	Light light.Light
	Mesh  mesh.Mesh
	World mgl32.Mat4
}

// LightElement wraps a light placed by world.
func LightElement(l light.Light, world mgl32.Mat4) Element {
	return Element{Kind: KindLight, Light: l, World: world}
}

// MeshElement wraps a mesh placed by world.
func MeshElement(m mesh.Mesh, world mgl32.Mat4) Element {
	return Element{Kind: KindMesh, Mesh: m, World: world}
}

// AsLight returns the light when the element is a light.
func (e Element) AsLight() (light.Light, bool) {
	if e.Kind != KindLight || e.Light == nil {
		return nil, false
	}
	return e.Light, true
}

// AsMesh returns the mesh when the element is a mesh.
func (e Element) AsMesh() (mesh.Mesh, bool) {
	if e.Kind != KindMesh || e.Mesh == nil {
		return nil, false
	}
	return e.Mesh, true
}

// List is an ordered render list. All lights precede all meshes, so the mesh at list position i
// owns material index i - LightCount().
type List struct {
	elements   []Element
	lightCount int
}

// NewList creates a list from elements, reordering lights ahead of meshes while keeping the
// relative order within each kind.
func NewList(elements ...Element) *List {
	l := &List{}
	for _, e := range elements {
		l.Add(e)
	}
	return l
}

// Add appends an element. Lights are inserted after the last light and before the first mesh.
func (l *List) Add(e Element) {
	if e.Kind != KindLight {
		l.elements = append(l.elements, e)
		return
	}
	l.elements = append(l.elements, Element{})
	copy(l.elements[l.lightCount+1:], l.elements[l.lightCount:])
	l.elements[l.lightCount] = e
	l.lightCount++
}

// Len returns the number of elements.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.elements)
}

// LightCount returns the number of leading light elements.
func (l *List) LightCount() int {
	if l == nil {
		return 0
	}
	return l.lightCount
}

// MeshCount returns the number of elements after the lights.
func (l *List) MeshCount() int {
	return l.Len() - l.LightCount()
}

// At returns the element at position i.
func (l *List) At(i int) Element {
	return l.elements[i]
}

// Lights returns the light elements in order.
func (l *List) Lights() []Element {
	if l == nil {
		return nil
	}
	return l.elements[:l.lightCount]
}
