package renderlist

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

// Node is a scene graph node. Its local matrix is applied after its parent's, and it may carry a
// light, a mesh, or nothing.
type Node struct {
	Name     string
	Local    mgl32.Mat4
	Light    light.Light
	Mesh     mesh.Mesh
	Children []*Node
}

// NewNode creates a node with an identity local matrix.
func NewNode(name string) *Node {
	return &Node{Name: name, Local: mgl32.Ident4()}
}

// AddChild attaches child and returns it.
func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

// Flatten walks the graph depth first and returns the render list with world matrices resolved.
// Nodes are not culled.
func (n *Node) Flatten() *List {
	list := &List{}
	n.flatten(mgl32.Ident4(), list)
	return list
}

func (n *Node) flatten(parent mgl32.Mat4, list *List) {
	if n == nil {
		return
	}
	world := parent.Mul4(n.Local)
	if n.Light != nil {
		list.Add(LightElement(n.Light, world))
	}
	if n.Mesh != nil {
		list.Add(MeshElement(n.Mesh, world))
	}
	for _, c := range n.Children {
		c.flatten(world, list)
	}
}
