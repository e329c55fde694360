package renderlist

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

func TestAddKeepsLightsFirst(t *testing.T) {
	m1 := mesh.NewCube("a", 1, nil)
	m2 := mesh.NewCube("b", 1, nil)
	l1 := light.NewLight(light.WithName("l1"))
	l2 := light.NewLight(light.WithName("l2"))

	list := NewList(
		MeshElement(m1, mgl32.Ident4()),
		LightElement(l1, mgl32.Ident4()),
		MeshElement(m2, mgl32.Ident4()),
		LightElement(l2, mgl32.Ident4()),
	)

	if list.Len() != 4 || list.LightCount() != 2 || list.MeshCount() != 2 {
		t.Fatalf("counts = (%d, %d, %d), want (4, 2, 2)", list.Len(), list.LightCount(), list.MeshCount())
	}
	wantNames := []string{"l1", "l2", "a", "b"}
	for i, want := range wantNames {
		e := list.At(i)
		var got string
		if l, ok := e.AsLight(); ok {
			got = l.Name()
		} else if m, ok := e.AsMesh(); ok {
			got = m.Name()
		}
		if got != want {
			t.Errorf("At(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestElementAccessors(t *testing.T) {
	e := LightElement(light.NewLight(), mgl32.Ident4())
	if _, ok := e.AsMesh(); ok {
		t.Errorf("AsMesh() on a light ok = true, want false")
	}
	if _, ok := e.AsLight(); !ok {
		t.Errorf("AsLight() ok = false, want true")
	}
	empty := Element{Kind: KindMesh}
	if _, ok := empty.AsMesh(); ok {
		t.Errorf("AsMesh() on an empty mesh element ok = true, want false")
	}
}

func TestFlattenComposesMatrices(t *testing.T) {
	root := NewNode("root")
	root.Local = mgl32.Translate3D(1, 0, 0)
	child := root.AddChild(NewNode("child"))
	child.Local = mgl32.Translate3D(0, 2, 0)
	child.Mesh = mesh.NewCube("cube", 1, nil)
	lamp := root.AddChild(NewNode("lamp"))
	lamp.Light = light.NewLight()

	list := root.Flatten()
	if list.LightCount() != 1 || list.Len() != 2 {
		t.Fatalf("Flatten() counts = (%d, %d), want (1, 2)", list.LightCount(), list.Len())
	}
	got := list.At(1).World.Col(3).Vec3()
	want := mgl32.Vec3{1, 2, 0}
	if !got.ApproxEqual(want) {
		t.Errorf("Flatten() mesh translation = %v, want %v", got, want)
	}
}
