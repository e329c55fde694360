package mesh

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestSphereGeometry(t *testing.T) {
	tests := []struct {
		name      string
		flat      bool
		wantFaces int
	}{
		{"smooth", false, 2*8*(6-1)},
		{"flat", true, 2*8*(6-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSphere("s", 2, 6, 8, tt.flat, nil)
			if got := m.FaceCount(); got != tt.wantFaces {
				t.Errorf("FaceCount() = %d, want %d", got, tt.wantFaces)
			}
			if got := m.BoundingRadius(); math.Abs(float64(got-2)) > 1e-5 {
				t.Errorf("BoundingRadius() = %v, want 2", got)
			}
			if !m.HasGeometry() {
				t.Error("HasGeometry() = false")
			}
			if m.Material() == nil {
				t.Error("Material() = nil, want default material")
			}
		})
	}
}

func TestFlatSphereNormalsPointOutward(t *testing.T) {
	m := NewSphere("s", 1, 5, 7, true, nil)
	v, idx := m.Vertices(), m.Indices()
	for i := 0; i < len(idx); i += 3 {
		a, b, c := v[idx[i]], v[idx[i+1]], v[idx[i+2]]
		face := b.Pos().Sub(a.Pos()).Cross(c.Pos().Sub(a.Pos())).Normalize()
		n := a.UnpackNormal()
		if face.Dot(n) < 0.99 {
			t.Fatalf("face %d: packed normal %v differs from face normal %v", i/3, n, face)
		}
		centroid := a.Pos().Add(b.Pos()).Add(c.Pos()).Mul(1.0 / 3)
		if face.Dot(centroid) <= 0 {
			t.Fatalf("face %d winds inward", i/3)
		}
	}
}

func TestPrimitiveTangentsAreOrthogonal(t *testing.T) {
	for _, m := range []Mesh{
		NewPlane("p", 4, 2, nil),
		NewCube("c", 1, nil),
		NewRing("r", 1, 0.25, 12, 6, nil),
	} {
		for i, v := range m.Vertices() {
			n := v.UnpackNormal()
			tg := v.UnpackTangent()
			if d := n.Dot(tg.Vec3()); math.Abs(float64(d)) > 0.02 {
				t.Fatalf("%s vertex %d: normal . tangent = %v", m.Name(), i, d)
			}
			if tg.W() != 1 && tg.W() != -1 {
				t.Fatalf("%s vertex %d: handedness %v", m.Name(), i, tg.W())
			}
		}
	}
}

func TestHasGeometryRejectsBrokenIndices(t *testing.T) {
	v := []Vertex{NewVertex(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, mgl32.Vec2{}, mgl32.Vec4{1, 0, 0, 1})}
	tests := []struct {
		name    string
		indices []uint32
	}{
		{"empty", nil},
		{"not a multiple of three", []uint32{0, 0}},
		{"out of range", []uint32{0, 0, 1}},
	}
	for _, tt := range tests {
		if NewMesh(WithGeometry(v, tt.indices)).HasGeometry() {
			t.Errorf("%s: HasGeometry() = true", tt.name)
		}
	}
}

func TestVertexMarshalRoundTripsThroughReadback(t *testing.T) {
	m := NewCube("c", 2, nil)
	var data []byte
	for _, v := range m.Vertices() {
		data = append(data, v.Marshal()...)
	}
	if len(data) != len(m.VertexData()) {
		t.Fatalf("marshalled %d bytes, in-memory layout is %d", len(data), len(m.VertexData()))
	}
	got := UnmarshalVertices(m.VertexData())
	for i := range got {
		if got[i] != m.Vertices()[i] {
			t.Fatalf("vertex %d = %+v, want %+v", i, got[i], m.Vertices()[i])
		}
	}
	if idx := UnmarshalIndices(m.IndexData()); len(idx) != len(m.Indices()) || idx[5] != m.Indices()[5] {
		t.Errorf("UnmarshalIndices() mismatch")
	}
}

func TestGPUObjectLayout(t *testing.T) {
	world := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(2, 2, 2))
	o := NewGPUObject(world, 4, 96)
	data := o.Marshal()
	if o.Size() != 144 || len(data) != 144 {
		t.Errorf("Size() = %d, len(Marshal()) = %d, want 144", o.Size(), len(data))
	}
	if got := binary.LittleEndian.Uint32(data[132:]); got != 96 {
		t.Errorf("FirstTriangle at offset 132 = %d, want 96", got)
	}
	if o.Normal[0] != 0.5 || o.Normal[15] != 1 {
		t.Errorf("normal matrix diag = %v, %v, want 0.5, 1", o.Normal[0], o.Normal[15])
	}
}
