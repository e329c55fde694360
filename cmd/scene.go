package cmd

import (
	"image"
	"image/color"
	"math"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/mesh"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderlist"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	textureLayerSize = 256
	checkerTiles     = 8

	// Radians per second.
	ringSpin float32 = 0.6
)

var ringOffset = mgl32.Vec3{2.6, 1.2, -0.5}

// demoScene is the built-in scene rendered by every command: a glossy textured floor, a mirror
// sphere, a spinning ring and two shadowed lights.
type demoScene struct {
	root     *renderlist.Node
	ring     *renderlist.Node
	key      light.Light
	textures *material.TextureArray
	angle    float32
}

// newDemoScene builds the scene graph. A non-empty floorTexture replaces the generated checker
// pattern with an image file.
func newDemoScene(floorTexture string) (*demoScene, error) {
	textures := material.NewTextureArray(textureLayerSize)

	var floorLayer uint32
	if floorTexture != "" {
		layer, err := textures.Register(common.TextureSource{Name: "floor", Path: floorTexture})
		if err != nil {
			return nil, err
		}
		floorLayer = layer
	} else {
		floorLayer = textures.AddImage("checker", checkerImage(textureLayerSize, checkerTiles))
	}

	floorMat := material.NewMaterial(
		material.WithName("floor"),
		material.WithAlbedo(mgl32.Vec4{1, 1, 1, 1}),
		material.WithRoughness(0.2),
		material.WithTexture(material.TextureAlbedo, floorLayer),
	)
	mirrorMat := material.NewMaterial(
		material.WithName("mirror"),
		material.WithAlbedo(mgl32.Vec4{0.95, 0.95, 0.95, 1}),
		material.WithMetalness(1),
		material.WithRoughness(0),
	)
	goldMat := material.NewMaterial(
		material.WithName("gold"),
		material.WithAlbedo(mgl32.Vec4{1, 0.77, 0.34, 1}),
		material.WithMetalness(1),
		material.WithRoughness(0.15),
	)
	clayMat := material.NewMaterial(
		material.WithName("clay"),
		material.WithAlbedo(mgl32.Vec4{0.7, 0.25, 0.2, 1}),
		material.WithRoughness(0.9),
	)

	key := light.NewLight(
		light.WithName("key"),
		light.WithPosition(3, 7, 5),
		light.WithTarget(0, 0, 0),
		light.WithIntensity(60),
	)
	fill := light.NewLight(
		light.WithName("fill"),
		light.WithPosition(-6, 5, -2),
		light.WithTarget(0, 0, 0),
		light.WithColor(0.6, 0.7, 1),
		light.WithIntensity(25),
	)

	root := renderlist.NewNode("root")
	root.AddChild(&renderlist.Node{Name: "key", Local: mgl32.Ident4(), Light: key})
	root.AddChild(&renderlist.Node{Name: "fill", Local: mgl32.Ident4(), Light: fill})
	root.AddChild(&renderlist.Node{
		Name:  "floor",
		Local: mgl32.Ident4(),
		Mesh:  mesh.NewPlane("floor", 16, 4, floorMat),
	})
	root.AddChild(&renderlist.Node{
		Name:  "mirror",
		Local: mgl32.Translate3D(0, 1, 0),
		Mesh:  mesh.NewSphere("mirror", 1, 24, 48, false, mirrorMat),
	})
	root.AddChild(&renderlist.Node{
		Name:  "block",
		Local: mgl32.Translate3D(-2.4, 0.6, 0.8).Mul4(mgl32.HomogRotate3DY(0.5)),
		Mesh:  mesh.NewCube("block", 1.2, clayMat),
	})
	ring := root.AddChild(&renderlist.Node{
		Name: "ring",
		Mesh: mesh.NewRing("ring", 0.9, 0.25, 48, 16, goldMat),
	})

	s := &demoScene{root: root, ring: ring, key: key, textures: textures}
	s.placeRing()
	return s, nil
}

// advance spins the ring by dt seconds.
func (s *demoScene) advance(dt float32) {
	s.angle = float32(math.Mod(float64(s.angle+ringSpin*dt), 2*math.Pi))
	s.placeRing()
}

func (s *demoScene) placeRing() {
	s.ring.Local = mgl32.Translate3D(ringOffset.X(), ringOffset.Y(), ringOffset.Z()).
		Mul4(mgl32.HomogRotate3DY(s.angle)).
		Mul4(mgl32.HomogRotate3DX(math.Pi / 2))
}

func checkerImage(size, tiles int) *image.RGBA {
	bright := color.RGBA{R: 230, G: 230, B: 225, A: 255}
	dark := color.RGBA{R: 40, G: 45, B: 55, A: 255}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	cell := max(size/tiles, 1)
	for y := range size {
		for x := range size {
			if (x/cell+y/cell)%2 == 0 {
				img.SetRGBA(x, y, bright)
			} else {
				img.SetRGBA(x, y, dark)
			}
		}
	}
	return img
}
