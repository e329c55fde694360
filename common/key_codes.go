package common

// Key codes used by the interactive viewer. Printable keys match their ASCII value,
// the rest match the GLFW key constants.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyW     = 87
	KeyA     = 65
	KeyS     = 83
	KeyD     = 68
	KeyQ     = 81
	KeyE     = 69
	KeyP     = 80 // save the current frame
	KeyR     = 82 // mark the scene dirty and re-migrate
	KeySpace = 32 // pause the scene animation
	KeyEsc   = 256
)

// LightMoveKeys maps the keys that move the controlled light to a unit direction in world space.
var LightMoveKeys = map[int][3]float32{
	KeyW: {0, 0, -1},
	KeyS: {0, 0, 1},
	KeyA: {-1, 0, 0},
	KeyD: {1, 0, 0},
	KeyQ: {0, -1, 0},
	KeyE: {0, 1, 0},
}
