package renderer

import "errors"

var (
	// ErrNotMigrated is returned when a frame stage runs before any scene was migrated.
	ErrNotMigrated = errors.New("renderer: no migrated scene")

	// ErrInvalidCamera is returned when the camera matrices cannot produce a frame.
	ErrInvalidCamera = errors.New("renderer: invalid camera")

	// ErrBackendUnavailable is returned when the requested backend cannot be created, e.g. no
	// adapter was found.
	ErrBackendUnavailable = errors.New("renderer: backend unavailable")

	// ErrNotTraced is returned by Composite when no frame was traced since the last resize.
	ErrNotTraced = errors.New("renderer: no traced frame")

	// ErrNoSurface is returned by Present when the renderer has no window surface.
	ErrNoSurface = errors.New("renderer: no surface to present to")
)
