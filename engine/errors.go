package engine

import "errors"

var (
	// ErrMissingRenderer is returned by NewEngine without WithRenderer.
	ErrMissingRenderer = errors.New("engine: no renderer")

	// ErrMissingCamera is returned by NewEngine without WithCamera.
	ErrMissingCamera = errors.New("engine: no camera")

	// ErrMissingScene is returned by NewEngine without WithRoot.
	ErrMissingScene = errors.New("engine: no scene graph")

	// ErrNoWindow is returned by Run on an engine built without a window.
	ErrNoWindow = errors.New("engine: no window")
)
