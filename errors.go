package layerkit

import "errors"

// Errors shared by the layerkit packages. Operations that fail with one of
// these leave all state unchanged.
var (
	// ErrLayerNotFound is returned for an unknown layer id or index.
	ErrLayerNotFound = errors.New("layerkit: layer not found")

	// ErrIndexOutOfRange is returned for a position outside the layer order.
	ErrIndexOutOfRange = errors.New("layerkit: index out of range")

	// ErrNotFolder is returned when a folder operation targets another kind.
	ErrNotFolder = errors.New("layerkit: layer is not a folder")

	// ErrNotDrawing is returned when a stroke operation targets a layer
	// that cannot hold strokes.
	ErrNotDrawing = errors.New("layerkit: layer is not a drawing layer")

	// ErrBackgroundLayer is returned when an operation would select, hide,
	// move, fade or delete the background layer.
	ErrBackgroundLayer = errors.New("layerkit: background layer is fixed")

	// ErrLastLayer is returned when a delete would leave no drawable layer.
	ErrLastLayer = errors.New("layerkit: cannot delete the last layer")

	// ErrFolderCycle is returned when a folder would contain itself.
	ErrFolderCycle = errors.New("layerkit: folder cannot contain itself")

	// ErrInvalidValue is returned for a non-finite numeric argument.
	ErrInvalidValue = errors.New("layerkit: invalid value")

	// ErrNoRenderer is returned by operations that need a renderer when
	// none was configured.
	ErrNoRenderer = errors.New("layerkit: no renderer")
)
