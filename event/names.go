package event

import (
	"github.com/gogpu/layerkit"
)

// Name identifies an event kind.
type Name string

// Event names published or consumed by the layer packages.
const (
	LayerCreated            Name = "layer:created"
	LayerDeleted            Name = "layer:deleted"
	LayerActivated          Name = "layer:activated"
	LayerUpdated            Name = "layer:updated"
	LayerTransformConfirmed Name = "layer:transform-confirmed"
	LayerVisibilityChanged  Name = "layer:visibility-changed"
	LayerOpacityChanged     Name = "layer:opacity-changed"
	LayerReordered          Name = "layer:reordered"
	LayerStrokeAdded        Name = "layer:stroke-added"
	FolderCreated           Name = "folder:created"
	FolderToggled           Name = "folder:toggled"
	ThumbnailLayerUpdated   Name = "thumbnail:layer-updated"
	FrameUpdated            Name = "frame:updated"
	TransformModeChanged    Name = "transform:mode-changed"
	HistoryChanged          Name = "history:changed"

	// LayerTextureUpdated is inbound: an external renderer delivers a
	// finished texture for a layer.
	LayerTextureUpdated Name = "layer:texture-updated"
)

// Layer ids travel as plain strings so the bus does not depend on the
// layer package.

// LayerCreatedPayload accompanies LayerCreated.
type LayerCreatedPayload struct {
	LayerID      string
	Name         string
	IsBackground bool
}

// LayerDeletedPayload accompanies LayerDeleted.
type LayerDeletedPayload struct {
	LayerID    string
	LayerIndex int
}

// LayerActivatedPayload accompanies LayerActivated.
type LayerActivatedPayload struct {
	LayerIndex int
	OldIndex   int
	LayerID    string
}

// LayerUpdatedPayload accompanies LayerUpdated.
type LayerUpdatedPayload struct {
	LayerID   string
	Transform layerkit.Transform
}

// LayerPayload accompanies events that only name a layer:
// LayerTransformConfirmed and LayerStrokeAdded.
type LayerPayload struct {
	LayerID string
}

// VisibilityPayload accompanies LayerVisibilityChanged.
type VisibilityPayload struct {
	LayerID string
	Visible bool
}

// OpacityPayload accompanies LayerOpacityChanged.
type OpacityPayload struct {
	LayerID string
	Opacity float64
}

// ReorderedPayload accompanies LayerReordered.
type ReorderedPayload struct {
	FromIndex int
	ToIndex   int
}

// FolderPayload accompanies FolderCreated and FolderToggled.
type FolderPayload struct {
	FolderID string
	Name     string
	Expanded bool
}

// ThumbnailPayload accompanies ThumbnailLayerUpdated.
type ThumbnailPayload struct {
	LayerIndex int
	LayerID    string
}

// FramePayload accompanies FrameUpdated.
type FramePayload struct {
	FrameID string
}

// ModePayload accompanies TransformModeChanged. Active doubles as the
// alignment-guide visibility.
type ModePayload struct {
	Active bool
}

// HistoryPayload accompanies HistoryChanged.
type HistoryPayload struct {
	CanUndo bool
	CanRedo bool
	Len     int
}

// TexturePayload accompanies LayerTextureUpdated. Texture is owned by the
// receiver after delivery. Version, when non-zero, must increase per layer;
// older deliveries are discarded.
type TexturePayload struct {
	LayerID string
	Texture any
	Version uint64
}
