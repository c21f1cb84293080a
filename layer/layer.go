package layer

import (
	"image/color"
	"slices"

	"github.com/google/uuid"

	"github.com/gogpu/layerkit"
	"github.com/gogpu/layerkit/stroke"
)

// ID uniquely identifies a layer within a session.
type ID string

// NewID returns a fresh random layer id.
func NewID() ID { return ID(uuid.NewString()) }

// Kind identifies the variant of a layer.
type Kind uint8

// Kind constants.
const (
	// KindDrawing holds strokes and an optional alpha mask.
	KindDrawing Kind = iota

	// KindBackground is the fixed paper layer at the bottom of the stack.
	KindBackground

	// KindFolder groups other layers.
	KindFolder
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindDrawing:
		return "Drawing"
	case KindBackground:
		return "Background"
	case KindFolder:
		return "Folder"
	default:
		return "Unknown"
	}
}

// Content is the kind-specific part of a layer. The set of implementations
// is closed: *Background, *Drawing and *Folder.
type Content interface {
	Kind() Kind
	clone() Content
}

// Background is the content of the background layer.
type Background struct {
	Color color.RGBA
}

// Kind implements Content.
func (*Background) Kind() Kind { return KindBackground }

func (b *Background) clone() Content {
	c := *b
	return &c
}

// Drawing is the content of a drawing layer.
type Drawing struct {
	Strokes []*stroke.Stroke

	// Mask is the optional alpha-clip region. It is a render resource
	// managed by MaskCompositor and is not part of history snapshots.
	Mask *layerkit.Mask
}

// Kind implements Content.
func (*Drawing) Kind() Kind { return KindDrawing }

func (d *Drawing) clone() Content {
	return &Drawing{Strokes: stroke.CloneAll(d.Strokes), Mask: d.Mask.Clone()}
}

// Folder is the content of a folder layer.
type Folder struct {
	// Children lists member ids in traversal order. It is independent of
	// the registry's physical order.
	Children []ID
	Expanded bool
}

// Kind implements Content.
func (*Folder) Kind() Kind { return KindFolder }

func (f *Folder) clone() Content {
	return &Folder{Children: slices.Clone(f.Children), Expanded: f.Expanded}
}

// Layer is one entry of a Registry.
type Layer struct {
	ID       ID
	Name     string
	Visible  bool
	Opacity  float64
	ParentID ID

	// Transform is the layer's own placement. It mirrors the live
	// transform while in move mode and is identity otherwise.
	Transform layerkit.Transform

	Content Content
}

func newLayer(name string, content Content) *Layer {
	return &Layer{
		ID:        NewID(),
		Name:      name,
		Visible:   true,
		Opacity:   1,
		Transform: layerkit.IdentityTransform(),
		Content:   content,
	}
}

// Kind returns the variant of the layer.
func (l *Layer) Kind() Kind { return l.Content.Kind() }

// IsBackground reports whether l is the background layer.
func (l *Layer) IsBackground() bool { return l.Kind() == KindBackground }

// IsFolder reports whether l is a folder.
func (l *Layer) IsFolder() bool { return l.Kind() == KindFolder }

// Drawing returns the drawing content, if l is a drawing layer.
func (l *Layer) Drawing() (*Drawing, bool) {
	d, ok := l.Content.(*Drawing)
	return d, ok
}

// Folder returns the folder content, if l is a folder.
func (l *Layer) Folder() (*Folder, bool) {
	f, ok := l.Content.(*Folder)
	return f, ok
}

// Strokes returns the layer's strokes, or nil for non-drawing layers.
// The returned slice is live; treat it as read-only.
func (l *Layer) Strokes() []*stroke.Stroke {
	if d, ok := l.Drawing(); ok {
		return d.Strokes
	}
	return nil
}

// Mask returns the layer's alpha-clip mask, or nil.
func (l *Layer) Mask() *layerkit.Mask {
	if d, ok := l.Drawing(); ok {
		return d.Mask
	}
	return nil
}

// Clone returns a deep copy of l, including its mask.
func (l *Layer) Clone() *Layer {
	c := *l
	c.Content = l.Content.clone()
	return &c
}

// snapshot returns a deep copy without render resources.
func (l *Layer) snapshot() *Layer {
	c := l.Clone()
	if d, ok := c.Drawing(); ok {
		d.Mask = nil
	}
	return c
}
