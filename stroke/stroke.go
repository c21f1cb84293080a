package stroke

import (
	"image/color"
	"slices"

	"github.com/google/uuid"

	"github.com/gogpu/layerkit"
)

// ID uniquely identifies a stroke within a session.
type ID string

// NewID returns a fresh random stroke id.
func NewID() ID { return ID(uuid.NewString()) }

// Tool identifies the drawing tool that produced a stroke.
type Tool uint8

// Tool constants.
const (
	ToolPen Tool = iota
	ToolBrush
	ToolMarker
	ToolEraser
)

// String returns a human-readable name for the tool.
func (t Tool) String() string {
	switch t {
	case ToolPen:
		return "pen"
	case ToolBrush:
		return "brush"
	case ToolMarker:
		return "marker"
	case ToolEraser:
		return "eraser"
	default:
		return "unknown"
	}
}

// Style describes how a stroke is drawn.
type Style struct {
	Width   float64
	Color   color.RGBA
	Opacity float64
	Tool    Tool
}

// DefaultStyle returns a 2px opaque black pen.
func DefaultStyle() Style {
	return Style{Width: 2, Color: color.RGBA{A: 255}, Opacity: 1, Tool: ToolPen}
}

// Stroke is one recorded pen path.
//
// Base points are layer-local and never change while a transform is only
// being previewed. Display points are the base points under the current
// live transform, or equal to the base points when none is active. Both
// lists always have the same length: non-finite points are dropped from
// both together.
//
// A Stroke is replaced wholesale when its layer's transform is baked; it is
// never patched in place outside of Display.
type Stroke struct {
	ID    ID
	Style Style

	base     []layerkit.Point
	display  []layerkit.Point
	drawable Drawable
}

// New creates a stroke from points, dropping non-finite ones.
func New(points []layerkit.Point, style Style) *Stroke {
	return newWithID(NewID(), points, style)
}

func newWithID(id ID, points []layerkit.Point, style Style) *Stroke {
	base := make([]layerkit.Point, 0, len(points))
	for _, p := range points {
		if p.IsFinite() {
			base = append(base, p)
		}
	}
	return &Stroke{
		ID:      id,
		Style:   style,
		base:    base,
		display: slices.Clone(base),
	}
}

// Len returns the number of points.
func (s *Stroke) Len() int { return len(s.base) }

// BasePoints returns a copy of the layer-local points.
func (s *Stroke) BasePoints() []layerkit.Point { return slices.Clone(s.base) }

// DisplayPoints returns a copy of the displayed points.
func (s *Stroke) DisplayPoints() []layerkit.Point { return slices.Clone(s.display) }

// Display recomputes the display points as m applied to the base points.
// It always starts from the base points, so repeated previews in one move
// session never compound. A point whose image is not finite is removed
// from both lists.
func (s *Stroke) Display(m layerkit.Matrix) {
	s.drawable = nil
	if m.IsIdentity() {
		s.display = slices.Clone(s.base)
		return
	}
	base := s.base[:0:0]
	display := make([]layerkit.Point, 0, len(s.base))
	for _, p := range s.base {
		q := m.TransformPoint(p)
		if !q.IsFinite() {
			continue
		}
		base = append(base, p)
		display = append(display, q)
	}
	s.base = base
	s.display = display
}

// ResetDisplay makes the display points equal to the base points.
func (s *Stroke) ResetDisplay() {
	s.Display(layerkit.Identity())
}

// Drawable returns the cached drawable, building it from the display points
// with b on first use. A nil builder uses PolylineBuilder.
func (s *Stroke) Drawable(b Builder) (Drawable, error) {
	if s.drawable != nil {
		return s.drawable, nil
	}
	if b == nil {
		b = PolylineBuilder{}
	}
	d, err := b.Build(s.DisplayPoints(), s.Style)
	if err != nil {
		return nil, err
	}
	s.drawable = d
	return d, nil
}

// Bounds returns the display bounding box grown by half the stroke width.
func (s *Stroke) Bounds() layerkit.Rect {
	return layerkit.BoundsOf(s.display, s.Style.Width/2)
}

// Clone returns a deep copy without the cached drawable.
func (s *Stroke) Clone() *Stroke {
	if s == nil {
		return nil
	}
	return &Stroke{
		ID:      s.ID,
		Style:   s.Style,
		base:    slices.Clone(s.base),
		display: slices.Clone(s.display),
	}
}

// Equal reports whether s and o have the same id, style and point lists.
// Cached drawables are ignored.
func (s *Stroke) Equal(o *Stroke) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.ID == o.ID && s.Style == o.Style &&
		slices.Equal(s.base, o.base) && slices.Equal(s.display, o.display)
}

// CloneAll deep-copies a stroke list.
func CloneAll(strokes []*Stroke) []*Stroke {
	if strokes == nil {
		return nil
	}
	out := make([]*Stroke, len(strokes))
	for i, s := range strokes {
		out[i] = s.Clone()
	}
	return out
}
