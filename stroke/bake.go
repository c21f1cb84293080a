package stroke

import (
	"errors"
	"math"
	"slices"

	"github.com/gogpu/layerkit"
)

// ErrInvalidStyle is returned by PolylineBuilder for a width that cannot be
// drawn.
var ErrInvalidStyle = errors.New("stroke: invalid style")

// Drawable is the primitive a Builder produces from display points.
// The rasterization behind it is opaque to this package.
type Drawable interface {
	Bounds() layerkit.Rect
}

// Builder turns display points into a drawable primitive. It is the seam
// for an external tessellator or GPU brush.
type Builder interface {
	Build(points []layerkit.Point, style Style) (Drawable, error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(points []layerkit.Point, style Style) (Drawable, error)

// Build calls f.
func (f BuilderFunc) Build(points []layerkit.Point, style Style) (Drawable, error) {
	return f(points, style)
}

// Polyline is the default drawable: the display points joined by segments
// of the stroke width. A single point is a dot.
type Polyline struct {
	Points []layerkit.Point
	Style  Style
}

// Bounds returns the area covered by the polyline.
func (p *Polyline) Bounds() layerkit.Rect {
	return layerkit.BoundsOf(p.Points, p.Style.Width/2)
}

// PolylineBuilder builds Polyline drawables.
type PolylineBuilder struct{}

// Build implements Builder.
func (PolylineBuilder) Build(points []layerkit.Point, style Style) (Drawable, error) {
	if math.IsNaN(style.Width) || math.IsInf(style.Width, 0) || style.Width < 0 {
		return nil, ErrInvalidStyle
	}
	return &Polyline{Points: slices.Clone(points), Style: style}, nil
}

// Bake absorbs m into every stroke's base points and returns replacement
// strokes whose base and display points both equal the transformed points.
// Drawables are rebuilt with b, never reused; a nil builder uses
// PolylineBuilder.
//
// A stroke whose drawable cannot be rebuilt is left out of the result and
// its id is reported in dropped; the others are still returned. Empty and
// single-point strokes are baked like any other.
func Bake(strokes []*Stroke, m layerkit.Matrix, b Builder) (baked []*Stroke, dropped []ID) {
	if b == nil {
		b = PolylineBuilder{}
	}
	baked = make([]*Stroke, 0, len(strokes))
	for _, s := range strokes {
		if s == nil {
			continue
		}
		next := newWithID(s.ID, layerkit.ApplyPoints(m, s.base), s.Style)
		if _, err := next.Drawable(b); err != nil {
			layerkit.Logger().Warn("stroke: bake dropped stroke", "id", s.ID, "err", err)
			dropped = append(dropped, s.ID)
			continue
		}
		baked = append(baked, next)
	}
	return baked, dropped
}
