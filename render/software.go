// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/gogpu/layerkit"
	"github.com/gogpu/layerkit/stroke"
)

// minHalfWidth keeps hairline strokes at least one pixel wide.
const minHalfWidth = 0.5

// SoftwareRenderer is a CPU renderer built on golang.org/x/image/vector.
//
// Strokes are drawn as round-capped, round-joined polylines from their
// drawables; a drawable of another type falls back to the display points.
// Style.Color is read as a straight-alpha color and multiplied by
// Style.Opacity. Eraser strokes clear coverage instead of painting.
//
// Example:
//
//	r := render.NewSoftwareRenderer()
//	target, _ := r.NewTarget(800, 600)
//	img, _ := render.TargetImage(target)
//	r.DrawStrokes(img, layer.Strokes())
type SoftwareRenderer struct {
	ras     *vector.Rasterizer
	builder stroke.Builder
}

// NewSoftwareRenderer creates a new CPU-based software renderer.
func NewSoftwareRenderer() *SoftwareRenderer {
	return &SoftwareRenderer{ras: vector.NewRasterizer(0, 0)}
}

// SetBuilder sets the builder used for strokes without a cached drawable.
// Nil uses stroke.PolylineBuilder.
func (r *SoftwareRenderer) SetBuilder(b stroke.Builder) {
	r.builder = b
}

// NewTarget returns a transparent PixmapTarget.
func (r *SoftwareRenderer) NewTarget(width, height int) (RenderTarget, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("render: invalid target size")
	}
	return NewPixmapTarget(width, height), nil
}

// NewMask returns an opaque mask. It implements layer.MaskAllocator.
func (r *SoftwareRenderer) NewMask(width, height int) (*layerkit.Mask, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("render: invalid mask size")
	}
	return layerkit.NewOpaqueMask(width, height), nil
}

// DrawStrokes rasterizes strokes onto dst in order. Strokes whose drawable
// cannot be built are skipped.
func (r *SoftwareRenderer) DrawStrokes(dst draw.Image, strokes []*stroke.Stroke) error {
	if dst == nil {
		return errors.New("render: nil target")
	}
	b := dst.Bounds()
	if b.Empty() {
		return nil
	}
	for _, s := range strokes {
		if s == nil {
			continue
		}
		d, err := s.Drawable(r.builder)
		if err != nil {
			layerkit.Logger().Debug("render: stroke skipped", "stroke", s.ID, "err", err)
			continue
		}
		pts, style := s.DisplayPoints(), s.Style
		if p, ok := d.(*stroke.Polyline); ok {
			pts, style = p.Points, p.Style
		}
		r.drawPolyline(dst, b, pts, style)
	}
	return nil
}

func (r *SoftwareRenderer) drawPolyline(dst draw.Image, b image.Rectangle, pts []layerkit.Point, style stroke.Style) {
	if len(pts) == 0 {
		return
	}
	hw := style.Width / 2
	if !(hw >= minHalfWidth) {
		hw = minHalfWidth
	}
	hw = math.Min(hw, float64(max(b.Max.X, b.Max.Y)))

	r.ras.Reset(b.Max.X, b.Max.Y)
	pad := hw + 1
	clip := layerkit.Rect{
		Min: layerkit.Pt(float64(b.Min.X)-pad, float64(b.Min.Y)-pad),
		Max: layerkit.Pt(float64(b.Max.X)+pad, float64(b.Max.Y)+pad),
	}

	n := 0
	for i, p := range pts {
		if inside(clip, p) {
			r.disc(p, hw)
			n++
		}
		if i == 0 {
			continue
		}
		a, c, ok := clipSegment(pts[i-1], p, clip)
		if ok && r.quad(a, c, hw) {
			n++
		}
	}
	if n == 0 {
		return
	}

	src, op := paint(style)
	r.ras.DrawOp = op
	r.ras.Draw(dst, b, src, image.Point{})
}

func paint(style stroke.Style) (image.Image, draw.Op) {
	if style.Tool == stroke.ToolEraser {
		return image.Transparent, draw.Src
	}
	opacity := style.Opacity
	if math.IsNaN(opacity) {
		opacity = 1
	}
	opacity = math.Max(0, math.Min(1, opacity))
	c := color.NRGBA{
		R: style.Color.R,
		G: style.Color.G,
		B: style.Color.B,
		A: uint8(float64(style.Color.A)*opacity + 0.5),
	}
	return image.NewUniform(c), draw.Over
}

// quad adds the body of segment a-c. All subpaths share one winding so
// overlaps do not cancel.
func (r *SoftwareRenderer) quad(a, c layerkit.Point, hw float64) bool {
	dx, dy := c.X-a.X, c.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 || math.IsInf(l, 0) {
		return false
	}
	nx, ny := -dy/l*hw, dx/l*hw
	r.ras.MoveTo(f32(a.X+nx), f32(a.Y+ny))
	r.ras.LineTo(f32(c.X+nx), f32(c.Y+ny))
	r.ras.LineTo(f32(c.X-nx), f32(c.Y-ny))
	r.ras.LineTo(f32(a.X-nx), f32(a.Y-ny))
	r.ras.ClosePath()
	return true
}

// disc adds a round cap or join, traced in the same direction as quad.
func (r *SoftwareRenderer) disc(p layerkit.Point, hw float64) {
	n := int(math.Ceil(hw * 2))
	n = max(8, min(n, 64))
	r.ras.MoveTo(f32(p.X+hw), f32(p.Y))
	for i := 1; i < n; i++ {
		th := -2 * math.Pi * float64(i) / float64(n)
		r.ras.LineTo(f32(p.X+hw*math.Cos(th)), f32(p.Y+hw*math.Sin(th)))
	}
	r.ras.ClosePath()
}

func inside(r layerkit.Rect, p layerkit.Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// clipSegment clips a-c to r (Liang-Barsky). The direction is preserved.
func clipSegment(a, c layerkit.Point, r layerkit.Rect) (layerkit.Point, layerkit.Point, bool) {
	dx, dy := c.X-a.X, c.Y-a.Y
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, a.X - r.Min.X},
		{dx, r.Max.X - a.X},
		{-dy, a.Y - r.Min.Y},
		{dy, r.Max.Y - a.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, c, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return a, c, false
			}
			t0 = math.Max(t0, t)
		} else {
			if t < t0 {
				return a, c, false
			}
			t1 = math.Min(t1, t)
		}
	}
	return layerkit.Pt(a.X+t0*dx, a.Y+t0*dy), layerkit.Pt(a.X+t1*dx, a.Y+t1*dy), true
}

func f32(v float64) float32 { return float32(v) }

// Flush is a no-op for software rendering.
func (r *SoftwareRenderer) Flush() error {
	return nil
}

// Capabilities returns the renderer's capabilities.
func (r *SoftwareRenderer) Capabilities() RendererCapabilities {
	return RendererCapabilities{
		IsGPU:                false,
		SupportsAntialiasing: true,
	}
}

// Ensure SoftwareRenderer implements Renderer and CapableRenderer.
var (
	_ Renderer        = (*SoftwareRenderer)(nil)
	_ CapableRenderer = (*SoftwareRenderer)(nil)
)
