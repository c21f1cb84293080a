package layer

import (
	"image"

	"github.com/gogpu/layerkit"
)

// MaskAllocator creates canvas-sized alpha masks. Renderers implement it;
// without one, layers stay pure data.
type MaskAllocator interface {
	NewMask(width, height int) (*layerkit.Mask, error)
}

// MaskCompositor manages the per-layer alpha-clip regions.
//
// Only drawing layers carry masks. Every method is a silent no-op when the
// compositor is nil or has no allocator, so headless sessions need no
// special casing.
type MaskCompositor struct {
	alloc  MaskAllocator
	width  int
	height int
}

// NewMaskCompositor creates a compositor allocating width x height masks.
func NewMaskCompositor(alloc MaskAllocator, width, height int) *MaskCompositor {
	return &MaskCompositor{alloc: alloc, width: width, height: height}
}

// Enabled reports whether masks can be created.
func (c *MaskCompositor) Enabled() bool {
	return c != nil && c.alloc != nil
}

// Ensure returns the layer's mask, allocating an opaque one on first use.
// Returns nil for non-drawing layers or when masks are unavailable.
func (c *MaskCompositor) Ensure(l *Layer) *layerkit.Mask {
	d, ok := l.Drawing()
	if !ok || !c.Enabled() {
		return nil
	}
	if d.Mask != nil {
		return d.Mask
	}
	m, err := c.alloc.NewMask(c.width, c.height)
	if err != nil || m == nil {
		layerkit.Logger().Warn("layer: mask allocation failed", "layer", l.ID, "err", err)
		return nil
	}
	d.Mask = m
	return m
}

// ClipRect limits the visible part of the layer to r.
// Returns false if no mask could be attached.
func (c *MaskCompositor) ClipRect(l *Layer, r image.Rectangle) bool {
	m := c.Ensure(l)
	if m == nil {
		return false
	}
	m.Fill(0)
	m.FillRect(r, 255)
	return true
}

// Release drops the layer's mask.
func (c *MaskCompositor) Release(l *Layer) {
	if d, ok := l.Drawing(); ok {
		d.Mask = nil
	}
}
