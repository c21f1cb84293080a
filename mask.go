package layerkit

import (
	"image"
	"image/color"
)

// Mask is a canvas-sized alpha-clip region. Values range from 0 (fully
// clipped) to 255 (fully visible).
//
// Mask implements image.Image with the alpha color model, so it can be
// passed directly as the mask argument of draw.DrawMask.
type Mask struct {
	width  int
	height int
	data   []uint8
}

// NewMask creates a new mask with the given dimensions.
// All values are initialized to 0 (fully clipped).
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{
		width:  width,
		height: height,
		data:   make([]uint8, width*height),
	}
}

// NewOpaqueMask creates a mask that clips nothing.
func NewOpaqueMask(width, height int) *Mask {
	m := NewMask(width, height)
	m.Fill(255)
	return m
}

// Bounds returns the mask dimensions as an image.Rectangle.
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.width, m.height)
}

// ColorModel implements image.Image.
func (m *Mask) ColorModel() color.Model {
	return color.AlphaModel
}

// At implements image.Image. Coordinates outside the mask are transparent.
func (m *Mask) At(x, y int) color.Color {
	return color.Alpha{A: m.AlphaAt(x, y)}
}

// Width returns the mask width.
func (m *Mask) Width() int { return m.width }

// Height returns the mask height.
func (m *Mask) Height() int { return m.height }

// AlphaAt returns the mask value at (x, y).
// Returns 0 for coordinates outside the mask bounds.
func (m *Mask) AlphaAt(x, y int) uint8 {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return 0
	}
	return m.data[y*m.width+x]
}

// Set sets the mask value at (x, y).
// Coordinates outside the mask bounds are ignored.
func (m *Mask) Set(x, y int, value uint8) {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return
	}
	m.data[y*m.width+x] = value
}

// Fill fills the entire mask with a value.
func (m *Mask) Fill(value uint8) {
	for i := range m.data {
		m.data[i] = value
	}
}

// FillRect sets every value inside r (clamped to the mask) to value.
func (m *Mask) FillRect(r image.Rectangle, value uint8) {
	r = r.Intersect(m.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := m.data[y*m.width : (y+1)*m.width]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x] = value
		}
	}
}

// Clone creates a copy of the mask.
func (m *Mask) Clone() *Mask {
	if m == nil {
		return nil
	}
	clone := NewMask(m.width, m.height)
	copy(clone.data, m.data)
	return clone
}
