package transform

import (
	"github.com/gogpu/layerkit"
	"github.com/gogpu/layerkit/stroke"
)

// Default limits and drag sensitivities.
const (
	DefaultMinScale          = 0.1
	DefaultMaxScale          = 10
	DefaultRotateSensitivity = 0.01 // radians per pixel
	DefaultScaleSensitivity  = 0.01 // scale factor per pixel
)

// Config holds controller settings.
type Config struct {
	// Pivot is the point scale and rotation act about, normally the
	// canvas center.
	Pivot layerkit.Point

	// MinScale and MaxScale bound the magnitude of each scale axis.
	MinScale float64
	MaxScale float64

	RotateSensitivity float64
	ScaleSensitivity  float64

	// Apply displays live transforms. Nil recomputes display points.
	Apply ApplyFunc

	// Builder rebuilds stroke drawables when a transform is confirmed.
	// Nil uses stroke.PolylineBuilder.
	Builder stroke.Builder
}

// DefaultConfig returns a configuration pivoting about the center of a
// width x height canvas.
func DefaultConfig(width, height int) Config {
	return Config{
		Pivot:             layerkit.Pt(float64(width)/2, float64(height)/2),
		MinScale:          DefaultMinScale,
		MaxScale:          DefaultMaxScale,
		RotateSensitivity: DefaultRotateSensitivity,
		ScaleSensitivity:  DefaultScaleSensitivity,
	}
}

func (c Config) normalize() Config {
	if !(c.MinScale > 0) {
		c.MinScale = DefaultMinScale
	}
	if !(c.MaxScale >= c.MinScale) {
		c.MaxScale = max(DefaultMaxScale, c.MinScale)
	}
	if c.RotateSensitivity == 0 {
		c.RotateSensitivity = DefaultRotateSensitivity
	}
	if c.ScaleSensitivity == 0 {
		c.ScaleSensitivity = DefaultScaleSensitivity
	}
	if !c.Pivot.IsFinite() {
		c.Pivot = layerkit.Point{}
	}
	return c
}
