package layerkit

import "math"

// Transform is the editable placement of a layer: a translation, a rotation
// in radians and a per-axis scale. A negative scale on an axis encodes a
// flip along that axis.
type Transform struct {
	X, Y     float64
	Rotation float64
	ScaleX   float64
	ScaleY   float64
}

// IdentityTransform returns {0, 0, 0, 1, 1}.
func IdentityTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// IsDefault reports whether the transform leaves geometry untouched apart
// from a possible sign convention: no translation, no rotation and unit
// scale magnitude on both axes.
func (t Transform) IsDefault() bool {
	return t.X == 0 && t.Y == 0 && t.Rotation == 0 &&
		math.Abs(t.ScaleX) == 1 && math.Abs(t.ScaleY) == 1
}

// IsIdentity reports whether t equals IdentityTransform exactly.
func (t Transform) IsIdentity() bool {
	return t == IdentityTransform()
}

// Matrix builds the affine matrix for t about pivot. The composition order
// is fixed:
//
//	translate(-pivot) -> scale(sx, sy) -> rotate(rotation) -> translate(pivot + (x, y))
//
// so scale and rotation act about the pivot before translation moves the
// result.
func (t Transform) Matrix(pivot Point) Matrix {
	return Translate(-pivot.X, -pivot.Y).
		Then(Scale(t.ScaleX, t.ScaleY)).
		Then(Rotate(t.Rotation)).
		Then(Translate(pivot.X+t.X, pivot.Y+t.Y))
}

// FlipHorizontal returns t with the horizontal scale sign inverted.
func (t Transform) FlipHorizontal() Transform {
	t.ScaleX = -t.ScaleX
	return t
}

// FlipVertical returns t with the vertical scale sign inverted.
func (t Transform) FlipVertical() Transform {
	t.ScaleY = -t.ScaleY
	return t
}

// ClampScale limits the magnitude of each scale axis to [minMag, maxMag]
// while keeping each axis's sign. A zero scale is treated as positive.
func (t Transform) ClampScale(minMag, maxMag float64) Transform {
	t.ScaleX = clampSigned(t.ScaleX, minMag, maxMag)
	t.ScaleY = clampSigned(t.ScaleY, minMag, maxMag)
	return t
}

func clampSigned(v, minMag, maxMag float64) float64 {
	sign := 1.0
	if math.Signbit(v) {
		sign = -1
	}
	mag := math.Abs(v)
	if math.IsNaN(mag) {
		mag = 1
	}
	if minMag > 0 && mag < minMag {
		mag = minMag
	}
	if maxMag > 0 && mag > maxMag {
		mag = maxMag
	}
	return sign * mag
}

// ApproxEqual reports whether every component of t and u differs by at most
// eps.
func (t Transform) ApproxEqual(u Transform, eps float64) bool {
	return math.Abs(t.X-u.X) <= eps && math.Abs(t.Y-u.Y) <= eps &&
		math.Abs(t.Rotation-u.Rotation) <= eps &&
		math.Abs(t.ScaleX-u.ScaleX) <= eps && math.Abs(t.ScaleY-u.ScaleY) <= eps
}
