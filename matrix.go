package layerkit

import "math"

// Matrix is an affine map of the canvas plane, stored as the top two rows
// of a 3x3 homogeneous matrix:
//
//	x' = A*x + B*y + C
//	y' = D*x + E*y + F
//
// Layer transforms, stroke baking and sprite placement all share it.
type Matrix struct {
	A, B, C float64
	D, E, F float64
}

// singularDet is the determinant below which Invert gives up.
const singularDet = 1e-10

// Identity maps every point to itself.
func Identity() Matrix { return Matrix{A: 1, E: 1} }

// Translate shifts by (x, y).
func Translate(x, y float64) Matrix { return Matrix{A: 1, C: x, E: 1, F: y} }

// Scale stretches about the origin. A negative factor mirrors that axis.
func Scale(x, y float64) Matrix { return Matrix{A: x, E: y} }

// Rotate turns about the origin by angle radians; positive angles turn
// +X toward +Y, which is clockwise on a y-down canvas.
func Rotate(angle float64) Matrix {
	sin, cos := math.Sincos(angle)
	return Matrix{A: cos, B: -sin, D: sin, E: cos}
}

// Multiply returns m*n: the map that applies n, then m.
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.B*n.D,
		B: m.A*n.B + m.B*n.E,
		C: m.A*n.C + m.B*n.F + m.C,
		D: m.D*n.A + m.E*n.D,
		E: m.D*n.B + m.E*n.E,
		F: m.D*n.C + m.E*n.F + m.F,
	}
}

// Then returns the matrix that applies m first and next afterwards.
func (m Matrix) Then(next Matrix) Matrix {
	return next.Multiply(m)
}

// TransformPoint maps p.
func (m Matrix) TransformPoint(p Point) Point {
	return Pt(m.A*p.X+m.B*p.Y+m.C, m.D*p.X+m.E*p.Y+m.F)
}

// Invert returns the inverse map, or Identity when m collapses the plane
// (a zero scale axis).
func (m Matrix) Invert() Matrix {
	det := m.A*m.E - m.B*m.D
	if math.Abs(det) < singularDet {
		return Identity()
	}
	k := 1 / det
	return Matrix{
		A: m.E * k, B: -m.B * k, C: (m.B*m.F - m.C*m.E) * k,
		D: -m.D * k, E: m.A * k, F: (m.C*m.D - m.A*m.F) * k,
	}
}

// IsIdentity reports whether m is exactly the identity.
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}

// ApproxEqual reports whether every coefficient of m and other differs by
// at most eps.
func (m Matrix) ApproxEqual(other Matrix, eps float64) bool {
	return math.Abs(m.A-other.A) <= eps && math.Abs(m.B-other.B) <= eps &&
		math.Abs(m.C-other.C) <= eps && math.Abs(m.D-other.D) <= eps &&
		math.Abs(m.E-other.E) <= eps && math.Abs(m.F-other.F) <= eps
}

// ApplyPoints transforms every finite point of pts by m.
// Non-finite inputs, and inputs whose image is not finite, are skipped.
// The result is always a new slice, never nil for a non-nil input.
func ApplyPoints(m Matrix, pts []Point) []Point {
	if pts == nil {
		return nil
	}
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if !p.IsFinite() {
			continue
		}
		q := m.TransformPoint(p)
		if !q.IsFinite() {
			continue
		}
		out = append(out, q)
	}
	return out
}
