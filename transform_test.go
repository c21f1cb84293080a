package layerkit

import (
	"math"
	"testing"
)

func TestTransformIsDefault(t *testing.T) {
	tests := []struct {
		name string
		t    Transform
		want bool
	}{
		{"identity", IdentityTransform(), true},
		{"flip x", Transform{ScaleX: -1, ScaleY: 1}, true},
		{"flip both", Transform{ScaleX: -1, ScaleY: -1}, true},
		{"translated", Transform{X: 1, ScaleX: 1, ScaleY: 1}, false},
		{"rotated", Transform{Rotation: 0.1, ScaleX: 1, ScaleY: 1}, false},
		{"scaled", Transform{ScaleX: 2, ScaleY: 1}, false},
		{"zero value", Transform{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.t.IsDefault(); got != tt.want {
				t.Errorf("%+v.IsDefault() = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestTransformMatrixOrder(t *testing.T) {
	pivot := Pt(10, 10)
	tests := []struct {
		name string
		t    Transform
		in   Point
		want Point
	}{
		{"identity", IdentityTransform(), Pt(3, 4), Pt(3, 4)},
		{"translate", Transform{X: 5, ScaleX: 1, ScaleY: 1}, Pt(0, 0), Pt(5, 0)},
		{"scale about pivot", Transform{ScaleX: 2, ScaleY: 2}, Pt(12, 10), Pt(14, 10)},
		{"pivot is fixed under scale", Transform{ScaleX: 3, ScaleY: 0.5}, pivot, pivot},
		{"rotate about pivot", Transform{Rotation: math.Pi / 2, ScaleX: 1, ScaleY: 1}, Pt(11, 10), Pt(10, 11)},
		{"flip about pivot", Transform{ScaleX: -1, ScaleY: 1}, Pt(4, 0), Pt(16, 0)},
		// scale happens before rotation: (12,10) -> (14,10) -> (10,14) -> +(1,0)
		{"scale rotate translate", Transform{X: 1, Rotation: math.Pi / 2, ScaleX: 2, ScaleY: 1}, Pt(12, 10), Pt(11, 14)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.t.Matrix(pivot).TransformPoint(tt.in)
			if !got.ApproxEqual(tt.want, eps) {
				t.Errorf("Matrix().TransformPoint(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTransformRoundTrip(t *testing.T) {
	pts := []Point{Pt(0, 0), Pt(10, 0), Pt(3.5, -7.25), Pt(100, 42)}
	transforms := []Transform{
		{X: 5, Y: -3, Rotation: 0.7, ScaleX: 1.5, ScaleY: -0.5},
		{Rotation: -2.1, ScaleX: -1, ScaleY: 1},
		{X: 1000, Y: 1000, ScaleX: 0.1, ScaleY: 0.1},
	}
	pivot := Pt(400, 300)
	for _, tr := range transforms {
		m := tr.Matrix(pivot)
		back := ApplyPoints(m.Invert(), ApplyPoints(m, pts))
		for i := range pts {
			if !back[i].ApproxEqual(pts[i], 1e-6) {
				t.Errorf("%+v: point %d = %v, want %v", tr, i, back[i], pts[i])
			}
		}
	}
}

func TestTransformFlipInvolution(t *testing.T) {
	orig := Transform{X: 3, ScaleX: 1.25, ScaleY: -0.75}
	if got := orig.FlipHorizontal().FlipHorizontal(); got != orig {
		t.Errorf("double horizontal flip = %+v, want %+v", got, orig)
	}
	if got := orig.FlipVertical().FlipVertical(); got != orig {
		t.Errorf("double vertical flip = %+v, want %+v", got, orig)
	}
	if got := orig.FlipHorizontal(); got.ScaleX != -1.25 || got.ScaleY != -0.75 {
		t.Errorf("FlipHorizontal() = %+v, want only ScaleX negated", got)
	}
}

func TestTransformClampScale(t *testing.T) {
	tests := []struct {
		name   string
		sx, sy float64
		wx, wy float64
	}{
		{"within", 1.5, -2, 1.5, -2},
		{"too small keeps sign", -0.01, 0.001, -0.1, 0.1},
		{"too large keeps sign", 50, -50, 10, -10},
		{"zero becomes min", 0, 1, 0.1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transform{ScaleX: tt.sx, ScaleY: tt.sy}.ClampScale(0.1, 10)
			if got.ScaleX != tt.wx || got.ScaleY != tt.wy {
				t.Errorf("ClampScale() = (%v, %v), want (%v, %v)", got.ScaleX, got.ScaleY, tt.wx, tt.wy)
			}
		})
	}
}
