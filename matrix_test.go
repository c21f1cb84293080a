package layerkit

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestMatrixMultiplyOrder(t *testing.T) {
	// Then applies the receiver first.
	m := Translate(10, 0).Then(Scale(2, 2))
	got := m.TransformPoint(Pt(1, 1))
	want := Pt(22, 2)
	if !got.ApproxEqual(want, eps) {
		t.Errorf("TransformPoint() = %v, want %v", got, want)
	}

	// Multiply applies the argument first.
	m = Translate(10, 0).Multiply(Scale(2, 2))
	got = m.TransformPoint(Pt(1, 1))
	want = Pt(12, 2)
	if !got.ApproxEqual(want, eps) {
		t.Errorf("TransformPoint() = %v, want %v", got, want)
	}
}

func TestMatrixInvert(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
	}{
		{"identity", Identity()},
		{"translate", Translate(3, -7)},
		{"scale", Scale(2, 0.5)},
		{"rotate", Rotate(math.Pi / 3)},
		{"flip", Scale(-1, 1)},
		{"composite", Translate(-5, -5).Then(Scale(3, -2)).Then(Rotate(1.1)).Then(Translate(40, 2))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.Multiply(tt.m.Invert())
			if !got.ApproxEqual(Identity(), eps) {
				t.Errorf("m * m.Invert() = %+v, want identity", got)
			}
		})
	}
}

func TestMatrixInvertSingular(t *testing.T) {
	if got := Scale(0, 1).Invert(); !got.IsIdentity() {
		t.Errorf("Invert() of singular matrix = %+v, want identity", got)
	}
}

func TestApplyPointsSkipsNonFinite(t *testing.T) {
	in := []Point{
		Pt(0, 0),
		Pt(math.NaN(), 1),
		Pt(2, math.Inf(1)),
		Pt(3, 4),
	}
	got := ApplyPoints(Translate(1, 1), in)
	want := []Point{Pt(1, 1), Pt(4, 5)}
	if len(got) != len(want) {
		t.Fatalf("ApplyPoints() returned %d points, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].ApproxEqual(want[i], eps) {
			t.Errorf("point %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestApplyPointsNilAndEmpty(t *testing.T) {
	if got := ApplyPoints(Identity(), nil); got != nil {
		t.Errorf("ApplyPoints(nil) = %v, want nil", got)
	}
	if got := ApplyPoints(Identity(), []Point{}); got == nil || len(got) != 0 {
		t.Errorf("ApplyPoints(empty) = %v, want empty non-nil", got)
	}
}

func TestBoundsOf(t *testing.T) {
	r := BoundsOf([]Point{Pt(1, 5), Pt(-2, 3), Pt(4, 0)}, 1)
	want := Rect{Min: Pt(-3, -1), Max: Pt(5, 6)}
	if r != want {
		t.Errorf("BoundsOf() = %+v, want %+v", r, want)
	}
	if !BoundsOf(nil, 1).Empty() {
		t.Error("BoundsOf(nil) should be empty")
	}
}
