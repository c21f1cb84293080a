// Package stroke holds recorded pen strokes and the baker that folds a
// transform into their stored geometry.
//
// Each Stroke keeps two point lists: base points in layer-local space and
// display points showing the base points under the live transform. Bake
// produces replacement strokes with the transform absorbed into the base
// points; it never edits the inputs.
//
//	baked, dropped := stroke.Bake(layer.Strokes, m, nil)
package stroke
