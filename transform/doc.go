// Package transform implements interactive layer transforms.
//
// A Controller moves between three states: Idle, MoveMode and Dragging.
// While a session is open, drag, key and panel input update a live
// transform per layer and only the strokes' display points change.
// Leaving move mode confirms every pending transform: the matrix is baked
// into the stroke geometry, the live transform returns to identity, and a
// single history entry makes the whole edit undoable.
package transform
