// Package layerkit provides the geometry shared by the layer transform,
// compositing and history packages of a frame-based drawing tool.
//
// # Overview
//
// A drawing is a stack of layers per animation frame ("cut"). Each layer
// holds vector strokes in layer-local coordinates. While the user is in
// move mode, a live [Transform] is displayed on top of the stored strokes;
// confirming the move bakes that transform into the stroke geometry and
// records one undoable history command.
//
//	t := layerkit.Transform{X: 5, ScaleX: 1, ScaleY: 1}
//	m := t.Matrix(layerkit.Pt(400, 300))
//	moved := layerkit.ApplyPoints(m, points)
//
// # Packages
//
//   - layerkit: Matrix, Point, Transform, Mask, logging, shared errors
//   - stroke: stroke records and the baker
//   - history: undo/redo log of reversible commands
//   - layer: layer model, registry and mask compositor
//   - transform: the interactive move-mode controller
//   - render: render targets, frame compositor, texture gateway
//   - frame: per-cut layer stacks
//   - event: in-process publish/subscribe bus
//   - session: wires everything into one editing session
//
// # Coordinate System
//
//   - Origin (0,0) at top-left
//   - X increases right
//   - Y increases down
//   - Angles in radians
package layerkit
