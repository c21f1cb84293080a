// Package layer holds the layer stack of one frame.
//
// A Registry keeps an explicit physical order, bottom first, and an id to
// layer map. Each Layer carries a closed content variant: the fixed
// Background, a Drawing with strokes and an optional alpha mask, or a Folder
// grouping other layers.
//
// When a history.Log is attached, every user-visible mutation is recorded as
// one command built from value snapshots, so undo restores the exact prior
// state. Mutations performed while the log is replaying are never recorded.
package layer
