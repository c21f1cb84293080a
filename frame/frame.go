// Package frame holds the frames ("cuts") of an animation, each owning its
// own layer stack.
//
// Frames never share a Registry: Duplicate deep-copies the layers and gives
// them fresh ids, so a layer id identifies exactly one frame.
package frame

import (
	"errors"
	"slices"

	"github.com/google/uuid"

	"github.com/gogpu/layerkit/layer"
)

// ErrFrameNotFound is returned for an unknown frame id.
var ErrFrameNotFound = errors.New("frame: frame not found")

// ID uniquely identifies a frame within a session.
type ID string

// NewID returns a fresh random frame id.
func NewID() ID { return ID(uuid.NewString()) }

// Frame is one cut of the animation.
type Frame struct {
	ID    ID
	Name  string
	reg   *layer.Registry
	dirty bool
}

// Registry returns the frame's layers.
func (f *Frame) Registry() *layer.Registry { return f.reg }

// Dirty reports whether the frame changed since its texture was rendered.
func (f *Frame) Dirty() bool { return f.dirty }

// MarkDirty flags the frame for re-rendering.
func (f *Frame) MarkDirty() { f.dirty = true }

// ClearDirty records that the frame's texture is current.
func (f *Frame) ClearDirty() { f.dirty = false }

// Store is the ordered list of frames.
//
// Store is not safe for concurrent use.
type Store struct {
	order  []ID
	frames map[ID]*Frame
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{frames: make(map[ID]*Frame)}
}

// Add appends a frame owning reg. The new frame starts dirty.
func (s *Store) Add(name string, reg *layer.Registry) (*Frame, error) {
	if reg == nil {
		return nil, errors.New("frame: nil registry")
	}
	f := &Frame{ID: NewID(), Name: name, reg: reg, dirty: true}
	s.frames[f.ID] = f
	s.order = append(s.order, f.ID)
	return f, nil
}

// Duplicate inserts a copy of frame id right after it. The copy's layers
// have fresh ids.
func (s *Store) Duplicate(id ID, name string) (*Frame, error) {
	src, ok := s.frames[id]
	if !ok {
		return nil, ErrFrameNotFound
	}
	f := &Frame{ID: NewID(), Name: name, reg: src.reg.Duplicate(), dirty: true}
	s.frames[f.ID] = f
	s.order = slices.Insert(s.order, s.Index(id)+1, f.ID)
	return f, nil
}

// Remove deletes a frame.
func (s *Store) Remove(id ID) error {
	if _, ok := s.frames[id]; !ok {
		return ErrFrameNotFound
	}
	delete(s.frames, id)
	s.order = slices.DeleteFunc(s.order, func(x ID) bool { return x == id })
	return nil
}

// Frame returns the frame with the given id.
func (s *Store) Frame(id ID) (*Frame, bool) {
	f, ok := s.frames[id]
	return f, ok
}

// Frames returns the frames in order.
func (s *Store) Frames() []*Frame {
	out := make([]*Frame, len(s.order))
	for i, id := range s.order {
		out[i] = s.frames[id]
	}
	return out
}

// Index returns the position of a frame, or -1.
func (s *Store) Index(id ID) int {
	return slices.Index(s.order, id)
}

// Len returns the number of frames.
func (s *Store) Len() int { return len(s.order) }

// Locate finds the frame holding a layer and the layer's physical index
// in it.
func (s *Store) Locate(id layer.ID) (*Frame, int, bool) {
	for _, fid := range s.order {
		f := s.frames[fid]
		if i := f.reg.Index(id); i >= 0 {
			return f, i, true
		}
	}
	return nil, -1, false
}
