package layer

import (
	"maps"
	"slices"

	"github.com/gogpu/layerkit"
	"github.com/gogpu/layerkit/event"
	"github.com/gogpu/layerkit/history"
	"github.com/gogpu/layerkit/stroke"
)

// state is a value snapshot of a registry: order, layers and selection.
// Snapshots are never mutated after capture; restore clones from them.
type state struct {
	order  []ID
	layers map[ID]*Layer
	masked map[ID]bool
	active ID
}

func (r *Registry) capture() state {
	s := state{
		order:  slices.Clone(r.order),
		layers: make(map[ID]*Layer, len(r.layers)),
		masked: make(map[ID]bool),
		active: r.active,
	}
	for id, l := range r.layers {
		s.layers[id] = l.snapshot()
		if l.Mask() != nil {
			s.masked[id] = true
		}
	}
	return s
}

// captureForHistory captures only when the mutation will be recorded.
func (r *Registry) captureForHistory() state {
	if !r.recording() {
		return state{}
	}
	return r.capture()
}

// restore replaces the registry contents with a copy of s. Masks of layers
// that survive are kept; layers that come back get a fresh mask if they had
// one, and removed layers release theirs.
func (r *Registry) restore(s state) {
	prev := r.layers
	prevOrder := r.order
	prevActive := r.ActiveIndex()

	layers := make(map[ID]*Layer, len(s.layers))
	for id, snap := range s.layers {
		l := snap.Clone()
		if old, ok := prev[id]; ok {
			if nd, ok := l.Drawing(); ok {
				nd.Mask = old.Mask()
			}
		}
		layers[id] = l
	}

	for i, id := range prevOrder {
		if _, ok := layers[id]; !ok {
			r.masks.Release(prev[id])
			r.publish(event.LayerDeleted, event.LayerDeletedPayload{LayerID: string(id), LayerIndex: i})
		}
	}

	r.order = slices.Clone(s.order)
	r.layers = layers
	r.active = s.active

	for _, id := range r.order {
		if _, ok := prev[id]; ok {
			continue
		}
		l := r.layers[id]
		if s.masked[id] {
			r.masks.Ensure(l)
		}
		r.publish(event.LayerCreated, event.LayerCreatedPayload{LayerID: string(id), Name: l.Name, IsBackground: l.IsBackground()})
	}
	if idx := r.ActiveIndex(); idx != prevActive {
		r.publish(event.LayerActivated, event.LayerActivatedPayload{LayerIndex: idx, OldIndex: prevActive, LayerID: string(r.active)})
	}
}

func (r *Registry) record(name string, before state, meta history.Meta) {
	if !r.recording() {
		return
	}
	r.log.Push(&snapshotCommand{name: name, reg: r, before: before, after: r.capture()}, meta)
}

// snapshotCommand restores a whole-registry snapshot. It backs structural
// edits: create, delete, reorder, move and folder membership.
type snapshotCommand struct {
	name          string
	reg           *Registry
	before, after state
}

func (c *snapshotCommand) Name() string { return c.name }

func (c *snapshotCommand) Apply(dir history.Direction) error {
	if dir == history.Undo {
		c.reg.restore(c.before)
	} else {
		c.reg.restore(c.after)
	}
	return nil
}

// visibilityCommand toggles one layer's visibility flag.
type visibilityCommand struct {
	reg           *Registry
	id            ID
	before, after bool
}

func (c *visibilityCommand) Name() string { return "layer.visibility" }

func (c *visibilityCommand) Apply(dir history.Direction) error {
	l, ok := c.reg.layers[c.id]
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	l.Visible = c.after
	if dir == history.Undo {
		l.Visible = c.before
	}
	c.reg.publish(event.LayerVisibilityChanged, event.VisibilityPayload{LayerID: string(c.id), Visible: l.Visible})
	return nil
}

// opacityCommand changes one layer's opacity.
type opacityCommand struct {
	reg           *Registry
	id            ID
	before, after float64
}

func (c *opacityCommand) Name() string { return "layer.opacity" }

func (c *opacityCommand) Apply(dir history.Direction) error {
	l, ok := c.reg.layers[c.id]
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	l.Opacity = c.after
	if dir == history.Undo {
		l.Opacity = c.before
	}
	c.reg.publish(event.LayerOpacityChanged, event.OpacityPayload{LayerID: string(c.id), Opacity: l.Opacity})
	return nil
}

// strokeCommand appends or removes one stroke.
type strokeCommand struct {
	reg    *Registry
	id     ID
	stroke *stroke.Stroke
}

func (c *strokeCommand) Name() string { return "stroke.add" }

func (c *strokeCommand) Apply(dir history.Direction) error {
	l, ok := c.reg.layers[c.id]
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	d, ok := l.Drawing()
	if !ok {
		return layerkit.ErrNotDrawing
	}
	i := slices.IndexFunc(d.Strokes, func(s *stroke.Stroke) bool { return s.ID == c.stroke.ID })
	switch {
	case dir == history.Undo && i >= 0:
		d.Strokes = slices.Delete(slices.Clone(d.Strokes), i, i+1)
	case dir == history.Do && i < 0:
		d.Strokes = append(slices.Clone(d.Strokes), c.stroke.Clone())
		c.reg.publish(event.LayerStrokeAdded, event.LayerPayload{LayerID: string(c.id)})
	}
	return nil
}

// Equal reports whether two registries hold the same order, selection and
// layer contents. Masks and cached drawables are ignored.
func (r *Registry) Equal(o *Registry) bool {
	if !slices.Equal(r.order, o.order) || r.active != o.active {
		return false
	}
	return maps.EqualFunc(r.layers, o.layers, layersEqual)
}

func layersEqual(a, b *Layer) bool {
	if a.ID != b.ID || a.Name != b.Name || a.Visible != b.Visible ||
		a.Opacity != b.Opacity || a.ParentID != b.ParentID || a.Transform != b.Transform ||
		a.Kind() != b.Kind() {
		return false
	}
	switch ac := a.Content.(type) {
	case *Background:
		return *ac == *b.Content.(*Background)
	case *Drawing:
		return slices.EqualFunc(ac.Strokes, b.Content.(*Drawing).Strokes, (*stroke.Stroke).Equal)
	case *Folder:
		bc := b.Content.(*Folder)
		return ac.Expanded == bc.Expanded && slices.Equal(ac.Children, bc.Children)
	}
	return false
}
