package layer

import (
	"fmt"
	"image/color"
	"math"
	"slices"

	"github.com/gogpu/layerkit"
	"github.com/gogpu/layerkit/event"
	"github.com/gogpu/layerkit/history"
	"github.com/gogpu/layerkit/stroke"
)

// Option configures a Registry during creation.
type Option func(*Registry)

// WithHistory records every user-visible mutation in log.
func WithHistory(log *history.Log) Option {
	return func(r *Registry) { r.log = log }
}

// WithBus publishes layer events on bus.
func WithBus(bus *event.Bus) Option {
	return func(r *Registry) { r.bus = bus }
}

// WithMasks attaches a mask compositor.
func WithMasks(c *MaskCompositor) Option {
	return func(r *Registry) { r.masks = c }
}

// Registry is the ordered layer stack of one frame.
//
// The physical order is an explicit id list, bottom first; it is the
// authoritative layer order. Layers are stored by id. Folder membership is
// carried by Layer.ParentID, and each folder also keeps its own child list
// for traversal.
//
// Registry is not safe for concurrent use.
type Registry struct {
	order  []ID
	layers map[ID]*Layer
	active ID

	log   *history.Log
	bus   *event.Bus
	masks *MaskCompositor
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{layers: make(map[ID]*Layer)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetHistory attaches log after construction, so a host can build a
// frame's initial layers without recording them. Nil detaches.
func (r *Registry) SetHistory(log *history.Log) { r.log = log }

// Len returns the number of layers, folders and background included.
func (r *Registry) Len() int { return len(r.order) }

// IDs returns the layer ids in physical order, bottom first.
func (r *Registry) IDs() []ID { return slices.Clone(r.order) }

// Layers returns the layers in physical order, bottom first.
// The layers are live; mutate them only through the registry.
func (r *Registry) Layers() []*Layer {
	out := make([]*Layer, len(r.order))
	for i, id := range r.order {
		out[i] = r.layers[id]
	}
	return out
}

// Layer returns the layer with the given id.
func (r *Registry) Layer(id ID) (*Layer, bool) {
	l, ok := r.layers[id]
	return l, ok
}

// At returns the layer at a physical index.
func (r *Registry) At(index int) (*Layer, bool) {
	if index < 0 || index >= len(r.order) {
		return nil, false
	}
	return r.layers[r.order[index]], true
}

// Index returns the physical index of id, or -1.
func (r *Registry) Index(id ID) int {
	return slices.Index(r.order, id)
}

// Active returns the active layer.
func (r *Registry) Active() (*Layer, bool) {
	return r.Layer(r.active)
}

// ActiveID returns the active layer id, or "" when nothing is selected.
func (r *Registry) ActiveID() ID { return r.active }

// ActiveIndex returns the physical index of the active layer, or -1.
func (r *Registry) ActiveIndex() int {
	if r.active == "" {
		return -1
	}
	return r.Index(r.active)
}

// Background returns the background layer, if any.
func (r *Registry) Background() (*Layer, bool) {
	for _, id := range r.order {
		if l := r.layers[id]; l.IsBackground() {
			return l, true
		}
	}
	return nil, false
}

// History returns the attached history log, or nil.
func (r *Registry) History() *history.Log { return r.log }

// Bus returns the attached event bus, or nil.
func (r *Registry) Bus() *event.Bus { return r.bus }

// Masks returns the attached mask compositor, or nil.
func (r *Registry) Masks() *MaskCompositor { return r.masks }

// VisibleLayers returns the layers shown in the layer list: physical order
// minus descendants of collapsed folders. Visibility flags do not matter.
func (r *Registry) VisibleLayers() []*Layer {
	out := make([]*Layer, 0, len(r.order))
	for _, id := range r.order {
		if !r.collapsedAncestor(id) {
			out = append(out, r.layers[id])
		}
	}
	return out
}

func (r *Registry) collapsedAncestor(id ID) bool {
	for _, pid := range r.ancestors(id) {
		if f, ok := r.layers[pid].Folder(); ok && !f.Expanded {
			return true
		}
	}
	return false
}

// ancestors returns the parent chain of id, nearest first.
func (r *Registry) ancestors(id ID) []ID {
	var out []ID
	l, ok := r.layers[id]
	for ok && l.ParentID != "" && len(out) < len(r.order) {
		out = append(out, l.ParentID)
		l, ok = r.layers[l.ParentID]
	}
	return out
}

// Effective returns whether a layer ends up drawn and its opacity after
// multiplying in every enclosing folder.
func (r *Registry) Effective(id ID) (visible bool, opacity float64) {
	l, ok := r.layers[id]
	if !ok {
		return false, 0
	}
	visible, opacity = l.Visible, l.Opacity
	for _, pid := range r.ancestors(id) {
		p := r.layers[pid]
		visible = visible && p.Visible
		opacity *= p.Opacity
	}
	return visible, opacity
}

// CreateBackground inserts the background layer at the bottom. A registry
// has at most one; the call is part of session setup and is not recorded.
func (r *Registry) CreateBackground(c color.RGBA) (ID, error) {
	if bg, ok := r.Background(); ok {
		return bg.ID, nil
	}
	l := newLayer("Background", &Background{Color: c})
	r.layers[l.ID] = l
	r.order = slices.Insert(r.order, 0, l.ID)
	r.publish(event.LayerCreated, event.LayerCreatedPayload{LayerID: string(l.ID), Name: l.Name, IsBackground: true})
	return l.ID, nil
}

// Create appends an empty drawing layer on top and activates it.
func (r *Registry) Create(name string) (ID, error) {
	before := r.captureForHistory()
	l := newLayer(name, &Drawing{})
	r.layers[l.ID] = l
	r.order = append(r.order, l.ID)
	r.publish(event.LayerCreated, event.LayerCreatedPayload{LayerID: string(l.ID), Name: name})
	r.activate(l.ID)
	r.record("layer.create", before, history.Meta{"layer": string(l.ID)})
	return l.ID, nil
}

// CreateFolder appends an empty, expanded folder on top.
func (r *Registry) CreateFolder(name string) (ID, error) {
	before := r.captureForHistory()
	l := newLayer(name, &Folder{Expanded: true})
	r.layers[l.ID] = l
	r.order = append(r.order, l.ID)
	r.publish(event.FolderCreated, event.FolderPayload{FolderID: string(l.ID), Name: name, Expanded: true})
	r.record("folder.create", before, history.Meta{"folder": string(l.ID)})
	return l.ID, nil
}

// Delete removes a layer. Folders are deleted together with their
// descendants, deepest first, as one history entry. The background layer
// and the last remaining layer cannot be deleted.
func (r *Registry) Delete(id ID) error {
	l, ok := r.layers[id]
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	if l.IsBackground() {
		return layerkit.ErrBackgroundLayer
	}
	doomed := r.subtree(id)
	gone := make(map[ID]bool, len(doomed))
	for _, d := range doomed {
		gone[d] = true
	}
	remaining := 0
	for _, other := range r.order {
		if !gone[other] && !r.layers[other].IsBackground() {
			remaining++
		}
	}
	if remaining == 0 {
		return layerkit.ErrLastLayer
	}

	before := r.captureForHistory()
	var next ID
	if gone[r.active] {
		next = r.neighbour(r.ActiveIndex(), gone)
	}
	for _, d := range doomed {
		idx := r.Index(d)
		dl := r.layers[d]
		r.detach(dl)
		r.masks.Release(dl)
		r.order = slices.Delete(r.order, idx, idx+1)
		delete(r.layers, d)
		r.publish(event.LayerDeleted, event.LayerDeletedPayload{LayerID: string(d), LayerIndex: idx})
	}
	if next != "" {
		r.activate(next)
	}
	layerkit.Logger().Debug("layer: deleted", "layer", id, "count", len(doomed))
	r.record("layer.delete", before, history.Meta{"layer": string(id)})
	return nil
}

// subtree lists id's descendants depth-first, children before parents,
// ending with id itself.
func (r *Registry) subtree(id ID) []ID {
	var out []ID
	seen := make(map[ID]bool)
	var walk func(ID)
	walk = func(cur ID) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		l, ok := r.layers[cur]
		if !ok {
			return
		}
		if f, ok := l.Folder(); ok {
			for _, c := range f.Children {
				walk(c)
			}
		}
		out = append(out, cur)
	}
	walk(id)
	return out
}

// neighbour returns the selectable survivor nearest to index, preferring
// the one below.
func (r *Registry) neighbour(index int, gone map[ID]bool) ID {
	ok := func(i int) bool {
		id := r.order[i]
		return !gone[id] && !r.layers[id].IsBackground()
	}
	for i := index - 1; i >= 0; i-- {
		if ok(i) {
			return r.order[i]
		}
	}
	for i := index + 1; i < len(r.order); i++ {
		if ok(i) {
			return r.order[i]
		}
	}
	return ""
}

// Reorder swaps the layers at physical positions from and to. The active
// selection follows its layer. Folder child lists are not affected.
func (r *Registry) Reorder(from, to int) error {
	a, okA := r.At(from)
	b, okB := r.At(to)
	if !okA || !okB {
		return layerkit.ErrIndexOutOfRange
	}
	if a.IsBackground() || b.IsBackground() {
		return layerkit.ErrBackgroundLayer
	}
	if from == to {
		return nil
	}
	before := r.captureForHistory()
	r.order[from], r.order[to] = r.order[to], r.order[from]
	r.publish(event.LayerReordered, event.ReorderedPayload{FromIndex: from, ToIndex: to})
	r.record("layer.reorder", before, history.Meta{"from": fmt.Sprint(from), "to": fmt.Sprint(to)})
	return nil
}

// Move swaps a layer with its adjacent sibling one step up (+1) or down
// (-1) among the layers sharing its parent. Both the physical order and
// the folder's child list change.
func (r *Registry) Move(id ID, step int) error {
	l, ok := r.layers[id]
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	if l.IsBackground() {
		return layerkit.ErrBackgroundLayer
	}
	if step != 1 && step != -1 {
		return fmt.Errorf("layer: move step %d: %w", step, layerkit.ErrIndexOutOfRange)
	}
	siblings := r.siblings(l)
	pos := slices.Index(siblings, id)
	next := pos + step
	if next < 0 || next >= len(siblings) {
		return layerkit.ErrIndexOutOfRange
	}
	other := r.layers[siblings[next]]
	if other.IsBackground() {
		return layerkit.ErrBackgroundLayer
	}

	before := r.captureForHistory()
	i, j := r.Index(id), r.Index(other.ID)
	r.order[i], r.order[j] = r.order[j], r.order[i]
	if p, ok := r.layers[l.ParentID]; ok {
		if f, ok := p.Folder(); ok {
			ci, cj := slices.Index(f.Children, id), slices.Index(f.Children, other.ID)
			if ci >= 0 && cj >= 0 {
				f.Children[ci], f.Children[cj] = f.Children[cj], f.Children[ci]
			}
		}
	}
	r.publish(event.LayerReordered, event.ReorderedPayload{FromIndex: i, ToIndex: j})
	r.record("layer.move", before, history.Meta{"layer": string(id), "step": fmt.Sprint(step)})
	return nil
}

// siblings returns the ids sharing l's parent, in physical order.
func (r *Registry) siblings(l *Layer) []ID {
	var out []ID
	for _, id := range r.order {
		if r.layers[id].ParentID == l.ParentID {
			out = append(out, id)
		}
	}
	return out
}

// SetActive selects the layer at a physical index. The background layer
// cannot be selected.
func (r *Registry) SetActive(index int) error {
	l, ok := r.At(index)
	if !ok {
		return layerkit.ErrIndexOutOfRange
	}
	if l.IsBackground() {
		return layerkit.ErrBackgroundLayer
	}
	r.activate(l.ID)
	return nil
}

// SetActiveID selects a layer by id.
func (r *Registry) SetActiveID(id ID) error {
	idx := r.Index(id)
	if idx < 0 {
		return layerkit.ErrLayerNotFound
	}
	return r.SetActive(idx)
}

func (r *Registry) activate(id ID) {
	if r.active == id {
		return
	}
	old := r.ActiveIndex()
	r.active = id
	r.publish(event.LayerActivated, event.LayerActivatedPayload{
		LayerIndex: r.Index(id),
		OldIndex:   old,
		LayerID:    string(id),
	})
}

// ToggleVisibility flips a layer's visibility flag.
func (r *Registry) ToggleVisibility(id ID) error {
	l, ok := r.layers[id]
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	if l.IsBackground() {
		return layerkit.ErrBackgroundLayer
	}
	cmd := &visibilityCommand{reg: r, id: id, before: l.Visible, after: !l.Visible}
	_ = cmd.Apply(history.Do)
	r.push(cmd, history.Meta{"layer": string(id)})
	return nil
}

// SetOpacity sets a layer's opacity, clamped to [0, 1].
func (r *Registry) SetOpacity(id ID, opacity float64) error {
	l, ok := r.layers[id]
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	if l.IsBackground() {
		return layerkit.ErrBackgroundLayer
	}
	if math.IsNaN(opacity) {
		return layerkit.ErrInvalidValue
	}
	opacity = math.Max(0, math.Min(1, opacity))
	if opacity == l.Opacity {
		return nil
	}
	cmd := &opacityCommand{reg: r, id: id, before: l.Opacity, after: opacity}
	_ = cmd.Apply(history.Do)
	r.push(cmd, history.Meta{"layer": string(id)})
	return nil
}

// AddToFolder makes id a member of folder, leaving any previous folder.
func (r *Registry) AddToFolder(id, folder ID) error {
	l, ok := r.layers[id]
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	fl, ok := r.layers[folder]
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	f, ok := fl.Folder()
	if !ok {
		return layerkit.ErrNotFolder
	}
	if l.IsBackground() {
		return layerkit.ErrBackgroundLayer
	}
	if id == folder || slices.Contains(r.ancestors(folder), id) {
		return layerkit.ErrFolderCycle
	}
	if l.ParentID == folder {
		return nil
	}

	before := r.captureForHistory()
	r.detach(l)
	l.ParentID = folder
	f.Children = append(f.Children, id)
	r.record("folder.add", before, history.Meta{"layer": string(id), "folder": string(folder)})
	return nil
}

// RemoveFromFolder moves a layer back to the top level. It is a no-op for
// layers that are not in a folder.
func (r *Registry) RemoveFromFolder(id ID) error {
	l, ok := r.layers[id]
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	if l.ParentID == "" {
		return nil
	}
	before := r.captureForHistory()
	parent := l.ParentID
	r.detach(l)
	r.record("folder.remove", before, history.Meta{"layer": string(id), "folder": string(parent)})
	return nil
}

// detach removes l from its parent's child list and clears ParentID.
func (r *Registry) detach(l *Layer) {
	if l.ParentID == "" {
		return
	}
	if p, ok := r.layers[l.ParentID]; ok {
		if f, ok := p.Folder(); ok {
			if i := slices.Index(f.Children, l.ID); i >= 0 {
				f.Children = slices.Delete(f.Children, i, i+1)
			}
		}
	}
	l.ParentID = ""
}

// ToggleFolderExpanded flips a folder's expanded flag. Only VisibleLayers
// is affected; the physical order never changes. Expansion is view state
// and is not recorded in history.
func (r *Registry) ToggleFolderExpanded(id ID) error {
	l, ok := r.layers[id]
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	f, ok := l.Folder()
	if !ok {
		return layerkit.ErrNotFolder
	}
	f.Expanded = !f.Expanded
	r.publish(event.FolderToggled, event.FolderPayload{FolderID: string(id), Name: l.Name, Expanded: f.Expanded})
	return nil
}

// AddStroke appends a finished stroke to a drawing layer.
func (r *Registry) AddStroke(id ID, s *stroke.Stroke) error {
	l, ok := r.layers[id]
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	if _, ok := l.Drawing(); !ok {
		return layerkit.ErrNotDrawing
	}
	if s == nil {
		return layerkit.ErrInvalidValue
	}
	cmd := &strokeCommand{reg: r, id: id, stroke: s.Clone()}
	_ = cmd.Apply(history.Do)
	r.push(cmd, history.Meta{"layer": string(id), "stroke": string(s.ID)})
	return nil
}

// ReplaceStrokes swaps a drawing layer's stroke list wholesale. It is not
// recorded; callers that commit user actions record their own command.
func (r *Registry) ReplaceStrokes(id ID, strokes []*stroke.Stroke) error {
	l, ok := r.layers[id]
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	d, ok := l.Drawing()
	if !ok {
		return layerkit.ErrNotDrawing
	}
	d.Strokes = strokes
	return nil
}

// SetLayerTransform sets a layer's own transform without recording it.
func (r *Registry) SetLayerTransform(id ID, t layerkit.Transform) error {
	l, ok := r.layers[id]
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	l.Transform = t
	return nil
}

// Clone returns an independent registry holding deep copies of every
// layer (masks included). The clone shares this registry's history, bus
// and mask compositor.
func (r *Registry) Clone() *Registry {
	c := &Registry{
		order:  slices.Clone(r.order),
		layers: make(map[ID]*Layer, len(r.layers)),
		active: r.active,
		log:    r.log,
		bus:    r.bus,
		masks:  r.masks,
	}
	for id, l := range r.layers {
		c.layers[id] = l.Clone()
	}
	return c
}

// Duplicate is Clone with fresh layer ids, used when copying a frame so
// that ids stay unique across frames. Folder membership and the active
// layer are remapped; stroke ids are kept.
func (r *Registry) Duplicate() *Registry {
	c := r.Clone()
	remap := make(map[ID]ID, len(c.order))
	for _, id := range c.order {
		remap[id] = NewID()
	}
	layers := make(map[ID]*Layer, len(c.layers))
	for i, id := range c.order {
		l := c.layers[id]
		l.ID = remap[id]
		if l.ParentID != "" {
			l.ParentID = remap[l.ParentID]
		}
		if f, ok := l.Folder(); ok {
			for j, child := range f.Children {
				f.Children[j] = remap[child]
			}
		}
		layers[l.ID] = l
		c.order[i] = l.ID
	}
	c.layers = layers
	if c.active != "" {
		c.active = remap[c.active]
	}
	return c
}

func (r *Registry) publish(name event.Name, payload any) {
	r.bus.Publish(name, payload)
}

// recording reports whether mutations should produce history entries.
func (r *Registry) recording() bool {
	return r.log != nil && !r.log.Replaying()
}

func (r *Registry) push(cmd history.Command, meta history.Meta) {
	if r.recording() {
		r.log.Push(cmd, meta)
	}
}
