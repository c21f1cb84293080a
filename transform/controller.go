package transform

import (
	"cmp"
	"errors"
	"maps"
	"math"
	"slices"

	"github.com/gogpu/layerkit"
	"github.com/gogpu/layerkit/event"
	"github.com/gogpu/layerkit/layer"
)

// ErrNotInMoveMode is returned by edits issued while the controller is idle.
var ErrNotInMoveMode = errors.New("transform: not in move mode")

// ErrNotDragging is returned by Drag and EndDrag without a BeginDrag.
var ErrNotDragging = errors.New("transform: no drag in progress")

// State is the controller's interaction state.
type State uint8

// State constants.
const (
	// Idle means no transform session is open.
	Idle State = iota

	// MoveMode accepts key and panel edits on the active layer.
	MoveMode

	// Dragging is MoveMode with a pointer button held.
	Dragging
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case MoveMode:
		return "MoveMode"
	case Dragging:
		return "Dragging"
	default:
		return "Unknown"
	}
}

// Modifiers is a bit set of keyboard modifiers held during a drag.
type Modifiers uint8

// Modifier bits.
const (
	// ModShift turns a drag into a rotation or a uniform scale.
	ModShift Modifiers = 1 << iota
)

// ApplyFunc displays transform t on layer l about pivot. Hosts with their
// own scene graph supply one; otherwise the controller recomputes the
// strokes' display points directly.
type ApplyFunc func(l *layer.Layer, t layerkit.Transform, pivot layerkit.Point)

type drag struct {
	id    layer.ID
	start layerkit.Point
	base  layerkit.Transform
}

// Controller drives interactive transforms of the active layer.
//
// It owns the live, uncommitted transform of every layer edited in the
// current session. Edits only change display points; ConfirmTransform bakes
// a live transform into the strokes and records it as one history entry.
//
// Controller is not safe for concurrent use.
type Controller struct {
	reg   *layer.Registry
	cfg   Config
	state State
	live  map[layer.ID]layerkit.Transform
	drag  drag

	unsubscribe func()
}

// NewController creates an idle controller editing the layers of reg.
func NewController(reg *layer.Registry, cfg Config) *Controller {
	c := &Controller{
		cfg:  cfg.normalize(),
		live: make(map[layer.ID]layerkit.Transform),
	}
	c.attach(reg)
	return c
}

// attach switches to reg and adopts the transforms its layers still carry
// from an undo replayed while another frame was attached.
func (c *Controller) attach(reg *layer.Registry) {
	c.reg = reg
	c.Reconcile()
	c.unsubscribe = reg.Bus().Subscribe(event.LayerDeleted, func(e event.Event) {
		if p, ok := e.Payload.(event.LayerDeletedPayload); ok {
			c.Forget(layer.ID(p.LayerID))
		}
	})
}

// Reconcile brings the live transforms and the registry back in step after
// history has been replayed. A layer with a live transform is redisplayed
// under it. A drawing layer that carries a transform the controller does
// not know about, such as one brought back by undoing its deletion, has it
// adopted as live so the next confirm bakes it. Live entries of layers that
// are gone or no longer drawings are dropped.
func (c *Controller) Reconcile() {
	for id, t := range c.live {
		l, ok := c.reg.Layer(id)
		if !ok {
			c.Forget(id)
			continue
		}
		if _, ok := l.Drawing(); !ok {
			c.Forget(id)
			continue
		}
		moved := l.Transform != t
		c.display(c.reg, l, t)
		if moved {
			c.publish(event.LayerUpdated, event.LayerUpdatedPayload{LayerID: string(id), Transform: t})
		}
	}
	for _, l := range c.reg.Layers() {
		if _, ok := c.live[l.ID]; ok || l.Transform.IsIdentity() {
			continue
		}
		if _, ok := l.Drawing(); !ok {
			continue
		}
		c.live[l.ID] = l.Transform
		c.display(c.reg, l, l.Transform)
	}
}

// SetRegistry confirms every pending transform and switches the
// controller to reg. Use it when the host changes frames.
func (c *Controller) SetRegistry(reg *layer.Registry) error {
	if reg == c.reg {
		return nil
	}
	err := c.ExitMoveMode()
	c.Close()
	c.attach(reg)
	return err
}

// Close removes the controller's event subscriptions.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// Registry returns the registry being edited.
func (c *Controller) Registry() *layer.Registry { return c.reg }

// State returns the interaction state.
func (c *Controller) State() State { return c.state }

// Pivot returns the point scale and rotation act about.
func (c *Controller) Pivot() layerkit.Point { return c.cfg.Pivot }

// LiveTransform returns the uncommitted transform of a layer, or identity.
func (c *Controller) LiveTransform(id layer.ID) layerkit.Transform {
	if t, ok := c.live[id]; ok {
		return t
	}
	return layerkit.IdentityTransform()
}

// Transforms returns a copy of every live transform.
func (c *Controller) Transforms() map[layer.ID]layerkit.Transform {
	return maps.Clone(c.live)
}

// Forget drops the live transform of a layer that no longer exists.
func (c *Controller) Forget(id layer.ID) {
	delete(c.live, id)
	if c.state == Dragging && c.drag.id == id {
		c.state = MoveMode
		c.drag = drag{}
	}
}

// EnterMoveMode opens a transform session on the active layer and surfaces
// its current transform.
func (c *Controller) EnterMoveMode() error {
	l, err := c.target()
	if err != nil {
		return err
	}
	if c.state == Idle {
		c.state = MoveMode
		c.publish(event.TransformModeChanged, event.ModePayload{Active: true})
	}
	c.publish(event.LayerUpdated, event.LayerUpdatedPayload{LayerID: string(l.ID), Transform: c.LiveTransform(l.ID)})
	return nil
}

// ExitMoveMode closes the session and confirms every layer holding a live
// transform. Confirmation failures are joined; the controller is idle
// afterwards regardless.
func (c *Controller) ExitMoveMode() error {
	var errs []error
	for _, id := range c.pending() {
		if _, err := c.ConfirmTransform(id); err != nil {
			errs = append(errs, err)
		}
	}
	if c.state != Idle {
		c.state = Idle
		c.drag = drag{}
		c.publish(event.TransformModeChanged, event.ModePayload{Active: false})
	}
	return errors.Join(errs...)
}

// pending lists the layers with a live transform in physical order.
// Entries for unknown layers come last.
func (c *Controller) pending() []layer.ID {
	ids := slices.Collect(maps.Keys(c.live))
	slices.SortFunc(ids, func(a, b layer.ID) int {
		ia, ib := c.reg.Index(a), c.reg.Index(b)
		if ia < 0 {
			ia = math.MaxInt
		}
		if ib < 0 {
			ib = math.MaxInt
		}
		if ia != ib {
			return cmp.Compare(ia, ib)
		}
		return cmp.Compare(a, b)
	})
	return ids
}

// BeginDrag starts a pointer drag at p.
func (c *Controller) BeginDrag(p layerkit.Point) error {
	if c.state != MoveMode {
		return ErrNotInMoveMode
	}
	if !p.IsFinite() {
		return layerkit.ErrInvalidValue
	}
	l, err := c.target()
	if err != nil {
		return err
	}
	c.drag = drag{id: l.ID, start: p, base: c.LiveTransform(l.ID)}
	c.state = Dragging
	return nil
}

// Drag moves the pointer to p. The live transform is recomputed from the
// transform at drag start and the total pointer delta, so any number of
// intermediate events ends in the same result.
//
// Without modifiers the layer follows the pointer. With ModShift a
// dominant vertical delta scales uniformly and a dominant horizontal delta
// rotates.
func (c *Controller) Drag(p layerkit.Point, mods Modifiers) error {
	if c.state != Dragging {
		return ErrNotDragging
	}
	if !p.IsFinite() {
		return nil
	}
	t := c.resolveDrag(p.Sub(c.drag.start), mods)
	return c.update(c.drag.id, t)
}

func (c *Controller) resolveDrag(d layerkit.Point, mods Modifiers) layerkit.Transform {
	t := c.drag.base
	if mods&ModShift == 0 {
		t.X += d.X
		t.Y += d.Y
		return t
	}
	if math.Abs(d.Y) > math.Abs(d.X) {
		// Dragging up enlarges.
		f := math.Max(1-d.Y*c.cfg.ScaleSensitivity, minDragFactor)
		t.ScaleX *= f
		t.ScaleY *= f
		return t
	}
	t.Rotation += d.X * c.cfg.RotateSensitivity
	return t
}

// minDragFactor keeps a long downward drag from collapsing the scale to
// zero or flipping it.
const minDragFactor = 0.01

// EndDrag releases the pointer. Nothing is recorded until the transform is
// confirmed.
func (c *Controller) EndDrag() error {
	if c.state != Dragging {
		return ErrNotDragging
	}
	c.state = MoveMode
	c.drag = drag{}
	return nil
}

// Nudge translates the active layer by (dx, dy).
func (c *Controller) Nudge(dx, dy float64) error {
	return c.edit(func(t layerkit.Transform) layerkit.Transform {
		t.X += dx
		t.Y += dy
		return t
	})
}

// Rotate adds angle radians to the active layer's rotation.
func (c *Controller) Rotate(angle float64) error {
	return c.edit(func(t layerkit.Transform) layerkit.Transform {
		t.Rotation += angle
		return t
	})
}

// ScaleBy multiplies both scale axes of the active layer by f. f must be
// positive; use the flip operations to mirror.
func (c *Controller) ScaleBy(f float64) error {
	if !(f > 0) || math.IsInf(f, 0) {
		return layerkit.ErrInvalidValue
	}
	return c.edit(func(t layerkit.Transform) layerkit.Transform {
		t.ScaleX *= f
		t.ScaleY *= f
		return t
	})
}

// FlipHorizontal mirrors the active layer left to right.
func (c *Controller) FlipHorizontal() error {
	return c.edit(layerkit.Transform.FlipHorizontal)
}

// FlipVertical mirrors the active layer top to bottom.
func (c *Controller) FlipVertical() error {
	return c.edit(layerkit.Transform.FlipVertical)
}

// SetTransform replaces the active layer's live transform, as a numeric
// panel would.
func (c *Controller) SetTransform(t layerkit.Transform) error {
	return c.edit(func(layerkit.Transform) layerkit.Transform { return t })
}

func (c *Controller) edit(fn func(layerkit.Transform) layerkit.Transform) error {
	if c.state == Idle {
		return ErrNotInMoveMode
	}
	l, err := c.target()
	if err != nil {
		return err
	}
	return c.update(l.ID, fn(c.LiveTransform(l.ID)))
}

// target returns the active layer if it can be transformed.
func (c *Controller) target() (*layer.Layer, error) {
	l, ok := c.reg.Active()
	if !ok {
		return nil, layerkit.ErrLayerNotFound
	}
	if _, ok := l.Drawing(); !ok {
		return nil, layerkit.ErrNotDrawing
	}
	return l, nil
}

// update stores t as the live transform of id and redisplays the layer.
func (c *Controller) update(id layer.ID, t layerkit.Transform) error {
	if !finite(t) {
		return layerkit.ErrInvalidValue
	}
	l, ok := c.reg.Layer(id)
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	t = t.ClampScale(c.cfg.MinScale, c.cfg.MaxScale)
	c.live[id] = t
	c.display(c.reg, l, t)
	c.publish(event.LayerUpdated, event.LayerUpdatedPayload{LayerID: string(id), Transform: t})
	return nil
}

// display shows t on l, a layer of reg. Display points are always derived
// from the base points.
func (c *Controller) display(reg *layer.Registry, l *layer.Layer, t layerkit.Transform) {
	_ = reg.SetLayerTransform(l.ID, t)
	if c.cfg.Apply != nil {
		c.cfg.Apply(l, t, c.cfg.Pivot)
		return
	}
	m := t.Matrix(c.cfg.Pivot)
	for _, s := range l.Strokes() {
		s.Display(m)
	}
}

func (c *Controller) publish(name event.Name, payload any) {
	c.reg.Bus().Publish(name, payload)
}

func finite(t layerkit.Transform) bool {
	for _, v := range [...]float64{t.X, t.Y, t.Rotation, t.ScaleX, t.ScaleY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
