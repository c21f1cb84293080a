package transform

import (
	"strings"

	"github.com/gogpu/layerkit"
	"github.com/gogpu/layerkit/event"
	"github.com/gogpu/layerkit/history"
	"github.com/gogpu/layerkit/layer"
	"github.com/gogpu/layerkit/stroke"
)

// CommandConfirm names the history entry recorded by ConfirmTransform.
const CommandConfirm = "transform.confirm"

// ConfirmTransform bakes the live transform of a layer into its strokes.
//
// It reports false and changes nothing when the layer has no live
// transform or the live transform is the identity. A pure flip is not the
// identity and is baked. Otherwise every stroke
// is replaced by a baked copy, the live and layer transforms are reset to
// identity and one history entry is recorded. A stroke whose drawable
// cannot be rebuilt is dropped; the others still commit.
func (c *Controller) ConfirmTransform(id layer.ID) (bool, error) {
	t, ok := c.live[id]
	if !ok {
		return false, nil
	}
	if t.IsIdentity() {
		delete(c.live, id)
		return false, nil
	}
	l, ok := c.reg.Layer(id)
	if !ok {
		delete(c.live, id)
		return false, layerkit.ErrLayerNotFound
	}
	d, ok := l.Drawing()
	if !ok {
		delete(c.live, id)
		return false, layerkit.ErrNotDrawing
	}

	if c.state == Dragging && c.drag.id == id {
		c.state = MoveMode
		c.drag = drag{}
	}

	before := stroke.CloneAll(d.Strokes)
	baked, dropped := stroke.Bake(d.Strokes, t.Matrix(c.cfg.Pivot), c.cfg.Builder)
	cmd := &confirmCommand{
		ctl:       c,
		reg:       c.reg,
		id:        id,
		transform: t,
		before:    before,
		after:     stroke.CloneAll(baked),
	}
	cmd.commit(baked)

	if log := c.reg.History(); log != nil && !log.Replaying() {
		meta := history.Meta{"layer": string(id)}
		if len(dropped) > 0 {
			meta["dropped"] = joinIDs(dropped)
		}
		log.Push(cmd, meta)
	}
	layerkit.Logger().Debug("transform: confirmed", "layer", id, "strokes", len(baked), "dropped", len(dropped))
	return true, nil
}

func joinIDs(ids []stroke.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

// confirmCommand replays or reverts one bake. Undo restores the pre-bake
// strokes and reapplies the pre-bake transform for display, which
// reproduces what was on screen before the confirm.
//
// The command keeps the registry it was recorded on. Replaying it while the
// controller edits another frame leaves the restored transform on the
// layer, and the controller adopts it when that frame is attached again.
type confirmCommand struct {
	ctl       *Controller
	reg       *layer.Registry
	id        layer.ID
	transform layerkit.Transform
	before    []*stroke.Stroke
	after     []*stroke.Stroke
}

func (c *confirmCommand) Name() string { return CommandConfirm }

func (c *confirmCommand) Apply(dir history.Direction) error {
	if dir == history.Undo {
		return c.revert()
	}
	if _, ok := c.reg.Layer(c.id); !ok {
		return layerkit.ErrLayerNotFound
	}
	c.commit(stroke.CloneAll(c.after))
	return nil
}

// commit installs baked strokes with an identity transform.
func (c *confirmCommand) commit(baked []*stroke.Stroke) {
	_ = c.reg.ReplaceStrokes(c.id, baked)
	_ = c.reg.SetLayerTransform(c.id, layerkit.IdentityTransform())
	if c.ctl.reg == c.reg {
		delete(c.ctl.live, c.id)
	}
	bus := c.reg.Bus()
	bus.Publish(event.LayerTransformConfirmed, event.LayerPayload{LayerID: string(c.id)})
	bus.Publish(event.LayerUpdated, event.LayerUpdatedPayload{LayerID: string(c.id), Transform: layerkit.IdentityTransform()})
}

func (c *confirmCommand) revert() error {
	l, ok := c.reg.Layer(c.id)
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	if err := c.reg.ReplaceStrokes(c.id, stroke.CloneAll(c.before)); err != nil {
		return err
	}
	if c.ctl.reg == c.reg {
		c.ctl.live[c.id] = c.transform
	}
	c.ctl.display(c.reg, l, c.transform)
	c.reg.Bus().Publish(event.LayerUpdated, event.LayerUpdatedPayload{LayerID: string(c.id), Transform: c.transform})
	return nil
}
