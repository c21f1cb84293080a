package session

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/layerkit"
	"github.com/gogpu/layerkit/event"
	"github.com/gogpu/layerkit/frame"
	"github.com/gogpu/layerkit/history"
	"github.com/gogpu/layerkit/layer"
	"github.com/gogpu/layerkit/render"
	"github.com/gogpu/layerkit/stroke"
	"github.com/gogpu/layerkit/transform"
)

// ErrLastFrame is returned when removing the only frame.
var ErrLastFrame = errors.New("session: cannot remove the last frame")

// FirstLayerName names the drawing layer every new frame starts with.
const FirstLayerName = "Layer 1"

// Session owns one document: its frames, the shared undo history, the
// transform controller for the active frame and the frame compositor.
//
// All methods must be called from the event loop. Renderer goroutines hand
// results over with Bus().Post and the loop applies them with Bus().Drain.
type Session struct {
	opts   options
	bus    *event.Bus
	log    *history.Log
	masks  *layer.MaskCompositor
	frames *frame.Store
	active frame.ID

	ctl  *transform.Controller
	comp *render.FrameCompositor
	gw   *render.TextureGateway

	unsubs []func()
	closed bool
}

// New creates a session holding one frame with a background and an empty
// drawing layer. The new frame is active and the history is empty.
func New(opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.width <= 0 || o.height <= 0 {
		return nil, fmt.Errorf("session: canvas %dx%d: %w", o.width, o.height, layerkit.ErrInvalidValue)
	}
	if o.historyLimit < 0 {
		return nil, fmt.Errorf("session: history limit %d: %w", o.historyLimit, layerkit.ErrInvalidValue)
	}

	s := &Session{
		opts:   o,
		bus:    o.bus,
		log:    history.NewLog(o.historyLimit),
		frames: frame.NewStore(),
	}
	if s.bus == nil {
		s.bus = event.NewBus()
	}

	var alloc layer.MaskAllocator
	if o.renderer != nil {
		alloc = o.renderer
		if b, ok := o.renderer.(interface{ SetBuilder(stroke.Builder) }); ok && o.builder != nil {
			b.SetBuilder(o.builder)
		}
	}
	s.masks = layer.NewMaskCompositor(alloc, o.width, o.height)

	first, err := s.frames.Add("Cut 1", s.newRegistry())
	if err != nil {
		return nil, err
	}
	s.active = first.ID

	s.comp = render.NewFrameCompositor(o.renderer, o.width, o.height,
		render.WithBus(s.bus),
		render.WithThumbnailCache(o.thumbCache),
		render.WithPivot(layerkit.Pt(float64(o.width)/2, float64(o.height)/2)),
	)
	s.gw = render.NewTextureGateway(s.comp, s.bus, s.locate)
	s.ctl = transform.NewController(first.Registry(), o.transformConfig())

	s.log.OnChange(s.historyChanged)
	for _, name := range []event.Name{
		event.LayerCreated,
		event.LayerDeleted,
		event.LayerUpdated,
		event.LayerTransformConfirmed,
		event.LayerVisibilityChanged,
		event.LayerOpacityChanged,
		event.LayerReordered,
		event.LayerStrokeAdded,
		event.FolderCreated,
	} {
		s.unsubs = append(s.unsubs, s.bus.Subscribe(name, s.onLayerEvent))
	}
	s.comp.Invalidate(string(first.ID))

	layerkit.Logger().Debug("session: created",
		"width", o.width, "height", o.height, "renderer", o.renderer != nil)
	return s, nil
}

// newRegistry builds a frame's starting layers before attaching the
// history, so they cannot be undone.
func (s *Session) newRegistry() *layer.Registry {
	reg := layer.NewRegistry(layer.WithBus(s.bus), layer.WithMasks(s.masks))
	_, _ = reg.CreateBackground(s.opts.background)
	_, _ = reg.Create(FirstLayerName)
	reg.SetHistory(s.log)
	return reg
}

func (s *Session) locate(id layer.ID) (string, int, bool) {
	f, i, ok := s.frames.Locate(id)
	if !ok {
		return "", -1, false
	}
	return string(f.ID), i, true
}

func (s *Session) lookup(id string) (*layer.Registry, bool) {
	f, ok := s.frames.Frame(frame.ID(id))
	if !ok {
		return nil, false
	}
	return f.Registry(), true
}

func (s *Session) historyChanged() {
	s.bus.Publish(event.HistoryChanged, event.HistoryPayload{
		CanUndo: s.log.CanUndo(),
		CanRedo: s.log.CanRedo(),
		Len:     s.log.Len(),
	})
}

// onLayerEvent invalidates the frame owning the layer an event names.
// Events without a live layer fall back to the active frame.
func (s *Session) onLayerEvent(e event.Event) {
	var id string
	switch p := e.Payload.(type) {
	case event.LayerCreatedPayload:
		id = p.LayerID
	case event.LayerUpdatedPayload:
		id = p.LayerID
	case event.LayerPayload:
		id = p.LayerID
	case event.VisibilityPayload:
		id = p.LayerID
	case event.OpacityPayload:
		id = p.LayerID
	case event.FolderPayload:
		id = p.FolderID
	}
	if f, _, ok := s.frames.Locate(layer.ID(id)); ok {
		s.touch(f)
		return
	}
	if f, ok := s.frames.Frame(s.active); ok {
		s.touch(f)
	}
}

func (s *Session) touch(f *frame.Frame) {
	f.MarkDirty()
	s.comp.Invalidate(string(f.ID))
}

// Bus returns the session's event bus.
func (s *Session) Bus() *event.Bus { return s.bus }

// History returns the undo log shared by all frames.
func (s *Session) History() *history.Log { return s.log }

// Frames returns the frame store.
func (s *Session) Frames() *frame.Store { return s.frames }

// Controller returns the transform controller of the active frame.
func (s *Session) Controller() *transform.Controller { return s.ctl }

// Compositor returns the frame compositor.
func (s *Session) Compositor() *render.FrameCompositor { return s.comp }

// Gateway returns the texture gateway.
func (s *Session) Gateway() *render.TextureGateway { return s.gw }

// Masks returns the mask compositor shared by all frames.
func (s *Session) Masks() *layer.MaskCompositor { return s.masks }

// Size returns the canvas size.
func (s *Session) Size() (width, height int) { return s.opts.width, s.opts.height }

// ActiveFrame returns the frame being edited.
func (s *Session) ActiveFrame() *frame.Frame {
	f, _ := s.frames.Frame(s.active)
	return f
}

// Registry returns the layers of the active frame.
func (s *Session) Registry() *layer.Registry {
	return s.ActiveFrame().Registry()
}

// AddFrame appends a new frame with the default starting layers.
func (s *Session) AddFrame(name string) (*frame.Frame, error) {
	f, err := s.frames.Add(name, s.newRegistry())
	if err != nil {
		return nil, err
	}
	s.touch(f)
	return f, nil
}

// DuplicateFrame inserts a copy of frame id after it. The copy shares the
// session history; its layers get fresh ids.
func (s *Session) DuplicateFrame(id frame.ID, name string) (*frame.Frame, error) {
	f, err := s.frames.Duplicate(id, name)
	if err != nil {
		return nil, err
	}
	s.touch(f)
	return f, nil
}

// SwitchFrame makes frame id active. Pending live transforms of the
// previous frame are confirmed first; a confirm error is returned after
// the switch completes.
func (s *Session) SwitchFrame(id frame.ID) error {
	f, ok := s.frames.Frame(id)
	if !ok {
		return frame.ErrFrameNotFound
	}
	if id == s.active {
		return nil
	}
	err := s.ctl.SetRegistry(f.Registry())
	s.active = id
	return err
}

// RemoveFrame deletes a frame and releases its texture. Removing the
// active frame activates its successor, or its predecessor when it was
// last. The removal is not recorded in history.
func (s *Session) RemoveFrame(id frame.ID) error {
	gone, ok := s.frames.Frame(id)
	if !ok {
		return frame.ErrFrameNotFound
	}
	if s.frames.Len() == 1 {
		return ErrLastFrame
	}
	var err error
	if id == s.active {
		frames := s.frames.Frames()
		i := s.frames.Index(id)
		next := frames[min(i+1, len(frames)-1)]
		if next.ID == id {
			next = frames[i-1]
		}
		err = s.SwitchFrame(next.ID)
	}
	for _, l := range gone.Registry().Layers() {
		s.gw.Forget(l.ID)
	}
	s.comp.Release(string(id))
	return errors.Join(err, s.frames.Remove(id))
}

// Undo reverts the newest history entry. An open move session keeps its
// live transforms on the restored layers.
func (s *Session) Undo() error {
	err := s.log.Undo()
	s.ctl.Reconcile()
	return err
}

// Redo re-applies the newest undone entry.
func (s *Session) Redo() error {
	err := s.log.Redo()
	s.ctl.Reconcile()
	return err
}

// ClipLayer limits a drawing layer of the active frame to r.
func (s *Session) ClipLayer(id layer.ID, r image.Rectangle) error {
	l, ok := s.Registry().Layer(id)
	if !ok {
		return layerkit.ErrLayerNotFound
	}
	if _, ok := l.Drawing(); !ok {
		return layerkit.ErrNotDrawing
	}
	if !s.masks.ClipRect(l, r) {
		return layerkit.ErrNoRenderer
	}
	s.touch(s.ActiveFrame())
	return nil
}

// Render re-renders every changed frame once and returns how many were
// rendered. Frames that fail stay dirty and are retried on the next call.
func (s *Session) Render() (int, error) {
	n, err := s.comp.Flush(s.lookup)
	for _, f := range s.frames.Frames() {
		if f.Dirty() && !s.comp.Pending(string(f.ID)) {
			f.ClearDirty()
		}
	}
	if err != nil {
		layerkit.Logger().Warn("session: render failed", "rendered", n, "err", err)
	}
	return n, err
}

// Texture returns the current texture of a frame.
func (s *Session) Texture(id frame.ID) (render.RenderTarget, bool) {
	return s.comp.Texture(string(id))
}

// Snapshot returns the pixels of a rendered frame. The image shares memory
// with the frame texture and is valid until the next render.
func (s *Session) Snapshot(id frame.ID) (*image.RGBA, error) {
	t, ok := s.comp.Texture(string(id))
	if !ok {
		return nil, render.ErrFrameNotRendered
	}
	return render.TargetImage(t)
}

// Thumbnail returns a scaled copy of a rendered frame.
func (s *Session) Thumbnail(id frame.ID, w, h int) (*image.RGBA, error) {
	return s.comp.Thumbnail(string(id), w, h)
}

// Close confirms pending transforms, drops subscriptions and releases
// every texture. Close is idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.ctl.ExitMoveMode()
	s.ctl.Close()
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	s.gw.Close()
	s.comp.Close()
	return err
}
