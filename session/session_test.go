package session

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/layerkit"
	"github.com/gogpu/layerkit/event"
	"github.com/gogpu/layerkit/frame"
	"github.com/gogpu/layerkit/render"
	"github.com/gogpu/layerkit/stroke"
	"github.com/gogpu/layerkit/transform"
)

const canvas = 32

var (
	white = color.RGBA{255, 255, 255, 255}
	red   = color.RGBA{255, 0, 0, 255}
)

func newSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{
		WithCanvasSize(canvas, canvas),
		WithRenderer(render.NewSoftwareRenderer()),
	}, opts...)
	s, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// drawLine adds a 6px red line along y to the active layer.
func drawLine(t *testing.T, s *Session, y float64) {
	t.Helper()
	reg := s.Registry()
	style := stroke.Style{Width: 6, Color: red, Opacity: 1, Tool: stroke.ToolPen}
	if err := reg.AddStroke(reg.ActiveID(), stroke.New([]layerkit.Point{{X: 0, Y: y}, {X: canvas, Y: y}}, style)); err != nil {
		t.Fatalf("AddStroke() error = %v", err)
	}
}

func pixel(t *testing.T, s *Session, id frame.ID, x, y int) color.RGBA {
	t.Helper()
	img, err := s.Snapshot(id)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	return img.RGBAAt(x, y)
}

func render1(t *testing.T, s *Session) {
	t.Helper()
	if _, err := s.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
}

func TestNew(t *testing.T) {
	s := newSession(t)

	if s.Frames().Len() != 1 {
		t.Fatalf("Frames().Len() = %d, want 1", s.Frames().Len())
	}
	reg := s.Registry()
	if reg.Len() != 2 {
		t.Errorf("new frame has %d layers, want background and %s", reg.Len(), FirstLayerName)
	}
	if l, ok := reg.Active(); !ok || l.Name != FirstLayerName {
		t.Errorf("Active() = %v, want %s", l, FirstLayerName)
	}
	if s.History().Len() != 0 {
		t.Errorf("History().Len() = %d, want 0", s.History().Len())
	}
	if s.Controller().State() != transform.Idle {
		t.Errorf("controller state = %v, want Idle", s.Controller().State())
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero width", WithCanvasSize(0, 10)},
		{"negative height", WithCanvasSize(10, -1)},
		{"negative history", WithHistoryLimit(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opt); !errors.Is(err, layerkit.ErrInvalidValue) {
				t.Errorf("New() error = %v, want ErrInvalidValue", err)
			}
		})
	}
}

func TestRenderCoalescesEdits(t *testing.T) {
	s := newSession(t)
	id := s.ActiveFrame().ID
	updated := 0
	s.Bus().Subscribe(event.FrameUpdated, func(event.Event) { updated++ })

	drawLine(t, s, 16)
	drawLine(t, s, 8)

	n, err := s.Render()
	if err != nil || n != 1 {
		t.Fatalf("Render() = %d, %v; want 1, nil", n, err)
	}
	if updated != 1 {
		t.Errorf("FrameUpdated published %d times, want 1", updated)
	}
	if s.ActiveFrame().Dirty() {
		t.Error("frame still dirty after Render")
	}
	if got := pixel(t, s, id, 10, 16); got != red {
		t.Errorf("stroke pixel = %v, want red", got)
	}
	if got := pixel(t, s, id, 10, 28); got != white {
		t.Errorf("background pixel = %v, want white", got)
	}

	if n, _ := s.Render(); n != 0 {
		t.Errorf("idle Render() = %d, want 0", n)
	}
}

func TestHeadlessSession(t *testing.T) {
	s, err := New(WithCanvasSize(canvas, canvas))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	drawLine(t, s, 16)
	if _, err := s.Render(); !errors.Is(err, layerkit.ErrNoRenderer) {
		t.Errorf("Render() error = %v, want ErrNoRenderer", err)
	}
	if !s.ActiveFrame().Dirty() {
		t.Error("failed render should leave the frame dirty")
	}
	if err := s.ClipLayer(s.Registry().ActiveID(), image.Rect(0, 0, 8, 8)); !errors.Is(err, layerkit.ErrNoRenderer) {
		t.Errorf("ClipLayer() error = %v, want ErrNoRenderer", err)
	}
}

func TestUndoRedoPublishesHistory(t *testing.T) {
	s := newSession(t)
	var got []event.HistoryPayload
	s.Bus().Subscribe(event.HistoryChanged, func(e event.Event) {
		got = append(got, e.Payload.(event.HistoryPayload))
	})

	if _, err := s.Registry().Create("Layer 2"); err != nil {
		t.Fatal(err)
	}
	if err := s.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if s.Registry().Len() != 2 {
		t.Errorf("Len() after undo = %d, want 2", s.Registry().Len())
	}
	if err := s.Redo(); err != nil {
		t.Fatalf("Redo() error = %v", err)
	}

	want := []event.HistoryPayload{
		{CanUndo: true, CanRedo: false, Len: 1},
		{CanUndo: false, CanRedo: true, Len: 1},
		{CanUndo: true, CanRedo: false, Len: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("HistoryChanged = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("HistoryChanged[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTransformConfirmRendersAndUndoes(t *testing.T) {
	s := newSession(t)
	id := s.ActiveFrame().ID
	drawLine(t, s, 8)
	render1(t, s)
	ctl := s.Controller()

	if err := ctl.EnterMoveMode(); err != nil {
		t.Fatal(err)
	}
	if err := ctl.Nudge(0, 16); err != nil {
		t.Fatal(err)
	}
	if err := ctl.ExitMoveMode(); err != nil {
		t.Fatalf("ExitMoveMode() error = %v", err)
	}
	render1(t, s)

	if got := pixel(t, s, id, 10, 24); got != red {
		t.Errorf("moved stroke pixel = %v, want red", got)
	}
	if got := pixel(t, s, id, 10, 8); got != white {
		t.Errorf("vacated pixel = %v, want white", got)
	}

	// Undo restores the live transform, so the screen does not jump.
	if err := s.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	lid := s.Registry().ActiveID()
	if got := ctl.LiveTransform(lid); got.Y != 16 {
		t.Errorf("LiveTransform() after undo = %+v, want Y=16", got)
	}
	l, _ := s.Registry().Active()
	if p := l.Strokes()[0].BasePoints()[0]; p.Y != 8 {
		t.Errorf("base point after undo = %v, want y=8", p)
	}
	render1(t, s)
	if got := pixel(t, s, id, 10, 24); got != red {
		t.Errorf("pixel after undo = %v, want the live preview in red", got)
	}
}

func TestFrames(t *testing.T) {
	s := newSession(t)
	first := s.ActiveFrame()
	drawLine(t, s, 8)

	second, err := s.AddFrame("Cut 2")
	if err != nil {
		t.Fatal(err)
	}
	dup, err := s.DuplicateFrame(first.ID, "Cut 1 copy")
	if err != nil {
		t.Fatal(err)
	}
	if s.Frames().Index(dup.ID) != 1 || s.Frames().Index(second.ID) != 2 {
		t.Errorf("frame order = %v, want copy after its source", s.Frames().Frames())
	}
	if l, _ := dup.Registry().Active(); len(l.Strokes()) != 1 {
		t.Error("duplicate should carry the source strokes")
	}

	n, err := s.Render()
	if err != nil || n != 3 {
		t.Fatalf("Render() = %d, %v; want 3, nil", n, err)
	}
	if got := pixel(t, s, second.ID, 10, 8); got != white {
		t.Errorf("new frame pixel = %v, want an empty canvas", got)
	}
	if got := pixel(t, s, dup.ID, 10, 8); got != red {
		t.Errorf("duplicate pixel = %v, want red", got)
	}

	// Editing one frame only re-renders that frame.
	if err := dup.Registry().ToggleVisibility(dup.Registry().ActiveID()); err != nil {
		t.Fatal(err)
	}
	if !s.Compositor().Pending(string(dup.ID)) || s.Compositor().Pending(string(first.ID)) {
		t.Error("only the edited frame should be invalidated")
	}
}

func TestSwitchFrameConfirmsPendingTransforms(t *testing.T) {
	s := newSession(t)
	first := s.ActiveFrame()
	drawLine(t, s, 8)
	second, _ := s.AddFrame("Cut 2")
	ctl := s.Controller()

	if err := ctl.EnterMoveMode(); err != nil {
		t.Fatal(err)
	}
	if err := ctl.Nudge(4, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.SwitchFrame(second.ID); err != nil {
		t.Fatalf("SwitchFrame() error = %v", err)
	}

	if s.ActiveFrame() != second || ctl.Registry() != second.Registry() {
		t.Error("controller should edit the new frame")
	}
	if ctl.State() != transform.Idle {
		t.Errorf("state after switch = %v, want Idle", ctl.State())
	}
	l, _ := first.Registry().Active()
	if p := l.Strokes()[0].BasePoints()[0]; p.X != 4 {
		t.Errorf("first point = %v, want the nudge baked in", p)
	}
	if names := s.History().Names(); len(names) != 2 || names[1] != transform.CommandConfirm {
		t.Errorf("history = %v, want the stroke then one confirm", names)
	}

	if err := s.SwitchFrame("missing"); !errors.Is(err, frame.ErrFrameNotFound) {
		t.Errorf("SwitchFrame(missing) error = %v, want ErrFrameNotFound", err)
	}
}

func TestRemoveFrame(t *testing.T) {
	s := newSession(t)
	first := s.ActiveFrame()
	second, _ := s.AddFrame("Cut 2")
	render1(t, s)

	if err := s.RemoveFrame(first.ID); err != nil {
		t.Fatalf("RemoveFrame() error = %v", err)
	}
	if s.ActiveFrame() != second {
		t.Error("removing the active frame should activate its successor")
	}
	if _, ok := s.Texture(first.ID); ok {
		t.Error("removed frame should release its texture")
	}
	if err := s.RemoveFrame(second.ID); !errors.Is(err, ErrLastFrame) {
		t.Errorf("RemoveFrame(last) error = %v, want ErrLastFrame", err)
	}
}

func TestTextureDeliveryInvalidatesOwningFrame(t *testing.T) {
	s := newSession(t)
	second, _ := s.AddFrame("Cut 2")
	render1(t, s)
	id := second.Registry().ActiveID()

	img := render.NewImageTexture(nil)
	s.Bus().Post(event.LayerTextureUpdated, event.TexturePayload{LayerID: string(id), Texture: img, Version: 1})
	s.Bus().Drain()

	if s.Gateway().Version(id) != 1 {
		t.Errorf("Version() = %d, want 1", s.Gateway().Version(id))
	}
	if !s.Compositor().Pending(string(second.ID)) {
		t.Error("delivery should invalidate the frame holding the layer")
	}
	if s.Compositor().Pending(string(s.ActiveFrame().ID)) {
		t.Error("delivery should leave other frames alone")
	}
}

func TestThumbnail(t *testing.T) {
	s := newSession(t)
	id := s.ActiveFrame().ID
	render1(t, s)

	thumb, err := s.Thumbnail(id, 8, 8)
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	if got := thumb.RGBAAt(4, 4); got != white {
		t.Errorf("thumbnail pixel = %v, want white", got)
	}
}

func TestClose(t *testing.T) {
	s, err := New(WithCanvasSize(canvas, canvas), WithRenderer(render.NewSoftwareRenderer()))
	if err != nil {
		t.Fatal(err)
	}
	render1(t, s)
	id := s.ActiveFrame().ID

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, ok := s.Texture(id); ok {
		t.Error("Close should release frame textures")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestUndoConfirmOnInactiveFrame(t *testing.T) {
	s := newSession(t)
	first := s.ActiveFrame()
	drawLine(t, s, 8)
	id := first.Registry().ActiveID()
	second, _ := s.AddFrame("Cut 2")
	ctl := s.Controller()

	if err := ctl.EnterMoveMode(); err != nil {
		t.Fatal(err)
	}
	if err := ctl.Nudge(0, 4); err != nil {
		t.Fatal(err)
	}
	if err := s.SwitchFrame(second.ID); err != nil {
		t.Fatal(err)
	}
	render1(t, s)

	if err := s.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}

	l, _ := first.Registry().Layer(id)
	if p := l.Strokes()[0].BasePoints()[0]; p.Y != 8 {
		t.Errorf("base point after undo = %v, want y=8", p)
	}
	if len(ctl.Transforms()) != 0 {
		t.Errorf("controller picked up %v while on another frame", ctl.Transforms())
	}
	if !s.Compositor().Pending(string(first.ID)) {
		t.Error("undo should invalidate the frame it changed")
	}

	if err := s.SwitchFrame(first.ID); err != nil {
		t.Fatal(err)
	}
	if got := ctl.LiveTransform(id); got.Y != 4 {
		t.Errorf("LiveTransform() after switching back = %+v, want Y=4", got)
	}
}

func TestUndoDuringMoveModeKeepsLiveTransform(t *testing.T) {
	s := newSession(t)
	id := s.ActiveFrame().ID
	reg := s.Registry()
	a := reg.ActiveID()
	drawLine(t, s, 8)
	if _, err := reg.Create("Layer 2"); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetActiveID(a); err != nil {
		t.Fatal(err)
	}
	ctl := s.Controller()
	if err := ctl.EnterMoveMode(); err != nil {
		t.Fatal(err)
	}
	if err := ctl.Nudge(0, 16); err != nil {
		t.Fatal(err)
	}

	// Reverts the layer creation, which swaps in an older copy of a.
	if err := s.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	l, _ := s.Registry().Layer(a)
	if l.Transform.Y != 16 {
		t.Errorf("Layer.Transform after undo = %+v, want Y=16", l.Transform)
	}
	if p := l.Strokes()[0].DisplayPoints()[0]; p.Y != 24 {
		t.Errorf("display point after undo = %v, want y=24", p)
	}
	render1(t, s)
	if got := pixel(t, s, id, 10, 24); got != red {
		t.Errorf("pixel after undo = %v, want the moved stroke", got)
	}

	if err := ctl.ExitMoveMode(); err != nil {
		t.Fatal(err)
	}
	l, _ = s.Registry().Layer(a)
	if p := l.Strokes()[0].BasePoints()[0]; p.Y != 24 {
		t.Errorf("base point after confirm = %v, want y=24", p)
	}
}

func TestUndoDeleteAdoptsLayerTransform(t *testing.T) {
	s := newSession(t)
	reg := s.Registry()
	a := reg.ActiveID()
	drawLine(t, s, 8)
	if _, err := reg.Create("Layer 2"); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetActiveID(a); err != nil {
		t.Fatal(err)
	}
	ctl := s.Controller()
	if err := ctl.EnterMoveMode(); err != nil {
		t.Fatal(err)
	}
	if err := ctl.Nudge(0, 16); err != nil {
		t.Fatal(err)
	}
	if err := reg.Delete(a); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got := ctl.LiveTransform(a); !got.IsIdentity() {
		t.Fatalf("LiveTransform() of a deleted layer = %+v", got)
	}

	if err := s.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if got := ctl.LiveTransform(a); got.Y != 16 {
		t.Errorf("LiveTransform() after undo = %+v, want Y=16", got)
	}
	if err := ctl.ExitMoveMode(); err != nil {
		t.Fatal(err)
	}
	l, _ := s.Registry().Layer(a)
	if p := l.Strokes()[0].BasePoints()[0]; p.Y != 24 {
		t.Errorf("base point after confirm = %v, want y=24", p)
	}
	if !l.Transform.IsIdentity() {
		t.Errorf("Layer.Transform after confirm = %+v, want identity", l.Transform)
	}
}

func TestConfirmDropsStaleLayerTexture(t *testing.T) {
	s := newSession(t)
	id := s.ActiveFrame().ID
	lid := s.Registry().ActiveID()
	drawLine(t, s, 8)

	blue := color.RGBA{0, 0, 255, 255}
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+2], img.Pix[i+3] = 255, 255
	}
	if !s.Gateway().Deliver(lid, render.NewImageTexture(img), 1) {
		t.Fatal("Deliver() rejected the texture")
	}

	ctl := s.Controller()
	if err := ctl.EnterMoveMode(); err != nil {
		t.Fatal(err)
	}
	if err := ctl.Nudge(0, 16); err != nil {
		t.Fatal(err)
	}
	render1(t, s)
	if got := pixel(t, s, id, 1, 17); got != blue {
		t.Errorf("moved sprite pixel = %v, want blue", got)
	}

	if err := ctl.ExitMoveMode(); err != nil {
		t.Fatal(err)
	}
	render1(t, s)
	for _, p := range []image.Point{{1, 1}, {1, 17}} {
		if got := pixel(t, s, id, p.X, p.Y); got == blue {
			t.Errorf("pixel %v = blue, want the stale sprite gone", p)
		}
	}
	if got := pixel(t, s, id, 10, 24); got != red {
		t.Errorf("baked stroke pixel = %v, want red", got)
	}
}
