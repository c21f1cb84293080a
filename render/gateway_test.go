// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"image"
	"image/draw"
	"testing"

	"github.com/gogpu/layerkit"
	"github.com/gogpu/layerkit/event"
	"github.com/gogpu/layerkit/layer"
)

func solid(w, h int) *ImageTexture {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(blue), image.Point{}, draw.Src)
	return NewImageTexture(img)
}

func (f *fixture) locate(id layer.ID) (string, int, bool) {
	i := f.reg.Index(id)
	return "f1", i, i >= 0
}

func newGateway(t *testing.T) (*fixture, *TextureGateway) {
	t.Helper()
	f := newFixture(t, NewSoftwareRenderer())
	g := NewTextureGateway(f.comp, f.bus, f.locate)
	t.Cleanup(g.Close)
	return f, g
}

func TestGatewayDeliverDrawsSprite(t *testing.T) {
	f, g := newGateway(t)
	var thumbs []event.ThumbnailPayload
	f.bus.Subscribe(event.ThumbnailLayerUpdated, func(e event.Event) {
		thumbs = append(thumbs, e.Payload.(event.ThumbnailPayload))
	})

	tex := solid(canvas, canvas)
	f.bus.Publish(event.LayerTextureUpdated, event.TexturePayload{LayerID: string(f.id), Texture: tex})

	if got, ok := g.Sprite(f.id); !ok || got != Texture(tex) {
		t.Fatal("Sprite() should return the delivered texture")
	}
	if len(thumbs) != 1 || thumbs[0].LayerIndex != 1 || thumbs[0].LayerID != string(f.id) {
		t.Errorf("ThumbnailLayerUpdated = %+v, want one event for index 1", thumbs)
	}
	if !f.comp.Pending("f1") {
		t.Fatal("delivery should invalidate the owning frame")
	}

	n, err := f.comp.Flush(func(string) (*layer.Registry, bool) { return f.reg, true })
	if err != nil || n != 1 {
		t.Fatalf("Flush() = %d, %v; want 1, nil", n, err)
	}
	target, _ := f.comp.Texture("f1")
	img, _ := TargetImage(target)
	if got := img.RGBAAt(10, 16); got != blue {
		t.Errorf("pixel = %v, want the sprite's blue instead of the stroke", got)
	}
}

func TestGatewayStaleTexture(t *testing.T) {
	f, g := newGateway(t)
	other, err := f.reg.Create("Layer 2")
	if err != nil {
		t.Fatal(err)
	}
	thumbs := count(f.bus, event.ThumbnailLayerUpdated)

	if err := f.reg.Delete(other); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	// The renderer finished after the delete and posts from its goroutine.
	tex := solid(4, 4)
	f.bus.Post(event.LayerTextureUpdated, event.TexturePayload{LayerID: string(other), Texture: tex, Version: 1})
	if n := f.bus.Drain(); n != 1 {
		t.Fatalf("Drain() = %d, want 1", n)
	}

	if _, ok := g.Sprite(other); ok {
		t.Error("stale delivery should not create a sprite")
	}
	if _, ok := f.reg.Layer(other); ok {
		t.Error("stale delivery should not resurrect the layer")
	}
	if !tex.Destroyed() {
		t.Error("stale texture should be destroyed")
	}
	if *thumbs != 0 {
		t.Errorf("ThumbnailLayerUpdated published %d times, want 0", *thumbs)
	}
	if f.comp.Pending("f1") {
		t.Error("stale delivery should not invalidate the frame")
	}
}

func TestGatewayVersionOrdering(t *testing.T) {
	tests := []struct {
		name     string
		versions []uint64
		accepted []bool
		final    uint64
	}{
		{"increasing", []uint64{1, 2, 3}, []bool{true, true, true}, 3},
		{"older dropped", []uint64{5, 3}, []bool{true, false}, 5},
		{"duplicate dropped", []uint64{2, 2}, []bool{true, false}, 2},
		{"unversioned always wins", []uint64{4, 0, 0}, []bool{true, true, true}, 4},
		{"versioned after unversioned", []uint64{0, 1}, []bool{true, true}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, g := newGateway(t)
			texs := make([]*ImageTexture, len(tt.versions))
			for i, v := range tt.versions {
				texs[i] = solid(2, 2)
				if got := g.Deliver(f.id, texs[i], v); got != tt.accepted[i] {
					t.Errorf("Deliver(v%d) = %v, want %v", v, got, tt.accepted[i])
				}
			}
			if g.Version(f.id) != tt.final {
				t.Errorf("Version() = %d, want %d", g.Version(f.id), tt.final)
			}

			// Only the last accepted texture survives.
			last := -1
			for i, ok := range tt.accepted {
				if ok {
					last = i
				}
			}
			for i, tex := range texs {
				if want := i != last; tex.Destroyed() != want {
					t.Errorf("texture %d destroyed = %v, want %v", i, tex.Destroyed(), want)
				}
			}
		})
	}
}

func TestGatewayForgetsDeletedLayer(t *testing.T) {
	f, g := newGateway(t)
	if _, err := f.reg.Create("Layer 2"); err != nil {
		t.Fatal(err)
	}
	tex := solid(2, 2)
	if !g.Deliver(f.id, tex, 1) {
		t.Fatal("Deliver() = false for a live layer")
	}

	if err := f.reg.Delete(f.id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, ok := g.Sprite(f.id); ok {
		t.Error("sprite should be dropped with its layer")
	}
	if !tex.Destroyed() {
		t.Error("sprite texture should be destroyed with its layer")
	}
	if g.Len() != 0 {
		t.Errorf("Len() = %d, want 0", g.Len())
	}
}

func TestGatewayRejectsForeignPayloads(t *testing.T) {
	f, g := newGateway(t)

	f.bus.Publish(event.LayerTextureUpdated, event.TexturePayload{LayerID: string(f.id), Texture: "not a texture"})
	f.bus.Publish(event.LayerTextureUpdated, "not a payload")
	f.bus.Publish(event.LayerTextureUpdated, event.TexturePayload{LayerID: string(f.id)})

	if g.Len() != 0 {
		t.Errorf("Len() = %d, want 0", g.Len())
	}
}

func TestGatewaySpriteFollowsLayerTransform(t *testing.T) {
	f, g := newGateway(t)
	g.Deliver(f.id, solid(4, 4), 0)
	move := layerkit.IdentityTransform()
	move.X = 8
	if err := f.reg.SetLayerTransform(f.id, move); err != nil {
		t.Fatal(err)
	}

	img := f.render(t)

	if got := img.RGBAAt(9, 1); got != blue {
		t.Errorf("moved sprite pixel = %v, want blue", got)
	}
	if got := img.RGBAAt(1, 1); got != white {
		t.Errorf("vacated pixel = %v, want white", got)
	}
}

func TestGatewayDiscardsSpriteOnConfirm(t *testing.T) {
	f, g := newGateway(t)
	g.Deliver(f.id, solid(4, 4), 3)
	f.render(t)

	tex, _ := g.Sprite(f.id)
	f.bus.Publish(event.LayerTransformConfirmed, event.LayerPayload{LayerID: string(f.id)})

	if _, ok := g.Sprite(f.id); ok {
		t.Fatal("Sprite() should be gone after the transform is confirmed")
	}
	if !tex.(*ImageTexture).Destroyed() {
		t.Error("discarded texture should be destroyed")
	}
	if !f.comp.Pending("f1") {
		t.Error("discarding should invalidate the owning frame")
	}
	if g.Version(f.id) != 3 {
		t.Errorf("Version() = %d, want 3 kept", g.Version(f.id))
	}
	if g.Deliver(f.id, solid(4, 4), 2) {
		t.Error("a delivery older than the discarded one should still be rejected")
	}
	if !g.Deliver(f.id, solid(4, 4), 4) {
		t.Error("a newer delivery should be accepted")
	}
}

func TestGatewayClose(t *testing.T) {
	f := newFixture(t, NewSoftwareRenderer())
	g := NewTextureGateway(f.comp, f.bus, f.locate)
	tex := solid(2, 2)
	g.Deliver(f.id, tex, 0)

	g.Close()

	if !tex.Destroyed() {
		t.Error("Close should destroy sprites")
	}
	f.bus.Publish(event.LayerTextureUpdated, event.TexturePayload{LayerID: string(f.id), Texture: solid(2, 2)})
	if g.Len() != 0 {
		t.Error("closed gateway should ignore deliveries")
	}
	if f.comp.sprites != nil {
		t.Error("Close should detach the gateway from the compositor")
	}
}
