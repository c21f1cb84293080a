// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"fmt"

	"github.com/gogpu/layerkit"
	"github.com/gogpu/layerkit/event"
	"github.com/gogpu/layerkit/layer"
)

// Locator resolves a layer to the frame that owns it and its physical
// index there. ok is false for layers that no longer exist.
type Locator func(id layer.ID) (frameID string, index int, ok bool)

// Sprite is the externally rendered image of one layer.
type Sprite struct {
	LayerID layer.ID
	Texture Texture

	// Version is the highest non-zero version accepted for the layer.
	Version uint64
}

// TextureGateway accepts finished layer textures from an external
// renderer and hands them to the compositor.
//
// Deliveries arrive as LayerTextureUpdated events, either published on the
// event loop or posted from a renderer goroutine and drained later. A
// delivery for a layer that no longer exists is destroyed and ignored. A
// delivery with a non-zero Version is accepted only if it is newer than
// the last versioned delivery for the layer; version 0 always wins.
// Every replaced or rejected texture is destroyed, so the gateway owns
// each texture it is given. Confirming a layer's transform discards its
// texture, since the pixels no longer match the baked strokes.
type TextureGateway struct {
	comp    *FrameCompositor
	bus     *event.Bus
	locate  Locator
	sprites map[layer.ID]*Sprite
	unsubs  []func()
}

// NewTextureGateway subscribes to texture deliveries on bus and registers
// itself as comp's sprite source. comp may be nil.
func NewTextureGateway(comp *FrameCompositor, bus *event.Bus, locate Locator) *TextureGateway {
	g := &TextureGateway{
		comp:    comp,
		bus:     bus,
		locate:  locate,
		sprites: make(map[layer.ID]*Sprite),
	}
	g.unsubs = append(g.unsubs,
		bus.Subscribe(event.LayerTextureUpdated, g.onTexture),
		bus.Subscribe(event.LayerDeleted, func(e event.Event) {
			if p, ok := e.Payload.(event.LayerDeletedPayload); ok {
				g.Forget(layer.ID(p.LayerID))
			}
		}),
		bus.Subscribe(event.LayerTransformConfirmed, func(e event.Event) {
			if p, ok := e.Payload.(event.LayerPayload); ok {
				g.discard(layer.ID(p.LayerID))
			}
		}),
	)
	if comp != nil {
		comp.SetSprites(g)
	}
	return g
}

func (g *TextureGateway) onTexture(e event.Event) {
	p, ok := e.Payload.(event.TexturePayload)
	if !ok {
		return
	}
	tex, ok := p.Texture.(Texture)
	if !ok {
		layerkit.Logger().Warn("render: texture delivery rejected", "layer", p.LayerID, "type", fmt.Sprintf("%T", p.Texture))
		return
	}
	g.Deliver(layer.ID(p.LayerID), tex, p.Version)
}

// Deliver installs tex as the sprite of layer id and reports whether it was
// accepted. On success the previous texture is destroyed,
// ThumbnailLayerUpdated is published and the owning frame is invalidated.
func (g *TextureGateway) Deliver(id layer.ID, tex Texture, version uint64) bool {
	if tex == nil {
		return false
	}
	frameID, index, ok := g.resolve(id)
	if !ok {
		layerkit.Logger().Debug("render: stale texture dropped", "layer", id)
		tex.Destroy()
		return false
	}
	s := g.sprites[id]
	if s != nil && version != 0 && version <= s.Version {
		layerkit.Logger().Warn("render: out-of-order texture dropped", "layer", id, "version", version, "current", s.Version)
		tex.Destroy()
		return false
	}
	if s == nil {
		s = &Sprite{LayerID: id}
		g.sprites[id] = s
	}
	old := s.Texture
	s.Texture = tex
	if version != 0 {
		s.Version = version
	}
	if old != nil && old != tex {
		old.Destroy()
	}

	g.bus.Publish(event.ThumbnailLayerUpdated, event.ThumbnailPayload{LayerIndex: index, LayerID: string(id)})
	if g.comp != nil {
		g.comp.Invalidate(frameID)
	}
	return true
}

func (g *TextureGateway) resolve(id layer.ID) (string, int, bool) {
	if g.locate == nil {
		return "", 0, false
	}
	return g.locate(id)
}

// Sprite returns the current texture of a layer. It implements
// SpriteSource.
func (g *TextureGateway) Sprite(id layer.ID) (Texture, bool) {
	s, ok := g.sprites[id]
	if !ok || s.Texture == nil {
		return nil, false
	}
	return s.Texture, true
}

// Version returns the last accepted non-zero version for a layer.
func (g *TextureGateway) Version(id layer.ID) uint64 {
	if s, ok := g.sprites[id]; ok {
		return s.Version
	}
	return 0
}

// Forget destroys the sprite of a layer.
func (g *TextureGateway) Forget(id layer.ID) {
	s, ok := g.sprites[id]
	if !ok {
		return
	}
	if s.Texture != nil {
		s.Texture.Destroy()
	}
	delete(g.sprites, id)
}

// discard destroys the texture of a layer whose strokes were just baked.
// Its pixels predate the bake, so the strokes are drawn instead until the
// renderer delivers again. The version is kept and older deliveries are
// still rejected.
func (g *TextureGateway) discard(id layer.ID) {
	s, ok := g.sprites[id]
	if !ok || s.Texture == nil {
		return
	}
	s.Texture.Destroy()
	s.Texture = nil
	if frameID, _, ok := g.resolve(id); ok && g.comp != nil {
		g.comp.Invalidate(frameID)
	}
}

// Len returns the number of layers with a sprite.
func (g *TextureGateway) Len() int { return len(g.sprites) }

// Close unsubscribes from the bus and destroys every sprite.
func (g *TextureGateway) Close() {
	for _, unsub := range g.unsubs {
		unsub()
	}
	g.unsubs = nil
	for id := range g.sprites {
		g.Forget(id)
	}
	if g.comp != nil && g.comp.sprites == SpriteSource(g) {
		g.comp.SetSprites(nil)
	}
}
