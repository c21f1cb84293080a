// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"maps"
	"slices"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/layerkit"
	"github.com/gogpu/layerkit/event"
	"github.com/gogpu/layerkit/internal/cache"
	"github.com/gogpu/layerkit/layer"
)

// Compositor errors.
var (
	// ErrFrameNotRendered is returned for a frame without a texture.
	ErrFrameNotRendered = errors.New("render: frame not rendered")

	// ErrTargetTooLarge is returned when the canvas exceeds the renderer's
	// texture limit.
	ErrTargetTooLarge = errors.New("render: canvas exceeds max texture size")
)

// DefaultThumbnailCacheSize is the number of thumbnails kept by default.
const DefaultThumbnailCacheSize = 64

// SpriteSource supplies externally rendered layer textures.
type SpriteSource interface {
	Sprite(id layer.ID) (Texture, bool)
}

// RegistryLookup resolves a frame id to its layers.
type RegistryLookup func(frameID string) (*layer.Registry, bool)

// CompositorOption configures a FrameCompositor.
type CompositorOption func(*FrameCompositor)

// WithBus sets the bus FrameUpdated events are published on.
func WithBus(bus *event.Bus) CompositorOption {
	return func(c *FrameCompositor) { c.bus = bus }
}

// WithThumbnailCache sets how many thumbnails are kept. Values below 1
// use DefaultThumbnailCacheSize.
func WithThumbnailCache(size int) CompositorOption {
	return func(c *FrameCompositor) {
		if size < 1 {
			size = DefaultThumbnailCacheSize
		}
		c.thumbs = cache.New[thumbKey, *image.RGBA](size)
	}
}

// WithPivot sets the point sprite transforms act about. Defaults to the
// canvas center.
func WithPivot(p layerkit.Point) CompositorOption {
	return func(c *FrameCompositor) { c.pivot = p }
}

type frameTexture struct {
	target     RenderTarget
	gen        uint64
	thumbDirty bool
}

type thumbKey struct {
	frame string
	w, h  int
	gen   uint64
}

// FrameCompositor renders each frame's layer stack into an offscreen
// texture, one texture per frame id.
//
// Layers are drawn bottom to top. Hidden layers and layers inside hidden
// folders are skipped; folder opacity multiplies into every descendant.
// A drawing layer's content is its delivered sprite when one is present,
// otherwise its strokes; the result is clipped by the layer mask and
// faded by the effective opacity.
//
// FrameCompositor is not safe for concurrent use.
type FrameCompositor struct {
	renderer      Renderer
	bus           *event.Bus
	width, height int
	pivot         layerkit.Point
	sprites       SpriteSource

	frames  map[string]*frameTexture
	pending map[string]struct{}
	scratch *image.RGBA
	thumbs  *cache.Cache[thumbKey, *image.RGBA]
}

// NewFrameCompositor creates a compositor for width x height frames.
// A nil renderer is allowed; rendering then fails with
// layerkit.ErrNoRenderer.
func NewFrameCompositor(renderer Renderer, width, height int, opts ...CompositorOption) *FrameCompositor {
	c := &FrameCompositor{
		renderer: renderer,
		width:    width,
		height:   height,
		pivot:    layerkit.Pt(float64(width)/2, float64(height)/2),
		frames:   make(map[string]*frameTexture),
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.thumbs == nil {
		c.thumbs = cache.New[thumbKey, *image.RGBA](DefaultThumbnailCacheSize)
	}
	return c
}

// SetSprites sets the source of delivered layer textures.
func (c *FrameCompositor) SetSprites(src SpriteSource) {
	c.sprites = src
}

// Renderer returns the renderer, or nil.
func (c *FrameCompositor) Renderer() Renderer { return c.renderer }

// Size returns the canvas size.
func (c *FrameCompositor) Size() (width, height int) { return c.width, c.height }

// RenderFrameToTexture composites reg into a fresh texture for frameID.
// The previous texture of the frame is destroyed first. On success the
// frame's thumbnail is marked dirty and FrameUpdated is published.
func (c *FrameCompositor) RenderFrameToTexture(frameID string, reg *layer.Registry) error {
	if c.renderer == nil {
		return layerkit.ErrNoRenderer
	}
	if reg == nil {
		return layerkit.ErrLayerNotFound
	}
	if cr, ok := c.renderer.(CapableRenderer); ok {
		if limit := cr.Capabilities().MaxTextureSize; limit > 0 && (c.width > limit || c.height > limit) {
			return ErrTargetTooLarge
		}
	}

	ft := c.frames[frameID]
	if ft == nil {
		ft = &frameTexture{}
		c.frames[frameID] = ft
	}
	if ft.target != nil {
		ft.target.Destroy()
		ft.target = nil
	}

	target, err := c.renderer.NewTarget(c.width, c.height)
	if err != nil {
		return fmt.Errorf("render: frame %s: %w", frameID, err)
	}
	dst, err := TargetImage(target)
	if err != nil {
		target.Destroy()
		return fmt.Errorf("render: frame %s: %w", frameID, err)
	}
	if err := c.composite(dst, reg); err != nil {
		target.Destroy()
		return fmt.Errorf("render: frame %s: %w", frameID, err)
	}
	if err := c.renderer.Flush(); err != nil {
		target.Destroy()
		return err
	}

	ft.target = target
	ft.gen++
	ft.thumbDirty = true
	delete(c.pending, frameID)
	c.dropThumbnails(frameID, ft.gen)

	layerkit.Logger().Debug("render: frame composited", "frame", frameID, "layers", reg.Len(), "gen", ft.gen)
	c.bus.Publish(event.FrameUpdated, event.FramePayload{FrameID: frameID})
	return nil
}

func (c *FrameCompositor) composite(dst *image.RGBA, reg *layer.Registry) error {
	for _, l := range reg.Layers() {
		switch content := l.Content.(type) {
		case *layer.Background:
			draw.Draw(dst, dst.Bounds(), image.NewUniform(content.Color), image.Point{}, draw.Src)
		case *layer.Drawing:
			visible, opacity := reg.Effective(l.ID)
			if !visible || !(opacity > 0) {
				continue
			}
			if err := c.drawLayer(dst, l, content, opacity); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *FrameCompositor) drawLayer(dst *image.RGBA, l *layer.Layer, d *layer.Drawing, opacity float64) error {
	src := c.layerScratch(dst.Bounds())
	if img, ok := c.sprite(l.ID); ok {
		drawSprite(src, img, l.Transform.Matrix(c.pivot))
	} else if err := c.renderer.DrawStrokes(src, d.Strokes); err != nil {
		return err
	}

	b := dst.Bounds()
	switch {
	case d.Mask == nil && opacity >= 1:
		draw.Draw(dst, b, src, b.Min, draw.Over)
	case d.Mask == nil:
		draw.DrawMask(dst, b, src, b.Min, image.NewUniform(color.Alpha{A: alpha8(opacity)}), image.Point{}, draw.Over)
	case opacity >= 1:
		draw.DrawMask(dst, b, src, b.Min, d.Mask, image.Point{}, draw.Over)
	default:
		draw.DrawMask(dst, b, src, b.Min, fadedMask{d.Mask, alpha8(opacity)}, image.Point{}, draw.Over)
	}
	return nil
}

// layerScratch returns a cleared canvas-sized buffer reused across layers.
func (c *FrameCompositor) layerScratch(b image.Rectangle) *image.RGBA {
	if c.scratch == nil || c.scratch.Bounds() != b {
		c.scratch = image.NewRGBA(b)
		return c.scratch
	}
	clear(c.scratch.Pix)
	return c.scratch
}

func (c *FrameCompositor) sprite(id layer.ID) (*image.RGBA, bool) {
	if c.sprites == nil {
		return nil, false
	}
	tex, ok := c.sprites.Sprite(id)
	if !ok {
		return nil, false
	}
	ct, ok := tex.(CPUTexture)
	if !ok || ct.Image() == nil {
		return nil, false
	}
	return ct.Image(), true
}

// drawSprite draws img under m. Identity placements are copied exactly.
func drawSprite(dst *image.RGBA, img *image.RGBA, m layerkit.Matrix) {
	if m.IsIdentity() {
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Over)
		return
	}
	s2d := f64.Aff3{m.A, m.B, m.C, m.D, m.E, m.F}
	draw.BiLinear.Transform(dst, s2d, img, img.Bounds(), draw.Over, nil)
}

func alpha8(v float64) uint8 {
	return uint8(max(0, min(1, v))*255 + 0.5)
}

// fadedMask is a layer mask multiplied by a constant opacity.
type fadedMask struct {
	m *layerkit.Mask
	a uint8
}

func (f fadedMask) ColorModel() color.Model { return color.AlphaModel }
func (f fadedMask) Bounds() image.Rectangle { return f.m.Bounds() }
func (f fadedMask) At(x, y int) color.Color {
	return color.Alpha{A: uint8(uint32(f.m.AlphaAt(x, y)) * uint32(f.a) / 255)}
}

// Texture returns the current texture of a frame.
func (c *FrameCompositor) Texture(frameID string) (RenderTarget, bool) {
	ft, ok := c.frames[frameID]
	if !ok || ft.target == nil {
		return nil, false
	}
	return ft.target, true
}

// Release destroys the texture and thumbnails of a frame.
func (c *FrameCompositor) Release(frameID string) {
	if ft, ok := c.frames[frameID]; ok && ft.target != nil {
		ft.target.Destroy()
	}
	delete(c.frames, frameID)
	delete(c.pending, frameID)
	c.dropThumbnails(frameID, 0)
}

// Invalidate schedules frameID for the next Flush. Repeated calls before
// a Flush collapse into one render.
func (c *FrameCompositor) Invalidate(frameID string) {
	c.pending[frameID] = struct{}{}
}

// Pending reports whether frameID awaits a Flush.
func (c *FrameCompositor) Pending(frameID string) bool {
	_, ok := c.pending[frameID]
	return ok
}

// Flush renders every invalidated frame once, in frame id order. Frames
// lookup no longer knows are dropped from the queue. Render errors are
// joined; a failed frame stays queued.
func (c *FrameCompositor) Flush(lookup RegistryLookup) (rendered int, err error) {
	var errs []error
	for _, id := range slices.Sorted(maps.Keys(c.pending)) {
		reg, ok := lookup(id)
		if !ok {
			delete(c.pending, id)
			continue
		}
		if err := c.RenderFrameToTexture(id, reg); err != nil {
			errs = append(errs, err)
			continue
		}
		rendered++
	}
	return rendered, errors.Join(errs...)
}

// ThumbnailDirty reports whether the frame was rendered since its last
// thumbnail was taken.
func (c *FrameCompositor) ThumbnailDirty(frameID string) bool {
	ft, ok := c.frames[frameID]
	return ok && ft.thumbDirty
}

// Thumbnail returns the frame scaled to w x h. Thumbnails are cached per
// render, so repeated calls between renders return the same image.
func (c *FrameCompositor) Thumbnail(frameID string, w, h int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, layerkit.ErrInvalidValue
	}
	ft, ok := c.frames[frameID]
	if !ok || ft.target == nil {
		return nil, ErrFrameNotRendered
	}
	src, err := TargetImage(ft.target)
	if err != nil {
		return nil, err
	}
	key := thumbKey{frame: frameID, w: w, h: h, gen: ft.gen}
	thumb := c.thumbs.GetOrCreate(key, func() *image.RGBA {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		return dst
	})
	ft.thumbDirty = false
	return thumb, nil
}

// dropThumbnails removes cached thumbnails of frameID older than gen.
// gen 0 removes all of them.
func (c *FrameCompositor) dropThumbnails(frameID string, gen uint64) {
	c.thumbs.DeleteFunc(func(k thumbKey) bool {
		return k.frame == frameID && (gen == 0 || k.gen < gen)
	})
}

// Close releases every frame texture.
func (c *FrameCompositor) Close() {
	for id := range c.frames {
		c.Release(id)
	}
	c.pending = make(map[string]struct{})
}
