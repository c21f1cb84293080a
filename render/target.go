// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"image"
	"image/color"
	"image/draw"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// ErrNoPixels is returned when a target offers no CPU access to its pixels.
var ErrNoPixels = errors.New("render: target has no CPU pixels")

// RenderTarget defines where a frame is composited.
//
// A RenderTarget is an abstraction over different rendering destinations:
//   - PixmapTarget: CPU-backed *image.RGBA for software rendering
//   - TextureTarget: frame texture with a CPU staging buffer for the host
//
// Targets may support CPU access (Pixels), GPU access (TextureView), or both.
// The compositor needs Pixels; the host uploads them through TextureView.
type RenderTarget interface {
	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// Format returns the pixel format of the target.
	Format() gputypes.TextureFormat

	// TextureView returns the GPU texture view for this target.
	// Returns nil for CPU-only targets.
	TextureView() TextureView

	// Pixels returns direct access to pixel data.
	// Returns nil for GPU-only targets.
	// For RGBA format, each pixel is 4 bytes: R, G, B, A.
	Pixels() []byte

	// Stride returns the number of bytes per row.
	Stride() int

	// Destroy releases the target's resources.
	Destroy()
}

// TargetImage returns an *image.RGBA sharing memory with t.
func TargetImage(t RenderTarget) (*image.RGBA, error) {
	if t == nil {
		return nil, errors.New("render: nil target")
	}
	pix := t.Pixels()
	if pix == nil {
		return nil, ErrNoPixels
	}
	return &image.RGBA{Pix: pix, Stride: t.Stride(), Rect: image.Rect(0, 0, t.Width(), t.Height())}, nil
}

// PixmapTarget is a CPU-backed render target using *image.RGBA.
//
// Example:
//
//	target := render.NewPixmapTarget(800, 600)
//	target.Clear(color.White)
//	img := target.Image()
type PixmapTarget struct {
	img *image.RGBA
}

// NewPixmapTarget creates a new CPU-backed render target.
func NewPixmapTarget(width, height int) *PixmapTarget {
	return &PixmapTarget{
		img: image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0))),
	}
}

// NewPixmapTargetFromImage wraps an existing *image.RGBA as a render target.
// The image is used directly without copying.
func NewPixmapTargetFromImage(img *image.RGBA) *PixmapTarget {
	return &PixmapTarget{img: img}
}

// Width returns the target width in pixels.
func (t *PixmapTarget) Width() int {
	return t.img.Bounds().Dx()
}

// Height returns the target height in pixels.
func (t *PixmapTarget) Height() int {
	return t.img.Bounds().Dy()
}

// Format returns the pixel format (RGBA8).
func (t *PixmapTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// TextureView returns nil as this is a CPU-only target.
func (t *PixmapTarget) TextureView() TextureView {
	return nil
}

// Pixels returns direct access to the pixel data.
func (t *PixmapTarget) Pixels() []byte {
	return t.img.Pix
}

// Stride returns the number of bytes per row.
func (t *PixmapTarget) Stride() int {
	return t.img.Stride
}

// Image returns the underlying *image.RGBA.
// The returned image shares memory with the target.
func (t *PixmapTarget) Image() *image.RGBA {
	return t.img
}

// Clear fills the entire target with the given color.
func (t *PixmapTarget) Clear(c color.Color) {
	draw.Draw(t.img, t.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Destroy is a no-op; the image is garbage collected.
func (t *PixmapTarget) Destroy() {}

// Ensure PixmapTarget implements RenderTarget.
var _ RenderTarget = (*PixmapTarget)(nil)

// TextureTarget is a frame texture created by GPURenderer.
//
// Compositing happens in a CPU staging buffer. GPURenderer uploads it when
// it has a texture creator, and DeviceTexture returns the result; otherwise
// the host copies Pixels into a GPU texture described by Descriptor.
// AsTexture exposes the target where a Texture is expected.
type TextureTarget struct {
	img       *image.RGBA
	desc      TextureDescriptor
	view      TextureView
	destroyed bool

	// device is the uploaded GPU texture, if any. release takes it back on
	// Destroy.
	device  gpucontext.Texture
	release func(gpucontext.Texture)
}

// NewTextureTarget creates a frame texture of the given size and format.
func NewTextureTarget(width, height int, format gputypes.TextureFormat) *TextureTarget {
	width, height = max(width, 0), max(height, 0)
	return &TextureTarget{
		img:  image.NewRGBA(image.Rect(0, 0, width, height)),
		desc: DefaultTextureDescriptor(uint32(width), uint32(height), format), //nolint:gosec // clamped above
		view: imageView{},
	}
}

// Width returns the target width in pixels.
func (t *TextureTarget) Width() int {
	return int(t.desc.Width)
}

// Height returns the target height in pixels.
func (t *TextureTarget) Height() int {
	return int(t.desc.Height)
}

// Format returns the pixel format.
func (t *TextureTarget) Format() gputypes.TextureFormat {
	return t.desc.Format
}

// Descriptor returns the descriptor of the GPU texture backing the target.
func (t *TextureTarget) Descriptor() TextureDescriptor {
	return t.desc
}

// TextureView returns the texture view, or nil after Destroy.
func (t *TextureTarget) TextureView() TextureView {
	return t.view
}

// CreateView returns the target's view.
func (t *TextureTarget) CreateView() TextureView {
	return t.view
}

// Pixels returns the staging buffer, or nil after Destroy.
func (t *TextureTarget) Pixels() []byte {
	if t.img == nil {
		return nil
	}
	return t.img.Pix
}

// Stride returns the staging buffer stride.
func (t *TextureTarget) Stride() int {
	if t.img == nil {
		return 0
	}
	return t.img.Stride
}

// Image returns the staging buffer, or nil after Destroy.
func (t *TextureTarget) Image() *image.RGBA {
	return t.img
}

// DeviceTexture returns the uploaded GPU texture, ready for
// gpucontext.TextureDrawer.DrawTexture. ok is false before the upload and
// after Destroy.
func (t *TextureTarget) DeviceTexture() (tex gpucontext.Texture, ok bool) {
	return t.device, t.device != nil
}

// Destroy releases the staging buffer, view and device texture. It is safe
// to call more than once.
func (t *TextureTarget) Destroy() {
	if t.view != nil {
		t.view.Destroy()
		t.view = nil
	}
	if t.device != nil {
		if t.release != nil {
			t.release(t.device)
		} else {
			destroyDevice(t.device)
		}
		t.device = nil
	}
	t.img = nil
	t.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (t *TextureTarget) Destroyed() bool {
	return t.destroyed
}

// textureTarget reports uint32 sizes for the Texture method set.
type textureTarget struct{ *TextureTarget }

func (t textureTarget) Width() uint32  { return t.desc.Width }
func (t textureTarget) Height() uint32 { return t.desc.Height }

// AsTexture returns t as a Texture.
func (t *TextureTarget) AsTexture() CPUTexture {
	return textureTarget{t}
}

// Ensure TextureTarget implements RenderTarget.
var (
	_ RenderTarget = (*TextureTarget)(nil)
	_ CPUTexture   = textureTarget{}
)
