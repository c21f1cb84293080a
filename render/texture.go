// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"image"

	"github.com/gogpu/gputypes"
)

// CPUTexture is a Texture whose pixels can be read on the CPU. The
// compositor draws sprites that implement it; GPU-only sprites are left
// for the host to present.
type CPUTexture interface {
	Texture

	// Image returns the premultiplied pixels. Nil after Destroy.
	Image() *image.RGBA
}

// ImageTexture is a CPU texture backed by an *image.RGBA. Headless
// renderers and tests deliver layer sprites as ImageTextures.
type ImageTexture struct {
	img       *image.RGBA
	destroyed bool
}

// NewImageTexture wraps img without copying it.
func NewImageTexture(img *image.RGBA) *ImageTexture {
	return &ImageTexture{img: img}
}

// Width returns the texture width in pixels.
func (t *ImageTexture) Width() uint32 { return uint32(t.bounds().Dx()) } //nolint:gosec // image sizes are non-negative

// Height returns the texture height in pixels.
func (t *ImageTexture) Height() uint32 { return uint32(t.bounds().Dy()) } //nolint:gosec // image sizes are non-negative

func (t *ImageTexture) bounds() image.Rectangle {
	if t.img == nil {
		return image.Rectangle{}
	}
	return t.img.Bounds()
}

// Format returns RGBA8.
func (t *ImageTexture) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// CreateView returns a no-op view.
func (t *ImageTexture) CreateView() TextureView { return imageView{} }

// Image returns the backing image, or nil once destroyed.
func (t *ImageTexture) Image() *image.RGBA { return t.img }

// Destroy drops the backing image. It is safe to call more than once.
func (t *ImageTexture) Destroy() {
	t.destroyed = true
	t.img = nil
}

// Destroyed reports whether Destroy has been called.
func (t *ImageTexture) Destroyed() bool { return t.destroyed }

type imageView struct{}

func (imageView) Destroy() {}

var _ CPUTexture = (*ImageTexture)(nil)
