// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/layerkit"
	"github.com/gogpu/layerkit/stroke"
)

// defaultMaxTextureSize is the WebGPU default limit for 2D textures.
const defaultMaxTextureSize = 8192

// maxFreeTextures bounds the device textures kept per size for reuse.
const maxFreeTextures = 2

// GPURenderer renders frames into textures for a host GPU device.
//
// The device is provided by the host application; the renderer does NOT
// create its own. Frames are composited into RGBA8 staging buffers. When
// the host offers a gpucontext.TextureCreator, Flush uploads every new
// frame to a device texture, reusing the texture of a destroyed frame of
// the same size through gpucontext.TextureUpdater where possible. Without
// a creator the host uploads the staging buffers itself. Stroke
// rasterization is done by the software renderer.
//
// Example:
//
//	app.OnInit(func(gc *gogpu.Context) {
//	    renderer, _ := render.NewGPURenderer(gc.DeviceHandle(),
//	        render.WithTextureCreator(gc.TextureCreator()))
//	    sess, _ := session.New(session.WithRenderer(renderer))
//	    ...
//	})
type GPURenderer struct {
	// handle is the GPU device handle from the host application.
	handle DeviceHandle

	format gputypes.TextureFormat

	// software rasterizes strokes into the staging buffers.
	software *SoftwareRenderer

	creator gpucontext.TextureCreator
	pending []*TextureTarget
	free    map[image.Point][]gpucontext.Texture
}

// GPUOption configures a GPURenderer.
type GPUOption func(*GPURenderer)

// WithTextureCreator sets the creator frame textures are uploaded with.
// It overrides a creator found on the device handle.
func WithTextureCreator(c gpucontext.TextureCreator) GPUOption {
	return func(r *GPURenderer) {
		r.creator = c
	}
}

// NewGPURenderer creates a renderer for the host's device. If the handle
// is itself a TextureCreator or TextureDrawer, its creator is used for
// uploads.
//
// Returns an error if the device handle is nil.
func NewGPURenderer(handle DeviceHandle, opts ...GPUOption) (*GPURenderer, error) {
	if handle == nil {
		return nil, errors.New("render: nil device handle")
	}
	r := &GPURenderer{
		handle:   handle,
		format:   gputypes.TextureFormatRGBA8Unorm,
		software: NewSoftwareRenderer(),
		free:     make(map[image.Point][]gpucontext.Texture),
	}
	switch h := handle.(type) {
	case gpucontext.TextureCreator:
		r.creator = h
	case gpucontext.TextureDrawer:
		r.creator = h.TextureCreator()
	}
	for _, opt := range opts {
		opt(r)
	}
	layerkit.Logger().Debug("render: gpu renderer", "surface", handle.SurfaceFormat(), "upload", r.creator != nil)
	return r, nil
}

// SetBuilder sets the stroke builder, as SoftwareRenderer.SetBuilder.
func (r *GPURenderer) SetBuilder(b stroke.Builder) {
	r.software.SetBuilder(b)
}

// NewTarget creates a frame texture. It is uploaded by the next Flush.
func (r *GPURenderer) NewTarget(width, height int) (RenderTarget, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("render: invalid target size")
	}
	t := NewTextureTarget(width, height, r.format)
	if r.creator != nil {
		t.release = r.recycle
		r.pending = append(r.pending, t)
	}
	return t, nil
}

// NewMask implements layer.MaskAllocator.
func (r *GPURenderer) NewMask(width, height int) (*layerkit.Mask, error) {
	return r.software.NewMask(width, height)
}

// DrawStrokes rasterizes strokes into dst, normally a staging buffer
// obtained with TargetImage.
func (r *GPURenderer) DrawStrokes(dst draw.Image, strokes []*stroke.Stroke) error {
	return r.software.DrawStrokes(dst, strokes)
}

// Flush uploads the staging buffer of every target created since the last
// Flush. Without a texture creator it does nothing. Upload failures are
// joined; the failed targets keep only their staging buffers.
func (r *GPURenderer) Flush() error {
	var errs []error
	for _, t := range r.pending {
		if t.Destroyed() {
			continue
		}
		if err := r.upload(t); err != nil {
			errs = append(errs, err)
		}
	}
	clear(r.pending)
	r.pending = r.pending[:0]
	return errors.Join(errs...)
}

func (r *GPURenderer) upload(t *TextureTarget) error {
	size := image.Pt(t.Width(), t.Height())
	if free := r.free[size]; len(free) > 0 {
		tex := free[len(free)-1]
		r.free[size] = free[:len(free)-1]
		if u, ok := tex.(gpucontext.TextureUpdater); ok {
			err := u.UpdateData(t.Pixels())
			if err == nil {
				t.device = tex
				return nil
			}
			layerkit.Logger().Debug("render: texture update failed, recreating", "err", err)
		}
		destroyDevice(tex)
	}
	tex, err := r.creator.NewTextureFromRGBA(size.X, size.Y, t.Pixels())
	if err != nil {
		return fmt.Errorf("render: upload %dx%d frame: %w", size.X, size.Y, err)
	}
	t.device = tex
	return nil
}

// recycle takes back the device texture of a destroyed target.
func (r *GPURenderer) recycle(tex gpucontext.Texture) {
	size := image.Pt(tex.Width(), tex.Height())
	if len(r.free[size]) >= maxFreeTextures {
		destroyDevice(tex)
		return
	}
	r.free[size] = append(r.free[size], tex)
}

// Close destroys the device textures kept for reuse. Textures of live
// targets are released when the targets are destroyed.
func (r *GPURenderer) Close() {
	for size, texs := range r.free {
		for _, tex := range texs {
			destroyDevice(tex)
		}
		delete(r.free, size)
	}
}

// destroyDevice releases tex if its implementation can be destroyed.
func destroyDevice(tex gpucontext.Texture) {
	if d, ok := tex.(interface{ Destroy() }); ok {
		d.Destroy()
	}
}

// Capabilities returns the renderer's capabilities.
func (r *GPURenderer) Capabilities() RendererCapabilities {
	return RendererCapabilities{
		IsGPU:                true,
		SupportsAntialiasing: true,
		MaxTextureSize:       defaultMaxTextureSize,
	}
}

// DeviceHandle returns the underlying device handle.
// This allows advanced users to access the GPU device for custom rendering.
func (r *GPURenderer) DeviceHandle() DeviceHandle {
	return r.handle
}

// Format returns the format of the frame textures. It is always RGBA8
// to match the staging buffers.
func (r *GPURenderer) Format() gputypes.TextureFormat {
	return r.format
}

// SurfaceFormat returns the host surface format. The host converts frame
// textures when it differs from Format.
func (r *GPURenderer) SurfaceFormat() gputypes.TextureFormat {
	return r.handle.SurfaceFormat()
}

// Ensure GPURenderer implements Renderer and CapableRenderer.
var (
	_ Renderer        = (*GPURenderer)(nil)
	_ CapableRenderer = (*GPURenderer)(nil)
)
