// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"bytes"
	"errors"
	"image/color"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/layerkit"
	"github.com/gogpu/layerkit/stroke"
)

func TestNewGPURenderer(t *testing.T) {
	renderer, err := NewGPURenderer(NullDeviceHandle{})
	if err != nil {
		t.Fatalf("NewGPURenderer() error = %v", err)
	}
	if renderer == nil {
		t.Fatal("NewGPURenderer() returned nil")
	}
}

func TestNewGPURendererNilHandle(t *testing.T) {
	_, err := NewGPURenderer(nil)
	if err == nil {
		t.Error("NewGPURenderer(nil) should return error")
	}
}

func TestGPURendererCapabilities(t *testing.T) {
	renderer, _ := NewGPURenderer(NullDeviceHandle{})
	caps := renderer.Capabilities()

	if !caps.IsGPU {
		t.Error("GPURenderer.Capabilities().IsGPU should be true")
	}
	if !caps.SupportsAntialiasing {
		t.Error("GPURenderer should support antialiasing")
	}
	if caps.MaxTextureSize == 0 {
		t.Error("MaxTextureSize should not be 0")
	}
}

func TestGPURendererFormats(t *testing.T) {
	renderer, _ := NewGPURenderer(fakeProvider{format: gputypes.TextureFormatBGRA8Unorm})

	if renderer.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format() = %v, want RGBA8Unorm", renderer.Format())
	}
	if renderer.SurfaceFormat() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("SurfaceFormat() = %v, want BGRA8Unorm", renderer.SurfaceFormat())
	}
}

func TestGPURendererDeviceHandle(t *testing.T) {
	handle := NullDeviceHandle{}
	renderer, _ := NewGPURenderer(handle)

	if renderer.DeviceHandle() != handle {
		t.Error("DeviceHandle() should return the provided handle")
	}
}

func TestGPURendererTargets(t *testing.T) {
	renderer, _ := NewGPURenderer(NullDeviceHandle{})

	target, err := renderer.NewTarget(32, 16)
	if err != nil {
		t.Fatalf("NewTarget() error = %v", err)
	}
	tt, ok := target.(*TextureTarget)
	if !ok {
		t.Fatalf("NewTarget() = %T, want *TextureTarget", target)
	}
	if tt.TextureView() == nil {
		t.Error("texture target should have a view")
	}

	img, err := TargetImage(target)
	if err != nil {
		t.Fatalf("TargetImage() error = %v", err)
	}
	s := stroke.New([]layerkit.Point{{X: 4, Y: 8}, {X: 28, Y: 8}}, stroke.Style{
		Width: 4, Color: color.RGBA{R: 255, A: 255}, Opacity: 1,
	})
	if err := renderer.DrawStrokes(img, []*stroke.Stroke{s}); err != nil {
		t.Fatalf("DrawStrokes() error = %v", err)
	}
	if got := img.RGBAAt(16, 8); got.R != 255 || got.A != 255 {
		t.Errorf("pixel (16,8) = %v, want opaque red", got)
	}

	if _, err := renderer.NewTarget(0, 16); err == nil {
		t.Error("NewTarget(0, 16) should return error")
	}
	if err := renderer.Flush(); err != nil {
		t.Errorf("Flush() error = %v, want nil", err)
	}
}

// deviceTexture records what was uploaded to it.
type deviceTexture struct {
	w, h      int
	data      []byte
	updates   int
	destroyed bool
}

func (t *deviceTexture) Width() int  { return t.w }
func (t *deviceTexture) Height() int { return t.h }
func (t *deviceTexture) Destroy()    { t.destroyed = true }

func (t *deviceTexture) UpdateData(data []byte) error {
	if len(data) != t.w*t.h*4 {
		return errors.New("size mismatch")
	}
	t.data = bytes.Clone(data)
	t.updates++
	return nil
}

type fakeCreator struct {
	created []*deviceTexture
	err     error
}

func (c *fakeCreator) NewTextureFromRGBA(w, h int, data []byte) (gpucontext.Texture, error) {
	if c.err != nil {
		return nil, c.err
	}
	tex := &deviceTexture{w: w, h: h, data: bytes.Clone(data)}
	c.created = append(c.created, tex)
	return tex, nil
}

func TestGPURendererUploadsFrames(t *testing.T) {
	creator := &fakeCreator{}
	renderer, err := NewGPURenderer(NullDeviceHandle{}, WithTextureCreator(creator))
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, renderer)

	img := f.render(t)
	target, _ := f.comp.Texture("f1")
	tex, ok := target.(*TextureTarget).DeviceTexture()
	if !ok {
		t.Fatal("DeviceTexture() missing after render")
	}
	if len(creator.created) != 1 || tex != gpucontext.Texture(creator.created[0]) {
		t.Fatalf("created %d textures, want 1", len(creator.created))
	}
	if !bytes.Equal(creator.created[0].data, img.Pix) {
		t.Error("uploaded pixels differ from the staging buffer")
	}

	// The next render destroys the old target and reuses its texture.
	if err := f.reg.ToggleVisibility(f.id); err != nil {
		t.Fatal(err)
	}
	img = f.render(t)
	if len(creator.created) != 1 {
		t.Errorf("created %d textures, want the first one reused", len(creator.created))
	}
	dev := creator.created[0]
	if dev.updates != 1 || !bytes.Equal(dev.data, img.Pix) {
		t.Errorf("updates = %d, want 1 with the new frame's pixels", dev.updates)
	}
	if dev.destroyed {
		t.Error("reused texture should not be destroyed")
	}

	f.comp.Release("f1")
	renderer.Close()
	if !dev.destroyed {
		t.Error("Close() should destroy pooled textures")
	}
}

func TestGPURendererUploadError(t *testing.T) {
	creator := &fakeCreator{err: errors.New("device lost")}
	renderer, _ := NewGPURenderer(NullDeviceHandle{}, WithTextureCreator(creator))
	f := newFixture(t, renderer)

	if err := f.comp.RenderFrameToTexture("f1", f.reg); err == nil {
		t.Fatal("RenderFrameToTexture() error = nil, want the upload failure")
	}
	if _, ok := f.comp.Texture("f1"); ok {
		t.Error("a frame that failed to upload should have no texture")
	}
}

// creatorHandle is a device handle that also creates textures.
type creatorHandle struct {
	fakeProvider
	*fakeCreator
}

func TestGPURendererCreatorFromHandle(t *testing.T) {
	creator := &fakeCreator{}
	renderer, _ := NewGPURenderer(creatorHandle{fakeCreator: creator})

	target, err := renderer.NewTarget(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := renderer.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if _, ok := target.(*TextureTarget).DeviceTexture(); !ok || len(creator.created) != 1 {
		t.Fatal("a handle implementing TextureCreator should be used for uploads")
	}

	// Pooled up to a limit per size; the rest are destroyed.
	var targets []RenderTarget
	for range maxFreeTextures + 1 {
		tt, _ := renderer.NewTarget(8, 8)
		targets = append(targets, tt)
	}
	if err := renderer.Flush(); err != nil {
		t.Fatal(err)
	}
	for _, tt := range targets {
		tt.Destroy()
	}
	destroyed := 0
	for _, tex := range creator.created {
		if tex.destroyed {
			destroyed++
		}
	}
	if destroyed != 1 {
		t.Errorf("destroyed %d textures, want 1 beyond the pool limit", destroyed)
	}
}
