// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// The host (for example a gogpu window) implements DeviceHandle and passes
// it to NewGPURenderer. The renderer never creates a device of its own; it
// only reads the surface format and keeps the handle for hosts that issue
// their own GPU work against frame textures.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider.
type DeviceHandle = gpucontext.DeviceProvider

// TextureDescriptor describes a texture the renderer allocates for a frame.
// It mirrors the WebGPU GPUTextureDescriptor fields the host needs to
// create a matching GPU resource.
type TextureDescriptor struct {
	// Label is an optional debug label for the texture.
	Label string

	Width  uint32
	Height uint32

	// MipLevelCount is the number of mipmap levels. Frame textures use 1.
	MipLevelCount uint32

	// SampleCount is the number of samples. Frame textures use 1.
	SampleCount uint32

	Format gputypes.TextureFormat
	Usage  TextureUsage
}

// TextureUsage specifies how a texture can be used.
// These flags can be combined with bitwise OR.
type TextureUsage uint32

const (
	// TextureUsageCopySrc allows the texture to be used as a copy source.
	TextureUsageCopySrc TextureUsage = 1 << iota

	// TextureUsageCopyDst allows the texture to be used as a copy destination.
	TextureUsageCopyDst

	// TextureUsageTextureBinding allows the texture to be sampled.
	TextureUsageTextureBinding

	// TextureUsageRenderAttachment allows the texture to be used as a render attachment.
	TextureUsageRenderAttachment
)

// Texture is a renderer-owned image: a frame's offscreen target or a
// sprite delivered for a layer. Whoever holds a Texture must Destroy it
// exactly once when replacing or dropping it.
type Texture interface {
	// Width returns the texture width in pixels.
	Width() uint32

	// Height returns the texture height in pixels.
	Height() uint32

	// Format returns the texture pixel format.
	Format() gputypes.TextureFormat

	// CreateView creates a view for this texture.
	CreateView() TextureView

	// Destroy releases resources associated with this texture.
	Destroy()
}

// TextureView represents a view into a texture.
type TextureView interface {
	// Destroy releases resources associated with this view.
	Destroy()
}

// DefaultTextureDescriptor returns a descriptor for a sampled, copyable
// 2D texture without mipmaps.
func DefaultTextureDescriptor(width, height uint32, format gputypes.TextureFormat) TextureDescriptor {
	return TextureDescriptor{
		Width:         width,
		Height:        height,
		MipLevelCount: 1,
		SampleCount:   1,
		Format:        format,
		Usage:         TextureUsageTextureBinding | TextureUsageCopyDst | TextureUsageCopySrc,
	}
}

// NullDeviceHandle is a DeviceHandle that provides nil implementations.
// Used for headless sessions where no GPU is available.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}
