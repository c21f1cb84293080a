// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image/draw"

	"github.com/gogpu/layerkit/layer"
	"github.com/gogpu/layerkit/stroke"
)

// Renderer allocates frame targets and layer masks and rasterizes strokes.
//
// Implementations:
//
//   - SoftwareRenderer: CPU rasterization with golang.org/x/image/vector
//   - GPURenderer: frame textures for a host GPU device, strokes drawn in
//     a CPU staging buffer
//
// A Renderer doubles as the layer.MaskAllocator of a session, so masks
// exist exactly when a renderer does.
//
// Thread Safety: Renderers are NOT thread-safe. Each renderer should be used
// from a single goroutine, or external synchronization must be used.
type Renderer interface {
	layer.MaskAllocator

	// NewTarget creates an empty, transparent frame target.
	NewTarget(width, height int) (RenderTarget, error)

	// DrawStrokes rasterizes strokes onto dst in order, using their
	// display points.
	DrawStrokes(dst draw.Image, strokes []*stroke.Stroke) error

	// Flush ensures all pending rendering operations are complete.
	//
	// For CPU renderers, this is typically a no-op as operations are
	// synchronous.
	Flush() error
}

// RendererCapabilities describes the features supported by a renderer.
type RendererCapabilities struct {
	// IsGPU indicates if frame targets are GPU textures.
	IsGPU bool

	// SupportsAntialiasing indicates if anti-aliased rendering is supported.
	SupportsAntialiasing bool

	// MaxTextureSize is the maximum target dimension (0 = unlimited).
	MaxTextureSize int
}

// CapableRenderer is an optional interface for renderers that can
// report their capabilities.
type CapableRenderer interface {
	Renderer

	// Capabilities returns the renderer's capabilities.
	Capabilities() RendererCapabilities
}
