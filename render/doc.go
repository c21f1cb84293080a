// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render composites layer stacks into per-frame textures.
//
// The package does not create GPU devices. A host that owns one passes it
// in as a DeviceHandle; headless hosts use the software renderer.
//
// # Core Types
//
//   - Renderer: allocates targets and masks, rasterizes strokes
//   - RenderTarget: where a frame is composited (PixmapTarget, TextureTarget)
//   - FrameCompositor: renders a frame's layers bottom to top into its
//     texture, coalesces re-renders and serves thumbnails
//   - TextureGateway: accepts externally rendered layer textures and
//     discards stale or out-of-order deliveries
//
// # Renderer Implementations
//
//   - SoftwareRenderer: CPU rasterization with golang.org/x/image/vector
//   - GPURenderer: frame textures for a host device with CPU staging
//
// # Usage
//
//	renderer := render.NewSoftwareRenderer()
//	comp := render.NewFrameCompositor(renderer, 800, 600, render.WithBus(bus))
//	gw := render.NewTextureGateway(comp, bus, locate)
//	defer gw.Close()
//
//	if err := comp.RenderFrameToTexture(frameID, reg); err != nil {
//	    return err
//	}
//	target, _ := comp.Texture(frameID)
//
// # Thread Safety
//
// Renderers, compositors and gateways are NOT thread-safe. They belong to
// the event loop; renderer goroutines hand textures over with
// event.Bus.Post.
package render
