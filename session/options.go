package session

import (
	"image/color"

	"github.com/gogpu/layerkit/event"
	"github.com/gogpu/layerkit/render"
	"github.com/gogpu/layerkit/stroke"
	"github.com/gogpu/layerkit/transform"
)

// Default session settings.
const (
	DefaultWidth        = 1280
	DefaultHeight       = 720
	DefaultHistoryLimit = 200
)

// Option configures a Session during creation.
type Option func(*options)

type options struct {
	width, height int
	background    color.RGBA
	renderer      render.Renderer
	bus           *event.Bus
	historyLimit  int
	thumbCache    int

	minScale, maxScale    float64
	rotateSens, scaleSens float64
	apply                 transform.ApplyFunc
	builder               stroke.Builder
}

func defaultOptions() options {
	return options{
		width:        DefaultWidth,
		height:       DefaultHeight,
		background:   color.RGBA{255, 255, 255, 255},
		historyLimit: DefaultHistoryLimit,
		thumbCache:   render.DefaultThumbnailCacheSize,
		minScale:     transform.DefaultMinScale,
		maxScale:     transform.DefaultMaxScale,
		rotateSens:   transform.DefaultRotateSensitivity,
		scaleSens:    transform.DefaultScaleSensitivity,
	}
}

// WithCanvasSize sets the canvas size in pixels. The transform pivot is
// the canvas center.
func WithCanvasSize(width, height int) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithBackground sets the background color of new frames.
func WithBackground(c color.RGBA) Option {
	return func(o *options) { o.background = c }
}

// WithRenderer sets the renderer used for frame textures and layer masks.
// Without one the session is headless: layers stay pure data and Render
// fails with layerkit.ErrNoRenderer.
func WithRenderer(r render.Renderer) Option {
	return func(o *options) { o.renderer = r }
}

// WithBus shares an existing event bus with the host.
func WithBus(bus *event.Bus) Option {
	return func(o *options) { o.bus = bus }
}

// WithHistoryLimit caps the number of undo entries. Zero means unlimited.
func WithHistoryLimit(n int) Option {
	return func(o *options) { o.historyLimit = n }
}

// WithThumbnailCache sets how many frame thumbnails are kept.
func WithThumbnailCache(n int) Option {
	return func(o *options) { o.thumbCache = n }
}

// WithScaleLimits bounds the scale magnitude of live transforms.
func WithScaleLimits(minScale, maxScale float64) Option {
	return func(o *options) {
		o.minScale = minScale
		o.maxScale = maxScale
	}
}

// WithDragSensitivity sets radians and scale factor per dragged pixel.
func WithDragSensitivity(rotate, scale float64) Option {
	return func(o *options) {
		o.rotateSens = rotate
		o.scaleSens = scale
	}
}

// WithApplyFunc lets the host display live transforms itself.
func WithApplyFunc(fn transform.ApplyFunc) Option {
	return func(o *options) { o.apply = fn }
}

// WithBuilder sets the stroke builder shared by the renderer and the
// transform controller.
func WithBuilder(b stroke.Builder) Option {
	return func(o *options) { o.builder = b }
}

func (o options) transformConfig() transform.Config {
	cfg := transform.DefaultConfig(o.width, o.height)
	cfg.MinScale = o.minScale
	cfg.MaxScale = o.maxScale
	cfg.RotateSensitivity = o.rotateSens
	cfg.ScaleSensitivity = o.scaleSens
	cfg.Apply = o.apply
	cfg.Builder = o.builder
	return cfg
}
