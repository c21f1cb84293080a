package session

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/layerkit/render"
	"github.com/gogpu/layerkit/transform"
)

// Renderer backends selectable from a config file.
const (
	BackendSoftware = "software"
	BackendNone     = "none"
)

// Config is the on-disk form of the session options.
//
//	[canvas]
//	width = 1280
//	height = 720
//	background = "#ffffff"
//
//	[transform]
//	min_scale = 0.1
//	max_scale = 10.0
//	rotate_sensitivity = 0.01
//	scale_sensitivity = 0.01
//
//	[history]
//	limit = 200
//
//	[render]
//	backend = "software"
//	thumbnail_cache = 64
type Config struct {
	Canvas    CanvasConfig    `toml:"canvas"`
	Transform TransformConfig `toml:"transform"`
	History   HistoryConfig   `toml:"history"`
	Render    RenderConfig    `toml:"render"`
}

// CanvasConfig sets the canvas size and the background of new frames.
type CanvasConfig struct {
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Background string `toml:"background"`
}

// TransformConfig sets the controller limits.
type TransformConfig struct {
	MinScale          float64 `toml:"min_scale"`
	MaxScale          float64 `toml:"max_scale"`
	RotateSensitivity float64 `toml:"rotate_sensitivity"`
	ScaleSensitivity  float64 `toml:"scale_sensitivity"`
}

// HistoryConfig sets the undo depth. Zero is unlimited.
type HistoryConfig struct {
	Limit int `toml:"limit"`
}

// RenderConfig picks the renderer.
type RenderConfig struct {
	Backend        string `toml:"backend"`
	ThumbnailCache int    `toml:"thumbnail_cache"`
}

// DefaultConfig returns the configuration New uses without options, with
// the software renderer.
func DefaultConfig() Config {
	return Config{
		Canvas: CanvasConfig{Width: DefaultWidth, Height: DefaultHeight, Background: "#ffffff"},
		Transform: TransformConfig{
			MinScale:          transform.DefaultMinScale,
			MaxScale:          transform.DefaultMaxScale,
			RotateSensitivity: transform.DefaultRotateSensitivity,
			ScaleSensitivity:  transform.DefaultScaleSensitivity,
		},
		History: HistoryConfig{Limit: DefaultHistoryLimit},
		Render:  RenderConfig{Backend: BackendSoftware, ThumbnailCache: render.DefaultThumbnailCacheSize},
	}
}

// LoadConfig reads a TOML config file. Missing keys keep their defaults.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("session: load config: %w", err)
	}
	defer f.Close()
	return DecodeConfig(f)
}

// DecodeConfig reads a TOML config. Unknown keys are an error so typos
// do not silently fall back to defaults.
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("session: decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("session: unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Options converts the config into session options.
func (c Config) Options() ([]Option, error) {
	bg, err := ParseColor(c.Canvas.Background)
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithCanvasSize(c.Canvas.Width, c.Canvas.Height),
		WithBackground(bg),
		WithScaleLimits(c.Transform.MinScale, c.Transform.MaxScale),
		WithDragSensitivity(c.Transform.RotateSensitivity, c.Transform.ScaleSensitivity),
		WithHistoryLimit(c.History.Limit),
		WithThumbnailCache(c.Render.ThumbnailCache),
	}
	switch strings.ToLower(c.Render.Backend) {
	case "", BackendSoftware:
		opts = append(opts, WithRenderer(render.NewSoftwareRenderer()))
	case BackendNone:
	default:
		return nil, fmt.Errorf("session: unknown render backend %q", c.Render.Backend)
	}
	return opts, nil
}

// ParseColor parses "#rgb", "#rrggbb" or "#rrggbbaa" as straight alpha and
// returns the premultiplied color.
func ParseColor(s string) (color.RGBA, error) {
	hex, ok := strings.CutPrefix(strings.TrimSpace(s), "#")
	if !ok {
		return color.RGBA{}, fmt.Errorf("session: color %q: missing #", s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("session: color %q: %w", s, errBadColor)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("session: color %q: %w", s, errBadColor)
	}
	c := color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return color.RGBAModel.Convert(c).(color.RGBA), nil
}

var errBadColor = errors.New("want #rgb, #rrggbb or #rrggbbaa")
