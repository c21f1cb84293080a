package main

import (
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/layerkit"
	"github.com/gogpu/layerkit/layer"
	"github.com/gogpu/layerkit/session"
	"github.com/gogpu/layerkit/stroke"
	"github.com/gogpu/layerkit/transform"
)

// script is a list of editing actions replayed against a session.
//
//	[[action]]
//	op = "stroke"
//	points = [[10, 10], [90, 90]]
//	width = 4
//	color = "#ff0000"
//
//	[[action]]
//	op = "rotate"
//	degrees = 45
type script struct {
	Actions []action `toml:"action"`
}

type action struct {
	Op      string      `toml:"op"`
	Name    string      `toml:"name"`
	Points  [][]float64 `toml:"points"`
	Width   float64     `toml:"width"`
	Color   string      `toml:"color"`
	Opacity *float64    `toml:"opacity"`
	Tool    string      `toml:"tool"`
	DX      float64     `toml:"dx"`
	DY      float64     `toml:"dy"`
	Degrees float64     `toml:"degrees"`
	Factor  float64     `toml:"factor"`
	Axis    string      `toml:"axis"`
	From    []float64   `toml:"from"`
	To      []float64   `toml:"to"`
	Shift   bool        `toml:"shift"`
	Rect    []int       `toml:"rect"`
}

func loadScript(path string) (*script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeScript(f)
}

func decodeScript(r io.Reader) (*script, error) {
	var sc script
	md, err := toml.NewDecoder(r).Decode(&sc)
	if err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("decode script: unknown key %s", undecoded[0])
	}
	return &sc, nil
}

// run applies every action in order and stops at the first failure.
func (sc *script) run(ctx context.Context, s *session.Session) error {
	logger := loggerFromContext(ctx)
	for i, a := range sc.Actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.apply(s); err != nil {
			return fmt.Errorf("action %d (%s): %w", i+1, a.Op, err)
		}
		logger.Debug("applied", "action", i+1, "op", a.Op)
	}
	return nil
}

func (a action) apply(s *session.Session) error {
	reg := s.Registry()
	ctl := s.Controller()

	switch strings.ToLower(a.Op) {
	case "layer":
		_, err := reg.Create(a.Name)
		return err
	case "folder":
		folder, err := reg.CreateFolder(a.Name)
		if err != nil {
			return err
		}
		return reg.AddToFolder(reg.ActiveID(), folder)
	case "select":
		for _, l := range reg.Layers() {
			if l.Name == a.Name {
				return reg.SetActiveID(l.ID)
			}
		}
		return fmt.Errorf("%q: %w", a.Name, layerkit.ErrLayerNotFound)
	case "stroke":
		return a.stroke(reg)
	case "opacity":
		if a.Opacity == nil {
			return fmt.Errorf("opacity: %w", layerkit.ErrInvalidValue)
		}
		return reg.SetOpacity(reg.ActiveID(), *a.Opacity)
	case "hide":
		return reg.ToggleVisibility(reg.ActiveID())
	case "clip":
		if len(a.Rect) != 4 {
			return fmt.Errorf("rect wants [x0, y0, x1, y1]: %w", layerkit.ErrInvalidValue)
		}
		return s.ClipLayer(reg.ActiveID(), image.Rect(a.Rect[0], a.Rect[1], a.Rect[2], a.Rect[3]))
	case "move":
		return edit(ctl, func() error { return ctl.Nudge(a.DX, a.DY) })
	case "rotate":
		return edit(ctl, func() error { return ctl.Rotate(a.Degrees * math.Pi / 180) })
	case "scale":
		return edit(ctl, func() error { return ctl.ScaleBy(a.Factor) })
	case "flip":
		return edit(ctl, func() error {
			if strings.HasPrefix(strings.ToLower(a.Axis), "v") {
				return ctl.FlipVertical()
			}
			return ctl.FlipHorizontal()
		})
	case "drag":
		return edit(ctl, func() error { return a.drag(ctl) })
	case "confirm":
		return ctl.ExitMoveMode()
	case "undo":
		return s.Undo()
	case "redo":
		return s.Redo()
	case "frame":
		f, err := s.AddFrame(a.Name)
		if err != nil {
			return err
		}
		return s.SwitchFrame(f.ID)
	case "duplicate":
		f, err := s.DuplicateFrame(s.ActiveFrame().ID, a.Name)
		if err != nil {
			return err
		}
		return s.SwitchFrame(f.ID)
	default:
		return fmt.Errorf("unknown op %q", a.Op)
	}
}

func (a action) stroke(reg *layer.Registry) error {
	style := stroke.DefaultStyle()
	if a.Width > 0 {
		style.Width = a.Width
	}
	if a.Color != "" {
		c, err := session.ParseColor(a.Color)
		if err != nil {
			return err
		}
		style.Color = c
	}
	if a.Opacity != nil {
		style.Opacity = *a.Opacity
	}
	if strings.EqualFold(a.Tool, "eraser") {
		style.Tool = stroke.ToolEraser
	}
	pts := make([]layerkit.Point, 0, len(a.Points))
	for _, p := range a.Points {
		pt, err := point(p)
		if err != nil {
			return err
		}
		pts = append(pts, pt)
	}
	return reg.AddStroke(reg.ActiveID(), stroke.New(pts, style))
}

func (a action) drag(ctl *transform.Controller) error {
	from, err := point(a.From)
	if err != nil {
		return err
	}
	to, err := point(a.To)
	if err != nil {
		return err
	}
	var mods transform.Modifiers
	if a.Shift {
		mods |= transform.ModShift
	}
	if err := ctl.BeginDrag(from); err != nil {
		return err
	}
	if err := ctl.Drag(to, mods); err != nil {
		return err
	}
	return ctl.EndDrag()
}

// edit opens move mode when needed before running fn.
func edit(ctl *transform.Controller, fn func() error) error {
	if ctl.State() == transform.Idle {
		if err := ctl.EnterMoveMode(); err != nil {
			return err
		}
	}
	return fn()
}

func point(v []float64) (layerkit.Point, error) {
	if len(v) != 2 {
		return layerkit.Point{}, fmt.Errorf("point wants [x, y], got %v: %w", v, layerkit.ErrInvalidValue)
	}
	return layerkit.Pt(v[0], v[1]), nil
}
