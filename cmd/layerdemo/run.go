package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/gogpu/layerkit/session"
)

type runOpts struct {
	config    string // TOML session config; defaults when empty
	script    string // TOML action script
	outDir    string // directory receiving frame-NN.png
	thumbnail int    // thumbnail edge in pixels, 0 for none
}

func newRunCmd() *cobra.Command {
	opts := runOpts{outDir: "."}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a script and write every frame as PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScript(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "session config file (TOML)")
	cmd.Flags().StringVarP(&opts.script, "script", "s", "", "action script (TOML)")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", opts.outDir, "output directory")
	cmd.Flags().IntVar(&opts.thumbnail, "thumbnail", 0, "also write square thumbnails of this size")
	_ = cmd.MarkFlagRequired("script")
	return cmd
}

func runScript(ctx context.Context, opts runOpts) error {
	logger := loggerFromContext(ctx)
	start := time.Now()

	cfg := session.DefaultConfig()
	if opts.config != "" {
		var err error
		if cfg, err = session.LoadConfig(opts.config); err != nil {
			return err
		}
	}
	sessOpts, err := cfg.Options()
	if err != nil {
		return err
	}
	s, err := session.New(sessOpts...)
	if err != nil {
		return err
	}
	defer s.Close()

	sc, err := loadScript(opts.script)
	if err != nil {
		return err
	}
	if err := sc.run(ctx, s); err != nil {
		return err
	}
	if err := s.Controller().ExitMoveMode(); err != nil {
		return err
	}

	n, err := s.Render()
	if err != nil {
		return err
	}
	logger.Info("rendered", "frames", n, "history", s.History().Len())

	written, err := writeFrames(s, opts)
	if err != nil {
		return err
	}
	logger.Infof("wrote %d files to %s (%s)", written, opts.outDir, time.Since(start).Round(time.Millisecond))
	return nil
}

// writeFrames saves every frame in order as frame-NN.png, plus
// frame-NN-thumb.png when thumbnails are requested.
func writeFrames(s *session.Session, opts runOpts) (int, error) {
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return 0, err
	}
	written := 0
	for i, f := range s.Frames().Frames() {
		img, err := s.Snapshot(f.ID)
		if err != nil {
			return written, fmt.Errorf("frame %q: %w", f.Name, err)
		}
		if err := writePNG(filepath.Join(opts.outDir, fmt.Sprintf("frame-%02d.png", i+1)), img); err != nil {
			return written, err
		}
		written++

		if opts.thumbnail <= 0 {
			continue
		}
		thumb, err := s.Thumbnail(f.ID, opts.thumbnail, opts.thumbnail)
		if err != nil {
			return written, err
		}
		if err := writePNG(filepath.Join(opts.outDir, fmt.Sprintf("frame-%02d-thumb.png", i+1)), thumb); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeDefaultConfig(w io.Writer) error {
	return toml.NewEncoder(w).Encode(session.DefaultConfig())
}
