package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"
	"github.com/phanxgames/imgview"
	"github.com/spf13/cobra"
)

type renderFlags struct {
	out        string
	compare    string
	mode       string
	percent    float64
	panel      bool
	width      int
	height     int
	zoom       float64
	generating bool
	timeout    time.Duration
}

func newRenderCommand(g *globalFlags) *cobra.Command {
	var f renderFlags
	cmd := &cobra.Command{
		Use:   "render <image>",
		Short: "Render the fitted viewport to an image file without a window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
			defer cancel()
			return runRender(ctx, g, &f, args[0])
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.out, "out", "o", "out.png", "output file; the extension selects the format")
	fl.StringVar(&f.compare, "compare", "", "comparison image for split and side-by-side modes")
	fl.StringVar(&f.mode, "mode", "single", "render mode: single, split, side-by-side")
	fl.Float64Var(&f.percent, "percent", -1, "split divider position in [0, 1] (default from config)")
	fl.BoolVar(&f.panel, "panel", false, "reserve the side panel")
	fl.IntVar(&f.width, "width", 1280, "canvas width")
	fl.IntVar(&f.height, "height", 800, "canvas height")
	fl.Float64Var(&f.zoom, "zoom", 0, "zoom to apply after fitting (0 keeps the fit)")
	fl.BoolVar(&f.generating, "generating", false, "render as if the image were being regenerated")
	fl.DurationVar(&f.timeout, "timeout", 30*time.Second, "maximum time to wait for decoding")
	return cmd
}

func runRender(ctx context.Context, g *globalFlags, f *renderFlags, image string) error {
	if f.width <= 0 || f.height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", f.width, f.height)
	}
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	mode, err := modeFromFlags(cfg, f.mode, f.percent)
	if err != nil {
		return err
	}

	v := imgview.NewViewport(cfg, imgview.WithLogger(slog.Default().With("component", "imgview")))
	defer v.Close()

	var failure error
	v.On(imgview.CommandImageFailed, func(e imgview.CommandEvent) {
		failure = e.Err
	})

	v.SetCanvasSize(float64(f.width), float64(f.height))
	v.SetMode(mode)
	if f.panel {
		v.SetPanelWidth(cfg.PanelWidthPx)
	}
	v.SetImageURL(image)
	if f.compare != "" {
		v.SetCompareURL(f.compare)
	}
	if err := v.Settle(ctx); err != nil {
		return fmt.Errorf("wait for decode: %w", err)
	}
	if failure != nil {
		return fmt.Errorf("load %s: %w", image, failure)
	}
	if v.State() != imgview.StateReady {
		return errors.New("no image to render")
	}
	// Panel changes keep the transform, so refit around the settled panel.
	v.ResetView()
	if f.zoom > 0 {
		v.Model().SetZoom(f.zoom)
	}
	if f.generating {
		v.SetGenerating(true, image)
	}

	if err := imaging.Save(v.Snapshot(), f.out); err != nil {
		return fmt.Errorf("save %s: %w", f.out, err)
	}
	t := v.Transform()
	slog.Info("rendered", "out", f.out, "zoom", t.Zoom, "width", f.width, "height", f.height)
	return nil
}
