package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/phanxgames/imgview"
	"github.com/spf13/cobra"
)

type viewFlags struct {
	compare   string
	mode      string
	percent   float64
	panel     bool
	watch     bool
	script    string
	width     int
	height    int
	showFPS   bool
	debug     bool
	shotDir   string
	exitAfter bool
}

func newViewCommand(g *globalFlags) *cobra.Command {
	var f viewFlags
	cmd := &cobra.Command{
		Use:   "view <image>",
		Short: "Open an image in an interactive window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(g, &f, args[0])
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.compare, "compare", "", "comparison image for split and side-by-side modes")
	fl.StringVar(&f.mode, "mode", "single", "render mode: single, split, side-by-side")
	fl.Float64Var(&f.percent, "percent", -1, "initial split divider position in [0, 1] (default from config)")
	fl.BoolVar(&f.panel, "panel", false, "open the side panel")
	fl.BoolVarP(&f.watch, "watch", "w", false, "reload the image when the file changes")
	fl.StringVar(&f.script, "script", "", "JSON test script to run")
	fl.BoolVar(&f.exitAfter, "exit", false, "quit when the test script finishes")
	fl.IntVar(&f.width, "width", 1280, "window width")
	fl.IntVar(&f.height, "height", 800, "window height")
	fl.BoolVar(&f.showFPS, "fps", false, "show FPS in the status line")
	fl.BoolVar(&f.debug, "debug", false, "log per-frame stats at debug level")
	fl.StringVar(&f.shotDir, "screenshots", "screenshots", "directory for script screenshots")
	return cmd
}

func runView(g *globalFlags, f *viewFlags, image string) error {
	log := slog.Default().With("component", "view")

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	mode, err := modeFromFlags(cfg, f.mode, f.percent)
	if err != nil {
		return err
	}

	v := imgview.NewViewport(cfg,
		imgview.WithLogger(slog.Default().With("component", "imgview")),
		imgview.WithBitmapFactory(imgview.EbitenBitmap),
	)
	v.ScreenshotDir = f.shotDir
	v.SetDebugMode(f.debug)
	v.SetMode(mode)
	if f.panel {
		v.SetPanelWidth(cfg.PanelWidthPx)
	}
	v.On(imgview.CommandActivate, func(e imgview.CommandEvent) {
		log.Info("activate", "x", e.Point.X, "y", e.Point.Y, "zoom", e.Zoom)
	})
	v.On(imgview.CommandButton, func(e imgview.CommandEvent) {
		log.Info("button", "name", e.Button)
	})
	v.On(imgview.CommandImageFailed, func(e imgview.CommandEvent) {
		log.Error("image failed", "url", e.URL, "err", e.Err)
	})
	v.SetImageURL(image)
	if f.compare != "" {
		v.SetCompareURL(f.compare)
	}

	if f.script != "" {
		data, err := os.ReadFile(f.script)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		runner, err := imgview.LoadTestScript(data)
		if err != nil {
			return err
		}
		v.SetTestRunner(runner)
	}

	var onUpdate func() error
	if f.watch {
		w, err := newFileWatcher(log, image, f.compare)
		if err != nil {
			return err
		}
		defer w.Close()
		onUpdate = func() error {
			w.apply(v)
			return nil
		}
	}

	return imgview.Run(v, imgview.RunConfig{
		Title:        "imgview - " + image,
		Width:        f.width,
		Height:       f.height,
		ShowFPS:      f.showFPS,
		ExitWhenDone: f.exitAfter,
		OnUpdate:     onUpdate,
	})
}

func loadConfig(g *globalFlags) (imgview.Config, error) {
	if g.configPath != "" {
		cfg, err := imgview.LoadConfig(g.configPath)
		if err != nil {
			return imgview.Config{}, err
		}
		return cfg, nil
	}
	if g.refine {
		return imgview.RefineConfig(), nil
	}
	return imgview.DefaultConfig(), nil
}

func modeFromFlags(cfg imgview.Config, name string, percent float64) (imgview.RenderMode, error) {
	if percent < 0 {
		percent = cfg.DividerPercent
	}
	mode, err := imgview.ParseMode(name, percent)
	if err != nil {
		return nil, fmt.Errorf("--mode: %w", err)
	}
	return mode, nil
}
