package imgview

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// ButtonConfig describes one hover action button anchored to the image.
type ButtonConfig struct {
	Name    string  `yaml:"name"`
	Corner  string  `yaml:"corner"` // "top-left" | "top-right" | "bottom-left" | "bottom-right" | "center"
	OffsetX float64 `yaml:"offset_x"`
	OffsetY float64 `yaml:"offset_y"`
	Size    float64 `yaml:"size"`
}

// Config holds the tunables of a Viewport. Zero values are not meaningful;
// start from DefaultConfig and override what you need.
type Config struct {
	MaxZoom         float64 `yaml:"max_zoom"`
	MinOnScreenPx   float64 `yaml:"min_on_screen_px"`
	FallbackMinZoom float64 `yaml:"fallback_min_zoom"`
	ZoomStep        float64 `yaml:"zoom_step"`

	WheelSensitivity   float64 `yaml:"wheel_sensitivity"`
	WheelDeltaCap      float64 `yaml:"wheel_delta_cap"`
	WheelPixelsPerLine float64 `yaml:"wheel_pixels_per_line"`
	DragThresholdPx    float64 `yaml:"drag_threshold_px"`

	PanelWidthPx     float64 `yaml:"panel_width_px"`
	PanelAnimationMs int     `yaml:"panel_animation_ms"`
	PanelSnapPx      float64 `yaml:"panel_snap_px"`

	FitPaddingPx   float64 `yaml:"fit_padding_px"`
	BlurRadius     int     `yaml:"blur_radius"`
	Background     string  `yaml:"background"`
	DividerGrabPx  float64 `yaml:"divider_grab_px"`
	DividerPercent float64 `yaml:"divider_percent"`

	Buttons []ButtonConfig `yaml:"buttons"`
}

// DefaultConfig returns the observed defaults of the Create canvas.
func DefaultConfig() Config {
	return Config{
		MaxZoom:            10,
		MinOnScreenPx:      500,
		FallbackMinZoom:    0.1,
		ZoomStep:           1.2,
		WheelSensitivity:   0.002,
		WheelDeltaCap:      100,
		WheelPixelsPerLine: 100,
		DragThresholdPx:    2,
		PanelWidthPx:       396,
		PanelAnimationMs:   300,
		PanelSnapPx:        1,
		FitPaddingPx:       150,
		BlurRadius:         8,
		Background:         "#141414",
		DividerGrabPx:      12,
		DividerPercent:     0.5,
		Buttons: []ButtonConfig{
			{Name: "share", Corner: "top-right", OffsetX: -44, OffsetY: 12, Size: 32},
			{Name: "download", Corner: "top-right", OffsetX: -84, OffsetY: 12, Size: 32},
			{Name: "edit", Corner: "bottom-left", OffsetX: 12, OffsetY: -44, Size: 32},
			{Name: "upscale", Corner: "bottom-left", OffsetX: 52, OffsetY: -44, Size: 32},
		},
	}
}

// RefineConfig returns defaults for the Refine canvas, which uses a tighter
// fit padding.
func RefineConfig() Config {
	c := DefaultConfig()
	c.FitPaddingPx = 50
	return c
}

// ParseConfig decodes YAML over DefaultConfig, so omitted keys keep their
// defaults, and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Validate reports every out-of-range field. The returned error wraps
// ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(isFinite(c.MaxZoom) && c.MaxZoom > 0, "max_zoom must be > 0, got %v", c.MaxZoom)
	check(isFinite(c.MinOnScreenPx) && c.MinOnScreenPx > 0, "min_on_screen_px must be > 0, got %v", c.MinOnScreenPx)
	check(isFinite(c.FallbackMinZoom) && c.FallbackMinZoom > 0, "fallback_min_zoom must be > 0, got %v", c.FallbackMinZoom)
	check(isFinite(c.ZoomStep) && c.ZoomStep > 1, "zoom_step must be > 1, got %v", c.ZoomStep)
	check(isFinite(c.WheelSensitivity) && c.WheelSensitivity > 0, "wheel_sensitivity must be > 0, got %v", c.WheelSensitivity)
	check(isFinite(c.WheelDeltaCap) && c.WheelDeltaCap > 0, "wheel_delta_cap must be > 0, got %v", c.WheelDeltaCap)
	// A capped wheel step must never flip the zoom factor's sign.
	check(c.WheelDeltaCap*c.WheelSensitivity < 1, "wheel_delta_cap * wheel_sensitivity must be < 1")
	check(isFinite(c.WheelPixelsPerLine) && c.WheelPixelsPerLine > 0, "wheel_pixels_per_line must be > 0, got %v", c.WheelPixelsPerLine)
	check(isFinite(c.DragThresholdPx) && c.DragThresholdPx >= 0, "drag_threshold_px must be >= 0, got %v", c.DragThresholdPx)
	check(isFinite(c.PanelWidthPx) && c.PanelWidthPx >= 0, "panel_width_px must be >= 0, got %v", c.PanelWidthPx)
	check(c.PanelAnimationMs >= 0, "panel_animation_ms must be >= 0, got %d", c.PanelAnimationMs)
	check(isFinite(c.PanelSnapPx) && c.PanelSnapPx >= 0, "panel_snap_px must be >= 0, got %v", c.PanelSnapPx)
	check(isFinite(c.FitPaddingPx) && c.FitPaddingPx >= 0, "fit_padding_px must be >= 0, got %v", c.FitPaddingPx)
	check(c.BlurRadius >= 0, "blur_radius must be >= 0, got %d", c.BlurRadius)
	check(isFinite(c.DividerGrabPx) && c.DividerGrabPx >= 0, "divider_grab_px must be >= 0, got %v", c.DividerGrabPx)
	check(c.DividerPercent >= 0 && c.DividerPercent <= 1, "divider_percent must be in [0, 1], got %v", c.DividerPercent)
	if _, err := colorful.Hex(c.Background); err != nil {
		errs = append(errs, fmt.Errorf("background %q: %w", c.Background, err))
	}
	seen := make(map[string]bool, len(c.Buttons))
	for i, b := range c.Buttons {
		check(b.Name != "", "buttons[%d]: name is required", i)
		check(!seen[b.Name], "buttons[%d]: duplicate name %q", i, b.Name)
		seen[b.Name] = true
		_, ok := parseCorner(b.Corner)
		check(ok, "buttons[%d]: unknown corner %q", i, b.Corner)
		check(b.Size > 0, "buttons[%d]: size must be > 0", i)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// PanelAnimation returns the panel animation duration.
func (c Config) PanelAnimation() time.Duration {
	return time.Duration(c.PanelAnimationMs) * time.Millisecond
}

// BackgroundColor returns the parsed background color, falling back to
// opaque black for an unparsable value.
func (c Config) BackgroundColor() color.RGBA {
	col, err := colorful.Hex(c.Background)
	if err != nil {
		return color.RGBA{A: 0xff}
	}
	r, g, b := col.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

func (c Config) limits() zoomLimits {
	return zoomLimits{
		max:         c.MaxZoom,
		minOnScreen: c.MinOnScreenPx,
		fallback:    c.FallbackMinZoom,
	}
}

func parseCorner(s string) (Corner, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top-left":
		return CornerTopLeft, true
	case "top-right":
		return CornerTopRight, true
	case "bottom-left":
		return CornerBottomLeft, true
	case "bottom-right":
		return CornerBottomRight, true
	case "center":
		return CornerCenter, true
	default:
		return 0, false
	}
}
