package imgview

import (
	"fmt"
	"image/color"
	"math"
	"strings"
	"time"
)

// RenderMode selects how the primary and comparison images are painted. The
// set of modes is closed: Single, Split and SideBySide.
type RenderMode interface {
	// geometry places the images for the current model state. compareW and
	// compareH are zero when no comparison image is decoded.
	geometry(m *Model, compareW, compareH float64) Geometry
	String() string
}

// Single paints the primary image alone, centered on the screen center.
type Single struct{}

// Split paints the comparison image left of a vertical divider and the
// primary image right of it. Both occupy the primary image's screen rect.
type Split struct {
	// Percent is the divider position as a fraction of the canvas width.
	Percent float64
}

// SideBySide splits the visible area into two halves, comparison on the left
// and primary on the right. Both share zoom and pan.
type SideBySide struct{}

func (Single) String() string     { return "single" }
func (Split) String() string      { return "split" }
func (SideBySide) String() string { return "side-by-side" }

func (Single) geometry(m *Model, _, _ float64) Geometry {
	cw, ch := m.CanvasSize()
	canvas := Rect{Width: cw, Height: ch}
	return Geometry{Canvas: canvas, Primary: m.ImageRect(), PrimaryClip: canvas, Center: m.ScreenCenter()}
}

func (s Split) geometry(m *Model, compareW, compareH float64) Geometry {
	g := Single{}.geometry(m, compareW, compareH)
	if compareW <= 0 || compareH <= 0 || g.Primary.Empty() {
		return g
	}
	div := clamp(s.Percent, 0, 1) * g.Canvas.Width
	g.HasCompare = true
	g.Compare = g.Primary
	g.CompareClip = Rect{Width: div, Height: g.Canvas.Height}
	g.PrimaryClip = Rect{X: div, Width: g.Canvas.Width - div, Height: g.Canvas.Height}
	g.HasDivider = true
	g.DividerX = div
	return g
}

func (SideBySide) geometry(m *Model, compareW, compareH float64) Geometry {
	if compareW <= 0 || compareH <= 0 {
		return Single{}.geometry(m, compareW, compareH)
	}
	cw, ch := m.CanvasSize()
	canvas := Rect{Width: cw, Height: ch}
	left := clamp(2*m.PanelOffset(), 0, cw)
	half := (cw - left) / 2
	leftHalf := Rect{X: left, Width: half, Height: ch}
	rightHalf := Rect{X: left + half, Width: half, Height: ch}

	z, pan := m.Zoom(), m.Pan()
	g := Geometry{
		Canvas:      canvas,
		PrimaryClip: rightHalf,
		CompareClip: leftHalf,
		HasCompare:  true,
		Center:      rightHalf.Center().Add(pan),
	}
	if iw, ih := m.ImageSize(); iw > 0 && ih > 0 {
		g.Primary = centeredRect(g.Center, iw*z, ih*z)
	}
	g.Compare = centeredRect(leftHalf.Center().Add(pan), compareW*z, compareH*z)
	return g
}

// ParseMode returns the render mode named by name: "single", "split" or
// "side-by-side". percent is the divider position for split.
func ParseMode(name string, percent float64) (RenderMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "single":
		return Single{}, nil
	case "split":
		if !isFinite(percent) || percent < 0 || percent > 1 {
			return nil, fmt.Errorf("split percent must be in [0, 1], got %v", percent)
		}
		return Split{Percent: percent}, nil
	case "side-by-side", "sidebyside":
		return SideBySide{}, nil
	default:
		return nil, fmt.Errorf("unknown render mode %q", name)
	}
}

func centeredRect(c Vec2, w, h float64) Rect {
	return Rect{X: c.X - w/2, Y: c.Y - h/2, Width: w, Height: h}
}

// ComputeGeometry places the images of the current frame. compare may be nil.
func ComputeGeometry(m *Model, mode RenderMode, compare Bitmap) Geometry {
	if mode == nil {
		mode = Single{}
	}
	var cw, ch float64
	if compare != nil {
		b := compare.Bounds()
		cw, ch = float64(b.Dx()), float64(b.Dy())
	}
	return mode.geometry(m, cw, ch)
}

// Frame is everything the renderer needs to paint one frame.
type Frame struct {
	Model      *Model
	Mode       RenderMode
	Background color.Color

	Primary    Bitmap
	PrimaryURL string
	Compare    Bitmap

	// Generating and GeneratingID identify an image being regenerated. The
	// primary image is blurred by BlurRadius only when GeneratingID matches
	// PrimaryURL.
	Generating   bool
	GeneratingID string
	BlurRadius   int
}

// shouldBlur reports whether the displayed image is the one being generated.
func shouldBlur(generating bool, generatingID, displayedURL string) bool {
	return generating && generatingID != "" && generatingID == displayedURL
}

// Renderer paints frames onto a Surface. It only reads the model; the only
// state it keeps is per-frame statistics.
type Renderer struct {
	drawCalls    int
	lastDuration time.Duration
	frames       int
}

// Redraw paints f onto s. A nil surface is a no-op and returns false.
func (r *Renderer) Redraw(s Surface, f *Frame) bool {
	if s == nil || f == nil || f.Model == nil {
		return false
	}
	t0 := time.Now()
	r.drawCalls = 0

	bg := f.Background
	if bg == nil {
		bg = color.Black
	}
	s.Fill(bg)

	g := ComputeGeometry(f.Model, f.Mode, f.Compare)
	if g.HasCompare && f.Compare != nil {
		r.drawClipped(s, f.Compare, g.Compare, g.CompareClip, 0)
	}
	if f.Primary != nil && !g.Primary.Empty() {
		blur := 0
		if shouldBlur(f.Generating, f.GeneratingID, f.PrimaryURL) {
			blur = f.BlurRadius
		}
		r.drawClipped(s, f.Primary, g.Primary, g.PrimaryClip, blur)
	}

	r.frames++
	r.lastDuration = time.Since(t0)
	return true
}

// drawClipped draws the part of b that is visible inside clip, where rect is
// the screen rect b covers in full.
func (r *Renderer) drawClipped(s Surface, b Bitmap, rect, clip Rect, blur int) {
	vis := rect.Intersect(clip)
	if vis.Empty() || rect.Empty() {
		return
	}
	bounds := b.Bounds()
	sx := float64(bounds.Dx()) / rect.Width
	sy := float64(bounds.Dy()) / rect.Height
	if math.IsNaN(sx) || math.IsNaN(sy) {
		return
	}
	src := Rect{
		X:      (vis.X - rect.X) * sx,
		Y:      (vis.Y - rect.Y) * sy,
		Width:  vis.Width * sx,
		Height: vis.Height * sy,
	}
	s.DrawBitmap(b, src, vis, DrawOptions{Blur: blur})
	r.drawCalls++
}

// DrawCalls returns the number of bitmap draws issued by the last Redraw.
func (r *Renderer) DrawCalls() int { return r.drawCalls }

// LastDuration returns how long the last Redraw took.
func (r *Renderer) LastDuration() time.Duration { return r.lastDuration }

// Frames returns the number of frames painted.
func (r *Renderer) Frames() int { return r.frames }
