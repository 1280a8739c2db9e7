package imgview

import (
	"errors"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title         string
	Width, Height int
	ShowFPS       bool
	// ExitWhenDone quits once an attached TestRunner has finished.
	ExitWhenDone bool
	// OnUpdate runs at the start of every tick. Returning an error stops
	// the game loop with that error.
	OnUpdate func() error
}

var (
	buttonFill   = color.NRGBA{0x20, 0x20, 0x20, 0xd0}
	buttonHover  = color.NRGBA{0x40, 0x40, 0x40, 0xe0}
	buttonBorder = color.NRGBA{0xff, 0xff, 0xff, 0x60}
	dividerColor = color.NRGBA{0xff, 0xff, 0xff, 0xc0}
)

const debugGlyphWidth = 6

// Run opens a window and drives v with ebiten until the window closes. The
// viewport is repainted only when it reports NeedsRedraw, while loading, or
// when overlays change.
func Run(v *Viewport, cfg RunConfig) error {
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 800
	}
	if cfg.Title == "" {
		cfg.Title = "imgview"
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetScreenClearedEveryFrame(false)

	g := newGame(v, cfg)
	err := ebiten.RunGame(g)
	v.Close()
	g.surface.Dispose()
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// game adapts a Viewport to ebiten.Game.
type game struct {
	v       *Viewport
	cfg     RunConfig
	input   *InputPoller
	surface *EbitenSurface
	hud     hud

	ticks       int
	lastHover   bool
	lastPointer Vec2
	lastHUD     string
}

func newGame(v *Viewport, cfg RunConfig) *game {
	return &game{
		v:       v,
		cfg:     cfg,
		input:   NewInputPoller(),
		surface: NewEbitenSurface(nil),
		hud:     hud{showFPS: cfg.ShowFPS},
	}
}

// Update implements ebiten.Game.
func (g *game) Update() error {
	if g.cfg.OnUpdate != nil {
		if err := g.cfg.OnUpdate(); err != nil {
			return err
		}
	}
	dt := time.Second / time.Duration(ebiten.TPS())
	g.ticks++
	g.v.Tick(dt)
	if !g.v.Injecting() {
		g.input.Poll(g.v)
	}
	g.hud.update(dt.Seconds(), g.v)

	if g.cfg.ExitWhenDone && g.v.testRunner != nil && g.v.testRunner.Done() && !g.v.PendingScreenshots() {
		return ebiten.Termination
	}
	return nil
}

// Draw implements ebiten.Game.
func (g *game) Draw(screen *ebiten.Image) {
	if !g.shouldRedraw() {
		return
	}
	g.surface.SetTarget(screen)
	g.v.Draw(g.surface)
	g.drawOverlay(screen)
	g.hud.draw(screen)
	g.lastHover = g.v.Hovering()
	g.lastPointer = g.v.pointer
	g.lastHUD = g.hud.text

	if g.v.PendingScreenshots() {
		g.v.FlushScreenshots(readScreen(screen))
	}
}

func (g *game) shouldRedraw() bool {
	return g.v.NeedsRedraw() ||
		g.v.State() == StateLoading ||
		g.v.Hovering() != g.lastHover ||
		(g.v.Hovering() && g.v.pointer != g.lastPointer) ||
		g.hud.text != g.lastHUD ||
		g.v.PendingScreenshots()
}

// Layout implements ebiten.Game.
func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.v.SetCanvasSize(float64(outsideWidth), float64(outsideHeight))
	return outsideWidth, outsideHeight
}

// drawOverlay draws the divider, hover buttons, loading spinner and the
// empty-state hint on top of the rendered image.
func (g *game) drawOverlay(screen *ebiten.Image) {
	o := g.v.Overlay()

	if x, ok := o.DividerX(); ok {
		h := float32(screen.Bounds().Dy())
		vector.StrokeLine(screen, float32(x), 0, float32(x), h, 2, dividerColor, true)
		vector.DrawFilledCircle(screen, float32(x), h/2, 8, dividerColor, true)
	}

	if g.v.Hovering() && g.v.State() == StateReady {
		for _, b := range o.ButtonRects() {
			fill := buttonFill
			if b.Rect.Contains(g.v.pointer.X, g.v.pointer.Y) {
				fill = buttonHover
			}
			r := b.Rect
			vector.DrawFilledRect(screen, float32(r.X), float32(r.Y), float32(r.Width), float32(r.Height), fill, true)
			vector.StrokeRect(screen, float32(r.X), float32(r.Y), float32(r.Width), float32(r.Height), 1, buttonBorder, true)
			if b.Name != "" {
				ebitenutil.DebugPrintAt(screen, b.Name[:1], int(r.X+r.Width/2)-3, int(r.Y+r.Height/2)-8)
			}
		}
	}

	switch g.v.State() {
	case StateLoading:
		c := o.LoaderCenter()
		drawSpinner(screen, c, float64(g.ticks)/float64(ebiten.TPS()))
	case StateEmpty:
		msg := "No image"
		c := g.v.Model().ScreenCenter()
		ebitenutil.DebugPrintAt(screen, msg, int(c.X)-len(msg)*debugGlyphWidth/2, int(c.Y)-8)
	}
}

// drawSpinner draws eight spokes rotating once per second, brightest at the
// leading spoke.
func drawSpinner(screen *ebiten.Image, c Vec2, seconds float64) {
	const spokes = 8
	const inner, outer = 10.0, 20.0
	lead := int(seconds*spokes) % spokes
	for i := 0; i < spokes; i++ {
		a := 2 * math.Pi * float64(i) / spokes
		sin, cos := math.Sincos(a)
		alpha := uint8(255 * (spokes - (lead-i+spokes)%spokes) / spokes)
		vector.StrokeLine(screen,
			float32(c.X+cos*inner), float32(c.Y+sin*inner),
			float32(c.X+cos*outer), float32(c.Y+sin*outer),
			3, color.NRGBA{0xff, 0xff, 0xff, alpha}, true)
	}
}

// EbitenBitmap converts a decoded image to a GPU texture. Pass it to
// WithBitmapFactory when the viewport only draws onto EbitenSurface.
func EbitenBitmap(img image.Image) Bitmap {
	return ebiten.NewImageFromImage(img)
}
