package imgview

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// hud is the status line drawn in the top-right corner by Run: zoom, state
// and optionally FPS/TPS. The text is refreshed about every half second.
type hud struct {
	showFPS bool
	elapsed float64
	text    string
}

func (h *hud) update(dt float64, v *Viewport) {
	h.elapsed += dt
	if h.text != "" && h.elapsed < 0.5 {
		return
	}
	h.elapsed = 0
	h.text = hudText(v.State(), v.Transform().Zoom, h.showFPS, ebiten.ActualFPS(), ebiten.ActualTPS())
}

func hudText(state State, zoom float64, showFPS bool, fps, tps float64) string {
	s := fmt.Sprintf("%s  %.0f%%", state, zoom*100)
	if showFPS {
		s += fmt.Sprintf("\nFPS: %.1f\nTPS: %.1f", fps, tps)
	}
	return s
}

func (h *hud) draw(screen *ebiten.Image) {
	if h.text == "" {
		return
	}
	const w, lineH = 110, 16
	lines := 1
	for _, r := range h.text {
		if r == '\n' {
			lines++
		}
	}
	x := float32(screen.Bounds().Dx() - w - 8)
	vector.DrawFilledRect(screen, x, 8, w, float32(lines*lineH+4), color.RGBA{0, 0, 0, 128}, false)
	ebitenutil.DebugPrintAt(screen, h.text, int(x)+4, 10)
}
