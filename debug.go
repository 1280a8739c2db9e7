package imgview

import "time"

// debugStats holds per-frame metrics. Only collected when debug mode is on.
type debugStats struct {
	redrawTime   time.Duration
	drawCalls    int
	frames       int
	staleDecodes int
	state        State
	zoom         float64
	panelOffset  float64
}

func (v *Viewport) collectStats() debugStats {
	return debugStats{
		redrawTime:   v.renderer.LastDuration(),
		drawCalls:    v.renderer.DrawCalls(),
		frames:       v.renderer.Frames(),
		staleDecodes: v.staleDecodes,
		state:        v.state,
		zoom:         v.model.Zoom(),
		panelOffset:  v.model.PanelOffset(),
	}
}

// debugLog writes frame stats at debug level.
func (v *Viewport) debugLog(stats debugStats) {
	if !v.debug {
		return
	}
	v.log.Debug("frame",
		"frame", stats.frames,
		"redraw", stats.redrawTime,
		"draw_calls", stats.drawCalls,
		"stale_decodes", stats.staleDecodes,
		"state", stats.state,
		"zoom", stats.zoom,
		"panel_offset", stats.panelOffset,
	)
}
