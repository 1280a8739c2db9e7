package imgview

import "math"

// Gesture turns raw pointer and wheel input into transform mutations and
// distinguishes clicks from drags. It only mutates the Model; it never draws.
type Gesture struct {
	model *Model

	threshold   float64
	zoomStep    float64
	sensitivity float64
	deltaCap    float64

	dragging   bool
	hasDragged bool
	start      Vec2
	last       Vec2
	travel     Vec2 // cumulative absolute movement per axis since press
}

// NewGesture creates an interpreter bound to model.
func NewGesture(model *Model, cfg Config) *Gesture {
	return &Gesture{
		model:       model,
		threshold:   cfg.DragThresholdPx,
		zoomStep:    cfg.ZoomStep,
		sensitivity: cfg.WheelSensitivity,
		deltaCap:    cfg.WheelDeltaCap,
	}
}

// PointerDown starts a potential drag at p.
func (g *Gesture) PointerDown(p Vec2) {
	if !p.finite() {
		return
	}
	g.dragging = true
	g.hasDragged = false
	g.start = p
	g.last = p
	g.travel = Vec2{}
}

// PointerMove adds the movement since the last recorded position to pan while
// a drag is active. Pan is in raw screen pixels, not divided by zoom. Returns
// the applied delta.
func (g *Gesture) PointerMove(p Vec2) Vec2 {
	if !g.dragging || !p.finite() {
		return Vec2{}
	}
	delta := p.Sub(g.last)
	g.last = p

	g.travel.X += math.Abs(delta.X)
	g.travel.Y += math.Abs(delta.Y)
	if g.travel.X > g.threshold || g.travel.Y > g.threshold {
		g.hasDragged = true
	}

	next := g.model.Pan().Add(delta)
	if !g.model.SetPan(next) {
		return Vec2{}
	}
	return delta
}

// PointerUp ends the drag. It reports true when the press should be treated
// as a click: a drag was active and its movement never exceeded the
// threshold.
func (g *Gesture) PointerUp() bool {
	if !g.dragging {
		return false
	}
	g.dragging = false
	return !g.hasDragged
}

// Cancel abandons an active drag without reporting a click.
func (g *Gesture) Cancel() {
	g.dragging = false
	g.hasDragged = false
}

// Dragging reports whether a pointer is currently held down.
func (g *Gesture) Dragging() bool { return g.dragging }

// HasDragged reports whether the current (or last) drag exceeded the click
// threshold.
func (g *Gesture) HasDragged() bool { return g.hasDragged }

// Start returns the press position of the current drag.
func (g *Gesture) Start() Vec2 { return g.start }

// Wheel zooms by a multiplicative factor derived from a DOM-style deltaY
// (positive scrolls down and zooms out). Zoom is anchored at the viewport
// center; pan is unchanged. Reports whether the zoom changed.
func (g *Gesture) Wheel(deltaY float64) bool {
	if !isFinite(deltaY) || deltaY == 0 {
		return false
	}
	factor := wheelZoomFactor(deltaY, g.deltaCap, g.sensitivity)
	return g.model.SetZoom(g.model.Zoom() * factor)
}

// ZoomIn multiplies zoom by the zoom step.
func (g *Gesture) ZoomIn() bool {
	return g.model.SetZoom(g.model.Zoom() * g.zoomStep)
}

// ZoomOut divides zoom by the zoom step.
func (g *Gesture) ZoomOut() bool {
	return g.model.SetZoom(g.model.Zoom() / g.zoomStep)
}

// wheelZoomFactor caps |deltaY| before scaling so one large trackpad event
// cannot jump the zoom: 1 - sign(d)*min(|d|, cap)*sensitivity.
func wheelZoomFactor(deltaY, deltaCap, sensitivity float64) float64 {
	n := math.Copysign(math.Min(math.Abs(deltaY), deltaCap), deltaY)
	return 1 - n*sensitivity
}
