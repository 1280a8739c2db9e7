package imgview

import "math"

// identityTransform is the identity affine matrix.
var identityTransform = [6]float64{1, 0, 0, 1, 0, 0}

// Transform is the user-controlled part of the view: a zoom scale applied to
// the image's native pixels and a pan offset in raw screen pixels.
type Transform struct {
	Zoom float64
	Pan  Vec2
}

// zoomLimits bounds zoom for a given image size.
type zoomLimits struct {
	max         float64
	minOnScreen float64
	fallback    float64
}

// minZoom returns the zoom at which the image's smaller side still renders at
// least minOnScreen pixels, or the fallback when there is no image.
func (l zoomLimits) minZoom(w, h float64) float64 {
	if w <= 0 || h <= 0 || !isFinite(w) || !isFinite(h) {
		return l.fallback
	}
	return math.Min(l.minOnScreen/w, l.minOnScreen/h)
}

// bounds returns the effective [lo, hi] zoom range. Images smaller than the
// on-screen minimum would push lo past hi; hi wins in that case.
func (l zoomLimits) bounds(w, h float64) (lo, hi float64) {
	lo = l.minZoom(w, h)
	hi = l.max
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

func (l zoomLimits) clampZoom(z, w, h float64) float64 {
	lo, hi := l.bounds(w, h)
	return clamp(z, lo, hi)
}

// Model holds the viewport transform and the geometry it is applied in:
// image size, canvas size, and the animated panel offset. It never draws;
// every mutation marks it dirty so the render loop knows to repaint.
type Model struct {
	limits zoomLimits

	zoom float64
	pan  Vec2

	imageW, imageH   float64 // zero when no image is loaded
	canvasW, canvasH float64
	panelOffset      float64

	dirty bool

	viewMatrix    [6]float64
	invViewMatrix [6]float64
	viewDirty     bool
}

// NewModel creates a model with zoom 1, zero pan, and the zoom limits of cfg.
func NewModel(cfg Config) *Model {
	m := &Model{
		limits:    cfg.limits(),
		zoom:      1,
		dirty:     true,
		viewDirty: true,
	}
	m.zoom = m.limits.clampZoom(m.zoom, 0, 0)
	return m
}

// Transform returns the current zoom and pan.
func (m *Model) Transform() Transform {
	return Transform{Zoom: m.zoom, Pan: m.pan}
}

// Zoom returns the current zoom scale.
func (m *Model) Zoom() float64 { return m.zoom }

// Pan returns the current pan offset in screen pixels.
func (m *Model) Pan() Vec2 { return m.pan }

// MaxZoom returns the upper zoom bound.
func (m *Model) MaxZoom() float64 { return m.limits.max }

// MinZoom returns the lower zoom bound for the current image.
func (m *Model) MinZoom() float64 {
	lo, _ := m.limits.bounds(m.imageW, m.imageH)
	return lo
}

// MinZoomFor returns min(minOnScreen/w, minOnScreen/h) for an image of the
// given size, or the fallback when the size is not positive.
func (m *Model) MinZoomFor(w, h float64) float64 {
	return m.limits.minZoom(w, h)
}

// SetZoom clamps z to the current bounds and applies it. Non-finite values are
// ignored. Reports whether the zoom changed.
func (m *Model) SetZoom(z float64) bool {
	if !isFinite(z) {
		return false
	}
	z = m.limits.clampZoom(z, m.imageW, m.imageH)
	if z == m.zoom {
		return false
	}
	m.zoom = z
	m.markDirty()
	return true
}

// SetPan replaces the pan offset. Values with a non-finite component are
// ignored. Reports whether the pan changed.
func (m *Model) SetPan(p Vec2) bool {
	if !p.finite() || p == m.pan {
		return false
	}
	m.pan = p
	m.markDirty()
	return true
}

// SetTransform applies zoom then pan with the usual guards.
func (m *Model) SetTransform(t Transform) {
	m.SetZoom(t.Zoom)
	m.SetPan(t.Pan)
}

// SetImageSize records the intrinsic size of the displayed image. Pass zero to
// clear. The zoom is re-clamped to the new bounds.
func (m *Model) SetImageSize(w, h float64) {
	if !isFinite(w) || !isFinite(h) || w < 0 || h < 0 {
		w, h = 0, 0
	}
	if w == m.imageW && h == m.imageH {
		return
	}
	m.imageW, m.imageH = w, h
	m.zoom = m.limits.clampZoom(m.zoom, w, h)
	m.markDirty()
}

// ImageSize returns the intrinsic size of the displayed image.
func (m *Model) ImageSize() (w, h float64) { return m.imageW, m.imageH }

// HasImage reports whether an image size is set.
func (m *Model) HasImage() bool { return m.imageW > 0 && m.imageH > 0 }

// SetCanvasSize updates the drawing surface size. When both the old and new
// sizes are non-zero, pan is rescaled by the size ratio so the image does not
// jump on resize.
func (m *Model) SetCanvasSize(w, h float64) {
	if !isFinite(w) || !isFinite(h) || w < 0 || h < 0 {
		return
	}
	if w == m.canvasW && h == m.canvasH {
		return
	}
	pan := m.pan
	if m.canvasW > 0 && w > 0 {
		pan.X *= w / m.canvasW
	}
	if m.canvasH > 0 && h > 0 {
		pan.Y *= h / m.canvasH
	}
	m.canvasW, m.canvasH = w, h
	if pan.finite() {
		m.pan = pan
	}
	m.markDirty()
}

// CanvasSize returns the drawing surface size.
func (m *Model) CanvasSize() (w, h float64) { return m.canvasW, m.canvasH }

// SetPanelOffset sets the horizontal screen-center shift reserved for the
// side panel. Zoom and pan are untouched.
func (m *Model) SetPanelOffset(off float64) {
	if !isFinite(off) || off == m.panelOffset {
		return
	}
	m.panelOffset = off
	m.markDirty()
}

// PanelOffset returns the current panel offset.
func (m *Model) PanelOffset() float64 { return m.panelOffset }

// ScreenCenter returns (canvasW/2 + panelOffset, canvasH/2).
func (m *Model) ScreenCenter() Vec2 {
	return Vec2{m.canvasW/2 + m.panelOffset, m.canvasH / 2}
}

// ImageToScreen maps an image-space point to screen space:
// screenCenter + pan + (p - imageCenter) * zoom.
func (m *Model) ImageToScreen(p Vec2) Vec2 {
	m.computeViewMatrix()
	x, y := transformPoint(m.viewMatrix, p.X, p.Y)
	return Vec2{x, y}
}

// ScreenToImage maps a screen-space point back to image space.
func (m *Model) ScreenToImage(p Vec2) Vec2 {
	m.computeViewMatrix()
	x, y := transformPoint(m.invViewMatrix, p.X, p.Y)
	return Vec2{x, y}
}

// ImageRect returns the screen-space rectangle covered by the image at the
// current transform. It is empty when no image is set.
func (m *Model) ImageRect() Rect {
	if !m.HasImage() {
		return Rect{}
	}
	tl := m.ImageToScreen(Vec2{0, 0})
	return Rect{X: tl.X, Y: tl.Y, Width: m.imageW * m.zoom, Height: m.imageH * m.zoom}
}

// Dirty reports whether anything changed since the last ClearDirty.
func (m *Model) Dirty() bool { return m.dirty }

// ClearDirty resets the dirty flag after a redraw.
func (m *Model) ClearDirty() { m.dirty = false }

func (m *Model) markDirty() {
	m.dirty = true
	m.viewDirty = true
}

// computeViewMatrix recomputes the cached view matrix if dirty.
//
// viewMatrix = Translate(center + pan) * Scale(zoom) * Translate(-imageCenter)
func (m *Model) computeViewMatrix() {
	if !m.viewDirty {
		return
	}
	m.viewDirty = false

	c := m.ScreenCenter()
	z := m.zoom
	tx := c.X + m.pan.X - z*m.imageW/2
	ty := c.Y + m.pan.Y - z*m.imageH/2

	m.viewMatrix = [6]float64{z, 0, 0, z, tx, ty}
	m.invViewMatrix = invertAffine(m.viewMatrix)
}

// invertAffine computes the inverse of a 2D affine matrix.
// Returns the identity matrix if the matrix is singular (determinant ≈ 0).
//
//	Matrix layout: [a, b, c, d, tx, ty]
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
func invertAffine(m [6]float64) [6]float64 {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return identityTransform
	}
	invDet := 1.0 / det
	a := m[3] * invDet
	b := -m[1] * invDet
	c := -m[2] * invDet
	d := m[0] * invDet
	tx := -(a*m[4] + c*m[5])
	ty := -(b*m[4] + d*m[5])
	return [6]float64{a, b, c, d, tx, ty}
}

// transformPoint applies an affine matrix to a point.
func transformPoint(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}
