package imgview

import (
	"math"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// PanelAnimator eases the horizontal offset reserved for a side panel toward
// a target with a cubic ease-out. At most one tween is in flight; it is the
// animator's frame handle and is released on supersede, Stop, and completion.
//
// The animator knows nothing about zoom or pan. Callers advance it once per
// frame and copy Offset into the Model.
type PanelAnimator struct {
	duration float32 // seconds
	snap     float64
	offset   float64
	target   float64
	tween    *gween.Tween
}

// NewPanelAnimator creates an animator resting at offset 0.
func NewPanelAnimator(duration time.Duration, snapPx float64) *PanelAnimator {
	if duration < 0 {
		duration = 0
	}
	return &PanelAnimator{
		duration: float32(duration.Seconds()),
		snap:     snapPx,
	}
}

// AnimateTo starts easing toward target from the current offset, replacing
// any in-flight tween. When the offset is already within the snap distance
// of target the offset is left as is and only the in-flight tween stops. It
// is a no-op when the in-flight tween already heads to target.
func (a *PanelAnimator) AnimateTo(target float64) {
	if !isFinite(target) {
		return
	}
	if a.tween != nil && a.target == target {
		return
	}
	a.target = target
	if math.Abs(a.offset-target) <= a.snap {
		a.tween = nil
		return
	}
	if a.duration <= 0 {
		a.tween = nil
		a.offset = target
		return
	}
	a.tween = gween.New(float32(a.offset), float32(target), a.duration, ease.OutCubic)
}

// JumpTo cancels any animation and sets the offset immediately.
func (a *PanelAnimator) JumpTo(offset float64) {
	if !isFinite(offset) {
		return
	}
	a.tween = nil
	a.offset = offset
	a.target = offset
}

// Advance moves the in-flight tween forward by dt. Reports whether the offset
// was updated this frame.
func (a *PanelAnimator) Advance(dt time.Duration) bool {
	if a.tween == nil {
		return false
	}
	if dt < 0 {
		dt = 0
	}
	val, done := a.tween.Update(float32(dt.Seconds()))
	if done {
		a.offset = a.target
		a.tween = nil
		return true
	}
	a.offset = float64(val)
	return true
}

// Stop releases the in-flight tween, leaving the offset where it is.
func (a *PanelAnimator) Stop() {
	a.tween = nil
}

// Offset returns the current animated offset.
func (a *PanelAnimator) Offset() float64 { return a.offset }

// Target returns the offset the animator converges to.
func (a *PanelAnimator) Target() float64 { return a.target }

// Animating reports whether a tween is in flight.
func (a *PanelAnimator) Animating() bool { return a.tween != nil }
