package imgview

type syntheticKind uint8

const (
	syntheticPointer syntheticKind = iota
	syntheticWheel
)

// syntheticPointerEvent represents a single injected input event in screen
// coordinates, the same space real pointer input uses.
type syntheticPointerEvent struct {
	kind    syntheticKind
	x, y    float64
	pressed bool
	deltaY  float64
}

// InjectPress queues a pointer press at the given screen coordinates. The
// event is consumed by the next Tick.
func (v *Viewport) InjectPress(x, y float64) {
	v.injectQueue = append(v.injectQueue, syntheticPointerEvent{x: x, y: y, pressed: true})
}

// InjectMove queues a pointer move with the button held down. Use it between
// InjectPress and InjectRelease to simulate a drag.
func (v *Viewport) InjectMove(x, y float64) {
	v.injectQueue = append(v.injectQueue, syntheticPointerEvent{x: x, y: y, pressed: true})
}

// InjectRelease queues a pointer release at the given screen coordinates.
func (v *Viewport) InjectRelease(x, y float64) {
	v.injectQueue = append(v.injectQueue, syntheticPointerEvent{x: x, y: y})
}

// InjectClick queues a press followed by a release at the same point.
// Consumes two frames.
func (v *Viewport) InjectClick(x, y float64) {
	v.InjectPress(x, y)
	v.InjectRelease(x, y)
}

// InjectDrag queues a press at (fromX, fromY), frames-2 linearly
// interpolated moves and a release at (toX, toY). The sequence consumes
// frames frames; the minimum is 2.
func (v *Viewport) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	v.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		v.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	v.InjectRelease(toX, toY)
}

// InjectWheel queues a DOM-style wheel event.
func (v *Viewport) InjectWheel(deltaY float64) {
	v.injectQueue = append(v.injectQueue, syntheticPointerEvent{kind: syntheticWheel, deltaY: deltaY})
}

// Injecting reports whether synthetic input was consumed this frame. Hosts
// skip real input polling while it is true.
func (v *Viewport) Injecting() bool { return v.injected }

// processInjectedInput pops one event from the inject queue and feeds it
// through the same pointer path as real input. Returns true if an event was
// consumed.
func (v *Viewport) processInjectedInput() bool {
	if len(v.injectQueue) == 0 {
		return false
	}
	evt := v.injectQueue[0]
	copy(v.injectQueue, v.injectQueue[1:])
	v.injectQueue = v.injectQueue[:len(v.injectQueue)-1]

	if evt.kind == syntheticWheel {
		v.Wheel(evt.deltaY)
		return true
	}

	p := Vec2{evt.x, evt.y}
	switch {
	case evt.pressed && !v.injectDown:
		v.injectDown = true
		v.PointerDown(p)
	case evt.pressed:
		v.PointerMove(p)
	case v.injectDown:
		v.injectDown = false
		v.PointerMove(p)
		v.PointerUp(p)
	default:
		v.PointerMove(p)
	}
	return true
}
