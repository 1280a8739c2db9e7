package imgview

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// --- Handler registry ---

type commandHandler struct {
	id uint32
	fn func(CommandEvent)
}

type handlerRegistry struct {
	byType [commandTypeCount][]commandHandler
	nextID uint32
}

// CallbackHandle allows removing a registered command callback.
type CallbackHandle struct {
	id  uint32
	reg *handlerRegistry
	typ CommandType
}

// Remove unregisters this callback so it no longer fires.
func (h CallbackHandle) Remove() {
	if h.reg == nil || h.typ >= commandTypeCount {
		return
	}
	s := h.reg.byType[h.typ]
	for i := range s {
		if s[i].id == h.id {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = commandHandler{}
			h.reg.byType[h.typ] = s[:len(s)-1]
			return
		}
	}
}

// On registers fn for commands of type t. Callbacks run synchronously on the
// viewport's goroutine, in registration order, before the CommandSink.
func (v *Viewport) On(t CommandType, fn func(CommandEvent)) CallbackHandle {
	if fn == nil || t >= commandTypeCount {
		return CallbackHandle{}
	}
	v.handlers.nextID++
	id := v.handlers.nextID
	v.handlers.byType[t] = append(v.handlers.byType[t], commandHandler{id: id, fn: fn})
	return CallbackHandle{id: id, reg: &v.handlers, typ: t}
}

func (v *Viewport) emit(e CommandEvent) {
	for _, h := range v.handlers.byType[e.Type] {
		h.fn(e)
	}
	if v.sink != nil {
		v.sink.EmitCommand(e)
	}
}

// --- Ebiten input polling ---

// KeyBindings maps keys to discrete viewport commands.
type KeyBindings struct {
	ZoomIn      []ebiten.Key
	ZoomOut     []ebiten.Key
	Reset       []ebiten.Key
	TogglePanel []ebiten.Key
	Reload      []ebiten.Key
}

// DefaultKeyBindings returns +/- for zoom, 0 or F to fit, P for the panel
// and R to reload.
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		ZoomIn:      []ebiten.Key{ebiten.KeyEqual, ebiten.KeyNumpadAdd},
		ZoomOut:     []ebiten.Key{ebiten.KeyMinus, ebiten.KeyNumpadSubtract},
		Reset:       []ebiten.Key{ebiten.Key0, ebiten.KeyNumpad0, ebiten.KeyF},
		TogglePanel: []ebiten.Key{ebiten.KeyP},
		Reload:      []ebiten.Key{ebiten.KeyR},
	}
}

// InputPoller reads mouse, touch, wheel and keyboard state from ebiten once
// per frame and forwards it to a Viewport. The first touch acts as the
// pointer on touch screens.
type InputPoller struct {
	Keys KeyBindings

	last     Vec2
	hasLast  bool
	touching bool
	touchID  ebiten.TouchID
	touchBuf []ebiten.TouchID
}

// NewInputPoller creates a poller with DefaultKeyBindings.
func NewInputPoller() *InputPoller {
	return &InputPoller{Keys: DefaultKeyBindings()}
}

// Poll forwards this frame's input to v. Call it from ebiten's Update.
func (ip *InputPoller) Poll(v *Viewport) {
	if ip.pollTouch(v) {
		return
	}
	ip.pollMouse(v)
	ip.pollKeys(v)
}

func (ip *InputPoller) pollMouse(v *Viewport) {
	mx, my := ebiten.CursorPosition()
	p := Vec2{float64(mx), float64(my)}
	w, h := v.model.CanvasSize()
	inside := p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) && inside {
		v.PointerDown(p)
	}
	if !ip.hasLast || p != ip.last {
		switch {
		case inside || v.gesture.Dragging():
			v.PointerMove(p)
		case ip.hasLast:
			v.PointerLeave()
		}
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		v.PointerUp(p)
	}
	ip.last, ip.hasLast = p, true

	if _, yoff := ebiten.Wheel(); yoff != 0 && inside {
		// ebiten reports lines, positive up; the gesture expects DOM-style
		// pixels, positive down.
		v.Wheel(-yoff * v.cfg.WheelPixelsPerLine)
	}
}

// pollTouch reports whether a touch is driving the pointer this frame.
func (ip *InputPoller) pollTouch(v *Viewport) bool {
	if !ip.touching {
		ip.touchBuf = inpututil.AppendJustPressedTouchIDs(ip.touchBuf[:0])
		if len(ip.touchBuf) == 0 {
			return false
		}
		ip.touching = true
		ip.touchID = ip.touchBuf[0]
		x, y := ebiten.TouchPosition(ip.touchID)
		v.PointerDown(Vec2{float64(x), float64(y)})
		return true
	}
	if inpututil.IsTouchJustReleased(ip.touchID) {
		ip.touching = false
		x, y := inpututil.TouchPositionInPreviousTick(ip.touchID)
		v.PointerUp(Vec2{float64(x), float64(y)})
		return true
	}
	x, y := ebiten.TouchPosition(ip.touchID)
	v.PointerMove(Vec2{float64(x), float64(y)})
	return true
}

func (ip *InputPoller) pollKeys(v *Viewport) {
	switch {
	case anyJustPressed(ip.Keys.ZoomIn):
		v.ZoomIn()
	case anyJustPressed(ip.Keys.ZoomOut):
		v.ZoomOut()
	case anyJustPressed(ip.Keys.Reset):
		v.ResetView()
	case anyJustPressed(ip.Keys.TogglePanel):
		v.TogglePanel()
	case anyJustPressed(ip.Keys.Reload):
		v.Reload()
	}
}

func anyJustPressed(keys []ebiten.Key) bool {
	for _, k := range keys {
		if inpututil.IsKeyJustPressed(k) {
			return true
		}
	}
	return false
}
