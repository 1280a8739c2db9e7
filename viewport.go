package imgview

import (
	"context"
	"image"
	"log/slog"
	"time"
)

const decodeQueueSize = 8

// Option configures a Viewport.
type Option func(*Viewport)

// WithLogger sets the logger. The default is slog.Default() tagged with
// component=imgview.
func WithLogger(l *slog.Logger) Option {
	return func(v *Viewport) {
		if l != nil {
			v.log = l
		}
	}
}

// WithLoader replaces the DefaultLoader.
func WithLoader(l Loader) Option {
	return func(v *Viewport) {
		if l != nil {
			v.loader = l
		}
	}
}

// WithBitmapFactory converts decoded images before they are displayed, for
// example into GPU textures with ebiten.NewImageFromImage. It runs on the
// goroutine that calls Tick. The default keeps the decoded image as is.
func WithBitmapFactory(f func(image.Image) Bitmap) Option {
	return func(v *Viewport) {
		if f != nil {
			v.newBitmap = f
		}
	}
}

// pressTarget records what a pointer press landed on. It decides how the
// rest of the gesture is interpreted.
type pressTarget uint8

const (
	pressNone    pressTarget = iota
	pressCanvas              // outside the image; drags pan, clicks do nothing
	pressImage               // over the image; drags pan, clicks activate
	pressButton              // over an overlay button; never pans
	pressDivider             // over the split divider; drags move it
)

// Viewport is the controller tying the transform model, gesture
// interpretation, panel animation, image decoding, overlays and rendering
// together. All methods must be called from a single goroutine, normally
// the ebiten Update/Draw goroutine.
type Viewport struct {
	cfg       Config
	log       *slog.Logger
	loader    Loader
	newBitmap func(image.Image) Bitmap

	model    *Model
	gesture  *Gesture
	panel    *PanelAnimator
	overlay  *Overlay
	renderer Renderer

	mode  RenderMode
	state State

	primary imageSlot
	compare imageSlot
	results chan decodeResult
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	closed  bool

	pendingFit   bool
	staleDecodes int

	panelWidth   float64
	generating   bool
	generatingID string

	pointer     Vec2
	hasPointer  bool
	hovering    bool
	press       pressTarget
	pressButton string

	handlers handlerRegistry
	sink     CommandSink

	injectQueue []syntheticPointerEvent
	injectDown  bool
	injected    bool
	testRunner  *TestRunner

	// ScreenshotDir is the directory where screenshot PNGs are written.
	ScreenshotDir   string
	screenshotQueue []string

	debug       bool
	needsRedraw bool
}

// NewViewport creates a viewport. cfg is used as given; validate
// user-supplied configs with Config.Validate first.
func NewViewport(cfg Config, opts ...Option) *Viewport {
	ctx, cancel := context.WithCancel(context.Background())
	model := NewModel(cfg)
	v := &Viewport{
		cfg:           cfg,
		log:           slog.Default().With("component", "imgview"),
		loader:        DefaultLoader{},
		newBitmap:     func(img image.Image) Bitmap { return img },
		model:         model,
		gesture:       NewGesture(model, cfg),
		panel:         NewPanelAnimator(cfg.PanelAnimation(), cfg.PanelSnapPx),
		overlay:       NewOverlay(cfg.Buttons),
		mode:          Single{},
		results:       make(chan decodeResult, decodeQueueSize),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
		ScreenshotDir: "screenshots",
		needsRedraw:   true,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.syncOverlay()
	return v
}

// Config returns the configuration the viewport was created with.
func (v *Viewport) Config() Config { return v.cfg }

// Model returns the transform model. Mutating it directly bypasses command
// emission.
func (v *Viewport) Model() *Model { return v.model }

// Overlay returns the overlay layout for the current frame.
func (v *Viewport) Overlay() *Overlay { return v.overlay }

// State returns the lifecycle state of the primary image.
func (v *Viewport) State() State { return v.state }

// Transform returns the current zoom and pan.
func (v *Viewport) Transform() Transform { return v.model.Transform() }

// ImageURL returns the requested primary URL.
func (v *Viewport) ImageURL() string { return v.primary.url }

// CompareURL returns the requested comparison URL.
func (v *Viewport) CompareURL() string { return v.compare.url }

// Mode returns the active render mode.
func (v *Viewport) Mode() RenderMode { return v.mode }

// Hovering reports whether the pointer is over the image.
func (v *Viewport) Hovering() bool { return v.hovering }

// PanelWidth returns the requested panel width (not the animated offset).
func (v *Viewport) PanelWidth() float64 { return v.panelWidth }

// StaleDecodes returns how many decode results were dropped because their
// URL was no longer requested.
func (v *Viewport) StaleDecodes() int { return v.staleDecodes }

// SetCommandSink sets the optional bridge that receives every command.
func (v *Viewport) SetCommandSink(sink CommandSink) { v.sink = sink }

// SetDebugMode enables per-frame debug stats at debug log level.
func (v *Viewport) SetDebugMode(enabled bool) { v.debug = enabled }

// --- Image inputs ---

// SetImageURL requests a new primary image. The previous bitmap stays
// visible until the new one decodes. An empty url clears the view.
// Requesting the URL already shown or loading is a no-op.
func (v *Viewport) SetImageURL(rawURL string) {
	if v.closed {
		return
	}
	if rawURL == "" {
		v.clearPrimary()
		return
	}
	if rawURL == v.primary.url && (v.primary.loading || v.primary.bitmap != nil) {
		return
	}
	v.requestPrimary(rawURL)
}

// Reload requests the current primary URL again.
func (v *Viewport) Reload() {
	if v.closed || v.primary.url == "" {
		return
	}
	v.requestPrimary(v.primary.url)
}

func (v *Viewport) requestPrimary(rawURL string) {
	v.log.Debug("image requested", "url", rawURL)
	v.primary.request(v.ctx, slotPrimary, v.loader, rawURL, v.results, v.done)
	v.state = StateLoading
	v.needsRedraw = true
}

func (v *Viewport) clearPrimary() {
	releaseBitmap(v.primary.clear())
	v.model.SetImageSize(0, 0)
	v.pendingFit = false
	v.state = StateEmpty
	v.needsRedraw = true
	v.syncOverlay()
	v.refreshHover()
}

// SetCompareURL requests the comparison image used by Split and SideBySide.
// An empty url clears it.
func (v *Viewport) SetCompareURL(rawURL string) {
	if v.closed {
		return
	}
	if rawURL == "" {
		releaseBitmap(v.compare.clear())
		v.needsRedraw = true
		v.syncOverlay()
		return
	}
	if rawURL == v.compare.url && (v.compare.loading || v.compare.bitmap != nil) {
		return
	}
	v.compare.request(v.ctx, slotCompare, v.loader, rawURL, v.results, v.done)
}

// drainDecodes applies every decode result that has arrived.
func (v *Viewport) drainDecodes() {
	for {
		select {
		case r := <-v.results:
			v.acceptDecode(r)
		default:
			return
		}
	}
}

// acceptDecode applies r if it still matches the slot's requested URL.
func (v *Viewport) acceptDecode(r decodeResult) {
	slot := &v.primary
	if r.slot == slotCompare {
		slot = &v.compare
	}
	if !slot.accept(r) {
		v.staleDecodes++
		v.log.Debug("stale decode dropped", "slot", r.slot, "url", r.url, "current", slot.url)
		return
	}
	slot.loading = false
	slot.cancelPending()

	if r.err != nil || r.img == nil {
		v.decodeFailed(r, slot)
		return
	}

	bm := v.newBitmap(r.img)
	old := slot.bitmap
	slot.bitmap = bm
	if old != nil && old != bm {
		releaseBitmap(old)
	}
	v.needsRedraw = true

	if r.slot == slotCompare {
		v.log.Debug("comparison image ready", "url", r.url)
		v.syncOverlay()
		return
	}

	b := r.img.Bounds()
	v.model.SetImageSize(float64(b.Dx()), float64(b.Dy()))
	v.state = StateReady
	if w, h := v.model.CanvasSize(); w > 0 && h > 0 {
		v.fit()
	} else {
		v.pendingFit = true
	}
	v.syncOverlay()
	v.refreshHover()
	v.log.Info("image ready", "url", r.url, "width", b.Dx(), "height", b.Dy(), "zoom", v.model.Zoom())
	v.emit(CommandEvent{Type: CommandImageReady, URL: r.url, Zoom: v.model.Zoom(), Pan: v.model.Pan()})
}

func (v *Viewport) decodeFailed(r decodeResult, slot *imageSlot) {
	err := r.err
	if err == nil {
		err = context.Canceled
	}
	if r.slot == slotCompare {
		v.log.Warn("comparison image failed", "url", r.url, "err", err)
		releaseBitmap(slot.clear())
		v.needsRedraw = true
		v.syncOverlay()
		return
	}
	v.log.Error("image failed", "url", r.url, "err", err)
	v.clearPrimary()
	v.emit(CommandEvent{Type: CommandImageFailed, URL: r.url, Err: err})
}

// Settle blocks until no decode is in flight, applying results as they
// arrive, then jumps the panel animation to its target. It is meant for
// headless rendering where no frame loop calls Tick.
func (v *Viewport) Settle(ctx context.Context) error {
	for v.primary.loading || v.compare.loading {
		select {
		case r := <-v.results:
			v.acceptDecode(r)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if v.panel.Animating() {
		v.panel.JumpTo(v.panel.Target())
		v.model.SetPanelOffset(v.panel.Offset())
		v.syncOverlay()
	}
	return nil
}

// --- View inputs ---

// SetPanelWidth reserves px on the left for a side panel. The screen center
// eases toward px/2; zoom and pan are untouched.
func (v *Viewport) SetPanelWidth(px float64) {
	if !isFinite(px) || px < 0 {
		return
	}
	v.panelWidth = px
	v.panel.AnimateTo(px / 2)
	v.needsRedraw = true
}

// TogglePanel switches between a closed panel and Config.PanelWidthPx.
func (v *Viewport) TogglePanel() {
	if v.panelWidth > 0 {
		v.SetPanelWidth(0)
		return
	}
	v.SetPanelWidth(v.cfg.PanelWidthPx)
}

// SetGenerating marks the image identified by imageID as being regenerated.
// While it is the displayed image, it is drawn blurred.
func (v *Viewport) SetGenerating(active bool, imageID string) {
	if active == v.generating && imageID == v.generatingID {
		return
	}
	v.generating = active
	v.generatingID = imageID
	v.needsRedraw = true
}

// SetMode selects the render mode. nil means Single. A Split with an
// out-of-range percent is clamped to [0, 1].
func (v *Viewport) SetMode(mode RenderMode) {
	switch m := mode.(type) {
	case nil:
		mode = Single{}
	case Split:
		if !isFinite(m.Percent) {
			m.Percent = v.cfg.DividerPercent
		}
		m.Percent = clamp(m.Percent, 0, 1)
		mode = m
	}
	v.mode = mode
	v.needsRedraw = true
	v.syncOverlay()
}

// SetCanvasSize updates the drawing surface size. A fit deferred because the
// canvas was unknown when the image decoded is applied here.
func (v *Viewport) SetCanvasSize(w, h float64) {
	v.model.SetCanvasSize(w, h)
	if v.pendingFit && w > 0 && h > 0 {
		v.pendingFit = false
		v.fit()
	}
	v.syncOverlay()
}

// --- Pointer input ---

// PointerDown handles a primary button press at screen position p.
func (v *Viewport) PointerDown(p Vec2) {
	if !p.finite() {
		return
	}
	v.pointer, v.hasPointer = p, true
	v.syncOverlay()

	if v.overlay.NearDivider(p, v.cfg.DividerGrabPx) {
		v.press = pressDivider
		return
	}
	if name, ok := v.overlay.ButtonAt(p); ok {
		v.press = pressButton
		v.pressButton = name
		return
	}
	if v.overlay.Contains(p) {
		v.press = pressImage
	} else {
		v.press = pressCanvas
	}
	v.gesture.PointerDown(p)
}

// PointerMove handles pointer movement with or without a pressed button.
// Hover is recomputed on every move, including during drags.
func (v *Viewport) PointerMove(p Vec2) {
	if !p.finite() {
		return
	}
	v.pointer, v.hasPointer = p, true

	switch v.press {
	case pressDivider:
		if w, _ := v.model.CanvasSize(); w > 0 {
			v.setDivider(p.X / w)
		}
	case pressImage, pressCanvas:
		if d := v.gesture.PointerMove(p); d != (Vec2{}) {
			v.needsRedraw = true
		}
	}
	v.syncOverlay()
	v.refreshHover()
}

// PointerUp handles a primary button release at p. A release that never
// exceeded the drag threshold is a click: over the image it emits
// CommandActivate, over the button it was pressed on it emits CommandButton.
func (v *Viewport) PointerUp(p Vec2) {
	if p.finite() {
		v.pointer, v.hasPointer = p, true
	}
	press := v.press
	v.press = pressNone

	switch press {
	case pressButton:
		v.syncOverlay()
		if name, ok := v.overlay.ButtonAt(v.pointer); ok && name == v.pressButton {
			v.emit(CommandEvent{Type: CommandButton, Button: name, Point: v.pointer})
		}
		v.pressButton = ""
	case pressImage, pressCanvas:
		clicked := v.gesture.PointerUp()
		if clicked && press == pressImage {
			v.emit(CommandEvent{Type: CommandActivate, Point: v.pointer, Zoom: v.model.Zoom(), Pan: v.model.Pan()})
		}
	}
}

// PointerLeave cancels any drag and clears hover, as when the pointer exits
// the window.
func (v *Viewport) PointerLeave() {
	v.hasPointer = false
	v.press = pressNone
	v.pressButton = ""
	v.gesture.Cancel()
	v.setHover(false)
}

// Wheel zooms from a DOM-style wheel deltaY. Positive values zoom out.
func (v *Viewport) Wheel(deltaY float64) {
	if v.gesture.Wheel(deltaY) {
		v.zoomChanged()
	}
}

// --- Discrete commands ---

// ZoomIn multiplies zoom by Config.ZoomStep.
func (v *Viewport) ZoomIn() {
	if v.gesture.ZoomIn() {
		v.zoomChanged()
	}
}

// ZoomOut divides zoom by Config.ZoomStep.
func (v *Viewport) ZoomOut() {
	if v.gesture.ZoomOut() {
		v.zoomChanged()
	}
}

// ResetView fits the image around the panel and zeroes pan.
func (v *Viewport) ResetView() {
	if !v.model.HasImage() {
		return
	}
	v.fit()
	v.syncOverlay()
	v.refreshHover()
	v.emit(CommandEvent{Type: CommandPanReset, Zoom: v.model.Zoom(), Pan: v.model.Pan()})
}

func (v *Viewport) fit() {
	v.model.Fit(v.panelWidth, v.cfg.FitPaddingPx)
	v.needsRedraw = true
}

func (v *Viewport) zoomChanged() {
	v.needsRedraw = true
	v.syncOverlay()
	v.refreshHover()
	v.emit(CommandEvent{Type: CommandZoomChange, Zoom: v.model.Zoom(), Pan: v.model.Pan(), Point: v.pointer})
}

func (v *Viewport) setDivider(percent float64) {
	s, ok := v.mode.(Split)
	if !ok || !isFinite(percent) {
		return
	}
	percent = clamp(percent, 0, 1)
	if percent == s.Percent {
		return
	}
	v.mode = Split{Percent: percent}
	v.needsRedraw = true
	v.syncOverlay()
	v.emit(CommandEvent{Type: CommandDividerChange, DividerPercent: percent, Point: v.pointer})
}

// syncOverlay recomputes the shared geometry from the current model state.
func (v *Viewport) syncOverlay() {
	v.overlay.Update(ComputeGeometry(v.model, v.mode, v.compare.bitmap))
}

func (v *Viewport) refreshHover() {
	if !v.hasPointer {
		return
	}
	v.setHover(v.overlay.Contains(v.pointer))
}

func (v *Viewport) setHover(h bool) {
	if h == v.hovering {
		return
	}
	v.hovering = h
	v.needsRedraw = true
	v.emit(CommandEvent{Type: CommandHoverChange, Hovering: h, Point: v.pointer})
}

// --- Frame loop ---

// Tick advances the viewport by one frame: decoded images are applied, the
// test runner and injected input are processed, and the panel animation
// advances by dt.
func (v *Viewport) Tick(dt time.Duration) {
	if v.closed {
		return
	}
	v.drainDecodes()
	if v.testRunner != nil {
		v.testRunner.step(v)
	}
	v.injected = v.processInjectedInput()

	if v.panel.Advance(dt) {
		v.model.SetPanelOffset(v.panel.Offset())
		v.syncOverlay()
	}
}

// NeedsRedraw reports whether anything visible changed since the last Draw.
func (v *Viewport) NeedsRedraw() bool {
	return v.needsRedraw || v.model.Dirty()
}

// Draw paints the current frame onto s. A nil surface is a no-op.
func (v *Viewport) Draw(s Surface) {
	if s == nil {
		return
	}
	frame := v.frame()
	if !v.renderer.Redraw(s, &frame) {
		return
	}
	v.model.ClearDirty()
	v.needsRedraw = false
	v.syncOverlay()
	if v.debug {
		v.debugLog(v.collectStats())
	}
}

func (v *Viewport) frame() Frame {
	return Frame{
		Model:        v.model,
		Mode:         v.mode,
		Background:   v.cfg.BackgroundColor(),
		Primary:      v.primary.bitmap,
		PrimaryURL:   v.primary.url,
		Compare:      v.compare.bitmap,
		Generating:   v.generating,
		GeneratingID: v.generatingID,
		BlurRadius:   v.cfg.BlurRadius,
	}
}

// Snapshot renders the current frame at canvas size into a new image on the
// CPU. Only image.Image bitmaps are drawn, so use it with the default bitmap
// factory.
func (v *Viewport) Snapshot() *image.RGBA {
	w, h := v.model.CanvasSize()
	s := NewSoftwareSurface(int(w), int(h))
	frame := v.frame()
	v.renderer.Redraw(s, &frame)
	return s.Image()
}

// Close cancels pending decodes, stops the panel animation and releases
// the bitmaps. The viewport ignores image requests afterwards.
func (v *Viewport) Close() {
	if v.closed {
		return
	}
	v.closed = true
	v.primary.cancelPending()
	v.compare.cancelPending()
	v.cancel()
	close(v.done)
	v.panel.Stop()
	releaseBitmap(v.primary.clear())
	releaseBitmap(v.compare.clear())
}
