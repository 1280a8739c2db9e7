package imgview

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// commandRecorder is a CommandSink that keeps every event.
type commandRecorder struct {
	events []CommandEvent
}

func (r *commandRecorder) EmitCommand(e CommandEvent) { r.events = append(r.events, e) }

func (r *commandRecorder) ofType(t CommandType) []CommandEvent {
	var out []CommandEvent
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// gatedLoader blocks each URL until it is released, so tests control the
// order in which decodes complete.
type gatedLoader struct {
	mu       sync.Mutex
	gates    map[string]chan struct{}
	released map[string]bool
	sizes    map[string]image.Point
	errs     map[string]error
	calls    atomic.Int32
}

func newGatedLoader(t *testing.T) *gatedLoader {
	l := &gatedLoader{
		gates:    make(map[string]chan struct{}),
		released: make(map[string]bool),
		sizes:    make(map[string]image.Point),
		errs:     make(map[string]error),
	}
	t.Cleanup(l.releaseAll)
	return l
}

func (l *gatedLoader) gate(url string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.gates[url]
	if !ok {
		g = make(chan struct{})
		l.gates[url] = g
	}
	return g
}

func (l *gatedLoader) release(url string) {
	g := l.gate(url)
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.released[url] {
		l.released[url] = true
		close(g)
	}
}

func (l *gatedLoader) releaseAll() {
	l.mu.Lock()
	urls := make([]string, 0, len(l.gates))
	for u := range l.gates {
		urls = append(urls, u)
	}
	l.mu.Unlock()
	for _, u := range urls {
		l.release(u)
	}
}

func (l *gatedLoader) setSize(url string, w, h int) {
	l.mu.Lock()
	l.sizes[url] = image.Pt(w, h)
	l.mu.Unlock()
}

func (l *gatedLoader) fail(url string, err error) {
	l.mu.Lock()
	l.errs[url] = err
	l.mu.Unlock()
}

func (l *gatedLoader) Load(_ context.Context, url string) (image.Image, error) {
	l.calls.Add(1)
	<-l.gate(url)
	l.mu.Lock()
	size, ok := l.sizes[url]
	err := l.errs[url]
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		size = image.Pt(2000, 1000)
	}
	return image.NewRGBA(image.Rect(0, 0, size.X, size.Y)), nil
}

func settle(t *testing.T, v *Viewport) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := v.Settle(ctx); err != nil {
		t.Fatalf("Settle: %v", err)
	}
}

// newTestViewport returns a viewport on a 1200x800 canvas whose loader is
// released per URL by the test.
func newTestViewport(t *testing.T) (*Viewport, *gatedLoader, *commandRecorder) {
	t.Helper()
	l := newGatedLoader(t)
	v := NewViewport(DefaultConfig(), WithLogger(discardLogger()), WithLoader(l))
	t.Cleanup(v.Close)
	v.SetCanvasSize(1200, 800)
	rec := &commandRecorder{}
	v.SetCommandSink(rec)
	return v, l, rec
}

// newReadyViewport shows a decoded 2000x1000 image fitted at zoom 0.45,
// covering (150, 175)-(1050, 625).
func newReadyViewport(t *testing.T) (*Viewport, *gatedLoader, *commandRecorder) {
	t.Helper()
	v, l, rec := newTestViewport(t)
	l.release("a.png")
	v.SetImageURL("a.png")
	settle(t, v)
	if v.State() != StateReady {
		t.Fatalf("State = %v, want ready", v.State())
	}
	return v, l, rec
}

func TestViewportImageReady(t *testing.T) {
	v, _, rec := newReadyViewport(t)
	assertNear(t, "Zoom", v.Transform().Zoom, 0.45)
	assertRect(t, "ImageRect", v.Overlay().ImageRect(), Rect{X: 150, Y: 175, Width: 900, Height: 450})

	ready := rec.ofType(CommandImageReady)
	if len(ready) != 1 {
		t.Fatalf("ImageReady events = %d, want 1", len(ready))
	}
	if ready[0].URL != "a.png" {
		t.Errorf("URL = %q, want a.png", ready[0].URL)
	}
	assertNear(t, "event zoom", ready[0].Zoom, 0.45)
}

func TestViewportStartsEmpty(t *testing.T) {
	v := NewViewport(DefaultConfig(), WithLogger(discardLogger()))
	defer v.Close()
	if v.State() != StateEmpty {
		t.Errorf("State = %v, want empty", v.State())
	}
	if v.PanelWidth() != 0 {
		t.Errorf("PanelWidth = %v, want 0", v.PanelWidth())
	}
	if _, ok := v.Mode().(Single); !ok {
		t.Errorf("Mode = %v, want single", v.Mode())
	}
	if v.ScreenshotDir != "screenshots" {
		t.Errorf("ScreenshotDir = %q", v.ScreenshotDir)
	}
}

func TestViewportTickAppliesDecodes(t *testing.T) {
	v, l, _ := newTestViewport(t)
	l.release("a.png")
	v.SetImageURL("a.png")
	if v.State() != StateLoading {
		t.Fatalf("State = %v, want loading", v.State())
	}
	deadline := time.Now().Add(5 * time.Second)
	for v.State() == StateLoading {
		if time.Now().After(deadline) {
			t.Fatal("image never became ready")
		}
		v.Tick(frameStep)
		time.Sleep(time.Millisecond)
	}
	if v.State() != StateReady {
		t.Errorf("State = %v, want ready", v.State())
	}
}

func TestViewportActivateOnlyOverImage(t *testing.T) {
	v, _, rec := newReadyViewport(t)

	v.PointerDown(Vec2{600, 400})
	v.PointerUp(Vec2{600, 400})
	act := rec.ofType(CommandActivate)
	if len(act) != 1 {
		t.Fatalf("Activate events = %d, want 1", len(act))
	}
	assertVec(t, "Point", act[0].Point, Vec2{600, 400})
	assertNear(t, "Zoom", act[0].Zoom, 0.45)

	// Outside the image.
	v.PointerDown(Vec2{50, 50})
	v.PointerUp(Vec2{50, 50})
	if n := len(rec.ofType(CommandActivate)); n != 1 {
		t.Errorf("Activate events after outside click = %d, want 1", n)
	}

	// A small wobble is still a click.
	v.PointerDown(Vec2{600, 400})
	v.PointerMove(Vec2{601, 401})
	v.PointerUp(Vec2{601, 401})
	if n := len(rec.ofType(CommandActivate)); n != 2 {
		t.Errorf("Activate events after wobble click = %d, want 2", n)
	}
}

func TestViewportDragPansWithoutActivate(t *testing.T) {
	v, _, rec := newReadyViewport(t)
	v.PointerDown(Vec2{600, 400})
	v.PointerMove(Vec2{610, 395})
	v.PointerMove(Vec2{620, 390})
	v.PointerUp(Vec2{620, 390})

	if n := len(rec.ofType(CommandActivate)); n != 0 {
		t.Errorf("Activate events = %d, want 0", n)
	}
	assertVec(t, "Pan", v.Transform().Pan, Vec2{20, -10})
	assertNear(t, "Zoom", v.Transform().Zoom, 0.45)
}

func TestViewportDragFromCanvasPans(t *testing.T) {
	v, _, rec := newReadyViewport(t)
	v.PointerDown(Vec2{50, 50})
	v.PointerMove(Vec2{80, 50})
	v.PointerUp(Vec2{80, 50})
	assertVec(t, "Pan", v.Transform().Pan, Vec2{30, 0})
	if n := len(rec.ofType(CommandActivate)); n != 0 {
		t.Errorf("Activate events = %d, want 0", n)
	}
}

func TestViewportButtonClick(t *testing.T) {
	v, _, rec := newReadyViewport(t)
	// share sits at (1006, 187)-(1038, 219).
	v.PointerDown(Vec2{1020, 200})
	v.PointerMove(Vec2{1030, 210})
	v.PointerUp(Vec2{1030, 210})

	btn := rec.ofType(CommandButton)
	if len(btn) != 1 {
		t.Fatalf("Button events = %d, want 1", len(btn))
	}
	if btn[0].Button != "share" {
		t.Errorf("Button = %q, want share", btn[0].Button)
	}
	if n := len(rec.ofType(CommandActivate)); n != 0 {
		t.Errorf("Activate events = %d, want 0", n)
	}
	assertVec(t, "Pan", v.Transform().Pan, Vec2{})
}

func TestViewportButtonReleasedElsewhere(t *testing.T) {
	v, _, rec := newReadyViewport(t)
	v.PointerDown(Vec2{1020, 200})
	v.PointerMove(Vec2{600, 400})
	v.PointerUp(Vec2{600, 400})

	if n := len(rec.ofType(CommandButton)); n != 0 {
		t.Errorf("Button events = %d, want 0", n)
	}
	if n := len(rec.ofType(CommandActivate)); n != 0 {
		t.Errorf("Activate events = %d, want 0", n)
	}
	assertVec(t, "Pan", v.Transform().Pan, Vec2{})
}

func TestViewportHover(t *testing.T) {
	v, _, rec := newReadyViewport(t)

	v.PointerMove(Vec2{600, 400})
	v.PointerMove(Vec2{610, 400})
	v.PointerMove(Vec2{50, 50})
	hover := rec.ofType(CommandHoverChange)
	if len(hover) != 2 {
		t.Fatalf("HoverChange events = %d, want 2", len(hover))
	}
	if !hover[0].Hovering || hover[1].Hovering {
		t.Errorf("hover sequence = %v, %v; want true, false", hover[0].Hovering, hover[1].Hovering)
	}
}

func TestViewportHoverFollowsZoom(t *testing.T) {
	v, _, rec := newReadyViewport(t)
	v.PointerMove(Vec2{160, 400})
	if !v.Hovering() {
		t.Fatal("Hovering = false near the left edge of the image")
	}
	// Zooming out to 0.36 moves the left edge to x = 240.
	v.Wheel(100)
	if v.Hovering() {
		t.Error("Hovering = true after the image shrank away from the pointer")
	}
	hover := rec.ofType(CommandHoverChange)
	if len(hover) != 2 || hover[1].Hovering {
		t.Errorf("HoverChange events = %+v", hover)
	}
}

func TestViewportPointerLeave(t *testing.T) {
	v, _, rec := newReadyViewport(t)
	v.PointerMove(Vec2{600, 400})
	v.PointerDown(Vec2{600, 400})
	v.PointerLeave()
	if v.Hovering() {
		t.Error("Hovering = true after PointerLeave")
	}
	v.PointerUp(Vec2{600, 400})
	if n := len(rec.ofType(CommandActivate)); n != 0 {
		t.Errorf("Activate events = %d, want 0 after leaving", n)
	}
}

func TestViewportZoomCommands(t *testing.T) {
	v, _, rec := newReadyViewport(t)
	v.ZoomIn()
	assertNear(t, "Zoom after ZoomIn", v.Transform().Zoom, 0.54)
	v.ZoomOut()
	assertNear(t, "Zoom after ZoomOut", v.Transform().Zoom, 0.45)
	v.Wheel(-100)
	assertNear(t, "Zoom after wheel", v.Transform().Zoom, 0.54)

	zc := rec.ofType(CommandZoomChange)
	if len(zc) != 3 {
		t.Fatalf("ZoomChange events = %d, want 3", len(zc))
	}
	assertNear(t, "event zoom", zc[2].Zoom, 0.54)

	// Clamped at the bound: no change, no event.
	for i := 0; i < 50; i++ {
		v.ZoomOut()
	}
	n := len(rec.ofType(CommandZoomChange))
	v.ZoomOut()
	if len(rec.ofType(CommandZoomChange)) != n {
		t.Error("ZoomOut at the minimum emitted ZoomChange")
	}
	assertNear(t, "Zoom floor", v.Transform().Zoom, 0.25)
}

func TestViewportPanelKeepsTransform(t *testing.T) {
	v, _, _ := newReadyViewport(t)
	v.PointerDown(Vec2{600, 400})
	v.PointerMove(Vec2{640, 400})
	v.PointerUp(Vec2{640, 400})
	before := v.Transform()

	v.SetPanelWidth(396)
	for i := 0; i < 20; i++ {
		v.Tick(frameStep)
	}
	assertNear(t, "PanelOffset", v.Model().PanelOffset(), 198)
	if v.Transform() != before {
		t.Errorf("Transform = %+v, want %+v", v.Transform(), before)
	}
	// The image moved right with the screen center.
	assertNear(t, "image x", v.Overlay().ImageRect().X, 150+40+198)
}

func TestViewportResetView(t *testing.T) {
	v, _, rec := newReadyViewport(t)
	v.SetPanelWidth(396)
	for i := 0; i < 20; i++ {
		v.Tick(frameStep)
	}
	v.ZoomIn()
	v.PointerDown(Vec2{600, 400})
	v.PointerMove(Vec2{700, 450})
	v.PointerUp(Vec2{700, 450})

	v.ResetView()
	assertNear(t, "Zoom", v.Transform().Zoom, 0.252)
	assertVec(t, "Pan", v.Transform().Pan, Vec2{})
	reset := rec.ofType(CommandPanReset)
	if len(reset) != 1 {
		t.Fatalf("PanReset events = %d, want 1", len(reset))
	}
	assertNear(t, "event zoom", reset[0].Zoom, 0.252)
}

func TestViewportResetViewWithoutImage(t *testing.T) {
	v, _, rec := newTestViewport(t)
	v.ResetView()
	if len(rec.events) != 0 {
		t.Errorf("events = %+v, want none", rec.events)
	}
}

func TestViewportTogglePanel(t *testing.T) {
	v, _, _ := newTestViewport(t)
	v.TogglePanel()
	if v.PanelWidth() != 396 {
		t.Errorf("PanelWidth = %v, want 396", v.PanelWidth())
	}
	v.TogglePanel()
	if v.PanelWidth() != 0 {
		t.Errorf("PanelWidth = %v, want 0", v.PanelWidth())
	}
	v.SetPanelWidth(-5)
	v.SetPanelWidth(math.NaN())
	if v.PanelWidth() != 0 {
		t.Errorf("PanelWidth = %v after invalid input, want 0", v.PanelWidth())
	}
}

func TestViewportStaleDecodeSupersededFinishesLast(t *testing.T) {
	v, l, rec := newTestViewport(t)
	l.setSize("b.png", 800, 600)

	v.SetImageURL("a.png")
	v.SetImageURL("b.png")
	l.release("b.png")
	settle(t, v)

	l.release("a.png")
	r := <-v.results
	v.acceptDecode(r)

	if v.ImageURL() != "b.png" {
		t.Errorf("ImageURL = %q, want b.png", v.ImageURL())
	}
	if w, h := v.Model().ImageSize(); w != 800 || h != 600 {
		t.Errorf("ImageSize = %vx%v, want 800x600", w, h)
	}
	if v.StaleDecodes() != 1 {
		t.Errorf("StaleDecodes = %d, want 1", v.StaleDecodes())
	}
	if n := len(rec.ofType(CommandImageReady)); n != 1 {
		t.Errorf("ImageReady events = %d, want 1", n)
	}
}

func TestViewportStaleDecodeSupersededFinishesFirst(t *testing.T) {
	v, l, _ := newTestViewport(t)
	l.setSize("b.png", 800, 600)

	v.SetImageURL("a.png")
	v.SetImageURL("b.png")
	l.release("a.png")
	v.acceptDecode(<-v.results)
	if v.State() != StateLoading {
		t.Errorf("State = %v, want loading while b.png decodes", v.State())
	}
	if v.Model().HasImage() {
		t.Error("stale result set the image size")
	}

	l.release("b.png")
	settle(t, v)
	if w, _ := v.Model().ImageSize(); w != 800 {
		t.Errorf("image width = %v, want 800", w)
	}
	if v.StaleDecodes() != 1 {
		t.Errorf("StaleDecodes = %d, want 1", v.StaleDecodes())
	}
}

func TestViewportStaleFailureIgnored(t *testing.T) {
	v, l, rec := newReadyViewport(t)
	l.fail("x.png", errors.New("boom"))
	v.SetImageURL("x.png")
	v.SetImageURL("a2.png")
	l.release("x.png")
	v.acceptDecode(<-v.results)
	if n := len(rec.ofType(CommandImageFailed)); n != 0 {
		t.Errorf("ImageFailed events = %d, want 0 for a superseded request", n)
	}
	if v.State() != StateLoading {
		t.Errorf("State = %v, want loading", v.State())
	}
}

func TestViewportKeepsPreviousImageWhileLoading(t *testing.T) {
	v, l, _ := newReadyViewport(t)
	l.setSize("b.png", 800, 600)
	v.SetImageURL("b.png")
	if v.State() != StateLoading {
		t.Fatalf("State = %v, want loading", v.State())
	}
	if v.primary.bitmap == nil {
		t.Error("previous bitmap dropped while loading")
	}
	if v.Overlay().ImageRect().Empty() {
		t.Error("ImageRect empty while the previous image is shown")
	}
	l.release("b.png")
	settle(t, v)
	if w, _ := v.Model().ImageSize(); w != 800 {
		t.Errorf("image width = %v, want 800", w)
	}
}

func TestViewportSameURLIsNoop(t *testing.T) {
	v, l, _ := newReadyViewport(t)
	calls := l.calls.Load()
	v.SetImageURL("a.png")
	if v.State() != StateReady {
		t.Errorf("State = %v, want ready", v.State())
	}
	if got := l.calls.Load(); got != calls {
		t.Errorf("loader calls = %d, want %d", got, calls)
	}

	v.Reload()
	if v.State() != StateLoading {
		t.Errorf("State after Reload = %v, want loading", v.State())
	}
	settle(t, v)
	if got := l.calls.Load(); got != calls+1 {
		t.Errorf("loader calls after Reload = %d, want %d", got, calls+1)
	}
}

func TestViewportDecodeFailure(t *testing.T) {
	v, l, rec := newTestViewport(t)
	boom := errors.New("boom")
	l.fail("bad.png", boom)
	l.release("bad.png")
	v.SetImageURL("bad.png")
	settle(t, v)

	if v.State() != StateEmpty {
		t.Errorf("State = %v, want empty", v.State())
	}
	failed := rec.ofType(CommandImageFailed)
	if len(failed) != 1 {
		t.Fatalf("ImageFailed events = %d, want 1", len(failed))
	}
	if failed[0].URL != "bad.png" || !errors.Is(failed[0].Err, boom) {
		t.Errorf("event = %+v", failed[0])
	}
	if v.Model().HasImage() {
		t.Error("HasImage = true after failure")
	}
}

func TestViewportUnsupportedScheme(t *testing.T) {
	v := NewViewport(DefaultConfig(), WithLogger(discardLogger()))
	defer v.Close()
	rec := &commandRecorder{}
	v.SetCommandSink(rec)
	v.SetImageURL("ftp://example.com/a.png")
	settle(t, v)
	failed := rec.ofType(CommandImageFailed)
	if len(failed) != 1 || !errors.Is(failed[0].Err, ErrUnsupportedScheme) {
		t.Errorf("ImageFailed events = %+v", failed)
	}
}

func TestViewportClearImage(t *testing.T) {
	v, _, _ := newReadyViewport(t)
	v.PointerMove(Vec2{600, 400})
	v.SetImageURL("")
	if v.State() != StateEmpty {
		t.Errorf("State = %v, want empty", v.State())
	}
	if v.ImageURL() != "" {
		t.Errorf("ImageURL = %q, want empty", v.ImageURL())
	}
	if v.Hovering() {
		t.Error("Hovering = true with no image")
	}
	if len(v.Overlay().ButtonRects()) != 0 {
		t.Error("buttons laid out with no image")
	}
}

func TestViewportDeferredFit(t *testing.T) {
	l := newGatedLoader(t)
	v := NewViewport(DefaultConfig(), WithLogger(discardLogger()), WithLoader(l))
	defer v.Close()
	l.release("a.png")
	v.SetImageURL("a.png")
	settle(t, v)
	assertNear(t, "Zoom before canvas", v.Transform().Zoom, 1)

	v.SetCanvasSize(1200, 800)
	assertNear(t, "Zoom after canvas", v.Transform().Zoom, 0.45)

	v.SetCanvasSize(2400, 1600)
	assertNear(t, "Zoom after resize", v.Transform().Zoom, 0.45)
}

func TestViewportSettleCancelled(t *testing.T) {
	v, _, _ := newTestViewport(t)
	v.SetImageURL("never.png")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := v.Settle(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Settle = %v, want context.Canceled", err)
	}
}

func TestViewportSplitDivider(t *testing.T) {
	v, l, rec := newReadyViewport(t)
	l.release("b.png")
	v.SetCompareURL("b.png")
	v.SetMode(Split{Percent: 0.5})
	settle(t, v)

	x, ok := v.Overlay().DividerX()
	if !ok {
		t.Fatal("no divider after the comparison image loaded")
	}
	assertNear(t, "DividerX", x, 600)

	v.PointerDown(Vec2{605, 400})
	v.PointerMove(Vec2{900, 400})
	v.PointerMove(Vec2{-50, 400})
	v.PointerMove(Vec2{5000, 400})
	v.PointerUp(Vec2{5000, 400})

	got := rec.ofType(CommandDividerChange)
	want := []float64{0.75, 0, 1}
	if len(got) != len(want) {
		t.Fatalf("DividerChange events = %d, want %d", len(got), len(want))
	}
	for i := range want {
		assertNear(t, "DividerPercent", got[i].DividerPercent, want[i])
	}
	if s, ok := v.Mode().(Split); !ok || s.Percent != 1 {
		t.Errorf("Mode = %v, want split at 1", v.Mode())
	}
	assertVec(t, "Pan", v.Transform().Pan, Vec2{})
	if n := len(rec.ofType(CommandActivate)); n != 0 {
		t.Errorf("Activate events = %d, want 0", n)
	}
}

func TestViewportSplitWithoutCompare(t *testing.T) {
	v, _, rec := newReadyViewport(t)
	v.SetMode(Split{Percent: 0.5})
	if _, ok := v.Overlay().DividerX(); ok {
		t.Error("divider shown without a comparison image")
	}
	v.PointerDown(Vec2{600, 400})
	v.PointerUp(Vec2{600, 400})
	if n := len(rec.ofType(CommandActivate)); n != 1 {
		t.Errorf("Activate events = %d, want 1", n)
	}
}

func TestViewportCompareFailure(t *testing.T) {
	v, l, rec := newReadyViewport(t)
	l.fail("c.png", errors.New("gone"))
	l.release("c.png")
	v.SetCompareURL("c.png")
	settle(t, v)
	if v.CompareURL() != "" {
		t.Errorf("CompareURL = %q, want empty", v.CompareURL())
	}
	if v.State() != StateReady {
		t.Errorf("State = %v, want ready", v.State())
	}
	if n := len(rec.ofType(CommandImageFailed)); n != 0 {
		t.Errorf("ImageFailed events = %d, want 0", n)
	}
}

func TestViewportSetMode(t *testing.T) {
	v, _, _ := newTestViewport(t)
	tests := []struct {
		in   RenderMode
		want RenderMode
	}{
		{nil, Single{}},
		{Split{Percent: math.NaN()}, Split{Percent: 0.5}},
		{Split{Percent: 2}, Split{Percent: 1}},
		{Split{Percent: -1}, Split{Percent: 0}},
		{SideBySide{}, SideBySide{}},
	}
	for _, tt := range tests {
		v.SetMode(tt.in)
		if v.Mode() != tt.want {
			t.Errorf("SetMode(%v): Mode = %v, want %v", tt.in, v.Mode(), tt.want)
		}
	}
}

func TestViewportDraw(t *testing.T) {
	v, _, _ := newReadyViewport(t)
	v.Draw(nil)
	if !v.NeedsRedraw() {
		t.Fatal("Draw(nil) cleared NeedsRedraw")
	}
	v.Draw(NewSoftwareSurface(1200, 800))
	if v.NeedsRedraw() {
		t.Error("NeedsRedraw = true right after Draw")
	}

	v.ZoomIn()
	if !v.NeedsRedraw() {
		t.Error("NeedsRedraw = false after ZoomIn")
	}
	v.Draw(NewSoftwareSurface(1200, 800))
	v.SetGenerating(true, "a.png")
	if !v.NeedsRedraw() {
		t.Error("NeedsRedraw = false after SetGenerating")
	}
}

func TestViewportSnapshot(t *testing.T) {
	loader := LoaderFunc(func(context.Context, string) (image.Image, error) {
		return uniformImage(200, 100, red), nil
	})
	cfg := DefaultConfig()
	cfg.Background = "#102030"
	cfg.MinOnScreenPx = 10
	cfg.FitPaddingPx = 10
	v := NewViewport(cfg, WithLogger(discardLogger()), WithLoader(loader))
	defer v.Close()
	v.SetCanvasSize(120, 80)
	v.SetImageURL("red.png")
	settle(t, v)
	// Zoom 0.5 puts the image at (10, 15)-(110, 65).
	assertNear(t, "Zoom", v.Transform().Zoom, 0.5)

	img := v.Snapshot()
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 80 {
		t.Fatalf("Snapshot size = %v, want 120x80", b)
	}
	assertPixel(t, img, 60, 40, red)
	assertPixel(t, img, 1, 1, color.RGBA{0x10, 0x20, 0x30, 0xff})
}

func TestViewportClose(t *testing.T) {
	v, l, _ := newReadyViewport(t)
	calls := l.calls.Load()
	v.SetImageURL("pending.png")
	v.Close()
	v.Close()

	v.SetImageURL("after.png")
	v.SetCompareURL("after.png")
	v.Tick(frameStep)
	if v.ImageURL() == "after.png" || v.CompareURL() == "after.png" {
		t.Error("request accepted after Close")
	}
	// The loader may still be entered for pending.png; it must not be
	// entered again.
	time.Sleep(10 * time.Millisecond)
	if got := l.calls.Load(); got > calls+1 {
		t.Errorf("loader calls = %d after Close, want at most %d", got, calls+1)
	}
}

// cancelLoader blocks until its context is cancelled or release is closed,
// like a network fetch that aborts when superseded.
type cancelLoader struct {
	release chan struct{}
}

func (l *cancelLoader) Load(ctx context.Context, _ string) (image.Image, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.release:
	}
	return image.NewRGBA(image.Rect(0, 0, 2000, 1000)), nil
}

func newCancelViewport(t *testing.T) (*Viewport, *cancelLoader, *commandRecorder) {
	t.Helper()
	l := &cancelLoader{release: make(chan struct{})}
	v := NewViewport(DefaultConfig(), WithLogger(discardLogger()), WithLoader(l))
	t.Cleanup(v.Close)
	v.SetCanvasSize(1200, 800)
	rec := &commandRecorder{}
	v.SetCommandSink(rec)
	return v, l, rec
}

func TestViewportReloadWhileLoading(t *testing.T) {
	v, l, rec := newCancelViewport(t)

	v.SetImageURL("a.png")
	v.Reload()

	// The first request was cancelled and answers with context.Canceled
	// under the same URL.
	r := <-v.results
	if !errors.Is(r.err, context.Canceled) {
		t.Fatalf("first result err = %v, want context.Canceled", r.err)
	}
	v.acceptDecode(r)
	if v.State() != StateLoading {
		t.Errorf("State = %v, want loading after the cancelled result", v.State())
	}
	if v.ImageURL() != "a.png" {
		t.Errorf("ImageURL = %q, want a.png", v.ImageURL())
	}

	close(l.release)
	settle(t, v)
	if v.State() != StateReady {
		t.Fatalf("State = %v, want ready", v.State())
	}
	if n := len(rec.ofType(CommandImageFailed)); n != 0 {
		t.Errorf("ImageFailed events = %d, want 0", n)
	}
	if n := len(rec.ofType(CommandImageReady)); n != 1 {
		t.Errorf("ImageReady events = %d, want 1", n)
	}
	if v.StaleDecodes() != 1 {
		t.Errorf("StaleDecodes = %d, want 1", v.StaleDecodes())
	}
}

func TestViewportReloadWhenReady(t *testing.T) {
	v, l, rec := newReadyViewport(t)
	v.Reload()
	if v.State() != StateLoading {
		t.Fatalf("State = %v, want loading", v.State())
	}
	if !v.Model().HasImage() {
		t.Error("Reload dropped the displayed image")
	}
	l.release("a.png")
	settle(t, v)
	if v.State() != StateReady {
		t.Errorf("State = %v, want ready", v.State())
	}
	if n := len(rec.ofType(CommandImageReady)); n != 2 {
		t.Errorf("ImageReady events = %d, want 2", n)
	}
}

func TestViewportReloadWithoutImage(t *testing.T) {
	v, l, _ := newTestViewport(t)
	v.Reload()
	if v.State() != StateEmpty {
		t.Errorf("State = %v, want empty", v.State())
	}
	if n := l.calls.Load(); n != 0 {
		t.Errorf("loader calls = %d, want 0", n)
	}
}

func TestViewportSwitchBackWhileLoading(t *testing.T) {
	v, l, rec := newCancelViewport(t)

	v.SetImageURL("a.png")
	v.SetImageURL("b.png")
	v.SetImageURL("a.png")

	// Both superseded requests answer with context.Canceled.
	for i := 0; i < 2; i++ {
		v.acceptDecode(<-v.results)
	}
	if v.State() != StateLoading || v.ImageURL() != "a.png" {
		t.Fatalf("State = %v, ImageURL = %q; want loading a.png", v.State(), v.ImageURL())
	}

	close(l.release)
	settle(t, v)
	if v.State() != StateReady {
		t.Fatalf("State = %v, want ready", v.State())
	}
	if v.ImageURL() != "a.png" {
		t.Errorf("ImageURL = %q, want a.png", v.ImageURL())
	}
	if n := len(rec.ofType(CommandImageFailed)); n != 0 {
		t.Errorf("ImageFailed events = %d, want 0", n)
	}
	if v.StaleDecodes() != 2 {
		t.Errorf("StaleDecodes = %d, want 2", v.StaleDecodes())
	}
}
