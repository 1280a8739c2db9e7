package imgview

// Geometry is the screen placement of the painted images for one frame. The
// renderer, hit testing and overlays all read the same Geometry, so overlays
// can never drift from the pixels on screen.
type Geometry struct {
	Canvas Rect

	Primary     Rect // empty when no image is loaded
	PrimaryClip Rect

	HasCompare  bool
	Compare     Rect
	CompareClip Rect

	HasDivider bool
	DividerX   float64

	// Center is where the primary image is centered, including pan.
	Center Vec2
}

// OverlayButton is the screen rect of one hover action button.
type OverlayButton struct {
	Name string
	Rect Rect
}

type buttonAnchor struct {
	name   string
	corner Corner
	dx, dy float64
	size   float64
}

// Overlay positions floating controls relative to the rendered image. It is
// updated from the latest Geometry after every model change and is pure
// layout: the host decides how buttons, spinner and divider look.
type Overlay struct {
	anchors []buttonAnchor
	geom    Geometry
	buf     []OverlayButton
}

// NewOverlay creates an overlay for the given buttons. Buttons with an
// unknown corner are anchored to the top-left.
func NewOverlay(buttons []ButtonConfig) *Overlay {
	o := &Overlay{anchors: make([]buttonAnchor, 0, len(buttons))}
	for _, b := range buttons {
		c, _ := parseCorner(b.Corner)
		o.anchors = append(o.anchors, buttonAnchor{
			name:   b.Name,
			corner: c,
			dx:     b.OffsetX,
			dy:     b.OffsetY,
			size:   b.Size,
		})
	}
	return o
}

// Update records the geometry of the current frame.
func (o *Overlay) Update(g Geometry) { o.geom = g }

// Geometry returns the last recorded geometry.
func (o *Overlay) Geometry() Geometry { return o.geom }

// ImageRect returns the screen rect of the primary image.
func (o *Overlay) ImageRect() Rect { return o.geom.Primary }

// Contains reports whether p lies over the visible part of the primary image.
// In split mode the whole image rect counts, since the comparison image
// fills the part left of the divider.
func (o *Overlay) Contains(p Vec2) bool {
	r := o.geom.Primary
	if !o.geom.HasDivider {
		r = r.Intersect(o.geom.PrimaryClip)
	}
	return !r.Empty() && r.Contains(p.X, p.Y)
}

// Anchor returns the corner of the image rect offset by (dx, dy).
func (o *Overlay) Anchor(c Corner, dx, dy float64) Vec2 {
	r := o.geom.Primary
	var p Vec2
	switch c {
	case CornerTopLeft:
		p = Vec2{r.X, r.Y}
	case CornerTopRight:
		p = Vec2{r.X + r.Width, r.Y}
	case CornerBottomLeft:
		p = Vec2{r.X, r.Y + r.Height}
	case CornerBottomRight:
		p = Vec2{r.X + r.Width, r.Y + r.Height}
	case CornerCenter:
		p = r.Center()
	}
	return Vec2{p.X + dx, p.Y + dy}
}

// ButtonRects lays out the configured buttons against the current image
// rect. The returned slice is reused by the next call. No buttons are laid
// out while there is no image.
func (o *Overlay) ButtonRects() []OverlayButton {
	o.buf = o.buf[:0]
	if o.geom.Primary.Empty() {
		return o.buf
	}
	for _, a := range o.anchors {
		p := o.Anchor(a.corner, a.dx, a.dy)
		o.buf = append(o.buf, OverlayButton{
			Name: a.name,
			Rect: Rect{X: p.X, Y: p.Y, Width: a.size, Height: a.size},
		})
	}
	return o.buf
}

// ButtonAt returns the name of the button under p. Later buttons win when
// rects overlap.
func (o *Overlay) ButtonAt(p Vec2) (string, bool) {
	buttons := o.ButtonRects()
	for i := len(buttons) - 1; i >= 0; i-- {
		if buttons[i].Rect.Contains(p.X, p.Y) {
			return buttons[i].Name, true
		}
	}
	return "", false
}

// DividerX returns the comparison divider position in canvas pixels. It
// depends only on the canvas width, not on zoom or pan.
func (o *Overlay) DividerX() (float64, bool) {
	return o.geom.DividerX, o.geom.HasDivider
}

// NearDivider reports whether p is within grab pixels of the divider.
func (o *Overlay) NearDivider(p Vec2, grab float64) bool {
	x, ok := o.DividerX()
	if !ok {
		return false
	}
	d := p.X - x
	return d >= -grab && d <= grab
}

// LoaderCenter returns where a loading indicator belongs: the image center,
// or the screen center when nothing is displayed yet.
func (o *Overlay) LoaderCenter() Vec2 {
	if o.geom.Primary.Empty() {
		return o.geom.Center
	}
	return o.geom.Primary.Center()
}
