package imgview

import (
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// Bitmap is a decoded, immutable image. *ebiten.Image and every image.Image
// satisfy it.
type Bitmap interface {
	Bounds() image.Rectangle
}

// DrawOptions modify a single DrawBitmap call.
type DrawOptions struct {
	// Blur is the blur radius in pixels. Zero draws the bitmap sharp.
	Blur int
}

// Surface is the drawing target of the render loop. Implementations clip
// every draw to dst.
type Surface interface {
	// Size returns the surface size in pixels.
	Size() (w, h int)
	// Fill replaces every pixel with c.
	Fill(c color.Color)
	// DrawBitmap draws the src region of b (in bitmap pixels relative to
	// b.Bounds().Min) stretched over dst, clipped to dst.
	DrawBitmap(b Bitmap, src, dst Rect, opts DrawOptions)
}

// pixelRect converts r to integer pixels, rounding outward.
func pixelRect(r Rect) image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)), int(math.Ceil(r.Y+r.Height)),
	)
}

// roundRect converts r to integer pixels, rounding each edge to nearest.
func roundRect(r Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)), int(math.Round(r.Y)),
		int(math.Round(r.X+r.Width)), int(math.Round(r.Y+r.Height)),
	)
}

// sourceMapping expands src to whole pixels of a bitmap with the given bounds
// and returns the expanded region plus the destination rect that keeps the
// original src-to-dst scale. Returns ok=false for empty regions.
func sourceMapping(bounds image.Rectangle, src, dst Rect) (sr image.Rectangle, d Rect, ok bool) {
	if src.Empty() || dst.Empty() {
		return image.Rectangle{}, Rect{}, false
	}
	sx := dst.Width / src.Width
	sy := dst.Height / src.Height
	sr = pixelRect(src).Add(bounds.Min).Intersect(bounds)
	if sr.Empty() {
		return image.Rectangle{}, Rect{}, false
	}
	// Re-anchor dst so the expanded source pixels land where they belong.
	x0 := float64(sr.Min.X - bounds.Min.X)
	y0 := float64(sr.Min.Y - bounds.Min.Y)
	d = Rect{
		X:      dst.X - (src.X-x0)*sx,
		Y:      dst.Y - (src.Y-y0)*sy,
		Width:  float64(sr.Dx()) * sx,
		Height: float64(sr.Dy()) * sy,
	}
	return sr, d, true
}

type cachedBitmap struct {
	img  *ebiten.Image
	used bool
}

// EbitenSurface draws onto an *ebiten.Image. Bitmaps that are not already
// *ebiten.Image are uploaded once and cached while they keep being drawn.
// Blurred draws go through an offscreen image and a BlurFilter.
type EbitenSurface struct {
	target *ebiten.Image

	blur      *BlurFilter
	offscreen *ebiten.Image
	blurred   *ebiten.Image
	cache     map[image.Image]*cachedBitmap
	op        ebiten.DrawImageOptions
}

// NewEbitenSurface wraps target. Call SetTarget each frame when the screen
// image changes.
func NewEbitenSurface(target *ebiten.Image) *EbitenSurface {
	return &EbitenSurface{
		target: target,
		blur:   NewBlurFilter(0),
		cache:  make(map[image.Image]*cachedBitmap),
	}
}

// SetTarget replaces the image drawn onto.
func (s *EbitenSurface) SetTarget(target *ebiten.Image) { s.target = target }

// Target returns the image drawn onto.
func (s *EbitenSurface) Target() *ebiten.Image { return s.target }

// Size implements Surface.
func (s *EbitenSurface) Size() (int, int) {
	if s.target == nil {
		return 0, 0
	}
	b := s.target.Bounds()
	return b.Dx(), b.Dy()
}

// Fill implements Surface. It also marks the start of a frame: uploaded
// bitmaps that were not drawn during the previous frame are released.
func (s *EbitenSurface) Fill(c color.Color) {
	s.evict()
	if s.target != nil {
		s.target.Fill(c)
	}
}

// DrawBitmap implements Surface.
func (s *EbitenSurface) DrawBitmap(b Bitmap, src, dst Rect, opts DrawOptions) {
	if s.target == nil {
		return
	}
	img := s.upload(b)
	if img == nil {
		return
	}
	sr, d, ok := sourceMapping(img.Bounds(), src, dst)
	if !ok {
		return
	}
	clip := roundRect(dst).Intersect(s.target.Bounds())
	if clip.Empty() {
		return
	}

	if opts.Blur <= 0 {
		s.drawScaled(s.target.SubImage(clip).(*ebiten.Image), img.SubImage(sr).(*ebiten.Image), sr, d)
		return
	}

	s.ensureOffscreen()
	s.offscreen.Clear()
	s.drawScaled(s.offscreen.SubImage(clip).(*ebiten.Image), img.SubImage(sr).(*ebiten.Image), sr, d)
	s.blurred.Clear()
	s.blur.Radius = opts.Blur
	s.blur.Apply(s.offscreen, s.blurred)

	s.op.GeoM.Reset()
	s.op.ColorScale.Reset()
	s.op.Filter = ebiten.FilterNearest
	s.target.SubImage(clip).(*ebiten.Image).DrawImage(s.blurred, &s.op)
}

// Dispose releases the offscreen buffers, the blur chain and every cached
// upload.
func (s *EbitenSurface) Dispose() {
	for k, c := range s.cache {
		c.img.Deallocate()
		delete(s.cache, k)
	}
	if s.offscreen != nil {
		s.offscreen.Deallocate()
		s.offscreen = nil
	}
	if s.blurred != nil {
		s.blurred.Deallocate()
		s.blurred = nil
	}
	s.blur.Dispose()
}

// drawScaled maps the source region sr onto d inside dst. Sub-images share
// the parent's coordinate space, so d stays in target coordinates.
func (s *EbitenSurface) drawScaled(dst, src *ebiten.Image, sr image.Rectangle, d Rect) {
	s.op.GeoM.Reset()
	s.op.ColorScale.Reset()
	s.op.GeoM.Translate(-float64(sr.Min.X), -float64(sr.Min.Y))
	s.op.GeoM.Scale(d.Width/float64(sr.Dx()), d.Height/float64(sr.Dy()))
	s.op.GeoM.Translate(d.X, d.Y)
	s.op.Filter = ebiten.FilterLinear
	dst.DrawImage(src, &s.op)
}

func (s *EbitenSurface) ensureOffscreen() {
	w, h := s.Size()
	if s.offscreen != nil && s.offscreen.Bounds().Dx() == w && s.offscreen.Bounds().Dy() == h {
		return
	}
	if s.offscreen != nil {
		s.offscreen.Deallocate()
		s.blurred.Deallocate()
	}
	s.offscreen = ebiten.NewImage(w, h)
	s.blurred = ebiten.NewImage(w, h)
}

// upload returns b as an *ebiten.Image, converting and caching image.Image
// values on first use.
func (s *EbitenSurface) upload(b Bitmap) *ebiten.Image {
	switch v := b.(type) {
	case *ebiten.Image:
		return v
	case image.Image:
		if c, ok := s.cache[v]; ok {
			c.used = true
			return c.img
		}
		img := ebiten.NewImageFromImage(v)
		s.cache[v] = &cachedBitmap{img: img, used: true}
		return img
	default:
		return nil
	}
}

func (s *EbitenSurface) evict() {
	for k, c := range s.cache {
		if !c.used {
			c.img.Deallocate()
			delete(s.cache, k)
			continue
		}
		c.used = false
	}
}
