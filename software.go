package imgview

import (
	"image"
	"image/color"
	stddraw "image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// SoftwareSurface is a CPU Surface backed by an *image.RGBA. It renders
// exactly what EbitenSurface renders, without a GPU or a running game loop,
// which makes it suitable for headless snapshots and tests.
type SoftwareSurface struct {
	img    *image.RGBA
	scaler draw.Scaler
}

// NewSoftwareSurface allocates a w×h surface.
func NewSoftwareSurface(w, h int) *SoftwareSurface {
	return &SoftwareSurface{
		img:    image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0))),
		scaler: draw.ApproxBiLinear,
	}
}

// Image returns the backing image.
func (s *SoftwareSurface) Image() *image.RGBA { return s.img }

// Size implements Surface.
func (s *SoftwareSurface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Fill implements Surface.
func (s *SoftwareSurface) Fill(c color.Color) {
	stddraw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, stddraw.Src)
}

// DrawBitmap implements Surface. Only image.Image bitmaps can be drawn;
// others are skipped.
func (s *SoftwareSurface) DrawBitmap(b Bitmap, src, dst Rect, opts DrawOptions) {
	img, ok := b.(image.Image)
	if !ok {
		return
	}
	sr, d, ok := sourceMapping(img.Bounds(), src, dst)
	if !ok {
		return
	}
	clip := roundRect(dst).Intersect(s.img.Bounds())
	if clip.Empty() {
		return
	}
	dr := roundRect(d)

	if opts.Blur <= 0 {
		// Scale writes only inside the destination's bounds, so a sub-image
		// view of the clip rect limits it to dst.
		view := s.img.SubImage(clip).(*image.RGBA)
		s.scaler.Scale(view, dr, img, sr, draw.Over, nil)
		return
	}

	// Blur sees the whole scaled region so edges near the clip do not fade
	// to transparent.
	tmp := image.NewNRGBA(image.Rect(0, 0, dr.Dx(), dr.Dy()))
	s.scaler.Scale(tmp, tmp.Bounds(), img, sr, draw.Src, nil)
	blurred := imaging.Blur(tmp, blurSigma(opts.Blur))
	stddraw.Draw(s.img, clip, blurred, clip.Min.Sub(dr.Min), stddraw.Over)
}

// blurSigma maps a pixel radius to a gaussian sigma. A gaussian reaches
// most of its weight within about two sigmas.
func blurSigma(radius int) float64 {
	return float64(radius) / 2
}
