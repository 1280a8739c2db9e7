package imgview

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// BlurFilter applies a Kawase-style blur using a chain of half-size
// downscales followed by upscales. Bilinear filtering during DrawImage does
// the smoothing, so no shader is needed. Temporary images are kept between
// frames and only reallocated when the source size changes.
type BlurFilter struct {
	Radius int
	temps  []*ebiten.Image
	op     ebiten.DrawImageOptions
}

// NewBlurFilter creates a blur filter with the given radius in pixels.
// Negative radii are treated as zero.
func NewBlurFilter(radius int) *BlurFilter {
	if radius < 0 {
		radius = 0
	}
	return &BlurFilter{Radius: radius}
}

// blurPasses returns the number of downscale passes for a radius:
// ceil(log2(radius)), at least 1. Zero means no blur.
func blurPasses(radius int) int {
	if radius <= 0 {
		return 0
	}
	return max(int(math.Ceil(math.Log2(float64(radius)))), 1)
}

// Apply renders src into dst with the blur. dst is not cleared first.
func (f *BlurFilter) Apply(src, dst *ebiten.Image) {
	passes := blurPasses(f.Radius)
	if passes == 0 {
		f.draw(dst, src, ebiten.FilterNearest)
		return
	}
	f.ensureTemps(src, passes)

	current := src
	for i := 0; i < passes; i++ {
		f.temps[i].Clear()
		f.draw(f.temps[i], current, ebiten.FilterLinear)
		current = f.temps[i]
	}
	for i := passes - 2; i >= 0; i-- {
		f.temps[i].Clear()
		f.draw(f.temps[i], current, ebiten.FilterLinear)
		current = f.temps[i]
	}
	f.draw(dst, current, ebiten.FilterLinear)
}

// Dispose deallocates the temporary images.
func (f *BlurFilter) Dispose() {
	for i, t := range f.temps {
		if t != nil {
			t.Deallocate()
			f.temps[i] = nil
		}
	}
	f.temps = f.temps[:0]
}

// ensureTemps sizes the chain so temps[i] is src halved i+1 times.
func (f *BlurFilter) ensureTemps(src *ebiten.Image, passes int) {
	for i := passes; i < len(f.temps); i++ {
		if f.temps[i] != nil {
			f.temps[i].Deallocate()
		}
	}
	for len(f.temps) < passes {
		f.temps = append(f.temps, nil)
	}
	f.temps = f.temps[:passes]

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	for i := 0; i < passes; i++ {
		w, h = max(w/2, 1), max(h/2, 1)
		t := f.temps[i]
		if t != nil && t.Bounds().Dx() == w && t.Bounds().Dy() == h {
			continue
		}
		if t != nil {
			t.Deallocate()
		}
		f.temps[i] = ebiten.NewImage(w, h)
	}
}

// draw stretches src over the whole of dst.
func (f *BlurFilter) draw(dst, src *ebiten.Image, filter ebiten.Filter) {
	sb, db := src.Bounds(), dst.Bounds()
	f.op.GeoM.Reset()
	f.op.ColorScale.Reset()
	f.op.GeoM.Translate(-float64(sb.Min.X), -float64(sb.Min.Y))
	f.op.GeoM.Scale(float64(db.Dx())/float64(sb.Dx()), float64(db.Dy())/float64(sb.Dy()))
	f.op.GeoM.Translate(float64(db.Min.X), float64(db.Min.Y))
	f.op.Filter = filter
	dst.DrawImage(src, &f.op)
}
